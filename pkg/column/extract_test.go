package column

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

func slice(t *testing.T, start, count, step int64) *rowindex.RowIndex {
	t.Helper()
	ri, err := rowindex.FromSlice(start, count, step)
	require.NoError(t, err)
	return ri
}

func arr32(t *testing.T, ind ...int32) *rowindex.RowIndex {
	t.Helper()
	ri, err := rowindex.FromArray32(ind, false)
	require.NoError(t, err)
	return ri
}

func arr64(t *testing.T, ind ...int64) *rowindex.RowIndex {
	t.Helper()
	ri, err := rowindex.FromArray64(ind, false)
	require.NoError(t, err)
	return ri
}

func TestExtractNilIsAlias(t *testing.T) {
	c := int32Column(t, 1, 2, 3)
	got, err := c.Extract(nil)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, int32(2), c.RefCount())
}

func TestExtractFixed(t *testing.T) {
	c := int32Column(t, 10, 11, 12, 13, 14, 15)
	defer c.DecRef()

	tests := []struct {
		name string
		ri   *rowindex.RowIndex
		want []int32
	}{
		{"contiguous", slice(t, 2, 3, 1), []int32{12, 13, 14}},
		{"strided", slice(t, 1, 3, 2), []int32{11, 13, 15}},
		{"reversed", slice(t, 5, 6, -1), []int32{15, 14, 13, 12, 11, 10}},
		{"repeated", slice(t, 4, 3, 0), []int32{14, 14, 14}},
		{"array32", arr32(t, 5, 0, 0, 3), []int32{15, 10, 10, 13}},
		{"array64", arr64(t, 3, 1, 4), []int32{13, 11, 14}},
		{"empty", slice(t, 0, 0, 1), []int32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Extract(tt.ri)
			require.NoError(t, err)
			assert.Equal(t, tt.ri.Length(), got.NRows())
			assert.Equal(t, tt.want, readInt32(t, got))
			assert.Equal(t, int32(1), got.RefCount())
		})
	}
}

// 64-bit row indices must go through their own gather path for every
// element width.
func TestExtractArray64AllWidths(t *testing.T) {
	ri := arr64(t, 2, 0, 2, 1)

	i8, err := FromValues([]int8{1, 2, 3})
	require.NoError(t, err)
	got, err := i8.Extract(ri)
	require.NoError(t, err)
	v8, _ := Values[int8](got)
	assert.Equal(t, []int8{3, 1, 3, 2}, v8)

	i16, err := FromValues([]int16{1, 2, 3})
	require.NoError(t, err)
	got, err = i16.Extract(ri)
	require.NoError(t, err)
	v16, _ := Values[int16](got)
	assert.Equal(t, []int16{3, 1, 3, 2}, v16)

	f64, err := FromValues([]float64{0.5, 1.5, 2.5})
	require.NoError(t, err)
	got, err = f64.Extract(ri)
	require.NoError(t, err)
	vf, _ := Values[float64](got)
	assert.Equal(t, []float64{2.5, 0.5, 2.5, 1.5}, vf)

	fs, err := CreateFixedStr(3, 3)
	require.NoError(t, err)
	buf, err := fs.MutableBytes()
	require.NoError(t, err)
	copy(buf, "abcdefghi")
	got, err = fs.Extract(ri)
	require.NoError(t, err)
	assert.Equal(t, "ghiabcghidef", string(got.Bytes()))
	assert.Equal(t, "n=3", got.MetaString())

	s := strColumn(t, stype.Str32, sp("x"), nil, sp("zz"))
	got, err = s.Extract(ri)
	require.NoError(t, err)
	assert.Equal(t, []*string{sp("zz"), sp("x"), sp("zz"), nil}, readStrings(t, got))
}

func TestExtractVarwidth(t *testing.T) {
	for _, st := range []stype.SType{stype.Str32, stype.Str64} {
		t.Run(st.String(), func(t *testing.T) {
			c := strColumn(t, st, sp("alpha"), nil, sp(""), sp("delta"), sp("e"))
			defer c.DecRef()

			got, err := c.Extract(slice(t, 4, 5, -1))
			require.NoError(t, err)
			assert.Equal(t, st, got.SType())
			assert.Equal(t, []*string{sp("e"), sp("delta"), sp(""), nil, sp("alpha")}, readStrings(t, got))
			assert.Equal(t, int64(11), got.dataSize())
			assert.Zero(t, got.Meta()%8)

			got, err = c.Extract(arr32(t, 1, 1, 3))
			require.NoError(t, err)
			assert.Equal(t, []*string{nil, nil, sp("delta")}, readStrings(t, got))
		})
	}
}

func TestExtractIdentityRoundTrip(t *testing.T) {
	vals := []*string{sp("ab"), nil, sp(""), sp("ünïcødé"), nil, sp("z")}
	c := strColumn(t, stype.Str32, vals...)
	got, err := c.Extract(slice(t, 0, c.NRows(), 1))
	require.NoError(t, err)
	assert.Equal(t, vals, readStrings(t, got))
	assert.Equal(t, c.Bytes(), got.Bytes())
}

// An empty slice keeps its start, which may lie past the last row.
func TestExtractEmptySlicePastEnd(t *testing.T) {
	ri := slice(t, 10, 0, 1)

	fs, err := CreateFixedStr(2, 4)
	require.NoError(t, err)
	sources := []*Column{
		int32Column(t, 1, 2, 3),
		fs,
		strColumn(t, stype.Str32, sp("a"), sp("bc")),
		strColumn(t, stype.Str64, sp("a"), nil),
	}
	for _, c := range sources {
		t.Run(c.SType().String(), func(t *testing.T) {
			defer c.DecRef()
			got, err := c.Extract(ri)
			require.NoError(t, err)
			defer got.DecRef()
			assert.Equal(t, c.SType(), got.SType())
			assert.Zero(t, got.NRows())
			if c.SType() == stype.FixedStr {
				assert.Equal(t, "n=4", got.MetaString())
			}
		})
	}
}

func TestExtractErrors(t *testing.T) {
	c := int32Column(t, 1, 2, 3)
	_, err := c.Extract(slice(t, 1, 3, 1))
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))

	enum, err := Create(stype.Enum8, 3)
	require.NoError(t, err)
	_, err = enum.Extract(slice(t, 0, 2, 1))
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))

	void, err := NewVoid(4)
	require.NoError(t, err)
	got, err := void.Extract(slice(t, 0, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, stype.Void, got.SType())
	assert.Equal(t, int64(2), got.NRows())
}

func randomIndex(t *testing.T, rng *rand.Rand, parent, n int) *rowindex.RowIndex {
	switch rng.Intn(3) {
	case 0:
		step := int64(rng.Intn(3))
		if step == 0 {
			return slice(t, int64(rng.Intn(parent)), int64(n), 0)
		}
		count := min(int64(n), int64(parent-1)/step+1)
		return slice(t, 0, count, step)
	case 1:
		ind := make([]int32, n)
		for i := range ind {
			ind[i] = int32(rng.Intn(parent))
		}
		return arr32(t, ind...)
	default:
		ind := make([]int64, n)
		for i := range ind {
			ind[i] = int64(rng.Intn(parent))
		}
		return arr64(t, ind...)
	}
}

func TestExtractComposesLikeMerge(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const nrows = 40000

	ints := make([]int32, nrows)
	words := make([]*string, nrows)
	for i := range ints {
		ints[i] = int32(rng.Intn(1000))
		if rng.Intn(10) == 0 {
			ints[i] = na32
			continue
		}
		words[i] = sp(fmt.Sprintf("w%d", rng.Intn(5000)))
	}
	columns := []*Column{int32Column(t, ints...), strColumn(t, stype.Str32, words...)}

	for round := 0; round < 10; round++ {
		r1 := randomIndex(t, rng, nrows, 30000)
		r2 := randomIndex(t, rng, int(r1.Length()), 20000)
		merged, err := rowindex.Merge(r1, r2)
		require.NoError(t, err)

		for _, c := range columns {
			step1, err := c.Extract(r1)
			require.NoError(t, err)
			twice, err := step1.Extract(r2)
			require.NoError(t, err)
			once, err := c.Extract(merged)
			require.NoError(t, err)

			assert.Equal(t, once.Bytes(), twice.Bytes(), "%s via %s then %s", c.SType(), r1, r2)
			require.NoError(t, step1.DecRef())
			require.NoError(t, twice.DecRef())
			require.NoError(t, once.DecRef())
		}
	}
}
