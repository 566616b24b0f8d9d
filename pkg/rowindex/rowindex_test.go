package rowindex

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/parallel"
)

var team4 = WithTeam(parallel.New(4))

type boolColumn []int8

func (b boolColumn) NRows() int64           { return int64(len(b)) }
func (b boolColumn) Bool8() ([]int8, error) { return b, nil }

func mustSlice(t *testing.T, start, count, step int64) *RowIndex {
	t.Helper()
	ri, err := FromSlice(start, count, step)
	require.NoError(t, err)
	return ri
}

func TestFromSlice(t *testing.T) {
	tests := []struct {
		name              string
		start, count, stp int64
		wantMin, wantMax  int64
		wantErr           bool
	}{
		{"contiguous", 3, 4, 1, 3, 6, false},
		{"strided", 0, 5, 10, 0, 40, false},
		{"reverse", 9, 10, -1, 0, 9, false},
		{"repeat", 7, 1000, 0, 7, 7, false},
		{"empty", 5, 0, 1, 0, 0, false},
		{"negative start", -1, 3, 1, 0, 0, true},
		{"negative count", 0, -3, 1, 0, 0, true},
		{"runs below zero", 2, 5, -1, 0, 0, true},
		{"overflow", math.MaxInt64 - 10, 3, 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ri, err := FromSlice(tt.start, tt.count, tt.stp)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, KindSlice, ri.Kind())
			assert.Equal(t, tt.count, ri.Length())
			assert.Equal(t, tt.wantMin, ri.Min())
			assert.Equal(t, tt.wantMax, ri.Max())
		})
	}
}

func TestFromArrayUnsortedBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ind := make([]int32, 300000)
	for i := range ind {
		ind[i] = int32(rng.Intn(1 << 30))
	}
	ind[12345] = 1<<30 + 5
	ind[250000] = 0

	ri, err := FromArray32(ind, false, team4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, int64(1<<30+5), ri.Max())

	sorted, err := FromArray64([]int64{2, 4, 9}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sorted.Min())
	assert.Equal(t, int64(9), sorted.Max())

	_, err = FromArray32([]int32{3, -1, 4}, false)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))
}

func TestFromSliceList(t *testing.T) {
	ri, err := FromSliceList([]int64{0, 10, 5}, []int64{3, 0, 2}, []int64{1, 1, -2})
	require.NoError(t, err)
	assert.Equal(t, KindArray32, ri.Kind())
	assert.Equal(t, []int64{0, 1, 2, 5, 3}, ri.Indices())
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, int64(5), ri.Max())

	_, err = FromSliceList([]int64{0}, []int64{1, 2}, []int64{1})
	assert.Error(t, err)
	_, err = FromSliceList([]int64{1}, []int64{3}, []int64{-1})
	assert.Error(t, err)
}

func TestCompactify(t *testing.T) {
	ri, err := FromArray64([]int64{5, 1, 3}, false)
	require.NoError(t, err)
	ri.Compactify()
	assert.Equal(t, KindArray32, ri.Kind())
	assert.Equal(t, []int64{5, 1, 3}, ri.Indices())

	wide, err := FromArray64([]int64{1, math.MaxInt32 + 1}, true)
	require.NoError(t, err)
	wide.Compactify()
	assert.Equal(t, KindArray64, wide.Kind())

	shared, err := FromArray64([]int64{1, 2}, true)
	require.NoError(t, err)
	shared.IncRef()
	shared.Compactify()
	assert.Equal(t, KindArray64, shared.Kind())
}

func TestRefCount(t *testing.T) {
	ri := mustSlice(t, 0, 10, 1)
	assert.Equal(t, int32(1), ri.RefCount())
	assert.Same(t, ri, ri.IncRef())
	assert.Equal(t, int32(2), ri.RefCount())
	ri.DecRef()
	ri.DecRef()
	assert.Equal(t, int32(0), ri.RefCount())
	assert.Panics(t, func() { ri.DecRef() })

	var none *RowIndex
	assert.NotPanics(t, func() { none.DecRef() })
	assert.Nil(t, none.IncRef())
}

func TestMergeIdentity(t *testing.T) {
	got, err := Merge(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	ri := mustSlice(t, 2, 3, 1)
	got, err = Merge(nil, ri)
	require.NoError(t, err)
	assert.Same(t, ri, got)
	assert.Equal(t, int32(2), ri.RefCount())

	got, err = Merge(ri, nil)
	require.NoError(t, err)
	assert.Same(t, ri, got)
}

func TestMergeRules(t *testing.T) {
	arr, err := FromArray32([]int32{8, 3, 6, 1, 9}, false)
	require.NoError(t, err)
	arr64, err := FromArray64([]int64{8, 3, 6, 1, 9}, false)
	require.NoError(t, err)

	t.Run("slice of slice stays slice", func(t *testing.T) {
		got, err := Merge(mustSlice(t, 10, 20, 3), mustSlice(t, 2, 4, 2))
		require.NoError(t, err)
		start, step, ok := got.SliceBounds()
		require.True(t, ok)
		assert.Equal(t, int64(16), start)
		assert.Equal(t, int64(6), step)
		assert.Equal(t, []int64{16, 22, 28, 34}, got.Indices())
		assert.Equal(t, int64(16), got.Min())
		assert.Equal(t, int64(34), got.Max())
	})

	t.Run("zero step over array", func(t *testing.T) {
		got, err := Merge(arr, mustSlice(t, 2, 4, 0))
		require.NoError(t, err)
		start, step, ok := got.SliceBounds()
		require.True(t, ok)
		assert.Equal(t, int64(6), start)
		assert.Zero(t, step)
		assert.Equal(t, []int64{6, 6, 6, 6}, got.Indices())
	})

	t.Run("array of slice", func(t *testing.T) {
		got, err := Merge(arr, mustSlice(t, 4, 3, -2))
		require.NoError(t, err)
		assert.Equal(t, KindArray32, got.Kind())
		assert.Equal(t, []int64{9, 6, 8}, got.Indices())
		assert.Equal(t, int64(6), got.Min())
		assert.Equal(t, int64(9), got.Max())
	})

	t.Run("slice of array", func(t *testing.T) {
		bc, err := FromArray32([]int32{3, 0, 2}, false)
		require.NoError(t, err)
		got, err := Merge(mustSlice(t, 100, 5, -10), bc)
		require.NoError(t, err)
		assert.Equal(t, []int64{70, 100, 80}, got.Indices())
		assert.Equal(t, int64(70), got.Min())
		assert.Equal(t, int64(100), got.Max())
	})

	t.Run("array of array compacts", func(t *testing.T) {
		bc, err := FromArray64([]int64{4, 4, 0}, false)
		require.NoError(t, err)
		got, err := Merge(arr64, bc)
		require.NoError(t, err)
		assert.Equal(t, KindArray32, got.Kind())
		assert.Equal(t, []int64{9, 9, 8}, got.Indices())
	})

	t.Run("wide values stay wide", func(t *testing.T) {
		ab, err := FromArray64([]int64{1, math.MaxInt32 + 7}, true)
		require.NoError(t, err)
		bc, err := FromArray32([]int32{1, 0, 1}, false)
		require.NoError(t, err)
		got, err := Merge(ab, bc)
		require.NoError(t, err)
		assert.Equal(t, KindArray64, got.Kind())
		assert.Equal(t, int64(math.MaxInt32+7), got.Max())
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Merge(arr, mustSlice(t, 0, 6, 1))
		assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))
	})

	t.Run("empty", func(t *testing.T) {
		got, err := Merge(arr, mustSlice(t, 0, 0, 1))
		require.NoError(t, err)
		assert.Zero(t, got.Length())
	})
}

func composeByHand(ab, bc []int64) []int64 {
	out := make([]int64, len(bc))
	for i, j := range bc {
		out[i] = ab[j]
	}
	return out
}

func TestMergeAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randArray := func(n, bound int) *RowIndex {
		ind := make([]int32, n)
		for i := range ind {
			ind[i] = int32(rng.Intn(bound))
		}
		ri, err := FromArray32(ind, false)
		require.NoError(t, err)
		return ri
	}

	a := randArray(50000, 1<<20)
	candidatesB := []*RowIndex{
		mustSlice(t, 49999, 40000, -1),
		randArray(40000, 50000),
		mustSlice(t, 10, 20000, 2),
	}
	candidatesC := []*RowIndex{
		mustSlice(t, 5, 1000, 17),
		randArray(30000, 20000),
		mustSlice(t, 3, 100, 0),
	}
	for _, b := range candidatesB {
		for _, c := range candidatesC {
			ab, err := Merge(a, b, team4)
			require.NoError(t, err)
			left, err := Merge(ab, c, team4)
			require.NoError(t, err)

			bc, err := Merge(b, c, team4)
			require.NoError(t, err)
			right, err := Merge(a, bc, team4)
			require.NoError(t, err)

			want := composeByHand(composeByHand(a.Indices(), b.Indices()), c.Indices())
			assert.Equal(t, want, left.Indices(), "%s / %s", b, c)
			assert.Equal(t, want, right.Indices(), "%s / %s", b, c)
			assert.Equal(t, left.Min(), right.Min())
			assert.Equal(t, left.Max(), right.Max())
		}
	}
}

func TestFromPredicateDeterministic(t *testing.T) {
	const nrows = 1_000_003
	every3 := func(row0, row1 int64, out []int32) int {
		k := 0
		for i := row0; i < row1; i++ {
			if i%3 == 0 {
				out[k] = int32(i)
				k++
			}
		}
		return k
	}
	ri, err := FromPredicate[int32](nrows, every3, true, WithTeam(parallel.New(8)))
	require.NoError(t, err)
	assert.Equal(t, int64((nrows+2)/3), ri.Length())
	arr, ok := ri.Array32()
	require.True(t, ok)
	for i, v := range arr {
		if v != int32(3*i) {
			t.Fatalf("row %d: got %d", i, v)
		}
	}
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, int64(nrows-1), ri.Max())

	single, err := FromPredicate[int32](nrows, every3, true, WithTeam(parallel.New(1)))
	require.NoError(t, err)
	assert.Equal(t, ri.Indices(), single.Indices())

	none, err := FromPredicate[int32](0, every3, true)
	require.NoError(t, err)
	assert.Zero(t, none.Length())

	_, err = FromPredicate[int32](-1, every3, true)
	assert.Error(t, err)
}

func TestFromBoolColumn(t *testing.T) {
	col := boolColumn{1, 0, 1, 1, 0, -128, 1, 0}

	ri, err := FromBoolColumn(col, nil)
	require.NoError(t, err)
	assert.Equal(t, KindArray32, ri.Kind())
	assert.Equal(t, []int64{0, 2, 3, 6}, ri.Indices())

	none, err := FromBoolColumn(boolColumn{0, 0, -128}, nil)
	require.NoError(t, err)
	assert.Zero(t, none.Length())

	t.Run("slice parent", func(t *testing.T) {
		got, err := FromBoolColumn(col, mustSlice(t, 7, 8, -1))
		require.NoError(t, err)
		assert.Equal(t, []int64{6, 3, 2, 0}, got.Indices())
	})

	t.Run("array parent", func(t *testing.T) {
		parent, err := FromArray32([]int32{4, 3, 3, 1, 0}, false)
		require.NoError(t, err)
		got, err := FromBoolColumn(col, parent)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 3, 0}, got.Indices())
	})

	t.Run("parent out of range", func(t *testing.T) {
		_, err := FromBoolColumn(col, mustSlice(t, 0, 9, 1))
		assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))
	})
}
