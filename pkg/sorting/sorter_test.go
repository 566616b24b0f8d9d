package sorting

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/datatable/pkg/column"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

func newSorter(t *testing.T, opts Options, workers int) *Sorter {
	return New(opts, parallel.New(workers), zaptest.NewLogger(t))
}

// referenceOrder is a stable comparison sort with NAs first.
func referenceOrder[S column.Scalar](vals []S, isNA func(S) bool) []int32 {
	ord := make([]int32, len(vals))
	for i := range ord {
		ord[i] = int32(i)
	}
	sort.SliceStable(ord, func(a, b int) bool {
		va, vb := vals[ord[a]], vals[ord[b]]
		na, nb := isNA(va), isNA(vb)
		if na || nb {
			return na && !nb
		}
		return va < vb
	})
	return ord
}

func ordering[S column.Scalar](t *testing.T, s *Sorter, vals []S) []int32 {
	t.Helper()
	c, err := column.FromValues(vals)
	require.NoError(t, err)
	defer c.DecRef()
	ord, err := s.Ordering(c)
	require.NoError(t, err)
	return ord
}

func TestSortScenario(t *testing.T) {
	vals := []int32{5, stype.NAInt32, 2}
	for _, threshold := range []int{64, 0} {
		s := newSorter(t, Options{InsertThreshold: threshold}, 2)
		assert.Equal(t, []int32{1, 2, 0}, ordering(t, s, vals), "threshold %d", threshold)
	}
}

func TestSortReturnsRowIndex(t *testing.T) {
	c, err := column.FromValues([]int64{30, 10, 20})
	require.NoError(t, err)
	ri, err := New(DefaultOptions(), nil, nil).Sort(c)
	require.NoError(t, err)
	assert.Equal(t, rowindex.KindArray32, ri.Kind())
	assert.Equal(t, []int64{1, 2, 0}, ri.Indices())
	assert.Equal(t, int64(0), ri.Min())
	assert.Equal(t, int64(2), ri.Max())

	sorted, err := c.Extract(ri)
	require.NoError(t, err)
	got, err := column.Values[int64](sorted)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, got)
}

func TestSortInt32Random(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tests := []struct {
		name  string
		n     int
		value func() int32
		opts  Options
	}{
		{"small range with dups", 200000, func() int32 { return int32(rng.Intn(100)) - 50 }, DefaultOptions()},
		{"full range", 150000, func() int32 { return int32(rng.Uint32()) }, DefaultOptions()},
		{"narrow radix", 100000, func() int32 { return int32(rng.Intn(1 << 20)) }, Options{InsertThreshold: 16, MaxRadixBits: 4}},
		{"skewed", 120000, func() int32 {
			if rng.Intn(10) == 0 {
				return int32(rng.Intn(1 << 30))
			}
			return int32(rng.Intn(1000))
		}, DefaultOptions()},
		{"insertion boundary", 64, func() int32 { return int32(rng.Intn(10)) }, DefaultOptions()},
		{"just above insertion", 65, func() int32 { return int32(rng.Intn(10)) }, DefaultOptions()},
	}
	isNA := func(v int32) bool { return v == stype.NAInt32 }
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := make([]int32, tt.n)
			for i := range vals {
				if rng.Intn(20) == 0 {
					vals[i] = stype.NAInt32
				} else {
					vals[i] = tt.value()
				}
			}
			got := ordering(t, newSorter(t, tt.opts, 4), vals)
			assert.Equal(t, referenceOrder(vals, isNA), got)
		})
	}
}

func TestSortIsDeterministicAcrossTeams(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vals := make([]int64, 300000)
	for i := range vals {
		vals[i] = rng.Int63n(1<<40) - 1<<39
	}
	one := ordering(t, newSorter(t, DefaultOptions(), 1), vals)
	many := ordering(t, newSorter(t, DefaultOptions(), 8), vals)
	assert.Equal(t, one, many)
}

func TestSortInt64Extremes(t *testing.T) {
	vals := []int64{math.MaxInt64, stype.NAInt64, math.MinInt64 + 1, 0, -1, 1, math.MaxInt64}
	for i := 0; i < 200; i++ {
		vals = append(vals, int64(i%7)*(math.MaxInt64/7))
	}
	isNA := func(v int64) bool { return v == stype.NAInt64 }
	got := ordering(t, newSorter(t, Options{InsertThreshold: 8}, 3), vals)
	assert.Equal(t, referenceOrder(vals, isNA), got)
}

func TestSortFloats(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	f64 := make([]float64, 50000)
	f32 := make([]float32, 50000)
	for i := range f64 {
		switch rng.Intn(25) {
		case 0:
			f64[i] = math.NaN()
		case 1:
			f64[i] = math.Inf(-1)
		case 2:
			f64[i] = math.Float64frombits(stype.NAFloat64Bits)
		default:
			f64[i] = rng.NormFloat64() * 1e6
		}
		f32[i] = float32(f64[i])
	}
	isNaN64 := func(v float64) bool { return v != v }
	isNaN32 := func(v float32) bool { return v != v }

	s := newSorter(t, DefaultOptions(), 4)
	assert.Equal(t, referenceOrder(f64, isNaN64), ordering(t, s, f64))
	assert.Equal(t, referenceOrder(f32, isNaN32), ordering(t, s, f32))

	// -0 and +0 are equal keys and keep their input order.
	zeros := []float64{0, math.Copysign(0, -1), -1, 0}
	assert.Equal(t, []int32{2, 0, 1, 3}, ordering(t, s, zeros))
}

func TestSortSmallTypes(t *testing.T) {
	s := newSorter(t, Options{InsertThreshold: 4}, 2)

	b, err := column.FromBool8([]int8{1, 0, stype.NABool8, 1, 0, 0, 1})
	require.NoError(t, err)
	ord, err := s.Ordering(b)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 1, 4, 5, 0, 3, 6}, ord)

	i16 := []int16{300, -300, stype.NAInt16, 0, 300, -1, 7, 7, 8}
	got := ordering(t, s, i16)
	assert.Equal(t, referenceOrder(i16, func(v int16) bool { return v == stype.NAInt16 }), got)

	i8 := []int8{5, 5, 5, 5, 5, 5}
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, ordering(t, s, i8))

	allNA := []int32{stype.NAInt32, stype.NAInt32, stype.NAInt32, stype.NAInt32, stype.NAInt32}
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, ordering(t, s, allNA))

	assert.Empty(t, ordering(t, s, []int32{}))
}

func TestSortUnsupported(t *testing.T) {
	hello := "hello"
	c, err := column.FromStrings(stype.Str32, []*string{&hello})
	require.NoError(t, err)
	_, err = New(DefaultOptions(), nil, nil).Ordering(c)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))
}

func TestNewSanitizesOptions(t *testing.T) {
	s := New(Options{InsertThreshold: -3, MaxRadixBits: 40}, nil, nil)
	assert.Equal(t, 0, s.opts.InsertThreshold)
	assert.Equal(t, 16, s.opts.MaxRadixBits)
	assert.Equal(t, 1024, s.opts.MinChunkRows)
}
