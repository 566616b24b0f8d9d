package rowindex

import (
	"math"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/pool"
)

// minReduceChunk is the smallest chunk of a parallel min/max reduction.
const minReduceChunk = 1 << 16

// predicateChunk is the number of rows handed to one filter call.
const predicateChunk = 65536

// FromSlice selects count rows starting at start, step apart.
func FromSlice(start, count, step int64) (*RowIndex, error) {
	if start < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "slice start %d is negative", start)
	}
	if count < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "slice count %d is negative", count)
	}
	if count == 0 {
		return newRowIndex(SliceRepr{Start: start, Step: step}, 0, 0, 0, "slice"), nil
	}
	last, err := sliceLast(start, count, step)
	if err != nil {
		return nil, err
	}
	lo, hi := start, last
	if step < 0 {
		lo, hi = last, start
	}
	return newRowIndex(SliceRepr{Start: start, Step: step}, count, lo, hi, "slice"), nil
}

// sliceLast computes start+(count-1)*step, rejecting results that leave
// [0, MaxInt64].
func sliceLast(start, count, step int64) (int64, error) {
	k := count - 1
	switch {
	case step > 0 && k > (math.MaxInt64-start)/step:
		return 0, dterrors.Newf(dterrors.ErrorTypeValidation,
			"slice (%d, %d, %d) exceeds the row index range", start, count, step)
	case step < 0 && k > start/(-step):
		return 0, dterrors.Newf(dterrors.ErrorTypeValidation,
			"slice (%d, %d, %d) produces negative rows", start, count, step)
	}
	return start + k*step, nil
}

// FromSliceList concatenates several slices into one array index.
func FromSliceList(starts, counts, steps []int64, opts ...Option) (*RowIndex, error) {
	if len(starts) != len(counts) || len(starts) != len(steps) {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"slice list lengths differ: %d starts, %d counts, %d steps", len(starts), len(counts), len(steps))
	}
	var total, hi int64
	for i := range starts {
		if starts[i] < 0 || counts[i] < 0 {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"slice %d has negative start or count", i).WithDetail("start", starts[i]).WithDetail("count", counts[i])
		}
		if counts[i] == 0 {
			continue
		}
		last, err := sliceLast(starts[i], counts[i], steps[i])
		if err != nil {
			return nil, err
		}
		hi = max(hi, starts[i], last)
		total += counts[i]
	}

	o := buildOptions(opts)
	if total <= math.MaxInt32 && hi <= math.MaxInt32 {
		out := make([]int32, 0, total)
		for i := range starts {
			j := starts[i]
			for k := int64(0); k < counts[i]; k++ {
				out = append(out, int32(j))
				j += steps[i]
			}
		}
		return fromArray32(out, false, o.team, "slice")
	}
	out := make([]int64, 0, total)
	for i := range starts {
		j := starts[i]
		for k := int64(0); k < counts[i]; k++ {
			out = append(out, j)
			j += steps[i]
		}
	}
	return fromArray64(out, false, o.team, "slice")
}

// FromArray32 wraps ind, taking ownership of it. When sorted is false the
// bounds are computed with a parallel reduction instead of read from the
// ends of the array.
func FromArray32(ind []int32, sorted bool, opts ...Option) (*RowIndex, error) {
	return fromArray32(ind, sorted, buildOptions(opts).team, "array")
}

// FromArray64 wraps ind, taking ownership of it.
func FromArray64(ind []int64, sorted bool, opts ...Option) (*RowIndex, error) {
	return fromArray64(ind, sorted, buildOptions(opts).team, "array")
}

func fromArray32(ind []int32, sorted bool, team *parallel.Team, source string) (*RowIndex, error) {
	lo, hi := bounds(ind, sorted, team)
	if lo < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "row index contains negative row %d", lo)
	}
	return newRowIndex(Array32Repr(ind), int64(len(ind)), lo, hi, source), nil
}

func fromArray64(ind []int64, sorted bool, team *parallel.Team, source string) (*RowIndex, error) {
	lo, hi := bounds(ind, sorted, team)
	if lo < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "row index contains negative row %d", lo)
	}
	return newRowIndex(Array64Repr(ind), int64(len(ind)), lo, hi, source), nil
}

// bounds returns min and max of ind, or (0, 0) when it is empty.
func bounds[T int32 | int64](ind []T, sorted bool, team *parallel.Team) (int64, int64) {
	n := len(ind)
	if n == 0 {
		return 0, 0
	}
	if sorted {
		return int64(ind[0]), int64(ind[n-1])
	}
	plan := team.Chunks(n, minReduceChunk)
	los := make([]T, plan.NChunks)
	his := make([]T, plan.NChunks)
	team.For(plan.NChunks, func(c int) {
		s, e := plan.Bounds(c)
		lo, hi := ind[s], ind[s]
		for _, v := range ind[s+1 : e] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		los[c], his[c] = lo, hi
	})
	lo, hi := los[0], his[0]
	for c := 1; c < plan.NChunks; c++ {
		lo = min(lo, los[c])
		hi = max(hi, his[c])
	}
	return int64(lo), int64(hi)
}

// BoolSource is a boolean column: one int8 per row, 1 meaning true.
type BoolSource interface {
	NRows() int64
	Bool8() ([]int8, error)
}

// FromBoolColumn selects the rows where src is true. With a parent index,
// src is read through parent and the result holds the parent-space row
// numbers of the true rows, in parent order.
func FromBoolColumn(src BoolSource, parent *RowIndex, opts ...Option) (*RowIndex, error) {
	data, err := src.Bool8()
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	if parent == nil {
		nrows := int64(len(data))
		filter := func(row0, row1 int64, emit func(int64)) {
			for i := row0; i < row1; i++ {
				if data[i] == 1 {
					emit(i)
				}
			}
		}
		return filterRows(nrows, nrows-1, true, filter, o.team)
	}

	if parent.length > 0 && parent.max >= int64(len(data)) {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"parent row index max %d is out of range for %d rows", parent.max, len(data))
	}
	sorted := false
	if start, step, ok := parent.SliceBounds(); ok {
		sorted = step > 0
		filter := func(row0, row1 int64, emit func(int64)) {
			j := start + row0*step
			for i := row0; i < row1; i++ {
				if data[j] == 1 {
					emit(j)
				}
				j += step
			}
		}
		return filterRows(parent.length, parent.max, sorted, filter, o.team)
	}
	filter := func(row0, row1 int64, emit func(int64)) {
		for i := row0; i < row1; i++ {
			if j := parent.At(i); data[j] == 1 {
				emit(j)
			}
		}
	}
	return filterRows(parent.length, parent.max, sorted, filter, o.team)
}

// filterRows adapts an emitting filter to the minimal-width predicate
// construction for row numbers up to hi.
func filterRows(nrows, hi int64, sorted bool, filter func(row0, row1 int64, emit func(int64)), team *parallel.Team) (*RowIndex, error) {
	if hi <= math.MaxInt32 && nrows <= math.MaxInt32 {
		return fromPredicate(nrows, func(row0, row1 int64, out []int32) int {
			k := 0
			filter(row0, row1, func(j int64) { out[k] = int32(j); k++ })
			return k
		}, sorted, team, "filter")
	}
	return fromPredicate(nrows, func(row0, row1 int64, out []int64) int {
		k := 0
		filter(row0, row1, func(j int64) { out[k] = j; k++ })
		return k
	}, sorted, team, "filter")
}

// FilterFunc inspects rows [row0, row1), writes the selected row numbers
// into out (which holds at least row1-row0 elements) and returns how many
// it wrote.
type FilterFunc[T int32 | int64] func(row0, row1 int64, out []T) int

// FromPredicate builds an index by running fn over [0, nrows) in chunks of
// 65536 rows on the worker team. Each chunk fills a private buffer; the
// buffers are appended to the result in chunk order, so the output does not
// depend on scheduling. Pass sorted when fn emits ascending rows.
func FromPredicate[T int32 | int64](nrows int64, fn FilterFunc[T], sorted bool, opts ...Option) (*RowIndex, error) {
	if nrows < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "negative row count %d", nrows)
	}
	var zero T
	if _, narrow := any(zero).(int32); narrow && nrows-1 > math.MaxInt32 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"%d rows do not fit a 32-bit row index", nrows)
	}
	return fromPredicate(nrows, fn, sorted, buildOptions(opts).team, "predicate")
}

func fromPredicate[T int32 | int64](nrows int64, fn FilterFunc[T], sorted bool, team *parallel.Team, source string) (*RowIndex, error) {
	nchunks := int((nrows + predicateChunk - 1) / predicateChunk)
	buffers := pool.New(
		func() *[]T { b := make([]T, predicateChunk); return &b },
		nil,
	)
	local := make([]*[]T, nchunks)
	counts := make([]int, nchunks)
	out := make([]T, 0)

	team.Ordered(nchunks, func(c int) {
		row0 := int64(c) * predicateChunk
		row1 := min(row0+predicateChunk, nrows)
		buf := buffers.Get()
		counts[c] = fn(row0, row1, *buf)
		local[c] = buf
	}, func(c int) {
		out = append(out, (*local[c])[:counts[c]]...)
		buffers.Put(local[c])
		local[c] = nil
	})

	switch arr := any(out).(type) {
	case []int32:
		return fromArray32(arr, sorted, team, source)
	case []int64:
		return fromArray64(arr, sorted, team, source)
	}
	panic("rowindex: unreachable element type")
}
