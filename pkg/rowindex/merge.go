package rowindex

import (
	"fmt"
	"math"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/parallel"
)

// minGatherChunk is the smallest chunk of a parallel gather.
const minGatherChunk = 1 << 14

// Merge composes two row indices: ab maps rows of a view B onto rows of A,
// bc maps rows of a view C onto rows of B, and the result maps C directly
// onto A, so that Merge(ab, bc).At(i) == ab.At(bc.At(i)). A nil argument
// is the identity. The inputs are not consumed; the result carries its own
// reference.
func Merge(ab, bc *RowIndex, opts ...Option) (*RowIndex, error) {
	switch {
	case ab == nil && bc == nil:
		return nil, nil
	case ab == nil:
		return bc.IncRef(), nil
	case bc == nil:
		return ab.IncRef(), nil
	}
	if bc.length == 0 {
		return newRowIndex(SliceRepr{Step: 1}, 0, 0, 0, "merge"), nil
	}
	if bc.max >= ab.length {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"row index max %d is out of range for a view of %d rows", bc.max, ab.length).
			WithDetail("max", bc.max).WithDetail("length", ab.length)
	}
	team := buildOptions(opts).team

	switch b := bc.repr.(type) {
	case SliceRepr:
		if b.Step == 0 {
			row := ab.At(b.Start)
			return newRowIndex(SliceRepr{Start: row}, bc.length, row, row, "merge"), nil
		}
		switch a := ab.repr.(type) {
		case SliceRepr:
			start := a.Start + a.Step*b.Start
			step := a.Step * b.Step
			last := start + (bc.length-1)*step
			return newRowIndex(SliceRepr{Start: start, Step: step}, bc.length,
				min(start, last), max(start, last), "merge"), nil
		case Array32Repr:
			out := make([]int32, bc.length)
			gatherStrided(out, a, b, team)
			return fromArray32(out, false, team, "merge")
		case Array64Repr:
			out := make([]int64, bc.length)
			gatherStrided(out, a, b, team)
			return mergedArray64(out, team)
		}
	case Array32Repr:
		return mergeArray(ab, b, bc, team)
	case Array64Repr:
		return mergeArray(ab, b, bc, team)
	}
	panic(fmt.Sprintf("rowindex: invalid representation %T/%T", ab.repr, bc.repr))
}

// mergeArray composes ab with an explicit bc array.
func mergeArray[B int32 | int64](ab *RowIndex, b []B, bc *RowIndex, team *parallel.Team) (*RowIndex, error) {
	_, wide := any(b).([]int64)

	switch a := ab.repr.(type) {
	case SliceRepr:
		lo := a.Start + a.Step*bc.min
		hi := a.Start + a.Step*bc.max
		if a.Step < 0 {
			lo, hi = hi, lo
		}
		if !wide && hi <= math.MaxInt32 {
			out := make([]int32, len(b))
			mapSlice(out, a, b, team)
			return newRowIndex(Array32Repr(out), bc.length, lo, hi, "merge"), nil
		}
		out := make([]int64, len(b))
		mapSlice(out, a, b, team)
		ri := newRowIndex(Array64Repr(out), bc.length, lo, hi, "merge")
		ri.Compactify()
		return ri, nil
	case Array32Repr:
		if !wide {
			out := make([]int32, len(b))
			gatherArray(out, a, b, team)
			return fromArray32(out, false, team, "merge")
		}
		out := make([]int64, len(b))
		gatherArray(out, a, b, team)
		return mergedArray64(out, team)
	case Array64Repr:
		out := make([]int64, len(b))
		gatherArray(out, a, b, team)
		return mergedArray64(out, team)
	}
	panic(fmt.Sprintf("rowindex: invalid representation %T", ab.repr))
}

func mergedArray64(out []int64, team *parallel.Team) (*RowIndex, error) {
	ri, err := fromArray64(out, false, team, "merge")
	if err != nil {
		return nil, err
	}
	ri.Compactify()
	return ri, nil
}

// gatherStrided writes a[s.Start + i*s.Step] into out[i].
func gatherStrided[D, A int32 | int64](out []D, a []A, s SliceRepr, team *parallel.Team) {
	plan := team.Chunks(len(out), minGatherChunk)
	team.For(plan.NChunks, func(c int) {
		lo, hi := plan.Bounds(c)
		j := s.Start + int64(lo)*s.Step
		for i := lo; i < hi; i++ {
			out[i] = D(a[j])
			j += s.Step
		}
	})
}

// gatherArray writes a[b[i]] into out[i].
func gatherArray[D, A, B int32 | int64](out []D, a []A, b []B, team *parallel.Team) {
	plan := team.Chunks(len(out), minGatherChunk)
	team.For(plan.NChunks, func(c int) {
		lo, hi := plan.Bounds(c)
		for i := lo; i < hi; i++ {
			out[i] = D(a[b[i]])
		}
	})
}

// mapSlice writes s.Start + s.Step*b[i] into out[i].
func mapSlice[D, B int32 | int64](out []D, s SliceRepr, b []B, team *parallel.Team) {
	plan := team.Chunks(len(out), minGatherChunk)
	team.For(plan.NChunks, func(c int) {
		lo, hi := plan.Bounds(c)
		for i := lo; i < hi; i++ {
			out[i] = D(s.Start + s.Step*int64(b[i]))
		}
	})
}
