package column

import (
	"fmt"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// minExtractChunk is the smallest chunk of rows of a parallel gather.
const minExtractChunk = 1 << 14

// Extract projects the column through ri. A nil ri returns an alias of c.
// Otherwise the result is a new heap column of ri.Length() rows whose row
// i is row ri.At(i) of c.
func (c *Column) Extract(ri *rowindex.RowIndex) (*Column, error) {
	if ri == nil {
		return c.IncRef(), nil
	}
	if c.stype.IsEnum() {
		return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported,
			"extracting %s columns through a row index is not implemented", c.stype)
	}
	n := ri.Length()
	if n > 0 && ri.Max() >= c.nrows {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"row index max %d is out of range for %d rows", ri.Max(), c.nrows).
			WithDetail("max", ri.Max()).WithDetail("nrows", c.nrows)
	}

	switch c.stype {
	case stype.Void:
		return NewVoid(n)
	case stype.Str32:
		return extractVarwidth[int32](c, ri)
	case stype.Str64:
		return extractVarwidth[int64](c, ri)
	}
	return extractFixed(c, ri)
}

func extractFixed(c *Column, ri *rowindex.RowIndex) (*Column, error) {
	n := ri.Length()
	elem := c.elemWidth()
	size, err := fixedSize(elem, n)
	if err != nil {
		return nil, err
	}
	buf, hs, err := allocBuffer(size)
	if err != nil {
		return nil, err
	}
	out := newColumn(c.stype, n, buf, c.meta, hs)
	// An empty slice may start anywhere, even past the last row.
	if n == 0 {
		return out, nil
	}

	if start, step, ok := ri.SliceBounds(); ok && step == 1 {
		e := int64(elem)
		copy(buf, c.buf[start*e:(start+n)*e])
		return out, nil
	}
	switch elem {
	case 1:
		gather(view[uint8](buf), view[uint8](c.buf), ri)
	case 2:
		gather(view[uint16](buf), view[uint16](c.buf), ri)
	case 4:
		gather(view[uint32](buf), view[uint32](c.buf), ri)
	case 8:
		gather(view[uint64](buf), view[uint64](c.buf), ri)
	default:
		gatherWide(buf, c.buf, elem, ri)
	}
	return out, nil
}

// eachRow calls fn(i, j) for every output row i and its source row j over
// the chunk [lo, hi) of ri.
func eachRow(ri *rowindex.RowIndex, lo, hi int, fn func(i int, j int64)) {
	switch r := ri.Repr().(type) {
	case rowindex.SliceRepr:
		j := r.Start + int64(lo)*r.Step
		for i := lo; i < hi; i++ {
			fn(i, j)
			j += r.Step
		}
	case rowindex.Array32Repr:
		for i := lo; i < hi; i++ {
			fn(i, int64(r[i]))
		}
	case rowindex.Array64Repr:
		for i := lo; i < hi; i++ {
			fn(i, r[i])
		}
	default:
		panic(fmt.Sprintf("column: invalid row index representation %T", r))
	}
}

// gather writes src[ri.At(i)] into dst[i]. The representation switch sits
// outside the inner loops.
func gather[T any](dst, src []T, ri *rowindex.RowIndex) {
	plan := team.Chunks(len(dst), minExtractChunk)
	team.For(plan.NChunks, func(c int) {
		lo, hi := plan.Bounds(c)
		switch r := ri.Repr().(type) {
		case rowindex.SliceRepr:
			j := r.Start + int64(lo)*r.Step
			for i := lo; i < hi; i++ {
				dst[i] = src[j]
				j += r.Step
			}
		case rowindex.Array32Repr:
			for i, j := range r[lo:hi] {
				dst[lo+i] = src[j]
			}
		case rowindex.Array64Repr:
			for i, j := range r[lo:hi] {
				dst[lo+i] = src[j]
			}
		default:
			panic(fmt.Sprintf("column: invalid row index representation %T", r))
		}
	})
}

// gatherWide is gather for elements of arbitrary byte width.
func gatherWide(dst, src []byte, elem int, ri *rowindex.RowIndex) {
	plan := team.Chunks(int(ri.Length()), minExtractChunk)
	e := int64(elem)
	team.For(plan.NChunks, func(c int) {
		lo, hi := plan.Bounds(c)
		eachRow(ri, lo, hi, func(i int, j int64) {
			copy(dst[int64(i)*e:int64(i+1)*e], src[j*e:(j+1)*e])
		})
	})
}

// extractVarwidth remaps selected strings into a new column in two passes:
// the first sizes each chunk's share of the new data region, the second
// copies string bytes and writes offsets re-anchored at the chunk's base.
// The result keeps c's offset width unless the data no longer fits 32-bit
// offsets, in which case it is widened to Str64.
func extractVarwidth[O Offset](c *Column, ri *rowindex.RowIndex) (*Column, error) {
	src := layoutOf[O](c.buf, c.meta, c.nrows)
	n := ri.Length()
	plan := team.Chunks(int(n), minExtractChunk)

	sizes := make([]int64, plan.NChunks)
	team.For(plan.NChunks, func(k int) {
		lo, hi := plan.Bounds(k)
		var total int64
		eachRow(ri, lo, hi, func(_ int, j int64) {
			total += src.StringLen(j)
		})
		sizes[k] = total
	})
	bases := make([]int64, plan.NChunks)
	var datasize int64
	for k, s := range sizes {
		bases[k] = datasize
		datasize += s
	}

	if offsetStype[O]() == stype.Str32 && !fitsStr32(datasize, n) {
		return remapVarwidth[O, int64](src, ri, plan, bases, datasize)
	}
	return remapVarwidth[O, O](src, ri, plan, bases, datasize)
}

func remapVarwidth[S, D Offset](src Layout[S], ri *rowindex.RowIndex, plan parallel.Plan, bases []int64, datasize int64) (*Column, error) {
	n := ri.Length()
	out, err := allocVarwidth(offsetStype[D](), datasize, n)
	if err != nil {
		return nil, err
	}
	dst := layoutOf[D](out.buf, out.meta, n)
	team.For(plan.NChunks, func(k int) {
		lo, hi := plan.Bounds(k)
		pos := bases[k]
		eachRow(ri, lo, hi, func(i int, j int64) {
			if b, ok := src.Bytes(j); ok {
				pos += int64(copy(dst.buf[pos:], b))
				dst.offsets[i] = D(pos + 1)
			} else {
				dst.offsets[i] = -D(pos + 1)
			}
		})
	})
	return out, nil
}
