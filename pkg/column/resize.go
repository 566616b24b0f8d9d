package column

import (
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// ResizeAndFill grows c to nrows rows. A 1-row column is broadcast into
// every new row; otherwise the new rows are NA. The receiver's reference is
// consumed: the returned column is c itself when c was exclusively owned
// heap storage, or a replacement otherwise. On error c is unchanged and
// still owned by the caller.
func (c *Column) ResizeAndFill(nrows int64) (*Column, error) {
	switch {
	case nrows < c.nrows:
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"cannot shrink a %d-row column to %d rows", c.nrows, nrows)
	case nrows == c.nrows:
		return c, nil
	}

	switch c.stype {
	case stype.Void:
		out, err := c.mutable()
		if err != nil {
			return nil, err
		}
		out.nrows = nrows
		return out, nil
	case stype.Str32:
		return resizeVarwidth[int32](c, nrows)
	case stype.Str64:
		return resizeVarwidth[int64](c, nrows)
	}

	elem := int64(c.elemWidth())
	size, err := fixedSize(int(elem), nrows)
	if err != nil {
		return nil, err
	}
	out, err := c.reserve(size)
	if err != nil {
		return nil, err
	}
	old := out.nrows * elem
	out.nrows = nrows
	if old == elem {
		fillPattern(out.buf[old:], out.buf[:elem])
	} else {
		fillNA(out.buf[old:], out.stype, int(elem))
	}
	return out, nil
}

func resizeVarwidth[O Offset](c *Column, nrows int64) (*Column, error) {
	src := layoutOf[O](c.buf, c.meta, c.nrows)
	if c.nrows == 1 && src.IsValid(0) {
		return broadcastVarwidth(c, src, nrows)
	}

	// NA rows leave the data region as is, so the offsets region only
	// gets longer.
	elem := int64(c.stype.ElemSize())
	if nrows > (maxAlloc-c.meta)/elem {
		return nil, dterrors.Newf(dterrors.ErrorTypeResource, "cannot allocate %d %s rows", nrows, c.stype)
	}
	datasize := src.DataSize()
	out, err := c.reserve(c.meta + nrows*elem)
	if err != nil {
		return nil, err
	}
	old := out.nrows
	out.nrows = nrows
	dst := layoutOf[O](out.buf, out.meta, nrows)
	fillOffsets(dst.offsets[old:], -O(datasize+1))
	return out, nil
}

// broadcastVarwidth builds a replacement column repeating the single valid
// row of c, then drops c's reference.
func broadcastVarwidth[O Offset](c *Column, src Layout[O], nrows int64) (*Column, error) {
	value, _ := src.Bytes(0)
	width := int64(len(value))
	if width > 0 && nrows > maxAlloc/width {
		return nil, dterrors.Newf(dterrors.ErrorTypeResource,
			"cannot broadcast a %d-byte string to %d rows", width, nrows)
	}
	datasize := width * nrows
	st := c.stype
	if st == stype.Str32 && !fitsStr32(datasize, nrows) {
		st = stype.Str64
	}
	out, err := allocVarwidth(st, datasize, nrows)
	if err != nil {
		return nil, err
	}
	fillPattern(out.buf[:datasize], value)
	switch st {
	case stype.Str32:
		writeEvenOffsets(layoutOf[int32](out.buf, out.meta, nrows).offsets, width)
	case stype.Str64:
		writeEvenOffsets(layoutOf[int64](out.buf, out.meta, nrows).offsets, width)
	}
	_ = c.DecRef()
	return out, nil
}

func writeEvenOffsets[O Offset](offs []O, width int64) {
	end := int64(1)
	for i := range offs {
		end += width
		offs[i] = O(end)
	}
}
