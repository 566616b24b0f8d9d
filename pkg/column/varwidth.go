package column

import (
	"math"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// Offset is the width of one entry of a string column's offsets region.
type Offset interface {
	int32 | int64
}

// Layout is a typed view of a variable-width string column's buffer:
//
//	[data region][padding: 0xFF...][offsets region: nrows x O]
//
// Offsets are 1-based ends into the data region. A positive entry v means
// the row ends at byte v-1; a negative entry -v marks an NA row anchored at
// the same position. The row's start is the absolute value of the previous
// entry minus one; the padding guarantees that the entry just before the
// offsets region reads as -1, so row 0 starts at byte 0.
type Layout[O Offset] struct {
	buf     []byte
	offoff  int64
	offsets []O
}

func layoutOf[O Offset](buf []byte, offoff, nrows int64) Layout[O] {
	var offs []O
	if nrows > 0 {
		offs = view[O](buf[offoff:])[:nrows]
	}
	return Layout[O]{buf: buf, offoff: offoff, offsets: offs}
}

func abs[O Offset](v O) O {
	if v < 0 {
		return -v
	}
	return v
}

// DataSize returns the number of bytes used by the data region.
func (l Layout[O]) DataSize() int64 {
	if len(l.offsets) == 0 {
		return 0
	}
	return int64(abs(l.offsets[len(l.offsets)-1])) - 1
}

// DataRegion returns the raw string bytes of all rows.
func (l Layout[O]) DataRegion() []byte { return l.buf[:l.DataSize()] }

// Offsets returns the offsets region.
func (l Layout[O]) Offsets() []O { return l.offsets }

// IsValid reports whether row i is not NA.
func (l Layout[O]) IsValid(i int64) bool { return l.offsets[i] > 0 }

// Start returns the first data byte of row i.
func (l Layout[O]) Start(i int64) int64 {
	if i == 0 {
		return 0
	}
	return int64(abs(l.offsets[i-1])) - 1
}

// StringLen returns the byte length of row i, 0 for NA.
func (l Layout[O]) StringLen(i int64) int64 {
	end := l.offsets[i]
	if end <= 0 {
		return 0
	}
	return int64(end) - 1 - l.Start(i)
}

// Bytes returns the bytes of row i without copying.
func (l Layout[O]) Bytes(i int64) ([]byte, bool) {
	end := l.offsets[i]
	if end <= 0 {
		return nil, false
	}
	return l.buf[l.Start(i) : int64(end)-1], true
}

// StringAt returns row i and whether it is valid.
func (l Layout[O]) StringAt(i int64) (string, bool) {
	b, ok := l.Bytes(i)
	if !ok {
		return "", false
	}
	return string(b), true
}

// offsetStype maps an offset width to its string SType.
func offsetStype[O Offset]() stype.SType {
	var zero O
	if _, wide := any(zero).(int64); wide {
		return stype.Str64
	}
	return stype.Str32
}

// fitsStr32 reports whether a Str32 column of datasize bytes and nrows
// rows can be addressed with 32-bit offsets.
func fitsStr32(datasize, nrows int64) bool {
	return datasize+1 <= math.MaxInt32 && nrows <= math.MaxInt32
}

// varwidthSize returns (total buffer size, offoff) for a string column.
func varwidthSize(st stype.SType, datasize, nrows int64) (int64, int64, error) {
	elem := int64(st.ElemSize())
	offoff := datasize + stype.Padding(st, datasize)
	if nrows < 0 || nrows > (maxAlloc-offoff)/elem {
		return 0, 0, dterrors.Newf(dterrors.ErrorTypeResource,
			"cannot allocate %d %s rows with %d data bytes", nrows, st, datasize)
	}
	return offoff + nrows*elem, offoff, nil
}

// allocVarwidth allocates a string column with room for datasize data
// bytes and fills its padding. Offsets are left zero.
func allocVarwidth(st stype.SType, datasize, nrows int64) (*Column, error) {
	size, offoff, err := varwidthSize(st, datasize, nrows)
	if err != nil {
		return nil, err
	}
	buf, hs, err := allocBuffer(size)
	if err != nil {
		return nil, err
	}
	fillPadding(buf[datasize:offoff])
	return newColumn(st, nrows, buf, offoff, hs), nil
}

func fillPadding(pad []byte) {
	for i := range pad {
		pad[i] = 0xFF
	}
}

// createVarwidth allocates a string column with every row NA.
func createVarwidth(st stype.SType, nrows int64) (*Column, error) {
	if nrows < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "negative row count %d", nrows)
	}
	c, err := allocVarwidth(st, 0, nrows)
	if err != nil {
		return nil, err
	}
	switch st {
	case stype.Str32:
		fillOffsets(layoutOf[int32](c.buf, c.meta, nrows).offsets, -1)
	case stype.Str64:
		fillOffsets(layoutOf[int64](c.buf, c.meta, nrows).offsets, -1)
	}
	return c, nil
}

func fillOffsets[O Offset](offs []O, v O) {
	for i := range offs {
		offs[i] = v
	}
}

// stringBuilder accumulates rows for a new string column.
type stringBuilder struct {
	data []byte
	ends []int64
}

func newStringBuilder(nrows int) *stringBuilder {
	return &stringBuilder{ends: make([]int64, 0, nrows)}
}

func (b *stringBuilder) append(s []byte) {
	b.data = append(b.data, s...)
	b.ends = append(b.ends, int64(len(b.data))+1)
}

func (b *stringBuilder) appendString(s string) {
	b.data = append(b.data, s...)
	b.ends = append(b.ends, int64(len(b.data))+1)
}

func (b *stringBuilder) appendNA() {
	b.ends = append(b.ends, -(int64(len(b.data)) + 1))
}

// finish materializes the rows as a column of type st, widening Str32 to
// Str64 when the data does not fit 32-bit offsets.
func (b *stringBuilder) finish(st stype.SType) (*Column, error) {
	datasize, nrows := int64(len(b.data)), int64(len(b.ends))
	if st == stype.Str32 && !fitsStr32(datasize, nrows) {
		st = stype.Str64
	}
	c, err := allocVarwidth(st, datasize, nrows)
	if err != nil {
		return nil, err
	}
	copy(c.buf, b.data)
	switch st {
	case stype.Str32:
		offs := layoutOf[int32](c.buf, c.meta, nrows).offsets
		for i, e := range b.ends {
			offs[i] = int32(e)
		}
	case stype.Str64:
		copy(layoutOf[int64](c.buf, c.meta, nrows).offsets, b.ends)
	}
	return c, nil
}
