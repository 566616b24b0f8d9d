package column

import (
	"strconv"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// minCastChunk is the smallest chunk of rows of a parallel cast.
const minCastChunk = 1 << 15

// Cast converts c to target, value by value, mapping NA to NA. Casting to
// c's own type returns an alias. Supported conversions:
//
//   - void to any non-fixed-string type (all NA)
//   - between bool, integer and float types
//   - bool, integer and float types to Str32/Str64 (decimal text)
//   - between Str32 and Str64
//
// Everything else is an unsupported-operation error naming both types.
func (c *Column) Cast(target stype.SType) (*Column, error) {
	if !target.Valid() {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "unknown stype %d", uint8(target))
	}
	if target == c.stype {
		return c.IncRef(), nil
	}
	switch {
	case c.stype == stype.Void && target != stype.FixedStr:
		return NewNA(target, c.nrows)
	case c.stype.IsNumeric() && target.IsNumeric():
		return castNumeric(c, target)
	case c.stype.IsNumeric() && target.IsVarWidth():
		return castToString(c, target)
	case c.stype == stype.Str32 && target == stype.Str64:
		return reencode[int32, int64](c)
	case c.stype == stype.Str64 && target == stype.Str32:
		src := layoutOf[int64](c.buf, c.meta, c.nrows)
		if !fitsStr32(src.DataSize(), c.nrows) {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"%d bytes of string data do not fit 32-bit offsets", src.DataSize())
		}
		return reencode[int64, int32](c)
	}
	return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported, "cannot cast %s into %s", c.stype, target).
		WithDetail("from", c.stype.String()).WithDetail("to", target.String())
}

// NewNAFixedStr returns an nrows-row fixed string column of the given
// width with every row NA.
func NewNAFixedStr(nrows int64, width int) (*Column, error) {
	c, err := CreateFixedStr(nrows, width)
	if err != nil {
		return nil, err
	}
	fillNA(c.buf, stype.FixedStr, width)
	return c, nil
}

// NewNA returns an nrows-row column of st with every row NA.
func NewNA(st stype.SType, nrows int64) (*Column, error) {
	if st.IsVarWidth() || st == stype.Void {
		return Create(st, nrows)
	}
	c, err := Create(st, nrows)
	if err != nil {
		return nil, err
	}
	fillNA(c.buf, st, c.elemWidth())
	return c, nil
}

func castNumeric(c *Column, target stype.SType) (*Column, error) {
	switch c.stype {
	case stype.Bool8, stype.Int8:
		return castFrom[int8](c, target)
	case stype.Int16:
		return castFrom[int16](c, target)
	case stype.Int32:
		return castFrom[int32](c, target)
	case stype.Int64:
		return castFrom[int64](c, target)
	case stype.Float32:
		return castFrom[float32](c, target)
	case stype.Float64:
		return castFrom[float64](c, target)
	}
	panic("column: non-numeric stype " + c.stype.String())
}

func castFrom[S Scalar](c *Column, target stype.SType) (*Column, error) {
	out, err := Create(target, c.nrows)
	if err != nil {
		return nil, err
	}
	src := view[S](c.buf)[:c.nrows]
	switch target {
	case stype.Bool8:
		convert(src, view[int8](out.buf), toBool[S])
	case stype.Int8:
		convert(src, view[int8](out.buf), toInt[S, int8])
	case stype.Int16:
		convert(src, view[int16](out.buf), toInt[S, int16])
	case stype.Int32:
		convert(src, view[int32](out.buf), toInt[S, int32])
	case stype.Int64:
		convert(src, view[int64](out.buf), toInt[S, int64])
	case stype.Float32:
		convert(src, view[float32](out.buf), toFloat[S, float32])
	case stype.Float64:
		convert(src, view[float64](out.buf), toFloat[S, float64])
	default:
		panic("column: non-numeric stype " + target.String())
	}
	return out, nil
}

// convert applies fn elementwise, writing NA for NA inputs.
func convert[S, D Scalar](src []S, dst []D, fn func(S) D) {
	srcNA := isNAFunc[S]()
	na := naValue[D]()
	plan := team.Chunks(len(src), minCastChunk)
	team.For(plan.NChunks, func(k int) {
		lo, hi := plan.Bounds(k)
		for i, v := range src[lo:hi] {
			if srcNA(v) {
				dst[lo+i] = na
			} else {
				dst[lo+i] = fn(v)
			}
		}
	})
}

func toBool[S Scalar](v S) int8 {
	if v != 0 {
		return 1
	}
	return 0
}

// toInt truncates floats toward zero and wraps out-of-range integers.
func toInt[S, D Scalar](v S) D { return D(v) }

func toFloat[S, D Scalar](v S) D { return D(v) }

func castToString(c *Column, target stype.SType) (*Column, error) {
	switch c.stype {
	case stype.Bool8:
		return formatColumn(view[int8](c.buf)[:c.nrows], target, func(dst []byte, v int8) []byte {
			return strconv.AppendBool(dst, v != 0)
		})
	case stype.Int8:
		return formatColumn(view[int8](c.buf)[:c.nrows], target, appendInt[int8])
	case stype.Int16:
		return formatColumn(view[int16](c.buf)[:c.nrows], target, appendInt[int16])
	case stype.Int32:
		return formatColumn(view[int32](c.buf)[:c.nrows], target, appendInt[int32])
	case stype.Int64:
		return formatColumn(view[int64](c.buf)[:c.nrows], target, appendInt[int64])
	case stype.Float32:
		return formatColumn(view[float32](c.buf)[:c.nrows], target, func(dst []byte, v float32) []byte {
			return strconv.AppendFloat(dst, float64(v), 'g', -1, 32)
		})
	case stype.Float64:
		return formatColumn(view[float64](c.buf)[:c.nrows], target, func(dst []byte, v float64) []byte {
			return strconv.AppendFloat(dst, v, 'g', -1, 64)
		})
	}
	panic("column: non-numeric stype " + c.stype.String())
}

func appendInt[T int8 | int16 | int32 | int64](dst []byte, v T) []byte {
	return strconv.AppendInt(dst, int64(v), 10)
}

func formatColumn[T Scalar](vals []T, target stype.SType, format func([]byte, T) []byte) (*Column, error) {
	na := isNAFunc[T]()
	b := newStringBuilder(len(vals))
	var scratch []byte
	for _, v := range vals {
		if na(v) {
			b.appendNA()
			continue
		}
		scratch = format(scratch[:0], v)
		b.append(scratch)
	}
	return b.finish(target)
}

// reencode copies a string column into the other offset width. The data
// region is unchanged; only padding and offsets are rebuilt.
func reencode[S, D Offset](c *Column) (*Column, error) {
	src := layoutOf[S](c.buf, c.meta, c.nrows)
	datasize := src.DataSize()
	out, err := allocVarwidth(offsetStype[D](), datasize, c.nrows)
	if err != nil {
		return nil, err
	}
	copy(out.buf, src.DataRegion())
	dst := layoutOf[D](out.buf, out.meta, c.nrows)
	for i, v := range src.offsets {
		dst.offsets[i] = D(v)
	}
	return out, nil
}
