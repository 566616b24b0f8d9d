package column

import (
	"math"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// Scalar lists the Go types of the fixed-width numeric STypes. Bool8 is
// stored as int8.
type Scalar interface {
	int8 | int16 | int32 | int64 | float32 | float64
}

// scalarStype returns the natural SType of T (Int8 for int8).
func scalarStype[T Scalar]() stype.SType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return stype.Int8
	case int16:
		return stype.Int16
	case int32:
		return stype.Int32
	case int64:
		return stype.Int64
	case float32:
		return stype.Float32
	default:
		return stype.Float64
	}
}

// naValue returns the NA sentinel of T.
func naValue[T Scalar]() T {
	var zero T
	var na any
	switch any(zero).(type) {
	case int8:
		na = stype.NAInt8
	case int16:
		na = stype.NAInt16
	case int32:
		na = stype.NAInt32
	case int64:
		na = stype.NAInt64
	case float32:
		na = math.Float32frombits(stype.NAFloat32Bits)
	default:
		na = math.Float64frombits(stype.NAFloat64Bits)
	}
	return na.(T)
}

// isNA reports whether v is NA: the sentinel for integers, any NaN for
// floats.
func isNA[T Scalar](v T) bool {
	return v != v || v == naValue[T]()
}

// isNAFunc returns isNA specialized outside of hot loops.
func isNAFunc[T Scalar]() func(T) bool {
	na := naValue[T]()
	if na != na {
		return func(v T) bool { return v != v }
	}
	return func(v T) bool { return v == na }
}

// NA returns the NA sentinel written for T.
func NA[T Scalar]() T { return naValue[T]() }

// IsNAValue reports whether v reads back as NA.
func IsNAValue[T Scalar](v T) bool { return isNA(v) }

// FromValues builds a column from vals. The SType follows from T; use
// FromBool8 for boolean data.
func FromValues[T Scalar](vals []T) (*Column, error) {
	return fromValues(scalarStype[T](), vals)
}

// FromBool8 builds a Bool8 column. Values are 0, 1 or stype.NABool8.
func FromBool8(vals []int8) (*Column, error) {
	return fromValues(stype.Bool8, vals)
}

func fromValues[T Scalar](st stype.SType, vals []T) (*Column, error) {
	c, err := Create(st, int64(len(vals)))
	if err != nil {
		return nil, err
	}
	copy(view[T](c.buf), vals)
	return c, nil
}

// FromStrings builds a Str32 or Str64 column. A nil entry is NA. A Str32
// request is widened to Str64 when the data needs 64-bit offsets.
func FromStrings(st stype.SType, vals []*string) (*Column, error) {
	if !st.Valid() || !st.IsVarWidth() {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "%s is not a string stype", st)
	}
	b := newStringBuilder(len(vals))
	for _, v := range vals {
		if v == nil {
			b.appendNA()
		} else {
			b.appendString(*v)
		}
	}
	return b.finish(st)
}

// FromFixedStrings builds a FixedStr column of the given width. A nil
// entry is NA; shorter values are zero padded.
func FromFixedStrings(width int, vals [][]byte) (*Column, error) {
	c, err := CreateFixedStr(int64(len(vals)), width)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		row := c.buf[i*width : (i+1)*width]
		switch {
		case v == nil:
			row[0] = 0xFF
		case len(v) > width || (len(v) > 0 && v[0] == 0xFF):
			_ = c.DecRef()
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"value %d does not fit a %d-byte fixed string", i, width)
		default:
			copy(row, v)
		}
	}
	return c, nil
}

// checkFamily verifies that column values can be viewed as T.
func checkFamily[T Scalar](c *Column) error {
	want := scalarStype[T]()
	if c.stype == want || (want == stype.Int8 && c.stype == stype.Bool8) {
		return nil
	}
	return dterrors.Newf(dterrors.ErrorTypeValidation, "cannot read %s column as %s", c.stype, want)
}

// Values returns the column's elements as a slice aliasing the buffer.
// It must not be modified.
func Values[T Scalar](c *Column) ([]T, error) {
	if err := checkFamily[T](c); err != nil {
		return nil, err
	}
	return view[T](c.buf)[:c.nrows], nil
}

// Bool8 returns the values of a Bool8 column.
func (c *Column) Bool8() ([]int8, error) {
	if c.stype != stype.Bool8 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "cannot read %s column as bool", c.stype)
	}
	return view[int8](c.buf)[:c.nrows], nil
}

// StringAt returns row i of a string column and whether it is valid.
func (c *Column) StringAt(i int64) (string, bool) {
	switch c.stype {
	case stype.Str32:
		return layoutOf[int32](c.buf, c.meta, c.nrows).StringAt(i)
	case stype.Str64:
		return layoutOf[int64](c.buf, c.meta, c.nrows).StringAt(i)
	case stype.FixedStr:
		w := c.meta
		row := c.buf[i*w : (i+1)*w]
		if row[0] == 0xFF {
			return "", false
		}
		n := w
		for n > 0 && row[n-1] == 0 {
			n--
		}
		return string(row[:n]), true
	}
	return "", false
}

// Strings returns every row of a string column; NA rows are nil.
func (c *Column) Strings() ([]*string, error) {
	switch c.stype {
	case stype.Str32, stype.Str64, stype.FixedStr:
	case stype.Void:
		return make([]*string, c.nrows), nil
	default:
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "cannot read %s column as strings", c.stype)
	}
	out := make([]*string, c.nrows)
	for i := range out {
		if s, ok := c.StringAt(int64(i)); ok {
			out[i] = &s
		}
	}
	return out, nil
}

// IsNA reports whether row i is NA.
func (c *Column) IsNA(i int64) bool {
	switch c.stype {
	case stype.Void:
		return true
	case stype.Bool8, stype.Int8:
		return isNA(view[int8](c.buf)[i])
	case stype.Int16:
		return isNA(view[int16](c.buf)[i])
	case stype.Int32:
		return isNA(view[int32](c.buf)[i])
	case stype.Int64:
		return isNA(view[int64](c.buf)[i])
	case stype.Float32:
		return isNA(view[float32](c.buf)[i])
	case stype.Float64:
		return isNA(view[float64](c.buf)[i])
	case stype.Str32:
		return !layoutOf[int32](c.buf, c.meta, c.nrows).IsValid(i)
	case stype.Str64:
		return !layoutOf[int64](c.buf, c.meta, c.nrows).IsValid(i)
	case stype.FixedStr:
		return c.buf[i*c.meta] == 0xFF
	case stype.Enum8:
		return c.buf[i] == 0xFF
	case stype.Enum16:
		return view[uint16](c.buf)[i] == math.MaxUint16
	case stype.Enum32:
		return view[uint32](c.buf)[i] == math.MaxUint32
	}
	panic("column: unknown stype " + c.stype.String())
}

// fillNA writes the NA pattern of a fixed-width column over buf.
func fillNA(buf []byte, st stype.SType, width int) {
	if st == stype.FixedStr {
		for i := 0; i < len(buf); i += width {
			buf[i] = 0xFF
			clear(buf[i+1 : i+width])
		}
		return
	}
	fillPattern(buf, stype.Get(st).NA)
}

// fillPattern tiles pattern across buf by doubling.
func fillPattern(buf, pattern []byte) {
	if len(buf) == 0 {
		return
	}
	n := copy(buf, pattern)
	for n < len(buf) {
		n += copy(buf[n:], buf[:n])
	}
}
