// Package arrowio converts columns and tables to and from Apache Arrow
// arrays and records. NA values map to Arrow nulls in both directions.
//
//	Void      <-> null
//	Bool8     <-> boolean
//	Int8..64  <-> int8..int64
//	Float32/64 <-> float32/float64
//	Str32     <-> utf8
//	Str64     <-> large_utf8
//	FixedStr  <-> fixed_size_binary
//
// Enum columns and every other Arrow type are unsupported.
package arrowio

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/datatable"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// valuesBuilder is the part of the typed Arrow builders used for export.
type valuesBuilder[T any] interface {
	array.Builder
	AppendValues(v []T, valid []bool)
}

// valueArray is the part of the typed Arrow arrays used for import.
type valueArray[T any] interface {
	arrow.Array
	Value(i int) T
}

// DataType returns the Arrow type a column of st exports to.
func DataType(st stype.SType, width int) (arrow.DataType, error) {
	switch st {
	case stype.Void:
		return arrow.Null, nil
	case stype.Bool8:
		return arrow.FixedWidthTypes.Boolean, nil
	case stype.Int8:
		return arrow.PrimitiveTypes.Int8, nil
	case stype.Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case stype.Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case stype.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case stype.Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case stype.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case stype.Str32:
		return arrow.BinaryTypes.String, nil
	case stype.Str64:
		return arrow.BinaryTypes.LargeString, nil
	case stype.FixedStr:
		return &arrow.FixedSizeBinaryType{ByteWidth: width}, nil
	}
	return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported, "%s columns have no arrow equivalent", st)
}

// ExportColumn copies c into a new Arrow array allocated from mem (nil
// means the Go allocator). The caller releases the array.
func ExportColumn(c *column.Column, mem memory.Allocator) (arrow.Array, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	switch st := c.SType(); st {
	case stype.Void:
		return array.NewNull(int(c.NRows())), nil
	case stype.Bool8:
		vals, err := c.Bool8()
		if err != nil {
			return nil, err
		}
		out, valid := make([]bool, len(vals)), make([]bool, len(vals))
		for i, v := range vals {
			out[i], valid[i] = v == 1, v != stype.NABool8
		}
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(out, valid)
		return b.NewArray(), nil
	case stype.Int8:
		return exportValues[int8](array.NewInt8Builder(mem), c)
	case stype.Int16:
		return exportValues[int16](array.NewInt16Builder(mem), c)
	case stype.Int32:
		return exportValues[int32](array.NewInt32Builder(mem), c)
	case stype.Int64:
		return exportValues[int64](array.NewInt64Builder(mem), c)
	case stype.Float32:
		return exportValues[float32](array.NewFloat32Builder(mem), c)
	case stype.Float64:
		return exportValues[float64](array.NewFloat64Builder(mem), c)
	case stype.Str32:
		return exportStrings(array.NewStringBuilder(mem), c)
	case stype.Str64:
		return exportStrings(array.NewLargeStringBuilder(mem), c)
	case stype.FixedStr:
		width := int(c.Meta())
		b := array.NewFixedSizeBinaryBuilder(mem, &arrow.FixedSizeBinaryType{ByteWidth: width})
		defer b.Release()
		buf := c.Bytes()
		b.Reserve(int(c.NRows()))
		for i := int64(0); i < c.NRows(); i++ {
			if c.IsNA(i) {
				b.AppendNull()
				continue
			}
			b.Append(buf[i*int64(width) : (i+1)*int64(width)])
		}
		return b.NewArray(), nil
	default:
		_, err := DataType(st, 0)
		return nil, err
	}
}

func exportValues[T column.Scalar](b valuesBuilder[T], c *column.Column) (arrow.Array, error) {
	defer b.Release()
	vals, err := column.Values[T](c)
	if err != nil {
		return nil, err
	}
	valid := make([]bool, len(vals))
	for i, v := range vals {
		valid[i] = !column.IsNAValue(v)
	}
	b.AppendValues(vals, valid)
	return b.NewArray(), nil
}

type stringAppender interface {
	array.Builder
	Append(v string)
}

func exportStrings(b stringAppender, c *column.Column) (arrow.Array, error) {
	defer b.Release()
	n := c.NRows()
	b.Reserve(int(n))
	for i := int64(0); i < n; i++ {
		s, ok := c.StringAt(i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(s)
	}
	return b.NewArray(), nil
}

// ImportArray copies an Arrow array into a new column.
func ImportArray(arr arrow.Array) (*column.Column, error) {
	switch a := arr.(type) {
	case *array.Null:
		return column.NewVoid(int64(a.Len()))
	case *array.Boolean:
		vals := make([]int8, a.Len())
		for i := range vals {
			switch {
			case a.IsNull(i):
				vals[i] = stype.NABool8
			case a.Value(i):
				vals[i] = 1
			}
		}
		return column.FromBool8(vals)
	case *array.Int8:
		return importValues[int8](a)
	case *array.Int16:
		return importValues[int16](a)
	case *array.Int32:
		return importValues[int32](a)
	case *array.Int64:
		return importValues[int64](a)
	case *array.Float32:
		return importValues[float32](a)
	case *array.Float64:
		return importValues[float64](a)
	case *array.String:
		return importStrings(a, stype.Str32)
	case *array.LargeString:
		return importStrings(a, stype.Str64)
	case *array.FixedSizeBinary:
		width := a.DataType().(*arrow.FixedSizeBinaryType).ByteWidth
		vals := make([][]byte, a.Len())
		for i := range vals {
			if !a.IsNull(i) {
				vals[i] = a.Value(i)
			}
		}
		return column.FromFixedStrings(width, vals)
	}
	return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported,
		"cannot import arrow %s arrays", arr.DataType())
}

func importValues[T column.Scalar](a valueArray[T]) (*column.Column, error) {
	vals := make([]T, a.Len())
	na := column.NA[T]()
	for i := range vals {
		if a.IsNull(i) {
			vals[i] = na
		} else {
			vals[i] = a.Value(i)
		}
	}
	return column.FromValues(vals)
}

func importStrings(a valueArray[string], st stype.SType) (*column.Column, error) {
	vals := make([]*string, a.Len())
	for i := range vals {
		if !a.IsNull(i) {
			s := a.Value(i)
			vals[i] = &s
		}
	}
	return column.FromStrings(st, vals)
}

// ExportTable converts dt, read through its row index, into a record with
// one field per column. names may be nil, in which case fields are named
// C0, C1 and so on. The caller releases the record.
func ExportTable(dt *datatable.DataTable, names []string, mem memory.Allocator) (arrow.Record, error) {
	if names != nil && len(names) != dt.NCols() {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"%d names for %d columns", len(names), dt.NCols())
	}
	fields := make([]arrow.Field, dt.NCols())
	arrays := make([]arrow.Array, 0, dt.NCols())
	defer func() {
		for _, a := range arrays {
			a.Release()
		}
	}()
	for i := range fields {
		c, err := dt.Column(i)
		if err != nil {
			return nil, err
		}
		a, err := ExportColumn(c, mem)
		_ = c.DecRef()
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, a)
		name := columnName(i)
		if names != nil {
			name = names[i]
		}
		fields[i] = arrow.Field{Name: name, Type: a.DataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, arrays, dt.NRows()), nil
}

// ImportRecord converts rec into a new table and returns its field names.
func ImportRecord(rec arrow.Record) (*datatable.DataTable, []string, error) {
	cols := make([]*column.Column, 0, rec.NumCols())
	names := make([]string, 0, rec.NumCols())
	for i, a := range rec.Columns() {
		c, err := ImportArray(a)
		if err != nil {
			for _, done := range cols {
				_ = done.DecRef()
			}
			return nil, nil, err
		}
		cols = append(cols, c)
		names = append(names, rec.ColumnName(i))
	}
	dt, err := datatable.New(cols, nil)
	if err != nil {
		for _, c := range cols {
			_ = c.DecRef()
		}
		return nil, nil, err
	}
	return dt, names, nil
}

func columnName(i int) string { return fmt.Sprintf("C%d", i) }
