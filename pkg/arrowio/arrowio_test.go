package arrowio

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/datatable"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

func sp(s string) *string { return &s }

func roundTrip(t *testing.T, c *column.Column) *column.Column {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr, err := ExportColumn(c, mem)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, int(c.NRows()), arr.Len())

	back, err := ImportArray(arr)
	require.NoError(t, err)
	assert.Equal(t, c.SType(), back.SType())
	return back
}

func TestExportNumeric(t *testing.T) {
	c, err := column.FromValues([]int32{1, stype.NAInt32, -3})
	require.NoError(t, err)
	defer c.DecRef()

	arr, err := ExportColumn(c, nil)
	require.NoError(t, err)
	defer arr.Release()

	ints := arr.(*array.Int32)
	assert.Equal(t, 1, ints.NullN())
	assert.True(t, ints.IsNull(1))
	assert.Equal(t, int32(-3), ints.Value(2))
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int32, arr.DataType()))
}

func TestExportFloatsTreatAnyNaNAsNull(t *testing.T) {
	c, err := column.FromValues([]float64{1.5, math.NaN(), column.NA[float64]()})
	require.NoError(t, err)
	defer c.DecRef()

	arr, err := ExportColumn(c, nil)
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, 2, arr.NullN())
}

func TestRoundTripAllTypes(t *testing.T) {
	build := []func() (*column.Column, error){
		func() (*column.Column, error) { return column.NewVoid(3) },
		func() (*column.Column, error) { return column.FromBool8([]int8{1, 0, stype.NABool8}) },
		func() (*column.Column, error) { return column.FromValues([]int8{1, stype.NAInt8, -1}) },
		func() (*column.Column, error) { return column.FromValues([]int16{300, stype.NAInt16, 0}) },
		func() (*column.Column, error) { return column.FromValues([]int32{1 << 20, stype.NAInt32, 7}) },
		func() (*column.Column, error) { return column.FromValues([]int64{math.MaxInt64, stype.NAInt64, 0}) },
		func() (*column.Column, error) { return column.FromValues([]float32{0.25, column.NA[float32](), -1}) },
		func() (*column.Column, error) { return column.FromValues([]float64{2.5, 0, column.NA[float64]()}) },
		func() (*column.Column, error) { return column.FromStrings(stype.Str32, []*string{sp("a"), nil, sp("")}) },
		func() (*column.Column, error) { return column.FromStrings(stype.Str64, []*string{nil, sp("bcd"), sp("e")}) },
		func() (*column.Column, error) { return column.FromFixedStrings(4, [][]byte{[]byte("ab"), nil, []byte("wxyz")}) },
	}
	for _, b := range build {
		c, err := b()
		require.NoError(t, err)
		t.Run(c.SType().String(), func(t *testing.T) {
			back := roundTrip(t, c)
			defer back.DecRef()
			assert.Equal(t, c.Bytes(), back.Bytes())
			assert.Equal(t, c.Meta(), back.Meta())
			for i := int64(0); i < c.NRows(); i++ {
				assert.Equal(t, c.IsNA(i), back.IsNA(i), "row %d", i)
			}
		})
		require.NoError(t, c.DecRef())
	}
}

func TestExportRejectsEnums(t *testing.T) {
	c, err := column.Create(stype.Enum16, 2)
	require.NoError(t, err)
	defer c.DecRef()
	_, err = ExportColumn(c, nil)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))
}

func TestImportRejectsUnknownTypes(t *testing.T) {
	b := array.NewUint32Builder(memory.NewGoAllocator())
	defer b.Release()
	b.Append(1)
	arr := b.NewArray()
	defer arr.Release()

	_, err := ImportArray(arr)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))
}

func TestTableRoundTrip(t *testing.T) {
	ints, err := column.FromValues([]int64{10, 20, 30})
	require.NoError(t, err)
	strs, err := column.FromStrings(stype.Str32, []*string{sp("x"), sp("y"), nil})
	require.NoError(t, err)
	ri, err := rowindex.FromSlice(2, 2, -1)
	require.NoError(t, err)
	dt, err := datatable.New([]*column.Column{ints, strs}, ri)
	require.NoError(t, err)
	defer dt.Close()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := ExportTable(dt, []string{"id", "name"}, mem)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, "name", rec.ColumnName(1))
	assert.True(t, rec.Column(1).IsNull(0))

	back, names, err := ImportRecord(rec)
	require.NoError(t, err)
	defer back.Close()
	assert.Equal(t, []string{"id", "name"}, names)
	assert.False(t, back.IsView())

	c, err := back.Column(0)
	require.NoError(t, err)
	defer c.DecRef()
	vals, err := column.Values[int64](c)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 20}, vals)

	_, err = ExportTable(dt, []string{"only"}, mem)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeValidation))
}

func TestDefaultNames(t *testing.T) {
	c, err := column.NewVoid(1)
	require.NoError(t, err)
	dt, err := datatable.New([]*column.Column{c}, nil)
	require.NoError(t, err)
	defer dt.Close()

	rec, err := ExportTable(dt, nil, nil)
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, "C0", rec.ColumnName(0))
}
