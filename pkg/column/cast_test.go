package column

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

func TestCastSameTypeIsAlias(t *testing.T) {
	c := int32Column(t, 1)
	got, err := c.Cast(stype.Int32)
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Equal(t, int32(2), c.RefCount())
}

func TestCastNumericPreservesNA(t *testing.T) {
	i8, err := FromValues([]int8{-5, stype.NAInt8, 100})
	require.NoError(t, err)
	got, err := i8.Cast(stype.Int32)
	require.NoError(t, err)
	assert.Equal(t, []int32{-5, na32, 100}, readInt32(t, got))

	got, err = i8.Cast(stype.Float64)
	require.NoError(t, err)
	f, _ := Values[float64](got)
	assert.Equal(t, -5.0, f[0])
	assert.True(t, math.IsNaN(f[1]))
	assert.Equal(t, stype.NAFloat64Bits, math.Float64bits(f[1]))

	floats, err := FromValues([]float64{2.9, -2.9, math.NaN(), 0})
	require.NoError(t, err)
	got, err = floats.Cast(stype.Int64)
	require.NoError(t, err)
	ints, _ := Values[int64](got)
	assert.Equal(t, []int64{2, -2, stype.NAInt64, 0}, ints)

	got, err = floats.Cast(stype.Bool8)
	require.NoError(t, err)
	bools, err := got.Bool8()
	require.NoError(t, err)
	assert.Equal(t, []int8{1, 1, stype.NABool8, 0}, bools)

	got, err = floats.Cast(stype.Float32)
	require.NoError(t, err)
	f32, _ := Values[float32](got)
	assert.Equal(t, float32(2.9), f32[0])
	assert.Equal(t, stype.NAFloat32Bits, math.Float32bits(f32[2]))
}

func TestCastToString(t *testing.T) {
	b, err := FromBool8([]int8{1, 0, stype.NABool8})
	require.NoError(t, err)
	got, err := b.Cast(stype.Str32)
	require.NoError(t, err)
	assert.Equal(t, []*string{sp("true"), sp("false"), nil}, readStrings(t, got))

	i := int32Column(t, -12, na32, 0)
	got, err = i.Cast(stype.Str64)
	require.NoError(t, err)
	assert.Equal(t, stype.Str64, got.SType())
	assert.Equal(t, []*string{sp("-12"), nil, sp("0")}, readStrings(t, got))

	f, err := FromValues([]float64{0.1, 1e21, math.NaN()})
	require.NoError(t, err)
	got, err = f.Cast(stype.Str32)
	require.NoError(t, err)
	assert.Equal(t, []*string{sp("0.1"), sp("1e+21"), nil}, readStrings(t, got))
}

func TestCastBetweenOffsetWidths(t *testing.T) {
	vals := []*string{sp("one"), nil, sp(""), sp("four")}
	s32 := strColumn(t, stype.Str32, vals...)

	s64, err := s32.Cast(stype.Str64)
	require.NoError(t, err)
	assert.Equal(t, stype.Str64, s64.SType())
	assert.Equal(t, vals, readStrings(t, s64))
	assert.Equal(t, []int64{4, -4, 4, 8}, layoutOf[int64](s64.Bytes(), s64.Meta(), 4).Offsets())

	back, err := s64.Cast(stype.Str32)
	require.NoError(t, err)
	assert.Equal(t, s32.Bytes(), back.Bytes())
}

func TestCastVoidAndUnsupported(t *testing.T) {
	v, err := NewVoid(3)
	require.NoError(t, err)
	got, err := v.Cast(stype.Int16)
	require.NoError(t, err)
	for i := int64(0); i < 3; i++ {
		assert.True(t, got.IsNA(i))
	}
	got, err = v.Cast(stype.Str32)
	require.NoError(t, err)
	assert.Equal(t, []*string{nil, nil, nil}, readStrings(t, got))

	s := strColumn(t, stype.Str32, sp("1"))
	_, err = s.Cast(stype.Int32)
	require.Error(t, err)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))
	assert.Contains(t, err.Error(), "i4s")
	assert.Contains(t, err.Error(), "i4i")

	enum, err := Create(stype.Enum8, 1)
	require.NoError(t, err)
	_, err = enum.Cast(stype.Int32)
	assert.True(t, dterrors.IsType(err, dterrors.ErrorTypeUnsupported))
}
