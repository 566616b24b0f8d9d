package stype

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	for st := Void; st < count; st++ {
		got, err := Parse(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}

	_, err := Parse("zzz")
	assert.Error(t, err)
}

func TestNASentinels(t *testing.T) {
	assert.Equal(t, uint32(1)<<31, binary.LittleEndian.Uint32(Get(Int32).NA))
	assert.Equal(t, uint64(1)<<63, binary.LittleEndian.Uint64(Get(Int64).NA))
	assert.Equal(t, NAFloat32Bits, binary.LittleEndian.Uint32(Get(Float32).NA))
	assert.Equal(t, NAFloat64Bits, binary.LittleEndian.Uint64(Get(Float64).NA))
	assert.True(t, math.IsNaN(float64(math.Float32frombits(NAFloat32Bits))))
	assert.True(t, math.IsNaN(math.Float64frombits(NAFloat64Bits)))

	for st := Bool8; st <= Float64; st++ {
		assert.Len(t, Get(st).NA, st.ElemSize(), st.String())
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		st       SType
		datasize int64
		want     int64
	}{
		{Str32, 0, 8},
		{Str32, 1, 7},
		{Str32, 4, 4},
		{Str32, 5, 11},
		{Str64, 0, 8},
		{Str64, 1, 15},
		{Str64, 8, 8},
	}
	for _, tt := range tests {
		got := Padding(tt.st, tt.datasize)
		assert.Equal(t, tt.want, got, "%s datasize=%d", tt.st, tt.datasize)
		assert.Zero(t, (tt.datasize+got)%8)
		assert.GreaterOrEqual(t, got, MinPad(tt.st))
	}
}

func TestMaxWidens(t *testing.T) {
	assert.Equal(t, Int32, Max(Bool8, Int32))
	assert.Equal(t, Float64, Max(Float64, Int64))
	assert.Equal(t, Str32, Max(Void, Str32))
	assert.True(t, Str32.IsVarWidth())
	assert.False(t, FixedStr.IsVarWidth())
	assert.True(t, Enum16.IsEnum())
}

func TestGetPanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Get(SType(200)) })
	assert.False(t, SType(200).Valid())
}
