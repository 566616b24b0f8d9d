// Package stype is the static registry of storage types. Every column
// carries one SType, and every other package consults the registry for the
// element size, the size of the auxiliary meta block, the NA sentinel and
// whether the type is variable width.
package stype

import (
	"fmt"
	"math"
)

// SType is the physical element type of a column. The numeric order of the
// constants is the widening order used by rbind.
type SType uint8

const (
	Void SType = iota
	Bool8
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Str32
	Str64
	FixedStr
	Enum8
	Enum16
	Enum32

	count
)

// NA bit patterns for the floating point types. Any NaN read back from a
// column is treated as NA, but these are the patterns written.
const (
	NAFloat32Bits uint32 = 0x7F8007A2
	NAFloat64Bits uint64 = 0x7FF00000000007A2
)

// Integer NA sentinels.
const (
	NABool8 int8  = math.MinInt8
	NAInt8  int8  = math.MinInt8
	NAInt16 int16 = math.MinInt16
	NAInt32 int32 = math.MinInt32
	NAInt64 int64 = math.MinInt64
)

// Info describes one SType.
type Info struct {
	Code string
	// ElemSize is the size of one element of the primary buffer. For the
	// string types it is the width of one offset; for FixedStr it is 0 and
	// the width lives in the column meta.
	ElemSize int
	// MetaSize is the size of the auxiliary meta block, 0 when unused.
	MetaSize int
	// VarWidth is set for the offset-encoded string types.
	VarWidth bool
	// NA is the byte pattern of one NA element, little-endian.
	NA []byte
	// Numeric is set for the bool, integer and floating point types.
	Numeric bool
}

var registry = [count]Info{
	Void:     {Code: "---"},
	Bool8:    {Code: "i1b", ElemSize: 1, NA: []byte{0x80}, Numeric: true},
	Int8:     {Code: "i1i", ElemSize: 1, NA: []byte{0x80}, Numeric: true},
	Int16:    {Code: "i2i", ElemSize: 2, NA: []byte{0x00, 0x80}, Numeric: true},
	Int32:    {Code: "i4i", ElemSize: 4, NA: []byte{0x00, 0x00, 0x00, 0x80}, Numeric: true},
	Int64:    {Code: "i8i", ElemSize: 8, NA: []byte{0, 0, 0, 0, 0, 0, 0, 0x80}, Numeric: true},
	Float32:  {Code: "f4r", ElemSize: 4, NA: []byte{0xA2, 0x07, 0x80, 0x7F}, Numeric: true},
	Float64:  {Code: "f8r", ElemSize: 8, NA: []byte{0xA2, 0x07, 0, 0, 0, 0, 0xF0, 0x7F}, Numeric: true},
	Str32:    {Code: "i4s", ElemSize: 4, MetaSize: 8, VarWidth: true},
	Str64:    {Code: "i8s", ElemSize: 8, MetaSize: 8, VarWidth: true},
	FixedStr: {Code: "c#s", MetaSize: 8, NA: []byte{0xFF}},
	Enum8:    {Code: "u1e", ElemSize: 1, MetaSize: 8, NA: []byte{0xFF}},
	Enum16:   {Code: "u2e", ElemSize: 2, MetaSize: 8, NA: []byte{0xFF, 0xFF}},
	Enum32:   {Code: "u4e", ElemSize: 4, MetaSize: 8, NA: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
}

// Get returns the registry entry for st. It panics on an unknown SType,
// which can only be produced by a programming error.
func Get(st SType) *Info {
	if st >= count {
		panic(fmt.Sprintf("stype: unknown stype %d", st))
	}
	return &registry[st]
}

// Valid reports whether st is a registered SType.
func (st SType) Valid() bool { return st < count }

func (st SType) String() string {
	if st >= count {
		return fmt.Sprintf("stype(%d)", uint8(st))
	}
	return registry[st].Code
}

// ElemSize is shorthand for Get(st).ElemSize.
func (st SType) ElemSize() int { return Get(st).ElemSize }

// IsVarWidth reports whether st is an offset-encoded string type.
func (st SType) IsVarWidth() bool { return Get(st).VarWidth }

// IsNumeric reports whether st is a bool, integer or float type.
func (st SType) IsNumeric() bool { return Get(st).Numeric }

// IsEnum reports whether st is a categorical string encoding.
func (st SType) IsEnum() bool { return st == Enum8 || st == Enum16 || st == Enum32 }

// IsFloat reports whether st is Float32 or Float64.
func (st SType) IsFloat() bool { return st == Float32 || st == Float64 }

// Parse resolves a type code such as "i4i" back to its SType.
func Parse(code string) (SType, error) {
	for i := range registry {
		if registry[i].Code == code {
			return SType(i), nil
		}
	}
	return Void, fmt.Errorf("unknown stype code %q", code)
}

// Max returns the wider of a and b.
func Max(a, b SType) SType {
	if b > a {
		return b
	}
	return a
}

// MinPad is the minimum padding between the data region and the offsets
// region of a variable-width column. It is large enough to hold the -1
// sentinel that precedes the first offset.
func MinPad(st SType) int64 {
	return int64(Get(st).ElemSize)
}

// Padding returns the number of padding bytes to place after a data region
// of datasize bytes so that the offsets region starts 8-byte aligned.
func Padding(st SType, datasize int64) int64 {
	const align = 8
	minpad := MinPad(st)
	return ((align-(datasize+minpad)%align)%align) + minpad
}
