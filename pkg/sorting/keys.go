package sorting

import (
	"math"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// keyFuncs returns the NA test and an order-preserving mapping of non-NA
// values of S onto uint64.
func keyFuncs[S column.Scalar]() (isNA func(S) bool, key func(S) uint64) {
	var zero S
	switch any(zero).(type) {
	case float32:
		isNA = func(v S) bool { return v != v }
		key = func(v S) uint64 {
			f := float32(v)
			if f == 0 {
				f = 0
			}
			b := math.Float32bits(f)
			if b&(1<<31) != 0 {
				b = ^b
			} else {
				b |= 1 << 31
			}
			return uint64(b)
		}
	case float64:
		isNA = func(v S) bool { return v != v }
		key = func(v S) uint64 {
			f := float64(v)
			if f == 0 {
				f = 0
			}
			b := math.Float64bits(f)
			if b&(1<<63) != 0 {
				return ^b
			}
			return b | 1<<63
		}
	default:
		na := intNA[S]()
		isNA = func(v S) bool { return v == na }
		key = func(v S) uint64 { return uint64(int64(v)) ^ 1<<63 }
	}
	return isNA, key
}

// intNA returns the NA sentinel of an integer S.
func intNA[S column.Scalar]() S {
	var zero S
	var na any
	switch any(zero).(type) {
	case int8:
		na = stype.NAInt8
	case int16:
		na = stype.NAInt16
	case int32:
		na = stype.NAInt32
	default:
		na = stype.NAInt64
	}
	return na.(S)
}
