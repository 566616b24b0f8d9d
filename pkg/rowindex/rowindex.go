// Package rowindex implements row selections: an ordered sequence of row
// numbers drawn from a parent row space. A RowIndex is stored in whichever
// of three representations is most compact (a strided slice, or an explicit
// array of 32- or 64-bit row numbers); the representation never changes the
// meaning of the index.
//
// Row indices compose with Merge, which lets views of views be described
// without touching any column data.
package rowindex

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/parallel"
)

// Kind names the physical representation of a RowIndex.
type Kind uint8

const (
	KindSlice Kind = iota
	KindArray32
	KindArray64
)

func (k Kind) String() string {
	switch k {
	case KindSlice:
		return "slice"
	case KindArray32:
		return "arr32"
	case KindArray64:
		return "arr64"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Repr is the sealed set of representations: SliceRepr, Array32Repr and
// Array64Repr. Consumers switch over these three and panic on anything
// else.
type Repr interface {
	kind() Kind
}

// SliceRepr selects rows Start, Start+Step, Start+2*Step, ...
type SliceRepr struct {
	Start int64
	Step  int64
}

// Array32Repr is an explicit list of row numbers that fit in 32 bits.
type Array32Repr []int32

// Array64Repr is an explicit list of 64-bit row numbers.
type Array64Repr []int64

func (SliceRepr) kind() Kind   { return KindSlice }
func (Array32Repr) kind() Kind { return KindArray32 }
func (Array64Repr) kind() Kind { return KindArray64 }

// RowIndex is a refcounted, immutable row selection.
type RowIndex struct {
	repr   Repr
	length int64
	min    int64
	max    int64
	refs   atomic.Int32
}

// deflt is the team used when no WithTeam option is given.
var deflt = parallel.New(0)

// SetTeam replaces the team used when no WithTeam option is given.
func SetTeam(t *parallel.Team) {
	if t != nil {
		deflt = t
	}
}

// Option customizes construction.
type Option func(*options)

type options struct {
	team *parallel.Team
}

// WithTeam runs the parallel parts of a construction on t.
func WithTeam(t *parallel.Team) Option {
	return func(o *options) { o.team = t }
}

func buildOptions(opts []Option) options {
	o := options{team: deflt}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newRowIndex(repr Repr, length, min, max int64, source string) *RowIndex {
	ri := &RowIndex{repr: repr, length: length, min: min, max: max}
	ri.refs.Store(1)
	metrics.RowIndexCreated.WithLabelValues(repr.kind().String(), source).Inc()
	return ri
}

// Length returns the number of selected rows.
func (ri *RowIndex) Length() int64 { return ri.length }

// Min returns the smallest selected row number (0 for an empty index).
func (ri *RowIndex) Min() int64 { return ri.min }

// Max returns the largest selected row number (0 for an empty index).
func (ri *RowIndex) Max() int64 { return ri.max }

// Kind returns the current representation.
func (ri *RowIndex) Kind() Kind { return ri.repr.kind() }

// Repr exposes the representation for consumers that iterate rows in bulk.
// The returned arrays must not be modified.
func (ri *RowIndex) Repr() Repr { return ri.repr }

// IncRef registers a new alias and returns ri. A nil index is a no-op.
func (ri *RowIndex) IncRef() *RowIndex {
	if ri != nil {
		ri.refs.Add(1)
	}
	return ri
}

// DecRef drops one alias; the arrays are released with the last one.
func (ri *RowIndex) DecRef() {
	if ri == nil {
		return
	}
	n := ri.refs.Add(-1)
	if n < 0 {
		panic("rowindex: refcount underflow")
	}
	if n == 0 {
		ri.repr = nil
	}
}

// RefCount returns the current number of aliases.
func (ri *RowIndex) RefCount() int32 { return ri.refs.Load() }

// At returns the i-th selected row number.
func (ri *RowIndex) At(i int64) int64 {
	switch r := ri.repr.(type) {
	case SliceRepr:
		return r.Start + i*r.Step
	case Array32Repr:
		return int64(r[i])
	case Array64Repr:
		return r[i]
	default:
		panic(fmt.Sprintf("rowindex: invalid representation %T", ri.repr))
	}
}

// Indices materializes the index as a slice of row numbers.
func (ri *RowIndex) Indices() []int64 {
	out := make([]int64, ri.length)
	switch r := ri.repr.(type) {
	case SliceRepr:
		j := r.Start
		for i := range out {
			out[i] = j
			j += r.Step
		}
	case Array32Repr:
		for i, j := range r {
			out[i] = int64(j)
		}
	case Array64Repr:
		copy(out, r)
	default:
		panic(fmt.Sprintf("rowindex: invalid representation %T", ri.repr))
	}
	return out
}

// SliceBounds returns start and step for a slice index.
func (ri *RowIndex) SliceBounds() (start, step int64, ok bool) {
	if r, isSlice := ri.repr.(SliceRepr); isSlice {
		return r.Start, r.Step, true
	}
	return 0, 0, false
}

// Array32 returns the row numbers of an Array32 index.
func (ri *RowIndex) Array32() ([]int32, bool) {
	r, ok := ri.repr.(Array32Repr)
	return r, ok
}

// Array64 returns the row numbers of an Array64 index.
func (ri *RowIndex) Array64() ([]int64, bool) {
	r, ok := ri.repr.(Array64Repr)
	return r, ok
}

// Compactify narrows an Array64 index to Array32 when its length and every
// value fit in 32 bits. It is a no-op for other representations and for
// an index that currently has more than one alias.
func (ri *RowIndex) Compactify() {
	arr, ok := ri.repr.(Array64Repr)
	if !ok || ri.refs.Load() != 1 {
		return
	}
	if ri.length > math.MaxInt32 || ri.max > math.MaxInt32 {
		return
	}
	out := make([]int32, len(arr))
	for i, v := range arr {
		out[i] = int32(v)
	}
	ri.repr = Array32Repr(out)
}

func (ri *RowIndex) String() string {
	if ri == nil {
		return "RowIndex(identity)"
	}
	switch r := ri.repr.(type) {
	case SliceRepr:
		return fmt.Sprintf("RowIndex(slice start=%d count=%d step=%d)", r.Start, ri.length, r.Step)
	default:
		return fmt.Sprintf("RowIndex(%s n=%d min=%d max=%d)", ri.Kind(), ri.length, ri.min, ri.max)
	}
}
