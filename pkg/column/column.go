// Package column implements typed, refcounted column storage.
//
// A Column owns one primary buffer whose layout is determined by its SType:
// nrows fixed-width elements, or for the string types a data region, a
// padding region and an offsets region (see varwidth.go). The buffer lives
// on the heap, in a memory-mapped file, or in a caller-owned external
// buffer.
//
// Columns are shared by reference. A column whose reference count is
// greater than one is never mutated; operations that modify a column
// consume the caller's reference and return the handle to use afterwards,
// which is either the same column (mutated in place) or a fresh copy.
package column

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/mmap"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// maxAlloc bounds a single buffer allocation.
const maxAlloc = math.MaxInt64 / 2

// team runs the parallel parts of extraction and casting.
var team = parallel.New(0)

// SetTeam replaces the worker team used by this package.
func SetTeam(t *parallel.Team) {
	if t != nil {
		team = t
	}
}

// storage is the sealed set of backing storage kinds.
type storage interface {
	kind() string
	release() error
}

// heapStorage owns a buffer allocated through allocBuffer.
type heapStorage struct {
	words []uint64
}

// mmapStorage owns a mapped file region.
type mmapStorage struct {
	region *mmap.Region
}

// externalStorage wraps a caller-owned buffer. release is invoked once the
// last reference is dropped.
type externalStorage struct {
	free func()
}

func (*heapStorage) kind() string     { return "heap" }
func (*mmapStorage) kind() string     { return "mmap" }
func (*externalStorage) kind() string { return "external" }

func (s *heapStorage) release() error {
	s.words = nil
	return nil
}

func (s *mmapStorage) release() error {
	return s.region.Close()
}

func (s *externalStorage) release() error {
	if s.free != nil {
		s.free()
	}
	return nil
}

// Column is a typed column of nrows values.
type Column struct {
	stype stype.SType
	nrows int64
	buf   []byte
	// meta is the offset of the offsets region for the string types and
	// the element width for FixedStr.
	meta  int64
	store storage
	refs  atomic.Int32
}

// allocBuffer returns a zeroed, 8-byte aligned buffer of size bytes.
func allocBuffer(size int64) (buf []byte, hs *heapStorage, err error) {
	if size < 0 || size > maxAlloc {
		return nil, nil, dterrors.Newf(dterrors.ErrorTypeResource, "cannot allocate %d bytes", size)
	}
	defer func() {
		if r := recover(); r != nil {
			buf, hs = nil, nil
			err = dterrors.Newf(dterrors.ErrorTypeResource, "cannot allocate %d bytes: %v", size, r)
		}
	}()
	if size == 0 {
		return []byte{}, &heapStorage{}, nil
	}
	words := make([]uint64, (size+7)/8)
	buf = unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)
	return buf, &heapStorage{words: words}, nil
}

// view reinterprets b as a slice of T. b must be aligned for T.
func view[T any](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b) < size {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}

func newColumn(st stype.SType, nrows int64, buf []byte, meta int64, store storage) *Column {
	c := &Column{stype: st, nrows: nrows, buf: buf, meta: meta, store: store}
	c.refs.Store(1)
	metrics.TrackAlloc(store.kind(), len(buf))
	return c
}

// fixedSize returns the primary buffer size of nrows fixed-width elements.
func fixedSize(elem int, nrows int64) (int64, error) {
	if nrows < 0 {
		return 0, dterrors.Newf(dterrors.ErrorTypeValidation, "negative row count %d", nrows)
	}
	if elem > 0 && nrows > maxAlloc/int64(elem) {
		return 0, dterrors.Newf(dterrors.ErrorTypeResource, "cannot allocate %d rows of %d bytes", nrows, elem)
	}
	return nrows * int64(elem), nil
}

// Create allocates a column of nrows rows. Fixed-width columns are zeroed;
// string columns start with every row NA. FixedStr columns need a width
// and are created with CreateFixedStr.
func Create(st stype.SType, nrows int64) (*Column, error) {
	if !st.Valid() {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "unknown stype %d", uint8(st))
	}
	switch {
	case st == stype.Void:
		return NewVoid(nrows)
	case st == stype.FixedStr:
		return nil, dterrors.New(dterrors.ErrorTypeValidation, "fixed string columns require a width")
	case st.IsVarWidth():
		return createVarwidth(st, nrows)
	}
	size, err := fixedSize(st.ElemSize(), nrows)
	if err != nil {
		return nil, err
	}
	buf, hs, err := allocBuffer(size)
	if err != nil {
		return nil, err
	}
	return newColumn(st, nrows, buf, 0, hs), nil
}

// CreateFixedStr allocates a fixed string column of the given byte width.
func CreateFixedStr(nrows int64, width int) (*Column, error) {
	if width <= 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "invalid fixed string width %d", width)
	}
	size, err := fixedSize(width, nrows)
	if err != nil {
		return nil, err
	}
	buf, hs, err := allocBuffer(size)
	if err != nil {
		return nil, err
	}
	return newColumn(stype.FixedStr, nrows, buf, int64(width), hs), nil
}

// NewVoid returns the placeholder column of nrows NA values with no type.
func NewVoid(nrows int64) (*Column, error) {
	if nrows < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "negative row count %d", nrows)
	}
	return newColumn(stype.Void, nrows, []byte{}, 0, &heapStorage{}), nil
}

// NewExternal wraps buf, owned by the caller, as a column. release (which
// may be nil) is called when the last reference is dropped. meta is the
// offsets origin for string columns and the width for FixedStr.
func NewExternal(st stype.SType, nrows int64, buf []byte, meta int64, release func()) (*Column, error) {
	if err := validateBuffer(st, nrows, int64(len(buf)), meta); err != nil {
		return nil, err
	}
	if len(buf) > 0 && uintptr(unsafe.Pointer(&buf[0]))%8 != 0 {
		return nil, dterrors.New(dterrors.ErrorTypeValidation, "external buffer is not 8-byte aligned")
	}
	return newColumn(st, nrows, buf, meta, &externalStorage{free: release}), nil
}

// validateBuffer checks that size bytes form a valid primary buffer.
func validateBuffer(st stype.SType, nrows, size, meta int64) error {
	if !st.Valid() {
		return dterrors.Newf(dterrors.ErrorTypeValidation, "unknown stype %d", uint8(st))
	}
	if nrows < 0 {
		return dterrors.Newf(dterrors.ErrorTypeValidation, "negative row count %d", nrows)
	}
	switch {
	case st == stype.Void:
		if size != 0 {
			return dterrors.Newf(dterrors.ErrorTypeValidation, "void column with %d bytes", size)
		}
	case st.IsVarWidth():
		elem := int64(st.ElemSize())
		if meta < stype.MinPad(st) || meta%8 != 0 {
			return dterrors.Newf(dterrors.ErrorTypeValidation, "invalid offsets origin %d for %s", meta, st)
		}
		if nrows > (maxAlloc-meta)/elem || size < meta+nrows*elem {
			return dterrors.Newf(dterrors.ErrorTypeValidation,
				"%d bytes cannot hold %d %s rows with offoff=%d", size, nrows, st, meta)
		}
	default:
		elem := int64(st.ElemSize())
		if st == stype.FixedStr {
			if meta <= 0 {
				return dterrors.Newf(dterrors.ErrorTypeValidation, "invalid fixed string width %d", meta)
			}
			elem = meta
		}
		if nrows > maxAlloc/elem || size != nrows*elem {
			return dterrors.Newf(dterrors.ErrorTypeValidation,
				"%d bytes do not match %d %s rows of %d bytes", size, nrows, st, elem)
		}
	}
	return nil
}

// SType returns the column's storage type.
func (c *Column) SType() stype.SType { return c.stype }

// NRows returns the number of rows.
func (c *Column) NRows() int64 { return c.nrows }

// Bytes returns the primary buffer. It must not be modified.
func (c *Column) Bytes() []byte { return c.buf }

// MutableBytes returns the primary buffer for filling in place. It fails
// unless c has a single reference and is backed by heap storage or a
// writable mapping.
func (c *Column) MutableBytes() ([]byte, error) {
	if c.refs.Load() != 1 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "column has %d references", c.refs.Load())
	}
	switch s := c.store.(type) {
	case *heapStorage:
		return c.buf, nil
	case *mmapStorage:
		if s.region.Writable() {
			return c.buf, nil
		}
	}
	return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "%s storage is read-only", c.store.kind())
}

// Size returns the size of the primary buffer in bytes.
func (c *Column) Size() int64 { return int64(len(c.buf)) }

// Meta returns the offsets origin (string types) or width (FixedStr).
func (c *Column) Meta() int64 { return c.meta }

// StorageKind returns "heap", "mmap" or "external".
func (c *Column) StorageKind() string { return c.store.kind() }

// RefCount returns the number of live references.
func (c *Column) RefCount() int32 { return c.refs.Load() }

// elemWidth is the per-row width of a fixed-width column.
func (c *Column) elemWidth() int {
	if c.stype == stype.FixedStr {
		return int(c.meta)
	}
	return c.stype.ElemSize()
}

// IncRef registers a new alias and returns c. A nil column is a no-op.
func (c *Column) IncRef() *Column {
	if c != nil {
		c.refs.Add(1)
	}
	return c
}

// DecRef drops one reference. The backing storage is released exactly once,
// when the last reference goes away. A nil column is a no-op.
func (c *Column) DecRef() error {
	if c == nil {
		return nil
	}
	n := c.refs.Add(-1)
	if n < 0 {
		panic("column: refcount underflow")
	}
	if n > 0 {
		return nil
	}
	kind, size := c.store.kind(), len(c.buf)
	err := c.store.release()
	c.buf = nil
	metrics.TrackRelease(kind, size)
	if err != nil {
		logger.Warn("failed to release column storage",
			zap.String("storage", kind),
			zap.Error(err))
	}
	return err
}

// Copy returns a heap-owned deep clone with a reference count of one.
func (c *Column) Copy() (*Column, error) {
	buf, hs, err := allocBuffer(int64(len(c.buf)))
	if err != nil {
		return nil, err
	}
	copy(buf, c.buf)
	return newColumn(c.stype, c.nrows, buf, c.meta, hs), nil
}

// exclusive reports whether c may be mutated in place.
func (c *Column) exclusive() bool {
	_, heap := c.store.(*heapStorage)
	return heap && c.refs.Load() == 1
}

// reserve returns a column holding c's bytes in a buffer of at least size
// bytes (or exactly len(c.buf) when size is smaller). If c is exclusive it
// is reused: its buffer grows and the same handle is returned. Otherwise a
// clone is made and c's reference is dropped. On error c is unchanged.
func (c *Column) reserve(size int64) (*Column, error) {
	size = max(size, int64(len(c.buf)))
	if c.exclusive() {
		if size == int64(len(c.buf)) {
			return c, nil
		}
		buf, hs, err := allocBuffer(size)
		if err != nil {
			return nil, err
		}
		copy(buf, c.buf)
		metrics.BytesLive.WithLabelValues("heap").Add(float64(size - int64(len(c.buf))))
		c.buf, c.store = buf, hs
		return c, nil
	}
	buf, hs, err := allocBuffer(size)
	if err != nil {
		return nil, err
	}
	copy(buf, c.buf)
	out := newColumn(c.stype, c.nrows, buf, c.meta, hs)
	_ = c.DecRef()
	return out, nil
}

// mutable returns a column safe to modify in place: c itself when it is
// exclusive, otherwise a clone (dropping c's reference).
func (c *Column) mutable() (*Column, error) {
	return c.reserve(int64(len(c.buf)))
}

// shrink trims an exclusive heap column's buffer view to size bytes.
func (c *Column) shrink(size int64) {
	metrics.BytesLive.WithLabelValues(c.store.kind()).Sub(float64(int64(len(c.buf)) - size))
	c.buf = c.buf[:size]
}

func (c *Column) String() string {
	if c == nil {
		return "Column(nil)"
	}
	return fmt.Sprintf("Column(%s nrows=%d bytes=%d storage=%s refs=%d)",
		c.stype, c.nrows, len(c.buf), c.store.kind(), c.refs.Load())
}
