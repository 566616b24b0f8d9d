// Package mmap provides memory-mapped file regions backing column buffers.
//
// A Region is either read-only (an existing file loaded from disk) or
// read-write (a file created at its exact final size and filled in place).
// There is no support for concurrent writers to the same mapping.
package mmap

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
)

// Region is one mapped file.
type Region struct {
	path     string
	data     []byte
	writable bool

	mu     sync.Mutex
	closed bool
}

// Create creates (or truncates) path to exactly size bytes and maps it
// read-write.
func Create(path string, size int64) (*Region, error) {
	if size < 0 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "negative mapping size %d", size).
			WithDetail("path", path)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec
	if err != nil {
		return nil, dterrors.IOError(err, "create", path)
	}
	defer file.Close()

	if err := file.Truncate(size); err != nil {
		return nil, dterrors.IOError(err, "truncate", path)
	}

	r := &Region{path: path, writable: true}
	if size == 0 {
		r.data = []byte{}
		return r, nil
	}

	data, err := mmap(int(file.Fd()), int(size), true)
	if err != nil {
		return nil, mapError(err, "mmap", path, size)
	}
	r.data = data

	logger.Debug("mapped file for writing",
		zap.String("path", path),
		zap.Int64("bytes", size))
	return r, nil
}

// Open maps an existing file read-only.
func Open(path string) (*Region, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, dterrors.IOError(err, "open", path)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, dterrors.IOError(err, "stat", path)
	}

	r := &Region{path: path}
	size := stat.Size()
	if size == 0 {
		r.data = []byte{}
		return r, nil
	}

	data, err := mmap(int(file.Fd()), int(size), false)
	if err != nil {
		return nil, mapError(err, "mmap", path, size)
	}
	r.data = data

	// Advise kernel about access pattern
	if err := madvise(data, MadvWillneed); err != nil {
		logger.Debug("madvise failed", zap.String("path", path), zap.Error(err))
	}

	logger.Debug("mapped file for reading",
		zap.String("path", path),
		zap.Int64("bytes", size))
	return r, nil
}

// mapError classifies a failed mmap. ENOMEM-style failures are resource
// exhaustion; everything else is an I/O failure.
func mapError(err error, op, path string, size int64) error {
	if isNoMem(err) {
		return dterrors.Wrap(err, dterrors.ErrorTypeResource, fmt.Sprintf("cannot map %d bytes", size)).
			WithDetail("path", path)
	}
	return dterrors.IOError(err, op, path).WithDetail("bytes", size)
}

// Bytes returns the mapped bytes. Writing to the slice of a read-only
// region faults.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the size of the mapping.
func (r *Region) Len() int {
	return len(r.data)
}

// Path returns the mapped file's path.
func (r *Region) Path() string {
	return r.path
}

// Writable reports whether the region was created read-write.
func (r *Region) Writable() bool {
	return r.writable
}

// Close unmaps the region. Closing twice is a no-op.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if len(r.data) > 0 {
		if e := munmap(r.data); e != nil {
			err = dterrors.IOError(e, "munmap", r.path)
		}
	}
	r.data = nil

	logger.Debug("unmapped file", zap.String("path", r.path))
	return err
}
