// Package tablefile persists a DataTable as a directory: one file per
// column plus a _meta.json descriptor recording what the raw buffers
// cannot, namely SType, row count, meta string and codec.
//
// Raw column files are byte-for-byte column buffers and are memory-mapped
// on load. Compressed files hold a frame container (see
// compression.Framer) and are decoded into heap storage.
package tablefile

import (
	"bytes"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
)

const (
	// DescriptorName is the file name of the table descriptor.
	DescriptorName = "_meta.json"
	// Version is the descriptor format version written by Save.
	Version = 1
)

// ColumnEntry describes one column file.
type ColumnEntry struct {
	// File is relative to the table directory; empty for Void columns,
	// which have no buffer.
	File        string `json:"file,omitempty"`
	SType       string `json:"stype"`
	NRows       int64  `json:"nrows"`
	Meta        string `json:"meta,omitempty"`
	Compression string `json:"compression,omitempty"`
	// Size is the uncompressed buffer size.
	Size int64 `json:"size"`
	// StoredSize is the size of File on disk.
	StoredSize int64 `json:"stored_size"`
}

// Descriptor is the content of _meta.json.
type Descriptor struct {
	Version int           `json:"version"`
	NRows   int64         `json:"nrows"`
	Columns []ColumnEntry `json:"columns"`
}

// ReadDescriptor parses the descriptor of the table stored in dir.
func ReadDescriptor(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, DescriptorName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dterrors.IOError(err, "read", path)
	}

	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var desc Descriptor
	if err := dec.Decode(&desc); err != nil {
		return nil, dterrors.Wrap(err, dterrors.ErrorTypeValidation, "malformed table descriptor").
			WithDetail("path", path)
	}
	if desc.Version != Version {
		return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported,
			"table descriptor version %d, want %d", desc.Version, Version).WithDetail("path", path)
	}
	for i, e := range desc.Columns {
		if e.NRows != desc.NRows {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"column %d has %d rows, table has %d", i, e.NRows, desc.NRows).WithDetail("path", path)
		}
		if e.File != "" && filepath.Base(e.File) != e.File {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"column %d file %q is outside the table directory", i, e.File).WithDetail("path", path)
		}
	}
	return &desc, nil
}

// writeDescriptor replaces the descriptor in dir through a temporary file,
// so a crash never leaves a half-written descriptor behind.
func writeDescriptor(dir string, desc *Descriptor) error {
	data, err := gojson.MarshalIndent(desc, "", "  ")
	if err != nil {
		return dterrors.Wrap(err, dterrors.ErrorTypeInternal, "failed to encode table descriptor")
	}
	path := filepath.Join(dir, DescriptorName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return dterrors.IOError(err, "write", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return dterrors.IOError(err, "rename", path)
	}
	return nil
}
