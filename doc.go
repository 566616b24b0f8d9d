// Package datatable is a columnar in-memory table engine with typed NA
// values, shared copy-on-write buffers and memory-mapped persistence.
//
// # Architecture
//
// A table is a list of equal-length columns, optionally read through a
// row index. Columns own reference-counted buffers that live on the heap,
// in a read-only file mapping, or in caller memory. Writes to a shared or
// mapped buffer first take a private copy, so extracting, casting and
// concatenating never disturb the inputs.
//
// # Quick Start
//
// Build a column, sort a table by it and save the result:
//
//	import (
//	    "github.com/ajitpratap0/datatable/pkg/column"
//	    "github.com/ajitpratap0/datatable/pkg/datatable"
//	    "github.com/ajitpratap0/datatable/pkg/sorting"
//	    "github.com/ajitpratap0/datatable/pkg/tablefile"
//	)
//
//	ids, _ := column.FromValues([]int32{3, 1, 2})
//	dt, _ := datatable.New([]*column.Column{ids}, nil)
//	defer dt.Close()
//
//	_ = dt.SortBy(sorting.New(sorting.DefaultOptions(), nil, nil), 0)
//	_ = tablefile.Save(dt, "/tmp/t1", tablefile.DefaultOptions())
//
// # Key Packages
//
//	pkg/stype       - Storage type registry and NA sentinels
//	pkg/column      - Typed columns, extraction, casts, rbind, disk I/O
//	pkg/rowindex    - Slice and array row indices, merge and compaction
//	pkg/sorting     - Parallel stable radix sort producing a row index
//	pkg/datatable   - Tables, views, rbind and cbind
//	pkg/tablefile   - Directory storage with a JSON descriptor
//	pkg/compression - Block codecs and the parallel frame container
//	pkg/arrowio     - Apache Arrow import and export
//	pkg/parallel    - Worker team shared by the engine
//	pkg/mmap        - Read-only and private file mappings
//
// The dtcore command in cmd/dtcore generates, inspects and sorts stored
// tables.
package datatable
