// Package datatable groups equal-length columns into a table, optionally
// viewed through a single RowIndex shared by every column.
package datatable

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/column"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/sorting"
)

// DataTable is an ordered set of columns. When ri is set the table is a
// view: its rows are ri's rows of every column.
type DataTable struct {
	columns []*column.Column
	ri      *rowindex.RowIndex
	nrows   int64
}

// New builds a table, taking ownership of one reference to every column
// and to ri. Columns must have the same row count; with a row index, the
// index must address rows of the columns.
func New(columns []*column.Column, ri *rowindex.RowIndex) (*DataTable, error) {
	var colRows int64
	for i, c := range columns {
		if i == 0 {
			colRows = c.NRows()
			continue
		}
		if c.NRows() != colRows {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"column %d has %d rows, column 0 has %d", i, c.NRows(), colRows)
		}
	}
	nrows := colRows
	if ri != nil {
		if ri.Length() > 0 && ri.Max() >= colRows {
			return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
				"row index max %d is out of range for %d rows", ri.Max(), colRows)
		}
		nrows = ri.Length()
	}
	return &DataTable{columns: columns, ri: ri, nrows: nrows}, nil
}

// NRows returns the number of rows, which for a view is the row index
// length.
func (dt *DataTable) NRows() int64 { return dt.nrows }

// NCols returns the number of columns.
func (dt *DataTable) NCols() int { return len(dt.columns) }

// IsView reports whether the table has a row index.
func (dt *DataTable) IsView() bool { return dt.ri != nil }

// RowIndex returns the table's row index, nil unless it is a view.
func (dt *DataTable) RowIndex() *rowindex.RowIndex { return dt.ri }

// Column returns column i as seen through the table's row index. The
// caller owns the returned reference.
func (dt *DataTable) Column(i int) (*column.Column, error) {
	if i < 0 || i >= len(dt.columns) {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"column %d is out of range for %d columns", i, len(dt.columns))
	}
	return dt.columns[i].Extract(dt.ri)
}

// Reify materializes a view: every column is replaced by its extraction
// through the row index, and the row index is dropped.
func (dt *DataTable) Reify() error {
	if dt.ri == nil {
		return nil
	}
	out := make([]*column.Column, len(dt.columns))
	for i, c := range dt.columns {
		ext, err := c.Extract(dt.ri)
		if err != nil {
			for _, done := range out[:i] {
				_ = done.DecRef()
			}
			return err
		}
		out[i] = ext
	}
	for _, c := range dt.columns {
		_ = c.DecRef()
	}
	dt.ri.DecRef()
	dt.columns, dt.ri = out, nil
	logger.Debug("reified table", zap.Int("ncols", len(out)), zap.Int64("nrows", dt.nrows))
	return nil
}

// Rbind appends the rows of others. cols has one entry per result column;
// cols[j][k] is the column of others[k] appended to result column j, or -1
// for NA rows. Result columns beyond NCols start as all NA. Columns the
// table owns exclusively grow in place. Type conflicts are reported before
// any column is modified; if an allocation fails part way, the table is
// closed.
func (dt *DataTable) Rbind(others []*DataTable, cols [][]int) error {
	if len(cols) < len(dt.columns) {
		return dterrors.Newf(dterrors.ErrorTypeValidation,
			"rbind mapping has %d columns, table has %d", len(cols), len(dt.columns))
	}
	for j, m := range cols {
		if len(m) != len(others) {
			return dterrors.Newf(dterrors.ErrorTypeValidation,
				"rbind mapping for column %d has %d entries, want %d", j, len(m), len(others))
		}
		var base *column.Column
		if j < len(dt.columns) {
			base = dt.columns[j]
		}
		parts := make([]*column.Column, len(others))
		for k, src := range m {
			if src < -1 || src >= others[k].NCols() {
				return dterrors.Newf(dterrors.ErrorTypeValidation,
					"rbind mapping refers to column %d of a %d-column table", src, others[k].NCols())
			}
			if src >= 0 {
				parts[k] = others[k].columns[src]
			}
		}
		if err := column.CheckRbind(base, parts); err != nil {
			return err
		}
	}
	if err := dt.Reify(); err != nil {
		return err
	}

	total := dt.nrows
	for _, o := range others {
		total += o.nrows
	}
	result := make([]*column.Column, len(cols))
	for j, m := range cols {
		merged, err := dt.rbindColumn(j, others, m)
		if err != nil {
			for _, c := range result[:j] {
				_ = c.DecRef()
			}
			for _, c := range dt.columns[min(j+1, len(dt.columns)):] {
				_ = c.DecRef()
			}
			dt.columns, dt.nrows = nil, 0
			return err
		}
		result[j] = merged
	}

	dt.columns, dt.nrows = result, total
	metrics.CombinatorCalls.WithLabelValues("rbind", "table").Inc()
	logger.Debug("rbind tables",
		zap.Int("inputs", len(others)+1),
		zap.Int("ncols", len(result)),
		zap.Int64("nrows", total))
	return nil
}

// rbindColumn consumes the table's reference to column j (or a Void
// placeholder past the last column) and appends the mapped columns of
// others. On error the table's column j has already been released.
func (dt *DataTable) rbindColumn(j int, others []*DataTable, m []int) (*column.Column, error) {
	var (
		base *column.Column
		err  error
	)
	if j < len(dt.columns) {
		base = dt.columns[j]
	} else if base, err = column.NewVoid(dt.nrows); err != nil {
		return nil, err
	}

	parts := make([]*column.Column, 0, len(others))
	defer func() {
		for _, p := range parts {
			_ = p.DecRef()
		}
	}()
	for k, src := range m {
		var p *column.Column
		if src < 0 {
			p, err = column.NewVoid(others[k].nrows)
		} else {
			p, err = others[k].Column(src)
		}
		if err != nil {
			_ = base.DecRef()
			return nil, err
		}
		parts = append(parts, p)
	}
	merged, err := base.Rbind(parts)
	if err != nil {
		_ = base.DecRef()
		return nil, err
	}
	return merged, nil
}

// Cbind appends the columns of others. Views are reified first (others
// through a materialized copy, so they are not modified). The result has
// the largest row count among all tables; shorter columns are extended
// with ResizeAndFill, broadcasting 1-row columns and padding others with
// NA. Columns the table owns exclusively grow in place. If an allocation
// fails part way, the table is closed.
func (dt *DataTable) Cbind(others []*DataTable) error {
	if err := dt.Reify(); err != nil {
		return err
	}
	nrows := dt.nrows
	ncols := len(dt.columns)
	for _, o := range others {
		nrows = max(nrows, o.nrows)
		ncols += o.NCols()
	}

	result := make([]*column.Column, 0, ncols)
	fail := func(rest []*column.Column, err error) error {
		for _, c := range result {
			_ = c.DecRef()
		}
		for _, c := range rest {
			_ = c.DecRef()
		}
		dt.columns, dt.nrows = nil, 0
		return err
	}
	for j, c := range dt.columns {
		grown, err := c.ResizeAndFill(nrows)
		if err != nil {
			return fail(dt.columns[j:], err)
		}
		result = append(result, grown)
	}
	for _, o := range others {
		for i := range o.columns {
			c, err := o.Column(i)
			if err != nil {
				return fail(nil, err)
			}
			grown, err := c.ResizeAndFill(nrows)
			if err != nil {
				_ = c.DecRef()
				return fail(nil, err)
			}
			result = append(result, grown)
		}
	}

	dt.columns, dt.nrows = result, nrows
	metrics.CombinatorCalls.WithLabelValues("cbind", "table").Inc()
	logger.Debug("cbind tables",
		zap.Int("inputs", len(others)+1),
		zap.Int("ncols", len(result)),
		zap.Int64("nrows", nrows))
	return nil
}

// SortBy reorders the table by column i, NAs first, ties in row order.
// The columns are untouched: the ordering is composed onto the table's
// row index, turning the table into a sorted view.
func (dt *DataTable) SortBy(s *sorting.Sorter, i int) error {
	c, err := dt.Column(i)
	if err != nil {
		return err
	}
	defer c.DecRef()

	ord, err := s.Sort(c)
	if err != nil {
		return err
	}
	defer ord.DecRef()

	merged, err := rowindex.Merge(dt.ri, ord)
	if err != nil {
		return err
	}
	dt.ri.DecRef()
	dt.ri = merged
	return nil
}

// Close drops the table's references to its columns and row index.
func (dt *DataTable) Close() error {
	var first error
	for _, c := range dt.columns {
		if err := c.DecRef(); err != nil && first == nil {
			first = err
		}
	}
	dt.ri.DecRef()
	dt.columns, dt.ri, dt.nrows = nil, nil, 0
	return first
}
