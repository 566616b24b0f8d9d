// Package sorting produces stable orderings of numeric columns with a
// parallel MSD radix sort.
//
// The ordering places every NA first and the remaining values in ascending
// order; equal values keep their original relative order. Small inputs are
// insertion sorted. Larger inputs are split into chunks whose histograms are
// combined in chunk order, so the result never depends on scheduling.
package sorting

import (
	"math"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/config"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/rowindex"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// Options tunes the sort.
type Options struct {
	// InsertThreshold is the input size at or below which insertion sort
	// is used, for the whole input and for every radix bucket.
	InsertThreshold int
	// MaxRadixBits caps the bits consumed by one radix pass (1..16).
	MaxRadixBits int
	// MinChunkRows is the smallest chunk of a parallel pass.
	MinChunkRows int
}

// DefaultOptions returns the default tunables.
func DefaultOptions() Options {
	return Options{InsertThreshold: 64, MaxRadixBits: 16, MinChunkRows: 1024}
}

// OptionsFromConfig reads the tunables from the engine configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		InsertThreshold: cfg.Sort.InsertThreshold,
		MaxRadixBits:    cfg.Sort.MaxRadixBits,
		MinChunkRows:    cfg.Parallel.MinChunkRows,
	}
}

// Sorter sorts columns. It holds no state between calls and is safe for
// concurrent use.
type Sorter struct {
	opts   Options
	team   *parallel.Team
	logger *zap.Logger
}

// New creates a Sorter. A nil team uses every CPU; a nil logger uses the
// global logger.
func New(opts Options, team *parallel.Team, log *zap.Logger) *Sorter {
	def := DefaultOptions()
	if opts.MaxRadixBits < 1 || opts.MaxRadixBits > 16 {
		opts.MaxRadixBits = def.MaxRadixBits
	}
	if opts.MinChunkRows < 1 {
		opts.MinChunkRows = def.MinChunkRows
	}
	if opts.InsertThreshold < 0 {
		opts.InsertThreshold = 0
	}
	if team == nil {
		team = parallel.New(0)
	}
	if log == nil {
		log = logger.Get()
	}
	return &Sorter{opts: opts, team: team, logger: log.With(zap.String("component", "sorter"))}
}

// Sort returns the ordering of c as a RowIndex.
func (s *Sorter) Sort(c *column.Column) (*rowindex.RowIndex, error) {
	ord, err := s.Ordering(c)
	if err != nil {
		return nil, err
	}
	return rowindex.FromArray32(ord, false, rowindex.WithTeam(s.team))
}

// Ordering returns o such that gathering c by o yields NAs first, then
// ascending values, with ties in original order.
func (s *Sorter) Ordering(c *column.Column) ([]int32, error) {
	if c.NRows() > math.MaxInt32 {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"cannot sort %d rows, the limit is %d", c.NRows(), math.MaxInt32)
	}
	switch c.SType() {
	case stype.Bool8, stype.Int8:
		return sortValues[int8](s, c)
	case stype.Int16:
		return sortValues[int16](s, c)
	case stype.Int32:
		return sortValues[int32](s, c)
	case stype.Int64:
		return sortValues[int64](s, c)
	case stype.Float32:
		return sortValues[float32](s, c)
	case stype.Float64:
		return sortValues[float64](s, c)
	}
	return nil, dterrors.Newf(dterrors.ErrorTypeUnsupported, "sorting %s columns is not implemented", c.SType())
}

func sortValues[S column.Scalar](s *Sorter, c *column.Column) ([]int32, error) {
	vals, err := column.Values[S](c)
	if err != nil {
		return nil, err
	}
	method := "radix"
	if len(vals) <= s.opts.InsertThreshold {
		method = "insertion"
	}
	timer := metrics.NewTimer()
	var ord []int32
	if method == "insertion" {
		ord = insertionSortValues(vals)
	} else {
		ord = radixSortValues(s, vals)
	}
	elapsed := timer.Stop()
	metrics.SortDuration.WithLabelValues(method).Observe(elapsed.Seconds())
	s.logger.Debug("sorted column",
		zap.String("stype", c.SType().String()),
		zap.Int("nrows", len(vals)),
		zap.String("method", method),
		zap.Duration("elapsed", elapsed))
	return ord, nil
}
