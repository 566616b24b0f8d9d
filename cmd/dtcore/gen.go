package main

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/compression"
	"github.com/ajitpratap0/datatable/pkg/datatable"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/stype"
	"github.com/ajitpratap0/datatable/pkg/tablefile"
)

// genSpec describes a random table.
type genSpec struct {
	rows    int64
	stypes  []string
	naRatio float64
	seed    int64
}

func newGenCommand(a *app) *cobra.Command {
	var (
		spec  genSpec
		out   string
		codec string
	)
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Write a table of random columns",
		Long: `Write a table of random columns, one per --stype, to --out.

Example:
  dtcore gen --rows 1000000 --stype i4i,f8r,i4s --out /tmp/t1 --compression zstd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.storageOptions()
			if err != nil {
				return err
			}
			if codec != "" {
				if opts.Compression, err = compression.ParseAlgorithm(codec); err != nil {
					return err
				}
			}

			timer := metrics.NewTimer()
			dt, err := generate(spec)
			if err != nil {
				return err
			}
			defer dt.Close()
			if err := tablefile.Save(dt, out, opts); err != nil {
				return err
			}

			var size int64
			for i := 0; i < dt.NCols(); i++ {
				c, err := dt.Column(i)
				if err != nil {
					return err
				}
				size += c.Size()
				_ = c.DecRef()
			}
			elapsed := timer.Stop()
			a.log.Info("generated table",
				zap.String("dir", out),
				zap.Int64("rows", spec.rows),
				zap.Strings("stypes", spec.stypes),
				zap.Duration("elapsed", elapsed))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows x %d columns (%s) to %s in %s\n",
				dt.NRows(), dt.NCols(), humanize.Bytes(uint64(size)), out, elapsed)
			return nil
		},
	}
	cmd.Flags().Int64Var(&spec.rows, "rows", 1_000_000, "Number of rows")
	cmd.Flags().StringSliceVar(&spec.stypes, "stype", []string{"i4i", "f8r", "i4s"}, "Column stype codes")
	cmd.Flags().Float64Var(&spec.naRatio, "na-ratio", 0.05, "Fraction of NA values per column")
	cmd.Flags().Int64Var(&spec.seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&out, "out", "", "Output table directory (required)")
	cmd.Flags().StringVar(&codec, "compression", "", "Column codec, overrides storage.compression")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// generate builds the random table described by spec.
func generate(spec genSpec) (*datatable.DataTable, error) {
	if spec.rows < 0 {
		return nil, fmt.Errorf("rows cannot be negative")
	}
	if spec.naRatio < 0 || spec.naRatio > 1 {
		return nil, fmt.Errorf("na-ratio must be in [0, 1], got %g", spec.naRatio)
	}
	r := rand.New(rand.NewSource(spec.seed))
	cols := make([]*column.Column, 0, len(spec.stypes))
	fail := func(err error) (*datatable.DataTable, error) {
		for _, c := range cols {
			_ = c.DecRef()
		}
		return nil, err
	}
	for _, code := range spec.stypes {
		st, err := stype.Parse(strings.TrimSpace(code))
		if err != nil {
			return fail(err)
		}
		c, err := randomColumn(r, st, int(spec.rows), spec.naRatio)
		if err != nil {
			return fail(err)
		}
		cols = append(cols, c)
	}
	dt, err := datatable.New(cols, nil)
	if err != nil {
		return fail(err)
	}
	return dt, nil
}

func randomColumn(r *rand.Rand, st stype.SType, n int, naRatio float64) (*column.Column, error) {
	switch st {
	case stype.Void:
		return column.NewVoid(int64(n))
	case stype.Bool8:
		vals := randomValues(r, n, naRatio, stype.NABool8, func() int8 { return int8(r.Intn(2)) })
		return column.FromBool8(vals)
	case stype.Int8:
		return column.FromValues(randomValues(r, n, naRatio, stype.NAInt8, func() int8 { return int8(r.Intn(255) - 127) }))
	case stype.Int16:
		return column.FromValues(randomValues(r, n, naRatio, stype.NAInt16, func() int16 { return int16(r.Intn(65535) - 32767) }))
	case stype.Int32:
		return column.FromValues(randomValues(r, n, naRatio, stype.NAInt32, func() int32 { return r.Int31n(1_000_000) }))
	case stype.Int64:
		return column.FromValues(randomValues(r, n, naRatio, stype.NAInt64, func() int64 { return r.Int63() - r.Int63() }))
	case stype.Float32:
		return column.FromValues(randomValues(r, n, naRatio, column.NA[float32](), func() float32 { return float32(r.NormFloat64()) }))
	case stype.Float64:
		return column.FromValues(randomValues(r, n, naRatio, column.NA[float64](), r.NormFloat64))
	case stype.Str32, stype.Str64:
		vals := make([]*string, n)
		for i := range vals {
			if r.Float64() >= naRatio {
				s := randomWord(r)
				vals[i] = &s
			}
		}
		return column.FromStrings(st, vals)
	}
	return nil, fmt.Errorf("cannot generate %s columns", st)
}

func randomValues[T column.Scalar](r *rand.Rand, n int, naRatio float64, na T, next func() T) []T {
	vals := make([]T, n)
	for i := range vals {
		if r.Float64() < naRatio {
			vals[i] = na
		} else {
			vals[i] = next()
		}
	}
	return vals
}

const letters = "abcdefghijklmnopqrstuvwxyz"

func randomWord(r *rand.Rand) string {
	b := make([]byte, r.Intn(12))
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}
