package tablefile

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/column"
	"github.com/ajitpratap0/datatable/pkg/compression"
	"github.com/ajitpratap0/datatable/pkg/config"
	"github.com/ajitpratap0/datatable/pkg/datatable"
	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/logger"
	"github.com/ajitpratap0/datatable/pkg/parallel"
	"github.com/ajitpratap0/datatable/pkg/stype"
)

// Options controls how tables are written and read.
type Options struct {
	// Compression is the codec for column files written by Save. None
	// writes raw buffers.
	Compression compression.Algorithm
	Level       compression.Level
	// FrameSize is the raw size of one compressed frame, 0 for the default.
	FrameSize int
	// Mmap maps raw column files on Load instead of reading them into
	// heap storage.
	Mmap bool
	// Team codes compressed frames; nil means one worker.
	Team   *parallel.Team
	Logger *zap.Logger
}

// DefaultOptions writes raw files and maps them on load.
func DefaultOptions() Options {
	return Options{Compression: compression.None, Level: compression.Default, Mmap: true}
}

// OptionsFromConfig builds Options from the storage section of cfg.
func OptionsFromConfig(cfg *config.Config, team *parallel.Team) (Options, error) {
	alg, err := compression.ParseAlgorithm(cfg.Storage.Compression)
	if err != nil {
		return Options{}, err
	}
	level, err := compression.ParseLevel(cfg.Storage.CompressionLevel)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Compression: alg,
		Level:       level,
		Mmap:        cfg.Storage.MmapLoads,
		Team:        team,
		Logger:      logger.Get(),
	}, nil
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return logger.Get()
	}
	return o.Logger
}

func (o *Options) framer(alg compression.Algorithm) (*compression.Framer, error) {
	return compression.NewFramer(compression.FramerConfig{
		Algorithm: alg,
		Level:     o.Level,
		FrameSize: o.FrameSize,
	}, o.Team, o.logger())
}

func fileName(i int, alg compression.Algorithm) string {
	if alg == compression.None {
		return fmt.Sprintf("c%d.bin", i)
	}
	return fmt.Sprintf("c%d.%s", i, alg)
}

// Save writes dt into dir, creating the directory if needed. Views are
// written as their materialized rows; dt itself is not modified. Files of
// an earlier table in dir are overwritten column by column and the
// descriptor is replaced last.
func Save(dt *datatable.DataTable, dir string, opts Options) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dterrors.IOError(err, "mkdir", dir)
	}
	var framer *compression.Framer
	if opts.Compression != compression.None && opts.Compression != "" {
		f, err := opts.framer(opts.Compression)
		if err != nil {
			return err
		}
		framer = f
	}

	desc := &Descriptor{Version: Version, NRows: dt.NRows(), Columns: make([]ColumnEntry, dt.NCols())}
	for i := range desc.Columns {
		c, err := dt.Column(i)
		if err != nil {
			return err
		}
		entry, err := saveColumn(c, dir, i, framer)
		_ = c.DecRef()
		if err != nil {
			return err
		}
		desc.Columns[i] = entry
	}
	if err := writeDescriptor(dir, desc); err != nil {
		return err
	}
	opts.logger().Info("saved table",
		zap.String("dir", dir),
		zap.Int("ncols", len(desc.Columns)),
		zap.Int64("nrows", desc.NRows),
		zap.String("compression", string(opts.Compression)))
	return nil
}

func saveColumn(c *column.Column, dir string, i int, framer *compression.Framer) (ColumnEntry, error) {
	entry := ColumnEntry{
		SType: c.SType().String(),
		NRows: c.NRows(),
		Meta:  c.MetaString(),
		Size:  c.Size(),
	}
	if c.SType() == stype.Void {
		return entry, nil
	}
	if framer == nil {
		entry.File = fileName(i, compression.None)
		entry.StoredSize = entry.Size
		return entry, c.SaveToDisk(filepath.Join(dir, entry.File))
	}

	encoded, err := framer.Encode(c.Bytes())
	if err != nil {
		return entry, err
	}
	entry.File = fileName(i, framer.Algorithm())
	entry.Compression = string(framer.Algorithm())
	entry.StoredSize = int64(len(encoded))
	path := filepath.Join(dir, entry.File)
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return entry, dterrors.IOError(err, "write", path)
	}
	return entry, nil
}

// Load reads the table stored in dir. The returned table owns its columns.
func Load(dir string, opts Options) (*datatable.DataTable, error) {
	desc, err := ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	framers := map[compression.Algorithm]*compression.Framer{}
	cols := make([]*column.Column, 0, len(desc.Columns))
	fail := func(err error) (*datatable.DataTable, error) {
		for _, c := range cols {
			_ = c.DecRef()
		}
		return nil, err
	}

	for i, e := range desc.Columns {
		c, err := loadColumn(dir, e, &opts, framers)
		if err != nil {
			opts.logger().Warn("failed to load column",
				zap.String("dir", dir),
				zap.Int("column", i),
				zap.String("file", e.File),
				zap.Error(err))
			return fail(err)
		}
		cols = append(cols, c)
	}
	dt, err := datatable.New(cols, nil)
	if err != nil {
		return fail(err)
	}
	opts.logger().Info("loaded table",
		zap.String("dir", dir),
		zap.Int("ncols", len(cols)),
		zap.Int64("nrows", desc.NRows))
	return dt, nil
}

func loadColumn(dir string, e ColumnEntry, opts *Options, framers map[compression.Algorithm]*compression.Framer) (*column.Column, error) {
	st, err := stype.Parse(e.SType)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.ErrorTypeValidation, "unknown column stype")
	}
	if st == stype.Void {
		return column.NewVoid(e.NRows)
	}
	if e.File == "" {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation, "%s column has no file", st)
	}
	path := filepath.Join(dir, e.File)

	alg, err := compression.ParseAlgorithm(e.Compression)
	if err != nil {
		return nil, err
	}
	if alg == compression.None {
		if opts.Mmap {
			return column.LoadFromDisk(path, st, e.NRows, e.Meta)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, dterrors.IOError(err, "read", path)
		}
		return column.LoadFromBytes(data, st, e.NRows, e.Meta)
	}

	framer, ok := framers[alg]
	if !ok {
		if framer, err = opts.framer(alg); err != nil {
			return nil, err
		}
		framers[alg] = framer
	}
	encoded, err := os.ReadFile(path)
	if err != nil {
		return nil, dterrors.IOError(err, "read", path)
	}
	size, err := compression.DecodedSize(encoded)
	if err != nil {
		return nil, err
	}
	if size != e.Size {
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"%s holds %d bytes, descriptor says %d", e.File, size, e.Size)
	}
	raw := make([]byte, size)
	if err := framer.Decode(raw, encoded); err != nil {
		return nil, err
	}
	return column.LoadFromBytes(raw, st, e.NRows, e.Meta)
}
