// Package compression provides the codecs used for compressed column
// files. A column buffer is compressed whole, or split into frames that are
// encoded and decoded in parallel (see Framer).
//
// # Algorithm Selection
//
//   - Snappy/S2: fastest decode, moderate ratio
//   - LZ4: very fast, decent ratio
//   - Zstd: best ratio, good speed
//   - Gzip: widest compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	compressed, err := comp.Compress(col.Bytes())
//	original, err := comp.Decompress(compressed)
package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/pool"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None stores the buffer as is
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

var algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

// ParseAlgorithm resolves a configured algorithm name. The empty string
// means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return None, nil
	}
	for _, a := range algorithms {
		if string(a) == name {
			return a, nil
		}
	}
	return None, dterrors.Newf(dterrors.ErrorTypeValidation, "unsupported compression algorithm: %s", name)
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return "unknown"
	}
}

// ParseLevel resolves a configured level name. The empty string means
// Default.
func ParseLevel(name string) (Level, error) {
	for _, l := range []Level{Fastest, Default, Better, Best} {
		if l.String() == name {
			return l, nil
		}
	}
	if name == "" {
		return Default, nil
	}
	return Default, dterrors.Newf(dterrors.ErrorTypeValidation, "unknown compression level: %s", name)
}

// Compressor compresses and decompresses whole buffers. All
// implementations are safe for concurrent use.
type Compressor interface {
	// Compress returns the compressed form of data. data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress returns the original bytes of a Compress result.
	Decompress(data []byte) ([]byte, error)

	// DecompressInto decompresses into dst, which must have exactly the
	// decompressed length.
	DecompressInto(dst, data []byte) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
}

// DefaultConfig returns the configuration used when none is given: zstd
// at the default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: Zstd, Level: Default}
}

// NewCompressor creates a compressor for config. If config is nil,
// DefaultConfig is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{algorithm: config.Algorithm, level: config.Level}

	switch config.Algorithm {
	case None:
		return &noneCompressor{base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case Snappy:
		return &snappyCompressor{base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{base}, nil
	default:
		return nil, dterrors.Newf(dterrors.ErrorTypeValidation,
			"unsupported compression algorithm: %s", config.Algorithm)
	}
}

// buffers holds the scratch buffers of the stream-based codecs.
var buffers = pool.New(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// detach copies a pooled buffer's contents so the buffer can be reused.
func detach(b *bytes.Buffer) []byte {
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	return out
}

// readFull drains r into dst and checks that r holds exactly len(dst)
// bytes.
func readFull(dst []byte, r io.Reader) error {
	if _, err := io.ReadFull(r, dst); err != nil {
		return corrupt(err)
	}
	var probe [1]byte
	if n, _ := r.Read(probe[:]); n != 0 {
		return corrupt(nil)
	}
	return nil
}

func corrupt(cause error) error {
	if cause == nil {
		return dterrors.New(dterrors.ErrorTypeValidation, "corrupted compressed data")
	}
	return dterrors.Wrap(cause, dterrors.ErrorTypeValidation, "corrupted compressed data")
}

func checkLen(want, got int) error {
	if got != want {
		return dterrors.Newf(dterrors.ErrorTypeValidation,
			"decompressed %d bytes, want %d", got, want)
	}
	return nil
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (nc *noneCompressor) DecompressInto(dst, data []byte) error {
	if err := checkLen(len(dst), len(data)); err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	level := mapGzipLevel(base.level)
	gc := &gzipCompressor{baseCompressor: base}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

func (gc *gzipCompressor) reader(data []byte) (*gzip.Reader, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	if err := r.Reset(bytes.NewReader(data)); err != nil {
		gc.readerPool.Put(r)
		return nil, corrupt(err)
	}
	return r, nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gc.reader(data)
	if err != nil {
		return nil, err
	}
	defer gc.readerPool.Put(r)

	buf := buffers.Get()
	defer buffers.Put(buf)
	if _, err := io.Copy(buf, r); err != nil { //nolint:gosec // column files are sized by their descriptor
		return nil, corrupt(err)
	}
	return detach(buf), nil
}

func (gc *gzipCompressor) DecompressInto(dst, data []byte) error {
	r, err := gc.reader(data)
	if err != nil {
		return err
	}
	defer gc.readerPool.Put(r)
	return readFull(dst, r)
}

type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, corrupt(err)
	}
	return out, nil
}

func (sc *snappyCompressor) DecompressInto(dst, data []byte) error {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return corrupt(err)
	}
	if err := checkLen(len(dst), n); err != nil {
		return err
	}
	if _, err := snappy.Decode(dst, data); err != nil {
		return corrupt(err)
	}
	return nil
}

type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	w := lz4.NewWriter(buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return detach(buf), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	buf := buffers.Get()
	defer buffers.Put(buf)
	if _, err := io.Copy(buf, r); err != nil { //nolint:gosec // column files are sized by their descriptor
		return nil, corrupt(err)
	}
	return detach(buf), nil
}

func (lc *lz4Compressor) DecompressInto(dst, data []byte) error {
	return readFull(dst, lz4.NewReader(bytes.NewReader(data)))
}

type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// newZstdCompressor builds one encoder and one decoder; EncodeAll and
// DecodeAll may be called concurrently.
func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(base.level)))
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.ErrorTypeInternal, "failed to create zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, dterrors.Wrap(err, dterrors.ErrorTypeInternal, "failed to create zstd decoder")
	}
	return &zstdCompressor{baseCompressor: base, encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := zc.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, corrupt(err)
	}
	return out, nil
}

func (zc *zstdCompressor) DecompressInto(dst, data []byte) error {
	out, err := zc.decoder.DecodeAll(data, dst[:0])
	if err != nil {
		return corrupt(err)
	}
	if err := checkLen(len(dst), len(out)); err != nil {
		return err
	}
	if len(out) > 0 && &out[0] != &dst[0] {
		copy(dst, out)
	}
	return nil
}

type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	if sc.level >= Better {
		return s2.EncodeBetter(nil, data), nil
	}
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, corrupt(err)
	}
	return out, nil
}

func (sc *s2Compressor) DecompressInto(dst, data []byte) error {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return corrupt(err)
	}
	if err := checkLen(len(dst), n); err != nil {
		return err
	}
	if _, err := s2.Decode(dst, data); err != nil {
		return corrupt(err)
	}
	return nil
}

// Level mapping functions

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Better:
		return 7
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Better:
		return lz4.Level6
	case Best:
		return lz4.Level9
	default:
		return lz4.Level4
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
