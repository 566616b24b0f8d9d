package compression

import (
	"encoding/binary"
	"sync/atomic"

	"go.uber.org/zap"

	dterrors "github.com/ajitpratap0/datatable/pkg/errors"
	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/parallel"
)

// Frame container layout, little-endian:
//
//	magic "DTCF" | version u8 | algorithm u8 | reserved u16
//	frame size u32 | frame count u32 | raw size u64
//	frame count x compressed length u32
//	compressed frames, back to back
//
// Raw frame i covers bytes [i*frameSize, min((i+1)*frameSize, rawSize)).
const (
	frameMagic   = "DTCF"
	frameVersion = 1
	headerSize   = 24

	// DefaultFrameSize is the raw size of one independently coded frame.
	DefaultFrameSize = 1 << 20
)

var algorithmCodes = map[Algorithm]byte{None: 0, Gzip: 1, Snappy: 2, LZ4: 3, Zstd: 4, S2: 5}

// FramerConfig configures a Framer.
type FramerConfig struct {
	Algorithm Algorithm
	Level     Level
	FrameSize int // raw bytes per frame, 0 = DefaultFrameSize
}

// Framer splits a buffer into fixed-size frames and codes them in
// parallel on a worker team. Frames are independent, so decoding writes
// each frame straight into its slot of the destination buffer.
type Framer struct {
	comp      Compressor
	team      *parallel.Team
	logger    *zap.Logger
	frameSize int

	bytesProcessed  atomic.Int64
	framesProcessed atomic.Int64
}

// NewFramer creates a Framer. A nil team codes frames on one goroutine.
func NewFramer(cfg FramerConfig, team *parallel.Team, logger *zap.Logger) (*Framer, error) {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if team == nil {
		team = parallel.New(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	comp, err := NewCompressor(&Config{Algorithm: cfg.Algorithm, Level: cfg.Level})
	if err != nil {
		return nil, err
	}
	return &Framer{comp: comp, team: team, logger: logger, frameSize: cfg.FrameSize}, nil
}

// Algorithm returns the codec used for every frame.
func (f *Framer) Algorithm() Algorithm { return f.comp.Algorithm() }

// Encode compresses data into a frame container.
func (f *Framer) Encode(data []byte) ([]byte, error) {
	nframes := (len(data) + f.frameSize - 1) / f.frameSize
	out := make([][]byte, nframes)
	err := f.team.ForErr(nframes, func(i int) error {
		start := i * f.frameSize
		end := min(start+f.frameSize, len(data))
		c, err := f.comp.Compress(data[start:end])
		if err != nil {
			return dterrors.Wrap(err, dterrors.ErrorTypeInternal, "frame compression failed").
				WithDetail("frame", i)
		}
		out[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := headerSize + 4*nframes
	for _, c := range out {
		total += len(c)
	}
	buf := make([]byte, total)
	copy(buf, frameMagic)
	buf[4] = frameVersion
	buf[5] = algorithmCodes[f.comp.Algorithm()]
	binary.LittleEndian.PutUint32(buf[8:], uint32(f.frameSize))
	binary.LittleEndian.PutUint32(buf[12:], uint32(nframes))
	binary.LittleEndian.PutUint64(buf[16:], uint64(len(data)))
	pos := headerSize + 4*nframes
	for i, c := range out {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], uint32(len(c)))
		pos += copy(buf[pos:], c)
	}

	f.account(len(data), nframes, "encode")
	f.logger.Debug("encoded frames",
		zap.String("algorithm", string(f.comp.Algorithm())),
		zap.Int("frames", nframes),
		zap.Int("raw", len(data)),
		zap.Int("compressed", total))
	return buf, nil
}

type frameHeader struct {
	algorithm Algorithm
	frameSize int
	nframes   int
	rawSize   int64
}

func parseHeader(data []byte) (frameHeader, error) {
	var h frameHeader
	if len(data) < headerSize || string(data[:4]) != frameMagic {
		return h, corrupt(nil)
	}
	if data[4] != frameVersion {
		return h, dterrors.Newf(dterrors.ErrorTypeUnsupported, "frame container version %d", data[4])
	}
	found := false
	for a, code := range algorithmCodes {
		if code == data[5] {
			h.algorithm, found = a, true
		}
	}
	if !found {
		return h, corrupt(nil)
	}
	h.frameSize = int(binary.LittleEndian.Uint32(data[8:]))
	h.nframes = int(binary.LittleEndian.Uint32(data[12:]))
	h.rawSize = int64(binary.LittleEndian.Uint64(data[16:]))
	if h.frameSize <= 0 || h.rawSize < 0 ||
		int64(h.nframes) != (h.rawSize+int64(h.frameSize)-1)/int64(h.frameSize) ||
		len(data) < headerSize+4*h.nframes {
		return h, corrupt(nil)
	}
	return h, nil
}

// DecodedSize returns the raw size recorded in a frame container.
func DecodedSize(data []byte) (int64, error) {
	h, err := parseHeader(data)
	if err != nil {
		return 0, err
	}
	return h.rawSize, nil
}

// Decode decompresses a frame container into dst, which must have exactly
// the raw size (see DecodedSize). The container must have been written
// with the Framer's algorithm.
func (f *Framer) Decode(dst, data []byte) error {
	h, err := parseHeader(data)
	if err != nil {
		return err
	}
	if h.algorithm != f.comp.Algorithm() {
		return dterrors.Newf(dterrors.ErrorTypeValidation,
			"frame container holds %s data, framer decodes %s", h.algorithm, f.comp.Algorithm())
	}
	if int64(len(dst)) != h.rawSize {
		return checkLen(int(h.rawSize), len(dst))
	}

	starts := make([]int, h.nframes+1)
	starts[0] = headerSize + 4*h.nframes
	for i := 0; i < h.nframes; i++ {
		starts[i+1] = starts[i] + int(binary.LittleEndian.Uint32(data[headerSize+4*i:]))
		if starts[i+1] > len(data) {
			return corrupt(nil)
		}
	}

	err = f.team.ForErr(h.nframes, func(i int) error {
		start := i * h.frameSize
		end := min(start+h.frameSize, len(dst))
		if err := f.comp.DecompressInto(dst[start:end], data[starts[i]:starts[i+1]]); err != nil {
			return dterrors.Wrap(err, dterrors.ErrorTypeValidation, "frame decompression failed").
				WithDetail("frame", i)
		}
		return nil
	})
	if err != nil {
		return err
	}
	f.account(len(dst), h.nframes, "decode")
	return nil
}

func (f *Framer) account(raw, frames int, direction string) {
	f.bytesProcessed.Add(int64(raw))
	f.framesProcessed.Add(int64(frames))
	metrics.CompressionBytes.WithLabelValues(string(f.comp.Algorithm()), direction).Add(float64(raw))
}

// Stats returns the raw bytes and frames processed so far.
func (f *Framer) Stats() (bytesProcessed, framesProcessed int64) {
	return f.bytesProcessed.Load(), f.framesProcessed.Load()
}
