// Package config provides the configuration for the storage engine.
// A single Config structure groups the tunables of every component:
//   - Parallel: worker count and chunk sizing for parallel regions
//   - Sort: insertion-sort threshold and radix width
//   - Storage: on-disk table directory, compression, mmap loading
//   - Logging: zap level and encoding
//   - Metrics: prometheus exposition
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Parallel.Workers = 8
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
)

// Config is the engine configuration.
type Config struct {
	// Parallel controls the worker team used by parallel regions
	Parallel ParallelConfig `yaml:"parallel" json:"parallel"`

	// Sort tunes the sort engine
	Sort SortConfig `yaml:"sort" json:"sort"`

	// Storage controls how tables are persisted
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configures the global zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics configures prometheus exposition
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ParallelConfig contains worker pool settings.
type ParallelConfig struct {
	// Workers is the size of the worker team (0 = NumCPU)
	Workers int `yaml:"workers" json:"workers"`
	// MinChunkRows is the smallest chunk a parallel region splits rows into
	MinChunkRows int `yaml:"min_chunk_rows" json:"min_chunk_rows"`
}

// SortConfig contains sort engine settings.
type SortConfig struct {
	// InsertThreshold is the input size at or below which insertion sort is used
	InsertThreshold int `yaml:"insert_threshold" json:"insert_threshold"`
	// MaxRadixBits caps the number of bits consumed by one radix pass
	MaxRadixBits int `yaml:"max_radix_bits" json:"max_radix_bits"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Dir is the default table directory
	Dir string `yaml:"dir" json:"dir"`
	// Compression selects the codec for column files (none, zstd, lz4, snappy, s2, gzip)
	Compression string `yaml:"compression" json:"compression"`
	// CompressionLevel is one of fastest, default, better, best
	CompressionLevel string `yaml:"compression_level" json:"compression_level"`
	// MmapLoads maps raw column files instead of reading them into memory
	MmapLoads bool `yaml:"mmap_loads" json:"mmap_loads"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding"`
	// Development enables colored levels and stack traces on errors
	Development bool `yaml:"development" json:"development"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled turns on the /metrics endpoint in the CLI
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Addr is the listen address of the /metrics endpoint
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	return &Config{
		Parallel: ParallelConfig{
			Workers:      runtime.NumCPU(),
			MinChunkRows: 1024,
		},
		Sort: SortConfig{
			InsertThreshold: 64,
			MaxRadixBits:    16,
		},
		Storage: StorageConfig{
			Dir:              ".",
			Compression:      "none",
			CompressionLevel: "default",
			MmapLoads:        true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9102",
		},
	}
}

// Validate checks that every value is within its accepted range.
func (c *Config) Validate() error {
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("parallel.workers cannot be negative")
	}
	if c.Parallel.MinChunkRows <= 0 {
		return fmt.Errorf("parallel.min_chunk_rows must be positive")
	}
	if c.Sort.InsertThreshold < 0 {
		return fmt.Errorf("sort.insert_threshold cannot be negative")
	}
	if c.Sort.MaxRadixBits < 1 || c.Sort.MaxRadixBits > 16 {
		return fmt.Errorf("sort.max_radix_bits must be in [1, 16], got %d", c.Sort.MaxRadixBits)
	}
	switch c.Storage.Compression {
	case "", "none", "zstd", "lz4", "snappy", "s2", "gzip":
	default:
		return fmt.Errorf("storage.compression %q is not supported", c.Storage.Compression)
	}
	switch c.Storage.CompressionLevel {
	case "", "fastest", "default", "better", "best":
	default:
		return fmt.Errorf("storage.compression_level %q is not supported", c.Storage.CompressionLevel)
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (p *ParallelConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// IsCompressionEnabled returns true if column files should be compressed
func (s *StorageConfig) IsCompressionEnabled() bool {
	return s.Compression != "" && s.Compression != "none"
}
