// Package loader handles configuration file loading and validation
// for the command line tool.
//
// LOCATION: internal/loader/types.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating the result against the known formats and codecs

package loader

import (
	"github.com/xtxerr/hepio/config"
)

// Config is the on-disk tool configuration.
type Config struct {
	// IO controls stream reading and writing.
	IO IOConfig `yaml:"io"`

	// Export controls the columnar export.
	Export ExportConfig `yaml:"export"`

	// Query controls the embedded SQL engine.
	Query QueryConfig `yaml:"query"`

	// Stats controls summary accuracy.
	Stats StatsConfig `yaml:"stats"`

	// Logging controls diagnostic output.
	Logging LoggingConfig `yaml:"logging"`
}

// IOConfig holds the stream defaults.
type IOConfig struct {
	// DefaultFormat is used when an output format is not given on
	// the command line: hepmc3, hepmc2, or hepevt.
	DefaultFormat string `yaml:"default_format"`

	// MaxLineLength bounds a single record line in bytes.
	MaxLineLength int `yaml:"max_line_length"`

	// Workers bounds concurrent file conversions. Zero means one
	// per CPU.
	Workers int `yaml:"workers"`
}

// ExportConfig holds the columnar export defaults.
type ExportConfig struct {
	// Compression is the Parquet codec: zstd, snappy, lz4, gzip,
	// or none.
	Compression string `yaml:"compression"`

	// RowGroupSize is the target number of rows per row group.
	RowGroupSize int `yaml:"row_group_size"`
}

// QueryConfig holds the SQL engine defaults.
type QueryConfig struct {
	// MemoryLimit caps engine memory, e.g. "1GB".
	MemoryLimit string `yaml:"memory_limit"`

	// DefaultLimit bounds result sets without an explicit LIMIT.
	DefaultLimit int `yaml:"default_limit"`
}

// StatsConfig holds summary defaults.
type StatsConfig struct {
	// SketchAccuracy is the relative quantile accuracy, e.g. 0.01.
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// LoggingConfig holds diagnostic output settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		IO: IOConfig{
			DefaultFormat: "hepmc3",
			MaxLineLength: config.DefaultMaxLineLength,
		},
		Export: ExportConfig{
			Compression:  "zstd",
			RowGroupSize: 100000,
		},
		Query: QueryConfig{
			MemoryLimit:  config.DefaultQueryMemoryLimit,
			DefaultLimit: config.DefaultQueryLimit,
		},
		Stats: StatsConfig{
			SketchAccuracy: config.DefaultSketchAccuracy,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
