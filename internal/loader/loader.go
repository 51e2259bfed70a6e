// LOCATION: internal/loader/loader.go

package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/errors"
)

// Load loads configuration from a YAML file. Environment variables in
// the file are expanded before parsing, and missing sections keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its legal values.
func (c *Config) Validate() error {
	v := errors.NewValidationErrors()

	if f, err := codec.ParseFormat(c.IO.DefaultFormat); err != nil {
		v.AddField("io.default_format", "unknown format "+c.IO.DefaultFormat)
	} else if !f.Writable() {
		v.AddField("io.default_format", c.IO.DefaultFormat+" is read-only")
	}
	if c.IO.MaxLineLength <= 0 {
		v.AddField("io.max_line_length", "must be positive")
	}
	if c.IO.Workers < 0 {
		v.AddField("io.workers", "must not be negative")
	}

	switch c.Export.Compression {
	case "none", "snappy", "zstd", "lz4", "gzip":
	default:
		v.AddField("export.compression", "unknown codec "+c.Export.Compression)
	}
	if c.Export.RowGroupSize <= 0 {
		v.AddField("export.row_group_size", "must be positive")
	}

	if c.Query.DefaultLimit <= 0 {
		v.AddField("query.default_limit", "must be positive")
	}

	if c.Stats.SketchAccuracy <= 0 || c.Stats.SketchAccuracy >= 1 {
		v.AddField("stats.sketch_accuracy", "must be in (0, 1)")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		v.AddField("logging.level", "unknown level "+c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		v.AddField("logging.format", "unknown format "+c.Logging.Format)
	}

	return v.Err()
}

// DefaultFormat returns the parsed default output format. Validate
// must have passed.
func (c *Config) DefaultFormat() codec.Format {
	f, err := codec.ParseFormat(c.IO.DefaultFormat)
	if err != nil {
		return codec.FormatHepMC3
	}
	return f
}
