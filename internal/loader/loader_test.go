package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/hepio/internal/codec"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hepio.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IO.DefaultFormat != "hepmc3" {
		t.Errorf("default format = %q", cfg.IO.DefaultFormat)
	}
	if cfg.Export.Compression != "zstd" {
		t.Errorf("export compression = %q", cfg.Export.Compression)
	}
	if cfg.DefaultFormat() != codec.FormatHepMC3 {
		t.Errorf("DefaultFormat = %v", cfg.DefaultFormat())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
io:
  default_format: hepmc2
  workers: 4
export:
  compression: snappy
query:
  default_limit: 50
logging:
  level: debug
  format: json
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IO.DefaultFormat != "hepmc2" || cfg.IO.Workers != 4 {
		t.Errorf("io = %+v", cfg.IO)
	}
	if cfg.Export.Compression != "snappy" {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Query.DefaultLimit != 50 {
		t.Errorf("query = %+v", cfg.Query)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.Stats.SketchAccuracy != 0.01 {
		t.Errorf("stats = %+v", cfg.Stats)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("HEPIO_TEST_FORMAT", "hepevt")
	cfg, err := Load(writeConfig(t, "io:\n  default_format: ${HEPIO_TEST_FORMAT}\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IO.DefaultFormat != "hepevt" {
		t.Errorf("default format = %q", cfg.IO.DefaultFormat)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown format", "io:\n  default_format: root\n"},
		{"read-only format", "io:\n  default_format: lhef\n"},
		{"bad compression", "export:\n  compression: brotli\n"},
		{"bad accuracy", "stats:\n  sketch_accuracy: 2\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"negative workers", "io:\n  workers: -1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
