package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/hepio/internal/event"
)

// Options configures the Parquet writers.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:  CompressionZstd,
		RowGroupSize: 100000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ParticleRow is one particle flattened for columnar storage.
type ParticleRow struct {
	EventNumber      int64   `parquet:"event_number"`
	ParticleID       int32   `parquet:"particle_id"`
	PID              int32   `parquet:"pid"`
	Status           int32   `parquet:"status"`
	Px               float64 `parquet:"px"`
	Py               float64 `parquet:"py"`
	Pz               float64 `parquet:"pz"`
	E                float64 `parquet:"e"`
	Mass             float64 `parquet:"mass"`
	Pt               float64 `parquet:"pt"`
	Eta              float64 `parquet:"eta"`
	Phi              float64 `parquet:"phi"`
	ProductionVertex int32   `parquet:"production_vertex"`
	EndVertex        int32   `parquet:"end_vertex"`
}

// EventRow is the per-event summary record.
type EventRow struct {
	EventNumber       int64   `parquet:"event_number"`
	NumParticles      int32   `parquet:"num_particles"`
	NumVertices       int32   `parquet:"num_vertices"`
	Weight            float64 `parquet:"weight"`
	MomentumUnit      string  `parquet:"momentum_unit,zstd"`
	LengthUnit        string  `parquet:"length_unit,zstd"`
	CrossSection      float64 `parquet:"cross_section,optional"`
	CrossSectionError float64 `parquet:"cross_section_error,optional"`
}

// ParticleToRow flattens one particle of an event.
func ParticleToRow(ev *event.Event, p *event.Particle) ParticleRow {
	return ParticleRow{
		EventNumber:      int64(ev.EventNumber),
		ParticleID:       int32(p.ID()),
		PID:              int32(p.PID),
		Status:           int32(p.Status),
		Px:               p.Momentum.Px(),
		Py:               p.Momentum.Py(),
		Pz:               p.Momentum.Pz(),
		E:                p.Momentum.E(),
		Mass:             p.GeneratedMass(),
		Pt:               p.Momentum.Pt(),
		Eta:              p.Momentum.Eta(),
		Phi:              p.Momentum.Phi(),
		ProductionVertex: int32(p.ProductionVertex()),
		EndVertex:        int32(p.EndVertex()),
	}
}

// EventToRow summarizes one event.
func EventToRow(ev *event.Event) EventRow {
	row := EventRow{
		EventNumber:  int64(ev.EventNumber),
		NumParticles: int32(ev.NumParticles()),
		NumVertices:  int32(ev.NumVertices()),
		MomentumUnit: ev.Units.Momentum.String(),
		LengthUnit:   ev.Units.Length.String(),
	}
	if len(ev.Weights) > 0 {
		row.Weight = ev.Weights[0]
	} else {
		row.Weight = 1.0
	}
	if cs := ev.CrossSection; cs != nil {
		row.CrossSection = cs.Value
		row.CrossSectionError = cs.Uncertainty
	}
	return row
}

// ParticleWriter writes particle rows to a Parquet file.
type ParticleWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[ParticleRow]
	rowCount int64
	closed   bool
}

// NewParticleWriter creates a new particle Parquet writer.
func NewParticleWriter(path string, opts Options) (*ParticleWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	writer := parquet.NewGenericWriter[ParticleRow](f,
		parquet.Compression(getCompression(opts.Compression)))
	return &ParticleWriter{path: path, file: f, writer: writer}, nil
}

// WriteEvent flattens and writes every particle of one event.
func (w *ParticleWriter) WriteEvent(ev *event.Event) error {
	particles := ev.Particles()
	rows := make([]ParticleRow, len(particles))
	for i, p := range particles {
		rows[i] = ParticleToRow(ev, p)
	}
	return w.Write(rows)
}

// Write writes particle rows to the Parquet file.
func (w *ParticleWriter) Write(rows []ParticleRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.rowCount += int64(n)
	return nil
}

// Close closes the writer.
func (w *ParticleWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *ParticleWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *ParticleWriter) Path() string {
	return w.path
}

// EventWriter writes event summary rows to a Parquet file.
type EventWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[EventRow]
	rowCount int64
	closed   bool
}

// NewEventWriter creates a new event summary Parquet writer.
func NewEventWriter(path string, opts Options) (*EventWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	writer := parquet.NewGenericWriter[EventRow](f,
		parquet.Compression(getCompression(opts.Compression)))
	return &EventWriter{path: path, file: f, writer: writer}, nil
}

// WriteEvent writes one event summary row.
func (w *EventWriter) WriteEvent(ev *event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	n, err := w.writer.Write([]EventRow{EventToRow(ev)})
	if err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.rowCount += int64(n)
	return nil
}

// Close closes the writer.
func (w *EventWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *EventWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// ErrWriterClosed is returned on writes after Close.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}
