package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// ParticleReader reads particle rows from a Parquet file.
type ParticleReader struct {
	file   *os.File
	reader *parquet.GenericReader[ParticleRow]
	path   string
}

// NewParticleReader opens a particle Parquet file.
func NewParticleReader(path string) (*ParticleReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	reader := parquet.NewGenericReader[ParticleRow](f)
	return &ParticleReader{file: f, reader: reader, path: path}, nil
}

// Read reads up to n rows from the file.
func (r *ParticleReader) Read(n int) ([]ParticleRow, error) {
	rows := make([]ParticleRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:count], nil
}

// ReadAll reads every row in the file.
func (r *ParticleReader) ReadAll() ([]ParticleRow, error) {
	rows := make([]ParticleRow, r.reader.NumRows())
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *ParticleReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *ParticleReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// EventReader reads event summary rows from a Parquet file.
type EventReader struct {
	file   *os.File
	reader *parquet.GenericReader[EventRow]
	path   string
}

// NewEventReader opens an event summary Parquet file.
func NewEventReader(path string) (*EventReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	reader := parquet.NewGenericReader[EventRow](f)
	return &EventReader{file: f, reader: reader, path: path}, nil
}

// ReadAll reads every row in the file.
func (r *EventReader) ReadAll() ([]EventRow, error) {
	rows := make([]EventRow, r.reader.NumRows())
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *EventReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *EventReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
