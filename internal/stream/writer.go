package stream

import (
	"io"
	"os"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/codec/hepevt"
	"github.com/xtxerr/hepio/internal/codec/hepmc2"
	"github.com/xtxerr/hepio/internal/codec/hepmc3"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/logging"
)

// WriterOptions control how a write stream is opened.
type WriterOptions struct {
	// Compression overrides the codec chosen from the file
	// extension. Ignored by NewWriter, which has no path to go by
	// and defaults to a plain stream.
	Compression *Compression

	// RunInfo is written into the stream header for formats that
	// carry one. When nil, the first event's run info is used.
	RunInfo *event.RunInfo
}

// Writer pushes events into a possibly compressed stream. The format
// is chosen explicitly; the XML format is rejected because it has no
// write path.
type Writer struct {
	enc    codec.Encoder
	comp   io.WriteCloser
	file   *os.File
	events int64
	closed bool
}

// Create creates a file for writing events. Compression defaults to
// the file extension (.gz, .xz, .zst); an unknown extension writes a
// plain stream.
func Create(path string, format codec.Format) (*Writer, error) {
	return CreateWith(path, format, WriterOptions{})
}

// CreateWith creates a file with explicit options.
func CreateWith(path string, format codec.Format, opts WriterOptions) (*Writer, error) {
	compression := CompressionForPath(path)
	if opts.Compression != nil {
		compression = *opts.Compression
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStream, "create %s: %v", path, err)
	}
	w, err := newWriter(f, format, compression, opts.RunInfo)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	w.file = f
	logging.Info("stream created",
		"path", path,
		"format", format.String(),
		"compression", compression.String())
	return w, nil
}

// NewWriter wraps an arbitrary byte stream with an uncompressed
// encoder for the given format.
func NewWriter(dst io.Writer, format codec.Format, opts WriterOptions) (*Writer, error) {
	compression := CompressionNone
	if opts.Compression != nil {
		compression = *opts.Compression
	}
	return newWriter(dst, format, compression, opts.RunInfo)
}

func newWriter(dst io.Writer, format codec.Format, compression Compression, run *event.RunInfo) (*Writer, error) {
	if !format.Writable() {
		return nil, errors.Wrapf(errors.ErrUnsupportedOperation,
			"format %s is read-only", format)
	}

	comp, err := wrapCompressor(dst, compression)
	if err != nil {
		return nil, err
	}
	var enc codec.Encoder
	switch format {
	case codec.FormatHepMC3:
		enc = hepmc3.NewWriter(comp, run)
	case codec.FormatHepMC2:
		enc = hepmc2.NewWriter(comp, run)
	case codec.FormatHEPEVT:
		enc = hepevt.NewWriter(comp, run)
	default:
		comp.Close()
		return nil, errors.Wrapf(errors.ErrUnrecognizedFormat, "format %d", format)
	}
	return &Writer{enc: enc, comp: comp}, nil
}

// Write encodes one event.
func (w *Writer) Write(ev *event.Event) error {
	if w.closed {
		return errors.ErrClosed
	}
	if err := w.enc.Encode(ev); err != nil {
		return err
	}
	w.events++
	return nil
}

// Events returns the number of events written so far.
func (w *Writer) Events() int64 { return w.events }

// Close finalizes the encoding (trailer, compression frame) and
// closes the backing file, if any. The writer is unusable afterward.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var first error
	if err := w.enc.Close(); err != nil {
		first = err
	}
	if err := w.comp.Close(); err != nil && first == nil {
		first = errors.Wrap(errors.ErrStream, err.Error())
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil && first == nil {
			first = errors.Wrap(errors.ErrStream, err.Error())
		}
		w.file = nil
	}
	return first
}
