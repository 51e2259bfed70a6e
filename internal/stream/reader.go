// Package stream adapts the exchange-format codecs to files and byte
// streams. The read side stacks three probes before the first event
// comes out: magic-byte compression detection, transparent
// decompression, and header-signature format detection. The write
// side picks compression from the output file extension and the
// codec from an explicit format choice.
package stream

import (
	"bufio"
	"io"
	"os"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/codec/hepevt"
	"github.com/xtxerr/hepio/internal/codec/hepmc2"
	"github.com/xtxerr/hepio/internal/codec/hepmc3"
	"github.com/xtxerr/hepio/internal/codec/lhef"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/logging"
)

// ReaderOptions control how a read stream is opened.
type ReaderOptions struct {
	// Format forces a codec instead of detecting one from the
	// stream head. Leave as FormatUnknown to detect.
	Format codec.Format
}

// Stats describes what a reader has seen so far.
type Stats struct {
	Events         int64
	SkippedRecords int64
	Format         codec.Format
	Compression    Compression
}

// Reader pulls events out of a possibly compressed stream. The usage
// pattern follows append-log iteration:
//
//	for r.Next() {
//	    ev := r.Event()
//	    ...
//	}
//	if err := r.Err(); err != nil { ... }
//
// Close releases the decompressor and, for file-backed readers, the
// file. It is safe to call after a failed iteration.
type Reader struct {
	decomp io.ReadCloser
	file   *os.File
	dec    codec.Decoder

	format      codec.Format
	compression Compression

	current *event.Event
	events  int64
	err     error
	done    bool
}

// Open opens a file for reading events, detecting compression and
// format from its content.
func Open(path string) (*Reader, error) {
	return OpenWith(path, ReaderOptions{})
}

// OpenWith opens a file with explicit options.
func OpenWith(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStream, "open %s: %v", path, err)
	}
	r, err := NewReaderWith(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f
	logging.Info("stream opened",
		"path", path,
		"format", r.format.String(),
		"compression", r.compression.String())
	return r, nil
}

// NewReader wraps an arbitrary byte stream.
func NewReader(src io.Reader) (*Reader, error) {
	return NewReaderWith(src, ReaderOptions{})
}

// NewReaderWith wraps a byte stream with explicit options.
func NewReaderWith(src io.Reader, opts ReaderOptions) (*Reader, error) {
	outer := bufio.NewReaderSize(src, config.DefaultBufferSize)

	compression, err := detectCompression(outer)
	if err != nil {
		return nil, err
	}
	decomp, err := wrapDecompressor(outer, compression)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(decomp, config.DefaultBufferSize)
	format := opts.Format
	if format == codec.FormatUnknown {
		if format, err = codec.Detect(br); err != nil {
			decomp.Close()
			return nil, err
		}
	}

	dec, err := newDecoder(format, br)
	if err != nil {
		decomp.Close()
		return nil, err
	}
	return &Reader{
		decomp:      decomp,
		dec:         dec,
		format:      format,
		compression: compression,
	}, nil
}

// newDecoder builds the codec for a detected or forced format.
func newDecoder(f codec.Format, br *bufio.Reader) (codec.Decoder, error) {
	switch f {
	case codec.FormatHepMC3:
		return hepmc3.NewReader(br)
	case codec.FormatHepMC2:
		return hepmc2.NewReader(br)
	case codec.FormatHEPEVT:
		return hepevt.NewReader(br)
	case codec.FormatLHEF:
		return lhef.NewReader(br)
	}
	return nil, errors.Wrapf(errors.ErrUnrecognizedFormat, "format %d", f)
}

// Next advances to the next event. It returns false at end of stream
// or on error; Err distinguishes the two.
func (r *Reader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	ev, err := r.dec.Decode()
	if err == io.EOF {
		r.done = true
		r.current = nil
		return false
	}
	if err != nil {
		r.err = err
		r.current = nil
		return false
	}
	r.current = ev
	r.events++
	return true
}

// Event returns the event read by the last successful Next.
func (r *Reader) Event() *event.Event { return r.current }

// Err returns the first fatal error encountered, or nil after a
// clean end of stream.
func (r *Reader) Err() error { return r.err }

// Format returns the detected or forced stream format.
func (r *Reader) Format() codec.Format { return r.format }

// RunInfo returns the stream-level run info, shared by all events.
func (r *Reader) RunInfo() *event.RunInfo { return r.dec.RunInfo() }

// Stats returns counters for the stream so far.
func (r *Reader) Stats() Stats {
	return Stats{
		Events:         r.events,
		SkippedRecords: r.dec.SkippedRecords(),
		Format:         r.format,
		Compression:    r.compression,
	}
}

// Close releases the decompressor and the backing file, if any.
func (r *Reader) Close() error {
	var first error
	if r.decomp != nil {
		if err := r.decomp.Close(); err != nil && first == nil {
			first = err
		}
		r.decomp = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
		r.file = nil
	}
	return first
}
