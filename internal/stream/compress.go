package stream

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
)

// Compression identifies the transport compression wrapped around an
// event stream. Detection on the read side goes by magic bytes, never
// by file name; the write side picks the codec from the file
// extension.
type Compression uint8

const (
	// CompressionNone indicates a plain text stream.
	CompressionNone Compression = iota

	// CompressionGzip indicates a gzip member stream (.gz).
	CompressionGzip

	// CompressionBzip2 indicates a bzip2 stream (.bz2). Read-only:
	// the standard library ships no bzip2 compressor and the event
	// formats gain nothing over gzip that would justify one.
	CompressionBzip2

	// CompressionXZ indicates an xz container stream (.xz).
	CompressionXZ

	// CompressionZstd indicates a zstd frame stream (.zst).
	CompressionZstd
)

// Magic byte signatures. These are protocol constants of the
// respective container formats.
var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte{'B', 'Z', 'h'}
	magicXZ    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// String returns the human-readable name of a compression codec.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBzip2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// detectCompression peeks at the head of the reader and matches it
// against the known magic signatures. An unwrapped stream is reported
// as CompressionNone, not as an error.
func detectCompression(br *bufio.Reader) (Compression, error) {
	head, err := br.Peek(len(magicXZ))
	if err != nil && err != io.EOF {
		return CompressionNone, errors.Wrap(errors.ErrStream, err.Error())
	}
	switch {
	case bytes.HasPrefix(head, magicGzip):
		return CompressionGzip, nil
	case bytes.HasPrefix(head, magicBzip2):
		return CompressionBzip2, nil
	case bytes.HasPrefix(head, magicXZ):
		return CompressionXZ, nil
	case bytes.HasPrefix(head, magicZstd):
		return CompressionZstd, nil
	}
	return CompressionNone, nil
}

// zstdReadCloser adapts the zstd decoder, which releases resources
// through Close without an error return.
type zstdReadCloser struct{ dec *zstd.Decoder }

func (z zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }
func (z zstdReadCloser) Close() error               { z.dec.Close(); return nil }

// wrapDecompressor layers the matching decompressor over the reader.
// For CompressionNone the reader passes through with a no-op closer.
func wrapDecompressor(br *bufio.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(br), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return zr, nil
	case CompressionBzip2:
		return io.NopCloser(bzip2.NewReader(br)), nil
	case CompressionXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return io.NopCloser(xr), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return zstdReadCloser{dec: zr}, nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedCompression, "codec %d", c)
}

// CompressionForPath maps a file extension to the write-side codec.
// Unknown extensions mean a plain stream.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	case ".xz":
		return CompressionXZ
	case ".zst", ".zstd":
		return CompressionZstd
	}
	return CompressionNone
}

// wrapCompressor layers the matching compressor over the writer.
// Bzip2 has no write path and fails with ErrUnsupportedOperation.
func wrapCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		zw, err := gzip.NewWriterLevel(w, config.DefaultCompressionLevel)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return zw, nil
	case CompressionBzip2:
		return nil, errors.Wrap(errors.ErrUnsupportedOperation, "bzip2 output is not supported")
	case CompressionXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return xw, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		return zw, nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedCompression, "codec %d", c)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
