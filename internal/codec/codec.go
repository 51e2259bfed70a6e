// Package codec defines the contract shared by the exchange-format
// codecs and the header-signature format detector.
//
// One sub-codec per format lives in a subpackage: hepmc3 (native
// ASCII v3), hepmc2 (native ASCII v2), hepevt (legacy fixed-field
// records), and lhef (XML, read-only). All decoders return events one
// at a time and io.EOF at end of stream; all encoders write one event
// per call and flush on Close.
package codec

import (
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
)

// Decoder materializes events from a byte stream. Decode returns
// io.EOF when the stream is exhausted, a fatal error (corrupt header,
// underlying I/O) that aborts the stream, or the next event.
// Recoverable per-record corruption is skipped and counted, never
// returned as an event.
type Decoder interface {
	Decode() (*event.Event, error)

	// RunInfo returns the stream-level metadata parsed from the
	// header section. Valid after construction; shared by every
	// event the decoder produces.
	RunInfo() *event.RunInfo

	// SkippedRecords returns the number of corrupt records skipped
	// so far.
	SkippedRecords() int64
}

// Encoder dematerializes events onto a byte stream. Close writes any
// trailing footer the format requires and must be called exactly once.
type Encoder interface {
	Encode(*event.Event) error
	Close() error
}

// Format identifies one of the supported exchange formats.
type Format int

const (
	// FormatUnknown is the zero value.
	FormatUnknown Format = iota
	// FormatHepMC3 is the native ASCII v3 format.
	FormatHepMC3
	// FormatHepMC2 is the legacy native ASCII v2 format.
	FormatHepMC2
	// FormatHEPEVT is the legacy fixed-field event record format.
	FormatHEPEVT
	// FormatLHEF is the XML-based Les Houches format (read-only).
	FormatLHEF
)

// String returns the canonical lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatHepMC3:
		return "hepmc3"
	case FormatHepMC2:
		return "hepmc2"
	case FormatHEPEVT:
		return "hepevt"
	case FormatLHEF:
		return "lhef"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as used in CLI flags and config
// files. The error is non-nil for unknown names.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "hepmc3":
		return FormatHepMC3, nil
	case "hepmc2":
		return FormatHepMC2, nil
	case "hepevt":
		return FormatHEPEVT, nil
	case "lhef":
		return FormatLHEF, nil
	default:
		return FormatUnknown, errors.Wrapf(errors.ErrUnrecognizedFormat, "format name %q", s)
	}
}

// Writable reports whether the format supports encoding.
func (f Format) Writable() bool {
	return f == FormatHepMC3 || f == FormatHepMC2 || f == FormatHEPEVT
}
