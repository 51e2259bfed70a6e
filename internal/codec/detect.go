package codec

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
)

// Header signatures. These are protocol constants shared with the
// native library; changing them breaks interoperability.
const (
	hepmcVersionPrefix = "HepMC::Version"
	asciiv3Start       = "HepMC::Asciiv3-START_EVENT_LISTING"
	genEventStart      = "HepMC::IO_GenEvent-START_EVENT_LISTING"
	lhefRootPrefix     = "<LesHouchesEvents"
	xmlDeclPrefix      = "<?xml"
)

// Detect probes the head of the stream and commits to the first
// matching format, in fixed priority order: native ASCII v3, native
// ASCII v2, the XML markup format, then the legacy fixed-field
// framing as a fallback. The reader is only peeked, never consumed,
// so the committed codec re-reads its own header.
//
// A stream matching no signature fails with ErrUnrecognizedFormat.
func Detect(br *bufio.Reader) (Format, error) {
	window, err := peekWindow(br)
	if err != nil {
		return FormatUnknown, err
	}

	first := firstNonBlankLine(window)
	if first == "" {
		return FormatUnknown, errors.Wrap(errors.ErrUnrecognizedFormat, "empty stream")
	}

	switch {
	case strings.HasPrefix(first, hepmcVersionPrefix):
		// Both native ASCII versions share the version line; the
		// listing-start line that follows disambiguates them.
		if strings.Contains(window, asciiv3Start) {
			return FormatHepMC3, nil
		}
		if strings.Contains(window, genEventStart) {
			return FormatHepMC2, nil
		}
		return FormatUnknown, errors.NewCorruptHeader("version line without event listing start")

	case strings.HasPrefix(first, lhefRootPrefix), strings.HasPrefix(first, xmlDeclPrefix):
		return FormatLHEF, nil

	case looksLikeHEPEVTHeader(first):
		return FormatHEPEVT, nil
	}

	return FormatUnknown, errors.Wrapf(errors.ErrUnrecognizedFormat, "header %q", truncate(first, 40))
}

// peekWindow returns up to DetectPeekSize bytes from the head of the
// reader without consuming them. A short stream is not an error here;
// whatever is available is inspected.
func peekWindow(br *bufio.Reader) (string, error) {
	window, err := br.Peek(config.DetectPeekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", errors.Wrap(errors.ErrStream, err.Error())
	}
	return string(window), nil
}

func firstNonBlankLine(window string) string {
	for _, line := range strings.Split(window, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// looksLikeHEPEVTHeader reports whether the line matches the legacy
// event header framing: "E <event_number> <nparticles>".
func looksLikeHEPEVTHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "E" {
		return false
	}
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return false
	}
	n, err := strconv.Atoi(fields[2])
	return err == nil && n >= 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
