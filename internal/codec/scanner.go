package codec

import (
	"bufio"
	"io"
	"strings"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
)

// LineScanner reads a text stream line by line, tracking the 1-based
// line number for error reporting. Lines are returned without the
// trailing newline; a final line without one is still returned. Lines
// longer than the configured maximum abort with ErrCorruptRecord.
type LineScanner struct {
	br   *bufio.Reader
	line int
	max  int
}

// NewLineScanner wraps a bufio.Reader.
func NewLineScanner(br *bufio.Reader) *LineScanner {
	return &LineScanner{br: br, max: config.DefaultMaxLineLength}
}

// Next returns the next line. It returns io.EOF when the stream is
// exhausted and ErrStream on underlying I/O failure.
func (s *LineScanner) Next() (string, error) {
	line, err := s.br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", io.EOF
			}
			// Final line without a newline.
			s.line++
			return strings.TrimRight(line, "\r"), nil
		}
		return "", errors.Wrap(errors.ErrStream, err.Error())
	}
	s.line++
	if len(line) > s.max {
		return "", errors.NewCorruptRecord(s.line, "line exceeds maximum length")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Line returns the number of the most recently returned line.
func (s *LineScanner) Line() int {
	return s.line
}
