package hepevt

import (
	"bufio"
	"fmt"
	"io"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
)

// Writer encodes events in the fixed-field legacy format.
type Writer struct {
	w      *bufio.Writer
	closed bool
}

// NewWriter creates a legacy-format writer. Run info has no
// representation in this format and is ignored.
func NewWriter(w io.Writer, _ *event.RunInfo) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, config.DefaultBufferSize)}
}

// Encode writes one event.
func (w *Writer) Encode(ev *event.Event) error {
	if w.closed {
		return errors.ErrClosed
	}

	particles := ev.Particles()
	fmt.Fprintf(w.w, "E %d %d\n", ev.EventNumber, len(particles))

	for _, p := range particles {
		mo1, mo2 := indexSpan(ev, p.ProductionVertex(), incomingOf)
		da1, da2 := indexSpan(ev, p.EndVertex(), outgoingOf)

		var x, y, z, tm float64
		if v, ok := ev.Vertex(p.ProductionVertex()); ok {
			if pos, has := v.Position(); has {
				x, y, z, tm = pos.X, pos.Y, pos.Z, pos.T
			}
		}

		m := p.Momentum
		fmt.Fprintf(w.w, "%4d %8d %5d %5d %5d %5d %s %s %s %s %s %s %s %s %s\n",
			statusToLegacy(p.Status), p.PID, mo1, mo2, da1, da2,
			formatFloat(m.X), formatFloat(m.Y), formatFloat(m.Z), formatFloat(m.T),
			formatFloat(p.GeneratedMass()),
			formatFloat(x), formatFloat(y), formatFloat(z), formatFloat(tm))
	}

	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.ErrStream, err.Error())
	}
	return nil
}

// Close flushes buffered output. The format has no trailer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.ErrStream, err.Error())
	}
	return nil
}

func incomingOf(v *event.Vertex) []int { return v.ParticlesIn() }
func outgoingOf(v *event.Vertex) []int { return v.ParticlesOut() }

// indexSpan returns the min..max particle index range on one side of
// a vertex, or 0,0 when the vertex is unset or the side is empty.
func indexSpan(ev *event.Event, vertexID int, side func(*event.Vertex) []int) (int, int) {
	if vertexID == 0 {
		return 0, 0
	}
	v, ok := ev.Vertex(vertexID)
	if !ok {
		return 0, 0
	}
	ids := side(v)
	if len(ids) == 0 {
		return 0, 0
	}
	lo, hi := ids[0], ids[0]
	for _, id := range ids[1:] {
		if id < lo {
			lo = id
		}
		if id > hi {
			hi = id
		}
	}
	return lo, hi
}
