// Package hepmc2 implements the legacy ASCII v2 exchange format
// (IO_GenEvent). Records carry explicit barcodes: vertices negative,
// particles positive. Each vertex line is followed by the particles
// attached to it, first the incoming particles that have no
// production vertex of their own, then the outgoing ones; every other
// incoming edge is encoded through the particle's end vertex barcode.
//
// The format predates generic attributes. Event, vertex, and particle
// attribute maps are dropped on write and come back empty on read.
// Vertex positions have no presence flag on the V line either: a
// position set explicitly to the origin is indistinguishable from no
// position at all and reads back as unset.
package hepmc2

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/validation"
)

const (
	headerVersion = "HepMC::Version " + config.HepMC2Version
	listingStart  = "HepMC::IO_GenEvent-START_EVENT_LISTING"
	listingEnd    = "HepMC::IO_GenEvent-END_EVENT_LISTING"
)

// Writer encodes events in the IO_GenEvent format.
//
// Particles connected to no vertex at all cannot be expressed in this
// format directly; they are emitted as the outgoing side of a
// synthesized vertex appended after the real ones. Reading such a
// stream back yields one extra vertex.
type Writer struct {
	w      *bufio.Writer
	run    *event.RunInfo
	opened bool
	closed bool
}

// NewWriter creates an IO_GenEvent writer. run may be nil, in which
// case the first event's run info (if any) is used for weight names.
func NewWriter(w io.Writer, run *event.RunInfo) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, config.DefaultBufferSize), run: run}
}

// Encode writes one event.
func (w *Writer) Encode(ev *event.Event) error {
	if w.closed {
		return errors.ErrClosed
	}
	if !w.opened {
		if w.run == nil {
			w.run = ev.RunInfo()
		}
		fmt.Fprintln(w.w, headerVersion)
		fmt.Fprintln(w.w, listingStart)
		w.opened = true
	}

	free := freeParticles(ev)
	numVertices := ev.NumVertices()
	if len(free) > 0 {
		numVertices++
	}

	// E: number, mpi, scale, alpha_qcd, alpha_qed, signal process id,
	// signal vertex barcode, vertex count, beam barcodes, random
	// state count, weight count, weights.
	fmt.Fprintf(w.w, "E %d -1 -1 -1 -1 0 0 %d 0 0 0 %d", ev.EventNumber, numVertices, len(ev.Weights))
	for _, wt := range ev.Weights {
		fmt.Fprintf(w.w, " %s", formatFloat(wt))
	}
	fmt.Fprintln(w.w)

	if w.run != nil && len(w.run.WeightNames) > 0 {
		if err := validation.ValidateWeightNames(w.run.WeightNames, validation.WeightNameRules()); err != nil {
			return errors.Wrap(errors.ErrUnsupportedAttribute, err.Error())
		}
		fmt.Fprintf(w.w, "N %d", len(w.run.WeightNames))
		for _, name := range w.run.WeightNames {
			fmt.Fprintf(w.w, " %s", strconv.Quote(name))
		}
		fmt.Fprintln(w.w)
	}

	fmt.Fprintf(w.w, "U %s %s\n", ev.Units.Momentum, ev.Units.Length)

	if cs := ev.CrossSection; cs != nil {
		fmt.Fprintf(w.w, "C %s %s\n", formatFloat(cs.Value), formatFloat(cs.Uncertainty))
	}
	if hi := ev.HeavyIon; hi != nil {
		fmt.Fprintf(w.w, "H %d %d %d %d %d %d %d %d %d %s %s %s %s\n",
			hi.NCollHard, hi.NPartProj, hi.NPartTarg, hi.NColl,
			hi.SpectatorNeutrons, hi.SpectatorProtons,
			hi.NNwoundedCollisions, hi.NwoundedNCollisions, hi.NwoundedNwoundedCollisions,
			formatFloat(hi.ImpactParameter), formatFloat(hi.EventPlaneAngle),
			formatFloat(hi.Eccentricity), formatFloat(hi.SigmaInelNN))
	}

	for _, v := range ev.Vertices() {
		w.writeVertex(ev, v)
	}
	if len(free) > 0 {
		fmt.Fprintf(w.w, "V %d 0 0 0 0 0 0 %d 0\n", -(ev.NumVertices() + 1), len(free))
		for _, p := range free {
			w.writeParticle(p, 0)
		}
	}

	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.ErrStream, err.Error())
	}
	return nil
}

// Close writes the END marker and flushes. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.opened {
		fmt.Fprintln(w.w, headerVersion)
		fmt.Fprintln(w.w, listingStart)
	}
	fmt.Fprintln(w.w, listingEnd)
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.ErrStream, err.Error())
	}
	return nil
}

func (w *Writer) writeVertex(ev *event.Event, v *event.Vertex) {
	var orphans []*event.Particle
	for _, pid := range v.ParticlesIn() {
		p, ok := ev.Particle(pid)
		if ok && p.ProductionVertex() == 0 {
			orphans = append(orphans, p)
		}
	}

	pos, _ := v.Position()
	fmt.Fprintf(w.w, "V %d %d %s %s %s %s %d %d 0\n",
		v.ID(), v.Status,
		formatFloat(pos.X), formatFloat(pos.Y), formatFloat(pos.Z), formatFloat(pos.T),
		len(orphans), v.NumOut())

	for _, p := range orphans {
		w.writeParticle(p, v.ID())
	}
	for _, pid := range v.ParticlesOut() {
		if p, ok := ev.Particle(pid); ok {
			w.writeParticle(p, p.EndVertex())
		}
	}
}

func (w *Writer) writeParticle(p *event.Particle, endVertex int) {
	m := p.Momentum
	fmt.Fprintf(w.w, "P %d %d %s %s %s %s %s %d 0 0 %d 0\n",
		p.ID(), p.PID,
		formatFloat(m.X), formatFloat(m.Y), formatFloat(m.Z), formatFloat(m.T),
		formatFloat(p.GeneratedMass()), p.Status, endVertex)
}

// freeParticles returns particles attached to no vertex, in id order.
func freeParticles(ev *event.Event) []*event.Particle {
	var free []*event.Particle
	for _, p := range ev.Particles() {
		if p.ProductionVertex() == 0 && p.EndVertex() == 0 {
			free = append(free, p)
		}
	}
	return free
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
