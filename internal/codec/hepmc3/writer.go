// Package hepmc3 implements the native ASCII v3 exchange format.
//
// Record lines are tagged by their leading byte:
//
//	E  event header: number, vertex count, particle count
//	U  units: momentum and length
//	W  weights (names in the run section, values in the event section)
//	T  tool descriptor, fields separated by an escaped pipe
//	A  attribute: owner id (0 event, <0 vertex, >0 particle), key, value
//	C  cross-section: value, uncertainty, accepted, attempted
//	H  heavy-ion record
//	V  vertex: id, status, bracketed incoming particle list, position
//	P  particle: id, production vertex, PDG id, momentum, mass, status
//
// The listing opens with a version line and a START marker and closes
// with an END marker; both are protocol constants.
package hepmc3

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/validation"
)

const (
	headerVersion = "HepMC::Version " + config.HepMC3Version
	listingStart  = "HepMC::Asciiv3-START_EVENT_LISTING"
	listingEnd    = "HepMC::Asciiv3-END_EVENT_LISTING"
)

// Writer encodes events in the Asciiv3 format. The header (including
// the run info section) is written on the first Encode call; Close
// writes the END marker.
type Writer struct {
	w      *bufio.Writer
	run    *event.RunInfo
	opened bool
	closed bool
}

// NewWriter creates an Asciiv3 writer. run may be nil, in which case
// the first event's run info (if any) is written instead.
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
		if err := w.writeHeader(); err != nil {
			return err
		}
		w.opened = true
	}

	if err := w.writeEventHeader(ev); err != nil {
		return err
	}
	if err := w.writeAttributes(ev); err != nil {
		return err
	}
	for _, v := range ev.Vertices() {
		w.writeVertex(v)
	}
	for _, p := range ev.Particles() {
		w.writeParticle(p)
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
		// An empty stream still carries a valid header.
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	fmt.Fprintln(w.w, listingEnd)
	if err := w.w.Flush(); err != nil {
		return errors.Wrap(errors.ErrStream, err.Error())
	}
	return nil
}

func (w *Writer) writeHeader() error {
	fmt.Fprintln(w.w, headerVersion)
	fmt.Fprintln(w.w, listingStart)
	if w.run != nil {
		if len(w.run.WeightNames) > 0 {
			// Names are listed unquoted, so a space would shift
			// every column after it.
			if err := validation.ValidateWeightNames(w.run.WeightNames, validation.BareWeightNameRules()); err != nil {
				return errors.Wrap(errors.ErrUnsupportedAttribute, err.Error())
			}
			fmt.Fprintln(w.w, "W "+strings.Join(w.run.WeightNames, " "))
		}
		for _, t := range w.run.Tools {
			for _, f := range []string{t.Name, t.Version, t.Description} {
				if err := validation.ValidateToolField(f); err != nil {
					return errors.Wrap(errors.ErrUnsupportedAttribute, err.Error())
				}
			}
			fmt.Fprintf(w.w, "T %s\\|%s\\|%s\n",
				escapeTool(t.Name), escapeTool(t.Version), escapeTool(t.Description))
		}
		if err := w.writeAttrMap(w.run.Attributes, ""); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeEventHeader(ev *event.Event) error {
	fmt.Fprintf(w.w, "E %d %d %d\n", ev.EventNumber, ev.NumVertices(), ev.NumParticles())
	fmt.Fprintln(w.w, "U "+ev.Units.String())
	if len(ev.Weights) > 0 {
		parts := make([]string, len(ev.Weights))
		for i, v := range ev.Weights {
			parts[i] = formatFloat(v)
		}
		fmt.Fprintln(w.w, "W "+strings.Join(parts, " "))
	}
	if cs := ev.CrossSection; cs != nil {
		fmt.Fprintf(w.w, "C %s %s %d %d\n",
			formatFloat(cs.Value), formatFloat(cs.Uncertainty), cs.Accepted, cs.Attempted)
	}
	if hi := ev.HeavyIon; hi != nil {
		fmt.Fprintf(w.w, "H %d %d %d %d %d %d %d %d %d %s %s %s %s %s\n",
			hi.NCollHard, hi.NPartProj, hi.NPartTarg, hi.NColl,
			hi.SpectatorNeutrons, hi.SpectatorProtons,
			hi.NNwoundedCollisions, hi.NwoundedNCollisions, hi.NwoundedNwoundedCollisions,
			formatFloat(hi.ImpactParameter), formatFloat(hi.EventPlaneAngle),
			formatFloat(hi.Eccentricity), formatFloat(hi.SigmaInelNN),
			formatFloat(hi.Centrality))
	}
	return nil
}

// writeAttributes writes the event's attribute records: event
// attributes under owner id 0, then vertex and particle attributes
// under their ids.
func (w *Writer) writeAttributes(ev *event.Event) error {
	if err := w.writeAttrMap(ev.Attributes, "0"); err != nil {
		return err
	}
	for _, v := range ev.Vertices() {
		if err := w.writeAttrMap(v.Attributes, strconv.Itoa(v.ID())); err != nil {
			return err
		}
	}
	for _, p := range ev.Particles() {
		if err := w.writeAttrMap(p.Attributes, strconv.Itoa(p.ID())); err != nil {
			return err
		}
	}
	return nil
}

// writeAttrMap writes one owner's attributes in sorted key order so
// output is deterministic. owner is empty in the run info section.
func (w *Writer) writeAttrMap(m event.Attributes, owner string) error {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := validation.ValidateAttributeKey(k); err != nil {
			return errors.Wrapf(errors.ErrUnsupportedAttribute, "key %q: %v", k, err)
		}
		a, _ := m.Get(k)
		if owner == "" {
			fmt.Fprintf(w.w, "A %s %s\n", k, encodeAttr(a))
		} else {
			fmt.Fprintf(w.w, "A %s %s %s\n", owner, k, encodeAttr(a))
		}
	}
	return nil
}

func (w *Writer) writeVertex(v *event.Vertex) {
	in := v.ParticlesIn()
	parts := make([]string, len(in))
	for i, id := range in {
		parts[i] = strconv.Itoa(id)
	}
	line := fmt.Sprintf("V %d %d [%s]", v.ID(), v.Status, strings.Join(parts, ","))
	if pos, ok := v.Position(); ok {
		line += fmt.Sprintf(" @ %s %s %s %s",
			formatFloat(pos.X), formatFloat(pos.Y), formatFloat(pos.Z), formatFloat(pos.T))
	}
	fmt.Fprintln(w.w, line)
}

func (w *Writer) writeParticle(p *event.Particle) {
	fmt.Fprintf(w.w, "P %d %d %d %s %s %s %s %s %d\n",
		p.ID(), p.ProductionVertex(), p.PID,
		formatFloat(p.Momentum.X), formatFloat(p.Momentum.Y),
		formatFloat(p.Momentum.Z), formatFloat(p.Momentum.T),
		formatFloat(p.GeneratedMass()), p.Status)
}

// escapeTool keeps tool fields on one line. The field separator is
// the two-byte sequence `\|`; a bare pipe inside a field is harmless.
func escapeTool(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\\|", "|")
}
