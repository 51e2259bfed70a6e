package hepmc3

import (
	"bufio"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/logging"
)

// Reader decodes the Asciiv3 format. The header and run info section
// are parsed at construction; Decode then returns one event per call
// and io.EOF after the END marker or end of input.
//
// Malformed records inside an event are skipped to the next
// recognized tag and counted; a malformed header is fatal.
type Reader struct {
	sc   *codec.LineScanner
	run  *event.RunInfo
	log  *slog.Logger
	held string // pushed-back line, consumed before the scanner

	skipped int64
	done    bool
}

// NewReader creates an Asciiv3 reader and parses the header section.
func NewReader(br *bufio.Reader) (*Reader, error) {
	r := &Reader{
		sc:  codec.NewLineScanner(br),
		run: event.NewRunInfo(),
		log: logging.Component("hepmc3"),
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunInfo returns the shared run info parsed from the header.
func (r *Reader) RunInfo() *event.RunInfo { return r.run }

// SkippedRecords returns the number of corrupt records skipped.
func (r *Reader) SkippedRecords() int64 { return r.skipped }

// readHeader consumes the version line, the START marker, and the run
// info section, stopping just before the first event record.
func (r *Reader) readHeader() error {
	line, err := r.nextNonBlank()
	if err != nil {
		return errors.NewCorruptHeader("missing version line")
	}
	if !strings.HasPrefix(line, "HepMC::Version") {
		return errors.NewCorruptHeader("not an Asciiv3 stream")
	}
	line, err = r.nextNonBlank()
	if err != nil || line != listingStart {
		return errors.NewCorruptHeader("missing event listing start")
	}

	// Run info section: W/T/A records until the first E record.
	for {
		line, err = r.nextNonBlank()
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case strings.HasPrefix(line, "W "):
			r.run.WeightNames = strings.Fields(line[2:])
		case strings.HasPrefix(line, "T "):
			fields := strings.Split(line[2:], "\\|")
			t := event.ToolInfo{}
			if len(fields) > 0 {
				t.Name = fields[0]
			}
			if len(fields) > 1 {
				t.Version = fields[1]
			}
			if len(fields) > 2 {
				t.Description = fields[2]
			}
			r.run.Tools = append(r.run.Tools, t)
		case strings.HasPrefix(line, "A "):
			rest := line[2:]
			idx := strings.IndexByte(rest, ' ')
			if idx <= 0 {
				return errors.NewCorruptHeader("malformed run attribute")
			}
			a, err := decodeAttr(rest[idx+1:])
			if err != nil {
				return errors.NewCorruptHeader("bad run attribute value")
			}
			if err := r.run.Attributes.Set(rest[:idx], a); err != nil {
				return errors.NewCorruptHeader(err.Error())
			}
		case strings.HasPrefix(line, "E "), line == listingEnd:
			r.held = line
			return nil
		default:
			return errors.NewCorruptHeader("unexpected record in run info section: " + tag(line))
		}
	}
}

// Decode returns the next event or io.EOF.
func (r *Reader) Decode() (*event.Event, error) {
	if r.done {
		return nil, io.EOF
	}

	line, err := r.nextNonBlank()
	if err == io.EOF {
		r.done = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if line == listingEnd {
		r.done = true
		return nil, io.EOF
	}
	if !strings.HasPrefix(line, "E ") {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "expected event header, got "+tag(line))
	}

	return r.readEvent(line)
}

// pendingLink defers attribute and edge application until all records
// of the event are read.
type pendingLink struct {
	vertexID int
	incoming []int
}

func (r *Reader) readEvent(header string) (*event.Event, error) {
	fields := strings.Fields(header[2:])
	if len(fields) < 3 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "short event header")
	}
	number, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad event number")
	}

	ev := event.New(number)
	ev.SetRunInfo(r.run)

	var links []pendingLink
	type pendingProd struct{ particleID, vertexID int }
	var prods []pendingProd
	type pendingAttr struct {
		owner int
		key   string
		value event.Attribute
	}
	var attrs []pendingAttr

	for {
		line, err := r.nextNonBlank()
		if err == io.EOF {
			r.done = true
			break
		}
		if err != nil {
			return nil, err
		}
		if line == listingEnd {
			r.done = true
			break
		}
		if strings.HasPrefix(line, "E ") {
			r.held = line
			break
		}

		if err := r.readRecord(ev, line, &links, func(pid, vid int) {
			prods = append(prods, pendingProd{pid, vid})
		}, func(owner int, key string, a event.Attribute) {
			attrs = append(attrs, pendingAttr{owner, key, a})
		}); err != nil {
			r.skip(err)
		}
	}

	// Apply deferred links now that every id is known.
	for _, pr := range prods {
		if err := ev.AddParticleOut(pr.vertexID, pr.particleID); err != nil {
			r.skip(errors.NewCorruptRecord(r.sc.Line(), err.Error()))
		}
	}
	for _, l := range links {
		for _, pid := range l.incoming {
			if err := ev.AddParticleIn(l.vertexID, pid); err != nil {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), err.Error()))
			}
		}
	}
	for _, a := range attrs {
		if err := r.applyAttr(ev, a.owner, a.key, a.value); err != nil {
			r.skip(err)
		}
	}

	if err := ev.Validate(); err != nil {
		return nil, errors.Wrapf(err, "event %d", number)
	}
	return ev, nil
}

// readRecord parses one tagged record line of the event section.
func (r *Reader) readRecord(ev *event.Event, line string, links *[]pendingLink,
	prod func(pid, vid int), attr func(owner int, key string, a event.Attribute)) error {

	switch {
	case strings.HasPrefix(line, "U "):
		fields := strings.Fields(line[2:])
		if len(fields) != 2 {
			return errors.NewCorruptRecord(r.sc.Line(), "malformed units record")
		}
		u, err := event.ParseUnits(fields[0], fields[1])
		if err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), err.Error())
		}
		ev.Units = u

	case strings.HasPrefix(line, "W "):
		fields := strings.Fields(line[2:])
		weights := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return errors.NewCorruptRecord(r.sc.Line(), "bad weight value")
			}
			weights = append(weights, v)
		}
		ev.Weights = weights

	case strings.HasPrefix(line, "C "):
		return r.readCrossSection(ev, line)

	case strings.HasPrefix(line, "H "):
		return r.readHeavyIon(ev, line)

	case strings.HasPrefix(line, "A "):
		rest := line[2:]
		parts := strings.SplitN(rest, " ", 3)
		if len(parts) != 3 {
			return errors.NewCorruptRecord(r.sc.Line(), "malformed attribute record")
		}
		owner, err := strconv.Atoi(parts[0])
		if err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad attribute owner")
		}
		a, err := decodeAttr(parts[2])
		if err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), err.Error())
		}
		attr(owner, parts[1], a)

	case strings.HasPrefix(line, "V "):
		return r.readVertex(ev, line, links)

	case strings.HasPrefix(line, "P "):
		return r.readParticle(ev, line, prod)

	default:
		return errors.NewCorruptRecord(r.sc.Line(), "unknown record tag "+tag(line))
	}
	return nil
}

func (r *Reader) readCrossSection(ev *event.Event, line string) error {
	fields := strings.Fields(line[2:])
	if len(fields) < 2 {
		return errors.NewCorruptRecord(r.sc.Line(), "short cross-section record")
	}
	cs := &event.CrossSection{Accepted: -1, Attempted: -1}
	var err error
	if cs.Value, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad cross-section value")
	}
	if cs.Uncertainty, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad cross-section uncertainty")
	}
	if len(fields) > 2 {
		if cs.Accepted, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad accepted count")
		}
	}
	if len(fields) > 3 {
		if cs.Attempted, err = strconv.ParseInt(fields[3], 10, 64); err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad attempted count")
		}
	}
	ev.CrossSection = cs
	return nil
}

func (r *Reader) readHeavyIon(ev *event.Event, line string) error {
	fields := strings.Fields(line[2:])
	if len(fields) < 14 {
		return errors.NewCorruptRecord(r.sc.Line(), "short heavy-ion record")
	}
	ints := make([]int, 9)
	for i := 0; i < 9; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad heavy-ion field")
		}
		ints[i] = v
	}
	floats := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(fields[9+i], 64)
		if err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad heavy-ion field")
		}
		floats[i] = v
	}
	ev.HeavyIon = &event.HeavyIon{
		NCollHard:                  ints[0],
		NPartProj:                  ints[1],
		NPartTarg:                  ints[2],
		NColl:                      ints[3],
		SpectatorNeutrons:          ints[4],
		SpectatorProtons:           ints[5],
		NNwoundedCollisions:        ints[6],
		NwoundedNCollisions:        ints[7],
		NwoundedNwoundedCollisions: ints[8],
		ImpactParameter:            floats[0],
		EventPlaneAngle:            floats[1],
		Eccentricity:               floats[2],
		SigmaInelNN:                floats[3],
		Centrality:                 floats[4],
	}
	return nil
}

func (r *Reader) readVertex(ev *event.Event, line string, links *[]pendingLink) error {
	rest := line[2:]

	var posPart string
	if at := strings.Index(rest, " @ "); at >= 0 {
		posPart = rest[at+3:]
		rest = rest[:at]
	}

	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return errors.NewCorruptRecord(r.sc.Line(), "short vertex record")
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id >= 0 {
		return errors.NewCorruptRecord(r.sc.Line(), "bad vertex id")
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad vertex status")
	}

	bracket := fields[2]
	if !strings.HasPrefix(bracket, "[") || !strings.HasSuffix(bracket, "]") {
		return errors.NewCorruptRecord(r.sc.Line(), "malformed incoming list")
	}
	var incoming []int
	if inner := bracket[1 : len(bracket)-1]; inner != "" {
		for _, tok := range strings.Split(inner, ",") {
			pid, err := strconv.Atoi(tok)
			if err != nil {
				return errors.NewCorruptRecord(r.sc.Line(), "bad incoming particle id")
			}
			incoming = append(incoming, pid)
		}
	}

	v := event.Vertex{Status: status}
	if posPart != "" {
		pf := strings.Fields(posPart)
		if len(pf) != 4 {
			return errors.NewCorruptRecord(r.sc.Line(), "malformed vertex position")
		}
		var pos event.FourVector
		for i, dst := range []*float64{&pos.X, &pos.Y, &pos.Z, &pos.T} {
			if *dst, err = strconv.ParseFloat(pf[i], 64); err != nil {
				return errors.NewCorruptRecord(r.sc.Line(), "bad vertex position component")
			}
		}
		v.SetPosition(pos)
	}

	if id != -(ev.NumVertices() + 1) {
		return errors.NewCorruptRecord(r.sc.Line(),
			"vertex id "+strconv.Itoa(id)+" out of sequence")
	}
	ev.AddVertex(v)
	*links = append(*links, pendingLink{vertexID: id, incoming: incoming})
	return nil
}

func (r *Reader) readParticle(ev *event.Event, line string, prod func(pid, vid int)) error {
	fields := strings.Fields(line[2:])
	if len(fields) < 9 {
		return errors.NewCorruptRecord(r.sc.Line(), "short particle record")
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id <= 0 {
		return errors.NewCorruptRecord(r.sc.Line(), "bad particle id")
	}
	prodVertex, err := strconv.Atoi(fields[1])
	if err != nil || prodVertex > 0 {
		return errors.NewCorruptRecord(r.sc.Line(), "bad production vertex id")
	}
	pid, err := strconv.Atoi(fields[2])
	if err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad PDG id")
	}

	var mom event.FourVector
	for i, dst := range []*float64{&mom.X, &mom.Y, &mom.Z, &mom.T} {
		if *dst, err = strconv.ParseFloat(fields[3+i], 64); err != nil {
			return errors.NewCorruptRecord(r.sc.Line(), "bad momentum component")
		}
	}
	mass, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad mass")
	}
	status, err := strconv.Atoi(fields[8])
	if err != nil {
		return errors.NewCorruptRecord(r.sc.Line(), "bad status")
	}

	if id != ev.NumParticles()+1 {
		return errors.NewCorruptRecord(r.sc.Line(),
			"particle id "+strconv.Itoa(id)+" out of sequence")
	}

	p := event.Particle{PID: pid, Status: status, Momentum: mom}
	p.SetGeneratedMass(mass)
	ev.AddParticle(p)
	if prodVertex != 0 {
		prod(id, prodVertex)
	}
	return nil
}

func (r *Reader) applyAttr(ev *event.Event, owner int, key string, a event.Attribute) error {
	switch {
	case owner == 0:
		return ev.Attributes.Set(key, a)
	case owner < 0:
		v, ok := ev.Vertex(owner)
		if !ok {
			return errors.NewCorruptRecord(r.sc.Line(), "attribute for unknown vertex")
		}
		return v.Attributes.Set(key, a)
	default:
		p, ok := ev.Particle(owner)
		if !ok {
			return errors.NewCorruptRecord(r.sc.Line(), "attribute for unknown particle")
		}
		return p.Attributes.Set(key, a)
	}
}

// skip records a recoverable per-record failure.
func (r *Reader) skip(err error) {
	r.skipped++
	r.log.Warn("record skipped", "error", err)
}

// nextNonBlank returns the next non-blank line, honoring a held-back
// line first.
func (r *Reader) nextNonBlank() (string, error) {
	if r.held != "" {
		line := r.held
		r.held = ""
		return line, nil
	}
	for {
		line, err := r.sc.Next()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

func tag(line string) string {
	if len(line) == 0 {
		return "<empty>"
	}
	return strconv.Quote(string(line[0]))
}
