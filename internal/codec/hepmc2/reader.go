package hepmc2

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

// Reader decodes the IO_GenEvent format. Barcodes from the stream are
// remapped to sequential ids in file order; the originals are not
// preserved.
//
// Malformed records inside an event are skipped and counted; a
// malformed header is fatal. PDF info (F) and random state fields are
// parsed past and discarded.
type Reader struct {
	sc   *codec.LineScanner
	run  *event.RunInfo
	log  *slog.Logger
	held string

	skipped int64
	done    bool
}

// vertexRec is one V record with the particles listed under it, split
// by the orphan count into incoming and outgoing.
type vertexRec struct {
	barcode  int
	status   int
	pos      event.FourVector
	hasPos   bool
	incoming []int // particle barcodes without a production vertex
	outgoing []int
	want     int // outgoing particles still expected under this vertex
	orphans  int // incoming particles still expected
}

type particleRec struct {
	barcode    int
	pid        int
	status     int
	momentum   event.FourVector
	mass       float64
	endBarcode int
}

// NewReader creates an IO_GenEvent reader and parses the header.
func NewReader(br *bufio.Reader) (*Reader, error) {
	r := &Reader{
		sc:  codec.NewLineScanner(br),
		run: event.NewRunInfo(),
		log: logging.Component("hepmc2"),
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunInfo returns the run info assembled from N records.
func (r *Reader) RunInfo() *event.RunInfo { return r.run }

// SkippedRecords returns the number of corrupt records skipped.
func (r *Reader) SkippedRecords() int64 { return r.skipped }

func (r *Reader) readHeader() error {
	line, err := r.nextNonBlank()
	if err != nil {
		return errors.NewCorruptHeader("missing version line")
	}
	if !strings.HasPrefix(line, "HepMC::Version 2") {
		return errors.NewCorruptHeader("not an IO_GenEvent stream")
	}
	// Old files put comment lines between the version and the START
	// marker; anything other than the marker before the first event
	// is tolerated here and rejected once an E record shows up early.
	for {
		line, err = r.nextNonBlank()
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return err
		}
		if line == listingStart {
			return nil
		}
		if strings.HasPrefix(line, "E ") {
			return errors.NewCorruptHeader("event record before listing start")
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
		return nil, errors.NewCorruptRecord(r.sc.Line(), "expected event header")
	}
	return r.readEvent(line)
}

func (r *Reader) readEvent(header string) (*event.Event, error) {
	fields := strings.Fields(header[2:])
	if len(fields) < 11 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "short event header")
	}
	number, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad event number")
	}

	ev := event.New(number)
	ev.SetRunInfo(r.run)

	// Weights sit after the random state block, both length-prefixed.
	if weights, ok := trailingWeights(fields); ok {
		ev.Weights = weights
	}

	var vertices []*vertexRec
	var particles []particleRec
	var current *vertexRec

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

		switch {
		case strings.HasPrefix(line, "N "):
			if err := r.readWeightNames(line); err != nil {
				r.skip(err)
			}
		case strings.HasPrefix(line, "U "):
			f := strings.Fields(line[2:])
			if len(f) != 2 {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), "malformed units record"))
				continue
			}
			u, err := event.ParseUnits(f[0], f[1])
			if err != nil {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), err.Error()))
				continue
			}
			ev.Units = u
		case strings.HasPrefix(line, "C "):
			f := strings.Fields(line[2:])
			if len(f) < 2 {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), "short cross-section record"))
				continue
			}
			cs := &event.CrossSection{Accepted: -1, Attempted: -1}
			if cs.Value, err = strconv.ParseFloat(f[0], 64); err != nil {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), "bad cross-section value"))
				continue
			}
			if cs.Uncertainty, err = strconv.ParseFloat(f[1], 64); err != nil {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), "bad cross-section uncertainty"))
				continue
			}
			ev.CrossSection = cs
		case strings.HasPrefix(line, "H "):
			if hi, err := r.readHeavyIon(line); err != nil {
				r.skip(err)
			} else {
				ev.HeavyIon = hi
			}
		case strings.HasPrefix(line, "F "):
			// PDF info carries no graph content.
		case strings.HasPrefix(line, "V "):
			v, err := r.readVertex(line)
			if err != nil {
				r.skip(err)
				current = nil
				continue
			}
			vertices = append(vertices, v)
			current = v
		case strings.HasPrefix(line, "P "):
			p, err := r.readParticle(line)
			if err != nil {
				r.skip(err)
				continue
			}
			particles = append(particles, p)
			if current != nil {
				switch {
				case current.orphans > 0:
					current.orphans--
					current.incoming = append(current.incoming, p.barcode)
				case current.want > 0:
					current.want--
					current.outgoing = append(current.outgoing, p.barcode)
				default:
					r.skip(errors.NewCorruptRecord(r.sc.Line(), "particle outside vertex counts"))
				}
			} else {
				r.skip(errors.NewCorruptRecord(r.sc.Line(), "particle before first vertex"))
			}
		default:
			r.skip(errors.NewCorruptRecord(r.sc.Line(), "unknown record tag "+strconv.Quote(string(line[0]))))
		}
	}

	if err := r.build(ev, vertices, particles); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, errors.Wrapf(err, "event %d", number)
	}
	return ev, nil
}

// build maps barcodes to sequential ids and applies all edges.
func (r *Reader) build(ev *event.Event, vertices []*vertexRec, particles []particleRec) error {
	pid := make(map[int]int, len(particles))
	for _, p := range particles {
		if _, dup := pid[p.barcode]; dup {
			return errors.NewCorruptRecord(r.sc.Line(),
				"duplicate particle barcode "+strconv.Itoa(p.barcode))
		}
		np := event.Particle{PID: p.pid, Status: p.status, Momentum: p.momentum}
		np.SetGeneratedMass(p.mass)
		pid[p.barcode] = ev.AddParticle(np)
	}

	vid := make(map[int]int, len(vertices))
	for _, v := range vertices {
		if _, dup := vid[v.barcode]; dup {
			return errors.NewCorruptRecord(r.sc.Line(),
				"duplicate vertex barcode "+strconv.Itoa(v.barcode))
		}
		nv := event.Vertex{Status: v.status}
		if v.hasPos {
			nv.SetPosition(v.pos)
		}
		vid[v.barcode] = ev.AddVertex(nv)
	}

	link := func(err error) {
		if err != nil {
			r.skip(errors.NewCorruptRecord(r.sc.Line(), err.Error()))
		}
	}
	for _, v := range vertices {
		for _, bc := range v.outgoing {
			link(ev.AddParticleOut(vid[v.barcode], pid[bc]))
		}
	}
	for _, p := range particles {
		if p.endBarcode == 0 {
			continue
		}
		end, ok := vid[p.endBarcode]
		if !ok {
			r.skip(errors.NewCorruptRecord(r.sc.Line(),
				"end vertex barcode "+strconv.Itoa(p.endBarcode)+" unknown"))
			continue
		}
		link(ev.AddParticleIn(end, pid[p.barcode]))
	}
	// Orphan incoming edges not already covered by an end barcode.
	for _, v := range vertices {
		for _, bc := range v.incoming {
			p, _ := ev.Particle(pid[bc])
			if p.EndVertex() == 0 {
				link(ev.AddParticleIn(vid[v.barcode], pid[bc]))
			}
		}
	}
	return nil
}

// readWeightNames parses an N record: count followed by quoted names.
func (r *Reader) readWeightNames(line string) error {
	rest := strings.TrimSpace(line[2:])
	idx := strings.IndexByte(rest, ' ')
	if idx <= 0 {
		return errors.NewCorruptRecord(r.sc.Line(), "malformed weight names record")
	}
	count, err := strconv.Atoi(rest[:idx])
	if err != nil || count < 0 {
		return errors.NewCorruptRecord(r.sc.Line(), "bad weight name count")
	}
	names := make([]string, 0, count)
	rest = rest[idx+1:]
	for len(names) < count {
		rest = strings.TrimLeft(rest, " ")
		if !strings.HasPrefix(rest, `"`) {
			return errors.NewCorruptRecord(r.sc.Line(), "unquoted weight name")
		}
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			return errors.NewCorruptRecord(r.sc.Line(), "unterminated weight name")
		}
		names = append(names, rest[1:1+end])
		rest = rest[end+2:]
	}
	r.run.WeightNames = names
	return nil
}

func (r *Reader) readHeavyIon(line string) (*event.HeavyIon, error) {
	fields := strings.Fields(line[2:])
	if len(fields) < 13 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "short heavy-ion record")
	}
	ints := make([]int, 9)
	for i := 0; i < 9; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return nil, errors.NewCorruptRecord(r.sc.Line(), "bad heavy-ion field")
		}
		ints[i] = v
	}
	floats := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[9+i], 64)
		if err != nil {
			return nil, errors.NewCorruptRecord(r.sc.Line(), "bad heavy-ion field")
		}
		floats[i] = v
	}
	return &event.HeavyIon{
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
	}, nil
}

func (r *Reader) readVertex(line string) (*vertexRec, error) {
	fields := strings.Fields(line[2:])
	if len(fields) < 8 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "short vertex record")
	}
	barcode, err := strconv.Atoi(fields[0])
	if err != nil || barcode >= 0 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad vertex barcode")
	}
	status, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad vertex status")
	}
	var pos event.FourVector
	for i, dst := range []*float64{&pos.X, &pos.Y, &pos.Z, &pos.T} {
		if *dst, err = strconv.ParseFloat(fields[2+i], 64); err != nil {
			return nil, errors.NewCorruptRecord(r.sc.Line(), "bad vertex position component")
		}
	}
	orphans, err := strconv.Atoi(fields[6])
	if err != nil || orphans < 0 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad orphan count")
	}
	out, err := strconv.Atoi(fields[7])
	if err != nil || out < 0 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad outgoing count")
	}
	return &vertexRec{
		barcode: barcode,
		status:  status,
		pos:     pos,
		hasPos:  !pos.IsZero(),
		orphans: orphans,
		want:    out,
	}, nil
}

func (r *Reader) readParticle(line string) (particleRec, error) {
	fields := strings.Fields(line[2:])
	if len(fields) < 11 {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "short particle record")
	}
	var p particleRec
	var err error
	if p.barcode, err = strconv.Atoi(fields[0]); err != nil || p.barcode <= 0 {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad particle barcode")
	}
	if p.pid, err = strconv.Atoi(fields[1]); err != nil {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad PDG id")
	}
	for i, dst := range []*float64{&p.momentum.X, &p.momentum.Y, &p.momentum.Z, &p.momentum.T} {
		if *dst, err = strconv.ParseFloat(fields[2+i], 64); err != nil {
			return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad momentum component")
		}
	}
	if p.mass, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad mass")
	}
	if p.status, err = strconv.Atoi(fields[7]); err != nil {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad status")
	}
	// fields 8 and 9 are polarization theta and phi.
	if p.endBarcode, err = strconv.Atoi(fields[10]); err != nil || p.endBarcode > 0 {
		return particleRec{}, errors.NewCorruptRecord(r.sc.Line(), "bad end vertex barcode")
	}
	return p, nil
}

// trailingWeights extracts the weight block from an E record, skipping
// the length-prefixed random state block before it.
func trailingWeights(fields []string) ([]float64, bool) {
	nRandom, err := strconv.Atoi(fields[10])
	if err != nil || nRandom < 0 {
		return nil, false
	}
	idx := 11 + nRandom
	if idx >= len(fields) {
		return nil, false
	}
	nWeights, err := strconv.Atoi(fields[idx])
	if err != nil || nWeights < 0 || idx+1+nWeights > len(fields) {
		return nil, false
	}
	weights := make([]float64, 0, nWeights)
	for _, f := range fields[idx+1 : idx+1+nWeights] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		weights = append(weights, v)
	}
	return weights, true
}

func (r *Reader) skip(err error) {
	r.skipped++
	r.log.Warn("record skipped", "error", err)
}

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
