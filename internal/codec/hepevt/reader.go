package hepevt

import (
	"bufio"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/logging"
)

// Reader decodes the fixed-field legacy format. The declared particle
// count is authoritative: a malformed particle line is skipped and
// counted but still consumes its slot, so the stream stays in sync.
type Reader struct {
	sc   *codec.LineScanner
	run  *event.RunInfo
	log  *slog.Logger
	held string

	skipped int64
	done    bool
}

type record struct {
	index    int // 1-based position in the event block
	status   int
	pid      int
	mo1, mo2 int
	momentum event.FourVector
	mass     float64
	pos      event.FourVector
}

// NewReader creates a legacy-format reader. The format has no stream
// header; nothing is consumed until the first Decode.
func NewReader(br *bufio.Reader) (*Reader, error) {
	return &Reader{
		sc:  codec.NewLineScanner(br),
		run: event.NewRunInfo(),
		log: logging.Component("hepevt"),
	}, nil
}

// RunInfo returns an empty run info; the format carries none.
func (r *Reader) RunInfo() *event.RunInfo { return r.run }

// SkippedRecords returns the number of corrupt records skipped.
func (r *Reader) SkippedRecords() int64 { return r.skipped }

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

	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "E" {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "expected event header")
	}
	number, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad event number")
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil || count < 0 {
		return nil, errors.NewCorruptRecord(r.sc.Line(), "bad particle count")
	}

	records := make([]record, 0, count)
	for i := 1; i <= count; i++ {
		line, err := r.nextNonBlank()
		if err == io.EOF {
			r.done = true
			return nil, errors.NewCorruptRecord(r.sc.Line(),
				"event truncated: got "+strconv.Itoa(i-1)+" of "+strconv.Itoa(count)+" particles")
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRecord(line, i, r.sc.Line())
		if err != nil {
			r.skip(err)
			continue
		}
		records = append(records, rec)
	}

	ev := event.New(number)
	ev.SetRunInfo(r.run)
	if err := r.build(ev, records); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, errors.Wrapf(err, "event %d", number)
	}
	return ev, nil
}

func parseRecord(line string, index, lineNo int) (record, error) {
	fields := strings.Fields(line)
	if len(fields) != 15 {
		return record{}, errors.NewCorruptRecord(lineNo,
			"particle line has "+strconv.Itoa(len(fields))+" fields, want 15")
	}

	rec := record{index: index}
	var err error
	ints := []*int{&rec.status, &rec.pid, &rec.mo1, &rec.mo2}
	for i, dst := range ints {
		if *dst, err = strconv.Atoi(fields[i]); err != nil {
			return record{}, errors.NewCorruptRecord(lineNo, "bad integer field "+strconv.Itoa(i))
		}
	}
	// fields 4 and 5 are the daughter range, reconstructed from the
	// mother fields instead of trusted.
	floats := []*float64{
		&rec.momentum.X, &rec.momentum.Y, &rec.momentum.Z, &rec.momentum.T,
		&rec.mass,
		&rec.pos.X, &rec.pos.Y, &rec.pos.Z, &rec.pos.T,
	}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(fields[6+i], 64); err != nil {
			return record{}, errors.NewCorruptRecord(lineNo, "bad float field "+strconv.Itoa(6+i))
		}
	}
	rec.status = statusFromLegacy(rec.status)
	if rec.mo1 < 0 || rec.mo2 < rec.mo1 {
		return record{}, errors.NewCorruptRecord(lineNo, "bad mother range")
	}
	return rec, nil
}

// build synthesizes vertices from mother ranges. Records sharing a
// mother range share one production vertex whose incoming side is the
// particles of that range. Motherless records that never appear as a
// mother become the outgoing side of one primary vertex.
func (r *Reader) build(ev *event.Event, records []record) error {
	// File index to arena id. Skipped lines leave gaps, so the two
	// need not coincide.
	idOf := make(map[int]int, len(records))
	for _, rec := range records {
		p := event.Particle{PID: rec.pid, Status: rec.status, Momentum: rec.momentum}
		p.SetGeneratedMass(rec.mass)
		idOf[rec.index] = ev.AddParticle(p)
	}

	type span struct{ lo, hi int }
	groups := make(map[span][]record)
	var order []span
	isMother := make(map[int]bool)
	for _, rec := range records {
		if rec.mo1 == 0 {
			continue
		}
		s := span{rec.mo1, rec.mo2}
		if _, seen := groups[s]; !seen {
			order = append(order, s)
		}
		groups[s] = append(groups[s], rec)
		for idx := rec.mo1; idx <= rec.mo2; idx++ {
			isMother[idx] = true
		}
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].lo != order[j].lo {
			return order[i].lo < order[j].lo
		}
		return order[i].hi < order[j].hi
	})

	link := func(err error) {
		if err != nil {
			r.skip(err)
		}
	}
	for _, s := range order {
		members := groups[s]
		v := event.Vertex{}
		if pos := members[0].pos; !pos.IsZero() {
			v.SetPosition(pos)
		}
		vtx := ev.AddVertex(v)
		for idx := s.lo; idx <= s.hi; idx++ {
			mid, ok := idOf[idx]
			if !ok {
				r.skip(errors.NewCorruptRecord(r.sc.Line(),
					"mother index "+strconv.Itoa(idx)+" out of range"))
				continue
			}
			link(ev.AddParticleIn(vtx, mid))
		}
		for _, rec := range members {
			link(ev.AddParticleOut(vtx, idOf[rec.index]))
		}
	}

	// Primary vertex for unconnected records.
	var free []int
	for _, rec := range records {
		if rec.mo1 == 0 && !isMother[rec.index] {
			free = append(free, idOf[rec.index])
		}
	}
	if len(free) > 0 {
		vtx := ev.AddVertex(event.Vertex{})
		for _, id := range free {
			link(ev.AddParticleOut(vtx, id))
		}
	}
	return nil
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
