// Package lhef implements read-only access to the XML-wrapped Les
// Houches event format. The interesting payload is plain text inside
// the <init> and <event> elements; the XML shell is walked with a
// streaming token decoder so files never load whole.
//
// There is no writer. The stream layer reports the format as not
// writable.
package lhef

import (
	"bufio"
	"encoding/xml"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/logging"
)

// incoming beam marker in the ISTUP column
const legacyIncomingStatus = -1

// Reader decodes events from a Les Houches file. Events carry no
// number of their own; they are numbered sequentially from zero.
type Reader struct {
	dec *xml.Decoder
	run *event.RunInfo
	log *slog.Logger

	next    int
	skipped int64
	done    bool
}

// NewReader creates a reader and parses the <init> block. The run
// info carries the beam description and per-process cross-sections as
// attributes.
func NewReader(br *bufio.Reader) (*Reader, error) {
	r := &Reader{
		dec: xml.NewDecoder(br),
		run: event.NewRunInfo(),
		log: logging.Component("lhef"),
	}
	if err := r.readInit(); err != nil {
		return nil, err
	}
	return r, nil
}

// RunInfo returns the run info assembled from the init block.
func (r *Reader) RunInfo() *event.RunInfo { return r.run }

// SkippedRecords returns the number of corrupt particle lines skipped.
func (r *Reader) SkippedRecords() int64 { return r.skipped }

// readInit walks to the root element, checks it, and consumes the
// init block.
func (r *Reader) readInit() error {
	root, err := r.nextStart()
	if err != nil {
		return errors.NewCorruptHeader("missing root element")
	}
	if root.Name.Local != "LesHouchesEvents" {
		return errors.NewCorruptHeader("root element is <" + root.Name.Local + ">")
	}
	// Old generator output omits the version attribute; treat it as
	// the revision this reader speaks.
	version := config.LHEFVersion
	for _, a := range root.Attr {
		if a.Name.Local == "version" {
			version = a.Value
		}
	}
	if err := r.run.Attributes.Set("lhef_version", event.String(version)); err != nil {
		return err
	}

	for {
		se, err := r.nextStart()
		if err == io.EOF {
			r.done = true
			return nil
		}
		if err != nil {
			return errors.NewCorruptHeader(err.Error())
		}
		switch se.Name.Local {
		case "header":
			if err := r.dec.Skip(); err != nil {
				return errors.NewCorruptHeader("unterminated header block")
			}
		case "init":
			text, err := r.elementText(se)
			if err != nil {
				return errors.NewCorruptHeader("unterminated init block")
			}
			return r.parseInit(text)
		case "event":
			return errors.NewCorruptHeader("event before init block")
		default:
			if err := r.dec.Skip(); err != nil {
				return errors.NewCorruptHeader(err.Error())
			}
		}
	}
}

// parseInit reads the fixed first line of the init block and one line
// per process after it.
func (r *Reader) parseInit(text string) error {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return errors.NewCorruptHeader("empty init block")
	}
	head := strings.Fields(lines[0])
	if len(head) < 10 {
		return errors.NewCorruptHeader("short init line")
	}

	set := func(key string, a event.Attribute) {
		// Keys are fixed here, Set cannot fail on them.
		_ = r.run.Attributes.Set(key, a)
	}
	if ids, err := atoiPair(head[0], head[1]); err == nil {
		set("beam_id_a", event.Int(int64(ids[0])))
		set("beam_id_b", event.Int(int64(ids[1])))
	}
	if ea, err := strconv.ParseFloat(head[2], 64); err == nil {
		set("beam_energy_a", event.Double(ea))
	}
	if eb, err := strconv.ParseFloat(head[3], 64); err == nil {
		set("beam_energy_b", event.Double(eb))
	}

	nproc, err := strconv.Atoi(head[9])
	if err != nil || nproc < 0 || nproc+1 > len(lines) {
		return errors.NewCorruptHeader("bad process count")
	}
	for i := 0; i < nproc; i++ {
		f := strings.Fields(lines[1+i])
		if len(f) < 4 {
			return errors.NewCorruptHeader("short process line")
		}
		xsec, err1 := strconv.ParseFloat(f[0], 64)
		xerr, err2 := strconv.ParseFloat(f[1], 64)
		if err1 != nil || err2 != nil {
			return errors.NewCorruptHeader("bad process cross-section")
		}
		suffix := "_" + f[3]
		set("cross_section"+suffix, event.Double(xsec))
		set("cross_section_error"+suffix, event.Double(xerr))
	}
	return nil
}

// Decode returns the next event or io.EOF.
func (r *Reader) Decode() (*event.Event, error) {
	if r.done {
		return nil, io.EOF
	}
	for {
		se, err := r.nextStart()
		if err == io.EOF {
			r.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrStream, err.Error())
		}
		if se.Name.Local != "event" {
			if err := r.dec.Skip(); err != nil {
				return nil, errors.Wrap(errors.ErrStream, err.Error())
			}
			continue
		}
		text, err := r.elementText(se)
		if err != nil {
			return nil, errors.NewCorruptRecord(0, "unterminated event block")
		}
		return r.parseEvent(text)
	}
}

type record struct {
	index    int
	pid      int
	status   int
	mo1, mo2 int
	momentum event.FourVector
	mass     float64
}

func (r *Reader) parseEvent(text string) (*event.Event, error) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return nil, errors.NewCorruptRecord(0, "empty event block")
	}
	head := strings.Fields(lines[0])
	if len(head) < 6 {
		return nil, errors.NewCorruptRecord(0, "short event line")
	}
	count, err := strconv.Atoi(head[0])
	if err != nil || count < 0 {
		return nil, errors.NewCorruptRecord(0, "bad particle count")
	}
	if count > len(lines)-1 {
		return nil, errors.NewCorruptRecord(0, "event block truncated")
	}

	ev := event.New(r.next)
	r.next++
	ev.SetRunInfo(r.run)

	if wt, err := strconv.ParseFloat(head[2], 64); err == nil {
		ev.Weights = []float64{wt}
	}
	setAttr := func(key, field string) {
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			_ = ev.Attributes.Set(key, event.Double(v))
		}
	}
	setAttr("event_scale", head[3])
	setAttr("alpha_qed", head[4])
	setAttr("alpha_qcd", head[5])

	var records []record
	for i := 1; i <= count; i++ {
		rec, err := parseParticle(lines[i], i)
		if err != nil {
			r.skip(err)
			continue
		}
		records = append(records, rec)
	}

	r.build(ev, records)
	if err := ev.Validate(); err != nil {
		return nil, errors.Wrapf(err, "event %d", ev.EventNumber)
	}
	return ev, nil
}

func parseParticle(line string, index int) (record, error) {
	f := strings.Fields(line)
	if len(f) < 13 {
		return record{}, errors.NewCorruptRecord(0,
			"particle line has "+strconv.Itoa(len(f))+" fields, want 13")
	}
	rec := record{index: index}
	var err error
	if rec.pid, err = strconv.Atoi(f[0]); err != nil {
		return record{}, errors.NewCorruptRecord(0, "bad PDG id")
	}
	if rec.status, err = strconv.Atoi(f[1]); err != nil {
		return record{}, errors.NewCorruptRecord(0, "bad status")
	}
	if rec.mo1, err = strconv.Atoi(f[2]); err != nil {
		return record{}, errors.NewCorruptRecord(0, "bad mother index")
	}
	if rec.mo2, err = strconv.Atoi(f[3]); err != nil {
		return record{}, errors.NewCorruptRecord(0, "bad mother index")
	}
	// Columns 4 and 5 carry color flow, which has no home in the
	// graph model.
	for i, dst := range []*float64{&rec.momentum.X, &rec.momentum.Y, &rec.momentum.Z, &rec.momentum.T, &rec.mass} {
		if *dst, err = strconv.ParseFloat(f[6+i], 64); err != nil {
			return record{}, errors.NewCorruptRecord(0, "bad momentum field")
		}
	}
	if rec.status == legacyIncomingStatus {
		rec.status = 4
	}
	if rec.mo2 == 0 {
		rec.mo2 = rec.mo1
	}
	if rec.mo1 < 0 || rec.mo2 < rec.mo1 {
		return record{}, errors.NewCorruptRecord(0, "bad mother range")
	}
	return rec, nil
}

// build synthesizes vertices from mother index ranges, one vertex per
// distinct range.
func (r *Reader) build(ev *event.Event, records []record) {
	idOf := make(map[int]int, len(records))
	for _, rec := range records {
		p := event.Particle{PID: rec.pid, Status: rec.status, Momentum: rec.momentum}
		p.SetGeneratedMass(rec.mass)
		idOf[rec.index] = ev.AddParticle(p)
	}

	type span struct{ lo, hi int }
	groups := make(map[span][]record)
	var order []span
	for _, rec := range records {
		if rec.mo1 == 0 {
			continue
		}
		s := span{rec.mo1, rec.mo2}
		if _, seen := groups[s]; !seen {
			order = append(order, s)
		}
		groups[s] = append(groups[s], rec)
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
		vtx := ev.AddVertex(event.Vertex{})
		for idx := s.lo; idx <= s.hi; idx++ {
			mid, ok := idOf[idx]
			if !ok {
				r.skip(errors.NewCorruptRecord(0, "mother index "+strconv.Itoa(idx)+" out of range"))
				continue
			}
			link(ev.AddParticleIn(vtx, mid))
		}
		for _, rec := range groups[s] {
			link(ev.AddParticleOut(vtx, idOf[rec.index]))
		}
	}
}

func (r *Reader) skip(err error) {
	r.skipped++
	r.log.Warn("record skipped", "error", err)
}

// nextStart returns the next start element token.
func (r *Reader) nextStart() (xml.StartElement, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// elementText collects the character data of an element up to its end
// tag, skipping nested elements such as <weights> or <rwgt>.
func (r *Reader) elementText(se xml.StartElement) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func atoiPair(a, b string) ([2]int, error) {
	va, err := strconv.Atoi(a)
	if err != nil {
		return [2]int{}, err
	}
	vb, err := strconv.Atoi(b)
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{va, vb}, nil
}
