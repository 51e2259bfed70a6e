// Package browse is an interactive inspector for event files. The
// prompt loop is a thin shell around Session, which executes one
// command at a time against an open stream, so everything but the
// terminal handling is testable.
package browse

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/hepio/internal/event"
	"github.com/xtxerr/hepio/internal/stream"
)

// Session holds the state behind the prompt: one open stream and the
// event the cursor sits on.
type Session struct {
	out     io.Writer
	reader  *stream.Reader
	path    string
	current *event.Event
	quit    bool
}

// NewSession creates a session writing command output to out.
func NewSession(out io.Writer) *Session {
	return &Session{out: out}
}

// Quit reports whether the quit command has run.
func (s *Session) Quit() bool { return s.quit }

// Close releases the open stream, if any.
func (s *Session) Close() error {
	if s.reader == nil {
		return nil
	}
	err := s.reader.Close()
	s.reader = nil
	s.current = nil
	return err
}

// Execute runs one command line. Command errors are printed, not
// returned: a typo must not end the session.
func (s *Session) Execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "open":
		err = s.cmdOpen(args)
	case "next":
		err = s.cmdNext()
	case "event":
		err = s.cmdEvent()
	case "particles":
		err = s.cmdParticles(args)
	case "vertices":
		err = s.cmdVertices()
	case "attrs":
		err = s.cmdAttrs(args)
	case "stats":
		err = s.cmdStats()
	case "help":
		s.printHelp()
	case "quit", "exit":
		s.quit = true
	default:
		err = fmt.Errorf("unknown command %q, try help", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
}

func (s *Session) cmdOpen(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <file>")
	}
	if err := s.Close(); err != nil {
		return err
	}
	r, err := stream.Open(args[0])
	if err != nil {
		return err
	}
	s.reader = r
	s.path = args[0]
	fmt.Fprintf(s.out, "opened %s (%s, %s)\n",
		args[0], r.Stats().Format, r.Stats().Compression)
	return s.cmdNext()
}

func (s *Session) cmdNext() error {
	if s.reader == nil {
		return fmt.Errorf("no file open")
	}
	if !s.reader.Next() {
		if err := s.reader.Err(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "end of stream")
		return nil
	}
	s.current = s.reader.Event()
	return s.cmdEvent()
}

func (s *Session) cmdEvent() error {
	ev, err := s.event()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "event %d: %d particles, %d vertices, units %s\n",
		ev.EventNumber, ev.NumParticles(), ev.NumVertices(), ev.Units)
	if len(ev.Weights) > 0 {
		fmt.Fprintf(s.out, "  weights: %v\n", ev.Weights)
	}
	if cs := ev.CrossSection; cs != nil {
		fmt.Fprintf(s.out, "  cross-section: %g +/- %g\n", cs.Value, cs.Uncertainty)
	}
	return nil
}

func (s *Session) cmdParticles(args []string) error {
	ev, err := s.event()
	if err != nil {
		return err
	}
	status := 0
	filtered := false
	if len(args) == 1 {
		if status, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("usage: particles [status]")
		}
		filtered = true
	}

	for _, p := range ev.Particles() {
		if filtered && p.Status != status {
			continue
		}
		m := p.Momentum
		fmt.Fprintf(s.out, "  #%d pid=%d status=%d p=(%.4g, %.4g, %.4g, %.4g) m=%.4g prod=%d end=%d\n",
			p.ID(), p.PID, p.Status, m.Px(), m.Py(), m.Pz(), m.E(),
			p.GeneratedMass(), p.ProductionVertex(), p.EndVertex())
	}
	return nil
}

func (s *Session) cmdVertices() error {
	ev, err := s.event()
	if err != nil {
		return err
	}
	for _, v := range ev.Vertices() {
		fmt.Fprintf(s.out, "  #%d status=%d in=%v out=%v",
			v.ID(), v.Status, v.ParticlesIn(), v.ParticlesOut())
		if pos, ok := v.Position(); ok {
			fmt.Fprintf(s.out, " @ (%.4g, %.4g, %.4g, %.4g)", pos.X, pos.Y, pos.Z, pos.T)
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

// cmdAttrs prints the attributes of the event, or of one particle or
// vertex when an id argument is given.
func (s *Session) cmdAttrs(args []string) error {
	ev, err := s.event()
	if err != nil {
		return err
	}
	attrs := ev.Attributes
	owner := "event"
	if len(args) == 1 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: attrs [id]")
		}
		switch {
		case id > 0:
			p, ok := ev.Particle(id)
			if !ok {
				return fmt.Errorf("no particle %d", id)
			}
			attrs = p.Attributes
			owner = fmt.Sprintf("particle %d", id)
		case id < 0:
			v, ok := ev.Vertex(id)
			if !ok {
				return fmt.Errorf("no vertex %d", id)
			}
			attrs = v.Attributes
			owner = fmt.Sprintf("vertex %d", id)
		default:
			return fmt.Errorf("id 0 names nothing")
		}
	}
	if attrs.Len() == 0 {
		fmt.Fprintf(s.out, "%s: no attributes\n", owner)
		return nil
	}
	keys := make([]string, 0, attrs.Len())
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a, _ := attrs.Get(k)
		fmt.Fprintf(s.out, "  %s = %s\n", k, formatAttr(a))
	}
	return nil
}

func formatAttr(a event.Attribute) string {
	switch a.Kind() {
	case event.AttrBool:
		v, _ := a.AsBool()
		return strconv.FormatBool(v)
	case event.AttrInt:
		v, _ := a.AsInt()
		return strconv.FormatInt(v, 10)
	case event.AttrDouble:
		v, _ := a.AsDouble()
		return strconv.FormatFloat(v, 'g', -1, 64)
	case event.AttrString:
		v, _ := a.AsString()
		return strconv.Quote(v)
	case event.AttrList:
		elems, _ := a.AsList()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = formatAttr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

func (s *Session) cmdStats() error {
	if s.reader == nil {
		return fmt.Errorf("no file open")
	}
	st := s.reader.Stats()
	fmt.Fprintf(s.out, "%s: %d events read, %d records skipped\n",
		s.path, st.Events, st.SkippedRecords)
	return nil
}

func (s *Session) event() (*event.Event, error) {
	if s.current == nil {
		return nil, fmt.Errorf("no event loaded, use open or next")
	}
	return s.current, nil
}

func (s *Session) printHelp() {
	fmt.Fprint(s.out, `commands:
  open <file>        open an event file
  next               advance to the next event
  event              show the current event header
  particles [status] list particles, optionally by status
  vertices           list vertices
  attrs [id]         show attributes of the event, a particle (>0), or a vertex (<0)
  stats              show stream counters
  quit               leave
`)
}
