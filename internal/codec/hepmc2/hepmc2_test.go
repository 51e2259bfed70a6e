package hepmc2

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/xtxerr/hepio/internal/errors"
	"github.com/xtxerr/hepio/internal/event"
)

func mkParticle(pid, status int, px, py, pz, e float64) event.Particle {
	return event.Particle{PID: pid, Status: status, Momentum: event.NewMomentum(px, py, pz, e)}
}

func mustLink(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("link: %v", err)
	}
}

// decayChain builds beam -> v1 -> Z -> v2 -> e+ e-, the shape most
// generator output takes.
func decayChain(t *testing.T, run *event.RunInfo) *event.Event {
	t.Helper()
	ev := event.New(17)
	ev.SetRunInfo(run)
	ev.Weights = []float64{1.0, 0.88}
	ev.CrossSection = &event.CrossSection{Value: 4.2e-2, Uncertainty: 1.1e-3, Accepted: -1, Attempted: -1}

	p1 := ev.AddParticle(mkParticle(2212, 4, 0, 0, 6800, 6800.0000647))
	p2 := ev.AddParticle(mkParticle(23, 2, 1.25, -0.5, 88, 125.3))
	p3 := ev.AddParticle(mkParticle(11, 1, 40.1, 17.3, 44, 62.2))
	p4 := ev.AddParticle(mkParticle(-11, 1, -38.85, -17.8, 44, 63.1))

	v1 := ev.AddVertex(event.Vertex{})
	v2 := event.Vertex{Status: 4}
	v2.SetPosition(event.FourVector{X: 0.01, Y: 0.02, Z: -1.3, T: 0.005})
	v2id := ev.AddVertex(v2)

	mustLink(t, ev.AddParticleIn(v1, p1))
	mustLink(t, ev.AddParticleOut(v1, p2))
	mustLink(t, ev.AddParticleIn(v2id, p2))
	mustLink(t, ev.AddParticleOut(v2id, p3))
	mustLink(t, ev.AddParticleOut(v2id, p4))
	return ev
}

func encode(t *testing.T, run *event.RunInfo, events ...*event.Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, run)
	for _, ev := range events {
		if err := w.Encode(ev); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func decodeOne(t *testing.T, data []byte) (*event.Event, *Reader) {
	t.Helper()
	r, err := NewReader(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	ev, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return ev, r
}

func TestRoundTrip(t *testing.T) {
	run := event.NewRunInfo()
	run.WeightNames = []string{"nominal", "pdf up"}

	orig := decayChain(t, run)
	data := encode(t, run, orig)

	got, r := decodeOne(t, data)
	if !orig.Equal(got) {
		t.Fatalf("round trip not isomorphic\nencoded:\n%s", data)
	}
	if names := r.RunInfo().WeightNames; len(names) != 2 || names[1] != "pdf up" {
		t.Errorf("weight names = %v", names)
	}
	if _, err := r.Decode(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestRoundTripDropsAttributes(t *testing.T) {
	// The v2 format has no attribute records; maps must come back
	// empty rather than corrupting neighboring fields.
	ev := decayChain(t, nil)
	if err := ev.Attributes.Set("mpi", event.Int(3)); err != nil {
		t.Fatal(err)
	}

	got, _ := decodeOne(t, encode(t, nil, ev))
	if got.Attributes.Len() != 0 {
		t.Errorf("event attributes survived a v2 round trip: %v", got.Attributes)
	}
	if got.NumParticles() != 4 || got.NumVertices() != 2 {
		t.Errorf("graph shape changed: %d particles, %d vertices",
			got.NumParticles(), got.NumVertices())
	}
}

func TestFreeParticlesGetSynthesizedVertex(t *testing.T) {
	ev := event.New(3)
	ev.AddParticle(mkParticle(211, 1, 1, 0, 0, 1))
	ev.AddParticle(mkParticle(-211, 1, -1, 0, 0, 1))

	got, _ := decodeOne(t, encode(t, nil, ev))
	if got.NumParticles() != 2 {
		t.Fatalf("particles = %d, want 2", got.NumParticles())
	}
	if got.NumVertices() != 1 {
		t.Fatalf("vertices = %d, want 1 synthesized", got.NumVertices())
	}
	v := got.Vertices()[0]
	if v.NumOut() != 2 || v.NumIn() != 0 {
		t.Errorf("synthesized vertex has %d in, %d out", v.NumIn(), v.NumOut())
	}
}

func TestOrphanIncomingParticle(t *testing.T) {
	// A beam particle has no production vertex; it must come back
	// attached to its end vertex.
	ev := event.New(1)
	beam := ev.AddParticle(mkParticle(2212, 4, 0, 0, 6800, 6800))
	out := ev.AddParticle(mkParticle(21, 1, 1, 1, 100, 100.01))
	v := ev.AddVertex(event.Vertex{})
	mustLink(t, ev.AddParticleIn(v, beam))
	mustLink(t, ev.AddParticleOut(v, out))

	got, _ := decodeOne(t, encode(t, nil, ev))
	p, ok := got.Particle(1)
	if !ok {
		t.Fatal("beam particle missing")
	}
	if p.EndVertex() != -1 || p.ProductionVertex() != 0 {
		t.Errorf("beam links = prod %d, end %d", p.ProductionVertex(), p.EndVertex())
	}
}

func TestPDFRecordIgnored(t *testing.T) {
	data := string(encode(t, nil, decayChain(t, nil)))
	lines := strings.Split(data, "\n")
	var out []string
	for _, l := range lines {
		out = append(out, l)
		if strings.HasPrefix(l, "U ") {
			out = append(out, "F 21 21 0.2 0.3 100 1.5 2.5 0 0")
		}
	}

	r, err := NewReader(bufio.NewReader(strings.NewReader(strings.Join(out, "\n"))))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.SkippedRecords() != 0 {
		t.Errorf("F record counted as corrupt, skipped = %d", r.SkippedRecords())
	}
	if got.NumParticles() != 4 {
		t.Errorf("particles = %d, want 4", got.NumParticles())
	}
}

func TestCorruptHeaderFatal(t *testing.T) {
	_, err := NewReader(bufio.NewReader(strings.NewReader("HepMC::Version 3.02.05\n")))
	if !errors.Is(err, errors.ErrCorruptHeader) {
		t.Fatalf("v3 stream accepted by v2 reader: %v", err)
	}
	_, err = NewReader(bufio.NewReader(strings.NewReader("HepMC::Version 2.06.09\nE 1 0\n")))
	if !errors.Is(err, errors.ErrCorruptHeader) {
		t.Fatalf("expected ErrCorruptHeader, got %v", err)
	}
}

func TestCorruptParticleSkipped(t *testing.T) {
	data := string(encode(t, nil, decayChain(t, nil)))
	mangled := strings.Replace(data, "P 3 11 ", "P 3 eleven ", 1)

	r, err := NewReader(bufio.NewReader(strings.NewReader(mangled)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := r.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.SkippedRecords() == 0 {
		t.Error("corrupt particle not counted")
	}
	if got.NumParticles() != 3 {
		t.Errorf("particles = %d, want 3 after skip", got.NumParticles())
	}
}

func TestOriginPositionReadsBackUnset(t *testing.T) {
	// The V line has no presence flag. A position set explicitly to
	// the origin is written as four zeros and comes back unset.
	ev := event.New(5)
	p := ev.AddParticle(mkParticle(111, 2, 0, 0, 1, 1.01))
	v := event.Vertex{}
	v.SetPosition(event.FourVector{})
	vid := ev.AddVertex(v)
	mustLink(t, ev.AddParticleIn(vid, p))

	got, _ := decodeOne(t, encode(t, nil, ev))
	gv, ok := got.Vertex(vid)
	if !ok {
		t.Fatal("vertex lost")
	}
	if gv.HasPosition() {
		t.Error("origin position must read back as unset")
	}
}
