package event

import (
	"testing"

	"github.com/xtxerr/hepio/internal/errors"
)

// buildDecayChain builds a small two-vertex event:
//
//	p1 (beam) -> v1 -> p2 -> v2 -> p3, p4
func buildDecayChain(t *testing.T) (*Event, int, int) {
	t.Helper()

	ev := New(1)
	p1 := ev.AddParticle(Particle{PID: 2212, Status: 4, Momentum: NewMomentum(0, 0, 7000, 7000)})
	p2 := ev.AddParticle(Particle{PID: 23, Status: 2, Momentum: NewMomentum(0, 0, 0, 91.2)})
	p3 := ev.AddParticle(Particle{PID: 11, Status: 1, Momentum: NewMomentum(10, 0, 0, 45.6)})
	p4 := ev.AddParticle(Particle{PID: -11, Status: 1, Momentum: NewMomentum(-10, 0, 0, 45.6)})

	v1 := ev.AddVertex(Vertex{})
	v2 := ev.AddVertex(Vertex{Status: 1})

	for _, link := range []struct {
		in bool
		v  int
		p  int
	}{
		{true, v1, p1},
		{false, v1, p2},
		{true, v2, p2},
		{false, v2, p3},
		{false, v2, p4},
	} {
		var err error
		if link.in {
			err = ev.AddParticleIn(link.v, link.p)
		} else {
			err = ev.AddParticleOut(link.v, link.p)
		}
		if err != nil {
			t.Fatalf("link vertex %d particle %d: %v", link.v, link.p, err)
		}
	}
	return ev, v1, v2
}

func TestAddAndLink(t *testing.T) {
	ev, v1, v2 := buildDecayChain(t)

	if ev.NumParticles() != 4 {
		t.Fatalf("expected 4 particles, got %d", ev.NumParticles())
	}
	if ev.NumVertices() != 2 {
		t.Fatalf("expected 2 vertices, got %d", ev.NumVertices())
	}
	if v1 != -1 || v2 != -2 {
		t.Errorf("unexpected vertex ids %d, %d", v1, v2)
	}

	p2, ok := ev.Particle(2)
	if !ok {
		t.Fatal("particle 2 missing")
	}
	if p2.ProductionVertex() != v1 {
		t.Errorf("particle 2 production = %d, want %d", p2.ProductionVertex(), v1)
	}
	if p2.EndVertex() != v2 {
		t.Errorf("particle 2 end = %d, want %d", p2.EndVertex(), v2)
	}

	if err := ev.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLinkUnknownIDs(t *testing.T) {
	ev := New(1)
	p := ev.AddParticle(Particle{PID: 211, Status: 1})
	v := ev.AddVertex(Vertex{})

	if err := ev.AddParticleIn(v, 99); !errors.Is(err, errors.ErrInvalidGraphLink) {
		t.Errorf("unknown particle: got %v, want ErrInvalidGraphLink", err)
	}
	if err := ev.AddParticleOut(-7, p); !errors.Is(err, errors.ErrInvalidGraphLink) {
		t.Errorf("unknown vertex: got %v, want ErrInvalidGraphLink", err)
	}
}

func TestCycleRejected(t *testing.T) {
	ev := New(1)
	pa := ev.AddParticle(Particle{PID: 1, Status: 2})
	pb := ev.AddParticle(Particle{PID: 2, Status: 2})
	v1 := ev.AddVertex(Vertex{})
	v2 := ev.AddVertex(Vertex{})

	// v1 -(pa)-> v2
	if err := ev.AddParticleOut(v1, pa); err != nil {
		t.Fatalf("out: %v", err)
	}
	if err := ev.AddParticleIn(v2, pa); err != nil {
		t.Fatalf("in: %v", err)
	}
	// v2 -(pb)-> v1 closes the loop.
	if err := ev.AddParticleOut(v2, pb); err != nil {
		t.Fatalf("out: %v", err)
	}
	err := ev.AddParticleIn(v1, pb)
	if !errors.Is(err, errors.ErrInvalidGraphLink) {
		t.Fatalf("expected ErrInvalidGraphLink, got %v", err)
	}

	// The failed link must leave the graph unchanged and valid.
	p, _ := ev.Particle(pb)
	if p.EndVertex() != 0 {
		t.Errorf("failed link mutated particle end vertex: %d", p.EndVertex())
	}
	vtx, _ := ev.Vertex(v1)
	if vtx.NumIn() != 0 {
		t.Errorf("failed link mutated vertex incoming list")
	}
	if err := ev.Validate(); err != nil {
		t.Errorf("graph invalid after rejected link: %v", err)
	}
}

func TestSelfLoopRejected(t *testing.T) {
	ev := New(1)
	p := ev.AddParticle(Particle{PID: 21, Status: 2})
	v := ev.AddVertex(Vertex{})

	if err := ev.AddParticleOut(v, p); err != nil {
		t.Fatalf("out: %v", err)
	}
	if err := ev.AddParticleIn(v, p); !errors.Is(err, errors.ErrInvalidGraphLink) {
		t.Fatalf("self loop accepted: %v", err)
	}
}

func TestRelinkRejected(t *testing.T) {
	ev := New(1)
	p := ev.AddParticle(Particle{PID: 211, Status: 1})
	v1 := ev.AddVertex(Vertex{})
	v2 := ev.AddVertex(Vertex{})

	if err := ev.AddParticleOut(v1, p); err != nil {
		t.Fatalf("out: %v", err)
	}
	// Repeating the same link is a no-op.
	if err := ev.AddParticleOut(v1, p); err != nil {
		t.Errorf("idempotent relink failed: %v", err)
	}
	// A different production vertex is an error.
	if err := ev.AddParticleOut(v2, p); !errors.Is(err, errors.ErrInvalidGraphLink) {
		t.Errorf("conflicting relink accepted: %v", err)
	}
}

func TestParticlesWithStatus(t *testing.T) {
	ev, _, _ := buildDecayChain(t)

	final := ev.ParticlesWithStatus(1)
	if len(final) != 2 {
		t.Fatalf("expected 2 final state particles, got %d", len(final))
	}
	// Relative order must match insertion order.
	if final[0].PID != 11 || final[1].PID != -11 {
		t.Errorf("status filter order: got %d, %d", final[0].PID, final[1].PID)
	}

	if got := ev.ParticlesWithStatus(99); len(got) != 0 {
		t.Errorf("expected no particles with status 99, got %d", len(got))
	}
}

func TestGeneratedMass(t *testing.T) {
	p := Particle{PID: 211, Momentum: NewMomentum(0, 0, 1, 2)}
	if p.HasGeneratedMass() {
		t.Fatal("mass set on fresh particle")
	}
	// Falls back to the momentum mass.
	if got, want := p.GeneratedMass(), p.Momentum.M(); got != want {
		t.Errorf("fallback mass = %v, want %v", got, want)
	}

	p.SetGeneratedMass(0)
	if !p.HasGeneratedMass() {
		t.Fatal("explicit zero mass not recorded")
	}
	if p.GeneratedMass() != 0 {
		t.Errorf("explicit zero mass = %v", p.GeneratedMass())
	}
}

func TestValidateDetectsInconsistency(t *testing.T) {
	ev, _, _ := buildDecayChain(t)

	// Corrupt a link from the particle side, bypassing the API.
	ev.particles[2].production = 0
	if err := ev.Validate(); !errors.Is(err, errors.ErrInconsistentLink) {
		t.Fatalf("expected ErrInconsistentLink, got %v", err)
	}
}

func TestEventEqual(t *testing.T) {
	a, _, _ := buildDecayChain(t)
	b, _, _ := buildDecayChain(t)

	if !a.Equal(b) {
		t.Fatal("identically built events not equal")
	}

	b.particles[0].Momentum.X = 1e-9
	if a.Equal(b) {
		t.Fatal("momentum difference not detected")
	}
}

func TestRunInfoShared(t *testing.T) {
	run := NewRunInfo()
	run.WeightNames = []string{"nominal", "scale_up"}
	run.AddTool("pythia", "8.3", "parton shower")

	a := New(1)
	b := New(2)
	a.SetRunInfo(run)
	b.SetRunInfo(run)

	if a.RunInfo() != b.RunInfo() {
		t.Fatal("run info must be shared, not copied")
	}
	if run.WeightIndex("scale_up") != 1 {
		t.Errorf("WeightIndex = %d", run.WeightIndex("scale_up"))
	}
	if run.WeightIndex("missing") != -1 {
		t.Errorf("WeightIndex for missing name = %d", run.WeightIndex("missing"))
	}
}
