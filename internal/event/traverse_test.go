package event

import "testing"

func collect(t *testing.T, w *Walker) []int {
	t.Helper()
	var pids []int
	for w.Next() {
		pids = append(pids, w.Particle().ID())
	}
	if err := w.Err(); err != nil {
		t.Fatalf("walk: %v", err)
	}
	return pids
}

func TestDescendants(t *testing.T) {
	ev, v1, _ := buildDecayChain(t)

	got := collect(t, ev.Descendants(v1))
	// From v1: p2 (the Z), then its decay products p3, p4.
	want := []int{2, 3, 4}
	if !equalIDs(got, want) {
		t.Fatalf("descendants of v1 = %v, want %v", got, want)
	}
}

func TestAncestors(t *testing.T) {
	ev, _, v2 := buildDecayChain(t)

	got := collect(t, ev.Ancestors(v2))
	// Backward from v2: p2, then the beam particle p1.
	want := []int{2, 1}
	if !equalIDs(got, want) {
		t.Fatalf("ancestors of v2 = %v, want %v", got, want)
	}
}

func TestWalkerUnknownVertex(t *testing.T) {
	ev := New(1)
	w := ev.Descendants(-5)
	if w.Next() {
		t.Fatal("walk over unknown vertex yielded a particle")
	}
	if w.Err() == nil {
		t.Fatal("expected an error for unknown vertex")
	}
}

func TestWalkerInvalidatedByMutation(t *testing.T) {
	ev, v1, _ := buildDecayChain(t)

	w := ev.Descendants(v1)
	if !w.Next() {
		t.Fatalf("first step failed: %v", w.Err())
	}

	// Any structural edit invalidates outstanding walkers.
	ev.AddParticle(Particle{PID: 22, Status: 1})

	if w.Next() {
		t.Fatal("walker survived a structural mutation")
	}
	if w.Err() != ErrTraversalInvalidated {
		t.Fatalf("err = %v, want ErrTraversalInvalidated", w.Err())
	}

	// A fresh walker sees the current graph.
	w2 := ev.Descendants(v1)
	if got := collect(t, w2); len(got) != 3 {
		t.Fatalf("fresh walker yielded %d particles, want 3", len(got))
	}
}

func TestWalkerDiamondVisitsOnce(t *testing.T) {
	// v1 splits into two branches that rejoin at v4: each particle
	// must be yielded exactly once.
	ev := New(1)
	pin := ev.AddParticle(Particle{PID: 2212, Status: 4})
	pa := ev.AddParticle(Particle{PID: 1, Status: 2})
	pb := ev.AddParticle(Particle{PID: 2, Status: 2})
	pout := ev.AddParticle(Particle{PID: 22, Status: 1})

	v1 := ev.AddVertex(Vertex{})
	v4 := ev.AddVertex(Vertex{})

	mustLink(t, ev.AddParticleIn(v1, pin))
	mustLink(t, ev.AddParticleOut(v1, pa))
	mustLink(t, ev.AddParticleOut(v1, pb))
	mustLink(t, ev.AddParticleIn(v4, pa))
	mustLink(t, ev.AddParticleIn(v4, pb))
	mustLink(t, ev.AddParticleOut(v4, pout))

	got := collect(t, ev.Descendants(v1))
	want := []int{pa, pb, pout}
	if !equalIDs(got, want) {
		t.Fatalf("diamond walk = %v, want %v", got, want)
	}
}

func mustLink(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("link: %v", err)
	}
}
