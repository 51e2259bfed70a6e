package stats

import (
	"math"
	"testing"
	"time"

	"github.com/xtxerr/hepio/internal/event"
	hepiotest "github.com/xtxerr/hepio/internal/testing"
)

func TestKinematicSummary(t *testing.T) {
	s := NewKinematicSummary()
	for i := 1; i <= 100; i++ {
		s.Add(float64(i))
	}

	r := s.Result()
	if r.Count != 100 {
		t.Errorf("count = %d", r.Count)
	}
	if r.Min != 1 || r.Max != 100 {
		t.Errorf("min/max = %v/%v", r.Min, r.Max)
	}
	if r.Mean != 50.5 {
		t.Errorf("mean = %v", r.Mean)
	}
	// The sketch guarantees 1% relative accuracy.
	if math.Abs(r.P50-50)/50 > 0.02 {
		t.Errorf("p50 = %v, want ~50", r.P50)
	}
	if math.Abs(r.P99-99)/99 > 0.02 {
		t.Errorf("p99 = %v, want ~99", r.P99)
	}
}

func TestEmptySummary(t *testing.T) {
	r := NewKinematicSummary().Result()
	if r.Count != 0 || r.Min != 0 || r.Max != 0 || r.Mean != 0 {
		t.Errorf("empty summary = %+v", r)
	}
}

func TestSummaryMerge(t *testing.T) {
	a := NewKinematicSummary()
	b := NewKinematicSummary()
	for i := 1; i <= 50; i++ {
		a.Add(float64(i))
	}
	for i := 51; i <= 100; i++ {
		b.Add(float64(i))
	}
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	r := a.Result()
	if r.Count != 100 || r.Min != 1 || r.Max != 100 {
		t.Errorf("merged = %+v", r)
	}
	if math.Abs(r.P50-50)/50 > 0.02 {
		t.Errorf("merged p50 = %v", r.P50)
	}
}

func addParticles(c *Collector, number int, pts ...float64) {
	ev := event.New(number)
	for _, pt := range pts {
		ev.AddParticle(event.Particle{
			PID: 211, Status: 1,
			Momentum: event.NewMomentum(pt, 0, 0, pt*2),
		})
	}
	c.AddEvent(ev)
}

func TestCollectorPerStatus(t *testing.T) {
	c := NewCollector()

	ev := event.New(1)
	ev.AddParticle(event.Particle{PID: 211, Status: 1, Momentum: event.NewMomentum(3, 4, 0, 10)})
	ev.AddParticle(event.Particle{PID: 23, Status: 2, Momentum: event.NewMomentum(6, 8, 0, 100)})
	c.AddEvent(ev)

	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 status groups", len(results))
	}
	if results[0].Status != 1 || results[1].Status != 2 {
		t.Errorf("status order = %d, %d", results[0].Status, results[1].Status)
	}
	if results[0].Pt.Max != 5 {
		t.Errorf("status 1 pt = %v, want 5", results[0].Pt.Max)
	}
	if results[1].Energy.Mean != 100 {
		t.Errorf("status 2 energy = %v, want 100", results[1].Energy.Mean)
	}
	if c.Events() != 1 {
		t.Errorf("events = %d", c.Events())
	}
}

func TestCollectorMerge(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	addParticles(a, 1, 1, 2, 3)
	addParticles(b, 2, 4, 5)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if a.Events() != 2 {
		t.Errorf("events = %d, want 2", a.Events())
	}
	results := a.Results()
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	pt := results[0].Pt
	if pt.Count != 5 || pt.Min != 1 || pt.Max != 5 {
		t.Errorf("merged pt = %+v", pt)
	}
}

func TestCollectorMergeDisjointStatuses(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	ev := event.New(1)
	ev.AddParticle(event.Particle{PID: 11, Status: 1, Momentum: event.NewMomentum(1, 0, 0, 1)})
	a.AddEvent(ev)

	ev2 := event.New(2)
	ev2.AddParticle(event.Particle{PID: 2212, Status: 4, Momentum: event.NewMomentum(0, 0, 100, 100)})
	b.AddEvent(ev2)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	results := a.Results()
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[1].Status != 4 || results[1].Pt.Count != 1 {
		t.Errorf("adopted status group = %+v", results[1])
	}
}

func TestCollectorConcurrentAddEvent(t *testing.T) {
	c := NewCollector()
	gt := hepiotest.NewGoroutineTest(t)

	const workers = 8
	const perWorker = 25
	for w := 0; w < workers; w++ {
		gt.Go(func() error {
			for i := 0; i < perWorker; i++ {
				ev := event.New(i)
				ev.AddParticle(event.Particle{
					PID: 211, Status: 1,
					Momentum: event.NewMomentum(3, 4, 0, 10),
				})
				c.AddEvent(ev)
			}
			return nil
		})
	}
	gt.Wait()

	if c.Events() != workers*perWorker {
		t.Errorf("events = %d, want %d", c.Events(), workers*perWorker)
	}
	results := c.Results()
	if len(results) != 1 || results[0].Pt.Count != workers*perWorker {
		t.Errorf("results = %+v", results)
	}
	if results[0].Pt.Max != 5 {
		t.Errorf("pt max = %v, want 5", results[0].Pt.Max)
	}
}

func TestCollectorCrossingMerges(t *testing.T) {
	mk := func() *Collector {
		c := NewCollector()
		ev := event.New(1)
		ev.AddParticle(event.Particle{PID: 211, Status: 1, Momentum: event.NewMomentum(3, 4, 0, 10)})
		c.AddEvent(ev)
		return c
	}
	a, b := mk(), mk()

	// Merging in both directions at once must not deadlock.
	err := hepiotest.WithTimeout(10*time.Second, func() error {
		gt := make(chan error, 2)
		for i := 0; i < 50; i++ {
			go func() { gt <- a.Merge(b) }()
			go func() { gt <- b.Merge(a) }()
			for j := 0; j < 2; j++ {
				if err := <-gt; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if a.Merge(a) != nil {
		t.Error("self merge must be a no-op")
	}
	before := a.Events()
	if err := a.Merge(a); err != nil {
		t.Fatal(err)
	}
	if a.Events() != before {
		t.Errorf("self merge changed event count: %d -> %d", before, a.Events())
	}
}
