// Package stats accumulates streaming kinematic summaries over event
// samples. Quantiles come from DDSketch, so summaries over arbitrary
// numbers of events stay constant-size and mergeable across files.
package stats

import (
	"math"
	"sort"
	"sync"
	"unsafe"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/event"
)

// KinematicSummary maintains running statistics for one observable.
type KinematicSummary struct {
	mu sync.Mutex

	count int64
	sum   float64
	min   float64
	max   float64

	sketch *ddsketch.DDSketch
}

// NewKinematicSummary creates a summary with the default relative
// accuracy.
func NewKinematicSummary() *KinematicSummary {
	return NewKinematicSummaryWithAccuracy(config.DefaultSketchAccuracy)
}

// NewKinematicSummaryWithAccuracy creates a summary with a custom
// relative accuracy.
func NewKinematicSummaryWithAccuracy(accuracy float64) *KinematicSummary {
	s := &KinematicSummary{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err == nil {
		s.sketch = sketch
	}
	return s
}

// Add adds one observation.
func (s *KinematicSummary) Add(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sum += value
	if value < s.min {
		s.min = value
	}
	if value > s.max {
		s.max = value
	}
	if s.sketch != nil {
		s.sketch.Add(value)
	}
}

// Merge folds another summary into this one. The other summary is
// left unchanged.
func (s *KinematicSummary) Merge(o *KinematicSummary) error {
	if s == o {
		return nil
	}
	if uintptr(unsafe.Pointer(s)) < uintptr(unsafe.Pointer(o)) {
		s.mu.Lock()
		o.mu.Lock()
	} else {
		o.mu.Lock()
		s.mu.Lock()
	}
	defer o.mu.Unlock()
	defer s.mu.Unlock()

	s.count += o.count
	s.sum += o.sum
	if o.min < s.min {
		s.min = o.min
	}
	if o.max > s.max {
		s.max = o.max
	}
	if s.sketch != nil && o.sketch != nil {
		return s.sketch.MergeWith(o.sketch)
	}
	return nil
}

// Result is a finished summary.
type Result struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
	P50   float64
	P90   float64
	P99   float64
}

// Result snapshots the summary. An empty summary reports zeroes.
func (s *KinematicSummary) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return Result{}
	}
	r := Result{
		Count: s.count,
		Sum:   s.sum,
		Min:   s.min,
		Max:   s.max,
		Mean:  s.sum / float64(s.count),
	}
	if s.sketch != nil {
		r.P50, _ = s.sketch.GetValueAtQuantile(0.50)
		r.P90, _ = s.sketch.GetValueAtQuantile(0.90)
		r.P99, _ = s.sketch.GetValueAtQuantile(0.99)
	}
	return r
}

// Collector gathers per-status summaries of transverse momentum and
// energy across a stream of events.
type Collector struct {
	mu     sync.Mutex
	pt     map[int]*KinematicSummary
	energy map[int]*KinematicSummary
	events int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		pt:     make(map[int]*KinematicSummary),
		energy: make(map[int]*KinematicSummary),
	}
}

// AddEvent folds every particle of the event into the per-status
// summaries.
func (c *Collector) AddEvent(ev *event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events++
	for _, p := range ev.Particles() {
		c.summary(c.pt, p.Status).Add(p.Momentum.Pt())
		c.summary(c.energy, p.Status).Add(p.Momentum.E())
	}
}

// summary returns the per-status entry, creating it on first use.
// The caller holds c.mu.
func (c *Collector) summary(m map[int]*KinematicSummary, status int) *KinematicSummary {
	s, ok := m[status]
	if !ok {
		s = NewKinematicSummary()
		m[status] = s
	}
	return s
}

// Merge folds another collector into this one. Both collectors are
// locked for the duration; crossing merges of the same pair are safe.
func (c *Collector) Merge(o *Collector) error {
	if c == o {
		return nil
	}
	// Acquire both locks in address order so concurrent a.Merge(b)
	// and b.Merge(a) cannot deadlock.
	if uintptr(unsafe.Pointer(c)) < uintptr(unsafe.Pointer(o)) {
		c.mu.Lock()
		o.mu.Lock()
	} else {
		o.mu.Lock()
		c.mu.Lock()
	}
	defer o.mu.Unlock()
	defer c.mu.Unlock()

	c.events += o.events
	for status, s := range o.pt {
		dst, ok := c.pt[status]
		if !ok {
			c.pt[status] = s
			continue
		}
		if err := dst.Merge(s); err != nil {
			return err
		}
	}
	for status, s := range o.energy {
		dst, ok := c.energy[status]
		if !ok {
			c.energy[status] = s
			continue
		}
		if err := dst.Merge(s); err != nil {
			return err
		}
	}
	return nil
}

// StatusResult pairs a status code with its finished summaries.
type StatusResult struct {
	Status int
	Pt     Result
	Energy Result
}

// Events returns the number of events folded in.
func (c *Collector) Events() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Results snapshots all per-status summaries, ordered by status code.
func (c *Collector) Results() []StatusResult {
	c.mu.Lock()
	statuses := make([]int, 0, len(c.pt))
	for status := range c.pt {
		statuses = append(statuses, status)
	}
	c.mu.Unlock()
	sort.Ints(statuses)

	out := make([]StatusResult, 0, len(statuses))
	for _, status := range statuses {
		c.mu.Lock()
		pt, energy := c.pt[status], c.energy[status]
		c.mu.Unlock()
		r := StatusResult{Status: status}
		if pt != nil {
			r.Pt = pt.Result()
		}
		if energy != nil {
			r.Energy = energy.Result()
		}
		out = append(out, r)
	}
	return out
}
