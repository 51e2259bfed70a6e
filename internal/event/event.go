package event

import (
	"github.com/xtxerr/hepio/internal/errors"
)

// Event is a single collision record: the particle/vertex arenas, the
// per-event metadata, and a reference to the shared RunInfo of the
// stream the event came from. Particles and vertices belong to exactly
// one Event; they are never shared across events.
type Event struct {
	// EventNumber is the generator-assigned event number.
	EventNumber int

	// Units are the momentum/length units declared by the stream.
	Units Units

	// Weights holds the positional event weights; their meaning is
	// given by the RunInfo's WeightNames.
	Weights []float64

	// CrossSection is the optional cross-section record.
	CrossSection *CrossSection

	// HeavyIon is the optional heavy-ion record.
	HeavyIon *HeavyIon

	// Attributes holds per-event metadata.
	Attributes Attributes

	run *RunInfo

	particles []Particle
	vertices  []Vertex

	// version is bumped on every structural mutation; outstanding
	// traversal walkers observe it and refuse to continue.
	version uint64
}

// New returns an empty Event with default units.
func New(number int) *Event {
	return &Event{EventNumber: number, Units: DefaultUnits()}
}

// SetRunInfo attaches the shared run info. The pointer is stored, not
// copied.
func (e *Event) SetRunInfo(r *RunInfo) { e.run = r }

// RunInfo returns the shared run info, or nil.
func (e *Event) RunInfo() *RunInfo { return e.run }

// NumParticles returns the number of particles in the event.
func (e *Event) NumParticles() int { return len(e.particles) }

// NumVertices returns the number of vertices in the event.
func (e *Event) NumVertices() int { return len(e.vertices) }

// AddParticle copies p into the event's arena and returns its assigned
// id (positive, 1-based). Any vertex links on p are ignored; links are
// made with AddParticleIn/AddParticleOut.
func (e *Event) AddParticle(p Particle) int {
	p.id = len(e.particles) + 1
	p.production = 0
	p.end = 0
	e.particles = append(e.particles, p)
	e.version++
	return p.id
}

// AddVertex copies v into the event's arena and returns its assigned
// id (negative, -1-based). Any particle links on v are ignored.
func (e *Event) AddVertex(v Vertex) int {
	v.id = -(len(e.vertices) + 1)
	v.particlesIn = nil
	v.particlesOut = nil
	e.vertices = append(e.vertices, v)
	e.version++
	return v.id
}

// Particle returns the particle with the given id. ok is false if the
// id is not a particle id of this event. The pointer is valid until
// the next structural mutation.
func (e *Event) Particle(id int) (*Particle, bool) {
	if id < 1 || id > len(e.particles) {
		return nil, false
	}
	return &e.particles[id-1], true
}

// Vertex returns the vertex with the given id. ok is false if the id
// is not a vertex id of this event. The pointer is valid until the
// next structural mutation.
func (e *Event) Vertex(id int) (*Vertex, bool) {
	idx := -id - 1
	if id >= 0 || idx >= len(e.vertices) {
		return nil, false
	}
	return &e.vertices[idx], true
}

// Particles returns pointers to all particles in id order. Pointers
// are valid until the next structural mutation.
func (e *Event) Particles() []*Particle {
	out := make([]*Particle, len(e.particles))
	for i := range e.particles {
		out[i] = &e.particles[i]
	}
	return out
}

// Vertices returns pointers to all vertices in id order (-1, -2, ...).
// Pointers are valid until the next structural mutation.
func (e *Event) Vertices() []*Vertex {
	out := make([]*Vertex, len(e.vertices))
	for i := range e.vertices {
		out[i] = &e.vertices[i]
	}
	return out
}

// ParticlesWithStatus returns the particles with the given status
// code, preserving their relative order in the event.
func (e *Event) ParticlesWithStatus(status int) []*Particle {
	var out []*Particle
	for i := range e.particles {
		if e.particles[i].Status == status {
			out = append(out, &e.particles[i])
		}
	}
	return out
}

// AddParticleIn links a particle as incoming to a vertex: the particle
// ends at the vertex. Fails with ErrInvalidGraphLink if either id is
// unknown, the particle already ends at a different vertex, or the
// link would make the vertex graph cyclic. On failure the graph is
// unchanged.
func (e *Event) AddParticleIn(vertexID, particleID int) error {
	v, ok := e.Vertex(vertexID)
	if !ok {
		return errors.NewInvalidLink(particleID, vertexID, "unknown vertex")
	}
	p, ok := e.Particle(particleID)
	if !ok {
		return errors.NewInvalidLink(particleID, vertexID, "unknown particle")
	}
	if p.end == vertexID {
		return nil // already linked
	}
	if p.end != 0 {
		return errors.NewInvalidLink(particleID, vertexID, "particle already has an end vertex")
	}
	// The particle edge would run production -> vertexID. A cycle
	// appears only if vertexID already reaches the production vertex.
	if p.production != 0 && e.reaches(vertexID, p.production) {
		return errors.NewInvalidLink(particleID, vertexID, "link would create a cycle")
	}
	p.end = vertexID
	v.particlesIn = append(v.particlesIn, particleID)
	e.version++
	return nil
}

// AddParticleOut links a particle as outgoing from a vertex: the
// vertex is the particle's production vertex. Same failure contract as
// AddParticleIn.
func (e *Event) AddParticleOut(vertexID, particleID int) error {
	v, ok := e.Vertex(vertexID)
	if !ok {
		return errors.NewInvalidLink(particleID, vertexID, "unknown vertex")
	}
	p, ok := e.Particle(particleID)
	if !ok {
		return errors.NewInvalidLink(particleID, vertexID, "unknown particle")
	}
	if p.production == vertexID {
		return nil // already linked
	}
	if p.production != 0 {
		return errors.NewInvalidLink(particleID, vertexID, "particle already has a production vertex")
	}
	// The particle edge would run vertexID -> end. A cycle appears
	// only if the end vertex already reaches vertexID.
	if p.end != 0 && e.reaches(p.end, vertexID) {
		return errors.NewInvalidLink(particleID, vertexID, "link would create a cycle")
	}
	p.production = vertexID
	v.particlesOut = append(v.particlesOut, particleID)
	e.version++
	return nil
}

// reaches reports whether dst is reachable from src by following
// particle edges (production vertex -> end vertex) forward through the
// vertex graph.
func (e *Event) reaches(src, dst int) bool {
	if src == dst {
		return true
	}
	seen := make(map[int]bool, len(e.vertices))
	stack := []int{src}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		v, ok := e.Vertex(id)
		if !ok {
			continue
		}
		for _, pid := range v.particlesOut {
			p, ok := e.Particle(pid)
			if !ok || p.end == 0 {
				continue
			}
			if p.end == dst {
				return true
			}
			stack = append(stack, p.end)
		}
	}
	return false
}

// Validate checks the two structural invariants: the vertex graph is
// acyclic and every particle/vertex link is recorded on both ends.
// Linking through the Event API preserves both; Validate exists for
// codec output and for callers that assembled events field by field.
func (e *Event) Validate() error {
	if err := e.validateConsistency(); err != nil {
		return err
	}
	return e.validateAcyclic()
}

func (e *Event) validateConsistency() error {
	for i := range e.particles {
		p := &e.particles[i]
		if p.production != 0 {
			v, ok := e.Vertex(p.production)
			if !ok {
				return errors.NewInvalidLink(p.id, p.production, "production vertex does not exist")
			}
			if !containsID(v.particlesOut, p.id) {
				return errors.Wrapf(errors.ErrInconsistentLink,
					"particle %d not in outgoing list of vertex %d", p.id, v.id)
			}
		}
		if p.end != 0 {
			v, ok := e.Vertex(p.end)
			if !ok {
				return errors.NewInvalidLink(p.id, p.end, "end vertex does not exist")
			}
			if !containsID(v.particlesIn, p.id) {
				return errors.Wrapf(errors.ErrInconsistentLink,
					"particle %d not in incoming list of vertex %d", p.id, v.id)
			}
		}
	}
	for i := range e.vertices {
		v := &e.vertices[i]
		for _, pid := range v.particlesOut {
			p, ok := e.Particle(pid)
			if !ok || p.production != v.id {
				return errors.Wrapf(errors.ErrInconsistentLink,
					"vertex %d lists particle %d as outgoing but the particle disagrees", v.id, pid)
			}
		}
		for _, pid := range v.particlesIn {
			p, ok := e.Particle(pid)
			if !ok || p.end != v.id {
				return errors.Wrapf(errors.ErrInconsistentLink,
					"vertex %d lists particle %d as incoming but the particle disagrees", v.id, pid)
			}
		}
	}
	return nil
}

// validateAcyclic runs an iterative three-color DFS over the vertex
// graph.
func (e *Event) validateAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int]int, len(e.vertices))

	var visit func(id int) error
	visit = func(id int) error {
		color[id] = gray
		v, _ := e.Vertex(id)
		for _, pid := range v.particlesOut {
			p, ok := e.Particle(pid)
			if !ok || p.end == 0 {
				continue
			}
			switch color[p.end] {
			case white:
				if err := visit(p.end); err != nil {
					return err
				}
			case gray:
				return errors.Wrapf(errors.ErrCyclicGraph, "cycle through vertex %d", p.end)
			}
		}
		color[id] = black
		return nil
	}

	for i := range e.vertices {
		id := e.vertices[i].id
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func containsID(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// Equal reports graph isomorphism under the id assignment: same event
// number, units, weights, metadata, particles with identical
// four-momenta and links, vertices with identical edge lists, and
// equal attribute maps throughout. Used by the round-trip tests.
func (e *Event) Equal(o *Event) bool {
	if e.EventNumber != o.EventNumber || e.Units != o.Units {
		return false
	}
	if len(e.Weights) != len(o.Weights) {
		return false
	}
	for i := range e.Weights {
		if e.Weights[i] != o.Weights[i] {
			return false
		}
	}
	if (e.CrossSection == nil) != (o.CrossSection == nil) {
		return false
	}
	if e.CrossSection != nil && *e.CrossSection != *o.CrossSection {
		return false
	}
	if (e.HeavyIon == nil) != (o.HeavyIon == nil) {
		return false
	}
	if e.HeavyIon != nil && *e.HeavyIon != *o.HeavyIon {
		return false
	}
	if !e.Attributes.Equal(o.Attributes) {
		return false
	}
	if len(e.particles) != len(o.particles) || len(e.vertices) != len(o.vertices) {
		return false
	}
	for i := range e.particles {
		a, b := &e.particles[i], &o.particles[i]
		if a.PID != b.PID || a.Status != b.Status || a.Momentum != b.Momentum {
			return false
		}
		// Generated mass is compared through the accessor: a decoded
		// particle always carries the mass the writer emitted, which
		// for an unset mass is the momentum mass.
		if a.GeneratedMass() != b.GeneratedMass() {
			return false
		}
		if a.production != b.production || a.end != b.end {
			return false
		}
		if !a.Attributes.Equal(b.Attributes) {
			return false
		}
	}
	for i := range e.vertices {
		a, b := &e.vertices[i], &o.vertices[i]
		if a.Status != b.Status || a.hasPosition != b.hasPosition {
			return false
		}
		if a.hasPosition && a.position != b.position {
			return false
		}
		if !equalIDs(a.particlesIn, b.particlesIn) || !equalIDs(a.particlesOut, b.particlesOut) {
			return false
		}
		if !a.Attributes.Equal(b.Attributes) {
			return false
		}
	}
	return true
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
