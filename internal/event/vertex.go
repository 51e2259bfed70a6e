package event

// Vertex is an interaction point in the event graph. Vertices are
// owned by their Event and identified by a negative id unique within
// it. The incoming/outgoing particle lists are ordered and mutated
// only through the owning Event's linking operations.
type Vertex struct {
	// id is assigned by Event.AddVertex. 0 means detached.
	id int

	// Status is the generator-defined vertex status code.
	Status int

	// Attributes holds per-vertex metadata.
	Attributes Attributes

	// position is the (x, y, z, t) production position. Optional;
	// tracked with an explicit flag so that an unset position is
	// distinguishable from one at the origin.
	position    FourVector
	hasPosition bool

	// particlesIn/particlesOut hold particle ids in insertion order.
	particlesIn  []int
	particlesOut []int
}

// ID returns the vertex id within its Event, or 0 if detached.
func (v *Vertex) ID() int { return v.id }

// SetPosition records the vertex position.
func (v *Vertex) SetPosition(pos FourVector) {
	v.position = pos
	v.hasPosition = true
}

// Position returns the vertex position. ok is false when no position
// was set.
func (v *Vertex) Position() (pos FourVector, ok bool) {
	return v.position, v.hasPosition
}

// HasPosition reports whether a position was set.
func (v *Vertex) HasPosition() bool { return v.hasPosition }

// ParticlesIn returns the ids of particles ending at this vertex, in
// insertion order. The returned slice is a copy.
func (v *Vertex) ParticlesIn() []int {
	out := make([]int, len(v.particlesIn))
	copy(out, v.particlesIn)
	return out
}

// ParticlesOut returns the ids of particles produced by this vertex,
// in insertion order. The returned slice is a copy.
func (v *Vertex) ParticlesOut() []int {
	out := make([]int, len(v.particlesOut))
	copy(out, v.particlesOut)
	return out
}

// NumIn returns the number of incoming particles.
func (v *Vertex) NumIn() int { return len(v.particlesIn) }

// NumOut returns the number of outgoing particles.
func (v *Vertex) NumOut() int { return len(v.particlesOut) }
