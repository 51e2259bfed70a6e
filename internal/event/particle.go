package event

// Particle is a single particle record. Particles are owned by the
// Event that contains them and are identified by a positive id unique
// within that Event. Vertex links are stored as vertex ids and mutated
// only through the owning Event's linking operations.
type Particle struct {
	// id is assigned by Event.AddParticle. 0 means detached.
	id int

	// PID is the PDG identifier. Plain signed integer; name/mass
	// lookup is delegated to external collaborators.
	PID int

	// Status is the generator-defined status code (e.g. 1 = final
	// state, 2 = decayed, 4 = beam).
	Status int

	// Momentum is the four-momentum (px, py, pz, E).
	Momentum FourVector

	// Attributes holds per-particle metadata.
	Attributes Attributes

	// generatedMass is the mass assigned by the generator, which may
	// differ from Momentum.M(). Tracked separately from its set flag
	// so that an explicit zero survives a round trip.
	generatedMass float64
	massSet       bool

	// production and end are vertex ids (negative), 0 when unset.
	production int
	end        int
}

// ID returns the particle's id within its Event, or 0 if detached.
func (p *Particle) ID() int { return p.id }

// ProductionVertex returns the id of the vertex this particle
// originates from, or 0 if none.
func (p *Particle) ProductionVertex() int { return p.production }

// EndVertex returns the id of the vertex this particle ends at, or 0
// if none.
func (p *Particle) EndVertex() int { return p.end }

// SetGeneratedMass records the generator mass.
func (p *Particle) SetGeneratedMass(m float64) {
	p.generatedMass = m
	p.massSet = true
}

// GeneratedMass returns the generator mass if one was set, else the
// mass computed from the four-momentum.
func (p *Particle) GeneratedMass() float64 {
	if p.massSet {
		return p.generatedMass
	}
	return p.Momentum.M()
}

// HasGeneratedMass reports whether a generator mass was explicitly set.
func (p *Particle) HasGeneratedMass() bool { return p.massSet }

// ClearGeneratedMass removes an explicitly set generator mass.
func (p *Particle) ClearGeneratedMass() {
	p.generatedMass = 0
	p.massSet = false
}
