package event

// CrossSection is the optional generated cross-section record attached
// to an Event. Values are in picobarn, following the exchange formats.
type CrossSection struct {
	Value       float64
	Uncertainty float64

	// Accepted/Attempted event counts as reported by the generator.
	// Negative means not provided.
	Accepted  int64
	Attempted int64
}

// HeavyIon is the optional heavy-ion collision record attached to an
// Event. Field meanings follow the exchange formats; values the
// generator did not provide are conventionally -1.
type HeavyIon struct {
	NCollHard                  int
	NPartProj                  int
	NPartTarg                  int
	NColl                      int
	SpectatorNeutrons          int
	SpectatorProtons           int
	NNwoundedCollisions        int
	NwoundedNCollisions        int
	NwoundedNwoundedCollisions int
	ImpactParameter            float64
	EventPlaneAngle            float64
	Eccentricity               float64
	SigmaInelNN                float64
	Centrality                 float64
}
