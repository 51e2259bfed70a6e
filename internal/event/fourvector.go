package event

import "math"

// FourVector is a generic Lorentz vector. For momenta the components
// are (px, py, pz, E); for positions they are (x, y, z, t). All
// components are IEEE double precision and no unit conversion is ever
// applied by the model itself.
type FourVector struct {
	X float64
	Y float64
	Z float64
	T float64
}

// NewMomentum builds a momentum four-vector from (px, py, pz, E).
func NewMomentum(px, py, pz, e float64) FourVector {
	return FourVector{X: px, Y: py, Z: pz, T: e}
}

// Px returns the x momentum component.
func (v FourVector) Px() float64 { return v.X }

// Py returns the y momentum component.
func (v FourVector) Py() float64 { return v.Y }

// Pz returns the z momentum component.
func (v FourVector) Pz() float64 { return v.Z }

// E returns the energy component.
func (v FourVector) E() float64 { return v.T }

// Pt returns the transverse momentum sqrt(px^2 + py^2).
func (v FourVector) Pt() float64 {
	return math.Hypot(v.X, v.Y)
}

// P returns the magnitude of the three-momentum.
func (v FourVector) P() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// M2 returns the squared invariant mass E^2 - p^2. May be negative
// for spacelike vectors.
func (v FourVector) M2() float64 {
	return v.T*v.T - (v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// M returns the invariant mass. For negative M2 it returns
// -sqrt(-M2), preserving the sign convention of the native library.
func (v FourVector) M() float64 {
	m2 := v.M2()
	if m2 < 0 {
		return -math.Sqrt(-m2)
	}
	return math.Sqrt(m2)
}

// Eta returns the pseudorapidity. Returns +/-Inf along the beam axis.
func (v FourVector) Eta() float64 {
	p := v.P()
	if p == v.Z {
		return math.Inf(1)
	}
	if p == -v.Z {
		return math.Inf(-1)
	}
	return 0.5 * math.Log((p+v.Z)/(p-v.Z))
}

// Phi returns the azimuthal angle in (-pi, pi].
func (v FourVector) Phi() float64 {
	return math.Atan2(v.Y, v.X)
}

// IsZero reports whether all four components are exactly zero.
func (v FourVector) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0 && v.T == 0
}

// Add returns the component-wise sum of the two vectors.
func (v FourVector) Add(o FourVector) FourVector {
	return FourVector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z, T: v.T + o.T}
}
