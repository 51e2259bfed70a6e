package event

import (
	"fmt"

	"github.com/xtxerr/hepio/internal/errors"
)

// MomentumUnit is the unit of the momentum/energy components carried
// by a stream. Units are stream-level metadata; the model performs no
// conversion.
type MomentumUnit int

const (
	// GEV is giga-electronvolt, the default.
	GEV MomentumUnit = iota
	// MEV is mega-electronvolt.
	MEV
)

// String returns the exchange-format spelling of the unit.
func (u MomentumUnit) String() string {
	if u == MEV {
		return "MEV"
	}
	return "GEV"
}

// LengthUnit is the unit of vertex position components.
type LengthUnit int

const (
	// MM is millimeter, the default.
	MM LengthUnit = iota
	// CM is centimeter.
	CM
)

// String returns the exchange-format spelling of the unit.
func (u LengthUnit) String() string {
	if u == CM {
		return "CM"
	}
	return "MM"
}

// Units is the pair of units declared by a stream's U record.
type Units struct {
	Momentum MomentumUnit
	Length   LengthUnit
}

// DefaultUnits returns GEV/MM.
func DefaultUnits() Units {
	return Units{Momentum: GEV, Length: MM}
}

// ParseUnits parses the two unit tokens of a U record.
func ParseUnits(momentum, length string) (Units, error) {
	var u Units
	switch momentum {
	case "GEV":
		u.Momentum = GEV
	case "MEV":
		u.Momentum = MEV
	default:
		return u, errors.Wrapf(errors.ErrInvalidUnits, "momentum unit %q", momentum)
	}
	switch length {
	case "MM":
		u.Length = MM
	case "CM":
		u.Length = CM
	default:
		return u, errors.Wrapf(errors.ErrInvalidUnits, "length unit %q", length)
	}
	return u, nil
}

// String returns "MOMENTUM LENGTH" as written in the formats.
func (u Units) String() string {
	return fmt.Sprintf("%s %s", u.Momentum, u.Length)
}
