// Package hepevt implements the fixed-field legacy interchange
// format. Each event is a header line
//
//	E <event number> <particle count>
//
// followed by one line per particle:
//
//	<status> <pdg> <mo1> <mo2> <da1> <da2> <px> <py> <pz> <e> <m> <x> <y> <z> <t>
//
// Mothers and daughters are 1-based particle indices; zero means
// none. The position fields are the particle's production point.
//
// The format carries no vertex entities. The writer flattens the
// graph into mother/daughter index ranges (non-contiguous incoming
// sets collapse to their min..max span); the reader synthesizes one
// vertex per distinct mother range. Motherless particles that are not
// themselves mothers are attached as the outgoing side of a single
// primary vertex. Status codes use the legacy convention where 3
// marks a beam particle, mapped to and from status 4.
//
// Weights, cross-sections, and attributes have no representation here
// and are dropped on write.
package hepevt

import "strconv"

// legacy beam status
const (
	beamStatus       = 4
	legacyBeamStatus = 3
)

func statusToLegacy(s int) int {
	if s == beamStatus {
		return legacyBeamStatus
	}
	return s
}

func statusFromLegacy(s int) int {
	if s == legacyBeamStatus {
		return beamStatus
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
