// Package event implements the in-memory Monte Carlo event record: a
// directed acyclic graph of particles and vertices with run-level
// metadata and generic typed attributes.
//
// Particles and vertices live in per-Event arenas and reference each
// other by integer id, never by pointer. Particle ids are positive
// (1..N), vertex ids are negative (-1..-M), matching the HepMC
// convention used by the exchange formats. An id of 0 always means
// "unset".
//
// All linking goes through the Event so that the two structural
// invariants hold after every mutation: the vertex graph is acyclic,
// and every particle/vertex edge is recorded on both ends.
package event
