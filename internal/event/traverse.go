package event

import "github.com/xtxerr/hepio/internal/errors"

// ErrTraversalInvalidated is reported by a Walker whose Event was
// structurally mutated after the walker was created. Request a fresh
// traversal after any edit.
var ErrTraversalInvalidated = errors.Wrap(errors.ErrInvalidGraphLink, "traversal invalidated by mutation")

// Walker is a lazy, finite, forward-only traversal over the particles
// reachable from a starting vertex. It is not restartable: once
// exhausted, or once the underlying Event mutates, a new Walker must
// be requested.
//
//	w := ev.Descendants(vtx)
//	for w.Next() {
//		p := w.Particle()
//		...
//	}
//	if err := w.Err(); err != nil { ... }
type Walker struct {
	ev      *Event
	version uint64

	// pending particle ids not yet yielded; stack of vertices whose
	// outgoing (or incoming, for ancestors) side is still unexplored.
	pending []int
	stack   []int
	seenV   map[int]bool
	seenP   map[int]bool

	backward bool
	current  int
	err      error
}

// Descendants returns a walker over every particle reachable forward
// from the given vertex: its outgoing particles, the particles
// produced by their end vertices, and so on.
func (e *Event) Descendants(vertexID int) *Walker {
	return e.newWalker(vertexID, false)
}

// Ancestors returns a walker over every particle reachable backward
// from the given vertex: its incoming particles, the particles ending
// at their production vertices, and so on.
func (e *Event) Ancestors(vertexID int) *Walker {
	return e.newWalker(vertexID, true)
}

func (e *Event) newWalker(vertexID int, backward bool) *Walker {
	w := &Walker{
		ev:       e,
		version:  e.version,
		backward: backward,
		seenV:    make(map[int]bool),
		seenP:    make(map[int]bool),
	}
	if _, ok := e.Vertex(vertexID); !ok {
		w.err = errors.NewInvalidLink(0, vertexID, "unknown vertex")
		return w
	}
	w.stack = append(w.stack, vertexID)
	return w
}

// Next advances to the next particle. It returns false when the
// traversal is exhausted or invalid; check Err to distinguish.
func (w *Walker) Next() bool {
	if w.err != nil {
		return false
	}
	if w.version != w.ev.version {
		w.err = ErrTraversalInvalidated
		return false
	}

	for len(w.pending) == 0 {
		if len(w.stack) == 0 {
			return false
		}
		id := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if w.seenV[id] {
			continue
		}
		w.seenV[id] = true
		w.expand(id)
	}

	w.current = w.pending[0]
	w.pending = w.pending[1:]
	return true
}

// expand queues the particles on the walk side of the vertex and
// pushes the vertices they connect to.
func (w *Walker) expand(vertexID int) {
	v, ok := w.ev.Vertex(vertexID)
	if !ok {
		return
	}
	var ids []int
	if w.backward {
		ids = v.particlesIn
	} else {
		ids = v.particlesOut
	}
	for _, pid := range ids {
		if w.seenP[pid] {
			continue
		}
		w.seenP[pid] = true
		w.pending = append(w.pending, pid)

		p, ok := w.ev.Particle(pid)
		if !ok {
			continue
		}
		next := p.end
		if w.backward {
			next = p.production
		}
		if next != 0 && !w.seenV[next] {
			w.stack = append(w.stack, next)
		}
	}
}

// Particle returns the particle at the current position. Only valid
// after a true return from Next.
func (w *Walker) Particle() *Particle {
	p, _ := w.ev.Particle(w.current)
	return p
}

// Err returns the error that stopped the traversal, if any.
func (w *Walker) Err() error {
	return w.err
}
