package world

import (
	"github.com/kamstrup/intmap"

	"github.com/driftyard/simcore/internal/core/ecs"
)

// Registry is the single source of truth for "is this entity alive".
// It maps serial → entity and keeps a per-kind type map for ByKind lookups.
// Single-goroutine access only.
type Registry struct {
	byID   *intmap.Map[uint32, *Entity]
	byKind [kindCount]*ecs.Set[Entity]
}

func NewRegistry(capacity int) *Registry {
	r := &Registry{byID: intmap.New[uint32, *Entity](capacity)}
	for k := range r.byKind {
		r.byKind[k] = ecs.NewSet[Entity](64)
	}
	return r
}

// add tracks e under its serial. The caller has already minted the serial.
func (r *Registry) add(e *Entity) error {
	if e.registered {
		return ErrAlreadyRegistered
	}
	if _, taken := r.byID.Get(e.serial); taken {
		return ErrAlreadyRegistered
	}
	r.byID.Put(e.serial, e)
	r.byKind[e.kind].Put(e.serial, e)
	e.registered = true
	return nil
}

// remove untracks e. It reports false when e was not registered.
func (r *Registry) remove(e *Entity) bool {
	cur, ok := r.byID.Get(e.serial)
	if !ok || cur != e {
		return false
	}
	r.byID.Del(e.serial)
	r.byKind[e.kind].Remove(e.serial)
	e.registered = false
	return true
}

// Get returns the live entity with the given serial.
func (r *Registry) Get(serial uint32) (*Entity, bool) {
	return r.byID.Get(serial)
}

// Resolve returns the entity behind h if h is still current.
func (r *Registry) Resolve(h ecs.EntityID) (*Entity, bool) {
	if h.IsZero() {
		return nil, false
	}
	e, ok := r.byID.Get(h.Serial())
	if !ok || e.gen != h.Generation() {
		return nil, false
	}
	return e, true
}

// ByKind appends every live entity of kind to buf.
func (r *Registry) ByKind(kind Kind, buf []*Entity) []*Entity {
	if kind >= kindCount {
		return buf
	}
	return r.byKind[kind].AppendTo(buf)
}

func (r *Registry) KindCount(kind Kind) int {
	if kind >= kindCount {
		return 0
	}
	return r.byKind[kind].Len()
}

func (r *Registry) Len() int { return r.byID.Len() }

// Each visits live entities until fn returns false.
func (r *Registry) Each(fn func(e *Entity) bool) {
	r.byID.ForEach(func(_ uint32, e *Entity) bool {
		return fn(e)
	})
}
