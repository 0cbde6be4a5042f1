package world

// TypePool keeps retired entity instances per kind for reuse. Pools are
// unbounded and never trimmed; Prewarm can fill them ahead of demand.
type TypePool struct {
	free   [kindCount][]*Entity
	hits   uint64
	misses uint64
}

func NewTypePool() *TypePool {
	return &TypePool{}
}

// Acquire pops the most recently released instance of kind, or returns nil.
func (p *TypePool) Acquire(kind Kind) *Entity {
	if !kind.Valid() {
		return nil
	}
	list := p.free[kind]
	if len(list) == 0 {
		p.misses++
		return nil
	}
	e := list[len(list)-1]
	list[len(list)-1] = nil
	p.free[kind] = list[:len(list)-1]
	e.pooled = false
	p.hits++
	return e
}

// Release resets e's transient state, invalidates outstanding handles and
// appends it to its kind's free list.
func (p *TypePool) Release(e *Entity) {
	if e.pooled || !e.kind.Valid() {
		return
	}
	e.reset()
	e.gen++
	e.pooled = true
	p.free[e.kind] = append(p.free[e.kind], e)
}

func (p *TypePool) Size(kind Kind) int {
	if !kind.Valid() {
		return 0
	}
	return len(p.free[kind])
}

// Sizes returns the free-list length of every kind that has one.
func (p *TypePool) Sizes() map[Kind]int {
	out := make(map[Kind]int)
	for k := KindShip; k < kindCount; k++ {
		if n := len(p.free[k]); n > 0 {
			out[k] = n
		}
	}
	return out
}

func (p *TypePool) Total() int {
	n := 0
	for k := range p.free {
		n += len(p.free[k])
	}
	return n
}

// Hits and Misses count Acquire calls served from and missed by the pool.
func (p *TypePool) Hits() uint64   { return p.hits }
func (p *TypePool) Misses() uint64 { return p.misses }

// each visits every pooled instance, filed under the kind it is pooled as.
func (p *TypePool) each(fn func(filed Kind, e *Entity)) {
	for k := range p.free {
		for _, e := range p.free[k] {
			fn(Kind(k), e)
		}
	}
}
