package ecs

import "math"

// EntityID is the handle external code holds for a simulated object. It encodes a
// 32-bit serial in the lower bits and a 32-bit generation in the upper bits.
// Serials are minted once and never reused; the generation is bumped whenever the
// backing instance is recycled, so a stale handle fails to resolve in O(1).
type EntityID uint64

func NewEntityID(serial uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(serial))
}

func (id EntityID) Serial() uint32     { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Sequence mints entity serials. Serial 0 is reserved as "no entity".
type Sequence struct {
	last uint32
}

func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceFrom resumes a sequence whose last minted serial was last.
func NewSequenceFrom(last uint32) *Sequence {
	return &Sequence{last: last}
}

// Next returns the next serial. Serials are strictly increasing for the
// lifetime of the Sequence; once math.MaxUint32 has been minted the sequence
// is exhausted and Next reports false instead of wrapping.
func (s *Sequence) Next() (uint32, bool) {
	if s.last == math.MaxUint32 {
		return 0, false
	}
	s.last++
	return s.last, true
}

// Exhausted reports whether every serial has been minted.
func (s *Sequence) Exhausted() bool { return s.last == math.MaxUint32 }

// Last returns the most recently minted serial (0 if none).
func (s *Sequence) Last() uint32 { return s.last }
