package world

import (
	"fmt"
	"strings"
)

// Kind classifies simulated objects. It keys pools, drives tier heuristics and
// filters radius queries. The set of kinds is defined by the kind table
// (data/yaml/kinds.yaml); the zero value is not a valid kind.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindShip
	KindProjectile
	KindMissile
	KindDebris
	KindAsteroid
	KindEffect
	KindPickup
	KindStation

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:    "unknown",
	KindShip:       "ship",
	KindProjectile: "projectile",
	KindMissile:    "missile",
	KindDebris:     "debris",
	KindAsteroid:   "asteroid",
	KindEffect:     "effect",
	KindPickup:     "pickup",
	KindStation:    "station",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool { return k > KindUnknown && k < kindCount }

// ParseKind resolves a kind by its name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k := KindShip; k < kindCount; k++ {
		if kindNames[k] == n {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown kind %q", name)
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindShip; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// KindSet is a bitmask of kinds used as a query type filter.
// The empty set matches every kind.
type KindSet uint32

// KindSetOf builds a filter from kinds. Invalid kinds are ignored, so a set of
// only invalid kinds is empty and matches everything.
func KindSetOf(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		if k.Valid() {
			s |= 1 << k
		}
	}
	return s
}

func (s KindSet) Has(k Kind) bool { return k.Valid() && s&(1<<k) != 0 }

// Matches reports whether an entity of kind k passes the filter.
func (s KindSet) Matches(k Kind) bool { return s == 0 || s.Has(k) }

func (s KindSet) String() string {
	if s == 0 {
		return "*"
	}
	var parts []string
	for k := KindShip; k < kindCount; k++ {
		if s.Has(k) {
			parts = append(parts, k.String())
		}
	}
	return strings.Join(parts, "|")
}
