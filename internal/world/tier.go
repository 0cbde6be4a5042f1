package world

import (
	"fmt"
	"strings"
)

// Tier is a cadence group. A tier with interval N has its entities updated
// every Nth tick with a delta scaled by N.
type Tier uint8

const (
	TierAuto Tier = iota // unassigned; the controller's TierPolicy decides
	TierRealtime
	TierHigh
	TierNormal
	TierIdle
)

// TierCount is the number of schedulable tiers.
const TierCount = int(TierIdle)

var tierNames = [...]string{"auto", "realtime", "high", "normal", "idle"}

func (t Tier) String() string {
	if int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Valid reports whether t is a schedulable tier.
func (t Tier) Valid() bool { return t >= TierRealtime && t <= TierIdle }

func (t Tier) index() int { return int(t) - 1 }

// Tiers returns every schedulable tier, fastest first.
func Tiers() []Tier {
	return []Tier{TierRealtime, TierHigh, TierNormal, TierIdle}
}

func ParseTier(name string) (Tier, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range tierNames {
		if i > 0 && s == n {
			return Tier(i), nil
		}
	}
	return TierAuto, fmt.Errorf("unknown tier %q", name)
}

// TierPolicy decides the cadence tier of a newly tracked entity.
type TierPolicy interface {
	AssignTier(e *Entity) Tier
}

// TierPolicyFunc adapts a function to TierPolicy.
type TierPolicyFunc func(e *Entity) Tier

func (f TierPolicyFunc) AssignTier(e *Entity) Tier { return f(e) }

// DefaultTierPolicy ranks entities by importance: anything player controlled
// and fast-moving weapons run every tick, ships every other tick, inert bodies
// at the normal cadence and ambient effects at the slowest.
var DefaultTierPolicy TierPolicy = TierPolicyFunc(defaultTier)

func defaultTier(e *Entity) Tier {
	if e.Player {
		return TierRealtime
	}
	switch e.kind {
	case KindProjectile, KindMissile:
		return TierRealtime
	case KindShip:
		return TierHigh
	case KindEffect:
		return TierIdle
	default:
		return TierNormal
	}
}
