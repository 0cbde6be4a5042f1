package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/driftyard/simcore/internal/world"
)

// KindDef is one row of the kind table.
type KindDef struct {
	Name    string  `yaml:"name"`
	Tier    string  `yaml:"tier"`    // cadence override; empty = tier policy decides
	Prewarm int     `yaml:"prewarm"` // instances pooled at boot
	Speed   float64 `yaml:"speed"`   // demo spawn speed, units/s
	TTL     float64 `yaml:"ttl"`     // demo lifetime in seconds; 0 = immortal
	Sensor  float64 `yaml:"sensor"`  // demo targeting radius; 0 = no targeting
	Note    string  `yaml:"note"`

	kind world.Kind
	tier world.Tier
}

// Kind returns the resolved kind.
func (d *KindDef) Kind() world.Kind { return d.kind }

// TierOverride returns the configured tier, or TierAuto when unset.
func (d *KindDef) TierOverride() world.Tier { return d.tier }

type kindFile struct {
	Kinds []KindDef `yaml:"kinds"`
}

// KindTable is the external type classification: which kinds exist and how
// each is pooled and scheduled.
type KindTable struct {
	defs map[world.Kind]*KindDef
}

// LoadKindTable loads kinds.yaml.
func LoadKindTable(path string) (*KindTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read kind table: %w", err)
	}
	return ParseKindTable(raw)
}

func ParseKindTable(raw []byte) (*KindTable, error) {
	var f kindFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse kind table: %w", err)
	}
	t := &KindTable{defs: make(map[world.Kind]*KindDef, len(f.Kinds))}
	for i := range f.Kinds {
		d := &f.Kinds[i]
		k, err := world.ParseKind(d.Name)
		if err != nil {
			return nil, fmt.Errorf("kind table entry %d: %w", i, err)
		}
		if _, dup := t.defs[k]; dup {
			return nil, fmt.Errorf("kind table: duplicate kind %q", d.Name)
		}
		if d.Tier != "" {
			if d.tier, err = world.ParseTier(d.Tier); err != nil {
				return nil, fmt.Errorf("kind table %s: %w", d.Name, err)
			}
		}
		if d.Prewarm < 0 {
			return nil, fmt.Errorf("kind table %s: negative prewarm %d", d.Name, d.Prewarm)
		}
		d.kind = k
		t.defs[k] = d
	}
	return t, nil
}

// Get returns the definition of kind, or nil if the table does not list it.
func (t *KindTable) Get(kind world.Kind) *KindDef {
	return t.defs[kind]
}

func (t *KindTable) Count() int {
	return len(t.defs)
}

// Each visits the definitions in kind order.
func (t *KindTable) Each(fn func(d *KindDef)) {
	for _, k := range world.Kinds() {
		if d := t.defs[k]; d != nil {
			fn(d)
		}
	}
}

// TierPolicy layers the table's per-kind overrides on top of fallback.
// Player-controlled entities always go to fallback.
func (t *KindTable) TierPolicy(fallback world.TierPolicy) world.TierPolicy {
	if fallback == nil {
		fallback = world.DefaultTierPolicy
	}
	return world.TierPolicyFunc(func(e *world.Entity) world.Tier {
		if !e.Player {
			if d := t.defs[e.Kind()]; d != nil && d.tier.Valid() {
				return d.tier
			}
		}
		return fallback.AssignTier(e)
	})
}
