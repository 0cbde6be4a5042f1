package persist

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/driftyard/simcore/internal/world"
)

// Breakdown is the per-kind and per-tier part of a snapshot, stored as a
// msgpack blob so new kinds or tiers need no schema change.
type Breakdown struct {
	Live        map[string]int    `msgpack:"live"`
	Pool        map[string]int    `msgpack:"pool"`
	Tiers       map[string]int    `msgpack:"tiers"`
	Invocations map[string]uint64 `msgpack:"inv"`
}

func NewBreakdown(st world.Stats) Breakdown {
	b := Breakdown{
		Live:        make(map[string]int, len(st.LiveByKind)),
		Pool:        make(map[string]int, len(st.PoolSizes)),
		Tiers:       make(map[string]int, len(st.TierSizes)),
		Invocations: make(map[string]uint64, len(st.TierInvocations)),
	}
	for k, n := range st.LiveByKind {
		b.Live[k.String()] = n
	}
	for k, n := range st.PoolSizes {
		b.Pool[k.String()] = n
	}
	for t, n := range st.TierSizes {
		b.Tiers[t.String()] = n
	}
	for t, n := range st.TierInvocations {
		b.Invocations[t.String()] = n
	}
	return b
}

func EncodeBreakdown(b Breakdown) ([]byte, error) {
	raw, err := msgpack.Marshal(&b)
	if err != nil {
		return nil, fmt.Errorf("encode breakdown: %w", err)
	}
	return raw, nil
}

func DecodeBreakdown(raw []byte) (Breakdown, error) {
	var b Breakdown
	if err := msgpack.Unmarshal(raw, &b); err != nil {
		return Breakdown{}, fmt.Errorf("decode breakdown: %w", err)
	}
	return b, nil
}
