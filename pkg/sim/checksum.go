package sim

import (
	"math"
	"sort"
)

// stateChecksum hashes the live units in id-sorted order, seeded with
// the RNG state so generator divergence is caught even when unit fields
// agree. Floats fold in as fixed-point integers to keep representation
// jitter out of the hash.
func (g *Game) stateChecksum() uint32 {
	ids := make([]string, 0, len(g.unitOrder))
	for _, id := range g.unitOrder {
		if u := g.units[id]; u != nil && u.Alive() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	h := g.rng.State()
	for _, id := range ids {
		u := g.units[id]
		for i := 0; i < len(id); i++ {
			h = hashStep(h, uint32(id[i]))
		}
		h = hashStep(h, fixed2(u.Position.X))
		h = hashStep(h, fixed2(u.Position.Z))
		h = hashStep(h, floor32(u.Health))
		h = hashStep(h, floor32(u.Morale))
		h = hashStep(h, floor32(u.Suppression))
		h = hashStep(h, bit(u.Frozen))
		h = hashStep(h, bit(u.IsRouting()))
	}
	return h
}

// Checksum returns the checksum of the current state. The same value is
// published with every tick update.
func (g *Game) Checksum() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateChecksum()
}

func hashStep(h, v uint32) uint32 {
	return (h << 5) - h + v
}

func fixed2(v float64) uint32 {
	return uint32(int32(math.Floor(v * 100)))
}

func floor32(v float64) uint32 {
	return uint32(int32(math.Floor(v)))
}

func bit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
