// Package testutil provides shared test fixtures: an in-memory client
// channel, a compact unit roster, and a flat map.
package testutil

import (
	"errors"
	"sync"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// RecordingChannel is an in-memory client channel that records every
// frame sent through it. It satisfies session.ClientChannel.
type RecordingChannel struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

// Send records the frame, or fails when SetFail(true) was called.
func (c *RecordingChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("recording channel: send disabled")
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

// IsAlive reports whether the channel can still accept frames.
func (c *RecordingChannel) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.fail
}

// Close marks the channel closed.
func (c *RecordingChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// SetFail makes subsequent sends fail, simulating a dead transport.
func (c *RecordingChannel) SetFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

// Closed reports whether Close was called.
func (c *RecordingChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Frames returns a copy of everything sent so far.
func (c *RecordingChannel) Frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// StaticRegistry is a map-backed sim.UnitDataRegistry.
type StaticRegistry struct {
	Units     map[string]sim.UnitSpec
	Weapons   map[string]sim.WeaponSpec
	Divisions map[string]sim.DivisionSpec
}

func (r *StaticRegistry) UnitSpec(id string) (sim.UnitSpec, bool) {
	s, ok := r.Units[id]
	return s, ok
}

func (r *StaticRegistry) WeaponSpec(id string) (sim.WeaponSpec, bool) {
	s, ok := r.Weapons[id]
	return s, ok
}

func (r *StaticRegistry) DivisionSpec(id string) (sim.DivisionSpec, bool) {
	s, ok := r.Divisions[id]
	return s, ok
}

// TinyRegistry returns a three-unit roster: rifle squad, transport, and
// tank, enough to exercise spawning, mounting, and combat.
func TinyRegistry() *StaticRegistry {
	return &StaticRegistry{
		Units: map[string]sim.UnitSpec{
			"rifles": {
				ID: "rifles", Name: "Rifle Squad", Class: "infantry", Cost: 100,
				MaxHealth: 100, Speed: 6, RotationSpeed: 12,
				Weapons: []string{"rifle"}, CanGarrison: true, CanCapture: true,
			},
			"apc": {
				ID: "apc", Name: "APC", Class: "vehicle", Cost: 300,
				MaxHealth: 150, Speed: 10, RotationSpeed: 6,
				Armor:   sim.ArmorProfile{Front: 4, Side: 2, Rear: 1},
				Weapons: []string{"mgun"}, TransportCapacity: 2,
			},
			"tank": {
				ID: "tank", Name: "Battle Tank", Class: "tank", Cost: 600,
				MaxHealth: 200, Speed: 8, RotationSpeed: 4,
				Armor:   sim.ArmorProfile{Front: 10, Side: 6, Rear: 3},
				Weapons: []string{"cannon"},
			},
		},
		Weapons: map[string]sim.WeaponSpec{
			"rifle": {
				ID: "rifle", Name: "Rifles", Penetration: 2, Multiplier: 1,
				Range: 20, Cooldown: 1, Accuracy: 1,
			},
			"mgun": {
				ID: "mgun", Name: "Machine Gun", Penetration: 3, Multiplier: 1,
				Range: 25, Cooldown: 0.5, Accuracy: 1,
			},
			"cannon": {
				ID: "cannon", Name: "Cannon", Penetration: 14, Multiplier: 2,
				Range: 40, Cooldown: 2, Accuracy: 1,
			},
		},
		Divisions: map[string]sim.DivisionSpec{
			"combined": {
				ID: "combined", Name: "Combined Arms",
				Units: []string{"rifles", "apc", "tank"},
			},
		},
	}
}

// FlatMap returns a featureless 100x100 world with one central zone and
// one garrisonable building.
func FlatMap(seed uint32) *sim.GameMap {
	terrain := make([][]sim.TerrainCell, 50)
	for i := range terrain {
		terrain[i] = make([]sim.TerrainCell, 50)
	}
	return &sim.GameMap{
		Seed:     seed,
		CellSize: 2,
		Cols:     50,
		Rows:     50,
		Terrain:  terrain,
		Zones: []sim.ZoneDef{
			{ID: "center", Center: sim.Vec2{X: 50, Z: 50}, Width: 20, Height: 20, PointsPerTick: 5},
		},
		Buildings: []sim.BuildingDef{
			{ID: "house-1", Position: sim.Vec2{X: 30, Z: 30}, Capacity: 2},
		},
		Deployments: []sim.DeploymentZone{
			{Team: sim.Team1, Min: sim.Vec2{X: 0, Z: 0}, Max: sim.Vec2{X: 100, Z: 10}},
			{Team: sim.Team2, Min: sim.Vec2{X: 0, Z: 90}, Max: sim.Vec2{X: 100, Z: 100}},
		},
	}
}
