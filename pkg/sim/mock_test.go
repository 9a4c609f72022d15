package sim

import "github.com/rs/zerolog"

// Hand-rolled fixtures for driving the simulation in tests.

type stubRegistry struct {
	units     map[string]UnitSpec
	weapons   map[string]WeaponSpec
	divisions map[string]DivisionSpec
}

func (r *stubRegistry) UnitSpec(id string) (UnitSpec, bool) {
	s, ok := r.units[id]
	return s, ok
}

func (r *stubRegistry) WeaponSpec(id string) (WeaponSpec, bool) {
	s, ok := r.weapons[id]
	return s, ok
}

func (r *stubRegistry) DivisionSpec(id string) (DivisionSpec, bool) {
	s, ok := r.divisions[id]
	return s, ok
}

func testRegistry() *stubRegistry {
	return &stubRegistry{
		units: map[string]UnitSpec{
			"rifles": {
				ID: "rifles", Name: "Rifle Squad", Class: "infantry", Cost: 100,
				MaxHealth: 100, Speed: 6, RotationSpeed: 12,
				Weapons: []string{"rifle"}, CanGarrison: true,
			},
			"command": {
				ID: "command", Name: "Command Squad", Class: "infantry", Cost: 200,
				MaxHealth: 100, Speed: 6, RotationSpeed: 12,
				CanCapture: true, CanGarrison: true,
			},
			"mg": {
				ID: "mg", Name: "MG Team", Class: "infantry", Cost: 150,
				MaxHealth: 80, Speed: 4, RotationSpeed: 8,
				Weapons: []string{"mgun"}, HeavyWeapon: true, CanGarrison: true,
			},
			"mortar": {
				ID: "mortar", Name: "Smoke Mortar", Class: "infantry", Cost: 180,
				MaxHealth: 80, Speed: 4, RotationSpeed: 8,
				Weapons: []string{"smoke_round"}, HeavyWeapon: true, CanGarrison: true,
			},
			"apc": {
				ID: "apc", Name: "APC", Class: "vehicle", Cost: 300,
				MaxHealth: 150, Speed: 10, RotationSpeed: 6,
				Armor:   ArmorProfile{Front: 4, Side: 2, Rear: 1},
				Weapons: []string{"mgun"}, TransportCapacity: 2,
			},
			"tank": {
				ID: "tank", Name: "Battle Tank", Class: "tank", Cost: 600,
				MaxHealth: 200, Speed: 8, RotationSpeed: 4,
				Armor:   ArmorProfile{Front: 10, Side: 6, Rear: 3},
				Weapons: []string{"cannon"},
			},
		},
		weapons: map[string]WeaponSpec{
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
			"smoke_round": {
				ID: "smoke_round", Name: "Smoke Round", Range: 30, Cooldown: 3,
				Accuracy: 1, SmokeRadius: 6, SmokeSeconds: 8,
			},
		},
		divisions: map[string]DivisionSpec{
			"motorized": {
				ID: "motorized", Name: "Motorized",
				Units: []string{"rifles", "command", "mg", "mortar", "apc", "tank"},
			},
		},
	}
}

// testMap is a flat 100x100 world with one zone and two buildings.
func testMap(seed uint32) *GameMap {
	terrain := make([][]TerrainCell, 50)
	for i := range terrain {
		terrain[i] = make([]TerrainCell, 50)
	}
	return &GameMap{
		Seed:     seed,
		CellSize: 2,
		Cols:     50,
		Rows:     50,
		Terrain:  terrain,
		Zones: []ZoneDef{
			{ID: "alpha", Center: Vec2{X: 50, Z: 50}, Width: 20, Height: 20, PointsPerTick: 5},
		},
		Buildings: []BuildingDef{
			{ID: "house-1", Position: Vec2{X: 30, Z: 30}, Capacity: 2},
			{ID: "house-2", Position: Vec2{X: 70, Z: 70}, Capacity: 2, HighGround: true},
		},
		Deployments: []DeploymentZone{
			{Team: Team1, Min: Vec2{X: 0, Z: 0}, Max: Vec2{X: 100, Z: 10}},
			{Team: Team2, Min: Vec2{X: 0, Z: 90}, Max: Vec2{X: 100, Z: 100}},
		},
	}
}

func twoPlayers() []PlayerSlot {
	return []PlayerSlot{
		{ID: "p1", Team: Team1},
		{ID: "p2", Team: Team2},
	}
}

// battleGame returns an initialized game already in the battle phase,
// reached by burning a sub-tick deployment window on the first tick.
func battleGame(seed uint32) *Game {
	cfg := DefaultConfig()
	cfg.DeploymentSeconds = 0.001
	g := NewGame(cfg, testRegistry(), twoPlayers(), zerolog.Nop())
	g.Initialize(testMap(seed))
	g.ProcessTick()
	return g
}

// place spawns a unit directly for scenario setup, bypassing credits.
func place(g *Game, typeID string, team Team, owner string, pos Vec2) *Unit {
	spec, ok := g.registry.UnitSpec(typeID)
	if !ok {
		panic("unknown test unit type " + typeID)
	}
	return g.spawnUnit(spec, team, owner, pos)
}

// collector captures broadcast messages for assertions.
type collector struct {
	msgs []Message
}

func (c *collector) fn() BroadcastFn {
	return func(m Message) { c.msgs = append(c.msgs, m) }
}

func (c *collector) ticks() []TickUpdate {
	var out []TickUpdate
	for _, m := range c.msgs {
		if tu, ok := m.(TickUpdate); ok {
			out = append(out, tu)
		}
	}
	return out
}

func (c *collector) phases() []PhaseChange {
	var out []PhaseChange
	for _, m := range c.msgs {
		if pc, ok := m.(PhaseChange); ok {
			out = append(out, pc)
		}
	}
	return out
}

func (c *collector) events() []GameEvent {
	var out []GameEvent
	for _, m := range c.msgs {
		if ev, ok := m.(GameEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}
