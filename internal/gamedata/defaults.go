package gamedata

import "github.com/freeeve/breakline/server/pkg/sim"

// Default returns the built-in roster.
func Default() *Registry {
	r := &Registry{
		units:     make(map[string]sim.UnitSpec),
		weapons:   make(map[string]sim.WeaponSpec),
		divisions: make(map[string]sim.DivisionSpec),
	}
	for _, w := range defaultWeapons {
		r.weapons[w.ID] = w
	}
	for _, u := range defaultUnits {
		r.units[u.ID] = u
	}
	for _, d := range defaultDivisions {
		r.divisions[d.ID] = d
	}
	return r
}

var defaultWeapons = []sim.WeaponSpec{
	{
		ID: "rifle", Name: "Bolt-Action Rifles",
		Penetration: 2, Multiplier: 1, Range: 22, Cooldown: 1.2, Accuracy: 0.85,
	},
	{
		ID: "mgun", Name: "Medium Machine Gun",
		Penetration: 3, Multiplier: 1, Range: 28, Cooldown: 0.6, Accuracy: 0.75,
	},
	{
		ID: "light_mg", Name: "Hull Machine Gun",
		Penetration: 4, Multiplier: 1, Range: 26, Cooldown: 0.7, Accuracy: 0.7,
	},
	{
		ID: "smoke_mortar", Name: "Smoke Mortar",
		Range: 45, Cooldown: 6, Accuracy: 1, SmokeRadius: 8, SmokeSeconds: 12,
	},
	{
		ID: "tank_cannon", Name: "75mm Cannon",
		Penetration: 16, Multiplier: 2.5, Range: 50, Cooldown: 3.2, Accuracy: 0.8,
	},
}

var defaultUnits = []sim.UnitSpec{
	{
		ID: "rifle_squad", Name: "Rifle Squad", Class: "infantry", Cost: 100,
		MaxHealth: 120, Speed: 5, RotationSpeed: 8,
		Weapons: []string{"rifle"}, CanGarrison: true,
	},
	{
		ID: "command_squad", Name: "Command Squad", Class: "infantry", Cost: 200,
		MaxHealth: 100, Speed: 5, RotationSpeed: 8,
		Weapons: []string{"rifle"}, CanCapture: true, CanGarrison: true,
	},
	{
		ID: "mg_team", Name: "MG Team", Class: "infantry", Cost: 150,
		MaxHealth: 90, Speed: 3.5, RotationSpeed: 6,
		Weapons: []string{"mgun"}, HeavyWeapon: true, CanGarrison: true,
	},
	{
		ID: "mortar_team", Name: "Mortar Team", Class: "infantry", Cost: 180,
		MaxHealth: 90, Speed: 3.5, RotationSpeed: 6,
		Weapons: []string{"smoke_mortar"}, HeavyWeapon: true, CanGarrison: true,
	},
	{
		ID: "scout_car", Name: "Scout Car", Class: "vehicle", Cost: 250,
		MaxHealth: 140, Speed: 12, RotationSpeed: 5,
		Armor:   sim.ArmorProfile{Front: 3, Side: 2, Rear: 1},
		Weapons: []string{"light_mg"},
	},
	{
		ID: "halftrack", Name: "Halftrack", Class: "vehicle", Cost: 300,
		MaxHealth: 160, Speed: 9, RotationSpeed: 4,
		Armor:             sim.ArmorProfile{Front: 4, Side: 2, Rear: 1},
		Weapons:           []string{"light_mg"},
		TransportCapacity: 2,
	},
	{
		ID: "medium_tank", Name: "Medium Tank", Class: "tank", Cost: 600,
		MaxHealth: 240, Speed: 7, RotationSpeed: 3,
		Armor:   sim.ArmorProfile{Front: 12, Side: 7, Rear: 4},
		Weapons: []string{"tank_cannon"},
	},
}

var defaultDivisions = []sim.DivisionSpec{
	{
		ID: "infantry", Name: "Infantry Division",
		Units: []string{"rifle_squad", "command_squad", "mg_team", "mortar_team"},
	},
	{
		ID: "motorized", Name: "Motorized Division",
		Units: []string{"rifle_squad", "command_squad", "scout_car", "halftrack"},
	},
	{
		ID: "armored", Name: "Armored Division",
		Units: []string{"command_squad", "mg_team", "halftrack", "medium_tank"},
	},
}
