package sim

// ArmorProfile holds directional armor values. The arc hit is decided by
// the angle between the defender's facing and the incoming shot.
type ArmorProfile struct {
	Front float64
	Side  float64
	Rear  float64
}

// UnitSpec is an immutable unit archetype. Specs are copied onto units at
// spawn so a tick never performs registry lookups.
type UnitSpec struct {
	ID   string
	Name string
	// Class is a broad category ("infantry", "vehicle", "tank"). The
	// simulation treats it as opaque; clients use it for display.
	Class string
	Cost  int

	MaxHealth float64
	// Speed in world units per second.
	Speed float64
	// RotationSpeed in radians per second.
	RotationSpeed float64
	Armor         ArmorProfile
	// Weapons lists weapon spec ids, fired independently.
	Weapons []string

	// TransportCapacity above zero makes the unit a transport.
	TransportCapacity int
	// CanCapture marks units that make capture zone progress.
	CanCapture bool
	// HeavyWeapon units may dig in, creating a defensive position.
	HeavyWeapon bool
	// CanGarrison marks units allowed inside buildings.
	CanGarrison bool
}

// WeaponSpec is an immutable weapon archetype.
type WeaponSpec struct {
	ID   string
	Name string
	// Penetration is matched against the target's facing armor.
	Penetration float64
	// Multiplier scales the penetration damage, typically by warhead size.
	Multiplier float64
	// Range in world units.
	Range float64
	// Cooldown in seconds between shots.
	Cooldown float64
	// Accuracy is the base hit chance in [0, 1].
	Accuracy float64
	// SmokeRadius above zero makes this a smoke weapon: rounds deal no
	// damage and place a vision-blocking cloud at the target instead.
	SmokeRadius  float64
	SmokeSeconds float64
}

// DivisionSpec groups the unit types a player may field.
type DivisionSpec struct {
	ID    string
	Name  string
	Units []string
}

// UnitDataRegistry is the read-only lookup for unit, weapon, and division
// specs. Implementations must be safe for concurrent readers; the
// simulation never mutates the registry.
type UnitDataRegistry interface {
	UnitSpec(id string) (UnitSpec, bool)
	WeaponSpec(id string) (WeaponSpec, bool)
	DivisionSpec(id string) (DivisionSpec, bool)
}
