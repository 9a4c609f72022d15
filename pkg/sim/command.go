package sim

import "errors"

// CommandType identifies a player order. The numeric values are wire
// protocol and must stay stable across releases.
type CommandType int

const (
	CommandMove              CommandType = 1
	CommandFastMove          CommandType = 2
	CommandReverse           CommandType = 3
	CommandAttack            CommandType = 4
	CommandAttackMove        CommandType = 5
	CommandStop              CommandType = 6
	CommandGarrison          CommandType = 7
	CommandUngarrison        CommandType = 8
	CommandSpawnUnit         CommandType = 9
	CommandMount             CommandType = 10
	CommandUnload            CommandType = 11
	CommandDigIn             CommandType = 12
	CommandSetReturnFireOnly CommandType = 13
)

// Known reports whether t is a defined command type.
func (t CommandType) Known() bool {
	return t >= CommandMove && t <= CommandSetReturnFireOnly
}

func (t CommandType) String() string {
	switch t {
	case CommandMove:
		return "move"
	case CommandFastMove:
		return "fast_move"
	case CommandReverse:
		return "reverse"
	case CommandAttack:
		return "attack"
	case CommandAttackMove:
		return "attack_move"
	case CommandStop:
		return "stop"
	case CommandGarrison:
		return "garrison"
	case CommandUngarrison:
		return "ungarrison"
	case CommandSpawnUnit:
		return "spawn_unit"
	case CommandMount:
		return "mount"
	case CommandUnload:
		return "unload"
	case CommandDigIn:
		return "dig_in"
	case CommandSetReturnFireOnly:
		return "set_return_fire_only"
	default:
		return "unknown"
	}
}

// Structural validation errors. Semantic failures (ownership, credits,
// dead targets) are reported separately by the game.
var (
	ErrUnknownCommandType = errors.New("unknown command type")
	ErrMissingPlayer      = errors.New("missing player id")
	ErrMissingUnits       = errors.New("missing unit ids")
	ErrNegativeTick       = errors.New("negative tick")
	ErrBadTarget          = errors.New("target coordinates are not finite")
	ErrMissingUnitType    = errors.New("missing unit type")
	ErrMissingTarget      = errors.New("missing target unit id")
	ErrMissingBuilding    = errors.New("missing building id")
)

// GameCommand is the wire form of a player order. Field presence depends
// on the command type; unused fields stay at their zero values and are
// omitted from JSON.
type GameCommand struct {
	Type     CommandType `json:"type"`
	Tick     int64       `json:"tick"`
	PlayerID string      `json:"playerId"`
	UnitIDs  []string    `json:"unitIds,omitempty"`

	TargetX      float64 `json:"targetX,omitempty"`
	TargetZ      float64 `json:"targetZ,omitempty"`
	TargetUnitID string  `json:"targetUnitId,omitempty"`
	Queue        bool    `json:"queue,omitempty"`
	UnitType     string  `json:"unitType,omitempty"`
	BuildingID   string  `json:"buildingId,omitempty"`
	Value        bool    `json:"value,omitempty"`
}

// Validate checks the structural shape of a command: type, player, tick,
// and the fields its type requires. It does not consult game state.
func (c GameCommand) Validate() error {
	if !c.Type.Known() {
		return ErrUnknownCommandType
	}
	if c.PlayerID == "" {
		return ErrMissingPlayer
	}
	if c.Tick < 0 {
		return ErrNegativeTick
	}
	if len(c.UnitIDs) == 0 && c.Type != CommandSpawnUnit {
		return ErrMissingUnits
	}
	switch c.Type {
	case CommandMove, CommandFastMove, CommandReverse, CommandAttackMove, CommandSpawnUnit:
		if !isFinite(c.TargetX) || !isFinite(c.TargetZ) {
			return ErrBadTarget
		}
	}
	switch c.Type {
	case CommandSpawnUnit:
		if c.UnitType == "" {
			return ErrMissingUnitType
		}
	case CommandAttack, CommandMount:
		if c.TargetUnitID == "" {
			return ErrMissingTarget
		}
	case CommandGarrison:
		if c.BuildingID == "" {
			return ErrMissingBuilding
		}
	}
	return nil
}

// Target returns the command's map coordinates as a vector.
func (c GameCommand) Target() Vec2 {
	return Vec2{X: c.TargetX, Z: c.TargetZ}
}

// unitCommand is the in-simulation form of an order bound to one unit.
// The zero value is idle.
type unitCommand struct {
	kind       CommandType
	target     Vec2
	targetUnit string
	building   string
}

func (c unitCommand) idle() bool {
	return c.kind == 0
}

func unitCommandFrom(cmd GameCommand) unitCommand {
	return unitCommand{
		kind:       cmd.Type,
		target:     cmd.Target(),
		targetUnit: cmd.TargetUnitID,
		building:   cmd.BuildingID,
	}
}
