package sim

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestGameCommand_Validate(t *testing.T) {
	valid := GameCommand{
		Type:     CommandMove,
		Tick:     10,
		PlayerID: "p1",
		UnitIDs:  []string{"u1"},
		TargetX:  40,
		TargetZ:  60,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid command rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*GameCommand)
		want   error
	}{
		{"zero type", func(c *GameCommand) { c.Type = 0 }, ErrUnknownCommandType},
		{"type past range", func(c *GameCommand) { c.Type = 14 }, ErrUnknownCommandType},
		{"no player", func(c *GameCommand) { c.PlayerID = "" }, ErrMissingPlayer},
		{"negative tick", func(c *GameCommand) { c.Tick = -1 }, ErrNegativeTick},
		{"no units", func(c *GameCommand) { c.UnitIDs = nil }, ErrMissingUnits},
		{"nan target", func(c *GameCommand) { c.TargetX = math.NaN() }, ErrBadTarget},
		{"inf target", func(c *GameCommand) { c.TargetZ = math.Inf(1) }, ErrBadTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := valid
			tc.mutate(&cmd)
			if err := cmd.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestGameCommand_Validate_TypeSpecificFields(t *testing.T) {
	spawn := GameCommand{Type: CommandSpawnUnit, PlayerID: "p1", TargetX: 5, TargetZ: 5}
	if err := spawn.Validate(); !errors.Is(err, ErrMissingUnitType) {
		t.Errorf("spawn without unit type: got %v, want %v", err, ErrMissingUnitType)
	}
	spawn.UnitType = "rifles"
	if err := spawn.Validate(); err != nil {
		t.Errorf("spawn with empty unit ids should be valid, got %v", err)
	}

	attack := GameCommand{Type: CommandAttack, PlayerID: "p1", UnitIDs: []string{"u1"}}
	if err := attack.Validate(); !errors.Is(err, ErrMissingTarget) {
		t.Errorf("attack without target: got %v, want %v", err, ErrMissingTarget)
	}

	garrison := GameCommand{Type: CommandGarrison, PlayerID: "p1", UnitIDs: []string{"u1"}}
	if err := garrison.Validate(); !errors.Is(err, ErrMissingBuilding) {
		t.Errorf("garrison without building: got %v, want %v", err, ErrMissingBuilding)
	}
}

func TestGameCommand_JSONRoundTrip(t *testing.T) {
	cases := []GameCommand{
		{
			Type: CommandAttackMove, Tick: 321, PlayerID: "p2",
			UnitIDs: []string{"u3", "u4"}, TargetX: 88.25, TargetZ: 12.5, Queue: true,
		},
		{
			Type: CommandSpawnUnit, Tick: 1, PlayerID: "p1",
			UnitType: "tank", TargetX: 10, TargetZ: 0,
		},
		{
			Type: CommandStop, Tick: 0, PlayerID: "p1", UnitIDs: []string{"u1"},
		},
	}
	for _, in := range cases {
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var out GameCommand
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("round trip changed command:\n in: %+v\nout: %+v", in, out)
		}
	}
}

func TestCommandType_Known(t *testing.T) {
	for ct := CommandMove; ct <= CommandSetReturnFireOnly; ct++ {
		if !ct.Known() {
			t.Errorf("type %d should be known", ct)
		}
		if ct.String() == "unknown" {
			t.Errorf("type %d has no name", ct)
		}
	}
	for _, ct := range []CommandType{0, -1, 14, 99} {
		if ct.Known() {
			t.Errorf("type %d should be unknown", ct)
		}
	}
}
