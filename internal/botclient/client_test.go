package botclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/freeeve/breakline/server/internal/protocol"
	"github.com/freeeve/breakline/server/pkg/sim"
)

func newTestClient(playerID string) *Client {
	return New(Config{
		ServerURL:  "http://example.invalid",
		Code:       "TEST01",
		PlayerID:   playerID,
		Team:       sim.Team1,
		Seed:       1,
		OrderEvery: time.Minute,
	})
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestHandleFrameTracksOwnSpawns(t *testing.T) {
	c := newTestClient("p1")

	tick := protocol.TickUpdateMsg{
		Type: protocol.TypeTickUpdate,
		Tick: 10,
		Commands: []sim.GameCommand{
			{Type: sim.CommandSpawnUnit, PlayerID: "p1", UnitType: "rifle_squad"},
			{Type: sim.CommandSpawnUnit, PlayerID: "p2", UnitType: "mg_team"},
			{Type: sim.CommandMove, PlayerID: "p2", UnitIDs: []string{"u2"}},
			{Type: sim.CommandSpawnUnit, PlayerID: "p1", UnitType: "scout_car"},
		},
		Checksum: 0xBEEF,
	}
	done, err := c.handleFrame(marshal(t, tick))
	if err != nil || done {
		t.Fatalf("handleFrame: done=%v err=%v", done, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tick != 10 || c.checksum != 0xBEEF {
		t.Errorf("tick/checksum: %d %#x", c.tick, c.checksum)
	}
	// Ids follow accepted-spawn order across both players.
	want := []string{"u1", "u3"}
	if len(c.myUnits) != 2 || c.myUnits[0] != want[0] || c.myUnits[1] != want[1] {
		t.Errorf("myUnits: got %v, want %v", c.myUnits, want)
	}
}

func TestHandleFrameSnapshotResync(t *testing.T) {
	c := newTestClient("p1")

	snap := protocol.SnapshotMsg{
		Type:  protocol.TypeSnapshot,
		Tick:  500,
		Phase: "battle",
		Units: []protocol.UnitMsg{
			{ID: "u3", OwnerID: "p1", UnitType: "rifle_squad"},
			{ID: "u7", OwnerID: "p2", UnitType: "medium_tank"},
			{ID: "u5", OwnerID: "p1", UnitType: "scout_car"},
		},
	}
	if _, err := c.handleFrame(marshal(t, snap)); err != nil {
		t.Fatalf("handleFrame: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tick != 500 || c.phase != "battle" {
		t.Errorf("tick/phase: %d %q", c.tick, c.phase)
	}
	if len(c.myUnits) != 2 {
		t.Fatalf("myUnits: %v", c.myUnits)
	}
	// The spawn sequence continues after the highest id on the field.
	if c.spawnSeq != 7 {
		t.Errorf("spawnSeq: got %d, want 7", c.spawnSeq)
	}
}

func TestHandleFrameGameEventFinishes(t *testing.T) {
	c := newTestClient("p1")

	zone := protocol.GameEventMsg{
		Type:      protocol.TypeGameEvent,
		EventType: sim.EventZoneCaptured,
		ZoneID:    "center",
	}
	if done, err := c.handleFrame(marshal(t, zone)); err != nil || done {
		t.Fatalf("zone event: done=%v err=%v", done, err)
	}

	victory := protocol.GameEventMsg{
		Type:      protocol.TypeGameEvent,
		EventType: sim.EventVictory,
		Winner:    "player",
		Score:     &protocol.ScoreMsg{Player: 2000, Enemy: 1400},
		Duration:  312.5,
	}
	done, err := c.handleFrame(marshal(t, victory))
	if err != nil || !done {
		t.Fatalf("victory event: done=%v err=%v", done, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finished || c.result.Winner != "player" || c.result.PlayerScore != 2000 {
		t.Errorf("result: %+v", c.result)
	}
}

func TestHandleFrameMalformed(t *testing.T) {
	c := newTestClient("p1")
	if _, err := c.handleFrame([]byte(`{"type":"state_snapshot","tick":"oops"}`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestDriveStopsOnCancel(t *testing.T) {
	c := newTestClient("p1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.drive(ctx, make(chan []byte))
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("drive error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("drive did not stop on cancel")
	}
}
