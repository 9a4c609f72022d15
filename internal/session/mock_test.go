package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/breakline/server/internal/repository"
	"github.com/freeeve/breakline/server/pkg/sim"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// recordingChannel is an in-memory ClientChannel that records every
// frame it is sent.
type recordingChannel struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (c *recordingChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, append([]byte(nil), data...))
	return nil
}

func (c *recordingChannel) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && !c.fail
}

func (c *recordingChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingChannel) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

func (c *recordingChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingChannel) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

// frameType decodes the type tag of a wire frame.
func frameType(data []byte) string {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return ""
	}
	return tag.Type
}

func framesOfType(frames [][]byte, t string) [][]byte {
	var out [][]byte
	for _, f := range frames {
		if frameType(f) == t {
			out = append(out, f)
		}
	}
	return out
}

type stubRegistry struct {
	units   map[string]sim.UnitSpec
	weapons map[string]sim.WeaponSpec
}

func (r *stubRegistry) UnitSpec(id string) (sim.UnitSpec, bool) {
	s, ok := r.units[id]
	return s, ok
}

func (r *stubRegistry) WeaponSpec(id string) (sim.WeaponSpec, bool) {
	s, ok := r.weapons[id]
	return s, ok
}

func (r *stubRegistry) DivisionSpec(string) (sim.DivisionSpec, bool) {
	return sim.DivisionSpec{}, false
}

func testRegistry() *stubRegistry {
	return &stubRegistry{
		units: map[string]sim.UnitSpec{
			"rifles": {
				ID: "rifles", Name: "Rifle Squad", Class: "infantry", Cost: 100,
				MaxHealth: 100, Speed: 6, RotationSpeed: 12,
				Weapons: []string{"rifle"}, CanGarrison: true,
			},
		},
		weapons: map[string]sim.WeaponSpec{
			"rifle": {
				ID: "rifle", Name: "Rifles", Penetration: 2, Multiplier: 1,
				Range: 20, Cooldown: 1, Accuracy: 1,
			},
		},
	}
}

// testMap is a flat 100x100 world with one zone.
func testMap(seed uint32) *sim.GameMap {
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
			{ID: "alpha", Center: sim.Vec2{X: 50, Z: 50}, Width: 20, Height: 20, PointsPerTick: 5},
		},
		Deployments: []sim.DeploymentZone{
			{Team: sim.Team1, Min: sim.Vec2{X: 0, Z: 0}, Max: sim.Vec2{X: 100, Z: 10}},
			{Team: sim.Team2, Min: sim.Vec2{X: 0, Z: 90}, Max: sim.Vec2{X: 100, Z: 100}},
		},
	}
}

func testSimConfig() sim.Config {
	return sim.Config{
		TickRate:          60,
		DeploymentSeconds: 60,
		StartingCredits:   500,
	}
}

func testRoster() []PlayerSpec {
	return []PlayerSpec{
		{ID: "p1", Name: "Alice", Team: sim.Team1},
		{ID: "p2", Name: "Bob", Team: sim.Team2},
	}
}

// newTestSession builds a session whose game is driven manually with
// ProcessTick; the tick goroutine is never started. The ended counter,
// when non-nil, counts onGameEnd invocations.
func newTestSession(t *testing.T, ended *int) (*Session, *sim.Game) {
	t.Helper()
	roster := testRoster()
	slots := make([]sim.PlayerSlot, 0, len(roster))
	for _, p := range roster {
		slots = append(slots, sim.PlayerSlot{ID: p.ID, Team: p.Team})
	}
	g := sim.NewGame(testSimConfig(), testRegistry(), slots, zerolog.Nop())
	hook := func(string) {}
	if ended != nil {
		hook = func(string) { *ended++ }
	}
	s := New("TEST42", roster, g, zerolog.Nop(), hook)
	g.Initialize(testMap(1))
	return s, g
}

// recordingRegistry is an in-memory repository.SessionRegistry.
type recordingRegistry struct {
	mu           sync.Mutex
	registered   []repository.SessionInfo
	unregistered []string
	loads        []repository.LoadInfo
	closed       bool
}

func (r *recordingRegistry) RegisterSession(_ context.Context, info repository.SessionInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, info)
	return nil
}

func (r *recordingRegistry) UnregisterSession(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unregistered = append(r.unregistered, code)
	return nil
}

func (r *recordingRegistry) PublishLoad(_ context.Context, load repository.LoadInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, load)
	return nil
}

func (r *recordingRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingRegistry) registeredCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, info := range r.registered {
		out = append(out, info.Code)
	}
	return out
}

func (r *recordingRegistry) unregisteredCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.unregistered...)
}

func (r *recordingRegistry) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loads)
}
