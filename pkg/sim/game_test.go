package sim

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGame_DeploymentTransitionsToBattleOnExactTick(t *testing.T) {
	g := NewGame(DefaultConfig(), testRegistry(), twoPlayers(), zerolog.Nop())
	c := &collector{}
	g.SetBroadcast(c.fn())
	g.Initialize(testMap(42))

	if got := g.CurrentPhase(); got != PhaseSetup {
		t.Fatalf("phase after init: got %v, want %v", got, PhaseSetup)
	}
	phases := c.phases()
	if len(phases) != 1 || phases[0].Phase != PhaseSetup {
		t.Fatalf("expected deployment phase_change, got %+v", phases)
	}
	if phases[0].DeploymentSeconds != DefaultDeploymentSeconds {
		t.Errorf("deployment duration: got %v, want %v",
			phases[0].DeploymentSeconds, DefaultDeploymentSeconds)
	}

	// 60 seconds at 60 ticks per second: battle begins inside tick 3600.
	for i := 0; i < 3599; i++ {
		g.ProcessTick()
	}
	if got := g.CurrentPhase(); got != PhaseSetup {
		t.Fatalf("phase at tick 3599: got %v, want %v", got, PhaseSetup)
	}
	g.ProcessTick()
	if got := g.CurrentPhase(); got != PhaseBattle {
		t.Fatalf("phase at tick 3600: got %v, want %v", got, PhaseBattle)
	}
	if got := g.Tick(); got != 3600 {
		t.Errorf("tick count: got %d, want 3600", got)
	}
	phases = c.phases()
	if len(phases) != 2 || phases[1].Phase != PhaseBattle {
		t.Fatalf("expected battle phase_change, got %+v", phases)
	}
}

func TestGame_SpawnDuringDeploymentIsFrozenUntilBattle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeploymentSeconds = 1
	g := NewGame(cfg, testRegistry(), twoPlayers(), zerolog.Nop())
	g.Initialize(testMap(1))

	g.ReceiveCommand(GameCommand{
		Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
		TargetX: 10, TargetZ: 5,
	})
	g.ProcessTick()

	u := g.unit("u1")
	if u == nil {
		t.Fatal("unit not spawned during deployment")
	}
	if !u.Frozen {
		t.Error("deployment spawn should be frozen")
	}

	// Frozen units ignore movement until the battle transition.
	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{"u1"},
		TargetX: 10, TargetZ: 50,
	})
	for i := 0; i < 30; i++ {
		g.ProcessTick()
	}
	if u.Position.Z != 5 {
		t.Errorf("frozen unit moved to z=%v", u.Position.Z)
	}

	for g.CurrentPhase() == PhaseSetup {
		g.ProcessTick()
	}
	if u.Frozen {
		t.Error("unit still frozen after battle transition")
	}
	g.ProcessTick()
	if u.Position.Z <= 5 {
		t.Error("unfrozen unit did not start moving")
	}
}

func TestGame_SpawnUnit_ExactCreditsBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeploymentSeconds = 0.001
	cfg.StartingCredits = 100
	g := NewGame(cfg, testRegistry(), twoPlayers(), zerolog.Nop())
	g.Initialize(testMap(1))
	g.ProcessTick()

	// Costs exactly the full balance: accepted, leaving zero credits.
	g.ReceiveCommand(GameCommand{
		Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
		TargetX: 10, TargetZ: 5,
	})
	g.ProcessTick()
	if len(g.unitOrder) != 1 {
		t.Fatalf("unit count: got %d, want 1", len(g.unitOrder))
	}
	if got := g.economy.Credits(Team1); got != 0 {
		t.Errorf("credits after spend: got %d, want 0", got)
	}

	// The next spawn has no funds behind it and is dropped.
	g.ReceiveCommand(GameCommand{
		Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
		TargetX: 12, TargetZ: 5,
	})
	g.ProcessTick()
	if len(g.unitOrder) != 1 {
		t.Errorf("unit count after broke spawn: got %d, want 1", len(g.unitOrder))
	}
}

func TestGame_RejectsCrossTeamCommands(t *testing.T) {
	g := battleGame(7)
	c := &collector{}
	g.SetBroadcast(c.fn())
	enemy := place(g, "rifles", Team2, "p2", Vec2{X: 50, Z: 60})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{enemy.ID},
		TargetX: 10, TargetZ: 10,
	})
	g.ProcessTick()

	if !enemy.current.idle() {
		t.Error("enemy unit accepted a cross-team order")
	}
	ticks := c.ticks()
	if len(ticks) != 1 {
		t.Fatalf("tick updates: got %d, want 1", len(ticks))
	}
	if len(ticks[0].Commands) != 0 {
		t.Errorf("rejected command was broadcast: %+v", ticks[0].Commands)
	}
}

func TestGame_RejectsUnknownPlayerAndDeadUnits(t *testing.T) {
	g := battleGame(7)
	u := place(g, "rifles", Team1, "p1", Vec2{X: 20, Z: 20})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "ghost", UnitIDs: []string{u.ID},
		TargetX: 30, TargetZ: 30,
	})
	g.ProcessTick()
	if !u.current.idle() {
		t.Error("order from unknown player accepted")
	}

	u.Health = 0
	g.ProcessTick()
	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 30, TargetZ: 30,
	})
	c := &collector{}
	g.SetBroadcast(c.fn())
	g.ProcessTick()
	if tu := c.ticks(); len(tu) != 1 || len(tu[0].Commands) != 0 {
		t.Error("order for dead unit accepted")
	}
}

func TestGame_ClampsOffMapTargetsIntoBroadcast(t *testing.T) {
	g := battleGame(3)
	c := &collector{}
	g.SetBroadcast(c.fn())
	u := place(g, "rifles", Team1, "p1", Vec2{X: 5, Z: 5})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: -50, TargetZ: 250,
	})
	g.ProcessTick()

	ticks := c.ticks()
	if len(ticks) != 1 || len(ticks[0].Commands) != 1 {
		t.Fatalf("expected one accepted command, got %+v", ticks)
	}
	got := ticks[0].Commands[0]
	if got.TargetX != 0 || got.TargetZ != 100 {
		t.Errorf("clamped target: got (%v,%v), want (0,100)", got.TargetX, got.TargetZ)
	}
	if u.current.target.X != 0 || u.current.target.Z != 100 {
		t.Errorf("unit order target: got %+v, want corner", u.current.target)
	}
}

func TestGame_DeterministicReplay(t *testing.T) {
	run := func() []uint32 {
		g := battleGame(42)
		var sums []uint32
		g.SetBroadcast(func(m Message) {
			if tu, ok := m.(TickUpdate); ok {
				sums = append(sums, tu.Checksum)
			}
		})
		g.ReceiveCommand(GameCommand{
			Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
			TargetX: 50, TargetZ: 20,
		})
		g.ReceiveCommand(GameCommand{
			Type: CommandSpawnUnit, PlayerID: "p2", UnitType: "rifles",
			TargetX: 50, TargetZ: 80,
		})
		g.ProcessTick()
		g.ReceiveCommand(GameCommand{
			Type: CommandAttackMove, PlayerID: "p1", UnitIDs: []string{"u1"},
			TargetX: 50, TargetZ: 80,
		})
		g.ReceiveCommand(GameCommand{
			Type: CommandAttackMove, PlayerID: "p2", UnitIDs: []string{"u2"},
			TargetX: 50, TargetZ: 20,
		})
		for i := 0; i < 900; i++ {
			g.ProcessTick()
		}
		return sums
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("checksum streams differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("checksum diverged at index %d: %08x vs %08x", i, a[i], b[i])
		}
	}
}

func TestGame_ChecksumDivergesOnDifferentCommands(t *testing.T) {
	run := func(extraMove bool) []uint32 {
		g := battleGame(42)
		var sums []uint32
		g.SetBroadcast(func(m Message) {
			if tu, ok := m.(TickUpdate); ok {
				sums = append(sums, tu.Checksum)
			}
		})
		g.ReceiveCommand(GameCommand{
			Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
			TargetX: 50, TargetZ: 20,
		})
		g.ProcessTick()
		if extraMove {
			g.ReceiveCommand(GameCommand{
				Type: CommandMove, PlayerID: "p1", UnitIDs: []string{"u1"},
				TargetX: 50, TargetZ: 40,
			})
		}
		for i := 0; i < 60; i++ {
			g.ProcessTick()
		}
		return sums
	}

	a, b := run(false), run(true)
	diverged := false
	for i := range a {
		if a[i] != b[i] {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Error("checksums identical despite different command streams")
	}
}

func TestGame_RepeatedMoveCollapsesToSingleMove(t *testing.T) {
	run := func(repeat bool) uint32 {
		g := battleGame(9)
		u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})
		g.ReceiveCommand(GameCommand{
			Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
			TargetX: 40, TargetZ: 10,
		})
		for i := 0; i < 400; i++ {
			if repeat && i == 50 {
				g.ReceiveCommand(GameCommand{
					Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
					TargetX: 40, TargetZ: 10,
				})
			}
			g.ProcessTick()
		}
		return g.Checksum()
	}
	if a, b := run(false), run(true); a != b {
		t.Errorf("re-issuing an identical move changed final state: %08x vs %08x", a, b)
	}
}

func TestGame_StopOnIdleUnitIsNoOp(t *testing.T) {
	run := func(stop bool) uint32 {
		g := battleGame(9)
		u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})
		if stop {
			g.ReceiveCommand(GameCommand{
				Type: CommandStop, PlayerID: "p1", UnitIDs: []string{u.ID},
			})
		}
		for i := 0; i < 10; i++ {
			g.ProcessTick()
		}
		return g.Checksum()
	}
	if a, b := run(false), run(true); a != b {
		t.Errorf("stop on an idle unit changed state: %08x vs %08x", a, b)
	}
}

func TestGame_QueuedMovesRunInOrder(t *testing.T) {
	g := battleGame(4)
	u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 20, TargetZ: 10,
	})
	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 20, TargetZ: 20, Queue: true,
	})
	g.ProcessTick()
	if len(u.queue) != 1 {
		t.Fatalf("queue length: got %d, want 1", len(u.queue))
	}

	for i := 0; i < 1200 && !u.current.idle(); i++ {
		g.ProcessTick()
	}
	if !u.current.idle() {
		t.Fatal("queued moves never completed")
	}
	if u.Position.Dist(Vec2{X: 20, Z: 20}) > arrivalEpsilon {
		t.Errorf("final position %+v, want near (20,20)", u.Position)
	}
}

func TestGame_DirectOrderReplacesQueue(t *testing.T) {
	g := battleGame(4)
	u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 90, TargetZ: 10,
	})
	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 90, TargetZ: 90, Queue: true,
	})
	g.ProcessTick()

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 10, TargetZ: 20,
	})
	g.ProcessTick()
	if len(u.queue) != 0 {
		t.Errorf("queue not cleared by direct order: %d entries", len(u.queue))
	}
	if u.current.target.X != 10 || u.current.target.Z != 20 {
		t.Errorf("current target %+v, want (10,20)", u.current.target)
	}
}

func TestGame_QueueStopsGrowingAtCap(t *testing.T) {
	g := battleGame(4)
	u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})

	g.ReceiveCommand(GameCommand{
		Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
		TargetX: 90, TargetZ: 10,
	})
	for i := 0; i < maxCommandQueue+4; i++ {
		g.ReceiveCommand(GameCommand{
			Type: CommandMove, PlayerID: "p1", UnitIDs: []string{u.ID},
			TargetX: float64(20 + i), TargetZ: 20, Queue: true,
		})
	}
	g.ProcessTick()
	if len(u.queue) != maxCommandQueue {
		t.Errorf("queue length: got %d, want %d", len(u.queue), maxCommandQueue)
	}
}

func TestGame_StartStopLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeploymentSeconds = 0.001
	g := NewGame(cfg, testRegistry(), twoPlayers(), zerolog.Nop())
	g.Initialize(testMap(1))

	g.Start()
	time.Sleep(120 * time.Millisecond)
	g.Stop()
	ticked := g.Tick()
	if ticked == 0 {
		t.Fatal("ticker never advanced the game")
	}

	// Stopped games ignore further commands and stay halted.
	g.ReceiveCommand(GameCommand{
		Type: CommandSpawnUnit, PlayerID: "p1", UnitType: "rifles",
		TargetX: 10, TargetZ: 5,
	})
	g.ProcessTick()
	if got := g.Tick(); got != ticked {
		t.Errorf("stopped game advanced from %d to %d", ticked, got)
	}
	if !g.Stopped() {
		t.Error("Stopped() false after Stop()")
	}
	g.Stop() // idempotent
	g.Start()
	if g.Tick() != ticked {
		t.Error("stopped game restarted")
	}
}

func TestGame_ChecksumReadsArePure(t *testing.T) {
	g := battleGame(8)
	place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})
	place(g, "tank", Team2, "p2", Vec2{X: 90, Z: 90})
	g.ProcessTick()

	before := g.Checksum()
	g.Snapshot()
	g.Checksum()
	if after := g.Checksum(); after != before {
		t.Errorf("observation changed state: %08x vs %08x", before, after)
	}
}

func TestGame_SnapshotShape(t *testing.T) {
	g := battleGame(8)
	u := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})
	g.ProcessTick()

	s := g.Snapshot()
	if s.Phase != PhaseBattle {
		t.Errorf("snapshot phase: got %v, want battle", s.Phase)
	}
	if s.Tick != g.Tick() {
		t.Errorf("snapshot tick: got %d, want %d", s.Tick, g.Tick())
	}
	if len(s.Units) != 1 {
		t.Fatalf("snapshot units: got %d, want 1", len(s.Units))
	}
	us := s.Units[0]
	if us.ID != u.ID || us.Team != Team1 || us.OwnerID != "p1" || us.Type != "rifles" {
		t.Errorf("unit snapshot fields: %+v", us)
	}
	if us.Health != 100 || us.Morale != 100 {
		t.Errorf("unit snapshot vitals: %+v", us)
	}
	if len(s.Zones) != 1 || s.Zones[0].ID != "alpha" {
		t.Errorf("snapshot zones: %+v", s.Zones)
	}
	if s.Credits.Team1 != DefaultStartingCredits {
		t.Errorf("snapshot credits: %+v", s.Credits)
	}
}

func TestGame_TeamIndexTracksSpawnsAndDeaths(t *testing.T) {
	g := battleGame(9)
	a := place(g, "rifles", Team1, "p1", Vec2{X: 10, Z: 10})
	b := place(g, "rifles", Team1, "p1", Vec2{X: 12, Z: 10})
	c := place(g, "tank", Team2, "p2", Vec2{X: 90, Z: 90})

	assertTeamIndex := func() {
		t.Helper()
		seen := make(map[string]int)
		for _, team := range [...]Team{Team1, Team2} {
			for _, id := range g.unitsByTeam[team] {
				seen[id]++
				u := g.units[id]
				if u == nil {
					t.Fatalf("team %v indexes missing unit %s", team, id)
				}
				if u.Team != team {
					t.Fatalf("unit %s on team %v indexed under %v", id, u.Team, team)
				}
			}
		}
		for _, id := range g.unitOrder {
			if seen[id] != 1 {
				t.Fatalf("unit %s appears %d times in the team index", id, seen[id])
			}
		}
	}

	assertTeamIndex()
	b.Health = 0
	g.ProcessTick()
	assertTeamIndex()
	if len(g.unitsByTeam[Team1]) != 1 || g.unitsByTeam[Team1][0] != a.ID {
		t.Errorf("team1 index after death: %v", g.unitsByTeam[Team1])
	}
	if len(g.unitsByTeam[Team2]) != 1 || g.unitsByTeam[Team2][0] != c.ID {
		t.Errorf("team2 index: %v", g.unitsByTeam[Team2])
	}
}
