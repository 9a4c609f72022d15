package sim

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Semantic command rejection reasons.
var (
	ErrUnknownPlayer       = errors.New("unknown player")
	ErrUnitNotFound        = errors.New("unit not found")
	ErrNotYourUnit         = errors.New("unit belongs to another team")
	ErrUnitMounted         = errors.New("unit is mounted in a transport")
	ErrTargetNotFound      = errors.New("target unit not found")
	ErrUnknownUnitType     = errors.New("unknown unit type")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrBuildingNotFound    = errors.New("building not found")
)

// PlayerSlot binds a player id to a team for command validation.
type PlayerSlot struct {
	ID   string
	Team Team
}

// Game is the authoritative lockstep simulation for one match. It owns a
// fixed-rate tick goroutine; all state mutation happens inside the tick
// under the game mutex. Commands arrive through ReceiveCommand and apply
// at the start of the next tick.
type Game struct {
	cfg      Config
	log      zerolog.Logger
	registry UnitDataRegistry

	mu          sync.Mutex
	gameMap     *GameMap
	units       map[string]*Unit
	unitOrder   []string
	unitsByTeam map[Team][]string
	playerTeams map[string]Team
	rng         *RNG
	economy     *Economy
	transports  *TransportManager
	buildings   *BuildingManager
	smoke       *SmokeManager

	tick        int64
	phase       Phase
	deployTicks int64
	unitSeq     int
	smokeSeq    int
	outbox      []Message

	running bool
	stopped bool
	stopCh  chan struct{}

	broadcast BroadcastFn
	onFatal   func(any)

	pendingMu sync.Mutex
	pending   []GameCommand
	closed    bool
}

// NewGame builds a simulation for the given players. Call Initialize
// with a map, then Start.
func NewGame(cfg Config, registry UnitDataRegistry, players []PlayerSlot, logger zerolog.Logger) *Game {
	g := &Game{
		cfg:         cfg.withDefaults(),
		log:         logger,
		registry:    registry,
		units:       make(map[string]*Unit),
		unitsByTeam: make(map[Team][]string),
		playerTeams: make(map[string]Team, len(players)),
		rng:         NewRNG(0),
		transports:  NewTransportManager(),
		buildings:   NewBuildingManager(),
		smoke:       NewSmokeManager(),
		phase:       PhaseLoading,
	}
	for _, p := range players {
		g.playerTeams[p.ID] = p.Team
	}
	return g
}

// SetBroadcast installs the outbound message sink. Not safe to change
// after Start.
func (g *Game) SetBroadcast(fn BroadcastFn) {
	g.broadcast = fn
}

// SetFatalHandler installs the callback invoked when a tick panics. Not
// safe to change after Start.
func (g *Game) SetFatalHandler(fn func(any)) {
	g.onFatal = fn
}

// Initialize binds the map, seeds the RNG from it, and opens the
// deployment phase. Must be called before Start.
func (g *Game) Initialize(m *GameMap) {
	g.mu.Lock()
	g.gameMap = m
	g.rng.SetSeed(m.Seed)
	g.economy = NewEconomy(g.cfg, m.Zones, g.zoneOccupants)
	g.buildings.Register(m.Buildings)
	g.phase = PhaseSetup
	// Deployment counts whole ticks so the battle transition lands on an
	// exact tick regardless of float accumulation.
	g.deployTicks = int64(math.Round(g.cfg.DeploymentSeconds * float64(g.cfg.TickRate)))
	g.mu.Unlock()

	g.send(PhaseChange{Phase: PhaseSetup, DeploymentSeconds: g.cfg.DeploymentSeconds})
	g.log.Info().
		Uint32("seed", m.Seed).
		Int("zones", len(m.Zones)).
		Int("buildings", len(m.Buildings)).
		Msg("game initialized")
}

// Start launches the tick loop. It is a no-op once the game has started
// or stopped, or before Initialize.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running || g.stopped || g.phase == PhaseLoading {
		return
	}
	g.running = true
	g.stopCh = make(chan struct{})
	go g.run(g.stopCh)
}

// Stop halts the tick loop permanently and drops queued commands.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Game) stopLocked() {
	if g.stopped {
		return
	}
	g.stopped = true
	if g.running {
		close(g.stopCh)
		g.running = false
	}
	g.pendingMu.Lock()
	g.closed = true
	g.pending = nil
	g.pendingMu.Unlock()
}

// Stopped reports whether the game has permanently halted.
func (g *Game) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Tick returns the last completed tick number.
func (g *Game) Tick() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick
}

// CurrentPhase returns the game phase.
func (g *Game) CurrentPhase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// run drives the fixed tick until stopped. A panic inside a tick is
// fatal to this game only: it is logged with a stack, the loop halts,
// and the fatal handler is notified.
func (g *Game) run(stop <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("tick panic")
			g.mu.Lock()
			g.stopLocked()
			fatal := g.onFatal
			g.mu.Unlock()
			if fatal != nil {
				fatal(r)
			}
		}
	}()

	ticker := time.NewTicker(g.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.ProcessTick()
		}
	}
}

// ReceiveCommand queues a command for the next tick. Commands arriving
// after the game stops are dropped. Safe for concurrent callers.
func (g *Game) ReceiveCommand(cmd GameCommand) {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	if g.closed {
		return
	}
	g.pending = append(g.pending, cmd)
}

func (g *Game) drainCommands() []GameCommand {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	cmds := g.pending
	g.pending = nil
	return cmds
}

// ProcessTick advances the simulation by one step and publishes the
// resulting messages. The tick goroutine calls this on its own; tests
// and offline harnesses may drive it directly instead of calling Start.
func (g *Game) ProcessTick() {
	start := time.Now()
	g.mu.Lock()
	msgs := g.processTickLocked()
	tick := g.tick
	g.mu.Unlock()

	for _, m := range msgs {
		g.send(m)
	}
	if elapsed := time.Since(start); elapsed > g.cfg.TickInterval() {
		g.log.Warn().
			Dur("elapsed", elapsed).
			Int64("tick", tick).
			Msg("tick over budget")
	}
}

func (g *Game) processTickLocked() []Message {
	if g.stopped || g.phase == PhaseLoading || g.phase == PhaseVictory {
		return nil
	}
	g.tick++
	accepted := g.applyCommands(g.drainCommands())
	dt := g.cfg.dt()

	if g.phase == PhaseSetup {
		g.deployTicks--
		if g.deployTicks <= 0 {
			g.transitionToBattle()
		}
	}
	if g.phase == PhaseBattle {
		for _, id := range g.unitOrder {
			u := g.units[id]
			if u == nil || !u.Alive() || u.Transport != "" {
				continue
			}
			u.fixedUpdate(g, dt)
		}
		g.economy.Update(dt)
		for _, pc := range g.economy.drainPendingCaptures() {
			g.economy.ApplyZoneCapture(pc.ZoneID, pc.Team)
		}
		g.smoke.Update(dt)
		g.transports.Sync(g)
		g.cleanupDead()
	}

	if accepted == nil {
		accepted = []GameCommand{}
	}
	g.outbox = append(g.outbox, TickUpdate{
		Tick:     g.tick,
		Commands: accepted,
		Checksum: g.stateChecksum(),
	})
	g.collectEvents()

	if w := g.economy.Winner(); w != TeamNone {
		g.phase = PhaseVictory
		g.outbox = append(g.outbox, GameEvent{
			Event:  EventVictory,
			Winner: w,
			Score:  g.economy.Scores(),
		})
		g.log.Info().Str("winner", w.String()).Int64("tick", g.tick).Msg("victory")
		g.stopLocked()
	}

	msgs := g.outbox
	g.outbox = nil
	return msgs
}

// transitionToBattle unfreezes deployed units and opens the battle phase.
func (g *Game) transitionToBattle() {
	g.phase = PhaseBattle
	for _, id := range g.unitOrder {
		if u := g.units[id]; u != nil {
			u.Frozen = false
		}
	}
	g.outbox = append(g.outbox, PhaseChange{Phase: PhaseBattle})
	g.log.Info().Int64("tick", g.tick).Msg("battle phase")
}

func (g *Game) collectEvents() {
	for _, ev := range g.economy.DrainEvents() {
		switch ev.Kind {
		case ZoneEventCaptured:
			g.outbox = append(g.outbox, GameEvent{
				Event:  EventZoneCaptured,
				ZoneID: ev.ZoneID,
				Team:   ev.Team,
			})
			g.log.Info().Str("zone", ev.ZoneID).Str("team", ev.Team.String()).Msg("zone captured")
		case ZoneEventContested:
			g.outbox = append(g.outbox, GameEvent{
				Event:     EventZoneContested,
				ZoneID:    ev.ZoneID,
				Contested: ev.Contested,
			})
		}
	}
	for _, ev := range g.transports.DrainEvents() {
		g.log.Debug().
			Str("unit", ev.UnitID).
			Str("transport", ev.TransportID).
			Bool("mounted", ev.Kind == TransportEventMounted).
			Msg("transport")
	}
}

// applyCommands validates and executes queued commands in arrival order
// and returns the accepted ones for broadcast. A rejected command is
// dropped without side effects.
func (g *Game) applyCommands(cmds []GameCommand) []GameCommand {
	var accepted []GameCommand
	for _, cmd := range cmds {
		if err := g.validateCommand(&cmd); err != nil {
			g.log.Warn().
				Err(err).
				Str("player", cmd.PlayerID).
				Str("type", cmd.Type.String()).
				Msg("command rejected")
			continue
		}
		g.executeCommand(cmd)
		accepted = append(accepted, cmd)
	}
	return accepted
}

// validateCommand checks a command against game state. Off-map targets
// are clamped in place so the broadcast carries the corrected order.
func (g *Game) validateCommand(cmd *GameCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	team, ok := g.playerTeams[cmd.PlayerID]
	if !ok {
		return ErrUnknownPlayer
	}
	for _, id := range cmd.UnitIDs {
		u := g.units[id]
		if u == nil || !u.Alive() {
			return ErrUnitNotFound
		}
		if u.Team != team {
			return ErrNotYourUnit
		}
		if u.Transport != "" {
			return ErrUnitMounted
		}
	}
	switch cmd.Type {
	case CommandMove, CommandFastMove, CommandReverse, CommandAttackMove, CommandSpawnUnit:
		p := g.gameMap.Clamp(cmd.Target())
		cmd.TargetX, cmd.TargetZ = p.X, p.Z
	}
	switch cmd.Type {
	case CommandSpawnUnit:
		spec, ok := g.registry.UnitSpec(cmd.UnitType)
		if !ok {
			return ErrUnknownUnitType
		}
		if !g.economy.CanAfford(team, spec.Cost) {
			return ErrInsufficientCredits
		}
	case CommandAttack:
		t := g.units[cmd.TargetUnitID]
		if t == nil || !t.Alive() || t.Transport != "" {
			return ErrTargetNotFound
		}
	case CommandMount:
		t := g.units[cmd.TargetUnitID]
		if t == nil || !t.Alive() || t.Transport != "" {
			return ErrTargetNotFound
		}
		if t.Team != team {
			return ErrNotYourUnit
		}
	case CommandGarrison:
		if _, ok := g.buildings.Get(cmd.BuildingID); !ok {
			return ErrBuildingNotFound
		}
	}
	return nil
}

func (g *Game) executeCommand(cmd GameCommand) {
	team := g.playerTeams[cmd.PlayerID]
	switch cmd.Type {
	case CommandSpawnUnit:
		g.executeSpawn(cmd, team)
	case CommandStop:
		for _, id := range cmd.UnitIDs {
			if u := g.unit(id); u != nil {
				u.clearCommands()
			}
		}
	case CommandSetReturnFireOnly:
		for _, id := range cmd.UnitIDs {
			if u := g.unit(id); u != nil {
				u.ReturnFireOnly = cmd.Value
			}
		}
	case CommandUngarrison:
		for _, id := range cmd.UnitIDs {
			if u := g.unit(id); u != nil && u.GarrisonedIn != "" {
				g.buildings.Leave(g, u, g.rng)
			}
		}
	case CommandUnload:
		for _, id := range cmd.UnitIDs {
			if u := g.unit(id); u != nil {
				g.transports.UnloadAll(g, u, g.rng)
			}
		}
	case CommandDigIn:
		for _, id := range cmd.UnitIDs {
			if u := g.unit(id); u != nil {
				g.executeDigIn(u)
			}
		}
	default:
		uc := unitCommandFrom(cmd)
		for _, id := range cmd.UnitIDs {
			u := g.unit(id)
			if u == nil {
				continue
			}
			if u.GarrisonedIn != "" && requiresExit(cmd.Type) {
				g.buildings.Leave(g, u, g.rng)
			}
			u.setCommand(uc, cmd.Queue)
		}
	}
}

// requiresExit reports command types that pull a unit out of a garrison
// before taking effect.
func requiresExit(t CommandType) bool {
	switch t {
	case CommandMove, CommandFastMove, CommandReverse, CommandAttackMove,
		CommandMount, CommandGarrison:
		return true
	}
	return false
}

func (g *Game) executeSpawn(cmd GameCommand, team Team) {
	spec, ok := g.registry.UnitSpec(cmd.UnitType)
	if !ok || !g.economy.Spend(team, spec.Cost) {
		return
	}
	u := g.spawnUnit(spec, team, cmd.PlayerID, cmd.Target())
	g.log.Debug().
		Str("unit", u.ID).
		Str("type", spec.ID).
		Str("team", team.String()).
		Msg("unit spawned")
}

func (g *Game) executeDigIn(u *Unit) {
	if !u.Spec.HeavyWeapon || u.GarrisonedIn != "" || u.Transport != "" {
		return
	}
	b := g.buildings.SpawnDefensive(u.Position)
	g.buildings.TryGarrison(g, u, b.ID)
	u.clearCommands()
}

// spawnUnit creates a unit and registers it at the back of the update
// order. Units spawned during deployment stay frozen until battle.
func (g *Game) spawnUnit(spec UnitSpec, team Team, ownerID string, pos Vec2) *Unit {
	g.unitSeq++
	u := &Unit{
		ID:       fmt.Sprintf("u%d", g.unitSeq),
		Type:     spec.ID,
		Team:     team,
		OwnerID:  ownerID,
		Spec:     spec,
		Position: g.gameMap.Clamp(pos),
		Health:   spec.MaxHealth,
		Morale:   maxMorale,
		Frozen:   g.phase == PhaseSetup,
	}
	if team == Team2 {
		u.RotationY = math.Pi
	}
	for _, wid := range spec.Weapons {
		ws, ok := g.registry.WeaponSpec(wid)
		if !ok {
			g.log.Warn().Str("weapon", wid).Str("unit", spec.ID).Msg("unknown weapon spec")
			continue
		}
		u.weapons = append(u.weapons, weaponState{spec: ws})
	}
	g.units[u.ID] = u
	g.unitOrder = append(g.unitOrder, u.ID)
	g.unitsByTeam[team] = append(g.unitsByTeam[team], u.ID)
	return u
}

// destroyUnit removes a unit and every reference to it. Passengers go
// down with their transport.
func (g *Game) destroyUnit(u *Unit) {
	if _, ok := g.units[u.ID]; !ok {
		return
	}
	if len(u.Passengers) > 0 {
		for _, pid := range append([]string(nil), u.Passengers...) {
			if p := g.unit(pid); p != nil {
				p.Health = 0
				g.destroyUnit(p)
			}
		}
		u.Passengers = nil
	}
	if u.Transport != "" {
		g.transports.release(g, u)
	}
	if u.GarrisonedIn != "" {
		g.buildings.RemoveOccupant(u.GarrisonedIn, u.ID)
		u.GarrisonedIn = ""
	}
	delete(g.units, u.ID)
	g.unitOrder = removeID(g.unitOrder, u.ID)
	g.unitsByTeam[u.Team] = removeID(g.unitsByTeam[u.Team], u.ID)
	for _, id := range g.unitOrder {
		if o := g.units[id]; o != nil {
			o.forgetUnit(u.ID)
		}
	}
}

// cleanupDead removes destroyed units so the tick's checksum and the
// next tick's updates only see live ones.
func (g *Game) cleanupDead() {
	var dead []*Unit
	for _, id := range g.unitOrder {
		if u := g.units[id]; u != nil && !u.Alive() {
			dead = append(dead, u)
		}
	}
	for _, u := range dead {
		g.destroyUnit(u)
	}
}

// zoneOccupants reports capture-capable live units inside a zone.
// Mounted and routing units hold no ground.
func (g *Game) zoneOccupants(z *ZoneState) map[string]Team {
	out := make(map[string]Team)
	for _, team := range [...]Team{Team1, Team2} {
		for _, id := range g.unitsByTeam[team] {
			u := g.units[id]
			if u == nil || !u.Alive() || u.Transport != "" || u.IsRouting() || !u.Spec.CanCapture {
				continue
			}
			if z.Contains(u.Position) {
				out[u.ID] = team
			}
		}
	}
	return out
}

func (g *Game) unit(id string) *Unit {
	if id == "" {
		return nil
	}
	return g.units[id]
}

func (g *Game) nextSmokeID() string {
	g.smokeSeq++
	return fmt.Sprintf("smoke-%d", g.smokeSeq)
}

func (g *Game) send(m Message) {
	if g.broadcast != nil {
		g.broadcast(m)
	}
}

func removeID(ids []string, id string) []string {
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	return kept
}
