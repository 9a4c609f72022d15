package main

import (
	"math/rand"
	"strconv"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// orderEvery is the battle-phase order cadence in ticks. Both games
// replay the exact same stream, so it only shapes how busy the match is.
const orderEvery = 20

// deployForce is each side's opening build. The costs sum to the default
// starting credits exactly, so every spawn is accepted and unit ids stay
// predictable: wave w yields u<2w-1> for p1 and u<2w> for p2.
var deployForce = []string{"rifle_squad", "command_squad", "mg_team", "halftrack"}

// A smoke mortar arrives once base income has covered its cost.
const (
	reinforceType  = "mortar_team"
	reinforceAfter = 80.0 // seconds into the battle phase
)

// commandStream generates the shared pseudo-random order stream for a
// replay pair. Unit ids are synthesized by counting issued spawns, the
// same accepted-spawn numbering the games use; an order naming a unit
// that has since died bounces off both games identically.
type commandStream struct {
	rng         *rand.Rand
	players     [2]string
	objectives  []sim.Vec2
	buildings   []string
	worldW      float64
	worldH      float64
	deployTicks int64
	tickRate    int

	spawnSeq  int
	units     [2][]string
	infantry  [2][]string
	transport [2]string
}

func newCommandStream(seed int64, p1, p2 string, m *sim.GameMap, deployTicks int64, tickRate int) *commandStream {
	s := &commandStream{
		rng:         rand.New(rand.NewSource(seed)),
		players:     [2]string{p1, p2},
		worldW:      float64(m.Cols) * m.CellSize,
		worldH:      float64(m.Rows) * m.CellSize,
		deployTicks: deployTicks,
		tickRate:    tickRate,
	}
	for _, z := range m.Zones {
		s.objectives = append(s.objectives, z.Center)
	}
	for _, b := range m.Buildings {
		s.buildings = append(s.buildings, b.ID)
	}
	return s
}

// next returns the orders to inject before processing the given tick.
func (s *commandStream) next(tick int64) []sim.GameCommand {
	if tick <= s.deployTicks {
		return s.deployAt(tick)
	}
	var cmds []sim.GameCommand
	battleTick := tick - s.deployTicks
	if battleTick == int64(reinforceAfter*float64(s.tickRate)) {
		for p := range s.players {
			cmds = append(cmds, s.spawn(p, reinforceType))
		}
	}
	if battleTick%orderEvery == 0 {
		if o := s.order(); o.Type != 0 {
			cmds = append(cmds, o)
		}
	}
	return cmds
}

// deployAt spreads the opening build over the setup phase, one wave per
// fifth of it, both players in the same wave.
func (s *commandStream) deployAt(tick int64) []sim.GameCommand {
	step := s.deployTicks / 5
	if step == 0 || tick%step != 0 {
		return nil
	}
	wave := tick / step
	if wave < 1 || wave > int64(len(deployForce)) {
		return nil
	}
	var cmds []sim.GameCommand
	for p := range s.players {
		cmds = append(cmds, s.spawn(p, deployForce[wave-1]))
	}
	return cmds
}

func (s *commandStream) spawn(p int, unitType string) sim.GameCommand {
	s.spawnSeq++
	id := "u" + strconv.Itoa(s.spawnSeq)
	s.units[p] = append(s.units[p], id)
	if unitType == "halftrack" {
		s.transport[p] = id
	} else {
		s.infantry[p] = append(s.infantry[p], id)
	}

	// Team 1 deploys along the near strip, team 2 mirrored.
	x := s.worldW * (0.2 + 0.6*s.rng.Float64())
	z := 4 + 12*s.rng.Float64()
	if p == 1 {
		z = s.worldH - z
	}
	return sim.GameCommand{
		Type:     sim.CommandSpawnUnit,
		PlayerID: s.players[p],
		UnitType: unitType,
		TargetX:  x,
		TargetZ:  z,
	}
}

// order rolls one battle-phase command. The mix leans on movement toward
// the zones so the two forces actually meet, with the rest of the command
// set sprinkled in.
func (s *commandStream) order() sim.GameCommand {
	p := s.rng.Intn(2)
	if len(s.units[p]) == 0 || len(s.units[1-p]) == 0 {
		return sim.GameCommand{}
	}

	roll := s.rng.Float64()
	switch {
	case roll < 0.35:
		tgt := s.objectives[s.rng.Intn(len(s.objectives))]
		return sim.GameCommand{
			Type:     sim.CommandAttackMove,
			PlayerID: s.players[p],
			UnitIDs:  s.pick(p, 2),
			TargetX:  tgt.X + s.jitter(10),
			TargetZ:  tgt.Z + s.jitter(10),
		}
	case roll < 0.55:
		return sim.GameCommand{
			Type:     sim.CommandMove,
			PlayerID: s.players[p],
			UnitIDs:  s.pick(p, 2),
			TargetX:  s.worldW * (0.1 + 0.8*s.rng.Float64()),
			TargetZ:  s.worldH * (0.1 + 0.8*s.rng.Float64()),
			Queue:    roll < 0.40,
		}
	case roll < 0.67:
		enemy := s.units[1-p]
		return sim.GameCommand{
			Type:         sim.CommandAttack,
			PlayerID:     s.players[p],
			UnitIDs:      s.pick(p, 1),
			TargetUnitID: enemy[s.rng.Intn(len(enemy))],
		}
	case roll < 0.75:
		if s.transport[p] == "" {
			return sim.GameCommand{}
		}
		return sim.GameCommand{
			Type:         sim.CommandMount,
			PlayerID:     s.players[p],
			UnitIDs:      s.pickInfantry(p, 2),
			TargetUnitID: s.transport[p],
		}
	case roll < 0.80:
		if s.transport[p] == "" {
			return sim.GameCommand{}
		}
		return sim.GameCommand{
			Type:     sim.CommandUnload,
			PlayerID: s.players[p],
			UnitIDs:  []string{s.transport[p]},
		}
	case roll < 0.87:
		return sim.GameCommand{
			Type:       sim.CommandGarrison,
			PlayerID:   s.players[p],
			UnitIDs:    s.pickInfantry(p, 1),
			BuildingID: s.buildings[s.rng.Intn(len(s.buildings))],
		}
	case roll < 0.92:
		return sim.GameCommand{
			Type:     sim.CommandStop,
			PlayerID: s.players[p],
			UnitIDs:  s.pick(p, 1),
		}
	case roll < 0.96:
		return sim.GameCommand{
			Type:     sim.CommandDigIn,
			PlayerID: s.players[p],
			UnitIDs:  s.pick(p, 1),
		}
	default:
		return sim.GameCommand{
			Type:     sim.CommandSetReturnFireOnly,
			PlayerID: s.players[p],
			UnitIDs:  s.pick(p, 1),
			Value:    s.rng.Intn(2) == 0,
		}
	}
}

func (s *commandStream) pick(p, max int) []string {
	return pickFrom(s.rng, s.units[p], max)
}

func (s *commandStream) pickInfantry(p, max int) []string {
	if len(s.infantry[p]) == 0 {
		return pickFrom(s.rng, s.units[p], max)
	}
	return pickFrom(s.rng, s.infantry[p], max)
}

func pickFrom(rng *rand.Rand, pool []string, max int) []string {
	if len(pool) == 0 {
		return nil
	}
	n := 1 + rng.Intn(max)
	if n > len(pool) {
		n = len(pool)
	}
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}

func (s *commandStream) jitter(r float64) float64 {
	return (s.rng.Float64()*2 - 1) * r
}
