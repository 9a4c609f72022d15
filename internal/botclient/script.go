package botclient

import (
	"math/rand"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// Geometry of the default skirmish map the script aims at. Targets
// beyond a smaller map's bounds are clamped by the server.
const (
	arenaSize  = 200.0
	stripDepth = 20.0
)

// deployBudget keeps the scripted shopping list under the default
// starting credits so spawn orders are never rejected for overdraft.
const deployBudget = 600

// catalog is the buy list the script draws from.
var catalog = []struct {
	unitType string
	cost     int
}{
	{"rifle_squad", 100},
	{"rifle_squad", 100},
	{"mg_team", 150},
	{"mortar_team", 180},
	{"scout_car", 250},
	{"halftrack", 300},
	{"medium_tank", 600},
}

// script turns a seed into a reproducible order stream: a deployment
// shopping list followed by battle orders biased toward the objectives.
// The same seed always yields the same stream for the same call
// sequence.
type script struct {
	rng        *rand.Rand
	team       sim.Team
	objectives []sim.Vec2
	budget     int
	spent      int
}

func newScript(seed int64, team sim.Team, objectives []sim.Vec2, budget int) *script {
	return &script{
		rng:        rand.New(rand.NewSource(seed)),
		team:       team,
		objectives: objectives,
		budget:     budget,
	}
}

// NextDeploy returns the next spawn order, or false once the budget is
// spent. Spawn points land inside the team's deployment strip.
func (s *script) NextDeploy() (sim.GameCommand, bool) {
	pick := catalog[s.rng.Intn(len(catalog))]
	if s.spent+pick.cost > s.budget {
		// Too rich for what's left; settle for the cheapest entry.
		pick = catalog[0]
		if s.spent+pick.cost > s.budget {
			return sim.GameCommand{}, false
		}
	}
	s.spent += pick.cost
	return sim.GameCommand{
		Type:     sim.CommandSpawnUnit,
		UnitType: pick.unitType,
		TargetX:  s.spread(0.2*arenaSize, 0.8*arenaSize),
		TargetZ:  s.stripZ(),
	}, true
}

func (s *script) stripZ() float64 {
	z := s.spread(2, stripDepth-2)
	if s.team == sim.Team2 {
		return arenaSize - z
	}
	return z
}

func (s *script) spread(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

// NextBattle returns one battle order for a subset of the given units,
// or false when there is nothing to command.
func (s *script) NextBattle(units []string) (sim.GameCommand, bool) {
	if len(units) == 0 {
		return sim.GameCommand{}, false
	}
	squad := s.pickSquad(units)
	roll := s.rng.Float64()
	switch {
	case roll < 0.5:
		obj := s.objectives[s.rng.Intn(len(s.objectives))]
		return sim.GameCommand{
			Type:    sim.CommandAttackMove,
			UnitIDs: squad,
			TargetX: obj.X + s.spread(-10, 10),
			TargetZ: obj.Z + s.spread(-10, 10),
		}, true
	case roll < 0.8:
		return sim.GameCommand{
			Type:    sim.CommandMove,
			UnitIDs: squad,
			TargetX: s.spread(0.1*arenaSize, 0.9*arenaSize),
			TargetZ: s.spread(0.1*arenaSize, 0.9*arenaSize),
		}, true
	case roll < 0.9:
		return sim.GameCommand{Type: sim.CommandStop, UnitIDs: squad}, true
	default:
		return sim.GameCommand{
			Type:    sim.CommandSetReturnFireOnly,
			UnitIDs: squad,
			Value:   s.rng.Float64() < 0.5,
		}, true
	}
}

// pickSquad selects one to three units without reordering the caller's
// slice.
func (s *script) pickSquad(units []string) []string {
	n := 1 + s.rng.Intn(3)
	if n > len(units) {
		n = len(units)
	}
	idx := s.rng.Perm(len(units))[:n]
	squad := make([]string, 0, n)
	for _, i := range idx {
		squad = append(squad, units[i])
	}
	return squad
}
