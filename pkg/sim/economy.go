package sim

import "math"

// TeamScore is a per-team integer pair, used for both credits and score.
type TeamScore struct {
	Team1 int
	Team2 int
}

// ForTeam returns the value for one team.
func (s TeamScore) ForTeam(t Team) int {
	switch t {
	case Team1:
		return s.Team1
	case Team2:
		return s.Team2
	default:
		return 0
	}
}

// ZoneState is the runtime state of one capture zone.
type ZoneState struct {
	ID            string
	Center        Vec2
	Width         float64
	Height        float64
	PointsPerTick int

	Owner         Team
	CapturingTeam Team
	// Progress runs 0..100 toward CapturingTeam. Completion never flips
	// ownership by itself; the game applies the capture.
	Progress  float64
	Contested bool

	entries map[string]Team
}

// Contains reports whether p lies inside the zone rectangle.
func (z *ZoneState) Contains(p Vec2) bool {
	dx := p.X - z.Center.X
	dz := p.Z - z.Center.Z
	return dx >= -z.Width/2 && dx <= z.Width/2 && dz >= -z.Height/2 && dz <= z.Height/2
}

// ZoneEventKind tags a zone transition.
type ZoneEventKind int

const (
	ZoneEventCaptured ZoneEventKind = iota
	ZoneEventContested
)

// ZoneEvent reports a zone ownership or contest transition.
type ZoneEvent struct {
	Kind      ZoneEventKind
	ZoneID    string
	Team      Team
	Contested bool
}

type pendingCapture struct {
	ZoneID string
	Team   Team
}

// Economy tracks credits, score, and capture zones for both teams. It is
// driven entirely by the game tick and holds no locks of its own.
type Economy struct {
	cfg   Config
	zones []*ZoneState
	byID  map[string]*ZoneState
	// occupants reports capture-capable live units inside a zone.
	occupants func(*ZoneState) map[string]Team

	credits   [3]int
	score     [3]int
	interval  int
	sinceTick int
	ticks     int
	winner    Team

	pending []pendingCapture
	events  []ZoneEvent
}

// NewEconomy builds the economy for a match. occupants is queried once
// per zone per tick.
func NewEconomy(cfg Config, defs []ZoneDef, occupants func(*ZoneState) map[string]Team) *Economy {
	// Payouts count whole ticks so they land on exact tick boundaries
	// regardless of float accumulation.
	interval := int(math.Round(cfg.EconomyTickSeconds * float64(cfg.TickRate)))
	if interval < 1 {
		interval = 1
	}
	e := &Economy{
		cfg:       cfg,
		interval:  interval,
		byID:      make(map[string]*ZoneState, len(defs)),
		occupants: occupants,
	}
	e.credits[Team1] = cfg.StartingCredits
	e.credits[Team2] = cfg.StartingCredits
	for _, d := range defs {
		z := &ZoneState{
			ID:            d.ID,
			Center:        d.Center,
			Width:         d.Width,
			Height:        d.Height,
			PointsPerTick: d.PointsPerTick,
		}
		e.zones = append(e.zones, z)
		e.byID[z.ID] = z
	}
	return e
}

// Update advances zone state every simulation tick and pays out income
// on the economy interval.
func (e *Economy) Update(dt float64) {
	e.updateZones(dt)
	e.sinceTick++
	if e.sinceTick >= e.interval {
		e.sinceTick = 0
		e.economyTick()
	}
}

// economyTick pays base income plus owned zone points to both teams and
// checks the victory threshold. Team1 is scored first, which decides the
// tie-break when both teams cross the threshold on the same payout.
func (e *Economy) economyTick() {
	e.ticks++
	for _, team := range [...]Team{Team1, Team2} {
		points := 0
		for _, z := range e.zones {
			if z.Owner == team {
				points += z.PointsPerTick
			}
		}
		e.credits[team] += e.cfg.IncomePerTick + points
		e.score[team] += points
		if e.winner == TeamNone && e.score[team] >= e.cfg.VictoryThreshold {
			e.winner = team
		}
	}
}

func (e *Economy) updateZones(dt float64) {
	for _, z := range e.zones {
		present := e.occupants(z)
		z.entries = present
		var c1, c2 int
		for _, team := range present {
			switch team {
			case Team1:
				c1++
			case Team2:
				c2++
			}
		}
		contested := c1 > 0 && c2 > 0
		if contested != z.Contested {
			z.Contested = contested
			e.events = append(e.events, ZoneEvent{
				Kind:      ZoneEventContested,
				ZoneID:    z.ID,
				Contested: contested,
			})
		}
		if contested || (c1 == 0 && c2 == 0) {
			continue
		}
		team := Team1
		if c2 > 0 {
			team = Team2
		}
		e.advanceCapture(z, team, dt)
	}
}

func (e *Economy) advanceCapture(z *ZoneState, team Team, dt float64) {
	if z.Owner == team {
		z.CapturingTeam = TeamNone
		z.Progress = 0
		return
	}
	if z.CapturingTeam != team {
		z.CapturingTeam = team
		z.Progress = 0
	}
	before := z.Progress
	z.Progress += captureRatePerSecond * dt
	if z.Progress >= captureComplete {
		z.Progress = captureComplete
		if before < captureComplete {
			e.pending = append(e.pending, pendingCapture{ZoneID: z.ID, Team: team})
		}
	}
}

// ApplyZoneCapture transfers zone ownership. Ownership changes flow only
// through this call.
func (e *Economy) ApplyZoneCapture(zoneID string, team Team) bool {
	z, ok := e.byID[zoneID]
	if !ok || z.Owner == team {
		return false
	}
	z.Owner = team
	z.Progress = 0
	z.CapturingTeam = TeamNone
	e.events = append(e.events, ZoneEvent{Kind: ZoneEventCaptured, ZoneID: zoneID, Team: team})
	return true
}

func (e *Economy) drainPendingCaptures() []pendingCapture {
	p := e.pending
	e.pending = nil
	return p
}

// DrainEvents returns and clears the accumulated zone events.
func (e *Economy) DrainEvents() []ZoneEvent {
	ev := e.events
	e.events = nil
	return ev
}

// CanAfford reports whether a team has at least cost credits.
func (e *Economy) CanAfford(team Team, cost int) bool {
	return cost >= 0 && e.credits[team] >= cost
}

// Spend deducts cost from a team's credits. Spending down to exactly
// zero succeeds.
func (e *Economy) Spend(team Team, cost int) bool {
	if !e.CanAfford(team, cost) {
		return false
	}
	e.credits[team] -= cost
	return true
}

// Credits returns a team's balance.
func (e *Economy) Credits(team Team) int {
	return e.credits[team]
}

// AllCredits returns both balances.
func (e *Economy) AllCredits() TeamScore {
	return TeamScore{Team1: e.credits[Team1], Team2: e.credits[Team2]}
}

// Score returns a team's victory points.
func (e *Economy) Score(team Team) int {
	return e.score[team]
}

// Scores returns both teams' victory points.
func (e *Economy) Scores() TeamScore {
	return TeamScore{Team1: e.score[Team1], Team2: e.score[Team2]}
}

// Winner returns the team that reached the victory threshold, or
// TeamNone while the match is still open.
func (e *Economy) Winner() Team {
	return e.winner
}

// EconomyTicks returns how many payouts have fired.
func (e *Economy) EconomyTicks() int {
	return e.ticks
}

// Zone returns a copy of one zone's state.
func (e *Economy) Zone(id string) (ZoneState, bool) {
	z, ok := e.byID[id]
	if !ok {
		return ZoneState{}, false
	}
	return *z, true
}

// Zones returns copies of all zone states in map order.
func (e *Economy) Zones() []ZoneState {
	out := make([]ZoneState, 0, len(e.zones))
	for _, z := range e.zones {
		out = append(out, *z)
	}
	return out
}
