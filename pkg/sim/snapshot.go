package sim

// UnitSnapshot is one unit's observable state.
type UnitSnapshot struct {
	ID           string
	Type         string
	Team         Team
	OwnerID      string
	Position     Vec2
	Elevation    float64
	RotationY    float64
	Health       float64
	Morale       float64
	Suppression  float64
	Frozen       bool
	Routing      bool
	GarrisonedIn string
}

// ZoneSnapshot is one capture zone's observable state.
type ZoneSnapshot struct {
	ID            string
	Owner         Team
	CapturingTeam Team
	Progress      float64
	Contested     bool
}

// Snapshot is a full copy of observable match state, used to sync a
// client on connect or reconnect. Mounted passengers are absent from the
// world and therefore from the unit list.
type Snapshot struct {
	Tick    int64
	Phase   Phase
	Units   []UnitSnapshot
	Credits TeamScore
	Score   TeamScore
	Zones   []ZoneSnapshot
	Winner  Team
}

// Snapshot captures the current state. Units appear in spawn order.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{Tick: g.tick, Phase: g.phase}
	for _, id := range g.unitOrder {
		u := g.units[id]
		if u == nil || !u.Alive() || u.Transport != "" {
			continue
		}
		us := UnitSnapshot{
			ID:           u.ID,
			Type:         u.Type,
			Team:         u.Team,
			OwnerID:      u.OwnerID,
			Position:     u.Position,
			RotationY:    u.RotationY,
			Health:       u.Health,
			Morale:       u.Morale,
			Suppression:  u.Suppression,
			Frozen:       u.Frozen,
			Routing:      u.IsRouting(),
			GarrisonedIn: u.GarrisonedIn,
		}
		if g.gameMap != nil {
			us.Elevation = g.gameMap.ElevationAt(u.Position)
		}
		s.Units = append(s.Units, us)
	}
	if g.economy != nil {
		s.Credits = g.economy.AllCredits()
		s.Score = g.economy.Scores()
		s.Winner = g.economy.Winner()
		for _, z := range g.economy.Zones() {
			s.Zones = append(s.Zones, ZoneSnapshot{
				ID:            z.ID,
				Owner:         z.Owner,
				CapturingTeam: z.CapturingTeam,
				Progress:      z.Progress,
				Contested:     z.Contested,
			})
		}
	}
	return s
}
