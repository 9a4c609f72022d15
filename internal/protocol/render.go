package protocol

import (
	"encoding/json"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// TickUpdateMsg is the per-tick lockstep frame.
type TickUpdateMsg struct {
	Type     string            `json:"type"`
	Tick     int64             `json:"tick"`
	Commands []sim.GameCommand `json:"commands"`
	Checksum uint32            `json:"checksum"`
}

// PhaseChangeMsg announces a phase transition.
type PhaseChangeMsg struct {
	Type               string  `json:"type"`
	Phase              string  `json:"phase"`
	DeploymentDuration float64 `json:"deploymentDuration,omitempty"`
}

// UnitMsg is one unit inside a state snapshot.
type UnitMsg struct {
	ID        string  `json:"id"`
	UnitType  string  `json:"unitType"`
	Team      string  `json:"team"`
	OwnerID   string  `json:"ownerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Health    float64 `json:"health"`
	Morale    float64 `json:"morale"`
	RotationY float64 `json:"rotationY"`
}

// EconomyMsg carries both sides' credits from the viewer's perspective.
type EconomyMsg struct {
	PlayerCredits int `json:"playerCredits"`
	EnemyCredits  int `json:"enemyCredits"`
}

// ScoreMsg carries both sides' victory points from the viewer's
// perspective.
type ScoreMsg struct {
	Player int `json:"player"`
	Enemy  int `json:"enemy"`
}

// ZoneMsg is one capture zone inside a state snapshot.
type ZoneMsg struct {
	ID        string  `json:"id"`
	Owner     string  `json:"owner,omitempty"`
	Capturing string  `json:"capturing,omitempty"`
	Progress  float64 `json:"progress"`
	Contested bool    `json:"contested"`
}

// SnapshotMsg resynchronizes a client with full observable match state.
type SnapshotMsg struct {
	Type    string     `json:"type"`
	Tick    int64      `json:"tick"`
	Units   []UnitMsg  `json:"units"`
	Economy EconomyMsg `json:"economy"`
	Score   ScoreMsg   `json:"score"`
	Phase   string     `json:"phase"`
	Zones   []ZoneMsg  `json:"zones,omitempty"`
}

// GameEventMsg reports victories, explicit ends, and zone transitions.
type GameEventMsg struct {
	Type      string    `json:"type"`
	EventType string    `json:"eventType"`
	Winner    string    `json:"winner,omitempty"`
	Score     *ScoreMsg `json:"score,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
	ZoneID    string    `json:"zoneId,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	Contested *bool     `json:"contested,omitempty"`
}

// MarshalTickUpdate serializes a tick update. The same bytes go to every
// connected channel.
func MarshalTickUpdate(tu sim.TickUpdate) ([]byte, error) {
	cmds := tu.Commands
	if cmds == nil {
		cmds = []sim.GameCommand{}
	}
	return json.Marshal(TickUpdateMsg{
		Type:     TypeTickUpdate,
		Tick:     tu.Tick,
		Commands: cmds,
		Checksum: tu.Checksum,
	})
}

// MarshalPhaseChange serializes a phase transition. The deployment
// duration accompanies only the transition into deployment.
func MarshalPhaseChange(pc sim.PhaseChange) ([]byte, error) {
	return json.Marshal(PhaseChangeMsg{
		Type:               TypePhaseChange,
		Phase:              pc.Phase.String(),
		DeploymentDuration: pc.DeploymentSeconds,
	})
}

// MarshalSnapshot renders a snapshot from one player's perspective:
// credits, score, and zone ownership read as player versus enemy.
func MarshalSnapshot(snap sim.Snapshot, viewer sim.Team) ([]byte, error) {
	msg := SnapshotMsg{
		Type:  TypeSnapshot,
		Tick:  snap.Tick,
		Phase: snap.Phase.String(),
		Units: make([]UnitMsg, 0, len(snap.Units)),
		Economy: EconomyMsg{
			PlayerCredits: snap.Credits.ForTeam(viewer),
			EnemyCredits:  snap.Credits.ForTeam(viewer.Opponent()),
		},
		Score: ScoreMsg{
			Player: snap.Score.ForTeam(viewer),
			Enemy:  snap.Score.ForTeam(viewer.Opponent()),
		},
	}
	for _, u := range snap.Units {
		msg.Units = append(msg.Units, UnitMsg{
			ID:        u.ID,
			UnitType:  u.Type,
			Team:      u.Team.String(),
			OwnerID:   u.OwnerID,
			X:         u.Position.X,
			Y:         u.Elevation,
			Z:         u.Position.Z,
			Health:    u.Health,
			Morale:    u.Morale,
			RotationY: u.RotationY,
		})
	}
	for _, z := range snap.Zones {
		msg.Zones = append(msg.Zones, ZoneMsg{
			ID:        z.ID,
			Owner:     RelativeTeam(z.Owner, viewer),
			Capturing: RelativeTeam(z.CapturingTeam, viewer),
			Progress:  z.Progress,
			Contested: z.Contested,
		})
	}
	return json.Marshal(msg)
}

// MarshalGameEvent renders a game event for one viewer. Victory and
// game_ended carry the winner as player or enemy plus the match duration
// in seconds; an explicit end with no winner omits the winner field.
func MarshalGameEvent(ev sim.GameEvent, viewer sim.Team, duration float64) ([]byte, error) {
	msg := GameEventMsg{Type: TypeGameEvent, EventType: ev.Event}
	switch ev.Event {
	case sim.EventVictory, sim.EventGameEnded:
		msg.Winner = RelativeTeam(ev.Winner, viewer)
		msg.Score = &ScoreMsg{
			Player: ev.Score.ForTeam(viewer),
			Enemy:  ev.Score.ForTeam(viewer.Opponent()),
		}
		msg.Duration = duration
	case sim.EventZoneCaptured:
		msg.ZoneID = ev.ZoneID
		msg.Owner = RelativeTeam(ev.Team, viewer)
	case sim.EventZoneContested:
		msg.ZoneID = ev.ZoneID
		contested := ev.Contested
		msg.Contested = &contested
	}
	return json.Marshal(msg)
}

// RelativeTeam renders a team from a viewer's perspective. A neutral or
// absent team renders empty.
func RelativeTeam(t, viewer sim.Team) string {
	switch {
	case t == sim.TeamNone:
		return ""
	case t == viewer:
		return "player"
	default:
		return "enemy"
	}
}
