package sim

// Message is an outbound simulation payload. The session layer renders
// messages to wire JSON, per recipient where content depends on the
// viewer's team.
type Message interface {
	MessageType() string
}

// BroadcastFn receives every outbound message, in tick order, from the
// game's tick goroutine.
type BroadcastFn func(Message)

// Event names carried by GameEvent.
const (
	EventVictory       = "victory"
	EventGameEnded     = "game_ended"
	EventZoneCaptured  = "zone_captured"
	EventZoneContested = "zone_contested"
)

// TickUpdate carries one tick's accepted commands and the state checksum
// clients compare against their own simulation.
type TickUpdate struct {
	Tick     int64
	Commands []GameCommand
	Checksum uint32
}

func (TickUpdate) MessageType() string { return "tick_update" }

// PhaseChange announces a phase transition.
type PhaseChange struct {
	Phase Phase
	// DeploymentSeconds accompanies the transition into deployment.
	DeploymentSeconds float64
}

func (PhaseChange) MessageType() string { return "phase_change" }

// GameEvent reports a notable occurrence: victory or a zone transition.
type GameEvent struct {
	Event     string
	Winner    Team
	Score     TeamScore
	ZoneID    string
	Team      Team
	Contested bool
}

func (GameEvent) MessageType() string { return "game_event" }
