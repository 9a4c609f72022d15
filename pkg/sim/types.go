// Package sim implements a headless, deterministic real-time battle
// simulation. A Game advances on a fixed 60 Hz tick, applies validated
// player commands in arrival order, and publishes a state checksum every
// tick so clients running the same simulation can detect divergence.
//
// The package has no transport or persistence concerns. Sessions feed
// commands in via Game.ReceiveCommand and receive outbound messages
// through a broadcast callback.
package sim

import (
	"encoding/json"
	"fmt"
	"math"
)

// Team identifies one of the two sides. TeamNone marks neutral state such
// as an uncaptured zone.
type Team uint8

const (
	TeamNone Team = iota
	Team1
	Team2
)

// Opponent returns the other side, or TeamNone for TeamNone.
func (t Team) Opponent() Team {
	switch t {
	case Team1:
		return Team2
	case Team2:
		return Team1
	default:
		return TeamNone
	}
}

func (t Team) String() string {
	switch t {
	case Team1:
		return "team1"
	case Team2:
		return "team2"
	default:
		return ""
	}
}

// ParseTeam converts a wire name ("team1", "team2") to a Team.
func ParseTeam(s string) (Team, error) {
	switch s {
	case "team1":
		return Team1, nil
	case "team2":
		return Team2, nil
	default:
		return TeamNone, fmt.Errorf("unknown team %q", s)
	}
}

// MarshalJSON renders the team as its wire name.
func (t Team) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a wire name. Empty means TeamNone.
func (t *Team) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = TeamNone
		return nil
	}
	parsed, err := ParseTeam(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Phase is the lifecycle stage of a game.
type Phase uint8

const (
	PhaseLoading Phase = iota
	PhaseSetup
	PhaseBattle
	PhaseVictory
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "deployment"
	case PhaseBattle:
		return "battle"
	case PhaseVictory:
		return "victory"
	default:
		return "loading"
	}
}

// MarshalJSON renders the phase as its wire name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Vec2 is a point or direction in the horizontal world plane. The vertical
// axis is derived from terrain and never part of simulation identity.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Z: v.Z * s}
}

// Length returns the vector magnitude.
func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Z*o.Z
}

// Normalize returns the unit vector in v's direction, or the zero vector
// when v has no length.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Z: v.Z / l}
}

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Length()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
