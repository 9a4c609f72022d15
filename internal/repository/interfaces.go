// Package repository defines the storage-facing interfaces the server
// consumes. The simulation itself keeps no persistent state; the only
// storage concern is the live session registry other processes read for
// matchmaking and load balancing.
package repository

import (
	"context"
	"time"
)

// RegisteredPlayer is one roster entry as published to the registry.
type RegisteredPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// SessionInfo describes a live session as published to the registry.
type SessionInfo struct {
	Code      string             `json:"code"`
	Players   []RegisteredPlayer `json:"players"`
	StartedAt time.Time          `json:"startedAt"`
}

// LoadInfo summarizes this server's current load.
type LoadInfo struct {
	ActiveGames   int `json:"activeGames"`
	MaxGames      int `json:"maxGames"`
	ActivePlayers int `json:"activePlayers"`
}

// SessionRegistry publishes live session state for external consumers.
// Implementations must tolerate being called after a session is gone;
// registry failures must never affect a running game.
type SessionRegistry interface {
	RegisterSession(ctx context.Context, info SessionInfo) error
	UnregisterSession(ctx context.Context, code string) error
	PublishLoad(ctx context.Context, load LoadInfo) error
	Close() error
}

// Noop is the registry used when no external store is configured.
type Noop struct{}

func (Noop) RegisterSession(context.Context, SessionInfo) error { return nil }
func (Noop) UnregisterSession(context.Context, string) error    { return nil }
func (Noop) PublishLoad(context.Context, LoadInfo) error        { return nil }
func (Noop) Close() error                                       { return nil }
