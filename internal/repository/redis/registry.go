package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/freeeve/breakline/server/internal/repository"
)

// Key patterns for the live session registry.
func sessionKey(code string) string { return "breakline:session:" + code }

const (
	activeSetKey = "breakline:sessions:active"
	loadKey      = "breakline:load"

	// sessionTTL ages out keys orphaned by a crashed server.
	sessionTTL = 12 * time.Hour
	// loadTTL covers a few heartbeats, so consumers can tell a dead
	// server from an idle one.
	loadTTL = 15 * time.Second
)

// Registry mirrors live sessions into Redis for external consumers such
// as matchmaking and dashboards. It implements
// repository.SessionRegistry; the manager treats failures as warnings.
type Registry struct {
	client *Client
}

// NewRegistry wraps a connected client.
func NewRegistry(client *Client) *Registry {
	return &Registry{client: client}
}

// RegisterSession writes the session hash and adds its code to the
// active set.
func (r *Registry) RegisterSession(ctx context.Context, info repository.SessionInfo) error {
	players, err := json.Marshal(info.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	key := sessionKey(info.Code)
	if err := r.client.rdb.HSet(ctx, key,
		"code", info.Code,
		"players", players,
		"startedAt", info.StartedAt.UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", info.Code, err)
	}
	if err := r.client.rdb.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return fmt.Errorf("expire session %s: %w", info.Code, err)
	}
	if err := r.client.rdb.SAdd(ctx, activeSetKey, info.Code).Err(); err != nil {
		return fmt.Errorf("add active session %s: %w", info.Code, err)
	}
	return nil
}

// UnregisterSession removes a session from the active set and deletes
// its hash. Unknown codes are not an error.
func (r *Registry) UnregisterSession(ctx context.Context, code string) error {
	if err := r.client.rdb.SRem(ctx, activeSetKey, code).Err(); err != nil {
		return fmt.Errorf("remove active session %s: %w", code, err)
	}
	if err := r.client.rdb.Del(ctx, sessionKey(code)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	return nil
}

// PublishLoad stores the server's load summary under a short TTL.
func (r *Registry) PublishLoad(ctx context.Context, load repository.LoadInfo) error {
	data, err := json.Marshal(load)
	if err != nil {
		return fmt.Errorf("marshal load: %w", err)
	}
	if err := r.client.rdb.Set(ctx, loadKey, data, loadTTL).Err(); err != nil {
		return fmt.Errorf("publish load: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (r *Registry) Close() error {
	return r.client.Close()
}
