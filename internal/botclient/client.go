// Package botclient implements a scripted WebSocket match client. It
// joins a running session as one player, buys a force during the
// deployment phase, and drives it with seeded pseudo-random orders so
// full matches can run unattended and reproducibly.
package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/breakline/server/internal/gamedata"
	"github.com/freeeve/breakline/server/internal/protocol"
	"github.com/freeeve/breakline/server/pkg/sim"
)

const (
	defaultOrderEvery = 2 * time.Second
	frameBuffer       = 64
	clientWriteWait   = 10 * time.Second
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Config describes one bot player.
type Config struct {
	ServerURL string
	Code      string
	PlayerID  string
	Team      sim.Team
	Seed      int64
	// OrderEvery is the beat between scripted orders.
	OrderEvery time.Duration
}

// Result is the bot's view of how the match ended. Winner is relative
// to this player: "player", "enemy", or empty for an explicit end with
// no winner.
type Result struct {
	Event        string
	Winner       string
	PlayerScore  int
	EnemyScore   int
	Duration     float64
	Tick         int64
	LastChecksum uint32
}

// Client is a WebSocket client for a single bot player.
type Client struct {
	cfg    Config
	script *script

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu       sync.Mutex
	tick     int64
	checksum uint32
	phase    string
	myUnits  []string
	spawnSeq int
	finished bool
	result   Result
}

// New creates a bot for the given session slot. Objectives default to
// the capture zones of the standard skirmish map.
func New(cfg Config) *Client {
	if cfg.OrderEvery <= 0 {
		cfg.OrderEvery = defaultOrderEvery
	}
	objectives := make([]sim.Vec2, 0, 3)
	for _, z := range gamedata.DefaultMap(0).Zones {
		objectives = append(objectives, z.Center)
	}
	return &Client{
		cfg:    cfg,
		script: newScript(cfg.Seed, cfg.Team, objectives, deployBudget),
	}
}

// Run dials the session and plays until the game ends or the context is
// cancelled. The returned Result is valid when error is nil.
func (c *Client) Run(ctx context.Context) (Result, error) {
	wsURL := strings.Replace(strings.TrimRight(c.cfg.ServerURL, "/"), "http", "ws", 1) +
		"/ws/" + url.PathEscape(c.cfg.Code) + "?player=" + url.QueryEscape(c.cfg.PlayerID)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	resp.Body.Close()
	c.conn = conn
	log.Info().Str("bot", c.cfg.PlayerID).Str("session", c.cfg.Code).Msg("bot connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, gctx := errgroup.WithContext(ctx)

	frames := make(chan []byte, frameBuffer)

	// Teardown watcher: a dead group unblocks the read loop.
	group.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})
	group.Go(func() error {
		return c.readFrames(gctx, frames)
	})
	group.Go(func() error {
		defer cancel()
		return c.drive(gctx, frames)
	})

	err = group.Wait()
	c.mu.Lock()
	res, done := c.result, c.finished
	c.mu.Unlock()
	if done {
		log.Info().
			Str("bot", c.cfg.PlayerID).
			Str("event", res.Event).
			Str("winner", res.Winner).
			Int("playerScore", res.PlayerScore).
			Int("enemyScore", res.EnemyScore).
			Msg("match finished")
		return res, nil
	}
	return Result{}, err
}

// readFrames pumps raw server frames into the channel until the
// connection dies.
func (c *Client) readFrames(ctx context.Context, frames chan<- []byte) error {
	defer close(frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || isClosure(err) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		select {
		case frames <- data:
		case <-ctx.Done():
			return nil
		}
	}
}

// drive consumes server frames and emits scripted orders on a beat
// until the game concludes.
func (c *Client) drive(ctx context.Context, frames <-chan []byte) error {
	in := channerics.OrDone(ctx.Done(), frames)
	beats := channerics.NewTicker(ctx.Done(), c.cfg.OrderEvery)
	for {
		select {
		case data, ok := <-in:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.New("connection closed before game end")
			}
			done, err := c.handleFrame(data)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		case _, ok := <-beats:
			if !ok {
				return ctx.Err()
			}
			if err := c.act(); err != nil {
				return err
			}
		}
	}
}

// handleFrame folds one server frame into the client's state. It
// reports done when the frame concludes the match.
func (c *Client) handleFrame(data []byte) (bool, error) {
	switch frameType(data) {
	case protocol.TypeSnapshot:
		var msg protocol.SnapshotMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, fmt.Errorf("decode snapshot: %w", err)
		}
		c.applySnapshot(msg)
	case protocol.TypeTickUpdate:
		var msg protocol.TickUpdateMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, fmt.Errorf("decode tick update: %w", err)
		}
		c.applyTick(msg)
	case protocol.TypePhaseChange:
		var msg protocol.PhaseChangeMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, fmt.Errorf("decode phase change: %w", err)
		}
		c.mu.Lock()
		c.phase = msg.Phase
		c.mu.Unlock()
		log.Info().Str("bot", c.cfg.PlayerID).Str("phase", msg.Phase).Msg("phase change")
	case protocol.TypeGameEvent:
		var msg protocol.GameEventMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			return false, fmt.Errorf("decode game event: %w", err)
		}
		if msg.EventType == sim.EventVictory || msg.EventType == sim.EventGameEnded {
			c.mu.Lock()
			c.finished = true
			c.result = Result{
				Event:        msg.EventType,
				Winner:       msg.Winner,
				Duration:     msg.Duration,
				Tick:         c.tick,
				LastChecksum: c.checksum,
			}
			if msg.Score != nil {
				c.result.PlayerScore = msg.Score.Player
				c.result.EnemyScore = msg.Score.Enemy
			}
			c.mu.Unlock()
			return true, nil
		}
	}
	return false, nil
}

// applySnapshot resets tracked state from a full resync. The spawn
// sequence continues from the highest unit id on the field.
func (c *Client) applySnapshot(msg protocol.SnapshotMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = msg.Tick
	c.phase = msg.Phase
	c.myUnits = c.myUnits[:0]
	c.spawnSeq = 0
	for _, u := range msg.Units {
		if u.OwnerID == c.cfg.PlayerID {
			c.myUnits = append(c.myUnits, u.ID)
		}
		if seq := parseUnitSeq(u.ID); seq > c.spawnSeq {
			c.spawnSeq = seq
		}
	}
}

// applyTick advances tick and checksum tracking. Unit ids are assigned
// by the server in accepted-spawn order, so counting spawn commands in
// the broadcast stream reproduces them.
func (c *Client) applyTick(msg protocol.TickUpdateMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = msg.Tick
	c.checksum = msg.Checksum
	for _, cmd := range msg.Commands {
		if cmd.Type != sim.CommandSpawnUnit {
			continue
		}
		c.spawnSeq++
		if cmd.PlayerID == c.cfg.PlayerID {
			id := "u" + strconv.Itoa(c.spawnSeq)
			c.myUnits = append(c.myUnits, id)
			log.Debug().Str("bot", c.cfg.PlayerID).Str("unit", id).Str("type", cmd.UnitType).Msg("unit confirmed")
		}
	}
}

// act issues the script's next order for the current phase, if any.
func (c *Client) act() error {
	c.mu.Lock()
	phase := c.phase
	units := append([]string(nil), c.myUnits...)
	c.mu.Unlock()

	var (
		cmd sim.GameCommand
		ok  bool
	)
	switch phase {
	case "deployment":
		cmd, ok = c.script.NextDeploy()
	case "battle":
		cmd, ok = c.script.NextBattle(units)
	}
	if !ok {
		return nil
	}
	return c.sendCommand(cmd)
}

func (c *Client) sendCommand(cmd sim.GameCommand) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
	if err := c.conn.WriteJSON(protocol.ClientMessage{Type: protocol.TypeCommand, Command: cmd}); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

func frameType(data []byte) string {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return ""
	}
	return tag.Type
}

func parseUnitSeq(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "u"))
	if err != nil {
		return 0
	}
	return n
}

func isClosure(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// RosterEntry is one player in a session create request.
type RosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// CreateSession creates a match over the HTTP API and returns the join
// code the server assigned.
func CreateSession(ctx context.Context, serverURL, code string, players []RosterEntry) (string, error) {
	payload, err := json.Marshal(map[string]any{"code": code, "players": players})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(serverURL, "/")+"/api/games", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create game: status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return out.Code, nil
}

// FetchTeam reads a player's team from the session status endpoint.
func FetchTeam(ctx context.Context, serverURL, code, playerID string) (sim.Team, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(serverURL, "/")+"/api/games/"+url.PathEscape(code), nil)
	if err != nil {
		return sim.TeamNone, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return sim.TeamNone, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return sim.TeamNone, fmt.Errorf("get game: status %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Players []struct {
			ID   string `json:"id"`
			Team string `json:"team"`
		} `json:"players"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return sim.TeamNone, fmt.Errorf("decode game response: %w", err)
	}
	for _, p := range out.Players {
		if p.ID == playerID {
			return sim.ParseTeam(p.Team)
		}
	}
	return sim.TeamNone, fmt.Errorf("player %s not in session %s", playerID, code)
}
