// Package session binds authoritative games to connected players. A
// Session routes inbound commands from client channels into its game,
// renders the game's outbound messages to wire JSON, and fans them out;
// the Manager multiplexes many sessions in one process under a
// concurrency cap.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/breakline/server/internal/protocol"
	"github.com/freeeve/breakline/server/pkg/sim"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrUnknownPlayer   = errors.New("player not in session")
	ErrCodeInUse       = errors.New("session code already in use")
	ErrTooManyGames    = errors.New("concurrent game limit reached")
	ErrInvalidRoster   = errors.New("invalid player roster")
	ErrManagerClosed   = errors.New("session manager is shut down")
)

// PlayerSpec is one roster entry used to create a session.
type PlayerSpec struct {
	ID   string
	Name string
	Team sim.Team
	// DeckID is the player's chosen division. Opaque to the session;
	// carried for status and registry consumers.
	DeckID string
}

// PlayerStatus is one player's connection state as reported by Status.
type PlayerStatus struct {
	ID        string
	Name      string
	Team      sim.Team
	Connected bool
	LastSeen  time.Time
}

// Status is a point-in-time view of a session for status endpoints and
// the live registry.
type Status struct {
	Code      string
	Phase     sim.Phase
	Tick      int64
	StartedAt time.Time
	Active    bool
	Players   []PlayerStatus
}

type player struct {
	id        string
	name      string
	team      sim.Team
	deckID    string
	channel   ClientChannel
	connected bool
	lastSeen  time.Time
}

// Session owns one match: the game, its player roster, and their
// channels. All mutation of the roster happens under the session mutex;
// the game has its own lock and is only ever touched while the session
// mutex is either held or released, never the other way around, so the
// tick goroutine's broadcast callback cannot deadlock against callers.
type Session struct {
	Code      string
	StartedAt time.Time

	game *sim.Game
	log  zerolog.Logger

	mu        sync.Mutex
	players   map[string]*player
	order     []string
	active    bool
	endedAt   time.Time
	onGameEnd func(code string)
}

// New wires a session to its game: the game's broadcast and fatal
// callbacks point back at the session. The onGameEnd hook runs exactly
// once, after the end-of-game broadcast, with no session lock held.
func New(code string, roster []PlayerSpec, game *sim.Game, logger zerolog.Logger, onGameEnd func(code string)) *Session {
	s := &Session{
		Code:      code,
		StartedAt: time.Now(),
		game:      game,
		log:       logger,
		players:   make(map[string]*player, len(roster)),
		active:    true,
		onGameEnd: onGameEnd,
	}
	for _, p := range roster {
		s.players[p.ID] = &player{id: p.ID, name: p.Name, team: p.Team, deckID: p.DeckID}
		s.order = append(s.order, p.ID)
	}
	game.SetBroadcast(s.broadcastMessage)
	game.SetFatalHandler(s.handleFatal)
	return s
}

// Attach connects a channel for a player, replacing any previous one.
// The first frame the new channel receives is a state snapshot; the
// session mutex is held across the swap and the snapshot send so no
// tick broadcast can slip in between.
func (s *Session) Attach(playerID string, ch ClientChannel) error {
	s.mu.Lock()
	p := s.players[playerID]
	if p == nil {
		s.mu.Unlock()
		return ErrUnknownPlayer
	}
	if p.channel != nil && p.channel != ch {
		p.channel.Close()
	}
	p.channel = ch
	p.connected = true
	p.lastSeen = time.Now()

	data, err := protocol.MarshalSnapshot(s.game.Snapshot(), p.team)
	if err == nil {
		err = ch.Send(data)
	}
	if err != nil {
		p.connected = false
		s.mu.Unlock()
		return fmt.Errorf("sync player %s: %w", playerID, err)
	}
	s.mu.Unlock()

	s.log.Info().Str("player", playerID).Msg("player attached")
	return nil
}

// HandleCommand stamps the sender onto a command and queues it for the
// next tick. The client-supplied playerId is overwritten; clients cannot
// issue commands as anyone but themselves.
func (s *Session) HandleCommand(playerID string, cmd sim.GameCommand) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return ErrSessionInactive
	}
	if _, ok := s.players[playerID]; !ok {
		s.mu.Unlock()
		return ErrUnknownPlayer
	}
	s.mu.Unlock()

	cmd.PlayerID = playerID
	s.game.ReceiveCommand(cmd)
	return nil
}

// HandleDisconnect marks a player disconnected. When the last connected
// player drops, the session would otherwise tick on with nobody
// watching, so the match ends; team1 wins an abandoned game.
func (s *Session) HandleDisconnect(playerID string) {
	s.disconnect(playerID, nil)
}

// DisconnectChannel marks a player disconnected only while ch is still
// the channel bound to them. The read pump of a replaced channel reports
// through here, so a reconnect that already swapped channels stays
// connected.
func (s *Session) DisconnectChannel(playerID string, ch ClientChannel) {
	s.disconnect(playerID, ch)
}

func (s *Session) disconnect(playerID string, ch ClientChannel) {
	s.mu.Lock()
	p := s.players[playerID]
	if p == nil || (ch != nil && p.channel != ch) {
		s.mu.Unlock()
		return
	}
	p.connected = false
	p.lastSeen = time.Now()
	anyConnected := false
	for _, other := range s.players {
		if other.connected {
			anyConnected = true
			break
		}
	}
	active := s.active
	s.mu.Unlock()

	s.log.Info().Str("player", playerID).Msg("player disconnected")
	if active && !anyConnected {
		s.log.Info().Msg("all players disconnected, ending game")
		s.EndGame(sim.Team1)
	}
}

// EndGame stops the simulation and broadcasts a game_ended event with
// the final score. winner may be TeamNone for an explicit termination
// with no victor. Safe to call more than once; only the first call has
// any effect.
func (s *Session) EndGame(winner sim.Team) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.endedAt = time.Now()
	s.game.Stop()
	score := s.game.Snapshot().Score
	s.sendEventLocked(sim.GameEvent{
		Event:  sim.EventGameEnded,
		Winner: winner,
		Score:  score,
	})
	hook := s.onGameEnd
	s.mu.Unlock()

	s.log.Info().Str("winner", winner.String()).Msg("game ended")
	if hook != nil {
		hook(s.Code)
	}
}

// Status reports the session's phase, tick, and per-player connection
// state. Players appear in roster order.
func (s *Session) Status() Status {
	s.mu.Lock()
	st := Status{
		Code:      s.Code,
		StartedAt: s.StartedAt,
		Active:    s.active,
	}
	for _, id := range s.order {
		p := s.players[id]
		st.Players = append(st.Players, PlayerStatus{
			ID:        p.id,
			Name:      p.name,
			Team:      p.team,
			Connected: p.connected,
			LastSeen:  p.lastSeen,
		})
	}
	s.mu.Unlock()

	st.Phase = s.game.CurrentPhase()
	st.Tick = s.game.Tick()
	return st
}

// Close stops the game and releases every channel. Called by the
// manager at disposal; the end-of-game broadcast has already gone out
// by then.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game.Stop()
	for _, id := range s.order {
		p := s.players[id]
		if p.channel != nil {
			p.channel.Close()
		}
		p.connected = false
	}
}

// handleFatal terminates the session after a tick panic. The game has
// already stopped and logged the stack; remaining players are told the
// game ended with no winner.
func (s *Session) handleFatal(any) {
	s.log.Error().Msg("session terminated by simulation failure")
	s.EndGame(sim.TeamNone)
}

// broadcastMessage is the game's broadcast callback, invoked from the
// tick goroutine with no game lock held. tick_update and phase_change
// render once and fan out; game_event renders per recipient because
// winner and score are expressed relative to the viewer's team.
func (s *Session) broadcastMessage(m sim.Message) {
	s.mu.Lock()
	var hook func(string)
	switch msg := m.(type) {
	case sim.TickUpdate:
		data, err := protocol.MarshalTickUpdate(msg)
		if err != nil {
			s.log.Error().Err(err).Msg("render tick_update")
			s.mu.Unlock()
			return
		}
		s.fanOutLocked(data)
	case sim.PhaseChange:
		data, err := protocol.MarshalPhaseChange(msg)
		if err != nil {
			s.log.Error().Err(err).Msg("render phase_change")
			s.mu.Unlock()
			return
		}
		s.fanOutLocked(data)
	case sim.GameEvent:
		if msg.Event == sim.EventVictory && s.active {
			s.active = false
			s.endedAt = time.Now()
			hook = s.onGameEnd
		}
		s.sendEventLocked(msg)
	default:
		s.log.Warn().Str("type", m.MessageType()).Msg("unhandled message type")
	}
	s.mu.Unlock()

	if hook != nil {
		hook(s.Code)
	}
}

// fanOutLocked sends one rendered frame to every connected channel. A
// failed send marks that player disconnected and nothing else; the
// simulation never notices.
func (s *Session) fanOutLocked(data []byte) {
	for _, id := range s.order {
		p := s.players[id]
		if !p.connected || p.channel == nil {
			continue
		}
		if err := p.channel.Send(data); err != nil {
			p.connected = false
			p.lastSeen = time.Now()
			s.log.Warn().Err(err).Str("player", p.id).Msg("send failed, marking disconnected")
		}
	}
}

// sendEventLocked renders a game event once per connected player in
// that player's perspective and sends it.
func (s *Session) sendEventLocked(ev sim.GameEvent) {
	duration := s.durationLocked().Seconds()
	for _, id := range s.order {
		p := s.players[id]
		if !p.connected || p.channel == nil {
			continue
		}
		data, err := protocol.MarshalGameEvent(ev, p.team, duration)
		if err != nil {
			s.log.Error().Err(err).Str("event", ev.Event).Msg("render game_event")
			return
		}
		if err := p.channel.Send(data); err != nil {
			p.connected = false
			p.lastSeen = time.Now()
			s.log.Warn().Err(err).Str("player", p.id).Msg("send failed, marking disconnected")
		}
	}
}

func (s *Session) durationLocked() time.Duration {
	if !s.endedAt.IsZero() {
		return s.endedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
