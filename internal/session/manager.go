package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/breakline/server/internal/repository"
	"github.com/freeeve/breakline/server/pkg/sim"
)

const (
	defaultMaxGames      = 20
	defaultDisposalDelay = 5 * time.Second

	// loadPublishInterval is how often the manager refreshes its load
	// info in the registry between session starts and ends.
	loadPublishInterval = 5 * time.Second
	registryTimeout     = 2 * time.Second
)

// Config tunes the manager and the games it creates.
type Config struct {
	// MaxGames caps concurrently registered sessions, including ones
	// awaiting disposal.
	MaxGames int
	// DisposalDelay is how long an ended session lingers so final
	// messages can flush before channels close.
	DisposalDelay time.Duration
	// Sim is the per-match tuning passed to every game.
	Sim sim.Config
	// NewMap produces the map for each new game.
	NewMap func() *sim.GameMap
}

func (c Config) withDefaults() Config {
	if c.MaxGames <= 0 {
		c.MaxGames = defaultMaxGames
	}
	if c.DisposalDelay <= 0 {
		c.DisposalDelay = defaultDisposalDelay
	}
	return c
}

// Manager is the process-wide session registry. It creates games,
// enforces the concurrency cap, schedules disposal after a game ends,
// and mirrors its state to the live registry.
type Manager struct {
	cfg  Config
	data sim.UnitDataRegistry
	live repository.SessionRegistry

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	stopPublish chan struct{}
}

// NewManager starts a manager. live may be nil when no external
// registry is configured.
func NewManager(cfg Config, data sim.UnitDataRegistry, live repository.SessionRegistry) *Manager {
	if live == nil {
		live = repository.Noop{}
	}
	m := &Manager{
		cfg:         cfg.withDefaults(),
		data:        data,
		live:        live,
		sessions:    make(map[string]*Session),
		stopPublish: make(chan struct{}),
	}
	go m.publishLoop()
	return m
}

// CreateSession validates the roster, builds a game on a fresh map, and
// starts it. An empty code is replaced with a generated join code; a
// caller-supplied code must be unused.
func (m *Manager) CreateSession(code string, roster []PlayerSpec) (*Session, error) {
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	if m.cfg.NewMap == nil {
		return nil, fmt.Errorf("create session: no map source configured")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if len(m.sessions) >= m.cfg.MaxGames {
		m.mu.Unlock()
		return nil, ErrTooManyGames
	}
	if code == "" {
		for {
			code = newSessionCode()
			if _, taken := m.sessions[code]; !taken {
				break
			}
		}
	} else if _, taken := m.sessions[code]; taken {
		m.mu.Unlock()
		return nil, ErrCodeInUse
	}

	slots := make([]sim.PlayerSlot, 0, len(roster))
	for _, p := range roster {
		slots = append(slots, sim.PlayerSlot{ID: p.ID, Team: p.Team})
	}
	logger := log.With().Str("session", code).Logger()
	game := sim.NewGame(m.cfg.Sim, m.data, slots, logger)
	s := New(code, roster, game, logger, m.handleGameEnd)
	m.sessions[code] = s
	m.mu.Unlock()

	game.Initialize(m.cfg.NewMap())
	game.Start()

	m.registerSession(s)
	log.Info().Str("session", code).Int("players", len(roster)).Msg("session created")
	return s, nil
}

// Get looks up a session by code.
func (m *Manager) Get(code string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// EndSession terminates a session explicitly. winner may be TeamNone.
func (m *Manager) EndSession(code string, winner sim.Team) error {
	s, err := m.Get(code)
	if err != nil {
		return err
	}
	s.EndGame(winner)
	return nil
}

// LoadInfo reports current load for the load endpoint and the registry.
func (m *Manager) LoadInfo() repository.LoadInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	maxGames := m.cfg.MaxGames
	m.mu.Unlock()

	info := repository.LoadInfo{MaxGames: maxGames}
	for _, s := range sessions {
		st := s.Status()
		if !st.Active {
			continue
		}
		info.ActiveGames++
		for _, p := range st.Players {
			if p.Connected {
				info.ActivePlayers++
			}
		}
	}
	return info
}

// Shutdown ends every session, stops the load publisher, and closes the
// registry. Safe to call once; later calls are no-ops.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.stopPublish)
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.EndGame(sim.TeamNone)
		s.Close()
		m.unregisterSession(s.Code)
	}
	if err := m.live.Close(); err != nil {
		log.Warn().Err(err).Msg("registry close")
	}
	log.Info().Int("sessions", len(sessions)).Msg("session manager shut down")
}

// handleGameEnd is every session's onGameEnd hook. Disposal is deferred
// so the final broadcast reaches clients before channels close.
func (m *Manager) handleGameEnd(code string) {
	m.mu.Lock()
	delay := m.cfg.DisposalDelay
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return
	}
	time.AfterFunc(delay, func() { m.dispose(code) })
	m.publishLoad()
}

func (m *Manager) dispose(code string) {
	m.mu.Lock()
	s := m.sessions[code]
	delete(m.sessions, code)
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.Close()
	m.unregisterSession(code)
	log.Info().Str("session", code).Msg("session disposed")
}

func (m *Manager) publishLoop() {
	t := time.NewTicker(loadPublishInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stopPublish:
			return
		case <-t.C:
			m.publishLoad()
		}
	}
}

func (m *Manager) publishLoad() {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	if err := m.live.PublishLoad(ctx, m.LoadInfo()); err != nil {
		log.Warn().Err(err).Msg("publish load")
	}
}

func (m *Manager) registerSession(s *Session) {
	st := s.Status()
	info := repository.SessionInfo{Code: st.Code, StartedAt: st.StartedAt}
	for _, p := range st.Players {
		info.Players = append(info.Players, repository.RegisteredPlayer{
			ID:   p.ID,
			Name: p.Name,
			Team: p.Team.String(),
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	if err := m.live.RegisterSession(ctx, info); err != nil {
		log.Warn().Err(err).Str("session", s.Code).Msg("register session")
	}
	m.publishLoad()
}

func (m *Manager) unregisterSession(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	if err := m.live.UnregisterSession(ctx, code); err != nil {
		log.Warn().Err(err).Str("session", code).Msg("unregister session")
	}
	m.publishLoad()
}

func validateRoster(roster []PlayerSpec) error {
	if len(roster) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidRoster)
	}
	seen := make(map[string]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			return fmt.Errorf("%w: empty player id", ErrInvalidRoster)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidRoster, p.ID)
		}
		seen[p.ID] = true
		if p.Team != sim.Team1 && p.Team != sim.Team2 {
			return fmt.Errorf("%w: player %q has no team", ErrInvalidRoster, p.ID)
		}
	}
	return nil
}

// newSessionCode generates a random 6-character join code.
func newSessionCode() string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 6

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("G%05d", time.Now().UnixNano()%100000)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}
