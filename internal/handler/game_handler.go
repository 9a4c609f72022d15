package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/freeeve/breakline/server/internal/session"
	"github.com/freeeve/breakline/server/pkg/sim"
)

// GameHandler handles the session lifecycle endpoints.
type GameHandler struct {
	manager *session.Manager
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(manager *session.Manager) *GameHandler {
	return &GameHandler{manager: manager}
}

type playerStatusBody struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Team      string `json:"team"`
	Connected bool   `json:"connected"`
}

type statusBody struct {
	Code      string             `json:"code"`
	Phase     string             `json:"phase"`
	Tick      int64              `json:"tick"`
	StartedAt time.Time          `json:"startedAt"`
	Active    bool               `json:"active"`
	Players   []playerStatusBody `json:"players"`
}

func statusResponse(st session.Status) statusBody {
	body := statusBody{
		Code:      st.Code,
		Phase:     st.Phase.String(),
		Tick:      st.Tick,
		StartedAt: st.StartedAt,
		Active:    st.Active,
		Players:   make([]playerStatusBody, 0, len(st.Players)),
	}
	for _, p := range st.Players {
		body.Players = append(body.Players, playerStatusBody{
			ID:        p.ID,
			Name:      p.Name,
			Team:      p.Team.String(),
			Connected: p.Connected,
		})
	}
	return body
}

// CreateGame handles POST /api/games. The body carries the full roster;
// an omitted code is replaced with a generated join code.
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code    string `json:"code,omitempty"`
		Players []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Team   string `json:"team"`
			DeckID string `json:"deckId,omitempty"`
		} `json:"players"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roster := make([]session.PlayerSpec, 0, len(req.Players))
	for _, p := range req.Players {
		team, err := sim.ParseTeam(p.Team)
		if err != nil {
			writeError(w, http.StatusBadRequest, "player "+p.ID+": "+err.Error())
			return
		}
		roster = append(roster, session.PlayerSpec{
			ID:     p.ID,
			Name:   p.Name,
			Team:   team,
			DeckID: p.DeckID,
		})
	}

	s, err := h.manager.CreateSession(req.Code, roster)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidRoster) {
			status = http.StatusBadRequest
		} else if errors.Is(err, session.ErrCodeInUse) {
			status = http.StatusConflict
		} else if errors.Is(err, session.ErrTooManyGames) || errors.Is(err, session.ErrManagerClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, statusResponse(s.Status()))
}

// GetGame handles GET /api/games/{code}.
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(r.PathValue("code"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse(s.Status()))
}

// EndGame handles DELETE /api/games/{code}, an explicit termination
// with no winner.
func (h *GameHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.EndSession(r.PathValue("code"), sim.TeamNone); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLoad handles GET /api/load.
func (h *GameHandler) GetLoad(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.LoadInfo())
}

// Health handles GET /api/health.
func (h *GameHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
