package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/breakline/server/internal/protocol"
	"github.com/freeeve/breakline/server/internal/session"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256 // roughly four seconds of tick traffic
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

var (
	errChannelClosed  = errors.New("channel closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsChannel adapts one WebSocket connection to session.ClientChannel.
// Send enqueues onto a buffered channel drained by the write pump and
// fails when the buffer is full rather than blocking the tick loop, so
// a client that cannot keep up with the tick stream is dropped.
type wsChannel struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
}

// Send queues one frame for the write pump.
func (c *wsChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// IsAlive reports whether the channel still accepts frames.
func (c *wsChannel) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close stops accepting frames and signals the write pump to flush and
// exit. Safe to call more than once.
func (c *wsChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// WSHandler upgrades player connections and binds them to their session.
type WSHandler struct {
	manager *session.Manager
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(manager *session.Manager) *WSHandler {
	return &WSHandler{manager: manager}
}

// ServeWS handles GET /ws/{code}?player={id}. Unknown codes and unknown
// players are rejected before the upgrade. After the upgrade the
// connection becomes the player's client channel, synchronized by a full
// snapshot before any tick traffic reaches it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "missing player parameter")
		return
	}

	sess, err := h.manager.Get(code)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !rosterHasPlayer(sess, playerID) {
		writeError(w, http.StatusNotFound, "player not in session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("session", code).Msg("WebSocket upgrade failed")
		return
	}

	ch := newWSChannel(conn)
	go h.writePump(ch)

	if err := sess.Attach(playerID, ch); err != nil {
		log.Warn().Err(err).Str("session", code).Str("player", playerID).Msg("WebSocket attach rejected")
		ch.Close()
		return
	}
	go h.readPump(sess, playerID, ch)

	log.Info().Str("session", code).Str("player", playerID).Msg("WebSocket client connected")
}

func rosterHasPlayer(s *session.Session, playerID string) bool {
	for _, p := range s.Status().Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// readPump forwards command frames to the session until the connection
// drops or the client breaks protocol. The disconnect is reported against
// this specific channel so a reconnect that already replaced it is left
// alone.
func (h *WSHandler) readPump(sess *session.Session, playerID string, ch *wsChannel) {
	defer func() {
		ch.Close()
		sess.DisconnectChannel(playerID, ch)
		log.Info().Str("session", sess.Code).Str("player", playerID).Msg("WebSocket client disconnected")
	}()

	conn := ch.conn
	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("player", playerID).Msg("WebSocket unexpected close")
			}
			return
		}

		cmd, err := protocol.ParseClientMessage(message)
		if err != nil {
			// A malformed frame closes this connection with a protocol
			// error. The session and the other players play on.
			log.Warn().Err(err).Str("session", sess.Code).Str("player", playerID).Msg("Closing connection on malformed frame")
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "malformed frame"),
				time.Now().Add(writeWait))
			return
		}

		if err := sess.HandleCommand(playerID, cmd); err != nil {
			if errors.Is(err, session.ErrSessionInactive) {
				return
			}
			log.Warn().Err(err).Str("player", playerID).Msg("Command rejected")
		}
	}
}

// writePump writes queued frames and keepalive pings until the channel
// closes or a write fails. On close it flushes frames already queued so
// final game events reach the client ahead of the close frame.
func (h *WSHandler) writePump(ch *wsChannel) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ch.conn.Close()
	}()

	for {
		select {
		case message := <-ch.send:
			ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				ch.Close()
				return
			}
		case <-ticker.C:
			ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ch.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				ch.Close()
				return
			}
		case <-ch.done:
			for {
				select {
				case message := <-ch.send:
					ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if ch.conn.WriteMessage(websocket.TextMessage, message) != nil {
						return
					}
				default:
					ch.conn.SetWriteDeadline(time.Now().Add(writeWait))
					ch.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
