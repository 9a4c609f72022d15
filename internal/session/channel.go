package session

// ClientChannel is a send-only connection to one player. Implementations
// typically wrap a WebSocket; tests substitute in-memory recorders.
//
// Send must not block the caller indefinitely: a channel that cannot
// accept a frame promptly should fail the send instead, which marks the
// player disconnected. Close releases the underlying transport and may
// be called more than once.
type ClientChannel interface {
	Send(data []byte) error
	IsAlive() bool
	Close()
}
