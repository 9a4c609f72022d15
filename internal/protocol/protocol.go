// Package protocol defines the JSON wire format between server and game
// clients: the client command envelope and the rendering of simulation
// messages into frames. Frames whose content depends on the receiving
// player's team are rendered per recipient; everything else serializes
// once and fans out.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freeeve/breakline/server/pkg/sim"
)

// Frame type tags.
const (
	TypeCommand     = "command"
	TypeTickUpdate  = "tick_update"
	TypePhaseChange = "phase_change"
	TypeSnapshot    = "state_snapshot"
	TypeGameEvent   = "game_event"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownFrame   = errors.New("unknown frame type")
)

// ClientMessage is the envelope for frames sent by clients.
type ClientMessage struct {
	Type    string          `json:"type"`
	Command sim.GameCommand `json:"command"`
}

// ParseClientMessage decodes a client frame into its command. A frame
// that is not valid JSON or does not carry the command tag is a protocol
// failure; the caller should close the offending channel. Structural
// validation of the command itself is the simulation's job.
func ParseClientMessage(data []byte) (sim.GameCommand, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return sim.GameCommand{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if msg.Type != TypeCommand {
		return sim.GameCommand{}, fmt.Errorf("%w: %q", ErrUnknownFrame, msg.Type)
	}
	return msg.Command, nil
}
