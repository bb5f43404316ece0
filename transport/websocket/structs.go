package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// frame represents a WebSocket frame and its metadata.
type frame struct {
	isFin   bool
	opCode  byte
	length  uint64
	payload []byte
}

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Player *entity.Player     `json:"player,omitempty"`
	Code   string             `json:"code,omitempty"`
	Cell   *int               `json:"cell,omitempty"`
	Ref    string             `json:"ref,omitempty"`
	Update *entity.GameUpdate `json:"update,omitempty"`
	Error  string             `json:"error,omitempty"`
}
