package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// ControlType names a message a subscriber may send or receive outside the event stream
type ControlType string

const (
	ControlPing     ControlType = "ping"
	ControlPong     ControlType = "pong"
	ControlSnapshot ControlType = "snapshot"
	ControlError    ControlType = "error"
)

// Error codes sent back to subscribers
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeNoSession      = "no_session"
)

// ControlMessage is a request from a subscriber: a ping with optional echo data,
// or a request for the current session state.
type ControlMessage struct {
	Type ControlType `json:"type"`
	Data string      `json:"data,omitempty"`
}

// Reply answers one control message
type Reply struct {
	Type      ControlType `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      string      `json:"data,omitempty"`
	Code      string      `json:"error_code,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// ParseControlMessage decodes a subscriber message and rejects unknown types
func ParseControlMessage(raw []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch msg.Type {
	case ControlPing, ControlSnapshot:
		return msg, nil
	case "":
		return ControlMessage{}, fmt.Errorf("type is required")
	default:
		return ControlMessage{}, fmt.Errorf("unsupported message type: %s", msg.Type)
	}
}

// NewPongReply echoes a ping's data
func NewPongReply(data string) Reply {
	return Reply{Type: ControlPong, Timestamp: now(), Data: data}
}

// NewErrorReply reports why a control message could not be answered
func NewErrorReply(code, message string) Reply {
	return Reply{Type: ControlError, Timestamp: now(), Code: code, Message: message}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
