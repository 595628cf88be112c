package ws

import (
	"encoding/json"
	"time"

	"github.com/titikruang/ruang/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeScopeSubscribe   = "scope.subscribe"
	EventTypeScopeUnsubscribe = "scope.unsubscribe"
	EventTypePing             = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessagesSnapshot = "messages.snapshot"
	EventTypePong             = "pong"
	EventTypeError            = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Scope     string          `json:"scope,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

// ScopePayload names a scope in its key form, e.g. "channel:general".
type ScopePayload struct {
	Scope string `json:"scope"`
}

// --- Server → Client payloads ---

// SnapshotPayload is the complete ordered message list of a scope.
type SnapshotPayload struct {
	Messages []domain.Message `json:"messages"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType, scope string, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return &Event{
		Type:      eventType,
		Scope:     scope,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
