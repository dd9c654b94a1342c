package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
)

// DraftEvent is the message pushed to board clients over the websocket
type DraftEvent struct {
	ID        string          `json:"id,omitempty"`
	DraftID   string          `json:"draft_id"`
	Type      EventType       `json:"type"`
	Seq       int64           `json:"seq,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of board message
type EventType string

const (
	EventTypePickMade       EventType = events.EventTypePickMade
	EventTypeDraftStarted   EventType = events.EventTypeDraftStarted
	EventTypeDraftPaused    EventType = events.EventTypeDraftPaused
	EventTypeDraftResumed   EventType = events.EventTypeDraftResumed
	EventTypeDraftCompleted EventType = events.EventTypeDraftCompleted

	// EventTypeSnapshot carries the full board; it is the first message on
	// every connection so clients never start from a partial view.
	EventTypeSnapshot EventType = "Snapshot"
)

// FromEnvelope converts a bus envelope into a board message. The payload is
// decoded once so malformed events never reach clients.
func FromEnvelope(env events.Envelope) (*DraftEvent, error) {
	ev := &DraftEvent{
		ID:        env.EventID,
		DraftID:   env.DraftID,
		Type:      EventType(env.EventType),
		Seq:       env.Seq,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}
	if ev.DraftID == "" {
		return nil, fmt.Errorf("event %s has no draft id", env.EventID)
	}
	if _, err := ParseEventPayload(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// NewSnapshot wraps a board read for sending to a client.
func NewSnapshot(view *draft.DraftView) (*DraftEvent, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	ev := &DraftEvent{
		Type:      EventTypeSnapshot,
		Timestamp: view.ServerNow,
		Data:      data,
	}
	if view.DraftState != nil {
		ev.DraftID = view.DraftState.DraftID
		ev.Seq = view.DraftState.Version
	}
	return ev, nil
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *DraftEvent) (any, error) {
	var payload any
	switch event.Type {
	case EventTypePickMade:
		payload = &events.PickMadePayload{}
	case EventTypeDraftStarted:
		payload = &events.DraftStartedPayload{}
	case EventTypeDraftPaused:
		payload = &events.DraftPausedPayload{}
	case EventTypeDraftResumed:
		payload = &events.DraftResumedPayload{}
	case EventTypeDraftCompleted:
		payload = &events.DraftCompletedPayload{}
	case EventTypeSnapshot:
		payload = &draft.DraftView{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err := json.Unmarshal(event.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	return payload, nil
}
