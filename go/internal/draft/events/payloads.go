package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// Bus event types, shared between the outbox, gateway and orchestrator.
const (
	EventTypeDraftStarted   = "DraftStarted"
	EventTypePickMade       = "PickMade"
	EventTypeDraftPaused    = "DraftPaused"
	EventTypeDraftResumed   = "DraftResumed"
	EventTypeDraftCompleted = "DraftCompleted"
)

// Envelope is the message published for every draft event.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	DraftID   string          `json:"draftId"`
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// PickMadePayload is the payload for a PickMade event
type PickMadePayload struct {
	TeamID      string    `json:"team_id"`
	PlayerID    string    `json:"player_id"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	OverallPick int       `json:"overall_pick"`
	Autopick    bool      `json:"autopick"`
	Actor       string    `json:"actor,omitempty"`
	MadeAt      time.Time `json:"made_at"`
}

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	DraftID     string    `json:"draft_id"`
	StartedAt   time.Time `json:"started_at"`
	DraftOrder  []string  `json:"draft_order"`
	TotalRounds int       `json:"total_rounds"`
	TotalPicks  int       `json:"total_picks"`
	PickTimeSec int       `json:"pick_time_sec"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	DraftID     string    `json:"draft_id"`
	CompletedAt time.Time `json:"completed_at"`
	TotalPicks  int       `json:"total_picks"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	DraftID  string    `json:"draft_id"`
	PausedAt time.Time `json:"paused_at"`
	Actor    string    `json:"actor,omitempty"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	DraftID   string    `json:"draft_id"`
	ResumedAt time.Time `json:"resumed_at"`
	Actor     string    `json:"actor,omitempty"`
}

// TypeOf names the bus event for a draft event type.
func TypeOf(t models.DraftEventType) (string, error) {
	switch t {
	case models.DraftEventStart:
		return EventTypeDraftStarted, nil
	case models.DraftEventPick, models.DraftEventAutopick:
		return EventTypePickMade, nil
	case models.DraftEventPause:
		return EventTypeDraftPaused, nil
	case models.DraftEventResume:
		return EventTypeDraftResumed, nil
	case models.DraftEventComplete:
		return EventTypeDraftCompleted, nil
	}
	return "", fmt.Errorf("no bus event for draft event type %q", t)
}

// Payload builds the bus payload for ev.
func Payload(ev models.DraftEvent) (json.RawMessage, error) {
	var v any
	switch ev.Type {
	case models.DraftEventStart:
		p := DraftStartedPayload{DraftID: ev.DraftID, StartedAt: ev.Timestamp}
		if ev.Config != nil {
			p.DraftOrder = ev.Config.DraftOrder
			p.TotalRounds = ev.Config.Rounds
			p.TotalPicks = ev.Config.Rounds * len(ev.Config.DraftOrder)
			p.PickTimeSec = ev.Config.PickTimeSeconds
		}
		v = p
	case models.DraftEventPick, models.DraftEventAutopick:
		v = PickMadePayload{
			TeamID:      ev.TeamID,
			PlayerID:    ev.PlayerID,
			Round:       ev.Round,
			Pick:        ev.Pick,
			OverallPick: ev.Overall,
			Autopick:    ev.Type == models.DraftEventAutopick,
			Actor:       ev.Actor,
			MadeAt:      ev.Timestamp,
		}
	case models.DraftEventPause:
		v = DraftPausedPayload{DraftID: ev.DraftID, PausedAt: ev.Timestamp, Actor: ev.Actor}
	case models.DraftEventResume:
		v = DraftResumedPayload{DraftID: ev.DraftID, ResumedAt: ev.Timestamp, Actor: ev.Actor}
	case models.DraftEventComplete:
		v = DraftCompletedPayload{DraftID: ev.DraftID, CompletedAt: ev.Timestamp, TotalPicks: max(ev.Overall-1, 0)}
	default:
		return nil, fmt.Errorf("no bus payload for draft event type %q", ev.Type)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.Type, err)
	}
	return data, nil
}

// NewEnvelope wraps ev for publishing.
func NewEnvelope(ev models.DraftEvent) (Envelope, error) {
	typ, err := TypeOf(ev.Type)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := Payload(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:   ev.ID.String(),
		EventType: typ,
		DraftID:   ev.DraftID,
		Seq:       ev.Seq,
		Timestamp: ev.Timestamp,
		Payload:   payload,
	}, nil
}
