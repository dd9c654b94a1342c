package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftEventType is the kind of an immutable draft event.
type DraftEventType string

const (
	DraftEventStart    DraftEventType = "start"
	DraftEventPick     DraftEventType = "pick"
	DraftEventAutopick DraftEventType = "autopick"
	DraftEventPause    DraftEventType = "pause"
	DraftEventResume   DraftEventType = "resume"
	DraftEventComplete DraftEventType = "complete"
)

// DraftEvent is an append-only history row. Seq equals the state version
// produced by applying the event.
type DraftEvent struct {
	ID             uuid.UUID      `json:"id"`
	DraftID        string         `json:"draft_id"`
	Seq            int64          `json:"seq"`
	Type           DraftEventType `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	Round          int            `json:"round"`
	Pick           int            `json:"pick"`
	Overall        int            `json:"overall"`
	TeamID         string         `json:"team_id,omitempty"`
	PlayerID       string         `json:"player_id,omitempty"`
	Actor          string         `json:"actor,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Config         *DraftConfig   `json:"config,omitempty"`
}

// IsPick reports whether the event commits a player.
func (e DraftEvent) IsPick() bool {
	return e.Type == DraftEventPick || e.Type == DraftEventAutopick
}
