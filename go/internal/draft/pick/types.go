package pick

import (
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// MakePickRequest represents a manual pick submitted by a team
type MakePickRequest struct {
	DraftID        string `json:"draft_id"`
	TeamID         string `json:"team_id"`
	PlayerID       string `json:"player_id"`
	Actor          string `json:"actor,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AutoPickResult is the outcome of an autopick attempt. Skipped means the
// deadline had not elapsed and nothing changed.
type AutoPickResult struct {
	State     *models.DraftState
	Skipped   bool
	Selection autopick.Selection
}
