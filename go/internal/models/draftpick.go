package models

import (
	"time"
)

// DraftPick is the denormalized ledger row derived from a pick or autopick event.
type DraftPick struct {
	DraftID  string          `json:"draft_id"`
	Round    int             `json:"round"`
	Pick     int             `json:"pick"`         // pick number in the round
	Overall  int             `json:"overall_pick"` // pick number overall
	TeamID   string          `json:"team_id"`
	PlayerID string          `json:"player_id"`
	Player   *PlayerSnapshot `json:"player,omitempty"`
	Autopick bool            `json:"autopick"`
	PickedAt time.Time       `json:"picked_at"`
}

// NewDraftPick derives the ledger row for a pick event.
func NewDraftPick(ev DraftEvent, snapshot *PlayerSnapshot) DraftPick {
	return DraftPick{
		DraftID:  ev.DraftID,
		Round:    ev.Round,
		Pick:     ev.Pick,
		Overall:  ev.Overall,
		TeamID:   ev.TeamID,
		PlayerID: ev.PlayerID,
		Player:   snapshot,
		Autopick: ev.Type == DraftEventAutopick,
		PickedAt: ev.Timestamp,
	}
}
