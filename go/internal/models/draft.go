package models

import (
	"slices"
	"time"
)

// DraftStatus defines the status of a draft.
type DraftStatus string

const (
	DraftStatusPreDraft DraftStatus = "PRE_DRAFT"
	DraftStatusDrafting DraftStatus = "DRAFTING"
	DraftStatusPaused   DraftStatus = "PAUSED"
	DraftStatusComplete DraftStatus = "COMPLETE"
)

// DraftConfig is the immutable setup of a draft, fixed when it starts.
type DraftConfig struct {
	DraftID             string         `json:"draft_id"`
	LeagueID            string         `json:"league_id"`
	DraftOrder          []string       `json:"draft_order"`
	Rounds              int            `json:"rounds"`
	PickTimeSeconds     int            `json:"pick_time_seconds"`
	AvailablePlayerPool []RankedPlayer `json:"available_player_pool,omitempty"`
}

// RankedPlayer is one entry of the optional autopick pool cached on the draft.
type RankedPlayer struct {
	PlayerID   string   `json:"player_id"`
	ADP        *float64 `json:"adp,omitempty"`
	Projection *float64 `json:"projection,omitempty"`
}

// DraftState is the authoritative mutable record of one draft.
type DraftState struct {
	DraftID    string   `json:"draft_id"`
	LeagueID   string   `json:"league_id"`
	DraftOrder []string `json:"draft_order"`
	Rounds     int      `json:"rounds"`

	Round         int    `json:"round"`
	PickIndex     int    `json:"pick_index"`
	OnClockTeamID string `json:"on_clock_team_id,omitempty"`

	DeadlineAt       *time.Time `json:"deadline_at,omitempty"`
	PickTimeSeconds  int        `json:"pick_time_seconds"`
	RemainingSeconds *float64   `json:"remaining_seconds,omitempty"`

	Status              DraftStatus    `json:"draft_status"`
	PickedPlayerIDs     []string       `json:"picked_player_ids"`
	AvailablePlayerPool []RankedPlayer `json:"available_player_pool,omitempty"`

	LastIdempotencyKey string    `json:"last_idempotency_key,omitempty"`
	LastPickTeamID     string    `json:"last_pick_team_id,omitempty"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TotalTeams is the number of teams, which is also the picks per round.
func (s *DraftState) TotalTeams() int {
	return len(s.DraftOrder)
}

// TotalPicks is the number of picks in a full draft.
func (s *DraftState) TotalPicks() int {
	return s.Rounds * len(s.DraftOrder)
}

// IsPicked reports whether playerID has already been drafted.
func (s *DraftState) IsPicked(playerID string) bool {
	return slices.Contains(s.PickedPlayerIDs, playerID)
}

// LastPickedPlayerID is the player taken by the most recent pick, or "".
func (s *DraftState) LastPickedPlayerID() string {
	if len(s.PickedPlayerIDs) == 0 {
		return ""
	}
	return s.PickedPlayerIDs[len(s.PickedPlayerIDs)-1]
}

// Clone returns a deep copy so transitions never mutate a shared value.
func (s *DraftState) Clone() *DraftState {
	if s == nil {
		return nil
	}
	c := *s
	c.DraftOrder = slices.Clone(s.DraftOrder)
	c.PickedPlayerIDs = slices.Clone(s.PickedPlayerIDs)
	c.AvailablePlayerPool = slices.Clone(s.AvailablePlayerPool)
	if s.DeadlineAt != nil {
		d := *s.DeadlineAt
		c.DeadlineAt = &d
	}
	if s.RemainingSeconds != nil {
		r := *s.RemainingSeconds
		c.RemainingSeconds = &r
	}
	return &c
}

// NewPreDraftState builds the version 0 record written when a draft is scheduled.
func NewPreDraftState(cfg DraftConfig, now time.Time) *DraftState {
	return &DraftState{
		DraftID:             cfg.DraftID,
		LeagueID:            cfg.LeagueID,
		DraftOrder:          slices.Clone(cfg.DraftOrder),
		Rounds:              cfg.Rounds,
		PickTimeSeconds:     cfg.PickTimeSeconds,
		Status:              DraftStatusPreDraft,
		PickedPlayerIDs:     []string{},
		AvailablePlayerPool: slices.Clone(cfg.AvailablePlayerPool),
		UpdatedAt:           now,
	}
}

// Config extracts the setup portion of a state.
func (s *DraftState) Config() DraftConfig {
	return DraftConfig{
		DraftID:             s.DraftID,
		LeagueID:            s.LeagueID,
		DraftOrder:          slices.Clone(s.DraftOrder),
		Rounds:              s.Rounds,
		PickTimeSeconds:     s.PickTimeSeconds,
		AvailablePlayerPool: slices.Clone(s.AvailablePlayerPool),
	}
}
