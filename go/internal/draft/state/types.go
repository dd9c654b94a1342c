package state

import (
	"context"
	"time"

	"github.com/mcdev12/livedraft/go/internal/models"
)

// Commit is one atomic durable write: the new state, guarded by the version
// it was derived from, plus the events and ledger rows that produced it.
type Commit struct {
	State           *models.DraftState
	ExpectedVersion int64
	Events          []models.DraftEvent
	Picks           []models.DraftPick
}

// NextDeadline is the earliest pending deadline across drafting drafts.
type NextDeadline struct {
	DraftID  string     `json:"draft_id"`
	Deadline *time.Time `json:"deadline"`
}

// Repository is the durable system of record.
type Repository interface {
	// Create inserts a pre-draft record. It fails if the draft exists.
	Create(ctx context.Context, s *models.DraftState) error
	// Get returns drafterrors.ErrNotFound when the draft does not exist.
	Get(ctx context.Context, draftID string) (*models.DraftState, error)
	// Commit replaces the state only if its stored version equals
	// c.ExpectedVersion, appending events and picks in the same transaction.
	Commit(ctx context.Context, c Commit) error
	ListEvents(ctx context.Context, draftID string) ([]models.DraftEvent, error)
	// ListRecentPicks returns up to limit ledger rows, newest first.
	ListRecentPicks(ctx context.Context, draftID string, limit int) ([]models.DraftPick, error)
	NextDeadline(ctx context.Context) (*NextDeadline, error)
	// DueDrafts lists drafting drafts whose deadline is before now, earliest
	// first, leaving out the drafts in exclude.
	DueDrafts(ctx context.Context, now time.Time, limit int, exclude []string) ([]string, error)
}

// Cache is the low-latency read projection of DraftState.
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, draftID string) (*models.DraftState, error)
	// Set never replaces a newer version with an older one.
	Set(ctx context.Context, s *models.DraftState) error
	Delete(ctx context.Context, draftID string) error
}
