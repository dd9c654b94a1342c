package state

import (
	"context"
	"errors"

	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Store combines the durable repository with the cache projection. The
// repository is authoritative; the cache is refreshed after every commit and
// dropped whenever it cannot be refreshed.
type Store struct {
	repo    Repository
	cache   Cache
	metrics metrics.Collector
}

// NewStore wires a store. A nil cache disables the projection.
func NewStore(repo Repository, cache Cache, m metrics.Collector) *Store {
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Store{repo: repo, cache: cache, metrics: m}
}

// Repository exposes the durable layer for read-only callers.
func (s *Store) Repository() Repository {
	return s.repo
}

// Create persists a new pre-draft state and primes the cache.
func (s *Store) Create(ctx context.Context, st *models.DraftState) error {
	if err := s.repo.Create(ctx, st); err != nil {
		return classify(err, "create draft %s", st.DraftID)
	}
	s.refresh(ctx, st)
	return nil
}

// Get reads the cache first and falls back to the repository.
func (s *Store) Get(ctx context.Context, draftID string) (*models.DraftState, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, draftID)
		if err != nil {
			log.Warn().Err(err).Str("draft_id", draftID).Msg("state cache read failed, falling back to store")
		} else if cached != nil {
			return cached, nil
		}
	}

	st, err := s.repo.Get(ctx, draftID)
	if err != nil {
		return nil, classify(err, "load draft %s", draftID)
	}
	s.refresh(ctx, st)
	return st, nil
}

// Put durably commits c and then refreshes the cache.
func (s *Store) Put(ctx context.Context, c Commit) error {
	if err := s.repo.Commit(ctx, c); err != nil {
		if errors.Is(err, drafterrors.ErrVersionConflict) {
			s.Invalidate(ctx, c.State.DraftID)
		}
		return classify(err, "commit draft %s", c.State.DraftID)
	}
	s.refresh(ctx, c.State)
	return nil
}

// Invalidate drops the cached copy so the next read goes to the repository.
func (s *Store) Invalidate(ctx context.Context, draftID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, draftID); err != nil {
		s.metrics.RecordStoreDivergence("invalidate")
		log.Error().Err(err).Str("draft_id", draftID).Msg("failed to invalidate cached draft state")
	}
}

// Events returns the full ordered event log.
func (s *Store) Events(ctx context.Context, draftID string) ([]models.DraftEvent, error) {
	evs, err := s.repo.ListEvents(ctx, draftID)
	if err != nil {
		return nil, classify(err, "list events for draft %s", draftID)
	}
	return evs, nil
}

// RecentPicks returns the newest ledger rows first.
func (s *Store) RecentPicks(ctx context.Context, draftID string, limit int) ([]models.DraftPick, error) {
	picks, err := s.repo.ListRecentPicks(ctx, draftID, limit)
	if err != nil {
		return nil, classify(err, "list picks for draft %s", draftID)
	}
	return picks, nil
}

func (s *Store) refresh(ctx context.Context, st *models.DraftState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, st); err != nil {
		s.metrics.RecordStoreDivergence("set")
		log.Warn().Err(err).
			Str("draft_id", st.DraftID).
			Int64("version", st.Version).
			Msg("cache refresh failed after commit, invalidating")
		s.Invalidate(ctx, st.DraftID)
	}
}

// classify keeps taxonomy errors intact and reports anything else as an
// unavailable dependency.
func classify(err error, format string, args ...any) error {
	var de *drafterrors.Error
	if errors.As(err, &de) {
		return err
	}
	return drafterrors.Unavailable(err, "failed to "+format, args...)
}
