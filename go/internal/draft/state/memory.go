package state

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// MemoryRepository is an in-process Repository for tests and single-node
// development. It enforces the same version and uniqueness rules as Postgres.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]*models.DraftState
	events map[string][]models.DraftEvent
	picks  map[string][]models.DraftPick
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		states: make(map[string]*models.DraftState),
		events: make(map[string][]models.DraftEvent),
		picks:  make(map[string][]models.DraftPick),
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *models.DraftState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[s.DraftID]; ok {
		return drafterrors.New(drafterrors.KindInvalidState, "draft %s already exists", s.DraftID)
	}
	r.states[s.DraftID] = s.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, draftID string) (*models.DraftState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[draftID]
	if !ok {
		return nil, drafterrors.New(drafterrors.KindNotFound, "draft %s not found", draftID)
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) Commit(_ context.Context, c Commit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.State.DraftID
	cur, ok := r.states[id]
	if !ok {
		return drafterrors.New(drafterrors.KindNotFound, "draft %s not found", id)
	}
	if cur.Version != c.ExpectedVersion {
		return drafterrors.New(drafterrors.KindVersionConflict,
			"draft %s is at version %d, expected %d", id, cur.Version, c.ExpectedVersion)
	}
	for _, p := range c.Picks {
		for _, existing := range r.picks[id] {
			if existing.PlayerID == p.PlayerID || existing.Overall == p.Overall {
				return drafterrors.New(drafterrors.KindPlayerAlreadyDrafted, "player %s already drafted", p.PlayerID)
			}
		}
	}

	r.states[id] = c.State.Clone()
	r.events[id] = append(r.events[id], c.Events...)
	r.picks[id] = append(r.picks[id], c.Picks...)
	return nil
}

func (r *MemoryRepository) ListEvents(_ context.Context, draftID string) ([]models.DraftEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events[draftID]), nil
}

func (r *MemoryRepository) ListRecentPicks(_ context.Context, draftID string, limit int) ([]models.DraftPick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	picks := slices.Clone(r.picks[draftID])
	slices.Reverse(picks)
	if limit > 0 && len(picks) > limit {
		picks = picks[:limit]
	}
	return picks, nil
}

func (r *MemoryRepository) NextDeadline(_ context.Context) (*NextDeadline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var next *NextDeadline
	for id, s := range r.states {
		if s.Status != models.DraftStatusDrafting || s.DeadlineAt == nil {
			continue
		}
		if next == nil || s.DeadlineAt.Before(*next.Deadline) {
			d := *s.DeadlineAt
			next = &NextDeadline{DraftID: id, Deadline: &d}
		}
	}
	return next, nil
}

func (r *MemoryRepository) DueDrafts(_ context.Context, now time.Time, limit int, exclude []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	type due struct {
		id       string
		deadline time.Time
	}
	var all []due
	for id, s := range r.states {
		if skip[id] {
			continue
		}
		if s.Status == models.DraftStatusDrafting && s.DeadlineAt != nil && s.DeadlineAt.Before(now) {
			all = append(all, due{id: id, deadline: *s.DeadlineAt})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].deadline.Before(all[j].deadline) })
	ids := make([]string, 0, len(all))
	for _, d := range all {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}
