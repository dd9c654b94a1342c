package state

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/lock"
	"github.com/mcdev12/livedraft/go/internal/draft/machine"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Outcome is what a command decided to commit. A nil Outcome leaves the
// draft untouched.
type Outcome struct {
	Transition *machine.Transition
	Picks      []models.DraftPick
}

// Command computes an Outcome from the current state while the draft lock
// is held. now is sampled after the lock is acquired.
type Command func(ctx context.Context, cur *models.DraftState, now time.Time) (*Outcome, error)

// Runner executes commands under the per-draft lock:
// acquire, read, decide, commit, release.
type Runner struct {
	store   *Store
	locker  lock.Locker
	clock   clockwork.Clock
	metrics metrics.Collector
}

// NewRunner creates a Runner. A nil clock uses the real clock.
func NewRunner(store *Store, locker lock.Locker, clock clockwork.Clock, m metrics.Collector) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Runner{store: store, locker: locker, clock: clock, metrics: m}
}

// Store returns the underlying store.
func (r *Runner) Store() *Store {
	return r.store
}

// Clock returns the runner's time source.
func (r *Runner) Clock() clockwork.Clock {
	return r.clock
}

// Run executes cmd for draftID. label names the operation in metrics.
// It returns the committed state, or the unchanged state for a nil Outcome.
func (r *Runner) Run(ctx context.Context, draftID, label string, cmd Command) (*models.DraftState, error) {
	if draftID == "" {
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "draft id is required")
	}

	lease, err := r.locker.Acquire(ctx, draftID)
	if err != nil {
		if errors.Is(err, drafterrors.ErrLockContention) {
			r.metrics.RecordLockContention()
		}
		r.metrics.RecordTransition(label, string(drafterrors.KindOf(err)))
		return nil, err
	}
	defer func() {
		if err := lease.Release(ctx); err != nil {
			log.Warn().Err(err).Str("draft_id", draftID).Msg("failed to release draft lock")
		}
	}()

	next, err := r.run(ctx, draftID, cmd)
	if err != nil {
		r.metrics.RecordTransition(label, string(drafterrors.KindOf(err)))
		return nil, err
	}
	r.metrics.RecordTransition(label, "ok")
	return next, nil
}

func (r *Runner) run(ctx context.Context, draftID string, cmd Command) (*models.DraftState, error) {
	cur, err := r.store.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	out, err := cmd(ctx, cur, r.clock.Now())
	if err != nil {
		return nil, err
	}
	if out == nil || out.Transition == nil {
		return cur, nil
	}

	c := Commit{
		State:           out.Transition.State,
		ExpectedVersion: cur.Version,
		Events:          out.Transition.Events,
		Picks:           out.Picks,
	}
	if err := r.store.Put(ctx, c); err != nil {
		return nil, err
	}

	log.Debug().
		Str("draft_id", draftID).
		Int64("version", c.State.Version).
		Int("events", len(c.Events)).
		Msg("committed draft transition")
	return c.State, nil
}
