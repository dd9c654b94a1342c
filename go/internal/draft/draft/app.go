package draft

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/machine"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App handles the draft lifecycle: create, start, pause, resume and reads.
type App struct {
	runner *state.Runner
}

// NewApp creates a new draft App
func NewApp(runner *state.Runner) *App {
	return &App{runner: runner}
}

// CreateDraft stores a pre-draft record. An empty DraftID is assigned.
func (a *App) CreateDraft(ctx context.Context, cfg models.DraftConfig) (*models.DraftState, error) {
	if cfg.DraftID == "" {
		cfg.DraftID = uuid.NewString()
	}
	if cfg.LeagueID == "" {
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "league_id is required")
	}
	if err := machine.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := models.NewPreDraftState(cfg, machine.Normalize(a.runner.Clock().Now()))
	if err := a.runner.Store().Create(ctx, s); err != nil {
		return nil, err
	}

	log.Info().
		Str("draft_id", s.DraftID).
		Str("league_id", s.LeagueID).
		Int("teams", s.TotalTeams()).
		Int("rounds", s.Rounds).
		Msg("draft created")
	return s, nil
}

// StartDraft puts round 1 pick 1 on the clock. Starting a draft that is
// already drafting returns its current state.
func (a *App) StartDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return a.transition(ctx, draftID, models.DraftEventStart,
		func(cur *models.DraftState, now time.Time) (*machine.Transition, error) {
			if cur.Status == models.DraftStatusDrafting {
				return nil, nil
			}
			return machine.Start(cur, actor, now)
		})
}

// PauseDraft stops the clock, keeping the time left for the team on it.
func (a *App) PauseDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return a.transition(ctx, draftID, models.DraftEventPause,
		func(cur *models.DraftState, now time.Time) (*machine.Transition, error) {
			return machine.Pause(cur, actor, now)
		})
}

// ResumeDraft restarts the clock with the time left at pause.
func (a *App) ResumeDraft(ctx context.Context, draftID, actor string) (*models.DraftState, error) {
	return a.transition(ctx, draftID, models.DraftEventResume,
		func(cur *models.DraftState, now time.Time) (*machine.Transition, error) {
			return machine.Resume(cur, actor, now)
		})
}

// GetDraftState reads the board without taking the lock.
func (a *App) GetDraftState(ctx context.Context, draftID string) (*DraftView, error) {
	if draftID == "" {
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "draft_id is required")
	}
	store := a.runner.Store()
	s, err := store.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	picks, err := store.RecentPicks(ctx, draftID, RecentPicksLimit)
	if err != nil {
		return nil, err
	}
	if picks == nil {
		picks = []models.DraftPick{}
	}
	return &DraftView{
		DraftState:  s,
		RecentPicks: picks,
		ServerNow:   machine.Normalize(a.runner.Clock().Now()),
	}, nil
}

// RebuildState replays the durable event log and compares the result with
// the stored state.
func (a *App) RebuildState(ctx context.Context, draftID string) (*RebuildReport, error) {
	if draftID == "" {
		return nil, drafterrors.New(drafterrors.KindInvalidArgument, "draft_id is required")
	}
	store := a.runner.Store()
	stored, err := store.Repository().Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	events, err := store.Events(ctx, draftID)
	if err != nil {
		return nil, err
	}

	report := &RebuildReport{Stored: stored, Events: len(events)}
	if len(events) == 0 {
		report.Consistent = stored.Status == models.DraftStatusPreDraft && stored.Version == 0
		return report, nil
	}
	rebuilt, err := machine.Replay(events)
	if err != nil {
		return nil, drafterrors.Wrap(drafterrors.KindInternal, err, "event log for draft %s does not replay", draftID)
	}
	report.Rebuilt = rebuilt
	report.Consistent = machine.Equivalent(rebuilt, stored)
	if !report.Consistent {
		log.Warn().
			Str("draft_id", draftID).
			Int64("stored_version", stored.Version).
			Int64("rebuilt_version", rebuilt.Version).
			Msg("stored draft state differs from its event log")
	}
	return report, nil
}

func (a *App) transition(
	ctx context.Context,
	draftID string,
	typ models.DraftEventType,
	fn func(cur *models.DraftState, now time.Time) (*machine.Transition, error),
) (*models.DraftState, error) {
	next, err := a.runner.Run(ctx, draftID, string(typ),
		func(_ context.Context, cur *models.DraftState, now time.Time) (*state.Outcome, error) {
			tr, err := fn(cur, now)
			if err != nil || tr == nil {
				return nil, err
			}
			return &state.Outcome{Transition: tr}, nil
		})
	if err != nil {
		return nil, err
	}

	ev := log.Info().
		Str("draft_id", draftID).
		Str("status", string(next.Status)).
		Int64("version", next.Version)
	if next.DeadlineAt != nil {
		ev = ev.Time("deadline_at", *next.DeadlineAt)
	}
	ev.Msgf("draft %s", typ)
	return next, nil
}
