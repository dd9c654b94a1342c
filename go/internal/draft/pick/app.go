package pick

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/machine"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App handles pick business logic: manual picks, autopicks and the
// deadline queries the orchestrator polls.
type App struct {
	runner   *state.Runner
	strategy autopick.Strategy
	catalog  autopick.Catalog
	metrics  metrics.Collector
}

// NewApp creates a new pick App. catalog may be nil, in which case ledger
// rows carry no player snapshot.
func NewApp(runner *state.Runner, strategy autopick.Strategy, catalog autopick.Catalog, m metrics.Collector) *App {
	if m == nil {
		m = metrics.NoOp{}
	}
	return &App{
		runner:   runner,
		strategy: strategy,
		catalog:  catalog,
		metrics:  m,
	}
}

// MakePick commits a manual pick for the team on the clock. A pick that
// arrives after the deadline fails with DEADLINE_PASSED and triggers an
// autopick for the draft.
func (a *App) MakePick(ctx context.Context, req MakePickRequest) (*models.DraftState, error) {
	if err := validateMakePickRequest(req); err != nil {
		return nil, err
	}

	next, err := a.runner.Run(ctx, req.DraftID, string(models.DraftEventPick),
		func(ctx context.Context, cur *models.DraftState, now time.Time) (*state.Outcome, error) {
			if isRetry(cur, req) {
				log.Debug().
					Str("draft_id", req.DraftID).
					Str("idempotency_key", req.IdempotencyKey).
					Msg("duplicate pick request, returning current state")
				return nil, nil
			}
			if err := machine.CheckPick(cur, req.TeamID, req.PlayerID, now); err != nil {
				return nil, err
			}
			tr, err := machine.Pick(cur, machine.PickInput{
				Type:           models.DraftEventPick,
				TeamID:         req.TeamID,
				PlayerID:       req.PlayerID,
				Actor:          req.Actor,
				IdempotencyKey: req.IdempotencyKey,
			}, now)
			if err != nil {
				return nil, err
			}
			return &state.Outcome{Transition: tr, Picks: a.ledgerRows(ctx, tr)}, nil
		})
	if errors.Is(err, drafterrors.ErrDeadlinePassed) {
		if _, autoErr := a.AutoPick(ctx, req.DraftID); autoErr != nil {
			log.Warn().Err(autoErr).Str("draft_id", req.DraftID).Msg("autopick after late pick failed")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("draft_id", req.DraftID).
		Str("team_id", req.TeamID).
		Str("player_id", req.PlayerID).
		Int64("version", next.Version).
		Str("status", string(next.Status)).
		Msg("pick committed")
	return next, nil
}

// isRetry reports whether req repeats the last committed pick: same key,
// same team and same player.
func isRetry(cur *models.DraftState, req MakePickRequest) bool {
	return req.IdempotencyKey != "" &&
		cur.LastIdempotencyKey == req.IdempotencyKey &&
		cur.LastPickTeamID == req.TeamID &&
		cur.LastPickedPlayerID() == req.PlayerID
}

// AutoPick picks for the on-clock team once its deadline has passed. Before
// the deadline it reports Skipped and changes nothing.
func (a *App) AutoPick(ctx context.Context, draftID string) (*AutoPickResult, error) {
	result := &AutoPickResult{}

	next, err := a.runner.Run(ctx, draftID, string(models.DraftEventAutopick),
		func(ctx context.Context, cur *models.DraftState, now time.Time) (*state.Outcome, error) {
			due, err := machine.AutopickDue(cur, now)
			if err != nil {
				return nil, err
			}
			if !due {
				result.Skipped = true
				return nil, nil
			}

			sel, err := a.strategy.Select(ctx, cur)
			if err != nil {
				return nil, err
			}
			tr, err := machine.Pick(cur, machine.PickInput{
				Type:     models.DraftEventAutopick,
				TeamID:   cur.OnClockTeamID,
				PlayerID: sel.PlayerID,
			}, now)
			if err != nil {
				return nil, err
			}
			result.Selection = sel
			return &state.Outcome{Transition: tr, Picks: a.ledgerRows(ctx, tr)}, nil
		})
	if err != nil {
		return nil, err
	}
	result.State = next

	if result.Skipped {
		log.Debug().Str("draft_id", draftID).Msg("autopick not due yet")
		return result, nil
	}
	a.metrics.RecordAutopick(string(result.Selection.Tier))
	log.Info().
		Str("draft_id", draftID).
		Str("player_id", result.Selection.PlayerID).
		Str("tier", string(result.Selection.Tier)).
		Int64("version", next.Version).
		Msg("autopick committed")
	return result, nil
}

// FetchNextDeadline returns the earliest pending deadline, or nil when no
// draft is on the clock.
func (a *App) FetchNextDeadline(ctx context.Context) (*state.NextDeadline, error) {
	return a.runner.Store().Repository().NextDeadline(ctx)
}

// FetchDraftsDueForPick lists drafting drafts whose deadline has passed,
// skipping the ones in exclude.
func (a *App) FetchDraftsDueForPick(ctx context.Context, limit int, exclude []string) ([]string, error) {
	return a.runner.Store().Repository().DueDrafts(ctx, a.runner.Clock().Now(), limit, exclude)
}

func (a *App) ledgerRows(ctx context.Context, tr *machine.Transition) []models.DraftPick {
	var picks []models.DraftPick
	for _, ev := range tr.Events {
		if ev.IsPick() {
			picks = append(picks, models.NewDraftPick(ev, a.snapshot(ctx, ev.PlayerID)))
		}
	}
	return picks
}

func (a *App) snapshot(ctx context.Context, playerID string) *models.PlayerSnapshot {
	if a.catalog == nil {
		return nil
	}
	p, err := a.catalog.Lookup(ctx, playerID)
	if err != nil {
		log.Warn().Err(err).Str("player_id", playerID).Msg("player snapshot lookup failed")
		return nil
	}
	return p.Snapshot()
}

func validateMakePickRequest(req MakePickRequest) error {
	switch {
	case req.DraftID == "":
		return drafterrors.New(drafterrors.KindInvalidArgument, "draft_id is required")
	case req.TeamID == "":
		return drafterrors.New(drafterrors.KindInvalidArgument, "team_id is required")
	case req.PlayerID == "":
		return drafterrors.New(drafterrors.KindInvalidArgument, "player_id is required")
	}
	return nil
}
