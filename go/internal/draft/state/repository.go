package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/state/db"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/sqlutil"
)

const uniqueViolation = "23505"

// PostgresRepository is the durable store. Each Commit is one transaction
// guarded by a version compare-and-set.
type PostgresRepository struct {
	conn    *sql.DB
	queries *db.Queries
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		conn:    conn,
		queries: db.New(conn),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.DraftState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal draft state: %w", err)
	}
	err = r.queries.InsertDraftState(ctx, db.InsertDraftStateParams{
		DraftID:    s.DraftID,
		LeagueID:   s.LeagueID,
		Status:     string(s.Status),
		Version:    s.Version,
		DeadlineAt: sqlutil.ToNullTime(s.DeadlineAt),
		State:      data,
		UpdatedAt:  s.UpdatedAt,
	})
	if isUniqueViolation(err) {
		return drafterrors.New(drafterrors.KindInvalidState, "draft %s already exists", s.DraftID)
	}
	if err != nil {
		return drafterrors.Unavailable(err, "failed to create draft %s", s.DraftID)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, draftID string) (*models.DraftState, error) {
	row, err := r.queries.GetDraftState(ctx, draftID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, drafterrors.New(drafterrors.KindNotFound, "draft %s not found", draftID)
	}
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to get draft %s", draftID)
	}
	var s models.DraftState
	if err := json.Unmarshal(row.State, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft %s: %w", draftID, err)
	}
	return &s, nil
}

func (r *PostgresRepository) Commit(ctx context.Context, c Commit) error {
	data, err := json.Marshal(c.State)
	if err != nil {
		return fmt.Errorf("failed to marshal draft state: %w", err)
	}
	draftID := c.State.DraftID

	err = sqlutil.Run(ctx, r.conn, func(tx *sql.Tx) *db.Queries { return r.queries.WithTx(tx) }, func(q *db.Queries) error {
		n, err := q.UpdateDraftState(ctx, db.UpdateDraftStateParams{
			DraftID:         draftID,
			Status:          string(c.State.Status),
			Version:         c.State.Version,
			DeadlineAt:      sqlutil.ToNullTime(c.State.DeadlineAt),
			State:           data,
			UpdatedAt:       c.State.UpdatedAt,
			ExpectedVersion: c.ExpectedVersion,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			exists, err := q.DraftExists(ctx, draftID)
			if err != nil {
				return err
			}
			if !exists {
				return drafterrors.New(drafterrors.KindNotFound, "draft %s not found", draftID)
			}
			return drafterrors.New(drafterrors.KindVersionConflict,
				"draft %s moved past version %d", draftID, c.ExpectedVersion)
		}

		for _, ev := range c.Events {
			params, err := eventParams(ev)
			if err != nil {
				return err
			}
			if err := q.InsertDraftEvent(ctx, params); err != nil {
				if isUniqueViolation(err) {
					return drafterrors.Wrap(drafterrors.KindVersionConflict, err, "event seq %d already recorded", ev.Seq)
				}
				return err
			}
		}

		for _, p := range c.Picks {
			params, err := pickParams(p)
			if err != nil {
				return err
			}
			if err := q.InsertDraftPick(ctx, params); err != nil {
				if isUniqueViolation(err) {
					return drafterrors.Wrap(drafterrors.KindPlayerAlreadyDrafted, err, "player %s already drafted", p.PlayerID)
				}
				return err
			}
		}

		if len(c.Events) > 0 {
			return q.NotifyDraftEvents(ctx, draftID)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	var de *drafterrors.Error
	if errors.As(err, &de) {
		return err
	}
	return drafterrors.Unavailable(err, "failed to commit draft %s", draftID)
}

func (r *PostgresRepository) ListEvents(ctx context.Context, draftID string) ([]models.DraftEvent, error) {
	rows, err := r.queries.ListDraftEvents(ctx, draftID)
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to list events for draft %s", draftID)
	}
	events := make([]models.DraftEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := EventFromRow(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r *PostgresRepository) ListRecentPicks(ctx context.Context, draftID string, limit int) ([]models.DraftPick, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.queries.ListRecentPicks(ctx, draftID, int32(limit))
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to list picks for draft %s", draftID)
	}
	picks := make([]models.DraftPick, 0, len(rows))
	for _, row := range rows {
		player, err := sqlutil.FromNullJSON[models.PlayerSnapshot](row.Player)
		if err != nil {
			return nil, err
		}
		picks = append(picks, models.DraftPick{
			DraftID:  row.DraftID,
			Round:    int(row.Round),
			Pick:     int(row.Pick),
			Overall:  int(row.Overall),
			TeamID:   row.TeamID,
			PlayerID: row.PlayerID,
			Player:   player,
			Autopick: row.Autopick,
			PickedAt: row.PickedAt.UTC(),
		})
	}
	return picks, nil
}

func (r *PostgresRepository) NextDeadline(ctx context.Context) (*NextDeadline, error) {
	row, err := r.queries.NextDeadline(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to fetch next deadline")
	}
	return &NextDeadline{DraftID: row.DraftID, Deadline: sqlutil.FromNullTime(row.DeadlineAt)}, nil
}

func (r *PostgresRepository) DueDrafts(ctx context.Context, now time.Time, limit int, exclude []string) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := r.queries.DueDrafts(ctx, now, int32(limit), exclude)
	if err != nil {
		return nil, drafterrors.Unavailable(err, "failed to fetch due drafts")
	}
	return ids, nil
}

// EventFromRow converts a draft_events row into a model event.
func EventFromRow(row db.DraftEventRow) (models.DraftEvent, error) {
	cfg, err := sqlutil.FromNullJSON[models.DraftConfig](row.Config)
	if err != nil {
		return models.DraftEvent{}, err
	}
	return models.DraftEvent{
		ID:             row.ID,
		DraftID:        row.DraftID,
		Seq:            row.Seq,
		Type:           models.DraftEventType(row.EventType),
		Timestamp:      row.OccurredAt.UTC(),
		Round:          int(row.Round),
		Pick:           int(row.Pick),
		Overall:        int(row.Overall),
		TeamID:         sqlutil.FromNullString(row.TeamID),
		PlayerID:       sqlutil.FromNullString(row.PlayerID),
		Actor:          sqlutil.FromNullString(row.Actor),
		IdempotencyKey: sqlutil.FromNullString(row.IdempotencyKey),
		Config:         cfg,
	}, nil
}

func eventParams(ev models.DraftEvent) (db.InsertDraftEventParams, error) {
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var cfg any
	if ev.Config != nil {
		cfg = ev.Config
	}
	config, err := sqlutil.ToNullJSON(cfg)
	if err != nil {
		return db.InsertDraftEventParams{}, err
	}
	return db.InsertDraftEventParams{
		ID:             id,
		DraftID:        ev.DraftID,
		Seq:            ev.Seq,
		EventType:      string(ev.Type),
		Round:          int32(ev.Round),
		Pick:           int32(ev.Pick),
		Overall:        int32(ev.Overall),
		TeamID:         sqlutil.ToNullString(ev.TeamID),
		PlayerID:       sqlutil.ToNullString(ev.PlayerID),
		Actor:          sqlutil.ToNullString(ev.Actor),
		IdempotencyKey: sqlutil.ToNullString(ev.IdempotencyKey),
		Config:         config,
		OccurredAt:     ev.Timestamp,
	}, nil
}

func pickParams(p models.DraftPick) (db.InsertDraftPickParams, error) {
	var snap any
	if p.Player != nil {
		snap = p.Player
	}
	player, err := sqlutil.ToNullJSON(snap)
	if err != nil {
		return db.InsertDraftPickParams{}, err
	}
	return db.InsertDraftPickParams{
		DraftID:  p.DraftID,
		Overall:  int32(p.Overall),
		Round:    int32(p.Round),
		Pick:     int32(p.Pick),
		TeamID:   p.TeamID,
		PlayerID: p.PlayerID,
		Player:   player,
		Autopick: p.Autopick,
		PickedAt: p.PickedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
