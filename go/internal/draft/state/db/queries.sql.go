package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

const insertDraftState = `
INSERT INTO draft_states (draft_id, league_id, status, version, deadline_at, state, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertDraftStateParams struct {
	DraftID    string
	LeagueID   string
	Status     string
	Version    int64
	DeadlineAt sql.NullTime
	State      json.RawMessage
	UpdatedAt  time.Time
}

func (q *Queries) InsertDraftState(ctx context.Context, arg InsertDraftStateParams) error {
	_, err := q.db.ExecContext(ctx, insertDraftState,
		arg.DraftID,
		arg.LeagueID,
		arg.Status,
		arg.Version,
		arg.DeadlineAt,
		arg.State,
		arg.UpdatedAt,
	)
	return err
}

const getDraftState = `
SELECT draft_id, league_id, status, version, deadline_at, state, updated_at
FROM draft_states
WHERE draft_id = $1
`

func (q *Queries) GetDraftState(ctx context.Context, draftID string) (DraftStateRow, error) {
	row := q.db.QueryRowContext(ctx, getDraftState, draftID)
	var i DraftStateRow
	err := row.Scan(
		&i.DraftID,
		&i.LeagueID,
		&i.Status,
		&i.Version,
		&i.DeadlineAt,
		&i.State,
		&i.UpdatedAt,
	)
	return i, err
}

const updateDraftState = `
UPDATE draft_states
SET status = $2, version = $3, deadline_at = $4, state = $5, updated_at = $6
WHERE draft_id = $1 AND version = $7
`

type UpdateDraftStateParams struct {
	DraftID         string
	Status          string
	Version         int64
	DeadlineAt      sql.NullTime
	State           json.RawMessage
	UpdatedAt       time.Time
	ExpectedVersion int64
}

// UpdateDraftState returns the number of rows changed: zero when the draft
// is missing or its version moved.
func (q *Queries) UpdateDraftState(ctx context.Context, arg UpdateDraftStateParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateDraftState,
		arg.DraftID,
		arg.Status,
		arg.Version,
		arg.DeadlineAt,
		arg.State,
		arg.UpdatedAt,
		arg.ExpectedVersion,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const draftExists = `SELECT EXISTS (SELECT 1 FROM draft_states WHERE draft_id = $1)`

func (q *Queries) DraftExists(ctx context.Context, draftID string) (bool, error) {
	row := q.db.QueryRowContext(ctx, draftExists, draftID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const insertDraftEvent = `
INSERT INTO draft_events (
    id, draft_id, seq, event_type, round, pick, overall,
    team_id, player_id, actor, idempotency_key, config, occurred_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

type InsertDraftEventParams struct {
	ID             uuid.UUID
	DraftID        string
	Seq            int64
	EventType      string
	Round          int32
	Pick           int32
	Overall        int32
	TeamID         sql.NullString
	PlayerID       sql.NullString
	Actor          sql.NullString
	IdempotencyKey sql.NullString
	Config         pqtype.NullRawMessage
	OccurredAt     time.Time
}

func (q *Queries) InsertDraftEvent(ctx context.Context, arg InsertDraftEventParams) error {
	_, err := q.db.ExecContext(ctx, insertDraftEvent,
		arg.ID,
		arg.DraftID,
		arg.Seq,
		arg.EventType,
		arg.Round,
		arg.Pick,
		arg.Overall,
		arg.TeamID,
		arg.PlayerID,
		arg.Actor,
		arg.IdempotencyKey,
		arg.Config,
		arg.OccurredAt,
	)
	return err
}

const insertDraftPick = `
INSERT INTO draft_picks (draft_id, overall, round, pick, team_id, player_id, player, autopick, picked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type InsertDraftPickParams struct {
	DraftID  string
	Overall  int32
	Round    int32
	Pick     int32
	TeamID   string
	PlayerID string
	Player   pqtype.NullRawMessage
	Autopick bool
	PickedAt time.Time
}

func (q *Queries) InsertDraftPick(ctx context.Context, arg InsertDraftPickParams) error {
	_, err := q.db.ExecContext(ctx, insertDraftPick,
		arg.DraftID,
		arg.Overall,
		arg.Round,
		arg.Pick,
		arg.TeamID,
		arg.PlayerID,
		arg.Player,
		arg.Autopick,
		arg.PickedAt,
	)
	return err
}

const notifyDraftEvents = `SELECT pg_notify('draft_events', $1)`

func (q *Queries) NotifyDraftEvents(ctx context.Context, draftID string) error {
	_, err := q.db.ExecContext(ctx, notifyDraftEvents, draftID)
	return err
}

const eventColumns = `
id, draft_id, seq, event_type, round, pick, overall,
team_id, player_id, actor, idempotency_key, config, occurred_at, published_at
`

func scanDraftEvents(rows *sql.Rows) ([]DraftEventRow, error) {
	defer rows.Close()
	var items []DraftEventRow
	for rows.Next() {
		var i DraftEventRow
		if err := rows.Scan(
			&i.ID,
			&i.DraftID,
			&i.Seq,
			&i.EventType,
			&i.Round,
			&i.Pick,
			&i.Overall,
			&i.TeamID,
			&i.PlayerID,
			&i.Actor,
			&i.IdempotencyKey,
			&i.Config,
			&i.OccurredAt,
			&i.PublishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listDraftEvents = `SELECT` + eventColumns + `FROM draft_events WHERE draft_id = $1 ORDER BY seq ASC`

func (q *Queries) ListDraftEvents(ctx context.Context, draftID string) ([]DraftEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listDraftEvents, draftID)
	if err != nil {
		return nil, err
	}
	return scanDraftEvents(rows)
}

const fetchUnpublishedEvents = `SELECT` + eventColumns + `FROM draft_events
WHERE published_at IS NULL
  AND NOT (draft_id = ANY($2::text[]))
ORDER BY occurred_at ASC, seq ASC
LIMIT $1
FOR UPDATE SKIP LOCKED`

// FetchUnpublishedEvents locks a batch of pending rows outside the excluded
// drafts; call it inside a transaction so concurrent relays skip each
// other's rows.
func (q *Queries) FetchUnpublishedEvents(ctx context.Context, limit int32, excludeDrafts []string) ([]DraftEventRow, error) {
	if excludeDrafts == nil {
		excludeDrafts = []string{}
	}
	rows, err := q.db.QueryContext(ctx, fetchUnpublishedEvents, limit, pq.Array(excludeDrafts))
	if err != nil {
		return nil, err
	}
	return scanDraftEvents(rows)
}

const markEventPublished = `UPDATE draft_events SET published_at = now() WHERE id = $1`

func (q *Queries) MarkEventPublished(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markEventPublished, id)
	return err
}

const listRecentPicks = `
SELECT draft_id, overall, round, pick, team_id, player_id, player, autopick, picked_at
FROM draft_picks
WHERE draft_id = $1
ORDER BY overall DESC
LIMIT $2
`

func (q *Queries) ListRecentPicks(ctx context.Context, draftID string, limit int32) ([]DraftPickRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecentPicks, draftID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DraftPickRow
	for rows.Next() {
		var i DraftPickRow
		if err := rows.Scan(
			&i.DraftID,
			&i.Overall,
			&i.Round,
			&i.Pick,
			&i.TeamID,
			&i.PlayerID,
			&i.Player,
			&i.Autopick,
			&i.PickedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const nextDeadline = `
SELECT draft_id, deadline_at
FROM draft_states
WHERE status = 'DRAFTING' AND deadline_at IS NOT NULL
ORDER BY deadline_at ASC
LIMIT 1
`

type NextDeadlineRow struct {
	DraftID    string
	DeadlineAt sql.NullTime
}

func (q *Queries) NextDeadline(ctx context.Context) (NextDeadlineRow, error) {
	row := q.db.QueryRowContext(ctx, nextDeadline)
	var i NextDeadlineRow
	err := row.Scan(&i.DraftID, &i.DeadlineAt)
	return i, err
}

const dueDrafts = `
SELECT draft_id
FROM draft_states
WHERE status = 'DRAFTING' AND deadline_at < $1
  AND NOT (draft_id = ANY($3::text[]))
ORDER BY deadline_at ASC
LIMIT $2
`

func (q *Queries) DueDrafts(ctx context.Context, now time.Time, limit int32, excludeDrafts []string) ([]string, error) {
	if excludeDrafts == nil {
		excludeDrafts = []string{}
	}
	rows, err := q.db.QueryContext(ctx, dueDrafts, now, limit, pq.Array(excludeDrafts))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUnpublishedEvents = `SELECT COUNT(*) FROM draft_events WHERE published_at IS NULL`

func (q *Queries) CountUnpublishedEvents(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnpublishedEvents)
	var count int64
	err := row.Scan(&count)
	return count, err
}
