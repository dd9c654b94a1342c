package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/draft/state/db"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/mcdev12/livedraft/go/internal/sqlutil"
)

// PostgresRepository reads unpublished rows from draft_events.
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

func (r *PostgresRepository) ProcessBatch(ctx context.Context, limit int32, exclude []string, fn BatchFunc) (int, error) {
	var fetched int
	err := sqlutil.Run(ctx, r.conn, func(tx *sql.Tx) *db.Queries { return r.queries.WithTx(tx) }, func(q *db.Queries) error {
		rows, err := q.FetchUnpublishedEvents(ctx, limit, exclude)
		if err != nil {
			return fmt.Errorf("failed to fetch unpublished events: %w", err)
		}
		fetched = len(rows)
		if fetched == 0 {
			return nil
		}

		batch := make([]models.DraftEvent, 0, len(rows))
		for _, row := range rows {
			ev, err := state.EventFromRow(row)
			if err != nil {
				return err
			}
			batch = append(batch, ev)
		}

		delivered, err := fn(ctx, batch)
		if err != nil {
			return err
		}
		for _, id := range delivered {
			if err := q.MarkEventPublished(ctx, id); err != nil {
				return fmt.Errorf("failed to mark event %s published: %w", id, err)
			}
		}
		return nil
	})
	return fetched, err
}

func (r *PostgresRepository) CountPending(ctx context.Context) (int64, error) {
	n, err := r.queries.CountUnpublishedEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unpublished events: %w", err)
	}
	return n, nil
}
