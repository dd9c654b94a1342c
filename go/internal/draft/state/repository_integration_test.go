//go:build integration

package state

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/state/db"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

// Run with: LIVEDRAFT_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./go/internal/draft/state/
func openTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("LIVEDRAFT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LIVEDRAFT_TEST_POSTGRES_DSN not set")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// pickCommit builds a hand-made pick commit on top of cur, bypassing the
// state machine so the database constraints are what gets exercised.
func pickCommit(cur *models.DraftState, seq int64, overall int, playerID string) Commit {
	next := cur.Clone()
	next.Version = seq
	next.PickedPlayerIDs = append(next.PickedPlayerIDs, playerID)
	ev := models.DraftEvent{
		ID:        uuid.New(),
		DraftID:   cur.DraftID,
		Seq:       seq,
		Type:      models.DraftEventPick,
		Round:     1,
		Pick:      overall,
		Overall:   overall,
		TeamID:    cur.DraftOrder[overall-1],
		PlayerID:  playerID,
		Timestamp: t0.Add(time.Duration(overall) * time.Second),
	}
	return Commit{
		State:           next,
		ExpectedVersion: cur.Version,
		Events:          []models.DraftEvent{ev},
		Picks:           []models.DraftPick{models.NewDraftPick(ev, nil)},
	}
}

func TestPostgresRepository(t *testing.T) {
	conn := openTestDB(t)

	Convey("Given a pre-draft record in Postgres", t, func() {
		ctx := context.Background()
		repo := NewPostgresRepository(conn)
		id := "it-" + uuid.NewString()
		So(repo.Create(ctx, newDraft(id)), ShouldBeNil)

		Convey("Creating it again is rejected", func() {
			err := repo.Create(ctx, newDraft(id))
			So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)
		})

		Convey("An unknown draft is not found", func() {
			_, err := repo.Get(ctx, "it-missing-"+uuid.NewString())
			So(errors.Is(err, drafterrors.ErrNotFound), ShouldBeTrue)

			missing := newDraft("it-missing-" + uuid.NewString())
			err = repo.Commit(ctx, startCommit(t, missing))
			So(errors.Is(err, drafterrors.ErrNotFound), ShouldBeTrue)
		})

		Convey("A commit at the expected version is stored with its events", func() {
			start := startCommit(t, newDraft(id))
			So(repo.Commit(ctx, start), ShouldBeNil)

			got, err := repo.Get(ctx, id)
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, 1)
			So(got.Status, ShouldEqual, models.DraftStatusDrafting)

			evs, err := repo.ListEvents(ctx, id)
			So(err, ShouldBeNil)
			So(len(evs), ShouldEqual, 1)

			Convey("a second commit from the same version conflicts and writes nothing", func() {
				err := repo.Commit(ctx, start)
				So(errors.Is(err, drafterrors.ErrVersionConflict), ShouldBeTrue)

				evs, _ := repo.ListEvents(ctx, id)
				So(len(evs), ShouldEqual, 1)
			})

			Convey("a reused event seq conflicts and the state stays put", func() {
				c := pickCommit(got, 2, 1, "p1")
				c.Events[0].Seq = 1
				err := repo.Commit(ctx, c)
				So(errors.Is(err, drafterrors.ErrVersionConflict), ShouldBeTrue)

				after, _ := repo.Get(ctx, id)
				So(after.Version, ShouldEqual, 1)
			})

			Convey("a player can only appear once in the ledger", func() {
				So(repo.Commit(ctx, pickCommit(got, 2, 1, "p1")), ShouldBeNil)
				picked, err := repo.Get(ctx, id)
				So(err, ShouldBeNil)

				err = repo.Commit(ctx, pickCommit(picked, 3, 2, "p1"))
				So(errors.Is(err, drafterrors.ErrPlayerAlreadyDrafted), ShouldBeTrue)

				after, _ := repo.Get(ctx, id)
				So(after.Version, ShouldEqual, 2)
				picks, err := repo.ListRecentPicks(ctx, id, 10)
				So(err, ShouldBeNil)
				So(len(picks), ShouldEqual, 1)
			})

			Convey("the draft is due once its deadline passes unless excluded", func() {
				later := got.DeadlineAt.Add(time.Second)
				due, err := repo.DueDrafts(ctx, later, 1000, nil)
				So(err, ShouldBeNil)
				So(due, ShouldContain, id)

				due, err = repo.DueDrafts(ctx, later, 1000, []string{id})
				So(err, ShouldBeNil)
				So(due, ShouldNotContain, id)
			})
		})
	})
}
