package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/lock"
	"github.com/mcdev12/livedraft/go/internal/draft/pick"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

func config() models.DraftConfig {
	return models.DraftConfig{
		DraftID:         "d1",
		LeagueID:        "l1",
		DraftOrder:      []string{"A", "B", "C", "D"},
		Rounds:          2,
		PickTimeSeconds: 60,
		AvailablePlayerPool: []models.RankedPlayer{
			{PlayerID: "p1"}, {PlayerID: "p2"}, {PlayerID: "p3"}, {PlayerID: "p4"},
			{PlayerID: "p5"}, {PlayerID: "p6"}, {PlayerID: "p7"}, {PlayerID: "p8"},
		},
	}
}

func newApps() (*App, *pick.App, *clockwork.FakeClock, *state.MemoryRepository) {
	repo := state.NewMemoryRepository()
	store := state.NewStore(repo, nil, nil)
	clock := clockwork.NewFakeClockAt(t0)
	runner := state.NewRunner(store, lock.NewLocal(), clock, nil)
	return NewApp(runner), pick.NewApp(runner, autopick.NewRanked(nil), nil, nil), clock, repo
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a created draft", t, func() {
		app, picks, clock, repo := newApps()
		created, err := app.CreateDraft(ctx, config())
		So(err, ShouldBeNil)
		So(created.Status, ShouldEqual, models.DraftStatusPreDraft)
		So(created.Version, ShouldEqual, 0)

		Convey("Creating it again is rejected", func() {
			_, err := app.CreateDraft(ctx, config())
			So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)
		})

		Convey("It cannot be paused before it starts", func() {
			_, err := app.PauseDraft(ctx, "d1", "commissioner")
			So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)
		})

		Convey("Starting puts A on the clock, and starting again is a no-op", func() {
			s, err := app.StartDraft(ctx, "d1", "commissioner")
			So(err, ShouldBeNil)
			So(s.OnClockTeamID, ShouldEqual, "A")
			So(*s.DeadlineAt, ShouldEqual, t0.Add(time.Minute))

			again, err := app.StartDraft(ctx, "d1", "commissioner")
			So(err, ShouldBeNil)
			So(again.Version, ShouldEqual, s.Version)
		})

		Convey("Pausing with 40 seconds left and resuming later keeps the 40 seconds", func() {
			_, err := app.StartDraft(ctx, "d1", "")
			So(err, ShouldBeNil)

			clock.Advance(20 * time.Second)
			paused, err := app.PauseDraft(ctx, "d1", "commissioner")
			So(err, ShouldBeNil)
			So(paused.Status, ShouldEqual, models.DraftStatusPaused)
			So(paused.DeadlineAt, ShouldBeNil)
			So(*paused.RemainingSeconds, ShouldAlmostEqual, 40, 0.001)

			_, err = picks.MakePick(ctx, pick.MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p1"})
			So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)

			clock.Advance(10 * time.Minute)
			resumed, err := app.ResumeDraft(ctx, "d1", "commissioner")
			So(err, ShouldBeNil)
			So(resumed.Status, ShouldEqual, models.DraftStatusDrafting)
			So(resumed.RemainingSeconds, ShouldBeNil)
			So(*resumed.DeadlineAt, ShouldEqual, clock.Now().Add(40*time.Second))
		})

		Convey("The board shows the newest picks first with the server time", func() {
			_, err := app.StartDraft(ctx, "d1", "")
			So(err, ShouldBeNil)
			for i, team := range []string{"A", "B", "C"} {
				_, err := picks.MakePick(ctx, pick.MakePickRequest{DraftID: "d1", TeamID: team, PlayerID: []string{"p1", "p2", "p3"}[i]})
				So(err, ShouldBeNil)
			}
			view, err := app.GetDraftState(ctx, "d1")
			So(err, ShouldBeNil)
			So(view.DraftState.OnClockTeamID, ShouldEqual, "D")
			So(len(view.RecentPicks), ShouldEqual, 3)
			So(view.RecentPicks[0].PlayerID, ShouldEqual, "p3")
			So(view.ServerNow, ShouldEqual, t0)
		})

		Convey("Replaying the event log reproduces the stored state", func() {
			_, err := app.StartDraft(ctx, "d1", "")
			So(err, ShouldBeNil)
			_, err = picks.MakePick(ctx, pick.MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p1"})
			So(err, ShouldBeNil)
			clock.Advance(5 * time.Second)
			_, err = app.PauseDraft(ctx, "d1", "")
			So(err, ShouldBeNil)
			clock.Advance(time.Minute)
			_, err = app.ResumeDraft(ctx, "d1", "")
			So(err, ShouldBeNil)
			clock.Advance(2 * time.Minute)
			_, err = picks.AutoPick(ctx, "d1")
			So(err, ShouldBeNil)

			report, err := app.RebuildState(ctx, "d1")
			So(err, ShouldBeNil)
			So(report.Events, ShouldEqual, 5)
			So(report.Consistent, ShouldBeTrue)
			So(report.Rebuilt.PickedPlayerIDs, ShouldResemble, []string{"p1", "p2"})

			Convey("A tampered stored state is reported as inconsistent", func() {
				stored, _ := repo.Get(ctx, "d1")
				tampered := stored.Clone()
				tampered.Version++
				tampered.OnClockTeamID = "A"
				So(repo.Commit(ctx, state.Commit{State: tampered, ExpectedVersion: stored.Version}), ShouldBeNil)

				report, err := app.RebuildState(ctx, "d1")
				So(err, ShouldBeNil)
				So(report.Consistent, ShouldBeFalse)
			})
		})

		Convey("A fresh draft with no events is consistent", func() {
			report, err := app.RebuildState(ctx, "d1")
			So(err, ShouldBeNil)
			So(report.Events, ShouldEqual, 0)
			So(report.Consistent, ShouldBeTrue)
		})
	})

	Convey("Given an invalid config", t, func() {
		app, _, _, _ := newApps()
		cfg := config()
		cfg.Rounds = 0
		_, err := app.CreateDraft(ctx, cfg)
		So(errors.Is(err, drafterrors.ErrInvalidArgument), ShouldBeTrue)

		cfg = config()
		cfg.LeagueID = ""
		_, err = app.CreateDraft(ctx, cfg)
		So(errors.Is(err, drafterrors.ErrInvalidArgument), ShouldBeTrue)
	})

	Convey("Reading an unknown draft is not found", t, func() {
		app, _, _, _ := newApps()
		_, err := app.GetDraftState(ctx, "nope")
		So(errors.Is(err, drafterrors.ErrNotFound), ShouldBeTrue)
	})
}
