package pick

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/lock"
	"github.com/mcdev12/livedraft/go/internal/draft/machine"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

type fixture struct {
	app   *App
	clock *clockwork.FakeClock
	store *state.Store
	rec   *metrics.Recorder
}

func newFixture(t *testing.T, rounds int) *fixture {
	ctx := context.Background()
	rec := metrics.NewRecorder()
	store := state.NewStore(state.NewMemoryRepository(), nil, rec)
	clock := clockwork.NewFakeClockAt(t0)
	runner := state.NewRunner(store, lock.NewLocal(), clock, rec)

	catalog := autopick.NewStaticCatalog([]models.Player{
		{ID: "p1", FullName: "Bijan Robinson", Position: "RB", Team: "ATL", Draftable: true, ADP: f(5)},
		{ID: "p2", FullName: "Ja'Marr Chase", Position: "WR", Team: "CIN", Draftable: true, ADP: f(2)},
	})
	app := NewApp(runner, autopick.NewRanked(catalog), catalog, rec)

	pool := []models.RankedPlayer{
		{PlayerID: "p1", ADP: f(5)},
		{PlayerID: "p2", ADP: f(2)},
	}
	for _, id := range []string{"p3", "p4", "p5", "p6", "p7", "p8", "p9"} {
		pool = append(pool, models.RankedPlayer{PlayerID: id})
	}
	d := models.NewPreDraftState(models.DraftConfig{
		DraftID:             "d1",
		LeagueID:            "l1",
		DraftOrder:          []string{"A", "B", "C", "D"},
		Rounds:              rounds,
		PickTimeSeconds:     60,
		AvailablePlayerPool: pool,
	}, t0)
	if err := store.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := runner.Run(ctx, "d1", "start", func(_ context.Context, cur *models.DraftState, now time.Time) (*state.Outcome, error) {
		tr, err := machine.Start(cur, "commissioner", now)
		if err != nil {
			return nil, err
		}
		return &state.Outcome{Transition: tr}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return &fixture{app: app, clock: clock, store: store, rec: rec}
}

func (fx *fixture) pick(team, player string) (*models.DraftState, error) {
	return fx.app.MakePick(context.Background(), MakePickRequest{DraftID: "d1", TeamID: team, PlayerID: player})
}

func TestMakePick(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started four-team draft", t, func() {
		fx := newFixture(t, 2)

		Convey("Round one runs A to D and round two starts with D", func() {
			var s *models.DraftState
			var err error
			for i, team := range []string{"A", "B", "C", "D"} {
				s, err = fx.pick(team, []string{"p3", "p4", "p5", "p6"}[i])
				So(err, ShouldBeNil)
			}
			So(s.Round, ShouldEqual, 2)
			So(s.PickIndex, ShouldEqual, 1)
			So(s.OnClockTeamID, ShouldEqual, "D")
			So(s.Version, ShouldEqual, 5)

			Convey("The last pick of round two completes the draft", func() {
				for i, team := range []string{"D", "C", "B", "A"} {
					s, err = fx.pick(team, []string{"p7", "p8", "p9", "p1"}[i])
					So(err, ShouldBeNil)
				}
				So(s.Status, ShouldEqual, models.DraftStatusComplete)
				So(s.DeadlineAt, ShouldBeNil)
				So(s.OnClockTeamID, ShouldEqual, "")
				So(s.Version, ShouldEqual, 10)

				_, err = fx.pick("A", "p2")
				So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)
			})
		})

		Convey("A team off the clock is rejected without a change", func() {
			_, err := fx.pick("B", "p3")
			So(errors.Is(err, drafterrors.ErrWrongTurn), ShouldBeTrue)
			s, _ := fx.store.Get(ctx, "d1")
			So(s.Version, ShouldEqual, 1)
			So(s.PickedPlayerIDs, ShouldBeEmpty)
		})

		Convey("A drafted player cannot be picked again", func() {
			_, err := fx.pick("A", "p3")
			So(err, ShouldBeNil)
			_, err = fx.pick("B", "p3")
			So(errors.Is(err, drafterrors.ErrPlayerAlreadyDrafted), ShouldBeTrue)
		})

		Convey("A pick at the exact deadline is accepted", func() {
			fx.clock.Advance(60 * time.Second)
			s, err := fx.pick("A", "p3")
			So(err, ShouldBeNil)
			So(s.OnClockTeamID, ShouldEqual, "B")
		})

		Convey("A late pick fails and the team is autopicked instead", func() {
			fx.clock.Advance(61 * time.Second)
			_, err := fx.pick("A", "p3")
			So(errors.Is(err, drafterrors.ErrDeadlinePassed), ShouldBeTrue)

			s, _ := fx.store.Get(ctx, "d1")
			So(s.PickedPlayerIDs, ShouldResemble, []string{"p2"})
			So(s.OnClockTeamID, ShouldEqual, "B")
			So(fx.rec.Count("autopick:adp"), ShouldEqual, 1)
		})

		Convey("A retried request with the same idempotency key is a no-op", func() {
			req := MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p3", IdempotencyKey: "req-1"}
			first, err := fx.app.MakePick(ctx, req)
			So(err, ShouldBeNil)
			again, err := fx.app.MakePick(ctx, req)
			So(err, ShouldBeNil)
			So(again.Version, ShouldEqual, first.Version)
			evs, _ := fx.store.Events(ctx, "d1")
			So(len(evs), ShouldEqual, 2)
		})

		Convey("A reused idempotency key from another team is still checked", func() {
			_, err := fx.app.MakePick(ctx, MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p3", IdempotencyKey: "1"})
			So(err, ShouldBeNil)

			_, err = fx.app.MakePick(ctx, MakePickRequest{DraftID: "d1", TeamID: "D", PlayerID: "p4", IdempotencyKey: "1"})
			So(errors.Is(err, drafterrors.ErrWrongTurn), ShouldBeTrue)

			s, _ := fx.store.Get(ctx, "d1")
			So(s.OnClockTeamID, ShouldEqual, "B")
			So(s.PickedPlayerIDs, ShouldResemble, []string{"p3"})
		})

		Convey("A reused idempotency key with a different pick is not a retry", func() {
			_, err := fx.app.MakePick(ctx, MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p3", IdempotencyKey: "1"})
			So(err, ShouldBeNil)

			_, err = fx.app.MakePick(ctx, MakePickRequest{DraftID: "d1", TeamID: "A", PlayerID: "p4", IdempotencyKey: "1"})
			So(errors.Is(err, drafterrors.ErrWrongTurn), ShouldBeTrue)

			s, err := fx.app.MakePick(ctx, MakePickRequest{DraftID: "d1", TeamID: "B", PlayerID: "p4", IdempotencyKey: "1"})
			So(err, ShouldBeNil)
			So(s.PickedPlayerIDs, ShouldResemble, []string{"p3", "p4"})
			So(s.LastPickTeamID, ShouldEqual, "B")
		})

		Convey("The ledger row carries the catalog snapshot", func() {
			_, err := fx.pick("A", "p1")
			So(err, ShouldBeNil)
			picks, err := fx.store.RecentPicks(ctx, "d1", 10)
			So(err, ShouldBeNil)
			So(len(picks), ShouldEqual, 1)
			So(picks[0].Overall, ShouldEqual, 1)
			So(picks[0].Player.Name, ShouldEqual, "Bijan Robinson")
			So(picks[0].Autopick, ShouldBeFalse)
		})

		Convey("Missing fields are invalid arguments", func() {
			_, err := fx.pick("A", "")
			So(errors.Is(err, drafterrors.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestAutoPick(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started draft whose pool ranks p2 over p1", t, func() {
		fx := newFixture(t, 2)

		Convey("Nothing happens before the deadline", func() {
			res, err := fx.app.AutoPick(ctx, "d1")
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldBeTrue)
			So(res.State.Version, ShouldEqual, 1)
		})

		Convey("Nothing happens at exactly the deadline", func() {
			fx.clock.Advance(60 * time.Second)
			res, err := fx.app.AutoPick(ctx, "d1")
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldBeTrue)
		})

		Convey("After the deadline the lowest ADP is taken for the on-clock team", func() {
			fx.clock.Advance(61 * time.Second)
			res, err := fx.app.AutoPick(ctx, "d1")
			So(err, ShouldBeNil)
			So(res.Skipped, ShouldBeFalse)
			So(res.Selection.PlayerID, ShouldEqual, "p2")
			So(res.State.OnClockTeamID, ShouldEqual, "B")
			So(*res.State.DeadlineAt, ShouldEqual, t0.Add(121*time.Second))

			evs, _ := fx.store.Events(ctx, "d1")
			So(evs[len(evs)-1].Type, ShouldEqual, models.DraftEventAutopick)
			So(evs[len(evs)-1].TeamID, ShouldEqual, "A")

			picks, _ := fx.store.RecentPicks(ctx, "d1", 1)
			So(picks[0].Autopick, ShouldBeTrue)
		})

		Convey("The due-draft query lists only elapsed deadlines", func() {
			ids, err := fx.app.FetchDraftsDueForPick(ctx, 10, nil)
			So(err, ShouldBeNil)
			So(ids, ShouldBeEmpty)

			next, err := fx.app.FetchNextDeadline(ctx)
			So(err, ShouldBeNil)
			So(next.DraftID, ShouldEqual, "d1")

			fx.clock.Advance(61 * time.Second)
			ids, err = fx.app.FetchDraftsDueForPick(ctx, 10, nil)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []string{"d1"})

			ids, err = fx.app.FetchDraftsDueForPick(ctx, 10, []string{"d1"})
			So(err, ShouldBeNil)
			So(ids, ShouldBeEmpty)
		})
	})

	Convey("Given a paused draft", t, func() {
		fx := newFixture(t, 1)
		_, err := fx.app.runner.Run(ctx, "d1", "pause", func(_ context.Context, cur *models.DraftState, now time.Time) (*state.Outcome, error) {
			tr, err := machine.Pause(cur, "", now)
			if err != nil {
				return nil, err
			}
			return &state.Outcome{Transition: tr}, nil
		})
		So(err, ShouldBeNil)
		fx.clock.Advance(time.Hour)

		_, err = fx.app.AutoPick(ctx, "d1")
		So(errors.Is(err, drafterrors.ErrInvalidState), ShouldBeTrue)
	})
}
