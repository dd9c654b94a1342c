package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/autopick"
	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/lock"
	"github.com/mcdev12/livedraft/go/internal/draft/pick"
	"github.com/mcdev12/livedraft/go/internal/draft/state"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2026, 9, 6, 18, 0, 0, 0, time.UTC)

type harness struct {
	drafts *draft.App
	picks  *pick.Service
	clock  *clockwork.FakeClock
	rec    *metrics.Recorder
}

func newHarness() *harness {
	rec := metrics.NewRecorder()
	store := state.NewStore(state.NewMemoryRepository(), nil, rec)
	clock := clockwork.NewFakeClockAt(t0)
	runner := state.NewRunner(store, lock.NewLocal(), clock, rec)
	return &harness{
		drafts: draft.NewApp(runner),
		picks:  pick.NewService(pick.NewApp(runner, autopick.NewRanked(nil), nil, rec)),
		clock:  clock,
		rec:    rec,
	}
}

func (h *harness) create(ctx context.Context, id string) {
	_, err := h.drafts.CreateDraft(ctx, models.DraftConfig{
		DraftID:         id,
		LeagueID:        "l1",
		DraftOrder:      []string{"A", "B"},
		Rounds:          1,
		PickTimeSeconds: 30,
		AvailablePlayerPool: []models.RankedPlayer{
			{PlayerID: "p1"}, {PlayerID: "p2"}, {PlayerID: "p3"},
		},
	})
	So(err, ShouldBeNil)
	_, err = h.drafts.StartDraft(ctx, id, "commissioner")
	So(err, ShouldBeNil)
}

func (h *harness) status(ctx context.Context, id string) models.DraftStatus {
	view, err := h.drafts.GetDraftState(ctx, id)
	if err != nil {
		return ""
	}
	return view.DraftState.Status
}

func testConfig() Config {
	return Config{Workers: 2, BatchSize: 10, IdlePoll: 10 * time.Second, Settle: time.Second, MaxBackoff: 4 * time.Second}
}

// advanceUntil moves the fake clock a second at a time until cond holds.
func advanceUntil(clock *clockwork.FakeClock, cond func() bool) bool {
	for i := 0; i < 500; i++ {
		if cond() {
			return true
		}
		clock.Advance(time.Second)
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestScheduler(t *testing.T) {
	Convey("Given a running scheduler over the pick service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h := newHarness()
		orch := NewOrchestrator(h.picks, testConfig(), h.clock, h.rec)

		done := make(chan error, 1)
		go func() { done <- orch.RunScheduler(ctx) }()

		Convey("Expired picks are autopicked until the draft completes", func() {
			h.create(ctx, "d1")

			ok := advanceUntil(h.clock, func() bool { return h.status(ctx, "d1") == models.DraftStatusComplete })
			So(ok, ShouldBeTrue)
			So(h.rec.Count("autopick:pool_order"), ShouldEqual, 2)

			view, err := h.drafts.GetDraftState(ctx, "d1")
			So(err, ShouldBeNil)
			So(view.DraftState.PickedPlayerIDs, ShouldResemble, []string{"p1", "p2"})
		})

		Convey("A paused draft is left alone", func() {
			h.create(ctx, "d1")
			_, err := h.drafts.PauseDraft(ctx, "d1", "commissioner")
			So(err, ShouldBeNil)

			for i := 0; i < 120; i++ {
				h.clock.Advance(time.Second)
			}
			time.Sleep(20 * time.Millisecond)
			So(h.status(ctx, "d1"), ShouldEqual, models.DraftStatusPaused)
			So(h.rec.Count("autopick:pool_order"), ShouldEqual, 0)

			Convey("and picked up again after resume", func() {
				_, err := h.drafts.ResumeDraft(ctx, "d1", "commissioner")
				So(err, ShouldBeNil)
				orch.Wake()

				ok := advanceUntil(h.clock, func() bool { return h.status(ctx, "d1") == models.DraftStatusComplete })
				So(ok, ShouldBeTrue)
			})
		})

		Convey("Shutdown stops the loop", func() {
			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				So("scheduler still running", ShouldBeEmpty)
			}
		})
	})
}

type flakyClient struct {
	PickClient
	fails atomic.Int32
	calls atomic.Int32
}

func (c *flakyClient) FetchNextDeadline(ctx context.Context, req *connect.Request[draftrpc.FetchNextDeadlineRequest]) (*connect.Response[draftrpc.FetchNextDeadlineResponse], error) {
	c.calls.Add(1)
	if c.fails.Add(-1) >= 0 {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("connection refused"))
	}
	return c.PickClient.FetchNextDeadline(ctx, req)
}

func TestSchedulerRetries(t *testing.T) {
	Convey("An unreachable pick service is retried instead of ending the loop", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h := newHarness()
		client := &flakyClient{PickClient: h.picks}
		client.fails.Store(3)
		orch := NewOrchestrator(client, testConfig(), h.clock, h.rec)
		go orch.RunScheduler(ctx)

		h.create(ctx, "d1")
		ok := advanceUntil(h.clock, func() bool { return h.status(ctx, "d1") == models.DraftStatusComplete })
		So(ok, ShouldBeTrue)
		So(client.calls.Load(), ShouldBeGreaterThan, 3)
	})
}

func TestDispatch(t *testing.T) {
	Convey("A draft already in flight is not queued twice", t, func() {
		h := newHarness()
		orch := NewOrchestrator(h.picks, testConfig(), h.clock, nil)

		So(orch.dispatch(context.Background(), []string{"d1", "d2", "d1"}), ShouldBeTrue)
		So(orch.InFlight(), ShouldEqual, 2)
		So(len(orch.workCh), ShouldEqual, 2)

		orch.release("d1")
		So(orch.InFlight(), ShouldEqual, 1)
	})
}

// stuckClient fails every autopick for one draft the way an exhausted pool does.
type stuckClient struct {
	PickClient
	stuck string
	calls atomic.Int32
}

func (c *stuckClient) AutoPick(ctx context.Context, req *connect.Request[draftrpc.AutoPickRequest]) (*connect.Response[draftrpc.AutoPickResponse], error) {
	if req.Msg.DraftID == c.stuck {
		c.calls.Add(1)
		return nil, draftrpc.ToConnect(drafterrors.New(drafterrors.KindNoPlayersAvailable, "no players left for %s", c.stuck))
	}
	return c.PickClient.AutoPick(ctx, req)
}

func TestBackoff(t *testing.T) {
	Convey("A draft whose autopick keeps failing", t, func() {
		h := newHarness()
		orch := NewOrchestrator(h.picks, testConfig(), h.clock, nil)

		Convey("waits longer after each failure up to the cap", func() {
			So(orch.backOff("d1"), ShouldEqual, time.Second)
			So(orch.backOff("d1"), ShouldEqual, 2*time.Second)
			So(orch.backOff("d1"), ShouldEqual, 4*time.Second)
			So(orch.backOff("d1"), ShouldEqual, 4*time.Second)
			So(orch.backingOff(h.clock.Now()), ShouldResemble, []string{"d1"})

			h.clock.Advance(5 * time.Second)
			So(orch.backingOff(h.clock.Now()), ShouldBeEmpty)

			Convey("and starts over once it succeeds", func() {
				orch.recovered("d1")
				So(orch.backOff("d1"), ShouldEqual, time.Second)
			})
		})

		Convey("does not starve the drafts behind it", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			client := &stuckClient{PickClient: h.picks, stuck: "stuck"}
			cfg := testConfig()
			cfg.BatchSize = 1
			orch := NewOrchestrator(client, cfg, h.clock, h.rec)
			go orch.RunScheduler(ctx)

			h.create(ctx, "stuck")
			h.clock.Advance(time.Second)
			h.create(ctx, "healthy")

			ok := advanceUntil(h.clock, func() bool { return h.status(ctx, "healthy") == models.DraftStatusComplete })
			So(ok, ShouldBeTrue)
			So(h.status(ctx, "stuck"), ShouldEqual, models.DraftStatusDrafting)
			So(client.calls.Load(), ShouldBeGreaterThan, 0)
		})
	})
}

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

func TestEventConsumer(t *testing.T) {
	Convey("Draft events wake the scheduler", t, func() {
		w := &countingWaker{}
		ec := &EventConsumer{waker: w}

		So(ec.HandleMessage([]byte(`{"eventId":"e1","eventType":"PickMade","draftId":"d1","seq":3}`)), ShouldBeNil)
		So(ec.HandleMessage([]byte(`{"eventId":"e2","eventType":"DraftPaused","draftId":"d1","seq":4}`)), ShouldBeNil)
		So(w.n, ShouldEqual, 2)

		Convey("unknown types are ignored", func() {
			So(ec.HandleMessage([]byte(`{"eventType":"PickStarted","draftId":"d1"}`)), ShouldBeNil)
			So(w.n, ShouldEqual, 2)
		})

		Convey("garbage is an error", func() {
			So(ec.HandleMessage([]byte(`not json`)), ShouldNotBeNil)
			So(w.n, ShouldEqual, 2)
		})
	})
}
