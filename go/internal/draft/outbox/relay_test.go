package outbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	. "github.com/smartystreets/goconvey/convey"
)

type memoryOutbox struct {
	mu        sync.Mutex
	events    []models.DraftEvent
	published map[uuid.UUID]bool
}

func newMemoryOutbox(evs ...models.DraftEvent) *memoryOutbox {
	return &memoryOutbox{events: evs, published: make(map[uuid.UUID]bool)}
}

func (m *memoryOutbox) ProcessBatch(ctx context.Context, limit int32, exclude []string, fn BatchFunc) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	var batch []models.DraftEvent
	for _, ev := range m.events {
		if !m.published[ev.ID] && !skip[ev.DraftID] && len(batch) < int(limit) {
			batch = append(batch, ev)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}
	delivered, err := fn(ctx, batch)
	if err != nil {
		return len(batch), err
	}
	for _, id := range delivered {
		m.published[id] = true
	}
	return len(batch), nil
}

func (m *memoryOutbox) CountPending(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.events) - len(m.published)), nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	sent     []models.DraftEvent
	failures map[uuid.UUID]int // remaining failures per event
}

func (p *recordingPublisher) Publish(_ context.Context, ev models.DraftEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures[ev.ID] > 0 {
		p.failures[ev.ID]--
		return errors.New("nats: timeout")
	}
	p.sent = append(p.sent, ev)
	return nil
}

func (p *recordingPublisher) seqs(draftID string) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []int64
	for _, ev := range p.sent {
		if ev.DraftID == draftID {
			out = append(out, ev.Seq)
		}
	}
	return out
}

func event(draftID string, seq int64, typ models.DraftEventType) models.DraftEvent {
	return models.DraftEvent{
		ID:        uuid.New(),
		DraftID:   draftID,
		Seq:       seq,
		Type:      typ,
		Timestamp: time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC),
	}
}

func testConfig() Config {
	return Config{PollInterval: time.Hour, BatchSize: 10, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestRelay(t *testing.T) {
	Convey("Given committed events for two drafts", t, func() {
		a1 := event("A", 1, models.DraftEventStart)
		a2 := event("A", 2, models.DraftEventPick)
		a3 := event("A", 3, models.DraftEventPick)
		b1 := event("B", 1, models.DraftEventStart)
		repo := newMemoryOutbox(a1, a2, b1, a3)
		pub := &recordingPublisher{failures: map[uuid.UUID]int{}}
		rec := metrics.NewRecorder()
		relay := NewRelay(repo, pub, testConfig(), rec)
		ctx := context.Background()

		Convey("A batch publishes everything in order and marks it", func() {
			res, err := relay.ProcessOnce(ctx)
			So(err, ShouldBeNil)
			So(res.Fetched, ShouldEqual, 4)
			So(res.Delivered, ShouldEqual, 4)
			So(res.Blocked, ShouldBeEmpty)
			So(pub.seqs("A"), ShouldResemble, []int64{1, 2, 3})
			So(pub.seqs("B"), ShouldResemble, []int64{1})

			pending, _ := repo.CountPending(ctx)
			So(pending, ShouldEqual, 0)
			So(rec.Count("outbox_batches"), ShouldEqual, 1)
			So(rec.Count("outbox_events"), ShouldEqual, 4)

			published, last := relay.Stats()
			So(published, ShouldEqual, 4)
			So(last.IsZero(), ShouldBeFalse)
		})

		Convey("A transient failure is retried", func() {
			pub.failures[a2.ID] = 2

			_, err := relay.ProcessOnce(ctx)
			So(err, ShouldBeNil)
			So(pub.seqs("A"), ShouldResemble, []int64{1, 2, 3})
			So(rec.Count("attempt:PickMade:1:failure"), ShouldEqual, 1)
			So(rec.Count("attempt:PickMade:3:success"), ShouldEqual, 1)
		})

		Convey("A persistent failure holds back later events of that draft only", func() {
			pub.failures[a2.ID] = 3

			res, err := relay.ProcessOnce(ctx)
			So(err, ShouldBeNil)
			So(res.Delivered, ShouldEqual, 2)
			So(res.Blocked, ShouldResemble, []string{"A"})
			So(pub.seqs("A"), ShouldResemble, []int64{1})
			So(pub.seqs("B"), ShouldResemble, []int64{1})
			So(rec.Count("published:PickMade:failure"), ShouldEqual, 1)

			pending, _ := repo.CountPending(ctx)
			So(pending, ShouldEqual, 2)

			Convey("and the next batch resumes from the failed event", func() {
				_, err := relay.ProcessOnce(ctx)
				So(err, ShouldBeNil)
				So(pub.seqs("A"), ShouldResemble, []int64{1, 2, 3})
			})
		})

		Convey("Drain keeps going while batches are full", func() {
			cfg := testConfig()
			cfg.BatchSize = 1
			relay := NewRelay(repo, pub, cfg, rec)

			relay.Drain(ctx)
			So(len(pub.sent), ShouldEqual, 4)
			So(rec.Count("outbox_batches"), ShouldEqual, 4)
		})

		Convey("Drain skips a draft whose head event keeps failing", func() {
			cfg := testConfig()
			cfg.BatchSize = 2
			cfg.MaxRetries = 0
			pub.failures[a1.ID] = 1000
			relay := NewRelay(repo, pub, cfg, rec)

			done := make(chan struct{})
			go func() {
				relay.Drain(ctx)
				close(done)
			}()
			So(eventually(func() bool {
				select {
				case <-done:
					return true
				default:
					return false
				}
			}), ShouldBeTrue)
			So(pub.seqs("A"), ShouldBeEmpty)
			So(pub.seqs("B"), ShouldResemble, []int64{1})

			pending, _ := repo.CountPending(ctx)
			So(pending, ShouldEqual, 3)
		})

		Convey("Drain gives up when the bus rejects everything", func() {
			cfg := testConfig()
			cfg.BatchSize = 1
			cfg.MaxRetries = 0
			for _, ev := range []models.DraftEvent{a1, a2, a3, b1} {
				pub.failures[ev.ID] = 1000
			}
			relay := NewRelay(repo, pub, cfg, rec)

			relay.Drain(ctx)
			So(rec.Count("outbox_batches"), ShouldEqual, 2)
			So(pub.sent, ShouldBeEmpty)
		})

		Convey("Stop returns while the bus is failing", func() {
			cfg := testConfig()
			cfg.BatchSize = 2
			cfg.MaxRetries = 5
			cfg.RetryDelay = 50 * time.Millisecond
			cfg.PollInterval = time.Millisecond
			for _, ev := range []models.DraftEvent{a1, a2, a3, b1} {
				pub.failures[ev.ID] = 1000
			}
			relay := NewRelay(repo, pub, cfg, rec)
			So(relay.Start(ctx, nil), ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			stopped := make(chan error, 1)
			go func() { stopped <- relay.Stop() }()
			var err error
			So(eventually(func() bool {
				select {
				case err = <-stopped:
					return true
				default:
					return false
				}
			}), ShouldBeTrue)
			So(err, ShouldBeNil)
		})

		Convey("A wake signal triggers a run", func() {
			wake := make(chan struct{}, 1)
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			So(relay.Start(runCtx, wake), ShouldBeNil)
			So(relay.Start(runCtx, wake), ShouldNotBeNil)
			So(relay.Running(), ShouldBeTrue)

			repo.mu.Lock()
			late := event("B", 2, models.DraftEventPause)
			repo.events = append(repo.events, late)
			repo.mu.Unlock()
			wake <- struct{}{}

			So(eventually(func() bool { return len(pub.seqs("B")) == 2 }), ShouldBeTrue)
			So(relay.Stop(), ShouldBeNil)
			So(relay.Running(), ShouldBeFalse)
			So(relay.Stop(), ShouldNotBeNil)
		})
	})
}

func TestHealthChecker(t *testing.T) {
	Convey("Given a relay and its dependencies", t, func() {
		repo := newMemoryOutbox(event("A", 1, models.DraftEventStart))
		relay := NewRelay(repo, &recordingPublisher{}, testConfig(), nil)

		Convey("A stopped relay is unhealthy", func() {
			checker := NewHealthChecker(relay, repo, okPinger{}, nil, time.Minute)
			status := checker.Check(context.Background())
			So(status.Healthy, ShouldBeFalse)
			So(status.RelayActive, ShouldBeFalse)
			So(status.PendingEvents, ShouldEqual, 1)

			rr := httptest.NewRecorder()
			checker.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
			So(rr.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("A running relay with a reachable database is healthy", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			So(relay.Start(ctx, nil), ShouldBeNil)
			defer relay.Stop()

			checker := NewHealthChecker(relay, repo, okPinger{}, connected(true), time.Minute)
			So(eventually(func() bool { return checker.Check(ctx).PendingEvents == 0 }), ShouldBeTrue)
			status := checker.Check(ctx)
			So(status.Healthy, ShouldBeTrue)
			So(status.BusConnected, ShouldBeTrue)

			Convey("until the bus drops", func() {
				checker := NewHealthChecker(relay, repo, okPinger{}, connected(false), time.Minute)
				So(checker.Check(ctx).Healthy, ShouldBeFalse)
			})
		})
	})
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type connected bool

func (c connected) IsConnected() bool { return bool(c) }

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
