package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/metrics"
	"github.com/mcdev12/livedraft/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Relay copies committed draft events to the message bus. It polls on an
// interval and also runs whenever something arrives on the wake channel.
type Relay struct {
	repo      Repository
	publisher EventPublisher
	config    Config
	metrics   metrics.Collector

	mu            sync.Mutex
	running       bool
	stopChan      chan struct{}
	wg            sync.WaitGroup
	published     uint64
	lastPublished time.Time
}

func NewRelay(repo Repository, publisher EventPublisher, cfg Config, m metrics.Collector) *Relay {
	if m == nil {
		m = metrics.NoOp{}
	}
	return &Relay{
		repo:      repo,
		publisher: publisher,
		config:    cfg,
		metrics:   m,
		stopChan:  make(chan struct{}),
	}
}

// Start runs the relay loop in the background. wake may be nil.
func (r *Relay) Start(ctx context.Context, wake <-chan struct{}) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, wake)

	log.Info().
		Dur("poll_interval", r.config.PollInterval).
		Int32("batch_size", r.config.BatchSize).
		Msg("outbox relay started")
	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	log.Info().Msg("outbox relay stopped")
	return nil
}

// Running reports whether the loop is active.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Stats returns the number of events published and when the last one went out.
func (r *Relay) Stats() (uint64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.published, r.lastPublished
}

func (r *Relay) run(ctx context.Context, wake <-chan struct{}) {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.Drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Drain(ctx)
		case <-wake:
			r.Drain(ctx)
		}
	}
}

func (r *Relay) stopping() bool {
	select {
	case <-r.stopChan:
		return true
	default:
		return false
	}
}

// BatchResult describes one relayed batch.
type BatchResult struct {
	Fetched   int
	Delivered int
	// Blocked lists the drafts whose oldest pending event failed to publish.
	Blocked []string
}

// Drain relays batches until the backlog is short, the relay stops, or two
// batches in a row deliver nothing. Drafts that block are left out of the
// following batches so one stuck draft does not hold back the others.
func (r *Relay) Drain(ctx context.Context) {
	var blocked []string
	idle := 0
	for ctx.Err() == nil && !r.stopping() {
		res, err := r.process(ctx, blocked)
		if err != nil {
			log.Error().Err(err).Msg("failed to process outbox batch")
			return
		}
		blocked = append(blocked, res.Blocked...)
		if res.Fetched < int(r.config.BatchSize) {
			return
		}
		if res.Delivered == 0 {
			idle++
			if idle >= 2 || len(res.Blocked) == 0 {
				log.Warn().
					Int("blocked_drafts", len(blocked)).
					Msg("outbox batch made no progress; waiting for next poll")
				return
			}
			continue
		}
		idle = 0
	}
}

// ProcessOnce relays a single batch of the oldest pending events.
func (r *Relay) ProcessOnce(ctx context.Context) (BatchResult, error) {
	return r.process(ctx, nil)
}

func (r *Relay) process(ctx context.Context, exclude []string) (BatchResult, error) {
	start := time.Now()
	var res BatchResult
	n, err := r.repo.ProcessBatch(ctx, r.config.BatchSize, exclude, func(ctx context.Context, batch []models.DraftEvent) ([]uuid.UUID, error) {
		delivered, blocked := r.publishBatch(ctx, batch)
		res.Delivered = len(delivered)
		res.Blocked = blocked
		return delivered, nil
	})
	res.Fetched = n
	if n > 0 {
		r.metrics.RecordOutboxBatch(n, time.Since(start))
	}
	return res, err
}

// publishBatch keeps per-draft order: once an event of a draft fails, the
// rest of that draft's events wait for a later batch.
func (r *Relay) publishBatch(ctx context.Context, batch []models.DraftEvent) ([]uuid.UUID, []string) {
	blocked := make(map[string]bool)
	var blockedOrder []string
	var delivered []uuid.UUID

	for _, ev := range batch {
		if blocked[ev.DraftID] {
			continue
		}
		if err := r.publishWithRetry(ctx, ev); err != nil {
			blocked[ev.DraftID] = true
			blockedOrder = append(blockedOrder, ev.DraftID)
			log.Error().
				Err(err).
				Str("event_id", ev.ID.String()).
				Str("draft_id", ev.DraftID).
				Int64("seq", ev.Seq).
				Msg("failed to publish event")
			continue
		}
		delivered = append(delivered, ev.ID)
	}

	if len(delivered) > 0 {
		r.mu.Lock()
		r.published += uint64(len(delivered))
		r.lastPublished = time.Now()
		r.mu.Unlock()
	}

	log.Debug().
		Int("total", len(batch)).
		Int("delivered", len(delivered)).
		Msg("processed outbox batch")
	return delivered, blockedOrder
}

func (r *Relay) publishWithRetry(ctx context.Context, ev models.DraftEvent) error {
	eventType, err := events.TypeOf(ev.Type)
	if err != nil {
		eventType = string(ev.Type)
	}
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.config.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		err := r.publisher.Publish(ctx, ev)
		r.metrics.RecordPublishAttempt(eventType, attempt+1, err == nil)
		if err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}
		r.metrics.RecordEventPublished(eventType, true, time.Since(start))

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", ev.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	r.metrics.RecordEventPublished(eventType, false, 0)
	return fmt.Errorf("publish failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
