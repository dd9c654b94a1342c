// Package orchestrator fires autopicks when a draft's pick deadline passes.
// It sleeps until the earliest deadline of any drafting draft, then hands
// the due drafts to a worker pool that calls AutoPick over RPC.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/metrics"
)

// PickClient is the slice of the pick service the orchestrator calls.
// *draftrpc.PickServiceClient satisfies it.
type PickClient interface {
	AutoPick(context.Context, *connect.Request[draftrpc.AutoPickRequest]) (*connect.Response[draftrpc.AutoPickResponse], error)
	FetchNextDeadline(context.Context, *connect.Request[draftrpc.FetchNextDeadlineRequest]) (*connect.Response[draftrpc.FetchNextDeadlineResponse], error)
	FetchDraftsDueForPick(context.Context, *connect.Request[draftrpc.FetchDraftsDueForPickRequest]) (*connect.Response[draftrpc.FetchDraftsDueForPickResponse], error)
}

type Config struct {
	Workers   int
	BatchSize int           // how many due drafts to fetch at once
	IdlePoll  time.Duration // sleep when no draft is on the clock
	// Settle bounds the wait after a dispatch before due drafts are fetched
	// again; workers wake the loop earlier when they finish.
	Settle time.Duration
	// MaxBackoff caps the wait before a draft whose autopick keeps failing
	// is tried again.
	MaxBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:    10,
		BatchSize:  100,
		IdlePoll:   5 * time.Second,
		Settle:     time.Second,
		MaxBackoff: time.Minute,
	}
}

type Orchestrator struct {
	client     PickClient
	cfg        Config
	clock      clockwork.Clock
	metrics    metrics.Collector
	wakeCh     chan struct{}
	instanceID string // unique ID for this scheduler instance

	workCh chan string

	// in-flight drafts are not queued again until their worker finishes
	inFlight   map[string]bool
	backoff    map[string]retryState
	inFlightMu sync.Mutex
}

type retryState struct {
	delay time.Duration
	until time.Time
}

func NewOrchestrator(client PickClient, cfg Config, clock clockwork.Clock, m metrics.Collector) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if m == nil {
		m = metrics.NoOp{}
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Minute
	}
	return &Orchestrator{
		client:     client,
		cfg:        cfg,
		clock:      clock,
		metrics:    m,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],
		workCh:     make(chan string, cfg.Workers*2),
		inFlight:   make(map[string]bool),
		backoff:    make(map[string]retryState),
	}
}

// Wake makes the scheduler re-read the next deadline now. Safe to call
// from any goroutine; repeated calls collapse.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// InFlight reports how many drafts are queued or being handled.
func (o *Orchestrator) InFlight() int {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	return len(o.inFlight)
}

// claim marks draftID in flight, returning false if it already was.
func (o *Orchestrator) claim(draftID string) bool {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	if o.inFlight[draftID] {
		return false
	}
	o.inFlight[draftID] = true
	return true
}

func (o *Orchestrator) release(draftID string) {
	o.inFlightMu.Lock()
	delete(o.inFlight, draftID)
	o.inFlightMu.Unlock()
}

// backOff holds draftID out of the due list for a while, doubling the wait
// on every consecutive failure up to MaxBackoff.
func (o *Orchestrator) backOff(draftID string) time.Duration {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	r := o.backoff[draftID]
	switch {
	case r.delay == 0 && o.cfg.Settle > 0:
		r.delay = o.cfg.Settle
	case r.delay == 0:
		r.delay = time.Second
	default:
		r.delay *= 2
	}
	r.delay = min(r.delay, o.cfg.MaxBackoff)
	r.until = o.clock.Now().Add(r.delay)
	o.backoff[draftID] = r
	return r.delay
}

func (o *Orchestrator) recovered(draftID string) {
	o.inFlightMu.Lock()
	delete(o.backoff, draftID)
	o.inFlightMu.Unlock()
}

// backingOff lists the drafts whose backoff has not yet expired. Entries
// that expired long ago belong to drafts that stopped being due and are
// dropped.
func (o *Orchestrator) backingOff(now time.Time) []string {
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	var ids []string
	for id, r := range o.backoff {
		if now.Before(r.until) {
			ids = append(ids, id)
			continue
		}
		if now.After(r.until.Add(o.cfg.MaxBackoff)) {
			delete(o.backoff, id)
		}
	}
	return ids
}
