package orchestrator

import (
	"context"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/rs/zerolog/log"
)

const maxFetchBackoff = 5

// RunScheduler loops until ctx is done, sleeping until the next deadline and
// dispatching the drafts that are due.
func (o *Orchestrator) RunScheduler(ctx context.Context) error {
	log.Info().Str("instance", o.instanceID).Int("workers", o.cfg.Workers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	timer := o.clock.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	retryCount := 0
	for {
		select {
		case <-o.wakeCh:
		default:
		}

		ndResp, err := o.client.FetchNextDeadline(ctx, connect.NewRequest(&draftrpc.FetchNextDeadlineRequest{}))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			retryCount = min(retryCount+1, maxFetchBackoff)
			log.Error().
				Err(draftrpc.FromConnect(err)).
				Int("retry", retryCount).
				Str("instance", o.instanceID).
				Msg("error fetching next deadline, retrying")
			if !o.sleep(ctx, timer, time.Second*time.Duration(retryCount)) {
				return nil
			}
			continue
		}
		retryCount = 0

		nd := ndResp.Msg
		if nd.Deadline == nil {
			log.Debug().Str("instance", o.instanceID).Dur("idle_poll", o.cfg.IdlePoll).Msg("no drafts on the clock")
			if !o.sleep(ctx, timer, o.cfg.IdlePoll) {
				log.Info().Str("instance", o.instanceID).Msg("shutdown during idle")
				return nil
			}
			continue
		}

		// the deadline itself is still a legal pick time, so wait past it
		if wait := nd.Deadline.Sub(o.clock.Now()); wait >= 0 {
			log.Debug().
				Str("draft_id", nd.DraftID).
				Time("deadline", *nd.Deadline).
				Dur("wait", wait).
				Str("instance", o.instanceID).
				Msg("waiting for next deadline")
			if !o.sleep(ctx, timer, wait+time.Millisecond) {
				log.Info().Str("instance", o.instanceID).Msg("shutdown during wait")
				return nil
			}
			continue
		}

		// drafts whose autopick keeps failing must not crowd out the rest
		dueResp, err := o.client.FetchDraftsDueForPick(ctx, connect.NewRequest(&draftrpc.FetchDraftsDueForPickRequest{
			Limit:   o.cfg.BatchSize,
			Exclude: o.backingOff(o.clock.Now()),
		}))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(draftrpc.FromConnect(err)).Str("instance", o.instanceID).Msg("error fetching due drafts")
			if !o.sleep(ctx, timer, time.Second) {
				return nil
			}
			continue
		}

		due := dueResp.Msg.DraftIDs
		o.metrics.RecordDueDrafts(len(due))
		if len(due) > 0 {
			log.Info().
				Int("count_due", len(due)).
				Int("batch_size", o.cfg.BatchSize).
				Str("instance", o.instanceID).
				Msg("processing due drafts")
		}
		if !o.dispatch(ctx, due) {
			log.Info().Str("instance", o.instanceID).Msg("shutdown while queueing timeouts")
			return nil
		}

		if !o.sleep(ctx, timer, o.cfg.Settle) {
			return nil
		}
	}
}

// dispatch queues every due draft that is not already in flight. It returns
// false if ctx ended first.
func (o *Orchestrator) dispatch(ctx context.Context, due []string) bool {
	for _, draftID := range due {
		if !o.claim(draftID) {
			log.Debug().Str("draft_id", draftID).Str("instance", o.instanceID).Msg("skipping draft already in flight")
			continue
		}
		select {
		case <-ctx.Done():
			o.release(draftID)
			return false
		case o.workCh <- draftID:
			log.Debug().Str("draft_id", draftID).Str("instance", o.instanceID).Msg("queued timeout for worker")
		}
	}
	return true
}

// sleep waits for d, a wake signal or ctx. It returns false only when ctx ended.
func (o *Orchestrator) sleep(ctx context.Context, timer clockwork.Timer, d time.Duration) bool {
	timer.Reset(d)
	select {
	case <-timer.Chan():
		return true
	case <-o.wakeCh:
		if !timer.Stop() {
			select {
			case <-timer.Chan():
			default:
			}
		}
		log.Debug().Str("instance", o.instanceID).Msg("woken up early")
		return true
	case <-ctx.Done():
		return false
	}
}
