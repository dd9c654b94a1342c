package orchestrator

import (
	"context"
	"errors"
	"sync"

	"connectrpc.com/connect"
	"github.com/mcdev12/livedraft/go/internal/draft/drafterrors"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/rs/zerolog/log"
)

// worker processes draft timeouts from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case draftID := <-o.workCh:
			picked, err := o.handleTimeout(ctx, draftID)
			if err != nil {
				retryIn := o.backOff(draftID)
				log.Error().
					Err(err).
					Str("draft_id", draftID).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Dur("retry_in", retryIn).
					Msg("worker timeout handling failed")
			} else {
				o.recovered(draftID)
			}
			o.release(draftID)
			// a pick moves the deadline; failures wait for the settle timer
			if picked {
				o.Wake()
			}
		}
	}
}

// handleTimeout asks the pick service to autopick for draftID. Races with a
// manual pick or another orchestrator are expected and not reported.
func (o *Orchestrator) handleTimeout(ctx context.Context, draftID string) (bool, error) {
	resp, err := o.client.AutoPick(ctx, connect.NewRequest(&draftrpc.AutoPickRequest{DraftID: draftID}))
	if err != nil {
		err = draftrpc.FromConnect(err)
		if errors.Is(err, drafterrors.ErrLockContention) || errors.Is(err, drafterrors.ErrVersionConflict) {
			log.Debug().Str("draft_id", draftID).Err(err).Msg("autopick lost a race; will re-check")
			return false, nil
		}
		return false, err
	}

	if resp.Msg.Skipped {
		log.Debug().Str("draft_id", draftID).Msg("autopick skipped; draft no longer due")
		return false, nil
	}
	ev := log.Info().
		Str("draft_id", draftID).
		Str("player_id", resp.Msg.PlayerID).
		Str("tier", resp.Msg.Tier)
	if s := resp.Msg.DraftState; s != nil {
		ev = ev.Int64("version", s.Version).Str("status", string(s.Status))
	}
	ev.Msg("autopick made")
	return true, nil
}
