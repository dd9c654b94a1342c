package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	consumerName          = "draft-orchestrator"
	consumerMaxDeliver    = 5
	consumerAckWait       = 30 * time.Second
	consumerMaxAckPending = 100
)

// Waker is what the consumer nudges when the deadline landscape changes.
type Waker interface {
	Wake()
}

// EventConsumer listens to the draft event stream so the scheduler re-reads
// the next deadline as soon as a draft starts, resumes or gets a pick,
// instead of sleeping out a stale timer.
type EventConsumer struct {
	consumer jetstream.Consumer
	waker    Waker
}

// NewEventConsumer binds a durable consumer on stream. Only new events
// matter; the scheduler recovers everything else from the deadline query.
func NewEventConsumer(ctx context.Context, js jetstream.JetStream, stream, subjectFilter string, waker Waker) (*EventConsumer, error) {
	s, err := js.Stream(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumer, err := s.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		Description:   "Wakes the autopick scheduler on draft events",
		FilterSubject: subjectFilter,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    consumerMaxDeliver,
		AckWait:       consumerAckWait,
		MaxAckPending: consumerMaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	log.Info().Str("consumer", consumerName).Str("filter", subjectFilter).Msg("JetStream consumer ready")

	return &EventConsumer{consumer: consumer, waker: waker}, nil
}

// Start consumes until ctx is done.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.HandleMessage(msg.Data()); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
			// a malformed envelope will not get better on redelivery
			if termErr := msg.Term(); termErr != nil {
				log.Error().Err(termErr).Msg("failed to terminate message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	log.Info().Msg("orchestrator event consumer shutting down")
	return nil
}

// HandleMessage decodes an event envelope and wakes the scheduler for any
// draft lifecycle event.
func (ec *EventConsumer) HandleMessage(data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("draft_id", env.DraftID).
		Str("event_type", env.EventType).
		Msg("processing orchestrator event")

	switch env.EventType {
	// pauses and completions matter too: that draft may have held the
	// earliest deadline
	case events.EventTypeDraftStarted, events.EventTypeDraftResumed, events.EventTypePickMade,
		events.EventTypeDraftPaused, events.EventTypeDraftCompleted:
		ec.waker.Wake()
	default:
		log.Warn().Str("event_type", env.EventType).Msg("unknown event type - ignoring")
	}
	return nil
}
