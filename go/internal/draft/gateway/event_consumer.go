package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	StreamName        string
	ConsumerPrefix    string
	SubjectFilter     string
	MaxDeliver        int
	AckWait           time.Duration
	MaxAckPending     int
	InactiveThreshold time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		StreamName:        "DRAFT_EVENTS",
		ConsumerPrefix:    "draft-gateway",
		SubjectFilter:     "draft.events.>",
		MaxDeliver:        5,
		AckWait:           30 * time.Second,
		MaxAckPending:     100,
		InactiveThreshold: time.Minute,
	}
}

// Broadcaster fans a board message out to a draft's clients
type Broadcaster interface {
	Broadcast(draftID string, event *DraftEvent)
}

// EventConsumer consumes events from JetStream and broadcasts to websocket clients
type EventConsumer struct {
	out      Broadcaster
	consumer jetstream.Consumer
	name     string
}

// NewEventConsumer creates a consumer on the draft event stream. Every gateway
// instance needs every event for its own clients, so each one gets its own
// consumer that the server removes once the instance goes away.
func NewEventConsumer(ctx context.Context, js jetstream.JetStream, config JetStreamConsumerConfig, out Broadcaster) (*EventConsumer, error) {
	stream, err := js.Stream(ctx, config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	name := config.ConsumerPrefix + "-" + uuid.NewString()[:8]
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              name,
		Description:       "Draft gateway websocket consumer",
		FilterSubject:     config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        config.MaxDeliver,
		AckWait:           config.AckWait,
		MaxAckPending:     config.MaxAckPending,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
		InactiveThreshold: config.InactiveThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", name).
		Str("stream", config.StreamName).
		Msg("created JetStream consumer")

	return &EventConsumer{out: out, consumer: consumer, name: name}, nil
}

// Start consumes events until ctx is done
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().Str("consumer", ec.name).Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.HandleMessage(msg.Data()); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				// redelivery cannot fix a malformed event
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to terminate message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// HandleMessage decodes a bus envelope and broadcasts it to the draft's clients
func (ec *EventConsumer) HandleMessage(data []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	wsEvent, err := FromEnvelope(envelope)
	if err != nil {
		return fmt.Errorf("convert to websocket event: %w", err)
	}
	ec.out.Broadcast(envelope.DraftID, wsEvent)

	log.Debug().
		Str("event_id", envelope.EventID).
		Str("draft_id", envelope.DraftID).
		Str("event_type", envelope.EventType).
		Int64("seq", envelope.Seq).
		Msg("event broadcasted to websocket clients")
	return nil
}
