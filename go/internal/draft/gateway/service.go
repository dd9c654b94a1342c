package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/livedraft/go/internal/draft/draft"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Service is the draft gateway: REST routes, board websockets and the bus
// consumer that feeds them.
type Service struct {
	config            Config
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	restHandler       *Handler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

// NewService creates a new draft gateway service
func NewService(config Config, drafts draft.DraftApp, picks Picks) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		config:            config,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, drafts),
		restHandler:       NewHandler(drafts, picks),
	}
}

// AttachBus subscribes the gateway to the draft event stream. Without it the
// websocket only ever sends the initial snapshot.
func (s *Service) AttachBus(ctx context.Context, js jetstream.JetStream) error {
	ec, err := NewEventConsumer(ctx, js, s.config.JetStreamConfig, s.connectionManager)
	if err != nil {
		return fmt.Errorf("failed to create event consumer: %w", err)
	}
	s.eventConsumer = ec
	return nil
}

// Start runs the connection manager and the bus consumer until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("bus", s.eventConsumer != nil).Msg("starting draft gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// RegisterRoutes registers the REST and websocket routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.restHandler.RegisterRoutes(mux)
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("draft gateway routes registered")
}

// Stats returns statistics about the gateway's connections
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}

// BroadcastEvent pushes event to the clients of draftID without the bus
func (s *Service) BroadcastEvent(draftID string, event *DraftEvent) {
	s.connectionManager.Broadcast(draftID, event)
}
