package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/livedraft/go/internal/config"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.SetupLogging()

	log.Info().
		Str("draft_service_url", cfg.API.URL).
		Str("nats_url", cfg.NATS.URL).
		Str("port", cfg.Gateway.Port).
		Msg("starting draft gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	drafts := gateway.NewRemoteDrafts(draftrpc.NewDraftServiceClient(httpClient, cfg.API.URL))
	picks := gateway.NewRemotePicks(draftrpc.NewPickServiceClient(httpClient, cfg.API.URL))

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.StreamName = cfg.NATS.Stream
	gatewayConfig.JetStreamConfig.SubjectFilter = cfg.NATS.SubjectPrefix + ".>"
	gatewayService := gateway.NewService(gatewayConfig, drafts, picks)

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("livedraft-gateway"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable; boards get snapshots only")
	} else {
		defer nc.Close()
		js, err := jetstream.New(nc)
		if err != nil {
			log.Fatal().Err(err).Msg("create JetStream context")
		}
		if err := gatewayService.AttachBus(ctx, js); err != nil {
			log.Warn().Err(err).Msg("event stream unavailable; boards get snapshots only")
		}
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        ":" + cfg.Gateway.Port,
		Handler:     gateway.CORSMiddleware(mux, cfg.Gateway.AllowedOrigins...),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	log.Info().Msg("draft gateway shutdown complete")
}
