package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/livedraft/go/internal/config"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/orchestrator"
	"github.com/mcdev12/livedraft/go/internal/metrics"
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
		Msg("starting draft orchestrator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	pickClient := draftrpc.NewPickServiceClient(httpClient, cfg.API.URL)

	orch := orchestrator.NewOrchestrator(pickClient, orchestrator.Config{
		Workers:    cfg.Orchestrator.Workers,
		BatchSize:  cfg.Orchestrator.BatchSize,
		IdlePoll:   cfg.Orchestrator.IdlePoll,
		Settle:     time.Second,
		MaxBackoff: cfg.Orchestrator.MaxBackoff,
	}, clockwork.NewRealClock(), metrics.NewPrometheus())

	go func() {
		if err := orch.RunScheduler(ctx); err != nil {
			log.Error().Err(err).Msg("orchestrator scheduler failed")
			stop()
		}
	}()

	// The bus only shortens waits; the scheduler works without it.
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("livedraft-orchestrator"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable; scheduler runs on polling only")
	} else {
		defer nc.Close()
		startConsumer(ctx, nc, cfg, orch)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}
	log.Info().Msg("draft orchestrator shutdown complete")
}

func startConsumer(ctx context.Context, nc *nats.Conn, cfg *config.Config, orch *orchestrator.Orchestrator) {
	js, err := jetstream.New(nc)
	if err != nil {
		log.Warn().Err(err).Msg("create JetStream context")
		return
	}
	ec, err := orchestrator.NewEventConsumer(ctx, js, cfg.NATS.Stream, cfg.NATS.SubjectPrefix+".>", orch)
	if err != nil {
		log.Warn().Err(err).Msg("event consumer unavailable; scheduler runs on polling only")
		return
	}
	go func() {
		if err := ec.Start(ctx); err != nil {
			log.Error().Err(err).Msg("NATS event consumer failed")
		}
	}()
}
