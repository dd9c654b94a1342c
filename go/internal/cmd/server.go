package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
)

func setupServer(port string, services *Services) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: newHandler(services),
	}
}

// newHandler builds the full API: connect RPC, REST, health and metrics,
// behind CORS and h2c.
func newHandler(services *Services) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Retry-After", "Draft-Error-Kind"},
	})

	registerServices(mux, services)
	setupHealthCheck(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// HTTP/2 without TLS so connect clients can use the gRPC protocol
	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func registerServices(mux *http.ServeMux, services *Services) {
	// Register draft service
	draftServicePath, draftServiceHandler := draftrpc.NewDraftServiceHandler(services.Draft)
	mux.Handle(draftServicePath, draftServiceHandler)

	// Register pick service
	pickServicePath, pickServiceHandler := draftrpc.NewPickServiceHandler(services.Pick)
	mux.Handle(pickServicePath, pickServiceHandler)

	// Register REST routes
	services.REST.RegisterRoutes(mux)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
