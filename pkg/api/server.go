// Package api exposes the forest over HTTP: batch, query, sync, optimize,
// and explain, behind chi routing, CORS, and Prometheus instrumentation —
// the same stack the teacher's REST API uses over its KV store.
package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// StartServer starts the HTTP server with all routes configured against an
// already-open forest.
func StartServer(f ForestHandle, config ServerConfig) error {
	metrics := NewMetrics()
	server := NewServer(f, nil, config, metrics)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	r := chi.NewRouter()

	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping).
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(config.APIKey)))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		// Forest operations (spec §4.J, §4.K, §4.I).
		r.Post("/batch", metrics.InstrumentHandler("POST", "/api/v1/batch", server.handleBatch))
		r.Post("/query", metrics.InstrumentHandler("POST", "/api/v1/query", server.handleQuery))
		r.Post("/sync", metrics.InstrumentHandler("POST", "/api/v1/sync", server.handleSync))
		r.Post("/optimize", metrics.InstrumentHandler("POST", "/api/v1/optimize", server.handleOptimize))

		// Diagnostics (spec §6 debug surface).
		r.Get("/explain", metrics.InstrumentHandler("GET", "/api/v1/explain", server.handleExplain))
	})

	go server.startMetricsUpdater()

	addr := fmt.Sprintf(":%d", config.Port)
	fmt.Printf("Starting kdforest REST API server on %s\n", addr)
	fmt.Printf("Metrics available at: http://localhost:%d/metrics\n", config.Port)
	return http.ListenAndServe(addr, r)
}

// startMetricsUpdater periodically refreshes forest occupancy gauges, the
// same pull-based pattern the teacher's db-size gauge uses.
func (s *Server) startMetricsUpdater() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		explain := s.forest.Explain()
		s.metrics.UpdateForestStats(explain.Global.LiveRoots, explain.Global.PendingDeletes)
	}
}
