package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 5 * time.Second

// HTTPServer serves health and metrics.
type HTTPServer struct {
	Server *http.Server
}

// NewRouter wires /health, /status and /metrics.
func NewRouter(reporter *HealthReporter, registry *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/health", HealthHandler(reporter)).Methods(http.MethodGet)
	r.Handle("/status", StatusHandler(reporter)).Methods(http.MethodGet)
	r.Handle("/metrics", MetricsHandler(registry)).Methods(http.MethodGet)
	return r
}

// HealthHandler reports the monitor snapshot; 503 once the monitor is failing.
func HealthHandler(reporter *HealthReporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := reporter.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if snap.Serving {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})
}

// StatusHandler serves the last completed cycle; 404 until one completes.
func StatusHandler(reporter *HealthReporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status, ok := reporter.Latest()
		if !ok {
			http.Error(w, "no completed cycle yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// NewHTTPServer wraps handler with an access log written to accessLog.
func NewHTTPServer(addr string, handler http.Handler, accessLog io.Writer) *HTTPServer {
	if accessLog != nil {
		handler = handlers.LoggingHandler(accessLog, handler)
	}
	return &HTTPServer{Server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
}

// ListenAndServe blocks until the server stops; a clean shutdown returns nil.
func (s *HTTPServer) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
