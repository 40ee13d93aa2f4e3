package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Server exposes a Metrics snapshot over HTTP on its own listener, kept
// separate from the peer-facing API so operators can firewall it
// independently.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server bound to addr serving GET /metrics.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", Handler(m))
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the snapshot handler, usable standalone in tests.
func Handler(m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(m.Snapshot())
	}
}

// ListenAndServe blocks serving the metrics endpoint until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
