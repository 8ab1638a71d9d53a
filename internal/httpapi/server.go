package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/pulsedeck/scanner/internal/scan"
)

// Server is the small ops surface: health, Prometheus metrics, and the most
// recent scan summary. It is not the product UI, which lives elsewhere.
type Server struct {
	mu      sync.RWMutex
	latest  *scan.Summary
	httpSrv *http.Server
}

// NewServer builds the ops server on the given listen address.
func NewServer(addr string) *Server {
	s := &Server{}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/scan/latest", s.handleLatest).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// RecordSummary publishes a finished scan for /scan/latest.
func (s *Server) RecordSummary(summary *scan.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = summary
}

// ListenAndServe blocks serving the ops endpoints.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("ops server listening")
	return s.httpSrv.ListenAndServe()
}

// Close shuts the listener down.
func (s *Server) Close() error {
	return s.httpSrv.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleLatest(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := json.NewEncoder(w).Encode(latest); err != nil {
		log.Error().Err(err).Msg("encode scan summary")
	}
}
