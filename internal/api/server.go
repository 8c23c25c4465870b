// Package api exposes the absence-risk service over HTTP with JSON bodies.
// It maps the model lifecycle error taxonomy onto status codes and keeps
// CORS fully open; the service is an internal tool with no auth layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"absence-ml/internal/ml"
	"absence-ml/internal/storage"
)

const serviceName = "Absence Analytics ML Service"

// Server serves the prediction API. ledger may be nil when no data path is
// configured; the /models endpoint then reports history as unavailable.
type Server struct {
	svc    *ml.Service
	ledger *storage.Ledger
	server *http.Server
}

func NewServer(svc *ml.Service, ledger *storage.Ledger, port int) *Server {
	s := &Server{svc: svc, ledger: ledger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/driver-analysis", s.handleDriverAnalysis)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/batch-predict", s.handleBatchPredict)
	mux.HandleFunc("/models", s.handleModels)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // lazy training happens inside requests
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the fully wired handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsMiddleware leaves the API fully open, matching the service's
// internal-tool deployment.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// writeError maps the lifecycle error taxonomy to status codes. Anything
// outside the taxonomy surfaces its message with a 500; acceptable for an
// internal tool, not for public exposure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ml.ErrNoData), errors.Is(err, ml.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ml.ErrInsufficientData):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Detail: fmt.Sprintf(format, args...)})
}
