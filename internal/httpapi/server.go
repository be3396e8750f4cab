// Package httpapi is the read-only status surface of the orchestrator:
// the current state mirror and the remote tool manifest. It never mutates
// anything.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"hireloop/internal/engine"
	"hireloop/internal/llm"
)

// StateSource provides the mirror snapshot.
type StateSource interface {
	Snapshot() engine.Snapshot
}

// ToolSource provides the remote tool manifest.
type ToolSource interface {
	Tools(ctx context.Context) ([]llm.Tool, error)
}

// Server serves the status endpoints.
type Server struct {
	state  StateSource
	tools  ToolSource
	logger *zap.Logger

	httpServer *http.Server
}

// New creates a status server bound to addr.
func New(addr string, state StateSource, tools ToolSource, logger *zap.Logger) *Server {
	s := &Server{
		state:  state,
		tools:  tools,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /tools", s.handleTools)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("status surface listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.state.Snapshot())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.tools.Tools(r.Context())
	if err != nil {
		s.logger.Error("listing tools", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"tools": tools})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
