package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"hireloop/internal/engine"
	"hireloop/internal/llm"
	"hireloop/internal/store"
)

type stubState struct {
	snapshot engine.Snapshot
}

func (s *stubState) Snapshot() engine.Snapshot { return s.snapshot }

type stubTools struct {
	tools []llm.Tool
	err   error
}

func (s *stubTools) Tools(_ context.Context) ([]llm.Tool, error) {
	return s.tools, s.err
}

func TestHandleState(t *testing.T) {
	state := &stubState{snapshot: engine.Snapshot{
		Jobs:    []store.Job{{JobID: "J1", Status: store.JobUnfilled}},
		Replies: []engine.Reply{{Classification: "interested", JobID: "J1"}},
	}}
	server := New("127.0.0.1:0", state, &stubTools{}, zap.NewNop())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].JobID != "J1" {
		t.Fatalf("unexpected jobs: %+v", snap.Jobs)
	}
	if len(snap.Replies) != 1 || snap.Replies[0].Classification != "interested" {
		t.Fatalf("unexpected replies: %+v", snap.Replies)
	}
}

func TestHandleTools(t *testing.T) {
	tools := &stubTools{tools: []llm.Tool{{Name: "get_candidates", Description: "List candidates"}}}
	server := New("127.0.0.1:0", &stubState{}, tools, zap.NewNop())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload struct {
		Tools []llm.Tool `json:"tools"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	if len(payload.Tools) != 1 || payload.Tools[0].Name != "get_candidates" {
		t.Fatalf("unexpected manifest: %+v", payload.Tools)
	}
}

func TestHandleToolsError(t *testing.T) {
	server := New("127.0.0.1:0", &stubState{}, &stubTools{err: errors.New("registry down")}, zap.NewNop())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestStateRejectsWrites(t *testing.T) {
	server := New("127.0.0.1:0", &stubState{}, &stubTools{}, zap.NewNop())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/state", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
