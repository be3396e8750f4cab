package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestOllamaGetCompletionText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Fatalf("expected stream to be disabled")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
			t.Fatalf("unexpected messages: %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model":             req.Model,
			"message":           map[string]any{"role": "assistant", "content": "hello"},
			"prompt_eval_count": 12,
			"eval_count":        3,
		})
	}))
	defer server.Close()

	backend := NewOllama(&OllamaConfig{Host: server.URL, Model: "test-model"}, zap.NewNop())

	completion, err := backend.GetCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completion.Text != "hello" {
		t.Fatalf("unexpected text: %q", completion.Text)
	}
	if len(completion.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls")
	}
	if completion.Metadata.TotalTokens != 15 {
		t.Fatalf("unexpected token count: %d", completion.Metadata.TotalTokens)
	}
	if completion.Metadata.Model != "test-model" {
		t.Fatalf("unexpected model: %s", completion.Metadata.Model)
	}
}

func TestOllamaGetCompletionToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_candidates" {
			t.Fatalf("unexpected tools: %+v", req.Tools)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": req.Model,
			"message": map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []map[string]any{
					{"function": map[string]any{
						"name":      "get_candidates",
						"arguments": map[string]any{"limit": 3},
					}},
				},
			},
		})
	}))
	defer server.Close()

	backend := NewOllama(&OllamaConfig{Host: server.URL}, zap.NewNop())

	tools := []Tool{{Name: "get_candidates", Description: "list available candidates", Parameters: map[string]any{"type": "object"}}}
	completion, err := backend.GetCompletion(context.Background(), []Message{{Role: RoleUser, Content: "who is free?"}}, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completion.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(completion.ToolCalls))
	}

	call := completion.ToolCalls[0]
	if call.Function.Name != "get_candidates" {
		t.Fatalf("unexpected tool name: %s", call.Function.Name)
	}
	args, ok := call.Function.Arguments.(map[string]any)
	if !ok {
		t.Fatalf("expected structured arguments, got %T", call.Function.Arguments)
	}
	if args["limit"] != float64(3) {
		t.Fatalf("unexpected arguments: %v", args)
	}
}

func TestOllamaGetCompletionBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	backend := NewOllama(&OllamaConfig{Host: server.URL}, zap.NewNop())

	if _, err := backend.GetCompletion(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil); err == nil {
		t.Fatalf("expected error for bad status")
	}
}

func TestOllamaDefaults(t *testing.T) {
	backend := NewOllama(nil, zap.NewNop())
	if backend.host != defaultOllamaHost {
		t.Fatalf("unexpected host: %s", backend.host)
	}
	if backend.model != defaultOllamaModel {
		t.Fatalf("unexpected model: %s", backend.model)
	}
	if backend.TokenCost() != 0 {
		t.Fatalf("local backend must be free")
	}
}
