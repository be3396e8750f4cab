package toolchat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"hireloop/internal/llm"
)

type backendCall struct {
	messages []llm.Message
	tools    []llm.Tool
}

type stubBackend struct {
	calls     []backendCall
	responses []*llm.Completion
	err       error
}

func (s *stubBackend) GetCompletion(_ context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Completion, error) {
	s.calls = append(s.calls, backendCall{messages: messages, tools: tools})
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &llm.Completion{}, nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

func (s *stubBackend) TokenCost() float64 { return 0 }

type stubSession struct {
	tools         []mcp.Tool
	listCalls     int
	listErr       error
	callRequests  []mcp.CallToolRequest
	callResults   map[string]*mcp.CallToolResult
	callErr       error
	closed        bool
}

func (s *stubSession) ListTools(_ context.Context, _ mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return &mcp.ListToolsResult{Tools: s.tools}, nil
}

func (s *stubSession) CallTool(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.callRequests = append(s.callRequests, request)
	if s.callErr != nil {
		return nil, s.callErr
	}
	if result, ok := s.callResults[request.Params.Name]; ok {
		return result, nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func newTestClient(sess *stubSession, backend *stubBackend) *Client {
	c := New("http://localhost:8080/sse", backend, zap.NewNop())
	c.connect = func(_ context.Context) (session, error) {
		return sess, nil
	}
	return c
}

func registryTools() []mcp.Tool {
	return []mcp.Tool{{
		Name:        "get_candidates",
		Description: "list available candidates",
		InputSchema: mcp.ToolInputSchema{Type: "object"},
	}}
}

func TestProcessTextOnlyAnswer(t *testing.T) {
	sess := &stubSession{tools: registryTools()}
	backend := &stubBackend{responses: []*llm.Completion{{Text: "no tools needed"}}}
	client := newTestClient(sess, backend)

	answer, err := client.Process(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "no tools needed" {
		t.Fatalf("unexpected answer: %q", answer)
	}

	if len(backend.calls) != 1 {
		t.Fatalf("expected one completion, got %d", len(backend.calls))
	}
	if len(backend.calls[0].tools) != 1 {
		t.Fatalf("expected manifest to be passed to the backend")
	}
	if len(sess.callRequests) != 0 {
		t.Fatalf("no tools should have been called")
	}
}

func TestProcessSingleToolRound(t *testing.T) {
	sess := &stubSession{
		tools: registryTools(),
		callResults: map[string]*mcp.CallToolResult{
			"get_candidates": mcp.NewToolResultText(`[{"name":"Ada"}]`),
		},
	}
	backend := &stubBackend{responses: []*llm.Completion{
		{ToolCalls: []llm.ToolCall{{
			Type:     "function",
			Function: llm.FunctionCall{Name: "get_candidates", Arguments: map[string]any{}},
		}}},
		{Text: "Ada is available."},
	}}
	client := newTestClient(sess, backend)

	answer, err := client.Process(context.Background(), "who is free?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(answer, "[Calling tool get_candidates with args {}]") {
		t.Fatalf("missing call announcement: %q", answer)
	}
	if !strings.Contains(answer, "Ada is available.") {
		t.Fatalf("missing follow-up text: %q", answer)
	}

	if len(sess.callRequests) != 1 || sess.callRequests[0].Params.Name != "get_candidates" {
		t.Fatalf("unexpected tool requests: %+v", sess.callRequests)
	}

	// The follow-up completion must not carry tools: one round only.
	if len(backend.calls) != 2 {
		t.Fatalf("expected two completions, got %d", len(backend.calls))
	}
	if backend.calls[1].tools != nil {
		t.Fatalf("follow-up completion must omit the tool manifest")
	}

	// The synthetic turns note the call and carry the stringified result.
	followUp := backend.calls[1].messages
	if len(followUp) != 3 {
		t.Fatalf("expected query + two synthetic turns, got %d", len(followUp))
	}
	if followUp[1].Role != llm.RoleAssistant || !strings.Contains(followUp[1].Content, "get_candidates") {
		t.Fatalf("unexpected assistant turn: %+v", followUp[1])
	}
	if followUp[2].Role != llm.RoleUser || !strings.Contains(followUp[2].Content, "Ada") {
		t.Fatalf("unexpected result turn: %+v", followUp[2])
	}
}

func TestProcessDecodesStringArguments(t *testing.T) {
	sess := &stubSession{tools: registryTools()}
	backend := &stubBackend{responses: []*llm.Completion{
		{ToolCalls: []llm.ToolCall{{
			Function: llm.FunctionCall{Name: "get_candidates", Arguments: `{"limit": 2}`},
		}}},
		{Text: "done"},
	}}
	client := newTestClient(sess, backend)

	if _, err := client.Process(context.Background(), "query"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	args, ok := sess.callRequests[0].Params.Arguments.(map[string]any)
	if !ok {
		t.Fatalf("expected decoded arguments, got %T", sess.callRequests[0].Params.Arguments)
	}
	if args["limit"] != float64(2) {
		t.Fatalf("unexpected arguments: %v", args)
	}
}

func TestProcessRefreshesManifestEveryCall(t *testing.T) {
	sess := &stubSession{tools: registryTools()}
	backend := &stubBackend{responses: []*llm.Completion{{Text: "a"}, {Text: "b"}}}
	client := newTestClient(sess, backend)

	ctx := context.Background()
	if _, err := client.Process(ctx, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Process(ctx, "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sess.listCalls != 2 {
		t.Fatalf("expected a manifest fetch per call, got %d", sess.listCalls)
	}
}

func TestProcessSurfacesTransportErrors(t *testing.T) {
	sess := &stubSession{
		tools:   registryTools(),
		callErr: errors.New("stream reset"),
	}
	backend := &stubBackend{responses: []*llm.Completion{
		{ToolCalls: []llm.ToolCall{{
			Function: llm.FunctionCall{Name: "get_candidates", Arguments: map[string]any{}},
		}}},
	}}
	client := newTestClient(sess, backend)

	if _, err := client.Process(context.Background(), "query"); err == nil {
		t.Fatalf("expected tool transport error to surface")
	}
}

func TestToolsConvertsManifest(t *testing.T) {
	sess := &stubSession{tools: []mcp.Tool{{
		Name:        "get_forecast",
		Description: "weather forecast",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"latitude": map[string]any{"type": "number"},
			},
			Required: []string{"latitude"},
		},
	}}}
	client := newTestClient(sess, &stubBackend{})

	tools, err := client.Tools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tools) != 1 {
		t.Fatalf("expected one tool, got %d", len(tools))
	}
	if tools[0].Name != "get_forecast" {
		t.Fatalf("unexpected name: %s", tools[0].Name)
	}
	if tools[0].Parameters["type"] != "object" {
		t.Fatalf("unexpected parameters: %v", tools[0].Parameters)
	}
}

func TestCloseReleasesSession(t *testing.T) {
	sess := &stubSession{tools: registryTools()}
	client := newTestClient(sess, &stubBackend{responses: []*llm.Completion{{Text: "x"}}})

	if _, err := client.Process(context.Background(), "query"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.closed {
		t.Fatalf("expected session to be closed")
	}

	// Closing twice is safe.
	if err := client.Close(); err != nil {
		t.Fatalf("unexpected error on double close: %v", err)
	}
}

func TestDecodeArguments(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		wantErr bool
	}{
		{"nil", nil, false},
		{"map", map[string]any{"a": 1}, false},
		{"json string", `{"a":1}`, false},
		{"empty string", "", false},
		{"bad json", "{", true},
		{"unsupported", 42, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args, err := decodeArguments(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if args == nil {
				t.Fatalf("expected non-nil arguments")
			}
		})
	}
}
