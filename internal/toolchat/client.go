// Package toolchat bridges free-text queries to a completion backend that
// may invoke remote tools from an MCP registry.
//
// The session moves Uninitialized → Connected on first use and stays
// connected across calls; Close releases the transport streams. Each call
// performs at most one round of tool resolution: the backend gets the
// manifest once, any requested calls are executed sequentially, and the
// follow-up completions are asked without tools. Retry policy belongs to
// the caller — transport failures surface as errors.
package toolchat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"hireloop/internal/llm"
)

// session is the slice of the MCP client the tool chat needs. The concrete
// client is injected lazily so tests can substitute a stub registry.
type session interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Client is the tool-calling protocol client.
type Client struct {
	serverURL string
	backend   llm.Backend
	logger    *zap.Logger

	mu      sync.Mutex
	sess    session
	connect func(ctx context.Context) (session, error)
}

// New creates a protocol client for the MCP server at serverURL. No
// connection is made until the first call.
func New(serverURL string, backend llm.Backend, logger *zap.Logger) *Client {
	c := &Client{
		serverURL: serverURL,
		backend:   backend,
		logger:    logger,
	}
	c.connect = c.connectSSE
	return c
}

func (c *Client) connectSSE(ctx context.Context) (session, error) {
	sse, err := mcpclient.NewSSEMCPClient(c.serverURL)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}

	if err := sse.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp transport: %w", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "hireloop",
		Version: "1.0.0",
	}

	if _, err := sse.Initialize(ctx, initRequest); err != nil {
		sse.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}

	c.logger.Info("mcp session established", zap.String("server_url", c.serverURL))

	return sse, nil
}

// ensureSession establishes the MCP session on first use.
func (c *Client) ensureSession(ctx context.Context) (session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil {
		return c.sess, nil
	}

	sess, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.sess = sess

	return sess, nil
}

// Tools fetches the current tool manifest from the registry.
func (c *Client) Tools(ctx context.Context) ([]llm.Tool, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	result, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	tools := make([]llm.Tool, 0, len(result.Tools))
	for _, tool := range result.Tools {
		params, err := schemaToMap(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		tools = append(tools, llm.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		})
	}

	return tools, nil
}

// Process answers a free-text query, resolving at most one round of tool
// calls. The returned text concatenates the call announcements and the
// completion fragments in call order.
func (c *Client) Process(ctx context.Context, query string) (string, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	// Refresh the manifest every call. The round trip is cheap next to the
	// completion itself and keeps newly registered tools visible.
	tools, err := c.Tools(ctx)
	if err != nil {
		return "", err
	}

	messages := []llm.Message{{Role: llm.RoleUser, Content: query}}

	completion, err := c.backend.GetCompletion(ctx, messages, tools)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}

	if len(completion.ToolCalls) == 0 {
		return completion.Text, nil
	}

	var fragments []string
	for _, call := range completion.ToolCalls {
		name := call.Function.Name

		args, err := decodeArguments(call.Function.Arguments)
		if err != nil {
			return "", fmt.Errorf("tool %s: %w", name, err)
		}

		request := mcp.CallToolRequest{}
		request.Params.Name = name
		request.Params.Arguments = args

		c.logger.Debug("calling tool", zap.String("tool", name), zap.Any("args", args))

		result, err := sess.CallTool(ctx, request)
		if err != nil {
			return "", fmt.Errorf("call tool %s: %w", name, err)
		}

		fragments = append(fragments, fmt.Sprintf("[Calling tool %s with args %s]", name, renderArgs(args)))

		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf("Tool %s called.", name)},
			llm.Message{Role: llm.RoleUser, Content: resultText(result)},
		)

		// One round only: the follow-up is asked without tools so the
		// model cannot chase further calls.
		next, err := c.backend.GetCompletion(ctx, messages, nil)
		if err != nil {
			return "", fmt.Errorf("follow-up completion: %w", err)
		}
		if next.Text != "" {
			fragments = append(fragments, next.Text)
		}
	}

	return strings.Join(fragments, "\n"), nil
}

// Close releases the MCP session and its transport streams.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return nil
	}

	err := c.sess.Close()
	c.sess = nil
	return err
}

// decodeArguments accepts either an already-structured map or a JSON string.
func decodeArguments(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]any{}, nil
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(v), &args); err != nil {
			return nil, fmt.Errorf("decoding arguments: %w", err)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %T", raw)
	}
}

func renderArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// resultText flattens a tool result into the string handed back to the
// model as a synthetic user turn.
func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
			continue
		}
		if data, err := json.Marshal(content); err == nil {
			parts = append(parts, string(data))
		}
	}

	return strings.Join(parts, "\n")
}

func schemaToMap(schema mcp.ToolInputSchema) (map[string]any, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding input schema: %w", err)
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("decoding input schema: %w", err)
	}

	return params, nil
}
