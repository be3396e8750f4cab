// Package llm normalizes language-model backends behind one contract: a
// list of role-tagged messages plus an optional tool manifest in, a
// text-or-tool-call completion out.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tool describes one remote operation the model may request. Parameters is
// the tool's JSON schema as fetched from the registry.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a model request to invoke a named tool. Arguments is either
// an already-structured map or a JSON string, depending on the backend.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// Completion is the backend's answer to one conversation.
type Completion struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Metadata  Metadata   `json:"metadata"`
}

// Metadata reports which model answered and at what token volume.
type Metadata struct {
	Model       string `json:"model"`
	TotalTokens int    `json:"total_tokens"`
}

// Backend is the capability contract every completion backend satisfies.
// Implementations are chosen at construction; no string-tag dispatch past
// the factory.
type Backend interface {
	// GetCompletion runs one completion over the conversation. A nil or
	// empty tools slice means the model must answer in text.
	GetCompletion(ctx context.Context, messages []Message, tools []Tool) (*Completion, error)
	// TokenCost returns the backend's price per 1K tokens in USD.
	TokenCost() float64
}

// Config selects and configures a backend.
type Config struct {
	Provider string
	Gemini   *GeminiConfig
	Ollama   *OllamaConfig
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Backend, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", "ollama":
		return NewOllama(cfg.Ollama, logger), nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini configuration is required for the gemini provider")
		}
		return NewGemini(ctx, cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
