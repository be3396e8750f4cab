package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultOllamaHost  = "http://127.0.0.1:11434"
	defaultOllamaModel = "llama3.2"
)

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	Host  string
	Model string
}

// Ollama is the low-cost local completion backend, speaking the Ollama
// chat API over HTTP.
type Ollama struct {
	HTTPClient *http.Client
	host       string
	model      string
	logger     *zap.Logger
}

// NewOllama creates an Ollama backend. A nil config selects the local
// daemon defaults.
func NewOllama(cfg *OllamaConfig, logger *zap.Logger) *Ollama {
	host := defaultOllamaHost
	model := defaultOllamaModel
	if cfg != nil {
		if h := strings.TrimSpace(cfg.Host); h != "" {
			host = strings.TrimRight(h, "/")
		}
		if m := strings.TrimSpace(cfg.Model); m != "" {
			model = m
		}
	}

	return &Ollama{
		HTTPClient: &http.Client{
			// Local generation on modest hardware is slow; the loops
			// tolerate the stretch, not a timeout error.
			Timeout: 5 * time.Minute,
		},
		host:   host,
		model:  model,
		logger: logger,
	}
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaToolSpec `json:"function"`
}

type ollamaToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ollamaChatRequest struct {
	Model    string       `json:"model"`
	Messages []Message    `json:"messages"`
	Tools    []ollamaTool `json:"tools,omitempty"`
	Stream   bool         `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls []struct {
			Function struct {
				Name      string         `json:"name"`
				Arguments map[string]any `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// GetCompletion sends the conversation to the local Ollama daemon.
func (o *Ollama) GetCompletion(ctx context.Context, messages []Message, tools []Tool) (*Completion, error) {
	payload := ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
	}
	for _, tool := range tools {
		payload.Tools = append(payload.Tools, ollamaTool{
			Type: "function",
			Function: ollamaToolSpec{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	url := o.host + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	o.logger.Debug("ollama chat request",
		zap.String("url", url),
		zap.String("model", o.model),
		zap.Int("messages", len(messages)),
		zap.Int("tools", len(tools)),
	)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama chat: bad status: %s", resp.Status)
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}

	completion := &Completion{
		Text: decoded.Message.Content,
		Metadata: Metadata{
			Model:       o.model,
			TotalTokens: decoded.PromptEvalCount + decoded.EvalCount,
		},
	}

	for _, call := range decoded.Message.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			Type: "function",
			Function: FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}

	return completion, nil
}

// TokenCost is zero: local generation has no per-token price.
func (o *Ollama) TokenCost() float64 {
	return 0
}
