package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// geminiCost maps model prefixes to an approximate USD price per 1K tokens.
var geminiCost = map[string]float64{
	"gemini-2.5-pro":   0.0035,
	"gemini-2.5-flash": 0.0006,
}

// GeminiConfig configures the hosted Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Gemini is the hosted completion backend on the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

// NewGemini creates a Gemini backend.
func NewGemini(ctx context.Context, cfg *GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	return &Gemini{client: client, modelName: model, logger: logger}, nil
}

// GetCompletion sends the conversation to Gemini, declaring the manifest as
// callable functions when present.
func (g *Gemini) GetCompletion(ctx context.Context, messages []Message, tools []Tool) (*Completion, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini backend is not initialized")
	}

	contents, system := splitContents(messages)
	if len(contents) == 0 {
		return nil, errors.New("at least one non-system message is required")
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: declarations(tools)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	completion := &Completion{
		Text:     flattenText(resp),
		Metadata: Metadata{Model: g.modelName},
	}
	if resp.UsageMetadata != nil {
		completion.Metadata.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	for _, fc := range resp.FunctionCalls() {
		if fc == nil {
			continue
		}
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:   fc.ID,
			Type: "function",
			Function: FunctionCall{
				Name:      fc.Name,
				Arguments: fc.Args,
			},
		})
	}

	return completion, nil
}

// TokenCost returns the approximate USD price per 1K tokens for the model.
func (g *Gemini) TokenCost() float64 {
	for prefix, cost := range geminiCost {
		if strings.HasPrefix(g.modelName, prefix) {
			return cost
		}
	}
	return 0
}

func splitContents(messages []Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return contents, strings.Join(system, "\n")
}

func declarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schemaFromMap(tool.Parameters),
		})
	}
	return decls
}

// schemaFromMap converts a registry JSON schema into the genai schema type.
// Only the subset of JSON Schema the registry emits is mapped; unknown
// constructs degrade to an untyped schema rather than failing the call.
func schemaFromMap(m map[string]any) *genai.Schema {
	if len(m) == 0 {
		return nil
	}

	schema := &genai.Schema{}

	if typ, ok := m["type"].(string); ok {
		switch typ {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := m["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := m["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				schema.Properties[name] = schemaFromMap(sub)
			}
		}
	}

	if items, ok := m["items"].(map[string]any); ok {
		schema.Items = schemaFromMap(items)
	}

	if required, ok := m["required"].([]any); ok {
		for _, r := range required {
			if name, ok := r.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				schema.Enum = append(schema.Enum, v)
			}
		}
	}

	return schema
}

func flattenText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
