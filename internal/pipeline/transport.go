package pipeline

import (
	"context"
	"encoding/json"

	"github.com/clawft/clawft/internal/agent"
	"github.com/clawft/clawft/internal/agent/providers"
)

// ProviderTransport dispatches a ProviderRequest to a concrete
// agent.LLMProvider selected by ProviderRequest.Routing.Provider, wrapping
// the teacher's existing provider implementations (Anthropic, OpenAI,
// Bedrock) behind the pipeline's narrower Transport contract.
type ProviderTransport struct {
	providers map[string]agent.LLMProvider
}

// NewProviderTransport creates a Transport over the given named providers.
func NewProviderTransport(named map[string]agent.LLMProvider) *ProviderTransport {
	return &ProviderTransport{providers: named}
}

// Complete implements Transport by draining the provider's streaming
// channel into a single LlmResponse.
func (t *ProviderTransport) Complete(ctx context.Context, req ProviderRequest) (LlmResponse, error) {
	provider, err := t.resolve(req.Routing.Provider)
	if err != nil {
		return LlmResponse{}, err
	}

	chunks, err := provider.Complete(ctx, toCompletionRequest(req))
	if err != nil {
		return LlmResponse{}, classifyTransportErr(req.Routing.Provider, err)
	}

	var resp LlmResponse
	var text string
	for chunk := range chunks {
		if chunk.Error != nil {
			return LlmResponse{}, classifyTransportErr(req.Routing.Provider, chunk.Error)
		}
		if chunk.Text != "" {
			text += chunk.Text
		}
		if chunk.ToolCall != nil {
			resp.Content = append(resp.Content, ContentBlock{ToolCall: chunk.ToolCall})
		}
		if chunk.Done {
			resp.Usage = Usage{InputTokens: chunk.InputTokens, OutputTokens: chunk.OutputTokens}
		}
	}
	if text != "" {
		resp.Content = append([]ContentBlock{{Text: text}}, resp.Content...)
	}
	resp.StopReason = StopEndTurn
	if len(resp.ToolCalls()) > 0 {
		resp.StopReason = StopToolUse
	}
	return resp, nil
}

// Stream implements Transport, relaying the provider's native chunks as
// StreamChunk values.
func (t *ProviderTransport) Stream(ctx context.Context, req ProviderRequest) (<-chan StreamChunk, error) {
	provider, err := t.resolve(req.Routing.Provider)
	if err != nil {
		return nil, err
	}

	chunks, err := provider.Complete(ctx, toCompletionRequest(req))
	if err != nil {
		return nil, classifyTransportErr(req.Routing.Provider, err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for chunk := range chunks {
			sc := StreamChunk{Text: chunk.Text, Done: chunk.Done}
			if chunk.Error != nil {
				sc.Error = classifyTransportErr(req.Routing.Provider, chunk.Error)
			}
			if chunk.Done {
				sc.Usage = Usage{InputTokens: chunk.InputTokens, OutputTokens: chunk.OutputTokens}
			}
			select {
			case out <- sc:
			case <-ctx.Done():
				return
			}
			if chunk.Error != nil {
				return
			}
		}
	}()
	return out, nil
}

func (t *ProviderTransport) resolve(name string) (agent.LLMProvider, error) {
	provider, ok := t.providers[name]
	if !ok || provider == nil {
		return nil, ErrNoProviderConfigured
	}
	return provider, nil
}

func toCompletionRequest(req ProviderRequest) *agent.CompletionRequest {
	if req.Request == nil {
		return &agent.CompletionRequest{Model: req.Routing.Model}
	}
	messages := make([]agent.CompletionMessage, 0, len(req.Request.Messages))
	for _, m := range req.Request.Messages {
		messages = append(messages, agent.CompletionMessage{
			Role:        string(m.Role),
			Content:     m.Content,
			ToolCalls:   m.ToolCalls,
			ToolResults: m.ToolResults,
			Attachments: m.Attachments,
		})
	}
	tools := make([]agent.Tool, 0, len(req.Request.Tools))
	for _, schema := range req.Request.Tools {
		tools = append(tools, toolSchemaAdapter{schema: schema})
	}
	return &agent.CompletionRequest{
		Model:     req.Request.Model,
		System:    req.Request.System,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: req.Request.MaxTokens,
	}
}

// toolSchemaAdapter satisfies agent.Tool for a ToolSchema description so
// Transport can hand the provider's Complete call a set of tool
// definitions without depending on the concrete tool registry.
type toolSchemaAdapter struct {
	schema ToolSchema
}

func (t toolSchemaAdapter) Name() string        { return t.schema.Name }
func (t toolSchemaAdapter) Description() string { return t.schema.Description }
func (t toolSchemaAdapter) Schema() json.RawMessage {
	return json.RawMessage(t.schema.Schema)
}
func (t toolSchemaAdapter) Execute(ctx context.Context, args json.RawMessage) (*agent.ToolResult, error) {
	return nil, agent.ErrToolNotFound
}

func classifyTransportErr(provider string, err error) error {
	if err == nil {
		return nil
	}
	if providers.ClassifyError(err) == providers.FailoverAuth {
		return &AuthFailed{Provider: provider, Cause: err}
	}
	return &ProviderFailure{Provider: provider, Cause: err}
}
