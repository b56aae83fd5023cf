package pipeline

import (
	"context"

	agentcontext "github.com/clawft/clawft/internal/agent/context"
	"github.com/clawft/clawft/pkg/models"
)

// ContextAssembler builds a provider-ready request by capping session
// history through agent/context's Packer and injecting the system prompt
// and model chosen by routing. Per-provider tool-schema dialect conversion
// (function-calling vs. tool-use) happens one layer down, inside the
// concrete agent.LLMProvider a Transport wraps — the same split the
// teacher's runtime already uses between context packing and provider
// dispatch.
type ContextAssembler struct {
	packer *agentcontext.Packer
}

// NewContextAssembler creates an Assembler with the given pack options.
func NewContextAssembler(opts agentcontext.PackOptions) *ContextAssembler {
	return &ContextAssembler{packer: agentcontext.NewPacker(opts)}
}

// Assemble implements Assembler.
func (a *ContextAssembler) Assemble(ctx context.Context, req *ChatRequest, routing RoutingDecision, tools []ToolSchema) (ProviderRequest, error) {
	packed, err := a.packer.Pack(req.History, req.Incoming, nil)
	if err != nil {
		return ProviderRequest{}, err
	}

	messages := make([]models.Message, 0, len(packed))
	for _, m := range packed {
		if m != nil {
			messages = append(messages, *m)
		}
	}

	model := routing.Model
	if model == "" {
		model = req.Model
	}

	return ProviderRequest{
		Routing: routing,
		Request: &CompletionRequest{
			Model:    model,
			System:   req.SystemPrompt,
			Messages: messages,
			Tools:    tools,
		},
	}, nil
}
