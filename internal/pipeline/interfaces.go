package pipeline

import "context"

// Classifier tags a request with an intent, complexity score, and free-form
// tags. Implementations must be pure and fast — no network calls — since
// the Router calls Classify on every turn before picking a tier.
type Classifier interface {
	Classify(ctx context.Context, req *ChatRequest) (Classification, error)
}

// Router picks which provider and model handle a request, given its
// classification and the set of providers currently available.
type Router interface {
	Route(ctx context.Context, req *ChatRequest, class Classification) (RoutingDecision, error)
}

// Assembler turns a routed request plus session history and tool schemas
// into a provider-ready request: injecting the system prompt, capping
// history length, and converting tool schemas to the target dialect.
type Assembler interface {
	Assemble(ctx context.Context, req *ChatRequest, routing RoutingDecision, tools []ToolSchema) (ProviderRequest, error)
}

// Transport executes a provider-ready request against an LLM backend.
type Transport interface {
	Complete(ctx context.Context, req ProviderRequest) (LlmResponse, error)
	Stream(ctx context.Context, req ProviderRequest) (<-chan StreamChunk, error)
}

// Scorer rates the quality of a completed response. Pure — no side effects.
type Scorer interface {
	Score(ctx context.Context, req *ChatRequest, resp LlmResponse) (QualityScore, error)
}

// Learner records completed trajectories and adapts to explicit feedback.
// Both methods are fire-and-forget from the pipeline's perspective: a
// baseline Learner implementation is a no-op.
type Learner interface {
	Record(ctx context.Context, t Trajectory) error
	Adapt(ctx context.Context, signal LearningSignal) error
}
