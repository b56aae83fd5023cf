// Package pipeline splits one inbound chat turn into six independently
// swappable stages: Classifier, Router, Assembler, Transport, Scorer, and
// Learner. Each stage is an interface so a deployment can swap one
// implementation (e.g. a heuristic classifier for a learned one) without
// touching its neighbours.
package pipeline

import (
	"time"

	"github.com/clawft/clawft/pkg/models"
)

// ChatRequest is the pipeline's view of one conversation turn: the message
// history plus the tool schemas and model hint available to it.
type ChatRequest struct {
	SessionKey   string
	History      []*models.Message
	Incoming     *models.Message
	Tools        []ToolSchema
	Model        string
	SystemPrompt string
}

// ToolSchema is a provider-agnostic description of one callable tool.
type ToolSchema struct {
	Name        string
	Description string
	Schema      []byte // JSON schema for the tool's arguments
}

// Classification is the Classifier stage's output: an intent label, a
// complexity score in [0,1] used by the Router to pick a tier, and a set of
// free-form tags rules can match against.
type Classification struct {
	Intent     string
	Complexity float64
	Tags       []string
}

// RoutingDecision is the Router stage's output.
type RoutingDecision struct {
	Provider string
	Model    string
	Reason   string
}

// ProviderRequest is the Assembler stage's output: a provider-ready request
// bundled with the routing decision that produced it.
type ProviderRequest struct {
	Routing RoutingDecision
	Request *CompletionRequest
}

// CompletionRequest is a provider-agnostic request shape. Concrete
// Transport implementations translate this into whatever wire format their
// backing agent.LLMProvider expects.
type CompletionRequest struct {
	Model     string
	System    string
	Messages  []models.Message
	Tools     []ToolSchema
	MaxTokens int
}

// StopReason is why a completion stopped generating.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ContentBlock is one piece of an LlmResponse: either text or a tool call.
type ContentBlock struct {
	Text     string
	ToolCall *models.ToolCall
}

// Usage reports token accounting for a completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// LlmResponse is the Transport stage's output.
type LlmResponse struct {
	ID         string
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

// Text concatenates every text block in the response.
func (r LlmResponse) Text() string {
	var out string
	for _, block := range r.Content {
		out += block.Text
	}
	return out
}

// ToolCalls returns every tool call carried by the response's content blocks.
func (r LlmResponse) ToolCalls() []models.ToolCall {
	var calls []models.ToolCall
	for _, block := range r.Content {
		if block.ToolCall != nil {
			calls = append(calls, *block.ToolCall)
		}
	}
	return calls
}

// StreamChunk is one increment of a streamed completion. The stream ends
// with a chunk that has Done set (and no further chunks are sent after).
type StreamChunk struct {
	Text  string
	Done  bool
	Usage Usage
	Error error
}

// QualityScore is the Scorer stage's output, each field in [0,1].
type QualityScore struct {
	Overall   float64
	Relevance float64
	Coherence float64
}

// Trajectory is the record passed to the Learner after each completed run.
type Trajectory struct {
	Request   ChatRequest
	Routing   RoutingDecision
	Response  LlmResponse
	Quality   QualityScore
	Timestamp time.Time
}

// LearningSignal carries user feedback (thumbs up/down, correction text)
// back to the Learner outside the normal request/response cycle.
type LearningSignal struct {
	SessionKey string
	Positive   bool
	Feedback   string
	Timestamp  time.Time
}
