package pipeline

import "context"

// Pipeline composes the six stages into one callable turn: classify, route,
// assemble, transport, score, learn. It mirrors the per-turn loop in
// spec.md's pseudocode, minus the tool-execution sub-loop, which
// internal/agent's Runtime already implements and owns — Pipeline sits one
// layer above it, responsible for getting one provider response, not for
// driving tool calls to completion.
type Pipeline struct {
	Classifier Classifier
	Router     Router
	Assembler  Assembler
	Transport  Transport
	Scorer     Scorer
	Learner    Learner
}

// Run executes one classify → route → assemble → transport → score →
// record pass and returns the provider response plus the trajectory that
// was handed to the Learner.
func (p *Pipeline) Run(ctx context.Context, req *ChatRequest) (LlmResponse, Trajectory, error) {
	class, err := p.Classifier.Classify(ctx, req)
	if err != nil {
		return LlmResponse{}, Trajectory{}, err
	}

	routing, err := p.Router.Route(ctx, req, class)
	if err != nil {
		return LlmResponse{}, Trajectory{}, err
	}

	providerReq, err := p.Assembler.Assemble(ctx, req, routing, req.Tools)
	if err != nil {
		return LlmResponse{}, Trajectory{}, err
	}

	resp, err := p.Transport.Complete(ctx, providerReq)
	if err != nil {
		return LlmResponse{}, Trajectory{}, err
	}

	quality, err := p.Scorer.Score(ctx, req, resp)
	if err != nil {
		return LlmResponse{}, Trajectory{}, err
	}

	trajectory := Trajectory{Request: *req, Routing: routing, Response: resp, Quality: quality}
	if err := p.Learner.Record(ctx, trajectory); err != nil {
		return resp, trajectory, err
	}

	return resp, trajectory, nil
}
