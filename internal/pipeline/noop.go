package pipeline

import "context"

// NoopScorer is the level-0 Scorer baseline: every response scores a
// perfect 1.0 across the board. A real Scorer can be swapped in without
// touching the rest of the pipeline.
type NoopScorer struct{}

// Score implements Scorer.
func (NoopScorer) Score(ctx context.Context, req *ChatRequest, resp LlmResponse) (QualityScore, error) {
	return QualityScore{Overall: 1, Relevance: 1, Coherence: 1}, nil
}

// NoopLearner is the baseline Learner: it records and adapts to nothing.
type NoopLearner struct{}

// Record implements Learner.
func (NoopLearner) Record(ctx context.Context, t Trajectory) error { return nil }

// Adapt implements Learner.
func (NoopLearner) Adapt(ctx context.Context, signal LearningSignal) error { return nil }
