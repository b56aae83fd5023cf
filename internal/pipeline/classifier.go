package pipeline

import (
	"context"
	"regexp"
	"strings"
)

var (
	codePattern   = regexp.MustCompile("(?i)\\b(func|class|def|package|import|SELECT|INSERT|UPDATE|DELETE)\\b")
	reasonPattern = regexp.MustCompile("(?i)\\b(analyze|reason|think through|derive|prove|why|tradeoff)\\b")
	quickPattern  = regexp.MustCompile("(?i)\\b(what is|define|quick|brief|summary)\\b")
	codeFence     = regexp.MustCompile("```")
)

// HeuristicClassifier assigns an intent, a complexity score, and tags to a
// request using simple content heuristics — no network calls, no model
// inference. It is the baseline Classifier every Router falls back to.
type HeuristicClassifier struct{}

// NewHeuristicClassifier creates a HeuristicClassifier.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{}
}

// Classify implements Classifier.
func (c *HeuristicClassifier) Classify(ctx context.Context, req *ChatRequest) (Classification, error) {
	content := lastUserContent(req)
	content = strings.TrimSpace(content)
	if content == "" {
		return Classification{Intent: "empty", Complexity: 0}, nil
	}
	lower := strings.ToLower(content)

	var tags []string
	isCode := codeFence.MatchString(lower) || codePattern.MatchString(lower)
	isReasoning := reasonPattern.MatchString(lower)
	isQuick := quickPattern.MatchString(lower) || len(lower) < 80

	if isCode {
		tags = append(tags, "code")
	}
	if isReasoning {
		tags = append(tags, "reasoning")
	}
	if isQuick {
		tags = append(tags, "quick")
	}

	intent := "general"
	switch {
	case isCode:
		intent = "code"
	case isReasoning:
		intent = "reasoning"
	case isQuick:
		intent = "quick"
	}

	complexity := complexityScore(content, isCode, isReasoning, isQuick)

	return Classification{Intent: intent, Complexity: complexity, Tags: tags}, nil
}

// complexityScore maps content heuristics onto a [0,1] complexity score:
// quick factual questions score low, plain prose scores mid, code and
// multi-step reasoning requests score high. Length nudges the score within
// its band rather than dominating it.
func complexityScore(content string, isCode, isReasoning, isQuick bool) float64 {
	base := 0.4
	switch {
	case isCode || isReasoning:
		base = 0.7
	case isQuick:
		base = 0.15
	}

	lengthBoost := float64(len(content)) / 4000.0
	if lengthBoost > 0.25 {
		lengthBoost = 0.25
	}

	score := base + lengthBoost
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func lastUserContent(req *ChatRequest) string {
	if req == nil {
		return ""
	}
	if req.Incoming != nil && req.Incoming.Content != "" {
		return req.Incoming.Content
	}
	for i := len(req.History) - 1; i >= 0; i-- {
		msg := req.History[i]
		if msg.Role == "user" {
			return msg.Content
		}
	}
	return ""
}
