package rag

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/it-assistant/services/providers"
)

// Relevance is the evaluator's verdict on an answer.
type Relevance string

const (
	RelevanceRelevant       Relevance = "RELEVANT"
	RelevancePartlyRelevant Relevance = "PARTLY_RELEVANT"
	RelevanceNonRelevant    Relevance = "NON_RELEVANT"
	RelevanceUnknown        Relevance = "UNKNOWN"
)

// Fallback explanations
const (
	ExplanationParseFailed   = "Failed to parse evaluation"
	ExplanationRequestFailed = "Evaluation request failed"
)

// DefaultEvalModel judges answers when no evaluation model is configured.
const DefaultEvalModel = "gpt-4o-mini"

// Judgment is the parsed relevance verdict. Relevance is never empty.
type Judgment struct {
	Relevance   Relevance `json:"relevance"`
	Explanation string    `json:"relevance_explanation"`
}

// IsKnown reports whether r is one of the three labels the rubric asks for.
func (r Relevance) IsKnown() bool {
	switch r {
	case RelevanceRelevant, RelevancePartlyRelevant, RelevanceNonRelevant:
		return true
	}
	return false
}

type rawJudgment struct {
	Relevance   *string `json:"Relevance"`
	Explanation *string `json:"Explanation"`
}

// ParseJudgment decodes the evaluator reply. The reply is untrusted: a
// surrounding code fence is stripped, missing fields get fallback values and
// anything undecodable yields {UNKNOWN, "Failed to parse evaluation"}. Labels
// outside the rubric are passed through unchanged.
func ParseJudgment(raw string) Judgment {
	fallback := Judgment{Relevance: RelevanceUnknown, Explanation: ExplanationParseFailed}

	var parsed rawJudgment
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		return fallback
	}

	judgment := fallback
	if parsed.Relevance != nil && strings.TrimSpace(*parsed.Relevance) != "" {
		judgment.Relevance = Relevance(strings.TrimSpace(*parsed.Relevance))
	}
	if parsed.Explanation != nil {
		judgment.Explanation = *parsed.Explanation
	}
	return judgment
}

// stripFence removes a Markdown code fence such as ```json ... ```.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Evaluator asks a second model to judge answer relevance.
type Evaluator struct {
	client Completer
	model  string
	logger *zap.Logger
}

// NewEvaluator creates an evaluator. An empty model uses DefaultEvalModel.
func NewEvaluator(client Completer, model string, logger *zap.Logger) *Evaluator {
	if model == "" {
		model = DefaultEvalModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, model: model, logger: logger}
}

// Model returns the evaluation model name.
func (e *Evaluator) Model() string {
	return e.model
}

// Evaluate judges answer against question. It never fails: a failed model
// call yields {UNKNOWN, "Evaluation request failed"} with zero usage.
func (e *Evaluator) Evaluate(ctx context.Context, question, answer string) (Judgment, providers.Usage) {
	return e.EvaluatePrompt(ctx, BuildEvalPrompt(question, answer))
}

// EvaluatePrompt sends an already rendered evaluation prompt and parses the
// reply the same way Evaluate does.
func (e *Evaluator) EvaluatePrompt(ctx context.Context, prompt string) (Judgment, providers.Usage) {
	reply, usage, err := e.client.Complete(ctx, prompt, e.model)
	if err != nil {
		e.logger.Warn("relevance evaluation failed",
			zap.String("model", e.model),
			zap.Error(err),
		)
		return Judgment{Relevance: RelevanceUnknown, Explanation: ExplanationRequestFailed}, providers.Usage{}
	}

	judgment := ParseJudgment(reply)
	if judgment.Relevance == RelevanceUnknown {
		e.logger.Warn("could not parse relevance evaluation", zap.String("reply", reply))
	}
	return judgment, usage
}
