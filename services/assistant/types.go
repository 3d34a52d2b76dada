package assistant

import (
	"time"

	"github.com/google/uuid"
	"github.com/upb/it-assistant/internal/rag"
	"github.com/upb/it-assistant/services/providers"
)

// Pipeline stages, in execution order
const (
	StageSearch     = "SEARCH"
	StagePrompt     = "PROMPT"
	StageGenerate   = "GENERATE"
	StageEvalPrompt = "EVAL_PROMPT"
	StageEvaluate   = "EVALUATE"
	StageAccount    = "ACCOUNT"
)

// AnswerRecord is the outcome of one pipeline run
type AnswerRecord struct {
	Answer               string        `json:"answer"`
	ModelUsed            string        `json:"model_used"`
	ResponseTime         float64       `json:"response_time"` // seconds
	Relevance            rag.Relevance `json:"relevance"`
	RelevanceExplanation string        `json:"relevance_explanation"`

	// Answer generation usage
	Usage providers.Usage `json:"usage"`

	// Relevance evaluation usage, zero when the evaluation call failed
	EvalUsage providers.Usage `json:"eval_usage"`

	// OpenAICost covers both model calls
	OpenAICost float64 `json:"openai_cost"`

	// Documents the answer was grounded on
	Sources []rag.Document `json:"-"`
}

// PipelineContext holds the state of a single run
type PipelineContext struct {
	PipelineID uuid.UUID
	Question   string
	Model      string
	StartTime  time.Time

	// Retrieval
	Documents []rag.Document

	// Generation
	Prompt string
	Answer string
	Usage  providers.Usage

	// Evaluation
	EvalPrompt string
	Judgment   rag.Judgment
	EvalUsage  providers.Usage

	// Accounting
	Cost         float64
	ResponseTime float64
}
