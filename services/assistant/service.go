package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/it-assistant/internal/rag"
	"github.com/upb/it-assistant/services"
	"github.com/upb/it-assistant/services/cost"
	"go.uber.org/zap"
)

// DefaultModel answers questions when neither the caller nor config names one
const DefaultModel = "gpt-4o-mini"

// Service runs the retrieve, generate, evaluate and account pipeline
type Service struct {
	retriever    rag.Retriever
	generator    rag.Completer
	evaluator    *rag.Evaluator
	accountant   *cost.Accountant
	defaultModel string
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new assistant service with all dependencies
func NewService(
	retriever rag.Retriever,
	generator rag.Completer,
	evaluator *rag.Evaluator,
	accountant *cost.Accountant,
	defaultModel string,
	logger *zap.Logger,
) *Service {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	return &Service{
		retriever:    retriever,
		generator:    generator,
		evaluator:    evaluator,
		accountant:   accountant,
		defaultModel: defaultModel,
		logger:       logger,
		now:          time.Now,
	}
}

// DefaultModel returns the model used when Answer is called without one
func (s *Service) DefaultModel() string {
	return s.defaultModel
}

// Answer runs the full pipeline for question. A blank model uses the default.
// Search and generation failures abort the run; a failed evaluation does not.
func (s *Service) Answer(ctx context.Context, question, model string) (*AnswerRecord, error) {
	if model == "" {
		model = s.defaultModel
	}

	pc := &PipelineContext{
		PipelineID: uuid.New(),
		Question:   question,
		Model:      model,
		StartTime:  s.now(),
	}
	id := zap.String("pipeline_id", pc.PipelineID.String())

	s.logger.Info("starting answer pipeline", id, zap.String("model", model))

	// Step 1: retrieve context
	s.logger.Debug("stage "+StageSearch, id)
	docs, err := s.retriever.Retrieve(ctx, question, rag.RetrievalOptions{})
	if err != nil {
		s.logger.Error("knowledge search failed", id, zap.Error(err))
		return nil, services.WrapInternal("knowledge search failed", err)
	}
	pc.Documents = docs

	// Step 2: compose prompt
	s.logger.Debug("stage "+StagePrompt, id, zap.Int("documents", len(docs)))
	pc.Prompt = rag.BuildAnswerPrompt(question, docs)

	// Step 3: generate answer
	s.logger.Debug("stage "+StageGenerate, id, zap.Int("prompt_length", len(pc.Prompt)))
	answer, usage, err := s.generator.Complete(ctx, pc.Prompt, model)
	if err != nil {
		s.logger.Error("answer generation failed", id, zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, services.WrapExternal("answer generation timed out", err)
		}
		return nil, services.WrapExternal("answer generation failed", err)
	}
	pc.Answer = answer
	pc.Usage = usage

	// Step 4: judge relevance, never fatal
	s.logger.Debug("stage "+StageEvalPrompt, id)
	pc.EvalPrompt = rag.BuildEvalPrompt(question, answer)

	s.logger.Debug("stage "+StageEvaluate, id, zap.String("eval_model", s.evaluator.Model()))
	pc.Judgment, pc.EvalUsage = s.evaluator.EvaluatePrompt(ctx, pc.EvalPrompt)

	// Step 5: account
	s.logger.Debug("stage "+StageAccount, id)
	pc.Cost = s.accountant.EstimateCost(model, pc.Usage) +
		s.accountant.EstimateCost(s.evaluator.Model(), pc.EvalUsage)
	pc.ResponseTime = cost.Elapsed(pc.StartTime, s.now())

	s.logger.Info("answer pipeline completed",
		id,
		zap.Float64("response_time", pc.ResponseTime),
		zap.Float64("cost", pc.Cost),
		zap.String("relevance", string(pc.Judgment.Relevance)),
		zap.Int("tokens", pc.Usage.TotalTokens+pc.EvalUsage.TotalTokens))

	return buildRecord(pc), nil
}

func buildRecord(pc *PipelineContext) *AnswerRecord {
	return &AnswerRecord{
		Answer:               pc.Answer,
		ModelUsed:            pc.Model,
		ResponseTime:         pc.ResponseTime,
		Relevance:            pc.Judgment.Relevance,
		RelevanceExplanation: pc.Judgment.Explanation,
		Usage:                pc.Usage,
		EvalUsage:            pc.EvalUsage,
		OpenAICost:           pc.Cost,
		Sources:              pc.Documents,
	}
}
