package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/it-assistant/internal/rag"
	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"github.com/upb/it-assistant/services"
	"github.com/upb/it-assistant/services/assistant"
	"go.uber.org/zap"
)

// MaxListLimit caps RecentConversations
const MaxListLimit = 100

// Answerer runs the answer pipeline for one question
type Answerer interface {
	Answer(ctx context.Context, question, model string) (*assistant.AnswerRecord, error)
}

// AskResult is returned to the caller of Ask
type AskResult struct {
	ConversationID string                  `json:"conversation_id"`
	Question       string                  `json:"question"`
	Answer         string                  `json:"answer"`
	Relevance      rag.Relevance           `json:"relevance"`
	ResponseTime   float64                 `json:"response_time"`
	Cost           float64                 `json:"cost"`
	Record         *assistant.AnswerRecord `json:"-"`
}

// Service answers questions, stores the conversations and collects feedback
type Service struct {
	answerer  Answerer
	repos     *repositories.Repositories
	txManager repositories.TransactionManager
	logger    *zap.Logger
	newID     func() string
}

// NewService creates a new conversation service
func NewService(answerer Answerer, repos *repositories.Repositories, txManager repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		answerer:  answerer,
		repos:     repos,
		txManager: txManager,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
	}
}

// Ask answers question and stores the result under a new conversation id.
// The pipeline sees the trimmed question; the stored record keeps it as asked.
func (s *Service) Ask(ctx context.Context, question, model string) (*AskResult, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return nil, services.ErrEmptyQuestion
	}

	id := s.newID()
	logger := s.logger.With(zap.String("conversation_id", id))

	record, err := s.answerer.Answer(ctx, trimmed, model)
	if err != nil {
		logger.Error("failed to answer question", zap.Error(err))
		return nil, err
	}

	conv := toConversation(id, question, record)
	if err := s.repos.Conversations.Create(ctx, conv); err != nil {
		logger.Error("failed to save conversation", zap.Error(err))
		return nil, services.WrapInternal("failed to save conversation", err)
	}

	logger.Info("conversation saved",
		zap.String("relevance", conv.Relevance),
		zap.Float64("cost", conv.OpenAICost))

	return &AskResult{
		ConversationID: id,
		Question:       question,
		Answer:         record.Answer,
		Relevance:      record.Relevance,
		ResponseTime:   record.ResponseTime,
		Cost:           record.OpenAICost,
		Record:         record,
	}, nil
}

// SubmitFeedback records +1 or -1 for a stored conversation
func (s *Service) SubmitFeedback(ctx context.Context, conversationID string, value int) (*models.Feedback, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, services.ErrMissingConvID
	}
	if !models.IsValidFeedback(value) {
		return nil, services.ErrInvalidFeedback
	}

	fb, err := services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.Feedback, error) {
		exists, err := s.repos.Conversations.Exists(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "conversation not found", nil).
				WithDetail("conversation_id", conversationID)
		}

		fb := models.NewFeedback(conversationID, value)
		if err := s.repos.Feedback.Create(ctx, fb); err != nil {
			return nil, err
		}
		return fb, nil
	})
	if err != nil {
		if services.GetErrorType(err) != "" {
			return nil, err
		}
		s.logger.Error("failed to save feedback", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, services.WrapInternal("failed to save feedback", err)
	}

	s.logger.Info("feedback received",
		zap.String("conversation_id", conversationID),
		zap.Int("feedback", value))
	return fb, nil
}

// GetConversation returns a stored conversation
func (s *Service) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := s.repos.Conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "conversation not found", err).
				WithDetail("conversation_id", id)
		}
		return nil, services.WrapInternal("failed to get conversation", err)
	}
	return conv, nil
}

// RecentConversations lists the newest conversations, optionally by relevance label
func (s *Service) RecentConversations(ctx context.Context, limit int, relevance string) ([]*models.Conversation, error) {
	if limit < 0 || limit > MaxListLimit {
		return nil, services.NewValidationError("limit must be between 0 and 100 (0 uses the default)")
	}
	relevance = strings.ToUpper(strings.TrimSpace(relevance))
	if relevance != "" {
		label := rag.Relevance(relevance)
		if !label.IsKnown() && label != rag.RelevanceUnknown {
			return nil, services.ErrInvalidRelevance
		}
	}

	convs, err := s.repos.Conversations.ListRecent(ctx, repositories.ConversationFilter{
		Limit:     limit,
		Relevance: relevance,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to list conversations", err)
	}
	return convs, nil
}

// FeedbackStats counts thumbs up and down
func (s *Service) FeedbackStats(ctx context.Context) (*models.FeedbackStats, error) {
	stats, err := s.repos.Feedback.GetStats(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to get feedback stats", err)
	}
	return stats, nil
}

// Metrics aggregates usage over all stored conversations
func (s *Service) Metrics(ctx context.Context) (*models.ConversationMetrics, error) {
	metrics, err := s.repos.Conversations.GetMetrics(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to get metrics", err)
	}
	return metrics, nil
}

func toConversation(id, question string, record *assistant.AnswerRecord) *models.Conversation {
	conv := models.NewConversation(id, question, record.Answer)
	conv.ModelUsed = record.ModelUsed
	conv.ResponseTime = record.ResponseTime
	conv.Relevance = string(record.Relevance)
	conv.RelevanceExplanation = record.RelevanceExplanation
	conv.PromptTokens = record.Usage.PromptTokens
	conv.CompletionTokens = record.Usage.CompletionTokens
	conv.TotalTokens = record.Usage.TotalTokens
	conv.EvalPromptTokens = record.EvalUsage.PromptTokens
	conv.EvalCompletionTokens = record.EvalUsage.CompletionTokens
	conv.EvalTotalTokens = record.EvalUsage.TotalTokens
	conv.OpenAICost = record.OpenAICost
	return conv
}
