package handlers

import (
	"context"

	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/services/conversation"
)

// ConversationService is the service surface the HTTP handlers depend on
type ConversationService interface {
	Ask(ctx context.Context, question, model string) (*conversation.AskResult, error)
	SubmitFeedback(ctx context.Context, conversationID string, value int) (*models.Feedback, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	RecentConversations(ctx context.Context, limit int, relevance string) ([]*models.Conversation, error)
	FeedbackStats(ctx context.Context) (*models.FeedbackStats, error)
	Metrics(ctx context.Context) (*models.ConversationMetrics, error)
}
