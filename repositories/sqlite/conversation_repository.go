package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap"
)

// ConversationRepository implements repositories.ConversationRepository
type ConversationRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(store *Store, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{store: store, logger: logger}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (
			id, question, answer, model_used, response_time,
			relevance, relevance_explanation,
			prompt_tokens, completion_tokens, total_tokens,
			eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
			openai_cost, timestamp
		) VALUES (
			:id, :question, :answer, :model_used, :response_time,
			:relevance, :relevance_explanation,
			:prompt_tokens, :completion_tokens, :total_tokens,
			:eval_prompt_tokens, :eval_completion_tokens, :eval_total_tokens,
			:openai_cost, :timestamp
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.store.executor(ctx), query, conv); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	r.logger.Debug("conversation created", zap.String("id", conv.ID))
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := sqlx.GetContext(ctx, r.store.executor(ctx), conv, `SELECT * FROM conversations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

func (r *ConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.store.executor(ctx), &exists, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ?)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	return exists, nil
}

func (r *ConversationRepository) ListRecent(ctx context.Context, filter repositories.ConversationFilter) ([]*models.Conversation, error) {
	query := `SELECT * FROM conversations`
	args := []interface{}{}
	if filter.Relevance != "" {
		query += ` WHERE relevance = ?`
		args = append(args, filter.Relevance)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, filter.EffectiveLimit())

	conversations := make([]*models.Conversation, 0)
	if err := sqlx.SelectContext(ctx, r.store.executor(ctx), &conversations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	return conversations, nil
}

func (r *ConversationRepository) GetMetrics(ctx context.Context) (*models.ConversationMetrics, error) {
	exec := r.store.executor(ctx)

	var totals struct {
		TotalConversations int     `db:"total_conversations"`
		TotalTokens        int     `db:"total_tokens"`
		EvalTotalTokens    int     `db:"eval_total_tokens"`
		TotalCost          float64 `db:"total_cost"`
		AvgResponseTime    float64 `db:"avg_response_time"`
	}
	err := sqlx.GetContext(ctx, exec, &totals, `
		SELECT
			COUNT(*) AS total_conversations,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(eval_total_tokens), 0) AS eval_total_tokens,
			COALESCE(SUM(openai_cost), 0.0) AS total_cost,
			COALESCE(AVG(response_time), 0.0) AS avg_response_time
		FROM conversations
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	var counts []struct {
		Relevance string `db:"relevance"`
		Count     int    `db:"count"`
	}
	err = sqlx.SelectContext(ctx, exec, &counts, `SELECT relevance, COUNT(*) AS count FROM conversations GROUP BY relevance`)
	if err != nil {
		return nil, fmt.Errorf("failed to get relevance counts: %w", err)
	}

	metrics := &models.ConversationMetrics{
		TotalConversations: totals.TotalConversations,
		TotalTokens:        totals.TotalTokens,
		EvalTotalTokens:    totals.EvalTotalTokens,
		TotalCost:          totals.TotalCost,
		AvgResponseTime:    totals.AvgResponseTime,
		RelevanceCounts:    make(map[string]int, len(counts)),
	}
	for _, c := range counts {
		metrics.RelevanceCounts[c.Relevance] = c.Count
	}
	return metrics, nil
}
