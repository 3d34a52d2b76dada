package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap"
)

const conversationColumns = `id, question, answer, model_used, response_time,
		       relevance, relevance_explanation,
		       prompt_tokens, completion_tokens, total_tokens,
		       eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
		       openai_cost, timestamp`

// ConversationRepository implements the repositories.ConversationRepository interface
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (
			id, question, answer, model_used, response_time,
			relevance, relevance_explanation,
			prompt_tokens, completion_tokens, total_tokens,
			eval_prompt_tokens, eval_completion_tokens, eval_total_tokens,
			openai_cost, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		conv.ID,
		conv.Question,
		conv.Answer,
		conv.ModelUsed,
		conv.ResponseTime,
		conv.Relevance,
		conv.RelevanceExplanation,
		conv.PromptTokens,
		conv.CompletionTokens,
		conv.TotalTokens,
		conv.EvalPromptTokens,
		conv.EvalCompletionTokens,
		conv.EvalTotalTokens,
		conv.OpenAICost,
		conv.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	r.logger.Debug("conversation created", zap.String("id", conv.ID))
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	conv, err := scanConversation(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// Exists reports whether a conversation with the given ID is stored
func (r *ConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM conversations WHERE id = $1)`

	executor := GetExecutor(ctx, r.db)
	var exists bool
	if err := executor.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check conversation: %w", err)
	}
	return exists, nil
}

// ListRecent retrieves the newest conversations first
func (r *ConversationRepository) ListRecent(ctx context.Context, filter repositories.ConversationFilter) ([]*models.Conversation, error) {
	var (
		query string
		args  []interface{}
	)
	if filter.Relevance != "" {
		query = `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE relevance = $1
		ORDER BY timestamp DESC
		LIMIT $2`
		args = []interface{}{filter.Relevance, filter.EffectiveLimit()}
	} else {
		query = `SELECT ` + conversationColumns + `
		FROM conversations
		ORDER BY timestamp DESC
		LIMIT $1`
		args = []interface{}{filter.EffectiveLimit()}
	}

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return conversations, nil
}

// GetMetrics retrieves aggregate usage metrics
func (r *ConversationRepository) GetMetrics(ctx context.Context) (*models.ConversationMetrics, error) {
	query := `
		SELECT
			COUNT(*) as total_conversations,
			COALESCE(SUM(total_tokens), 0) as total_tokens,
			COALESCE(SUM(eval_total_tokens), 0) as eval_total_tokens,
			COALESCE(SUM(openai_cost), 0) as total_cost,
			COALESCE(AVG(response_time), 0) as avg_response_time
		FROM conversations
	`

	executor := GetExecutor(ctx, r.db)
	metrics := &models.ConversationMetrics{RelevanceCounts: make(map[string]int)}

	err := executor.QueryRowContext(ctx, query).Scan(
		&metrics.TotalConversations,
		&metrics.TotalTokens,
		&metrics.EvalTotalTokens,
		&metrics.TotalCost,
		&metrics.AvgResponseTime,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	rows, err := executor.QueryContext(ctx, `SELECT relevance, COUNT(*) FROM conversations GROUP BY relevance`)
	if err != nil {
		return nil, fmt.Errorf("failed to get relevance counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label string
			count int
		)
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan relevance count: %w", err)
		}
		metrics.RelevanceCounts[label] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relevance rows: %w", err)
	}

	return metrics, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConversation(row rowScanner) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := row.Scan(
		&conv.ID,
		&conv.Question,
		&conv.Answer,
		&conv.ModelUsed,
		&conv.ResponseTime,
		&conv.Relevance,
		&conv.RelevanceExplanation,
		&conv.PromptTokens,
		&conv.CompletionTokens,
		&conv.TotalTokens,
		&conv.EvalPromptTokens,
		&conv.EvalCompletionTokens,
		&conv.EvalTotalTokens,
		&conv.OpenAICost,
		&conv.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return conv, nil
}
