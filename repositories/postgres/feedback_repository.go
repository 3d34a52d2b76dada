package postgres

import (
	"context"
	"fmt"

	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap"
)

// FeedbackRepository implements the repositories.FeedbackRepository interface
type FeedbackRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *DB, logger *zap.Logger) repositories.FeedbackRepository {
	return &FeedbackRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new feedback entry and sets its ID
func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	query := `
		INSERT INTO feedback (conversation_id, feedback, timestamp)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, fb.ConversationID, fb.Value, fb.Timestamp).Scan(&fb.ID); err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	r.logger.Debug("feedback created",
		zap.Int64("id", fb.ID),
		zap.String("conversation_id", fb.ConversationID),
		zap.Int("feedback", fb.Value),
	)
	return nil
}

// GetStats counts positive and negative feedback
func (r *FeedbackRepository) GetStats(ctx context.Context) (*models.FeedbackStats, error) {
	query := `
		SELECT
			COUNT(CASE WHEN feedback > 0 THEN 1 END) as thumbs_up,
			COUNT(CASE WHEN feedback < 0 THEN 1 END) as thumbs_down
		FROM feedback
	`

	executor := GetExecutor(ctx, r.db)
	stats := &models.FeedbackStats{}
	if err := executor.QueryRowContext(ctx, query).Scan(&stats.ThumbsUp, &stats.ThumbsDown); err != nil {
		return nil, fmt.Errorf("failed to get feedback stats: %w", err)
	}

	return stats, nil
}
