package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap"
)

// FeedbackRepository implements repositories.FeedbackRepository
type FeedbackRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(store *Store, logger *zap.Logger) repositories.FeedbackRepository {
	return &FeedbackRepository{store: store, logger: logger}
}

func (r *FeedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	res, err := sqlx.NamedExecContext(ctx, r.store.executor(ctx),
		`INSERT INTO feedback (conversation_id, feedback, timestamp) VALUES (:conversation_id, :feedback, :timestamp)`,
		fb,
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read feedback id: %w", err)
	}
	fb.ID = id

	r.logger.Debug("feedback created", zap.Int64("id", id), zap.String("conversation_id", fb.ConversationID))
	return nil
}

func (r *FeedbackRepository) GetStats(ctx context.Context) (*models.FeedbackStats, error) {
	stats := &models.FeedbackStats{}
	err := sqlx.GetContext(ctx, r.store.executor(ctx), stats, `
		SELECT
			COUNT(CASE WHEN feedback > 0 THEN 1 END) AS thumbs_up,
			COUNT(CASE WHEN feedback < 0 THEN 1 END) AS thumbs_down
		FROM feedback
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback stats: %w", err)
	}
	return stats, nil
}
