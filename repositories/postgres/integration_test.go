//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/upb/it-assistant/config"
	"github.com/upb/it-assistant/models"
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap/zaptest"
)

// startPostgres runs a throwaway postgres and returns a DB with the schema applied
func startPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("it_assistant"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "error starting postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("error tearing down postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewDB(config.DatabaseConfig{
		Driver:           config.DriverPostgres,
		ConnectionString: connStr,
		MaxOpenConns:     5,
		MaxIdleConns:     1,
		ConnMaxLifetime:  time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema(ctx))
	// Idempotent
	require.NoError(t, db.InitSchema(ctx))
	return db
}

func TestIntegration_ConversationLifecycle(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	convs := NewConversationRepository(db, logger)
	feedback := NewFeedbackRepository(db, logger)
	tm := NewTransactionManager(db, logger)

	require.NoError(t, db.HealthCheck(ctx))

	first := sampleConversation()
	first.Timestamp = time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	second := sampleConversation()
	second.ID = "conv-2"
	second.Relevance = "PARTLY_RELEVANT"
	second.Timestamp = time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, convs.Create(ctx, first))
	require.NoError(t, convs.Create(ctx, second))

	got, err := convs.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Question, got.Question)
	assert.Equal(t, first.EvalTotalTokens, got.EvalTotalTokens)
	assert.True(t, first.Timestamp.Equal(got.Timestamp))

	_, err = convs.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	recent, err := convs.ListRecent(ctx, repositories.ConversationFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "conv-2", recent[0].ID)

	relevant, err := convs.ListRecent(ctx, repositories.ConversationFilter{Relevance: "RELEVANT"})
	require.NoError(t, err)
	require.Len(t, relevant, 1)
	assert.Equal(t, first.ID, relevant[0].ID)

	err = tm.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		exists, err := convs.Exists(ctx, first.ID)
		require.NoError(t, err)
		require.True(t, exists)
		return feedback.Create(ctx, models.NewFeedback(first.ID, models.FeedbackPositive))
	})
	require.NoError(t, err)
	require.NoError(t, feedback.Create(ctx, models.NewFeedback(second.ID, models.FeedbackNegative)))

	stats, err := feedback.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.FeedbackStats{ThumbsUp: 1, ThumbsDown: 1}, stats)

	metrics, err := convs.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.TotalConversations)
	assert.Equal(t, 300, metrics.TotalTokens)
	assert.Equal(t, map[string]int{"RELEVANT": 1, "PARTLY_RELEVANT": 1}, metrics.RelevanceCounts)
}

func TestIntegration_FeedbackRequiresConversation(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	err := NewFeedbackRepository(db, zaptest.NewLogger(t)).
		Create(ctx, models.NewFeedback("does-not-exist", models.FeedbackPositive))
	assert.Error(t, err)
}
