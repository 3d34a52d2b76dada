// Package sqlite stores conversations and feedback in a single SQLite file.
// It backs local runs and tests where no postgres server is available.
package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/upb/it-assistant/repositories"
	"go.uber.org/zap"
)

// Store wraps the sqlx connection to a SQLite database
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to the database at path and applies the schema.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases alive
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite database opened", zap.String("path", path))
	return s, nil
}

// InitSchema creates the tables if they do not exist
func (s *Store) InitSchema(ctx context.Context) error {
	statements := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			model_used TEXT NOT NULL,
			response_time REAL NOT NULL,
			relevance TEXT NOT NULL,
			relevance_explanation TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			eval_prompt_tokens INTEGER NOT NULL,
			eval_completion_tokens INTEGER NOT NULL,
			eval_total_tokens INTEGER NOT NULL,
			openai_cost REAL NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT REFERENCES conversations(id),
			feedback INTEGER NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_conversation_id ON feedback(conversation_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// HealthCheck pings the database and runs a trivial query
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	var result int
	if err := s.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}
	return nil
}

// NewRepositories creates all repository instances backed by this store
func (s *Store) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Conversations: NewConversationRepository(s, s.logger),
		Feedback:      NewFeedbackRepository(s, s.logger),
	}
}

// Close closes the database
func (s *Store) Close() error {
	s.logger.Info("closing sqlite database")
	return s.db.Close()
}

// executor returns the transaction carried by ctx, or the database itself
func (s *Store) executor(ctx context.Context) sqlx.ExtContext {
	if tx, ok := repositories.TxFromContext(ctx); ok {
		if sqlTx, ok := tx.(*Transaction); ok {
			return sqlTx.tx
		}
	}
	return s.db
}
