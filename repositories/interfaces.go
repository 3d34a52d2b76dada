package repositories

import (
	"context"

	"github.com/upb/it-assistant/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

type txContextKey struct{}

// ContextWithTx returns a context carrying tx. Repositories called with this
// context run their statements inside the transaction.
func ContextWithTx(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction stored by ContextWithTx, if any
func TxFromContext(ctx context.Context) (Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(Transaction)
	return tx, ok
}

// DefaultListLimit caps ListRecent when the filter sets no limit
const DefaultListLimit = 20

// ConversationFilter narrows ListRecent results
type ConversationFilter struct {
	Limit int
	// Relevance keeps only conversations with this label when set
	Relevance string
}

// EffectiveLimit returns Limit, or DefaultListLimit when Limit is not positive
func (f ConversationFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// ConversationRepository handles conversation data operations
type ConversationRepository interface {
	// Create stores a new conversation
	Create(ctx context.Context, conv *models.Conversation) error

	// GetByID retrieves a conversation by ID
	GetByID(ctx context.Context, id string) (*models.Conversation, error)

	// Exists reports whether a conversation with the given ID is stored
	Exists(ctx context.Context, id string) (bool, error)

	// ListRecent retrieves the newest conversations first
	ListRecent(ctx context.Context, filter ConversationFilter) ([]*models.Conversation, error)

	// GetMetrics retrieves aggregate usage metrics
	GetMetrics(ctx context.Context) (*models.ConversationMetrics, error)
}

// FeedbackRepository handles feedback data operations
type FeedbackRepository interface {
	// Create stores a new feedback entry and sets its ID
	Create(ctx context.Context, fb *models.Feedback) error

	// GetStats counts positive and negative feedback
	GetStats(ctx context.Context) (*models.FeedbackStats, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Conversations ConversationRepository
	Feedback      FeedbackRepository
}
