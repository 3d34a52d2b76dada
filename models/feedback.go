package models

import (
	"time"
)

// Feedback values
const (
	FeedbackPositive = 1
	FeedbackNegative = -1
)

// Feedback is a thumbs up or down on a stored conversation
type Feedback struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Value          int       `json:"feedback" db:"feedback"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the Feedback model
func (Feedback) TableName() string {
	return "feedback"
}

// NewFeedback creates a feedback entry stamped with the current UTC time
func NewFeedback(conversationID string, value int) *Feedback {
	return &Feedback{
		ConversationID: conversationID,
		Value:          value,
		Timestamp:      time.Now().UTC(),
	}
}

// IsValidFeedback reports whether value is +1 or -1
func IsValidFeedback(value int) bool {
	return value == FeedbackPositive || value == FeedbackNegative
}

// FeedbackStats counts positive and negative feedback
type FeedbackStats struct {
	ThumbsUp   int `json:"thumbs_up" db:"thumbs_up"`
	ThumbsDown int `json:"thumbs_down" db:"thumbs_down"`
}
