package models

import (
	"time"
)

// Conversation is one answered question together with its pipeline metrics
type Conversation struct {
	ID       string `json:"id" db:"id"`
	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`

	// Generation details
	ModelUsed    string  `json:"model_used" db:"model_used"`
	ResponseTime float64 `json:"response_time" db:"response_time"` // seconds

	// Relevance judgment
	Relevance            string `json:"relevance" db:"relevance"`
	RelevanceExplanation string `json:"relevance_explanation" db:"relevance_explanation"`

	// Answer call usage
	PromptTokens     int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" db:"total_tokens"`

	// Evaluation call usage
	EvalPromptTokens     int `json:"eval_prompt_tokens" db:"eval_prompt_tokens"`
	EvalCompletionTokens int `json:"eval_completion_tokens" db:"eval_completion_tokens"`
	EvalTotalTokens      int `json:"eval_total_tokens" db:"eval_total_tokens"`

	OpenAICost float64   `json:"openai_cost" db:"openai_cost"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation creates a conversation stamped with the current UTC time
func NewConversation(id, question, answer string) *Conversation {
	return &Conversation{
		ID:        id,
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	}
}

// ConversationMetrics aggregates usage over all stored conversations
type ConversationMetrics struct {
	TotalConversations int            `json:"total_conversations"`
	TotalTokens        int            `json:"total_tokens"`
	EvalTotalTokens    int            `json:"eval_total_tokens"`
	TotalCost          float64        `json:"total_cost"`
	AvgResponseTime    float64        `json:"avg_response_time"`
	RelevanceCounts    map[string]int `json:"relevance_counts"`
}
