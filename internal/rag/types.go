package rag

import (
	"context"

	"github.com/upb/it-assistant/services/providers"
)

// Retriever fetches relevant context from a knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts RetrievalOptions) ([]Document, error)
}

// RetrievalOptions configures retrieval behavior. Zero values fall back to
// the retriever defaults.
type RetrievalOptions struct {
	TopK    int
	Filters map[string]string
	Boost   map[string]float64
}

// Document represents a retrieved knowledge base entry.
type Document struct {
	ID       int
	Title    string
	Text     string
	AltText  string
	Metadata map[string]string
	Score    float64
}

// Completer sends a prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, providers.Usage, error)
}
