package rag

import (
	"context"

	"github.com/upb/it-assistant/internal/search"
)

// DefaultTopK is the number of documents passed to the answer prompt.
const DefaultTopK = 10

// DefaultBoost weighs title matches above body matches.
func DefaultBoost() map[string]float64 {
	return map[string]float64{
		search.FieldTitle:   1.5,
		search.FieldText:    1,
		search.FieldAltText: 1,
	}
}

// KnowledgeRetriever answers retrieval requests from the in-memory index.
type KnowledgeRetriever struct {
	index *search.Index
	boost map[string]float64
	topK  int
}

// NewKnowledgeRetriever wraps index. A nil boost or non-positive topK uses the defaults.
func NewKnowledgeRetriever(index *search.Index, boost map[string]float64, topK int) *KnowledgeRetriever {
	if boost == nil {
		boost = DefaultBoost()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &KnowledgeRetriever{index: index, boost: boost, topK: topK}
}

// Retrieve returns up to TopK documents ranked by boosted keyword score.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string, opts RetrievalOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = r.topK
	}
	boost := opts.Boost
	if boost == nil {
		boost = r.boost
	}

	results := r.index.Search(query, search.SearchOptions{
		Boost:   boost,
		Filters: opts.Filters,
		Limit:   topK,
	})

	docs := make([]Document, 0, len(results))
	for _, res := range results {
		docs = append(docs, toDocument(res))
	}
	return docs, nil
}

// Size returns the number of indexed documents.
func (r *KnowledgeRetriever) Size() int {
	return r.index.Len()
}

func toDocument(res search.Result) Document {
	doc := Document{
		ID:      res.Position,
		Title:   res.Document.Get(search.FieldTitle),
		Text:    res.Document.Get(search.FieldText),
		AltText: res.Document.Get(search.FieldAltText),
		Score:   res.Score,
	}
	for k, v := range res.Document {
		switch k {
		case search.FieldTitle, search.FieldText, search.FieldAltText:
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string)
		}
		doc.Metadata[k] = v
	}
	return doc
}
