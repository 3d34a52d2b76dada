package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultLimit is the number of results returned when no limit is given.
const DefaultLimit = 10

var (
	// ErrEmptyIndex is returned when building an index with no documents.
	ErrEmptyIndex = errors.New("search: no documents to index")
	// ErrNoTextFields is returned when building an index without text fields.
	ErrNoTextFields = errors.New("search: at least one text field is required")
)

// Document is a single knowledge base row keyed by column name.
type Document map[string]string

// Get returns the value of field, or "" when the field is absent.
func (d Document) Get(field string) string {
	return d[field]
}

// Posting records the normalized TF-IDF weight of a term in one document field.
type Posting struct {
	DocID  int
	Weight float64
}

// PostingList is the list of documents containing a term, in document order.
type PostingList []Posting

// fieldIndex holds the vocabulary statistics of one text field.
type fieldIndex struct {
	idf      map[string]float64
	postings map[string]PostingList
}

// Index is an immutable TF-IDF index over a fixed document set.
type Index struct {
	docs          []Document
	textFields    []string
	keywordFields map[string]struct{}
	fields        map[string]*fieldIndex
}

// SearchOptions controls ranking and result size.
type SearchOptions struct {
	// Boost multiplies each text field's score. Fields not present default to 1.
	Boost map[string]float64
	// Filters keeps only documents whose keyword field equals the given value.
	Filters map[string]string
	// Limit caps the result count. Values <= 0 use DefaultLimit.
	Limit int
}

// Result is a ranked document.
type Result struct {
	Document Document
	Position int
	Score    float64
}

// Build indexes docs. Text fields are scored with TF-IDF; keyword fields are
// only used for exact-match filtering.
func Build(docs []Document, textFields, keywordFields []string) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(textFields) == 0 {
		return nil, ErrNoTextFields
	}

	idx := &Index{
		docs:          docs,
		textFields:    append([]string(nil), textFields...),
		keywordFields: make(map[string]struct{}, len(keywordFields)),
		fields:        make(map[string]*fieldIndex, len(textFields)),
	}
	for _, f := range keywordFields {
		idx.keywordFields[f] = struct{}{}
	}

	for _, field := range textFields {
		if _, dup := idx.fields[field]; dup {
			return nil, fmt.Errorf("search: duplicate text field %q", field)
		}
		idx.fields[field] = buildField(docs, field)
	}

	return idx, nil
}

func buildField(docs []Document, field string) *fieldIndex {
	n := float64(len(docs))

	docTerms := make([]map[string]float64, len(docs))
	df := make(map[string]float64)
	for i, doc := range docs {
		tf := termFrequencies(Tokenize(doc.Get(field)))
		docTerms[i] = tf
		for term := range tf {
			df[term]++
		}
	}

	fi := &fieldIndex{
		idf:      make(map[string]float64, len(df)),
		postings: make(map[string]PostingList, len(df)),
	}
	for term, count := range df {
		// Smoothed idf: ln((1+n)/(1+df)) + 1
		fi.idf[term] = math.Log((1+n)/(1+count)) + 1
	}

	for docID, tf := range docTerms {
		weights := fi.weigh(tf)
		for term, w := range weights {
			fi.postings[term] = append(fi.postings[term], Posting{DocID: docID, Weight: w})
		}
	}
	return fi
}

// weigh turns raw term counts into an L2-normalized TF-IDF vector. Terms
// outside the field vocabulary are dropped.
func (fi *fieldIndex) weigh(tf map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(tf))
	var norm float64
	for term, count := range tf {
		idf, ok := fi.idf[term]
		if !ok {
			continue
		}
		w := count * idf
		weights[term] = w
		norm += w * w
	}
	if norm == 0 {
		return weights
	}
	norm = math.Sqrt(norm)
	for term := range weights {
		weights[term] /= norm
	}
	return weights
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.docs)
}

// TextFields returns the scored fields in build order.
func (idx *Index) TextFields() []string {
	return append([]string(nil), idx.textFields...)
}

// Search ranks documents against query. Results are ordered by descending
// score with ties in index order. Documents scoring zero are still returned
// after all positive matches, so an empty query yields the first documents
// in index order.
func (idx *Index) Search(query string, opts SearchOptions) []Result {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	scores := make([]float64, len(idx.docs))
	queryTF := termFrequencies(Tokenize(query))

	for _, field := range idx.textFields {
		boost, ok := opts.Boost[field]
		if !ok {
			boost = 1
		}
		// NaN, infinite and negative weights would break the score order.
		if !(boost > 0) || math.IsInf(boost, 1) {
			continue
		}

		fi := idx.fields[field]
		for term, qw := range fi.weigh(queryTF) {
			for _, p := range fi.postings[term] {
				scores[p.DocID] += boost * qw * p.Weight
			}
		}
	}

	candidates := make([]Result, 0, len(idx.docs))
	for i, doc := range idx.docs {
		if !idx.matches(doc, opts.Filters) {
			continue
		}
		candidates = append(candidates, Result{Document: doc, Position: i, Score: scores[i]})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// matches applies keyword filters. Filters on fields that were not declared
// as keyword fields are ignored.
func (idx *Index) matches(doc Document, filters map[string]string) bool {
	for field, want := range filters {
		if _, ok := idx.keywordFields[field]; !ok {
			continue
		}
		if doc.Get(field) != want {
			return false
		}
	}
	return true
}
