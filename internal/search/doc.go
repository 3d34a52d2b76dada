// Package search implements the in-memory keyword index over the IT
// knowledge base.
//
// Each text field is scored independently with TF-IDF and cosine
// similarity; field scores are multiplied by per-field boosts and summed.
// Keyword fields act as exact-match filters. The index is built once at
// startup and is read-only afterwards, so it is safe for concurrent use.
package search
