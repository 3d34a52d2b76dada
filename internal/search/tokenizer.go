package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wordRegex matches runs of letters, digits and underscores.
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// minTokenLength drops single-character tokens such as "a" or "I".
const minTokenLength = 2

// stopWords are common English words that carry no retrieval signal.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "all": {}, "also": {}, "am": {}, "an": {}, "and": {}, "any": {},
	"are": {}, "as": {}, "at": {}, "be": {}, "been": {}, "before": {}, "being": {}, "but": {},
	"by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "for": {},
	"from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {}, "here": {}, "him": {},
	"his": {}, "how": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {},
	"me": {}, "my": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"she": {}, "should": {}, "so": {}, "than": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {}, "to": {}, "too": {},
	"us": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {}, "would": {}, "you": {},
	"your": {},
}

// Tokenize lowercases text and splits it into word tokens, dropping short
// tokens and English stop words. Documents and queries go through the same
// function so their vocabularies line up.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTokenLength {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// termFrequencies counts raw occurrences of each token.
func termFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
