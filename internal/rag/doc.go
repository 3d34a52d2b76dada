// Package rag holds the retrieval and prompting stages of the assistant:
//   - retrieval of knowledge base entries from the keyword index
//   - answer and evaluation prompt assembly
//   - relevance judgment parsing of the evaluator model's reply
package rag
