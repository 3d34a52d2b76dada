package rag

import (
	"fmt"
	"strings"
)

const answerPromptTemplate = `You're an IT expert and HR in a company. Answer the QUESTION based on the CONTEXT from our knowledge database.
Use only the facts from the CONTEXT when answering the QUESTION.

QUESTION: %s

CONTEXT:
%s`

const entryTemplate = `Title: %s
Text: %s
Alternative Text: %s`

const evalPromptTemplate = `You are an expert evaluator for a RAG system.
Your task is to analyze the relevance of the generated answer to the given question.
Based on the relevance of the generated answer, you will classify it
as "NON_RELEVANT", "PARTLY_RELEVANT", or "RELEVANT".

Here is the data for evaluation:

Question: %s
Generated Answer: %s

Please analyze the content and context of the generated answer in relation to the question
and provide your evaluation in parsable JSON without using code blocks:

{
  "Relevance": "NON_RELEVANT" | "PARTLY_RELEVANT" | "RELEVANT",
  "Explanation": "[Provide a brief explanation for your evaluation]"
}`

// BuildAnswerPrompt renders the answer prompt with docs as context, in the
// order given. With no docs the CONTEXT section is empty and the prompt is
// still usable.
func BuildAnswerPrompt(question string, docs []Document) string {
	var context strings.Builder
	for _, doc := range docs {
		context.WriteString(fmt.Sprintf(entryTemplate, doc.Title, doc.Text, doc.AltText))
		context.WriteString("\n\n")
	}

	return strings.TrimSpace(fmt.Sprintf(answerPromptTemplate, question, context.String()))
}

// BuildEvalPrompt renders the relevance rubric for a question/answer pair.
func BuildEvalPrompt(question, answer string) string {
	return strings.TrimSpace(fmt.Sprintf(evalPromptTemplate, question, answer))
}
