package llm

import (
	"fmt"
	"strings"

	"medrag/internal/model"
)

// RefusalSentinel is the exact phrase the model is instructed to emit
// when the passages do not contain an answer. Callers match on it to
// distinguish a grounded refusal from a grounded answer.
const RefusalSentinel = "This information is not available in the provided documents"

const systemPrompt = `You are a medical document assistant. You answer questions using ONLY the provided document excerpts.

CRITICAL RULES:
1. Answer ONLY from the excerpts below. Do not use outside knowledge.
2. If the excerpts do not contain the answer, reply exactly: "` + RefusalSentinel + `"
3. Do not speculate, infer beyond the text, or give medical advice.
4. Do not add citations or references; provenance is attached separately.
5. Quote values (doses, measurements, dates) exactly as written.`

// BuildPrompt constructs the user prompt from the query and its passages.
func BuildPrompt(query string, passages []model.RetrievedCandidate) string {
	var b strings.Builder

	b.WriteString("Document excerpts:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[Excerpt %d, %s page %d]\n%s\n",
			i+1, p.Passage.SourceDocument, p.Passage.PageNumber, p.Passage.Text)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", query)
	b.WriteString("\nAnswer using only the excerpts above.")

	return b.String()
}
