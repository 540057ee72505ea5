package rag

import (
	"fmt"
	"strings"

	"kbot/internal/memory"
)

// answerTemplate is the fixed instruction wrapper around retrieved context
// and the (history-laden) question.
const answerTemplate = `You are a friendly and helpful Knowledge Assistant called "K-Bot".
Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Keep the answer concise but friendly and helpful.

Context: %s

Question: %s

Helpful Answer:`

// historyPrompt embeds the role-prefixed conversation so far plus the new
// question. Its output doubles as the retrieval query, so earlier turns can
// steer which chunks come back.
func historyPrompt(history []memory.Message, question string) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return fmt.Sprintf(`Previous conversation:
%s

New question: %s

Answer in a friendly and helpful manner:`, strings.Join(lines, "\n"), question)
}

// groundingContext joins retrieved chunk texts with blank lines.
func groundingContext(texts []string) string {
	return strings.Join(texts, "\n\n")
}
