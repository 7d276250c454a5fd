package service

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

const answerPrompt = `You are a helpful assistant.
Answer ONLY from the provided transcript context.
If the context is insufficient, just say you don't know.

Context:
%s

Question: %s
`

// FormatContext joins passage texts in rank order, separated by a blank line.
func FormatContext(passages []domain.ScoredPassage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the grounded-answer template.
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(answerPrompt, context, question)
}
