package rewrite

import (
	"context"
	"strings"

	"docqa-be/pkg/llm"
	"docqa-be/pkg/rag/memory"
	"docqa-be/pkg/rag/prompt"
)

// Rewriter turns follow-up questions into standalone queries before
// retrieval, so the query vector carries the conversational context.
type Rewriter struct {
	llmProvider llm.LLMProvider
}

func NewRewriter(llmProvider llm.LLMProvider) *Rewriter {
	return &Rewriter{llmProvider: llmProvider}
}

// Rewrite returns the question verbatim when there is no history; otherwise
// it asks the model for a self-contained restatement. An empty model reply
// falls back to the original question.
func (r *Rewriter) Rewrite(ctx context.Context, question string, history []memory.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	rewritten, err := r.llmProvider.Generate(ctx,
		prompt.BuildRewritePrompt(history, question),
		llm.WithTemperature(0),
	)
	if err != nil {
		return "", err
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}
