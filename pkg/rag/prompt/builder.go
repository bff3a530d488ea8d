package prompt

import (
	"strings"

	"docqa-be/pkg/rag/memory"
)

// AnswerBuilder assembles the generation prompt from retrieved passages,
// the recent history window and the (rewritten) question.
type AnswerBuilder struct {
	passages []string
	history  []memory.Turn
	question string
}

func NewAnswerBuilder(passages []string, history []memory.Turn, question string) *AnswerBuilder {
	return &AnswerBuilder{
		passages: passages,
		history:  history,
		question: question,
	}
}

func (b *AnswerBuilder) Build() string {
	var prompt strings.Builder

	b.writeReferenceMaterial(&prompt)
	b.writeHistory(&prompt)
	b.writeTask(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

func (b *AnswerBuilder) writeReferenceMaterial(prompt *strings.Builder) {
	if len(b.passages) == 0 {
		return
	}

	prompt.WriteString("<reference_material>\n")
	for i, passage := range b.passages {
		if i > 0 {
			prompt.WriteString("\n---\n")
		}
		prompt.WriteString(passage)
	}
	prompt.WriteString("\n</reference_material>\n\n")
}

func (b *AnswerBuilder) writeHistory(prompt *strings.Builder) {
	if len(b.history) == 0 {
		return
	}

	prompt.WriteString("<conversation_history>\n")
	for _, turn := range b.history {
		prompt.WriteString("User: ")
		prompt.WriteString(turn.Question)
		prompt.WriteString("\nAssistant: ")
		prompt.WriteString(turn.Answer)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation_history>\n\n")
}

func (b *AnswerBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a knowledgeable assistant answering questions about the user's document.\n")
	prompt.WriteString("Base your answer strictly on the reference material provided.\n")
	prompt.WriteString("If the material doesn't contain what's being asked, say so honestly.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *AnswerBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.question)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Now provide your complete response based on the reference material:")
}

// BuildRewritePrompt asks the model to restate a follow-up question as a
// standalone one, resolving pronouns and references to prior turns.
func BuildRewritePrompt(history []memory.Turn, question string) string {
	var prompt strings.Builder

	prompt.WriteString("<conversation_history>\n")
	for _, turn := range history {
		prompt.WriteString("User: ")
		prompt.WriteString(turn.Question)
		prompt.WriteString("\nAssistant: ")
		prompt.WriteString(turn.Answer)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation_history>\n\n")

	prompt.WriteString("<task>\n")
	prompt.WriteString("Rewrite the follow-up question below as a single self-contained question.\n")
	prompt.WriteString("Resolve pronouns and references using the conversation history.\n")
	prompt.WriteString("Reply with the rewritten question only, no explanation.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<follow_up_question>\n")
	prompt.WriteString(question)
	prompt.WriteString("\n</follow_up_question>")

	return prompt.String()
}

// BuildSummaryPrompt produces the concise-summary prompt used right after
// ingestion completes.
func BuildSummaryPrompt(text string) string {
	var prompt strings.Builder

	prompt.WriteString("Write a concise summary of the following document.\n\n")
	prompt.WriteString("\"")
	prompt.WriteString(text)
	prompt.WriteString("\"\n\n")
	prompt.WriteString("CONCISE SUMMARY:")

	return prompt.String()
}

// BuildMergeSummaryPrompt combines partial summaries from the reduce pass
// into one final summary.
func BuildMergeSummaryPrompt(partials []string) string {
	var prompt strings.Builder

	prompt.WriteString("The following are partial summaries of consecutive sections of one document.\n")
	prompt.WriteString("Combine them into a single concise summary of the whole document.\n\n")
	for i, partial := range partials {
		if i > 0 {
			prompt.WriteString("\n---\n")
		}
		prompt.WriteString(partial)
	}
	prompt.WriteString("\n\nCONCISE SUMMARY:")

	return prompt.String()
}
