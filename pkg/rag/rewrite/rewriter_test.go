package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa-be/pkg/llm"
	"docqa-be/pkg/rag/memory"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
	last  string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.calls++
	f.last = prompt
	return f.reply, f.err
}

func TestRewriteFirstQuestionIsVerbatim(t *testing.T) {
	fake := &fakeLLM{reply: "should never be used"}
	r := NewRewriter(fake)

	got, err := r.Rewrite(context.Background(), "What is chapter one about?", nil)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "What is chapter one about?" {
		t.Errorf("got %q, want the original question", got)
	}
	if fake.calls != 0 {
		t.Errorf("model called %d times for an empty history, want 0", fake.calls)
	}
}

func TestRewriteUsesHistory(t *testing.T) {
	fake := &fakeLLM{reply: "What does chapter two say about error handling?"}
	r := NewRewriter(fake)
	history := []memory.Turn{
		{Seq: 1, Question: "What is chapter two about?", Answer: "Error handling."},
	}

	got, err := r.Rewrite(context.Background(), "Tell me more about it", history)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != fake.reply {
		t.Errorf("got %q, want the model's restatement", got)
	}
	if fake.calls != 1 {
		t.Errorf("model called %d times, want 1", fake.calls)
	}
	if !strings.Contains(fake.last, "What is chapter two about?") {
		t.Error("prompt does not carry the prior turn")
	}
	if !strings.Contains(fake.last, "Tell me more about it") {
		t.Error("prompt does not carry the follow-up question")
	}
}

func TestRewriteEmptyReplyFallsBack(t *testing.T) {
	fake := &fakeLLM{reply: "   \n"}
	r := NewRewriter(fake)
	history := []memory.Turn{{Seq: 1, Question: "q", Answer: "a"}}

	got, err := r.Rewrite(context.Background(), "and then?", history)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if got != "and then?" {
		t.Errorf("got %q, want fallback to the original question", got)
	}
}

func TestRewritePropagatesProviderError(t *testing.T) {
	fake := &fakeLLM{err: llm.ErrUnavailable}
	r := NewRewriter(fake)
	history := []memory.Turn{{Seq: 1, Question: "q", Answer: "a"}}

	_, err := r.Rewrite(context.Background(), "and then?", history)
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
