package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa-be/internal/pkg/logger"
	"docqa-be/pkg/embedding"
	"docqa-be/pkg/llm"
	"docqa-be/pkg/rag/chunker"
	"docqa-be/pkg/rag/index"
	"docqa-be/pkg/rag/session"
)

const fakeDim = 4

// fakeEmbedder produces fixed-dimension vectors derived from text length.
type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, fakeDim)
	vec[len(text)%fakeDim] = 1
	return vec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// scriptedLLM records prompts and replies with a fixed answer. The optional
// hook runs during Generate, after the prompt is recorded.
type scriptedLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	hook    func()
}

func (f *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", errors.New("empty history")
	}
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *scriptedLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply, err, hook := f.reply, f.err, f.hook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (f *scriptedLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func testChatConfig() ChatConfig {
	return ChatConfig{
		TopK:           2,
		HistoryWindow:  10,
		SummaryBudget:  12000,
		RequestTimeout: 5 * time.Second,
	}
}

func readySession(t *testing.T, sessions *session.Manager, chunkTexts ...string) *session.Session {
	t.Helper()
	sess := sessions.Create()
	require.NoError(t, sess.BeginIngestion())

	idx, err := index.New(fakeDim)
	require.NoError(t, err)
	for i, text := range chunkTexts {
		vec := make([]float32, fakeDim)
		vec[len(text)%fakeDim] = 1
		require.NoError(t, idx.Insert(chunker.Chunk{Index: i, Text: text}, vec))
	}
	idx.Seal()
	require.NoError(t, sess.CompleteIngestion(idx))
	return sess
}

func TestAnswerAppendsOriginalQuestion(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{reply: "  The document covers concurrency.  "}
	cs := NewChatService(sessions, &fakeEmbedder{}, model, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "goroutines and channels", "errors are values")

	answer, err := cs.Answer(context.Background(), sess.ID, "what about concurrency?")
	require.NoError(t, err)
	assert.Equal(t, "The document covers concurrency.", answer)

	turns := sess.Conversation().All()
	require.Len(t, turns, 1)
	assert.Equal(t, "what about concurrency?", turns[0].Question)
	assert.Equal(t, "The document covers concurrency.", turns[0].Answer)

	// First question of a session: no history, so no rewrite call. The one
	// model call is the answer generation and it carries the passages.
	assert.Equal(t, 1, model.callCount())
	assert.Contains(t, model.prompts[0], "<reference_material>")
}

func TestAnswerRewritesFollowUps(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{reply: "an answer"}
	cs := NewChatService(sessions, &fakeEmbedder{}, model, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "chapter text")
	sess.Conversation().Append("what is chapter one?", "concurrency")

	_, err := cs.Answer(context.Background(), sess.ID, "tell me more")
	require.NoError(t, err)

	// Rewrite call first, then generation.
	require.Equal(t, 2, model.callCount())
	assert.Contains(t, model.prompts[0], "<follow_up_question>")
	assert.Contains(t, model.prompts[0], "what is chapter one?")
}

func TestAnswerGenerationFailureLeavesNoTurn(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{err: llm.ErrUnavailable}
	cs := NewChatService(sessions, &fakeEmbedder{}, model, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "chapter text")

	_, err := cs.Answer(context.Background(), sess.ID, "anything?")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, 0, sess.Conversation().Len())
	assert.Equal(t, session.StateReady, sess.State())

	// The session stays usable for the next attempt.
	model.mu.Lock()
	model.err = nil
	model.reply = "recovered"
	model.mu.Unlock()
	answer, err := cs.Answer(context.Background(), sess.ID, "anything?")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	cs := NewChatService(sessions, &fakeEmbedder{err: embedding.ErrUnavailable}, &scriptedLLM{reply: "x"}, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "chapter text")

	_, err := cs.Answer(context.Background(), sess.ID, "anything?")
	assert.ErrorIs(t, err, embedding.ErrUnavailable)
	assert.Equal(t, 0, sess.Conversation().Len())
}

func TestAnswerSessionStates(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	cs := NewChatService(sessions, &fakeEmbedder{}, &scriptedLLM{reply: "x"}, testChatConfig(), logger.NewNopLogger())

	t.Run("unknown session", func(t *testing.T) {
		_, err := cs.Answer(context.Background(), uuid.New(), "q")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("idle session", func(t *testing.T) {
		sess := sessions.Create()
		_, err := cs.Answer(context.Background(), sess.ID, "q")
		assert.ErrorIs(t, err, session.ErrNotReady)
	})

	t.Run("busy session", func(t *testing.T) {
		sess := readySession(t, sessions, "text")
		require.NoError(t, sess.BeginQuery())
		defer sess.EndQuery()

		_, err := cs.Answer(context.Background(), sess.ID, "q")
		assert.ErrorIs(t, err, session.ErrBusy)
	})
}

func TestAnswerDiscardedWhenSessionClosesMidGeneration(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{reply: "an answer nobody will see"}
	cs := NewChatService(sessions, &fakeEmbedder{}, model, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "chapter text")
	conv := sess.Conversation()
	model.hook = func() { sessions.Close(sess.ID) }

	_, err := cs.Answer(context.Background(), sess.ID, "anything?")
	assert.ErrorIs(t, err, ErrAnswerDiscarded)

	// The generated answer is dropped: no turn recorded, session gone.
	assert.Equal(t, 0, conv.Len())
	_, err = sessions.Get(sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSummarizeSinglePass(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{reply: "a concise summary"}
	cs := NewChatService(sessions, &fakeEmbedder{}, model, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "short chunk one", "short chunk two")

	summary, err := cs.Summarize(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "a concise summary", summary)
	require.Equal(t, 1, model.callCount())
	assert.Contains(t, model.prompts[0], "CONCISE SUMMARY:")
	assert.Contains(t, model.prompts[0], "short chunk one")
	assert.Contains(t, model.prompts[0], "short chunk two")
}

func TestSummarizeReducesOversizedDocuments(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	model := &scriptedLLM{reply: "partial"}
	cfg := testChatConfig()
	cfg.SummaryBudget = 40
	cs := NewChatService(sessions, &fakeEmbedder{}, model, cfg, logger.NewNopLogger())

	chunks := make([]string, 4)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk %d %s", i, strings.Repeat("w", 25))
	}
	sess := readySession(t, sessions, chunks...)

	_, err := cs.Summarize(context.Background(), sess)
	require.NoError(t, err)

	// Each chunk exceeds half the budget, so four partial calls plus the
	// final merge.
	require.Equal(t, 5, model.callCount())
	merge := model.prompts[len(model.prompts)-1]
	assert.Contains(t, merge, "partial summaries")
}

func TestHistoryReturnsFullTranscript(t *testing.T) {
	sessions := session.NewManager(time.Minute, logger.NewNopLogger())
	cs := NewChatService(sessions, &fakeEmbedder{}, &scriptedLLM{reply: "x"}, testChatConfig(), logger.NewNopLogger())

	sess := readySession(t, sessions, "text")
	for i := 0; i < 3; i++ {
		sess.Conversation().Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns, err := cs.History(sess.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 3)

	_, err = cs.History(uuid.New())
	assert.ErrorIs(t, err, session.ErrNotFound)
}
