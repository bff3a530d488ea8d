package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa-be/internal/pkg/logger"
	"docqa-be/pkg/embedding"
	"docqa-be/pkg/llm"
	"docqa-be/pkg/rag/chunker"
	"docqa-be/pkg/rag/memory"
	"docqa-be/pkg/rag/prompt"
	"docqa-be/pkg/rag/rewrite"
	"docqa-be/pkg/rag/session"
)

// ErrGenerationFailed wraps any capability failure during the answer
// pipeline. The session stays Ready; only this query is lost.
var ErrGenerationFailed = errors.New("generation failed")

// ErrAnswerDiscarded means the session closed while its answer was being
// generated. The answer is dropped without a user-visible message.
var ErrAnswerDiscarded = errors.New("answer discarded: session closed during generation")

// ChatConfig holds the tunables of the answer pipeline.
type ChatConfig struct {
	TopK           int
	HistoryWindow  int
	SummaryBudget  int
	RequestTimeout time.Duration
}

// IChatService is the generation orchestrator: it answers one question on a
// Ready session and produces the post-ingestion summary.
type IChatService interface {
	Answer(ctx context.Context, sessionId uuid.UUID, question string) (string, error)
	Summarize(ctx context.Context, sess *session.Session) (string, error)
	History(sessionId uuid.UUID) ([]memory.Turn, error)
}

type chatService struct {
	sessions    *session.Manager
	embedder    embedding.Provider
	llmProvider llm.LLMProvider
	rewriter    *rewrite.Rewriter
	cfg         ChatConfig
	logger      logger.ILogger
}

func NewChatService(
	sessions *session.Manager,
	embedder embedding.Provider,
	llmProvider llm.LLMProvider,
	cfg ChatConfig,
	log logger.ILogger,
) IChatService {
	return &chatService{
		sessions:    sessions,
		embedder:    embedder,
		llmProvider: llmProvider,
		rewriter:    rewrite.NewRewriter(llmProvider),
		cfg:         cfg,
		logger:      log,
	}
}

// Answer runs the full query pipeline: rewrite -> embed -> retrieve ->
// prompt -> generate -> append turn. Any failure before the append leaves
// Conversation Memory untouched and the session Ready.
func (cs *chatService) Answer(ctx context.Context, sessionId uuid.UUID, question string) (string, error) {
	sess, err := cs.sessions.Get(sessionId)
	if err != nil {
		return "", err
	}

	if err := sess.BeginQuery(); err != nil {
		return "", err
	}
	defer sess.EndQuery()

	conv := sess.Conversation()
	idx := sess.Index()
	if conv == nil || idx == nil {
		return "", session.ErrNotReady
	}
	history := conv.History(cs.cfg.HistoryWindow)

	// 1. Rewrite follow-ups into a standalone question
	rewritten, err := cs.withTimeout(ctx, func(callCtx context.Context) (string, error) {
		return cs.rewriter.Rewrite(callCtx, question, history)
	})
	if err != nil {
		return "", fmt.Errorf("%w: rewrite query: %v", ErrGenerationFailed, err)
	}

	// 2. Embed the rewritten question
	callCtx, cancel := context.WithTimeout(ctx, cs.cfg.RequestTimeout)
	queryVec, err := cs.embedder.Embed(callCtx, rewritten)
	cancel()
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	// 3. Retrieve top-k passages
	results, err := idx.Query(queryVec, cs.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("%w: retrieve: %v", ErrGenerationFailed, err)
	}
	passages := make([]string, len(results))
	for i, res := range results {
		passages[i] = res.Chunk.Text
	}

	// 4. Generate
	answer, err := cs.withTimeout(ctx, func(callCtx context.Context) (string, error) {
		return cs.llmProvider.Generate(callCtx, prompt.NewAnswerBuilder(passages, history, rewritten).Build())
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate: %v", ErrGenerationFailed, err)
	}
	answer = strings.TrimSpace(answer)

	// 5. Append the turn — with the ORIGINAL question, not the rewritten one.
	// If the session closed while we were generating, discard the answer.
	if sess.State() != session.StateReady {
		cs.logger.Warn("ChatService", "Session closed mid-generation, answer discarded", map[string]interface{}{
			"session_id": sessionId,
		})
		return "", ErrAnswerDiscarded
	}
	turn := conv.Append(question, answer)

	cs.logger.Info("ChatService", "Answer produced", map[string]interface{}{
		"session_id": sessionId,
		"turn_seq":   turn.Seq,
		"passages":   len(passages),
	})

	return answer, nil
}

// Summarize produces the one-shot document summary sent as the first
// channel message after ingestion. Oversized documents are reduced in two
// passes: chunk groups are summarized separately, then the partial
// summaries are merged.
func (cs *chatService) Summarize(ctx context.Context, sess *session.Session) (string, error) {
	idx := sess.Index()
	if idx == nil {
		return "", session.ErrNotReady
	}
	chunks := idx.Chunks()

	total := 0
	for _, c := range chunks {
		total += len(c.Text)
	}

	if total <= cs.cfg.SummaryBudget {
		return cs.withTimeout(ctx, func(callCtx context.Context) (string, error) {
			return cs.llmProvider.Generate(callCtx, prompt.BuildSummaryPrompt(joinChunks(chunks)))
		})
	}

	// Reduce pass: groups are built in chunk order so the merge sees the
	// document front to back.
	var partials []string
	for _, group := range groupByBudget(chunks, cs.cfg.SummaryBudget) {
		partial, err := cs.withTimeout(ctx, func(callCtx context.Context) (string, error) {
			return cs.llmProvider.Generate(callCtx, prompt.BuildSummaryPrompt(joinChunks(group)))
		})
		if err != nil {
			return "", err
		}
		partials = append(partials, strings.TrimSpace(partial))
	}

	return cs.withTimeout(ctx, func(callCtx context.Context) (string, error) {
		return cs.llmProvider.Generate(callCtx, prompt.BuildMergeSummaryPrompt(partials))
	})
}

// History returns the full transcript for the user-facing endpoint.
func (cs *chatService) History(sessionId uuid.UUID) ([]memory.Turn, error) {
	sess, err := cs.sessions.Get(sessionId)
	if err != nil {
		return nil, err
	}
	conv := sess.Conversation()
	if conv == nil {
		return nil, session.ErrNotReady
	}
	return conv.All(), nil
}

func (cs *chatService) withTimeout(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, cs.cfg.RequestTimeout)
	defer cancel()
	return fn(callCtx)
}

func joinChunks(chunks []chunker.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.Text)
	}
	return b.String()
}

func groupByBudget(chunks []chunker.Chunk, budget int) [][]chunker.Chunk {
	var groups [][]chunker.Chunk
	var current []chunker.Chunk
	size := 0
	for _, c := range chunks {
		if size > 0 && size+len(c.Text) > budget {
			groups = append(groups, current)
			current = nil
			size = 0
		}
		current = append(current, c)
		size += len(c.Text)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
