package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"strings"
	"time"

	"github.com/fatih/color"

	"docqa-be/internal/pkg/logger"
	"docqa-be/internal/service"
	"docqa-be/pkg/llm"
	"docqa-be/pkg/rag/chunker"
	"docqa-be/pkg/rag/index"
	"docqa-be/pkg/rag/session"
)

// In-process walkthrough of the document Q&A pipeline with deterministic
// stand-in providers. No server, no network: useful for eyeballing the
// chunk -> embed -> retrieve -> prompt flow.

const sampleDocument = `The Gopher Handbook. Chapter one covers concurrency:
goroutines are lightweight threads managed by the Go runtime, and channels
are the idiomatic way to communicate between them. Chapter two covers error
handling: errors are values, and sentinel errors are compared with errors.Is.
Chapter three covers testing: table-driven tests keep cases compact and the
testing package needs no framework. Chapter four covers modules: go.mod
declares the module path and its dependency requirements.`

func main() {
	color.Cyan("=== Document Q&A Pipeline Simulation ===")

	appLogger := logger.NewIsolatedLogger("logs/simulate.log")
	defer appLogger.Sync()

	sessions := session.NewManager(10*time.Minute, appLogger)
	embedder := &termHashEmbedder{dim: 64}
	model := &cannedLLM{}

	chatService := service.NewChatService(sessions, embedder, model, service.ChatConfig{
		TopK:           2,
		HistoryWindow:  10,
		SummaryBudget:  12000,
		RequestTimeout: 5 * time.Second,
	}, appLogger)

	ctx := context.Background()

	// 1. Session + ingestion (inline, instead of going through the queue)
	sess := sessions.Create()
	color.Green("Session created: %s", sess.ID)

	if err := sess.BeginIngestion(); err != nil {
		log.Fatalf("begin ingestion: %v", err)
	}

	splitter := chunker.NewSplitter(120, 24)
	chunks, err := splitter.Split(sampleDocument)
	if err != nil {
		log.Fatalf("split: %v", err)
	}
	color.Green("Document split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Fatalf("embed: %v", err)
	}

	idx, err := index.New(len(vectors[0]))
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	for i, c := range chunks {
		if err := idx.Insert(c, vectors[i]); err != nil {
			log.Fatalf("insert: %v", err)
		}
	}
	idx.Seal()
	if err := sess.CompleteIngestion(idx); err != nil {
		log.Fatalf("complete ingestion: %v", err)
	}
	color.Green("Index sealed, session is %s", sess.State())

	// 2. Auto-summary
	summary, err := chatService.Summarize(ctx, sess)
	if err != nil {
		log.Fatalf("summarize: %v", err)
	}
	sess.SetSummary(summary)
	color.Yellow("SUMMARY: %s", summary)

	// 3. Questions, including a follow-up that exercises the rewriter
	questions := []string{
		"What does the handbook say about concurrency?",
		"And what about testing?",
	}
	for _, q := range questions {
		color.White("\nUSER: %s", q)
		start := time.Now()
		answer, err := chatService.Answer(ctx, sess.ID, q)
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		color.Yellow("AI (%v): %s", time.Since(start).Round(time.Millisecond), answer)
	}

	// 4. Transcript
	turns, err := chatService.History(sess.ID)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	color.Cyan("\nTranscript: %d turns recorded", len(turns))

	sessions.Close(sess.ID)
	color.Cyan("Session closed, state: %s", sess.State())
}

// termHashEmbedder maps each word to a hashed dimension; overlapping
// vocabulary produces overlapping vectors, which is all retrieval needs here.
type termHashEmbedder struct {
	dim int
}

func (e *termHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(word, ".,:;!?\"'")))
		vec[h.Sum32()%uint32(e.dim)]++
	}
	return vec, nil
}

func (e *termHashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// cannedLLM answers by echoing what the prompt carried, so the simulation
// shows which passages retrieval picked.
type cannedLLM struct{}

func (c *cannedLLM) Chat(ctx context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("empty history")
	}
	return c.Generate(ctx, history[len(history)-1].Content)
}

func (c *cannedLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "<follow_up_question>"):
		q := extractBetween(prompt, "<follow_up_question>\n", "\n</follow_up_question>")
		return "What does the handbook say about testing? (rewritten from: " + q + ")", nil
	case strings.Contains(prompt, "CONCISE SUMMARY:"):
		return "A handbook covering Go concurrency, error handling, testing and modules.", nil
	case strings.Contains(prompt, "<reference_material>"):
		material := extractBetween(prompt, "<reference_material>\n", "\n</reference_material>")
		first := material
		if i := strings.Index(material, "\n---\n"); i >= 0 {
			first = material[:i]
		}
		return "Based on the document: " + strings.TrimSpace(first), nil
	default:
		return "I don't have enough material to answer that.", nil
	}
}

func extractBetween(s, open, end string) string {
	start := strings.Index(s, open)
	if start < 0 {
		return ""
	}
	start += len(open)
	stop := strings.Index(s[start:], end)
	if stop < 0 {
		return s[start:]
	}
	return strings.TrimSpace(s[start : start+stop])
}
