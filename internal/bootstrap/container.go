package bootstrap

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"docqa-be/internal/config"
	"docqa-be/internal/controller"
	"docqa-be/internal/pkg/logger"
	"docqa-be/internal/service"
	"docqa-be/internal/websocket"
	"docqa-be/pkg/embedding"
	"docqa-be/pkg/llm/factory"
	"docqa-be/pkg/rag/chunker"
	"docqa-be/pkg/rag/session"
)

// Container wires every dependency of the application in one place.
type Container struct {
	Logger   logger.ILogger
	PubSub   *gochannel.GoChannel
	Sessions *session.Manager

	Embedder    embedding.Provider
	ChatService service.IChatService
	Ingestion   service.IIngestionService

	WebSocketHub      *websocket.Hub
	SessionController controller.ISessionController
}

func NewContainer(cfg *config.Config) (*Container, error) {
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	sessions := session.NewManager(cfg.Session.DetachTTL, appLogger)

	embedder, err := newEmbeddingProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedding provider: %w", err)
	}
	// One bounded retry absorbs transient provider hiccups without turning
	// a real outage into a stall.
	embedder = embedding.WithRetry(embedder, 2*time.Second)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIKey,
		cfg.Ai.RequestTimeout,
	)
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}

	chatService := service.NewChatService(sessions, embedder, llmProvider, service.ChatConfig{
		TopK:           cfg.Rag.TopK,
		HistoryWindow:  cfg.Rag.HistoryWindow,
		SummaryBudget:  cfg.Rag.SummaryBudget,
		RequestTimeout: cfg.Ai.RequestTimeout,
	}, appLogger)

	hub := websocket.NewHub(sessions, chatService, appLogger)
	go hub.Run()

	splitter := chunker.NewSplitter(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)

	ingestionService := service.NewIngestionService(
		pubSub,
		cfg.App.IngestTopic,
		sessions,
		splitter,
		embedder,
		chatService,
		hub,
		cfg.Ai.RequestTimeout,
		appLogger,
	)

	sessionController := controller.NewSessionController(sessions, ingestionService, chatService)

	return &Container{
		Logger:            appLogger,
		PubSub:            pubSub,
		Sessions:          sessions,
		Embedder:          embedder,
		ChatService:       chatService,
		Ingestion:         ingestionService,
		WebSocketHub:      hub,
		SessionController: sessionController,
	}, nil
}

func newEmbeddingProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.RequestTimeout), nil
	case "openai":
		return embedding.NewOpenAIProvider(cfg.Ai.OpenAIKey, cfg.Ai.EmbeddingModel)
	case "gemini":
		return embedding.NewGeminiProvider(cfg.Ai.GeminiKey, cfg.Ai.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Ai.EmbeddingProvider)
	}
}
