package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Ai      AIConfig
	Rag     RagConfig
	Session SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	IngestTopic        string
}

type AIConfig struct {
	EmbeddingProvider string // "ollama", "openai" or "gemini"
	EmbeddingModel    string
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string
	OllamaBaseURL     string
	OpenAIKey         string
	GeminiKey         string
	RequestTimeout    time.Duration
}

type RagConfig struct {
	ChunkSize     int
	ChunkOverlap  int
	TopK          int
	HistoryWindow int
	SummaryBudget int // max characters of chunk text per summary call
}

type SessionConfig struct {
	DetachTTL time.Duration // grace period before a disconnected session is closed
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			IngestTopic:        getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			GeminiKey:         getEnv("GOOGLE_GEMINI_API_KEY", ""),
			RequestTimeout:    getEnvAsDuration("AI_REQUEST_TIMEOUT", 120*time.Second),
		},
		Rag: RagConfig{
			ChunkSize:     getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:  getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			TopK:          getEnvAsInt("RAG_TOP_K", 4),
			HistoryWindow: getEnvAsInt("RAG_HISTORY_WINDOW", 10),
			SummaryBudget: getEnvAsInt("RAG_SUMMARY_BUDGET", 12000),
		},
		Session: SessionConfig{
			DetachTTL: getEnvAsDuration("SESSION_DETACH_TTL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
