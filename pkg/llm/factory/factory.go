package factory

import (
	"fmt"
	"time"

	"docqa-be/pkg/llm"
	"docqa-be/pkg/llm/ollama"
	"docqa-be/pkg/llm/openai"
)

// NewLLMProvider selects a generation backend by name.
func NewLLMProvider(provider, model, ollamaBaseURL, openAIKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch provider {
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, model, timeout), nil
	case "openai":
		return openai.NewOpenAIProvider(openAIKey, model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
