package ai

import (
	"fmt"
	"log"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/himax12/PlotLine/internal/config"
)

// NewClient создает AI-клиент в зависимости от конфигурации и оборачивает
// его лимитером запросов с политикой повторов.
func NewClient(cfg *config.Config) (Client, error) {
	var (
		inner Client
		err   error
	)

	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		log.Printf("Используется реализация AI клиента: OpenAI")
		inner, err = newOpenAIClient(cfg)
	case "ollama":
		log.Printf("Используется реализация AI клиента: Ollama")
		inner, err = newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.AIClientType)
	}
	if err != nil {
		return nil, err
	}

	return NewThrottledClient(inner, cfg), nil
}

// EstimateTokens оценивает количество токенов в тексте. При недоступном
// токенизаторе для модели возвращает грубую оценку по символам.
func EstimateTokens(model, text string) int {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		// Примерно 4 символа на токен для английского текста
		return len(text) / 4
	}
	return len(tke.Encode(text, nil, nil))
}
