package ai

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Константы цен (за 1М токенов в USD)
const (
	pricePerMillionInputTokensUSD  = 0.1
	pricePerMillionOutputTokensUSD = 0.4
)

// GenerationParams - параметры сэмплирования для одного запроса.
// Используем указатели, чтобы отличить 0/0.0 от отсутствия.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// ErrEmptyResponse - AI вернул пустой ответ
var ErrEmptyResponse = errors.New("получен пустой ответ от AI")

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status", "stage"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "narrative_pipeline_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "stage"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "narrative_pipeline_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model", "stage"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "narrative_pipeline_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model", "stage"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"model", "stage"},
	)
	aiRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "narrative_pipeline_ai_retries_total",
			Help: "Total number of retried AI requests.",
		},
		[]string{"model", "stage"},
	)
)

// UsageInfo содержит информацию об использовании токенов и стоимости
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
}

// Add суммирует использование нескольких запросов.
func (u *UsageInfo) Add(other UsageInfo) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.EstimatedCostUSD += other.EstimatedCostUSD
}

// ResponseSchema - JSON Schema, которой должен соответствовать ответ модели.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
}

// Client - интерфейс для взаимодействия с AI API.
type Client interface {
	// GenerateStructured запрашивает у модели JSON-ответ, соответствующий схеме.
	// stage - имя этапа пайплайна для метрик ("deconstruct", "scribe" и т.д.).
	GenerateStructured(ctx context.Context, stage string, systemPrompt string, userInput string, schema ResponseSchema, params GenerationParams) (json.RawMessage, UsageInfo, error)
	// GenerateText запрашивает у модели свободный текст без схемы.
	GenerateText(ctx context.Context, stage string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// calculateCost рассчитывает оценочную стоимость запроса на основе токенов.
func calculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) * pricePerMillionInputTokensUSD / 1_000_000.0
	outputCost := float64(completionTokens) * pricePerMillionOutputTokensUSD / 1_000_000.0
	return inputCost + outputCost
}

// observeUsage обновляет метрики токенов и стоимости после успешного запроса.
func observeUsage(model, stage string, usage UsageInfo) {
	if usage.TotalTokens == 0 {
		return
	}
	aiPromptTokens.With(prometheus.Labels{"model": model, "stage": stage}).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(prometheus.Labels{"model": model, "stage": stage}).Observe(float64(usage.CompletionTokens))
	if usage.EstimatedCostUSD > 0 {
		aiEstimatedCostUSD.With(prometheus.Labels{"model": model, "stage": stage}).Add(usage.EstimatedCostUSD)
	}
}

// --- Вспомогательные функции конвертации указателей ---

func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
