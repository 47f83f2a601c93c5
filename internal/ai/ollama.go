package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/himax12/PlotLine/internal/config"
	"github.com/himax12/PlotLine/internal/models"
)

// ollamaClient реализует Client с использованием нативного ollama/api.
type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// newOllamaClient создает клиент для локальной Ollama.
func newOllamaClient(cfg *config.Config) (Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.AITimeout,
	}

	// api.NewClient требует URL без суффикса /v1
	ollamaBaseURL := strings.TrimSuffix(cfg.AIBaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")

	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", ollamaBaseURL, err)
	}

	client := api.NewClient(parsedURL, httpClient)
	log.Printf("Ollama Клиент создан. Используемый BaseURL: %s, Model: %s, Timeout: %v",
		ollamaBaseURL, cfg.AIModel, cfg.AITimeout)

	return &ollamaClient{
		client:  client,
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
	}, nil
}

// GenerateStructured запрашивает JSON-ответ по схеме через поле format.
func (c *ollamaClient) GenerateStructured(ctx context.Context, stage string, systemPrompt string, userInput string, schema ResponseSchema, params GenerationParams) (json.RawMessage, UsageInfo, error) {
	text, usage, err := c.chat(ctx, stage, systemPrompt, userInput, schema.Schema, params)
	if err != nil {
		return nil, usage, err
	}
	return json.RawMessage(stripCodeFence(text)), usage, nil
}

// GenerateText запрашивает свободный текст без схемы.
func (c *ollamaClient) GenerateText(ctx context.Context, stage string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	return c.chat(ctx, stage, systemPrompt, userInput, nil, params)
}

func (c *ollamaClient) chat(ctx context.Context, stage string, systemPrompt string, userInput string, format json.RawMessage, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{} // Ollama локальная, стоимость всегда 0

	if strings.TrimSpace(systemPrompt) == "" {
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "stage": stage}).Inc()
		return "", usageInfo, fmt.Errorf("%w: системный промт пуст", models.ErrGenerationFailed)
	}

	messages := []api.Message{
		{Role: "system", Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   func(b bool) *bool { return &b }(false),
		Format:   format,
		Options:  options,
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()
	log.Printf("Отправка запроса к Ollama: Model=%s, Stage=%s, SystemPrompt=%d bytes",
		c.model, stage, len(systemPrompt))

	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r // Сохраняем последний (полный) ответ
		return nil
	})

	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Ошибка таймаута (%v) от Ollama API за %v (stage: %s): %v", c.timeout, duration, stage, err)
		} else {
			log.Printf("Ошибка от Ollama API за %v (stage: %s): %v", duration, stage, err)
		}
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "stage": stage}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	if resp.Message.Content == "" {
		log.Printf("Ollama API вернул пустой ответ за %v (stage: %s)", duration, stage)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response", "stage": stage}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", models.ErrGenerationFailed, ErrEmptyResponse)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success", "stage": stage}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "stage": stage}).Observe(duration.Seconds())

	usageInfo.PromptTokens = resp.PromptEvalCount
	usageInfo.CompletionTokens = resp.EvalCount
	usageInfo.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	observeUsage(c.model, stage, usageInfo)

	return resp.Message.Content, usageInfo, nil
}
