package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"

	"github.com/himax12/PlotLine/internal/config"
	"github.com/himax12/PlotLine/internal/models"
)

// openAIClient реализует Client с использованием go-openai.
// Совместим с любым OpenAI-совместимым провайдером (OpenRouter, DeepSeek и т.д.).
type openAIClient struct {
	client *openaigo.Client
	model  string
}

func newOpenAIClient(cfg *config.Config) (Client, error) {
	openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
	openaiConfig.BaseURL = cfg.AIBaseURL
	openaiConfig.HTTPClient = &http.Client{
		Timeout: cfg.AITimeout,
	}
	client := openaigo.NewClientWithConfig(openaiConfig)
	log.Printf("OpenAI Клиент создан. Используемый BaseURL: %s, Model: %s, Timeout: %v",
		cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
	return &openAIClient{client: client, model: cfg.AIModel}, nil
}

// GenerateStructured запрашивает JSON-ответ по схеме через response_format json_schema.
func (c *openAIClient) GenerateStructured(ctx context.Context, stage string, systemPrompt string, userInput string, schema ResponseSchema, params GenerationParams) (json.RawMessage, UsageInfo, error) {
	req, err := c.buildRequest(systemPrompt, userInput, params)
	if err != nil {
		return nil, UsageInfo{}, err
	}
	req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
		Type: openaigo.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openaigo.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: schema.Schema,
			Strict: true,
		},
	}

	text, usage, err := c.complete(ctx, stage, req)
	if err != nil {
		return nil, usage, err
	}
	return json.RawMessage(stripCodeFence(text)), usage, nil
}

// GenerateText запрашивает свободный текст без схемы.
func (c *openAIClient) GenerateText(ctx context.Context, stage string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	req, err := c.buildRequest(systemPrompt, userInput, params)
	if err != nil {
		return "", UsageInfo{}, err
	}
	return c.complete(ctx, stage, req)
}

func (c *openAIClient) buildRequest(systemPrompt, userInput string, params GenerationParams) (openaigo.ChatCompletionRequest, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return openaigo.ChatCompletionRequest{}, fmt.Errorf("%w: системный промт пуст", models.ErrGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role:    openaigo.ChatMessageRoleUser,
			Content: userInput,
		})
	}

	return openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32Val(params.Temperature),
		MaxTokens:   intVal(params.MaxTokens),
		TopP:        float32Val(params.TopP),
	}, nil
}

func (c *openAIClient) complete(ctx context.Context, stage string, req openaigo.ChatCompletionRequest) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}

	startTime := time.Now()
	log.Printf("Отправка запроса к AI: Model=%s, Stage=%s, SystemPrompt=%d bytes",
		c.model, stage, len(req.Messages[0].Content))

	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		log.Printf("Ошибка от AI API за %v (stage: %s): %v", duration, stage, err)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error", "stage": stage}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Printf("AI API вернул пустой ответ за %v (stage: %s)", duration, stage)
		aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "error_empty_response", "stage": stage}).Inc()
		return "", usageInfo, fmt.Errorf("%w: %v", models.ErrGenerationFailed, ErrEmptyResponse)
	}

	aiRequestsTotal.With(prometheus.Labels{"model": c.model, "status": "success", "stage": stage}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": c.model, "stage": stage}).Observe(duration.Seconds())

	generatedText := resp.Choices[0].Message.Content
	log.Printf("Ответ от AI API получен за %v. Длина ответа: %d символов. (stage: %s)",
		duration, len(generatedText), stage)

	if resp.Usage.TotalTokens > 0 {
		usageInfo.PromptTokens = resp.Usage.PromptTokens
		usageInfo.CompletionTokens = resp.Usage.CompletionTokens
		usageInfo.TotalTokens = resp.Usage.TotalTokens
		usageInfo.EstimatedCostUSD = calculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		observeUsage(c.model, stage, usageInfo)
	}

	return generatedText, usageInfo, nil
}

// stripCodeFence убирает markdown-обертку ```json ... ```, которую некоторые
// модели добавляют несмотря на response_format.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
