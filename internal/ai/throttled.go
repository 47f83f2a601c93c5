package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/himax12/PlotLine/internal/config"
)

// throttledClient оборачивает Client лимитером запросов и ретраями.
// Лимитер общий на весь процесс: квота RPM провайдера делится между
// всеми конкурентными задачами генерации.
type throttledClient struct {
	inner       Client
	model       string
	limiter     *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
}

// NewThrottledClient оборачивает клиент лимитером и политикой повторов.
func NewThrottledClient(inner Client, cfg *config.Config) Client {
	rpm := cfg.AIRequestsPerMin
	if rpm <= 0 {
		rpm = 15
	}
	attempts := cfg.AIMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &throttledClient{
		inner:       inner,
		model:       cfg.AIModel,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		maxAttempts: attempts,
		baseDelay:   cfg.AIBaseRetryDelay,
	}
}

func (c *throttledClient) GenerateStructured(ctx context.Context, stage string, systemPrompt string, userInput string, schema ResponseSchema, params GenerationParams) (json.RawMessage, UsageInfo, error) {
	var (
		raw   json.RawMessage
		usage UsageInfo
	)
	err := c.withRetry(ctx, stage, func() error {
		var innerErr error
		raw, usage, innerErr = c.inner.GenerateStructured(ctx, stage, systemPrompt, userInput, schema, params)
		return innerErr
	})
	return raw, usage, err
}

func (c *throttledClient) GenerateText(ctx context.Context, stage string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	var (
		text  string
		usage UsageInfo
	)
	err := c.withRetry(ctx, stage, func() error {
		var innerErr error
		text, usage, innerErr = c.inner.GenerateText(ctx, stage, systemPrompt, userInput, params)
		return innerErr
	})
	return text, usage, err
}

// withRetry выполняет вызов с ожиданием лимитера и экспоненциальным
// бэкоффом с джиттером между попытками.
func (c *throttledClient) withRetry(ctx context.Context, stage string, call func() error) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ожидание лимитера прервано: %w", err)
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return lastErr
		}

		if attempt < c.maxAttempts {
			delay := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
			delay += delay * 0.1 * rand.Float64() // джиттер до 10%
			log.Printf("Попытка %d/%d для этапа %s не удалась: %v. Повтор через %v",
				attempt, c.maxAttempts, stage, lastErr, time.Duration(delay))
			aiRetriesTotal.With(prometheus.Labels{"model": c.model, "stage": stage}).Inc()

			select {
			case <-time.After(time.Duration(delay)):
			case <-ctx.Done():
				return lastErr
			}
		}
	}

	return lastErr
}
