package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himax12/PlotLine/internal/config"
)

// flakyClient возвращает ошибки для первых failures вызовов, затем успех.
type flakyClient struct {
	calls    int
	failures int
	err      error
}

func (f *flakyClient) GenerateStructured(_ context.Context, _ string, _ string, _ string, _ ResponseSchema, _ GenerationParams) (json.RawMessage, UsageInfo, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, UsageInfo{}, f.err
	}
	return json.RawMessage(`{"ok":true}`), UsageInfo{TotalTokens: 1}, nil
}

func (f *flakyClient) GenerateText(_ context.Context, _ string, _ string, _ string, _ GenerationParams) (string, UsageInfo, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", UsageInfo{}, f.err
	}
	return "ok", UsageInfo{TotalTokens: 1}, nil
}

func throttleConfig(attempts int) *config.Config {
	return &config.Config{
		AIModel:          "gpt-3.5-turbo",
		AIRequestsPerMin: 6000, // Высокий лимит, чтобы тесты не ждали лимитер
		AIMaxAttempts:    attempts,
		AIBaseRetryDelay: time.Millisecond,
	}
}

func TestThrottledClient_SucceedsFirstAttempt(t *testing.T) {
	inner := &flakyClient{}
	client := NewThrottledClient(inner, throttleConfig(3))

	raw, usage, err := client.GenerateStructured(context.Background(), "deconstruct", "sys", "input", ResponseSchema{}, GenerationParams{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 1, usage.TotalTokens)
	assert.Equal(t, 1, inner.calls)
}

func TestThrottledClient_RetriesUntilSuccess(t *testing.T) {
	inner := &flakyClient{failures: 2, err: errors.New("upstream 429")}
	client := NewThrottledClient(inner, throttleConfig(3))

	raw, _, err := client.GenerateStructured(context.Background(), "scribe", "sys", "input", ResponseSchema{}, GenerationParams{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
	assert.Equal(t, 3, inner.calls)
}

func TestThrottledClient_ExhaustsAttempts(t *testing.T) {
	upstreamErr := errors.New("upstream down")
	inner := &flakyClient{failures: 10, err: upstreamErr}
	client := NewThrottledClient(inner, throttleConfig(3))

	_, _, err := client.GenerateText(context.Background(), "scribe", "sys", "input", GenerationParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, upstreamErr)
	assert.Equal(t, 3, inner.calls)
}

func TestThrottledClient_ContextCancelStopsRetries(t *testing.T) {
	inner := &flakyClient{failures: 10, err: errors.New("upstream down")}
	client := NewThrottledClient(inner, throttleConfig(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.GenerateStructured(ctx, "map", "sys", "input", ResponseSchema{}, GenerationParams{})
	require.Error(t, err)
	assert.LessOrEqual(t, inner.calls, 1)
}

func TestEstimateTokens(t *testing.T) {
	// Известная модель: tiktoken дает точный счет, он всегда положителен
	n := EstimateTokens("gpt-3.5-turbo", "hello world, this is a token estimate check")
	assert.Greater(t, n, 0)

	// Неизвестная модель: откат на кодировку cl100k_base
	assert.Greater(t, EstimateTokens("some-unknown-model", "fallback encoding path"), 0)

	assert.Equal(t, 0, EstimateTokens("gpt-3.5-turbo", ""))
}
