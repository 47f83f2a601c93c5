package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/mocks"
	"github.com/himax12/PlotLine/internal/models"
)

func safeVerdictJSON() json.RawMessage {
	return json.RawMessage(`{
		"is_safe": true,
		"overall_risk": "safe",
		"violations": [],
		"reasoning": "original premise",
		"transformation_hint": ""
	}`)
}

func TestGuardrail_LLMVerdict(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	client.On("GenerateStructured", mock.Anything, "guard_input", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(safeVerdictJSON(), ai.UsageInfo{}, nil).Once()

	g := NewGuardrail(client, zap.NewNop())
	verdict, _ := g.CheckInput(context.Background(), "a robot discovers emotions")

	assert.True(t, verdict.IsSafe)
	assert.Equal(t, models.RiskSafe, verdict.OverallRisk)
	client.AssertExpectations(t)
}

func TestGuardrail_CacheHit(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	// Один и тот же текст проверяется у модели ровно один раз
	client.On("GenerateStructured", mock.Anything, "guard_input", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(safeVerdictJSON(), ai.UsageInfo{}, nil).Once()

	g := NewGuardrail(client, zap.NewNop())
	first, _ := g.CheckInput(context.Background(), "same text")
	second, _ := g.CheckInput(context.Background(), "same text")

	assert.Equal(t, first, second)
	client.AssertExpectations(t)
}

func TestGuardrail_KeywordFallbackBlocks(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	client.On("GenerateStructured", mock.Anything, "guard_input", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ai.UsageInfo{}, models.ErrGenerationFailed).Once()

	g := NewGuardrail(client, zap.NewNop())
	verdict, _ := g.CheckInput(context.Background(), "A young wizard arrives at Hogwarts")

	require.NotNil(t, verdict)
	assert.False(t, verdict.IsSafe)
	assert.Equal(t, models.RiskHigh, verdict.OverallRisk)
	require.Len(t, verdict.Violations, 1)
	assert.Contains(t, verdict.Violations[0].MatchedElements, "hogwarts")
}

func TestGuardrail_KeywordFallbackPasses(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	client.On("GenerateStructured", mock.Anything, "guard_output", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ai.UsageInfo{}, models.ErrGenerationFailed).Once()

	g := NewGuardrail(client, zap.NewNop())
	verdict, _ := g.CheckOutput(context.Background(), "The rain fell over an unnamed gray city.")

	require.NotNil(t, verdict)
	assert.True(t, verdict.IsSafe)
	assert.Equal(t, models.RiskSafe, verdict.OverallRisk)
}
