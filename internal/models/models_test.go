package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequest_ApplyDefaults(t *testing.T) {
	req := &GenerationRequest{InputText: "a story about rain"}
	req.ApplyDefaults()

	assert.Equal(t, "General Fiction", req.TargetGenre)
	assert.Equal(t, "General", req.TargetAudience)
	assert.Equal(t, "Neutral", req.Tone)
	assert.Equal(t, 200, req.WordsPerScene)
	assert.Equal(t, SafetyLevelNone, req.SafetyLevel)
}

func TestGenerationRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationRequest)
		wantErr bool
	}{
		{"valid", func(r *GenerationRequest) {}, false},
		{"empty input", func(r *GenerationRequest) { r.InputText = "   " }, true},
		{"words too low", func(r *GenerationRequest) { r.WordsPerScene = 10 }, true},
		{"words too high", func(r *GenerationRequest) { r.WordsPerScene = 5000 }, true},
		{"words at lower bound", func(r *GenerationRequest) { r.WordsPerScene = MinWordsPerScene }, false},
		{"words at upper bound", func(r *GenerationRequest) { r.WordsPerScene = MaxWordsPerScene }, false},
		{"bad safety level", func(r *GenerationRequest) { r.SafetyLevel = "extreme" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &GenerationRequest{InputText: "a story"}
			req.ApplyDefaults()
			tt.mutate(req)

			err := req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRiskLevel_BlocksAt(t *testing.T) {
	// RiskSafe не блокирует ни при каком уровне безопасности
	for _, lvl := range []SafetyLevel{SafetyLevelNone, SafetyLevelLow, SafetyLevelMedium, SafetyLevelHigh} {
		assert.False(t, RiskSafe.BlocksAt(lvl), "safe risk must never block at %s", lvl)
	}

	assert.False(t, RiskMedium.BlocksAt(SafetyLevelNone))
	assert.True(t, RiskHigh.BlocksAt(SafetyLevelNone))
	assert.True(t, RiskMedium.BlocksAt(SafetyLevelMedium))
	assert.False(t, RiskLow.BlocksAt(SafetyLevelMedium))
	assert.True(t, RiskLow.BlocksAt(SafetyLevelHigh))
}

func TestNarrativeState_FullText(t *testing.T) {
	st := NewNarrativeState(&GenerationRequest{InputText: "x"})
	st.Graph = PlanGraph{Nodes: []EventNode{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	st.RenderedChunks["b"] = "second"
	st.RenderedChunks["a"] = "first"

	// Порядок узлов графа, не порядок вставки; отсутствующие чанки пропускаются
	assert.Equal(t, "first\n\nsecond", st.FullText())

	st.RenderedChunks["c"] = "third"
	assert.Equal(t, "first\n\nsecond\n\nthird", st.FullText())
}

func TestEventType_IsTerminal(t *testing.T) {
	assert.True(t, EventWorkflowComplete.IsTerminal())
	assert.True(t, EventError.IsTerminal())
	assert.True(t, EventGuardInputBlocked.IsTerminal())

	assert.False(t, EventChunkComplete.IsTerminal())
	assert.False(t, EventHeartbeat.IsTerminal())
	assert.False(t, EventGuardOutputBlocked.IsTerminal())
}

func TestValidationResult_BlockingViolations(t *testing.T) {
	result := ValidationResult{
		Violations: []ValidationViolation{
			{Severity: SeverityError},
			{Severity: SeverityWarning},
			{Severity: SeverityError},
		},
	}
	assert.Equal(t, 2, result.BlockingViolations())
}

func TestPlanGraph_HasNode(t *testing.T) {
	g := PlanGraph{Nodes: []EventNode{{ID: "n1"}, {ID: "n2"}}}
	assert.True(t, g.HasNode("n2"))
	assert.False(t, g.HasNode("n3"))
	assert.Equal(t, -1, g.NodeIndex("missing"))
}
