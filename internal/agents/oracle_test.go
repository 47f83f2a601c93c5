package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

func chainGraph() models.PlanGraph {
	return models.PlanGraph{
		Nodes: []models.EventNode{
			{ID: "n1", Action: "Awaken", Preconditions: []string{"city_is_dystopian"}, Postconditions: []string{"robot_active"}},
			{ID: "n2", Action: "Observe", Preconditions: []string{"robot_active"}, Postconditions: []string{"emotion_spark"}},
			{ID: "n3", Action: "Feel", Preconditions: []string{"emotion_spark"}, Postconditions: []string{"robot_feels"}},
			{ID: "n4", Action: "Decide", Preconditions: []string{"robot_feels"}, Postconditions: []string{"robot_decides"}},
			{ID: "n5", Action: "Escape", Preconditions: []string{"robot_decides"}, Postconditions: []string{"robot_free"}},
		},
		Edges: []models.CausalEdge{
			{Source: "n1", Target: "n2", Relation: "then"},
			{Source: "n2", Target: "n3", Relation: "causes"},
			{Source: "n3", Target: "n4", Relation: "causes"},
			{Source: "n4", Target: "n5", Relation: "then"},
		},
	}
}

func TestOracle_SymbolicValid(t *testing.T) {
	st := models.NewNarrativeState(&models.GenerationRequest{InputText: "x"})
	st.Graph = chainGraph()
	st.WorldState.Attributes["city_is_dystopian"] = true

	oracle := NewOracle(nil, zap.NewNop())
	results, _, err := oracle.Run(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].IsValid)
	assert.Empty(t, results[0].Violations)
	assert.Len(t, st.ValidationResults, 1)
}

func TestOracle_SymbolicUnsatisfiedPrecondition(t *testing.T) {
	st := models.NewNarrativeState(&models.GenerationRequest{InputText: "x"})
	st.Graph = chainGraph()
	// Предусловие корневого узла не выполнено состоянием мира
	st.Graph.Nodes[2].Preconditions = append(st.Graph.Nodes[2].Preconditions, "hidden_ally_found")
	st.WorldState.Attributes["city_is_dystopian"] = true

	oracle := NewOracle(nil, zap.NewNop())
	results, _, err := oracle.Run(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].IsValid)
	require.Len(t, results[0].Violations, 1)
	violation := results[0].Violations[0]
	assert.Equal(t, models.ViolationPrecondition, violation.ViolationType)
	assert.Equal(t, models.SeverityError, violation.Severity)
	assert.Equal(t, "n3", violation.NodeID)
	assert.Contains(t, violation.Description, "hidden_ally_found")
	assert.NotEmpty(t, results[0].Suggestions)
}

func TestOracle_PostconditionsAccumulateInPlanOrder(t *testing.T) {
	st := models.NewNarrativeState(&models.GenerationRequest{InputText: "x"})
	st.Graph = models.PlanGraph{
		Nodes: []models.EventNode{
			{ID: "a", Action: "setup", Postconditions: []string{"door_open"}},
			{ID: "b", Action: "enter", Preconditions: []string{"door_open"}},
		},
	}

	oracle := NewOracle(nil, zap.NewNop())
	results, _, err := oracle.Run(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, results[0].IsValid)
}
