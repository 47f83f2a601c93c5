package schemas

import (
	"encoding/json"
	"fmt"

	"github.com/himax12/PlotLine/internal/models"
)

// Bounds enforced on deconstruction output beyond field presence.
const (
	minGraphNodes = 5
	maxGraphNodes = 10
	minGraphEdges = 4
	maxGraphEdges = 15
)

// ParsePlanGraph parses and validates deconstruction output. Rejects graphs
// outside the node/edge bounds, duplicate node IDs and dangling edges.
func ParsePlanGraph(data []byte) (*models.PlanGraph, error) {
	var graph models.PlanGraph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("%w: ответ деконструкции не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}

	if n := len(graph.Nodes); n < minGraphNodes || n > maxGraphNodes {
		return nil, fmt.Errorf("%w: количество узлов %d вне диапазона [%d, %d]",
			models.ErrSchemaValidation, n, minGraphNodes, maxGraphNodes)
	}
	if e := len(graph.Edges); e < minGraphEdges || e > maxGraphEdges {
		return nil, fmt.Errorf("%w: количество ребер %d вне диапазона [%d, %d]",
			models.ErrSchemaValidation, e, minGraphEdges, maxGraphEdges)
	}

	seen := make(map[string]struct{}, len(graph.Nodes))
	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		if node.ID == "" || node.Action == "" {
			return nil, fmt.Errorf("%w: узел %d не содержит id или action", models.ErrSchemaValidation, i)
		}
		if _, dup := seen[node.ID]; dup {
			return nil, fmt.Errorf("%w: дублирующийся ID узла %q", models.ErrSchemaValidation, node.ID)
		}
		seen[node.ID] = struct{}{}
	}

	for i := range graph.Edges {
		edge := &graph.Edges[i]
		if edge.Relation == "" {
			edge.Relation = "next"
		}
		if _, ok := seen[edge.Source]; !ok {
			return nil, fmt.Errorf("%w: ребро %d ссылается на несуществующий узел %q", models.ErrSchemaValidation, i, edge.Source)
		}
		if _, ok := seen[edge.Target]; !ok {
			return nil, fmt.Errorf("%w: ребро %d ссылается на несуществующий узел %q", models.ErrSchemaValidation, i, edge.Target)
		}
	}

	return &graph, nil
}

// ParseMapping parses mapping-stage output into an AnalogicalMapping.
func ParseMapping(data []byte) (*models.AnalogicalMapping, error) {
	var mapping models.AnalogicalMapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("%w: ответ маппинга не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}
	if mapping.StructureType == "" {
		return nil, fmt.Errorf("%w: маппинг не содержит structure_type", models.ErrSchemaValidation)
	}
	if mapping.ActionPatterns == nil {
		mapping.ActionPatterns = []string{}
	}
	return &mapping, nil
}

// SceneChunk is the scribing-stage response: a reasoning trace plus prose.
type SceneChunk struct {
	Reasoning string `json:"reasoning"`
	Prose     string `json:"prose"`
}

// ParseSceneChunk parses one scribing response and rejects empty prose.
func ParseSceneChunk(data []byte) (*SceneChunk, error) {
	var chunk SceneChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, fmt.Errorf("%w: ответ скрайбинга не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}
	if chunk.Prose == "" {
		return nil, fmt.Errorf("%w: ответ скрайбинга содержит пустую прозу", models.ErrSchemaValidation)
	}
	return &chunk, nil
}

// ParseValidation parses a second-tier validation response.
func ParseValidation(data []byte) (*models.ValidationResult, error) {
	var result models.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: ответ валидации не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}
	return &result, nil
}

// ParseGuardVerdict parses a guardrail LLM verdict.
func ParseGuardVerdict(data []byte) (*models.GuardResult, error) {
	var verdict models.GuardResult
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil, fmt.Errorf("%w: вердикт фильтра не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}
	if verdict.OverallRisk == "" {
		return nil, fmt.Errorf("%w: вердикт фильтра не содержит overall_risk", models.ErrSchemaValidation)
	}
	return &verdict, nil
}

// MemorySummary is the compaction response used to shrink narrative memory.
type MemorySummary struct {
	RunningSummary string   `json:"running_summary"`
	CriticalFacts  []string `json:"critical_facts"`
}

// ParseMemorySummary parses a memory compaction response.
func ParseMemorySummary(data []byte) (*MemorySummary, error) {
	var summary MemorySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("%w: ответ сжатия памяти не является валидным JSON: %v", models.ErrSchemaValidation, err)
	}
	if summary.RunningSummary == "" {
		return nil, fmt.Errorf("%w: сжатие памяти вернуло пустое резюме", models.ErrSchemaValidation)
	}
	return &summary, nil
}
