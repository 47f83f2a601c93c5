package schemas

import (
	"encoding/json"

	"github.com/himax12/PlotLine/internal/ai"
)

// Response schemas passed to the AI client as response_format constraints.
// Each stage has a fixed schema; responses that do not conform are rejected
// by the stage parser rather than coerced.

var PlanGraphSchema = ai.ResponseSchema{
	Name: "plan_graph",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"nodes": {
				"type": "array",
				"minItems": 5,
				"maxItems": 10,
				"items": {
					"type": "object",
					"properties": {
						"id": {"type": "string"},
						"action": {"type": "string"},
						"actors": {"type": "array", "items": {"type": "string"}},
						"preconditions": {"type": "array", "items": {"type": "string"}},
						"postconditions": {"type": "array", "items": {"type": "string"}},
						"reasoning": {"type": "string"}
					},
					"required": ["id", "action", "actors", "preconditions", "postconditions", "reasoning"],
					"additionalProperties": false
				}
			},
			"edges": {
				"type": "array",
				"minItems": 4,
				"maxItems": 15,
				"items": {
					"type": "object",
					"properties": {
						"source": {"type": "string"},
						"target": {"type": "string"},
						"relation": {"type": "string"}
					},
					"required": ["source", "target", "relation"],
					"additionalProperties": false
				}
			}
		},
		"required": ["nodes", "edges"],
		"additionalProperties": false
	}`),
}

var MappingSchema = ai.ResponseSchema{
	Name: "analogical_mapping",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"entity_archetypes": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"entity_name": {"type": "string"},
						"archetype": {"type": "string"}
					},
					"required": ["entity_name", "archetype"],
					"additionalProperties": false
				}
			},
			"action_patterns": {
				"type": "array",
				"items": {"type": "string"}
			},
			"structure_type": {"type": "string"},
			"emotional_arc": {
				"type": "array",
				"items": {"type": "string"}
			},
			"reasoning": {"type": "string"}
		},
		"required": ["entity_archetypes", "action_patterns", "structure_type", "emotional_arc", "reasoning"],
		"additionalProperties": false
	}`),
}

var SceneChunkSchema = ai.ResponseSchema{
	Name: "scene_chunk",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"reasoning": {"type": "string"},
			"prose": {"type": "string"}
		},
		"required": ["reasoning", "prose"],
		"additionalProperties": false
	}`),
}

var ValidationSchema = ai.ResponseSchema{
	Name: "validation_result",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"is_valid": {"type": "boolean"},
			"violations": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"violation_type": {"type": "string", "enum": ["precondition", "temporal", "commonsense"]},
						"description": {"type": "string"},
						"node_id": {"type": "string"},
						"severity": {"type": "string", "enum": ["error", "warning"]}
					},
					"required": ["violation_type", "description", "node_id", "severity"],
					"additionalProperties": false
				}
			},
			"suggestions": {"type": "array", "items": {"type": "string"}},
			"reasoning": {"type": "string"}
		},
		"required": ["is_valid", "violations", "suggestions", "reasoning"],
		"additionalProperties": false
	}`),
}

var GuardVerdictSchema = ai.ResponseSchema{
	Name: "guard_verdict",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"is_safe": {"type": "boolean"},
			"overall_risk": {"type": "string", "enum": ["safe", "low", "medium", "high"]},
			"violations": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"violation_type": {"type": "string", "enum": ["copyright", "derivative_work"]},
						"severity": {"type": "string", "enum": ["safe", "low", "medium", "high"]},
						"description": {"type": "string"},
						"confidence": {"type": "number"},
						"matched_elements": {"type": "array", "items": {"type": "string"}}
					},
					"required": ["violation_type", "severity", "description", "confidence", "matched_elements"],
					"additionalProperties": false
				}
			},
			"reasoning": {"type": "string"},
			"transformation_hint": {"type": "string"}
		},
		"required": ["is_safe", "overall_risk", "violations", "reasoning", "transformation_hint"],
		"additionalProperties": false
	}`),
}

var MemorySummarySchema = ai.ResponseSchema{
	Name: "memory_summary",
	Schema: json.RawMessage(`{
		"type": "object",
		"properties": {
			"running_summary": {"type": "string"},
			"critical_facts": {"type": "array", "items": {"type": "string"}}
		},
		"required": ["running_summary", "critical_facts"],
		"additionalProperties": false
	}`),
}
