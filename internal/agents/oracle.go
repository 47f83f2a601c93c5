package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/schemas"
)

// Tier2Validator - подключаемая стратегия проверки здравого смысла.
// Внешний контракт этапа валидации не зависит от ее наличия.
type Tier2Validator interface {
	Validate(ctx context.Context, graph *models.PlanGraph) (*models.ValidationResult, ai.UsageInfo, error)
}

// Oracle проверяет логическую целостность графа сюжета.
// Tier 1 (символический, всегда активен): предусловия каждого узла должны
// покрываться постусловиями предшествующих узлов и состоянием мира.
// Tier 2 (LLM, опциональный): проверка правдоподобия через tier2.
type Oracle struct {
	tier2  Tier2Validator
	logger *zap.Logger
}

// NewOracle создает валидатор. tier2 может быть nil (второй уровень выключен).
func NewOracle(tier2 Tier2Validator, logger *zap.Logger) *Oracle {
	return &Oracle{tier2: tier2, logger: logger.Named("oracle")}
}

// Run выполняет все активные уровни валидации и возвращает результаты.
func (o *Oracle) Run(ctx context.Context, st *models.NarrativeState) ([]models.ValidationResult, ai.UsageInfo, error) {
	results := []models.ValidationResult{o.validateSymbolic(&st.Graph, &st.WorldState)}
	usage := ai.UsageInfo{}

	if o.tier2 != nil {
		tier2Result, tier2Usage, err := o.tier2.Validate(ctx, &st.Graph)
		usage.Add(tier2Usage)
		if err != nil {
			// Второй уровень рекомендательный: его сбой не валит пайплайн
			o.logger.Warn("tier 2 validation failed, continuing with tier 1 only", zap.Error(err))
		} else {
			results = append(results, *tier2Result)
		}
	}

	st.ValidationResults = append(st.ValidationResults, results...)
	return results, usage, nil
}

// validateSymbolic - символическая проверка предусловий. Узлы обходятся
// в порядке плана, множество выполненных условий растет постусловиями
// пройденных узлов.
func (o *Oracle) validateSymbolic(graph *models.PlanGraph, world *models.WorldState) models.ValidationResult {
	satisfied := world.SatisfiedConditions()
	var violations []models.ValidationViolation

	for i := range graph.Nodes {
		node := &graph.Nodes[i]
		for _, cond := range node.Preconditions {
			if _, ok := satisfied[cond]; !ok {
				violations = append(violations, models.ValidationViolation{
					ViolationType: models.ViolationPrecondition,
					Description: fmt.Sprintf("precondition %q of node %q (%s) is not satisfied by any preceding postcondition or the world state",
						cond, node.ID, node.Action),
					NodeID:   node.ID,
					Severity: models.SeverityError,
				})
			}
		}
		for _, cond := range node.Postconditions {
			satisfied[cond] = struct{}{}
		}
	}

	result := models.ValidationResult{
		IsValid:    len(violations) == 0,
		Violations: violations,
		Reasoning:  "symbolic precondition check over plan order",
	}
	if !result.IsValid {
		result.Suggestions = []string{
			"add earlier events whose postconditions establish the missing preconditions",
		}
	}

	o.logger.Info("symbolic validation complete",
		zap.Bool("is_valid", result.IsValid),
		zap.Int("violations", len(violations)))

	return result
}

// llmTier2Validator - реализация Tier 2 через AI-клиент.
type llmTier2Validator struct {
	client ai.Client
}

// NewLLMTier2Validator создает LLM-валидатор здравого смысла.
func NewLLMTier2Validator(client ai.Client) Tier2Validator {
	return &llmTier2Validator{client: client}
}

func (v *llmTier2Validator) Validate(ctx context.Context, graph *models.PlanGraph) (*models.ValidationResult, ai.UsageInfo, error) {
	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return nil, ai.UsageInfo{}, fmt.Errorf("валидация tier 2: сериализация графа: %w", err)
	}

	raw, usage, err := v.client.GenerateStructured(ctx, "validate",
		tier2ValidatorSystemPrompt, string(graphJSON), schemas.ValidationSchema, ai.GenerationParams{})
	if err != nil {
		return nil, usage, fmt.Errorf("валидация tier 2: %w", err)
	}

	result, err := schemas.ParseValidation(raw)
	if err != nil {
		return nil, usage, fmt.Errorf("валидация tier 2: %w", err)
	}
	return result, usage, nil
}
