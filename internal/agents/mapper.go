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

// Mapper аннотирует граф нарративными архетипами и паттернами.
// Топологию графа не меняет.
type Mapper struct {
	client ai.Client
	logger *zap.Logger
}

// NewMapper создает агента маппинга.
func NewMapper(client ai.Client, logger *zap.Logger) *Mapper {
	return &Mapper{client: client, logger: logger.Named("mapper")}
}

// Run строит аналогический маппинг и аннотирует узлы графа архетипами
// их участников.
func (m *Mapper) Run(ctx context.Context, st *models.NarrativeState) (ai.UsageInfo, error) {
	graphJSON, err := json.Marshal(st.Graph)
	if err != nil {
		return ai.UsageInfo{}, fmt.Errorf("этап маппинга: сериализация графа: %w", err)
	}

	raw, usage, err := m.client.GenerateStructured(ctx, "map",
		mapperSystemPrompt, string(graphJSON), schemas.MappingSchema, ai.GenerationParams{})
	if err != nil {
		return usage, fmt.Errorf("этап маппинга: %w", err)
	}

	mapping, err := schemas.ParseMapping(raw)
	if err != nil {
		m.logger.Warn("mapping output rejected", zap.Error(err))
		return usage, fmt.Errorf("этап маппинга: %w", err)
	}

	st.AnalogicalMapping = mapping

	// Аннотация узлов на месте: архетип первого участника, для которого он есть
	for i := range st.Graph.Nodes {
		node := &st.Graph.Nodes[i]
		for _, actor := range node.Actors {
			if arch := mapping.ArchetypeFor(actor); arch != "" {
				node.Archetype = arch
				break
			}
		}
	}

	m.logger.Info("analogical mapping complete",
		zap.String("structure", mapping.StructureType),
		zap.Int("archetypes", len(mapping.EntityArchetypes)))

	return usage, nil
}
