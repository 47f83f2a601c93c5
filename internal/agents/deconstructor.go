package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/schemas"
)

// Deconstructor превращает свободный текст в каузальный граф событий.
type Deconstructor struct {
	client ai.Client
	logger *zap.Logger
}

// NewDeconstructor создает агента деконструкции.
func NewDeconstructor(client ai.Client, logger *zap.Logger) *Deconstructor {
	return &Deconstructor{client: client, logger: logger.Named("deconstructor")}
}

// Run строит граф сюжета и записывает его в состояние. Начальное состояние
// мира засеивается предусловиями корневых узлов (условия, истинные на старте
// истории), чтобы символическая валидация имела точку отсчета.
func (d *Deconstructor) Run(ctx context.Context, st *models.NarrativeState) (ai.UsageInfo, error) {
	userInput := fmt.Sprintf("Premise: %s\nTarget genre: %s\nTarget audience: %s",
		st.InputText, st.TargetGenre, st.TargetAudience)

	raw, usage, err := d.client.GenerateStructured(ctx, "deconstruct",
		deconstructorSystemPrompt, userInput, schemas.PlanGraphSchema, ai.GenerationParams{})
	if err != nil {
		return usage, fmt.Errorf("этап деконструкции: %w", err)
	}

	graph, err := schemas.ParsePlanGraph(raw)
	if err != nil {
		d.logger.Warn("deconstruction output rejected", zap.Error(err))
		return usage, fmt.Errorf("этап деконструкции: %w", err)
	}

	st.Graph = *graph
	seedWorldState(st)

	// Регистрируем канонические имена сущностей для связности прозы
	for i := range graph.Nodes {
		for _, actor := range graph.Nodes[i].Actors {
			if _, ok := st.Memory.EntityRegistry[actor]; !ok {
				st.Memory.EntityRegistry[actor] = actor
			}
		}
	}

	d.logger.Info("plan graph created",
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)))

	return usage, nil
}

// seedWorldState помечает предусловия корневых узлов (без входящих ребер)
// как выполненные изначально.
func seedWorldState(st *models.NarrativeState) {
	hasIncoming := make(map[string]bool, len(st.Graph.Nodes))
	for i := range st.Graph.Edges {
		hasIncoming[st.Graph.Edges[i].Target] = true
	}
	for i := range st.Graph.Nodes {
		node := &st.Graph.Nodes[i]
		if hasIncoming[node.ID] {
			continue
		}
		for _, cond := range node.Preconditions {
			st.WorldState.Attributes[cond] = true
		}
	}
}
