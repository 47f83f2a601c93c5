package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/schemas"
)

// Scribe рендерит один узел графа в прозу с трассой рассуждений.
type Scribe struct {
	client ai.Client
	logger *zap.Logger
}

// NewScribe создает агента скрайбинга.
func NewScribe(client ai.Client, logger *zap.Logger) *Scribe {
	return &Scribe{client: client, logger: logger.Named("scribe")}
}

// RenderNode генерирует сцену для узла с индексом idx.
// Состояние не мутирует: запись чанка и обновление памяти делает вызывающий.
func (s *Scribe) RenderNode(ctx context.Context, st *models.NarrativeState, idx int) (*schemas.SceneChunk, ai.UsageInfo, error) {
	if idx < 0 || idx >= len(st.Graph.Nodes) {
		return nil, ai.UsageInfo{}, fmt.Errorf("индекс узла %d вне графа из %d узлов", idx, len(st.Graph.Nodes))
	}
	node := &st.Graph.Nodes[idx]

	systemPrompt := fmt.Sprintf(scribeSystemPromptTemplate,
		st.TargetGenre, st.TargetAudience, st.Tone, st.WordsPerScene)
	userInput := buildSceneContext(st, node, idx)

	raw, usage, err := s.client.GenerateStructured(ctx, "scribe",
		systemPrompt, userInput, schemas.SceneChunkSchema, ai.GenerationParams{})
	if err != nil {
		return nil, usage, fmt.Errorf("скрайбинг узла %s: %w", node.ID, err)
	}

	chunk, err := schemas.ParseSceneChunk(raw)
	if err != nil {
		s.logger.Warn("scene output rejected", zap.String("node_id", node.ID), zap.Error(err))
		return nil, usage, fmt.Errorf("скрайбинг узла %s: %w", node.ID, err)
	}

	s.logger.Info("scene rendered",
		zap.String("node_id", node.ID),
		zap.Int("index", idx),
		zap.Int("words", CountWords(chunk.Prose)))

	return chunk, usage, nil
}

// Title придумывает название готовой истории по ее рабочей памяти.
// Единственный этап со свободным текстом вместо JSON-схемы.
func (s *Scribe) Title(ctx context.Context, st *models.NarrativeState) (string, ai.UsageInfo, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Genre: %s\n", st.TargetGenre)
	if st.Memory.RunningSummary != "" {
		fmt.Fprintf(&b, "Plot summary:\n%s\n", st.Memory.RunningSummary)
	}

	text, usage, err := s.client.GenerateText(ctx, "title",
		titlerSystemPrompt, b.String(), ai.GenerationParams{})
	if err != nil {
		return "", usage, fmt.Errorf("подбор названия: %w", err)
	}

	// Модели любят оборачивать название в кавычки вопреки промту
	title := strings.Trim(strings.TrimSpace(text), "\"'«»")
	if title == "" {
		return "", usage, fmt.Errorf("подбор названия: %w", ai.ErrEmptyResponse)
	}

	s.logger.Info("story titled", zap.String("title", title))
	return title, usage, nil
}

// buildSceneContext собирает контекст сцены: узел, память, маппинг.
func buildSceneContext(st *models.NarrativeState, node *models.EventNode, idx int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scene %d of %d.\n", idx+1, len(st.Graph.Nodes))
	fmt.Fprintf(&b, "Event: %s\n", node.Action)
	fmt.Fprintf(&b, "Actors: %s\n", strings.Join(node.Actors, ", "))
	if node.Archetype != "" {
		fmt.Fprintf(&b, "Archetype: %s\n", node.Archetype)
	}
	if node.Reasoning != "" {
		fmt.Fprintf(&b, "Beat intent: %s\n", node.Reasoning)
	}

	if st.AnalogicalMapping != nil {
		fmt.Fprintf(&b, "Story structure: %s\n", st.AnalogicalMapping.StructureType)
		if len(st.AnalogicalMapping.ActionPatterns) > 0 {
			fmt.Fprintf(&b, "Plot patterns: %s\n", strings.Join(st.AnalogicalMapping.ActionPatterns, ", "))
		}
		if len(st.AnalogicalMapping.EmotionalArc) > 0 {
			fmt.Fprintf(&b, "Emotional arc: %s\n", strings.Join(st.AnalogicalMapping.EmotionalArc, " -> "))
		}
	}

	if st.Memory.RunningSummary != "" {
		fmt.Fprintf(&b, "\nStory so far: %s\n", st.Memory.RunningSummary)
	}
	if len(st.Memory.CriticalFacts) > 0 {
		fmt.Fprintf(&b, "Critical facts: %s\n", strings.Join(st.Memory.CriticalFacts, "; "))
	}
	if st.Memory.LastParagraph != "" {
		fmt.Fprintf(&b, "\nPrevious text (continue from here):\n%s\n", st.Memory.LastParagraph)
	}
	if st.Memory.StyleGuide != "" {
		fmt.Fprintf(&b, "\nStyle notes: %s\n", st.Memory.StyleGuide)
	}

	return b.String()
}

// CountWords считает слова в тексте (разделение по пробельным символам).
func CountWords(text string) int {
	return len(strings.Fields(text))
}
