package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/agents"
	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/config"
	"github.com/himax12/PlotLine/internal/emitter"
	"github.com/himax12/PlotLine/internal/models"
)

// Driver последовательно выполняет этапы пайплайна для одной задачи:
// входной фильтр -> деконструкция -> маппинг -> валидация -> цикл скрайбинга.
// Состояние мутируется строго по очереди, конкурентных писателей нет.
type Driver struct {
	deconstructor *agents.Deconstructor
	mapper        *agents.Mapper
	oracle        *agents.Oracle
	scribe        *agents.Scribe
	guardrail     *agents.Guardrail
	summarizer    *agents.Summarizer
	events        *emitter.Emitter
	cfg           *config.Config
	logger        *zap.Logger
}

// NewDriver собирает драйвер из агентов этапов.
func NewDriver(
	deconstructor *agents.Deconstructor,
	mapper *agents.Mapper,
	oracle *agents.Oracle,
	scribe *agents.Scribe,
	guardrail *agents.Guardrail,
	summarizer *agents.Summarizer,
	events *emitter.Emitter,
	cfg *config.Config,
	logger *zap.Logger,
) *Driver {
	return &Driver{
		deconstructor: deconstructor,
		mapper:        mapper,
		oracle:        oracle,
		scribe:        scribe,
		guardrail:     guardrail,
		summarizer:    summarizer,
		events:        events,
		cfg:           cfg,
		logger:        logger.Named("workflow"),
	}
}

// Run выполняет полный пайплайн для задачи. События публикуются по ходу
// работы; терминальное событие (workflow_complete, error или
// guard_input_blocked) публикуется всегда ровно один раз.
// Закрытие канала задачи - ответственность вызывающего.
func (d *Driver) Run(ctx context.Context, taskID string, st *models.NarrativeState) (*models.NarrativeResult, ai.UsageInfo, error) {
	totalUsage := ai.UsageInfo{}

	d.events.Emit(taskID, models.NewProgressEvent(models.EventWorkflowStart, map[string]any{
		"genre":           st.TargetGenre,
		"words_per_scene": st.WordsPerScene,
		"safety_level":    string(st.SafetyLevel),
	}))

	result, err := d.run(ctx, taskID, st, &totalUsage)
	if err != nil {
		st.ErrorLogs = append(st.ErrorLogs, err.Error())
		d.logger.Error("workflow failed", zap.String("task_id", taskID), zap.Error(err))
		d.events.Emit(taskID, models.NewProgressEvent(models.EventError, map[string]any{
			"message": err.Error(),
		}))
		return nil, totalUsage, err
	}

	d.events.Emit(taskID, models.NewProgressEvent(models.EventWorkflowComplete, map[string]any{
		"title":       result.Title,
		"node_count":  result.GraphNodes,
		"total_words": result.TotalWords,
	}))
	d.logger.Info("workflow complete",
		zap.String("task_id", taskID),
		zap.String("title", result.Title),
		zap.Int("nodes", result.GraphNodes),
		zap.Int("total_words", result.TotalWords))

	return result, totalUsage, nil
}

func (d *Driver) run(ctx context.Context, taskID string, st *models.NarrativeState, totalUsage *ai.UsageInfo) (*models.NarrativeResult, error) {
	// Входной фильтр
	if d.cfg.GuardrailEnabled {
		verdict, usage := d.guardrail.CheckInput(ctx, st.InputText)
		totalUsage.Add(usage)
		st.InputGuardResult = verdict
		if !verdict.IsSafe {
			d.events.Emit(taskID, models.NewProgressEvent(models.EventGuardInputBlocked, map[string]any{
				"risk":                string(verdict.OverallRisk),
				"reasoning":           verdict.Reasoning,
				"transformation_hint": verdict.TransformationHint,
			}))
			return nil, fmt.Errorf("%w: риск %s", models.ErrGuardBlocked, verdict.OverallRisk)
		}
	}

	// Деконструкция
	usage, err := d.deconstructor.Run(ctx, st)
	totalUsage.Add(usage)
	if err != nil {
		return nil, err
	}
	d.events.Emit(taskID, models.NewProgressEvent(models.EventGraphCreated, map[string]any{
		"node_count": len(st.Graph.Nodes),
		"edge_count": len(st.Graph.Edges),
	}))

	// Маппинг
	usage, err = d.mapper.Run(ctx, st)
	totalUsage.Add(usage)
	if err != nil {
		return nil, err
	}
	d.events.Emit(taskID, models.NewProgressEvent(models.EventMappingComplete, map[string]any{
		"structure_type": st.AnalogicalMapping.StructureType,
		"emotional_arc":  st.AnalogicalMapping.EmotionalArc,
	}))

	// Валидация
	results, usage, err := d.oracle.Run(ctx, st)
	totalUsage.Add(usage)
	if err != nil {
		return nil, err
	}
	blocking := 0
	for i := range results {
		blocking += results[i].BlockingViolations()
	}
	d.events.Emit(taskID, models.NewProgressEvent(models.EventValidationComplete, map[string]any{
		"passes":     len(results),
		"violations": blocking,
	}))
	if d.cfg.ValidationStrict && blocking > 0 {
		return nil, fmt.Errorf("%w: %d нарушений", models.ErrValidationBlocked, blocking)
	}

	// Цикл скрайбинга
	if err := d.scribeLoop(ctx, taskID, st, totalUsage); err != nil {
		return nil, err
	}

	// Название рекомендательное: сбой не валит готовую историю
	title, titleUsage, err := d.scribe.Title(ctx, st)
	if err != nil {
		d.logger.Warn("title generation failed", zap.String("task_id", taskID), zap.Error(err))
	} else {
		totalUsage.Add(titleUsage)
	}

	fullText := st.FullText()
	return &models.NarrativeResult{
		Title:      title,
		StoryText:  fullText,
		GraphNodes: len(st.Graph.Nodes),
		Chunks:     st.RenderedChunks,
		TotalWords: agents.CountWords(fullText),
	}, nil
}

// scribeLoop обходит узлы графа строго в порядке плана. Для графа из N
// узлов публикуется ровно N событий chunk_complete, ключи чанков после
// завершения совпадают с множеством ID узлов.
func (d *Driver) scribeLoop(ctx context.Context, taskID string, st *models.NarrativeState, totalUsage *ai.UsageInfo) error {
	totalWords := 0

	for idx := range st.Graph.Nodes {
		node := &st.Graph.Nodes[idx]

		d.events.Emit(taskID, models.NewProgressEvent(models.EventNodeStart, map[string]any{
			"node_id": node.ID,
			"index":   idx,
			"action":  node.Action,
		}))
		d.events.Emit(taskID, models.NewProgressEvent(models.EventChunkStart, map[string]any{
			"node_id": node.ID,
		}))

		chunk, usage, err := d.scribe.RenderNode(ctx, st, idx)
		totalUsage.Add(usage)
		if err != nil {
			return err
		}

		// Трасса рассуждений отдается сразу, не дожидаясь проверки прозы
		d.events.Emit(taskID, models.NewProgressEvent(models.EventChunkReasoning, map[string]any{
			"node_id":   node.ID,
			"reasoning": chunk.Reasoning,
		}))

		// Выходной фильтр: блокирующий риск при текущем уровне безопасности
		// останавливает генерацию
		if d.cfg.GuardrailEnabled {
			verdict, guardUsage := d.guardrail.CheckOutput(ctx, chunk.Prose)
			totalUsage.Add(guardUsage)
			st.OutputGuardResults = append(st.OutputGuardResults, *verdict)
			if verdict.OverallRisk.BlocksAt(st.SafetyLevel) {
				d.events.Emit(taskID, models.NewProgressEvent(models.EventGuardOutputBlocked, map[string]any{
					"node_id": node.ID,
					"risk":    string(verdict.OverallRisk),
				}))
				return fmt.Errorf("%w: проза узла %s заблокирована (риск %s)",
					models.ErrGuardBlocked, node.ID, verdict.OverallRisk)
			}
		}

		st.RenderedChunks[node.ID] = chunk.Prose
		totalWords += agents.CountWords(chunk.Prose)
		d.updateMemory(st, node, chunk.Reasoning, chunk.Prose)

		d.events.Emit(taskID, models.NewProgressEvent(models.EventNodeComplete, map[string]any{
			"node_id": node.ID,
			"index":   idx,
		}))
		d.events.Emit(taskID, models.NewProgressEvent(models.EventChunkComplete, map[string]any{
			"node_id":         node.ID,
			"chunks_rendered": len(st.RenderedChunks),
			"total_words":     totalWords,
		}))

		if d.shouldCompact(st, idx) {
			if compactUsage, err := d.summarizer.Compact(ctx, st); err != nil {
				// Сжатие памяти рекомендательное: сбой не валит генерацию
				d.logger.Warn("memory compaction failed", zap.String("task_id", taskID), zap.Error(err))
			} else {
				totalUsage.Add(compactUsage)
				d.events.Emit(taskID, models.NewProgressEvent(models.EventMemoryCompressed, map[string]any{
					"summary_bytes": len(st.Memory.RunningSummary),
				}))
			}
		}
	}

	return nil
}

// updateMemory дописывает контекст очередной сцены в рабочую память.
func (d *Driver) updateMemory(st *models.NarrativeState, node *models.EventNode, reasoning, prose string) {
	entry := fmt.Sprintf("[%s] %s", node.Action, reasoning)
	if st.Memory.RunningSummary == "" {
		st.Memory.RunningSummary = entry
	} else {
		st.Memory.RunningSummary += "\n" + entry
	}
	st.Memory.LastParagraph = prose
}

// shouldCompact: сжимаем память с фиксированной периодичностью либо когда
// резюме превышает токеновый бюджет. Последняя сцена не сжимается.
func (d *Driver) shouldCompact(st *models.NarrativeState, idx int) bool {
	if idx == len(st.Graph.Nodes)-1 {
		return false
	}
	if d.cfg.MemoryCompactEvery > 0 && (idx+1)%d.cfg.MemoryCompactEvery == 0 {
		return true
	}
	if d.cfg.MemoryTokenBudget > 0 &&
		ai.EstimateTokens(d.cfg.AIModel, st.Memory.RunningSummary) > d.cfg.MemoryTokenBudget {
		return true
	}
	return false
}
