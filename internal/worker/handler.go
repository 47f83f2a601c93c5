package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/emitter"
	"github.com/himax12/PlotLine/internal/messaging"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/repository"
	"github.com/himax12/PlotLine/internal/workflow"
)

// TaskHandler обрабатывает задачи генерации из очереди: запускает пайплайн,
// сохраняет итог и рассылает уведомление о завершении.
type TaskHandler struct {
	driver        *workflow.Driver
	taskRepo      repository.TaskRepository
	narrativeRepo repository.NarrativeRepository // nil - постоянное хранилище выключено
	notifier      *messaging.Notifier            // nil - уведомления выключены
	artifacts     *repository.ArtifactStore
	events        *emitter.Emitter
	logger        *zap.Logger
}

// NewTaskHandler создает обработчик задач генерации.
func NewTaskHandler(
	driver *workflow.Driver,
	taskRepo repository.TaskRepository,
	narrativeRepo repository.NarrativeRepository,
	notifier *messaging.Notifier,
	artifacts *repository.ArtifactStore,
	events *emitter.Emitter,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		driver:        driver,
		taskRepo:      taskRepo,
		narrativeRepo: narrativeRepo,
		notifier:      notifier,
		artifacts:     artifacts,
		events:        events,
		logger:        logger.Named("TaskHandler"),
	}
}

// ProcessTask выполняет одну задачу генерации. Ошибка возвращается только
// для невосстановимых проблем с самим сообщением (уход в DLQ); сбой
// генерации фиксируется в статусе задачи и подтверждается как обработанный,
// автоматических повторов этапов нет.
func (h *TaskHandler) ProcessTask(ctx context.Context, payload *messaging.GenerationTaskPayload) error {
	if payload.Request == nil {
		return fmt.Errorf("%w: задача %s без тела запроса", models.ErrInvalidRequest, payload.TaskID)
	}

	taskID := payload.TaskID
	startTime := time.Now()
	h.logger.Info("Processing generation task", zap.String("task_id", taskID))

	if err := h.taskRepo.UpdateStatus(ctx, taskID, models.TaskStatusProcessing, nil, ""); err != nil {
		h.logger.Warn("Failed to mark task as processing", zap.String("task_id", taskID), zap.Error(err))
	}

	st := models.NewNarrativeState(payload.Request)
	result, usage, runErr := h.driver.Run(ctx, taskID, st)

	// Терминальное событие уже опубликовано драйвером
	h.events.Close(taskID)

	// Артефакты этапов доступны через отладочные эндпоинты и при сбое,
	// если соответствующий этап успел завершиться
	h.artifacts.SaveMapping(taskID, st.AnalogicalMapping)
	h.artifacts.SaveValidations(taskID, st.ValidationResults)

	status := models.TaskStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = models.TaskStatusFailed
		errMsg = runErr.Error()
	}

	if err := h.taskRepo.UpdateStatus(ctx, taskID, status, result, errMsg); err != nil {
		h.logger.Error("Failed to save final task status", zap.String("task_id", taskID), zap.Error(err))
	}

	duration := time.Since(startTime)
	tasksProcessedTotal.WithLabelValues(string(status)).Inc()
	taskDuration.Observe(duration.Seconds())

	if h.narrativeRepo != nil {
		h.persistResult(ctx, payload, st, result, usage, errMsg, startTime, duration)
	}

	if h.notifier != nil {
		notification := &messaging.NotificationPayload{
			TaskID: taskID,
			UserID: payload.UserID,
			Status: status,
			Error:  errMsg,
		}
		if result != nil {
			notification.TotalWords = result.TotalWords
		}
		if err := h.notifier.Notify(ctx, notification); err != nil {
			h.logger.Warn("Failed to publish completion notification",
				zap.String("task_id", taskID), zap.Error(err))
		}
	}

	if runErr != nil {
		h.logger.Error("Generation task failed",
			zap.String("task_id", taskID),
			zap.Duration("duration", duration),
			zap.Error(runErr))
	} else {
		chunksRenderedTotal.Add(float64(len(result.Chunks)))
		h.logger.Info("Generation task completed",
			zap.String("task_id", taskID),
			zap.Duration("duration", duration),
			zap.Int("total_words", result.TotalWords))
	}

	return nil
}

func (h *TaskHandler) persistResult(
	ctx context.Context,
	payload *messaging.GenerationTaskPayload,
	st *models.NarrativeState,
	result *models.NarrativeResult,
	usage ai.UsageInfo,
	errMsg string,
	startTime time.Time,
	duration time.Duration,
) {
	completedAt := time.Now().UTC()
	row := &models.GenerationResult{
		ID:               payload.TaskID,
		UserID:           payload.UserID,
		Genre:            st.TargetGenre,
		NodeCount:        len(st.Graph.Nodes),
		Chunks:           len(st.RenderedChunks),
		Error:            errMsg,
		CreatedAt:        startTime.UTC(),
		CompletedAt:      &completedAt,
		ProcessingTimeMs: duration.Milliseconds(),
	}
	if result != nil {
		row.FullText = result.StoryText
		row.TotalWords = result.TotalWords
	}
	row.PromptTokens = usage.PromptTokens
	row.CompletionTokens = usage.CompletionTokens
	row.EstimatedCostUSD = usage.EstimatedCostUSD

	if err := h.narrativeRepo.SaveResult(ctx, row); err != nil {
		h.logger.Error("Failed to persist generation result",
			zap.String("task_id", payload.TaskID), zap.Error(err))
	}
}
