package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/emitter"
	"github.com/himax12/PlotLine/internal/messaging"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/repository"
)

// publisher публикует задачи генерации. Интерфейс для подмены в тестах.
type publisher interface {
	Publish(ctx context.Context, payload *messaging.GenerationTaskPayload) error
}

// NarrativeHandler обрабатывает HTTP запросы к API генерации историй.
type NarrativeHandler struct {
	publisher publisher
	taskRepo  repository.TaskRepository
	artifacts *repository.ArtifactStore
	events    *emitter.Emitter
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewNarrativeHandler создает обработчик API.
func NewNarrativeHandler(
	pub publisher,
	taskRepo repository.TaskRepository,
	artifacts *repository.ArtifactStore,
	events *emitter.Emitter,
	heartbeat time.Duration,
	logger *zap.Logger,
) *NarrativeHandler {
	return &NarrativeHandler{
		publisher: pub,
		taskRepo:  taskRepo,
		artifacts: artifacts,
		events:    events,
		heartbeat: heartbeat,
		logger:    logger.Named("NarrativeHandler"),
	}
}

// RegisterRoutes регистрирует маршруты API на роутере.
func (h *NarrativeHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/narrative")
	{
		api.POST("/generate", h.HandleGenerate)
		api.GET("/status/:task_id", h.HandleStatus)
		api.GET("/stream/:task_id", h.HandleStream)
		api.GET("/ws/:task_id", h.HandleWebSocket)
		api.GET("/mapping/:task_id", h.HandleMapping)
		api.GET("/validation/:task_id", h.HandleValidation)
	}
}

// HandleGenerate обрабатывает POST /api/narrative/generate.
// Валидирует запрос, регистрирует канал событий, ставит задачу в очередь
// и сразу возвращает 202 с идентификатором задачи.
func (h *NarrativeHandler) HandleGenerate(c *gin.Context) {
	var body generateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "некорректное тело запроса: " + err.Error()})
		return
	}

	req := body.toModel()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	taskID := uuid.New().String()
	userID := c.GetString("user_id") // Пусто без JWT middleware
	now := time.Now().UTC()

	record := &models.TaskRecord{
		TaskID:    taskID,
		UserID:    userID,
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.taskRepo.Save(c.Request.Context(), record); err != nil {
		h.logger.Error("Failed to save task record", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "не удалось сохранить задачу"})
		return
	}

	// Канал регистрируется до публикации: события, опубликованные до
	// подключения подписчика, не теряются
	h.events.Register(taskID)

	payload := &messaging.GenerationTaskPayload{
		TaskID:  taskID,
		UserID:  userID,
		Request: req,
	}
	if err := h.publisher.Publish(c.Request.Context(), payload); err != nil {
		h.events.Close(taskID)
		// Запись не должна навечно остаться в queued: опрос статуса по
		// такому ID обязан показать сбой
		if updErr := h.taskRepo.UpdateStatus(c.Request.Context(), taskID,
			models.TaskStatusFailed, nil, "не удалось поставить задачу в очередь"); updErr != nil {
			h.logger.Warn("Failed to mark unqueued task as failed",
				zap.String("task_id", taskID), zap.Error(updErr))
		}
		h.logger.Error("Failed to publish generation task", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "не удалось поставить задачу в очередь"})
		return
	}

	h.logger.Info("Generation task accepted",
		zap.String("task_id", taskID),
		zap.String("genre", req.TargetGenre))

	c.JSON(http.StatusAccepted, generateResponse{
		TaskID: taskID,
		Status: string(models.TaskStatusQueued),
	})
}

// HandleStatus обрабатывает GET /api/narrative/status/:task_id.
func (h *NarrativeHandler) HandleStatus(c *gin.Context) {
	taskID := c.Param("task_id")

	record, err := h.taskRepo.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, models.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "задача не найдена"})
			return
		}
		h.logger.Error("Failed to load task record", zap.String("task_id", taskID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "не удалось прочитать задачу"})
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		TaskID: record.TaskID,
		Status: string(record.Status),
		Result: record.Result,
		Error:  record.Error,
	})
}

// HandleMapping обрабатывает GET /api/narrative/mapping/:task_id.
// 404, пока этап маппинга не завершен.
func (h *NarrativeHandler) HandleMapping(c *gin.Context) {
	taskID := c.Param("task_id")
	mapping, ok := h.artifacts.GetMapping(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "маппинг для задачи еще недоступен"})
		return
	}
	c.JSON(http.StatusOK, mapping)
}

// HandleValidation обрабатывает GET /api/narrative/validation/:task_id.
// 404, пока этап валидации не завершен.
func (h *NarrativeHandler) HandleValidation(c *gin.Context) {
	taskID := c.Param("task_id")
	results, ok := h.artifacts.GetValidations(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "результаты валидации для задачи еще недоступны"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// HandleHealth обрабатывает GET /health.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
