package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

// HandleStream обрабатывает GET /api/narrative/stream/:task_id.
// Отдает события прогресса через Server-Sent Events. Пока событий нет,
// каждые heartbeat секунд отправляется heartbeat. Поток закрывается
// после терминального события или разрыва соединения клиентом.
func (h *NarrativeHandler) HandleStream(c *gin.Context) {
	taskID := c.Param("task_id")

	events := h.events.Subscribe(taskID)
	if events == nil {
		// Канал не зарегистрирован: либо задача неизвестна, либо уже завершена
		if _, err := h.taskRepo.Get(c.Request.Context(), taskID); err != nil {
			if errors.Is(err, models.ErrTaskNotFound) {
				c.JSON(http.StatusNotFound, errorResponse{Error: "задача не найдена"})
				return
			}
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "не удалось прочитать задачу"})
			return
		}
		c.JSON(http.StatusGone, errorResponse{Error: "поток задачи уже завершен, используйте эндпоинт статуса"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	h.logger.Info("SSE subscriber connected", zap.String("task_id", taskID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			h.logger.Info("SSE subscriber disconnected", zap.String("task_id", taskID))
			return false
		case event, ok := <-events:
			if !ok {
				// Канал закрыт воркером после терминального события
				return false
			}
			c.SSEvent(string(event.Type), event)
			ticker.Reset(h.heartbeat)
			return !event.Type.IsTerminal()
		case <-ticker.C:
			c.SSEvent(string(models.EventHeartbeat), models.HeartbeatEvent())
			return true
		}
	})
}
