package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin проверяется CORS-middleware на уровне роутера
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket обрабатывает GET /api/narrative/ws/:task_id.
// Тот же поток событий, что и SSE, но поверх WebSocket: удобно для
// клиентов, которым нужен двунаправленный канал.
func (h *NarrativeHandler) HandleWebSocket(c *gin.Context) {
	taskID := c.Param("task_id")

	events := h.events.Subscribe(taskID)
	if events == nil {
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

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket subscriber connected", zap.String("task_id", taskID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.logger.Info("WebSocket subscriber disconnected", zap.String("task_id", taskID))
			return
		case event, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("Failed to write event to WebSocket",
					zap.String("task_id", taskID), zap.Error(err))
				return
			}
			ticker.Reset(h.heartbeat)
			if event.Type.IsTerminal() {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(models.HeartbeatEvent()); err != nil {
				h.logger.Warn("Failed to write heartbeat to WebSocket",
					zap.String("task_id", taskID), zap.Error(err))
				return
			}
		}
	}
}
