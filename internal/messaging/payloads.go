package messaging

import "github.com/himax12/PlotLine/internal/models"

// Имена очередей и инфраструктуры RabbitMQ
const (
	// DeadLetterExchange - exchange для сообщений, отвергнутых консьюмером
	DeadLetterExchange = "narrative_dlx"
	// DeadLetterQueueSuffix добавляется к имени основной очереди
	DeadLetterQueueSuffix = "_dead_letter"
)

// GenerationTaskPayload - сообщение задачи генерации в очереди задач.
type GenerationTaskPayload struct {
	TaskID  string                    `json:"task_id"`
	UserID  string                    `json:"user_id,omitempty"`
	Request *models.GenerationRequest `json:"request"`
}

// NotificationPayload - уведомление о завершении задачи в очереди обновлений.
type NotificationPayload struct {
	TaskID     string            `json:"task_id"`
	UserID     string            `json:"user_id,omitempty"`
	Status     models.TaskStatus `json:"status"`
	TotalWords int               `json:"total_words,omitempty"`
	Error      string            `json:"error,omitempty"`
}
