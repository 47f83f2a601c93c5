package repository

import (
	"context"

	"github.com/himax12/PlotLine/internal/models"
)

// TaskRepository хранит записи задач генерации для опроса статуса.
type TaskRepository interface {
	// Save создает или полностью заменяет запись задачи.
	Save(ctx context.Context, record *models.TaskRecord) error
	// Get возвращает запись задачи или models.ErrTaskNotFound.
	Get(ctx context.Context, taskID string) (*models.TaskRecord, error)
	// UpdateStatus переводит задачу в новый статус. result и errMsg
	// заполняются только для терминальных статусов.
	UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, result *models.NarrativeResult, errMsg string) error
}
