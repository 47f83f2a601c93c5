package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/himax12/PlotLine/internal/models"
)

// Проверка реализации интерфейса на этапе компиляции
var _ TaskRepository = (*MemoryTaskRepository)(nil)

// MemoryTaskRepository - хранилище задач в памяти процесса.
// Используется в разработке и когда Redis не настроен.
// Записи живут до перезапуска процесса.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]models.TaskRecord
}

// NewMemoryTaskRepository создает пустое хранилище задач в памяти.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]models.TaskRecord)}
}

// Save создает или заменяет запись задачи.
func (r *MemoryTaskRepository) Save(_ context.Context, record *models.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[record.TaskID] = *record
	return nil
}

// Get возвращает копию записи задачи.
func (r *MemoryTaskRepository) Get(_ context.Context, taskID string) (*models.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, taskID)
	}
	return &record, nil
}

// UpdateStatus переводит задачу в новый статус.
func (r *MemoryTaskRepository) UpdateStatus(_ context.Context, taskID string, status models.TaskStatus, result *models.NarrativeResult, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.tasks[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrTaskNotFound, taskID)
	}
	record.Status = status
	record.Result = result
	record.Error = errMsg
	record.UpdatedAt = time.Now().UTC()
	r.tasks[taskID] = record
	return nil
}
