package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

// Проверка реализации интерфейса на этапе компиляции
var _ TaskRepository = (*RedisTaskRepository)(nil)

const taskKeyPrefix = "narrative:task:"

// RedisTaskRepository хранит записи задач в Redis с TTL.
// Позволяет опрашивать статус с любого инстанса сервиса.
type RedisTaskRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTaskRepository создает хранилище задач поверх Redis.
func NewRedisTaskRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisTaskRepository {
	return &RedisTaskRepository{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisTaskRepository"),
	}
}

func taskKey(taskID string) string {
	return taskKeyPrefix + taskID
}

// Save сериализует запись задачи в JSON и сохраняет с TTL.
func (r *RedisTaskRepository) Save(ctx context.Context, record *models.TaskRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("сериализация записи задачи %s: %w", record.TaskID, err)
	}
	if err := r.client.Set(ctx, taskKey(record.TaskID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save task record", zap.String("task_id", record.TaskID), zap.Error(err))
		return fmt.Errorf("сохранение записи задачи %s: %w", record.TaskID, err)
	}
	return nil
}

// Get читает и десериализует запись задачи.
func (r *RedisTaskRepository) Get(ctx context.Context, taskID string) (*models.TaskRecord, error) {
	data, err := r.client.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("чтение записи задачи %s: %w", taskID, err)
	}

	var record models.TaskRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("десериализация записи задачи %s: %w", taskID, err)
	}
	return &record, nil
}

// UpdateStatus читает, модифицирует и перезаписывает запись задачи.
// У задачи один писатель (воркер), поэтому read-modify-write безопасен.
func (r *RedisTaskRepository) UpdateStatus(ctx context.Context, taskID string, status models.TaskStatus, result *models.NarrativeResult, errMsg string) error {
	record, err := r.Get(ctx, taskID)
	if err != nil {
		return err
	}
	record.Status = status
	record.Result = result
	record.Error = errMsg
	record.UpdatedAt = time.Now().UTC()
	return r.Save(ctx, record)
}
