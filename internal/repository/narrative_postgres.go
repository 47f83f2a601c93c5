package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

// NarrativeRepository хранит результаты генерации в постоянном хранилище.
type NarrativeRepository interface {
	// SaveResult создает или обновляет результат генерации.
	SaveResult(ctx context.Context, result *models.GenerationResult) error
	// GetResult возвращает результат по ID задачи или models.ErrTaskNotFound.
	GetResult(ctx context.Context, id string) (*models.GenerationResult, error)
}

// Проверка реализации интерфейса на этапе компиляции
var _ NarrativeRepository = (*PostgresNarrativeRepository)(nil)

// PostgresNarrativeRepository - реализация поверх pgx connection pool.
type PostgresNarrativeRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresNarrativeRepository создает репозиторий результатов.
func NewPostgresNarrativeRepository(pool *pgxpool.Pool, logger *zap.Logger) *PostgresNarrativeRepository {
	return &PostgresNarrativeRepository{
		pool:   pool,
		logger: logger.Named("PostgresNarrativeRepository"),
	}
}

// SaveResult выполняет upsert результата генерации по ID задачи.
func (r *PostgresNarrativeRepository) SaveResult(ctx context.Context, result *models.GenerationResult) error {
	query := `
		INSERT INTO generation_results (
			id, user_id, genre, node_count, chunks, full_text, total_words,
			error, created_at, completed_at, processing_time_ms,
			prompt_tokens, completion_tokens, estimated_cost_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			node_count = EXCLUDED.node_count,
			chunks = EXCLUDED.chunks,
			full_text = EXCLUDED.full_text,
			total_words = EXCLUDED.total_words,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at,
			processing_time_ms = EXCLUDED.processing_time_ms,
			prompt_tokens = EXCLUDED.prompt_tokens,
			completion_tokens = EXCLUDED.completion_tokens,
			estimated_cost_usd = EXCLUDED.estimated_cost_usd
	`
	_, err := r.pool.Exec(ctx, query,
		result.ID, result.UserID, result.Genre, result.NodeCount, result.Chunks,
		result.FullText, result.TotalWords, result.Error, result.CreatedAt,
		result.CompletedAt, result.ProcessingTimeMs,
		result.PromptTokens, result.CompletionTokens, result.EstimatedCostUSD,
	)
	if err != nil {
		r.logger.Error("Failed to save generation result",
			zap.String("id", result.ID), zap.Error(err))
		return fmt.Errorf("сохранение результата %s: %w", result.ID, err)
	}

	r.logger.Info("Generation result saved",
		zap.String("id", result.ID),
		zap.Int("total_words", result.TotalWords))
	return nil
}

// GetResult читает результат генерации по ID задачи.
func (r *PostgresNarrativeRepository) GetResult(ctx context.Context, id string) (*models.GenerationResult, error) {
	query := `
		SELECT id, user_id, genre, node_count, chunks, full_text, total_words,
		       error, created_at, completed_at, processing_time_ms,
		       prompt_tokens, completion_tokens, estimated_cost_usd
		FROM generation_results
		WHERE id = $1
	`
	var result models.GenerationResult
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&result.ID, &result.UserID, &result.Genre, &result.NodeCount, &result.Chunks,
		&result.FullText, &result.TotalWords, &result.Error, &result.CreatedAt,
		&result.CompletedAt, &result.ProcessingTimeMs,
		&result.PromptTokens, &result.CompletionTokens, &result.EstimatedCostUSD,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("чтение результата %s: %w", id, err)
	}
	return &result, nil
}
