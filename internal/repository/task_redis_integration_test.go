package repository_test // Используем _test пакет для изоляции

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/repository"
)

// RedisTaskRepoSuite проверяет хранилище задач на реальном Redis в контейнере.
type RedisTaskRepoSuite struct {
	suite.Suite
	ctx         context.Context
	rdContainer *tcredis.RedisContainer
	redisClient *redis.Client
	repo        *repository.RedisTaskRepository
	logger      *zap.Logger
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *RedisTaskRepoSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")

	// Запускаем контейнер Redis
	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")
	s.logger.Info("Redis container started")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort.Port())

	s.redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
	_, err = s.redisClient.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")
	s.logger.Info("Connected to test Redis")

	s.repo = repository.NewRedisTaskRepository(s.redisClient, time.Hour, s.logger)
}

// TearDownSuite выполняется один раз после всех тестов в наборе
func (s *RedisTaskRepoSuite) TearDownSuite() {
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
}

// Перед каждым тестом очищаем Redis
func (s *RedisTaskRepoSuite) SetupTest() {
	err := s.redisClient.FlushDB(s.ctx).Err()
	require.NoError(s.T(), err, "Failed to flush Redis DB")
}

func TestRedisTaskRepoSuite(t *testing.T) {
	// Пропускаем тесты, если запущены с флагом -short
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RedisTaskRepoSuite))
}

func (s *RedisTaskRepoSuite) TestSaveAndGet() {
	t := s.T()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	record := &models.TaskRecord{
		TaskID:    "task-1",
		UserID:    "user-1",
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.repo.Save(ctx, record))

	got, err := s.repo.Get(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, "task-1", got.TaskID)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, models.TaskStatusQueued, got.Status)
	require.True(t, got.CreatedAt.Equal(now))
}

func (s *RedisTaskRepoSuite) TestGetNotFound() {
	t := s.T()

	_, err := s.repo.Get(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTaskNotFound), "Error should be ErrTaskNotFound")
}

func (s *RedisTaskRepoSuite) TestUpdateStatus() {
	t := s.T()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.repo.Save(ctx, &models.TaskRecord{
		TaskID:    "task-1",
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	result := &models.NarrativeResult{
		StoryText:  "generated story text",
		GraphNodes: 5,
		Chunks:     map[string]string{"n1": "scene one"},
		TotalWords: 42,
	}
	require.NoError(t, s.repo.UpdateStatus(ctx, "task-1", models.TaskStatusCompleted, result, ""))

	got, err := s.repo.Get(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	require.Equal(t, 5, got.Result.GraphNodes)
	require.Equal(t, "scene one", got.Result.Chunks["n1"])
	require.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	// Перевод в failed с текстом ошибки
	require.NoError(t, s.repo.UpdateStatus(ctx, "task-1", models.TaskStatusFailed, nil, "ошибка генерации"))
	got, err = s.repo.Get(ctx, "task-1")
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusFailed, got.Status)
	require.Nil(t, got.Result)
	require.Equal(t, "ошибка генерации", got.Error)
}

func (s *RedisTaskRepoSuite) TestUpdateStatusNotFound() {
	t := s.T()

	err := s.repo.UpdateStatus(context.Background(), "missing", models.TaskStatusFailed, nil, "boom")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTaskNotFound), "Error should be ErrTaskNotFound")
}

func (s *RedisTaskRepoSuite) TestRecordExpiresWithTTL() {
	t := s.T()
	ctx := context.Background()

	shortRepo := repository.NewRedisTaskRepository(s.redisClient, 100*time.Millisecond, s.logger)
	now := time.Now().UTC()
	require.NoError(t, shortRepo.Save(ctx, &models.TaskRecord{
		TaskID:    "short-lived",
		Status:    models.TaskStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	_, err := shortRepo.Get(ctx, "short-lived")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	_, err = shortRepo.Get(ctx, "short-lived")
	require.Error(t, err)
	require.True(t, errors.Is(err, models.ErrTaskNotFound), "Error should be ErrTaskNotFound after TTL expiry")
}
