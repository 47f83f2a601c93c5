package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/agents"
	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/config"
	"github.com/himax12/PlotLine/internal/emitter"
	"github.com/himax12/PlotLine/internal/messaging"
	"github.com/himax12/PlotLine/internal/mocks"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/repository"
	"github.com/himax12/PlotLine/internal/workflow"
)

func pipelineGraphJSON() json.RawMessage {
	return json.RawMessage(`{
		"nodes": [
			{"id":"n1","action":"open","actors":["hero"],"preconditions":[],"postconditions":["p1"],"reasoning":""},
			{"id":"n2","action":"rise","actors":["hero"],"preconditions":["p1"],"postconditions":["p2"],"reasoning":""},
			{"id":"n3","action":"turn","actors":["hero"],"preconditions":["p2"],"postconditions":["p3"],"reasoning":""},
			{"id":"n4","action":"fall","actors":["hero"],"preconditions":["p3"],"postconditions":["p4"],"reasoning":""},
			{"id":"n5","action":"close","actors":["hero"],"preconditions":["p4"],"postconditions":["p5"],"reasoning":""}
		],
		"edges": [
			{"source":"n1","target":"n2","relation":"then"},
			{"source":"n2","target":"n3","relation":"then"},
			{"source":"n3","target":"n4","relation":"then"},
			{"source":"n4","target":"n5","relation":"then"}
		]
	}`)
}

func newPipeline(t *testing.T, client ai.Client) (*workflow.Driver, *emitter.Emitter) {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{AIModel: "gpt-3.5-turbo"}
	events := emitter.New()
	driver := workflow.NewDriver(
		agents.NewDeconstructor(client, log),
		agents.NewMapper(client, log),
		agents.NewOracle(nil, log),
		agents.NewScribe(client, log),
		agents.NewGuardrail(client, log),
		agents.NewSummarizer(client, log),
		events,
		cfg,
		log,
	)
	return driver, events
}

func expectSuccessfulRun(client *mocks.MockAIClient) {
	client.On("GenerateStructured", mock.Anything, "deconstruct", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pipelineGraphJSON(), ai.UsageInfo{TotalTokens: 100}, nil).Once()
	client.On("GenerateStructured", mock.Anything, "map", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"entity_archetypes":[],"action_patterns":[],"structure_type":"Three-Act","emotional_arc":["Rise"],"reasoning":""}`), ai.UsageInfo{}, nil).Once()
	client.On("GenerateStructured", mock.Anything, "scribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"reasoning":"plan","prose":"Scene prose with several words in it."}`), ai.UsageInfo{TotalTokens: 10}, nil).Times(5)
	client.On("GenerateText", mock.Anything, "title", mock.Anything, mock.Anything, mock.Anything).
		Return("The Open Door", ai.UsageInfo{}, nil).Once()
}

func TestProcessTask_Success(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	expectSuccessfulRun(client)

	driver, events := newPipeline(t, client)
	taskRepo := repository.NewMemoryTaskRepository()
	artifacts := repository.NewArtifactStore()
	handler := NewTaskHandler(driver, taskRepo, nil, nil, artifacts, events, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, taskRepo.Save(ctx, &models.TaskRecord{TaskID: "task-1", Status: models.TaskStatusQueued}))
	events.Register("task-1")

	req := &models.GenerationRequest{InputText: "a story premise"}
	req.ApplyDefaults()
	err := handler.ProcessTask(ctx, &messaging.GenerationTaskPayload{
		TaskID:  "task-1",
		UserID:  "user-1",
		Request: req,
	})
	require.NoError(t, err)

	record, err := taskRepo.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, record.Status)
	require.NotNil(t, record.Result)
	assert.Equal(t, "The Open Door", record.Result.Title)
	assert.Equal(t, 5, record.Result.GraphNodes)
	assert.Len(t, record.Result.Chunks, 5)
	assert.Empty(t, record.Error)

	// Артефакты этапов сохранены для отладочных эндпоинтов
	mapping, ok := artifacts.GetMapping("task-1")
	require.True(t, ok)
	assert.Equal(t, "Three-Act", mapping.StructureType)
	results, ok := artifacts.GetValidations("task-1")
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsValid)

	// Канал событий закрыт после терминального события
	assert.Nil(t, events.Subscribe("task-1"))

	client.AssertExpectations(t)
}

func TestProcessTask_GenerationFailureIsAcked(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	client.On("GenerateStructured", mock.Anything, "deconstruct", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ai.UsageInfo{}, models.ErrGenerationFailed).Once()

	driver, events := newPipeline(t, client)
	taskRepo := repository.NewMemoryTaskRepository()
	handler := NewTaskHandler(driver, taskRepo, nil, nil, repository.NewArtifactStore(), events, zap.NewNop())

	ctx := context.Background()
	require.NoError(t, taskRepo.Save(ctx, &models.TaskRecord{TaskID: "task-1", Status: models.TaskStatusQueued}))
	events.Register("task-1")

	req := &models.GenerationRequest{InputText: "a story premise"}
	req.ApplyDefaults()

	// Сбой генерации фиксируется в статусе, сообщение подтверждается (nil)
	err := handler.ProcessTask(ctx, &messaging.GenerationTaskPayload{TaskID: "task-1", Request: req})
	require.NoError(t, err)

	record, err := taskRepo.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, record.Status)
	assert.NotEmpty(t, record.Error)
	assert.Nil(t, record.Result)
}

func TestProcessTask_StatusStoreFailureStillAcks(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	expectSuccessfulRun(client)

	// Хранилище статусов недоступно: оба апдейта падают
	taskRepo := mocks.NewMockTaskRepository(t)
	taskRepo.On("UpdateStatus", mock.Anything, "task-1", models.TaskStatusProcessing, mock.Anything, "").
		Return(errors.New("redis: connection refused")).Once()
	taskRepo.On("UpdateStatus", mock.Anything, "task-1", models.TaskStatusCompleted, mock.Anything, "").
		Return(errors.New("redis: connection refused")).Once()

	driver, events := newPipeline(t, client)
	handler := NewTaskHandler(driver, taskRepo, nil, nil, repository.NewArtifactStore(), events, zap.NewNop())
	events.Register("task-1")

	req := &models.GenerationRequest{InputText: "a story premise"}
	req.ApplyDefaults()

	// Сбой записи статуса логируется, сообщение не уходит в DLQ
	err := handler.ProcessTask(context.Background(), &messaging.GenerationTaskPayload{TaskID: "task-1", Request: req})
	require.NoError(t, err)
	taskRepo.AssertExpectations(t)
}

func TestProcessTask_NilRequestGoesToDLQ(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	driver, events := newPipeline(t, client)
	handler := NewTaskHandler(driver, repository.NewMemoryTaskRepository(), nil, nil, repository.NewArtifactStore(), events, zap.NewNop())

	err := handler.ProcessTask(context.Background(), &messaging.GenerationTaskPayload{TaskID: "task-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidRequest))
}
