package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/models"
)

// blockingProcessor имитирует долгую обработку задачи, управляемую тестом.
type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (p *blockingProcessor) ProcessTask(ctx context.Context, _ *GenerationTaskPayload) error {
	close(p.started)
	<-p.release
	p.ctxErr = ctx.Err()
	return nil
}

func TestConsumer_DrainFinishesInFlightTask(t *testing.T) {
	proc := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{})}
	c := NewConsumer(nil, "tasks", proc, zap.NewNop())

	body, err := json.Marshal(&GenerationTaskPayload{
		TaskID:  "task-1",
		Request: &models.GenerationRequest{InputText: "a story premise"},
	})
	require.NoError(t, err)

	msgs := make(chan amqp091.Delivery, 1)
	msgs <- amqp091.Delivery{MessageId: "task-1", Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.loop(ctx, msgs)

	// Канал доставки закрывается посреди обработки: задача дорабатывает,
	// цикл завершается только после ее окончания
	<-proc.started
	close(msgs)
	close(proc.release)

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("цикл потребления не остановился после закрытия канала доставки")
	}

	// Контекст задачи не отменялся во время остановки
	assert.NoError(t, proc.ctxErr)
}

func TestConsumer_ContextCancelStopsLoop(t *testing.T) {
	proc := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{})}
	close(proc.release)
	c := NewConsumer(nil, "tasks", proc, zap.NewNop())

	msgs := make(chan amqp091.Delivery)
	ctx, cancel := context.WithCancel(context.Background())
	go c.loop(ctx, msgs)

	cancel()

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("цикл потребления не остановился после отмены контекста")
	}
}
