package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskProcessor обрабатывает одну задачу генерации.
// Ошибка означает Nack без requeue: сообщение уходит в DLQ.
type TaskProcessor interface {
	ProcessTask(ctx context.Context, payload *GenerationTaskPayload) error
}

// Consumer читает задачи генерации из очереди и передает их обработчику.
type Consumer struct {
	conn      *amqp091.Connection
	queueName string
	processor TaskProcessor
	logger    *zap.Logger
	channel   *amqp091.Channel
	done      chan struct{}
}

// NewConsumer создает консьюмера очереди задач.
func NewConsumer(conn *amqp091.Connection, queueName string, processor TaskProcessor, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:      conn,
		queueName: queueName,
		processor: processor,
		logger:    logger.Named("Consumer"),
		done:      make(chan struct{}),
	}
}

// Start объявляет инфраструктуру очереди и запускает цикл потребления
// в отдельной горутине. Prefetch 1: одна задача на процесс за раз,
// задачи тяжелые и долгие.
func (c *Consumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("открытие канала консьюмера: %w", err)
	}

	if err := DeclareTaskQueue(c.channel, c.queueName); err != nil {
		_ = c.channel.Close()
		return err
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("установка QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack: подтверждаем вручную после обработки
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("регистрация консьюмера: %w", err)
	}

	c.logger.Info("Task consumer started, waiting for generation tasks...",
		zap.String("queue", c.queueName))

	go c.loop(ctx, msgs)
	return nil
}

func (c *Consumer) loop(ctx context.Context, msgs <-chan amqp091.Delivery) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Task consumer stopping: context cancelled")
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed, task consumer stopping")
				return
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp091.Delivery) {
	var payload GenerationTaskPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		c.logger.Error("Failed to decode task payload, sending to DLQ",
			zap.String("message_id", d.MessageId), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	c.logger.Info("Generation task received", zap.String("task_id", payload.TaskID))

	if err := c.processor.ProcessTask(ctx, &payload); err != nil {
		c.logger.Error("Task processing failed, sending to DLQ",
			zap.String("task_id", payload.TaskID), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack task", zap.String("task_id", payload.TaskID), zap.Error(err))
		return
	}
	c.logger.Info("Generation task acknowledged", zap.String("task_id", payload.TaskID))
}

// Stop закрывает канал и дожидается завершения цикла потребления.
func (c *Consumer) Stop() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	<-c.done
	c.logger.Info("Task consumer stopped")
}
