package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskPublisher публикует задачи генерации в очередь задач.
type TaskPublisher struct {
	conn      *amqp091.Connection
	queueName string
	logger    *zap.Logger
}

// NewTaskPublisher создает паблишер и объявляет инфраструктуру очереди.
func NewTaskPublisher(conn *amqp091.Connection, queueName string, logger *zap.Logger) (*TaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("открытие канала паблишера: %w", err)
	}
	defer ch.Close()

	if err := DeclareTaskQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &TaskPublisher{
		conn:      conn,
		queueName: queueName,
		logger:    logger.Named("TaskPublisher"),
	}, nil
}

// DeclareTaskQueue объявляет основную очередь задач с DLX и мертвую очередь.
// Идемпотентно: и паблишер, и консьюмер могут стартовать первыми.
func DeclareTaskQueue(ch *amqp091.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(
		DeadLetterExchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("объявление DLX: %w", err)
	}

	dlqName := queueName + DeadLetterQueueSuffix
	if _, err := ch.QueueDeclare(
		dlqName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{"x-queue-mode": "lazy"},
	); err != nil {
		return fmt.Errorf("объявление DLQ: %w", err)
	}

	if err := ch.QueueBind(dlqName, queueName, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("привязка DLQ: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{
			"x-queue-mode":              "lazy",
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": queueName,
		},
	); err != nil {
		return fmt.Errorf("объявление очереди задач: %w", err)
	}

	return nil
}

// Publish отправляет задачу генерации в очередь.
func (p *TaskPublisher) Publish(ctx context.Context, payload *GenerationTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация задачи %s: %w", payload.TaskID, err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("открытие канала публикации: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    payload.TaskID,
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish generation task",
			zap.String("task_id", payload.TaskID), zap.Error(err))
		return fmt.Errorf("публикация задачи %s: %w", payload.TaskID, err)
	}

	p.logger.Info("Generation task published",
		zap.String("task_id", payload.TaskID),
		zap.String("queue", p.queueName))
	return nil
}
