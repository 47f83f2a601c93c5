package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier публикует уведомления о завершении задач в очередь обновлений.
// Уведомления необязательные: их потеря не влияет на результат задачи.
type Notifier struct {
	conn      *amqp091.Connection
	queueName string
	logger    *zap.Logger
}

// NewNotifier создает нотификатор и объявляет очередь обновлений.
func NewNotifier(conn *amqp091.Connection, queueName string, logger *zap.Logger) (*Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("открытие канала нотификатора: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp091.Table{"x-queue-mode": "lazy"},
	); err != nil {
		return nil, fmt.Errorf("объявление очереди обновлений: %w", err)
	}

	return &Notifier{
		conn:      conn,
		queueName: queueName,
		logger:    logger.Named("Notifier"),
	}, nil
}

// Notify отправляет уведомление о статусе задачи.
func (n *Notifier) Notify(ctx context.Context, payload *NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("сериализация уведомления %s: %w", payload.TaskID, err)
	}

	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("открытие канала уведомления: %w", err)
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    payload.TaskID,
			Body:         body,
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish notification",
			zap.String("task_id", payload.TaskID), zap.Error(err))
		return fmt.Errorf("публикация уведомления %s: %w", payload.TaskID, err)
	}

	n.logger.Info("Task notification published",
		zap.String("task_id", payload.TaskID),
		zap.String("status", string(payload.Status)))
	return nil
}
