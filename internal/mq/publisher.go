package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Maestro/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeTaskSubmit     MessageType = "task.submit"
	MessageTypeControlRequest MessageType = "control.request"
	MessageTypeWorkerEvent    MessageType = "worker.event"
)

// Действия control.request.
const (
	ControlActionBegin  = "begin"
	ControlActionPause  = "pause"
	ControlActionResume = "resume"
	ControlActionCancel = "cancel"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// TaskSubmitPayload — payload для постановки task.
type TaskSubmitPayload struct {
	// Plan — имя плана.
	Plan string `json:"plan"`

	// Params — параметры плана.
	Params map[string]any `json:"params,omitempty"`
}

// ControlPayload — payload команды управления worker'ом.
type ControlPayload struct {
	// Action — begin, pause, resume или cancel.
	Action string `json:"action"`

	// TaskID — id task для begin; nil — голова очереди.
	TaskID *uuid.UUID `json:"task_id,omitempty"`

	// Immediate — для pause: прерваться на ближайшей инструкции.
	Immediate bool `json:"immediate,omitempty"`

	// Fail — для cancel: пометить task завершённой с ошибкой.
	Fail bool `json:"fail,omitempty"`

	// Reason — для cancel: причина остановки.
	Reason string `json:"reason,omitempty"`
}

// WorkerEventPayload — payload события worker'а.
type WorkerEventPayload struct {
	State     string     `json:"state"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishTaskSubmit ставит task в очередь submissions.
// Потребитель: Bridge.
func (p *Publisher) PublishTaskSubmit(ctx context.Context, payload TaskSubmitPayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeySubmit, newMessage(MessageTypeTaskSubmit, payload))
}

// PublishControl отправляет команду управления worker'ом.
// Потребитель: Bridge.
func (p *Publisher) PublishControl(ctx context.Context, payload ControlPayload) error {
	return p.Publish(ctx, ExchangeControl, RoutingKeyRequest, newMessage(MessageTypeControlRequest, payload))
}

// PublishWorkerEvent раздаёт событие worker'а всем подписчикам.
func (p *Publisher) PublishWorkerEvent(ctx context.Context, ev domain.WorkerEvent) error {
	payload := WorkerEventPayload{
		State:     ev.State.String(),
		TaskID:    ev.TaskID,
		Error:     ev.Error,
		Timestamp: ev.Timestamp,
	}
	return p.Publish(ctx, ExchangeEvents, "", newMessage(MessageTypeWorkerEvent, payload))
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
