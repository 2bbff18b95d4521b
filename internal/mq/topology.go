package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	// ExchangeTasks — входящие submissions.
	ExchangeTasks Exchange = "maestro.tasks"

	// ExchangeControl — команды управления worker'ом.
	ExchangeControl Exchange = "maestro.control"

	// ExchangeEvents — fanout событий worker'а.
	ExchangeEvents Exchange = "maestro.events"

	// ExchangeDLQ — некорректные сообщения.
	ExchangeDLQ Exchange = "maestro.dlq"
)

// Queues — имена очередей.
const (
	QueueTasksSubmit     Queue = "tasks.submit"
	QueueControlRequests Queue = "control.requests"
	QueueDLQ             Queue = "dlq.messages"
)

// Routing keys.
const (
	RoutingKeySubmit  RoutingKey = "submit"
	RoutingKeyRequest RoutingKey = "request"
	RoutingKeyDLQ     RoutingKey = "messages"
)

// SetupTopology объявляет обменники, очереди и привязки Maestro.
// Идемпотентна: повторное объявление существующей топологии безопасно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeTasks, "direct"},
		{ExchangeControl, "direct"},
		{ExchangeEvents, "fanout"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// некорректные submissions и команды уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQ),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueTasksSubmit, dlqArgs},
		{QueueControlRequests, dlqArgs},
		{QueueDLQ, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueTasksSubmit, RoutingKeySubmit, ExchangeTasks},
		{QueueControlRequests, RoutingKeyRequest, ExchangeControl},
		{QueueDLQ, RoutingKeyDLQ, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// DeclareEventQueue объявляет эксклюзивную очередь подписчика событий
// и привязывает её к fanout-обменнику maestro.events.
// Очередь живёт, пока жив подписчик.
func DeclareEventQueue(ctx context.Context, conn *Connection) (string, error) {
	var name string
	err := conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		q, err := ch.QueueDeclare(
			"",    // имя генерирует сервер
			false, // durable
			true,  // delete when unused
			true,  // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare event queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, "", string(ExchangeEvents), false, nil); err != nil {
			return fmt.Errorf("bind event queue: %w", err)
		}
		name = q.Name
		return nil
	})
	return name, err
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Maestro RabbitMQ Topology:

    maestro.tasks (direct)
    └── tasks.submit [routing: submit]
            Consumer: Bridge -> Task Registry
            DLQ: dlq.messages

    maestro.control (direct)
    └── control.requests [routing: request]
            Consumer: Bridge -> Control Channel
            DLQ: dlq.messages

    maestro.events (fanout)
    └── <exclusive per-subscriber queues>
            Producer: Bridge <- Event Bus

    maestro.dlq (direct)
    └── dlq.messages [routing: messages]
            Manual processing
  `
}
