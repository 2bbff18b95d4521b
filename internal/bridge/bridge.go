package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/mq"
	"github.com/shaiso/Maestro/internal/worker"
)

const defaultEventBuffer = 256

// Bridge соединяет worker с RabbitMQ.
//
// Входящая сторона:
//   - tasks.submit → Submit в реестр worker'а
//   - control.requests → Begin/Pause/Resume/CancelActive
//
// Исходящая сторона:
//   - события Event Bus → fanout maestro.events
//
// Bridge — адаптер: семантика ядра не меняется, ошибки операций
// управления транслируются как есть.
type Bridge struct {
	worker    *worker.Worker
	conn      *mq.Connection
	publisher *mq.Publisher

	taskConsumer    *mq.Consumer
	controlConsumer *mq.Consumer
	sub             *worker.Subscription

	// events — буфер между Execution Loop'ом и публикацией в AMQP:
	// подписчик шины не должен блокировать выполнение tasks.
	events chan domain.WorkerEvent

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Bridge.
type Config struct {
	// Worker — ядро, к которому подключается bridge. Обязателен.
	Worker *worker.Worker

	// Conn — AMQP соединение. Обязателен для Start.
	Conn *mq.Connection

	// EventBuffer — ёмкость буфера исходящих событий (default: 256).
	// При переполнении событие отбрасывается с warning'ом.
	EventBuffer int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Bridge.
func New(cfg Config) *Bridge {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{
		worker: cfg.Worker,
		conn:   cfg.Conn,
		events: make(chan domain.WorkerEvent, buffer),
		logger: logger,
	}
	if cfg.Conn != nil {
		b.publisher = mq.NewPublisher(cfg.Conn, logger)
	}
	return b
}

// Start запускает consumers и пересылку событий.
func (b *Bridge) Start(ctx context.Context) error {
	if b.worker == nil {
		return errors.New("bridge: worker is required")
	}
	if b.conn == nil {
		return errors.New("bridge: amqp connection is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancelFunc = cancel

	b.taskConsumer = mq.NewConsumer(b.conn, b.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueTasksSubmit),
		Handler:  b.handleTaskSubmit,
		Prefetch: 10,
	})

	b.controlConsumer = mq.NewConsumer(b.conn, b.logger, mq.ConsumerConfig{
		Queue:   string(mq.QueueControlRequests),
		Handler: b.handleControl,
		// команды управления обрабатываются строго по одной
		Prefetch: 1,
	})

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.taskConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("task consumer error", "error", err)
		}
	}()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.controlConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("control consumer error", "error", err)
		}
	}()

	b.sub = b.worker.Subscribe(b.enqueueEvent)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.forwardEvents(ctx)
	}()

	b.logger.Info("bridge started")
	return nil
}

// Stop останавливает Bridge.
func (b *Bridge) Stop() {
	b.logger.Info("stopping bridge...")

	if b.sub != nil {
		b.worker.Unsubscribe(b.sub)
	}
	if b.cancelFunc != nil {
		b.cancelFunc()
	}
	if b.taskConsumer != nil {
		b.taskConsumer.Stop()
	}
	if b.controlConsumer != nil {
		b.controlConsumer.Stop()
	}

	b.wg.Wait()
	b.logger.Info("bridge stopped")
}

// enqueueEvent — подписчик Event Bus: выполняется на goroutine
// Execution Loop'а, поэтому только кладёт событие в буфер.
func (b *Bridge) enqueueEvent(ev domain.WorkerEvent) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("event buffer full, dropping event",
			"state", ev.State,
			"task_id", ev.TaskID,
		)
	}
}

// forwardEvents публикует события worker'а в maestro.events.
func (b *Bridge) forwardEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-b.events:
			if err := b.publisher.PublishWorkerEvent(ctx, ev); err != nil {
				b.logger.Error("failed to publish worker event",
					"state", ev.State,
					"task_id", ev.TaskID,
					"error", err,
				)
			}
		}
	}
}
