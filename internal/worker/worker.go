package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// Default configuration values.
const (
	defaultCancelTimeout = 10 * time.Second
)

// Worker последовательно выполняет tasks на выделенной goroutine.
//
// Worker — явный экземпляр с жизненным циклом Start(ctx)/Stop():
//   - Принимает tasks через Submit (никогда не блокируется выполнением)
//   - Выполняет их по одной в порядке очереди (или по явному Begin)
//   - Держит авторитетную машину состояний и id активной task
//   - Принимает Begin/Pause/Resume/CancelActive из любых goroutines
//   - Публикует ровно одно WorkerEvent на каждый переход
type Worker struct {
	registry *Registry
	bus      *Bus
	executor Executor

	// Configuration
	cancelTimeout time.Duration
	manualStart   bool

	// Mailbox команд управления: unbuffered, читается Execution Loop'ом
	// в idle-select и в кооперативных точках executor'а.
	commands chan *command

	// mu защищает state и активную task — единственное состояние,
	// разделяемое между Execution Loop и вызывающими goroutines.
	mu     sync.Mutex
	state  domain.WorkerState
	active uuid.UUID
	ctl    *Control

	// ctrlMu сериализует публичные операции управления:
	// одновременно обрабатывается одна команда.
	ctrlMu sync.Mutex

	// pauseDeferred — отложенная пауза ждёт границы шага.
	// Только goroutine Execution Loop'а.
	pauseDeferred bool

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	doneCh     chan struct{}
	wg         sync.WaitGroup
	lifecycle  sync.Mutex
	started    bool
	stopped    bool
}

// Config — конфигурация Worker.
type Config struct {
	// Executor выполняет tasks. Обязателен.
	Executor Executor

	// CancelTimeout — сколько CancelActive ждёт подтверждения остановки
	// от executor'а (default: 10s). По истечении task помечается
	// завершённой с ошибкой, состояние worker'а не повреждается.
	CancelTimeout time.Duration

	// ManualStart отключает автозапуск tasks из очереди:
	// выполнение начинается только по явному Begin.
	ManualStart bool

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	cancelTimeout := cfg.CancelTimeout
	if cancelTimeout <= 0 {
		cancelTimeout = defaultCancelTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		registry:      NewRegistry(),
		bus:           NewBus(logger),
		executor:      cfg.Executor,
		cancelTimeout: cancelTimeout,
		manualStart:   cfg.ManualStart,
		commands:      make(chan *command),
		state:         domain.StateIdle,
		doneCh:        make(chan struct{}),
		logger:        logger,
	}
}

// Start запускает Execution Loop.
func (w *Worker) Start(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	if w.executor == nil {
		return errors.New("worker: executor is required")
	}
	if w.started {
		return errors.New("worker: already started")
	}
	w.started = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	w.logger.Info("worker started",
		"cancel_timeout", w.cancelTimeout,
		"manual_start", w.manualStart,
	)
	return nil
}

// Stop останавливает Worker и ждёт завершения Execution Loop'а.
// Активная task добегает до ближайшей кооперативной точки и отменяется.
func (w *Worker) Stop() {
	w.lifecycle.Lock()
	if !w.started || w.stopped {
		w.lifecycle.Unlock()
		return
	}
	w.stopped = true
	w.lifecycle.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// Submit принимает task: назначает id, ставит в очередь.
// Событий не публикует — события порождают только переходы Execution Loop'а.
func (w *Worker) Submit(task domain.Task) (uuid.UUID, error) {
	if task.Plan == "" {
		return uuid.Nil, errors.New("worker: task plan name is empty")
	}

	id := w.registry.Submit(task)
	w.logger.Debug("task submitted", "task_id", id, "plan", task.Plan)
	return id, nil
}

// GetTask возвращает снимок task по id.
func (w *Worker) GetTask(id uuid.UUID) (domain.TrackableTask, error) {
	return w.registry.Get(id)
}

// Tasks возвращает снимки всех tasks в порядке submission.
func (w *Worker) Tasks() []domain.TrackableTask {
	return w.registry.All()
}

// TasksByStatus возвращает tasks с данным производным статусом.
func (w *Worker) TasksByStatus(status domain.TaskStatus) []domain.TrackableTask {
	active, _ := w.ActiveTask()
	return w.registry.ByStatus(status, active)
}

// ClearTask удаляет pending или завершённую task из реестра.
// Активную task удалить нельзя — ErrInvalidState.
func (w *Worker) ClearTask(id uuid.UUID) error {
	active, _ := w.ActiveTask()
	return w.registry.Clear(id, active)
}

// State возвращает текущее состояние worker'а.
func (w *Worker) State() domain.WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// ActiveTask возвращает id активной task, если она есть.
func (w *Worker) ActiveTask() (uuid.UUID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active, w.active != uuid.Nil
}

// TaskStatusOf возвращает производный статус task.
func (w *Worker) TaskStatusOf(t *domain.TrackableTask) domain.TaskStatus {
	active, _ := w.ActiveTask()
	return t.Status(active)
}

// Subscribe регистрирует подписчика событий worker'а.
func (w *Worker) Subscribe(fn EventFunc) *Subscription {
	return w.bus.Subscribe(fn)
}

// Unsubscribe снимает подписку.
func (w *Worker) Unsubscribe(sub *Subscription) {
	w.bus.Unsubscribe(sub)
}

// transition меняет состояние и публикует событие перехода.
// Вызывается только Execution Loop'ом — порядок событий совпадает
// с порядком переходов.
func (w *Worker) transition(state domain.WorkerState, taskID uuid.UUID, errMsg string) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()

	w.bus.Publish(domain.NewWorkerEvent(state, taskID, errMsg))
}
