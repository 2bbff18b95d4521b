package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Control — кооперативная ручка управления выполнением одной task.
//
// Создаётся worker'ом на каждую task и передаётся executor'у. План
// обязан звать Checkpoint между инструкциями и EndStep на границах
// неделимых шагов: это единственные точки, где worker приостанавливает
// (pause) и останавливает (cancel) выполнение.
//
// Checkpoint/EndStep выполняются на goroutine Execution Loop'а.
type Control struct {
	w      *Worker
	taskID uuid.UUID

	// ctx отменяется при запросе остановки, чтобы будить план
	// из блокирующих операций (I/O, движение устройства).
	ctx    context.Context
	cancel context.CancelFunc

	stopCh   chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	stopFail   bool
	stopReason string
	timedOut   bool
	sealed     bool

	// done закрывается Execution Loop'ом после финализации task.
	// На нём блокируется CancelActive.
	done chan struct{}
}

func newControl(parent context.Context, w *Worker, taskID uuid.UUID) *Control {
	ctx, cancel := context.WithCancel(parent)
	return &Control{
		w:      w,
		taskID: taskID,
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// TaskID возвращает id task, которой управляет ручка.
func (c *Control) TaskID() uuid.UUID {
	return c.taskID
}

// Context возвращает контекст выполнения task.
// Отменяется при запросе остановки и при остановке worker'а.
func (c *Control) Context() context.Context {
	return c.ctx
}

// Checkpoint — граница инструкции плана.
//
// Обрабатывает накопившиеся команды: немедленная пауза приостанавливает
// выполнение прямо здесь, отложенная переводит worker в PAUSING до
// ближайшего EndStep. Возвращает ErrPlanStopped при запросе остановки —
// план обязан прекратить работу и вернуть Cancelled.
func (c *Control) Checkpoint(ctx context.Context) error {
	return c.w.checkpoint(ctx, c, false)
}

// EndStep — граница неделимого шага плана.
//
// Как Checkpoint, но дополнительно исполняет отложенную паузу.
func (c *Control) EndStep(ctx context.Context) error {
	return c.w.checkpoint(ctx, c, true)
}

// requestStop запрашивает остановку выполнения.
// fail=true помечает task завершённой с ошибкой reason.
func (c *Control) requestStop(fail bool, reason string) {
	c.mu.Lock()
	c.stopFail = fail
	c.stopReason = reason
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.cancel()
	})
}

// IsStopRequested сообщает плану, запрошена ли остановка,
// без обработки команд.
func (c *Control) IsStopRequested() bool {
	return c.stopRequested()
}

// stopRequested сообщает, была ли запрошена остановка.
func (c *Control) stopRequested() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// markTimedOut фиксирует превышение таймаута отмены.
// После финализации task (seal) игнорируется.
func (c *Control) markTimedOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sealed {
		c.timedOut = true
	}
}

// seal читает детали остановки и запрещает дальнейшие изменения.
// Вызывается Execution Loop'ом при финализации.
func (c *Control) seal() (fail bool, reason string, timedOut bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return c.stopFail, c.stopReason, c.timedOut
}
