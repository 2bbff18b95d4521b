package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// cmdKind — вид команды управления.
type cmdKind int

const (
	cmdBegin cmdKind = iota
	cmdPause
	cmdResume
)

// command — команда в mailbox Execution Loop'а.
//
// reply буферизован на 1: loop подтверждает команду не блокируясь.
// started заполняется loop'ом до подтверждения begin.
type command struct {
	kind      cmdKind
	taskID    uuid.UUID // для begin; uuid.Nil — голова очереди
	immediate bool      // для pause
	reply     chan error
	started   uuid.UUID
}

func newCommand(kind cmdKind) *command {
	return &command{kind: kind, reply: make(chan error, 1)}
}

// Begin запускает выполнение task.
//
// taskID == uuid.Nil — берётся голова очереди (ErrQueueEmpty при пустой).
// Явный taskID должен быть Pending: task извлекается из любого места
// очереди (ErrTaskNotFound / ErrInvalidState иначе). Worker обязан быть
// IDLE. Возвращает id запущенной task.
func (w *Worker) Begin(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	w.ctrlMu.Lock()
	defer w.ctrlMu.Unlock()

	if st := w.State(); st != domain.StateIdle {
		return uuid.Nil, fmt.Errorf("%w: begin requires %s, worker is %s",
			ErrInvalidState, domain.StateIdle, st)
	}

	cmd := newCommand(cmdBegin)
	cmd.taskID = taskID

	if err := w.dispatch(ctx, cmd); err != nil {
		return uuid.Nil, err
	}
	return cmd.started, nil
}

// Pause приостанавливает выполнение активной task.
//
// immediate=true — executor прерывается на ближайшей границе инструкции
// (Checkpoint); иначе сначала доводит текущий неделимый шаг до EndStep.
// Требует активную task (ErrInvalidState при IDLE); на уже
// приостановленном worker'е — безошибочный no-op. Блокируется до
// фактической приостановки executor'а (для отложенной паузы — до
// перехода в PAUSING).
func (w *Worker) Pause(ctx context.Context, immediate bool) error {
	w.ctrlMu.Lock()
	defer w.ctrlMu.Unlock()

	st := w.State()
	if st == domain.StatePaused {
		return nil
	}
	if !st.CanPause() {
		return fmt.Errorf("%w: pause requires %s, worker is %s",
			ErrInvalidState, domain.StateRunning, st)
	}
	if p, ok := w.executor.(Pausable); ok && !p.CanPause() {
		return ErrPauseUnsupported
	}

	cmd := newCommand(cmdPause)
	cmd.immediate = immediate
	return w.dispatch(ctx, cmd)
}

// Resume возобновляет приостановленную task с точки приостановки.
// Требует PAUSED — иначе ErrInvalidState.
func (w *Worker) Resume(ctx context.Context) error {
	w.ctrlMu.Lock()
	defer w.ctrlMu.Unlock()

	if st := w.State(); st != domain.StatePaused {
		return fmt.Errorf("%w: resume requires %s, worker is %s",
			ErrInvalidState, domain.StatePaused, st)
	}

	return w.dispatch(ctx, newCommand(cmdResume))
}

// CancelActive останавливает активную task.
//
// Сигнализирует executor'у (через stop-канал и отмену контекста task)
// и блокируется, пока Execution Loop не финализирует task — остановка
// кооперативная, принудительного прерывания нет. fail=true помечает
// task завершённой с ошибкой reason, иначе — завершённой без ошибок.
// Возвращает id отменённой task; ErrNoActiveTask, если активной нет;
// ErrCancelTimeout, если executor не остановился за CancelTimeout
// (task при этом будет помечена завершённой с ошибкой).
func (w *Worker) CancelActive(ctx context.Context, fail bool, reason string) (uuid.UUID, error) {
	w.ctrlMu.Lock()
	defer w.ctrlMu.Unlock()

	w.mu.Lock()
	ctl := w.ctl
	id := w.active
	w.mu.Unlock()

	if ctl == nil || id == uuid.Nil {
		return uuid.Nil, ErrNoActiveTask
	}

	ctl.requestStop(fail, reason)

	timer := time.NewTimer(w.cancelTimeout)
	defer timer.Stop()

	select {
	case <-ctl.done:
		return id, nil

	case <-timer.C:
		ctl.markTimedOut()
		w.logger.Error("executor did not acknowledge cancellation",
			"task_id", id,
			"timeout", w.cancelTimeout,
		)
		return id, fmt.Errorf("%w: task %s after %s", ErrCancelTimeout, id, w.cancelTimeout)

	case <-w.doneCh:
		return id, ErrWorkerStopped

	case <-ctx.Done():
		return id, ctx.Err()
	}
}

// dispatch отправляет команду в mailbox и ждёт подтверждения или отказа.
func (w *Worker) dispatch(ctx context.Context, cmd *command) error {
	select {
	case w.commands <- cmd:
	case <-w.doneCh:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-w.doneCh:
		return ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
