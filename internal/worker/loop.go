package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// run — Execution Loop: единственная goroutine, которая выполняет tasks
// и двигает машину состояний. Все события публикуются отсюда.
func (w *Worker) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-w.commands:
			w.handleIdleCommand(ctx, cmd)

		case <-w.registry.Wake():
			if w.manualStart {
				continue
			}
			w.drainQueue(ctx)
		}
	}
}

// drainQueue выполняет tasks из головы очереди, пока она не опустеет.
// Сигналы wake схлопываются, поэтому после каждой task очередь
// добирается явно.
func (w *Worker) drainQueue(ctx context.Context) {
	for ctx.Err() == nil {
		if err := w.startTask(ctx, uuid.Nil, nil); err != nil {
			return
		}
	}
}

// handleIdleCommand обрабатывает команду, пришедшую в состоянии IDLE.
func (w *Worker) handleIdleCommand(ctx context.Context, cmd *command) {
	switch cmd.kind {
	case cmdBegin:
		if err := w.startTask(ctx, cmd.taskID, cmd); err != nil {
			return
		}
		if !w.manualStart {
			w.drainQueue(ctx)
		}

	case cmdPause:
		cmd.reply <- fmt.Errorf("%w: pause requires an active task, worker is %s",
			ErrInvalidState, domain.StateIdle)

	case cmdResume:
		cmd.reply <- fmt.Errorf("%w: resume requires %s, worker is %s",
			ErrInvalidState, domain.StatePaused, domain.StateIdle)
	}
}

// startTask берёт task (голову очереди или явный id), переводит worker
// в RUNNING и синхронно выполняет её до терминального состояния.
//
// cmd != nil для явного begin: подтверждение уходит после перехода
// в RUNNING, до начала выполнения.
func (w *Worker) startTask(ctx context.Context, taskID uuid.UUID, cmd *command) error {
	var (
		t   domain.TrackableTask
		err error
	)
	if taskID == uuid.Nil {
		t, err = w.registry.dequeueHead()
	} else {
		t, err = w.registry.take(taskID)
	}
	if err != nil {
		if cmd != nil {
			cmd.reply <- err
		}
		return err
	}

	w.registry.markStarted(t.ID)

	ctl := newControl(ctx, w, t.ID)
	w.mu.Lock()
	w.active = t.ID
	w.ctl = ctl
	w.mu.Unlock()

	w.transition(domain.StateRunning, t.ID, "")

	if cmd != nil {
		cmd.started = t.ID
		cmd.reply <- nil
	}

	w.logger.Info("task started", "task_id", t.ID, "plan", t.Task.Plan)

	outcome := w.runExecutor(&t, ctl)
	w.finalize(&t, ctl, outcome)
	return nil
}

// runExecutor вызывает executor, изолируя его панику:
// падение плана — ошибка task, а не worker'а.
func (w *Worker) runExecutor(t *domain.TrackableTask, ctl *Control) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("plan executor panicked", "task_id", t.ID, "panic", r)
			outcome = Failed(fmt.Sprintf("executor panic: %v", r))
		}
	}()
	return w.executor.Execute(ctl.ctx, t, ctl)
}

// finalize переводит task в терминальное состояние, освобождает
// активный слот и возвращает worker в IDLE.
func (w *Worker) finalize(t *domain.TrackableTask, ctl *Control, outcome Outcome) {
	w.pauseDeferred = false

	fail, reason, timedOut := ctl.seal()

	var errs []string
	switch outcome.Status {
	case OutcomeSuccess:
		// план успел завершиться — даже при запрошенной остановке
		// исход остаётся успешным
	case OutcomeFailure:
		errs = append(errs, outcome.Detail)
	case OutcomeCancelled:
		if fail {
			if reason == "" {
				reason = "task cancelled"
			}
			errs = append(errs, reason)
		}
	default:
		// executor обязан вернуть ровно один из трёх исходов
		errs = append(errs, fmt.Sprintf("executor returned invalid outcome %q", outcome.Status))
	}
	if timedOut {
		errs = append(errs, ErrCancelTimeout.Error())
	}

	w.registry.complete(t.ID, errs)

	w.mu.Lock()
	w.active = uuid.Nil
	w.ctl = nil
	w.mu.Unlock()

	errMsg := ""
	if len(errs) > 0 {
		errMsg = errs[0]
	}
	w.transition(domain.StateIdle, t.ID, errMsg)

	close(ctl.done)

	w.logger.Info("task finished",
		"task_id", t.ID,
		"plan", t.Task.Plan,
		"outcome", outcome.Status,
		"errors", len(errs),
	)
}

// checkpoint — обработка команд в кооперативной точке executor'а.
// Выполняется на goroutine Execution Loop'а (внутри Execute).
func (w *Worker) checkpoint(ctx context.Context, ctl *Control, stepBoundary bool) error {
	if ctl.stopRequested() {
		return w.enterStopping(ctl)
	}

	// отложенная пауза исполняется на границе шага
	if w.pauseDeferred && stepBoundary {
		w.pauseDeferred = false
		return w.suspend(ctx, ctl, nil)
	}

	for {
		select {
		case cmd := <-w.commands:
			switch cmd.kind {
			case cmdPause:
				if cmd.immediate || stepBoundary {
					w.pauseDeferred = false
					return w.suspend(ctx, ctl, cmd)
				}
				if !w.pauseDeferred {
					w.pauseDeferred = true
					w.transition(domain.StatePausing, ctl.taskID, "")
				}
				cmd.reply <- nil

			case cmdResume:
				cmd.reply <- fmt.Errorf("%w: resume requires %s, worker is %s",
					ErrInvalidState, domain.StatePaused, w.State())

			case cmdBegin:
				cmd.reply <- fmt.Errorf("%w: begin requires %s, worker is %s",
					ErrInvalidState, domain.StateIdle, w.State())
			}

		case <-ctl.stopCh:
			return w.enterStopping(ctl)

		case <-ctx.Done():
			return ctx.Err()

		default:
			return nil
		}
	}
}

// suspend переводит worker в PAUSED и блокирует executor до resume
// или остановки. pauseCmd != nil — подтверждение паузы после перехода.
func (w *Worker) suspend(ctx context.Context, ctl *Control, pauseCmd *command) error {
	w.transition(domain.StatePaused, ctl.taskID, "")
	if pauseCmd != nil {
		pauseCmd.reply <- nil
	}
	w.logger.Info("task paused", "task_id", ctl.taskID)

	for {
		select {
		case cmd := <-w.commands:
			switch cmd.kind {
			case cmdResume:
				w.transition(domain.StateRunning, ctl.taskID, "")
				cmd.reply <- nil
				w.logger.Info("task resumed", "task_id", ctl.taskID)
				return nil

			case cmdPause:
				// уже на паузе — безошибочный no-op
				cmd.reply <- nil

			case cmdBegin:
				cmd.reply <- fmt.Errorf("%w: begin requires %s, worker is %s",
					ErrInvalidState, domain.StateIdle, domain.StatePaused)
			}

		case <-ctl.stopCh:
			return w.enterStopping(ctl)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// enterStopping фиксирует переход в STOPPING (один раз на task)
// и сигнализирует плану прекратить работу.
func (w *Worker) enterStopping(ctl *Control) error {
	w.mu.Lock()
	already := w.state == domain.StateStopping
	w.mu.Unlock()

	if !already {
		w.transition(domain.StateStopping, ctl.taskID, "")
	}
	return ErrPlanStopped
}
