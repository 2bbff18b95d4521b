package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/mq"
	"github.com/shaiso/Maestro/internal/worker"
)

// blockingExecutor ждёт закрытия release, проходя кооперативные точки.
type blockingExecutor struct {
	release chan struct{}
}

func (e *blockingExecutor) Execute(ctx context.Context, _ *domain.TrackableTask, ctl *worker.Control) worker.Outcome {
	for {
		select {
		case <-e.release:
			return worker.Succeeded()
		default:
		}
		if err := ctl.Checkpoint(ctx); err != nil {
			return worker.Cancelled()
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestBridge(t *testing.T, manualStart bool) (*Bridge, *worker.Worker, *blockingExecutor) {
	t.Helper()

	exec := &blockingExecutor{release: make(chan struct{})}
	w := worker.New(worker.Config{Executor: exec, ManualStart: manualStart})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(w.Stop)
	t.Cleanup(func() {
		select {
		case <-exec.release:
		default:
			close(exec.release)
		}
	})

	b := New(Config{Worker: w})
	return b, w, exec
}

func TestHandleTaskSubmit(t *testing.T) {
	b, w, _ := newTestBridge(t, true)

	delivery := &mq.Delivery{
		Message: mq.Message{
			ID:   uuid.New().String(),
			Type: mq.MessageTypeTaskSubmit,
			Payload: map[string]any{
				"plan":   "sleep",
				"params": map[string]any{"seconds": 1.0},
			},
		},
	}

	if err := b.handleTaskSubmit(context.Background(), delivery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tasks := w.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Task.Plan != "sleep" {
		t.Errorf("expected plan sleep, got %s", tasks[0].Task.Plan)
	}
	if tasks[0].Task.Params["seconds"] != 1.0 {
		t.Errorf("params not carried: %v", tasks[0].Task.Params)
	}
}

func TestHandleTaskSubmit_InvalidPayloadIsFinal(t *testing.T) {
	b, w, _ := newTestBridge(t, true)

	// пустое имя плана отклоняется worker'ом; сообщение не requeue'ится
	delivery := &mq.Delivery{
		Message: mq.Message{
			ID:      uuid.New().String(),
			Type:    mq.MessageTypeTaskSubmit,
			Payload: map[string]any{"plan": ""},
		},
	}

	if err := b.handleTaskSubmit(context.Background(), delivery); err != nil {
		t.Fatalf("rejection should not requeue: %v", err)
	}
	if len(w.Tasks()) != 0 {
		t.Error("rejected submission should not create a task")
	}
}

func TestApplyControl_BeginAndCancel(t *testing.T) {
	b, w, _ := newTestBridge(t, true)
	ctx := context.Background()

	id, err := w.Submit(domain.Task{Plan: "a"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	taskID := id
	err = b.applyControl(ctx, mq.ControlPayload{
		Action: mq.ControlActionBegin,
		TaskID: &taskID,
	})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	waitWorkerState(t, w, domain.StateRunning)

	err = b.applyControl(ctx, mq.ControlPayload{
		Action: mq.ControlActionCancel,
		Fail:   true,
		Reason: "operator abort",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}

	task, _ := w.GetTask(id)
	if !task.IsComplete || len(task.Errors) == 0 || task.Errors[0] != "operator abort" {
		t.Errorf("cancel reason not recorded: %+v", task)
	}
}

func TestApplyControl_PauseResume(t *testing.T) {
	b, w, _ := newTestBridge(t, true)
	ctx := context.Background()

	if _, err := w.Submit(domain.Task{Plan: "a"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := b.applyControl(ctx, mq.ControlPayload{Action: mq.ControlActionBegin}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitWorkerState(t, w, domain.StateRunning)

	if err := b.applyControl(ctx, mq.ControlPayload{Action: mq.ControlActionPause, Immediate: true}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	waitWorkerState(t, w, domain.StatePaused)

	if err := b.applyControl(ctx, mq.ControlPayload{Action: mq.ControlActionResume}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitWorkerState(t, w, domain.StateRunning)
}

func TestApplyControl_ErrorsPassThrough(t *testing.T) {
	b, _, _ := newTestBridge(t, true)
	ctx := context.Background()

	// resume без паузы — ErrInvalidState от ядра, как есть
	err := b.applyControl(ctx, mq.ControlPayload{Action: mq.ControlActionResume})
	if !errors.Is(err, worker.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	err = b.applyControl(ctx, mq.ControlPayload{Action: mq.ControlActionCancel})
	if !errors.Is(err, worker.ErrNoActiveTask) {
		t.Errorf("expected ErrNoActiveTask, got %v", err)
	}

	err = b.applyControl(ctx, mq.ControlPayload{Action: "selfdestruct"})
	if err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestStartRequiresConnection(t *testing.T) {
	b, _, _ := newTestBridge(t, true)

	if err := b.Start(context.Background()); err == nil {
		t.Fatal("expected error without amqp connection")
	}
}

func waitWorkerState(t *testing.T, w *worker.Worker, state domain.WorkerState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if w.State() == state {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, worker is %s", state, w.State())
}
