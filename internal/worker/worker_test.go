package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

const waitTimeout = 3 * time.Second

// --- Test helpers ---

// funcExecutor — executor из замыкания.
type funcExecutor struct {
	fn       func(ctx context.Context, task *domain.TrackableTask, ctl *Control) Outcome
	canPause bool
}

func newFuncExecutor(fn func(ctx context.Context, task *domain.TrackableTask, ctl *Control) Outcome) *funcExecutor {
	return &funcExecutor{fn: fn, canPause: true}
}

func (e *funcExecutor) Execute(ctx context.Context, task *domain.TrackableTask, ctl *Control) Outcome {
	return e.fn(ctx, task, ctl)
}

func (e *funcExecutor) CanPause() bool {
	return e.canPause
}

// spinningExecutor крутится в Checkpoint, пока не закроют release.
func spinningExecutor(release <-chan struct{}) *funcExecutor {
	return newFuncExecutor(func(ctx context.Context, _ *domain.TrackableTask, ctl *Control) Outcome {
		for {
			select {
			case <-release:
				return Succeeded()
			default:
			}
			if err := ctl.Checkpoint(ctx); err != nil {
				return Cancelled()
			}
			time.Sleep(time.Millisecond)
		}
	})
}

// gatedExecutor зовёт Checkpoint, а EndStep — только по сигналу endStep.
func gatedExecutor(endStep, release <-chan struct{}) *funcExecutor {
	return newFuncExecutor(func(ctx context.Context, _ *domain.TrackableTask, ctl *Control) Outcome {
		for {
			select {
			case <-release:
				return Succeeded()
			case <-endStep:
				if err := ctl.EndStep(ctx); err != nil {
					return Cancelled()
				}
			default:
				if err := ctl.Checkpoint(ctx); err != nil {
					return Cancelled()
				}
				time.Sleep(time.Millisecond)
			}
		}
	})
}

func startWorker(t *testing.T, cfg Config) *Worker {
	t.Helper()
	w := New(cfg)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func collectEvents(w *Worker) <-chan domain.WorkerEvent {
	ch := make(chan domain.WorkerEvent, 256)
	w.Subscribe(func(ev domain.WorkerEvent) { ch <- ev })
	return ch
}

// nextEvent читает строго следующее событие.
func nextEvent(t *testing.T, events <-chan domain.WorkerEvent) domain.WorkerEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for next event")
		return domain.WorkerEvent{}
	}
}

// waitState пропускает события до первого с данным состоянием.
func waitState(t *testing.T, events <-chan domain.WorkerEvent, state domain.WorkerState) domain.WorkerEvent {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == state {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", state)
		}
	}
}

func expectEvent(t *testing.T, events <-chan domain.WorkerEvent, state domain.WorkerState, taskID uuid.UUID) domain.WorkerEvent {
	t.Helper()
	ev := nextEvent(t, events)
	if ev.State != state {
		t.Fatalf("expected event %s, got %s", state, ev.State)
	}
	if taskID != uuid.Nil {
		if ev.TaskID == nil || *ev.TaskID != taskID {
			t.Fatalf("expected event for task %s, got %v", taskID, ev.TaskID)
		}
	}
	return ev
}

// --- Worker Tests ---

func TestWorker_ExecutesSubmittedTasksInOrder(t *testing.T) {
	var mu sync.Mutex
	var executed []string

	w := startWorker(t, Config{
		Executor: newFuncExecutor(func(_ context.Context, task *domain.TrackableTask, _ *Control) Outcome {
			mu.Lock()
			executed = append(executed, task.Task.Plan)
			mu.Unlock()
			return Succeeded()
		}),
	})
	events := collectEvents(w)

	a, _ := w.Submit(domain.Task{Plan: "a"})
	b, _ := w.Submit(domain.Task{Plan: "b"})
	c, _ := w.Submit(domain.Task{Plan: "c"})

	// ровно одна пара Running/Idle на task, в порядке submission
	expectEvent(t, events, domain.StateRunning, a)
	expectEvent(t, events, domain.StateIdle, a)
	expectEvent(t, events, domain.StateRunning, b)
	expectEvent(t, events, domain.StateIdle, b)
	expectEvent(t, events, domain.StateRunning, c)
	ev := expectEvent(t, events, domain.StateIdle, c)
	if ev.Error != "" {
		t.Errorf("unexpected error on idle event: %s", ev.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(executed) != 3 || executed[0] != "a" || executed[1] != "b" || executed[2] != "c" {
		t.Errorf("wrong execution order: %v", executed)
	}

	for _, id := range []uuid.UUID{a, b, c} {
		task, err := w.GetTask(id)
		if err != nil {
			t.Fatalf("get task: %v", err)
		}
		if !task.IsComplete || task.IsPending || len(task.Errors) != 0 {
			t.Errorf("task %s not cleanly completed: %+v", id, task)
		}
	}
}

func TestWorker_SubmitEmptyPlanRejected(t *testing.T) {
	w := New(Config{Executor: newFuncExecutor(nil)})

	if _, err := w.Submit(domain.Task{}); err == nil {
		t.Fatal("expected error for empty plan name")
	}
}

func TestWorker_BeginExplicitTaskJumpsQueue(t *testing.T) {
	w := startWorker(t, Config{
		ManualStart: true,
		Executor: newFuncExecutor(func(context.Context, *domain.TrackableTask, *Control) Outcome {
			return Succeeded()
		}),
	})
	events := collectEvents(w)

	a, _ := w.Submit(domain.Task{Plan: "a"})
	b, _ := w.Submit(domain.Task{Plan: "b"})

	started, err := w.Begin(context.Background(), b)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if started != b {
		t.Errorf("expected started id %s, got %s", b, started)
	}

	expectEvent(t, events, domain.StateRunning, b)
	expectEvent(t, events, domain.StateIdle, b)

	// a осталась pending
	task, _ := w.GetTask(a)
	if got := w.TaskStatusOf(&task); got != domain.TaskStatusPending {
		t.Errorf("expected task a PENDING, got %s", got)
	}

	// begin без id берёт голову очереди
	started, err = w.Begin(context.Background(), uuid.Nil)
	if err != nil {
		t.Fatalf("begin head: %v", err)
	}
	if started != a {
		t.Errorf("expected head %s, got %s", a, started)
	}
	expectEvent(t, events, domain.StateRunning, a)
	expectEvent(t, events, domain.StateIdle, a)
}

func TestWorker_BeginErrors(t *testing.T) {
	w := startWorker(t, Config{
		ManualStart: true,
		Executor: newFuncExecutor(func(context.Context, *domain.TrackableTask, *Control) Outcome {
			return Succeeded()
		}),
	})
	events := collectEvents(w)
	ctx := context.Background()

	if _, err := w.Begin(ctx, uuid.Nil); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("empty queue: expected ErrQueueEmpty, got %v", err)
	}

	if _, err := w.Begin(ctx, uuid.New()); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("unknown id: expected ErrTaskNotFound, got %v", err)
	}

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitState(t, events, domain.StateIdle)

	// завершённая task больше не Pending
	if _, err := w.Begin(ctx, id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("completed task: expected ErrInvalidState, got %v", err)
	}
}

func TestWorker_BeginWhileRunning(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	a, _ := w.Submit(domain.Task{Plan: "a"})
	b, _ := w.Submit(domain.Task{Plan: "b"})

	if _, err := w.Begin(ctx, a); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, a)

	if _, err := w.Begin(ctx, b); !errors.Is(err, ErrInvalidState) {
		t.Errorf("begin while RUNNING: expected ErrInvalidState, got %v", err)
	}

	close(release)
	waitState(t, events, domain.StateIdle)
}

func TestWorker_PauseResumeRoundTrip(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "scan"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	if err := w.Pause(ctx, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectEvent(t, events, domain.StatePaused, id)
	if st := w.State(); st != domain.StatePaused {
		t.Errorf("expected PAUSED, got %s", st)
	}
	if active, ok := w.ActiveTask(); !ok || active != id {
		t.Errorf("active task should survive pause, got %v", active)
	}

	// повторный pause — безошибочный no-op
	if err := w.Pause(ctx, true); err != nil {
		t.Errorf("pause while paused should be a no-op, got %v", err)
	}

	if err := w.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)
	if active, ok := w.ActiveTask(); !ok || active != id {
		t.Errorf("active task should survive resume, got %v", active)
	}

	close(release)
	ev := expectEvent(t, events, domain.StateIdle, id)
	if ev.Error != "" {
		t.Errorf("unexpected error: %s", ev.Error)
	}
}

func TestWorker_DeferredPauseWaitsForStepBoundary(t *testing.T) {
	endStep := make(chan struct{})
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: gatedExecutor(endStep, release)})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "scan"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	// отложенная пауза: подтверждается на PAUSING, исполняется на границе шага
	if err := w.Pause(ctx, false); err != nil {
		t.Fatalf("pause: %v", err)
	}
	expectEvent(t, events, domain.StatePausing, id)
	if st := w.State(); st != domain.StatePausing {
		t.Errorf("expected PAUSING, got %s", st)
	}

	endStep <- struct{}{}
	expectEvent(t, events, domain.StatePaused, id)

	if err := w.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	close(release)
	waitState(t, events, domain.StateIdle)
}

func TestWorker_PauseWhileIdle(t *testing.T) {
	w := startWorker(t, Config{Executor: newFuncExecutor(nil)})

	err := w.Pause(context.Background(), true)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if st := w.State(); st != domain.StateIdle {
		t.Errorf("state should be unchanged, got %s", st)
	}
}

func TestWorker_ResumeRequiresPaused(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	if err := w.Resume(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("resume while IDLE: expected ErrInvalidState, got %v", err)
	}

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	if err := w.Resume(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("resume while RUNNING: expected ErrInvalidState, got %v", err)
	}

	close(release)
	waitState(t, events, domain.StateIdle)
}

func TestWorker_PauseUnsupportedExecutor(t *testing.T) {
	release := make(chan struct{})
	exec := spinningExecutor(release)
	exec.canPause = false
	w := startWorker(t, Config{ManualStart: true, Executor: exec})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	if err := w.Pause(ctx, true); !errors.Is(err, ErrPauseUnsupported) {
		t.Errorf("expected ErrPauseUnsupported, got %v", err)
	}

	close(release)
	waitState(t, events, domain.StateIdle)
}

func TestWorker_CancelActiveWithoutFail(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	cancelled, err := w.CancelActive(ctx, false, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled != id {
		t.Errorf("expected cancelled id %s, got %s", id, cancelled)
	}

	if st := w.State(); st != domain.StateIdle {
		t.Errorf("expected IDLE after cancel, got %s", st)
	}

	task, _ := w.GetTask(id)
	if !task.IsComplete {
		t.Error("cancelled task should be complete")
	}
	if len(task.Errors) != 0 {
		t.Errorf("cancel without fail should leave no errors, got %v", task.Errors)
	}
}

func TestWorker_CancelActiveWithFailRecordsReason(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	if _, err := w.CancelActive(ctx, true, "beam dumped"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	task, _ := w.GetTask(id)
	if !task.IsComplete {
		t.Error("cancelled task should be complete")
	}
	found := false
	for _, e := range task.Errors {
		if e == "beam dumped" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected errors to contain reason, got %v", task.Errors)
	}
}

func TestWorker_CancelWithNoActiveTask(t *testing.T) {
	w := startWorker(t, Config{Executor: newFuncExecutor(nil)})

	_, err := w.CancelActive(context.Background(), false, "")
	if !errors.Is(err, ErrNoActiveTask) {
		t.Fatalf("expected ErrNoActiveTask, got %v", err)
	}
}

func TestWorker_CancelTimeout(t *testing.T) {
	// executor игнорирует и checkpoint'ы, и отмену контекста
	w := startWorker(t, Config{
		ManualStart:   true,
		CancelTimeout: 50 * time.Millisecond,
		Executor: newFuncExecutor(func(context.Context, *domain.TrackableTask, *Control) Outcome {
			time.Sleep(300 * time.Millisecond)
			return Succeeded()
		}),
	})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "stuck"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	_, err := w.CancelActive(ctx, false, "")
	if !errors.Is(err, ErrCancelTimeout) {
		t.Fatalf("expected ErrCancelTimeout, got %v", err)
	}

	// executor в итоге вернулся; task завершена с ошибкой, worker жив
	waitState(t, events, domain.StateIdle)
	task, _ := w.GetTask(id)
	if !task.IsComplete {
		t.Error("task should be complete after executor returns")
	}
	if len(task.Errors) == 0 {
		t.Error("timed out cancellation should be recorded as an error")
	}
}

func TestWorker_ExecutorFailureRecordedNotFatal(t *testing.T) {
	w := startWorker(t, Config{
		Executor: newFuncExecutor(func(_ context.Context, task *domain.TrackableTask, _ *Control) Outcome {
			if task.Task.Plan == "bad" {
				return Failed("detector offline")
			}
			return Succeeded()
		}),
	})
	events := collectEvents(w)

	bad, _ := w.Submit(domain.Task{Plan: "bad"})
	ev := waitState(t, events, domain.StateIdle)
	if ev.Error != "detector offline" {
		t.Errorf("idle event should carry the failure, got %q", ev.Error)
	}

	task, _ := w.GetTask(bad)
	if !task.IsComplete || len(task.Errors) != 1 || task.Errors[0] != "detector offline" {
		t.Errorf("failure not recorded: %+v", task)
	}

	// worker остаётся доступным
	good, _ := w.Submit(domain.Task{Plan: "good"})
	waitState(t, events, domain.StateIdle)
	task, _ = w.GetTask(good)
	if !task.IsComplete || len(task.Errors) != 0 {
		t.Errorf("worker should keep executing after a failure: %+v", task)
	}
}

func TestWorker_ExecutorPanicIsolated(t *testing.T) {
	w := startWorker(t, Config{
		Executor: newFuncExecutor(func(context.Context, *domain.TrackableTask, *Control) Outcome {
			panic("plan exploded")
		}),
	})
	events := collectEvents(w)

	id, _ := w.Submit(domain.Task{Plan: "a"})
	waitState(t, events, domain.StateIdle)

	task, _ := w.GetTask(id)
	if !task.IsComplete || len(task.Errors) == 0 {
		t.Errorf("panic should be recorded as task failure: %+v", task)
	}
	if st := w.State(); st != domain.StateIdle {
		t.Errorf("worker should return to IDLE, got %s", st)
	}
}

func TestWorker_ClearActiveTaskFails(t *testing.T) {
	release := make(chan struct{})
	w := startWorker(t, Config{ManualStart: true, Executor: spinningExecutor(release)})
	events := collectEvents(w)
	ctx := context.Background()

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(ctx, id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	if err := w.ClearTask(id); !errors.Is(err, ErrInvalidState) {
		t.Errorf("clear active: expected ErrInvalidState, got %v", err)
	}

	close(release)
	waitState(t, events, domain.StateIdle)

	if err := w.ClearTask(id); err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if _, err := w.GetTask(id); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound after clear, got %v", err)
	}
}

func TestWorker_GetTaskNeverSubmitted(t *testing.T) {
	w := startWorker(t, Config{Executor: newFuncExecutor(nil)})

	if _, err := w.GetTask(uuid.New()); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestWorker_ConcurrentSubmissionsSingleActive(t *testing.T) {
	w := startWorker(t, Config{
		Executor: newFuncExecutor(func(context.Context, *domain.TrackableTask, *Control) Outcome {
			return Succeeded()
		}),
	})
	events := collectEvents(w)

	const goroutines = 5
	const perGoroutine = 10

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if _, err := w.Submit(domain.Task{Plan: "a"}); err != nil {
					t.Errorf("submit: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	total := goroutines * perGoroutine

	// ждём завершения всех tasks
	deadline := time.Now().Add(waitTimeout)
	for {
		if len(w.TasksByStatus(domain.TaskStatusComplete)) == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %d of %d complete",
				len(w.TasksByStatus(domain.TaskStatusComplete)), total)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// id уникальны
	seen := make(map[uuid.UUID]bool)
	for _, task := range w.Tasks() {
		if seen[task.ID] {
			t.Fatalf("duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
	}

	// события строго чередуются: не бывает двух RUNNING подряд
	running, idle := 0, 0
	expectRunning := true
	for idle < total {
		select {
		case ev := <-events:
			switch ev.State {
			case domain.StateRunning:
				if !expectRunning {
					t.Fatal("two RUNNING events without IDLE between them")
				}
				expectRunning = false
				running++
			case domain.StateIdle:
				if expectRunning {
					t.Fatal("IDLE event without preceding RUNNING")
				}
				expectRunning = true
				idle++
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out: %d running/%d idle events of %d", running, idle, total)
		}
	}
	if running != total {
		t.Fatalf("expected %d running events, got %d", total, running)
	}
}

func TestWorker_StopWithRunningTask(t *testing.T) {
	release := make(chan struct{})
	w := New(Config{ManualStart: true, Executor: spinningExecutor(release)})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := collectEvents(w)

	id, _ := w.Submit(domain.Task{Plan: "a"})
	if _, err := w.Begin(context.Background(), id); err != nil {
		t.Fatalf("begin: %v", err)
	}
	expectEvent(t, events, domain.StateRunning, id)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("stop should not hang with a running task")
	}

	if _, err := w.Begin(context.Background(), uuid.Nil); !errors.Is(err, ErrWorkerStopped) {
		t.Errorf("expected ErrWorkerStopped after stop, got %v", err)
	}
}
