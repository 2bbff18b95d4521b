package worker

import "errors"

// Ошибки ядра worker'а.
var (
	// ErrTaskNotFound — task с таким id не найдена в реестре.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidState — операция недопустима в текущем состоянии worker'а
	// или task (pause при IDLE, begin при RUNNING, clear активной task).
	ErrInvalidState = errors.New("invalid state")

	// ErrNoActiveTask — cancel без активной task.
	ErrNoActiveTask = errors.New("no active task")

	// ErrQueueEmpty — begin без явного id при пустой очереди.
	ErrQueueEmpty = errors.New("task queue is empty")

	// ErrPauseUnsupported — executor не поддерживает приостановку.
	ErrPauseUnsupported = errors.New("executor does not support pausing")

	// ErrCancelTimeout — executor не подтвердил остановку за отведённое время.
	// Task помечается завершённой с ошибкой; состояние worker'а не повреждается.
	ErrCancelTimeout = errors.New("cancellation timed out")

	// ErrWorkerStopped — worker остановлен, команды больше не принимаются.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrPlanStopped — сигнал executor'у из Checkpoint/EndStep:
	// выполнение остановлено, план должен вернуть Cancelled.
	ErrPlanStopped = errors.New("plan execution stopped")
)
