package plan

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/worker"
)

// Executor выполняет tasks, разрешая план по имени из реестра.
//
// Реализует worker.Executor: по одному вызову Execute на task, исход —
// ровно один из Success / Failure / Cancelled. Ошибки разрешения плана
// и валидации параметров — Failure; остановка по запросу worker'а или
// отмене контекста — Cancelled.
type Executor struct {
	plans   *Registry
	devices *DeviceSet
	logger  *slog.Logger
}

// NewExecutor создаёт Executor над реестром планов и набором devices.
func NewExecutor(plans *Registry, devices *DeviceSet, logger *slog.Logger) *Executor {
	if plans == nil {
		plans = NewRegistry()
	}
	if devices == nil {
		devices = NewDeviceSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		plans:   plans,
		devices: devices,
		logger:  logger,
	}
}

// Plans возвращает реестр планов executor'а.
func (e *Executor) Plans() *Registry {
	return e.plans
}

// Devices возвращает набор devices executor'а.
func (e *Executor) Devices() *DeviceSet {
	return e.devices
}

// CanPause сообщает, что встроенные планы поддерживают паузу:
// все они проходят кооперативные точки.
func (e *Executor) CanPause() bool {
	return true
}

// Execute выполняет task до терминального исхода.
func (e *Executor) Execute(ctx context.Context, task *domain.TrackableTask, ctl *worker.Control) worker.Outcome {
	p, err := e.plans.Get(task.Task.Plan)
	if err != nil {
		return worker.Failed(err.Error())
	}

	params, err := decodeParams(p.Params, task.Task.Params)
	if err != nil {
		return worker.Failed(err.Error())
	}

	run := &Run{
		params:  params,
		devices: e.devices,
		ctl:     ctl,
		logger:  e.logger.With("task_id", task.ID, "plan", p.Name),
	}

	err = p.Run(ctx, run)
	switch {
	case err == nil:
		return worker.Succeeded()

	case errors.Is(err, worker.ErrPlanStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return worker.Cancelled()

	default:
		return worker.Failed(err.Error())
	}
}
