package plan

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shaiso/Maestro/internal/worker"
)

// Ошибки плана.
var (
	// ErrPlanNotFound — план не найден в реестре.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrInvalidParams — параметры не прошли валидацию по схеме.
	ErrInvalidParams = errors.New("invalid plan params")
)

// RunFunc — тело плана.
//
// План обязан звать run.Checkpoint между инструкциями и run.EndStep на
// границах неделимых шагов и прекращать работу, когда они возвращают
// ошибку.
type RunFunc func(ctx context.Context, run *Run) error

// Plan — именованная единица работы: имя, схема параметров, тело.
type Plan struct {
	// Name — уникальное имя плана в реестре.
	Name string

	// Description — краткое описание для выдачи наружу.
	Description string

	// Params — схема параметров плана.
	Params []ParamSpec

	// Run — тело плана.
	Run RunFunc
}

// Run — окружение одного выполнения плана: валидированные параметры,
// devices и кооперативная ручка управления.
type Run struct {
	params  map[string]any
	devices *DeviceSet
	ctl     *worker.Control
	logger  *slog.Logger
}

// Devices возвращает набор devices, доступных плану.
func (r *Run) Devices() *DeviceSet {
	return r.devices
}

// Logger возвращает логгер выполнения.
func (r *Run) Logger() *slog.Logger {
	return r.logger
}

// Checkpoint — граница инструкции плана.
// Здесь исполняются немедленные паузы и остановки.
func (r *Run) Checkpoint(ctx context.Context) error {
	return r.ctl.Checkpoint(ctx)
}

// EndStep — граница неделимого шага плана.
// Как Checkpoint, но дополнительно исполняет отложенную паузу.
func (r *Run) EndStep(ctx context.Context) error {
	return r.ctl.EndStep(ctx)
}

// String возвращает строковый параметр.
// Параметры уже валидированы по схеме при запуске.
func (r *Run) String(name string) string {
	if v, ok := r.params[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Float возвращает числовой параметр.
func (r *Run) Float(name string) float64 {
	if v, ok := r.params[name]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return 0
}

// Int возвращает целочисленный параметр.
func (r *Run) Int(name string) int {
	if v, ok := r.params[name]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// Bool возвращает булев параметр.
func (r *Run) Bool(name string) bool {
	if v, ok := r.params[name]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}
