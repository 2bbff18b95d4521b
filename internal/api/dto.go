package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/plan"
)

// Task DTOs

// SubmitTaskRequest — запрос на постановку task.
type SubmitTaskRequest struct {
	Plan   string         `json:"plan"`
	Params map[string]any `json:"params,omitempty"`
}

// TaskResponse — ответ с task.
type TaskResponse struct {
	ID          uuid.UUID         `json:"id"`
	Plan        string            `json:"plan"`
	Params      map[string]any    `json:"params,omitempty"`
	Status      domain.TaskStatus `json:"status"`
	Errors      []string          `json:"errors,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	DurationMs  int64             `json:"duration_ms,omitempty"`
}

// TaskFromDomain конвертирует domain.TrackableTask в TaskResponse.
func TaskFromDomain(t domain.TrackableTask, status domain.TaskStatus) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Plan:        t.Task.Plan,
		Params:      t.Task.Params,
		Status:      status,
		Errors:      t.Errors,
		SubmittedAt: t.SubmittedAt,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
		DurationMs:  t.Duration().Milliseconds(),
	}
}

// Worker DTOs

// WorkerStateResponse — текущее состояние worker'а.
type WorkerStateResponse struct {
	State        domain.WorkerState `json:"state"`
	ActiveTaskID *uuid.UUID         `json:"active_task_id,omitempty"`
}

// BeginRequest — запрос на запуск task.
type BeginRequest struct {
	// TaskID — опционален; без него запускается голова очереди.
	TaskID *uuid.UUID `json:"task_id,omitempty"`
}

// BeginResponse — ответ с id запущенной task.
type BeginResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// PauseRequest — запрос на паузу.
type PauseRequest struct {
	// Immediate — прерваться на ближайшей инструкции, не дожидаясь
	// границы шага.
	Immediate bool `json:"immediate,omitempty"`
}

// CancelRequest — запрос на остановку активной task.
type CancelRequest struct {
	Fail   bool   `json:"fail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CancelResponse — ответ с id остановленной task.
type CancelResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// Plan / device DTOs

// PlanResponse — описание плана.
type PlanResponse struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Params      []plan.ParamSpec `json:"params"`
}

// PlanFromRegistry конвертирует plan.Plan в PlanResponse.
func PlanFromRegistry(p *plan.Plan) PlanResponse {
	params := p.Params
	if params == nil {
		params = []plan.ParamSpec{}
	}
	return PlanResponse{
		Name:        p.Name,
		Description: p.Description,
		Params:      params,
	}
}

// DeviceResponse — описание device.
type DeviceResponse struct {
	Name      string   `json:"name"`
	Protocols []string `json:"protocols"`
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name,omitempty"`
	Plan        string         `json:"plan"`
	Params      map[string]any `json:"params,omitempty"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение schedule.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
