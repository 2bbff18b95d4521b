package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// CreateSchedule создаёт новое schedule.
// POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	id, err := h.scheduler.Add(domain.Schedule{
		Name: req.Name,
		Task: domain.Task{
			Plan:   req.Plan,
			Params: req.Params,
		},
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    req.Timezone,
		Enabled:     enabled,
	})
	if HandleSchedulerError(w, h.logger, err) {
		return
	}

	sched, err := h.scheduler.Get(id)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}

	Created(w, sched)
}

// ListSchedules возвращает все schedules в порядке создания.
// GET /api/v1/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules := h.scheduler.List()
	List(w, schedules, len(schedules))
}

// GetSchedule возвращает schedule по id.
// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	sched, err := h.scheduler.Get(id)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}

	Success(w, sched)
}

// DeleteSchedule удаляет schedule.
// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	if HandleSchedulerError(w, h.logger, h.scheduler.Remove(id)) {
		return
	}

	NoContent(w)
}

// SetScheduleEnabled включает или выключает schedule.
// PUT /api/v1/schedules/{id}/enabled
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleSchedulerError(w, h.logger, h.scheduler.SetEnabled(id, req.Enabled)) {
		return
	}

	sched, err := h.scheduler.Get(id)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}

	Success(w, sched)
}
