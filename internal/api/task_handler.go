package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// SubmitTask принимает task в реестр.
// POST /api/v1/tasks
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Plan == "" {
		BadRequest(w, "plan name is required")
		return
	}

	id, err := h.worker.Submit(domain.Task{
		Plan:   req.Plan,
		Params: req.Params,
	})
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	task, err := h.worker.GetTask(id)
	if HandleWorkerError(w, h.logger, err) {
		return
	}

	Created(w, TaskFromDomain(task, h.worker.TaskStatusOf(&task)))
}

// ListTasks возвращает tasks в порядке submission.
// GET /api/v1/tasks?status=PENDING|RUNNING|COMPLETE
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var tasks []domain.TrackableTask

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, ok := domain.ParseTaskStatus(statusStr)
		if !ok {
			BadRequest(w, "invalid status filter")
			return
		}
		tasks = h.worker.TasksByStatus(status)
	} else {
		tasks = h.worker.Tasks()
	}

	result := make([]TaskResponse, len(tasks))
	for i := range tasks {
		result[i] = TaskFromDomain(tasks[i], h.worker.TaskStatusOf(&tasks[i]))
	}

	List(w, result, len(result))
}

// GetTask возвращает task по id.
// GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task id")
		return
	}

	task, err := h.worker.GetTask(id)
	if HandleWorkerError(w, h.logger, err) {
		return
	}

	Success(w, TaskFromDomain(task, h.worker.TaskStatusOf(&task)))
}

// ClearTask удаляет pending или завершённую task из реестра.
// DELETE /api/v1/tasks/{id}
func (h *Handler) ClearTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid task id")
		return
	}

	if HandleWorkerError(w, h.logger, h.worker.ClearTask(id)) {
		return
	}

	NoContent(w)
}
