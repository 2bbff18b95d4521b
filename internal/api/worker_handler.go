package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// GetWorkerState возвращает состояние worker'а и активную task.
// GET /api/v1/worker/state
func (h *Handler) GetWorkerState(w http.ResponseWriter, r *http.Request) {
	resp := WorkerStateResponse{State: h.worker.State()}
	if active, ok := h.worker.ActiveTask(); ok {
		resp.ActiveTaskID = &active
	}
	Success(w, resp)
}

// BeginTask запускает выполнение task.
// POST /api/v1/worker/begin
//
// Тело опционально: без task_id запускается голова очереди.
func (h *Handler) BeginTask(w http.ResponseWriter, r *http.Request) {
	var req BeginRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	taskID := uuid.Nil
	if req.TaskID != nil {
		taskID = *req.TaskID
	}

	started, err := h.worker.Begin(r.Context(), taskID)
	if HandleWorkerError(w, h.logger, err) {
		return
	}

	Success(w, BeginResponse{TaskID: started})
}

// PauseWorker приостанавливает выполнение активной task.
// POST /api/v1/worker/pause
func (h *Handler) PauseWorker(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if HandleWorkerError(w, h.logger, h.worker.Pause(r.Context(), req.Immediate)) {
		return
	}

	NoContent(w)
}

// ResumeWorker возобновляет приостановленную task.
// POST /api/v1/worker/resume
func (h *Handler) ResumeWorker(w http.ResponseWriter, r *http.Request) {
	if HandleWorkerError(w, h.logger, h.worker.Resume(r.Context())) {
		return
	}

	NoContent(w)
}

// CancelTask останавливает активную task.
// POST /api/v1/worker/cancel
func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	cancelled, err := h.worker.CancelActive(r.Context(), req.Fail, req.Reason)
	if HandleWorkerError(w, h.logger, err) {
		return
	}

	Success(w, CancelResponse{TaskID: cancelled})
}

// decodeOptionalBody парсит JSON тело; пустое тело — не ошибка.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}
