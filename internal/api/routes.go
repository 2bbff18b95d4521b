package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Tasks
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.SubmitTask)))
	mux.Handle("GET /api/v1/tasks/{id}", chain(http.HandlerFunc(h.GetTask)))
	mux.Handle("DELETE /api/v1/tasks/{id}", chain(http.HandlerFunc(h.ClearTask)))

	// Worker control
	mux.Handle("GET /api/v1/worker/state", chain(http.HandlerFunc(h.GetWorkerState)))
	mux.Handle("POST /api/v1/worker/begin", chain(http.HandlerFunc(h.BeginTask)))
	mux.Handle("POST /api/v1/worker/pause", chain(http.HandlerFunc(h.PauseWorker)))
	mux.Handle("POST /api/v1/worker/resume", chain(http.HandlerFunc(h.ResumeWorker)))
	mux.Handle("POST /api/v1/worker/cancel", chain(http.HandlerFunc(h.CancelTask)))

	// Plans
	mux.Handle("GET /api/v1/plans", chain(http.HandlerFunc(h.ListPlans)))
	mux.Handle("GET /api/v1/plans/{name}", chain(http.HandlerFunc(h.GetPlan)))

	// Devices
	mux.Handle("GET /api/v1/devices", chain(http.HandlerFunc(h.ListDevices)))
	mux.Handle("GET /api/v1/devices/{name}", chain(http.HandlerFunc(h.GetDevice)))

	// Schedules — только при сконфигурированном планировщике
	if h.scheduler != nil {
		mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
		mux.Handle("POST /api/v1/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
		mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
		mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
		mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
	}

	// Health
	mux.Handle("GET /healthz", http.HandlerFunc(h.Healthz))
}

// Healthz — проверка живости процесса.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	Success(w, map[string]string{"status": "ok"})
}
