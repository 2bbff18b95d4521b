package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/plan"
	"github.com/shaiso/Maestro/internal/scheduler"
	"github.com/shaiso/Maestro/internal/worker"
)

const waitTimeout = 3 * time.Second

// testAPI — полный стек для HTTP-тестов: sim devices, встроенные планы,
// настоящий worker и сервер поверх httptest.
type testAPI struct {
	server *httptest.Server
	worker *worker.Worker
}

func newTestAPI(t *testing.T, manualStart bool) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	devices := plan.NewDeviceSet()
	devices.Register(plan.NewInstantSimAxis("axis_x"))
	devices.Register(plan.NewSimDetectorOnAxis("det", plan.NewInstantSimAxis("det_axis")))

	plans := plan.DefaultRegistry()

	w := worker.New(worker.Config{
		Executor:    plan.NewExecutor(plans, devices, logger),
		ManualStart: manualStart,
		Logger:      logger,
	})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start worker: %v", err)
	}
	t.Cleanup(w.Stop)

	sched := scheduler.New(scheduler.Config{
		Submit: w.Submit,
		Logger: logger,
	})

	h := NewHandler(Config{
		Worker:    w,
		Plans:     plans,
		Devices:   devices,
		Scheduler: sched,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testAPI{server: server, worker: w}
}

// request выполняет HTTP запрос и возвращает статус и тело.
func (a *testAPI) request(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp.StatusCode, raw
}

// decodeData распаковывает поле data успешного ответа в dst.
func decodeData(t *testing.T, raw []byte, dst any) {
	t.Helper()

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v (%s)", err, raw)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("unmarshal data: %v (%s)", err, envelope.Data)
	}
}

// errorCode достаёт код ошибки из ответа с ошибкой.
func errorCode(t *testing.T, raw []byte) ErrorCode {
	t.Helper()

	var envelope ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal error response: %v (%s)", err, raw)
	}
	return envelope.Error.Code
}

// waitTaskComplete ждёт терминального состояния task.
func (a *testAPI) waitTaskComplete(t *testing.T, id uuid.UUID) domain.TrackableTask {
	t.Helper()

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		task, err := a.worker.GetTask(id)
		if err != nil {
			t.Fatalf("get task %s: %v", id, err)
		}
		if task.IsComplete {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s did not complete within %v", id, waitTimeout)
	return domain.TrackableTask{}
}

func TestAPI_SubmitAndGetTask(t *testing.T) {
	a := newTestAPI(t, false)

	status, raw := a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{
		Plan:   "sleep",
		Params: map[string]any{"seconds": 0.01},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", status, raw)
	}

	var created TaskResponse
	decodeData(t, raw, &created)
	if created.ID == uuid.Nil {
		t.Fatal("created task has nil id")
	}
	if created.Plan != "sleep" {
		t.Errorf("created plan = %q, want sleep", created.Plan)
	}

	a.waitTaskComplete(t, created.ID)

	status, raw = a.request(t, http.MethodGet, "/api/v1/tasks/"+created.ID.String(), nil)
	if status != http.StatusOK {
		t.Fatalf("get status = %d, body %s", status, raw)
	}

	var fetched TaskResponse
	decodeData(t, raw, &fetched)
	if fetched.Status != domain.TaskStatusComplete {
		t.Errorf("fetched status = %s, want COMPLETE", fetched.Status)
	}
	if len(fetched.Errors) != 0 {
		t.Errorf("fetched errors = %v, want none", fetched.Errors)
	}
}

func TestAPI_SubmitTaskValidation(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{})
	if status != http.StatusBadRequest {
		t.Fatalf("empty plan status = %d, body %s", status, raw)
	}
	if code := errorCode(t, raw); code != ErrCodeBadRequest {
		t.Errorf("error code = %s, want %s", code, ErrCodeBadRequest)
	}
}

func TestAPI_GetTaskNotFound(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodGet, "/api/v1/tasks/"+uuid.NewString(), nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", status, raw)
	}
	if code := errorCode(t, raw); code != ErrCodeNotFound {
		t.Errorf("error code = %s, want %s", code, ErrCodeNotFound)
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/tasks/not-a-uuid", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d, body %s", status, raw)
	}
}

func TestAPI_ListTasksWithStatusFilter(t *testing.T) {
	a := newTestAPI(t, true)

	for i := 0; i < 3; i++ {
		status, raw := a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{
			Plan:   "sleep",
			Params: map[string]any{"seconds": 0.01},
		})
		if status != http.StatusCreated {
			t.Fatalf("submit status = %d, body %s", status, raw)
		}
	}

	status, raw := a.request(t, http.MethodGet, "/api/v1/tasks?status=PENDING", nil)
	if status != http.StatusOK {
		t.Fatalf("list status = %d, body %s", status, raw)
	}

	var envelope struct {
		Data  []TaskResponse `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if envelope.Total != 3 || len(envelope.Data) != 3 {
		t.Errorf("pending list total = %d, len = %d, want 3", envelope.Total, len(envelope.Data))
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/tasks?status=bogus", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("bogus filter status = %d, body %s", status, raw)
	}
}

func TestAPI_WorkerControlRoundTrip(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodGet, "/api/v1/worker/state", nil)
	if status != http.StatusOK {
		t.Fatalf("state status = %d, body %s", status, raw)
	}
	var state WorkerStateResponse
	decodeData(t, raw, &state)
	if state.State != domain.StateIdle {
		t.Fatalf("initial state = %s, want IDLE", state.State)
	}
	if state.ActiveTaskID != nil {
		t.Fatalf("initial active task = %v, want none", state.ActiveTaskID)
	}

	status, raw = a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{
		Plan:   "sleep",
		Params: map[string]any{"seconds": 30},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", status, raw)
	}
	var created TaskResponse
	decodeData(t, raw, &created)

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/begin", nil)
	if status != http.StatusOK {
		t.Fatalf("begin status = %d, body %s", status, raw)
	}
	var began BeginResponse
	decodeData(t, raw, &began)
	if began.TaskID != created.ID {
		t.Errorf("begin task id = %s, want %s", began.TaskID, created.ID)
	}

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/pause", PauseRequest{Immediate: true})
	if status != http.StatusNoContent {
		t.Fatalf("pause status = %d, body %s", status, raw)
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/worker/state", nil)
	if status != http.StatusOK {
		t.Fatalf("state status = %d, body %s", status, raw)
	}
	decodeData(t, raw, &state)
	if state.State != domain.StatePaused {
		t.Errorf("state after pause = %s, want PAUSED", state.State)
	}
	if state.ActiveTaskID == nil || *state.ActiveTaskID != created.ID {
		t.Errorf("active task after pause = %v, want %s", state.ActiveTaskID, created.ID)
	}

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/resume", nil)
	if status != http.StatusNoContent {
		t.Fatalf("resume status = %d, body %s", status, raw)
	}

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/cancel", CancelRequest{})
	if status != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", status, raw)
	}
	var cancelled CancelResponse
	decodeData(t, raw, &cancelled)
	if cancelled.TaskID != created.ID {
		t.Errorf("cancel task id = %s, want %s", cancelled.TaskID, created.ID)
	}

	task := a.waitTaskComplete(t, created.ID)
	if len(task.Errors) != 0 {
		t.Errorf("cancelled task errors = %v, want none", task.Errors)
	}
}

func TestAPI_WorkerControlConflicts(t *testing.T) {
	a := newTestAPI(t, true)

	// Очередь пуста — начинать нечего
	status, raw := a.request(t, http.MethodPost, "/api/v1/worker/begin", nil)
	if status != http.StatusConflict {
		t.Fatalf("begin on empty queue status = %d, body %s", status, raw)
	}
	if code := errorCode(t, raw); code != ErrCodeConflict {
		t.Errorf("error code = %s, want %s", code, ErrCodeConflict)
	}

	// Паузить idle worker нельзя
	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/pause", nil)
	if status != http.StatusConflict {
		t.Fatalf("pause idle status = %d, body %s", status, raw)
	}

	// Останавливать нечего
	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/cancel", nil)
	if status != http.StatusConflict {
		t.Fatalf("cancel without active status = %d, body %s", status, raw)
	}

	// Begin несуществующей task — 404
	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/begin", BeginRequest{
		TaskID: ptrUUID(uuid.New()),
	})
	if status != http.StatusNotFound {
		t.Fatalf("begin unknown task status = %d, body %s", status, raw)
	}
}

func TestAPI_CancelWithFailRecordsReason(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{
		Plan:   "sleep",
		Params: map[string]any{"seconds": 30},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", status, raw)
	}
	var created TaskResponse
	decodeData(t, raw, &created)

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/begin", nil)
	if status != http.StatusOK {
		t.Fatalf("begin status = %d, body %s", status, raw)
	}

	status, raw = a.request(t, http.MethodPost, "/api/v1/worker/cancel", CancelRequest{
		Fail:   true,
		Reason: "operator abort",
	})
	if status != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", status, raw)
	}

	task := a.waitTaskComplete(t, created.ID)
	if len(task.Errors) != 1 || task.Errors[0] != "operator abort" {
		t.Errorf("task errors = %v, want [operator abort]", task.Errors)
	}
}

func TestAPI_ClearTask(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodPost, "/api/v1/tasks", SubmitTaskRequest{
		Plan:   "sleep",
		Params: map[string]any{"seconds": 0.01},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", status, raw)
	}
	var created TaskResponse
	decodeData(t, raw, &created)

	status, raw = a.request(t, http.MethodDelete, "/api/v1/tasks/"+created.ID.String(), nil)
	if status != http.StatusNoContent {
		t.Fatalf("clear status = %d, body %s", status, raw)
	}

	status, _ = a.request(t, http.MethodGet, "/api/v1/tasks/"+created.ID.String(), nil)
	if status != http.StatusNotFound {
		t.Fatalf("get after clear status = %d", status)
	}
}

func TestAPI_PlansAndDevices(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodGet, "/api/v1/plans", nil)
	if status != http.StatusOK {
		t.Fatalf("list plans status = %d, body %s", status, raw)
	}
	var plansEnvelope struct {
		Data  []PlanResponse `json:"data"`
		Total int            `json:"total"`
	}
	if err := json.Unmarshal(raw, &plansEnvelope); err != nil {
		t.Fatalf("unmarshal plans: %v", err)
	}
	if plansEnvelope.Total != 4 {
		t.Errorf("plans total = %d, want 4 builtins", plansEnvelope.Total)
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/plans/scan", nil)
	if status != http.StatusOK {
		t.Fatalf("get plan status = %d, body %s", status, raw)
	}
	var scan PlanResponse
	decodeData(t, raw, &scan)
	if scan.Name != "scan" || len(scan.Params) == 0 {
		t.Errorf("scan plan = %+v, want name scan with params", scan)
	}

	status, _ = a.request(t, http.MethodGet, "/api/v1/plans/nope", nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown plan status = %d", status)
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/devices/axis_x", nil)
	if status != http.StatusOK {
		t.Fatalf("get device status = %d, body %s", status, raw)
	}
	var dev DeviceResponse
	decodeData(t, raw, &dev)
	if dev.Name != "axis_x" {
		t.Errorf("device name = %q, want axis_x", dev.Name)
	}
	if !containsString(dev.Protocols, "movable") || !containsString(dev.Protocols, "readable") {
		t.Errorf("axis_x protocols = %v, want movable and readable", dev.Protocols)
	}

	status, _ = a.request(t, http.MethodGet, "/api/v1/devices/ghost", nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown device status = %d", status)
	}
}

func TestAPI_ScheduleCRUD(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{
		Name:     "nightly",
		Plan:     "sleep",
		Params:   map[string]any{"seconds": 0.01},
		CronExpr: "0 3 * * *",
	})
	if status != http.StatusCreated {
		t.Fatalf("create schedule status = %d, body %s", status, raw)
	}
	var created domain.Schedule
	decodeData(t, raw, &created)
	if created.ID == uuid.Nil || !created.Enabled || created.NextDueAt == nil {
		t.Fatalf("created schedule = %+v, want enabled with next_due_at", created)
	}

	status, raw = a.request(t, http.MethodGet, "/api/v1/schedules", nil)
	if status != http.StatusOK {
		t.Fatalf("list schedules status = %d, body %s", status, raw)
	}

	status, raw = a.request(t, http.MethodPut, "/api/v1/schedules/"+created.ID.String()+"/enabled", SetEnabledRequest{Enabled: false})
	if status != http.StatusOK {
		t.Fatalf("disable status = %d, body %s", status, raw)
	}
	var disabled domain.Schedule
	decodeData(t, raw, &disabled)
	if disabled.Enabled {
		t.Error("schedule still enabled after disable")
	}

	status, raw = a.request(t, http.MethodDelete, "/api/v1/schedules/"+created.ID.String(), nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", status, raw)
	}

	status, _ = a.request(t, http.MethodGet, "/api/v1/schedules/"+created.ID.String(), nil)
	if status != http.StatusNotFound {
		t.Fatalf("get deleted schedule status = %d", status)
	}
}

func TestAPI_ScheduleValidation(t *testing.T) {
	a := newTestAPI(t, true)

	// Ни cron, ни interval
	status, raw := a.request(t, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{
		Plan: "sleep",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("schedule without trigger status = %d, body %s", status, raw)
	}

	// Кривой cron
	status, raw = a.request(t, http.MethodPost, "/api/v1/schedules", CreateScheduleRequest{
		Plan:     "sleep",
		CronExpr: "not a cron",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bad cron status = %d, body %s", status, raw)
	}
}

func TestAPI_Healthz(t *testing.T) {
	a := newTestAPI(t, true)

	status, raw := a.request(t, http.MethodGet, "/healthz", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d, body %s", status, raw)
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
