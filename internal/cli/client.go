package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskResponse — task из API.
type TaskResponse struct {
	ID          string         `json:"id"`
	Plan        string         `json:"plan"`
	Params      map[string]any `json:"params,omitempty"`
	Status      string         `json:"status"`
	Errors      []string       `json:"errors,omitempty"`
	SubmittedAt string         `json:"submitted_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	FinishedAt  string         `json:"finished_at,omitempty"`
	DurationMs  int64          `json:"duration_ms,omitempty"`
}

// WorkerStateResponse — состояние worker'а из API.
type WorkerStateResponse struct {
	State        string `json:"state"`
	ActiveTaskID string `json:"active_task_id,omitempty"`
}

// PlanParamResponse — описание параметра плана из API.
type PlanParamResponse struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// PlanResponse — план из API.
type PlanResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Params      []PlanParamResponse `json:"params"`
}

// DeviceResponse — device из API.
type DeviceResponse struct {
	Name      string   `json:"name"`
	Protocols []string `json:"protocols"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Task        struct {
		Plan   string         `json:"plan"`
		Params map[string]any `json:"params,omitempty"`
	} `json:"task"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone"`
	Enabled     bool   `json:"enabled"`
	NextDueAt   string `json:"next_due_at,omitempty"`
	LastTaskAt  string `json:"last_task_at,omitempty"`
	LastTaskID  string `json:"last_task_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// --- Request types ---

// SubmitTaskRequest — submission task.
type SubmitTaskRequest struct {
	Plan   string         `json:"plan"`
	Params map[string]any `json:"params,omitempty"`
}

// BeginRequest — запуск task.
type BeginRequest struct {
	TaskID string `json:"task_id,omitempty"`
}

// BeginResponse — id запущенной task.
type BeginResponse struct {
	TaskID string `json:"task_id"`
}

// PauseRequest — пауза worker'а.
type PauseRequest struct {
	Immediate bool `json:"immediate,omitempty"`
}

// CancelRequest — остановка активной task.
type CancelRequest struct {
	Fail   bool   `json:"fail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// CancelResponse — id остановленной task.
type CancelResponse struct {
	TaskID string `json:"task_id"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name,omitempty"`
	Plan        string         `json:"plan"`
	Params      map[string]any `json:"params,omitempty"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Maestro API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Tasks ---

// SubmitTask отправляет task в worker.
func (c *Client) SubmitTask(req SubmitTaskRequest) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post("/api/v1/tasks", req, &task)
	return &task, err
}

// ListTasks возвращает tasks. Если status не пустой — фильтрует.
func (c *Client) ListTasks(status string) ([]TaskResponse, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}

	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", params, &tasks)
	return tasks, err
}

// GetTask возвращает task по ID.
func (c *Client) GetTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.get("/api/v1/tasks/"+id, &task)
	return &task, err
}

// ClearTask удаляет task из реестра.
func (c *Client) ClearTask(id string) error {
	return c.delete("/api/v1/tasks/" + id)
}

// --- Worker ---

// WorkerState возвращает текущее состояние worker'а.
func (c *Client) WorkerState() (*WorkerStateResponse, error) {
	var state WorkerStateResponse
	err := c.get("/api/v1/worker/state", &state)
	return &state, err
}

// Begin запускает task. Пустой taskID означает голову очереди.
func (c *Client) Begin(taskID string) (*BeginResponse, error) {
	var body any
	if taskID != "" {
		body = BeginRequest{TaskID: taskID}
	}
	var resp BeginResponse
	err := c.post("/api/v1/worker/begin", body, &resp)
	return &resp, err
}

// Pause приостанавливает выполнение активной task.
func (c *Client) Pause(immediate bool) error {
	return c.post("/api/v1/worker/pause", PauseRequest{Immediate: immediate}, nil)
}

// Resume возобновляет приостановленную task.
func (c *Client) Resume() error {
	return c.post("/api/v1/worker/resume", nil, nil)
}

// Cancel останавливает активную task.
func (c *Client) Cancel(fail bool, reason string) (*CancelResponse, error) {
	var resp CancelResponse
	err := c.post("/api/v1/worker/cancel", CancelRequest{Fail: fail, Reason: reason}, &resp)
	return &resp, err
}

// --- Plans / devices ---

// ListPlans возвращает все зарегистрированные планы.
func (c *Client) ListPlans() ([]PlanResponse, error) {
	var plans []PlanResponse
	err := c.list("/api/v1/plans", nil, &plans)
	return plans, err
}

// GetPlan возвращает план по имени.
func (c *Client) GetPlan(name string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.get("/api/v1/plans/"+name, &plan)
	return &plan, err
}

// ListDevices возвращает все зарегистрированные devices.
func (c *Client) ListDevices() ([]DeviceResponse, error) {
	var devices []DeviceResponse
	err := c.list("/api/v1/devices", nil, &devices)
	return devices, err
}

// GetDevice возвращает device по имени.
func (c *Client) GetDevice(name string) (*DeviceResponse, error) {
	var device DeviceResponse
	err := c.get("/api/v1/devices/"+name, &device)
	return &device, err
}

// --- Schedules ---

// ListSchedules возвращает все schedules.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule.
func (c *Client) CreateSchedule(req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
