package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/worker"
)

const defaultEventBuffer = 256

// ErrNotFound — запись не найдена в журнале.
var ErrNotFound = errors.New("not found")

// Journal пишет переходы worker'а и исходы tasks в PostgreSQL.
//
// Journal — наблюдатель: подписывается на события worker'а и сохраняет
// их асинхронно. Подписчик вызывается на goroutine Execution Loop'а и
// не имеет права блокироваться, поэтому события складываются в
// буферизованный канал, а пишет их отдельная goroutine. При переполнении
// буфера событие теряется с предупреждением — выполнение tasks
// важнее полноты audit-журнала.
type Journal struct {
	pool   *pgxpool.Pool
	worker *worker.Worker

	sub    *worker.Subscription
	events chan domain.WorkerEvent

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Journal.
type Config struct {
	// Pool — пул соединений. Обязателен.
	Pool *pgxpool.Pool

	// Worker — источник событий. Обязателен.
	Worker *worker.Worker

	// EventBuffer — ёмкость буфера событий (default: 256).
	EventBuffer int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Journal.
func New(cfg Config) *Journal {
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Journal{
		pool:   cfg.Pool,
		worker: cfg.Worker,
		events: make(chan domain.WorkerEvent, buffer),
		logger: logger,
	}
}

// Start создаёт схему, подписывается на события worker'а и запускает
// пишущую goroutine.
func (j *Journal) Start(ctx context.Context) error {
	if j.pool == nil {
		return errors.New("journal: pool is required")
	}
	if j.worker == nil {
		return errors.New("journal: worker is required")
	}

	if err := EnsureSchema(ctx, j.pool); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancelFunc = cancel

	j.sub = j.worker.Subscribe(j.enqueue)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.writeEvents(ctx)
	}()

	j.logger.Info("journal started", "buffer", cap(j.events))
	return nil
}

// Stop отписывается от событий и дописывает буфер.
func (j *Journal) Stop() {
	if j.sub != nil {
		j.worker.Unsubscribe(j.sub)
	}
	if j.cancelFunc != nil {
		j.cancelFunc()
	}
	j.wg.Wait()
	j.logger.Info("journal stopped")
}

// enqueue кладёт событие в буфер без блокировки.
// Вызывается на goroutine Execution Loop'а.
func (j *Journal) enqueue(ev domain.WorkerEvent) {
	select {
	case j.events <- ev:
	default:
		j.logger.Warn("journal event buffer full, dropping event",
			"state", ev.State,
			"task_id", ev.TaskID,
		)
	}
}

// writeEvents пишет события из буфера до отмены контекста,
// затем дописывает остаток без блокировки.
func (j *Journal) writeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case ev := <-j.events:
					j.record(context.Background(), ev)
				default:
					return
				}
			}
		case ev := <-j.events:
			j.record(ctx, ev)
		}
	}
}

// record сохраняет один переход; на переходе в IDLE с task фиксируется
// итоговая запись task в истории.
func (j *Journal) record(ctx context.Context, ev domain.WorkerEvent) {
	if err := j.insertTransition(ctx, ev); err != nil {
		j.logger.Error("failed to record worker transition",
			"state", ev.State,
			"error", err,
		)
	}

	if ev.State == domain.StateIdle && ev.TaskID != nil {
		if err := j.recordTaskOutcome(ctx, *ev.TaskID); err != nil {
			j.logger.Error("failed to record task outcome",
				"task_id", *ev.TaskID,
				"error", err,
			)
		}
	}
}

func (j *Journal) insertTransition(ctx context.Context, ev domain.WorkerEvent) error {
	query := `
		INSERT INTO worker_transitions (state, task_id, error, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := j.pool.Exec(ctx, query,
		ev.State,
		ev.TaskID,
		nullString(ev.Error),
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// recordTaskOutcome сохраняет терминальный снимок task.
// Task может быть уже удалён из реестра (ClearTask) — тогда писать нечего.
func (j *Journal) recordTaskOutcome(ctx context.Context, taskID uuid.UUID) error {
	task, err := j.worker.GetTask(taskID)
	if err != nil {
		return nil
	}
	if !task.IsComplete {
		return nil
	}

	paramsJSON, err := json.Marshal(task.Task.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	query := `
		INSERT INTO task_history (task_id, plan, params, errors, submitted_at, started_at, finished_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id) DO NOTHING
	`
	_, err = j.pool.Exec(ctx, query,
		task.ID,
		task.Task.Plan,
		paramsJSON,
		task.Errors,
		task.SubmittedAt,
		task.StartedAt,
		task.FinishedAt,
		task.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert task history: %w", err)
	}
	return nil
}

// Transition — сохранённый переход worker'а.
type Transition struct {
	ID         int64
	State      domain.WorkerState
	TaskID     *uuid.UUID
	Error      string
	OccurredAt time.Time
}

// TaskRecord — сохранённый терминальный снимок task.
type TaskRecord struct {
	TaskID      uuid.UUID
	Plan        string
	Params      map[string]any
	Errors      []string
	SubmittedAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	DurationMs  int64
}

// RecentTransitions возвращает последние переходы, новые первыми.
func (j *Journal) RecentTransitions(ctx context.Context, limit int) ([]Transition, error) {
	query := `
		SELECT id, state, task_id, error, occurred_at
		FROM worker_transitions
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := j.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var tr Transition
		var errMsg *string
		if err := rows.Scan(&tr.ID, &tr.State, &tr.TaskID, &errMsg, &tr.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if errMsg != nil {
			tr.Error = *errMsg
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

// TaskOutcome возвращает сохранённый снимок task по id.
func (j *Journal) TaskOutcome(ctx context.Context, taskID uuid.UUID) (*TaskRecord, error) {
	query := `
		SELECT task_id, plan, params, errors, submitted_at, started_at, finished_at, duration_ms
		FROM task_history
		WHERE task_id = $1
	`
	var rec TaskRecord
	var paramsJSON []byte
	err := j.pool.QueryRow(ctx, query, taskID).Scan(
		&rec.TaskID,
		&rec.Plan,
		&paramsJSON,
		&rec.Errors,
		&rec.SubmittedAt,
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.DurationMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan task record: %w", err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &rec.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
