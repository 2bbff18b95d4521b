package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

const defaultTickInterval = time.Second

// Ошибки планировщика.
var (
	// ErrScheduleNotFound — schedule не найден.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrInvalidSchedule — schedule не проходит валидацию.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// SubmitFunc отправляет task по расписанию.
// Обычно это Submit worker'а.
type SubmitFunc func(task domain.Task) (uuid.UUID, error)

// Scheduler отправляет tasks по расписаниям.
//
// Расписания хранятся в памяти: планировщик — вспомогательный слой
// вокруг ядра, история submissions живёт в самих tasks.
type Scheduler struct {
	submit       SubmitFunc
	tickInterval time.Duration

	mu        sync.RWMutex
	schedules map[uuid.UUID]*domain.Schedule

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// Submit — приёмник tasks. Обязателен.
	Submit SubmitFunc

	// TickInterval — период проверки due schedules (default: 1s).
	TickInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		submit:       cfg.Submit,
		tickInterval: tickInterval,
		schedules:    make(map[uuid.UUID]*domain.Schedule),
		logger:       logger,
	}
}

// Add регистрирует schedule: валидирует, назначает id и вычисляет
// первое время submission.
func (s *Scheduler) Add(sched domain.Schedule) (uuid.UUID, error) {
	if sched.Task.Plan == "" {
		return uuid.Nil, fmt.Errorf("%w: task plan name is empty", ErrInvalidSchedule)
	}
	if sched.CronExpr != "" {
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	} else if sched.IntervalSec <= 0 {
		return uuid.Nil, fmt.Errorf("%w: either cron_expr or interval_sec is required", ErrInvalidSchedule)
	}

	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	if sched.Timezone == "" {
		sched.Timezone = "UTC"
	}

	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	nextDue, err := CalculateNextDue(&sched, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	sched.NextDueAt = &nextDue

	s.mu.Lock()
	s.schedules[sched.ID] = &sched
	s.mu.Unlock()

	s.logger.Info("schedule added",
		"schedule_id", sched.ID,
		"name", sched.Name,
		"plan", sched.Task.Plan,
		"next_due_at", nextDue,
	)
	return sched.ID, nil
}

// Get возвращает снимок schedule по id.
func (s *Scheduler) Get(id uuid.UUID) (domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, exists := s.schedules[id]
	if !exists {
		return domain.Schedule{}, fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	return *sched, nil
}

// List возвращает снимки всех schedules в порядке создания.
func (s *Scheduler) List() []domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		result = append(result, *sched)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Remove удаляет schedule.
func (s *Scheduler) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.schedules[id]; !exists {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}
	delete(s.schedules, id)
	return nil
}

// SetEnabled включает или выключает schedule.
// При включении время следующей submission пересчитывается от текущего
// момента, чтобы не выстрелили все пропущенные времена.
func (s *Scheduler) SetEnabled(id uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, exists := s.schedules[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, id)
	}

	if enabled && !sched.Enabled {
		nextDue, err := CalculateNextDue(sched, time.Now())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
		sched.NextDueAt = &nextDue
	}
	sched.Enabled = enabled
	sched.UpdatedAt = time.Now()
	return nil
}

// Count возвращает количество schedules.
func (s *Scheduler) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.schedules)
}

// Start запускает цикл тиков.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.submit == nil {
		return errors.New("scheduler: submit func is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(time.Now())
			}
		}
	}()

	s.logger.Info("scheduler started", "tick_interval", s.tickInterval)
	return nil
}

// Stop останавливает Scheduler.
func (s *Scheduler) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Tick отправляет tasks всех due schedules.
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(now time.Time) {
	due := s.collectDue(now)
	if len(due) == 0 {
		return
	}

	s.logger.Debug("found due schedules", "count", len(due))

	for _, id := range due {
		if err := s.fire(id, now); err != nil {
			s.logger.Error("failed to fire schedule",
				"schedule_id", id,
				"error", err,
			)
		}
	}
}

// collectDue возвращает id всех due schedules.
func (s *Scheduler) collectDue(now time.Time) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []uuid.UUID
	for id, sched := range s.schedules {
		if sched.IsDue(now) {
			due = append(due, id)
		}
	}
	return due
}

// fire отправляет task одного schedule и сдвигает next_due_at.
func (s *Scheduler) fire(id uuid.UUID, now time.Time) error {
	s.mu.Lock()
	sched, exists := s.schedules[id]
	if !exists || !sched.IsDue(now) {
		// удалён или уже обработан
		s.mu.Unlock()
		return nil
	}
	task := sched.Task
	s.mu.Unlock()

	// Submit вне мьютекса: приёмник может быть небыстрым
	taskID, err := s.submit(task)
	if err != nil {
		return fmt.Errorf("submit task: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, exists = s.schedules[id]
	if !exists {
		return nil
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// schedule испортился — выключаем, а не зацикливаем submissions
		sched.Enabled = false
		sched.UpdatedAt = time.Now()
		return fmt.Errorf("calculate next due, schedule disabled: %w", err)
	}
	sched.RecordSubmission(taskID, nextDue)

	s.logger.Info("task submitted from schedule",
		"schedule_id", id,
		"schedule_name", sched.Name,
		"task_id", taskID,
		"plan", task.Plan,
		"next_due_at", nextDue,
	)
	return nil
}
