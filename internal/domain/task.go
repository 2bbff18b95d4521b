package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — описание единицы работы без идентичности.
//
// Task создаётся вызывающей стороной в момент submission и после этого
// не изменяется: имя plan'а плюс конкретные значения параметров.
type Task struct {
	// Plan — имя plan'а, который нужно выполнить.
	Plan string `json:"plan"`

	// Params — значения параметров plan'а (имя → значение).
	Params map[string]any `json:"params,omitempty"`
}

// TrackableTask — Task с идентичностью и полями отслеживания жизненного цикла.
//
// Владелец — Task Registry. Поля идентичности (ID, Task, SubmittedAt)
// записывает только Registry при submission; tracking-поля (IsComplete,
// IsPending, Errors, StartedAt, FinishedAt) — только Execution Loop.
type TrackableTask struct {
	// ID — уникальный идентификатор task. Назначается при submission,
	// никогда не переиспользуется.
	ID uuid.UUID `json:"id"`

	// Task — неизменяемое описание работы.
	Task Task `json:"task"`

	// IsComplete — true, когда task достиг терминального состояния
	// (успех, ошибка или отмена).
	IsComplete bool `json:"is_complete"`

	// IsPending — true с момента submission до терминального состояния.
	IsPending bool `json:"is_pending"`

	// Errors — упорядоченный список ошибок выполнения.
	// Пустой при успешном завершении.
	Errors []string `json:"errors,omitempty"`

	// SubmittedAt — время submission.
	SubmittedAt time.Time `json:"submitted_at"`

	// StartedAt — время, когда Execution Loop взял task в работу.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время достижения терминального состояния.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration возвращает продолжительность выполнения.
func (t *TrackableTask) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// Status возвращает производный статус task.
//
// active — идентификатор task, который сейчас выполняет Execution Loop
// (uuid.Nil, если активной task нет).
func (t *TrackableTask) Status(active uuid.UUID) TaskStatus {
	switch {
	case t.ID != uuid.Nil && t.ID == active:
		return TaskStatusRunning
	case t.IsComplete:
		return TaskStatusComplete
	default:
		return TaskStatusPending
	}
}

// MarkStarted фиксирует взятие task в работу.
func (t *TrackableTask) MarkStarted() {
	now := time.Now()
	t.StartedAt = &now
}

// MarkComplete переводит task в терминальное состояние.
// errs пустой при успехе, иначе содержит описания ошибок.
func (t *TrackableTask) MarkComplete(errs []string) {
	now := time.Now()
	t.IsComplete = true
	t.IsPending = false
	t.Errors = errs
	t.FinishedAt = &now
}

// TaskStatus — производный статус task.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETE
//
// PENDING — task принят и ждёт выполнения (в очереди).
// RUNNING — task активен: Execution Loop выполняет его (включая паузу).
// COMPLETE — task завершён (успешно, с ошибкой или отменён).
type TaskStatus string

const (
	// TaskStatusPending — task ожидает выполнения.
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusRunning — task выполняется (или приостановлен).
	TaskStatusRunning TaskStatus = "RUNNING"

	// TaskStatusComplete — task завершён.
	TaskStatusComplete TaskStatus = "COMPLETE"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusComplete
}

// ParseTaskStatus парсит строку в TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusRunning, TaskStatusComplete:
		return TaskStatus(s), true
	default:
		return "", false
	}
}
