package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkerEvent — неизменяемый снимок наблюдаемого перехода worker'а.
//
// Публикуется Execution Loop'ом ровно один раз на каждый переход,
// строго в порядке переходов. Подписчики только читают событие.
type WorkerEvent struct {
	// State — новое состояние worker'а.
	State WorkerState `json:"state"`

	// TaskID — идентификатор task, которой касается переход.
	// Nil для переходов без привязки к task.
	TaskID *uuid.UUID `json:"task_id,omitempty"`

	// Error — описание ошибки, если переход вызван ошибкой
	// (падение executor'а, отмена с fail=true).
	Error string `json:"error,omitempty"`

	// Timestamp — время публикации события.
	Timestamp time.Time `json:"timestamp"`
}

// NewWorkerEvent создаёт событие для перехода в state.
// taskID == uuid.Nil означает переход без привязки к task.
func NewWorkerEvent(state WorkerState, taskID uuid.UUID, errMsg string) WorkerEvent {
	ev := WorkerEvent{
		State:     state,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
	if taskID != uuid.Nil {
		id := taskID
		ev.TaskID = &id
	}
	return ev
}
