package domain

// WorkerState — фаза выполнения worker'а.
//
// Жизненный цикл:
//
//	IDLE → RUNNING → PAUSING → PAUSED → RUNNING
//	     ↘ RUNNING → STOPPING → IDLE
//
// Терминального состояния нет: worker живёт весь срок жизни процесса,
// чередуя IDLE и RUNNING по мере поступления tasks.
type WorkerState string

const (
	// StateIdle — активной task нет, worker ждёт работу.
	StateIdle WorkerState = "IDLE"

	// StateRunning — executor выполняет активную task.
	StateRunning WorkerState = "RUNNING"

	// StatePausing — пауза запрошена, executor ещё не дошёл
	// до кооперативной точки приостановки.
	StatePausing WorkerState = "PAUSING"

	// StatePaused — executor приостановлен, task остаётся активной.
	StatePaused WorkerState = "PAUSED"

	// StateStopping — отмена запрошена, executor останавливается.
	StateStopping WorkerState = "STOPPING"
)

// HasActiveTask возвращает true, если в этом состоянии есть активная task.
func (s WorkerState) HasActiveTask() bool {
	switch s {
	case StateRunning, StatePausing, StatePaused, StateStopping:
		return true
	default:
		return false
	}
}

// CanPause возвращает true, если из этого состояния допустим запрос паузы.
func (s WorkerState) CanPause() bool {
	switch s {
	case StateRunning, StatePausing, StatePaused:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление WorkerState.
func (s WorkerState) String() string {
	return string(s)
}
