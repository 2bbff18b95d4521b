package worker

import (
	"context"

	"github.com/shaiso/Maestro/internal/domain"
)

// OutcomeStatus — исход выполнения task executor'ом.
type OutcomeStatus string

const (
	// OutcomeSuccess — план выполнен до конца без ошибок.
	OutcomeSuccess OutcomeStatus = "SUCCESS"

	// OutcomeFailure — план завершился ошибкой.
	OutcomeFailure OutcomeStatus = "FAILURE"

	// OutcomeCancelled — план остановлен по запросу worker'а.
	OutcomeCancelled OutcomeStatus = "CANCELLED"
)

// Outcome — результат выполнения task.
//
// Executor обязан вернуть ровно один из трёх исходов; смешанных и
// пустых результатов не бывает. Detail заполняется только для Failure.
type Outcome struct {
	Status OutcomeStatus
	Detail string
}

// Succeeded — успешный исход.
func Succeeded() Outcome {
	return Outcome{Status: OutcomeSuccess}
}

// Failed — исход с ошибкой выполнения.
func Failed(detail string) Outcome {
	return Outcome{Status: OutcomeFailure, Detail: detail}
}

// Cancelled — остановленное выполнение.
func Cancelled() Outcome {
	return Outcome{Status: OutcomeCancelled}
}

// Executor — внешний коллаборатор, выполняющий task.
//
// Execute вызывается на goroutine Execution Loop'а и работает до
// завершения плана. Между неделимыми шагами executor обязан звать
// ctl.Checkpoint (граница инструкции) и ctl.EndStep (граница шага) —
// только там worker приостанавливает и останавливает выполнение.
// Получив от них ErrPlanStopped или отмену ctx, executor должен
// оперативно вернуть Cancelled.
//
// Ошибка плана — это Outcome Failure, а не паника: executor не должен
// ронять worker. Паника executor'а перехватывается и записывается как
// Failure, worker остаётся доступным.
type Executor interface {
	Execute(ctx context.Context, task *domain.TrackableTask, ctl *Control) Outcome
}

// Pausable — опциональная способность executor'а к приостановке.
//
// Если executor не реализует интерфейс, считается что пауза
// поддерживается. Явный флаг вместо рефлексии по типам.
type Pausable interface {
	CanPause() bool
}
