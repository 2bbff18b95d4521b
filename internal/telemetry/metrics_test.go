package telemetry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/Maestro/internal/domain"
)

func stateValue(t *testing.T, m *Metrics, state domain.WorkerState) float64 {
	t.Helper()
	return testutil.ToFloat64(m.WorkerState.WithLabelValues(state.String()))
}

func TestMetrics_WorkerStateGauge(t *testing.T) {
	m := NewMetrics()

	if got := stateValue(t, m, domain.StateIdle); got != 1 {
		t.Fatalf("initial IDLE gauge = %v, want 1", got)
	}
	if got := stateValue(t, m, domain.StateRunning); got != 0 {
		t.Fatalf("initial RUNNING gauge = %v, want 0", got)
	}

	id := uuid.New()
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateRunning, id, ""))

	if got := stateValue(t, m, domain.StateIdle); got != 0 {
		t.Errorf("IDLE gauge after start = %v, want 0", got)
	}
	if got := stateValue(t, m, domain.StateRunning); got != 1 {
		t.Errorf("RUNNING gauge after start = %v, want 1", got)
	}

	m.ObserveEvent(domain.NewWorkerEvent(domain.StatePaused, id, ""))
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateRunning, id, ""))
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateIdle, id, ""))

	if got := stateValue(t, m, domain.StateIdle); got != 1 {
		t.Errorf("IDLE gauge after finish = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EventsPublished); got != 4 {
		t.Errorf("events published = %v, want 4", got)
	}
}

func TestMetrics_TasksStartedCountsOnlyNewStarts(t *testing.T) {
	m := NewMetrics()
	id := uuid.New()

	// запуск, пауза, resume, завершение — один старт
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateRunning, id, ""))
	m.ObserveEvent(domain.NewWorkerEvent(domain.StatePaused, id, ""))
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateRunning, id, ""))
	m.ObserveEvent(domain.NewWorkerEvent(domain.StateIdle, id, ""))

	if got := testutil.ToFloat64(m.TasksStarted); got != 1 {
		t.Errorf("tasks started = %v, want 1", got)
	}

	m.ObserveEvent(domain.NewWorkerEvent(domain.StateRunning, uuid.New(), ""))

	if got := testutil.ToFloat64(m.TasksStarted); got != 2 {
		t.Errorf("tasks started after second task = %v, want 2", got)
	}
}

func TestMetrics_TaskCompletionOutcomes(t *testing.T) {
	m := NewMetrics()

	m.ObserveTaskCompleted("success", 0.5)
	m.ObserveTaskCompleted("success", 1.2)
	m.ObserveTaskCompleted("failure", 0.1)

	if got := testutil.ToFloat64(m.TasksCompleted.WithLabelValues("success")); got != 2 {
		t.Errorf("success completions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TasksCompleted.WithLabelValues("failure")); got != 1 {
		t.Errorf("failure completions = %v, want 1", got)
	}
}
