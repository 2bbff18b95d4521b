package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Maestro/internal/domain"
)

// Metrics — Prometheus-метрики worker'а.
//
// Заполняются подписчиком Event Bus (ObserveEvent) и точечными
// вызовами из компонентов. Один экземпляр на процесс.
type Metrics struct {
	registry *prometheus.Registry

	// TasksStarted — количество tasks, взятых в выполнение.
	TasksStarted prometheus.Counter

	// TasksCompleted — количество завершённых tasks по исходу
	// (success, failure, cancelled).
	TasksCompleted *prometheus.CounterVec

	// TaskDuration — длительность выполнения tasks.
	TaskDuration prometheus.Histogram

	// WorkerState — текущее состояние worker'а (enum gauge: метка
	// state, ровно одна серия равна 1).
	WorkerState *prometheus.GaugeVec

	// EventsPublished — количество опубликованных событий worker'а.
	EventsPublished prometheus.Counter

	// внутреннее: предыдущее состояние для enum gauge
	lastState domain.WorkerState
}

// NewMetrics создаёт и регистрирует метрики в собственном registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		TasksStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "tasks_started_total",
			Help:      "Number of tasks picked up by the execution loop.",
		}),

		TasksCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "tasks_completed_total",
			Help:      "Number of finished tasks by outcome.",
		}, []string{"outcome"}),

		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "maestro",
			Name:      "task_duration_seconds",
			Help:      "Wall-clock duration of task execution.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),

		WorkerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "maestro",
			Name:      "worker_state",
			Help:      "Current worker state (one series per state, active one is 1).",
		}, []string{"state"}),

		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "maestro",
			Name:      "events_published_total",
			Help:      "Number of worker events delivered to subscribers.",
		}),

		lastState: domain.StateIdle,
	}

	// инициализируем enum gauge: все состояния видимы сразу
	for _, st := range []domain.WorkerState{
		domain.StateIdle,
		domain.StateRunning,
		domain.StatePausing,
		domain.StatePaused,
		domain.StateStopping,
	} {
		m.WorkerState.WithLabelValues(st.String()).Set(0)
	}
	m.WorkerState.WithLabelValues(domain.StateIdle.String()).Set(1)

	return m
}

// ObserveEvent — подписчик Event Bus: двигает enum gauge состояния
// и счётчик событий. Вызывается на goroutine Execution Loop'а,
// операции Prometheus дёшевы и неблокирующи.
func (m *Metrics) ObserveEvent(ev domain.WorkerEvent) {
	m.EventsPublished.Inc()

	// RUNNING из IDLE — новый запуск; из PAUSED — resume, не считаем
	if ev.State == domain.StateRunning && m.lastState == domain.StateIdle {
		m.TasksStarted.Inc()
	}

	if ev.State != m.lastState {
		m.WorkerState.WithLabelValues(m.lastState.String()).Set(0)
		m.WorkerState.WithLabelValues(ev.State.String()).Set(1)
		m.lastState = ev.State
	}
}

// ObserveTaskCompleted фиксирует завершение task.
func (m *Metrics) ObserveTaskCompleted(outcome string, seconds float64) {
	m.TasksCompleted.WithLabelValues(outcome).Inc()
	m.TaskDuration.Observe(seconds)
}

// Handler возвращает HTTP-обработчик /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
