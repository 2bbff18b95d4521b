package api

import (
	"log/slog"

	"github.com/shaiso/Maestro/internal/plan"
	"github.com/shaiso/Maestro/internal/scheduler"
	"github.com/shaiso/Maestro/internal/worker"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	worker    *worker.Worker
	plans     *plan.Registry
	devices   *plan.DeviceSet
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Worker — ядро. Обязателен.
	Worker *worker.Worker

	// Plans — реестр планов для introspection.
	Plans *plan.Registry

	// Devices — набор devices для introspection.
	Devices *plan.DeviceSet

	// Scheduler — опционален; без него маршруты schedules не
	// регистрируются.
	Scheduler *scheduler.Scheduler

	// Logger
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plans := cfg.Plans
	if plans == nil {
		plans = plan.NewRegistry()
	}

	devices := cfg.Devices
	if devices == nil {
		devices = plan.NewDeviceSet()
	}

	return &Handler{
		worker:    cfg.Worker,
		plans:     plans,
		devices:   devices,
		scheduler: cfg.Scheduler,
		logger:    logger,
	}
}
