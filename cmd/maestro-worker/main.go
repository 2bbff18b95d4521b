// Maestro Worker — процесс выполнения tasks.
//
// Внутри одного процесса:
//   - Worker с выделенным Execution Loop'ом
//   - Встроенные планы и симуляционные devices
//   - HTTP API (tasks, управление worker'ом, introspection, schedules)
//   - Scheduler для периодических tasks
//   - Опционально: AMQP-мост (AMQP_URL) и audit-журнал в PostgreSQL (DB_URL)
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Maestro/internal/api"
	"github.com/shaiso/Maestro/internal/bridge"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/journal"
	"github.com/shaiso/Maestro/internal/mq"
	"github.com/shaiso/Maestro/internal/plan"
	"github.com/shaiso/Maestro/internal/scheduler"
	"github.com/shaiso/Maestro/internal/telemetry"
	"github.com/shaiso/Maestro/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting maestro-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics()

	// Devices: симуляционная линия — ось и детектор с пиком на ней
	devices := plan.NewDeviceSet()
	axis := plan.NewSimAxis("axis_x")
	devices.Register(axis)
	devices.Register(plan.NewSimDetectorOnAxis("det", axis))

	plans := plan.DefaultRegistry()

	// Worker
	w := worker.New(worker.Config{
		Executor:    plan.NewExecutor(plans, devices, logger),
		ManualStart: os.Getenv("MANUAL_START") == "1",
		Logger:      logger,
	})

	// Метрики: enum gauge состояния двигается из Event Bus,
	// завершения tasks фиксируются на переходе в IDLE
	w.Subscribe(metrics.ObserveEvent)
	w.Subscribe(func(ev domain.WorkerEvent) {
		if ev.State != domain.StateIdle || ev.TaskID == nil {
			return
		}
		task, err := w.GetTask(*ev.TaskID)
		if err != nil || !task.IsComplete {
			return
		}
		outcome := "success"
		if len(task.Errors) > 0 {
			outcome = "failure"
		}
		metrics.ObserveTaskCompleted(outcome, task.Duration().Seconds())
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	defer w.Stop()

	// Scheduler
	sched := scheduler.New(scheduler.Config{
		Submit: w.Submit,
		Logger: telemetry.WithComponent(logger, "scheduler"),
	})
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// AMQP-мост: submission и управление через очереди, события — в fanout.
	// Без AMQP_URL процесс работает в HTTP-only режиме.
	if mqURL := os.Getenv("AMQP_URL"); mqURL != "" {
		conn, err := mq.NewConnection(mqURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running without bridge", "error", err)
		} else {
			defer conn.Close()

			if err := mq.SetupTopology(ctx, conn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}

			br := bridge.New(bridge.Config{
				Worker: w,
				Conn:   conn,
				Logger: telemetry.WithComponent(logger, "bridge"),
			})
			if err := br.Start(ctx); err != nil {
				logger.Error("failed to start bridge", "error", err)
				os.Exit(1)
			}
			defer br.Stop()
			logger.Info("amqp bridge started")
		}
	}

	// Audit-журнал: опционален, worker от него не зависит
	if dsn := os.Getenv("DB_URL"); dsn != "" {
		pool, err := journal.NewPool(ctx, dsn)
		if err != nil {
			logger.Warn("database not available, running without journal", "error", err)
		} else {
			defer pool.Close()

			jr := journal.New(journal.Config{
				Pool:   pool,
				Worker: w,
				Logger: telemetry.WithComponent(logger, "journal"),
			})
			if err := jr.Start(ctx); err != nil {
				logger.Error("failed to start journal", "error", err)
				os.Exit(1)
			}
			defer jr.Stop()
			logger.Info("journal started")
		}
	}

	// HTTP API
	handler := api.NewHandler(api.Config{
		Worker:    w,
		Plans:     plans,
		Devices:   devices,
		Scheduler: sched,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("maestro-worker stopped")
}
