// Package scheduler отправляет tasks в worker по расписанию.
//
// # Обзор
//
// Schedule — это шаблон task (plan + параметры) плюс правило времени:
//   - Cron-выражение: "0 9 * * *" (каждый день в 9:00)
//   - Интервал: каждые N секунд
//
// Scheduler тикает с заданным периодом, находит due schedules
// (enabled, next_due_at <= now), отправляет task через SubmitFunc и
// вычисляет следующее время. Ошибки одного schedule не блокируют
// остальные.
//
// Расписания хранятся в памяти: планировщик — вспомогательный слой,
// история submissions живёт в самих tasks.
//
// # Использование
//
//	sched := scheduler.New(scheduler.Config{
//	    Submit: w.Submit,
//	    Logger: logger,
//	})
//	sched.Add(domain.Schedule{
//	    Name:     "nightly-scan",
//	    Task:     domain.Task{Plan: "scan", Params: ...},
//	    CronExpr: "0 3 * * *",
//	    Enabled:  true,
//	})
//	sched.Start(ctx)
//	defer sched.Stop()
//
// # Файлы пакета
//
//   - scheduler.go — Scheduler, хранение и цикл тиков
//   - cron.go      — вычисление следующего времени (robfig/cron)
package scheduler
