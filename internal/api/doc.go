// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (worker, реестры, scheduler, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и маппинг ошибок ядра
//   - dto.go              — Data Transfer Objects (request/response)
//   - task_handler.go     — обработчики для /tasks
//   - worker_handler.go   — обработчики для /worker (begin/pause/resume/cancel)
//   - plan_handler.go     — обработчики для /plans и /devices
//   - schedule_handler.go — обработчики для /schedules
//
// API предоставляет REST endpoints для submission tasks, управления
// worker'ом и introspection планов и devices.
package api
