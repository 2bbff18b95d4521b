// Package journal содержит audit-журнал в PostgreSQL.
//
// Journal подписывается на события worker'а и асинхронно сохраняет:
//   - worker_transitions — каждый переход состояния worker'а
//   - task_history       — терминальные снимки tasks (план, параметры,
//     ошибки, времена)
//
// Журнал — чистый наблюдатель: он не участвует в выполнении tasks,
// его недоступность не влияет на worker. Схема создаётся автоматически
// при старте (EnsureSchema).
package journal
