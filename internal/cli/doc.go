// Package cli содержит команды CLI для работы с Maestro API.
//
// Структура:
//   - client.go   — HTTP-клиент для API (собственные типы, не импортирует internal/api)
//   - output.go   — форматирование вывода (таблицы, key-value, JSON)
//   - task.go     — команды task (list, submit, show, clear)
//   - worker.go   — команды worker (state, begin, pause, resume, cancel)
//   - plan.go     — команды plan и device (introspection)
//   - schedule.go — команды schedule (list, create, show, delete, enable, disable)
//
// Команды строятся на cobra: каждая группа — функция New*Cmd, принимающая
// фабрики клиента и вывода, чтобы флаги root-команды (--api-url, --json)
// применялись в момент выполнения, а не при конструировании.
package cli
