// Package bridge соединяет worker с RabbitMQ.
//
// Структура:
//   - bridge.go   — lifecycle: consumers, подписка на Event Bus, пересылка
//   - handlers.go — обработчики tasks.submit и control.requests
//
// Политика ошибок: семантически некорректное сообщение (неизвестный план,
// операция в недопустимом состоянии worker'а) — финально: логируется и
// подтверждается, без requeue. В DLQ уходят только сообщения с нечитаемым
// конвертом — этим занимается mq.Consumer.
package bridge
