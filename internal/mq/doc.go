// Package mq реализует транспорт Maestro поверх RabbitMQ.
//
// # Обзор
//
// Транспорт — тонкий адаптер вокруг ядра worker'а:
//   - maestro.tasks / tasks.submit — входящие submissions
//   - maestro.control / control.requests — команды begin/pause/resume/cancel
//   - maestro.events (fanout) — события worker'а всем подписчикам
//   - maestro.dlq / dlq.messages — некорректные сообщения
//
// Семантика ядра не меняется: bridge (internal/bridge) транслирует
// сообщения в вызовы Registry и Control Channel и публикует события
// Event Bus наружу.
//
// # Компоненты
//
//   - Connection — соединение с автоматическим reconnect
//   - SetupTopology — объявление обменников, очередей и привязок
//   - Publisher — публикация конвертов Message (JSON)
//   - Consumer — потребление с ручным ack, prefetch и DLQ
//
// # Конверт сообщения
//
//	{
//	    "id": "uuid",
//	    "type": "task.submit | control.request | worker.event",
//	    "payload": {...},
//	    "timestamp": "RFC3339"
//	}
//
// Payload парсится в типизированную структуру через ParsePayload:
//
//	payload, err := mq.ParsePayload[mq.TaskSubmitPayload](&delivery.Message)
//
// # Обработка ошибок
//
//   - Конверт не парсится — nack без requeue, сообщение уходит в DLQ
//   - Handler вернул ошибку — nack с requeue
//   - Разрыв соединения — consumer ждёт ReconnectNotify и продолжает
//
// # Файлы пакета
//
//   - connection.go — Connection с reconnect
//   - topology.go   — обменники, очереди, привязки
//   - publisher.go  — Publisher, типы payload'ов
//   - consumer.go   — Consumer, Delivery, ParsePayload
package mq
