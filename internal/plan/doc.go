// Package plan содержит планы, devices и Executor, выполняющий tasks.
//
// # Обзор
//
// План — именованная единица работы с типизированной схемой параметров:
//   - Получает валидированные параметры и набор devices
//   - Выполняет инструкции (движение, чтение, ожидание)
//   - Проходит кооперативные точки worker'а между шагами
//
// # Devices
//
// Devices описываются протоколами:
//
//	type Movable interface {
//	    Named
//	    Move(ctx context.Context, target float64) error
//	}
//
//	type Readable interface {
//	    Named
//	    Read(ctx context.Context) (map[string]float64, error)
//	}
//
// Симулированные реализации (SimAxis, SimDetector) используются в тестах
// и демонстрационном наборе worker-бинаря.
//
// # Кооперативные точки
//
// Тело плана обязано звать:
//   - run.Checkpoint(ctx) — между инструкциями; здесь исполняются
//     немедленные паузы и остановки
//   - run.EndStep(ctx) — на границе неделимого шага (точка scan,
//     одно чтение count); дополнительно исполняет отложенную паузу
//
// Ошибка от кооперативной точки означает остановку: план прекращает
// работу и возвращает её как есть.
//
// # Встроенные планы
//
//	sleep  {"seconds": 1.5}
//	move   {"device": "axis_x", "position": 12.5}
//	scan   {"motor": "axis_x", "detector": "det", "start": -5, "stop": 5, "num": 11}
//	count  {"detector": "det", "times": 3, "delay_sec": 0.5}
//
// # Executor
//
// Executor реализует worker.Executor: разрешает план по имени,
// валидирует параметры по схеме и отображает результат в ровно один
// из исходов Success / Failure / Cancelled.
//
//	executor := plan.NewExecutor(plan.DefaultRegistry(), devices, logger)
//	w := worker.New(worker.Config{Executor: executor})
//
// # Файлы пакета
//
//   - plan.go     — Plan, Run, RunFunc, ошибки
//   - params.go   — ParamSpec, валидация параметров
//   - registry.go — Registry планов
//   - device.go   — протоколы devices, DeviceSet
//   - sim.go      — SimAxis, SimDetector
//   - builtin.go  — встроенные планы
//   - executor.go — Executor (worker.Executor)
package plan
