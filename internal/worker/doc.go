// Package worker реализует ядро Maestro: последовательное выполнение tasks.
//
// # Обзор
//
// Worker — долгоживущий компонент, который принимает именованные
// параметризованные tasks (план + параметры), выполняет их строго
// по одной на выделенной goroutine и публикует события жизненного
// цикла подписчикам. Worker отвечает за:
//
//   - Приём tasks (submission никогда не блокируется выполнением)
//   - FIFO-очередь pending tasks и реестр всех когда-либо принятых tasks
//   - Авторитетную машину состояний (IDLE, RUNNING, PAUSING, PAUSED, STOPPING)
//   - Потокобезопасную поверхность управления: Begin, Pause, Resume, CancelActive
//   - Fan-out событий переходов через Bus
//
// # Ключевые компоненты
//
// ## Worker
//
// Основная структура, управляющая жизненным циклом.
// Создаётся через New(cfg Config) и запускается методом Start(ctx).
//
//	w := worker.New(worker.Config{
//	    Executor: executor,
//	    Logger:   logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
//	id, _ := w.Submit(domain.Task{Plan: "sleep", Params: map[string]any{"seconds": 1.0}})
//
// Worker — явный экземпляр без скрытого глобального состояния:
// в тестах можно держать несколько независимых экземпляров.
//
// ## Executor
//
// Интерфейс внешнего коллаборатора, который выполняет конкретную task:
//
//	type Executor interface {
//	    Execute(ctx context.Context, task *domain.TrackableTask, ctl *Control) Outcome
//	}
//
// Executor обязан вернуть ровно один из исходов: Success, Failure или
// Cancelled — и вызывать ctl.Checkpoint / ctl.EndStep между неделимыми
// шагами. Только в этих кооперативных точках worker приостанавливает
// или останавливает выполнение; принудительного прерывания нет.
//
// ## Control Channel
//
// Begin/Pause/Resume/CancelActive можно звать из любой goroutine.
// Команды сериализуются через mailbox (канал + слот подтверждения
// на команду) и блокируют вызывающего до подтверждения или отказа
// Execution Loop'ом. Недопустимое предусловие — всегда именованная
// ошибка (ErrInvalidState, ErrNoActiveTask, ErrTaskNotFound), никогда
// не молчаливый no-op.
//
// # Порядок событий
//
// Каждый переход машины состояний публикует ровно одно WorkerEvent,
// в порядке переходов на goroutine Execution Loop'а. Подписчик,
// упавший с паникой, изолируется и не мешает остальным.
//
// # Ошибки
//
// Падение executor'а — не падение worker'а: ошибка записывается в
// TrackableTask, worker возвращается в IDLE и принимает новые tasks.
// Нарушение внутренних инвариантов реестра — единственный фатальный
// класс: worker паникует вместо работы с повреждённым состоянием.
package worker
