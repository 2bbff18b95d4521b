package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
)

// Registry — упорядоченное хранилище всех принятых tasks и FIFO-очередь
// pending tasks. Источник истины для запросов.
//
// Инварианты:
//   - id встречается в очереди не более одного раза, и только пока task
//     pending и ещё не взята в работу;
//   - порядок submission сохраняется в выдаче All();
//   - id никогда не переиспользуются.
//
// Потокобезопасен: чтения под RLock, мутации под Lock. Tracking-поля
// task меняет только Execution Loop (markStarted/complete).
type Registry struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.TrackableTask
	order []uuid.UUID
	queue []uuid.UUID

	// wake — сигнал Execution Loop'у о пополнении очереди.
	// Буфер 1: сигналы схлопываются, loop добирает очередь сам.
	wake chan struct{}
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[uuid.UUID]*domain.TrackableTask),
		wake:  make(chan struct{}, 1),
	}
}

// Submit регистрирует task: назначает свежий id, ставит в конец очереди.
// Никогда не блокируется выполнением.
func (r *Registry) Submit(task domain.Task) uuid.UUID {
	t := &domain.TrackableTask{
		ID:          uuid.New(),
		Task:        task,
		IsPending:   true,
		SubmittedAt: time.Now(),
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	r.queue = append(r.queue, t.ID)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	return t.ID
}

// Wake возвращает канал сигналов о пополнении очереди.
func (r *Registry) Wake() <-chan struct{} {
	return r.wake
}

// Get возвращает снимок task по id.
func (r *Registry) Get(id uuid.UUID) (domain.TrackableTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.TrackableTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return snapshot(t), nil
}

// All возвращает снимки всех tasks в порядке submission.
func (r *Registry) All() []domain.TrackableTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.TrackableTask, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshot(r.tasks[id]))
	}
	return out
}

// ByStatus возвращает снимки tasks с данным производным статусом.
// active — id активной task (uuid.Nil, если её нет).
func (r *Registry) ByStatus(status domain.TaskStatus, active uuid.UUID) []domain.TrackableTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.TrackableTask
	for _, id := range r.order {
		t := r.tasks[id]
		if t.Status(active) == status {
			out = append(out, snapshot(t))
		}
	}
	return out
}

// Len возвращает количество tasks в реестре.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// QueueLen возвращает длину очереди pending tasks.
func (r *Registry) QueueLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queue)
}

// Clear удаляет task со статусом Pending или Complete.
// Активную task удалить нельзя — ErrInvalidState.
func (r *Registry) Clear(id, active uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if id != uuid.Nil && id == active {
		return fmt.Errorf("%w: task %s is active", ErrInvalidState, id)
	}

	delete(r.tasks, id)
	r.order = remove(r.order, id)
	r.queue = remove(r.queue, id)
	return nil
}

// dequeueHead извлекает task из головы очереди.
// Вызывается только Execution Loop'ом.
func (r *Registry) dequeueHead() (domain.TrackableTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return domain.TrackableTask{}, ErrQueueEmpty
	}

	id := r.queue[0]
	r.queue = r.queue[1:]

	t, ok := r.tasks[id]
	if !ok {
		// очередь ссылается на несуществующую task — реестр повреждён
		panic(fmt.Sprintf("worker: queued task %s missing from registry", id))
	}
	return snapshot(t), nil
}

// take извлекает конкретную pending task из любого места очереди.
// Вызывается только Execution Loop'ом (begin с явным id).
func (r *Registry) take(id uuid.UUID) (domain.TrackableTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return domain.TrackableTask{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !contains(r.queue, id) {
		return domain.TrackableTask{}, fmt.Errorf("%w: task %s is not pending", ErrInvalidState, id)
	}

	r.queue = remove(r.queue, id)
	return snapshot(t), nil
}

// markStarted фиксирует взятие task в работу.
// Вызывается только Execution Loop'ом.
func (r *Registry) markStarted(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		panic(fmt.Sprintf("worker: started task %s missing from registry", id))
	}
	t.MarkStarted()
}

// complete переводит task в терминальное состояние.
// Вызывается только Execution Loop'ом; рассинхрон реестра фатален.
func (r *Registry) complete(id uuid.UUID, errs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		panic(fmt.Sprintf("worker: completed task %s missing from registry", id))
	}
	if t.IsComplete {
		panic(fmt.Sprintf("worker: task %s completed twice", id))
	}
	t.MarkComplete(errs)
}

// snapshot возвращает копию task, безопасную для выдачи наружу.
func snapshot(t *domain.TrackableTask) domain.TrackableTask {
	cp := *t
	if t.Errors != nil {
		cp.Errors = append([]string(nil), t.Errors...)
	}
	return cp
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
