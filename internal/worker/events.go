package worker

import (
	"log/slog"
	"sync"

	"github.com/shaiso/Maestro/internal/domain"
)

// EventFunc — подписчик событий worker'а.
type EventFunc func(domain.WorkerEvent)

// Subscription — идентификатор подписки для Unsubscribe.
type Subscription struct {
	id int
}

// Bus — fan-out публикация WorkerEvent подписчикам.
//
// Publish зовёт только Execution Loop, поэтому события доставляются
// строго в порядке переходов, синхронно, в порядке подписки.
// Паника подписчика изолируется: логируется и не мешает ни остальным
// подписчикам, ни Execution Loop'у.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	subs   []busSub
}

type busSub struct {
	id int
	fn EventFunc
}

// NewBus создаёт пустую шину событий.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe регистрирует подписчика. Возвращает handle для Unsubscribe.
func (b *Bus) Subscribe(fn EventFunc) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, busSub{id: b.nextID, fn: fn})
	return &Subscription{id: b.nextID}
}

// Unsubscribe снимает подписку. Неизвестная подписка игнорируется.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish доставляет событие всем текущим подписчикам в порядке подписки.
func (b *Bus) Publish(ev domain.WorkerEvent) {
	b.mu.RLock()
	subs := append([]busSub(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

// deliver вызывает одного подписчика, изолируя его панику.
func (b *Bus) deliver(s busSub, ev domain.WorkerEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"subscription", s.id,
				"state", ev.State,
				"panic", r,
			)
		}
	}()
	s.fn(ev)
}

// Count возвращает количество подписчиков.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
