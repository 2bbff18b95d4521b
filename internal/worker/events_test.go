package worker

import (
	"log/slog"
	"testing"

	"github.com/shaiso/Maestro/internal/domain"
)

// --- Bus Tests ---

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(slog.Default())

	var order []string
	bus.Subscribe(func(domain.WorkerEvent) { order = append(order, "first") })
	bus.Subscribe(func(domain.WorkerEvent) { order = append(order, "second") })
	bus.Subscribe(func(domain.WorkerEvent) { order = append(order, "third") })

	bus.Publish(domain.WorkerEvent{State: domain.StateIdle})

	if len(order) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(order))
	}
	if order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("wrong delivery order: %v", order)
	}
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	bus := NewBus(slog.Default())

	delivered := false
	bus.Subscribe(func(domain.WorkerEvent) { panic("subscriber exploded") })
	bus.Subscribe(func(domain.WorkerEvent) { delivered = true })

	// паника первого подписчика не должна дойти сюда
	bus.Publish(domain.WorkerEvent{State: domain.StateRunning})

	if !delivered {
		t.Error("second subscriber should still receive the event")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(slog.Default())

	count := 0
	sub := bus.Subscribe(func(domain.WorkerEvent) { count++ })

	bus.Publish(domain.WorkerEvent{State: domain.StateIdle})
	bus.Unsubscribe(sub)
	bus.Publish(domain.WorkerEvent{State: domain.StateIdle})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if bus.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.Count())
	}
}

func TestBus_UnsubscribeUnknownIsNoop(t *testing.T) {
	bus := NewBus(slog.Default())
	bus.Unsubscribe(nil)
	bus.Unsubscribe(&Subscription{id: 42})
}
