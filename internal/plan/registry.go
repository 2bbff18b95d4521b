package plan

import (
	"fmt"
	"sort"
	"sync"
)

// Registry — реестр планов.
//
// Позволяет регистрировать и получать планы по имени. Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		plans: make(map[string]*Plan),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными планами.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(SleepPlan())
	r.Register(MovePlan())
	r.Register(ScanPlan())
	r.Register(CountPlan())

	return r
}

// Register регистрирует план в реестре.
// План с тем же именем перезаписывается.
func (r *Registry) Register(p *Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.Name] = p
}

// Get возвращает план по имени.
// Возвращает ErrPlanNotFound, если план не найден.
func (r *Registry) Get(name string) (*Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.plans[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
	}
	return p, nil
}

// Has проверяет, зарегистрирован ли план.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.plans[name]
	return exists
}

// Names возвращает отсортированный список имён планов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plans))
	for name := range r.plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All возвращает все планы в порядке имён.
func (r *Registry) All() []*Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plans := make([]*Plan, 0, len(r.plans))
	for _, p := range r.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans
}

// Count возвращает количество зарегистрированных планов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plans)
}

// Unregister удаляет план из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plans, name)
}
