package plan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Ошибки device-слоя.
var (
	// ErrDeviceNotFound — device не найден в наборе.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrWrongProtocol — device не поддерживает требуемый протокол.
	ErrWrongProtocol = errors.New("device does not support protocol")
)

// Named — базовый протокол любого device: уникальное имя в наборе.
type Named interface {
	// Name возвращает имя device.
	Name() string
}

// Movable — device, который можно перевести в заданную позицию.
//
// Move блокируется до завершения движения и обязан прерываться
// по отмене контекста.
type Movable interface {
	Named

	// Move переводит device в позицию target.
	Move(ctx context.Context, target float64) error
}

// Readable — device, с которого можно снять текущие значения.
type Readable interface {
	Named

	// Read возвращает текущие значения device по именам полей.
	Read(ctx context.Context) (map[string]float64, error)
}

// DeviceSet — именованный набор devices, доступных планам.
// Потокобезопасен.
type DeviceSet struct {
	mu      sync.RWMutex
	devices map[string]Named
}

// NewDeviceSet создаёт пустой набор.
func NewDeviceSet() *DeviceSet {
	return &DeviceSet{
		devices: make(map[string]Named),
	}
}

// Register регистрирует device в наборе.
// Device с тем же именем перезаписывается.
func (s *DeviceSet) Register(d Named) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.Name()] = d
}

// Get возвращает device по имени.
func (s *DeviceSet) Get(name string) (Named, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.devices[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return d, nil
}

// Movable возвращает device по имени, требуя протокол Movable.
func (s *DeviceSet) Movable(name string) (Movable, error) {
	d, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	m, ok := d.(Movable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not movable", ErrWrongProtocol, name)
	}
	return m, nil
}

// Readable возвращает device по имени, требуя протокол Readable.
func (s *DeviceSet) Readable(name string) (Readable, error) {
	d, err := s.Get(name)
	if err != nil {
		return nil, err
	}
	r, ok := d.(Readable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not readable", ErrWrongProtocol, name)
	}
	return r, nil
}

// Names возвращает отсортированный список имён devices.
func (s *DeviceSet) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.devices))
	for name := range s.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество devices в наборе.
func (s *DeviceSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

// Protocols возвращает список протоколов, которые поддерживает device.
func Protocols(d Named) []string {
	protocols := []string{"named"}
	if _, ok := d.(Movable); ok {
		protocols = append(protocols, "movable")
	}
	if _, ok := d.(Readable); ok {
		protocols = append(protocols, "readable")
	}
	return protocols
}
