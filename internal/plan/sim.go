package plan

import (
	"context"
	"math"
	"sync"
	"time"
)

// Скорость и шаг симуляции по умолчанию.
const (
	defaultSimVelocity     = 100.0 // единиц в секунду
	defaultSimStepInterval = 10 * time.Millisecond
)

// SimAxis — симулированная ось (Movable + Readable).
//
// Движется к цели с постоянной скоростью дискретными шагами,
// прерывается по отмене контекста. Для тестов и демонстрационного
// набора devices.
type SimAxis struct {
	name         string
	velocity     float64
	stepInterval time.Duration

	mu       sync.Mutex
	position float64
}

// NewSimAxis создаёт ось с нулевой позицией.
func NewSimAxis(name string) *SimAxis {
	return &SimAxis{
		name:         name,
		velocity:     defaultSimVelocity,
		stepInterval: defaultSimStepInterval,
	}
}

// NewInstantSimAxis создаёт ось, движущуюся мгновенно.
// Удобна в тестах, где длительность движения не важна.
func NewInstantSimAxis(name string) *SimAxis {
	a := NewSimAxis(name)
	a.velocity = math.Inf(1)
	return a
}

// Name возвращает имя оси.
func (a *SimAxis) Name() string {
	return a.name
}

// Position возвращает текущую позицию оси.
func (a *SimAxis) Position() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position
}

// Move двигает ось к target с постоянной скоростью.
// Прерывание по контексту оставляет ось в промежуточной позиции.
func (a *SimAxis) Move(ctx context.Context, target float64) error {
	for {
		a.mu.Lock()
		current := a.position
		remaining := target - current

		stepSize := a.velocity * a.stepInterval.Seconds()
		if math.Abs(remaining) <= stepSize || math.IsInf(a.velocity, 1) {
			a.position = target
			a.mu.Unlock()
			return nil
		}
		a.position = current + math.Copysign(stepSize, remaining)
		a.mu.Unlock()

		timer := time.NewTimer(a.stepInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Read возвращает текущую позицию в поле "position".
func (a *SimAxis) Read(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return map[string]float64{"position": a.Position()}, nil
}

// SimDetector — симулированный детектор (Readable).
//
// Возвращает детерминированный сигнал: гауссов пик от позиции
// привязанной оси, либо монотонный счётчик без привязки.
type SimDetector struct {
	name string
	axis *SimAxis // источник сигнала; nil — счётчик

	mu    sync.Mutex
	reads int
}

// NewSimDetector создаёт детектор-счётчик.
func NewSimDetector(name string) *SimDetector {
	return &SimDetector{name: name}
}

// NewSimDetectorOnAxis создаёт детектор с гауссовым пиком в нуле оси.
func NewSimDetectorOnAxis(name string, axis *SimAxis) *SimDetector {
	return &SimDetector{name: name, axis: axis}
}

// Name возвращает имя детектора.
func (d *SimDetector) Name() string {
	return d.name
}

// Reads возвращает число выполненных чтений.
func (d *SimDetector) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// Read возвращает сигнал в поле "counts".
func (d *SimDetector) Read(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.reads++
	reads := d.reads
	d.mu.Unlock()

	counts := float64(reads)
	if d.axis != nil {
		x := d.axis.Position()
		counts = 1000.0 * math.Exp(-x*x/2.0)
	}
	return map[string]float64{"counts": counts}, nil
}
