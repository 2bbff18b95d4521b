package plan

import (
	"context"
	"fmt"
	"time"
)

// Квант ожидания встроенных планов: между квантами план проходит
// кооперативную точку и остаётся отзывчивым к pause/cancel.
const waitSlice = 50 * time.Millisecond

// SleepPlan — план "sleep": ожидание заданного числа секунд.
//
// Параметры:
//
//	{"seconds": 1.5}
func SleepPlan() *Plan {
	return &Plan{
		Name:        "sleep",
		Description: "Wait for the given number of seconds",
		Params: []ParamSpec{
			{Name: "seconds", Kind: ParamFloat, Required: true, Description: "duration to wait, seconds"},
		},
		Run: func(ctx context.Context, run *Run) error {
			seconds := run.Float("seconds")
			if seconds < 0 {
				return fmt.Errorf("%w: seconds must be >= 0, got %v", ErrInvalidParams, seconds)
			}

			remaining := time.Duration(seconds * float64(time.Second))
			for remaining > 0 {
				wait := waitSlice
				if remaining < wait {
					wait = remaining
				}
				if err := sleepCtx(ctx, wait); err != nil {
					return err
				}
				remaining -= wait

				if err := run.Checkpoint(ctx); err != nil {
					return err
				}
			}
			return run.EndStep(ctx)
		},
	}
}

// MovePlan — план "move": перевод device в заданную позицию.
//
// Параметры:
//
//	{"device": "axis_x", "position": 12.5}
func MovePlan() *Plan {
	return &Plan{
		Name:        "move",
		Description: "Move a device to an absolute position",
		Params: []ParamSpec{
			{Name: "device", Kind: ParamString, Required: true, Description: "movable device name"},
			{Name: "position", Kind: ParamFloat, Required: true, Description: "absolute target position"},
		},
		Run: func(ctx context.Context, run *Run) error {
			axis, err := run.Devices().Movable(run.String("device"))
			if err != nil {
				return err
			}
			if err := axis.Move(ctx, run.Float("position")); err != nil {
				return err
			}
			return run.EndStep(ctx)
		},
	}
}

// ScanPlan — план "scan": проход мотором по сетке позиций с чтением
// детектора в каждой точке. Точка сканирования — неделимый шаг.
//
// Параметры:
//
//	{"motor": "axis_x", "detector": "det", "start": -5, "stop": 5, "num": 11}
func ScanPlan() *Plan {
	return &Plan{
		Name:        "scan",
		Description: "Step a motor through a range, reading a detector at each point",
		Params: []ParamSpec{
			{Name: "motor", Kind: ParamString, Required: true, Description: "movable device name"},
			{Name: "detector", Kind: ParamString, Required: true, Description: "readable device name"},
			{Name: "start", Kind: ParamFloat, Required: true, Description: "first position"},
			{Name: "stop", Kind: ParamFloat, Required: true, Description: "last position"},
			{Name: "num", Kind: ParamInt, Required: true, Description: "number of points"},
		},
		Run: func(ctx context.Context, run *Run) error {
			num := run.Int("num")
			if num < 1 {
				return fmt.Errorf("%w: num must be >= 1, got %d", ErrInvalidParams, num)
			}

			motor, err := run.Devices().Movable(run.String("motor"))
			if err != nil {
				return err
			}
			detector, err := run.Devices().Readable(run.String("detector"))
			if err != nil {
				return err
			}

			start := run.Float("start")
			stop := run.Float("stop")
			step := 0.0
			if num > 1 {
				step = (stop - start) / float64(num-1)
			}

			for i := 0; i < num; i++ {
				if err := run.Checkpoint(ctx); err != nil {
					return err
				}

				target := start + step*float64(i)
				if err := motor.Move(ctx, target); err != nil {
					return err
				}
				values, err := detector.Read(ctx)
				if err != nil {
					return err
				}
				run.Logger().Info("scan point",
					"point", i,
					"position", target,
					"values", values,
				)

				if err := run.EndStep(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// CountPlan — план "count": серия чтений детектора.
// Одно чтение — неделимый шаг.
//
// Параметры:
//
//	{"detector": "det", "times": 3, "delay_sec": 0.5}
func CountPlan() *Plan {
	return &Plan{
		Name:        "count",
		Description: "Read a detector a number of times",
		Params: []ParamSpec{
			{Name: "detector", Kind: ParamString, Required: true, Description: "readable device name"},
			{Name: "times", Kind: ParamInt, Required: false, Default: 1, Description: "number of readings"},
			{Name: "delay_sec", Kind: ParamFloat, Required: false, Default: 0.0, Description: "delay between readings, seconds"},
		},
		Run: func(ctx context.Context, run *Run) error {
			times := run.Int("times")
			if times < 1 {
				return fmt.Errorf("%w: times must be >= 1, got %d", ErrInvalidParams, times)
			}
			delay := time.Duration(run.Float("delay_sec") * float64(time.Second))

			detector, err := run.Devices().Readable(run.String("detector"))
			if err != nil {
				return err
			}

			for i := 0; i < times; i++ {
				if i > 0 && delay > 0 {
					if err := sleepCtx(ctx, delay); err != nil {
						return err
					}
				}
				if err := run.Checkpoint(ctx); err != nil {
					return err
				}

				values, err := detector.Read(ctx)
				if err != nil {
					return err
				}
				run.Logger().Info("count reading",
					"reading", i,
					"values", values,
				)

				if err := run.EndStep(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// sleepCtx ждёт d или отмену контекста.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
