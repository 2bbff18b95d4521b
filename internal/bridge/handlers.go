package bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Maestro/internal/domain"
	"github.com/shaiso/Maestro/internal/mq"
)

// handleTaskSubmit обрабатывает сообщение tasks.submit.
//
// Невалидный payload — финальная ошибка: сообщение подтверждается,
// проблема остаётся в логе. Requeue здесь бессмысленен — повторная
// доставка даст тот же результат.
func (b *Bridge) handleTaskSubmit(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.TaskSubmitPayload](&delivery.Message)
	if err != nil {
		b.logger.Error("failed to parse task.submit payload", "error", err)
		return nil
	}

	id, err := b.worker.Submit(domain.Task{
		Plan:   payload.Plan,
		Params: payload.Params,
	})
	if err != nil {
		b.logger.Warn("task submission rejected",
			"plan", payload.Plan,
			"error", err,
		)
		return nil
	}

	b.logger.Info("task submitted from queue",
		"task_id", id,
		"plan", payload.Plan,
	)
	return nil
}

// handleControl обрабатывает сообщение control.requests.
//
// Ошибки операций управления (ErrInvalidState и прочие) — финальные:
// worker уже ответил отказом, повтор команды ничего не изменит.
func (b *Bridge) handleControl(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ControlPayload](&delivery.Message)
	if err != nil {
		b.logger.Error("failed to parse control.request payload", "error", err)
		return nil
	}

	if err := b.applyControl(ctx, payload); err != nil {
		b.logger.Warn("control request rejected",
			"action", payload.Action,
			"task_id", payload.TaskID,
			"error", err,
		)
	}
	return nil
}

// applyControl транслирует команду в вызов Control Channel.
func (b *Bridge) applyControl(ctx context.Context, payload mq.ControlPayload) error {
	switch payload.Action {
	case mq.ControlActionBegin:
		taskID := uuid.Nil
		if payload.TaskID != nil {
			taskID = *payload.TaskID
		}
		started, err := b.worker.Begin(ctx, taskID)
		if err != nil {
			return err
		}
		b.logger.Info("task begun from queue", "task_id", started)
		return nil

	case mq.ControlActionPause:
		return b.worker.Pause(ctx, payload.Immediate)

	case mq.ControlActionResume:
		return b.worker.Resume(ctx)

	case mq.ControlActionCancel:
		cancelled, err := b.worker.CancelActive(ctx, payload.Fail, payload.Reason)
		if err != nil {
			return err
		}
		b.logger.Info("task cancelled from queue", "task_id", cancelled)
		return nil
	}

	return fmt.Errorf("unknown control action %q", payload.Action)
}
