package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/provider"
	"github.com/skill-exchange/internal/queue"
	"github.com/skill-exchange/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTransitionAudit, c.handleOrderTransitionAudit)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handleOrderTransitionAudit(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_transition_audit_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTransitionAuditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_transition_audit_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_transition_audit_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderAuditService == nil {
		logger.Warnw("worker_transition_audit_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if payload.RequestID != "" {
		ctx = logger.ContextWithRequestID(ctx, payload.RequestID)
	}
	if _, err := c.OrderAuditService.Record(ctx, payload); err != nil {
		if errors.Is(err, service.ErrValidation) {
			logger.Ctx(ctx).Debugw("worker_transition_audit_skip_invalid", "order_id", payload.OrderID, "error", err)
			return nil
		}
		logger.Ctx(ctx).Warnw("worker_transition_audit_record_failed",
			"order_id", payload.OrderID,
			"from", payload.FromStatus.String(),
			"to", payload.ToStatus.String(),
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if _, err := c.OrderService.ExpirePendingOrder(ctx, payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransition):
			logger.Debugw("worker_order_timeout_cancel_skip_status", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrConflict):
			logger.Warnw("worker_order_timeout_cancel_conflict", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	logger.Infow("worker_order_timeout_cancelled", "order_id", payload.OrderID)
	return nil
}
