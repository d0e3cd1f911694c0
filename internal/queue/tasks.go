package queue

import (
	"encoding/json"
	"time"

	"github.com/skill-exchange/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderTransitionAudit 订单状态流转审计任务
	TaskOrderTransitionAudit = "order:transition_audit"
	// TaskOrderTimeoutCancel 待支付订单超时取消任务
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// OrderTransitionAuditPayload 流转审计任务载荷
type OrderTransitionAuditPayload struct {
	OrderID    uint                  `json:"order_id"`
	FromStatus constants.OrderStatus `json:"from"`
	ToStatus   constants.OrderStatus `json:"to"`
	ActorID    uint                  `json:"actor_id"`
	Reason     string                `json:"reason"`
	RequestID  string                `json:"request_id"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderTransitionAuditTask 创建流转审计任务
func NewOrderTransitionAuditTask(payload OrderTransitionAuditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTransitionAudit, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
