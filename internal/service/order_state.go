package service

import (
	"github.com/skill-exchange/internal/constants"
)

// orderTransitions 订单状态流转表，未列出的状态为终态
var orderTransitions = map[constants.OrderStatus][]constants.OrderStatus{
	constants.OrderStatusPending:    {constants.OrderStatusPaid, constants.OrderStatusCancelled},
	constants.OrderStatusPaid:       {constants.OrderStatusInProgress, constants.OrderStatusCancelled},
	constants.OrderStatusInProgress: {constants.OrderStatusCompleted, constants.OrderStatusCancelled},
	constants.OrderStatusCompleted:  {constants.OrderStatusReviewed},
}

// AllowedNext 返回当前状态可流转的下一状态
func AllowedNext(current constants.OrderStatus) []constants.OrderStatus {
	next := orderTransitions[current]
	out := make([]constants.OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition 判断流转是否合法
func CanTransition(current, target constants.OrderStatus) bool {
	for _, s := range orderTransitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态
func IsTerminal(status constants.OrderStatus) bool {
	return status.Valid() && len(orderTransitions[status]) == 0
}

func checkTransition(current, target constants.OrderStatus) error {
	if CanTransition(current, target) {
		return nil
	}
	return &InvalidTransitionError{Current: current, Target: target, Allowed: AllowedNext(current)}
}

// statusTimestampColumn 进入目标状态时需要写入的时间列
func statusTimestampColumn(target constants.OrderStatus) string {
	switch target {
	case constants.OrderStatusPaid:
		return "paid_at"
	case constants.OrderStatusInProgress:
		return "started_at"
	case constants.OrderStatusCompleted:
		return "completed_at"
	case constants.OrderStatusReviewed:
		return "reviewed_at"
	case constants.OrderStatusCancelled:
		return "canceled_at"
	}
	return ""
}
