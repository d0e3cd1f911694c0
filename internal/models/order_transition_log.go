package models

import (
	"time"

	"github.com/skill-exchange/internal/constants"
)

// OrderTransitionLog 订单状态流转审计日志
type OrderTransitionLog struct {
	ID         uint                  `gorm:"primarykey" json:"id"`
	OrderID    uint                  `gorm:"index;not null" json:"order_id"`
	FromStatus constants.OrderStatus `gorm:"not null" json:"from_status"`
	ToStatus   constants.OrderStatus `gorm:"not null" json:"to_status"`
	ActorID    uint                  `gorm:"index" json:"actor_id"`                  // 操作人（0 表示系统）
	Reason     string                `gorm:"type:varchar(255)" json:"reason"`        // 触发原因
	RequestID  string                `gorm:"type:varchar(64)" json:"request_id"`     // 请求ID
	OccurredAt time.Time             `gorm:"index;not null" json:"occurred_at"`      // 状态变更时间
	CreatedAt  time.Time             `json:"created_at"`
}

// TableName 指定表名
func (OrderTransitionLog) TableName() string {
	return "order_transition_logs"
}
