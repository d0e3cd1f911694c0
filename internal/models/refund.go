package models

import (
	"time"

	"github.com/skill-exchange/internal/constants"
)

// Refund 退款记录
type Refund struct {
	ID           uint                   `gorm:"primarykey" json:"refund_id"`                      // 主键
	RefundNo     string                 `gorm:"uniqueIndex;size:40;not null" json:"refund_no"`    // 退款流水号
	PaymentID    uint                   `gorm:"index;not null" json:"payment_id"`                 // 支付ID
	RefundAmount Money                  `gorm:"type:decimal(20,2);not null" json:"refund_amount"` // 退款金额
	RefundReason string                 `gorm:"type:varchar(500);not null" json:"refund_reason"`  // 退款原因
	RefundType   int                    `gorm:"not null;default:1" json:"refund_type"`            // 1=全额 2=部分
	Status       constants.RefundStatus `gorm:"column:refund_status;index;not null;default:0" json:"refund_status"`
	ProcessedAt  *time.Time             `json:"processed_time,omitempty"` // 处理完成时间
	CreatedAt    time.Time              `gorm:"index" json:"created_time"`
	UpdatedAt    time.Time              `json:"updated_time"`
}

// TableName 指定表名
func (Refund) TableName() string {
	return "refunds"
}
