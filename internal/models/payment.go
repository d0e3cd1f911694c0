package models

import (
	"time"

	"github.com/skill-exchange/internal/constants"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID             uint                    `gorm:"primarykey" json:"payment_id"`                      // 主键
	PaymentNo      string                  `gorm:"uniqueIndex;size:40;not null" json:"payment_no"`    // 支付流水号
	OrderID        uint                    `gorm:"index;not null" json:"order_id"`                    // 订单ID
	PaymentMethod  string                  `gorm:"size:20;not null" json:"payment_method"`            // 支付方式（balance/alipay/wechat/bank）
	PaymentChannel string                  `gorm:"size:40" json:"payment_channel"`                    // 支付渠道
	PaymentAmount  Money                   `gorm:"type:decimal(20,2);not null" json:"payment_amount"` // 支付金额
	Status         constants.PaymentStatus `gorm:"column:payment_status;index;not null;default:0" json:"payment_status"`
	TradeNo        string                  `gorm:"size:80;index" json:"trade_no,omitempty"` // 第三方交易号
	PaidAt         *time.Time              `json:"payment_time,omitempty"`                  // 支付时间
	CreatedAt      time.Time               `gorm:"index" json:"created_time"`
	UpdatedAt      time.Time               `json:"updated_time"`
	DeletedAt      gorm.DeletedAt          `gorm:"index" json:"-"`

	Refunds []Refund `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"` // 退款记录
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}

// IsActive 是否为有效支付（未取消、未进入退款）
func (p *Payment) IsActive() bool {
	if p == nil {
		return false
	}
	return p.Status != constants.PaymentStatusCancelled && p.Status != constants.PaymentStatusRefunding
}
