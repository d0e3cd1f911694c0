package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCreditScore 新建信用档案的初始分
var DefaultCreditScore = decimal.NewFromInt(80)

// UserCredit 用户信用档案（每用户一行）
type UserCredit struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	UserID          uint            `gorm:"uniqueIndex;not null" json:"user_id"`               // 用户ID
	CreditScore     decimal.Decimal `gorm:"type:decimal(5,1);not null;default:80" json:"-"`    // 信用分 [0,100]
	TotalOrders     int64           `gorm:"not null;default:0;index" json:"total_orders"`      // 累计订单数
	CompletedOrders int64           `gorm:"not null;default:0;index" json:"completed_orders"`  // 完成订单数
	PositiveReviews int64           `gorm:"not null;default:0" json:"positive_reviews"`        // 好评数
	NegativeReviews int64           `gorm:"not null;default:0" json:"negative_reviews"`        // 差评数
	CreatedAt       time.Time       `json:"created_time"`
	UpdatedAt       time.Time       `json:"updated_time"`
}

// TableName 指定表名
func (UserCredit) TableName() string {
	return "user_credits"
}
