package models

import (
	"time"

	"github.com/skill-exchange/internal/constants"

	"gorm.io/gorm"
)

// Order 技能交易订单表
type Order struct {
	ID          uint                  `gorm:"primarykey" json:"order_id"`                      // 主键
	OrderNo     string                `gorm:"uniqueIndex;size:40;not null" json:"order_no"`    // 订单编号
	EmployerID  uint                  `gorm:"index;not null" json:"employer_id"`               // 雇主（下单方）
	ProviderID  uint                  `gorm:"index;not null" json:"provider_id"`               // 服务提供方
	SkillID     uint                  `gorm:"index;not null" json:"skill_id"`                  // 技能ID
	TaskID      *uint                 `gorm:"index" json:"task_id,omitempty"`                  // 关联任务ID
	OrderAmount Money                 `gorm:"type:decimal(20,2);not null" json:"order_amount"` // 订单金额（创建后不可变）
	ServiceTime time.Time             `gorm:"not null" json:"service_time"`                    // 约定服务时间
	Remark      string                `gorm:"type:varchar(500)" json:"remark"`                 // 备注
	Status      constants.OrderStatus `gorm:"column:order_status;index;not null" json:"order_status"`
	PaidAt      *time.Time            `json:"paid_at,omitempty"`      // 支付时间
	StartedAt   *time.Time            `json:"started_at,omitempty"`   // 开始服务时间
	CompletedAt *time.Time            `json:"completed_at,omitempty"` // 完成时间
	ReviewedAt  *time.Time            `json:"reviewed_at,omitempty"`  // 评价时间
	CanceledAt  *time.Time            `json:"canceled_at,omitempty"`  // 取消时间
	CreatedAt   time.Time             `gorm:"index" json:"created_time"`
	UpdatedAt   time.Time             `json:"updated_time"`
	DeletedAt   gorm.DeletedAt        `gorm:"index" json:"-"` // 软删除

	Payments []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"` // 支付记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsParty 判断用户是否为订单当事人
func (o *Order) IsParty(userID uint) bool {
	if o == nil || userID == 0 {
		return false
	}
	return o.EmployerID == userID || o.ProviderID == userID
}
