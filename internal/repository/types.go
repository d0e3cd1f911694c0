package repository

import (
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"github.com/shopspring/decimal"
)

// OrderListFilter 订单列表筛选
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint   // 当事人（雇主或服务方）
	Role        string // all/employer/provider，配合 UserID 使用
	EmployerID  uint
	ProviderID  uint
	Status      constants.OrderStatus
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderStatsFilter 订单统计筛选
type OrderStatsFilter struct {
	UserID uint
	Role   string
}

// OrderStatusStat 按状态汇总的订单统计
type OrderStatusStat struct {
	Status      constants.OrderStatus `json:"order_status"`
	Count       int64                 `json:"count"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
}

// PaymentListFilter 支付列表筛选
type PaymentListFilter struct {
	Page          int
	PageSize      int
	UserID        uint // 仅返回该用户作为雇主的订单支付
	Status        *constants.PaymentStatus
	PaymentMethod string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PaymentGroupStat 支付分组统计（按状态或方式）
type PaymentGroupStat struct {
	Key         string          `json:"key"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PaymentAggregate 区间内支付汇总
type PaymentAggregate struct {
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AvgAmount   decimal.Decimal `json:"avg_amount"`
	MinAmount   decimal.Decimal `json:"min_amount"`
	MaxAmount   decimal.Decimal `json:"max_amount"`
	ActiveDays  int64           `json:"active_days"`
}

// PaymentDailyStat 每日支付统计
type PaymentDailyStat struct {
	Date          string          `json:"date"`
	PaymentCount  int64           `json:"payment_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	SuccessCount  int64           `json:"success_count"`
	SuccessAmount decimal.Decimal `json:"success_amount"`
	FailedCount   int64           `json:"failed_count"`
	FailedAmount  decimal.Decimal `json:"failed_amount"`
}

// CreditRankingFilter 信用排行筛选（调用方负责归一化）
type CreditRankingFilter struct {
	MinOrders int64
	MinScore  decimal.Decimal
	Page      int
	PageSize  int
}

// CreditRankRow 排行查询结果行
type CreditRankRow struct {
	models.UserCredit `gorm:"embedded"`
	Username          string
}

// CreditStatsRow 信用统计聚合结果
type CreditStatsRow struct {
	TotalUsers  int64
	ActiveUsers int64
	AvgScore    decimal.NullDecimal
	Excellent   int64
	Good        int64
	Average     int64
	Poor        int64
	Bad         int64
}

// CommentListFilter 评论列表筛选
type CommentListFilter struct {
	Page     int
	PageSize int
	OrderID  uint
	UserID   uint
}

// roundAmount 聚合结果统一保留 2 位小数
func roundAmount(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}
