package constants

import "fmt"

// OrderStatus 订单状态
type OrderStatus int

// 订单状态常量
const (
	OrderStatusPending    OrderStatus = 1
	OrderStatusPaid       OrderStatus = 2
	OrderStatusInProgress OrderStatus = 3
	OrderStatusCompleted  OrderStatus = 4
	OrderStatusReviewed   OrderStatus = 5
	OrderStatusCancelled  OrderStatus = 6
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusPending:    "pending",
	OrderStatusPaid:       "paid",
	OrderStatusInProgress: "in_progress",
	OrderStatusCompleted:  "completed",
	OrderStatusReviewed:   "reviewed",
	OrderStatusCancelled:  "cancelled",
}

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "待支付",
	OrderStatusPaid:       "已支付",
	OrderStatusInProgress: "服务中",
	OrderStatusCompleted:  "已完成",
	OrderStatusReviewed:   "已评价",
	OrderStatusCancelled:  "已取消",
}

// Valid 是否为合法订单状态
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// String 返回状态英文名
func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("order_status(%d)", int(s))
}

// Label 返回状态中文名
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return "未知状态"
}

// AllOrderStatuses 全部订单状态（按生命周期顺序）
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusInProgress,
		OrderStatusCompleted,
		OrderStatusReviewed,
		OrderStatusCancelled,
	}
}

// PaymentStatus 支付状态
type PaymentStatus int

// 支付状态常量
const (
	PaymentStatusPending   PaymentStatus = 0
	PaymentStatusSuccess   PaymentStatus = 1
	PaymentStatusCancelled PaymentStatus = 2
	PaymentStatusRefunding PaymentStatus = 3
	PaymentStatusFailed    PaymentStatus = 4
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentStatusPending:   "待支付",
	PaymentStatusSuccess:   "支付成功",
	PaymentStatusCancelled: "支付取消",
	PaymentStatusRefunding: "已退款",
	PaymentStatusFailed:    "支付失败",
}

// Valid 是否为合法支付状态
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusLabels[s]
	return ok
}

// Label 返回支付状态中文名
func (s PaymentStatus) Label() string {
	if label, ok := paymentStatusLabels[s]; ok {
		return label
	}
	return "未知状态"
}

// RefundStatus 退款状态
type RefundStatus int

// 退款状态常量
const (
	RefundStatusProcessing RefundStatus = 0
	RefundStatusSuccess    RefundStatus = 1
	RefundStatusFailed     RefundStatus = 2
	RefundStatusCancelled  RefundStatus = 3
)

var refundStatusLabels = map[RefundStatus]string{
	RefundStatusProcessing: "处理中",
	RefundStatusSuccess:    "退款成功",
	RefundStatusFailed:     "退款失败",
	RefundStatusCancelled:  "退款取消",
}

// Label 返回退款状态中文名
func (s RefundStatus) Label() string {
	if label, ok := refundStatusLabels[s]; ok {
		return label
	}
	return "未知状态"
}

// 退款类型常量
const (
	RefundTypeFull    = 1
	RefundTypePartial = 2
)

// 支付方式常量
const (
	PaymentMethodBalance = "balance"
	PaymentMethodAlipay  = "alipay"
	PaymentMethodWechat  = "wechat"
	PaymentMethodBank    = "bank"
)

// 支付回调交易状态
const (
	TradeStatusSuccess = "TRADE_SUCCESS"
	TradeStatusClosed  = "TRADE_CLOSED"
	TradeStatusFailed  = "TRADE_FAILED"
)

// 用户角色常量
const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 订单列表角色筛选
const (
	OrderRoleAll      = "all"
	OrderRoleEmployer = "employer"
	OrderRoleProvider = "provider"
)
