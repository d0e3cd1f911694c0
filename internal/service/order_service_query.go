package service

import (
	"context"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderView 订单展示视图
type OrderView struct {
	*models.Order
	StatusName   string                  `json:"status_name"`
	StatusLabel  string                  `json:"status_label"`
	NextStatuses []constants.OrderStatus `json:"next_statuses"`
}

// BuildOrderView 组装订单视图
func BuildOrderView(order *models.Order) *OrderView {
	if order == nil {
		return nil
	}
	return &OrderView{
		Order:        order,
		StatusName:   order.Status.String(),
		StatusLabel:  order.Status.Label(),
		NextStatuses: AllowedNext(order.Status),
	}
}

// BuildOrderViews 批量组装订单视图
func BuildOrderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, *BuildOrderView(&orders[i]))
	}
	return views
}

// OrderStatusSummary 按状态汇总
type OrderStatusSummary struct {
	Status      constants.OrderStatus `json:"order_status"`
	StatusName  string                `json:"status_name"`
	StatusLabel string                `json:"status_label"`
	Count       int64                 `json:"count"`
	TotalAmount models.Money          `json:"total_amount"`
}

// OrderStats 订单统计
type OrderStats struct {
	TotalOrders int64                `json:"total_orders"`
	TotalAmount models.Money         `json:"total_amount"`
	ByStatus    []OrderStatusSummary `json:"by_status"`
}

// GetOrder 获取订单详情（含支付记录）
func (s *OrderService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	if orderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	order, err := s.orderRepo.WithContext(ctx).GetDetail(orderID)
	if err != nil {
		return nil, classifyDBError("get_order", "order", err)
	}
	if order == nil {
		return nil, notFoundErr("order", orderID)
	}
	return order, nil
}

// GetOrderForUser 当事人查看订单，非当事人视为不存在
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParty(userID) {
		return nil, notFoundErr("order", orderID)
	}
	return order, nil
}

// ListUserOrders 用户订单列表
func (s *OrderService) ListUserOrders(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, validationErr("user_id", "must be positive")
	}
	if filter.Role == "" {
		filter.Role = constants.OrderRoleAll
	}
	switch filter.Role {
	case constants.OrderRoleAll, constants.OrderRoleEmployer, constants.OrderRoleProvider:
	default:
		return nil, 0, validationErr("role", "must be all, employer or provider")
	}
	return s.listOrders(ctx, filter)
}

// ListOrdersForAdmin 管理端订单列表
func (s *OrderService) ListOrdersForAdmin(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.UserID = 0
	filter.Role = ""
	return s.listOrders(ctx, filter)
}

func (s *OrderService) listOrders(ctx context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.Status != 0 && !filter.Status.Valid() {
		return nil, 0, validationErr("order_status", "unknown status")
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	orders, total, err := s.orderRepo.WithContext(ctx).List(filter)
	if err != nil {
		return nil, 0, classifyDBError("list_orders", "order", err)
	}
	return orders, total, nil
}

// GetOrderStats 订单统计，userID 为 0 时统计全部
func (s *OrderService) GetOrderStats(ctx context.Context, userID uint, role string) (*OrderStats, error) {
	if role == "" {
		role = constants.OrderRoleAll
	}
	rows, err := s.orderRepo.WithContext(ctx).StatusSummary(repository.OrderStatsFilter{UserID: userID, Role: role})
	if err != nil {
		return nil, classifyDBError("order_stats", "order", err)
	}
	byStatus := make(map[constants.OrderStatus]repository.OrderStatusStat, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row
	}

	stats := &OrderStats{ByStatus: make([]OrderStatusSummary, 0, len(constants.AllOrderStatuses()))}
	total := decimal.Zero
	for _, status := range constants.AllOrderStatuses() {
		row := byStatus[status]
		stats.ByStatus = append(stats.ByStatus, OrderStatusSummary{
			Status:      status,
			StatusName:  status.String(),
			StatusLabel: status.Label(),
			Count:       row.Count,
			TotalAmount: models.NewMoneyFromDecimal(row.TotalAmount),
		})
		stats.TotalOrders += row.Count
		total = total.Add(row.TotalAmount)
	}
	stats.TotalAmount = models.NewMoneyFromDecimal(total)
	return stats, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
