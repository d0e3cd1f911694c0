package admin

import (
	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest 管理端更新订单状态
type UpdateOrderStatusRequest struct {
	OrderStatus constants.OrderStatus `json:"order_status" binding:"required"`
}

// ListOrders 管理端订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	filter, ok := shared.ParseOrderListFilter(c)
	if !ok {
		return
	}
	employerID, ok := shared.ParseUintQuery(c, "employer_id")
	if !ok {
		return
	}
	providerID, ok := shared.ParseUintQuery(c, "provider_id")
	if !ok {
		return
	}
	filter.EmployerID = employerID
	filter.ProviderID = providerID

	orders, total, err := h.OrderService.ListOrdersForAdmin(c.Request.Context(), filter)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch orders failed")
		return
	}
	response.SuccessWithPage(c, service.BuildOrderViews(orders), response.BuildPagination(filter.Page, filter.PageSize, total))
}

// UpdateOrderStatus 管理端强制流转，仍受状态机约束
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	adminID, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.UpdateOrderStatus(c.Request.Context(), orderID, req.OrderStatus, adminID)
	if err != nil {
		shared.RespondServiceError(c, err, "update order status failed")
		return
	}
	shared.RequestLog(c).Infow("admin_order_status_updated",
		"admin_id", adminID,
		"order_id", orderID,
		"order_status", req.OrderStatus.String(),
	)
	response.SuccessWithMsg(c, "order status updated", service.BuildOrderView(order))
}

// DeleteOrder 软删除订单，重复删除视为成功
func (h *Handler) DeleteOrder(c *gin.Context) {
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	if err := h.OrderService.DeleteOrder(c.Request.Context(), orderID); err != nil {
		shared.RespondServiceError(c, err, "delete order failed")
		return
	}
	response.SuccessWithMsg(c, "order deleted", nil)
}

// ListTransitionLogs 订单流转审计记录
func (h *Handler) ListTransitionLogs(c *gin.Context) {
	orderID, ok := shared.ParseUintQuery(c, "order_id")
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	logs, total, err := h.OrderAuditService.List(c.Request.Context(), orderID, page, pageSize)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch transition logs failed")
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
