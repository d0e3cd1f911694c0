package public

import (
	"strings"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest 创建订单请求，下单人即雇主
type CreateOrderRequest struct {
	ProviderID    uint            `json:"provider_id" binding:"required"`
	SkillID       uint            `json:"skill_id" binding:"required"`
	TaskID        *uint           `json:"task_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	ServiceTime   time.Time       `json:"service_time" binding:"required,future"`
	Remark        string          `json:"remark" binding:"max=500"`
	PaymentMethod string          `json:"payment_method" binding:"omitempty,oneof=balance alipay wechat bank"`
}

// UpdateOrderStatusRequest 更新订单状态请求
type UpdateOrderStatusRequest struct {
	OrderStatus constants.OrderStatus `json:"order_status" binding:"required"`
}

// SubmitReviewRequest 订单评价请求
type SubmitReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Content string `json:"content" binding:"max=2000"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	order, err := h.OrderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		EmployerID:    uid,
		ProviderID:    req.ProviderID,
		SkillID:       req.SkillID,
		TaskID:        req.TaskID,
		Amount:        req.OrderAmount,
		ServiceTime:   req.ServiceTime,
		Remark:        req.Remark,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "create order failed")
		return
	}
	response.SuccessWithMsg(c, "order created", service.BuildOrderView(order))
}

// ListOrders 当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	h.listOrdersOf(c, uid)
}

// ListUserOrders 指定用户订单列表，仅本人或管理员可查
func (h *Handler) ListUserOrders(c *gin.Context) {
	targetID, ok := h.resolveSelfOrAdmin(c, "userId")
	if !ok {
		return
	}
	h.listOrdersOf(c, targetID)
}

func (h *Handler) listOrdersOf(c *gin.Context, userID uint) {
	filter, ok := shared.ParseOrderListFilter(c)
	if !ok {
		return
	}
	filter.UserID = userID
	filter.Role = strings.TrimSpace(c.DefaultQuery("role", constants.OrderRoleAll))

	orders, total, err := h.OrderService.ListUserOrders(c.Request.Context(), filter)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch orders failed")
		return
	}
	response.SuccessWithPage(c, service.BuildOrderViews(orders), response.BuildPagination(filter.Page, filter.PageSize, total))
}

// GetOrderStatsSummary 当前用户订单统计
func (h *Handler) GetOrderStatsSummary(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	h.respondOrderStats(c, uid)
}

// GetUserOrderStats 指定用户订单统计
func (h *Handler) GetUserOrderStats(c *gin.Context) {
	targetID, ok := h.resolveSelfOrAdmin(c, "userId")
	if !ok {
		return
	}
	h.respondOrderStats(c, targetID)
}

func (h *Handler) respondOrderStats(c *gin.Context, userID uint) {
	role := strings.TrimSpace(c.DefaultQuery("role", constants.OrderRoleAll))
	stats, err := h.OrderService.GetOrderStats(c.Request.Context(), userID, role)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch order stats failed")
		return
	}
	response.Success(c, stats)
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	order, ok := h.loadOrderAs(c, "")
	if !ok {
		return
	}
	response.Success(c, service.BuildOrderView(order))
}

// ConfirmPayment 雇主确认支付
func (h *Handler) ConfirmPayment(c *gin.Context) {
	order, ok := h.loadOrderAs(c, constants.OrderRoleEmployer)
	if !ok {
		return
	}
	h.respondTransition(c, func() (*models.Order, error) {
		return h.OrderService.ConfirmPayment(c.Request.Context(), order.ID)
	})
}

// StartService 服务方开始服务
func (h *Handler) StartService(c *gin.Context) {
	order, ok := h.loadOrderAs(c, constants.OrderRoleProvider)
	if !ok {
		return
	}
	h.respondTransition(c, func() (*models.Order, error) {
		return h.OrderService.StartService(c.Request.Context(), order.ID)
	})
}

// CompleteService 服务方完成服务
func (h *Handler) CompleteService(c *gin.Context) {
	order, ok := h.loadOrderAs(c, constants.OrderRoleProvider)
	if !ok {
		return
	}
	h.respondTransition(c, func() (*models.Order, error) {
		return h.OrderService.CompleteService(c.Request.Context(), order.ID)
	})
}

// CancelOrder 当事人取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	order, ok := h.loadOrderAs(c, "")
	if !ok {
		return
	}
	h.respondTransition(c, func() (*models.Order, error) {
		return h.OrderService.CancelOrder(c.Request.Context(), order.ID, uid)
	})
}

// UpdateOrderStatus 当事人按目标状态推进订单，目标状态决定所需身份
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	switch req.OrderStatus {
	case constants.OrderStatusPaid:
		h.ConfirmPayment(c)
	case constants.OrderStatusInProgress:
		h.StartService(c)
	case constants.OrderStatusCompleted:
		h.CompleteService(c)
	case constants.OrderStatusCancelled:
		h.CancelOrder(c)
	case constants.OrderStatusReviewed:
		shared.RespondError(c, response.CodeBadRequest, "use the review endpoint to review an order", nil)
	default:
		shared.RespondError(c, response.CodeBadRequest, "order_status is invalid", nil)
	}
}

// SubmitReview 雇主评价订单
func (h *Handler) SubmitReview(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req SubmitReviewRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	order, comment, err := h.OrderService.SubmitReview(c.Request.Context(), orderID, uid, req.Rating, req.Content)
	if err != nil {
		shared.RespondServiceError(c, err, "submit review failed")
		return
	}
	response.SuccessWithMsg(c, "review submitted", gin.H{
		"order":  service.BuildOrderView(order),
		"review": comment,
	})
}

func (h *Handler) respondTransition(c *gin.Context, run func() (*models.Order, error)) {
	order, err := run()
	if err != nil {
		shared.RespondServiceError(c, err, "update order status failed")
		return
	}
	response.SuccessWithMsg(c, "order status updated", service.BuildOrderView(order))
}

// loadOrderAs 读取当前用户作为当事人的订单，role 非空时要求对应身份
func (h *Handler) loadOrderAs(c *gin.Context, role string) (*models.Order, bool) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return nil, false
	}
	orderID, ok := shared.ParseUintParam(c, "id")
	if !ok {
		return nil, false
	}
	order, err := h.OrderService.GetOrderForUser(c.Request.Context(), orderID, uid)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch order failed")
		return nil, false
	}
	switch role {
	case constants.OrderRoleEmployer:
		if order.EmployerID != uid {
			shared.RespondError(c, response.CodeForbidden, "only the employer can perform this action", nil)
			return nil, false
		}
	case constants.OrderRoleProvider:
		if order.ProviderID != uid {
			shared.RespondError(c, response.CodeForbidden, "only the provider can perform this action", nil)
			return nil, false
		}
	}
	return order, true
}

// resolveSelfOrAdmin 路径中的用户必须是当前用户，管理员不受限
func (h *Handler) resolveSelfOrAdmin(c *gin.Context, param string) (uint, bool) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return 0, false
	}
	targetID, ok := shared.ParseUintParam(c, param)
	if !ok {
		return 0, false
	}
	if targetID != uid && !shared.IsAdmin(c) {
		shared.RespondError(c, response.CodeForbidden, "cannot access other users' orders", nil)
		return 0, false
	}
	return targetID, true
}
