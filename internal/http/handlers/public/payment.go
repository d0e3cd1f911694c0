package public

import (
	"strconv"
	"strings"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest 创建支付请求
type CreatePaymentRequest struct {
	OrderID        uint            `json:"order_id" binding:"required"`
	PaymentMethod  string          `json:"payment_method" binding:"required,oneof=balance alipay wechat bank"`
	PaymentChannel string          `json:"payment_channel" binding:"max=40"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
}

// RefundRequest 退款申请
type RefundRequest struct {
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundReason string          `json:"refund_reason" binding:"required,max=500"`
	RefundType   int             `json:"refund_type" binding:"required,oneof=1 2"`
}

// CreatePayment 雇主为订单发起支付
func (h *Handler) CreatePayment(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	var req CreatePaymentRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	payment, err := h.PaymentService.CreatePayment(c.Request.Context(), service.CreatePaymentInput{
		OrderID:        req.OrderID,
		PayerID:        uid,
		PaymentMethod:  req.PaymentMethod,
		PaymentChannel: strings.TrimSpace(req.PaymentChannel),
		Amount:         req.PaymentAmount,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "create payment failed")
		return
	}
	response.SuccessWithMsg(c, "payment created", payment)
}

// ListPayments 当前用户的支付记录
func (h *Handler) ListPayments(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	filter := repository.PaymentListFilter{
		Page:          page,
		PageSize:      pageSize,
		UserID:        uid,
		PaymentMethod: strings.TrimSpace(c.Query("payment_method")),
	}
	if raw := strings.TrimSpace(c.Query("payment_status")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			shared.RespondError(c, response.CodeBadRequest, "payment_status is invalid", nil)
			return
		}
		status := constants.PaymentStatus(value)
		filter.Status = &status
	}
	from, ok := shared.ParseTimeQuery(c, "created_from")
	if !ok {
		return
	}
	to, ok := shared.ParseTimeQuery(c, "created_to")
	if !ok {
		return
	}
	filter.CreatedFrom, filter.CreatedTo = from, to

	payments, total, err := h.PaymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payments failed")
		return
	}
	response.SuccessWithPage(c, payments, response.BuildPagination(page, pageSize, total))
}

// GetPayment 支付详情（含退款）
func (h *Handler) GetPayment(c *gin.Context) {
	payment, ok := h.loadOwnPayment(c)
	if !ok {
		return
	}
	response.Success(c, payment)
}

// GetPaymentByOrder 订单的最新支付记录
func (h *Handler) GetPaymentByOrder(c *gin.Context) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return
	}
	orderID, ok := shared.ParseUintParam(c, "orderId")
	if !ok {
		return
	}
	if _, err := h.OrderService.GetOrderForUser(c.Request.Context(), orderID, uid); err != nil {
		shared.RespondServiceError(c, err, "fetch order failed")
		return
	}
	payment, err := h.PaymentService.GetPaymentByOrder(c.Request.Context(), orderID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payment failed")
		return
	}
	response.Success(c, payment)
}

// CancelPayment 取消待支付记录
func (h *Handler) CancelPayment(c *gin.Context) {
	payment, ok := h.loadOwnPayment(c)
	if !ok {
		return
	}
	cancelled, err := h.PaymentService.CancelPayment(c.Request.Context(), payment.ID)
	if err != nil {
		shared.RespondServiceError(c, err, "cancel payment failed")
		return
	}
	response.SuccessWithMsg(c, "payment cancelled", cancelled)
}

// GetPaymentStatus 支付状态查询
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	payment, ok := h.loadOwnPayment(c)
	if !ok {
		return
	}
	view, err := h.PaymentService.GetPaymentStatus(c.Request.Context(), payment.ID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payment status failed")
		return
	}
	response.Success(c, view)
}

// RequestRefund 发起退款
func (h *Handler) RequestRefund(c *gin.Context) {
	payment, ok := h.loadOwnPayment(c)
	if !ok {
		return
	}
	var req RefundRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	refund, err := h.PaymentService.ProcessRefund(c.Request.Context(), service.RefundInput{
		PaymentID: payment.ID,
		Amount:    req.RefundAmount,
		Reason:    req.RefundReason,
		Type:      req.RefundType,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "refund failed")
		return
	}
	response.SuccessWithMsg(c, "refund requested", refund)
}

// GetRefundHistory 退款记录
func (h *Handler) GetRefundHistory(c *gin.Context) {
	payment, ok := h.loadOwnPayment(c)
	if !ok {
		return
	}
	history, err := h.PaymentService.GetRefundHistory(c.Request.Context(), payment.ID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch refund history failed")
		return
	}
	response.Success(c, history)
}

// loadOwnPayment 读取当前用户作为订单当事人的支付记录，管理员不受限
func (h *Handler) loadOwnPayment(c *gin.Context) (*models.Payment, bool) {
	uid, ok := shared.GetUserID(c)
	if !ok {
		return nil, false
	}
	paymentID, ok := shared.ParseUintParam(c, "paymentId")
	if !ok {
		return nil, false
	}
	payment, err := h.PaymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payment failed")
		return nil, false
	}
	if shared.IsAdmin(c) {
		return payment, true
	}
	owned, err := h.PaymentService.PaymentBelongsTo(c.Request.Context(), payment, uid)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payment failed")
		return nil, false
	}
	if !owned {
		shared.RespondError(c, response.CodeNotFound, "payment not found", nil)
		return nil, false
	}
	return payment, true
}
