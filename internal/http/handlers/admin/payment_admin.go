package admin

import (
	"strconv"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// ResolveRefundRequest 退款处理结果
type ResolveRefundRequest struct {
	RefundStatus *constants.RefundStatus `json:"refund_status" binding:"required"`
}

// GetPaymentSummary 支付汇总
func (h *Handler) GetPaymentSummary(c *gin.Context) {
	summary, err := h.PaymentService.GetPaymentSummary(c.Request.Context(), time.Now())
	if err != nil {
		shared.RespondServiceError(c, err, "fetch payment summary failed")
		return
	}
	response.Success(c, summary)
}

// GetDailyStats 每日支付统计，指定 start_date/end_date 或最近 days 天
func (h *Handler) GetDailyStats(c *gin.Context) {
	from, ok := shared.ParseTimeQuery(c, "start_date")
	if !ok {
		return
	}
	to, ok := shared.ParseTimeQuery(c, "end_date")
	if !ok {
		return
	}
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "days is invalid", nil)
		return
	}
	stats, err := h.PaymentService.GetDailyStats(c.Request.Context(), service.DailyStatsQuery{
		From: from,
		To:   to,
		Days: days,
	}, time.Now())
	if err != nil {
		shared.RespondServiceError(c, err, "fetch daily stats failed")
		return
	}
	response.Success(c, stats)
}

// ResolveRefund 处理退款结果
func (h *Handler) ResolveRefund(c *gin.Context) {
	refundID, ok := shared.ParseUintParam(c, "refundId")
	if !ok {
		return
	}
	var req ResolveRefundRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	refund, err := h.PaymentService.ResolveRefund(c.Request.Context(), refundID, *req.RefundStatus)
	if err != nil {
		shared.RespondServiceError(c, err, "resolve refund failed")
		return
	}
	response.SuccessWithMsg(c, "refund resolved", refund)
}
