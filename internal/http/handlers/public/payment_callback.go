package public

import (
	"strings"

	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentCallbackRequest 渠道回调参数，支持表单与 JSON
type PaymentCallbackRequest struct {
	OutTradeNo  string `json:"out_trade_no" form:"out_trade_no" binding:"required"`
	TradeNo     string `json:"trade_no" form:"trade_no"`
	TradeStatus string `json:"trade_status" form:"trade_status" binding:"required"`
	Sign        string `json:"sign" form:"sign" binding:"required"`
}

// PaymentCallback 支付渠道回调（alipay/wechat/bank），无需登录，依赖签名校验
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid callback payload", nil)
		return
	}
	channel := strings.TrimSpace(c.Param("channel"))
	payment, err := h.PaymentService.HandleCallback(c.Request.Context(), service.PaymentCallbackInput{
		Channel:     channel,
		OutTradeNo:  strings.TrimSpace(req.OutTradeNo),
		TradeNo:     strings.TrimSpace(req.TradeNo),
		TradeStatus: strings.TrimSpace(req.TradeStatus),
		Sign:        strings.TrimSpace(req.Sign),
	})
	if err != nil {
		shared.RequestLog(c).Warnw("payment_callback_rejected",
			"channel", channel,
			"out_trade_no", req.OutTradeNo,
			"trade_status", req.TradeStatus,
			"error", err,
		)
		shared.RespondServiceError(c, err, "payment callback failed")
		return
	}
	response.SuccessWithMsg(c, "success", gin.H{
		"payment_id":     payment.ID,
		"payment_no":     payment.PaymentNo,
		"payment_status": payment.Status,
	})
}
