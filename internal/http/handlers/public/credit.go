package public

import (
	"strconv"

	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// GetUserCredit 用户信用档案，不存在时按默认分创建
func (h *Handler) GetUserCredit(c *gin.Context) {
	userID, ok := shared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	record, err := h.CreditService.GetUserCredit(c.Request.Context(), userID)
	if err != nil {
		shared.RespondServiceError(c, err, "fetch credit failed")
		return
	}
	response.Success(c, record)
}

// GetCreditRanking 信用排行
func (h *Handler) GetCreditRanking(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	minOrders, err := strconv.ParseInt(c.DefaultQuery("min_orders", "0"), 10, 64)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "min_orders is invalid", nil)
		return
	}
	minScore, err := strconv.ParseFloat(c.DefaultQuery("min_score", "0"), 64)
	if err != nil {
		shared.RespondError(c, response.CodeBadRequest, "min_score is invalid", nil)
		return
	}

	items, total, err := h.CreditService.GetCreditRanking(c.Request.Context(), service.CreditRankingQuery{
		MinOrders: minOrders,
		MinScore:  minScore,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		shared.RespondServiceError(c, err, "fetch credit ranking failed")
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// GetCreditStats 信用分布统计
func (h *Handler) GetCreditStats(c *gin.Context) {
	stats, err := h.CreditService.GetCreditStats(c.Request.Context())
	if err != nil {
		shared.RespondServiceError(c, err, "fetch credit stats failed")
		return
	}
	response.Success(c, stats)
}
