package admin

import (
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
)

// UpdateUserCredit 手工补录信用事件
func (h *Handler) UpdateUserCredit(c *gin.Context) {
	userID, ok := shared.ParseUintParam(c, "userId")
	if !ok {
		return
	}
	var events service.CreditEvents
	if !shared.BindJSON(c, &events) {
		return
	}
	record, err := h.CreditService.UpdateUserCredit(c.Request.Context(), userID, events)
	if err != nil {
		shared.RespondServiceError(c, err, "update credit failed")
		return
	}
	response.SuccessWithMsg(c, "credit updated", record)
}
