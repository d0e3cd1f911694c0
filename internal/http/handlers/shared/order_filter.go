package shared

import (
	"strconv"
	"strings"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/repository"

	"github.com/gin-gonic/gin"
)

// ParseOrderListFilter 解析订单列表的分页、状态、单号与时间区间参数
func ParseOrderListFilter(c *gin.Context) (repository.OrderListFilter, bool) {
	page, pageSize := ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		OrderNo:  strings.TrimSpace(c.Query("order_no")),
	}
	if raw := strings.TrimSpace(c.Query("order_status")); raw != "" {
		status, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, response.CodeBadRequest, "order_status is invalid", nil)
			return filter, false
		}
		filter.Status = constants.OrderStatus(status)
	}
	from, ok := ParseTimeQuery(c, "created_from")
	if !ok {
		return filter, false
	}
	to, ok := ParseTimeQuery(c, "created_to")
	if !ok {
		return filter, false
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, true
}
