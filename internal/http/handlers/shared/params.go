package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/skill-exchange/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParseUintParam 解析路径参数，失败时直接响应 400
func ParseUintParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, response.CodeBadRequest, name+" is invalid", nil)
		return 0, false
	}
	return uint(id), true
}

// ParseUintQuery 解析可选的 uint 查询参数，缺省返回 0
func ParseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, response.CodeBadRequest, name+" is invalid", nil)
		return 0, false
	}
	return uint(id), true
}

// ParseTimeQuery 解析 RFC3339 或 yyyy-MM-dd 格式的可选时间参数
func ParseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &parsed, true
		}
	}
	RespondError(c, response.CodeBadRequest, name+" must be RFC3339 or yyyy-MM-dd", nil)
	return nil, false
}
