package shared

import (
	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 上下文键
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyUsername  = "username"
	ContextKeyRequestID = "request_id"
)

// GetContextUint 从上下文读取 uint 值并统一处理错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, key+" is invalid", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			RespondError(c, response.CodeBadRequest, key+" is invalid", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, key+" has unexpected type", nil)
		return 0, false
	}
}

// GetUserID 当前登录用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	return GetContextUint(c, ContextKeyUserID)
}

// IsAdmin 当前用户是否为管理员账号
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextKeyUserRole) == constants.UserRoleAdmin
}
