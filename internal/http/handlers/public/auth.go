package public

import (
	"time"

	"github.com/skill-exchange/internal/cache"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login 用户名密码登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	user, token, expiresAt, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		shared.RespondServiceError(c, err, "login failed")
		return
	}
	if err := h.Cache.SetUserAuthState(c.Request.Context(), cache.BuildUserAuthState(user)); err != nil {
		shared.RequestLog(c).Warnw("login_cache_auth_state_failed", "user_id", user.ID, "error", err)
	}
	response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
	})
}
