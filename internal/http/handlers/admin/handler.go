package admin

import "github.com/skill-exchange/internal/provider"

// Handler 管理端接口处理器，路由由 casbin 策略保护
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
