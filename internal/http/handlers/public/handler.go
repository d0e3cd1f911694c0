package public

import "github.com/skill-exchange/internal/provider"

// Handler 用户侧接口处理器入口
// 说明：该处理器用于登录用户与支付回调，管理接口见 admin 包。
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
