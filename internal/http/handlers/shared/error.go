package shared

import (
	"errors"

	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString(ContextKeyRequestID); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// MappedError 业务错误到接口错误码的映射
type MappedError struct {
	Target  error
	Code    int
	Message string
}

// RespondWithMappedError 按规则顺序匹配错误，未命中时使用兜底错误码
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Message, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}

// RespondServiceError 按领域错误类别输出响应
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		RespondError(c, response.CodeBadRequest, validationErr.Error(), nil)
		return
	}
	var transitionErr *service.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		allowed := make([]string, 0, len(transitionErr.Allowed))
		for _, status := range transitionErr.Allowed {
			allowed = append(allowed, status.String())
		}
		response.ErrorWithData(c, response.CodeUnprocessable, transitionErr.Error(), gin.H{
			"current_status": transitionErr.Current.String(),
			"target_status":  transitionErr.Target.String(),
			"allowed":        allowed,
		})
		return
	}
	var notFoundErr *service.NotFoundError
	if errors.As(err, &notFoundErr) {
		RespondError(c, response.CodeNotFound, notFoundErr.Error(), nil)
		return
	}
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		RespondError(c, response.CodeConflict, conflictErr.Error(), nil)
		return
	}
	if errors.Is(err, service.ErrDatabase) && service.IsLockTimeout(err) {
		RespondError(c, response.CodeServiceUnavailable, "service busy, please retry", err)
		return
	}
	RespondWithMappedError(c, err, serviceErrorRules, response.CodeInternal, fallbackMsg)
}

var serviceErrorRules = []MappedError{
	{Target: service.ErrInvalidCredentials, Code: response.CodeUnauthorized, Message: "invalid username or password"},
	{Target: service.ErrInvalidToken, Code: response.CodeUnauthorized, Message: "invalid token"},
}
