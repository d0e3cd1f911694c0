package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/skill-exchange/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 注册自定义校验规则
func RegisterValidators() {
	registerOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = engine.RegisterValidation("future", validateFuture)
	})
}

// validateFuture 时间字段必须晚于当前时间
func validateFuture(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return value.After(time.Now())
}

// BindJSON 绑定并校验请求体，失败时直接响应 400
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondError(c, response.CodeBadRequest, describeBindError(err), nil)
		return false
	}
	return true
}

func describeBindError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		field := fieldErr.Field()
		switch fieldErr.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "future":
			parts = append(parts, field+" must be in the future")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", field, fieldErr.Param()))
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be >= %s", field, fieldErr.Param()))
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be > %s", field, fieldErr.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be <= %s", field, fieldErr.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
