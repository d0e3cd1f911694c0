package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skill-exchange/internal/authz"
	"github.com/skill-exchange/internal/config"
	adminhandlers "github.com/skill-exchange/internal/http/handlers/admin"
	publichandlers "github.com/skill-exchange/internal/http/handlers/public"
	"github.com/skill-exchange/internal/http/handlers/shared"
	"github.com/skill-exchange/internal/http/response"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	shared.RegisterValidators()
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "sx"
	}
	createOrderRule := NewRateLimitRule(fmt.Sprintf("%s:rate:create_order", redisPrefix), cfg.RateLimit.CreateOrder)
	callbackRule := NewRateLimitRule(fmt.Sprintf("%s:rate:payment_callback", redisPrefix), cfg.RateLimit.Callback)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))

	userAuth := UserJWTAuthMiddleware(c.AuthService, c.UserRepo, c.Cache)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/auth/login", publicHandler.Login)

		// 支付渠道回调，仅依赖签名
		apiV1.POST("/payments/callback/:channel",
			RateLimitMiddleware(c.Redis, callbackRule, KeyByIPAndParam("channel")),
			publicHandler.PaymentCallback,
		)

		user := apiV1.Group("")
		user.Use(userAuth)
		{
			orders := user.Group("/orders")
			orders.POST("", RateLimitMiddleware(c.Redis, createOrderRule, KeyByUserOrIP), publicHandler.CreateOrder)
			orders.GET("", publicHandler.ListOrders)
			orders.GET("/stats/summary", publicHandler.GetOrderStatsSummary)
			orders.GET("/user/:userId", publicHandler.ListUserOrders)
			orders.GET("/user/:userId/stats", publicHandler.GetUserOrderStats)
			orders.GET("/:id", publicHandler.GetOrder)
			orders.PUT("/:id/status", publicHandler.UpdateOrderStatus)
			orders.PUT("/:id/cancel", publicHandler.CancelOrder)
			orders.PUT("/:id/confirm-payment", publicHandler.ConfirmPayment)
			orders.PUT("/:id/start-service", publicHandler.StartService)
			orders.PUT("/:id/complete-service", publicHandler.CompleteService)
			orders.POST("/:id/review", publicHandler.SubmitReview)

			credit := user.Group("/credit")
			credit.GET("/user/:userId", publicHandler.GetUserCredit)
			credit.GET("/ranking", publicHandler.GetCreditRanking)
			credit.GET("/stats", publicHandler.GetCreditStats)

			payments := user.Group("/payments")
			payments.POST("", publicHandler.CreatePayment)
			payments.GET("", publicHandler.ListPayments)
			payments.GET("/order/:orderId", publicHandler.GetPaymentByOrder)
			payments.GET("/:paymentId", publicHandler.GetPayment)
			payments.PUT("/:paymentId/cancel", publicHandler.CancelPayment)
			payments.GET("/:paymentId/status", publicHandler.GetPaymentStatus)
			payments.POST("/:paymentId/refund", publicHandler.RequestRefund)
			payments.GET("/:paymentId/refunds", publicHandler.GetRefundHistory)

			comments := user.Group("/comments")
			comments.POST("", publicHandler.CreateComment)
			comments.GET("", publicHandler.ListComments)
			comments.GET("/order/:orderId", publicHandler.ListOrderComments)
			comments.GET("/user/:userId", publicHandler.ListUserComments)
			comments.GET("/:id", publicHandler.GetComment)
			comments.PUT("/:id", publicHandler.UpdateComment)
			comments.DELETE("/:id", publicHandler.DeleteComment)
			comments.POST("/:id/reply", publicHandler.ReplyComment)
		}

		admin := apiV1.Group("/admin")
		admin.Use(userAuth, AdminRBACMiddleware(c.AuthzService))
		{
			admin.GET("/orders", adminHandler.ListOrders)
			admin.DELETE("/orders/:id", adminHandler.DeleteOrder)
			admin.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
			admin.PUT("/credit/user/:userId", adminHandler.UpdateUserCredit)
			admin.GET("/payments/analytics/summary", adminHandler.GetPaymentSummary)
			admin.GET("/payments/analytics/daily", adminHandler.GetDailyStats)
			admin.PUT("/refunds/:refundId/resolve", adminHandler.ResolveRefund)
			admin.GET("/transition-logs", adminHandler.ListTransitionLogs)
			admin.GET("/permissions", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	return segments[1]
}
