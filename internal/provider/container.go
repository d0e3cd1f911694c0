package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/skill-exchange/internal/authz"
	"github.com/skill-exchange/internal/cache"
	"github.com/skill-exchange/internal/config"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/queue"
	"github.com/skill-exchange/internal/repository"
	"github.com/skill-exchange/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Cache       *cache.Store
	QueueClient *queue.Client

	// Repositories
	UserRepo          *repository.GormUserRepository
	OrderRepo         *repository.GormOrderRepository
	PaymentRepo       *repository.GormPaymentRepository
	CreditRepo        *repository.GormCreditRepository
	CommentRepo       *repository.GormCommentRepository
	TransitionLogRepo *repository.GormTransitionLogRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	CreditService     *service.CreditService
	OrderService      *service.OrderService
	PaymentService    *service.PaymentService
	CommentService    *service.CommentService
	OrderAuditService *service.OrderAuditService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("db is nil")
	}

	c := &Container{Config: cfg, DB: db}

	c.Redis = cache.NewRedisClient(&cfg.Redis)
	c.Cache = cache.NewStore(c.Redis, cfg.Redis.Prefix)

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("init queue client failed: %w", err)
	}
	c.QueueClient = queueClient

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repository.NewUserRepository(c.DB)
	c.OrderRepo = repository.NewOrderRepository(c.DB)
	c.PaymentRepo = repository.NewPaymentRepository(c.DB)
	c.CreditRepo = repository.NewCreditRepository(c.DB)
	c.CommentRepo = repository.NewCommentRepository(c.DB)
	c.TransitionLogRepo = repository.NewTransitionLogRepository(c.DB)
}

func (c *Container) initServices() error {
	cfg := c.Config

	authzService, err := authz.NewService(c.DB)
	if err != nil {
		return fmt.Errorf("init authz service failed: %w", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		return fmt.Errorf("bootstrap authz roles failed: %w", err)
	}
	c.AuthzService = authzService
	c.AuthService = service.NewAuthService(cfg.JWT, c.UserRepo)

	var statsCache service.CreditStatsCache
	if c.Cache.Enabled() {
		statsCache = c.Cache
	}
	c.CreditService = service.NewCreditService(
		c.CreditRepo,
		c.UserRepo,
		statsCache,
		time.Duration(cfg.Credit.StatsCacheSeconds)*time.Second,
	)

	var tasks service.OrderTaskQueue
	if c.QueueClient.Enabled() {
		tasks = c.QueueClient
	}
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.PaymentRepo,
		c.UserRepo,
		c.CommentRepo,
		c.CreditService,
		tasks,
		service.OrderOptions{
			OrderNoPrefix:  cfg.Order.OrderNoPrefix,
			PendingTimeout: time.Duration(cfg.Order.PendingTimeoutMinutes) * time.Minute,
		},
	)
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.OrderRepo, c.OrderService, cfg.Payment.CallbackSecret)
	c.CommentService = service.NewCommentService(c.CommentRepo, c.OrderRepo)
	c.OrderAuditService = service.NewOrderAuditService(c.TransitionLogRepo)
	return nil
}

// GrantAdmin 为管理员账号绑定超级管理员角色
func (c *Container) GrantAdmin(userID uint) error {
	if c == nil || c.AuthzService == nil || userID == 0 {
		return nil
	}
	roles, err := c.AuthzService.GetUserRoles(userID)
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		return nil
	}
	if err := c.AuthzService.SetUserRoles(userID, []string{authz.RoleSuperAdmin}); err != nil {
		return err
	}
	logger.Infow("provider_admin_role_granted", "user_id", userID, "role", authz.RoleSuperAdmin)
	return nil
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := c.Cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
