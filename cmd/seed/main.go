package main

import (
	"context"
	"errors"
	"time"

	"github.com/skill-exchange/internal/config"
	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/provider"
	"github.com/skill-exchange/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type demoUser struct {
	username string
	password string
}

var demoUsers = []demoUser{
	{username: "demo_employer", password: "employer123"},
	{username: "demo_provider", password: "provider123"},
	{username: "demo_mentor", password: "mentor123"},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	db, err := models.OpenDB(models.DBOptions{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Pool: models.DBPoolConfig{
			MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
		},
	})
	if err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 种子数据不投递超时任务
	cfg.Queue.Enabled = false
	container, err := provider.NewContainer(cfg, db)
	if err != nil {
		stdLog.Fatalf("Failed to init container: %v", err)
	}
	defer container.Close()

	ids := make(map[string]uint, len(demoUsers))
	for _, item := range demoUsers {
		user, err := ensureUser(db, item)
		if err != nil {
			stdLog.Fatalf("Failed to seed user %s: %v", item.username, err)
		}
		ids[item.username] = user.ID
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("employer_id = ?", ids["demo_employer"]).Count(&count).Error; err != nil {
		stdLog.Fatalf("Failed to count orders: %v", err)
	}
	if count > 0 {
		logger.Infow("seed_orders_exist", "employer_id", ids["demo_employer"], "count", count)
		return
	}

	ctx := context.Background()
	if err := seedReviewedOrder(ctx, container, ids["demo_employer"], ids["demo_provider"]); err != nil {
		stdLog.Fatalf("Failed to seed reviewed order: %v", err)
	}
	if err := seedPendingOrder(ctx, container, ids["demo_employer"], ids["demo_mentor"]); err != nil {
		stdLog.Fatalf("Failed to seed pending order: %v", err)
	}
	logger.Infow("seed_completed", "users", len(demoUsers))
}

func ensureUser(db *gorm.DB, item demoUser) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", item.username).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := service.HashPassword(item.password)
	if err != nil {
		return nil, err
	}
	user = models.User{
		Username:     item.username,
		PasswordHash: hash,
		Role:         constants.UserRoleUser,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// seedReviewedOrder 走完整条订单链路，使信用分与评价均有数据
func seedReviewedOrder(ctx context.Context, c *provider.Container, employerID, providerID uint) error {
	order, err := c.OrderService.CreateOrder(ctx, service.CreateOrderInput{
		EmployerID:    employerID,
		ProviderID:    providerID,
		SkillID:       1,
		Amount:        decimal.NewFromInt(200),
		ServiceTime:   time.Now().Add(24 * time.Hour),
		Remark:        "Go 并发编程一对一辅导",
		PaymentMethod: constants.PaymentMethodAlipay,
	})
	if err != nil {
		return err
	}
	steps := []func() (*models.Order, error){
		func() (*models.Order, error) { return c.OrderService.ConfirmPayment(ctx, order.ID) },
		func() (*models.Order, error) { return c.OrderService.StartService(ctx, order.ID) },
		func() (*models.Order, error) { return c.OrderService.CompleteService(ctx, order.ID) },
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			return err
		}
	}
	_, _, err = c.OrderService.SubmitReview(ctx, order.ID, employerID, 5, "讲解清晰，准时完成")
	return err
}

func seedPendingOrder(ctx context.Context, c *provider.Container, employerID, providerID uint) error {
	_, err := c.OrderService.CreateOrder(ctx, service.CreateOrderInput{
		EmployerID:  employerID,
		ProviderID:  providerID,
		SkillID:     2,
		Amount:      decimal.NewFromInt(80),
		ServiceTime: time.Now().Add(72 * time.Hour),
		Remark:      "简历修改",
	})
	return err
}
