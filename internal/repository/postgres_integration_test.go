//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.Refund{},
		&models.Payment{},
		&models.Order{},
		&models.UserCredit{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := db.AutoMigrate(&models.User{}, &models.UserCredit{}, &models.Order{}, &models.Payment{}, &models.Refund{}); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestPostgresPaymentDailyStats(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewPaymentRepository(db)

	day := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	payments := []models.Payment{
		{PaymentNo: "PG-1", OrderID: 1, PaymentMethod: constants.PaymentMethodAlipay, PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("100.50")), Status: constants.PaymentStatusSuccess, CreatedAt: day},
		{PaymentNo: "PG-2", OrderID: 2, PaymentMethod: constants.PaymentMethodWechat, PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("20.00")), Status: constants.PaymentStatusFailed, CreatedAt: day.Add(time.Hour)},
		{PaymentNo: "PG-3", OrderID: 3, PaymentMethod: constants.PaymentMethodBank, PaymentAmount: models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")), Status: constants.PaymentStatusPending, CreatedAt: day.Add(24 * time.Hour)},
	}
	for i := range payments {
		if err := repo.Create(&payments[i]); err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}

	stats, err := repo.DailyStats(day.Add(-time.Hour), day.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("daily stats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 days, got %+v", stats)
	}
	if stats[0].Date != "2026-03-03" || stats[1].Date != "2026-03-02" {
		t.Fatalf("days should be newest first, got %s %s", stats[0].Date, stats[1].Date)
	}
	if stats[1].SuccessCount != 1 || !stats[1].SuccessAmount.Equal(decimal.RequireFromString("100.5")) {
		t.Fatalf("unexpected success aggregate: %+v", stats[1])
	}
	if stats[1].FailedCount != 1 || !stats[1].TotalAmount.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("unexpected totals: %+v", stats[1])
	}
}

func TestPostgresOrderStatusCompareAndSet(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewOrderRepository(db)

	order := &models.Order{
		OrderNo:     "SXPG0001",
		EmployerID:  1,
		ProviderID:  2,
		SkillID:     3,
		OrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
		ServiceTime: time.Now().Add(time.Hour),
		Status:      constants.OrderStatusPending,
	}
	if err := repo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	updated, err := repo.UpdateStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusPaid, map[string]interface{}{"paid_at": time.Now()})
	if err != nil || !updated {
		t.Fatalf("first transition should apply, updated=%v err=%v", updated, err)
	}
	updated, err = repo.UpdateStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusCancelled, nil)
	if err != nil {
		t.Fatalf("stale transition failed: %v", err)
	}
	if updated {
		t.Fatalf("stale from-status must not update")
	}

	reloaded, err := repo.GetByID(order.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload order failed: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPaid || reloaded.PaidAt == nil {
		t.Fatalf("unexpected order after transitions: %+v", reloaded)
	}
}

func TestPostgresCreditRanking(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewCreditRepository(db)

	for i, name := range []string{"ann", "ben", "cat"} {
		user := models.User{Username: name, PasswordHash: "x", Role: constants.UserRoleUser, Status: constants.UserStatusActive}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("create user failed: %v", err)
		}
		credit := &models.UserCredit{
			UserID:          user.ID,
			CreditScore:     decimal.NewFromFloat([]float64{91.5, 91.5, 62}[i]),
			TotalOrders:     int64(3 + i),
			CompletedOrders: int64([]int{1, 4, 2}[i]),
		}
		if err := repo.Create(credit); err != nil {
			t.Fatalf("create credit failed: %v", err)
		}
	}

	rows, total, err := repo.Ranking(CreditRankingFilter{MinOrders: 1, MinScore: decimal.NewFromInt(60), Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("ranking failed: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("expected 3 ranked users, total=%d len=%d", total, len(rows))
	}
	if rows[0].Username != "ben" || rows[1].Username != "ann" || rows[2].Username != "cat" {
		t.Fatalf("unexpected ranking order: %s %s %s", rows[0].Username, rows[1].Username, rows[2].Username)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ActiveUsers != 3 || stats.Excellent != 2 || stats.Poor != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
