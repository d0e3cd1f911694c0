package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/queue"
	"github.com/skill-exchange/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingQueue struct {
	mu       sync.Mutex
	audits   []queue.OrderTransitionAuditPayload
	timeouts []queue.OrderTimeoutCancelPayload
	delays   []time.Duration
	err      error
}

func (q *recordingQueue) EnqueueOrderTransitionAudit(payload queue.OrderTransitionAuditPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.audits = append(q.audits, payload)
	return nil
}

func (q *recordingQueue) EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.timeouts = append(q.timeouts, payload)
	q.delays = append(q.delays, delay)
	return nil
}

func (q *recordingQueue) auditCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.audits)
}

type serviceFixture struct {
	db          *gorm.DB
	orderRepo   *repository.GormOrderRepository
	paymentRepo *repository.GormPaymentRepository
	creditRepo  *repository.GormCreditRepository
	userRepo    *repository.GormUserRepository
	commentRepo *repository.GormCommentRepository
	tasks       *recordingQueue
	credits     *CreditService
	orders      *OrderService
	payments    *PaymentService
	comments    *CommentService
}

const testCallbackSecret = "test-callback-secret"

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := openServiceTestDB(t)
	f := &serviceFixture{
		db:          db,
		orderRepo:   repository.NewOrderRepository(db),
		paymentRepo: repository.NewPaymentRepository(db),
		creditRepo:  repository.NewCreditRepository(db),
		userRepo:    repository.NewUserRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		tasks:       &recordingQueue{},
	}
	f.credits = NewCreditService(f.creditRepo, f.userRepo, nil, 0)
	f.orders = NewOrderService(f.orderRepo, f.paymentRepo, f.userRepo, f.commentRepo, f.credits, f.tasks, OrderOptions{
		PendingTimeout: 30 * time.Minute,
	})
	f.payments = NewPaymentService(f.paymentRepo, f.orderRepo, f.orders, testCallbackSecret)
	f.comments = NewCommentService(f.commentRepo, f.orderRepo)
	return f
}

func (f *serviceFixture) createUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		PasswordHash: "hash",
		Role:         constants.UserRoleUser,
		Status:       constants.UserStatusActive,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s failed: %v", username, err)
	}
	return user
}

func (f *serviceFixture) createOrder(t *testing.T, employerID, providerID uint, amount string) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), CreateOrderInput{
		EmployerID:  employerID,
		ProviderID:  providerID,
		SkillID:     1,
		Amount:      decimal.RequireFromString(amount),
		ServiceTime: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

// advance 依次执行流转直到目标状态
func (f *serviceFixture) advance(t *testing.T, orderID uint, target constants.OrderStatus) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		status constants.OrderStatus
		run    func() (*models.Order, error)
	}{
		{constants.OrderStatusPaid, func() (*models.Order, error) { return f.orders.ConfirmPayment(ctx, orderID) }},
		{constants.OrderStatusInProgress, func() (*models.Order, error) { return f.orders.StartService(ctx, orderID) }},
		{constants.OrderStatusCompleted, func() (*models.Order, error) { return f.orders.CompleteService(ctx, orderID) }},
	}
	for _, step := range steps {
		if _, err := step.run(); err != nil {
			t.Fatalf("advance to %s failed: %v", step.status, err)
		}
		if step.status == target {
			return
		}
	}
}

func (f *serviceFixture) reloadOrder(t *testing.T, orderID uint) *models.Order {
	t.Helper()
	order, err := f.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		t.Fatalf("reload order %d failed: %v", orderID, err)
	}
	return order
}

func (f *serviceFixture) orderPayment(t *testing.T, orderID uint) *models.Payment {
	t.Helper()
	payment, err := f.paymentRepo.GetLatestByOrder(orderID)
	if err != nil || payment == nil {
		t.Fatalf("load payment for order %d failed: %v", orderID, err)
	}
	return payment
}

func (f *serviceFixture) creditOf(t *testing.T, userID uint) *models.UserCredit {
	t.Helper()
	credit, err := f.creditRepo.GetByUserID(userID)
	if err != nil {
		t.Fatalf("load credit for user %d failed: %v", userID, err)
	}
	return credit
}

type failingCredit struct{}

var errCreditUnavailable = errors.New("credit store unavailable")

func (failingCredit) ApplyEvents(*gorm.DB, uint, CreditEvents) (*models.UserCredit, error) {
	return nil, errCreditUnavailable
}

func (failingCredit) InvalidateStats(context.Context) {}

// flipPaymentStatusBeforeNextUpdate 在下一次支付状态更新执行前，于同一事务内改写该订单支付状态，模拟并发修改
func (f *serviceFixture) flipPaymentStatusBeforeNextUpdate(t *testing.T, orderID uint, status constants.PaymentStatus) {
	t.Helper()
	fired := false
	err := f.db.Callback().Update().Before("gorm:update").Register("test:flip_payment_status", func(tx *gorm.DB) {
		if fired || tx.Statement.Schema == nil || tx.Statement.Schema.Table != "payments" {
			return
		}
		fired = true
		flip := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE payments SET payment_status = ? WHERE order_id = ?", status, orderID)
		if flip.Error != nil {
			_ = tx.AddError(flip.Error)
		}
	})
	if err != nil {
		t.Fatalf("register update callback failed: %v", err)
	}
}
