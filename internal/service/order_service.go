package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/queue"
	"github.com/skill-exchange/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultOrderNoPrefix = "SX"

// OrderTaskQueue 订单异步任务投递
type OrderTaskQueue interface {
	EnqueueOrderTransitionAudit(payload queue.OrderTransitionAuditPayload) error
	EnqueueOrderTimeoutCancel(payload queue.OrderTimeoutCancelPayload, delay time.Duration) error
}

// OrderOptions 订单服务配置
type OrderOptions struct {
	OrderNoPrefix  string
	PendingTimeout time.Duration // 0 表示不自动取消
}

// OrderService 订单状态机服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	credit      CreditEventApplier
	tasks       OrderTaskQueue
	options     OrderOptions
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, paymentRepo repository.PaymentRepository, userRepo repository.UserRepository, commentRepo repository.CommentRepository, credit CreditEventApplier, tasks OrderTaskQueue, options OrderOptions) *OrderService {
	if strings.TrimSpace(options.OrderNoPrefix) == "" {
		options.OrderNoPrefix = defaultOrderNoPrefix
	}
	return &OrderService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		credit:      credit,
		tasks:       tasks,
		options:     options,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	EmployerID    uint
	ProviderID    uint
	SkillID       uint
	TaskID        *uint
	Amount        decimal.Decimal
	ServiceTime   time.Time
	Remark        string
	PaymentMethod string
}

// transitionRequest 一次状态流转请求
type transitionRequest struct {
	orderID     uint
	target      constants.OrderStatus
	actorID     uint
	reason      string
	allowedFrom []constants.OrderStatus
	paymentID   uint
	tradeNo     string
	channel     string // 回调渠道，支付记录未填写时补录
	review      *reviewSubmission
}

// transitionResult 流转结果，提交后用于审计与缓存失效
type transitionResult struct {
	order         *models.Order
	from          constants.OrderStatus
	creditTouched bool
}

// CreateOrder 创建订单并生成待支付记录
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrderInput(input, time.Now()); err != nil {
		return nil, err
	}
	method := strings.TrimSpace(input.PaymentMethod)
	if method == "" {
		method = constants.PaymentMethodBalance
	}
	if !isSupportedPaymentMethod(method) {
		return nil, validationErr("payment_method", "unsupported payment method")
	}
	if err := s.ensureUsersExist(ctx, input.EmployerID, input.ProviderID); err != nil {
		return nil, err
	}

	amount := models.NewMoneyFromDecimal(input.Amount)
	order := &models.Order{
		OrderNo:     s.generateOrderNo(),
		EmployerID:  input.EmployerID,
		ProviderID:  input.ProviderID,
		SkillID:     input.SkillID,
		TaskID:      input.TaskID,
		OrderAmount: amount,
		ServiceTime: input.ServiceTime,
		Remark:      strings.TrimSpace(input.Remark),
		Status:      constants.OrderStatusPending,
	}
	err := s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}
		payment := &models.Payment{
			PaymentNo:     generatePaymentNo(),
			OrderID:       order.ID,
			PaymentMethod: method,
			PaymentAmount: amount,
			Status:        constants.PaymentStatusPending,
		}
		if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
			return err
		}
		order.Payments = []models.Payment{*payment}
		return nil
	})
	if err != nil {
		return nil, classifyDBError("create_order", "order", err)
	}

	logger.Ctx(ctx).Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"employer_id", order.EmployerID,
		"provider_id", order.ProviderID,
		"amount", order.OrderAmount.String(),
	)
	s.enqueueTimeoutCancel(ctx, order.ID)
	return order, nil
}

func validateCreateOrderInput(input CreateOrderInput, now time.Time) error {
	if input.EmployerID == 0 {
		return validationErr("employer_id", "must be positive")
	}
	if input.ProviderID == 0 {
		return validationErr("provider_id", "must be positive")
	}
	if input.SkillID == 0 {
		return validationErr("skill_id", "must be positive")
	}
	if input.EmployerID == input.ProviderID {
		return validationErr("provider_id", "provider cannot be the employer")
	}
	if !models.NewMoneyFromDecimal(input.Amount).IsPositive() {
		return validationErr("order_amount", "must be greater than 0")
	}
	if !models.HasMoneyPrecision(input.Amount) {
		return validationErr("order_amount", "must have at most 2 decimal places")
	}
	if !input.ServiceTime.After(now) {
		return validationErr("service_time", "must be in the future")
	}
	return nil
}

func (s *OrderService) ensureUsersExist(ctx context.Context, ids ...uint) error {
	if s.userRepo == nil {
		return nil
	}
	users, err := s.userRepo.WithContext(ctx).ListByIDs(ids)
	if err != nil {
		return classifyDBError("list_users", "user", err)
	}
	found := make(map[uint]bool, len(users))
	for _, user := range users {
		found[user.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return notFoundErr("user", id)
		}
	}
	return nil
}

// ConfirmPayment 确认支付：PENDING -> PAID，同时支付记录置为成功
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.confirmPayment(ctx, transitionRequest{orderID: orderID})
}

// ConfirmPaymentByCallback 第三方回调确认支付，需匹配支付记录
func (s *OrderService) ConfirmPaymentByCallback(ctx context.Context, orderID, paymentID uint, tradeNo, channel string) (*models.Order, error) {
	return s.confirmPayment(ctx, transitionRequest{
		orderID:   orderID,
		paymentID: paymentID,
		tradeNo:   strings.TrimSpace(tradeNo),
		channel:   strings.TrimSpace(channel),
	})
}

func (s *OrderService) confirmPayment(ctx context.Context, req transitionRequest) (*models.Order, error) {
	req.target = constants.OrderStatusPaid
	req.reason = "confirm_payment"
	return s.transition(ctx, req)
}

// StartService 开始服务：PAID -> IN_PROGRESS
func (s *OrderService) StartService(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: orderID,
		target:  constants.OrderStatusInProgress,
		reason:  "start_service",
	})
}

// CompleteService 完成服务：IN_PROGRESS -> COMPLETED，服务方信用同事务加分
func (s *OrderService) CompleteService(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID: orderID,
		target:  constants.OrderStatusCompleted,
		reason:  "complete_service",
	})
}

// CancelOrder 取消订单，仅允许从 PENDING 或 PAID 取消；actorID 为 0 表示系统取消
func (s *OrderService) CancelOrder(ctx context.Context, orderID, actorID uint) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID:     orderID,
		target:      constants.OrderStatusCancelled,
		actorID:     actorID,
		reason:      "cancel_order",
		allowedFrom: []constants.OrderStatus{constants.OrderStatusPending, constants.OrderStatusPaid},
	})
}

// ExpirePendingOrder 待支付超时关闭，仅对 PENDING 订单生效
func (s *OrderService) ExpirePendingOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.transition(ctx, transitionRequest{
		orderID:     orderID,
		target:      constants.OrderStatusCancelled,
		reason:      "pending_timeout",
		allowedFrom: []constants.OrderStatus{constants.OrderStatusPending},
	})
}

// UpdateOrderStatus 通用状态更新入口，按流转表校验并执行对应副作用
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, target constants.OrderStatus, actorID uint) (*models.Order, error) {
	if !target.Valid() {
		return nil, validationErr("order_status", "unknown status")
	}
	return s.transition(ctx, transitionRequest{
		orderID: orderID,
		target:  target,
		actorID: actorID,
		reason:  "update_status",
	})
}

// DeleteOrder 软删除订单，重复删除视为成功
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) error {
	if orderID == 0 {
		return validationErr("order_id", "must be positive")
	}
	repo := s.orderRepo.WithContext(ctx)
	deleted, err := repo.SoftDelete(orderID)
	if err != nil {
		return classifyDBError("delete_order", "order", err)
	}
	if deleted {
		logger.Ctx(ctx).Infow("order_deleted", "order_id", orderID)
		return nil
	}
	raw, err := repo.GetUnscoped(orderID)
	if err != nil {
		return classifyDBError("delete_order", "order", err)
	}
	if raw == nil {
		return notFoundErr("order", orderID)
	}
	return nil
}

func (s *OrderService) transition(ctx context.Context, req transitionRequest) (*models.Order, error) {
	if req.orderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	var result transitionResult
	err := s.orderRepo.Transaction(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(req.orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return notFoundErr("order", req.orderID)
		}
		if err := checkTransition(order.Status, req.target); err != nil {
			return err
		}
		if len(req.allowedFrom) > 0 && !containsStatus(req.allowedFrom, order.Status) {
			return &InvalidTransitionError{Current: order.Status, Target: req.target, Allowed: withoutStatus(AllowedNext(order.Status), req.target)}
		}

		now := time.Now()
		updates := map[string]interface{}{"updated_at": now}
		if column := statusTimestampColumn(req.target); column != "" {
			updates[column] = now
		}
		ok, err := orderRepo.UpdateStatus(order.ID, order.Status, req.target, updates)
		if err != nil {
			return err
		}
		if !ok {
			return conflictErr("order", "status changed concurrently")
		}

		result.from = order.Status
		touched, err := s.applyTransitionEffects(tx, order, req, now)
		if err != nil {
			return err
		}
		result.creditTouched = touched
		order.Status = req.target
		order.UpdatedAt = now
		setStatusTimestamp(order, req.target, now)
		result.order = order
		return nil
	})
	if err != nil {
		return nil, classifyDBError("order_transition", "order", err)
	}

	if result.creditTouched && s.credit != nil {
		s.credit.InvalidateStats(ctx)
	}
	logger.Ctx(ctx).Infow("order_transition",
		"order_id", result.order.ID,
		"from", result.from.String(),
		"to", req.target.String(),
		"actor_id", req.actorID,
		"reason", req.reason,
	)
	s.enqueueTransitionAudit(ctx, result.order.ID, result.from, req.target, req.actorID, req.reason)
	return result.order, nil
}

// applyTransitionEffects 执行流转附带的支付、退款与信用变更，返回是否改动了信用
func (s *OrderService) applyTransitionEffects(tx *gorm.DB, order *models.Order, req transitionRequest, now time.Time) (bool, error) {
	switch req.target {
	case constants.OrderStatusPaid:
		return false, s.settlePayment(tx, order, req, now)
	case constants.OrderStatusCompleted:
		if _, err := s.applyCredit(tx, order.ProviderID, CreditEvents{OrderCompleted: true}); err != nil {
			return false, err
		}
		return true, nil
	case constants.OrderStatusReviewed:
		if req.review == nil {
			return false, nil
		}
		return s.recordReview(tx, order, req.review)
	case constants.OrderStatusCancelled:
		return s.releaseOnCancel(tx, order, req.actorID, now)
	}
	return false, nil
}

func (s *OrderService) settlePayment(tx *gorm.DB, order *models.Order, req transitionRequest, now time.Time) error {
	paymentRepo := s.paymentRepo.WithTx(tx)
	payment, err := paymentRepo.GetActiveByOrderForUpdate(order.ID)
	if err != nil {
		return err
	}
	if payment == nil {
		return conflictErr("payment", "order has no active payment")
	}
	if req.paymentID != 0 && payment.ID != req.paymentID {
		return conflictErr("payment", "payment is not the active payment of the order")
	}
	if payment.Status != constants.PaymentStatusPending {
		return conflictErr("payment", fmt.Sprintf("payment status is %s", payment.Status.Label()))
	}
	updates := map[string]interface{}{
		"paid_at":    now,
		"updated_at": now,
	}
	if req.tradeNo != "" {
		updates["trade_no"] = req.tradeNo
	}
	if req.channel != "" && strings.TrimSpace(payment.PaymentChannel) == "" {
		updates["payment_channel"] = req.channel
	}
	ok, err := paymentRepo.UpdateStatus(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusSuccess, updates)
	if err != nil {
		return err
	}
	if !ok {
		return conflictErr("payment", "payment status changed concurrently")
	}
	return nil
}

// releaseOnCancel 取消时处理支付：未支付则关闭支付，已支付则发起全额退款
func (s *OrderService) releaseOnCancel(tx *gorm.DB, order *models.Order, actorID uint, now time.Time) (bool, error) {
	paymentRepo := s.paymentRepo.WithTx(tx)
	payment, err := paymentRepo.GetActiveByOrderForUpdate(order.ID)
	if err != nil {
		return false, err
	}

	switch {
	case payment == nil:
	case payment.Status == constants.PaymentStatusPending:
		ok, err := paymentRepo.UpdateStatus(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusCancelled, map[string]interface{}{"updated_at": now})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, conflictErr("payment", "payment status changed concurrently")
		}
	case payment.Status == constants.PaymentStatusSuccess:
		refund := &models.Refund{
			RefundNo:     generateRefundNo(),
			PaymentID:    payment.ID,
			RefundAmount: payment.PaymentAmount,
			RefundReason: "订单取消自动退款",
			RefundType:   constants.RefundTypeFull,
			Status:       constants.RefundStatusProcessing,
		}
		if err := paymentRepo.CreateRefund(refund); err != nil {
			return false, err
		}
		ok, err := paymentRepo.UpdateStatus(payment.ID, constants.PaymentStatusSuccess, constants.PaymentStatusRefunding, map[string]interface{}{"updated_at": now})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, conflictErr("payment", "payment status changed concurrently")
		}
	}

	if order.Status != constants.OrderStatusPaid || !order.IsParty(actorID) {
		return false, nil
	}
	if _, err := s.applyCredit(tx, actorID, CreditEvents{CancelPenalty: true}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *OrderService) applyCredit(tx *gorm.DB, userID uint, events CreditEvents) (*models.UserCredit, error) {
	if s.credit == nil {
		return nil, nil
	}
	return s.credit.ApplyEvents(tx, userID, events)
}

func (s *OrderService) enqueueTransitionAudit(ctx context.Context, orderID uint, from, to constants.OrderStatus, actorID uint, reason string) {
	if s.tasks == nil {
		return
	}
	payload := queue.OrderTransitionAuditPayload{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		RequestID:  logger.RequestIDFromContext(ctx),
		OccurredAt: time.Now(),
	}
	if err := s.tasks.EnqueueOrderTransitionAudit(payload); err != nil {
		logger.Ctx(ctx).Warnw("order_transition_audit_enqueue_failed",
			"order_id", orderID,
			"from", from.String(),
			"to", to.String(),
			"error", err,
		)
	}
}

func (s *OrderService) enqueueTimeoutCancel(ctx context.Context, orderID uint) {
	if s.tasks == nil || s.options.PendingTimeout <= 0 {
		return
	}
	payload := queue.OrderTimeoutCancelPayload{OrderID: orderID}
	if err := s.tasks.EnqueueOrderTimeoutCancel(payload, s.options.PendingTimeout); err != nil {
		logger.Ctx(ctx).Warnw("order_timeout_cancel_enqueue_failed", "order_id", orderID, "error", err)
	}
}

func setStatusTimestamp(order *models.Order, target constants.OrderStatus, now time.Time) {
	switch target {
	case constants.OrderStatusPaid:
		order.PaidAt = &now
	case constants.OrderStatusInProgress:
		order.StartedAt = &now
	case constants.OrderStatusCompleted:
		order.CompletedAt = &now
	case constants.OrderStatusReviewed:
		order.ReviewedAt = &now
	case constants.OrderStatusCancelled:
		order.CanceledAt = &now
	}
}

func containsStatus(list []constants.OrderStatus, status constants.OrderStatus) bool {
	for _, item := range list {
		if item == status {
			return true
		}
	}
	return false
}

func withoutStatus(list []constants.OrderStatus, status constants.OrderStatus) []constants.OrderStatus {
	out := make([]constants.OrderStatus, 0, len(list))
	for _, item := range list {
		if item != status {
			out = append(out, item)
		}
	}
	return out
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case constants.PaymentMethodBalance, constants.PaymentMethodAlipay, constants.PaymentMethodWechat, constants.PaymentMethodBank:
		return true
	}
	return false
}

func (s *OrderService) generateOrderNo() string {
	return fmt.Sprintf("%s%s%s", s.options.OrderNoPrefix, time.Now().Format("20060102150405"), randNumeric(6))
}

func generatePaymentNo() string {
	return fmt.Sprintf("P%d%s", time.Now().UnixMilli(), randNumeric(3))
}

func generateRefundNo() string {
	return fmt.Sprintf("R%d%s", time.Now().UnixMilli(), randNumeric(3))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
