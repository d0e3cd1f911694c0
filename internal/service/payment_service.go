package service

import (
	"context"
	"strings"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/logger"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentConfirmer 支付回调成功后推进订单状态
type PaymentConfirmer interface {
	ConfirmPaymentByCallback(ctx context.Context, orderID, paymentID uint, tradeNo, channel string) (*models.Order, error)
}

// PaymentService 支付子账本服务
type PaymentService struct {
	paymentRepo    repository.PaymentRepository
	orderRepo      repository.OrderRepository
	confirmer      PaymentConfirmer
	callbackSecret string
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, orderRepo repository.OrderRepository, confirmer PaymentConfirmer, callbackSecret string) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		orderRepo:      orderRepo,
		confirmer:      confirmer,
		callbackSecret: callbackSecret,
	}
}

// CreatePaymentInput 创建支付输入
type CreatePaymentInput struct {
	OrderID        uint
	PayerID        uint // 非 0 时必须为订单雇主
	PaymentMethod  string
	PaymentChannel string
	Amount         decimal.Decimal
}

// RefundInput 退款申请输入
type RefundInput struct {
	PaymentID uint
	Amount    decimal.Decimal
	Reason    string
	Type      int
}

// PaymentStatusView 支付状态投影
type PaymentStatusView struct {
	PaymentID              uint                    `json:"payment_id"`
	PaymentNo              string                  `json:"payment_no"`
	PaymentStatus          constants.PaymentStatus `json:"payment_status"`
	PaymentStatusName      string                  `json:"payment_status_name"`
	PaymentAmount          models.Money            `json:"payment_amount"`
	PaymentTime            *time.Time              `json:"payment_time,omitempty"`
	OrderID                uint                    `json:"order_id"`
	OrderNo                string                  `json:"order_no"`
	OrderStatus            constants.OrderStatus   `json:"order_status"`
	OrderStatusName        string                  `json:"order_status_name"`
	HasActiveRefund        bool                    `json:"has_active_refund"`
	ActiveRefundStatus     *constants.RefundStatus `json:"active_refund_status,omitempty"`
	ActiveRefundStatusName string                  `json:"active_refund_status_name,omitempty"`
}

// RefundHistory 退款历史与汇总
type RefundHistory struct {
	PaymentID        uint            `json:"payment_id"`
	Refunds          []models.Refund `json:"refunds"`
	TotalRefunded    models.Money    `json:"total_refunded"`
	ProcessingAmount models.Money    `json:"processing_amount"`
	RefundCount      int             `json:"refund_count"`
}

// CreatePayment 为待支付订单单独创建支付记录
func (s *PaymentService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	if input.OrderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	method := strings.TrimSpace(input.PaymentMethod)
	if !isSupportedPaymentMethod(method) {
		return nil, validationErr("payment_method", "unsupported payment method")
	}
	amount := models.NewMoneyFromDecimal(input.Amount)
	if !amount.IsPositive() {
		return nil, validationErr("payment_amount", "must be greater than 0")
	}
	if !models.HasMoneyPrecision(input.Amount) {
		return nil, validationErr("payment_amount", "must have at most 2 decimal places")
	}

	var payment *models.Payment
	err := s.paymentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		order, err := s.orderRepo.WithTx(tx).GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return notFoundErr("order", input.OrderID)
		}
		if input.PayerID != 0 && order.EmployerID != input.PayerID {
			return validationErr("order_id", "only the employer can pay the order")
		}
		if order.Status != constants.OrderStatusPending {
			return conflictErr("order", "order is not awaiting payment")
		}
		if !amount.Equal(order.OrderAmount) {
			return validationErr("payment_amount", "must equal the order amount")
		}
		paymentRepo := s.paymentRepo.WithTx(tx)
		active, err := paymentRepo.GetActiveByOrderForUpdate(order.ID)
		if err != nil {
			return err
		}
		if active != nil {
			return conflictErr("payment", "order already has an active payment")
		}
		payment = &models.Payment{
			PaymentNo:      generatePaymentNo(),
			OrderID:        order.ID,
			PaymentMethod:  method,
			PaymentChannel: strings.TrimSpace(input.PaymentChannel),
			PaymentAmount:  amount,
			Status:         constants.PaymentStatusPending,
		}
		return paymentRepo.Create(payment)
	})
	if err != nil {
		return nil, classifyDBError("create_payment", "payment", err)
	}
	logger.Ctx(ctx).Infow("payment_created",
		"payment_id", payment.ID,
		"payment_no", payment.PaymentNo,
		"order_id", payment.OrderID,
		"amount", payment.PaymentAmount.String(),
	)
	return payment, nil
}

// CancelPayment 取消待支付记录
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	if paymentID == 0 {
		return nil, validationErr("payment_id", "must be positive")
	}
	var payment *models.Payment
	err := s.paymentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		current, err := repo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundErr("payment", paymentID)
		}
		if current.Status != constants.PaymentStatusPending {
			return conflictErr("payment", "only pending payments can be cancelled")
		}
		now := time.Now()
		ok, err := repo.UpdateStatus(current.ID, constants.PaymentStatusPending, constants.PaymentStatusCancelled, map[string]interface{}{"updated_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return conflictErr("payment", "payment status changed concurrently")
		}
		current.Status = constants.PaymentStatusCancelled
		current.UpdatedAt = now
		payment = current
		return nil
	})
	if err != nil {
		return nil, classifyDBError("cancel_payment", "payment", err)
	}
	logger.Ctx(ctx).Infow("payment_cancelled", "payment_id", payment.ID, "order_id", payment.OrderID)
	return payment, nil
}

// ProcessRefund 对成功支付发起退款，支付进入退款中
func (s *PaymentService) ProcessRefund(ctx context.Context, input RefundInput) (*models.Refund, error) {
	if input.PaymentID == 0 {
		return nil, validationErr("payment_id", "must be positive")
	}
	if input.Type != constants.RefundTypeFull && input.Type != constants.RefundTypePartial {
		return nil, validationErr("refund_type", "must be 1 (full) or 2 (partial)")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, validationErr("refund_reason", "is required")
	}

	var refund *models.Refund
	err := s.paymentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		payment, err := repo.GetByIDForUpdate(input.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return notFoundErr("payment", input.PaymentID)
		}
		if payment.Status != constants.PaymentStatusSuccess {
			return conflictErr("payment", "only successful payments can be refunded")
		}

		if !models.HasMoneyPrecision(input.Amount) {
			return validationErr("refund_amount", "must have at most 2 decimal places")
		}
		amount := models.NewMoneyFromDecimal(input.Amount)
		if input.Type == constants.RefundTypeFull && amount.IsZero() {
			amount = payment.PaymentAmount
		}
		if !amount.IsPositive() {
			return validationErr("refund_amount", "must be greater than 0")
		}
		if amount.GreaterThan(payment.PaymentAmount) {
			return validationErr("refund_amount", "exceeds the payment amount")
		}
		if input.Type == constants.RefundTypeFull && !amount.Equal(payment.PaymentAmount) {
			return validationErr("refund_amount", "full refund must equal the payment amount")
		}

		processing, err := repo.GetProcessingRefund(payment.ID)
		if err != nil {
			return err
		}
		if processing != nil {
			return conflictErr("refund", "a refund is already processing")
		}

		refund = &models.Refund{
			RefundNo:     generateRefundNo(),
			PaymentID:    payment.ID,
			RefundAmount: amount,
			RefundReason: reason,
			RefundType:   input.Type,
			Status:       constants.RefundStatusProcessing,
		}
		if err := repo.CreateRefund(refund); err != nil {
			return err
		}
		ok, err := repo.UpdateStatus(payment.ID, constants.PaymentStatusSuccess, constants.PaymentStatusRefunding, map[string]interface{}{"updated_at": time.Now()})
		if err != nil {
			return err
		}
		if !ok {
			return conflictErr("payment", "payment status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, classifyDBError("process_refund", "refund", err)
	}
	logger.Ctx(ctx).Infow("refund_created",
		"refund_id", refund.ID,
		"refund_no", refund.RefundNo,
		"payment_id", refund.PaymentID,
		"amount", refund.RefundAmount.String(),
	)
	return refund, nil
}

// ResolveRefund 处理中的退款结案；失败或取消时支付恢复为成功
func (s *PaymentService) ResolveRefund(ctx context.Context, refundID uint, target constants.RefundStatus) (*models.Refund, error) {
	if refundID == 0 {
		return nil, validationErr("refund_id", "must be positive")
	}
	switch target {
	case constants.RefundStatusSuccess, constants.RefundStatusFailed, constants.RefundStatusCancelled:
	default:
		return nil, validationErr("refund_status", "must be success, failed or cancelled")
	}

	var refund *models.Refund
	err := s.paymentRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.paymentRepo.WithTx(tx)
		current, err := repo.GetRefundByIDForUpdate(refundID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundErr("refund", refundID)
		}
		if current.Status != constants.RefundStatusProcessing {
			return conflictErr("refund", "refund is not processing")
		}
		payment, err := repo.GetByIDForUpdate(current.PaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return notFoundErr("payment", current.PaymentID)
		}

		now := time.Now()
		ok, err := repo.UpdateRefundStatus(current.ID, constants.RefundStatusProcessing, target, map[string]interface{}{
			"processed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return conflictErr("refund", "refund status changed concurrently")
		}
		if target != constants.RefundStatusSuccess && payment.Status == constants.PaymentStatusRefunding {
			if _, err := repo.UpdateStatus(payment.ID, constants.PaymentStatusRefunding, constants.PaymentStatusSuccess, map[string]interface{}{"updated_at": now}); err != nil {
				return err
			}
		}
		current.Status = target
		current.ProcessedAt = &now
		current.UpdatedAt = now
		refund = current
		return nil
	})
	if err != nil {
		return nil, classifyDBError("resolve_refund", "refund", err)
	}
	logger.Ctx(ctx).Infow("refund_resolved", "refund_id", refund.ID, "payment_id", refund.PaymentID, "status", refund.Status.Label())
	return refund, nil
}

// GetPayment 获取支付记录及退款
func (s *PaymentService) GetPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	if paymentID == 0 {
		return nil, validationErr("payment_id", "must be positive")
	}
	payment, err := s.paymentRepo.WithContext(ctx).GetByIDWithRefunds(paymentID)
	if err != nil {
		return nil, classifyDBError("get_payment", "payment", err)
	}
	if payment == nil {
		return nil, notFoundErr("payment", paymentID)
	}
	return payment, nil
}

// GetPaymentByOrder 获取订单最近一笔支付
func (s *PaymentService) GetPaymentByOrder(ctx context.Context, orderID uint) (*models.Payment, error) {
	if orderID == 0 {
		return nil, validationErr("order_id", "must be positive")
	}
	payment, err := s.paymentRepo.WithContext(ctx).GetLatestByOrder(orderID)
	if err != nil {
		return nil, classifyDBError("get_payment_by_order", "payment", err)
	}
	if payment == nil {
		return nil, notFoundErr("payment", orderID)
	}
	return payment, nil
}

// ListPayments 支付列表
func (s *PaymentService) ListPayments(ctx context.Context, filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, validationErr("payment_status", "unknown status")
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)
	payments, total, err := s.paymentRepo.WithContext(ctx).List(filter)
	if err != nil {
		return nil, 0, classifyDBError("list_payments", "payment", err)
	}
	return payments, total, nil
}

// GetPaymentStatus 支付状态及关联订单、退款概况
func (s *PaymentService) GetPaymentStatus(ctx context.Context, paymentID uint) (*PaymentStatusView, error) {
	if paymentID == 0 {
		return nil, validationErr("payment_id", "must be positive")
	}
	repo := s.paymentRepo.WithContext(ctx)
	payment, err := repo.GetByID(paymentID)
	if err != nil {
		return nil, classifyDBError("get_payment_status", "payment", err)
	}
	if payment == nil {
		return nil, notFoundErr("payment", paymentID)
	}
	view := &PaymentStatusView{
		PaymentID:         payment.ID,
		PaymentNo:         payment.PaymentNo,
		PaymentStatus:     payment.Status,
		PaymentStatusName: payment.Status.Label(),
		PaymentAmount:     payment.PaymentAmount,
		PaymentTime:       payment.PaidAt,
		OrderID:           payment.OrderID,
	}

	order, err := s.orderRepo.WithContext(ctx).GetByID(payment.OrderID)
	if err != nil {
		return nil, classifyDBError("get_payment_status", "order", err)
	}
	if order != nil {
		view.OrderNo = order.OrderNo
		view.OrderStatus = order.Status
		view.OrderStatusName = order.Status.Label()
	}

	refund, err := repo.GetLatestOpenRefund(payment.ID)
	if err != nil {
		return nil, classifyDBError("get_payment_status", "refund", err)
	}
	if refund != nil {
		status := refund.Status
		view.HasActiveRefund = true
		view.ActiveRefundStatus = &status
		view.ActiveRefundStatusName = status.Label()
	}
	return view, nil
}

// GetRefundHistory 退款历史及金额汇总
func (s *PaymentService) GetRefundHistory(ctx context.Context, paymentID uint) (*RefundHistory, error) {
	if paymentID == 0 {
		return nil, validationErr("payment_id", "must be positive")
	}
	repo := s.paymentRepo.WithContext(ctx)
	payment, err := repo.GetByID(paymentID)
	if err != nil {
		return nil, classifyDBError("refund_history", "payment", err)
	}
	if payment == nil {
		return nil, notFoundErr("payment", paymentID)
	}
	refunds, err := repo.ListRefunds(paymentID)
	if err != nil {
		return nil, classifyDBError("refund_history", "refund", err)
	}
	refunded := decimal.Zero
	processing := decimal.Zero
	for _, refund := range refunds {
		switch refund.Status {
		case constants.RefundStatusSuccess:
			refunded = refunded.Add(refund.RefundAmount.Decimal)
		case constants.RefundStatusProcessing:
			processing = processing.Add(refund.RefundAmount.Decimal)
		}
	}
	return &RefundHistory{
		PaymentID:        paymentID,
		Refunds:          refunds,
		TotalRefunded:    models.NewMoneyFromDecimal(refunded),
		ProcessingAmount: models.NewMoneyFromDecimal(processing),
		RefundCount:      len(refunds),
	}, nil
}

// PaymentBelongsTo 判断支付所属订单是否由该用户雇佣或提供服务
func (s *PaymentService) PaymentBelongsTo(ctx context.Context, payment *models.Payment, userID uint) (bool, error) {
	if payment == nil {
		return false, nil
	}
	order, err := s.orderRepo.WithContext(ctx).GetByID(payment.OrderID)
	if err != nil {
		return false, classifyDBError("get_order", "order", err)
	}
	return order.IsParty(userID), nil
}
