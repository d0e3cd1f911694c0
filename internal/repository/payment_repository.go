package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository 支付与退款数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	GetByIDForUpdate(id uint) (*models.Payment, error)
	GetByIDWithRefunds(id uint) (*models.Payment, error)
	GetByPaymentNo(paymentNo string) (*models.Payment, error)
	GetByPaymentNoForUpdate(paymentNo string) (*models.Payment, error)
	GetActiveByOrderForUpdate(orderID uint) (*models.Payment, error)
	GetLatestByOrder(orderID uint) (*models.Payment, error)
	List(filter PaymentListFilter) ([]models.Payment, int64, error)
	UpdateStatus(id uint, from, to constants.PaymentStatus, updates map[string]interface{}) (bool, error)
	CreateRefund(refund *models.Refund) error
	GetRefundByIDForUpdate(id uint) (*models.Refund, error)
	GetProcessingRefund(paymentID uint) (*models.Refund, error)
	GetLatestOpenRefund(paymentID uint) (*models.Refund, error)
	ListRefunds(paymentID uint) ([]models.Refund, error)
	UpdateRefundStatus(id uint, from, to constants.RefundStatus, updates map[string]interface{}) (bool, error)
	GroupByStatus() ([]PaymentGroupStat, error)
	GroupByMethod() ([]PaymentGroupStat, error)
	Aggregate(from, to *time.Time) (PaymentAggregate, error)
	DailyStats(from, to time.Time) ([]PaymentDailyStat, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPaymentRepository
	WithContext(ctx context.Context) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormPaymentRepository) WithContext(ctx context.Context) *GormPaymentRepository {
	if ctx == nil {
		return r
	}
	return &GormPaymentRepository{db: r.db.WithContext(ctx)}
}

// Transaction 在同一事务中执行
func (r *GormPaymentRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Omit(clause.Associations).Create(payment).Error
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	return firstPayment(r.db.Where("id = ?", id))
}

// GetByIDForUpdate 行锁读取支付记录
func (r *GormPaymentRepository) GetByIDForUpdate(id uint) (*models.Payment, error) {
	return firstPayment(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetByIDWithRefunds 获取支付记录及退款历史
func (r *GormPaymentRepository) GetByIDWithRefunds(id uint) (*models.Payment, error) {
	query := r.db.Preload("Refunds", func(db *gorm.DB) *gorm.DB {
		return db.Order("id desc")
	}).Where("id = ?", id)
	return firstPayment(query)
}

// GetByPaymentNo 根据支付流水号读取
func (r *GormPaymentRepository) GetByPaymentNo(paymentNo string) (*models.Payment, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, nil
	}
	return firstPayment(r.db.Where("payment_no = ?", paymentNo))
}

// GetByPaymentNoForUpdate 根据支付流水号行锁读取
func (r *GormPaymentRepository) GetByPaymentNoForUpdate(paymentNo string) (*models.Payment, error) {
	paymentNo = strings.TrimSpace(paymentNo)
	if paymentNo == "" {
		return nil, nil
	}
	return firstPayment(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("payment_no = ?", paymentNo))
}

// GetActiveByOrderForUpdate 行锁读取订单当前有效支付（未取消、未失败、未退款）
func (r *GormPaymentRepository) GetActiveByOrderForUpdate(orderID uint) (*models.Payment, error) {
	query := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND payment_status NOT IN ?", orderID, []constants.PaymentStatus{
			constants.PaymentStatusCancelled,
			constants.PaymentStatusRefunding,
			constants.PaymentStatusFailed,
		}).
		Order("id desc")
	return firstPayment(query)
}

// GetLatestByOrder 获取订单最近一条支付记录
func (r *GormPaymentRepository) GetLatestByOrder(orderID uint) (*models.Payment, error) {
	return firstPayment(r.db.Where("order_id = ?", orderID).Order("id desc"))
}

func firstPayment(query *gorm.DB) (*models.Payment, error) {
	var payment models.Payment
	if err := query.First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// List 支付记录列表
func (r *GormPaymentRepository) List(filter PaymentListFilter) ([]models.Payment, int64, error) {
	query := r.db.Model(&models.Payment{})
	if filter.UserID != 0 {
		query = query.Where("order_id IN (?)", r.db.Model(&models.Order{}).Select("id").Where("employer_id = ?", filter.UserID))
	}
	if filter.Status != nil {
		query = query.Where("payment_status = ?", *filter.Status)
	}
	if method := strings.TrimSpace(filter.PaymentMethod); method != "" {
		query = query.Where("payment_method = ?", method)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var payments []models.Payment
	if err := query.Order("id desc").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// UpdateStatus 条件更新支付状态
func (r *GormPaymentRepository) UpdateStatus(id uint, from, to constants.PaymentStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["payment_status"] = to
	result := r.db.Model(&models.Payment{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateRefund 创建退款记录
func (r *GormPaymentRepository) CreateRefund(refund *models.Refund) error {
	return r.db.Create(refund).Error
}

// GetRefundByIDForUpdate 行锁读取退款记录
func (r *GormPaymentRepository) GetRefundByIDForUpdate(id uint) (*models.Refund, error) {
	return firstRefund(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetProcessingRefund 获取处理中的退款
func (r *GormPaymentRepository) GetProcessingRefund(paymentID uint) (*models.Refund, error) {
	return firstRefund(r.db.Where("payment_id = ? AND refund_status = ?", paymentID, constants.RefundStatusProcessing))
}

// GetLatestOpenRefund 获取最近一条未取消的退款
func (r *GormPaymentRepository) GetLatestOpenRefund(paymentID uint) (*models.Refund, error) {
	query := r.db.Where("payment_id = ? AND refund_status <> ?", paymentID, constants.RefundStatusCancelled).
		Order("id desc")
	return firstRefund(query)
}

func firstRefund(query *gorm.DB) (*models.Refund, error) {
	var refund models.Refund
	if err := query.First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// ListRefunds 退款历史（新到旧）
func (r *GormPaymentRepository) ListRefunds(paymentID uint) ([]models.Refund, error) {
	var refunds []models.Refund
	if err := r.db.Where("payment_id = ?", paymentID).Order("id desc").Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// UpdateRefundStatus 条件更新退款状态
func (r *GormPaymentRepository) UpdateRefundStatus(id uint, from, to constants.RefundStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["refund_status"] = to
	result := r.db.Model(&models.Refund{}).
		Where("id = ? AND refund_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type paymentGroupRow struct {
	GroupKey    string
	Count       int64
	TotalAmount float64
}

// GroupByStatus 按支付状态汇总
func (r *GormPaymentRepository) GroupByStatus() ([]PaymentGroupStat, error) {
	return r.groupBy("payment_status", "payment_status asc")
}

// GroupByMethod 按支付方式汇总
func (r *GormPaymentRepository) GroupByMethod() ([]PaymentGroupStat, error) {
	return r.groupBy("payment_method", "total_amount desc")
}

func (r *GormPaymentRepository) groupBy(column, order string) ([]PaymentGroupStat, error) {
	var rows []paymentGroupRow
	err := r.db.Model(&models.Payment{}).
		Select(column + " AS group_key, COUNT(*) AS count, COALESCE(SUM(payment_amount), 0) AS total_amount").
		Group(column).
		Order(order).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make([]PaymentGroupStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, PaymentGroupStat{
			Key:         row.GroupKey,
			Count:       row.Count,
			TotalAmount: roundAmount(row.TotalAmount),
		})
	}
	return stats, nil
}

type paymentAggregateRow struct {
	Count       int64
	TotalAmount float64
	AvgAmount   float64
	MinAmount   float64
	MaxAmount   float64
	ActiveDays  int64
}

// Aggregate 区间内支付汇总，from/to 为空表示不限
func (r *GormPaymentRepository) Aggregate(from, to *time.Time) (PaymentAggregate, error) {
	query := r.db.Model(&models.Payment{})
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}
	var row paymentAggregateRow
	err := query.Select(
		"COUNT(*) AS count, " +
			"COALESCE(SUM(payment_amount), 0) AS total_amount, " +
			"COALESCE(AVG(payment_amount), 0) AS avg_amount, " +
			"COALESCE(MIN(payment_amount), 0) AS min_amount, " +
			"COALESCE(MAX(payment_amount), 0) AS max_amount, " +
			"COUNT(DISTINCT " + dateExpr(r.db, "created_at") + ") AS active_days",
	).Scan(&row).Error
	if err != nil {
		return PaymentAggregate{}, err
	}
	return PaymentAggregate{
		Count:       row.Count,
		TotalAmount: roundAmount(row.TotalAmount),
		AvgAmount:   roundAmount(row.AvgAmount),
		MinAmount:   roundAmount(row.MinAmount),
		MaxAmount:   roundAmount(row.MaxAmount),
		ActiveDays:  row.ActiveDays,
	}, nil
}

type paymentDailyRow struct {
	Day           string
	PaymentCount  int64
	TotalAmount   float64
	SuccessCount  int64
	SuccessAmount float64
	FailedCount   int64
	FailedAmount  float64
}

// DailyStats 按日统计支付（新到旧）
func (r *GormPaymentRepository) DailyStats(from, to time.Time) ([]PaymentDailyStat, error) {
	day := dateExpr(r.db, "created_at")
	success := strconv.Itoa(int(constants.PaymentStatusSuccess))
	failed := strconv.Itoa(int(constants.PaymentStatusFailed))

	var rows []paymentDailyRow
	err := r.db.Model(&models.Payment{}).
		Select(day+" AS day, "+
			"COUNT(*) AS payment_count, "+
			"COALESCE(SUM(payment_amount), 0) AS total_amount, "+
			"COUNT(CASE WHEN payment_status = "+success+" THEN 1 END) AS success_count, "+
			"COALESCE(SUM(CASE WHEN payment_status = "+success+" THEN payment_amount ELSE 0 END), 0) AS success_amount, "+
			"COUNT(CASE WHEN payment_status = "+failed+" THEN 1 END) AS failed_count, "+
			"COALESCE(SUM(CASE WHEN payment_status = "+failed+" THEN payment_amount ELSE 0 END), 0) AS failed_amount").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group(day).
		Order("day desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make([]PaymentDailyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, PaymentDailyStat{
			Date:          row.Day,
			PaymentCount:  row.PaymentCount,
			TotalAmount:   roundAmount(row.TotalAmount),
			SuccessCount:  row.SuccessCount,
			SuccessAmount: roundAmount(row.SuccessAmount),
			FailedCount:   row.FailedCount,
			FailedAmount:  roundAmount(row.FailedAmount),
		})
	}
	return stats, nil
}
