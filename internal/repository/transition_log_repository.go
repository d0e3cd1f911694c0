package repository

import (
	"context"

	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
)

// TransitionLogRepository 订单状态流转日志数据访问接口
type TransitionLogRepository interface {
	Create(log *models.OrderTransitionLog) error
	ListByOrder(orderID uint, page, pageSize int) ([]models.OrderTransitionLog, int64, error)
	WithContext(ctx context.Context) *GormTransitionLogRepository
}

// GormTransitionLogRepository GORM 实现
type GormTransitionLogRepository struct {
	db *gorm.DB
}

// NewTransitionLogRepository 创建流转日志仓库
func NewTransitionLogRepository(db *gorm.DB) *GormTransitionLogRepository {
	return &GormTransitionLogRepository{db: db}
}

// WithContext 绑定请求上下文
func (r *GormTransitionLogRepository) WithContext(ctx context.Context) *GormTransitionLogRepository {
	if ctx == nil {
		return r
	}
	return &GormTransitionLogRepository{db: r.db.WithContext(ctx)}
}

// Create 写入流转日志
func (r *GormTransitionLogRepository) Create(log *models.OrderTransitionLog) error {
	return r.db.Create(log).Error
}

// ListByOrder 按时间正序列出订单流转记录，orderID 为 0 时返回全部
func (r *GormTransitionLogRepository) ListByOrder(orderID uint, page, pageSize int) ([]models.OrderTransitionLog, int64, error) {
	query := r.db.Model(&models.OrderTransitionLog{})
	if orderID != 0 {
		query = query.Where("order_id = ?", orderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, page, pageSize)

	var logs []models.OrderTransitionLog
	if err := query.Order("occurred_at asc, id asc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
