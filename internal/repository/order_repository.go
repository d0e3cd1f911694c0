package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetDetail(id uint) (*models.Order, error)
	GetUnscoped(id uint) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateStatus(id uint, from, to constants.OrderStatus, updates map[string]interface{}) (bool, error)
	SoftDelete(id uint) (bool, error)
	StatusSummary(filter OrderStatsFilter) ([]OrderStatusStat, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormOrderRepository
	WithContext(ctx context.Context) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormOrderRepository) WithContext(ctx context.Context) *GormOrderRepository {
	if ctx == nil {
		return r
	}
	return &GormOrderRepository{db: r.db.WithContext(ctx)}
}

// Transaction 在同一事务中执行
func (r *GormOrderRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Omit(clause.Associations).Create(order).Error
}

// GetByID 获取未删除订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 行锁读取订单（事务内使用）
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

// GetDetail 获取订单及其支付记录
func (r *GormOrderRepository) GetDetail(id uint) (*models.Order, error) {
	query := r.db.Preload("Payments", func(db *gorm.DB) *gorm.DB {
		return db.Order("id desc")
	})
	return r.first(query, id)
}

// GetUnscoped 读取订单（包含已软删除）
func (r *GormOrderRepository) GetUnscoped(id uint) (*models.Order, error) {
	return r.first(r.db.Unscoped(), id)
}

func (r *GormOrderRepository) first(query *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := query.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.applyListFilter(r.db.Model(&models.Order{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormOrderRepository) applyListFilter(query *gorm.DB, filter OrderListFilter) *gorm.DB {
	query = applyPartyFilter(query, filter.UserID, filter.Role)
	if filter.EmployerID != 0 {
		query = query.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.ProviderID != 0 {
		query = query.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.Status != 0 {
		query = query.Where("order_status = ?", filter.Status)
	}
	if no := strings.TrimSpace(filter.OrderNo); no != "" {
		query = query.Where("order_no LIKE ?", "%"+no+"%")
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func applyPartyFilter(query *gorm.DB, userID uint, role string) *gorm.DB {
	if userID == 0 {
		return query
	}
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.OrderRoleEmployer:
		return query.Where("employer_id = ?", userID)
	case constants.OrderRoleProvider:
		return query.Where("provider_id = ?", userID)
	default:
		return query.Where("(employer_id = ? OR provider_id = ?)", userID, userID)
	}
}

// UpdateStatus 条件更新订单状态，仅当当前状态仍为 from 时生效
func (r *GormOrderRepository) UpdateStatus(id uint, from, to constants.OrderStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["order_status"] = to
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete 软删除订单，返回是否实际删除
func (r *GormOrderRepository) SoftDelete(id uint) (bool, error) {
	result := r.db.Delete(&models.Order{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// StatusSummary 按状态汇总订单数量与金额
func (r *GormOrderRepository) StatusSummary(filter OrderStatsFilter) ([]OrderStatusStat, error) {
	query := applyPartyFilter(r.db.Model(&models.Order{}), filter.UserID, filter.Role)
	var rows []OrderStatusStat
	err := query.
		Select("order_status AS status, COUNT(*) AS count, COALESCE(SUM(order_amount), 0) AS total_amount").
		Group("order_status").
		Order("order_status asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
