package repository

import (
	"context"
	"errors"

	"github.com/skill-exchange/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditRepository 用户信用数据访问接口
type CreditRepository interface {
	GetByUserID(userID uint) (*models.UserCredit, error)
	GetByUserIDForUpdate(userID uint) (*models.UserCredit, error)
	Create(credit *models.UserCredit) error
	CreateIfAbsent(credit *models.UserCredit) error
	Save(credit *models.UserCredit) error
	Ranking(filter CreditRankingFilter) ([]CreditRankRow, int64, error)
	Stats() (CreditStatsRow, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormCreditRepository
	WithContext(ctx context.Context) *GormCreditRepository
}

// GormCreditRepository GORM 实现
type GormCreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository 创建信用仓库
func NewCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCreditRepository) WithTx(tx *gorm.DB) *GormCreditRepository {
	if tx == nil {
		return r
	}
	return &GormCreditRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormCreditRepository) WithContext(ctx context.Context) *GormCreditRepository {
	if ctx == nil {
		return r
	}
	return &GormCreditRepository{db: r.db.WithContext(ctx)}
}

// Transaction 在同一事务中执行
func (r *GormCreditRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// GetByUserID 获取用户信用档案
func (r *GormCreditRepository) GetByUserID(userID uint) (*models.UserCredit, error) {
	return firstCredit(r.db, userID)
}

// GetByUserIDForUpdate 行锁读取用户信用档案
func (r *GormCreditRepository) GetByUserIDForUpdate(userID uint) (*models.UserCredit, error) {
	return firstCredit(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func firstCredit(query *gorm.DB, userID uint) (*models.UserCredit, error) {
	if userID == 0 {
		return nil, nil
	}
	var credit models.UserCredit
	if err := query.Where("user_id = ?", userID).First(&credit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credit, nil
}

// Create 创建信用档案
func (r *GormCreditRepository) Create(credit *models.UserCredit) error {
	return r.db.Create(credit).Error
}

// CreateIfAbsent 档案不存在时插入，已存在则忽略
func (r *GormCreditRepository) CreateIfAbsent(credit *models.UserCredit) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(credit).Error
}

// Save 写回分数与计数器
func (r *GormCreditRepository) Save(credit *models.UserCredit) error {
	return r.db.Model(&models.UserCredit{}).
		Where("id = ?", credit.ID).
		Updates(map[string]interface{}{
			"credit_score":     credit.CreditScore,
			"total_orders":     credit.TotalOrders,
			"completed_orders": credit.CompletedOrders,
			"positive_reviews": credit.PositiveReviews,
			"negative_reviews": credit.NegativeReviews,
			"updated_at":       credit.UpdatedAt,
		}).Error
}

// Ranking 信用排行：分数降序，同分按完成订单数降序
func (r *GormCreditRepository) Ranking(filter CreditRankingFilter) ([]CreditRankRow, int64, error) {
	minScore := filter.MinScore.InexactFloat64()
	base := func() *gorm.DB {
		return r.db.Model(&models.UserCredit{}).
			Where("user_credits.total_orders >= ? AND user_credits.credit_score >= ?", filter.MinOrders, minScore)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base().
		Select("user_credits.*, users.username AS username").
		Joins("LEFT JOIN users ON users.id = user_credits.user_id").
		Order("user_credits.credit_score DESC").
		Order("user_credits.completed_orders DESC").
		Order("user_credits.user_id ASC")
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []CreditRankRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type creditStatsScan struct {
	TotalUsers  int64
	ActiveUsers int64
	AvgScore    *float64
	Excellent   int64
	Good        int64
	Average     int64
	Poor        int64
	Bad         int64
}

// Stats 信用统计：总人数、活跃人数与活跃用户分布
func (r *GormCreditRepository) Stats() (CreditStatsRow, error) {
	var scan creditStatsScan
	err := r.db.Model(&models.UserCredit{}).Select(
		"COUNT(*) AS total_users, " +
			"COUNT(CASE WHEN total_orders > 0 THEN 1 END) AS active_users, " +
			"AVG(CASE WHEN total_orders > 0 THEN credit_score END) AS avg_score, " +
			"COUNT(CASE WHEN total_orders > 0 AND credit_score >= 90 THEN 1 END) AS excellent, " +
			"COUNT(CASE WHEN total_orders > 0 AND credit_score >= 80 AND credit_score < 90 THEN 1 END) AS good, " +
			"COUNT(CASE WHEN total_orders > 0 AND credit_score >= 70 AND credit_score < 80 THEN 1 END) AS average, " +
			"COUNT(CASE WHEN total_orders > 0 AND credit_score >= 60 AND credit_score < 70 THEN 1 END) AS poor, " +
			"COUNT(CASE WHEN total_orders > 0 AND credit_score < 60 THEN 1 END) AS bad",
	).Scan(&scan).Error
	if err != nil {
		return CreditStatsRow{}, err
	}
	row := CreditStatsRow{
		TotalUsers:  scan.TotalUsers,
		ActiveUsers: scan.ActiveUsers,
		Excellent:   scan.Excellent,
		Good:        scan.Good,
		Average:     scan.Average,
		Poor:        scan.Poor,
		Bad:         scan.Bad,
	}
	if scan.AvgScore != nil {
		row.AvgScore = decimal.NewNullDecimal(decimal.NewFromFloat(*scan.AvgScore))
	}
	return row, nil
}
