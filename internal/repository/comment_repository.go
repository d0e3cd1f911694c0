package repository

import (
	"context"
	"errors"

	"github.com/skill-exchange/internal/models"

	"gorm.io/gorm"
)

// CommentRepository 评论数据访问接口
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByID(id uint) (*models.Comment, error)
	List(filter CommentListFilter) ([]models.Comment, int64, error)
	UpdateContent(id uint, content string) (bool, error)
	SoftDelete(id uint) (bool, error)
	CreateReply(reply *models.CommentReply) error
	HasReview(orderID uint) (bool, error)
	WithTx(tx *gorm.DB) *GormCommentRepository
	WithContext(ctx context.Context) *GormCommentRepository
}

// GormCommentRepository GORM 实现
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommentRepository) WithTx(tx *gorm.DB) *GormCommentRepository {
	if tx == nil {
		return r
	}
	return &GormCommentRepository{db: tx}
}

// WithContext 绑定请求上下文
func (r *GormCommentRepository) WithContext(ctx context.Context) *GormCommentRepository {
	if ctx == nil {
		return r
	}
	return &GormCommentRepository{db: r.db.WithContext(ctx)}
}

// Create 创建评论
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Omit("Replies").Create(comment).Error
}

// GetByID 获取评论及回复
func (r *GormCommentRepository) GetByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("Replies", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// List 评论列表（新到旧）
func (r *GormCommentRepository) List(filter CommentListFilter) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var comments []models.Comment
	if err := query.Order("id desc").Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// UpdateContent 更新评论内容
func (r *GormCommentRepository) UpdateContent(id uint, content string) (bool, error) {
	result := r.db.Model(&models.Comment{}).Where("id = ?", id).Update("content", content)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SoftDelete 软删除评论
func (r *GormCommentRepository) SoftDelete(id uint) (bool, error) {
	result := r.db.Delete(&models.Comment{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateReply 创建评论回复
func (r *GormCommentRepository) CreateReply(reply *models.CommentReply) error {
	return r.db.Create(reply).Error
}

// HasReview 订单是否已有评价
func (r *GormCommentRepository) HasReview(orderID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Comment{}).
		Where("order_id = ? AND is_review = ?", orderID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
