package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment 订单评论（带评分时即为雇主评价）
type Comment struct {
	ID        uint           `gorm:"primarykey" json:"comment_id"`
	OrderID   uint           `gorm:"index;not null" json:"order_id"`              // 订单ID
	UserID    uint           `gorm:"index;not null" json:"user_id"`               // 评论人
	Content   string         `gorm:"type:text;not null" json:"content"`           // 内容
	Rating    *int           `json:"rating,omitempty"`                            // 评分 1-5（评价时填写）
	IsReview  bool           `gorm:"not null;default:false;index" json:"is_review"` // 是否为订单评价
	CreatedAt time.Time      `gorm:"index" json:"created_time"`
	UpdatedAt time.Time      `json:"updated_time"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Replies []CommentReply `gorm:"foreignKey:CommentID" json:"replies,omitempty"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}

// CommentReply 评论回复
type CommentReply struct {
	ID        uint      `gorm:"primarykey" json:"reply_id"`
	CommentID uint      `gorm:"index;not null" json:"comment_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_time"`
}

// TableName 指定表名
func (CommentReply) TableName() string {
	return "comment_replies"
}
