package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户表（仅保留交易链路需要的身份字段）
type User struct {
	ID           uint           `gorm:"primarykey" json:"user_id"`                     // 主键
	Username     string         `gorm:"uniqueIndex;size:64;not null" json:"username"`  // 用户名
	Email        string         `gorm:"size:128;index" json:"email"`                   // 邮箱
	PasswordHash string         `gorm:"not null" json:"-"`                             // 密码哈希（不返回给前端）
	Role         string         `gorm:"size:20;not null;default:'user'" json:"role"`   // 角色 user/admin
	Status       string         `gorm:"size:20;not null;default:'active'" json:"status"` // 账号状态
	CreatedAt    time.Time      `gorm:"index" json:"created_time"`
	UpdatedAt    time.Time      `json:"updated_time"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
