package models

import (
	"errors"
	"strings"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const defaultAdminPassword = "admin123"

// InitDefaultAdmin 初始化默认管理员账号，已存在管理员时跳过
func InitDefaultAdmin(db *gorm.DB, username, password string) (*User, error) {
	var existing User
	err := db.Where("role = ?", constants.UserRoleAdmin).Order("id asc").First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}
	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	admin := User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         constants.UserRoleAdmin,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
	} else {
		logger.Infow("default_admin_created", "username", username)
	}
	return &admin, nil
}

// CheckPassword 校验明文密码与哈希是否匹配
func (u *User) CheckPassword(password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
