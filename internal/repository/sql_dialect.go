package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// dateExpr 构建按日截断的表达式，兼容 sqlite 与 postgres。
func dateExpr(db *gorm.DB, column string) string {
	return dateExprByDialect(dbDialectName(db), column)
}

func dateExprByDialect(dialect, column string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
	default:
		// sqlite 的时间以文本存储，取前 10 位即日期
		return fmt.Sprintf("substr(%s, 1, 10)", column)
	}
}
