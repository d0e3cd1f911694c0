package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skill-exchange/internal/constants"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// 错误类别哨兵，供调用方 errors.Is 判断
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrConflict          = errors.New("resource conflict")
	ErrDatabase          = errors.New("database error")
)

// ValidationError 参数校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 匹配 ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError 资源不存在
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// Is 匹配 ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError 非法状态流转，Allowed 为当前状态可达的下一状态
type InvalidTransitionError struct {
	Current constants.OrderStatus
	Target  constants.OrderStatus
	Allowed []constants.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	names := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		names = append(names, s.String())
	}
	return fmt.Sprintf("cannot transition order from %s to %s (allowed: [%s])", e.Current, e.Target, strings.Join(names, ", "))
}

// Is 匹配 ErrInvalidTransition
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConflictError 唯一约束或业务前置条件冲突
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// Is 匹配 ErrConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// DatabaseError 存储层故障，调用方可重试
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *DatabaseError) Unwrap() error { return e.Err }

// Is 匹配 ErrDatabase
func (e *DatabaseError) Is(target error) bool { return target == ErrDatabase }

// Retryable 存储错误一律视为可重试
func (e *DatabaseError) Retryable() bool { return true }

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func notFoundErr(resource string, id interface{}) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func conflictErr(resource, message string) error {
	return &ConflictError{Resource: resource, Message: message}
}

// classifyDBError 将存储错误归类为领域错误，已归类的错误原样返回
func classifyDBError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return conflictErr(resource, "duplicate key")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return conflictErr(resource, pgErr.ConstraintName)
	}
	return &DatabaseError{Op: op, Err: err}
}

// IsLockTimeout 是否为锁等待超时或查询被取消
func IsLockTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.LockNotAvailable, pgerrcode.QueryCanceled,
		pgerrcode.DeadlockDetected, pgerrcode.SerializationFailure:
		return true
	}
	return false
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDatabase)
}
