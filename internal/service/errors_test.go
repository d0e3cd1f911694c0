package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestClassifyDBError(t *testing.T) {
	plain := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrConflict},
		{"pg unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "idx_orders_order_no"}, ErrConflict},
		{"untranslated driver text", errors.New("UNIQUE constraint failed: orders.order_no"), ErrDatabase},
		{"wrapped duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), ErrConflict},
		{"other", plain, ErrDatabase},
		{"domain passthrough", notFoundErr("order", 1), ErrNotFound},
		{"transition passthrough", &InvalidTransitionError{}, ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyDBError("op", "order", tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("classifyDBError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	if classifyDBError("op", "order", nil) != nil {
		t.Fatalf("nil error should stay nil")
	}
	got := classifyDBError("op", "order", plain)
	var dbErr *DatabaseError
	if !errors.As(got, &dbErr) || !dbErr.Retryable() || !errors.Is(got, plain) {
		t.Fatalf("expected retryable database error wrapping cause, got %v", got)
	}
}

func TestIsLockTimeout(t *testing.T) {
	if !IsLockTimeout(context.DeadlineExceeded) {
		t.Fatalf("deadline exceeded should count as lock timeout")
	}
	if !IsLockTimeout(fmt.Errorf("lock: %w", &pgconn.PgError{Code: pgerrcode.LockNotAvailable})) {
		t.Fatalf("lock_not_available should count as lock timeout")
	}
	if IsLockTimeout(&pgconn.PgError{Code: pgerrcode.UniqueViolation}) {
		t.Fatalf("unique violation is not a lock timeout")
	}
	if IsLockTimeout(errors.New("boom")) {
		t.Fatalf("plain error is not a lock timeout")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := validationErr("order_amount", "must be greater than 0")
	if err.Error() != "order_amount: must be greater than 0" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("validation error must not match not found")
	}
}
