package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/skill-exchange/internal/constants"
)

func TestTransitionTableIsClosed(t *testing.T) {
	expected := map[constants.OrderStatus][]constants.OrderStatus{
		constants.OrderStatusPending:    {constants.OrderStatusPaid, constants.OrderStatusCancelled},
		constants.OrderStatusPaid:       {constants.OrderStatusInProgress, constants.OrderStatusCancelled},
		constants.OrderStatusInProgress: {constants.OrderStatusCompleted, constants.OrderStatusCancelled},
		constants.OrderStatusCompleted:  {constants.OrderStatusReviewed},
		constants.OrderStatusReviewed:   nil,
		constants.OrderStatusCancelled:  nil,
	}
	all := constants.AllOrderStatuses()
	for _, from := range all {
		allowed := expected[from]
		for _, to := range all {
			want := containsStatus(allowed, to)
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
		if IsTerminal(from) != (len(allowed) == 0) {
			t.Fatalf("IsTerminal(%s) mismatch", from)
		}
	}
	if CanTransition(constants.OrderStatus(0), constants.OrderStatusPaid) {
		t.Fatalf("unknown status must not transition")
	}
	if IsTerminal(constants.OrderStatus(99)) {
		t.Fatalf("unknown status must not be terminal")
	}
}

func TestAllowedNextReturnsCopy(t *testing.T) {
	next := AllowedNext(constants.OrderStatusPending)
	next[0] = constants.OrderStatusReviewed
	if !CanTransition(constants.OrderStatusPending, constants.OrderStatusPaid) {
		t.Fatalf("mutating AllowedNext result leaked into the table")
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := checkTransition(constants.OrderStatusCompleted, constants.OrderStatusCancelled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if len(transitionErr.Allowed) != 1 || transitionErr.Allowed[0] != constants.OrderStatusReviewed {
		t.Fatalf("unexpected allowed list: %v", transitionErr.Allowed)
	}
	if !strings.Contains(err.Error(), "completed") || !strings.Contains(err.Error(), "reviewed") {
		t.Fatalf("error message should name statuses: %s", err.Error())
	}
	if err := checkTransition(constants.OrderStatusPaid, constants.OrderStatusInProgress); err != nil {
		t.Fatalf("paid -> in_progress should be legal: %v", err)
	}
}

func TestStatusTimestampColumn(t *testing.T) {
	cases := map[constants.OrderStatus]string{
		constants.OrderStatusPending:    "",
		constants.OrderStatusPaid:       "paid_at",
		constants.OrderStatusInProgress: "started_at",
		constants.OrderStatusCompleted:  "completed_at",
		constants.OrderStatusReviewed:   "reviewed_at",
		constants.OrderStatusCancelled:  "canceled_at",
	}
	for status, want := range cases {
		if got := statusTimestampColumn(status); got != want {
			t.Fatalf("statusTimestampColumn(%s) = %q, want %q", status, got, want)
		}
	}
}
