package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/skill-exchange/internal/constants"
	"github.com/skill-exchange/internal/models"
	"github.com/skill-exchange/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderValidation(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	future := time.Now().Add(time.Hour)
	base := CreateOrderInput{
		EmployerID:  employer.ID,
		ProviderID:  provider.ID,
		SkillID:     7,
		Amount:      decimal.NewFromInt(100),
		ServiceTime: future,
	}

	cases := []struct {
		name   string
		mutate func(in *CreateOrderInput)
		want   error
	}{
		{"zero amount", func(in *CreateOrderInput) { in.Amount = decimal.Zero }, ErrValidation},
		{"negative amount", func(in *CreateOrderInput) { in.Amount = decimal.NewFromInt(-1) }, ErrValidation},
		{"sub-cent amount", func(in *CreateOrderInput) { in.Amount = decimal.RequireFromString("100.555") }, ErrValidation},
		{"past service time", func(in *CreateOrderInput) { in.ServiceTime = time.Now().Add(-time.Minute) }, ErrValidation},
		{"missing skill", func(in *CreateOrderInput) { in.SkillID = 0 }, ErrValidation},
		{"self order", func(in *CreateOrderInput) { in.ProviderID = in.EmployerID }, ErrValidation},
		{"unknown method", func(in *CreateOrderInput) { in.PaymentMethod = "cash" }, ErrValidation},
		{"unknown provider", func(in *CreateOrderInput) { in.ProviderID = 9999 }, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			_, err := f.orders.CreateOrder(context.Background(), input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected inputs must not persist orders, got %d", count)
	}
}

func TestCreateOrderCreatesPendingPayment(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")

	order := f.createOrder(t, employer.ID, provider.ID, "199.90")
	assert.Equal(t, constants.OrderStatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNo, defaultOrderNoPrefix))
	assert.Len(t, order.OrderNo, len(defaultOrderNoPrefix)+14+6)

	payment := f.orderPayment(t, order.ID)
	assert.Equal(t, constants.PaymentStatusPending, payment.Status)
	assert.Equal(t, constants.PaymentMethodBalance, payment.PaymentMethod)
	assert.Equal(t, "199.90", payment.PaymentAmount.String())
	assert.True(t, strings.HasPrefix(payment.PaymentNo, "P"))

	require.Len(t, f.tasks.timeouts, 1)
	assert.Equal(t, order.ID, f.tasks.timeouts[0].OrderID)
	assert.Equal(t, 30*time.Minute, f.tasks.delays[0])
}

func TestOrderLifecycleUpdatesProviderCredit(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	ctx := context.Background()

	order := f.createOrder(t, employer.ID, provider.ID, "100")
	paid, err := f.orders.ConfirmPayment(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, constants.PaymentStatusSuccess, f.orderPayment(t, order.ID).Status)

	_, err = f.orders.StartService(ctx, order.ID)
	require.NoError(t, err)
	completed, err := f.orders.CompleteService(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	credit := f.creditOf(t, provider.ID)
	require.NotNil(t, credit)
	assert.True(t, credit.CreditScore.Equal(decimal.NewFromInt(82)), "score=%s", credit.CreditScore)
	assert.Equal(t, int64(1), credit.CompletedOrders)
	assert.Nil(t, f.creditOf(t, employer.ID))

	reviewed, comment, err := f.orders.SubmitReview(ctx, order.ID, employer.ID, 5, "  专业高效  ")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusReviewed, reviewed.Status)
	require.NotNil(t, comment)
	assert.True(t, comment.IsReview)
	assert.Equal(t, "专业高效", comment.Content)

	credit = f.creditOf(t, provider.ID)
	assert.True(t, credit.CreditScore.Equal(decimal.NewFromInt(85)), "score=%s", credit.CreditScore)
	assert.Equal(t, int64(1), credit.PositiveReviews)

	stored := f.reloadOrder(t, order.ID)
	assert.Equal(t, constants.OrderStatusReviewed, stored.Status)
	assert.NotNil(t, stored.ReviewedAt)

	require.Equal(t, 4, f.tasks.auditCount())
	first := f.tasks.audits[0]
	assert.Equal(t, constants.OrderStatusPending, first.FromStatus)
	assert.Equal(t, constants.OrderStatusPaid, first.ToStatus)
}

func TestCancelCompletedOrderIsRejected(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "50")
	f.advance(t, order.ID, constants.OrderStatusCompleted)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, employer.ID)
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if transitionErr.Current != constants.OrderStatusCompleted {
		t.Fatalf("unexpected current status: %s", transitionErr.Current)
	}
	if len(transitionErr.Allowed) != 1 || transitionErr.Allowed[0] != constants.OrderStatusReviewed {
		t.Fatalf("unexpected allowed list: %v", transitionErr.Allowed)
	}
	if got := f.reloadOrder(t, order.ID).Status; got != constants.OrderStatusCompleted {
		t.Fatalf("status should be unchanged, got %s", got)
	}
}

func TestCancelPendingOrderClosesPayment(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "50")

	cancelled, err := f.orders.CancelOrder(context.Background(), order.ID, employer.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CanceledAt)
	assert.Equal(t, constants.PaymentStatusCancelled, f.orderPayment(t, order.ID).Status)
	assert.Nil(t, f.creditOf(t, employer.ID), "cancelling before payment carries no penalty")
}

func TestCancelPaidOrderRefundsAndPenalizesActor(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "120")
	f.advance(t, order.ID, constants.OrderStatusPaid)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, employer.ID)
	require.NoError(t, err)

	payment := f.orderPayment(t, order.ID)
	assert.Equal(t, constants.PaymentStatusRefunding, payment.Status)
	refunds, err := f.paymentRepo.ListRefunds(payment.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, constants.RefundStatusProcessing, refunds[0].Status)
	assert.Equal(t, constants.RefundTypeFull, refunds[0].RefundType)
	assert.Equal(t, "120.00", refunds[0].RefundAmount.String())

	credit := f.creditOf(t, employer.ID)
	require.NotNil(t, credit)
	assert.True(t, credit.CreditScore.Equal(decimal.NewFromInt(77)), "score=%s", credit.CreditScore)
	assert.Nil(t, f.creditOf(t, provider.ID))
}

func TestSystemCancelOfPaidOrderHasNoPenalty(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "120")
	f.advance(t, order.ID, constants.OrderStatusPaid)

	_, err := f.orders.CancelOrder(context.Background(), order.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, f.creditOf(t, employer.ID))
	assert.Nil(t, f.creditOf(t, provider.ID))
	assert.Equal(t, constants.PaymentStatusRefunding, f.orderPayment(t, order.ID).Status)
}

func TestExpirePendingOrderOnlyTouchesPending(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	ctx := context.Background()

	pending := f.createOrder(t, employer.ID, provider.ID, "60")
	expired, err := f.orders.ExpirePendingOrder(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCancelled, expired.Status)
	assert.Equal(t, constants.PaymentStatusCancelled, f.orderPayment(t, pending.ID).Status)

	paid := f.createOrder(t, employer.ID, provider.ID, "60")
	f.advance(t, paid.ID, constants.OrderStatusPaid)
	_, err = f.orders.ExpirePendingOrder(ctx, paid.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, constants.OrderStatusPaid, f.reloadOrder(t, paid.ID).Status)
	assert.Nil(t, f.creditOf(t, employer.ID))
}

func TestCancelInProgressOnlyThroughStatusUpdate(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "80")
	f.advance(t, order.ID, constants.OrderStatusInProgress)
	ctx := context.Background()

	_, err := f.orders.CancelOrder(ctx, order.ID, employer.ID)
	var transitionErr *InvalidTransitionError
	require.True(t, errors.As(err, &transitionErr), "err=%v", err)
	assert.Equal(t, []constants.OrderStatus{constants.OrderStatusCompleted}, transitionErr.Allowed)

	updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, constants.OrderStatusCancelled, 9999)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusCancelled, updated.Status)
	assert.Equal(t, constants.PaymentStatusRefunding, f.orderPayment(t, order.ID).Status)
	assert.Nil(t, f.creditOf(t, employer.ID))
}

func TestUpdateOrderStatusValidatesTarget(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "80")
	ctx := context.Background()

	_, err := f.orders.UpdateOrderStatus(ctx, order.ID, constants.OrderStatus(42), 0)
	assert.True(t, errors.Is(err, ErrValidation), "err=%v", err)

	_, err = f.orders.UpdateOrderStatus(ctx, order.ID, constants.OrderStatusCompleted, 0)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "err=%v", err)

	_, err = f.orders.UpdateOrderStatus(ctx, 9999, constants.OrderStatusPaid, 0)
	assert.True(t, errors.Is(err, ErrNotFound), "err=%v", err)

	updated, err := f.orders.UpdateOrderStatus(ctx, order.ID, constants.OrderStatusPaid, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, updated.Status)
	assert.Equal(t, constants.PaymentStatusSuccess, f.orderPayment(t, order.ID).Status)
}

func TestDeleteOrderIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "10")
	ctx := context.Background()

	require.NoError(t, f.orders.DeleteOrder(ctx, order.ID))
	require.NoError(t, f.orders.DeleteOrder(ctx, order.ID))

	_, err := f.orders.GetOrder(ctx, order.ID)
	assert.True(t, errors.Is(err, ErrNotFound), "err=%v", err)

	err = f.orders.DeleteOrder(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound), "err=%v", err)
}

func TestCompleteServiceRollsBackWhenCreditFails(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "60")
	f.advance(t, order.ID, constants.OrderStatusInProgress)

	broken := NewOrderService(f.orderRepo, f.paymentRepo, f.userRepo, f.commentRepo, failingCredit{}, f.tasks, OrderOptions{})
	before := f.tasks.auditCount()
	_, err := broken.CompleteService(context.Background(), order.ID)
	if err == nil {
		t.Fatalf("expected credit failure to abort completion")
	}
	if !errors.Is(err, ErrDatabase) || !errors.Is(err, errCreditUnavailable) {
		t.Fatalf("expected wrapped database error, got %v", err)
	}
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) || !dbErr.Retryable() {
		t.Fatalf("expected retryable database error, got %v", err)
	}

	stored := f.reloadOrder(t, order.ID)
	if stored.Status != constants.OrderStatusInProgress {
		t.Fatalf("order status should roll back to in_progress, got %s", stored.Status)
	}
	if stored.CompletedAt != nil {
		t.Fatalf("completed_at should not be written on rollback")
	}
	if f.tasks.auditCount() != before {
		t.Fatalf("failed transition must not be audited")
	}
}

func TestSubmitReviewRules(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	ctx := context.Background()

	order := f.createOrder(t, employer.ID, provider.ID, "60")
	_, _, err := f.orders.SubmitReview(ctx, order.ID, employer.ID, 5, "too early")
	assert.True(t, errors.Is(err, ErrInvalidTransition), "err=%v", err)

	f.advance(t, order.ID, constants.OrderStatusCompleted)

	_, _, err = f.orders.SubmitReview(ctx, order.ID, employer.ID, 6, "")
	assert.True(t, errors.Is(err, ErrValidation), "err=%v", err)

	_, _, err = f.orders.SubmitReview(ctx, order.ID, provider.ID, 5, "self praise")
	assert.True(t, errors.Is(err, ErrValidation), "err=%v", err)
	assert.Equal(t, constants.OrderStatusCompleted, f.reloadOrder(t, order.ID).Status)

	_, comment, err := f.orders.SubmitReview(ctx, order.ID, employer.ID, 1, "迟到")
	require.NoError(t, err)
	require.NotNil(t, comment.Rating)
	assert.Equal(t, 1, *comment.Rating)

	credit := f.creditOf(t, provider.ID)
	assert.True(t, credit.CreditScore.Equal(decimal.NewFromInt(77)), "score=%s", credit.CreditScore)
	assert.Equal(t, int64(1), credit.NegativeReviews)

	_, _, err = f.orders.SubmitReview(ctx, order.ID, employer.ID, 5, "again")
	assert.True(t, errors.Is(err, ErrInvalidTransition), "err=%v", err)
}

func TestNeutralReviewLeavesCreditUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "60")
	f.advance(t, order.ID, constants.OrderStatusCompleted)

	_, _, err := f.orders.SubmitReview(context.Background(), order.ID, employer.ID, 3, "还行")
	require.NoError(t, err)
	credit := f.creditOf(t, provider.ID)
	assert.True(t, credit.CreditScore.Equal(decimal.NewFromInt(82)), "score=%s", credit.CreditScore)
	assert.Equal(t, int64(0), credit.PositiveReviews)
	assert.Equal(t, int64(0), credit.NegativeReviews)
}

func TestReviewEvents(t *testing.T) {
	cases := map[int]CreditEvents{
		5: {PositiveReview: true},
		4: {PositiveReview: true},
		3: {},
		2: {NegativeReview: true},
		1: {NegativeReview: true},
	}
	for rating, want := range cases {
		if got := ReviewEvents(rating); got != want {
			t.Fatalf("ReviewEvents(%d) = %+v, want %+v", rating, got, want)
		}
	}
}

func TestAuditEnqueueFailureDoesNotFailTransition(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "60")

	f.tasks.err = errors.New("redis down")
	paid, err := f.orders.ConfirmPayment(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPaid, paid.Status)
}

func TestConfirmPaymentRequiresActivePayment(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	order := f.createOrder(t, employer.ID, provider.ID, "60")
	ctx := context.Background()

	payment := f.orderPayment(t, order.ID)
	_, err := f.payments.CancelPayment(ctx, payment.ID)
	require.NoError(t, err)

	_, err = f.orders.ConfirmPayment(ctx, order.ID)
	assert.True(t, errors.Is(err, ErrConflict), "err=%v", err)
	assert.Equal(t, constants.OrderStatusPending, f.reloadOrder(t, order.ID).Status)
}

func TestOrderQueries(t *testing.T) {
	f := newServiceFixture(t)
	employer := f.createUser(t, "employer")
	provider := f.createUser(t, "provider")
	outsider := f.createUser(t, "outsider")
	ctx := context.Background()

	first := f.createOrder(t, employer.ID, provider.ID, "10")
	second := f.createOrder(t, provider.ID, employer.ID, "20")
	f.advance(t, second.ID, constants.OrderStatusPaid)

	order, err := f.orders.GetOrderForUser(ctx, first.ID, provider.ID)
	require.NoError(t, err)
	require.Len(t, order.Payments, 1)

	_, err = f.orders.GetOrderForUser(ctx, first.ID, outsider.ID)
	assert.True(t, errors.Is(err, ErrNotFound), "err=%v", err)

	list, total, err := f.orders.ListUserOrders(ctx, repository.OrderListFilter{UserID: employer.ID, Role: constants.OrderRoleEmployer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	_, total, err = f.orders.ListUserOrders(ctx, repository.OrderListFilter{UserID: employer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, _, err = f.orders.ListUserOrders(ctx, repository.OrderListFilter{UserID: employer.ID, Role: "boss"})
	assert.True(t, errors.Is(err, ErrValidation), "err=%v", err)

	stats, err := f.orders.GetOrderStats(ctx, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalOrders)
	assert.Equal(t, "30.00", stats.TotalAmount.String())
	require.Len(t, stats.ByStatus, len(constants.AllOrderStatuses()))
	assert.Equal(t, int64(1), stats.ByStatus[0].Count)
	assert.Equal(t, int64(1), stats.ByStatus[1].Count)

	view := BuildOrderView(order)
	assert.Equal(t, "pending", view.StatusName)
	assert.Equal(t, []constants.OrderStatus{constants.OrderStatusPaid, constants.OrderStatusCancelled}, view.NextStatuses)
}

func TestCancelConflictsWhenPaymentChangesUnderneath(t *testing.T) {
	cases := []struct {
		name    string
		paid    bool
		flipTo  constants.PaymentStatus
		initial constants.OrderStatus
		payment constants.PaymentStatus
	}{
		{"pending payment", false, constants.PaymentStatusFailed, constants.OrderStatusPending, constants.PaymentStatusPending},
		{"successful payment", true, constants.PaymentStatusRefunding, constants.OrderStatusPaid, constants.PaymentStatusSuccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newServiceFixture(t)
			employer := f.createUser(t, "employer")
			provider := f.createUser(t, "provider")
			order := f.createOrder(t, employer.ID, provider.ID, "50")
			if tc.paid {
				f.advance(t, order.ID, constants.OrderStatusPaid)
			}

			f.flipPaymentStatusBeforeNextUpdate(t, order.ID, tc.flipTo)
			_, err := f.orders.CancelOrder(context.Background(), order.ID, employer.ID)
			require.True(t, errors.Is(err, ErrConflict), "err=%v", err)

			assert.Equal(t, tc.initial, f.reloadOrder(t, order.ID).Status)
			payment := f.orderPayment(t, order.ID)
			assert.Equal(t, tc.payment, payment.Status, "transaction should roll back")
			refunds, err := f.paymentRepo.ListRefunds(payment.ID)
			require.NoError(t, err)
			assert.Empty(t, refunds)
			assert.Nil(t, f.creditOf(t, employer.ID))
		})
	}
}
