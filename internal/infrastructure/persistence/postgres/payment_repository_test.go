package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
)

var columns = []string{
	"id", "session_id", "user_id", "checkout_id", "checkout_url", "reference",
	"amount", "method", "status", "transaction_id", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PaymentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPaymentRepository(NewConnectionFromDB(db)), mock
}

func sampleAttempt(now time.Time) *payment.Attempt {
	return &payment.Attempt{
		ID:          "6f1c1a0e-8b4e-4a59-9d7e-1b2f9f0a7c11",
		SessionID:   "sid-1",
		UserID:      "u1",
		CheckoutID:  "chk-1",
		CheckoutURL: "https://mobbex.com/p/chk-1",
		Reference:   "ORD-20261015-abc",
		Amount:      decimal.RequireFromString("5000.00"),
		Method:      payment.MethodCard,
		Status:      payment.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func attemptRow(a *payment.Attempt, status payment.Status) *sqlmock.Rows {
	return sqlmock.NewRows(columns).AddRow(
		a.ID, a.SessionID, a.UserID, a.CheckoutID, a.CheckoutURL, a.Reference,
		a.Amount.String(), string(a.Method), string(status), a.TransactionID, a.CreatedAt, a.UpdatedAt,
	)
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	a := sampleAttempt(now)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_attempts")).
		WithArgs(a.ID, a.SessionID, a.UserID, a.CheckoutID, a.CheckoutURL, a.Reference,
			a.Amount, "tarjeta", "pending", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicateCheckout(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAttempt(time.Now())

	mock.ExpectExec("INSERT INTO payment_attempts").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "payment_attempts_checkout_id_key"})

	err := repo.Create(context.Background(), a)
	assert.ErrorIs(t, err, domainErrors.ErrCheckoutInFlight)
}

func TestGetByCheckoutIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM payment_attempts WHERE checkout_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByCheckoutID(context.Background(), "missing")
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAttemptNotFound)
}

func TestUpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	a := sampleAttempt(now)
	a.TransactionID = "tx-9"

	mock.ExpectQuery("UPDATE payment_attempts").
		WithArgs("chk-1", "approved", "tx-9", now, pq.Array([]string{"pending", "expired"})).
		WillReturnRows(attemptRow(a, payment.StatusApproved))

	got, err := repo.UpdateStatus(context.Background(), "chk-1", payment.StatusApproved, "tx-9", now)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, got.Status)
	assert.Equal(t, "tx-9", got.TransactionID)
	assert.True(t, a.Amount.Equal(got.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusAlreadyFinal(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	a := sampleAttempt(now)

	mock.ExpectQuery("UPDATE payment_attempts").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("FROM payment_attempts WHERE checkout_id").
		WithArgs("chk-1").
		WillReturnRows(attemptRow(a, payment.StatusRejected))

	got, err := repo.UpdateStatus(context.Background(), "chk-1", payment.StatusApproved, "", now)
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAlreadyProcessed)
	require.NotNil(t, got)
	assert.Equal(t, payment.StatusRejected, got.Status)
}

func TestUpdateStatusUnknownCheckout(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE payment_attempts").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery("FROM payment_attempts WHERE checkout_id").WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.UpdateStatus(context.Background(), "nope", payment.StatusApproved, "", time.Now())
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAttemptNotFound)
}

func TestExpirePending(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * time.Minute)

	mock.ExpectExec("UPDATE payment_attempts").
		WithArgs("expired", now, "pending", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpirePending(context.Background(), cutoff, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestListBySession(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAttempt(time.Now())

	mock.ExpectQuery("WHERE session_id").
		WithArgs("sid-1", 20).
		WillReturnRows(attemptRow(a, payment.StatusPending))

	attempts, err := repo.ListBySession(context.Background(), "sid-1", 0)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "chk-1", attempts[0].CheckoutID)
}
