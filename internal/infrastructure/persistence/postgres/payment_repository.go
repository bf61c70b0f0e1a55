package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
)

const uniqueViolation = "23505"

const attemptColumns = `id, session_id, user_id, checkout_id, checkout_url, reference,
	amount, method, status, transaction_id, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

var _ ports.PaymentRepository = (*PaymentRepository)(nil)

func NewPaymentRepository(conn *Connection) *PaymentRepository {
	return &PaymentRepository{db: conn.GetDB()}
}

func (r *PaymentRepository) Create(ctx context.Context, a *payment.Attempt) error {
	query := `
		INSERT INTO payment_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := monitoring.InstrumentExec(ctx, r.db, "INSERT", "payment_attempts", query,
		a.ID, a.SessionID, a.UserID, a.CheckoutID, a.CheckoutURL, a.Reference,
		a.Amount, string(a.Method), string(a.Status), a.TransactionID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("checkout %s already recorded: %w", a.CheckoutID, domainErrors.ErrCheckoutInFlight)
		}
		return err
	}

	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE id = $1`
	return scanAttempt(monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "payment_attempts", query, id))
}

func (r *PaymentRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*payment.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE checkout_id = $1`
	return scanAttempt(monitoring.InstrumentQueryRow(ctx, r.db, "SELECT", "payment_attempts", query, checkoutID))
}

func (r *PaymentRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*payment.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT ` + attemptColumns + `
		FROM payment_attempts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := monitoring.InstrumentQuery(ctx, r.db, "SELECT", "payment_attempts", query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []*payment.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// UpdateStatus lets a late gateway result override an expiry, but never
// rewrites an approved or rejected attempt.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, checkoutID string, status payment.Status, transactionID string, at time.Time) (*payment.Attempt, error) {
	query := `
		UPDATE payment_attempts
		SET status = $2,
		    transaction_id = CASE WHEN $3 = '' THEN transaction_id ELSE $3 END,
		    updated_at = $4
		WHERE checkout_id = $1 AND status = ANY($5)
		RETURNING ` + attemptColumns

	updatable := pq.Array([]string{string(payment.StatusPending), string(payment.StatusExpired)})
	row := monitoring.InstrumentQueryRow(ctx, r.db, "UPDATE", "payment_attempts", query,
		checkoutID, string(status), transactionID, at, updatable)

	attempt, err := scanAttempt(row)
	if !errors.Is(err, domainErrors.ErrPaymentAttemptNotFound) {
		return attempt, err
	}

	existing, err := r.GetByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	return existing, domainErrors.ErrPaymentAlreadyProcessed
}

func (r *PaymentRepository) ExpirePending(ctx context.Context, olderThan, at time.Time) (int64, error) {
	query := `
		UPDATE payment_attempts
		SET status = $1, updated_at = $2
		WHERE status = $3 AND created_at < $4
	`

	result, err := monitoring.InstrumentExec(ctx, r.db, "UPDATE", "payment_attempts", query,
		string(payment.StatusExpired), at, string(payment.StatusPending), olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row scanner) (*payment.Attempt, error) {
	var (
		a      payment.Attempt
		method string
		status string
	)
	err := row.Scan(
		&a.ID, &a.SessionID, &a.UserID, &a.CheckoutID, &a.CheckoutURL, &a.Reference,
		&a.Amount, &method, &status, &a.TransactionID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrPaymentAttemptNotFound
		}
		return nil, err
	}

	a.Method = payment.Method(method)
	a.Status = payment.Status(status)
	return &a, nil
}
