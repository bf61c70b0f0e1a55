package ports

import (
	"context"
	"time"

	"github.com/mercadotiendas/storefront/internal/domain/payment"
)

type PaymentRepository interface {
	Create(ctx context.Context, attempt *payment.Attempt) error
	GetByID(ctx context.Context, id string) (*payment.Attempt, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*payment.Attempt, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*payment.Attempt, error)

	// UpdateStatus records a gateway result. Only pending or expired
	// attempts move; anything else reports ErrPaymentAlreadyProcessed.
	UpdateStatus(ctx context.Context, checkoutID string, status payment.Status, transactionID string, at time.Time) (*payment.Attempt, error)
	ExpirePending(ctx context.Context, olderThan, at time.Time) (int64, error)
}
