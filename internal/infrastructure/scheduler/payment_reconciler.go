package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

// PaymentReconciler expires payment attempts the gateway never reported
// back on, so abandoned popups do not stay pending forever.
type PaymentReconciler struct {
	payments   ports.PaymentRepository
	clock      clock.Clock
	logger     *logger.Logger
	pendingTTL time.Duration
	interval   time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewPaymentReconciler(
	payments ports.PaymentRepository,
	clk clock.Clock,
	logger *logger.Logger,
	pendingTTL time.Duration,
	interval time.Duration,
) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PaymentReconciler{
		payments:   payments,
		clock:      clk,
		logger:     logger,
		pendingTTL: pendingTTL,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

func (r *PaymentReconciler) Start(ctx context.Context) {
	r.logger.Info("Starting payment reconciler", "pending_ttl", r.pendingTTL.String(), "interval", r.interval.String())

	if _, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("Initial reconciliation failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Payment reconciler stopped")
			return
		case <-r.stopChan:
			r.logger.Info("Payment reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("Reconciliation failed", "error", err)
			}
		}
	}
}

func (r *PaymentReconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// RunOnce expires every attempt still pending after pendingTTL.
func (r *PaymentReconciler) RunOnce(ctx context.Context) (int64, error) {
	now := r.clock.Now()

	expired, err := r.payments.ExpirePending(ctx, now.Add(-r.pendingTTL), now)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		monitoring.RecordAttemptsExpired(expired)
		r.logger.Info("Expired stale payment attempts", "count", expired)
	}
	return expired, nil
}
