package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type expireCall struct {
	olderThan time.Time
	at        time.Time
}

type fakePayments struct {
	mu      sync.Mutex
	calls   []expireCall
	expired int64
	err     error
}

func (f *fakePayments) Create(ctx context.Context, a *payment.Attempt) error { return nil }
func (f *fakePayments) GetByID(ctx context.Context, id string) (*payment.Attempt, error) {
	return nil, nil
}
func (f *fakePayments) GetByCheckoutID(ctx context.Context, id string) (*payment.Attempt, error) {
	return nil, nil
}
func (f *fakePayments) ListBySession(ctx context.Context, sid string, limit int) ([]*payment.Attempt, error) {
	return nil, nil
}
func (f *fakePayments) UpdateStatus(ctx context.Context, checkoutID string, status payment.Status, tx string, at time.Time) (*payment.Attempt, error) {
	return nil, nil
}

func (f *fakePayments) ExpirePending(ctx context.Context, olderThan, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, expireCall{olderThan: olderThan, at: at})
	return f.expired, f.err
}

func (f *fakePayments) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnceUsesCutoff(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	repo := &fakePayments{expired: 2}
	r := NewPaymentReconciler(repo, clock.NewMockClock(now), logger.NewNop(), 30*time.Minute, time.Minute)

	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.Len(t, repo.calls, 1)
	assert.Equal(t, now.Add(-30*time.Minute), repo.calls[0].olderThan)
	assert.Equal(t, now, repo.calls[0].at)
}

func TestRunOnceError(t *testing.T) {
	repo := &fakePayments{err: errors.New("db down")}
	r := NewPaymentReconciler(repo, clock.NewRealClock(), logger.NewNop(), time.Minute, time.Minute)

	_, err := r.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestStartStops(t *testing.T) {
	repo := &fakePayments{}
	r := NewPaymentReconciler(repo, clock.NewRealClock(), logger.NewNop(), time.Minute, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	r.Stop()
	r.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
