package commands

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

const trustedOrigin = "https://mobbex.example.com"

func newResultFixture(t *testing.T) (*PaymentResultHandler, *placeOrderFixture, *PlaceOrderResponse) {
	t.Helper()
	f := newPlaceOrderFixture()
	f.fillCart(t, "s1")

	resp, err := f.handler.Handle(context.Background(), PlaceOrderCommand{SessionID: "s1", Authenticated: true})
	require.NoError(t, err)

	h := NewPaymentResultHandler(
		f.payments,
		f.market,
		newMemDeduper(),
		newTestMutator(f.states),
		payment.NewOriginPolicy([]string{trustedOrigin}),
		f.clock,
		logger.NewNop(),
	)
	return h, f, resp
}

func TestHandleReturn_ApprovedAdvancesToConfirmation(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	outcome, err := h.HandleReturn(ctx, "s1", url.Values{
		"checkoutId":    {resp.CheckoutID},
		"status":        {"200"},
		"transactionId": {"tx-9"},
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, outcome.Status)
	assert.Equal(t, "tx-9", outcome.TransactionID)
	assert.False(t, outcome.Duplicate)

	state, err := f.states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepConfirmation, state.Step.Current())
}

func TestHandleReturn_RejectedStaysOnPayment(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	outcome, err := h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"rejected"}})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRejected, outcome.Status)

	state, err := f.states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, state.Step.Current())
}

func TestHandleReturn_MissingCheckoutID(t *testing.T) {
	h, _, _ := newResultFixture(t)
	_, err := h.HandleReturn(context.Background(), "s1", url.Values{"status": {"200"}})
	assert.ErrorIs(t, err, domainErrors.ErrMissingCheckoutID)
}

func TestHandleReturn_UnknownCheckout(t *testing.T) {
	h, _, _ := newResultFixture(t)
	_, err := h.HandleReturn(context.Background(), "s1", url.Values{"checkoutId": {"nope"}, "status": {"200"}})
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAttemptNotFound)
}

func TestPaymentResults_ReturnAndRelayApplyOnce(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	first, err := h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"200"}})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := h.HandleRelay(ctx, RelayCommand{
		SessionID: "s1",
		Origin:    trustedOrigin,
		Message: payment.RelayMessage{
			Source:     payment.RelaySource,
			Status:     "200",
			CheckoutID: resp.CheckoutID,
		},
	})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, payment.StatusApproved, second.Status)
	assert.Equal(t, 1, f.payments.updates)
}

func TestPaymentResults_LateRejectionDoesNotOverrideApproval(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	_, err := h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"200"}})
	require.NoError(t, err)

	outcome, err := h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"400"}})
	require.NoError(t, err)
	assert.True(t, outcome.Duplicate)
	assert.Equal(t, payment.StatusApproved, outcome.Status)
	assert.Equal(t, 1, f.payments.updates)
}

func TestHandleRelay_RejectsUntrustedSenders(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()
	msg := payment.RelayMessage{Source: payment.RelaySource, Status: "200", CheckoutID: resp.CheckoutID}

	_, err := h.HandleRelay(ctx, RelayCommand{SessionID: "s1", Origin: "https://evil.example.com", Message: msg})
	assert.ErrorIs(t, err, domainErrors.ErrUntrustedOrigin)

	_, err = h.HandleRelay(ctx, RelayCommand{SessionID: "s1", Origin: "", Message: msg})
	assert.ErrorIs(t, err, domainErrors.ErrUntrustedOrigin)

	msg.Source = "someone-else"
	_, err = h.HandleRelay(ctx, RelayCommand{SessionID: "s1", Origin: trustedOrigin, Message: msg})
	assert.ErrorIs(t, err, domainErrors.ErrUnknownMessageSource)

	assert.Zero(t, f.payments.updates)
}

func TestPaymentResults_ApprovalForOlderAttemptKeepsStep(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	f.fillCart(t, "s1")
	_, err := f.handler.Handle(ctx, PlaceOrderCommand{SessionID: "s1", Authenticated: true})
	require.NoError(t, err)

	_, err = h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"200"}})
	require.NoError(t, err)

	state, err := f.states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, state.Step.Current())
}

func TestPaymentResults_OtherSessionCannotSettleAttempt(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()

	_, err := h.HandleReturn(ctx, "intruder", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"200"}})
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAttemptNotFound)

	_, err = h.HandleRelay(ctx, RelayCommand{
		SessionID: "intruder",
		Origin:    trustedOrigin,
		Message:   payment.RelayMessage{Source: payment.RelaySource, Status: "200", CheckoutID: resp.CheckoutID},
	})
	assert.ErrorIs(t, err, domainErrors.ErrPaymentAttemptNotFound)

	attempt, err := f.payments.GetByCheckoutID(ctx, resp.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, attempt.Status)
	assert.Zero(t, f.payments.updates)

	state, err := f.states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, state.Step.Current())
}

func TestPaymentResults_UnconfirmedApprovalIsNotRecorded(t *testing.T) {
	h, f, resp := newResultFixture(t)
	ctx := context.Background()
	f.market.gateway[resp.CheckoutID] = payment.StatusPending

	outcome, err := h.HandleRelay(ctx, RelayCommand{
		SessionID: "s1",
		Origin:    trustedOrigin,
		Message:   payment.RelayMessage{Source: payment.RelaySource, Status: "200", CheckoutID: resp.CheckoutID},
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, outcome.Status)

	attempt, err := f.payments.GetByCheckoutID(ctx, resp.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, attempt.Status)

	state, err := f.states.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StepPayment, state.Step.Current())

	f.market.gateway[resp.CheckoutID] = payment.StatusRejected
	outcome, err = h.HandleReturn(ctx, "s1", url.Values{"checkoutId": {resp.CheckoutID}, "status": {"200"}})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRejected, outcome.Status)
}
