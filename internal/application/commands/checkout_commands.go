package commands

import (
	"context"

	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CheckoutView struct {
	Step          checkout.Step  `json:"step"`
	StepName      string         `json:"stepName"`
	PaymentMethod payment.Method `json:"paymentMethod"`
	Cart          *CartView      `json:"cart"`
	LastAttemptID string         `json:"lastAttemptId,omitempty"`
}

func newCheckoutView(state *storefront.State) *CheckoutView {
	return &CheckoutView{
		Step:          state.Step.Current(),
		StepName:      state.Step.Current().String(),
		PaymentMethod: state.Payment.Current(),
		Cart:          newCartView(state),
		LastAttemptID: state.LastAttemptID,
	}
}

// CheckoutHandler drives the step tracker and payment method selection.
// With guarded set, step changes go through checkout.Guard; without it the
// tracker keeps its advisory semantics.
type CheckoutHandler struct {
	states  *use_cases.StateMutator
	guard   checkout.Guard
	guarded bool
	log     *logger.Logger
}

func NewCheckoutHandler(states *use_cases.StateMutator, guarded bool, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		states:  states,
		guard:   checkout.NewGuard(),
		guarded: guarded,
		log:     log,
	}
}

func (h *CheckoutHandler) View(ctx context.Context, sessionID string) (*CheckoutView, error) {
	state, err := h.states.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newCheckoutView(state), nil
}

func (h *CheckoutHandler) SetStep(ctx context.Context, sessionID string, step checkout.Step, authenticated bool) (*CheckoutView, error) {
	return h.moveStep(ctx, sessionID, authenticated, func(t *checkout.Tracker) checkout.Step {
		return step
	})
}

func (h *CheckoutHandler) NextStep(ctx context.Context, sessionID string, authenticated bool) (*CheckoutView, error) {
	return h.moveStep(ctx, sessionID, authenticated, func(t *checkout.Tracker) checkout.Step {
		next := checkout.TrackerAt(t.Current())
		next.NextStep()
		return next.Current()
	})
}

func (h *CheckoutHandler) PreviousStep(ctx context.Context, sessionID string, authenticated bool) (*CheckoutView, error) {
	return h.moveStep(ctx, sessionID, authenticated, func(t *checkout.Tracker) checkout.Step {
		prev := checkout.TrackerAt(t.Current())
		prev.PreviousStep()
		return prev.Current()
	})
}

func (h *CheckoutHandler) moveStep(ctx context.Context, sessionID string, authenticated bool, target func(*checkout.Tracker) checkout.Step) (*CheckoutView, error) {
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		to := target(s.Step)
		if h.guarded && to != s.Step.Current() {
			if err := h.guard.CanEnter(to, s.Snapshot(authenticated)); err != nil {
				return err
			}
		}
		s.Step.SetCurrentStep(to)
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Debug("Checkout step changed", "session_id", sessionID, "step", state.Step.Current().String())
	return newCheckoutView(state), nil
}

// SetPaymentMethod stores the tag as given; unknown tags are accepted.
func (h *CheckoutHandler) SetPaymentMethod(ctx context.Context, sessionID string, method payment.Method) (*CheckoutView, error) {
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		s.Payment.SetPaymentMethod(method)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !state.Payment.Current().Known() {
		h.log.Warn("Unrecognised payment method selected", "session_id", sessionID, "method", string(state.Payment.Current()))
	}
	return newCheckoutView(state), nil
}

func (h *CheckoutHandler) ResetPaymentMethod(ctx context.Context, sessionID string) (*CheckoutView, error) {
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		s.Payment.ResetPaymentMethod()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newCheckoutView(state), nil
}
