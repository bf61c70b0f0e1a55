package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/generator"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

const placeOrderLock = "place_order"

type PlaceOrderCommand struct {
	SessionID     string
	UserID        string
	Authenticated bool
}

type PlaceOrderResponse struct {
	AttemptID   string            `json:"attemptId"`
	CheckoutID  string            `json:"checkoutId"`
	CheckoutURL string            `json:"checkoutUrl"`
	Reference   string            `json:"reference"`
	Amount      decimal.Decimal   `json:"amount"`
	Method      payment.Method    `json:"paymentMethod"`
	Popup       payment.PopupSize `json:"popup"`
	Step        checkout.Step     `json:"step"`
}

type PlaceOrderConfig struct {
	LockTTL   time.Duration
	ReturnURL string
	Popup     payment.PopupSize
}

// PlaceOrderHandler hands the session's cart to the payment gateway. The
// step stays at payment until the gateway reports back.
type PlaceOrderHandler struct {
	states   *use_cases.StateMutator
	locker   ports.Locker
	keys     session.KeySpace
	market   ports.Marketplace
	payments ports.PaymentRepository
	codeGen  *generator.CodeGenerator
	clock    clock.Clock
	guard    checkout.Guard
	cfg      PlaceOrderConfig
	log      *logger.Logger
}

func NewPlaceOrderHandler(
	states *use_cases.StateMutator,
	locker ports.Locker,
	keys session.KeySpace,
	market ports.Marketplace,
	payments ports.PaymentRepository,
	codeGen *generator.CodeGenerator,
	clk clock.Clock,
	cfg PlaceOrderConfig,
	log *logger.Logger,
) *PlaceOrderHandler {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.Popup.Width == 0 || cfg.Popup.Height == 0 {
		cfg.Popup = payment.DefaultPopup
	}
	return &PlaceOrderHandler{
		states:   states,
		locker:   locker,
		keys:     keys,
		market:   market,
		payments: payments,
		codeGen:  codeGen,
		clock:    clk,
		guard:    checkout.NewGuard(),
		cfg:      cfg,
		log:      log,
	}
}

func (h *PlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResponse, error) {
	metrics := monitoring.NewCheckoutMetrics()
	metrics.RecordAttempt()

	resp, err := h.placeOrder(ctx, cmd)
	if err != nil {
		metrics.RecordFailure(err)
		h.log.Warn("Place order failed", "session_id", cmd.SessionID, "error", err)
		return nil, err
	}

	metrics.RecordSuccess()
	h.log.Info("Order handed to payment gateway",
		"session_id", cmd.SessionID,
		"attempt_id", resp.AttemptID,
		"checkout_id", resp.CheckoutID,
		"amount", resp.Amount.String(),
	)
	return resp, nil
}

func (h *PlaceOrderHandler) placeOrder(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResponse, error) {
	lockKey := h.keys.Lock(cmd.SessionID, placeOrderLock)
	token, locked, err := h.locker.TryLock(ctx, lockKey, h.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, domainErrors.ErrCheckoutInFlight
	}
	defer func() {
		if err := h.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			h.log.Error("Failed to release lock", "error", err, "lock_key", lockKey)
		}
	}()

	state, err := h.states.Load(ctx, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	if state.Cart.IsEmpty() {
		return nil, domainErrors.ErrCartEmpty
	}
	if err := h.guard.CanEnter(checkout.StepPayment, state.Snapshot(cmd.Authenticated)); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	reference, err := h.codeGen.GenerateOrderReference(now)
	if err != nil {
		return nil, fmt.Errorf("generating order reference: %w", err)
	}

	req := payment.CheckoutRequest{
		Reference: reference,
		Amount:    state.Cart.Subtotal(),
		Method:    state.Payment.Current(),
		ReturnURL: h.cfg.ReturnURL,
	}
	for _, item := range state.Cart.Items() {
		req.Items = append(req.Items, payment.CheckoutItem{
			ProductID:  item.Product.ID,
			Name:       item.Product.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Product.Price,
			PictureURL: item.Product.MainImage(),
		})
	}

	co, err := h.market.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}

	attempt := &payment.Attempt{
		ID:          h.codeGen.GenerateAttemptID(),
		SessionID:   cmd.SessionID,
		UserID:      cmd.UserID,
		CheckoutID:  co.ID,
		CheckoutURL: co.URL,
		Reference:   reference,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      payment.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.payments.Create(ctx, attempt); err != nil {
		return nil, err
	}

	saved, err := h.states.Mutate(ctx, cmd.SessionID, func(s *storefront.State) error {
		removeOrdered(s.Cart, req.Items)
		s.LastAttemptID = attempt.ID
		s.Step.SetCurrentStep(checkout.StepPayment)
		return nil
	})
	if err != nil {
		// The gateway checkout exists and is recorded; the buyer can still
		// pay it, so report the handoff rather than fail it.
		h.log.Error("Failed to update state after checkout", "error", err, "attempt_id", attempt.ID)
	}

	step := checkout.StepPayment
	if saved != nil {
		step = saved.Step.Current()
	}

	return &PlaceOrderResponse{
		AttemptID:   attempt.ID,
		CheckoutID:  attempt.CheckoutID,
		CheckoutURL: attempt.CheckoutURL,
		Reference:   reference,
		Amount:      attempt.Amount,
		Method:      attempt.Method,
		Popup:       h.cfg.Popup,
		Step:        step,
	}, nil
}

// removeOrdered takes the ordered quantities out of the cart as it is now.
// Items or extra units added by another tab while the gateway call was in
// flight stay in the cart for a later order.
func removeOrdered(c *cart.Cart, ordered []payment.CheckoutItem) {
	for _, o := range ordered {
		item, ok := c.Find(o.ProductID)
		if !ok {
			continue
		}
		if item.Quantity <= o.Quantity {
			c.RemoveFromCart(o.ProductID)
			continue
		}
		c.UpdateQuantity(o.ProductID, item.Quantity-o.Quantity)
	}
}
