package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type PaymentOutcome struct {
	AttemptID     string         `json:"attemptId"`
	CheckoutID    string         `json:"checkoutId"`
	TransactionID string         `json:"transactionId,omitempty"`
	Reference     string         `json:"reference"`
	Status        payment.Status `json:"status"`
	Duplicate     bool           `json:"duplicate"`
}

func newPaymentOutcome(a *payment.Attempt, duplicate bool) *PaymentOutcome {
	return &PaymentOutcome{
		AttemptID:     a.ID,
		CheckoutID:    a.CheckoutID,
		TransactionID: a.TransactionID,
		Reference:     a.Reference,
		Status:        a.Status,
		Duplicate:     duplicate,
	}
}

type RelayCommand struct {
	SessionID string
	// Origin is the Origin header of the relaying request.
	Origin  string
	Message payment.RelayMessage
}

// PaymentResultHandler applies gateway results arriving through the return
// redirect or the popup relay. Each result is applied at most once, only
// for the session that placed the order, and approvals are confirmed with
// the marketplace before they are recorded.
type PaymentResultHandler struct {
	payments ports.PaymentRepository
	market   ports.Marketplace
	seen     ports.Deduper
	states   *use_cases.StateMutator
	origins  *payment.OriginPolicy
	clock    clock.Clock
	log      *logger.Logger
}

func NewPaymentResultHandler(
	payments ports.PaymentRepository,
	market ports.Marketplace,
	seen ports.Deduper,
	states *use_cases.StateMutator,
	origins *payment.OriginPolicy,
	clk clock.Clock,
	log *logger.Logger,
) *PaymentResultHandler {
	return &PaymentResultHandler{
		payments: payments,
		market:   market,
		seen:     seen,
		states:   states,
		origins:  origins,
		clock:    clk,
		log:      log,
	}
}

func (h *PaymentResultHandler) HandleReturn(ctx context.Context, sessionID string, query url.Values) (*PaymentOutcome, error) {
	result, err := payment.ParseReturnQuery(query)
	if err != nil {
		return nil, err
	}
	return h.apply(ctx, "return", sessionID, result)
}

// HandleRelay checks the sender before anything else; the message shape
// alone is not trusted.
func (h *PaymentResultHandler) HandleRelay(ctx context.Context, cmd RelayCommand) (*PaymentOutcome, error) {
	if err := h.origins.Check(cmd.Origin); err != nil {
		monitoring.RecordRelayRejected("origin")
		h.log.Warn("Rejected payment relay", "origin", cmd.Origin)
		return nil, err
	}

	result, err := cmd.Message.Result()
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrUnknownMessageSource):
			monitoring.RecordRelayRejected("source")
		default:
			monitoring.RecordRelayRejected("malformed")
		}
		return nil, err
	}
	return h.apply(ctx, "relay", cmd.SessionID, result)
}

func (h *PaymentResultHandler) apply(ctx context.Context, channel, sessionID string, result payment.Result) (*PaymentOutcome, error) {
	monitoring.NewPaymentMetrics(channel).RecordResult(string(result.Status))
	dedupeKey := result.CheckoutID + ":" + string(result.Status)

	seen, err := h.seen.Seen(ctx, dedupeKey)
	if err != nil {
		h.log.Warn("Dedupe lookup failed", "error", err, "checkout_id", result.CheckoutID)
	}

	attempt, err := h.payments.GetByCheckoutID(ctx, result.CheckoutID)
	if err != nil {
		return nil, err
	}
	if attempt.SessionID != sessionID {
		monitoring.RecordRelayRejected("session")
		h.log.Warn("Payment result for another session",
			"channel", channel,
			"checkout_id", result.CheckoutID,
			"session_id", sessionID,
		)
		return nil, domainErrors.ErrPaymentAttemptNotFound
	}
	if seen && attempt.Status == result.Status {
		return newPaymentOutcome(attempt, true), nil
	}

	if result.Status == payment.StatusApproved {
		confirmed, err := h.market.CheckoutStatus(ctx, result.CheckoutID)
		if err != nil {
			return nil, fmt.Errorf("confirming checkout %s: %w", result.CheckoutID, err)
		}
		if confirmed != payment.StatusApproved {
			monitoring.RecordRelayRejected("unconfirmed")
			h.log.Warn("Approval not confirmed by marketplace",
				"channel", channel,
				"checkout_id", result.CheckoutID,
				"confirmed_status", confirmed,
			)
			result.Status = confirmed
		}
	}

	if result.Status == payment.StatusPending {
		return newPaymentOutcome(attempt, false), nil
	}

	updated, err := h.payments.UpdateStatus(ctx, result.CheckoutID, result.Status, result.TransactionID, h.clock.Now())
	if errors.Is(err, domainErrors.ErrPaymentAlreadyProcessed) && updated != nil {
		h.log.Info("Payment result already applied",
			"checkout_id", result.CheckoutID,
			"stored_status", updated.Status,
			"reported_status", result.Status,
		)
		return newPaymentOutcome(updated, true), nil
	}
	if err != nil {
		return nil, err
	}

	if err := h.seen.Remember(ctx, dedupeKey); err != nil {
		h.log.Warn("Failed to remember payment result", "error", err, "checkout_id", result.CheckoutID)
	}

	if updated.Status == payment.StatusApproved {
		_, err := h.states.Mutate(ctx, updated.SessionID, func(s *storefront.State) error {
			if s.LastAttemptID == updated.ID {
				s.Step.SetCurrentStep(checkout.StepConfirmation)
			}
			return nil
		})
		if err != nil {
			h.log.Error("Failed to advance checkout after approval", "error", err, "session_id", updated.SessionID)
		}
	}

	h.log.Info("Payment result applied",
		"channel", channel,
		"checkout_id", updated.CheckoutID,
		"status", updated.Status,
		"transaction_id", updated.TransactionID,
	)
	return newPaymentOutcome(updated, false), nil
}

// History lists the session's gateway handoffs, newest first.
func (h *PaymentResultHandler) History(ctx context.Context, sessionID string, limit int) ([]*PaymentOutcome, error) {
	attempts, err := h.payments.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*PaymentOutcome, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, newPaymentOutcome(a, false))
	}
	return out, nil
}
