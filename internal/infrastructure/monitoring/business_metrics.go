package monitoring

import (
	"errors"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
)

type CheckoutMetrics struct{}

func NewCheckoutMetrics() *CheckoutMetrics {
	return &CheckoutMetrics{}
}

func (m *CheckoutMetrics) RecordAttempt() {
	CheckoutAttemptsTotal.Inc()
}

func (m *CheckoutMetrics) RecordSuccess() {
	CheckoutSuccessTotal.Inc()
}

func (m *CheckoutMetrics) RecordFailure(err error) {
	CheckoutFailureTotal.WithLabelValues(FailureReason(err)).Inc()
}

type PaymentMetrics struct {
	channel string
}

// NewPaymentMetrics labels results by how they arrived: "return" or "relay".
func NewPaymentMetrics(channel string) *PaymentMetrics {
	return &PaymentMetrics{channel: channel}
}

func (m *PaymentMetrics) RecordResult(status string) {
	PaymentResultsTotal.WithLabelValues(m.channel, status).Inc()
}

// FailureReason turns an error into a bounded label value.
func FailureReason(err error) string {
	var verr *domainErrors.ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, domainErrors.ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, domainErrors.ErrStepNotAllowed):
		return "step_not_allowed"
	case errors.Is(err, domainErrors.ErrCheckoutInFlight):
		return "in_flight"
	case errors.Is(err, domainErrors.ErrStaleState):
		return "stale_state"
	case errors.Is(err, domainErrors.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, domainErrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domainErrors.ErrUpstreamUnavailable):
		return "upstream"
	default:
		return "other"
	}
}
