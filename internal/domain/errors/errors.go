package errors

import (
	"errors"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCartEmpty       = errors.New("cart is empty")

	ErrStepNotAllowed   = errors.New("checkout step not allowed")
	ErrCheckoutInFlight = errors.New("another checkout is in progress for this session")
	ErrStaleState       = errors.New("storefront state was modified concurrently")

	ErrPaymentAttemptNotFound  = errors.New("payment attempt not found")
	ErrPaymentAlreadyProcessed = errors.New("payment result has already been processed")
	ErrUntrustedOrigin         = errors.New("payment message origin is not allowed")
	ErrUnknownMessageSource    = errors.New("payment message source is not recognised")
	ErrMissingCheckoutID       = errors.New("payment result has no checkout id")

	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidTransition   = errors.New("application status transition not allowed")
	ErrNotCampaignOwner    = errors.New("only the campaign's shop owner can do this")

	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("authentication required")
	ErrInvalidToken   = errors.New("invalid access token")

	ErrNotFound            = errors.New("resource not found")
	ErrUpstreamUnavailable = errors.New("marketplace api unavailable")
	ErrRateLimited         = errors.New("too many requests")
)

// ValidationError carries form errors keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when no field failed, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}
