package payment

import (
	"net/url"
	"strconv"
	"strings"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
)

// RelaySource is the discriminator the gateway popup puts on its messages.
const RelaySource = "mobbex-payment"

type Result struct {
	CheckoutID    string
	TransactionID string
	Reference     string
	Status        Status
	RawStatus     string
}

// ParseStatus maps the gateway's status field. Numeric codes follow the
// gateway convention (200 paid, below 200 or other 2xx still processing,
// 400 and up failed); a few textual forms are accepted as well.
func ParseStatus(raw string) Status {
	raw = strings.TrimSpace(strings.ToLower(raw))

	if code, err := strconv.Atoi(raw); err == nil {
		switch {
		case code == 200:
			return StatusApproved
		case code >= 400:
			return StatusRejected
		default:
			return StatusPending
		}
	}

	switch raw {
	case "approved", "paid", "success", "succeeded":
		return StatusApproved
	case "rejected", "failure", "failed", "cancelled", "canceled", "error":
		return StatusRejected
	default:
		return StatusPending
	}
}

// ParseReturnQuery reads the query string of the gateway's return redirect.
func ParseReturnQuery(q url.Values) (Result, error) {
	checkoutID := firstNonEmpty(q.Get("checkoutId"), q.Get("checkout_id"), q.Get("id"))
	if checkoutID == "" {
		return Result{}, domainErrors.ErrMissingCheckoutID
	}

	raw := q.Get("status")
	return Result{
		CheckoutID:    checkoutID,
		TransactionID: firstNonEmpty(q.Get("transactionId"), q.Get("transaction_id")),
		Reference:     q.Get("reference"),
		Status:        ParseStatus(raw),
		RawStatus:     raw,
	}, nil
}

// RelayMessage is the payload the checkout popup posts back to its opener.
type RelayMessage struct {
	Source        string `json:"source"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	CheckoutID    string `json:"checkoutId"`
	Reference     string `json:"reference"`
}

func (m RelayMessage) Result() (Result, error) {
	if m.Source != RelaySource {
		return Result{}, domainErrors.ErrUnknownMessageSource
	}
	if m.CheckoutID == "" {
		return Result{}, domainErrors.ErrMissingCheckoutID
	}

	return Result{
		CheckoutID:    m.CheckoutID,
		TransactionID: m.TransactionID,
		Reference:     m.Reference,
		Status:        ParseStatus(m.Status),
		RawStatus:     m.Status,
	}, nil
}

// OriginPolicy is an exact-match allow-list of origins that may relay
// payment results.
type OriginPolicy struct {
	allowed map[string]struct{}
}

func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = normalizeOrigin(origin)
		if origin != "" {
			p.allowed[origin] = struct{}{}
		}
	}
	return p
}

func (p *OriginPolicy) Allows(origin string) bool {
	if p == nil {
		return false
	}
	_, ok := p.allowed[normalizeOrigin(origin)]
	return ok
}

func (p *OriginPolicy) Check(origin string) error {
	if !p.Allows(origin) {
		return domainErrors.ErrUntrustedOrigin
	}
	return nil
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "null" {
		return ""
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
