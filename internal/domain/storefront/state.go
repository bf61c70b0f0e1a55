package storefront

import (
	"encoding/json"

	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
)

// State bundles the per-session containers handlers work on. It is loaded
// for each request and saved back with the version it was loaded at.
type State struct {
	Version       int64
	Cart          *cart.Cart
	Step          *checkout.Tracker
	Payment       *payment.Selection
	LastAttemptID string
}

func NewState() *State {
	return &State{
		Cart:    cart.New(),
		Step:    checkout.NewTracker(),
		Payment: payment.NewSelection(),
	}
}

// OrderPlaced reports whether the session has handed a cart to the gateway.
func (s *State) OrderPlaced() bool {
	return s.LastAttemptID != ""
}

func (s *State) Snapshot(authenticated bool) checkout.Snapshot {
	return checkout.Snapshot{
		CartItems:     s.Cart.Len(),
		Authenticated: authenticated,
		OrderPlaced:   s.OrderPlaced(),
	}
}

type stateDocument struct {
	Version       int64          `json:"version"`
	Cart          *cart.Cart     `json:"cart"`
	Step          *checkout.Step `json:"step"`
	PaymentMethod payment.Method `json:"paymentMethod"`
	LastAttemptID string         `json:"lastAttemptId,omitempty"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateDocument{
		Version:       s.Version,
		Cart:          s.Cart,
		Step:          stepOf(s.Step),
		PaymentMethod: s.Payment.Current(),
		LastAttemptID: s.LastAttemptID,
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	doc := stateDocument{Cart: cart.New()}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	// A missing step means a fresh document; any stored value, even one
	// outside 1..4, is kept as written.
	step := checkout.FirstStep
	if doc.Step != nil {
		step = *doc.Step
	}
	if doc.Cart == nil {
		doc.Cart = cart.New()
	}

	s.Version = doc.Version
	s.Cart = doc.Cart
	s.Step = checkout.TrackerAt(step)
	s.Payment = payment.SelectionOf(doc.PaymentMethod)
	s.LastAttemptID = doc.LastAttemptID
	return nil
}

func stepOf(t *checkout.Tracker) *checkout.Step {
	step := t.Current()
	return &step
}
