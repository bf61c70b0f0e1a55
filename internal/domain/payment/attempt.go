package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Attempt records one handoff of a cart to the payment gateway.
type Attempt struct {
	ID            string
	SessionID     string
	UserID        string
	CheckoutID    string
	CheckoutURL   string
	Reference     string
	Amount        decimal.Decimal
	Method        Method
	Status        Status
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PopupSize is the fixed window size the UI opens the checkout URL in.
type PopupSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var DefaultPopup = PopupSize{Width: 500, Height: 700}
