package payment

import (
	"github.com/shopspring/decimal"
)

type CheckoutItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	PictureURL string          `json:"pictureUrl,omitempty"`
}

// CheckoutRequest asks the marketplace to open a gateway checkout.
type CheckoutRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"total"`
	Method    Method          `json:"paymentMethod"`
	Items     []CheckoutItem  `json:"items"`
	ReturnURL string          `json:"returnUrl,omitempty"`
}

// Checkout is the gateway's answer: where to send the buyer.
type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
