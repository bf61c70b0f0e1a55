package cart

import (
	"github.com/shopspring/decimal"
)

// Product is the backend's product record. The storefront only reads it;
// the marketplace API owns it.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURLs   []string        `json:"imageUrls,omitempty"`
	Stock       int             `json:"stock,omitempty"`
	ShopID      string          `json:"shopId"`
	ShopName    string          `json:"shopName,omitempty"`
}

func (p Product) MainImage() string {
	if len(p.ImageURLs) == 0 {
		return ""
	}
	return p.ImageURLs[0]
}

type Shop struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logoUrl,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
}

// ProductQuery filters the product listing.
type ProductQuery struct {
	Search string
	ShopID string
	Page   int
	Limit  int
}
