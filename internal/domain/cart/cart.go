package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered list of items holding at most one entry per product id.
// Mutators never reject input: quantities are stored as given and callers
// decide whether to clamp.
type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{items: make([]Item, 0)}
}

// FromItems rebuilds a cart from persisted items, merging duplicate ids.
func FromItems(items []Item) *Cart {
	c := New()
	for _, item := range items {
		c.AddToCart(item.Product, item.Quantity)
	}
	return c
}

func (c *Cart) AddToCart(product Product, quantity int) {
	if idx := c.indexOf(product.ID); idx >= 0 {
		c.items[idx].Quantity += quantity
		return
	}
	c.items = append(c.items, Item{Product: product, Quantity: quantity})
}

func (c *Cart) RemoveFromCart(productID string) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

func (c *Cart) UpdateQuantity(productID string, quantity int) {
	if idx := c.indexOf(productID); idx >= 0 {
		c.items[idx].Quantity = quantity
	}
}

func (c *Cart) ClearCart() {
	c.items = make([]Item, 0)
}

func (c *Cart) Find(productID string) (Item, bool) {
	if idx := c.indexOf(productID); idx >= 0 {
		return c.items[idx], true
	}
	return Item{}, false
}

// Items returns a copy so callers cannot bypass the mutators.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

func (c *Cart) indexOf(productID string) int {
	for i, item := range c.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

// ClampQuantity is the lower bound the UI applies before calling
// UpdateQuantity; the cart itself stores whatever it is given.
func ClampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	if c.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.items)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = *FromItems(items)
	return nil
}
