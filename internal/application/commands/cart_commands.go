package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/storefront"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CartView struct {
	Items         []cart.Item     `json:"items"`
	TotalQuantity int             `json:"totalQuantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Version       int64           `json:"version"`
}

func newCartView(state *storefront.State) *CartView {
	return &CartView{
		Items:         state.Cart.Items(),
		TotalQuantity: state.Cart.TotalQuantity(),
		Subtotal:      state.Cart.Subtotal(),
		Version:       state.Version,
	}
}

type AddItemCommand struct {
	SessionID string
	ProductID string
	Quantity  int
}

type CartHandler struct {
	states *use_cases.StateMutator
	market ports.Marketplace
	log    *logger.Logger
}

func NewCartHandler(states *use_cases.StateMutator, market ports.Marketplace, log *logger.Logger) *CartHandler {
	return &CartHandler{
		states: states,
		market: market,
		log:    log,
	}
}

func (h *CartHandler) View(ctx context.Context, sessionID string) (*CartView, error) {
	state, err := h.states.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newCartView(state), nil
}

// AddItem fetches the product so the cart holds the backend's current
// name and price, then merges it into the cart.
func (h *CartHandler) AddItem(ctx context.Context, cmd AddItemCommand) (*CartView, error) {
	product, err := h.market.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrProductNotFound, cmd.ProductID)
		}
		return nil, err
	}

	quantity := cart.ClampQuantity(cmd.Quantity)
	state, err := h.states.Mutate(ctx, cmd.SessionID, func(s *storefront.State) error {
		s.Cart.AddToCart(*product, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCartOperation("add")
	h.log.Debug("Item added to cart", "session_id", cmd.SessionID, "product_id", product.ID, "quantity", quantity)
	return newCartView(state), nil
}

func (h *CartHandler) RemoveItem(ctx context.Context, sessionID, productID string) (*CartView, error) {
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		s.Cart.RemoveFromCart(productID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCartOperation("remove")
	return newCartView(state), nil
}

// UpdateQuantity clamps to at least one here; the cart itself stores
// whatever it is given.
func (h *CartHandler) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error) {
	quantity = cart.ClampQuantity(quantity)
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		s.Cart.UpdateQuantity(productID, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCartOperation("update")
	return newCartView(state), nil
}

func (h *CartHandler) Clear(ctx context.Context, sessionID string) (*CartView, error) {
	state, err := h.states.Mutate(ctx, sessionID, func(s *storefront.State) error {
		s.Cart.ClearCart()
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCartOperation("clear")
	return newCartView(state), nil
}
