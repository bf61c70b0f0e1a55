package commands

import (
	"context"
	"errors"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
)

const maxProductPageSize = 100

// CatalogHandler serves the read-only product and shop pages.
type CatalogHandler struct {
	market ports.Marketplace
}

func NewCatalogHandler(market ports.Marketplace) *CatalogHandler {
	return &CatalogHandler{market: market}
}

func (h *CatalogHandler) ListProducts(ctx context.Context, query cart.ProductQuery) ([]cart.Product, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 || query.Limit > maxProductPageSize {
		query.Limit = 20
	}

	products, err := h.market.ListProducts(ctx, query)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []cart.Product{}
	}
	return products, nil
}

func (h *CatalogHandler) GetProduct(ctx context.Context, id string) (*cart.Product, error) {
	p, err := h.market.GetProduct(ctx, id)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return nil, domainErrors.ErrProductNotFound
	}
	return p, err
}

func (h *CatalogHandler) GetShop(ctx context.Context, id string) (*cart.Shop, error) {
	return h.market.GetShop(ctx, id)
}

func (h *CatalogHandler) GetMyShop(ctx context.Context) (*cart.Shop, error) {
	return h.market.GetMyShop(ctx)
}

// UploadImage forwards a product or shop image to the marketplace.
func (h *CatalogHandler) UploadImage(ctx context.Context, user *session.User, file ports.Upload) (string, error) {
	if user == nil {
		return "", domainErrors.ErrUnauthorized
	}
	return h.market.UploadImage(ctx, file)
}
