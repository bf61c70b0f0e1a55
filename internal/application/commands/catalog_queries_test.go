package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
)

func TestCatalogHandler_ListProductsPaging(t *testing.T) {
	market := newFakeMarket()
	market.addProduct("p1", "10")
	h := NewCatalogHandler(market)

	products, err := h.ListProducts(context.Background(), cart.ProductQuery{Page: -1, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestCatalogHandler_GetProductNotFound(t *testing.T) {
	h := NewCatalogHandler(newFakeMarket())
	_, err := h.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
}

func TestCatalogHandler_UploadImage(t *testing.T) {
	h := NewCatalogHandler(newFakeMarket())
	file := ports.Upload{Filename: "banner.png", Body: strings.NewReader("PNG")}

	_, err := h.UploadImage(context.Background(), nil, file)
	assert.ErrorIs(t, err, domainErrors.ErrUnauthorized)

	url, err := h.UploadImage(context.Background(), &session.User{ID: "u-1"}, file)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/banner.png", url)
}
