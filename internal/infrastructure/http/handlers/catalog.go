package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/domain/cart"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CatalogHandler struct {
	catalog *commands.CatalogHandler
	log     *logger.Logger
}

func NewCatalogHandler(catalog *commands.CatalogHandler, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, log: log}
}

func (h *CatalogHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.ListProducts(r.Context(), cart.ProductQuery{
		Search: q.Get("search"),
		ShopID: q.Get("shopId"),
		Page:   intQuery(r, "page", 1),
		Limit:  intQuery(r, "limit", 20),
	})
	writeResult(w, products, err)
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), r.PathValue("id"))
	writeResult(w, product, err)
}

func (h *CatalogHandler) HandleGetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.catalog.GetShop(r.Context(), r.PathValue("id"))
	writeResult(w, shop, err)
}

func (h *CatalogHandler) HandleGetMyShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.catalog.GetMyShop(r.Context())
	writeResult(w, shop, err)
}

// HandleUploadImage stores a product or shop image and returns its URL.
func (h *CatalogHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	upload, closeFile, ok := readImageUpload(w, r)
	if !ok {
		return
	}
	defer closeFile()

	url, err := h.catalog.UploadImage(r.Context(), currentSession(r).User, upload)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, uploadResult{URL: url})
}
