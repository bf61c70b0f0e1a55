package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CartHandler struct {
	carts *commands.CartHandler
	log   *logger.Logger
}

func NewCartHandler(carts *commands.CartHandler, log *logger.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.View(r.Context(), currentSession(r).ID)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, view)
}

func (h *CartHandler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	if req.ProductID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"productId": "This field is required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.carts.AddItem(r.Context(), commands.AddItemCommand{
		SessionID: currentSession(r).ID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, view, "Added to cart")
}

func (h *CartHandler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	view, err := h.carts.UpdateQuantity(r.Context(), currentSession(r).ID, r.PathValue("productId"), req.Quantity)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, view)
}

func (h *CartHandler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.RemoveItem(r.Context(), currentSession(r).ID, r.PathValue("productId"))
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, view)
}

func (h *CartHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Clear(r.Context(), currentSession(r).ID)
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, view)
}
