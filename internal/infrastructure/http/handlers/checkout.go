package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/domain/checkout"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type CheckoutHandler struct {
	checkout   *commands.CheckoutHandler
	placeOrder *commands.PlaceOrderHandler
	log        *logger.Logger
}

func NewCheckoutHandler(checkout *commands.CheckoutHandler, placeOrder *commands.PlaceOrderHandler, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   checkout,
		placeOrder: placeOrder,
		log:        log,
	}
}

type stepRequest struct {
	Step checkout.Step `json:"step"`
}

type paymentMethodRequest struct {
	Method payment.Method `json:"paymentMethod"`
}

func (h *CheckoutHandler) HandleGetCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := h.checkout.View(r.Context(), currentSession(r).ID)
	writeResult(w, view, err)
}

func (h *CheckoutHandler) HandleSetStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}

	sess := currentSession(r)
	view, err := h.checkout.SetStep(r.Context(), sess.ID, req.Step, sess.Authenticated())
	writeResult(w, view, err)
}

func (h *CheckoutHandler) HandleNextStep(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view, err := h.checkout.NextStep(r.Context(), sess.ID, sess.Authenticated())
	writeResult(w, view, err)
}

func (h *CheckoutHandler) HandlePreviousStep(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	view, err := h.checkout.PreviousStep(r.Context(), sess.ID, sess.Authenticated())
	writeResult(w, view, err)
}

func (h *CheckoutHandler) HandleSetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	if req.Method == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"paymentMethod": "This field is required"})
		return
	}

	view, err := h.checkout.SetPaymentMethod(r.Context(), currentSession(r).ID, req.Method)
	writeResult(w, view, err)
}

func (h *CheckoutHandler) HandleResetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	view, err := h.checkout.ResetPaymentMethod(r.Context(), currentSession(r).ID)
	writeResult(w, view, err)
}

// HandlePlaceOrder returns the gateway URL and the popup size; the UI opens
// the window.
func (h *CheckoutHandler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)

	resp, err := h.placeOrder.Handle(r.Context(), commands.PlaceOrderCommand{
		SessionID:     sess.ID,
		UserID:        sess.UserID(),
		Authenticated: sess.Authenticated(),
	})
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteCreated(w, resp)
}

func writeResult[T any](w http.ResponseWriter, data T, err error) {
	if err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	response.WriteSuccess(w, data)
}
