package handlers

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type PaymentHandler struct {
	results *commands.PaymentResultHandler
	log     *logger.Logger
}

func NewPaymentHandler(results *commands.PaymentResultHandler, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{results: results, log: log}
}

// relayRequest carries the data the popup posted to its opener. The sender
// origin is never read from the body.
type relayRequest struct {
	Data payment.RelayMessage `json:"data"`
}

// HandleReturn is the landing screen the gateway redirects the buyer to.
func (h *PaymentHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.results.HandleReturn(r.Context(), currentSession(r).ID, r.URL.Query())
	writeResult(w, outcome, err)
}

func (h *PaymentHandler) HandleRelay(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteDomainError(w, h.log, err)
		return
	}
	outcome, err := h.results.HandleRelay(r.Context(), commands.RelayCommand{
		SessionID: currentSession(r).ID,
		Origin:    r.Header.Get("Origin"),
		Message:   req.Data,
	})
	writeResult(w, outcome, err)
}

func (h *PaymentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	outcomes, err := h.results.History(r.Context(), currentSession(r).ID, intQuery(r, "limit", 20))
	writeResult(w, outcomes, err)
}
