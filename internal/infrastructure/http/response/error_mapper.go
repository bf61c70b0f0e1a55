package response

import (
	"errors"
	"net/http"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/routing"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	Message    string
}

type errorMapping struct {
	err error
	ErrorMapping
}

// Ordered so that more specific sentinels win when an error wraps several.
var errorMappings = []errorMapping{
	{domainErrors.ErrSessionExpired, ErrorMapping{http.StatusUnauthorized, StatusUnauthorized, "Your session has expired, please log in again"}},
	{domainErrors.ErrUnauthorized, ErrorMapping{http.StatusUnauthorized, StatusUnauthorized, "Login required"}},
	{domainErrors.ErrInvalidToken, ErrorMapping{http.StatusUnauthorized, StatusUnauthorized, "Invalid access token"}},

	{domainErrors.ErrProductNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Product not found"}},
	{domainErrors.ErrCampaignNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Campaign not found"}},
	{domainErrors.ErrApplicationNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Application not found"}},
	{domainErrors.ErrPaymentAttemptNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Payment not found"}},
	{domainErrors.ErrNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Not found"}},

	{domainErrors.ErrCartEmpty, ErrorMapping{http.StatusBadRequest, StatusError, "Your cart is empty"}},
	{domainErrors.ErrStepNotAllowed, ErrorMapping{http.StatusConflict, StatusConflict, "That checkout step is not available yet"}},
	{domainErrors.ErrCheckoutInFlight, ErrorMapping{http.StatusConflict, StatusConflict, "A checkout is already in progress"}},
	{domainErrors.ErrStaleState, ErrorMapping{http.StatusConflict, StatusConflict, "Your cart changed in another tab, please retry"}},

	{domainErrors.ErrPaymentAlreadyProcessed, ErrorMapping{http.StatusConflict, StatusConflict, "Payment result already processed"}},
	{domainErrors.ErrUntrustedOrigin, ErrorMapping{http.StatusForbidden, StatusForbidden, "Message origin not allowed"}},
	{domainErrors.ErrUnknownMessageSource, ErrorMapping{http.StatusBadRequest, StatusError, "Unrecognised payment message"}},
	{domainErrors.ErrMissingCheckoutID, ErrorMapping{http.StatusBadRequest, StatusError, "Payment result has no checkout id"}},

	{domainErrors.ErrInvalidTransition, ErrorMapping{http.StatusConflict, StatusConflict, "Application can no longer change status"}},
	{domainErrors.ErrNotCampaignOwner, ErrorMapping{http.StatusForbidden, StatusForbidden, "Only the shop owner can do this"}},

	{domainErrors.ErrRateLimited, ErrorMapping{http.StatusTooManyRequests, StatusRateLimited, "Too many requests, try again shortly"}},
	{domainErrors.ErrUpstreamUnavailable, ErrorMapping{http.StatusBadGateway, StatusServiceUnavailable, "Marketplace is unavailable, try again later"}},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp := Error(m.Status, m.Message)
			if m.HTTPStatus == http.StatusUnauthorized {
				resp.Redirect = routing.LoginPath
			}
			return m.HTTPStatus, resp
		}
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "Internal server error")
}

// WriteDomainError renders validation failures as field maps and every
// other error through the mapping table. The wrapped error text can name
// upstream hosts or ids, so it goes to the log and never to the client.
func WriteDomainError(w http.ResponseWriter, log *logger.Logger, err error) {
	var verr *domainErrors.ValidationError
	if errors.As(err, &verr) {
		WriteValidationError(w, "Please correct the highlighted fields", verr.Fields)
		return
	}

	statusCode, errorResponse := MapDomainError(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error("Request failed", "status", statusCode, "error", err)
	} else {
		log.Debug("Request rejected", "status", statusCode, "error", err)
	}
	WriteJSON(w, statusCode, errorResponse)
}
