package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domainErrors.ErrCartEmpty, http.StatusBadRequest},
		{fmt.Errorf("%w: p1", domainErrors.ErrProductNotFound), http.StatusNotFound},
		{domainErrors.ErrCheckoutInFlight, http.StatusConflict},
		{domainErrors.ErrUntrustedOrigin, http.StatusForbidden},
		{domainErrors.ErrNotCampaignOwner, http.StatusForbidden},
		{domainErrors.ErrRateLimited, http.StatusTooManyRequests},
		{domainErrors.ErrUpstreamUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _ := MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestMapDomainError_SessionExpiredRedirects(t *testing.T) {
	err := fmt.Errorf("%w: refresh rejected", domainErrors.ErrSessionExpired)

	status, resp := MapDomainError(err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "/login", resp.Redirect)
	assert.Equal(t, "Your session has expired, please log in again", resp.Message)
}

func TestWriteDomainError_KeepsErrorTextServerSide(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	tests := []struct {
		name   string
		err    error
		status int
		level  zapcore.Level
	}{
		{"upstream", fmt.Errorf("%w: dial tcp 10.0.3.7:8443: connection refused", domainErrors.ErrUpstreamUnavailable), http.StatusBadGateway, zapcore.ErrorLevel},
		{"unmapped", errors.New("pq: relation payment_attempts does not exist"), http.StatusInternalServerError, zapcore.ErrorLevel},
		{"not found", fmt.Errorf("%w: chk-secret-77", domainErrors.ErrPaymentAttemptNotFound), http.StatusNotFound, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, log, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Empty(t, body.Error)
			assert.NotContains(t, rec.Body.String(), "10.0.3.7")
			assert.NotContains(t, rec.Body.String(), "payment_attempts")
			assert.NotContains(t, rec.Body.String(), "chk-secret-77")

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, tt.err.Error(), entries[0].ContextMap()["error"])
		})
	}
}

func TestWriteDomainError_ValidationFields(t *testing.T) {
	verr := domainErrors.NewValidationError(map[string]string{"budget": "Must be greater than 0"})
	rec := httptest.NewRecorder()

	WriteDomainError(rec, logger.NewNop(), verr)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusValidationError, body.Status)
	assert.Equal(t, "Must be greater than 0", body.Errors["budget"])
}

func TestWriteSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]int{"items": 2})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","data":{"items":2}}`, rec.Body.String())
}
