package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
)

// APIError is a non-2xx answer from the marketplace API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("marketplace api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("marketplace api: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match on the domain sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return domainErrors.ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return domainErrors.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return domainErrors.ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return domainErrors.ErrUpstreamUnavailable
	case len(e.Fields) > 0:
		return domainErrors.NewValidationError(e.Fields)
	default:
		return nil
	}
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

type fieldError struct {
	Field   string `json:"field"`
	Param   string `json:"param"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func parseAPIError(resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	apiErr.Fields = parseFieldErrors(body.Errors)

	return apiErr
}

// parseFieldErrors accepts both {"field": "msg"} and
// [{"field": "...", "message": "..."}] shapes.
func parseFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil && len(asMap) > 0 {
		return asMap
	}

	var asList []fieldError
	if err := json.Unmarshal(raw, &asList); err != nil || len(asList) == 0 {
		return nil
	}

	fields := make(map[string]string, len(asList))
	for _, fe := range asList {
		name := firstNonEmpty(fe.Field, fe.Param, fe.Path)
		msg := firstNonEmpty(fe.Message, fe.Msg)
		if name == "" {
			continue
		}
		if _, exists := fields[name]; !exists {
			fields[name] = msg
		}
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
