package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
)

const (
	maxJSONBody    = 1 << 20
	maxImageUpload = 5 << 20
)

// decodeJSON reads a request body into v. Malformed bodies come back as a
// validation error so the UI can show them next to the form.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domainErrors.NewValidationError(map[string]string{"_": "Request body is required"})
		}
		return domainErrors.NewValidationError(map[string]string{"_": "Request body is not valid JSON"})
	}
	return nil
}

func currentSession(r *http.Request) *session.Session {
	return session.FromContext(r.Context())
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// readImageUpload reads the multipart "image" field. On failure it has
// already written the validation error and reports false.
func readImageUpload(w http.ResponseWriter, r *http.Request) (ports.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		var tooLarge *http.MaxBytesError
		msg := "Could not read the upload"
		if errors.As(err, &tooLarge) {
			msg = "Image must be 5MB or smaller"
		}
		response.WriteValidationError(w, "Validation failed", map[string]string{"image": msg})
		return ports.Upload{}, nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.WriteValidationError(w, "Validation failed", map[string]string{"image": "This field is required"})
		return ports.Upload{}, nil, false
	}

	upload := ports.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	return upload, func() { _ = file.Close() }, true
}
