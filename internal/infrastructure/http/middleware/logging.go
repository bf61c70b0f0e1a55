package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type logFieldsKey struct{}

type logField struct {
	key   string
	value interface{}
}

// logFields collects values inner middleware learn about the request, such
// as the session id, so the access log line can carry them.
type logFields struct {
	fields []logField
}

func annotateRequest(ctx context.Context, key string, value interface{}) {
	if lf, ok := ctx.Value(logFieldsKey{}).(*logFields); ok {
		lf.fields = append(lf.fields, logField{key: key, value: value})
	}
}

func NewLoggingMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()

			wrw := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			lf := &logFields{}

			next.ServeHTTP(wrw, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, lf)))

			reqLog := log
			for _, f := range lf.fields {
				reqLog = reqLog.WithField(f.key, f.value)
			}
			reqLog.Info("HTTP Request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"user_agent", r.UserAgent(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
