package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// NewSessionMiddleware gives every visitor a storefront session. The cookie
// only carries the opaque id; tokens stay in the session store.
func NewSessionMiddleware(store ports.SessionStore, newID func() string, cookie SessionCookie, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookie.Name); err == nil {
				id = c.Value
			}
			if id == "" {
				id = newID()
			}

			// Sliding expiry, so every response refreshes the cookie.
			cookie.write(w, id)

			sess, err := store.Load(r.Context(), id)
			if err != nil {
				log.Warn("Failed to load session, continuing anonymous", "session_id", id, "error", err)
				sess = &session.Session{ID: id}
			}
			sess.ID = id
			if sess.Authenticated() && sess.User == nil {
				if claims, err := session.ParseClaims(sess.Tokens.AccessToken); err == nil {
					sess.User = claims.User()
				}
			}

			ctx := session.WithSession(r.Context(), sess)
			ctx = session.WithRebind(ctx, func(newID string) {
				cookie.write(w, newID)
				annotateRequest(ctx, "rotated_session_id", newID)
			})
			annotateRequest(ctx, "session_id", id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// write sets the session cookie, replacing one already queued on w.
func (c SessionCookie) write(w http.ResponseWriter, id string) {
	header := w.Header()
	var kept []string
	for _, v := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(v, c.Name+"=") {
			kept = append(kept, v)
		}
	}
	header.Del("Set-Cookie")
	for _, v := range kept {
		header.Add("Set-Cookie", v)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
