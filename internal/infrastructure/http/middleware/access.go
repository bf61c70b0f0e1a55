package middleware

import (
	"net/http"
	"strings"

	"github.com/mercadotiendas/storefront/internal/domain/routing"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
)

// RequireAccess applies the route's access rule. Browsers navigating to a
// screen get a 302; API callers get a JSON body naming where to go.
func RequireAccess(route routing.Route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated := session.FromContext(r.Context()).Authenticated()

		decision := routing.Decide(route, authenticated)
		if decision.Allow {
			next.ServeHTTP(w, r)
			return
		}

		monitoring.RecordAuthRedirect(route.Access.String(), decision.RedirectTo)

		if wantsHTML(r) {
			http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
			return
		}
		if route.Access == routing.Private {
			response.WriteLoginRequired(w, decision.RedirectTo)
			return
		}

		w.Header().Set("Location", decision.RedirectTo)
		resp := response.Error(response.StatusConflict, "Already signed in")
		resp.Redirect = decision.RedirectTo
		response.WriteJSON(w, http.StatusSeeOther, resp)
	})
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
