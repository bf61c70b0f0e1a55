package server

import (
	"net/http"

	"github.com/mercadotiendas/storefront/internal/domain/routing"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/middleware"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/response"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
)

type endpoint struct {
	route   routing.Route
	handler http.HandlerFunc
	limited bool
}

func route(method, pattern, name string, access routing.Access) routing.Route {
	return routing.Route{Method: method, Pattern: pattern, Name: name, Access: access}
}

func (s *Server) endpoints() []endpoint {
	const (
		public   = routing.Public
		private  = routing.Private
		redirect = routing.RedirectIfAuthenticated
	)

	return []endpoint{
		// Screens.
		{route: route(http.MethodGet, "/{$}", "home", public), handler: s.catalog.HandleListProducts},
		{route: route(http.MethodGet, "/products/{id}", "product", public), handler: s.catalog.HandleGetProduct},
		{route: route(http.MethodGet, "/shops/{id}", "shop", public), handler: s.catalog.HandleGetShop},
		{route: route(http.MethodGet, "/my-shop", "my_shop", private), handler: s.catalog.HandleGetMyShop},
		{route: route(http.MethodGet, "/cart", "cart", public), handler: s.cart.HandleGetCart},
		{route: route(http.MethodGet, "/checkout", "checkout", private), handler: s.checkout.HandleGetCheckout},
		{route: route(http.MethodGet, "/payment/return", "payment_return", public), handler: s.payment.HandleReturn},
		{route: route(http.MethodGet, "/campaigns", "campaigns", public), handler: s.campaigns.HandleList},
		{route: route(http.MethodGet, "/campaigns/{id}", "campaign", public), handler: s.campaigns.HandleGet},
		{route: route(http.MethodGet, "/login", "login", redirect), handler: s.auth.HandleScreen("login")},
		{route: route(http.MethodGet, "/register", "register", redirect), handler: s.auth.HandleScreen("register")},

		// Auth.
		{route: route(http.MethodPost, "/api/auth/login", "auth_login", redirect), handler: s.auth.HandleLogin, limited: true},
		{route: route(http.MethodPost, "/api/auth/register", "auth_register", redirect), handler: s.auth.HandleRegister, limited: true},
		{route: route(http.MethodPost, "/api/auth/logout", "auth_logout", public), handler: s.auth.HandleLogout},
		{route: route(http.MethodGet, "/api/auth/me", "auth_me", public), handler: s.auth.HandleMe},

		// Cart.
		{route: route(http.MethodGet, "/api/cart", "cart_view", public), handler: s.cart.HandleGetCart},
		{route: route(http.MethodPost, "/api/cart/items", "cart_add", public), handler: s.cart.HandleAddItem},
		{route: route(http.MethodPatch, "/api/cart/items/{productId}", "cart_update", public), handler: s.cart.HandleUpdateQuantity},
		{route: route(http.MethodDelete, "/api/cart/items/{productId}", "cart_remove", public), handler: s.cart.HandleRemoveItem},
		{route: route(http.MethodDelete, "/api/cart", "cart_clear", public), handler: s.cart.HandleClear},

		// Checkout.
		{route: route(http.MethodGet, "/api/checkout", "checkout_view", private), handler: s.checkout.HandleGetCheckout},
		{route: route(http.MethodPut, "/api/checkout/step", "checkout_step", private), handler: s.checkout.HandleSetStep},
		{route: route(http.MethodPost, "/api/checkout/next", "checkout_next", private), handler: s.checkout.HandleNextStep},
		{route: route(http.MethodPost, "/api/checkout/previous", "checkout_previous", private), handler: s.checkout.HandlePreviousStep},
		{route: route(http.MethodPut, "/api/checkout/payment-method", "checkout_method", private), handler: s.checkout.HandleSetPaymentMethod},
		{route: route(http.MethodDelete, "/api/checkout/payment-method", "checkout_method_reset", private), handler: s.checkout.HandleResetPaymentMethod},
		{route: route(http.MethodPost, "/api/checkout/place-order", "checkout_place_order", private), handler: s.checkout.HandlePlaceOrder, limited: true},

		// Uploads.
		{route: route(http.MethodPost, "/api/uploads/image", "upload_image", private), handler: s.catalog.HandleUploadImage},

		// Payments.
		{route: route(http.MethodPost, "/api/payment/relay", "payment_relay", public), handler: s.payment.HandleRelay, limited: true},
		{route: route(http.MethodGet, "/api/payments", "payment_history", private), handler: s.payment.HandleHistory},

		// Campaigns.
		{route: route(http.MethodPost, "/api/campaigns", "campaign_create", private), handler: s.campaigns.HandleCreate},
		{route: route(http.MethodPut, "/api/campaigns/{id}", "campaign_update", private), handler: s.campaigns.HandleUpdate},
		{route: route(http.MethodPost, "/api/campaigns/images", "campaign_image", private), handler: s.campaigns.HandleUploadImage},
		{route: route(http.MethodPost, "/api/campaigns/{id}/apply", "campaign_apply", private), handler: s.campaigns.HandleApply},
		{route: route(http.MethodGet, "/api/campaigns/{id}/applications", "campaign_applications", private), handler: s.campaigns.HandleListApplications},
		{route: route(http.MethodPatch, "/api/campaigns/{id}/applications/{applicationId}", "campaign_application_status", private), handler: s.campaigns.HandleChangeApplicationStatus},
	}
}

type routeView struct {
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
	Name    string `json:"name"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	groups := map[string][]routeView{}
	for _, access := range []routing.Access{routing.Public, routing.Private, routing.RedirectIfAuthenticated} {
		views := []routeView{}
		for _, rt := range s.table.Group(access) {
			views = append(views, routeView{Method: rt.Method, Pattern: rt.Pattern, Name: rt.Name})
		}
		groups[access.String()] = views
	}
	response.WriteSuccess(w, groups)
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", monitoring.WrapHandler(s.health.HandleHealth()))
	if s.exposeMetrics {
		monitoring.RegisterMetricsEndpoint(mux)
	}

	app := http.NewServeMux()
	s.table = routing.NewTable()
	for _, ep := range s.endpoints() {
		s.table.Add(ep.route)

		var h http.Handler = ep.handler
		if ep.limited {
			h = s.limiter.Middleware(h)
		}
		h = middleware.RequireAccess(ep.route, h)
		app.Handle(ep.route.Key(), monitoring.WrapHandler(h))
	}
	app.Handle("GET /api/routes", monitoring.WrapHandler(http.HandlerFunc(s.handleRoutes)))

	var handler http.Handler = app
	handler = middleware.NewSessionMiddleware(s.sessions, s.newSessionID, s.cookie, s.logger)(handler)
	handler = middleware.NewRecoveryMiddleware(s.logger)(handler)
	handler = middleware.NewLoggingMiddleware(s.logger)(handler)
	handler = middleware.NewCORSMiddleware(s.corsOrigins)(handler)
	handler = http.TimeoutHandler(handler, s.requestTimeout, `{"status":"error","message":"Request timeout"}`)

	mux.Handle("/", handler)
	return mux
}
