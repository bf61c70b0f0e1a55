package server

import (
	"context"
	"net/http"
	"time"

	"github.com/mercadotiendas/storefront/internal/application/ports"
	"github.com/mercadotiendas/storefront/internal/config"
	"github.com/mercadotiendas/storefront/internal/domain/routing"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/handlers"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/middleware"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

// Handlers groups the HTTP handlers the server routes to.
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Catalog   *handlers.CatalogHandler
	Cart      *handlers.CartHandler
	Checkout  *handlers.CheckoutHandler
	Payment   *handlers.PaymentHandler
	Campaigns *handlers.CampaignHandler
}

type Server struct {
	server *http.Server
	logger *logger.Logger

	health    *handlers.HealthHandler
	auth      *handlers.AuthHandler
	catalog   *handlers.CatalogHandler
	cart      *handlers.CartHandler
	checkout  *handlers.CheckoutHandler
	payment   *handlers.PaymentHandler
	campaigns *handlers.CampaignHandler

	sessions       ports.SessionStore
	newSessionID   func() string
	cookie         middleware.SessionCookie
	limiter        *middleware.RateLimiter
	corsOrigins    []string
	requestTimeout time.Duration
	exposeMetrics  bool
	table          *routing.Table
}

func NewServer(cfg *config.Config, h Handlers, sessions ports.SessionStore, newSessionID func() string, log *logger.Logger) *Server {
	requestTimeout := cfg.Server.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server:    server,
		logger:    log,
		health:    h.Health,
		auth:      h.Auth,
		catalog:   h.Catalog,
		cart:      h.Cart,
		checkout:  h.Checkout,
		payment:   h.Payment,
		campaigns: h.Campaigns,
		sessions:  sessions,
		cookie: middleware.SessionCookie{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		},
		newSessionID:   newSessionID,
		limiter:        middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		corsOrigins:    cfg.Server.CORSOrigins,
		requestTimeout: requestTimeout,
		exposeMetrics:  cfg.Server.MetricsPort == 0,
	}
}

// Handler builds the routed handler; ListenAndServe uses it, tests call it
// directly.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

func (s *Server) ListenAndServe() error {
	s.server.Handler = s.setupRoutes()

	s.logger.Info("Starting HTTP server", "address", s.server.Addr)

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
