package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mercadotiendas/storefront/internal/application/commands"
	"github.com/mercadotiendas/storefront/internal/application/use_cases"
	"github.com/mercadotiendas/storefront/internal/config"
	"github.com/mercadotiendas/storefront/internal/domain/payment"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/apiclient"
	"github.com/mercadotiendas/storefront/internal/infrastructure/bloom"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/handlers"
	"github.com/mercadotiendas/storefront/internal/infrastructure/http/server"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/infrastructure/persistence/postgres"
	"github.com/mercadotiendas/storefront/internal/infrastructure/persistence/redis"
	"github.com/mercadotiendas/storefront/internal/infrastructure/scheduler"
	"github.com/mercadotiendas/storefront/internal/pkg/clock"
	"github.com/mercadotiendas/storefront/internal/pkg/generator"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

const (
	paymentResultsBloomKey      = "payment_results"
	paymentResultsExpected      = 1_000_000
	paymentResultsFalsePositive = 0.001
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	flag.Parse()

	cfg, configErr := config.LoadConfig(*configPath)
	if configErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", configErr)
		os.Exit(1)
	}

	log, logErr := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", logErr)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Storefront Service", "api_base_url", cfg.API.BaseURL)

	db, dbErr := postgres.NewConnection(cfg.Database)
	if dbErr != nil {
		log.Fatal("Failed to connect to database", "error", dbErr)
	}
	defer db.Close()

	if migrationErr := postgres.RunMigrations(db, cfg.Database.MigrationsPath, log); migrationErr != nil {
		log.Fatal("Failed to run migrations", "error", migrationErr)
	}

	redisConn, err := redis.NewConnection(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisConn.Close()

	serverCtx, serverStopCtx := context.WithCancel(context.Background())
	defer serverStopCtx()

	dbMetricsCollector := monitoring.NewDBMetricsCollector(db.GetDB())
	dbMetricsCollector.StartCollecting(serverCtx, 30*time.Second)

	clk := clock.NewRealClock()
	codeGen := generator.NewCodeGenerator()
	keys := session.NewKeySpace(cfg.Session.KeyPrefix)

	sessions := redis.NewSessionStore(redisConn, keys, cfg.Session.TTL)
	states := redis.NewStateStore(redisConn, keys, cfg.Session.TTL)
	locker := redis.NewLocker(redisConn)
	seen := bloom.NewForExpected(redisConn.GetClient(), keys.Prefix+":"+paymentResultsBloomKey, paymentResultsExpected, paymentResultsFalsePositive)
	payments := postgres.NewPaymentRepository(db)

	client, err := apiclient.NewClient(cfg.API.BaseURL, sessions.Tokens(),
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		apiclient.WithRefreshPath(cfg.API.RefreshPath),
		apiclient.WithRetryPolicy(apiclient.RetryPolicy{
			MaxRefreshAttempts: cfg.API.MaxRefreshAttempts,
			Backoff:            cfg.API.RefreshBackoff,
		}),
		apiclient.WithLogger(log),
		apiclient.OnSessionExpired(func(ctx context.Context) {
			sid, _ := session.IDFromContext(ctx)
			monitoring.RecordSessionExpired()
			log.Info("Session expired, login required", "session_id", sid)
		}),
	)
	if err != nil {
		log.Fatal("Failed to create marketplace client", "error", err)
	}
	market := apiclient.NewMarketplace(client)

	mutator := use_cases.NewStateMutator(states, log)
	placeOrder := commands.NewPlaceOrderHandler(
		mutator,
		locker,
		keys,
		market,
		payments,
		codeGen,
		clk,
		commands.PlaceOrderConfig{
			LockTTL:   cfg.Session.LockTTL,
			ReturnURL: cfg.Payment.ReturnURL,
			Popup:     payment.PopupSize{Width: cfg.Payment.PopupWidth, Height: cfg.Payment.PopupHeight},
		},
		log,
	)
	results := commands.NewPaymentResultHandler(
		payments,
		market,
		seen,
		mutator,
		payment.NewOriginPolicy(cfg.Payment.AllowedOrigins),
		clk,
		log,
	)

	httpServer := server.NewServer(cfg, server.Handlers{
		Health:    handlers.NewHealthHandler(db.GetDB(), redisConn.GetClient(), log),
		Auth:      handlers.NewAuthHandler(commands.NewAuthHandler(sessions, market, codeGen.GenerateSessionID, log), log),
		Catalog:   handlers.NewCatalogHandler(commands.NewCatalogHandler(market), log),
		Cart:      handlers.NewCartHandler(commands.NewCartHandler(mutator, market, log), log),
		Checkout:  handlers.NewCheckoutHandler(commands.NewCheckoutHandler(mutator, cfg.Payment.GuardedSteps, log), placeOrder, log),
		Payment:   handlers.NewPaymentHandler(results, log),
		Campaigns: handlers.NewCampaignHandler(commands.NewCampaignHandler(market, clk, log), log),
	}, sessions, codeGen.GenerateSessionID, log)

	reconciler := scheduler.NewPaymentReconciler(payments, clk, log, cfg.Payment.PendingTTL, cfg.Payment.ReconcileInterval)
	go reconciler.Start(serverCtx)

	var metricsServer *monitoring.MetricsServer
	if cfg.Server.MetricsPort > 0 {
		metricsServer = monitoring.NewMetricsServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort))
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigChan
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		log.Info("Shutting down server...")
		reconciler.Stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				log.Error("Metrics server shutdown error", "error", err)
			}
		}

		serverStopCtx()
	}()

	log.Info("Server starting", "address", cfg.Server.Addr())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed", "error", err)
	}

	<-serverCtx.Done()
	log.Info("Server stopped")
}
