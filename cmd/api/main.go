package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/proposal-api/docs"
	"github.com/straye-as/proposal-api/internal/auth"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/database"
	"github.com/straye-as/proposal-api/internal/http/handler"
	"github.com/straye-as/proposal-api/internal/http/middleware"
	"github.com/straye-as/proposal-api/internal/http/router"
	"github.com/straye-as/proposal-api/internal/jobs"
	"github.com/straye-as/proposal-api/internal/logger"
	"github.com/straye-as/proposal-api/internal/metrics"
	"github.com/straye-as/proposal-api/internal/repository"
	"github.com/straye-as/proposal-api/internal/service"
	"go.uber.org/zap"
)

// @title Proposal Pricing API
// @version 1.0
// @description Pricing engine for catering proposals: totals, discounts, margins and price history

// @contact.name API Support
// @contact.email support@straye.io

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// Secrets come from the environment in development and from Key Vault when enabled
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()

	if cfg.App.Environment == "development" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	m := metrics.New()

	// Repositories
	proposalRepo := repository.NewProposalRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	tierRepo := repository.NewVolumeTierRepository(db)
	auditRepo := repository.NewPriceAuditRepository(db)

	// Services
	pricingService := service.NewPricingService(proposalRepo, lineItemRepo, tierRepo, auditRepo, &cfg.Pricing, m, db, log)
	tierService := service.NewVolumeTierService(tierRepo, db, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	healthHandler := handler.NewHealthHandler(db, log)
	pricingHandler := handler.NewPricingHandler(pricingService, log)
	tierHandler := handler.NewVolumeTierHandler(tierService, log)

	rt := router.NewRouter(
		cfg,
		log,
		m,
		authMiddleware,
		rateLimiter,
		healthHandler,
		pricingHandler,
		tierHandler,
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.RecalculationEnabled {
		scheduler = jobs.NewScheduler(log)
		job := jobs.NewRecalculationJob(pricingService, &cfg.Jobs, log)
		if err := job.Register(scheduler, cfg.Jobs.RecalculationCron); err != nil {
			log.Error("Failed to register recalculation job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			next, _ := scheduler.NextRun(jobs.RecalculationJobName)
			log.Info("Scheduler started with recalculation job",
				zap.String("cron_expr", cfg.Jobs.RecalculationCron),
				zap.Time("next_run", next),
				zap.Duration("stale_after", cfg.Jobs.StaleAfterDuration()),
				zap.Duration("timeout", cfg.Jobs.TimeoutDuration()),
			)
		}
	} else {
		log.Info("Stale recalculation job disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), "request timed out"),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
