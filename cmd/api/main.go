package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"

	"github.com/estatedesk/estatedesk-api/internal/config"
	"github.com/estatedesk/estatedesk-api/internal/database"
	"github.com/estatedesk/estatedesk-api/internal/handlers"
	"github.com/estatedesk/estatedesk-api/internal/jobs"
	"github.com/estatedesk/estatedesk-api/internal/middleware"
	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/estatedesk/estatedesk-api/internal/services"
	"github.com/estatedesk/estatedesk-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Apply the configured late fee rate
	services.LateFeeMonthlyPercent = decimal.NewFromInt(int64(cfg.LateFeeMonthlyPercent))

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, repos, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, worker)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Everything else requires an authenticated actor
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Contract files and their ledgers
			files := protected.Group("/files")
			{
				files.GET("", h.File.Index)
				files.GET("/:file_id", h.File.Show)
				files.GET("/:file_id/summary", h.File.Summary)
				files.GET("/:file_id/schedule", h.File.Schedule)
				files.POST("/:file_id/payments", h.File.PostPayment)
				files.POST("/:file_id/sync", h.File.Sync)
				files.POST("/:file_id/transfer",
					middleware.RequireRole(models.RoleAdmin, models.RoleManager), h.File.Transfer)
			}

			// Payment record lifecycle
			payments := protected.Group("/payments")
			{
				payments.GET("", h.Payment.Index)
				payments.GET("/:payment_id", h.Payment.Show)
				payments.POST("/:payment_id/clear", h.Payment.Clear)
				payments.POST("/:payment_id/bounce",
					middleware.RequireRole(models.RoleAdmin, models.RoleManager), h.Payment.Bounce)
				payments.POST("/:payment_id/cancel", h.Payment.Cancel)
			}

			// Payable resolution
			protected.GET("/payables/:kind/:id", h.File.QuotePayable)

			// Deals and commissions
			deals := protected.Group("/deals")
			{
				deals.GET("", h.Deal.Index)
				deals.POST("", h.Deal.Create)
				deals.GET("/:deal_id", h.Deal.Show)
				deals.POST("/:deal_id/confirm", h.Deal.Confirm)
				deals.POST("/:deal_id/complete", h.Deal.Complete)
				deals.POST("/:deal_id/cancel", h.Deal.Cancel)
			}
			protected.POST("/dealers/:dealer_id/refresh_stats",
				middleware.RequireAdmin(), h.Deal.RefreshDealerStats)

			// Property hierarchy
			protected.GET("/societies/:society_id/availability", h.Property.SocietyAvailability)
			protected.GET("/streets/:street_id/availability", h.Property.StreetAvailability)

			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.DELETE("/societies/:society_id", h.Property.DeleteSociety)
				admin.DELETE("/blocks/:block_id", h.Property.DeleteBlock)
				admin.DELETE("/streets/:street_id", h.Property.DeleteStreet)
				admin.DELETE("/plots/:plot_id", h.Property.DeletePlot)

				// Audit trail
				admin.GET("/audits", h.Audit.Index)
				admin.GET("/audits/:entity/:entity_id", h.Audit.ForEntity)

				// Worker status
				admin.GET("/jobs/status", h.Job.Status)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	// Nightly overdue sweep: mark past-due installments, persist aging
	worker.ScheduleDailyAt(cfg.OverdueSweepHourUTC, jobs.Job{
		Name: "overdue-sweep",
		Run: func(ctx context.Context) error {
			return svcs.Overdue.Sweep(ctx)
		},
	})

	// Dealer projections drift only if a refresh was missed after a deal
	// completion, so a slow cadence is enough
	worker.ScheduleEvery(6*time.Hour, jobs.Job{
		Name: "dealer-stats-refresh",
		Run: func(ctx context.Context) error {
			return svcs.Commission.RefreshAllDealerStats(ctx)
		},
	})

	logger.Info("Scheduled recurring jobs")
}
