package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digicom/complaints/internal/auth"
	"github.com/digicom/complaints/internal/background"
	"github.com/digicom/complaints/internal/config"
	"github.com/digicom/complaints/internal/database"
	"github.com/digicom/complaints/internal/handlers"
	middlewareCustom "github.com/digicom/complaints/internal/middleware"
	"github.com/digicom/complaints/internal/repositories"
	"github.com/digicom/complaints/internal/routes"
	"github.com/digicom/complaints/internal/services"
	"github.com/digicom/complaints/internal/storage"
	pkglogger "github.com/digicom/complaints/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("storage_backend", cfg.Storage.Backend))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	complaintRepo := repositories.NewComplaintRepository(db)

	// Initialize file store
	fileStore, err := newFileStore(&cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize file store", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Status update emails via AWS SES, disabled unless configured
	var notifier services.Notifier
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewAWSSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, tokenManager, logger, auditLogger)
	complaintService := services.NewComplaintService(complaintRepo, userRepo, fileStore, notifier, logger, auditLogger)
	dashboardService := services.NewDashboardService(complaintRepo, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	complaintHandler := handlers.NewComplaintHandler(complaintService, cfg.Storage.MaxFileSize)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Orphaned upload sweeper
	sweeper := background.NewUploadSweeper(complaintRepo, fileStore, logger, cfg.Storage.SweepInterval)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, complaintHandler, dashboardHandler, tokenManager, userRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper task
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// newFileStore selects the upload backend from configuration
func newFileStore(cfg *config.StorageConfig) (storage.FileStore, error) {
	constraints := storage.Constraints{
		AllowedExtensions: cfg.AllowedExtensions,
		MaxFileSize:       cfg.MaxFileSize,
	}

	if cfg.Backend == "s3" {
		return storage.NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL, constraints)
	}
	return storage.NewDiskStore(cfg.UploadDir, constraints)
}
