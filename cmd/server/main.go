package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/yofam/upload-service/internal/auth"
	"github.com/yofam/upload-service/internal/config"
	"github.com/yofam/upload-service/internal/handlers"
	"github.com/yofam/upload-service/internal/logger"
	"github.com/yofam/upload-service/internal/middleware"
	"github.com/yofam/upload-service/internal/repositories"
	"github.com/yofam/upload-service/internal/services"
	"github.com/yofam/upload-service/internal/storage"
	"github.com/yofam/upload-service/internal/sweeper"
	"github.com/yofam/upload-service/internal/upload"
	"go.uber.org/zap"
)

const maxRequestSize = 120 * 1024 * 1024 // must cover the largest video profile

// @title YoFam Upload API
// @version 1.0
// @description Validating ingestion service for user-submitted files
// @contact.name API Support

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service-to-service authentication
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting YoFam Upload Service")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize the validation core
	registry := upload.NewRegistry()

	fileStorage, err := storage.NewLocalStorage(cfg.Upload.BasePath, registry.Dirs())
	if err != nil {
		logger.Logger.Fatal("Failed to initialize upload storage", zap.Error(err))
	}

	pipeline := upload.NewPipeline(registry, fileStorage, logger.Logger)

	// Initialize repositories and services
	uploadRepo := repositories.NewUploadRepository(db)
	uploadService := services.NewUploadService(uploadRepo, pipeline, fileStorage, registry)

	// Start the retention sweeper
	sweepDirs := make([]string, 0, len(registry.Dirs()))
	for _, dir := range registry.Dirs() {
		sweepDirs = append(sweepDirs, fileStorage.DirPath(dir))
	}
	retentionSweeper := sweeper.NewSweeper(sweepDirs, cfg.Upload.RetentionMaxAge, cfg.Upload.SweepSchedule, logger.Logger)
	if err := retentionSweeper.Start(); err != nil {
		logger.Logger.Fatal("Failed to start retention sweeper", zap.Error(err))
	}
	defer retentionSweeper.Stop()

	// Initialize middleware
	tokenValidator := auth.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	authMw := middleware.AuthMiddleware(tokenValidator)
	apiKeyMw := middleware.APIKeyMiddleware(cfg.APIKey)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, logger.Logger, cfg.Server.BaseURL, cfg.Upload.MaxFilesPerRequest, authMw)
	healthHandler := handlers.NewHealthHandler(db, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(maxRequestSize))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Get("/health", healthHandler.Health)

	// Scope router to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public metadata endpoint
		r.Get("/uploads/{id}", uploadHandler.GetMetadata)

		// Download endpoint - auth is handled conditionally in the handler
		r.Get("/uploads/{category}/{filename}", uploadHandler.DownloadFile)

		// Upload and delete endpoints require API key
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMw)
			r.Post("/uploads/{category}", uploadHandler.UploadFiles)
			r.Delete("/uploads/{category}/{filename}", uploadHandler.DeleteFile)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Minute, // large uploads stream slowly
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "upload_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
