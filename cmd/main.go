package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"student-intake-platform/internal/ai"
	"student-intake-platform/internal/config"
	"student-intake-platform/internal/logger"
	"student-intake-platform/internal/telemetry"
	"student-intake-platform/middleware"
	"student-intake-platform/routes"
	"student-intake-platform/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Tracing
	shutdownTracer, err := telemetry.InitTracer("student-intake-platform", cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	// Gemini client
	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer gemini.Close()

	// Object storage backend
	var storage services.Storage
	switch cfg.StorageBackend {
	case "drive":
		drive, err := services.NewDriveStorage(context.Background(), cfg.GoogleCredentialsFile, cfg.DriveParentFolderID)
		if err != nil {
			log.Fatal("Failed to initialize Drive storage:", err)
		}
		storage = drive
	default:
		local, err := services.NewLocalStorage(cfg.StoragePath)
		if err != nil {
			log.Fatal("Failed to initialize local storage:", err)
		}
		storage = local
	}

	// Services
	studentService := services.NewStudentService(db)
	pipeline := services.NewPipeline(
		services.NewTextExtractor(),
		services.NewVisionConverter(cfg.VisionMaxPages),
		services.NewFieldExtractor(gemini),
		storage,
		studentService,
		cfg.MinTextLength,
	)
	exporter := services.NewExportService()

	var mailer services.EmailSender
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPEmailSender(cfg)
	} else {
		logger.Warn("SMTP not configured, email notifications disabled")
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.RequestIDTraceAttribute())
	router.Use(middleware.RateLimitMiddleware(20, 40))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize * int64(cfg.MaxBatchSize)))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg)

	// Setup routes
	routes.SetupAuthRoutes(router, cfg, studentService)
	routes.SetupContactRoutes(router, studentService, mailer)
	routes.SetupUploadRoutes(router, cfg, authMiddleware, pipeline, studentService)
	routes.SetupStudentRoutes(router, cfg, authMiddleware, studentService, exporter, mailer)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("server exited")
}
