package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Petrobere4/rag-docs-demo/internal/ai"
	"github.com/Petrobere4/rag-docs-demo/internal/config"
	"github.com/Petrobere4/rag-docs-demo/internal/logger"
	"github.com/Petrobere4/rag-docs-demo/internal/store"
	"github.com/Petrobere4/rag-docs-demo/internal/telemetry"
	"github.com/Petrobere4/rag-docs-demo/middleware"
	"github.com/Petrobere4/rag-docs-demo/routes"
	"github.com/Petrobere4/rag-docs-demo/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Telemetry is opt-in; without a collector the exporter only spams logs.
	var metrics *telemetry.Metrics
	if cfg.OTELEnabled {
		shutdown, err := telemetry.InitTracer("rag-docs-demo", cfg.OTELEndpoint)
		if err != nil {
			log.Fatal("Failed to init tracer:", err)
		}
		defer shutdown()

		metrics, err = telemetry.InitMetrics()
		if err != nil {
			log.Fatal("Failed to init metrics:", err)
		}
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

	st, err := store.New(mongoClient, cfg)
	if err != nil {
		log.Fatal("Failed to init store:", err)
	}

	aiClient, err := ai.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to init Gemini client:", err)
	}
	defer aiClient.Close()

	chunker := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize, cfg.MaxChunks)
	ingestService := services.NewIngestionService(cfg, chunker, aiClient, st)
	answerService := services.NewAnswerService(cfg, aiClient, aiClient, st)
	exportService := services.NewExportService(st)

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())

	if cfg.OTELEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
		router.Use(middleware.MetricsMiddleware(metrics))
	}

	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	// Rate limiting is best effort: without Redis the service still runs.
	if rdb, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, rate limiting disabled", "error", err)
	} else {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	// Setup routes
	routes.SetupDocumentRoutes(router, cfg, ingestService, st, metrics)
	routes.SetupQueryRoutes(router, answerService, metrics)
	routes.SetupLogRoutes(router, exportService)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
