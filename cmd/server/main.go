package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/botledger/botgate/internal/config"
	"github.com/botledger/botgate/internal/ethereal"
	"github.com/botledger/botgate/internal/handler"
	"github.com/botledger/botgate/internal/middleware"
	"github.com/botledger/botgate/internal/pkg/logger"
	"github.com/botledger/botgate/internal/repository"
	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("✅ Connected to PostgreSQL")

	projectRepo := repository.NewPostgresProjectRepo(db)
	tradeRepo := repository.NewPostgresTradeRepo(db)
	snapshotRepo := repository.NewPostgresSnapshotRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)

	// Enrichment cache (Redis > Memory)
	var cache ethereal.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			cache = redisClient
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory cache", "error", err)
		}
	}
	if cache == nil {
		cache = ethereal.NewMemoryCache()
	}

	// 3. Initialize Core Services
	directory := service.NewDirectory(cfg, projectRepo)
	ingestSvc := service.NewIngestService(tradeRepo, snapshotRepo, eventRepo)
	projectSvc := service.NewProjectService(projectRepo, tradeRepo, snapshotRepo, eventRepo, directory)
	enricher := ethereal.NewClient(cfg, cache)
	reportSvc := service.NewReportService(projectRepo, tradeRepo, snapshotRepo, enricher)

	// 4. Initialize Handlers
	ingestHandler := handler.NewIngestHandler(ingestSvc)
	projectHandler := handler.NewProjectHandler(projectSvc, reportSvc)

	// 5. Setup Router
	r := gin.Default()

	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "botgate"})
	})

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// Ingestion (project API key)
	v1 := r.Group("/v1")
	ingestGroup := v1.Group("")
	ingestGroup.Use(middleware.AuthMiddleware(directory))
	ingestGroup.Use(middleware.RateLimitMiddleware(directory))
	{
		ingestGroup.POST("/ingest", ingestHandler.Ingest)
	}

	// Project management and reporting (admin key)
	admin := v1.Group("/projects")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("", projectHandler.List)
		admin.POST("", projectHandler.Create)
		admin.GET("/:id", projectHandler.Get)
		admin.PATCH("/:id", projectHandler.Update)
		admin.DELETE("/:id", projectHandler.Delete)
		admin.GET("/:id/summary", projectHandler.Summary)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 BotGate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	if err := db.Close(); err != nil {
		logger.Warn("db close failed", "error", err)
	}

	logger.Info("Server exiting")
}
