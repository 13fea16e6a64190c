package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/srp-dev/consolidation-api/api/swagger"
	"github.com/srp-dev/consolidation-api/internal/handler"
	"github.com/srp-dev/consolidation-api/internal/middleware"
	"github.com/srp-dev/consolidation-api/internal/models"
	"github.com/srp-dev/consolidation-api/internal/repository"
	"github.com/srp-dev/consolidation-api/internal/service"
	"github.com/srp-dev/consolidation-api/internal/upstream"
	"github.com/srp-dev/consolidation-api/pkg/cache"
	"github.com/srp-dev/consolidation-api/pkg/config"
	"github.com/srp-dev/consolidation-api/pkg/database"
	"github.com/srp-dev/consolidation-api/pkg/jobs"
	"github.com/srp-dev/consolidation-api/pkg/logger"
	corsmiddleware "github.com/srp-dev/consolidation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/srp-dev/consolidation-api/pkg/middleware/requestid"
	"github.com/srp-dev/consolidation-api/pkg/storage"
)

// @title SRP Consolidation API
// @version 0.1.0
// @description Consolidated LAEMPL/MPS report views and export jobs
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, view caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Consolidation.CacheTTL, logr, cfg.Consolidation.CacheEnabled)
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	upstreamClient := upstream.NewClient(cfg.Upstream, logr)

	consolidationSvc := service.NewConsolidationService(upstreamClient, cacheSvc, metricsSvc, cfg.Consolidation.CacheTTL, logr)
	exportSvc := service.NewExportService(consolidationSvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.ResultTTL,
	}, logr)

	jobRepo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(jobRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
	queue := jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		Logger:     logr,
	})

	exportJobSvc := service.NewExportJobService(jobRepo, queue, exportSvc, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.ResultTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	consolidationHandler := handler.NewConsolidationHandler(consolidationSvc)
	exportHandler := handler.NewExportHandler(exportJobSvc)
	metricsSvc.RegisterQueueDepth(queue.Depth)

	metricsHandler := handler.NewMetricsHandler(metricsSvc, func() error { return db.Ping() })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	defer queue.Stop()
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/exports/download/:token", exportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(tokenSvc))
	authed.Use(middleware.SessionForward())

	views := authed.Group("/consolidations")
	views.Use(middleware.RBAC(models.RoleCoordinator, models.RolePrincipal, models.RoleAdmin))
	views.GET("/by-grade", consolidationHandler.ByGrade)
	views.GET("/by-subject", consolidationHandler.BySubject)

	exports := authed.Group("/exports")
	exports.Use(middleware.RBAC(models.RoleCoordinator, models.RolePrincipal, models.RoleAdmin))
	exports.POST("", exportHandler.Create)
	exports.GET("/:id", exportHandler.Status)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
