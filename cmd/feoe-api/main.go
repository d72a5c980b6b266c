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

	_ "github.com/rayuela-fp/feoe-api/api/swagger"
	"github.com/rayuela-fp/feoe-api/internal/handler"
	"github.com/rayuela-fp/feoe-api/internal/middleware"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/internal/repository"
	"github.com/rayuela-fp/feoe-api/internal/service"
	"github.com/rayuela-fp/feoe-api/pkg/cache"
	"github.com/rayuela-fp/feoe-api/pkg/config"
	"github.com/rayuela-fp/feoe-api/pkg/database"
	"github.com/rayuela-fp/feoe-api/pkg/logger"
	corsmiddleware "github.com/rayuela-fp/feoe-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rayuela-fp/feoe-api/pkg/middleware/requestid"
	"github.com/rayuela-fp/feoe-api/pkg/storage"
)

// @title Gestor FEOE API
// @version 1.0.0
// @description Lifecycle management for FEOE annex requests of the Extremadura vocational training network
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var pendingCache *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, pending counters uncached", "error", err)
	} else {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		pendingCache = service.NewCacheService(cacheRepo, metricsSvc, cfg.Workflow.PendingCacheTTL, logr, true)
		defer cacheRepo.Close() //nolint:errcheck
	}

	requestRepo := repository.NewRequestRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	validator := service.NewValidator(time.Month(cfg.Workflow.ClosedMonth))
	requestOpts := []service.RequestServiceOption{
		service.WithTransitionRecorder(metricsSvc),
		service.WithTrashRetention(cfg.Workflow.TrashRetention),
	}
	if pendingCache != nil {
		requestOpts = append(requestOpts, service.WithPendingCache(pendingCache, cfg.Workflow.PendingCacheTTL))
	}
	requestSvc := service.NewRequestService(requestRepo, centerRepo, studentRepo, validator, logr, requestOpts...)

	docStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	docSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(requestSvc, centerRepo, docStore, docSigner,
			service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)
	}

	if cfg.Workflow.TrashSweepEnabled {
		sweeper := service.NewTrashSweeper(requestSvc, cfg.Workflow.TrashSweepInterval, logr)
		sweeper.Start(context.Background())
		defer sweeper.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, exportSvc)
	trashHandler := handler.NewTrashHandler(requestSvc)
	referenceHandler := handler.NewReferenceHandler(centerRepo, studentRepo)
	documentHandler := handler.NewDocumentHandler(docStore, docSigner, cfg.APIPrefix, cfg.Documents.MaxFileSizeBytes)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/status", metricsHandler.Status)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.GET("/profiles", authHandler.Profiles)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	requests := secured.Group("/requests")
	requests.POST("", requestHandler.Create)
	requests.GET("", requestHandler.List)
	requests.GET("/pending-count", requestHandler.PendingCount)
	if exportSvc != nil {
		requests.POST("/export", requestHandler.Export)
		requests.GET("/export/:token", requestHandler.Download)
	}
	requests.GET("/:id", requestHandler.Get)
	requests.PUT("/:id", requestHandler.Amend)
	requests.DELETE("/:id", middleware.RequireRoles(models.RoleSuperuser), requestHandler.SoftDelete)
	requests.POST("/:id/submit", middleware.RequireRoles(models.RoleDirector), requestHandler.Submit)
	requests.POST("/:id/inspect", middleware.RequireRoles(models.RoleInspector), requestHandler.Inspect)
	requests.POST("/:id/resolve", middleware.RequireRoles(models.RoleDelegate, models.RoleDirectorGeneral, models.RoleSuperuser), requestHandler.Resolve)
	requests.POST("/:id/annulment", requestHandler.RequestAnnulment)
	requests.POST("/:id/annulment/confirm", middleware.RequireRoles(models.RoleSuperuser), requestHandler.ConfirmAnnulment)
	requests.PUT("/:id/state", middleware.RequireRoles(models.RoleSuperuser), requestHandler.ForceState)

	trash := secured.Group("/trash", middleware.RequireRoles(models.RoleSuperuser))
	trash.GET("", trashHandler.List)
	trash.POST("/:id/restore", trashHandler.Restore)
	trash.DELETE("/:id", trashHandler.Purge)

	secured.GET("/centers", referenceHandler.ListCenters)
	secured.GET("/centers/:code", referenceHandler.GetCenter)
	secured.GET("/students", referenceHandler.ListStudents)

	secured.POST("/documents", documentHandler.Upload)
	api.GET("/documents/:token", documentHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
