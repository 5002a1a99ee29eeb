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

	_ "github.com/virtulab/virtulab-api/api/swagger"
	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/handler"
	"github.com/virtulab/virtulab-api/internal/middleware"
	"github.com/virtulab/virtulab-api/internal/models"
	"github.com/virtulab/virtulab-api/internal/repository"
	"github.com/virtulab/virtulab-api/internal/service"
	"github.com/virtulab/virtulab-api/pkg/cache"
	"github.com/virtulab/virtulab-api/pkg/config"
	"github.com/virtulab/virtulab-api/pkg/database"
	"github.com/virtulab/virtulab-api/pkg/jobs"
	"github.com/virtulab/virtulab-api/pkg/logger"
	corsmiddleware "github.com/virtulab/virtulab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/virtulab/virtulab-api/pkg/middleware/requestid"
)

// @title VirtuLab API
// @version 0.1.0
// @description AI-assisted virtual laboratory platform
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

	// Repositories.
	simRepo := repository.NewSimulationRepository(db)
	actionRepo := repository.NewGameActionRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var limiter *repository.RateLimitRepository
	var lbCache *repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		limiter = repository.NewRateLimitRepository(redisClient, cfg.Simulations.GenerationHourlyCap, cfg.Simulations.UpdateMinInterval)
		lbCache = repository.NewCacheRepository(redisClient)
	} else {
		logr.Warn("redis disabled, rate limiting falls back to count queries and leaderboard caching is off")
	}

	var aiClient ai.Client
	if cfg.AI.Enabled {
		aiClient = ai.NewHTTPClient(ai.HTTPClientConfig{
			BaseURL:    cfg.AI.BaseURL,
			Model:      cfg.AI.Model,
			APIVersion: cfg.AI.APIVersion,
			Timeout:    cfg.AI.Timeout,
			Logger:     logr,
		})
	} else {
		logr.Warn("generative capability disabled, deterministic templates only")
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(notificationRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	generatorSvc := service.NewGeneratorService(aiClient, cfg.AI.Model, cfg.AI.APIVersion, logr)
	completionSvc := service.NewCompletionService(statsRepo, userRepo, notificationSvc, logr)
	simulationSvc := service.NewSimulationService(simRepo, userRepo, statsRepo,
		rateLimiterOrNil(limiter), generatorSvc, completionSvc, notificationSvc,
		metricsSvc, nil, logr, cfg.Simulations.GenerationHourlyCap)
	gameSvc := service.NewGameService(simRepo, actionRepo, aiClient, metricsSvc, nil, logr)
	leaderboardSvc := service.NewLeaderboardService(statsRepo, cacheOrNil(lbCache), cfg.Leaderboard.CacheTTL, cfg.Leaderboard.DefaultLimit, logr)
	statsSvc := service.NewStatsService(statsRepo, nil, nil, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	simulationHandler := handler.NewSimulationHandler(simulationSvc)
	gameHandler := handler.NewGameHandler(gameSvc)
	statsHandler := handler.NewStatsHandler(statsSvc, leaderboardSvc, simulationSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	sims := authed.Group("/simulations")
	sims.POST("/generate", middleware.RequireRoles(models.RoleStudent), simulationHandler.Generate)
	sims.GET("", simulationHandler.List)
	sims.GET("/:id", simulationHandler.Get)
	sims.PUT("/:id/state", middleware.RequireRoles(models.RoleStudent), simulationHandler.UpdateState)
	sims.POST("/:id/start", middleware.RequireRoles(models.RoleStudent), simulationHandler.Start)
	sims.POST("/:id/pause", middleware.RequireRoles(models.RoleStudent), simulationHandler.Pause)
	sims.POST("/:id/resume", middleware.RequireRoles(models.RoleStudent), simulationHandler.Resume)
	sims.POST("/:id/complete", middleware.RequireRoles(models.RoleStudent), simulationHandler.Complete)
	sims.POST("/:id/actions", middleware.RequireRoles(models.RoleStudent), gameHandler.ProcessAction)
	sims.GET("/:id/actions", gameHandler.ListActions)
	sims.POST("/:id/mix", middleware.RequireRoles(models.RoleStudent), gameHandler.MixChemicals)
	sims.POST("/:id/hint", middleware.RequireRoles(models.RoleStudent), gameHandler.RequestHint)

	stats := authed.Group("/stats")
	stats.GET("/me", middleware.RequireRoles(models.RoleStudent), statsHandler.MyStats)
	stats.GET("/students/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), statsHandler.StudentStats)
	stats.GET("/leaderboard", statsHandler.Leaderboard)

	parents := authed.Group("/parents", middleware.RequireRoles(models.RoleParent))
	parents.GET("/children/progress", statsHandler.ChildrenProgress)
	parents.GET("/children/progress/export", statsHandler.ExportChildrenProgress)

	notifications := authed.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.POST("/:id/read", notificationHandler.MarkRead)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}

// rateLimiterOrNil keeps the typed-nil pointer out of the service interface.
func rateLimiterOrNil(limiter *repository.RateLimitRepository) service.RateLimiter {
	if limiter == nil {
		return nil
	}
	return limiter
}

func cacheOrNil(c *repository.CacheRepository) service.LeaderboardCache {
	if c == nil {
		return nil
	}
	return c
}
