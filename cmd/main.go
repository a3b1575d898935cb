package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"seller-analytics-service/internal/cache"
	"seller-analytics-service/internal/config"
	"seller-analytics-service/internal/database"
	"seller-analytics-service/internal/encryption"
	"seller-analytics-service/internal/handlers"
	"seller-analytics-service/internal/middleware"
	"seller-analytics-service/internal/repository"
	"seller-analytics-service/internal/scheduler"
	"seller-analytics-service/internal/secrets"
	"seller-analytics-service/internal/services"
)

func main() {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Warn("auto-migration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn("failed to initialize GCP Secret Manager", zap.Error(err))
			secretManager = nil
		} else {
			defer secretManager.Close()
		}
	}

	var encryptor *encryption.CredentialEncryptor
	if cfg.CredentialsKey != "" {
		encryptor, err = encryption.New(cfg.CredentialsKey)
		if err != nil {
			logger.Fatal("failed to initialize credential encryption", zap.Error(err))
		}
	}
	credentialSource := services.NewCredentialSource(secretManager, encryptor)

	store := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL, logger)
	defer store.Close()

	// Repositories
	integrationRepo := repository.NewIntegrationRepository(db)
	productRepo := repository.NewProductRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Services
	analyticsService := services.NewAnalyticsService(
		integrationRepo, productRepo, recordRepo, analyticsRepo, store,
		cfg.DeadStockThresholdDays, cfg.SyncWindowDays, logger)
	syncService := services.NewSyncService(
		integrationRepo, productRepo, recordRepo, alertRepo,
		analyticsService, credentialSource, cfg.SyncWindowDays, logger)
	alertService := services.NewAlertService(
		integrationRepo, productRepo, recordRepo, analyticsRepo, alertRepo,
		cfg.AlertDedup, logger)
	notificationService := services.NewNotificationService(
		alertRepo, integrationRepo, cfg.TelegramBotToken, logger)
	integrationService := services.NewIntegrationService(integrationRepo, credentialSource, logger)

	// Background jobs
	sched := scheduler.New(scheduler.Config{
		SyncInterval:      cfg.SyncInterval,
		AlertInterval:     cfg.AlertInterval,
		NotifyInterval:    cfg.NotifyInterval,
		RetentionInterval: cfg.RetentionInterval,
		RetentionAge:      cfg.RetentionAge,
		SyncTimeout:       cfg.SyncTimeout,
	}, syncService, alertService, notificationService, alertRepo, logger)
	go sched.RunForever(ctx)

	// Handlers
	healthHandler := handlers.NewHealthHandler()
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	syncHandler := handlers.NewSyncHandler(syncService, integrationService)
	alertHandler := handlers.NewAlertHandler(alertRepo, alertService)
	integrationHandler := handlers.NewIntegrationHandler(integrationService)

	router := setupRouter(healthHandler, analyticsHandler, syncHandler, alertHandler, integrationHandler)

	logger.Info("seller analytics service starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

// setupRouter configures the HTTP router
func setupRouter(
	healthHandler *handlers.HealthHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	syncHandler *handlers.SyncHandler,
	alertHandler *handlers.AlertHandler,
	integrationHandler *handlers.IntegrationHandler,
) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.SecurityHeaders())

	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}
	router.Use(middleware.CORS(origins))

	router.Use(middleware.UserMiddleware())

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireUserID())
	{
		integrations := v1.Group("/integrations")
		{
			integrations.GET("", integrationHandler.List)
			integrations.POST("", integrationHandler.Create)
			integrations.GET("/:id", integrationHandler.Get)
			integrations.PATCH("/:id", integrationHandler.Update)
			integrations.DELETE("/:id", integrationHandler.Delete)
			integrations.POST("/:id/test", integrationHandler.Test)
		}

		v1.POST("/sync", syncHandler.TriggerSync)

		v1.GET("/kpi", analyticsHandler.GetKPI)
		v1.GET("/pnl", analyticsHandler.GetPnL)
		v1.GET("/inventory/dead-stock", analyticsHandler.GetDeadStock)
		v1.GET("/inventory/hidden-losses", analyticsHandler.GetHiddenLosses)
		v1.GET("/ads/summary", analyticsHandler.GetAdPerformance)
		v1.GET("/seo/summary", analyticsHandler.GetSeoSummary)

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", alertHandler.List)
			alerts.POST("/generate", alertHandler.Generate)
			alerts.POST("/:id/resolve", alertHandler.Resolve)
		}
	}

	return router
}
