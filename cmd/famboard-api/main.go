package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/famboard/famboard-api/api/swagger"
	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/handler"
	internalmiddleware "github.com/famboard/famboard-api/internal/middleware"
	"github.com/famboard/famboard-api/internal/models"
	"github.com/famboard/famboard-api/internal/repository"
	"github.com/famboard/famboard-api/internal/service"
	"github.com/famboard/famboard-api/pkg/cache"
	"github.com/famboard/famboard-api/pkg/config"
	"github.com/famboard/famboard-api/pkg/database"
	"github.com/famboard/famboard-api/pkg/logger"
	corsmiddleware "github.com/famboard/famboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/famboard/famboard-api/pkg/middleware/requestid"
	"github.com/famboard/famboard-api/pkg/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// @title Famboard API
// @version 1.0.0
// @description Family message board and reminder service
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	validate := validator.New()
	service.RegisterBoardValidations(validate)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	pushRepo := repository.NewPushRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr, true)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "famboard-api",
	})
	familySvc := service.NewFamilyService(familyRepo, userRepo, validate, logr)
	pushSvc := service.NewPushService(pushRepo, validate, logr, metricsSvc, service.PushServiceConfig{
		Enabled:           cfg.Push.Enabled,
		WorkerConcurrency: cfg.Push.WorkerConcurrency,
		WorkerRetries:     cfg.Push.WorkerRetries,
		DeliveryTimeout:   cfg.Push.DeliveryTimeout,
	})
	messageSvc := service.NewMessageService(messageRepo, cacheSvc, pushSvc, validate, logr, cfg.Board.CacheTTL)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)
	ttsSvc := service.NewTTSService(cacheSvc, logr, service.TTSServiceConfig{
		Endpoint: cfg.TTS.Endpoint,
		APIKey:   cfg.TTS.APIKey,
		Timeout:  cfg.TTS.Timeout,
		CacheTTL: cfg.TTS.CacheTTL,
	})

	digestStore, err := storage.NewLocalStorage(cfg.Digests.StorageDir)
	if err != nil {
		logr.Fatal("failed to init digest storage", zap.Error(err))
	}
	digestSigner := storage.NewSignedURLSigner(cfg.Digests.SignedURLSecret, cfg.Digests.SignedURLTTL)
	digestSvc := service.NewDigestService(messageRepo, digestStore, digestSigner, validate, logr, cfg.Digests.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pushSvc.Start(ctx)
	defer pushSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	familyHandler := handler.NewFamilyHandler(familySvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	pushHandler := handler.NewPushHandler(pushSvc)
	ttsHandler := handler.NewTTSHandler(ttsSvc)
	digestHandler := handler.NewDigestHandler(digestSvc)
	displayHandler := handler.NewDisplayHandler(messageSvc, settingsSvc, cacheSvc, metricsSvc, board.SystemClock(), logr)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", internalmiddleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", internalmiddleware.JWT(authSvc), authHandler.ChangePassword)
	}

	families := api.Group("/families", internalmiddleware.JWT(authSvc))
	{
		families.POST("", familyHandler.Create)
		families.POST("/join", familyHandler.Join)
		families.GET("/mine", internalmiddleware.RequireFamily(), familyHandler.Get)
		families.GET("/members", internalmiddleware.RequireFamily(), familyHandler.ListMembers)
		families.POST("/leave", internalmiddleware.RequireFamily(), familyHandler.Leave)
		families.POST("/invite-code",
			internalmiddleware.RequireFamily(),
			internalmiddleware.RequireRoles(models.RoleOwner),
			familyHandler.RotateInviteCode)
		families.DELETE("/members/:id",
			internalmiddleware.RequireFamily(),
			internalmiddleware.RequireRoles(models.RoleOwner),
			familyHandler.RemoveMember)
	}

	messages := api.Group("/messages", internalmiddleware.JWT(authSvc), internalmiddleware.RequireFamily())
	{
		messages.GET("", messageHandler.List)
		messages.POST("", messageHandler.Create)
		messages.GET("/:id", messageHandler.Get)
		messages.PUT("/:id", messageHandler.Update)
		messages.DELETE("/:id", messageHandler.Delete)
	}

	settings := api.Group("/settings", internalmiddleware.JWT(authSvc), internalmiddleware.RequireFamily())
	{
		settings.GET("", settingsHandler.Get)
		settings.PATCH("", settingsHandler.Update)
	}

	push := api.Group("/push", internalmiddleware.JWT(authSvc))
	{
		push.GET("/subscriptions", pushHandler.List)
		push.POST("/subscriptions", pushHandler.Subscribe)
		push.DELETE("/subscriptions/:id", pushHandler.Unsubscribe)
	}

	display := api.Group("/display", internalmiddleware.JWT(authSvc), internalmiddleware.RequireFamily())
	{
		display.GET("/board", displayHandler.Board)
		display.GET("/stream", displayHandler.Stream)
	}

	tts := api.Group("/tts", internalmiddleware.JWT(authSvc), internalmiddleware.RequireFamily())
	{
		tts.POST("/synthesize", ttsHandler.Synthesize)
	}

	digests := api.Group("/digests")
	{
		digests.POST("", internalmiddleware.JWT(authSvc), internalmiddleware.RequireFamily(), digestHandler.Create)
		digests.GET("/download/:token", digestHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
