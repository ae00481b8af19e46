package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huddle-chat/huddle/internal/config"
	"github.com/huddle-chat/huddle/internal/handler"
	"github.com/huddle-chat/huddle/internal/middleware"
	"github.com/huddle-chat/huddle/internal/pkg/cache"
	"github.com/huddle-chat/huddle/internal/pkg/database"
	"github.com/huddle-chat/huddle/internal/pkg/utils"
	"github.com/huddle-chat/huddle/internal/presence"
	"github.com/huddle-chat/huddle/internal/push"
	"github.com/huddle-chat/huddle/internal/repository"
	"github.com/huddle-chat/huddle/internal/service"
	"github.com/huddle-chat/huddle/internal/ws"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title           Huddle API
// @version         1.0
// @description     Room messaging, presence, and notification dispatch service

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting huddle server",
		zap.String("mode", cfg.Server.Mode),
		zap.Int("port", cfg.Server.Port),
	)

	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewPostgres(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db, logger)

	redisClient, err := cache.NewRedis(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer cache.Close(redisClient, logger)

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	// Repositories
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenDirectory := repository.NewRedisTokenDirectory(redisClient)

	// Presence and push
	registry := presence.NewShardedRegistry()
	pushProvider := push.NewHTTPProvider(&cfg.Push, logger)

	// Services
	notificationService := service.NewNotificationService(notifRepo, redisClient, logger)
	dispatchService := service.NewDispatchService(notificationService, registry, tokenDirectory, pushProvider, logger)
	roomService := service.NewRoomService(roomRepo, messageRepo, registry, dispatchService, logger)
	messageService := service.NewMessageService(messageRepo, roomRepo, logger)

	// The hub is both the broadcast router and the presence feeder
	hub := ws.NewHub(registry, logger)
	go hub.Run()
	roomService.SetBroadcaster(hub)
	messageService.SetBroadcaster(hub)

	// Handlers
	roomHandler := handler.NewRoomHandler(roomService)
	messageHandler := handler.NewMessageHandler(messageService)
	notificationHandler := handler.NewNotificationHandler(notificationService, dispatchService)
	wsHandler := ws.NewHandler(hub, registry, jwtManager, logger)

	router := setupRouter(
		cfg,
		logger,
		jwtManager,
		redisClient,
		roomHandler,
		messageHandler,
		notificationHandler,
		wsHandler,
	)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server is running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

func setupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *utils.JWTManager,
	redisClient *redis.Client,
	roomHandler *handler.RoomHandler,
	messageHandler *handler.MessageHandler,
	notificationHandler *handler.NotificationHandler,
	wsHandler *ws.Handler,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// WebSocket endpoint
	router.GET("/ws", wsHandler.ServeWS)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(jwtManager))
	v1.Use(middleware.APIRateLimit(redisClient))
	{
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", roomHandler.List)
			rooms.POST("", roomHandler.Create)
			rooms.GET("/:id", roomHandler.GetByID)
			rooms.PUT("/:id", roomHandler.Update)
			rooms.DELETE("/:id", roomHandler.Delete)
			rooms.POST("/:id/join", roomHandler.Join)
			rooms.POST("/:id/leave", roomHandler.Leave)
			rooms.GET("/:id/participants", roomHandler.ListParticipants)
			rooms.POST("/:id/join-requests/:request_id", roomHandler.RespondJoinRequest)

			rooms.GET("/:id/messages", messageHandler.List)
			rooms.POST("/:id/messages", middleware.MessageRateLimit(redisClient), messageHandler.Send)
			rooms.POST("/:id/read", messageHandler.MarkAllRead)
		}

		messages := v1.Group("/messages")
		{
			messages.PUT("/:message_id", messageHandler.Edit)
			messages.DELETE("/:message_id", messageHandler.Delete)
			messages.GET("/:message_id/reads", messageHandler.GetReadReceipts)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/dispatch", middleware.RequirePrivileged(), notificationHandler.Dispatch)
		}

		wsStats := v1.Group("/ws")
		{
			wsStats.GET("/stats", wsHandler.GetStats)
			wsStats.GET("/online", wsHandler.GetOnlineUsers)
			wsStats.GET("/online/:user_id", wsHandler.IsUserOnline)
		}
	}

	return router
}
