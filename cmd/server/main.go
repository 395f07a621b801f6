package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/campusshare/server/internal/api"
	"github.com/campusshare/server/internal/auth"
	"github.com/campusshare/server/internal/chat"
	"github.com/campusshare/server/internal/config"
	"github.com/campusshare/server/internal/database"
	"github.com/campusshare/server/internal/events"
	"github.com/campusshare/server/internal/logger"
	"github.com/campusshare/server/internal/notify"
	"github.com/campusshare/server/internal/requests"
	internalWs "github.com/campusshare/server/internal/websocket"
)

var log = logger.New("server")

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	// Load environment variables from .env file if present.
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	auth.InitJWTKey([]byte(cfg.Auth.JWTSecret))

	db, err := database.NewPostgresStore(cfg.Database.URL)
	if err != nil {
		log.Error("failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(); err != nil {
		log.Error("failed to ensure schema: %v", err)
		os.Exit(1)
	}
	log.Info("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Change feed: in-process broker, optionally bridged over Redis so
	// multiple instances see each other's writes.
	broker := events.NewBroker(256)
	defer broker.Close()

	var publisher events.Publisher = broker
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		bridge := events.NewRedisBridge(broker, rdb, cfg.Redis.Channel)
		go bridge.Run(ctx)
		publisher = bridge
		log.Info("change feed bridged over redis at %s", cfg.Redis.Addr)
	}

	notifier := notify.New(db, publisher)
	chatSvc := chat.NewService(db, publisher, broker)
	requestSvc := requests.NewService(db, notifier, publisher)

	wsManager := internalWs.NewManager()
	go wsManager.Run()
	go internalWs.Dispatch(ctx, wsManager, broker, db)

	authHandler := api.NewAuthHandler(db)
	itemHandler := api.NewItemHandler(db)
	requestHandler := api.NewRequestHandler(requestSvc)
	chatHandler := api.NewChatHandler(chatSvc)
	lostFoundHandler := api.NewLostFoundHandler(db, chatSvc, notifier)
	notificationHandler := api.NewNotificationHandler(db)
	adminHandler := api.NewAdminHandler(db)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.GET("/api/items", itemHandler.ListItems)
	router.GET("/api/lostfound", lostFoundHandler.List)
	router.GET("/api/leaderboard", itemHandler.Leaderboard)

	authorized := router.Group("/api")
	authorized.Use(api.AuthMiddleware())
	{
		authorized.GET("/auth/me", authHandler.GetMe)

		authorized.POST("/items", itemHandler.CreateItem)
		authorized.PATCH("/items/:itemID", itemHandler.UpdateItem)
		authorized.DELETE("/items/:itemID", itemHandler.DeleteItem)
		authorized.POST("/reports", itemHandler.ReportItem)

		authorized.POST("/requests", requestHandler.Submit)
		authorized.GET("/requests", requestHandler.List)
		authorized.PUT("/requests/:requestID/accept", requestHandler.Accept)
		authorized.PUT("/requests/:requestID/reject", requestHandler.Reject)
		authorized.PUT("/requests/:requestID/complete", requestHandler.Complete)

		authorized.POST("/threads/resolve", chatHandler.ResolveThread)
		authorized.GET("/threads", chatHandler.Inbox)
		authorized.GET("/threads/:threadID/messages", chatHandler.ListMessages)
		authorized.POST("/threads/:threadID/messages", chatHandler.SendMessage)
		authorized.PUT("/threads/:threadID/read", chatHandler.MarkRead)

		authorized.POST("/lostfound", lostFoundHandler.Create)
		authorized.PUT("/lostfound/:postID/status", lostFoundHandler.UpdateStatus)
		authorized.POST("/lostfound/:postID/contact", lostFoundHandler.Contact)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.PUT("/notifications/:notificationID/read", notificationHandler.MarkRead)
		authorized.PUT("/notifications/read-all", notificationHandler.MarkAllRead)

		admin := authorized.Group("/admin")
		admin.Use(api.AdminOnly())
		{
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:userID/block", adminHandler.SetUserBlocked)
			admin.GET("/reports", adminHandler.ListReports)
			admin.DELETE("/items/:itemID", adminHandler.DeleteItem)
		}
	}

	// WebSocket route; browsers cannot set headers on the upgrade
	// request, so the token is accepted as a query parameter too.
	router.GET("/api/ws", func(c *gin.Context) {
		tokenParam := c.Query("token")
		if tokenParam == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		claims, err := auth.ValidateToken(tokenParam)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		userUUID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID format in token"})
			return
		}
		c.Set("userID", userUUID)
		wsManager.HandleWebSocket(c)
	})

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown: %v", err)
	}

	log.Info("server exited")
}
