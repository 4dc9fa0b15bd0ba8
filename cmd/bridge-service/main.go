package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/config"
	"voicebridge-backend/internal/gateway"
	bridgeHandler "voicebridge-backend/internal/handler/http/bridge"
	wsHandler "voicebridge-backend/internal/handler/ws"
	"voicebridge-backend/internal/middleware"
	"voicebridge-backend/internal/realtime"
	"voicebridge-backend/internal/registry"
	"voicebridge-backend/internal/session"
	"voicebridge-backend/internal/tickets"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

func main() {
	// 1. Logging
	logger.InitDefault()
	defer logger.Sync()

	// 2. Configuration: missing required values are fatal at startup
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	// 3. Call-control platform client
	acsClient, err := acs.NewClientFromConnectionString(cfg.ACS.ConnectionString)
	if err != nil {
		logger.Fatal("invalid ACS connection string", zap.Error(err))
	}

	// 4. Call-session registry: Redis when configured, in-process otherwise
	var callRegistry registry.Registry
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		callRegistry = registry.NewRedisRegistry(redisClient)
		logger.Info("using Redis call registry", zap.String("addr", cfg.Redis.Addr))
	} else {
		callRegistry = registry.NewMemoryRegistry()
		logger.Info("using in-process call registry")
	}

	// 5. Metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 6. Gateway, ticket store, and the speech session collaborators
	gw := gateway.New(acsClient, callRegistry, cfg.ACS.CallbackHost, appMetrics)
	ticketStore := tickets.NewStore()
	toolInvoker := session.NewHTTPToolInvoker(cfg.ACS.CallbackHost)

	realtimeConfig := realtime.Config{
		Endpoint:   cfg.OpenAI.Endpoint,
		APIVersion: cfg.OpenAI.APIVersion,
		APIKey:     cfg.OpenAI.APIKey,
		Deployment: cfg.OpenAI.Deployment,
	}
	dialModel := func(ctx context.Context) (session.ModelConn, error) {
		return realtime.Dial(ctx, realtimeConfig)
	}

	// 7. Handlers
	httpHdlr := bridgeHandler.NewHandler(gw, ticketStore)
	mediaHdlr := wsHandler.NewMediaHandler(dialModel, toolInvoker, appMetrics)

	// 8. Router
	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/", httpHdlr.Home)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.Server.ServiceName,
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	api := router.Group("/api")
	{
		api.POST("/incomingCall", httpHdlr.IncomingCall)
		api.POST("/callbacks/:contextId", httpHdlr.Callbacks)
		api.POST("/endCall", httpHdlr.EndCall)
		api.GET("/ticket/:id", httpHdlr.GetTicket)
		api.POST("/ticket", httpHdlr.CreateTicket)
	}

	// Media streaming websocket
	router.GET("/ws", mediaHdlr.ServeWS)

	// 9. Start server
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("voice bridge starting",
			zap.String("port", cfg.Server.Port),
			zap.String("callback_host", cfg.ACS.CallbackHost))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
