// Package main runs the menu portal HTTP API with the realtime push channel and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/menuportal/backend/config"
	"github.com/menuportal/backend/internal/apitokens"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/importer"
	"github.com/menuportal/backend/internal/menu"
	"github.com/menuportal/backend/internal/middleware"
	"github.com/menuportal/backend/internal/models"
	"github.com/menuportal/backend/internal/orders"
	"github.com/menuportal/backend/internal/properties"
	"github.com/menuportal/backend/internal/realtime"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/internal/worker"
	"github.com/menuportal/backend/pkg/database"
	"github.com/menuportal/backend/pkg/events"
	"github.com/menuportal/backend/pkg/queue"
	"github.com/menuportal/backend/pkg/redis"
	"github.com/menuportal/backend/pkg/response"
	"github.com/menuportal/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	if cfg.Supabase.URL != "" {
		logger.Info("managed project configured", zap.String("supabase_url", cfg.Supabase.URL))
	}

	// Redis is optional: without it the hub stays local, sessions cannot be revoked server-side
	// and background jobs are not queued.
	var (
		rdb      *redis.Client
		hub      *realtime.Hub
		revoked  auth.Revocations
		jobQueue *queue.Queue
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
		revoked = auth.NewRedisRevocations(rdb.Client)
		jobQueue = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("REDIS_ADDR not set; realtime fan-out is local and background jobs are disabled")
		hub = realtime.NewHub(logger, nil, nil)
	}

	var archive *storage.S3
	if cfg.AWS.Region != "" {
		archive, err = storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ImportBucket:    cfg.AWS.ImportBucket,
		}, logger)
		if err != nil {
			logger.Warn("import archive disabled", zap.Error(err))
			archive = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	if jwtService.Ephemeral() {
		logger.Warn("JWT_SECRET not set; session tokens are signed with a per-process key")
	}
	if err := jwtService.WithProviderKey(cfg.JWT.ProviderPublicKey); err != nil {
		logger.Fatal("provider public key", zap.Error(err))
	}

	// Repositories
	userRepo := auth.NewRepository(pool)
	propertyRepo := properties.NewRepository(pool)
	restaurantRepo := restaurants.NewRepository(pool)
	menuRepo := menu.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	tokenRepo := apitokens.NewRepository(pool)
	cascader := menu.NewCascader(pool, logger)
	guard := restaurants.NewGuard(restaurantRepo)

	// API tokens
	var touchQueue apitokens.TouchQueue
	if jobQueue != nil {
		touchQueue = jobQueue
	}
	tokenService := apitokens.NewService(tokenRepo, restaurantRepo, touchQueue, logger)
	tokenHandler := apitokens.NewHandler(tokenService, logger)

	// Auth gate: session tokens, then identity-provider tokens, then API tokens.
	gate := auth.NewGate(logger,
		auth.NewSessionAuthenticator(jwtService, userRepo, revoked),
		auth.NewProviderAuthenticator(jwtService, userRepo, revoked),
		auth.NewAPITokenAuthenticator(tokenRepo, tokenService.Touch),
	)
	authService := auth.NewService(auth.NewLocalIdentityProvider(auth.NewIdentityRepository(pool)), userRepo, propertyRepo, jwtService, revoked, logger)
	authHandler := auth.NewHandler(authService, userRepo, logger)

	propertyHandler := properties.NewHandler(propertyRepo)
	restaurantHandler := restaurants.NewHandler(restaurantRepo, cascader, logger)
	menuHandler := menu.NewHandler(menuRepo, cascader, restaurantRepo, logger)

	// Import
	var (
		archiver importer.Archiver
		links    importer.ArchiveLinks
	)
	if archive != nil {
		archiver, links = archive, archive
	}
	reconciler := importer.NewReconciler(restaurantRepo, menuRepo, archiver, cfg.Import.Concurrency, logger)
	importHandler := importer.NewHandler(reconciler, links, logger)

	// Orders
	var orderEvents orders.EventQueue
	if jobQueue != nil {
		orderEvents = jobQueue
	}
	orderService := orders.NewService(orderRepo, menuRepo, restaurantRepo, hub, orderEvents, logger)
	orderHandler := orders.NewHandler(orderService, restaurantRepo, logger)

	syncCfg := realtime.NewSyncConfig(cfg.Sync.OrderPoll, cfg.Sync.MenuPoll, cfg.Sync.PortalRefresh, cfg.Sync.NewOrderWindow)
	upgrader := realtime.NewUpgrader(cfg.Server.CORSAllowedOrigins)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")

	// Public
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)
	api.GET("/properties", propertyHandler.List)
	api.GET("/properties/:id", propertyHandler.Get)
	api.GET("/public/menu/:restaurantId", menuHandler.PublicMenu)
	api.POST("/public/orders", orderHandler.Place)
	api.GET("/sync/config", realtime.SyncConfigHandler(syncCfg))

	// WebSocket (token in query or Authorization header; checked by the gate inside the handler)
	api.GET("/ws", realtime.ServeWs(hub, upgrader, gate, guard, syncCfg, logger))

	// Session or API token
	authed := api.Group("")
	authed.Use(middleware.Authenticate(gate))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/orders", orderHandler.List)
		authed.GET("/orders/:id", orderHandler.Get)
		authed.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
		authed.GET("/orders/:id/history", orderHandler.History)
	}

	// User sessions only
	session := authed.Group("")
	session.Use(middleware.RequireSession())
	{
		session.POST("/auth/logout", authHandler.Logout)
		session.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Properties
		session.POST("/properties", middleware.RequireRole(models.RoleSuperAdmin), propertyHandler.Create)
		session.PUT("/properties/:id", middleware.RequireRole(models.RoleSuperAdmin), propertyHandler.Update)
		session.DELETE("/properties/:id", middleware.RequireRole(models.RoleSuperAdmin), propertyHandler.Delete)

		// Restaurants
		session.GET("/restaurants", restaurantHandler.List)
		session.GET("/restaurants/:id", restaurantHandler.Get)
		session.POST("/restaurants", middleware.RequireRole(models.RoleAdmin), restaurantHandler.Create)
		session.PUT("/restaurants/:id", middleware.RequireRole(models.RoleAdmin), restaurantHandler.Update)
		session.DELETE("/restaurants/:id", middleware.RequireRole(models.RoleAdmin), restaurantHandler.Delete)

		// Categories and subcategories
		session.GET("/categories", menuHandler.ListCategories)
		session.GET("/categories/:id", menuHandler.GetCategory)
		session.POST("/categories", middleware.RequireRole(models.RoleManager), menuHandler.CreateCategory)
		session.PUT("/categories/:id", middleware.RequireRole(models.RoleManager), menuHandler.UpdateCategory)
		session.DELETE("/categories/:id", middleware.RequireRole(models.RoleManager), menuHandler.DeleteCategory)
		session.GET("/subcategories", menuHandler.ListSubCategories)
		session.POST("/subcategories", middleware.RequireRole(models.RoleManager), menuHandler.CreateSubCategory)
		session.PUT("/subcategories/:id", middleware.RequireRole(models.RoleManager), menuHandler.UpdateSubCategory)
		session.DELETE("/subcategories/:id", middleware.RequireRole(models.RoleManager), menuHandler.DeleteSubCategory)

		// Menu items
		session.GET("/menu-items", menuHandler.ListItems)
		session.GET("/menu-items/:id", menuHandler.GetItem)
		session.POST("/menu-items", middleware.RequireRole(models.RoleManager), menuHandler.CreateItem)
		session.PUT("/menu-items/:id", middleware.RequireRole(models.RoleManager), menuHandler.UpdateItem)
		session.PATCH("/menu-items/:id/availability", menuHandler.SetAvailability)
		session.DELETE("/menu-items/:id", middleware.RequireRole(models.RoleManager), menuHandler.DeleteItem)

		// Modifiers
		session.GET("/modifier-groups", menuHandler.ListModifierGroups)
		session.GET("/modifier-groups/:id", menuHandler.GetModifierGroup)
		session.POST("/modifier-groups", middleware.RequireRole(models.RoleManager), menuHandler.CreateModifierGroup)
		session.PUT("/modifier-groups/:id", middleware.RequireRole(models.RoleManager), menuHandler.UpdateModifierGroup)
		session.DELETE("/modifier-groups/:id", middleware.RequireRole(models.RoleManager), menuHandler.DeleteModifierGroup)
		session.POST("/modifier-groups/:id/items", middleware.RequireRole(models.RoleManager), menuHandler.CreateModifierItem)
		session.PUT("/modifier-items/:id", middleware.RequireRole(models.RoleManager), menuHandler.UpdateModifierItem)
		session.DELETE("/modifier-items/:id", middleware.RequireRole(models.RoleManager), menuHandler.DeleteModifierItem)

		// Shared vocabularies
		session.GET("/allergens", menuHandler.ListAllergens)
		session.POST("/allergens", middleware.RequireRole(models.RoleAdmin), menuHandler.CreateAllergen)
		session.PUT("/allergens/:id", middleware.RequireRole(models.RoleAdmin), menuHandler.UpdateAllergen)
		session.DELETE("/allergens/:id", middleware.RequireRole(models.RoleAdmin), menuHandler.DeleteAllergen)
		session.GET("/attributes", menuHandler.ListAttributes)
		session.POST("/attributes", middleware.RequireRole(models.RoleAdmin), menuHandler.CreateAttribute)
		session.PUT("/attributes/:id", middleware.RequireRole(models.RoleAdmin), menuHandler.UpdateAttribute)
		session.DELETE("/attributes/:id", middleware.RequireRole(models.RoleAdmin), menuHandler.DeleteAttribute)

		// Import
		session.POST("/import/system", middleware.RequireRole(models.RoleAdmin), importHandler.System)
		session.GET("/import/archive", middleware.RequireRole(models.RoleAdmin), importHandler.Archive)
		session.POST("/restaurants/:id/import", middleware.RequireRole(models.RoleManager), importHandler.Restaurant)

		// API tokens
		tokens := session.Group("/api-tokens", middleware.RequireRole(models.RoleSuperAdmin))
		tokens.GET("", tokenHandler.List)
		tokens.POST("", tokenHandler.Create)
		tokens.PATCH("/:id/revoke", tokenHandler.Revoke)
		tokens.PATCH("/:id/activate", tokenHandler.Activate)
		tokens.DELETE("/:id", tokenHandler.Delete)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (token stamps, order event export)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil {
		var sink worker.OrderSink
		if len(cfg.Kafka.Brokers) > 0 {
			kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, logger)
			defer kafkaSink.Close()
			sink = kafkaSink
		}
		processor := worker.NewProcessor(tokenRepo, sink, jobQueue, logger)
		go processor.Run(workerCtx)
		logger.Info("background worker started", zap.Bool("order_export", sink != nil))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
