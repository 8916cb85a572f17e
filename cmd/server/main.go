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
	"go.uber.org/zap"

	"github.com/cafepos/backend/internal/application/pos"
	domainshared "github.com/cafepos/backend/internal/domain/shared"
	"github.com/cafepos/backend/internal/domain/shared/service"
	"github.com/cafepos/backend/internal/infrastructure/auth"
	"github.com/cafepos/backend/internal/infrastructure/cache"
	"github.com/cafepos/backend/internal/infrastructure/config"
	"github.com/cafepos/backend/internal/infrastructure/logger"
	"github.com/cafepos/backend/internal/infrastructure/persistence"
	"github.com/cafepos/backend/internal/infrastructure/telemetry"
	"github.com/cafepos/backend/internal/interfaces/http/handler"
	"github.com/cafepos/backend/internal/interfaces/http/middleware"
	"github.com/cafepos/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	// Connect to database with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	movementRepo := persistence.NewGormMovementRepository(db.DB)
	queueRepo := persistence.NewGormQueueRepository(db.DB)
	recipeRepo := persistence.NewGormRecipeRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	resolver := pos.NewRecipeResolver(recipeRepo, itemRepo, service.NewUnitConversionService(), log)
	availabilityService := pos.NewAvailabilityService(resolver, log)
	deductionService := pos.NewDeductionService(txScope, resolver, movementRepo, log)
	replayService := pos.NewReplayService(queueRepo, deductionService, log)
	itemService := pos.NewItemService(itemRepo, log)
	movementService := pos.NewMovementQueryService(movementRepo, itemRepo, log)
	adminService := pos.NewStockAdminService(txScope, log)
	mappingService := pos.NewMappingService(recipeRepo, itemRepo, log)

	// Idempotency fast path for duplicate sale submissions
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	var idemStore domainshared.IdempotencyStore
	if cfg.Idempotency.Backend == "redis" {
		idemStore, err = storeFactory.CreateStore()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
	} else {
		idemStore = storeFactory.CreateInMemoryStore()
	}
	defer func() { _ = idemStore.Close() }()
	deductionService.SetIdempotencyStore(idemStore, domainshared.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		Enabled: true,
	})

	// OpenTelemetry metrics
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		meterProvider   *telemetry.MeterProvider
		businessMetrics *telemetry.BusinessMetrics
		dbMetrics       *telemetry.DBMetrics
	)
	if cfg.Telemetry.Enabled {
		meterProvider, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ExportInterval:    cfg.Telemetry.ExportInterval,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize metrics", zap.Error(err))
		}
		meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:            meter,
			Logger:           log,
			CollectInterval:  cfg.Telemetry.LowStockInterval,
			LowStockProvider: itemRepo,
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		deductionService.SetBusinessMetrics(businessMetrics)
		replayService.SetBusinessMetrics(businessMetrics)

		if sqlDB, derr := db.DB.DB(); derr == nil {
			dbMetrics, err = telemetry.NewDBMetrics(meter, sqlDB, cfg.Telemetry.ExportInterval, log)
			if err != nil {
				log.Warn("Failed to initialize DB metrics", zap.Error(err))
			}
		}
	}

	// JWT authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers
	posHandler := handler.NewPOSHandler(availabilityService, deductionService, replayService)
	inventoryHandler := handler.NewInventoryHandler(itemService, movementService, adminService, mappingService)
	systemHandler := handler.NewSystemHandler(db, version)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}
	if meterProvider != nil {
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter(cfg.Telemetry.ServiceName), meterProvider.IsEnabled()))
	}

	// Liveness and readiness stay outside authentication
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	engine.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
		Logger:     log,
	}))

	// Routes
	posGroup := router.NewDomainGroup("pos", "/pos")
	posGroup.POST("/availability", posHandler.CheckAvailability)
	posGroup.POST("/sales", posHandler.CommitSale)
	posGroup.POST("/queue", posHandler.EnqueueSale)
	posGroup.GET("/queue", posHandler.ListQueue)
	posGroup.POST("/queue/replay", posHandler.ReplayQueue)
	posGroup.DELETE("/queue/:transaction_id", posHandler.CancelQueued)
	posGroup.POST("/queue/:transaction_id/resolve", posHandler.ResolveConflict)
	posGroup.POST("/queue/:transaction_id/abandon", posHandler.AbandonConflict)

	inventoryGroup := router.NewDomainGroup("inventory", "/inventory")
	inventoryGroup.GET("/items", inventoryHandler.ListItems)
	inventoryGroup.POST("/items", inventoryHandler.CreateItem)
	inventoryGroup.GET("/items/low-stock", inventoryHandler.ListLowStock)
	inventoryGroup.GET("/items/:id", inventoryHandler.GetItem)
	inventoryGroup.PUT("/items/:id", inventoryHandler.UpdateItem)
	inventoryGroup.DELETE("/items/:id", inventoryHandler.DeactivateItem)
	inventoryGroup.POST("/items/:id/adjust", inventoryHandler.AdjustStock)
	inventoryGroup.POST("/items/:id/restock", inventoryHandler.RestockItem)
	inventoryGroup.POST("/transfers", inventoryHandler.TransferStock)
	inventoryGroup.GET("/movements", inventoryHandler.ListMovements)
	inventoryGroup.GET("/movements/transaction/:reference_id", inventoryHandler.GetMovementsByTransaction)
	inventoryGroup.GET("/mappings/validate", inventoryHandler.ValidateMappings)
	inventoryGroup.POST("/mappings/repair", inventoryHandler.RepairMappings)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(posGroup).Register(inventoryGroup)
	r.Setup()

	// Background replay sweep for offline queues
	if cfg.Replay.AutoEnabled {
		go func() {
			ticker := time.NewTicker(cfg.Replay.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					replayService.ReplayAll(ctx)
				}
			}
		}()
		log.Info("Background replay enabled", zap.Duration("interval", cfg.Replay.Interval))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if businessMetrics != nil {
		businessMetrics.Stop()
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if meterProvider != nil {
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down metrics", zap.Error(err))
		}
	}

	log.Info("Server exited")
}
