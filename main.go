package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // Import pprof for profiling
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ticketrush/admission/internal/di"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/internal/worker"
	"github.com/ticketrush/admission/pkg/config"
	"github.com/ticketrush/admission/pkg/database"
	"github.com/ticketrush/admission/pkg/logger"
	"github.com/ticketrush/admission/pkg/middleware"
	pkgredis "github.com/ticketrush/admission/pkg/redis"
	"github.com/ticketrush/admission/pkg/telemetry"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "admission-service",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Admission Service")

	ctx := context.Background()

	// Initialize tracing
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn("Tracing init failed, continuing without traces", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = telemetry.Shutdown(shutdownCtx)
		}()
	}

	// Initialize database connection
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     "admission-service",
	})
	if err != nil {
		appLog.Fatal("Database connection failed", "error", err)
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Initialize Redis connection
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Fatal("Redis connection failed", "error", err)
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: "admission-service",
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", "error", err)
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		EventPublisher: eventPublisher,
		SessionConfig: &service.SessionServiceConfig{
			JWTSecret: cfg.JWT.Secret,
			Issuer:    cfg.JWT.Issuer,
		},
		SchedulerCfg: &worker.SchedulerWorkerConfig{
			Interval:               cfg.Admission.SchedulerInterval,
			AdmitBatchSize:         cfg.Admission.AdmitBatchSize,
			DefaultConcurrencyCap:  cfg.Admission.DefaultConcurrencyCap,
			DefaultSessionDuration: cfg.Admission.DefaultSessionDuration,
		},
	})

	// Pre-load Lua scripts into Redis
	for name, repo := range map[string]interface {
		LoadScripts(context.Context) error
	}{
		"ledger":    container.LedgerRepo,
		"session":   container.SessionRepo,
		"inventory": container.InventoryRepo,
	} {
		if err := repo.LoadScripts(ctx); err != nil {
			appLog.Warn("Failed to pre-load Lua scripts", "scripts", name, "error", err)
		}
	}
	appLog.Info("Lua scripts pre-loaded into Redis")

	// Start the embedded scheduler unless a standalone one is deployed
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if cfg.Admission.SchedulerEmbedded {
		go container.Scheduler.Start(schedulerCtx)
		appLog.Info("Embedded scheduler started",
			"interval", cfg.Admission.SchedulerInterval.String())
	}

	// Setup Gin
	gin.SetMode(gin.ReleaseMode)
	gin.DisableConsoleColor()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware("admission-service"))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": "admission-service",
			})
		})

		idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())
		idempotencyConfig.SkipPaths = []string{"/health", "/ready", "/metrics"}

		// Queue routes
		queue := v1.Group("/queue")
		queue.Use(userIDMiddleware())
		{
			queue.POST("/join", middleware.IdempotencyMiddleware(idempotencyConfig), container.QueueHandler.JoinQueue)
			queue.GET("/status/:entry_id", container.QueueHandler.GetEntryStatus)
			queue.DELETE("/leave", container.QueueHandler.LeaveQueue)
		}

		// Checkout routes, gated by the session token
		checkout := v1.Group("/checkout")
		checkout.Use(container.CheckoutHandler.SessionAuth())
		{
			checkout.POST("/reserve", middleware.IdempotencyMiddleware(idempotencyConfig), container.CheckoutHandler.Reserve)
			checkout.POST("/complete", middleware.IdempotencyMiddleware(idempotencyConfig), container.CheckoutHandler.Complete)
			checkout.POST("/cancel", middleware.IdempotencyMiddleware(idempotencyConfig), container.CheckoutHandler.Cancel)
			checkout.GET("/reservations", container.CheckoutHandler.ListReservations)
		}

		// Public availability
		v1.GET("/events/:event_id/availability/:ticket_type", container.CheckoutHandler.GetAvailability)

		// Admin routes
		admin := v1.Group("/admin")
		{
			admin.GET("/queue/:event_id", container.AdminHandler.GetQueueSnapshot)
			admin.DELETE("/entries/:entry_id", container.AdminHandler.ForceCancelEntry)
			admin.POST("/sessions/:session_id/extend", container.AdminHandler.ExtendSession)
			admin.POST("/events/:event_id/sync-inventory", container.AdminHandler.SyncInventory)
			admin.GET("/scheduler/stats", container.AdminHandler.GetSchedulerStats)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	// Start pprof server on separate port for profiling
	go func() {
		pprofAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1000)
		appLog.Info("pprof server listening", "addr", pprofAddr)
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			appLog.Error("pprof server error", "error", err)
		}
	}()

	// Start server in goroutine
	go func() {
		appLog.Info("Admission Service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server")

	stopScheduler()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal("Server forced to shutdown", "error", err)
	}

	appLog.Info("Server exited gracefully")
}

// userIDMiddleware extracts user_id from the X-User-ID header. The edge
// gateway authenticates users; this service trusts the forwarded identity.
func userIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
