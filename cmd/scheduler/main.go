package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/internal/worker"
	"github.com/ticketrush/admission/pkg/config"
	"github.com/ticketrush/admission/pkg/database"
	"github.com/ticketrush/admission/pkg/logger"
	pkgredis "github.com/ticketrush/admission/pkg/redis"
)

// Standalone scheduler binary. Deploy exactly one instance with
// ADMISSION_SCHEDULER_EMBEDDED=false on the API so admissions have a
// single writer.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "admission-scheduler",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Admission Scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis connection
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Failed to connect to Redis", "error", err)
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Initialize database connection for event settings
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
	})
	if err != nil {
		appLog.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Create repositories
	ledgerRepo := repository.NewRedisLedgerRepository(redisClient)
	sessionRepo := repository.NewRedisSessionRepository(redisClient)
	eventRepo := repository.NewPostgresEventRepository(db.Pool())

	// Load Lua scripts
	if err := ledgerRepo.LoadScripts(ctx); err != nil {
		appLog.Warn("Failed to load queue scripts", "error", err)
	}
	if err := sessionRepo.LoadScripts(ctx); err != nil {
		appLog.Warn("Failed to load session scripts", "error", err)
	}

	// The scheduler publishes session lifecycle events itself
	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		publisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: "admission-scheduler",
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn("Kafka connection failed, using no-op publisher", "error", err)
			publisher = service.NewNoOpEventPublisher()
		}
	} else {
		publisher = service.NewNoOpEventPublisher()
	}
	defer publisher.Close()

	sessionService := service.NewSessionService(sessionRepo, publisher, &service.SessionServiceConfig{
		JWTSecret: cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
	})

	workerCfg := &worker.SchedulerWorkerConfig{
		Interval:               cfg.Admission.SchedulerInterval,
		AdmitBatchSize:         cfg.Admission.AdmitBatchSize,
		DefaultConcurrencyCap:  cfg.Admission.DefaultConcurrencyCap,
		DefaultSessionDuration: cfg.Admission.DefaultSessionDuration,
	}
	appLog.Info("Scheduler configuration",
		"interval", workerCfg.Interval.String(),
		"batch_size", workerCfg.AdmitBatchSize)

	scheduler := worker.NewSchedulerWorker(workerCfg, ledgerRepo, sessionRepo, eventRepo, sessionService, appLog)

	go scheduler.Start(ctx)
	appLog.Info("Scheduler started")

	go reportStats(ctx, scheduler, appLog)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down scheduler")
	cancel()

	// Give the worker time to finish its pass
	time.Sleep(2 * time.Second)
	appLog.Info("Scheduler stopped")
}

// reportStats periodically logs scheduler counters
func reportStats(ctx context.Context, w *worker.SchedulerWorker, log *logger.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := w.GetStats()
			if stats.TotalAdmitted > 0 || stats.TotalExpired > 0 {
				log.Info("Scheduler stats",
					"total_admitted", stats.TotalAdmitted,
					"total_expired", stats.TotalExpired,
					"last_run_admits", stats.LastRunAdmits,
					"last_run_expired", stats.LastRunExpired)
			}
		}
	}
}
