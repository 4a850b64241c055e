package di

import (
	"github.com/ticketrush/admission/internal/handler"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/internal/worker"
	"github.com/ticketrush/admission/pkg/database"
	"github.com/ticketrush/admission/pkg/redis"
)

// Container holds all dependencies for the admission service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	LedgerRepo    repository.LedgerRepository
	SessionRepo   repository.SessionRepository
	InventoryRepo repository.InventoryRepository
	EventRepo     repository.EventRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Services
	QueueService    service.QueueService
	SessionService  service.SessionService
	CheckoutService service.CheckoutService
	AdminService    service.AdminService

	// Workers
	Scheduler *worker.SchedulerWorker

	// Handlers
	HealthHandler   *handler.HealthHandler
	QueueHandler    *handler.QueueHandler
	CheckoutHandler *handler.CheckoutHandler
	AdminHandler    *handler.AdminHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	EventPublisher service.EventPublisher
	SessionConfig  *service.SessionServiceConfig
	SchedulerCfg   *worker.SchedulerWorkerConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventPublisher: cfg.EventPublisher,
	}

	// Initialize repositories
	c.LedgerRepo = repository.NewRedisLedgerRepository(c.Redis)
	c.SessionRepo = repository.NewRedisSessionRepository(c.Redis)
	c.InventoryRepo = repository.NewRedisInventoryRepository(c.Redis)
	c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())

	// Initialize services
	c.SessionService = service.NewSessionService(c.SessionRepo, c.EventPublisher, cfg.SessionConfig)
	c.QueueService = service.NewQueueService(c.LedgerRepo, c.SessionRepo, c.EventRepo, c.EventPublisher)
	c.CheckoutService = service.NewCheckoutService(c.InventoryRepo, c.SessionRepo, c.EventPublisher)
	c.AdminService = service.NewAdminService(c.LedgerRepo, c.SessionRepo, c.InventoryRepo, c.EventRepo)

	// Initialize scheduler
	c.Scheduler = worker.NewSchedulerWorker(
		cfg.SchedulerCfg,
		c.LedgerRepo,
		c.SessionRepo,
		c.EventRepo,
		c.SessionService,
		nil,
	)

	// Initialize handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.QueueHandler = handler.NewQueueHandler(c.QueueService)
	c.CheckoutHandler = handler.NewCheckoutHandler(c.CheckoutService, c.SessionService)
	c.AdminHandler = handler.NewAdminHandler(c.QueueService, c.SessionService, c.AdminService, c.Scheduler)

	return c
}
