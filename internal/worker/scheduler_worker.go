package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/metrics"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/internal/service"
	"github.com/ticketrush/admission/pkg/logger"
)

// SchedulerWorkerConfig holds configuration for the admission scheduler
type SchedulerWorkerConfig struct {
	// Interval is the time between scheduler passes (default: 1 second)
	Interval time.Duration
	// AdmitBatchSize caps admissions per event per pass (default: 50)
	AdmitBatchSize int
	// DefaultConcurrencyCap is used when the event has no cap configured
	DefaultConcurrencyCap int
	// DefaultSessionDuration is used when the event has no window configured
	DefaultSessionDuration time.Duration
}

// DefaultSchedulerWorkerConfig returns default configuration
func DefaultSchedulerWorkerConfig() *SchedulerWorkerConfig {
	return &SchedulerWorkerConfig{
		Interval:               1 * time.Second,
		AdmitBatchSize:         50,
		DefaultConcurrencyCap:  domain.DefaultConcurrencyCap,
		DefaultSessionDuration: time.Duration(domain.DefaultSessionDurationSeconds) * time.Second,
	}
}

// SchedulerStats is a snapshot of scheduler counters
type SchedulerStats struct {
	TotalAdmitted  int64     `json:"total_admitted"`
	TotalExpired   int64     `json:"total_expired"`
	LastRunTime    time.Time `json:"last_run_time"`
	LastRunAdmits  int       `json:"last_run_admits"`
	LastRunExpired int       `json:"last_run_expired"`
}

// eventConfig is a cached view of one event's admission settings
type eventConfig struct {
	event       *domain.Event
	ticketTypes []string
}

// SchedulerWorker drives admissions: each pass expires overdue sessions
// and fills freed capacity from the head of each event's queue
type SchedulerWorker struct {
	config   *SchedulerWorkerConfig
	ledger   repository.LedgerRepository
	sessions repository.SessionRepository
	events   repository.EventRepository
	admitter service.SessionService
	log      *logger.Logger

	// Counters
	mu             sync.Mutex
	totalAdmitted  int64
	totalExpired   int64
	lastRunTime    time.Time
	lastRunAdmits  int
	lastRunExpired int

	// Cache for event configs (to reduce database calls)
	configCache     map[string]*eventConfig
	configCacheMu   sync.RWMutex
	configCacheTTL  time.Duration
	configCacheTime map[string]time.Time
}

// NewSchedulerWorker creates a new scheduler worker
func NewSchedulerWorker(
	cfg *SchedulerWorkerConfig,
	ledger repository.LedgerRepository,
	sessions repository.SessionRepository,
	events repository.EventRepository,
	admitter service.SessionService,
	log *logger.Logger,
) *SchedulerWorker {
	if cfg == nil {
		cfg = DefaultSchedulerWorkerConfig()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1 * time.Second
	}
	if cfg.AdmitBatchSize <= 0 {
		cfg.AdmitBatchSize = 50
	}
	if cfg.DefaultConcurrencyCap <= 0 {
		cfg.DefaultConcurrencyCap = domain.DefaultConcurrencyCap
	}
	if cfg.DefaultSessionDuration <= 0 {
		cfg.DefaultSessionDuration = time.Duration(domain.DefaultSessionDurationSeconds) * time.Second
	}
	if log == nil {
		log = logger.Get()
	}

	return &SchedulerWorker{
		config:          cfg,
		ledger:          ledger,
		sessions:        sessions,
		events:          events,
		admitter:        admitter,
		log:             log,
		configCache:     make(map[string]*eventConfig),
		configCacheTTL:  30 * time.Second,
		configCacheTime: make(map[string]time.Time),
	}
}

// Start begins the continuous scheduling loop
func (w *SchedulerWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.log.Info("Scheduler worker started",
		"interval", w.config.Interval.String(),
		"batch_size", w.config.AdmitBatchSize)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Scheduler worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce performs one sweep-and-admit pass over all queues
func (w *SchedulerWorker) runOnce(ctx context.Context) {
	start := time.Now()

	eventIDs, err := w.ledger.ListQueueEventIDs(ctx)
	if err != nil {
		w.log.Error("Failed to list queue events", "error", err)
		return
	}

	expired := 0
	admitted := 0
	for _, eventID := range eventIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		expired += w.sweepEvent(ctx, eventID)
		admitted += w.admitEvent(ctx, eventID)
		w.updateGauges(ctx, eventID)
	}

	w.mu.Lock()
	w.totalAdmitted += int64(admitted)
	w.totalExpired += int64(expired)
	w.lastRunTime = start
	w.lastRunAdmits = admitted
	w.lastRunExpired = expired
	w.mu.Unlock()

	metrics.ObserveSchedulerTick(time.Since(start))
}

// sweepEvent expires every session past its deadline for one event.
// Expiry is checked against the wall clock, so sessions that outlived a
// process restart are still swept.
func (w *SchedulerWorker) sweepEvent(ctx context.Context, eventID string) int {
	sessionIDs, err := w.sessions.ExpiredSessions(ctx, eventID, time.Now())
	if err != nil {
		w.log.Error("Failed to list expired sessions", "event_id", eventID, "error", err)
		return 0
	}

	expired := 0
	for _, sessionID := range sessionIDs {
		if err := w.admitter.ExpireSession(ctx, eventID, sessionID); err != nil {
			w.log.Error("Failed to expire session", "session_id", sessionID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		w.log.Info("Expired sessions", "event_id", eventID, "count", expired)
	}
	return expired
}

// admitEvent opens sessions for one event until the cap, the batch
// limit or the queue is reached
func (w *SchedulerWorker) admitEvent(ctx context.Context, eventID string) int {
	cfg := w.getEventConfig(ctx, eventID)

	admitted := 0
	for admitted < w.config.AdmitBatchSize {
		result, err := w.admitter.TryAdmit(ctx, cfg.event, cfg.ticketTypes)
		if err != nil {
			w.log.Error("Failed to admit entry", "event_id", eventID, "error", err)
			break
		}
		if !result.Success {
			// CAPACITY_FULL, QUEUE_EMPTY and SOLD_OUT all end the batch
			break
		}
		admitted++
	}

	if admitted > 0 {
		w.log.Info("Admitted entries", "event_id", eventID, "count", admitted)
	}
	return admitted
}

// updateGauges refreshes the per-event depth gauges
func (w *SchedulerWorker) updateGauges(ctx context.Context, eventID string) {
	if waiting, err := w.ledger.WaitingCount(ctx, eventID); err == nil {
		metrics.SetQueueDepth(eventID, waiting)
	}
	if active, err := w.sessions.ActiveCount(ctx, eventID); err == nil {
		metrics.SetActiveSessions(eventID, active)
	}
}

// getEventConfig gets an event's admission settings with caching
func (w *SchedulerWorker) getEventConfig(ctx context.Context, eventID string) *eventConfig {
	w.configCacheMu.RLock()
	if cached, ok := w.configCache[eventID]; ok {
		if cacheTime, ok := w.configCacheTime[eventID]; ok && time.Since(cacheTime) < w.configCacheTTL {
			w.configCacheMu.RUnlock()
			return cached
		}
	}
	w.configCacheMu.RUnlock()

	cfg := &eventConfig{}

	event, err := w.events.GetEvent(ctx, eventID)
	if err != nil {
		// Queue activity for an event the system of record doesn't know
		// yet; run it on defaults rather than stalling the queue
		cfg.event = &domain.Event{
			ID:                     eventID,
			ConcurrencyCap:         w.config.DefaultConcurrencyCap,
			SessionDurationSeconds: int(w.config.DefaultSessionDuration.Seconds()),
		}
	} else {
		cfg.event = event
		if types, err := w.events.ListTicketTypes(ctx, eventID); err == nil {
			for _, tt := range types {
				cfg.ticketTypes = append(cfg.ticketTypes, tt.Name)
			}
		}
	}

	w.configCacheMu.Lock()
	w.configCache[eventID] = cfg
	w.configCacheTime[eventID] = time.Now()
	w.configCacheMu.Unlock()

	return cfg
}

// GetStats returns a snapshot of scheduler counters
func (w *SchedulerWorker) GetStats() SchedulerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return SchedulerStats{
		TotalAdmitted:  w.totalAdmitted,
		TotalExpired:   w.totalExpired,
		LastRunTime:    w.lastRunTime,
		LastRunAdmits:  w.lastRunAdmits,
		LastRunExpired: w.lastRunExpired,
	}
}

// RunOnce performs a single pass (for testing)
func (w *SchedulerWorker) RunOnce(ctx context.Context) {
	w.runOnce(ctx)
}
