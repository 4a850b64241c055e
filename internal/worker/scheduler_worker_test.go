package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/repository"
)

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) LoadScripts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLedgerRepository) Enqueue(ctx context.Context, params repository.EnqueueParams) (*repository.EnqueueResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.EnqueueResult), args.Error(1)
}

func (m *MockLedgerRepository) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueueEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListWaiting(ctx context.Context, eventID string, limit int64) ([]*domain.QueueEntry, error) {
	args := m.Called(ctx, eventID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QueueEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetRank(ctx context.Context, eventID, entryID string) (*repository.RankResult, error) {
	args := m.Called(ctx, eventID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RankResult), args.Error(1)
}

func (m *MockLedgerRepository) CancelWaiting(ctx context.Context, eventID, userID, entryID string) error {
	args := m.Called(ctx, eventID, userID, entryID)
	return args.Error(0)
}

func (m *MockLedgerRepository) WaitingCount(ctx context.Context, eventID string) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) ListQueueEventIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

var _ repository.LedgerRepository = (*MockLedgerRepository)(nil)

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) LoadScripts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSessionRepository) AdmitNext(ctx context.Context, params repository.AdmitParams) (*repository.AdmitResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AdmitResult), args.Error(1)
}

func (m *MockSessionRepository) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Finish(ctx context.Context, eventID, sessionID string, target domain.SessionStatus) (domain.SessionStatus, int64, error) {
	args := m.Called(ctx, eventID, sessionID, target)
	return args.Get(0).(domain.SessionStatus), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) Extend(ctx context.Context, eventID, sessionID string, extendBy time.Duration) (time.Time, error) {
	args := m.Called(ctx, eventID, sessionID, extendBy)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockSessionRepository) ExpiredSessions(ctx context.Context, eventID string, now time.Time) ([]string, error) {
	args := m.Called(ctx, eventID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSessionRepository) ActiveCount(ctx context.Context, eventID string) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) StoreToken(ctx context.Context, sessionID, token string) error {
	args := m.Called(ctx, sessionID, token)
	return args.Error(0)
}

var _ repository.SessionRepository = (*MockSessionRepository)(nil)

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Event), args.Error(1)
}

func (m *MockEventRepository) ListTicketTypes(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TicketType), args.Error(1)
}

var _ repository.EventRepository = (*MockEventRepository)(nil)

// MockSessionService is a mock implementation of service.SessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) TryAdmit(ctx context.Context, event *domain.Event, ticketTypes []string) (*repository.AdmitResult, error) {
	args := m.Called(ctx, event, ticketTypes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AdmitResult), args.Error(1)
}

func (m *MockSessionService) ExpireSession(ctx context.Context, eventID, sessionID string) error {
	args := m.Called(ctx, eventID, sessionID)
	return args.Error(0)
}

func (m *MockSessionService) ExtendSession(ctx context.Context, sessionID string, req *dto.ExtendSessionRequest) (*dto.SessionResultResponse, error) {
	args := m.Called(ctx, sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SessionResultResponse), args.Error(1)
}

func (m *MockSessionService) ValidateSessionToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func newTestWorker(cfg *SchedulerWorkerConfig) (*SchedulerWorker, *MockLedgerRepository, *MockSessionRepository, *MockEventRepository, *MockSessionService) {
	ledger := new(MockLedgerRepository)
	sessions := new(MockSessionRepository)
	events := new(MockEventRepository)
	admitter := new(MockSessionService)
	w := NewSchedulerWorker(cfg, ledger, sessions, events, admitter, nil)
	return w, ledger, sessions, events, admitter
}

func TestNewSchedulerWorker(t *testing.T) {
	t.Run("creates worker with custom config", func(t *testing.T) {
		cfg := &SchedulerWorkerConfig{
			Interval:               5 * time.Second,
			AdmitBatchSize:         10,
			DefaultConcurrencyCap:  200,
			DefaultSessionDuration: 2 * time.Minute,
		}
		w, _, _, _, _ := newTestWorker(cfg)
		assert.NotNil(t, w)
		assert.Equal(t, 10, w.config.AdmitBatchSize)
	})

	t.Run("uses defaults for invalid config values", func(t *testing.T) {
		cfg := &SchedulerWorkerConfig{
			Interval:       0,
			AdmitBatchSize: -1,
		}
		w, _, _, _, _ := newTestWorker(cfg)
		assert.Equal(t, 1*time.Second, w.config.Interval)
		assert.Equal(t, 50, w.config.AdmitBatchSize)
		assert.Equal(t, domain.DefaultConcurrencyCap, w.config.DefaultConcurrencyCap)
	})

	t.Run("nil config gets full defaults", func(t *testing.T) {
		w, _, _, _, _ := newTestWorker(nil)
		assert.Equal(t, 1*time.Second, w.config.Interval)
		assert.Equal(t, 50, w.config.AdmitBatchSize)
	})
}

func TestSchedulerWorker_RunOnce(t *testing.T) {
	ctx := context.Background()
	eventID := "event-123"
	event := &domain.Event{
		ID:                     eventID,
		ConcurrencyCap:         100,
		SessionDurationSeconds: 600,
	}
	ticketTypes := []*domain.TicketType{
		{Name: "vip", EventID: eventID},
		{Name: "standard", EventID: eventID},
	}

	t.Run("sweeps expired sessions then fills capacity", func(t *testing.T) {
		w, ledger, sessions, events, admitter := newTestWorker(nil)

		ledger.On("ListQueueEventIDs", ctx).Return([]string{eventID}, nil)
		events.On("GetEvent", ctx, eventID).Return(event, nil)
		events.On("ListTicketTypes", ctx, eventID).Return(ticketTypes, nil)

		sessions.On("ExpiredSessions", ctx, eventID, mock.AnythingOfType("time.Time")).
			Return([]string{"sess-old-1", "sess-old-2"}, nil)
		admitter.On("ExpireSession", ctx, eventID, "sess-old-1").Return(nil)
		admitter.On("ExpireSession", ctx, eventID, "sess-old-2").Return(nil)

		admitter.On("TryAdmit", ctx, event, []string{"vip", "standard"}).
			Return(&repository.AdmitResult{Success: true, EntryID: "entry-1", UserID: "user-1"}, nil).Twice()
		admitter.On("TryAdmit", ctx, event, []string{"vip", "standard"}).
			Return(&repository.AdmitResult{Success: false, ErrorCode: "CAPACITY_FULL"}, nil).Once()

		ledger.On("WaitingCount", ctx, eventID).Return(int64(7), nil)
		sessions.On("ActiveCount", ctx, eventID).Return(int64(100), nil)

		w.RunOnce(ctx)

		stats := w.GetStats()
		assert.Equal(t, int64(2), stats.TotalAdmitted)
		assert.Equal(t, int64(2), stats.TotalExpired)
		assert.Equal(t, 2, stats.LastRunAdmits)
		assert.Equal(t, 2, stats.LastRunExpired)
		assert.False(t, stats.LastRunTime.IsZero())

		ledger.AssertExpectations(t)
		sessions.AssertExpectations(t)
		admitter.AssertExpectations(t)
	})

	t.Run("stops admitting on empty queue", func(t *testing.T) {
		w, ledger, sessions, events, admitter := newTestWorker(nil)

		ledger.On("ListQueueEventIDs", ctx).Return([]string{eventID}, nil)
		events.On("GetEvent", ctx, eventID).Return(event, nil)
		events.On("ListTicketTypes", ctx, eventID).Return(ticketTypes, nil)
		sessions.On("ExpiredSessions", ctx, eventID, mock.AnythingOfType("time.Time")).
			Return([]string{}, nil)
		admitter.On("TryAdmit", ctx, event, []string{"vip", "standard"}).
			Return(&repository.AdmitResult{Success: false, ErrorCode: "QUEUE_EMPTY"}, nil).Once()
		ledger.On("WaitingCount", ctx, eventID).Return(int64(0), nil)
		sessions.On("ActiveCount", ctx, eventID).Return(int64(0), nil)

		w.RunOnce(ctx)

		stats := w.GetStats()
		assert.Equal(t, int64(0), stats.TotalAdmitted)
		admitter.AssertExpectations(t)
	})

	t.Run("batch size caps admissions per pass", func(t *testing.T) {
		w, ledger, sessions, events, admitter := newTestWorker(&SchedulerWorkerConfig{AdmitBatchSize: 3})

		ledger.On("ListQueueEventIDs", ctx).Return([]string{eventID}, nil)
		events.On("GetEvent", ctx, eventID).Return(event, nil)
		events.On("ListTicketTypes", ctx, eventID).Return(ticketTypes, nil)
		sessions.On("ExpiredSessions", ctx, eventID, mock.AnythingOfType("time.Time")).
			Return([]string{}, nil)
		// Would admit forever; the batch limit must stop it at 3
		admitter.On("TryAdmit", ctx, event, []string{"vip", "standard"}).
			Return(&repository.AdmitResult{Success: true, EntryID: "entry-x", UserID: "user-x"}, nil)
		ledger.On("WaitingCount", ctx, eventID).Return(int64(50), nil)
		sessions.On("ActiveCount", ctx, eventID).Return(int64(3), nil)

		w.RunOnce(ctx)

		stats := w.GetStats()
		assert.Equal(t, int64(3), stats.TotalAdmitted)
		admitter.AssertNumberOfCalls(t, "TryAdmit", 3)
	})

	t.Run("keeps sweeping when one expiry fails", func(t *testing.T) {
		w, ledger, sessions, events, admitter := newTestWorker(nil)

		ledger.On("ListQueueEventIDs", ctx).Return([]string{eventID}, nil)
		events.On("GetEvent", ctx, eventID).Return(event, nil)
		events.On("ListTicketTypes", ctx, eventID).Return(ticketTypes, nil)
		sessions.On("ExpiredSessions", ctx, eventID, mock.AnythingOfType("time.Time")).
			Return([]string{"sess-bad", "sess-good"}, nil)
		admitter.On("ExpireSession", ctx, eventID, "sess-bad").Return(assert.AnError)
		admitter.On("ExpireSession", ctx, eventID, "sess-good").Return(nil)
		admitter.On("TryAdmit", ctx, event, []string{"vip", "standard"}).
			Return(&repository.AdmitResult{Success: false, ErrorCode: "QUEUE_EMPTY"}, nil)
		ledger.On("WaitingCount", ctx, eventID).Return(int64(0), nil)
		sessions.On("ActiveCount", ctx, eventID).Return(int64(0), nil)

		w.RunOnce(ctx)

		stats := w.GetStats()
		assert.Equal(t, int64(1), stats.TotalExpired)
	})

	t.Run("list error skips the pass", func(t *testing.T) {
		w, ledger, _, _, _ := newTestWorker(nil)

		ledger.On("ListQueueEventIDs", ctx).Return(nil, assert.AnError)

		w.RunOnce(ctx)

		stats := w.GetStats()
		assert.True(t, stats.LastRunTime.IsZero())
	})
}

func TestSchedulerWorker_EventConfigFallback(t *testing.T) {
	ctx := context.Background()
	eventID := "event-unknown"

	w, ledger, sessions, events, admitter := newTestWorker(&SchedulerWorkerConfig{
		DefaultConcurrencyCap:  25,
		DefaultSessionDuration: 5 * time.Minute,
	})

	ledger.On("ListQueueEventIDs", ctx).Return([]string{eventID}, nil)
	// Event not in the database yet; the queue still runs on defaults
	events.On("GetEvent", ctx, eventID).Return(nil, assert.AnError)
	sessions.On("ExpiredSessions", ctx, eventID, mock.AnythingOfType("time.Time")).
		Return([]string{}, nil)
	admitter.On("TryAdmit", ctx, mock.MatchedBy(func(e *domain.Event) bool {
		return e.ID == eventID && e.ConcurrencyCap == 25 && e.SessionDurationSeconds == 300
	}), []string(nil)).
		Return(&repository.AdmitResult{Success: false, ErrorCode: "QUEUE_EMPTY"}, nil)
	ledger.On("WaitingCount", ctx, eventID).Return(int64(0), nil)
	sessions.On("ActiveCount", ctx, eventID).Return(int64(0), nil)

	w.RunOnce(ctx)

	admitter.AssertExpectations(t)
	// Second pass inside the TTL must not hit the database again
	w.RunOnce(ctx)
	events.AssertNumberOfCalls(t, "GetEvent", 1)
}

func TestSchedulerWorker_GetStats(t *testing.T) {
	w, _, _, _, _ := newTestWorker(nil)

	stats := w.GetStats()
	assert.Equal(t, int64(0), stats.TotalAdmitted)
	assert.Equal(t, int64(0), stats.TotalExpired)
	assert.True(t, stats.LastRunTime.IsZero())
}

func TestDefaultSchedulerWorkerConfig(t *testing.T) {
	cfg := DefaultSchedulerWorkerConfig()

	assert.Equal(t, 1*time.Second, cfg.Interval)
	assert.Equal(t, 50, cfg.AdmitBatchSize)
	assert.Equal(t, domain.DefaultConcurrencyCap, cfg.DefaultConcurrencyCap)
	assert.Equal(t, time.Duration(domain.DefaultSessionDurationSeconds)*time.Second, cfg.DefaultSessionDuration)
}
