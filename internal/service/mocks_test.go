package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/repository"
)

// MockLedgerRepository is a mock implementation of repository.LedgerRepository
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

// MockSessionRepository is a mock implementation of repository.SessionRepository
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

// MockInventoryRepository is a mock implementation of repository.InventoryRepository
type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) LoadScripts(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInventoryRepository) Reserve(ctx context.Context, params repository.ReserveParams) (*repository.ReserveResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ReserveResult), args.Error(1)
}

func (m *MockInventoryRepository) GetAvailability(ctx context.Context, eventID, ticketType string) (*domain.TicketAvailability, error) {
	args := m.Called(ctx, eventID, ticketType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketAvailability), args.Error(1)
}

func (m *MockInventoryRepository) GetAllowance(ctx context.Context, eventID, ticketType, userID string) (int64, error) {
	args := m.Called(ctx, eventID, ticketType, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInventoryRepository) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockInventoryRepository) SessionReservations(ctx context.Context, sessionID string) ([]*domain.Reservation, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

func (m *MockInventoryRepository) InitInventory(ctx context.Context, eventID, ticketType string, total, maxPerUser int64) error {
	args := m.Called(ctx, eventID, ticketType, total, maxPerUser)
	return args.Error(0)
}

// MockEventRepository is a mock implementation of repository.EventRepository
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
