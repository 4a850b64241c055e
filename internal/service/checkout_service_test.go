package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/repository"
)

func activeTestSession() *domain.Session {
	return &domain.Session{
		ID:        "sess-1",
		EntryID:   "entry-1",
		EventID:   "event-123",
		UserID:    "user-123",
		Status:    domain.SessionStatusActive,
		StartedAt: time.Now(),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestCheckoutService_Reserve_Success(t *testing.T) {
	inventory := new(MockInventoryRepository)
	sessions := new(MockSessionRepository)
	svc := NewCheckoutService(inventory, sessions, NewNoOpEventPublisher())

	inventory.On("Reserve", mock.Anything, mock.MatchedBy(func(params repository.ReserveParams) bool {
		return params.SessionID == "sess-1" &&
			params.EventID == "event-123" &&
			params.UserID == "user-123" &&
			params.TicketType == "standard" &&
			params.Quantity == 2 &&
			params.ReservationID != ""
	})).Return(&repository.ReserveResult{
		Success:            true,
		ReservationID:      "resv-1",
		RemainingAllowance: 2,
	}, nil)

	result, err := svc.Reserve(context.Background(), activeTestSession(), &dto.ReserveTicketsRequest{
		EventID:    "event-123",
		TicketType: "standard",
		Quantity:   2,
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, result.ReservationID)
	assert.Equal(t, string(domain.ReservationStatusReserved), result.Status)
	assert.Equal(t, 2, result.Quantity)
	assert.Equal(t, int64(2), result.Remaining)
	inventory.AssertExpectations(t)
}

func TestCheckoutService_Reserve_Rejections(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"SOLD_OUT", domain.ErrSoldOut},
		{"INSUFFICIENT_INVENTORY", domain.ErrInsufficientInventory},
		{"LIMIT_EXCEEDED", domain.ErrLimitExceeded},
		{"SESSION_EXPIRED", domain.ErrSessionExpired},
		{"SESSION_NOT_ACTIVE", domain.ErrSessionNotActive},
		{"INVENTORY_NOT_FOUND", domain.ErrInventoryNotFound},
	}

	for _, tt := range tests {
		inventory := new(MockInventoryRepository)
		svc := NewCheckoutService(inventory, new(MockSessionRepository), NewNoOpEventPublisher())

		inventory.On("Reserve", mock.Anything, mock.Anything).Return(&repository.ReserveResult{
			Success:   false,
			ErrorCode: tt.code,
		}, nil)

		_, err := svc.Reserve(context.Background(), activeTestSession(), &dto.ReserveTicketsRequest{
			TicketType: "standard",
			Quantity:   1,
		})
		assert.ErrorIs(t, err, tt.want, "code %s", tt.code)
	}
}

func TestCheckoutService_Reserve_LimitExceededKeepsAllowance(t *testing.T) {
	inventory := new(MockInventoryRepository)
	svc := NewCheckoutService(inventory, new(MockSessionRepository), NewNoOpEventPublisher())

	inventory.On("Reserve", mock.Anything, mock.Anything).Return(&repository.ReserveResult{
		Success:      false,
		ErrorCode:    "LIMIT_EXCEEDED",
		ErrorMessage: "2",
	}, nil)

	_, err := svc.Reserve(context.Background(), activeTestSession(), &dto.ReserveTicketsRequest{
		TicketType: "standard",
		Quantity:   4,
	})

	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
	var limitErr *domain.LimitExceededError
	assert.True(t, errors.As(err, &limitErr))
	assert.Equal(t, int64(2), limitErr.Remaining)
}

func TestCheckoutService_Reserve_InsufficientKeepsAvailable(t *testing.T) {
	inventory := new(MockInventoryRepository)
	svc := NewCheckoutService(inventory, new(MockSessionRepository), NewNoOpEventPublisher())

	inventory.On("Reserve", mock.Anything, mock.Anything).Return(&repository.ReserveResult{
		Success:      false,
		ErrorCode:    "INSUFFICIENT_INVENTORY",
		ErrorMessage: "3",
	}, nil)

	_, err := svc.Reserve(context.Background(), activeTestSession(), &dto.ReserveTicketsRequest{
		TicketType: "standard",
		Quantity:   5,
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientInventory)
	var invErr *domain.InsufficientInventoryError
	assert.True(t, errors.As(err, &invErr))
	assert.Equal(t, int64(3), invErr.Available)
}

func TestCheckoutService_Reserve_Validation(t *testing.T) {
	svc := NewCheckoutService(new(MockInventoryRepository), new(MockSessionRepository), NewNoOpEventPublisher())
	session := activeTestSession()

	_, err := svc.Reserve(context.Background(), session, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTicketType)

	_, err = svc.Reserve(context.Background(), session, &dto.ReserveTicketsRequest{TicketType: "standard", Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = svc.Reserve(context.Background(), session, &dto.ReserveTicketsRequest{
		EventID:    "other-event",
		TicketType: "standard",
		Quantity:   1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEventID)
}

func TestCheckoutService_Complete(t *testing.T) {
	inventory := new(MockInventoryRepository)
	sessions := new(MockSessionRepository)
	svc := NewCheckoutService(inventory, sessions, NewNoOpEventPublisher())

	sessions.On("Finish", mock.Anything, "event-123", "sess-1", domain.SessionStatusCompleted).
		Return(domain.SessionStatusCompleted, int64(2), nil)

	result, err := svc.Complete(context.Background(), activeTestSession(), &dto.CompleteSessionRequest{OrderID: "order-1"})

	assert.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusCompleted), result.Status)
}

func TestCheckoutService_Complete_AfterExpiry(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewCheckoutService(new(MockInventoryRepository), sessions, NewNoOpEventPublisher())

	sessions.On("Finish", mock.Anything, "event-123", "sess-1", domain.SessionStatusCompleted).
		Return(domain.SessionStatusExpired, int64(0), nil)

	_, err := svc.Complete(context.Background(), activeTestSession(), nil)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestCheckoutService_Cancel(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewCheckoutService(new(MockInventoryRepository), sessions, NewNoOpEventPublisher())

	sessions.On("Finish", mock.Anything, "event-123", "sess-1", domain.SessionStatusCancelled).
		Return(domain.SessionStatusCancelled, int64(1), nil)

	result, err := svc.Cancel(context.Background(), activeTestSession())

	assert.NoError(t, err)
	assert.Equal(t, string(domain.SessionStatusCancelled), result.Status)
}

func TestCheckoutService_Cancel_AlreadyCompleted(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := NewCheckoutService(new(MockInventoryRepository), sessions, NewNoOpEventPublisher())

	sessions.On("Finish", mock.Anything, "event-123", "sess-1", domain.SessionStatusCancelled).
		Return(domain.SessionStatusCompleted, int64(0), nil)

	_, err := svc.Cancel(context.Background(), activeTestSession())
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
}

func TestCheckoutService_GetAvailability(t *testing.T) {
	inventory := new(MockInventoryRepository)
	svc := NewCheckoutService(inventory, new(MockSessionRepository), NewNoOpEventPublisher())

	inventory.On("GetAvailability", mock.Anything, "event-123", "standard").Return(&domain.TicketAvailability{
		EventID:    "event-123",
		TicketType: "standard",
		Total:      100,
		Reserved:   10,
		Sold:       30,
		MaxPerUser: 4,
	}, nil)

	result, err := svc.GetAvailability(context.Background(), "event-123", "standard")

	assert.NoError(t, err)
	assert.Equal(t, int64(100), result.Total)
	assert.Equal(t, int64(60), result.Available)
}

func TestAdminService_ForceCancelEntry(t *testing.T) {
	ledger := new(MockLedgerRepository)
	sessions := new(MockSessionRepository)
	svc := NewAdminService(ledger, sessions, new(MockInventoryRepository), new(MockEventRepository))

	ledger.On("GetEntry", mock.Anything, "entry-1").Return(&domain.QueueEntry{
		ID:        "entry-1",
		EventID:   "event-123",
		UserID:    "user-123",
		Status:    domain.EntryStatusActive,
		SessionID: "sess-1",
	}, nil)
	ledger.On("CancelWaiting", mock.Anything, "event-123", "user-123", "entry-1").Return(domain.ErrEntryNotActive)
	sessions.On("Finish", mock.Anything, "event-123", "sess-1", domain.SessionStatusCancelled).
		Return(domain.SessionStatusCancelled, int64(0), nil)

	err := svc.ForceCancelEntry(context.Background(), "entry-1")
	assert.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestAdminService_SyncInventory(t *testing.T) {
	inventory := new(MockInventoryRepository)
	events := new(MockEventRepository)
	svc := NewAdminService(new(MockLedgerRepository), new(MockSessionRepository), inventory, events)

	events.On("ListTicketTypes", mock.Anything, "event-123").Return([]*domain.TicketType{
		{ID: "tt-1", EventID: "event-123", Name: "standard", Total: 500, MaxPerUser: 4},
		{ID: "tt-2", EventID: "event-123", Name: "vip", Total: 50, MaxPerUser: 2},
	}, nil)
	inventory.On("InitInventory", mock.Anything, "event-123", "standard", int64(500), int64(4)).Return(nil)
	inventory.On("InitInventory", mock.Anything, "event-123", "vip", int64(50), int64(2)).Return(nil)

	count, err := svc.SyncInventory(context.Background(), "event-123")

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	inventory.AssertExpectations(t)
}
