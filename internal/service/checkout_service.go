package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/dto"
	"github.com/ticketrush/admission/internal/metrics"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/pkg/telemetry"
)

// CheckoutService handles ticket reservation and session settlement for
// an already-validated purchase session
type CheckoutService interface {
	// Reserve holds tickets for the session, enforcing inventory and the
	// per-user cap atomically
	Reserve(ctx context.Context, session *domain.Session, req *dto.ReserveTicketsRequest) (*dto.ReserveTicketsResponse, error)

	// Complete commits the session: held tickets become sold
	Complete(ctx context.Context, session *domain.Session, req *dto.CompleteSessionRequest) (*dto.SessionResultResponse, error)

	// Cancel gives the session up: held tickets are released
	Cancel(ctx context.Context, session *domain.Session) (*dto.SessionResultResponse, error)

	// GetAvailability returns live counters for one ticket type
	GetAvailability(ctx context.Context, eventID, ticketType string) (*dto.AvailabilityResponse, error)

	// ListReservations lists the session's reservations
	ListReservations(ctx context.Context, sessionID string) ([]*dto.ReservationResponse, error)
}

// checkoutService implements CheckoutService
type checkoutService struct {
	inventory repository.InventoryRepository
	sessions  repository.SessionRepository
	publisher EventPublisher
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	inventory repository.InventoryRepository,
	sessions repository.SessionRepository,
	publisher EventPublisher,
) CheckoutService {
	return &checkoutService{
		inventory: inventory,
		sessions:  sessions,
		publisher: publisher,
	}
}

// Reserve holds tickets for the session
func (s *checkoutService) Reserve(ctx context.Context, session *domain.Session, req *dto.ReserveTicketsRequest) (*dto.ReserveTicketsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.reserve")
	defer span.End()

	if req == nil || req.TicketType == "" {
		span.SetStatus(codes.Error, "invalid ticket type")
		return nil, domain.ErrInvalidTicketType
	}
	if req.Quantity <= 0 {
		span.SetStatus(codes.Error, "invalid quantity")
		return nil, domain.ErrInvalidQuantity
	}
	if req.EventID != "" && req.EventID != session.EventID {
		span.SetStatus(codes.Error, "event mismatch")
		return nil, domain.ErrInvalidEventID
	}

	span.SetAttributes(
		attribute.String("session_id", session.ID),
		attribute.String("ticket_type", req.TicketType),
		attribute.Int("quantity", req.Quantity),
	)

	reservationID := uuid.New().String()
	result, err := s.inventory.Reserve(ctx, repository.ReserveParams{
		ReservationID: reservationID,
		SessionID:     session.ID,
		EventID:       session.EventID,
		UserID:        session.UserID,
		TicketType:    req.TicketType,
		Quantity:      req.Quantity,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !result.Success {
		span.SetStatus(codes.Error, result.ErrorCode)
		return nil, reserveError(result.ErrorCode, result.ErrorMessage)
	}

	metrics.RecordReservation(session.EventID, req.TicketType, req.Quantity)

	if pubErr := s.publisher.Publish(ctx, &domain.AdmissionEvent{
		Type:       domain.AdmissionEventTicketsReserved,
		EventID:    session.EventID,
		UserID:     session.UserID,
		SessionID:  session.ID,
		TicketType: req.TicketType,
		Quantity:   req.Quantity,
	}); pubErr != nil {
		span.RecordError(pubErr)
	}

	span.SetAttributes(attribute.String("reservation_id", reservationID))
	span.SetStatus(codes.Ok, "")
	return &dto.ReserveTicketsResponse{
		ReservationID: reservationID,
		Status:        string(domain.ReservationStatusReserved),
		Quantity:      req.Quantity,
		Remaining:     result.RemainingAllowance,
		ReservedAt:    time.Now(),
	}, nil
}

// Complete commits the session: held tickets become sold
func (s *checkoutService) Complete(ctx context.Context, session *domain.Session, req *dto.CompleteSessionRequest) (*dto.SessionResultResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.complete")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", session.ID))

	status, settled, err := s.sessions.Finish(ctx, session.EventID, session.ID, domain.SessionStatusCompleted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// Finish reports the prior terminal status when the session already
	// ended; completing an expired session is a deadline miss
	if status != domain.SessionStatusCompleted {
		span.SetStatus(codes.Error, string(status))
		if status == domain.SessionStatusExpired {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrSessionNotActive
	}

	metrics.RecordSessionOutcome(session.EventID, string(domain.SessionStatusCompleted))

	if pubErr := s.publisher.Publish(ctx, &domain.AdmissionEvent{
		Type:      domain.AdmissionEventSessionCompleted,
		EventID:   session.EventID,
		UserID:    session.UserID,
		SessionID: session.ID,
	}); pubErr != nil {
		span.RecordError(pubErr)
	}

	span.SetAttributes(attribute.Int64("settled_reservations", settled))
	span.SetStatus(codes.Ok, "")
	return &dto.SessionResultResponse{
		SessionID: session.ID,
		Status:    string(domain.SessionStatusCompleted),
		Message:   "Purchase completed",
	}, nil
}

// Cancel gives the session up: held tickets are released
func (s *checkoutService) Cancel(ctx context.Context, session *domain.Session) (*dto.SessionResultResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("session_id", session.ID))

	status, _, err := s.sessions.Finish(ctx, session.EventID, session.ID, domain.SessionStatusCancelled)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if status == domain.SessionStatusCompleted {
		span.SetStatus(codes.Error, "already completed")
		return nil, domain.ErrSessionNotActive
	}

	if status == domain.SessionStatusCancelled {
		metrics.RecordSessionOutcome(session.EventID, string(status))
		if pubErr := s.publisher.Publish(ctx, &domain.AdmissionEvent{
			Type:      domain.AdmissionEventSessionCancelled,
			EventID:   session.EventID,
			UserID:    session.UserID,
			SessionID: session.ID,
		}); pubErr != nil {
			span.RecordError(pubErr)
		}
	}

	span.SetStatus(codes.Ok, "")
	return &dto.SessionResultResponse{
		SessionID: session.ID,
		Status:    string(status),
		Message:   "Session cancelled",
	}, nil
}

// GetAvailability returns live counters for one ticket type
func (s *checkoutService) GetAvailability(ctx context.Context, eventID, ticketType string) (*dto.AvailabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.checkout.availability")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if ticketType == "" {
		span.SetStatus(codes.Error, "invalid ticket type")
		return nil, domain.ErrInvalidTicketType
	}

	availability, err := s.inventory.GetAvailability(ctx, eventID, ticketType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return &dto.AvailabilityResponse{
		TicketType: ticketType,
		Total:      availability.Total,
		Reserved:   availability.Reserved,
		Sold:       availability.Sold,
		Available:  availability.Available(),
	}, nil
}

// ListReservations lists the session's reservations
func (s *checkoutService) ListReservations(ctx context.Context, sessionID string) ([]*dto.ReservationResponse, error) {
	reservations, err := s.inventory.SessionReservations(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, dto.ReservationFromDomain(r))
	}
	return out, nil
}

// reserveError maps a reservation script refusal to its domain error.
// LIMIT_EXCEEDED and INSUFFICIENT_INVENTORY keep the count the script
// computed so the caller learns what is still possible.
func reserveError(code, detail string) error {
	switch code {
	case "SESSION_NOT_FOUND":
		return domain.ErrSessionNotFound
	case "SESSION_NOT_ACTIVE":
		return domain.ErrSessionNotActive
	case "SESSION_EXPIRED":
		return domain.ErrSessionExpired
	case "INVENTORY_NOT_FOUND":
		return domain.ErrInventoryNotFound
	case "SOLD_OUT":
		return domain.ErrSoldOut
	case "INSUFFICIENT_INVENTORY":
		if available, err := strconv.ParseInt(detail, 10, 64); err == nil {
			return &domain.InsufficientInventoryError{Available: available}
		}
		return domain.ErrInsufficientInventory
	case "LIMIT_EXCEEDED":
		if remaining, err := strconv.ParseInt(detail, 10, 64); err == nil {
			return &domain.LimitExceededError{Remaining: remaining}
		}
		return domain.ErrLimitExceeded
	default:
		return domain.ErrReservationNotFound
	}
}
