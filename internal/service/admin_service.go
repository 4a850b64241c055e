package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ticketrush/admission/internal/domain"
	"github.com/ticketrush/admission/internal/metrics"
	"github.com/ticketrush/admission/internal/repository"
	"github.com/ticketrush/admission/pkg/telemetry"
)

// AdminService exposes operator actions on queues and inventory
type AdminService interface {
	// ForceCancelEntry removes an entry regardless of its owner; an
	// admitted entry has its session cancelled
	ForceCancelEntry(ctx context.Context, entryID string) error

	// SyncInventory loads the event's ticket types from the system of
	// record into the live Redis counters
	SyncInventory(ctx context.Context, eventID string) (int, error)
}

// adminService implements AdminService
type adminService struct {
	ledger    repository.LedgerRepository
	sessions  repository.SessionRepository
	inventory repository.InventoryRepository
	events    repository.EventRepository
}

// NewAdminService creates a new admin service
func NewAdminService(
	ledger repository.LedgerRepository,
	sessions repository.SessionRepository,
	inventory repository.InventoryRepository,
	events repository.EventRepository,
) AdminService {
	return &adminService{
		ledger:    ledger,
		sessions:  sessions,
		inventory: inventory,
		events:    events,
	}
}

// ForceCancelEntry removes an entry regardless of its owner
func (s *adminService) ForceCancelEntry(ctx context.Context, entryID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.force_cancel_entry")
	defer span.End()

	if entryID == "" {
		span.SetStatus(codes.Error, "invalid entry_id")
		return domain.ErrInvalidEntryID
	}

	span.SetAttributes(attribute.String("entry_id", entryID))

	entry, err := s.ledger.GetEntry(ctx, entryID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = s.ledger.CancelWaiting(ctx, entry.EventID, entry.UserID, entry.ID)
	if errors.Is(err, domain.ErrEntryNotActive) {
		if entry.SessionID == "" {
			span.SetStatus(codes.Error, "entry not cancellable")
			return domain.ErrEntryNotActive
		}
		if _, _, err := s.sessions.Finish(ctx, entry.EventID, entry.SessionID, domain.SessionStatusCancelled); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		metrics.RecordSessionOutcome(entry.EventID, string(domain.SessionStatusCancelled))
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// SyncInventory loads ticket types from the system of record into Redis
func (s *adminService) SyncInventory(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.admin.sync_inventory")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return 0, domain.ErrInvalidEventID
	}

	span.SetAttributes(attribute.String("event_id", eventID))

	types, err := s.events.ListTicketTypes(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	for _, tt := range types {
		if err := s.inventory.InitInventory(ctx, eventID, tt.Name, int64(tt.Total), int64(tt.MaxPerUser)); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}

	span.SetAttributes(attribute.Int("ticket_types", len(types)))
	span.SetStatus(codes.Ok, "")
	return len(types), nil
}
