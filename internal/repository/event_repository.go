package repository

import (
	"context"

	"github.com/ticketrush/admission/internal/domain"
)

// EventRepository reads event configuration from the system of record
type EventRepository interface {
	// GetEvent loads an event with its admission settings
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)

	// ListTicketTypes lists the sellable ticket types for an event
	ListTicketTypes(ctx context.Context, eventID string) ([]*domain.TicketType, error)
}
