package repository

import (
	"context"

	"github.com/ticketrush/admission/internal/domain"
)

// ReserveParams carries one reservation attempt
type ReserveParams struct {
	ReservationID string
	SessionID     string
	EventID       string
	UserID        string
	TicketType    string
	Quantity      int
}

// ReserveResult is the outcome of a reservation attempt
type ReserveResult struct {
	Success            bool
	ReservationID      string
	RemainingAllowance int64 // -1 when the ticket type has no per-user cap
	ErrorCode          string
	ErrorMessage       string
}

// InventoryRepository manages ticket counters, per-user allowances and
// the reservations held against them
type InventoryRepository interface {
	// LoadScripts preloads the inventory Lua scripts into Redis
	LoadScripts(ctx context.Context) error

	// Reserve atomically checks the session, inventory and per-user cap,
	// then holds quantity tickets for the session
	Reserve(ctx context.Context, params ReserveParams) (*ReserveResult, error)

	// GetAvailability returns the counters for one ticket type
	GetAvailability(ctx context.Context, eventID, ticketType string) (*domain.TicketAvailability, error)

	// GetAllowance returns how many tickets the user holds (reserved + sold)
	GetAllowance(ctx context.Context, eventID, ticketType, userID string) (int64, error)

	// GetReservation loads a reservation by ID
	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)

	// SessionReservations lists reservations held by a session
	SessionReservations(ctx context.Context, sessionID string) ([]*domain.Reservation, error)

	// InitInventory writes the counters for a ticket type, preserving
	// reserved and sold when they already exist
	InitInventory(ctx context.Context, eventID, ticketType string, total, maxPerUser int64) error
}
