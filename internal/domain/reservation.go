package domain

import "time"

// ReservationStatus represents the lifecycle state of a ticket reservation
type ReservationStatus string

const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

// Reservation represents tickets held by an active purchase session.
// Reservations are released when the session expires or is cancelled,
// and committed to sold when the purchase completes.
type Reservation struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"session_id"`
	EventID    string            `json:"event_id"`
	UserID     string            `json:"user_id"`
	TicketType string            `json:"ticket_type"`
	Quantity   int               `json:"quantity"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Validate validates the reservation request fields
func (r *Reservation) Validate() error {
	if r.UserID == "" {
		return ErrInvalidUserID
	}
	if r.EventID == "" {
		return ErrInvalidEventID
	}
	if r.TicketType == "" {
		return ErrInvalidTicketType
	}
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
