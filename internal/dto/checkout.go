package dto

import (
	"time"

	"github.com/ticketrush/admission/internal/domain"
)

// ReserveTicketsRequest represents a request to reserve tickets inside an
// active purchase session
type ReserveTicketsRequest struct {
	EventID    string `json:"event_id" binding:"required"`
	TicketType string `json:"ticket_type" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1,max=10"`
}

// ReserveTicketsResponse represents the response after reserving tickets
type ReserveTicketsResponse struct {
	ReservationID string    `json:"reservation_id"`
	Status        string    `json:"status"`
	Quantity      int       `json:"quantity"`
	Remaining     int64     `json:"remaining_allowance"`
	ReservedAt    time.Time `json:"reserved_at"`
}

// CompleteSessionRequest represents the order-commit callback payload
type CompleteSessionRequest struct {
	OrderID string `json:"order_id,omitempty"`
}

// SessionResultResponse represents a terminal session transition result
type SessionResultResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	EventID    string    `json:"event_id"`
	TicketType string    `json:"ticket_type"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// AvailabilityResponse represents live ticket counters for one type
type AvailabilityResponse struct {
	TicketType string `json:"ticket_type"`
	Total      int64  `json:"total"`
	Reserved   int64  `json:"reserved"`
	Sold       int64  `json:"sold"`
	Available  int64  `json:"available"`
}

// ErrorResponse is the error payload returned by handlers. Refusals
// that leave the caller an option carry the relevant detail: the entry
// a duplicate join already holds, the allowance left under a per-user
// cap, or the count still available when a request asked for too many.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	EntryID   string `json:"entry_id,omitempty"`
	Remaining *int64 `json:"remaining_allowance,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

// ReservationFromDomain converts a domain Reservation to its API shape
func ReservationFromDomain(r *domain.Reservation) *ReservationResponse {
	return &ReservationResponse{
		ID:         r.ID,
		SessionID:  r.SessionID,
		EventID:    r.EventID,
		TicketType: r.TicketType,
		Quantity:   r.Quantity,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}
