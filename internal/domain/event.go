package domain

import "time"

// Event represents a sale event with its admission settings
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Admission settings
	ConcurrencyCap         int `json:"concurrency_cap"`          // max simultaneous purchase sessions
	SessionDurationSeconds int `json:"session_duration_seconds"` // purchase window length
}

// Default admission settings
const (
	DefaultConcurrencyCap         = 100
	DefaultSessionDurationSeconds = 600
)

// GetConcurrencyCap returns the concurrency cap with default fallback
func (e *Event) GetConcurrencyCap() int {
	if e.ConcurrencyCap <= 0 {
		return DefaultConcurrencyCap
	}
	return e.ConcurrencyCap
}

// GetSessionDuration returns the session duration with default fallback
func (e *Event) GetSessionDuration() time.Duration {
	if e.SessionDurationSeconds <= 0 {
		return time.Duration(DefaultSessionDurationSeconds) * time.Second
	}
	return time.Duration(e.SessionDurationSeconds) * time.Second
}

// EstimatedWait computes the expected wait for the given 1-based rank:
// rank * (sessionDuration / concurrencyCap). Computed fresh on every
// status read, never stored.
func (e *Event) EstimatedWait(rank int64) time.Duration {
	if rank <= 0 {
		return 0
	}
	cap := e.GetConcurrencyCap()
	perSlot := e.GetSessionDuration() / time.Duration(cap)
	return time.Duration(rank) * perSlot
}

// TicketType represents one sellable ticket class within an event
type TicketType struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id"`
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	MaxPerUser int     `json:"max_per_user"`
	Price      float64 `json:"price"`
}

// TicketAvailability is the live counter state for a ticket type
type TicketAvailability struct {
	EventID    string `json:"event_id"`
	TicketType string `json:"ticket_type"`
	Total      int64  `json:"total"`
	Reserved   int64  `json:"reserved"`
	Sold       int64  `json:"sold"`
	MaxPerUser int64  `json:"max_per_user"`
}

// Available returns the number of tickets still reservable
func (a *TicketAvailability) Available() int64 {
	avail := a.Total - a.Reserved - a.Sold
	if avail < 0 {
		return 0
	}
	return avail
}
