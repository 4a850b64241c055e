package domain

import "time"

// AdmissionEventType identifies a lifecycle event on the admission stream
type AdmissionEventType string

const (
	AdmissionEventEntryEnqueued    AdmissionEventType = "queue.entry_enqueued"
	AdmissionEventEntryCancelled   AdmissionEventType = "queue.entry_cancelled"
	AdmissionEventSessionStarted   AdmissionEventType = "session.started"
	AdmissionEventSessionCompleted AdmissionEventType = "session.completed"
	AdmissionEventSessionExpired   AdmissionEventType = "session.expired"
	AdmissionEventSessionCancelled AdmissionEventType = "session.cancelled"
	AdmissionEventTicketsReserved  AdmissionEventType = "tickets.reserved"
)

// AdmissionEvent is the message published to the admission event stream
type AdmissionEvent struct {
	ID         string             `json:"id"`
	Type       AdmissionEventType `json:"type"`
	EventID    string             `json:"event_id"`
	UserID     string             `json:"user_id,omitempty"`
	EntryID    string             `json:"entry_id,omitempty"`
	SessionID  string             `json:"session_id,omitempty"`
	TicketType string             `json:"ticket_type,omitempty"`
	Quantity   int                `json:"quantity,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// NewAdmissionEvent creates an event with the occurrence time set
func NewAdmissionEvent(eventType AdmissionEventType, id string) *AdmissionEvent {
	return &AdmissionEvent{
		ID:         id,
		Type:       eventType,
		OccurredAt: time.Now(),
	}
}

// Key returns the partition key, keeping one sale event's stream ordered
func (e *AdmissionEvent) Key() string {
	return e.EventID
}
