package domain

import "time"

// EntryStatus represents the lifecycle state of a queue entry
type EntryStatus string

const (
	EntryStatusWaiting   EntryStatus = "waiting"
	EntryStatusActive    EntryStatus = "active"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusExpired   EntryStatus = "expired"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// QueueEntry represents a user's place in the virtual waiting queue.
// Position is assigned once at enqueue time from a monotonic per-event
// counter and never changes.
type QueueEntry struct {
	ID          string      `json:"id"`
	EventID     string      `json:"event_id"`
	UserID      string      `json:"user_id"`
	Position    int64       `json:"position"`
	Status      EntryStatus `json:"status"`
	SessionID   string      `json:"session_id,omitempty"`
	EnteredAt   time.Time   `json:"entered_at"`
	ActivatedAt *time.Time  `json:"activated_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// IsWaiting reports whether the entry is still waiting for admission
func (e *QueueEntry) IsWaiting() bool {
	return e.Status == EntryStatusWaiting
}

// IsTerminal reports whether the entry has reached a terminal state
func (e *QueueEntry) IsTerminal() bool {
	switch e.Status {
	case EntryStatusCompleted, EntryStatusExpired, EntryStatusCancelled:
		return true
	}
	return false
}

// Validate validates the queue entry
func (e *QueueEntry) Validate() error {
	if e.UserID == "" {
		return ErrInvalidUserID
	}
	if e.EventID == "" {
		return ErrInvalidEventID
	}
	return nil
}

// QueueSnapshot summarizes the state of one event's queue
type QueueSnapshot struct {
	EventID        string `json:"event_id"`
	WaitingCount   int64  `json:"waiting_count"`
	ActiveSessions int64  `json:"active_sessions"`
	ConcurrencyCap int    `json:"concurrency_cap"`
}
