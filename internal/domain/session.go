package domain

import "time"

// SessionStatus represents the lifecycle state of a purchase session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Session represents a time-boxed purchase window granted to an admitted
// queue entry. ExpiresAt is an absolute wall-clock deadline so pending
// expirations survive process restarts.
type Session struct {
	ID        string        `json:"id"`
	EntryID   string        `json:"entry_id"`
	EventID   string        `json:"event_id"`
	UserID    string        `json:"user_id"`
	Status    SessionStatus `json:"status"`
	Token     string        `json:"token,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// IsActive reports whether the session is active and within its deadline
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive && time.Now().Before(s.ExpiresAt)
}

// IsTerminal reports whether the session has reached a terminal state
func (s *Session) IsTerminal() bool {
	switch s.Status {
	case SessionStatusCompleted, SessionStatusExpired, SessionStatusCancelled:
		return true
	}
	return false
}

// Remaining returns the time left before the session deadline
func (s *Session) Remaining() time.Duration {
	d := time.Until(s.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}

// EntryStatusFor maps a terminal session status to the entry status the
// owning queue entry should take
func EntryStatusFor(status SessionStatus) EntryStatus {
	switch status {
	case SessionStatusCompleted:
		return EntryStatusCompleted
	case SessionStatusExpired:
		return EntryStatusExpired
	default:
		return EntryStatusCancelled
	}
}
