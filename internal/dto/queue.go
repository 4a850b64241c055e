package dto

import "time"

// JoinQueueRequest represents a request to join an event's waiting queue
type JoinQueueRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

// JoinQueueResponse represents the response after joining the queue
type JoinQueueResponse struct {
	EntryID       string    `json:"entry_id"`
	Position      int64     `json:"position"`
	Rank          int64     `json:"rank"`
	EstimatedWait int64     `json:"estimated_wait_seconds"`
	EnteredAt     time.Time `json:"entered_at"`
	Message       string    `json:"message,omitempty"`
}

// EntryStatusResponse represents the current state of a queue entry
type EntryStatusResponse struct {
	EntryID       string     `json:"entry_id"`
	EventID       string     `json:"event_id"`
	Status        string     `json:"status"`
	Position      int64      `json:"position"`
	Rank          int64      `json:"rank,omitempty"`
	WaitingCount  int64      `json:"waiting_count,omitempty"`
	EstimatedWait int64      `json:"estimated_wait_seconds,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
	SessionToken  string     `json:"session_token,omitempty"`
	SessionExpiry *time.Time `json:"session_expires_at,omitempty"`
}

// LeaveQueueRequest represents a request to leave the queue
type LeaveQueueRequest struct {
	EntryID string `json:"entry_id" binding:"required"`
}

// LeaveQueueResponse represents the response after leaving the queue
type LeaveQueueResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// QueueEntrySummary is one waiting entry in the admin queue snapshot
type QueueEntrySummary struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Position  int64     `json:"position"`
	Rank      int64     `json:"rank"`
	EnteredAt time.Time `json:"entered_at"`
}

// QueueSnapshotResponse summarizes one event's queue for admin views:
// aggregate counts plus the waiting entries from the head of the queue
type QueueSnapshotResponse struct {
	EventID        string              `json:"event_id"`
	WaitingCount   int64               `json:"waiting_count"`
	ActiveSessions int64               `json:"active_sessions"`
	ConcurrencyCap int                 `json:"concurrency_cap"`
	Entries        []QueueEntrySummary `json:"entries"`
}

// ExtendSessionRequest represents an admin request to extend a session
type ExtendSessionRequest struct {
	ExtendSeconds int `json:"extend_seconds" binding:"required,gt=0"`
}
