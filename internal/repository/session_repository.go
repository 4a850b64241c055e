package repository

import (
	"context"
	"time"

	"github.com/ticketrush/admission/internal/domain"
)

// AdmitParams carries everything the admit script needs for one attempt
type AdmitParams struct {
	EventID         string
	SessionID       string
	ConcurrencyCap  int
	SessionDuration time.Duration
	TicketTypes     []string // checked for remaining inventory before admitting
}

// AdmitResult is the outcome of an admit attempt
type AdmitResult struct {
	Success      bool
	EntryID      string
	UserID       string
	ExpiresAt    time.Time
	ErrorCode    string
	ErrorMessage string
}

// SessionRepository manages purchase sessions and their deadlines
type SessionRepository interface {
	// LoadScripts preloads the session Lua scripts into Redis
	LoadScripts(ctx context.Context) error

	// AdmitNext pops the lowest-position waiting entry and opens a session
	// for it, atomically with the cap and sold-out checks
	AdmitNext(ctx context.Context, params AdmitParams) (*AdmitResult, error)

	// GetSession loads a session by ID
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// Finish moves an active session to a terminal state, cascades to the
	// owning entry and settles held reservations. Idempotent: finishing a
	// session that already ended returns its final status with no changes.
	Finish(ctx context.Context, eventID, sessionID string, target domain.SessionStatus) (domain.SessionStatus, int64, error)

	// Extend pushes an active session's deadline out by extendBy
	Extend(ctx context.Context, eventID, sessionID string, extendBy time.Duration) (time.Time, error)

	// ExpiredSessions lists active session IDs whose deadline passed
	ExpiredSessions(ctx context.Context, eventID string, now time.Time) ([]string, error)

	// ActiveCount returns the number of active sessions for an event
	ActiveCount(ctx context.Context, eventID string) (int64, error)

	// StoreToken attaches the signed session token to the session hash
	StoreToken(ctx context.Context, sessionID, token string) error
}
