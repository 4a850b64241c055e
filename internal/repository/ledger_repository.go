package repository

import (
	"context"

	"github.com/ticketrush/admission/internal/domain"
)

// EnqueueParams contains parameters for enqueueing a user
type EnqueueParams struct {
	EntryID string
	EventID string
	UserID  string
}

// EnqueueResult represents the result of an enqueue attempt
type EnqueueResult struct {
	Success         bool
	Position        int64
	WaitingCount    int64
	ExistingEntryID string
	ErrorCode       string
	ErrorMessage    string
}

// RankResult represents a waiting entry's live rank
type RankResult struct {
	Rank         int64
	WaitingCount int64
	IsWaiting    bool
}

// LedgerRepository defines Redis-backed queue ledger operations
type LedgerRepository interface {
	// LoadScripts preloads the queue Lua scripts into Redis
	LoadScripts(ctx context.Context) error

	// Enqueue atomically registers a waiting entry with a monotonic position
	Enqueue(ctx context.Context, params EnqueueParams) (*EnqueueResult, error)

	// GetEntry loads a queue entry by ID
	GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error)

	// ListWaiting returns the head of the waiting queue in FIFO order,
	// at most limit entries
	ListWaiting(ctx context.Context, eventID string, limit int64) ([]*domain.QueueEntry, error)

	// GetRank returns the entry's 1-based rank among waiting entries
	GetRank(ctx context.Context, eventID, entryID string) (*RankResult, error)

	// CancelWaiting cancels an entry that is still waiting
	CancelWaiting(ctx context.Context, eventID, userID, entryID string) error

	// WaitingCount returns the number of waiting entries for an event
	WaitingCount(ctx context.Context, eventID string) (int64, error)

	// ListQueueEventIDs returns all events that have seen queue activity
	ListQueueEventIDs(ctx context.Context) ([]string, error)
}
