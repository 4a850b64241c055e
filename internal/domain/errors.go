package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Queue errors
	ErrAlreadyQueued  = errors.New("user already has an active queue entry for this event")
	ErrEntryNotFound  = errors.New("queue entry not found")
	ErrQueueEmpty     = errors.New("queue is empty")
	ErrEntryNotActive = errors.New("queue entry is not active")

	// Session errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session has expired")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrCapacityExceeded    = errors.New("event concurrency cap reached")
	ErrInvalidSessionToken = errors.New("invalid session token")

	// Inventory errors
	ErrSoldOut               = errors.New("event is sold out")
	ErrInsufficientInventory = errors.New("insufficient ticket inventory")
	ErrLimitExceeded         = errors.New("per-user ticket limit exceeded")
	ErrInventoryNotFound     = errors.New("ticket inventory not found")
	ErrReservationNotFound   = errors.New("reservation not found")

	// Event errors
	ErrEventNotFound = errors.New("event not found")

	// Validation errors
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrInvalidEventID    = errors.New("invalid event id")
	ErrInvalidEntryID    = errors.New("invalid entry id")
	ErrInvalidSessionID  = errors.New("invalid session id")
	ErrInvalidTicketType = errors.New("invalid ticket type")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
)

// AlreadyQueuedError is a duplicate-join refusal carrying the entry the
// user already holds, so the caller can resume polling it.
type AlreadyQueuedError struct {
	EntryID string
}

func (e *AlreadyQueuedError) Error() string {
	return ErrAlreadyQueued.Error()
}

func (e *AlreadyQueuedError) Unwrap() error {
	return ErrAlreadyQueued
}

// LimitExceededError is a per-user-cap refusal carrying how many tickets
// the user may still purchase.
type LimitExceededError struct {
	Remaining int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s, %d more allowed", ErrLimitExceeded.Error(), e.Remaining)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// InsufficientInventoryError is an inventory refusal carrying the count
// still available at the time of the attempt.
type InsufficientInventoryError struct {
	Available int64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("%s, %d available", ErrInsufficientInventory.Error(), e.Available)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrInventoryNotFound) ||
		errors.Is(err, ErrReservationNotFound) ||
		errors.Is(err, ErrEventNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidEntryID) ||
		errors.Is(err, ErrInvalidSessionID) ||
		errors.Is(err, ErrInvalidTicketType) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadyQueued) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrInsufficientInventory)
}

// IsExpiredError checks if the error is an expiration error
func IsExpiredError(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
