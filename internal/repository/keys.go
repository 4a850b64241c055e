package repository

import "fmt"

// Key prefixes shared between Go code and the Lua scripts that build
// keys dynamically. Changing one side requires changing the other.
const (
	entryKeyPrefix       = "queue:entry:"
	sessionKeyPrefix     = "session:"
	userIndexKeyPrefix   = "queue:user:"
	inventoryKeyPrefix   = "inventory:"
	allowanceKeyPrefix   = "allowance:"
	reservationKeyPrefix = "reservation:"

	queueEventsKey = "admission:events"
)

func positionCounterKey(eventID string) string {
	return fmt.Sprintf("queue:pos:%s", eventID)
}

func waitingKey(eventID string) string {
	return fmt.Sprintf("queue:waiting:%s", eventID)
}

func entryKey(entryID string) string {
	return entryKeyPrefix + entryID
}

func userIndexKey(eventID, userID string) string {
	return fmt.Sprintf("%s%s:%s", userIndexKeyPrefix, eventID, userID)
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func activeSessionsKey(eventID string) string {
	return fmt.Sprintf("sessions:active:%s", eventID)
}

func sessionReservationsKey(sessionID string) string {
	return fmt.Sprintf("session:resv:%s", sessionID)
}

func inventoryKey(eventID, ticketType string) string {
	return fmt.Sprintf("%s%s:%s", inventoryKeyPrefix, eventID, ticketType)
}

func allowanceKey(eventID, ticketType, userID string) string {
	return fmt.Sprintf("%s%s:%s:%s", allowanceKeyPrefix, eventID, ticketType, userID)
}

func reservationKey(reservationID string) string {
	return reservationKeyPrefix + reservationID
}
