package models

import (
	"fmt"
	"strings"
	"time"
)

// VerificationAction is one officer-initiated action on a ticket
type VerificationAction string

const (
	ActionScanned    VerificationAction = "SCANNED"
	ActionMarkedUsed VerificationAction = "MARKED_USED"
	ActionEntry      VerificationAction = "ENTRY"
	ActionExit       VerificationAction = "EXIT"

	// ActionDenied records an attempt that failed authorization. It is never
	// accepted as a requested action.
	ActionDenied VerificationAction = "DENIED"
)

// PresenceState is the venue location of a ticket holder as inferred from
// the verification log
type PresenceState string

const (
	PresenceIssued  PresenceState = "ISSUED"
	PresenceEntered PresenceState = "ENTERED"
	PresenceExited  PresenceState = "EXITED"
)

// SecurityOfficer binds a user to the single event they may verify tickets for
type SecurityOfficer struct {
	ID        int       `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	EventID   int       `json:"event_id" db:"event_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CanVerify reports whether the officer is assigned to eventID
func (o *SecurityOfficer) CanVerify(eventID int) bool {
	return o != nil && o.EventID == eventID
}

// VerificationLog is an append-only audit entry
type VerificationLog struct {
	ID        int                `json:"id" db:"id"`
	TicketID  int                `json:"ticket_id" db:"ticket_id"`
	OfficerID int                `json:"officer_id" db:"officer_id"`
	EventID   int                `json:"event_id" db:"event_id"`
	Action    VerificationAction `json:"action" db:"action"`
	Details   string             `json:"details" db:"details"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// VerificationLogCreateRequest represents a request to append a log entry
type VerificationLogCreateRequest struct {
	TicketID  int                `json:"ticket_id"`
	OfficerID int                `json:"officer_id"`
	EventID   int                `json:"event_id"`
	Action    VerificationAction `json:"action"`
	Details   string             `json:"details"`
}

// ParseVerificationAction validates an action requested by a scanning client
func ParseVerificationAction(raw string) (VerificationAction, error) {
	action := VerificationAction(strings.ToUpper(strings.TrimSpace(raw)))
	switch action {
	case ActionScanned, ActionMarkedUsed, ActionEntry, ActionExit:
		return action, nil
	default:
		return "", fmt.Errorf("%w: unknown verification action %q", ErrValidation, raw)
	}
}

// IsValidLogAction reports whether action may appear in the log
func IsValidLogAction(action VerificationAction) bool {
	switch action {
	case ActionScanned, ActionMarkedUsed, ActionEntry, ActionExit, ActionDenied:
		return true
	default:
		return false
	}
}

// PresenceAfter folds one log entry into the presence state. Only ENTRY and
// EXIT move the holder.
func PresenceAfter(current PresenceState, action VerificationAction) PresenceState {
	switch action {
	case ActionEntry:
		return PresenceEntered
	case ActionExit:
		return PresenceExited
	default:
		if current == "" {
			return PresenceIssued
		}
		return current
	}
}

// ReplayPresence derives the presence state from log entries in time order
func ReplayPresence(logs []*VerificationLog) PresenceState {
	state := PresenceIssued
	for _, entry := range logs {
		state = PresenceAfter(state, entry.Action)
	}
	return state
}

// SecurityOfficerCreateRequest assigns a user to an event's gate staff
type SecurityOfficerCreateRequest struct {
	UserID  int    `json:"user_id"`
	EventID int    `json:"event_id"`
	Name    string `json:"name"`
}
