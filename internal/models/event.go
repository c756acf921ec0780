package models

import (
	"errors"
	"strings"
	"time"
)

// EventStatus represents the status of an event
type EventStatus string

const (
	EventUpcoming  EventStatus = "UPCOMING"
	EventOngoing   EventStatus = "ONGOING"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// Event represents an event in the system
type Event struct {
	ID           int         `json:"id" db:"id"`
	OrganizerID  int         `json:"organizer_id" db:"organizer_id"`
	Title        string      `json:"title" db:"title"`
	StartDate    time.Time   `json:"start_date" db:"start_date"`
	EndDate      time.Time   `json:"end_date" db:"end_date"`
	TotalTickets int         `json:"total_tickets" db:"total_tickets"`
	SoldTickets  int         `json:"sold_tickets" db:"sold_tickets"`
	Status       EventStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// EventCreateRequest represents the data needed to create a new event
type EventCreateRequest struct {
	OrganizerID  int         `json:"organizer_id"`
	Title        string      `json:"title"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	TotalTickets int         `json:"total_tickets"`
	Status       EventStatus `json:"status"`
}

// Validate validates event creation data
func (req *EventCreateRequest) Validate() error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("event title is required")
	}

	if len(req.Title) > 200 {
		return errors.New("event title must be less than 200 characters")
	}

	if req.OrganizerID <= 0 {
		return errors.New("organizer is required")
	}

	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return errors.New("event schedule is required")
	}

	if !req.EndDate.After(req.StartDate) {
		return errors.New("event end date must be after start date")
	}

	if req.TotalTickets < 0 {
		return errors.New("total tickets cannot be negative")
	}

	if req.Status == "" {
		req.Status = EventUpcoming
	}

	return ValidateEventStatus(req.Status)
}

// ValidateEventStatus checks status against the closed set of event statuses
func ValidateEventStatus(status EventStatus) error {
	switch status {
	case EventUpcoming, EventOngoing, EventCompleted, EventCancelled:
		return nil
	default:
		return ErrInvalidStatus
	}
}

// IsOnSale returns true if tickets may still be issued for the event
func (e *Event) IsOnSale() bool {
	return e.Status == EventUpcoming || e.Status == EventOngoing
}

// RemainingCapacity returns the event-level headroom. The event counter is
// best-effort; ticket types carry the authoritative limits.
func (e *Event) RemainingCapacity() int {
	remaining := e.TotalTickets - e.SoldTickets
	if remaining < 0 {
		return 0
	}
	return remaining
}
