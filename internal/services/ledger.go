package services

import (
	"context"
	"fmt"

	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/repositories"
)

// EventAvailability is a snapshot of what is left to sell for an event
type EventAvailability struct {
	EventID     int                                    `json:"eventId"`
	Title       string                                 `json:"title"`
	Status      models.EventStatus                     `json:"status"`
	OnSale      bool                                   `json:"onSale"`
	TicketTypes []*repositories.TicketTypeAvailability `json:"ticketTypes"`
}

// InventoryService answers availability questions without reserving anything
type InventoryService struct {
	events EventRepository
	ledger LedgerRepository
}

// NewInventoryService creates a new inventory service
func NewInventoryService(events EventRepository, ledger LedgerRepository) *InventoryService {
	return &InventoryService{
		events: events,
		ledger: ledger,
	}
}

// Availability returns the counters of every ticket type of an event in
// creation order. The numbers may be stale by the time a purchase runs.
func (s *InventoryService) Availability(ctx context.Context, eventID int) (*EventAvailability, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	types, err := s.ledger.Availability(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	if types == nil {
		types = []*repositories.TicketTypeAvailability{}
	}

	return &EventAvailability{
		EventID:     event.ID,
		Title:       event.Title,
		Status:      event.Status,
		OnSale:      event.IsOnSale(),
		TicketTypes: types,
	}, nil
}
