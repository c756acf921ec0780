package services

import (
	"context"

	"event-ticketing-core/internal/credential"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/notify"
	"event-ticketing-core/internal/repositories"
)

// EventRepository is the event data the services read
type EventRepository interface {
	GetByID(ctx context.Context, id int) (*models.Event, error)
}

// TicketRepository interface for ticket and ticket type reads
type TicketRepository interface {
	GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error)
	GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error)
	GetTicketByID(ctx context.Context, id int) (*models.Ticket, error)
	GetTicketByOrderAndSequence(ctx context.Context, orderID, sequence int) (*models.Ticket, error)
	GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error)
	GetTicketsByOrders(ctx context.Context, orderIDs []int) (map[int][]*models.Ticket, error)
}

// IssuanceRepository commits one line item atomically
type IssuanceRepository interface {
	IssueLineItem(ctx context.Context, item repositories.LineItemIssue, mint repositories.CredentialFunc) (*repositories.IssuedLineItem, error)
}

// OrderRepository interface for order reads
type OrderRepository interface {
	GetByID(ctx context.Context, id int) (*models.Order, error)
	Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error)
}

// LedgerRepository exposes the inventory counters
type LedgerRepository interface {
	Availability(ctx context.Context, eventID int) ([]*repositories.TicketTypeAvailability, error)
}

// OfficerRepository resolves gate staff assignments
type OfficerRepository interface {
	GetByUserAndEvent(ctx context.Context, userID, eventID int) (*models.SecurityOfficer, error)
}

// VerificationRepository applies gate actions under the ticket lock
type VerificationRepository interface {
	RecordAction(ctx context.Context, p repositories.RecordActionParams) (*repositories.RecordedAction, error)
	PresenceState(ctx context.Context, ticketID int) (models.PresenceState, error)
}

// VerificationLogRepository reads the append-only audit trail
type VerificationLogRepository interface {
	ListByTicket(ctx context.Context, ticketID int) ([]*models.VerificationLog, error)
	List(ctx context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int, error)
}

// CredentialMinter mints, renders and verifies ticket credentials
type CredentialMinter interface {
	Issue(claims credential.Claims) (*credential.Issued, error)
	Decode(payload string) (*credential.Claims, error)
	Render(payload string) ([]byte, error)
}

// DeliveryQueue parks deliveries that could not be handed over
type DeliveryQueue interface {
	Enqueue(ctx context.Context, d *notify.Delivery) error
}
