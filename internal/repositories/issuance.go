package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"event-ticketing-core/internal/models"
)

// LineItemIssue describes one resolved cart line ready to be issued
type LineItemIssue struct {
	UserID           int
	EventID          int
	TicketTypeID     int
	Quantity         int
	UnitPrice        int // cents, after any override
	PaymentMethod    string
	PaymentReference string
	BillingName      string
	BillingEmail     string
}

// CredentialFunc mints the credential payload for one ticket of order. An
// error aborts the whole line item.
type CredentialFunc func(order *models.Order, sequence int, issuedAt time.Time) (string, error)

// IssuedLineItem is everything one committed line item produced
type IssuedLineItem struct {
	Order       *models.Order
	Tickets     []*models.Ticket
	Reservation *Reservation
}

// IssuanceRepository commits a line item's counters, order and tickets as a
// single transaction
type IssuanceRepository struct {
	db      *sql.DB
	ledger  *LedgerRepository
	orders  *OrderRepository
	tickets *TicketRepository
}

// NewIssuanceRepository creates a new issuance repository
func NewIssuanceRepository(db *sql.DB, ledger *LedgerRepository, orders *OrderRepository, tickets *TicketRepository) *IssuanceRepository {
	return &IssuanceRepository{
		db:      db,
		ledger:  ledger,
		orders:  orders,
		tickets: tickets,
	}
}

// IssueLineItem reserves inventory, records the order and persists one
// ticket per unit. Nothing is visible to other transactions until all of it
// commits; any failure leaves counters, orders and tickets untouched.
func (r *IssuanceRepository) IssueLineItem(ctx context.Context, item LineItemIssue, mint CredentialFunc) (*IssuedLineItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The conditional increment takes the ticket type row lock first, so
	// concurrent buyers of the same type queue here.
	reservation, err := r.ledger.Reserve(ctx, tx, item.TicketTypeID, item.Quantity)
	if err != nil {
		return nil, err
	}
	if reservation.EventID != item.EventID {
		return nil, fmt.Errorf("ticket type %d does not belong to event %d: %w", item.TicketTypeID, item.EventID, models.ErrTicketTypeNotFound)
	}

	order, err := r.orders.Create(ctx, tx, &models.OrderCreateRequest{
		UserID:           item.UserID,
		EventID:          item.EventID,
		TotalAmount:      item.UnitPrice * item.Quantity,
		Status:           models.OrderCompleted,
		PaymentMethod:    item.PaymentMethod,
		PaymentReference: item.PaymentReference,
		BillingName:      item.BillingName,
		BillingEmail:     item.BillingEmail,
	})
	if err != nil {
		return nil, err
	}

	ticketTypeID := item.TicketTypeID
	tickets := make([]*models.Ticket, 0, item.Quantity)
	for seq := 1; seq <= item.Quantity; seq++ {
		issuedAt := time.Now().UTC()

		payload, err := mint(order, seq, issuedAt)
		if err != nil {
			if errors.Is(err, models.ErrTicketIssuance) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: credential %d: %w", models.ErrTicketIssuance, seq, err)
		}

		ticket, err := r.tickets.CreateTicket(ctx, tx, &models.Ticket{
			OrderID:        order.ID,
			EventID:        item.EventID,
			UserID:         item.UserID,
			TicketTypeID:   &ticketTypeID,
			SequenceNumber: seq,
			TypeName:       reservation.TypeName,
			Price:          item.UnitPrice,
			QRCode:         payload,
			CreatedAt:      issuedAt,
		})
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit issuance: %w", err)
	}

	order.Tickets = tickets
	return &IssuedLineItem{
		Order:       order,
		Tickets:     tickets,
		Reservation: reservation,
	}, nil
}
