package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing-core/internal/models"
)

// Reservation is the ledger state right after a successful reserve
type Reservation struct {
	TicketTypeID int    `json:"ticket_type_id"`
	EventID      int    `json:"event_id"`
	TypeName     string `json:"type_name"`
	UnitPrice    int    `json:"unit_price"`
	Quantity     int    `json:"quantity"`
	Capacity     int    `json:"capacity"`
	Sold         int    `json:"sold"`
}

// Remaining returns the units left after this reservation
func (r *Reservation) Remaining() int {
	return r.Capacity - r.Sold
}

// TicketTypeAvailability is a read-only snapshot of one ticket type's counters
type TicketTypeAvailability struct {
	TicketTypeID int    `json:"ticket_type_id"`
	Name         string `json:"name"`
	Price        int    `json:"price"`
	Quantity     int    `json:"quantity"`
	Sold         int    `json:"sold"`
	Available    int    `json:"available"`
}

// LedgerRepository owns the sold counters on ticket types and events
type LedgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Reserve atomically moves quantity units of a ticket type to sold. The check
// and the increment are one statement, so concurrent reservations against
// the same row serialize in Postgres and can never push sold past quantity.
// The event counter is bumped in the same unit of work.
func (r *LedgerRepository) Reserve(ctx context.Context, q Querier, ticketTypeID, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: reserve quantity must be positive, got %d", models.ErrValidation, quantity)
	}

	query := `
		UPDATE ticket_types
		SET sold = sold + $2
		WHERE id = $1 AND sold + $2 <= quantity
		RETURNING id, event_id, name, price, quantity, sold`

	res := &Reservation{Quantity: quantity}
	err := q.QueryRowContext(ctx, query, ticketTypeID, quantity).Scan(
		&res.TicketTypeID,
		&res.EventID,
		&res.TypeName,
		&res.UnitPrice,
		&res.Capacity,
		&res.Sold,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, q, ticketTypeID, quantity)
		}
		if isCheckViolation(err, "ticket_types_sold_within_quantity") {
			return nil, fmt.Errorf("ticket type %d: %w", ticketTypeID, models.ErrInsufficientInventory)
		}
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE events
		SET sold_tickets = sold_tickets + $2, updated_at = NOW()
		WHERE id = $1`, res.EventID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to increment event sold count: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("event with id %d: %w", res.EventID, models.ErrEventNotFound)
	}

	return res, nil
}

// explainMiss tells a missing ticket type apart from exhausted inventory
// after the conditional update matched nothing
func (r *LedgerRepository) explainMiss(ctx context.Context, q Querier, ticketTypeID, quantity int) error {
	var available int
	err := q.QueryRowContext(ctx, `SELECT quantity - sold FROM ticket_types WHERE id = $1`, ticketTypeID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ticket type with id %d: %w", ticketTypeID, models.ErrTicketTypeNotFound)
		}
		return fmt.Errorf("failed to check ticket availability: %w", err)
	}
	return fmt.Errorf("requested %d, available %d: %w", quantity, available, models.ErrInsufficientInventory)
}

// Availability returns the counters of every ticket type of an event in
// creation order
func (r *LedgerRepository) Availability(ctx context.Context, eventID int) ([]*TicketTypeAvailability, error) {
	query := `
		SELECT id, name, price, quantity, sold, GREATEST(quantity - sold, 0)
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	defer rows.Close()

	var out []*TicketTypeAvailability
	for rows.Next() {
		a := &TicketTypeAvailability{}
		if err := rows.Scan(&a.TicketTypeID, &a.Name, &a.Price, &a.Quantity, &a.Sold, &a.Available); err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		out = append(out, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability: %w", err)
	}

	return out, nil
}
