package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"event-ticketing-core/internal/models"
)

// TicketRepository handles ticket and ticket type data operations
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const (
	ticketTypeColumns = `id, event_id, name, description, price, quantity, sold, sale_start, sale_end, created_at`
	ticketColumns     = `id, order_id, event_id, user_id, ticket_type_id, sequence_number, type_name, price, qr_code, is_used, used_at, created_at`
)

// TicketType operations

// CreateTicketType creates a new ticket type
func (r *TicketRepository) CreateTicketType(ctx context.Context, req *models.TicketTypeCreateRequest) (*models.TicketType, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	query := `
		INSERT INTO ticket_types (event_id, name, description, price, quantity, sold, sale_start, sale_end)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
		RETURNING ` + ticketTypeColumns

	ticketType, err := scanTicketType(r.db.QueryRowContext(ctx, query,
		req.EventID,
		req.Name,
		req.Description,
		req.Price,
		req.Quantity,
		req.SaleStart,
		req.SaleEnd,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	return ticketType, nil
}

// GetTicketTypeByID retrieves a ticket type by ID
func (r *TicketRepository) GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	ticketType, err := scanTicketType(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket type with id %d: %w", id, models.ErrTicketTypeNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}

	return ticketType, nil
}

// GetTicketTypesByEvent retrieves all ticket types for an event in creation
// order. The first entry is the event's default type.
func (r *TicketRepository) GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error) {
	query := `
		SELECT ` + ticketTypeColumns + `
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types by event: %w", err)
	}
	defer rows.Close()

	var ticketTypes []*models.TicketType
	for rows.Next() {
		ticketType, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		ticketTypes = append(ticketTypes, ticketType)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket types: %w", err)
	}

	return ticketTypes, nil
}

// Ticket operations

// CreateTicket inserts an issued ticket. It must run in the issuing
// transaction so the ticket commits together with its order and counters.
func (r *TicketRepository) CreateTicket(ctx context.Context, q Querier, ticket *models.Ticket) (*models.Ticket, error) {
	if err := ticket.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	query := `
		INSERT INTO tickets (order_id, event_id, user_id, ticket_type_id, sequence_number, type_name, price, qr_code, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
		RETURNING ` + ticketColumns

	created, err := scanTicket(q.QueryRowContext(ctx, query,
		ticket.OrderID,
		ticket.EventID,
		ticket.UserID,
		ticket.TicketTypeID,
		ticket.SequenceNumber,
		ticket.TypeName,
		ticket.Price,
		ticket.QRCode,
		ticket.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("ticket %d/%d: %w: %w", ticket.OrderID, ticket.SequenceNumber, models.ErrTicketIssuance, models.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return created, nil
}

// GetTicketByID retrieves a ticket by ID
func (r *TicketRepository) GetTicketByID(ctx context.Context, id int) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket with id %d: %w", id, models.ErrTicketNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// GetTicketByOrderAndSequence resolves a decoded credential to its ticket
func (r *TicketRepository) GetTicketByOrderAndSequence(ctx context.Context, orderID, sequence int) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE order_id = $1 AND sequence_number = $2`

	ticket, err := scanTicket(r.db.QueryRowContext(ctx, query, orderID, sequence))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %d/%d: %w", orderID, sequence, models.ErrTicketNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// GetTicketsByOrder retrieves all tickets for an order
func (r *TicketRepository) GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error) {
	byOrder, err := r.GetTicketsByOrders(ctx, []int{orderID})
	if err != nil {
		return nil, err
	}
	tickets := byOrder[orderID]
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

// GetTicketsByOrders retrieves the tickets of several orders in one query,
// keyed by order ID and sorted by sequence number
func (r *TicketRepository) GetTicketsByOrders(ctx context.Context, orderIDs []int) (map[int][]*models.Ticket, error) {
	result := make(map[int][]*models.Ticket, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE order_id = ANY($1)
		ORDER BY order_id ASC, sequence_number ASC`

	ids := make([]int64, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets by order: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		result[ticket.OrderID] = append(result[ticket.OrderID], ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return result, nil
}

// LockTicket reads a ticket and holds its row lock until q's transaction ends
func (r *TicketRepository) LockTicket(ctx context.Context, q Querier, id int) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`

	ticket, err := scanTicket(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket with id %d: %w", id, models.ErrTicketNotFound)
		}
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}

	return ticket, nil
}

// MarkUsed sets the one-way used flag. It reports false when the ticket was
// already used.
func (r *TicketRepository) MarkUsed(ctx context.Context, q Querier, id int, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx, `
		UPDATE tickets
		SET is_used = TRUE, used_at = $2
		WHERE id = $1 AND is_used = FALSE`, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func scanTicketType(row rowScanner) (*models.TicketType, error) {
	ticketType := &models.TicketType{}
	err := row.Scan(
		&ticketType.ID,
		&ticketType.EventID,
		&ticketType.Name,
		&ticketType.Description,
		&ticketType.Price,
		&ticketType.Quantity,
		&ticketType.Sold,
		&ticketType.SaleStart,
		&ticketType.SaleEnd,
		&ticketType.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ticketType, nil
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var ticketTypeID sql.NullInt64
	err := row.Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.EventID,
		&ticket.UserID,
		&ticketTypeID,
		&ticket.SequenceNumber,
		&ticket.TypeName,
		&ticket.Price,
		&ticket.QRCode,
		&ticket.IsUsed,
		&ticket.UsedAt,
		&ticket.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ticketTypeID.Valid {
		id := int(ticketTypeID.Int64)
		ticket.TicketTypeID = &id
	}
	return ticket, nil
}
