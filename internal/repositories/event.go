package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing-core/internal/models"
)

// EventRepository handles event data operations
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, organizer_id, title, start_date, end_date, total_tickets, sold_tickets, status, created_at, updated_at`

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, req *models.EventCreateRequest) (*models.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	query := `
		INSERT INTO events (organizer_id, title, start_date, end_date, total_tickets, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + eventColumns

	event, err := scanEvent(r.db.QueryRowContext(ctx, query,
		req.OrganizerID,
		req.Title,
		req.StartDate,
		req.EndDate,
		req.TotalTickets,
		req.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event with id %d: %w", id, models.ErrEventNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// UpdateStatus moves an event through its lifecycle
func (r *EventRepository) UpdateStatus(ctx context.Context, id int, status models.EventStatus) error {
	if err := models.ValidateEventStatus(status); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event with id %d: %w", id, models.ErrEventNotFound)
	}

	return nil
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.StartDate,
		&event.EndDate,
		&event.TotalTickets,
		&event.SoldTickets,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}
