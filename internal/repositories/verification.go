package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-ticketing-core/internal/models"
)

// RecordActionParams is one gate action to be written against a ticket
type RecordActionParams struct {
	TicketID  int
	OfficerID int
	EventID   int
	Action    models.VerificationAction
	Details   string
}

// RecordedAction is the ticket and log entry as committed
type RecordedAction struct {
	Ticket        *models.Ticket
	Log           *models.VerificationLog
	PreviousState models.PresenceState
	CurrentState  models.PresenceState
}

// VerificationRepository applies gate actions under the ticket's row lock
type VerificationRepository struct {
	db      *sql.DB
	tickets *TicketRepository
	logs    *VerificationLogRepository
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(db *sql.DB, tickets *TicketRepository, logs *VerificationLogRepository) *VerificationRepository {
	return &VerificationRepository{
		db:      db,
		tickets: tickets,
		logs:    logs,
	}
}

// RecordAction locks the ticket, applies the action's side effect and
// appends exactly one log row. Only MARKED_USED mutates the ticket.
func (r *VerificationRepository) RecordAction(ctx context.Context, p RecordActionParams) (*RecordedAction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ticket, err := r.tickets.LockTicket(ctx, tx, p.TicketID)
	if err != nil {
		return nil, err
	}

	latest, err := r.logs.LatestPresenceAction(ctx, tx, ticket.ID)
	if err != nil {
		return nil, err
	}
	previous := models.PresenceAfter(models.PresenceIssued, latest)

	if p.Action == models.ActionMarkedUsed && !ticket.IsUsed {
		now := time.Now().UTC()
		if _, err := r.tickets.MarkUsed(ctx, tx, ticket.ID, now); err != nil {
			return nil, err
		}
		ticket.IsUsed = true
		ticket.UsedAt = &now
	}

	entry, err := r.logs.Append(ctx, tx, &models.VerificationLogCreateRequest{
		TicketID:  ticket.ID,
		OfficerID: p.OfficerID,
		EventID:   p.EventID,
		Action:    p.Action,
		Details:   p.Details,
	})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit verification: %w", err)
	}

	return &RecordedAction{
		Ticket:        ticket,
		Log:           entry,
		PreviousState: previous,
		CurrentState:  models.PresenceAfter(previous, p.Action),
	}, nil
}

// PresenceState returns where a ticket holder currently is
func (r *VerificationRepository) PresenceState(ctx context.Context, ticketID int) (models.PresenceState, error) {
	latest, err := r.logs.LatestPresenceAction(ctx, r.db, ticketID)
	if err != nil {
		return "", err
	}
	return models.PresenceAfter(models.PresenceIssued, latest), nil
}
