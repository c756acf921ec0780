package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"event-ticketing-core/internal/models"
)

// VerificationLogRepository is the append-only store of gate actions. It
// exposes no update or delete; the table's trigger rejects both anyway.
type VerificationLogRepository struct {
	db *sql.DB
}

// NewVerificationLogRepository creates a new verification log repository
func NewVerificationLogRepository(db *sql.DB) *VerificationLogRepository {
	return &VerificationLogRepository{db: db}
}

// VerificationLogFilters represents filters for log queries
type VerificationLogFilters struct {
	EventID   int
	OfficerID int
	TicketID  int
	Action    models.VerificationAction
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
	SortDesc  bool
}

const verificationLogColumns = `id, ticket_id, officer_id, event_id, action, details, created_at`

// Append writes one log entry. Its timestamp is pushed past the ticket's
// latest entry so replay order per ticket is strictly increasing; callers
// hold the ticket row lock in q's transaction to make that race free.
func (r *VerificationLogRepository) Append(ctx context.Context, q Querier, req *models.VerificationLogCreateRequest) (*models.VerificationLog, error) {
	if !models.IsValidLogAction(req.Action) {
		return nil, fmt.Errorf("%w: unknown verification action %q", models.ErrValidation, req.Action)
	}

	query := `
		INSERT INTO verification_logs (ticket_id, officer_id, event_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5, GREATEST(
			clock_timestamp(),
			COALESCE(
				(SELECT MAX(created_at) FROM verification_logs WHERE ticket_id = $1) + INTERVAL '1 microsecond',
				'-infinity'::timestamptz
			)
		))
		RETURNING ` + verificationLogColumns

	entry, err := scanVerificationLog(q.QueryRowContext(ctx, query,
		req.TicketID,
		req.OfficerID,
		req.EventID,
		req.Action,
		req.Details,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append verification log: %w", err)
	}

	return entry, nil
}

// LatestPresenceAction returns the most recent ENTRY or EXIT for a ticket,
// or "" if the holder never passed the gate
func (r *VerificationLogRepository) LatestPresenceAction(ctx context.Context, q Querier, ticketID int) (models.VerificationAction, error) {
	query := `
		SELECT action
		FROM verification_logs
		WHERE ticket_id = $1 AND action IN ('ENTRY', 'EXIT')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var action models.VerificationAction
	err := q.QueryRowContext(ctx, query, ticketID).Scan(&action)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest presence action: %w", err)
	}

	return action, nil
}

// ListByTicket returns a ticket's full history in replay order
func (r *VerificationLogRepository) ListByTicket(ctx context.Context, ticketID int) ([]*models.VerificationLog, error) {
	logs, _, err := r.List(ctx, VerificationLogFilters{TicketID: ticketID, Limit: -1})
	return logs, err
}

// List queries the log by event, officer, ticket, action and time range.
// Entries are ordered by (created_at, id). A negative limit returns every
// matching row.
func (r *VerificationLogRepository) List(ctx context.Context, filters VerificationLogFilters) ([]*models.VerificationLog, int, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if filters.EventID > 0 {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argIndex))
		args = append(args, filters.EventID)
		argIndex++
	}

	if filters.OfficerID > 0 {
		conditions = append(conditions, fmt.Sprintf("officer_id = $%d", argIndex))
		args = append(args, filters.OfficerID)
		argIndex++
	}

	if filters.TicketID > 0 {
		conditions = append(conditions, fmt.Sprintf("ticket_id = $%d", argIndex))
		args = append(args, filters.TicketID)
		argIndex++
	}

	if filters.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIndex))
		args = append(args, filters.Action)
		argIndex++
	}

	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filters.From)
		argIndex++
	}

	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filters.To)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM verification_logs %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get verification log count: %w", err)
	}

	direction := "ASC"
	if filters.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM verification_logs
		%s
		ORDER BY created_at %s, id %s`,
		verificationLogColumns, whereClause, direction, direction)

	if filters.Limit >= 0 {
		if filters.Limit == 0 {
			filters.Limit = 50
		}
		if filters.Offset < 0 {
			filters.Offset = 0
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filters.Limit, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query verification logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.VerificationLog{}
	for rows.Next() {
		entry, err := scanVerificationLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan verification log: %w", err)
		}
		logs = append(logs, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating verification logs: %w", err)
	}

	return logs, total, nil
}

func scanVerificationLog(row rowScanner) (*models.VerificationLog, error) {
	entry := &models.VerificationLog{}
	err := row.Scan(
		&entry.ID,
		&entry.TicketID,
		&entry.OfficerID,
		&entry.EventID,
		&entry.Action,
		&entry.Details,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}
