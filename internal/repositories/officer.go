package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"event-ticketing-core/internal/models"
)

// OfficerRepository handles security officer assignments
type OfficerRepository struct {
	db *sql.DB
}

// NewOfficerRepository creates a new officer repository
func NewOfficerRepository(db *sql.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// Create assigns a user to an event
func (r *OfficerRepository) Create(ctx context.Context, req *models.SecurityOfficerCreateRequest) (*models.SecurityOfficer, error) {
	if req.UserID <= 0 || req.EventID <= 0 {
		return nil, fmt.Errorf("%w: officer user and event are required", models.ErrValidation)
	}

	query := `
		INSERT INTO security_officers (user_id, event_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, event_id, name, created_at`

	officer, err := scanOfficer(r.db.QueryRowContext(ctx, query, req.UserID, req.EventID, req.Name))
	if err != nil {
		if isUniqueViolation(err, "security_officers_user_event_unique") {
			return nil, fmt.Errorf("officer %d for event %d: %w", req.UserID, req.EventID, models.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create security officer: %w", err)
	}

	return officer, nil
}

// GetByUserAndEvent returns the officer record binding userID to eventID
func (r *OfficerRepository) GetByUserAndEvent(ctx context.Context, userID, eventID int) (*models.SecurityOfficer, error) {
	query := `
		SELECT id, user_id, event_id, name, created_at
		FROM security_officers
		WHERE user_id = $1 AND event_id = $2`

	officer, err := scanOfficer(r.db.QueryRowContext(ctx, query, userID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d at event %d: %w", userID, eventID, models.ErrOfficerNotFound)
		}
		return nil, fmt.Errorf("failed to get security officer: %w", err)
	}

	return officer, nil
}

func scanOfficer(row rowScanner) (*models.SecurityOfficer, error) {
	officer := &models.SecurityOfficer{}
	err := row.Scan(
		&officer.ID,
		&officer.UserID,
		&officer.EventID,
		&officer.Name,
		&officer.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return officer, nil
}
