package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/monitoring"
	"event-ticketing-core/internal/repositories"
)

const maxDetailsLength = 500

// VerifyRequest is one scan submitted by a gate officer
type VerifyRequest struct {
	OfficerUserID int    `json:"-"`
	EventID       int    `json:"eventId"`
	Credential    string `json:"credential"`
	Action        string `json:"action"`
	Details       string `json:"details"`
}

// VerifyResult is the ticket after the action together with its log entry
type VerifyResult struct {
	Ticket        *models.Ticket          `json:"ticket"`
	Log           *models.VerificationLog `json:"log"`
	PreviousState models.PresenceState    `json:"previousState"`
	CurrentState  models.PresenceState    `json:"currentState"`
}

// TicketHistory is a ticket's full audit trail
type TicketHistory struct {
	Ticket *models.Ticket            `json:"ticket"`
	State  models.PresenceState      `json:"state"`
	Logs   []*models.VerificationLog `json:"logs"`
}

// LogQuery selects a page of an event's verification log
type LogQuery struct {
	OfficerID int
	TicketID  int
	Action    string
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// LogList is one page of verification log entries
type LogList struct {
	Logs       []*models.VerificationLog `json:"logs"`
	Pagination Pagination                `json:"pagination"`
}

// VerificationService checks credentials at the gate and records what
// officers do with them
type VerificationService struct {
	officers      OfficerRepository
	tickets       TicketRepository
	events        EventRepository
	verifications VerificationRepository
	logs          VerificationLogRepository
	minter        CredentialMinter
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	officers OfficerRepository,
	tickets TicketRepository,
	events EventRepository,
	verifications VerificationRepository,
	logs VerificationLogRepository,
	minter CredentialMinter,
) *VerificationService {
	return &VerificationService{
		officers:      officers,
		tickets:       tickets,
		events:        events,
		verifications: verifications,
		logs:          logs,
		minter:        minter,
	}
}

// Verify authorizes the officer, resolves the credential and records the
// action. An officer scanning another event's ticket is refused, and the
// refusal itself is logged.
func (s *VerificationService) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	if req == nil || req.OfficerUserID <= 0 {
		return nil, models.ErrUnauthenticated
	}

	action, err := models.ParseVerificationAction(req.Action)
	if err != nil {
		return nil, err
	}
	if err := validateVerifyRequest(req); err != nil {
		return nil, err
	}

	officer, err := s.officers.GetByUserAndEvent(ctx, req.OfficerUserID, req.EventID)
	if err != nil {
		if errors.Is(err, models.ErrOfficerNotFound) {
			monitoring.TrackVerification(string(action), "forbidden")
			return nil, fmt.Errorf("%w: user %d is not an officer for event %d", models.ErrForbidden, req.OfficerUserID, req.EventID)
		}
		return nil, err
	}

	ticket, err := s.resolveTicket(ctx, req.Credential)
	if err != nil {
		monitoring.TrackVerification(string(action), string(models.KindOf(err)))
		return nil, err
	}

	if !officer.CanVerify(ticket.EventID) {
		s.recordDenied(ctx, officer, ticket, action)
		monitoring.TrackVerification(string(action), "denied")
		return nil, fmt.Errorf("%w: ticket %d is not valid for event %d", models.ErrForbidden, ticket.ID, officer.EventID)
	}

	recorded, err := s.verifications.RecordAction(ctx, repositories.RecordActionParams{
		TicketID:  ticket.ID,
		OfficerID: officer.ID,
		EventID:   officer.EventID,
		Action:    action,
		Details:   strings.TrimSpace(req.Details),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}
	monitoring.TrackVerification(string(action), "recorded")

	return &VerifyResult{
		Ticket:        recorded.Ticket,
		Log:           recorded.Log,
		PreviousState: recorded.PreviousState,
		CurrentState:  recorded.CurrentState,
	}, nil
}

// resolveTicket maps a scanned payload to the ticket it was minted for. The
// stored payload must match exactly, so a validly signed credential that was
// never committed is unknown.
func (s *VerificationService) resolveTicket(ctx context.Context, payload string) (*models.Ticket, error) {
	payload = strings.TrimSpace(payload)

	claims, err := s.minter.Decode(payload)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetTicketByOrderAndSequence(ctx, claims.OrderID, claims.Sequence)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(ticket.QRCode), []byte(payload)) != 1 || ticket.EventID != claims.EventID {
		return nil, fmt.Errorf("credential does not match order %d ticket %d: %w", claims.OrderID, claims.Sequence, models.ErrTicketNotFound)
	}

	return ticket, nil
}

func (s *VerificationService) recordDenied(ctx context.Context, officer *models.SecurityOfficer, ticket *models.Ticket, action models.VerificationAction) {
	_, err := s.verifications.RecordAction(ctx, repositories.RecordActionParams{
		TicketID:  ticket.ID,
		OfficerID: officer.ID,
		EventID:   officer.EventID,
		Action:    models.ActionDenied,
		Details:   fmt.Sprintf("%s refused: ticket belongs to event %d", action, ticket.EventID),
	})
	if err != nil {
		slog.Error("failed to record denied verification", "ticket_id", ticket.ID, "officer_id", officer.ID, "error", err)
	}
}

// TicketState returns where the ticket holder currently is. Visible to the
// same viewers as History.
func (s *VerificationService) TicketState(ctx context.Context, viewer *models.User, ticketID int) (models.PresenceState, error) {
	if _, err := s.viewableTicket(ctx, viewer, ticketID); err != nil {
		return "", err
	}
	return s.verifications.PresenceState(ctx, ticketID)
}

// History returns a ticket's audit trail to its owner, the event's officers
// and organizer, or an admin
func (s *VerificationService) History(ctx context.Context, viewer *models.User, ticketID int) (*TicketHistory, error) {
	ticket, err := s.viewableTicket(ctx, viewer, ticketID)
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket history: %w", err)
	}

	return &TicketHistory{
		Ticket: ticket,
		State:  models.ReplayPresence(logs),
		Logs:   logs,
	}, nil
}

// ListLogs returns a page of an event's verification log, oldest first
func (s *VerificationService) ListLogs(ctx context.Context, viewer *models.User, eventID int, query LogQuery) (*LogList, error) {
	if viewer == nil {
		return nil, models.ErrUnauthenticated
	}
	if err := s.authorizeEventStaff(ctx, viewer, eventID); err != nil {
		return nil, err
	}

	filters := repositories.VerificationLogFilters{
		EventID:   eventID,
		OfficerID: query.OfficerID,
		TicketID:  query.TicketID,
		From:      query.From,
		To:        query.To,
	}

	if query.Action != "" {
		action := models.VerificationAction(strings.ToUpper(strings.TrimSpace(query.Action)))
		if !models.IsValidLogAction(action) {
			return nil, fmt.Errorf("%w: unknown verification action %q", models.ErrValidation, query.Action)
		}
		filters.Action = action
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, &models.ValidationError{Fields: map[string]string{"to": "must not be before from"}}
	}

	page, limit := normalizePage(query.Page, query.Limit)
	filters.Limit = limit
	filters.Offset = (page - 1) * limit

	logs, total, err := s.logs.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification logs: %w", err)
	}

	return &LogList{
		Logs:       logs,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// viewableTicket loads a ticket for its holder or the event's staff. Anyone
// else gets not found.
func (s *VerificationService) viewableTicket(ctx context.Context, viewer *models.User, ticketID int) (*models.Ticket, error) {
	if viewer == nil {
		return nil, models.ErrUnauthenticated
	}

	ticket, err := s.tickets.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID == viewer.ID {
		return ticket, nil
	}

	if err := s.authorizeEventStaff(ctx, viewer, ticket.EventID); err != nil {
		if errors.Is(err, models.ErrForbidden) {
			return nil, fmt.Errorf("ticket %d: %w", ticketID, models.ErrTicketNotFound)
		}
		return nil, err
	}
	return ticket, nil
}

// authorizeEventStaff allows admins, the event's organizer and its officers
func (s *VerificationService) authorizeEventStaff(ctx context.Context, viewer *models.User, eventID int) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if viewer.IsAdmin() || event.OrganizerID == viewer.ID {
		return nil
	}

	_, err = s.officers.GetByUserAndEvent(ctx, viewer.ID, eventID)
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrOfficerNotFound) {
		return fmt.Errorf("%w: user %d has no access to event %d", models.ErrForbidden, viewer.ID, eventID)
	}
	return err
}

func validateVerifyRequest(req *VerifyRequest) error {
	fields := map[string]string{}

	if req.EventID <= 0 {
		fields["eventId"] = "is required"
	}
	if strings.TrimSpace(req.Credential) == "" {
		fields["credential"] = "is required"
	}
	if len(req.Details) > maxDetailsLength {
		fields["details"] = fmt.Sprintf("must be at most %d characters", maxDetailsLength)
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}
