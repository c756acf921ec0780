package services

import (
	"context"
	"fmt"

	"event-ticketing-core/internal/models"
)

// TicketService serves issued tickets back to their owners
type TicketService struct {
	ticketRepo TicketRepository
	minter     CredentialMinter
}

// NewTicketService creates a new ticket service
func NewTicketService(ticketRepo TicketRepository, minter CredentialMinter) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		minter:     minter,
	}
}

// GetTicket returns a ticket owned by user. Other users' tickets are
// reported as not found.
func (s *TicketService) GetTicket(ctx context.Context, user *models.User, ticketID int) (*models.Ticket, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	ticket, err := s.ticketRepo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != user.ID && !user.IsAdmin() {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, models.ErrTicketNotFound)
	}

	return ticket, nil
}

// QRCode renders the ticket's credential as a PNG
func (s *TicketService) QRCode(ctx context.Context, user *models.User, ticketID int) ([]byte, error) {
	ticket, err := s.GetTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}

	img, err := s.minter.Render(ticket.QRCode)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket %d: %w", ticket.ID, err)
	}
	return img, nil
}
