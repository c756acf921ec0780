package handlers

import (
	"context"
	"net/http"
	"strconv"

	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/services"
)

// TicketReader serves a ticket's QR image to its owner
type TicketReader interface {
	QRCode(ctx context.Context, user *models.User, ticketID int) ([]byte, error)
}

// HistoryReader serves a ticket's verification trail and presence
type HistoryReader interface {
	History(ctx context.Context, viewer *models.User, ticketID int) (*services.TicketHistory, error)
	TicketState(ctx context.Context, viewer *models.User, ticketID int) (models.PresenceState, error)
}

type ticketStateResponse struct {
	TicketID int                  `json:"ticketId"`
	State    models.PresenceState `json:"state"`
}

// TicketHandler serves ticket reads
type TicketHandler struct {
	tickets TicketReader
	history HistoryReader
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketReader, history HistoryReader) *TicketHandler {
	return &TicketHandler{
		tickets: tickets,
		history: history,
	}
}

// QRCode handles GET /api/tickets/{id}/qrcode
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ticketID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	img, err := h.tickets.QRCode(r.Context(), middleware.GetUserFromContext(r.Context()), ticketID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}

// History handles GET /api/tickets/{id}/history
func (h *TicketHandler) History(w http.ResponseWriter, r *http.Request) {
	ticketID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := h.history.History(r.Context(), middleware.GetUserFromContext(r.Context()), ticketID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, history)
}

// State handles GET /api/tickets/{id}/state
func (h *TicketHandler) State(w http.ResponseWriter, r *http.Request) {
	ticketID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	state, err := h.history.TicketState(r.Context(), middleware.GetUserFromContext(r.Context()), ticketID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ticketStateResponse{TicketID: ticketID, State: state})
}
