package handlers

import (
	"context"
	"net/http"

	"event-ticketing-core/internal/services"
)

// AvailabilityReader reports what is left to sell
type AvailabilityReader interface {
	Availability(ctx context.Context, eventID int) (*services.EventAvailability, error)
}

// EventHandler serves public event reads
type EventHandler struct {
	inventory AvailabilityReader
}

// NewEventHandler creates a new event handler
func NewEventHandler(inventory AvailabilityReader) *EventHandler {
	return &EventHandler{inventory: inventory}
}

// Availability handles GET /api/events/{id}/availability
func (h *EventHandler) Availability(w http.ResponseWriter, r *http.Request) {
	eventID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	availability, err := h.inventory.Availability(r.Context(), eventID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, availability)
}
