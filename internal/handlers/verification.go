package handlers

import (
	"context"
	"net/http"
	"time"

	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/services"
)

// Verifier checks credentials at the gate and reads the log
type Verifier interface {
	Verify(ctx context.Context, req *services.VerifyRequest) (*services.VerifyResult, error)
	ListLogs(ctx context.Context, viewer *models.User, eventID int, query services.LogQuery) (*services.LogList, error)
}

// VerificationHandler serves gate officers
type VerificationHandler struct {
	verifier Verifier
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(verifier Verifier) *VerificationHandler {
	return &VerificationHandler{verifier: verifier}
}

// Verify handles POST /api/verifications
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, r, models.ErrUnauthenticated)
		return
	}

	var req services.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.OfficerUserID = user.ID

	result, err := h.verifier.Verify(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListLogs handles GET /api/events/{id}/verification-logs
func (h *VerificationHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	eventID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	fields := map[string]string{}
	q := r.URL.Query()
	query := services.LogQuery{
		OfficerID: queryInt(r, "officerId", fields),
		TicketID:  queryInt(r, "ticketId", fields),
		Action:    q.Get("action"),
		From:      queryTime(r, "from", fields),
		To:        queryTime(r, "to", fields),
		Page:      queryInt(r, "page", fields),
		Limit:     queryInt(r, "limit", fields),
	}
	if len(fields) > 0 {
		writeError(w, r, &models.ValidationError{Fields: fields})
		return
	}

	list, err := h.verifier.ListLogs(r.Context(), middleware.GetUserFromContext(r.Context()), eventID, query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// queryTime parses an optional RFC 3339 timestamp
func queryTime(r *http.Request, name string, fields map[string]string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fields[name] = "must be an RFC 3339 timestamp"
		return nil
	}
	return &parsed
}
