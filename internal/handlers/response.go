package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"event-ticketing-core/internal/models"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error kind and a caller-safe message
type ErrorDetail struct {
	Code    models.ErrorKind  `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

// statusForKind maps an error kind to its HTTP status
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindUnauthenticated:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindInsufficientInventory:
		return http.StatusConflict
	case models.KindTicketIssuance:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorDetail classifies err. Unexpected errors are logged and hidden.
func errorDetail(r *http.Request, err error) (int, ErrorDetail) {
	kind := models.KindOf(err)
	if kind == models.KindUnexpected {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		return http.StatusInternalServerError, ErrorDetail{Code: kind, Message: "internal server error"}
	}

	if kind == models.KindTicketIssuance {
		slog.Error("ticket issuance failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		return statusForKind(kind), ErrorDetail{Code: kind, Message: models.TicketIssuanceMessage}
	}

	detail := ErrorDetail{Code: kind, Message: err.Error()}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		detail.Fields = verr.Fields
	}
	return statusForKind(kind), detail
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := errorDetail(r, err)
	writeJSON(w, status, ErrorResponse{Error: detail})
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &models.ValidationError{Fields: map[string]string{"body": "must be a valid JSON object"}}
	}
	return nil
}

// intParam parses a positive integer URL parameter
func intParam(r *http.Request, name string) (int, error) {
	value, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || value <= 0 {
		return 0, &models.ValidationError{Fields: map[string]string{name: "must be a positive integer"}}
	}
	return value, nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fields map[string]string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		fields[name] = "must be a non-negative integer"
		return 0
	}
	return value
}
