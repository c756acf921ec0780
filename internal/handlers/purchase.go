package handlers

import (
	"context"
	"net/http"

	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/services"
)

// Purchaser issues tickets for a cart
type Purchaser interface {
	Purchase(ctx context.Context, buyer *models.User, req *models.PurchaseRequest) (*services.PurchaseResult, error)
}

// PurchaseHandler serves checkout
type PurchaseHandler struct {
	purchaser Purchaser
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(purchaser Purchaser) *PurchaseHandler {
	return &PurchaseHandler{purchaser: purchaser}
}

// purchaseFailure is returned when no line item succeeded
type purchaseFailure struct {
	Error  ErrorDetail            `json:"error"`
	Failed []*services.FailedItem `json:"failed"`
}

// Purchase handles POST /api/purchases. Every succeeded line item is final;
// 207 tells the client some of the cart was not issued.
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, r, models.ErrUnauthenticated)
		return
	}

	var req models.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.purchaser.Purchase(r.Context(), user, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch {
	case len(result.Failed) == 0:
		writeJSON(w, http.StatusCreated, result)
	case len(result.Succeeded) > 0:
		writeJSON(w, http.StatusMultiStatus, result)
	default:
		first := result.Failed[0]
		writeJSON(w, statusForKind(first.Kind), purchaseFailure{
			Error:  ErrorDetail{Code: first.Kind, Message: first.Message},
			Failed: result.Failed,
		})
	}
}
