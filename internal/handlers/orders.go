package handlers

import (
	"context"
	"net/http"

	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/services"
)

// OrderReader reads a buyer's order history
type OrderReader interface {
	ListOrders(ctx context.Context, user *models.User, query services.OrderListQuery) (*services.OrderList, error)
	GetOrder(ctx context.Context, user *models.User, orderID int) (*models.Order, error)
}

// OrderHandler serves order history
type OrderHandler struct {
	orders OrderReader
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderReader) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	query := services.OrderListQuery{
		Page:   queryInt(r, "page", fields),
		Limit:  queryInt(r, "limit", fields),
		Status: r.URL.Query().Get("status"),
	}
	if len(fields) > 0 {
		writeError(w, r, &models.ValidationError{Fields: fields})
		return
	}

	list, err := h.orders.ListOrders(r.Context(), middleware.GetUserFromContext(r.Context()), query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := intParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), middleware.GetUserFromContext(r.Context()), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
