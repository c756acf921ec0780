package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"event-ticketing-core/internal/models"
)

// orderNumberAttempts bounds how often Create draws a new order number
// after a collision
const orderNumberAttempts = 5

// OrderRepository handles order data operations
type OrderRepository struct {
	db             *sql.DB
	newOrderNumber func() string
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{
		db:             db,
		newOrderNumber: models.GenerateOrderNumber,
	}
}

// OrderSearchFilters represents filters for order search
type OrderSearchFilters struct {
	UserID  int                // Filter by user
	EventID int                // Filter by event
	Status  models.OrderStatus // Filter by status
	Limit   int                // Number of results to return
	Offset  int                // Number of results to skip
}

const orderColumns = `id, order_number, user_id, event_id, total_amount, status, payment_method, payment_reference, billing_name, billing_email, created_at, updated_at`

// Create inserts an order inside q's transaction
func (r *OrderRepository) Create(ctx context.Context, q Querier, req *models.OrderCreateRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	// A colliding number, including one held by a concurrent uncommitted
	// insert, yields no row instead of aborting the caller's transaction.
	query := `
		INSERT INTO orders (order_number, user_id, event_id, total_amount, status, payment_method, payment_reference, billing_name, billing_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_number) DO NOTHING
		RETURNING ` + orderColumns

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order, err := scanOrder(q.QueryRowContext(ctx, query,
			r.newOrderNumber(),
			req.UserID,
			req.EventID,
			req.TotalAmount,
			req.Status,
			req.PaymentMethod,
			req.PaymentReference,
			req.BillingName,
			req.BillingEmail,
		))
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: no free order number after %d attempts", models.ErrTicketIssuance, orderNumberAttempts)
}

// GetByID retrieves an order by ID
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order with id %d: %w", id, models.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// Search searches for orders with filters and pagination. Results are ordered
// newest first with the ID as tie-breaker so repeated pages are stable.
func (r *OrderRepository) Search(ctx context.Context, filters OrderSearchFilters) ([]*models.Order, int, error) {
	var conditions []string
	var args []any
	argIndex := 1

	if filters.UserID > 0 {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, filters.UserID)
		argIndex++
	}

	if filters.EventID > 0 {
		conditions = append(conditions, fmt.Sprintf("event_id = $%d", argIndex))
		args = append(args, filters.EventID)
		argIndex++
	}

	if filters.Status != "" {
		if err := models.ValidateOrderStatus(filters.Status); err != nil {
			return nil, 0, err
		}
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Set default pagination
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to get order count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, total, nil
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.EventID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentReference,
		&order.BillingName,
		&order.BillingEmail,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
