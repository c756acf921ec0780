package services

import (
	"context"
	"fmt"

	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/repositories"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// Pagination describes one page of a listing
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func newPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

// normalizePage applies the default and maximum page sizes
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// OrderListQuery selects a page of the caller's orders
type OrderListQuery struct {
	Page   int
	Limit  int
	Status string
}

// OrderList is one page of orders with their tickets
type OrderList struct {
	Orders     []*models.Order `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

// OrderService handles order history reads
type OrderService struct {
	orderRepo  OrderRepository
	ticketRepo TicketRepository
}

// NewOrderService creates a new order service
func NewOrderService(orderRepo OrderRepository, ticketRepo TicketRepository) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		ticketRepo: ticketRepo,
	}
}

// ListOrders returns the user's orders, newest first. Repeating the query
// against unchanged data returns the same page.
func (s *OrderService) ListOrders(ctx context.Context, user *models.User, query OrderListQuery) (*OrderList, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	var status models.OrderStatus
	if query.Status != "" {
		parsed, err := models.ParseOrderStatus(query.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	page, limit := normalizePage(query.Page, query.Limit)

	orders, total, err := s.orderRepo.Search(ctx, repositories.OrderSearchFilters{
		UserID: user.ID,
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := s.attachTickets(ctx, orders); err != nil {
		return nil, err
	}

	return &OrderList{
		Orders:     orders,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// GetOrder returns one of the user's orders. Someone else's order is
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, user *models.User, orderID int) (*models.Order, error) {
	if user == nil {
		return nil, models.ErrUnauthenticated
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrOrderNotFound)
	}

	tickets, err := s.ticketRepo.GetTicketsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order tickets: %w", err)
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	order.Tickets = tickets

	return order, nil
}

func (s *OrderService) attachTickets(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
	}

	byOrder, err := s.ticketRepo.GetTicketsByOrders(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to get order tickets: %w", err)
	}

	for _, order := range orders {
		order.Tickets = byOrder[order.ID]
		if order.Tickets == nil {
			order.Tickets = []*models.Ticket{}
		}
	}
	return nil
}
