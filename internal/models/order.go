package models

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// Order groups the tickets bought for one event in one checkout line
type Order struct {
	ID               int         `json:"id" db:"id"`
	OrderNumber      string      `json:"order_number" db:"order_number"`
	UserID           int         `json:"user_id" db:"user_id"`
	EventID          int         `json:"event_id" db:"event_id"`
	TotalAmount      int         `json:"total_amount" db:"total_amount"` // Amount in cents
	Status           OrderStatus `json:"status" db:"status"`
	PaymentMethod    string      `json:"payment_method" db:"payment_method"`
	PaymentReference string      `json:"payment_reference" db:"payment_reference"`
	BillingName      string      `json:"billing_name" db:"billing_name"`
	BillingEmail     string      `json:"billing_email" db:"billing_email"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`

	// Related data
	Tickets []*Ticket `json:"tickets"`
}

// OrderCreateRequest represents the data needed to create a new order
type OrderCreateRequest struct {
	UserID           int         `json:"user_id"`
	EventID          int         `json:"event_id"`
	TotalAmount      int         `json:"total_amount"`
	Status           OrderStatus `json:"status"`
	PaymentMethod    string      `json:"payment_method"`
	PaymentReference string      `json:"payment_reference"`
	BillingName      string      `json:"billing_name"`
	BillingEmail     string      `json:"billing_email"`
}

// Order number format: ORD-YYYYMMDD-XXXXXX (e.g., ORD-20240101-123456)
var orderNumberRegex = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)

// Validate validates order creation data
func (req *OrderCreateRequest) Validate() error {
	if req.UserID <= 0 {
		return errors.New("order user is required")
	}

	if req.EventID <= 0 {
		return errors.New("order event is required")
	}

	if err := validateOrderTotalAmount(req.TotalAmount); err != nil {
		return err
	}

	if err := ValidateOrderStatus(req.Status); err != nil {
		return err
	}

	if len(req.BillingEmail) > 255 || len(req.BillingName) > 255 {
		return errors.New("billing details must be less than 255 characters")
	}

	return nil
}

// ValidateOrderNumber checks the human readable order number format
func ValidateOrderNumber(orderNumber string) error {
	if orderNumber == "" {
		return errors.New("order number is required")
	}

	if !orderNumberRegex.MatchString(orderNumber) {
		return errors.New("order number format is invalid")
	}

	return nil
}

func validateOrderTotalAmount(totalAmount int) error {
	if totalAmount < 0 {
		return errors.New("total amount cannot be negative")
	}

	// 10,000,000 cents
	if totalAmount > 10000000 {
		return errors.New("total amount cannot exceed 100,000.00")
	}

	return nil
}

// ValidateOrderStatus checks status against the closed set of order statuses
func ValidateOrderStatus(status OrderStatus) error {
	switch status {
	case OrderPending, OrderCompleted, OrderCancelled, OrderRefunded:
		return nil
	default:
		return fmt.Errorf("%w: order status %q", ErrInvalidStatus, status)
	}
}

// ParseOrderStatus normalises a status filter from the query string
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if err := ValidateOrderStatus(status); err != nil {
		return "", err
	}
	return status, nil
}

// GenerateOrderNumber generates a unique order number
func GenerateOrderNumber() string {
	now := time.Now()
	dateStr := now.Format("20060102")

	randomNum, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return fmt.Sprintf("ORD-%s-%06d", dateStr, now.UnixNano()%1000000)
	}

	return fmt.Sprintf("ORD-%s-%06d", dateStr, randomNum.Int64())
}
