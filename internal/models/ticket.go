package models

import (
	"errors"
	"strings"
	"time"
)

// TicketType represents a type of ticket for an event
type TicketType struct {
	ID          int        `json:"id" db:"id"`
	EventID     int        `json:"event_id" db:"event_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       int        `json:"price" db:"price"` // Price in cents
	Quantity    int        `json:"quantity" db:"quantity"`
	Sold        int        `json:"sold" db:"sold"`
	SaleStart   *time.Time `json:"sale_start,omitempty" db:"sale_start"`
	SaleEnd     *time.Time `json:"sale_end,omitempty" db:"sale_end"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// TicketTypeCreateRequest represents the data needed to create a ticket type
type TicketTypeCreateRequest struct {
	EventID     int        `json:"event_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       int        `json:"price"`
	Quantity    int        `json:"quantity"`
	SaleStart   *time.Time `json:"sale_start"`
	SaleEnd     *time.Time `json:"sale_end"`
}

// Ticket represents an individual issued ticket. Only IsUsed and UsedAt
// change after issuance.
type Ticket struct {
	ID             int        `json:"id" db:"id"`
	OrderID        int        `json:"order_id" db:"order_id"`
	EventID        int        `json:"event_id" db:"event_id"`
	UserID         int        `json:"user_id" db:"user_id"`
	TicketTypeID   *int       `json:"ticket_type_id,omitempty" db:"ticket_type_id"`
	SequenceNumber int        `json:"sequence_number" db:"sequence_number"`
	TypeName       string     `json:"type_name" db:"type_name"`
	Price          int        `json:"price" db:"price"` // Price in cents
	QRCode         string     `json:"qr_code" db:"qr_code"`
	IsUsed         bool       `json:"is_used" db:"is_used"`
	UsedAt         *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Validate validates ticket type creation data
func (req *TicketTypeCreateRequest) Validate() error {
	if err := validateTicketTypeName(req.Name); err != nil {
		return err
	}

	if err := validateTicketTypePrice(req.Price); err != nil {
		return err
	}

	if err := validateTicketTypeQuantity(req.Quantity); err != nil {
		return err
	}

	if req.SaleStart != nil && req.SaleEnd != nil && req.SaleStart.After(*req.SaleEnd) {
		return errors.New("sale start date must be before sale end date")
	}

	if len(req.Description) > 1000 {
		return errors.New("ticket type description must be less than 1000 characters")
	}

	return nil
}

// Validate validates the ticket data
func (t *Ticket) Validate() error {
	if t.QRCode == "" {
		return errors.New("QR code is required")
	}

	if t.SequenceNumber <= 0 {
		return errors.New("sequence number must be positive")
	}

	if t.Price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	return nil
}

func validateTicketTypeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("ticket type name is required")
	}

	if len(name) > 100 {
		return errors.New("ticket type name must be less than 100 characters")
	}

	return nil
}

func validateTicketTypePrice(price int) error {
	if price < 0 {
		return errors.New("ticket price cannot be negative")
	}

	// 1,000,000 cents
	if price > 1000000 {
		return errors.New("ticket price cannot exceed 10,000.00")
	}

	return nil
}

func validateTicketTypeQuantity(quantity int) error {
	if quantity <= 0 {
		return errors.New("ticket quantity must be greater than 0")
	}

	if quantity > 100000 {
		return errors.New("ticket quantity cannot exceed 100,000")
	}

	return nil
}

// Available returns the number of available tickets
func (tt *TicketType) Available() int {
	available := tt.Quantity - tt.Sold
	if available < 0 {
		return 0
	}
	return available
}

// IsSoldOut returns true if all tickets are sold
func (tt *TicketType) IsSoldOut() bool {
	return tt.Sold >= tt.Quantity
}

// IsOnSale reports whether now falls inside the optional sale window
func (tt *TicketType) IsOnSale(now time.Time) bool {
	if tt.SaleStart != nil && now.Before(*tt.SaleStart) {
		return false
	}
	if tt.SaleEnd != nil && now.After(*tt.SaleEnd) {
		return false
	}
	return true
}

// MatchesName compares ticket type names case-insensitively
func (tt *TicketType) MatchesName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(tt.Name), strings.TrimSpace(name))
}

// PriceInCurrency returns the price in the main currency as a float
func (tt *TicketType) PriceInCurrency() float64 {
	return float64(tt.Price) / 100.0
}
