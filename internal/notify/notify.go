// Package notify delivers issued tickets to buyers. Delivery happens after the
// issuance transaction commits; a failed delivery never invalidates a ticket
// and is parked in a retry queue instead.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Delivery statuses reported back to the buyer
const (
	StatusSent   = "sent"
	StatusQueued = "queued"
	StatusFailed = "failed"
)

// ErrNoRecipient is returned when a delivery has no address to send to
var ErrNoRecipient = errors.New("delivery has no recipient")

// TicketAttachment is one ticket inside a delivery
type TicketAttachment struct {
	TicketID int    `json:"ticketId"`
	Sequence int    `json:"sequence"`
	TypeName string `json:"typeName"`
	Payload  string `json:"payload"`
	ImageURL string `json:"imageUrl,omitempty"`

	// PNG is rendered at issuance and re-rendered from Payload on retry
	PNG []byte `json:"-"`
}

// Delivery is everything needed to hand one order's tickets to its buyer
type Delivery struct {
	OrderID        int                `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	EventID        int                `json:"eventId"`
	EventTitle     string             `json:"eventTitle"`
	UserID         int                `json:"userId"`
	RecipientName  string             `json:"recipientName"`
	RecipientEmail string             `json:"recipientEmail"`
	Tickets        []TicketAttachment `json:"tickets"`
	Attempts       int                `json:"attempts"`
	NextAttemptAt  time.Time          `json:"nextAttemptAt"`
}

// Validate checks the delivery can be addressed
func (d *Delivery) Validate() error {
	if d.RecipientEmail == "" {
		return fmt.Errorf("order %s: %w", d.OrderNumber, ErrNoRecipient)
	}
	if len(d.Tickets) == 0 {
		return fmt.Errorf("order %s: delivery has no tickets", d.OrderNumber)
	}
	return nil
}

// Notifier hands a delivery to the buyer
type Notifier interface {
	Deliver(ctx context.Context, d *Delivery) error
}

// Renderer turns a credential payload into a PNG image
type Renderer interface {
	Render(payload string) ([]byte, error)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, d *Delivery) error

// Deliver calls f
func (f NotifierFunc) Deliver(ctx context.Context, d *Delivery) error {
	return f(ctx, d)
}
