package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxLineItemQuantity caps a single line item
const MaxLineItemQuantity = 50

var cartValidator = validator.New()

// PurchaseRequest is the checkout payload submitted by a buyer
type PurchaseRequest struct {
	Items         []LineItem       `json:"items" validate:"required,min=1,max=20,dive"`
	UserInfo      BuyerInfo        `json:"userInfo"`
	PaymentMethod string           `json:"paymentMethod" validate:"omitempty,max=50"`
	Total         *decimal.Decimal `json:"total,omitempty"`
}

// LineItem addresses one event and ticket type in a cart
type LineItem struct {
	EventID        int              `json:"eventId" validate:"required,gt=0"`
	TicketTypeID   *int             `json:"ticketTypeId,omitempty" validate:"omitempty,gt=0"`
	TicketTypeName string           `json:"ticketType,omitempty" validate:"omitempty,max=100"`
	Quantity       *int             `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Price          *decimal.Decimal `json:"price,omitempty"`
}

// BuyerInfo carries the contact details used for delivery and billing
type BuyerInfo struct {
	Name  string `json:"name" validate:"omitempty,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

// Qty returns the requested quantity, defaulting to one
func (li *LineItem) Qty() int {
	if li.Quantity == nil {
		return 1
	}
	return *li.Quantity
}

// PriceOverride returns the unit price override in cents, if any
func (li *LineItem) PriceOverride() (*int, error) {
	if li.Price == nil {
		return nil, nil
	}
	cents, err := ToCents(*li.Price)
	if err != nil {
		return nil, err
	}
	return &cents, nil
}

// Validate checks the cart shape before anything is reserved
func (req *PurchaseRequest) Validate() error {
	fields := map[string]string{}

	if err := cartValidator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		for _, fe := range verrs {
			fields[fieldPath(fe.Namespace())] = describeFieldError(fe)
		}
	}

	for i := range req.Items {
		item := &req.Items[i]
		if item.Qty() > MaxLineItemQuantity {
			fields[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("must be at most %d", MaxLineItemQuantity)
		}
		if item.Price != nil {
			if _, err := ToCents(*item.Price); err != nil {
				fields[fmt.Sprintf("items[%d].price", i)] = err.Error()
			}
		}
	}

	if req.Total != nil && req.Total.IsNegative() {
		fields["total"] = "cannot be negative"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ToCents converts a decimal currency amount to integer cents
func ToCents(amount decimal.Decimal) (int, error) {
	if amount.IsNegative() {
		return 0, errors.New("amount cannot be negative")
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, errors.New("amount has more than two decimal places")
	}
	// 1,000,000 cents, matching the ticket price ceiling
	if cents.GreaterThan(decimal.NewFromInt(1000000)) {
		return 0, errors.New("amount cannot exceed 10,000.00")
	}
	return int(cents.IntPart()), nil
}

// fieldPath turns "PurchaseRequest.Items[0].EventID" into "items[0].eventid"
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	return strings.ToLower(namespace)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
