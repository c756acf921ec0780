package models

import "errors"

// Common errors used throughout the application
var (
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("forbidden")
	ErrValidation            = errors.New("validation failed")
	ErrEventNotFound         = errors.New("event not found")
	ErrTicketTypeNotFound    = errors.New("ticket type not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrOfficerNotFound       = errors.New("security officer not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrInsufficientInventory = errors.New("insufficient ticket inventory")
	ErrEventNotOnSale        = errors.New("event is not on sale")
	ErrSaleClosed            = errors.New("ticket type is not on sale")
	ErrInvalidCredential     = errors.New("invalid ticket credential")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrDuplicateEntry        = errors.New("duplicate entry")
	ErrTicketIssuance        = errors.New("tickets could not be issued")
)

// ErrorKind groups errors into the categories callers act on
type ErrorKind string

const (
	KindUnauthenticated       ErrorKind = "UNAUTHENTICATED"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindValidation            ErrorKind = "VALIDATION_ERROR"
	KindInsufficientInventory ErrorKind = "INSUFFICIENT_INVENTORY"
	KindForbidden             ErrorKind = "FORBIDDEN"
	KindTicketIssuance        ErrorKind = "TICKET_ISSUANCE_FAILED"
	KindUnexpected            ErrorKind = "UNEXPECTED"
)

// KindOf classifies err. Anything not recognised is Unexpected.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInsufficientInventory):
		return KindInsufficientInventory
	case errors.Is(err, ErrTicketIssuance):
		return KindTicketIssuance
	case errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrTicketTypeNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrTicketNotFound),
		errors.Is(err, ErrOfficerNotFound),
		errors.Is(err, ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEventNotOnSale),
		errors.Is(err, ErrSaleClosed),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrInvalidStatus):
		return KindValidation
	default:
		return KindUnexpected
	}
}

// TicketIssuanceMessage is shown for KindTicketIssuance failures. The
// underlying cause stays in the server log.
const TicketIssuanceMessage = "tickets could not be issued; nothing was charged or reserved, please retry"

// ValidationError carries per-field messages for a rejected request
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
