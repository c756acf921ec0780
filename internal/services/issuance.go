package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"event-ticketing-core/internal/credential"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/monitoring"
	"event-ticketing-core/internal/notify"
	"event-ticketing-core/internal/repositories"
)

// PurchaseResult reports every line item of a cart. Items are independent:
// one failing never undoes another.
type PurchaseResult struct {
	Succeeded []*PurchasedItem `json:"succeeded"`
	Failed    []*FailedItem    `json:"failed"`
}

// PurchasedItem is a committed line item
type PurchasedItem struct {
	Index    int              `json:"index"`
	Order    *models.Order    `json:"order"`
	Tickets  []*models.Ticket `json:"tickets"`
	Delivery DeliveryStatus   `json:"delivery"`
}

// DeliveryStatus tells the buyer whether tickets reached them yet. Tickets are
// valid regardless.
type DeliveryStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// FailedItem is a line item that issued nothing
type FailedItem struct {
	Index   int              `json:"index"`
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`

	err error
}

// Err returns the underlying error
func (f *FailedItem) Err() error {
	return f.err
}

// FirstError returns the error of the first failed item, if any
func (r *PurchaseResult) FirstError() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return r.Failed[0].err
}

// IssuanceService turns carts into orders and tickets
type IssuanceService struct {
	events   EventRepository
	tickets  TicketRepository
	issuance IssuanceRepository
	minter   CredentialMinter
	storage  StorageService
	notifier notify.Notifier
	queue    DeliveryQueue
	now      func() time.Time
}

// NewIssuanceService creates a new issuance service. storage, notifier and
// queue may be nil.
func NewIssuanceService(
	events EventRepository,
	tickets TicketRepository,
	issuance IssuanceRepository,
	minter CredentialMinter,
	storage StorageService,
	notifier notify.Notifier,
	queue DeliveryQueue,
) *IssuanceService {
	return &IssuanceService{
		events:   events,
		tickets:  tickets,
		issuance: issuance,
		minter:   minter,
		storage:  storage,
		notifier: notifier,
		queue:    queue,
		now:      time.Now,
	}
}

// Purchase validates the whole cart, then issues each line item in its own
// transaction. An invalid cart is rejected before anything is reserved.
func (s *IssuanceService) Purchase(ctx context.Context, buyer *models.User, req *models.PurchaseRequest) (*PurchaseResult, error) {
	if buyer == nil || buyer.ID <= 0 {
		return nil, models.ErrUnauthenticated
	}
	if req == nil {
		return nil, fmt.Errorf("%w: purchase request is required", models.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &PurchaseResult{
		Succeeded: []*PurchasedItem{},
		Failed:    []*FailedItem{},
	}

	charged := 0
	for i := range req.Items {
		item, err := s.purchaseLineItem(ctx, buyer, req, &req.Items[i])
		if err != nil {
			failed := newFailedItem(i, err)
			if failed.Kind == models.KindUnexpected || failed.Kind == models.KindTicketIssuance {
				slog.Error("line item issuance failed", "user_id", buyer.ID, "index", i, "event_id", req.Items[i].EventID, "error", err)
			}
			monitoring.TrackLineItem(string(failed.Kind))
			result.Failed = append(result.Failed, failed)
			continue
		}

		item.Index = i
		charged += item.Order.TotalAmount
		monitoring.TrackLineItem("issued")
		result.Succeeded = append(result.Succeeded, item)
	}

	s.checkClientTotal(buyer, req, result, charged)
	return result, nil
}

func (s *IssuanceService) purchaseLineItem(ctx context.Context, buyer *models.User, req *models.PurchaseRequest, li *models.LineItem) (*PurchasedItem, error) {
	quantity := li.Qty()

	event, err := s.events.GetByID(ctx, li.EventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOnSale() {
		return nil, fmt.Errorf("%w: event %d is %s", models.ErrEventNotOnSale, event.ID, strings.ToLower(string(event.Status)))
	}

	ticketType, err := s.resolveTicketType(ctx, event, li)
	if err != nil {
		return nil, err
	}
	if !ticketType.IsOnSale(s.now()) {
		return nil, fmt.Errorf("%w: %s", models.ErrSaleClosed, ticketType.Name)
	}

	// Cheap early rejection; the ledger re-checks atomically
	if available := ticketType.Available(); available < quantity {
		return nil, fmt.Errorf("%w: %d %s requested, %d available", models.ErrInsufficientInventory, quantity, ticketType.Name, available)
	}

	unitPrice := ticketType.Price
	override, err := li.PriceOverride()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if override != nil {
		unitPrice = *override
	}

	recipientName, recipientEmail := recipient(buyer, req.UserInfo)

	issued := make(map[int]*credential.Issued, quantity)
	mint := func(order *models.Order, sequence int, issuedAt time.Time) (string, error) {
		cred, err := s.minter.Issue(credential.Claims{
			EventID:  order.EventID,
			UserID:   order.UserID,
			OrderID:  order.ID,
			Sequence: sequence,
			IssuedAt: issuedAt,
		})
		if err != nil {
			return "", fmt.Errorf("%w: credential %d: %w", models.ErrTicketIssuance, sequence, err)
		}
		issued[sequence] = cred
		return cred.Payload, nil
	}

	start := time.Now()
	committed, err := s.issuance.IssueLineItem(ctx, repositories.LineItemIssue{
		UserID:           buyer.ID,
		EventID:          event.ID,
		TicketTypeID:     ticketType.ID,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: "PAY-" + uuid.NewString(),
		BillingName:      recipientName,
		BillingEmail:     recipientEmail,
	}, mint)
	if err != nil {
		return nil, err
	}
	monitoring.TrackIssuance(len(committed.Tickets), time.Since(start))

	slog.Info("issued tickets",
		"order", committed.Order.OrderNumber,
		"event_id", event.ID,
		"ticket_type_id", ticketType.ID,
		"quantity", quantity,
		"remaining", committed.Reservation.Remaining(),
	)

	// The request may be gone by now; the tickets are not
	postCommit := context.WithoutCancel(ctx)
	delivery := s.deliver(postCommit, event, committed, issued, recipientName, recipientEmail)

	return &PurchasedItem{
		Order:    committed.Order,
		Tickets:  committed.Tickets,
		Delivery: delivery,
	}, nil
}

// resolveTicketType picks the ticket type by id, by name, or the event's
// first type in creation order
func (s *IssuanceService) resolveTicketType(ctx context.Context, event *models.Event, li *models.LineItem) (*models.TicketType, error) {
	if li.TicketTypeID != nil {
		ticketType, err := s.tickets.GetTicketTypeByID(ctx, *li.TicketTypeID)
		if err != nil {
			return nil, err
		}
		if ticketType.EventID != event.ID {
			return nil, fmt.Errorf("ticket type %d does not belong to event %d: %w", ticketType.ID, event.ID, models.ErrTicketTypeNotFound)
		}
		return ticketType, nil
	}

	types, err := s.tickets.GetTicketTypesByEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("event %d has no ticket types: %w", event.ID, models.ErrTicketTypeNotFound)
	}

	if name := strings.TrimSpace(li.TicketTypeName); name != "" {
		for _, ticketType := range types {
			if ticketType.MatchesName(name) {
				return ticketType, nil
			}
		}
		return nil, fmt.Errorf("no ticket type %q for event %d: %w", name, event.ID, models.ErrTicketTypeNotFound)
	}

	return types[0], nil
}

// deliver stores the QR images and hands the tickets to the notifier. A
// failure parks the delivery for retry and never touches the tickets.
func (s *IssuanceService) deliver(ctx context.Context, event *models.Event, committed *repositories.IssuedLineItem, issued map[int]*credential.Issued, name, email string) DeliveryStatus {
	d := &notify.Delivery{
		OrderID:        committed.Order.ID,
		OrderNumber:    committed.Order.OrderNumber,
		EventID:        event.ID,
		EventTitle:     event.Title,
		UserID:         committed.Order.UserID,
		RecipientName:  name,
		RecipientEmail: email,
		Attempts:       1,
	}

	for _, ticket := range committed.Tickets {
		attachment := notify.TicketAttachment{
			TicketID: ticket.ID,
			Sequence: ticket.SequenceNumber,
			TypeName: ticket.TypeName,
			Payload:  ticket.QRCode,
		}
		if cred, ok := issued[ticket.SequenceNumber]; ok {
			attachment.PNG = cred.PNG
			attachment.ImageURL = s.storeImage(ctx, ticket, cred.PNG)
		}
		d.Tickets = append(d.Tickets, attachment)
	}

	err := errors.New("no notifier configured")
	if s.notifier != nil {
		err = s.notifier.Deliver(ctx, d)
	}
	if err == nil {
		monitoring.TrackDelivery(notify.StatusSent)
		return DeliveryStatus{Status: notify.StatusSent}
	}

	slog.Warn("ticket delivery failed", "order", d.OrderNumber, "error", err)

	if s.queue != nil {
		qerr := s.queue.Enqueue(ctx, d)
		if qerr == nil {
			monitoring.TrackDelivery(notify.StatusQueued)
			return DeliveryStatus{Status: notify.StatusQueued, Message: "tickets are valid; delivery will be retried"}
		}
		slog.Error("failed to queue ticket delivery", "order", d.OrderNumber, "error", qerr)
	}

	monitoring.TrackDelivery(notify.StatusFailed)
	return DeliveryStatus{Status: notify.StatusFailed, Message: "tickets are valid but could not be delivered"}
}

func (s *IssuanceService) storeImage(ctx context.Context, ticket *models.Ticket, img []byte) string {
	if s.storage == nil || len(img) == 0 {
		return ""
	}

	key := CredentialImageKey(ticket.EventID, ticket.OrderID, ticket.SequenceNumber)
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(img), "image/png", int64(len(img)))
	if err != nil {
		slog.Warn("failed to store credential image", "key", key, "error", err)
		return ""
	}
	return url
}

// checkClientTotal logs carts whose displayed total differs from what was
// charged. The server-side price always wins.
func (s *IssuanceService) checkClientTotal(buyer *models.User, req *models.PurchaseRequest, result *PurchaseResult, charged int) {
	if req.Total == nil || len(result.Failed) > 0 {
		return
	}
	claimed, err := models.ToCents(*req.Total)
	if err != nil || claimed == charged {
		return
	}
	slog.Warn("client total differs from charged total", "user_id", buyer.ID, "client_total", claimed, "charged_total", charged)
}

func recipient(buyer *models.User, info models.BuyerInfo) (string, string) {
	name, email := strings.TrimSpace(info.Name), strings.TrimSpace(info.Email)
	if name == "" {
		name = buyer.Name
	}
	if email == "" {
		email = buyer.Email
	}
	return name, email
}

func newFailedItem(index int, err error) *FailedItem {
	kind := models.KindOf(err)
	message := err.Error()
	switch kind {
	case models.KindUnexpected:
		message = "internal server error"
	case models.KindTicketIssuance:
		message = models.TicketIssuanceMessage
	}
	return &FailedItem{
		Index:   index,
		Kind:    kind,
		Message: message,
		err:     err,
	}
}
