package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"event-ticketing-core/internal/credential"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/notify"
	"event-ticketing-core/internal/repositories"
)

// memoryStore is an in-memory stand-in for the Postgres repositories. It
// applies the same all-or-nothing rules per line item and per gate action.
type memoryStore struct {
	mu          sync.Mutex
	nextID      int
	clock       time.Time
	events      map[int]*models.Event
	ticketTypes []*models.TicketType
	orders      []*models.Order
	tickets     []*models.Ticket
	officers    []*models.SecurityOfficer
	logs        []*models.VerificationLog
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID: 1,
		clock:  time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		events: make(map[int]*models.Event),
	}
}

func (m *memoryStore) id() int {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryStore) addEvent(organizerID int, title string, status models.EventStatus) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	event := &models.Event{ID: m.id(), OrganizerID: organizerID, Title: title, Status: status, TotalTickets: 1000}
	m.events[event.ID] = event
	return event
}

func (m *memoryStore) addTicketType(eventID int, name string, price, quantity int) *models.TicketType {
	m.mu.Lock()
	defer m.mu.Unlock()
	tt := &models.TicketType{ID: m.id(), EventID: eventID, Name: name, Price: price, Quantity: quantity, CreatedAt: m.tick()}
	m.ticketTypes = append(m.ticketTypes, tt)
	return tt
}

func (m *memoryStore) addOfficer(userID, eventID int) *models.SecurityOfficer {
	m.mu.Lock()
	defer m.mu.Unlock()
	officer := &models.SecurityOfficer{ID: m.id(), UserID: userID, EventID: eventID, Name: "Gate"}
	m.officers = append(m.officers, officer)
	return officer
}

func (m *memoryStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memoryStore) logsFor(ticketID int) []*models.VerificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.VerificationLog
	for _, entry := range m.logs {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out
}

func (m *memoryStore) findTicketType(id int) *models.TicketType {
	for _, tt := range m.ticketTypes {
		if tt.ID == id {
			return tt
		}
	}
	return nil
}

func (m *memoryStore) findTicket(id int) *models.Ticket {
	for _, ticket := range m.tickets {
		if ticket.ID == id {
			return ticket
		}
	}
	return nil
}

// TicketRepository

func (m *memoryStore) GetTicketTypeByID(ctx context.Context, id int) (*models.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tt := m.findTicketType(id); tt != nil {
		clone := *tt
		return &clone, nil
	}
	return nil, models.ErrTicketTypeNotFound
}

func (m *memoryStore) GetTicketTypesByEvent(ctx context.Context, eventID int) ([]*models.TicketType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TicketType
	for _, tt := range m.ticketTypes {
		if tt.EventID == eventID {
			clone := *tt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memoryStore) GetTicketByID(ctx context.Context, id int) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket := m.findTicket(id); ticket != nil {
		clone := *ticket
		return &clone, nil
	}
	return nil, models.ErrTicketNotFound
}

func (m *memoryStore) GetTicketByOrderAndSequence(ctx context.Context, orderID, sequence int) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ticket := range m.tickets {
		if ticket.OrderID == orderID && ticket.SequenceNumber == sequence {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, models.ErrTicketNotFound
}

func (m *memoryStore) GetTicketsByOrder(ctx context.Context, orderID int) ([]*models.Ticket, error) {
	byOrder, err := m.GetTicketsByOrders(ctx, []int{orderID})
	if err != nil {
		return nil, err
	}
	return byOrder[orderID], nil
}

func (m *memoryStore) GetTicketsByOrders(ctx context.Context, orderIDs []int) (map[int][]*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wanted := make(map[int]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	out := make(map[int][]*models.Ticket)
	for _, ticket := range m.tickets {
		if wanted[ticket.OrderID] {
			clone := *ticket
			out[ticket.OrderID] = append(out[ticket.OrderID], &clone)
		}
	}
	return out, nil
}

// IssuanceRepository

func (m *memoryStore) IssueLineItem(ctx context.Context, item repositories.LineItemIssue, mint repositories.CredentialFunc) (*repositories.IssuedLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tt := m.findTicketType(item.TicketTypeID)
	if tt == nil {
		return nil, models.ErrTicketTypeNotFound
	}
	if tt.Sold+item.Quantity > tt.Quantity {
		return nil, models.ErrInsufficientInventory
	}
	if tt.EventID != item.EventID {
		return nil, models.ErrTicketTypeNotFound
	}

	order := &models.Order{
		ID:               m.id(),
		OrderNumber:      models.GenerateOrderNumber(),
		UserID:           item.UserID,
		EventID:          item.EventID,
		TotalAmount:      item.UnitPrice * item.Quantity,
		Status:           models.OrderCompleted,
		PaymentMethod:    item.PaymentMethod,
		PaymentReference: item.PaymentReference,
		BillingName:      item.BillingName,
		BillingEmail:     item.BillingEmail,
		CreatedAt:        m.tick(),
	}

	ticketTypeID := tt.ID
	tickets := make([]*models.Ticket, 0, item.Quantity)
	for seq := 1; seq <= item.Quantity; seq++ {
		issuedAt := m.tick()
		payload, err := mint(order, seq, issuedAt)
		if err != nil {
			// Nothing was written yet
			return nil, fmt.Errorf("failed to mint credential %d: %w", seq, err)
		}
		tickets = append(tickets, &models.Ticket{
			OrderID:        order.ID,
			EventID:        item.EventID,
			UserID:         item.UserID,
			TicketTypeID:   &ticketTypeID,
			SequenceNumber: seq,
			TypeName:       tt.Name,
			Price:          item.UnitPrice,
			QRCode:         payload,
			CreatedAt:      issuedAt,
		})
	}

	for _, ticket := range tickets {
		ticket.ID = m.id()
		clone := *ticket
		m.tickets = append(m.tickets, &clone)
	}
	tt.Sold += item.Quantity
	m.events[item.EventID].SoldTickets += item.Quantity
	stored := *order
	m.orders = append(m.orders, &stored)

	order.Tickets = tickets
	return &repositories.IssuedLineItem{
		Order:   order,
		Tickets: tickets,
		Reservation: &repositories.Reservation{
			TicketTypeID: tt.ID,
			EventID:      tt.EventID,
			TypeName:     tt.Name,
			UnitPrice:    tt.Price,
			Quantity:     item.Quantity,
			Capacity:     tt.Quantity,
			Sold:         tt.Sold,
		},
	}, nil
}

// LedgerRepository

func (m *memoryStore) Availability(ctx context.Context, eventID int) ([]*repositories.TicketTypeAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repositories.TicketTypeAvailability
	for _, tt := range m.ticketTypes {
		if tt.EventID == eventID {
			out = append(out, &repositories.TicketTypeAvailability{
				TicketTypeID: tt.ID, Name: tt.Name, Price: tt.Price,
				Quantity: tt.Quantity, Sold: tt.Sold, Available: tt.Available(),
			})
		}
	}
	return out, nil
}

// OfficerRepository

func (m *memoryStore) GetByUserAndEvent(ctx context.Context, userID, eventID int) (*models.SecurityOfficer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, officer := range m.officers {
		if officer.UserID == userID && officer.EventID == eventID {
			clone := *officer
			return &clone, nil
		}
	}
	return nil, models.ErrOfficerNotFound
}

// VerificationRepository

func (m *memoryStore) RecordAction(ctx context.Context, p repositories.RecordActionParams) (*repositories.RecordedAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticket := m.findTicket(p.TicketID)
	if ticket == nil {
		return nil, models.ErrTicketNotFound
	}
	if !models.IsValidLogAction(p.Action) {
		return nil, models.ErrValidation
	}

	previous := m.presenceLocked(ticket.ID)
	now := m.tick()
	if p.Action == models.ActionMarkedUsed && !ticket.IsUsed {
		ticket.IsUsed = true
		ticket.UsedAt = &now
	}

	entry := &models.VerificationLog{
		ID: m.id(), TicketID: ticket.ID, OfficerID: p.OfficerID, EventID: p.EventID,
		Action: p.Action, Details: p.Details, CreatedAt: now,
	}
	m.logs = append(m.logs, entry)

	clone := *ticket
	logClone := *entry
	return &repositories.RecordedAction{
		Ticket:        &clone,
		Log:           &logClone,
		PreviousState: previous,
		CurrentState:  models.PresenceAfter(previous, p.Action),
	}, nil
}

func (m *memoryStore) PresenceState(ctx context.Context, ticketID int) (models.PresenceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presenceLocked(ticketID), nil
}

func (m *memoryStore) presenceLocked(ticketID int) models.PresenceState {
	var entries []*models.VerificationLog
	for _, entry := range m.logs {
		if entry.TicketID == ticketID {
			entries = append(entries, entry)
		}
	}
	return models.ReplayPresence(entries)
}

// VerificationLogRepository

func (m *memoryStore) ListByTicket(ctx context.Context, ticketID int) ([]*models.VerificationLog, error) {
	logs, _, err := m.List(ctx, repositories.VerificationLogFilters{TicketID: ticketID, Limit: -1})
	return logs, err
}

func (m *memoryStore) List(ctx context.Context, filters repositories.VerificationLogFilters) ([]*models.VerificationLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*models.VerificationLog
	for _, entry := range m.logs {
		switch {
		case filters.EventID > 0 && entry.EventID != filters.EventID,
			filters.OfficerID > 0 && entry.OfficerID != filters.OfficerID,
			filters.TicketID > 0 && entry.TicketID != filters.TicketID,
			filters.Action != "" && entry.Action != filters.Action,
			filters.From != nil && entry.CreatedAt.Before(*filters.From),
			filters.To != nil && entry.CreatedAt.After(*filters.To):
			continue
		}
		clone := *entry
		matched = append(matched, &clone)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if filters.Limit < 0 {
		return matched, total, nil
	}
	if filters.Offset >= total {
		return []*models.VerificationLog{}, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[filters.Offset:end], total, nil
}

// fakeEvents and fakeOrders split GetByID by return type

type fakeEvents struct{ store *memoryStore }

func (f fakeEvents) GetByID(ctx context.Context, id int) (*models.Event, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if event, ok := f.store.events[id]; ok {
		clone := *event
		return &clone, nil
	}
	return nil, models.ErrEventNotFound
}

type fakeOrders struct{ store *memoryStore }

func (f fakeOrders) GetByID(ctx context.Context, id int) (*models.Order, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, order := range f.store.orders {
		if order.ID == id {
			clone := *order
			return &clone, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (f fakeOrders) Search(ctx context.Context, filters repositories.OrderSearchFilters) ([]*models.Order, int, error) {
	if filters.Status != "" {
		if err := models.ValidateOrderStatus(filters.Status); err != nil {
			return nil, 0, err
		}
	}

	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var matched []*models.Order
	for _, order := range f.store.orders {
		if filters.UserID > 0 && order.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && order.Status != filters.Status {
			continue
		}
		clone := *order
		matched = append(matched, &clone)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if filters.Offset >= total {
		return []*models.Order{}, total, nil
	}
	end := filters.Offset + filters.Limit
	if end > total {
		end = total
	}
	return matched[filters.Offset:end], total, nil
}

// failingMinter fails to issue after a number of successful calls
type failingMinter struct {
	*credential.Minter
	mu        sync.Mutex
	remaining int
}

func (f *failingMinter) Issue(claims credential.Claims) (*credential.Issued, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remaining <= 0 {
		return nil, errors.New("qr encoder exploded")
	}
	f.remaining--
	return f.Minter.Issue(claims)
}

// MockStorageService is a testify mock for StorageService
type MockStorageService struct {
	mock.Mock
}

func (m *MockStorageService) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	args := m.Called(ctx, key, reader, contentType, size)
	return args.String(0), args.Error(1)
}

func (m *MockStorageService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorageService) GetURL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockStorageService) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// recordingNotifier captures deliveries and optionally fails them
type recordingNotifier struct {
	mu         sync.Mutex
	deliveries []*notify.Delivery
	err        error
}

func (n *recordingNotifier) Deliver(ctx context.Context, d *notify.Delivery) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, d)
	return n.err
}

// recordingQueue captures parked deliveries
type recordingQueue struct {
	mu     sync.Mutex
	parked []*notify.Delivery
	err    error
}

func (q *recordingQueue) Enqueue(ctx context.Context, d *notify.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.parked = append(q.parked, d)
	return nil
}
