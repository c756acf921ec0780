package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"event-ticketing-core/internal/config"
	"event-ticketing-core/internal/middleware"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/services"
)

type MockPurchaser struct{ mock.Mock }

func (m *MockPurchaser) Purchase(ctx context.Context, buyer *models.User, req *models.PurchaseRequest) (*services.PurchaseResult, error) {
	args := m.Called(ctx, buyer, req)
	result, _ := args.Get(0).(*services.PurchaseResult)
	return result, args.Error(1)
}

type MockOrderReader struct{ mock.Mock }

func (m *MockOrderReader) ListOrders(ctx context.Context, user *models.User, query services.OrderListQuery) (*services.OrderList, error) {
	args := m.Called(ctx, user, query)
	list, _ := args.Get(0).(*services.OrderList)
	return list, args.Error(1)
}

func (m *MockOrderReader) GetOrder(ctx context.Context, user *models.User, orderID int) (*models.Order, error) {
	args := m.Called(ctx, user, orderID)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

type MockAvailabilityReader struct{ mock.Mock }

func (m *MockAvailabilityReader) Availability(ctx context.Context, eventID int) (*services.EventAvailability, error) {
	args := m.Called(ctx, eventID)
	availability, _ := args.Get(0).(*services.EventAvailability)
	return availability, args.Error(1)
}

type MockTicketReader struct{ mock.Mock }

func (m *MockTicketReader) QRCode(ctx context.Context, user *models.User, ticketID int) ([]byte, error) {
	args := m.Called(ctx, user, ticketID)
	img, _ := args.Get(0).([]byte)
	return img, args.Error(1)
}

type MockVerifier struct{ mock.Mock }

func (m *MockVerifier) Verify(ctx context.Context, req *services.VerifyRequest) (*services.VerifyResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*services.VerifyResult)
	return result, args.Error(1)
}

func (m *MockVerifier) ListLogs(ctx context.Context, viewer *models.User, eventID int, query services.LogQuery) (*services.LogList, error) {
	args := m.Called(ctx, viewer, eventID, query)
	list, _ := args.Get(0).(*services.LogList)
	return list, args.Error(1)
}

func (m *MockVerifier) History(ctx context.Context, viewer *models.User, ticketID int) (*services.TicketHistory, error) {
	args := m.Called(ctx, viewer, ticketID)
	history, _ := args.Get(0).(*services.TicketHistory)
	return history, args.Error(1)
}

func (m *MockVerifier) TicketState(ctx context.Context, viewer *models.User, ticketID int) (models.PresenceState, error) {
	args := m.Called(ctx, viewer, ticketID)
	return args.Get(0).(models.PresenceState), args.Error(1)
}

// testAPI is the full router over mocked services
type testAPI struct {
	handler   http.Handler
	identity  *middleware.Identity
	purchaser *MockPurchaser
	orders    *MockOrderReader
	inventory *MockAvailabilityReader
	tickets   *MockTicketReader
	verifier  *MockVerifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		identity:  middleware.NewIdentity(config.JWTConfig{Secret: "handlers-test-secret"}, nil, ""),
		purchaser: &MockPurchaser{},
		orders:    &MockOrderReader{},
		inventory: &MockAvailabilityReader{},
		tickets:   &MockTicketReader{},
		verifier:  &MockVerifier{},
	}

	api.handler = NewRouter(RouterConfig{
		Identity:      api.identity,
		Purchases:     NewPurchaseHandler(api.purchaser),
		Orders:        NewOrderHandler(api.orders),
		Events:        NewEventHandler(api.inventory),
		Tickets:       NewTicketHandler(api.tickets, api.verifier),
		Verifications: NewVerificationHandler(api.verifier),
		Health: NewHealthHandler(map[string]Pinger{
			"database": PingerFunc(func(ctx context.Context) error { return nil }),
		}),
	})
	return api
}

// do sends a request as user; nil means anonymous
func (api *testAPI) do(t *testing.T, user *models.User, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	if user != nil {
		token, err := api.identity.IssueToken(user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	return rr
}

// sameUser matches the caller decoded from the bearer token
func sameUser(want *models.User) interface{} {
	return mock.MatchedBy(func(got *models.User) bool {
		return got != nil && got.ID == want.ID
	})
}
