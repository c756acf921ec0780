package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing-core/internal/models"
)

func TestOrderRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()
	repo := newIssuance(db)
	orders := NewOrderRepository(db)

	for i := 0; i < 5; i++ {
		_, err := repo.IssueLineItem(ctx, LineItemIssue{
			UserID:       fx.buyer.ID,
			EventID:      fx.event.ID,
			TicketTypeID: fx.general.ID,
			Quantity:     1,
			UnitPrice:    fx.general.Price,
		}, fakeCredential)
		require.NoError(t, err)
	}

	filters := OrderSearchFilters{UserID: fx.buyer.ID, Status: models.OrderCompleted, Limit: 2, Offset: 2}

	first, total, err := orders.Search(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, first, 2)

	// Unchanged data and filters give the same page
	second, total2, err := orders.Search(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, total, total2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	empty, total, err := orders.Search(ctx, OrderSearchFilters{UserID: fx.buyer.ID, Status: models.OrderRefunded})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, empty)

	_, _, err = orders.Search(ctx, OrderSearchFilters{UserID: fx.buyer.ID, Status: "any"})
	assert.True(t, errors.Is(err, models.ErrInvalidStatus))
}

func TestOrderRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()

	issued, err := newIssuance(db).IssueLineItem(ctx, LineItemIssue{
		UserID:           fx.buyer.ID,
		EventID:          fx.event.ID,
		TicketTypeID:     fx.general.ID,
		Quantity:         1,
		UnitPrice:        1999,
		PaymentReference: "PAY-test",
		BillingEmail:     "buyer@example.com",
	}, fakeCredential)
	require.NoError(t, err)

	order, err := NewOrderRepository(db).GetByID(ctx, issued.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1999, order.TotalAmount)
	assert.Equal(t, "PAY-test", order.PaymentReference)
	assert.NoError(t, models.ValidateOrderNumber(order.OrderNumber))

	_, err = NewOrderRepository(db).GetByID(ctx, 424242)
	assert.True(t, errors.Is(err, models.ErrOrderNotFound))
}

// scriptedNumbers hands out order numbers in order, repeating the last one
func scriptedNumbers(numbers ...string) func() string {
	i := 0
	return func() string {
		n := numbers[i]
		if i < len(numbers)-1 {
			i++
		}
		return n
	}
}

func TestOrderRepository_CreateRetriesCollidingNumber(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	ctx := context.Background()
	orders := NewOrderRepository(db)

	req := func() *models.OrderCreateRequest {
		return &models.OrderCreateRequest{
			UserID:      fx.buyer.ID,
			EventID:     fx.event.ID,
			TotalAmount: 2500,
			Status:      models.OrderCompleted,
		}
	}

	orders.newOrderNumber = scriptedNumbers("ORD-20260301-000001")
	first, err := orders.Create(ctx, db, req())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260301-000001", first.OrderNumber)

	// An order without tickets lists an empty set, never nil
	none, err := NewTicketRepository(db).GetTicketsByOrder(ctx, first.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	// The collision inside a transaction must not poison it
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	orders.newOrderNumber = scriptedNumbers("ORD-20260301-000001", "ORD-20260301-000002")
	second, err := orders.Create(ctx, tx, req())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260301-000002", second.OrderNumber)

	var count int
	require.NoError(t, tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&count))
	assert.Equal(t, 2, count)
	require.NoError(t, tx.Commit())

	orders.newOrderNumber = scriptedNumbers("ORD-20260301-000002")
	_, err = orders.Create(ctx, db, req())
	assert.True(t, errors.Is(err, models.ErrTicketIssuance))
	assert.Equal(t, 2, countRows(t, db, "orders"))
}
