package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseRequest_Decode(t *testing.T) {
	body := `{
		"items": [
			{"eventId": 7, "ticketType": "VIP", "quantity": 2, "price": 49.99},
			{"eventId": 8, "ticketTypeId": 3}
		],
		"userInfo": {"name": "Ada", "email": "ada@example.com", "phone": "+254700000000"},
		"paymentMethod": "card",
		"total": "99.98"
	}`

	var req PurchaseRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.NoError(t, req.Validate())

	require.Len(t, req.Items, 2)
	assert.Equal(t, 2, req.Items[0].Qty())
	assert.Equal(t, 1, req.Items[1].Qty())
	require.NotNil(t, req.Items[1].TicketTypeID)
	assert.Equal(t, 3, *req.Items[1].TicketTypeID)

	price, err := req.Items[0].PriceOverride()
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 4999, *price)

	price, err = req.Items[1].PriceOverride()
	require.NoError(t, err)
	assert.Nil(t, price)

	require.NotNil(t, req.Total)
	assert.True(t, req.Total.Equal(decimal.RequireFromString("99.98")))
}

func TestPurchaseRequest_Validate(t *testing.T) {
	zero := 0
	tooMany := MaxLineItemQuantity + 1
	badPrice := decimal.RequireFromString("1.234")

	tests := []struct {
		name      string
		req       PurchaseRequest
		wantField string
	}{
		{
			name:      "empty cart",
			req:       PurchaseRequest{},
			wantField: "items",
		},
		{
			name:      "missing event id",
			req:       PurchaseRequest{Items: []LineItem{{}}},
			wantField: "items[0].eventid",
		},
		{
			name:      "zero quantity",
			req:       PurchaseRequest{Items: []LineItem{{EventID: 1, Quantity: &zero}}},
			wantField: "items[0].quantity",
		},
		{
			name:      "quantity above cap",
			req:       PurchaseRequest{Items: []LineItem{{EventID: 1, Quantity: &tooMany}}},
			wantField: "items[0].quantity",
		},
		{
			name:      "sub-cent price",
			req:       PurchaseRequest{Items: []LineItem{{EventID: 1, Price: &badPrice}}},
			wantField: "items[0].price",
		},
		{
			name: "bad email",
			req: PurchaseRequest{
				Items:    []LineItem{{EventID: 1}},
				UserInfo: BuyerInfo{Email: "not-an-email"},
			},
			wantField: "userinfo.email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "25", want: 2500},
		{in: "25.5", want: 2550},
		{in: "0.01", want: 1},
		{in: "10000", want: 1000000},
		{in: "10000.01", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "0.001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToCents(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
