package models

import (
	"errors"
	"testing"
)

func TestOrderCreateRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     OrderCreateRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid order",
			req: OrderCreateRequest{
				UserID:       1,
				EventID:      2,
				TotalAmount:  2500,
				Status:       OrderCompleted,
				BillingEmail: "test@example.com",
				BillingName:  "John Doe",
			},
			wantErr: false,
		},
		{
			name: "missing user",
			req: OrderCreateRequest{
				EventID:     2,
				TotalAmount: 2500,
				Status:      OrderCompleted,
			},
			wantErr: true,
			errMsg:  "order user is required",
		},
		{
			name: "missing event",
			req: OrderCreateRequest{
				UserID:      1,
				TotalAmount: 2500,
				Status:      OrderCompleted,
			},
			wantErr: true,
			errMsg:  "order event is required",
		},
		{
			name: "invalid total amount - negative",
			req: OrderCreateRequest{
				UserID:      1,
				EventID:     2,
				TotalAmount: -100,
				Status:      OrderCompleted,
			},
			wantErr: true,
			errMsg:  "total amount cannot be negative",
		},
		{
			name: "invalid total amount - too large",
			req: OrderCreateRequest{
				UserID:      1,
				EventID:     2,
				TotalAmount: 10000001,
				Status:      OrderCompleted,
			},
			wantErr: true,
			errMsg:  "total amount cannot exceed 100,000.00",
		},
		{
			name: "invalid status",
			req: OrderCreateRequest{
				UserID:      1,
				EventID:     2,
				TotalAmount: 2500,
				Status:      "paid",
			},
			wantErr: true,
			errMsg:  `invalid status: order status "paid"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("OrderCreateRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("OrderCreateRequest.Validate() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    OrderStatus
		wantErr bool
	}{
		{raw: "COMPLETED", want: OrderCompleted},
		{raw: "pending", want: OrderPending},
		{raw: " refunded ", want: OrderRefunded},
		{raw: "Cancelled", want: OrderCancelled},
		{raw: "any", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOrderStatus(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Errorf("ParseOrderStatus(%q) error = %v, want ErrInvalidStatus", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOrderStatus(%q) unexpected error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseOrderStatus(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	orderNumber := GenerateOrderNumber()

	// Check format: ORD-YYYYMMDD-XXXXXX
	if err := ValidateOrderNumber(orderNumber); err != nil {
		t.Errorf("GenerateOrderNumber() = %v, does not match expected format", orderNumber)
	}

	if err := ValidateOrderNumber("INVALID-123"); err == nil {
		t.Errorf("ValidateOrderNumber() accepted a malformed order number")
	}
}
