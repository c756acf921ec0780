package models

import (
	"errors"
	"testing"
	"time"
)

func TestEventCreateRequest_Validate(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)
	end := start.Add(4 * time.Hour)

	tests := []struct {
		name    string
		req     EventCreateRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid event defaults to upcoming",
			req: EventCreateRequest{
				OrganizerID:  1,
				Title:        "Summer Festival",
				StartDate:    start,
				EndDate:      end,
				TotalTickets: 500,
			},
			wantErr: false,
		},
		{
			name:    "missing title",
			req:     EventCreateRequest{OrganizerID: 1, StartDate: start, EndDate: end},
			wantErr: true,
			errMsg:  "event title is required",
		},
		{
			name:    "missing organizer",
			req:     EventCreateRequest{Title: "Gig", StartDate: start, EndDate: end},
			wantErr: true,
			errMsg:  "organizer is required",
		},
		{
			name:    "end before start",
			req:     EventCreateRequest{OrganizerID: 1, Title: "Gig", StartDate: end, EndDate: start},
			wantErr: true,
			errMsg:  "event end date must be after start date",
		},
		{
			name: "unknown status",
			req: EventCreateRequest{
				OrganizerID: 1,
				Title:       "Gig",
				StartDate:   start,
				EndDate:     end,
				Status:      "draft",
			},
			wantErr: true,
			errMsg:  "invalid status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("EventCreateRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("EventCreateRequest.Validate() error = %v, want %v", err.Error(), tt.errMsg)
			}
			if !tt.wantErr && tt.req.Status != EventUpcoming {
				t.Errorf("EventCreateRequest.Validate() status = %v, want %v", tt.req.Status, EventUpcoming)
			}
		})
	}
}

func TestEvent_IsOnSale(t *testing.T) {
	tests := []struct {
		status EventStatus
		want   bool
	}{
		{EventUpcoming, true},
		{EventOngoing, true},
		{EventCompleted, false},
		{EventCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			event := &Event{Status: tt.status}
			if got := event.IsOnSale(); got != tt.want {
				t.Errorf("Event.IsOnSale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvent_RemainingCapacity(t *testing.T) {
	event := &Event{TotalTickets: 10, SoldTickets: 4}
	if got := event.RemainingCapacity(); got != 6 {
		t.Errorf("Event.RemainingCapacity() = %v, want 6", got)
	}

	event.SoldTickets = 12
	if got := event.RemainingCapacity(); got != 0 {
		t.Errorf("Event.RemainingCapacity() = %v, want 0", got)
	}
}

func TestValidateEventStatus(t *testing.T) {
	if err := ValidateEventStatus(EventOngoing); err != nil {
		t.Errorf("ValidateEventStatus(ONGOING) unexpected error: %v", err)
	}
	if err := ValidateEventStatus("any"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ValidateEventStatus(any) error = %v, want ErrInvalidStatus", err)
	}
}
