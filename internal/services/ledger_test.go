package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-ticketing-core/internal/models"
)

func TestInventoryService_Availability(t *testing.T) {
	fx := newIssuanceFixture(t)
	service := NewInventoryService(fakeEvents{fx.store}, fx.store)
	ctx := context.Background()

	_, err := fx.service.Purchase(ctx, fx.buyer, &models.PurchaseRequest{
		Items: []models.LineItem{lineItem(fx.event.ID, intPtr(fx.vip.ID), 2)},
	})
	require.NoError(t, err)

	availability, err := service.Availability(ctx, fx.event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Lights", availability.Title)
	assert.True(t, availability.OnSale)
	require.Len(t, availability.TicketTypes, 2)

	vip := availability.TicketTypes[0]
	assert.Equal(t, "VIP", vip.Name)
	assert.Equal(t, 2, vip.Sold)
	assert.Equal(t, 0, vip.Available)

	general := availability.TicketTypes[1]
	assert.Equal(t, 100, general.Available)
}

func TestInventoryService_AvailabilityEdgeCases(t *testing.T) {
	fx := newIssuanceFixture(t)
	service := NewInventoryService(fakeEvents{fx.store}, fx.store)
	ctx := context.Background()

	_, err := service.Availability(ctx, 777)
	assert.True(t, errors.Is(err, models.ErrEventNotFound))

	empty := fx.store.addEvent(900, "No Tickets Yet", models.EventCompleted)
	availability, err := service.Availability(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, availability.OnSale)
	assert.NotNil(t, availability.TicketTypes)
	assert.Empty(t, availability.TicketTypes)
}
