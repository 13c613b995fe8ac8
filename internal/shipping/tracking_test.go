package shipping_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

func TestTracker_TrackingDetails_ByTrackingNumber(t *testing.T) {
	shipments := &mockShipmentStore{}
	orders := &mockOrderStore{}
	tracker := shipping.NewTracker(shipments, orders)

	record := &domain.ShipmentRecord{ID: "s1", OrderID: "ORD-100", TrackingNumber: "MK1", Status: shipper.StatusInTransit}
	t0 := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	events := []domain.TrackingEvent{
		{ID: "e1", ShipmentID: "s1", Status: shipper.StatusPreparing, OccurredAt: t0},
		{ID: "e2", ShipmentID: "s1", Status: shipper.StatusInTransit, OccurredAt: t0.Add(time.Hour)},
	}
	shipments.On("GetByTrackingNumber", mock.Anything, "MK1").Return(record, nil)
	shipments.On("ListEvents", mock.Anything, "s1").Return(events, nil)
	orders.On("GetOrder", mock.Anything, "ORD-100").Return(ord100(), nil)

	details, err := tracker.TrackingDetails(context.Background(), shipping.TrackingQuery{TrackingNumber: " MK1 "})

	require.NoError(t, err)
	assert.Equal(t, record, details.Shipment)
	assert.Equal(t, events, details.Events)
	require.NotNil(t, details.Order)
	assert.Equal(t, "ORD-100", details.Order.ID)
	assert.Equal(t, "Jane Doe", details.Order.CustomerName)
	shipments.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestTracker_TrackingDetails_ByOrder(t *testing.T) {
	shipments := &mockShipmentStore{}
	orders := &mockOrderStore{}
	tracker := shipping.NewTracker(shipments, orders)

	shipments.On("LatestForOrder", mock.Anything, "ORD-100").
		Return(&domain.ShipmentRecord{ID: "s2", OrderID: "ORD-100"}, nil)
	shipments.On("ListEvents", mock.Anything, "s2").Return(nil, nil)
	orders.On("GetOrder", mock.Anything, "ORD-100").Return(nil, shipping.NotFound("order", "ORD-100"))

	details, err := tracker.TrackingDetails(context.Background(), shipping.TrackingQuery{OrderID: "ORD-100"})

	require.NoError(t, err)
	assert.Equal(t, "s2", details.Shipment.ID)
	assert.NotNil(t, details.Events)
	assert.Empty(t, details.Events)
	assert.Nil(t, details.Order, "a vanished order is not fatal")
}

func TestTracker_TrackingDetails_Errors(t *testing.T) {
	shipments := &mockShipmentStore{}
	tracker := shipping.NewTracker(shipments, &mockOrderStore{})

	_, err := tracker.TrackingDetails(context.Background(), shipping.TrackingQuery{})
	var ve *shipping.ValidationError
	assert.True(t, errors.As(err, &ve))

	shipments.On("GetByTrackingNumber", mock.Anything, "NOPE").Return(nil, shipping.NotFound("shipment", "NOPE"))
	_, err = tracker.TrackingDetails(context.Background(), shipping.TrackingQuery{TrackingNumber: "NOPE"})
	assert.True(t, errors.Is(err, shipping.ErrNotFound))
	assert.EqualError(t, err, "shipment NOPE not found")
}

func TestTracker_ListOrderShipments(t *testing.T) {
	shipments := &mockShipmentStore{}
	orders := &mockOrderStore{}
	tracker := shipping.NewTracker(shipments, orders)

	orders.On("GetOrder", mock.Anything, "ORD-100").Return(ord100(), nil)
	shipments.On("ListByOrder", mock.Anything, "ORD-100").Return([]domain.ShipmentRecord{
		{ID: "new", OrderID: "ORD-100"},
		{ID: "old", OrderID: "ORD-100"},
	}, nil)
	shipments.On("ListEvents", mock.Anything, "new").Return([]domain.TrackingEvent{{ID: "e3"}}, nil)
	shipments.On("ListEvents", mock.Anything, "old").Return([]domain.TrackingEvent{{ID: "e1"}, {ID: "e2"}}, nil)

	list, err := tracker.ListOrderShipments(context.Background(), "ORD-100")

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Len(t, list[0].Events, 1)
	assert.Equal(t, "old", list[1].ID)
	assert.Len(t, list[1].Events, 2)
	shipments.AssertExpectations(t)
}

func TestTracker_ListOrderShipments_EventFailure(t *testing.T) {
	shipments := &mockShipmentStore{}
	orders := &mockOrderStore{}
	tracker := shipping.NewTracker(shipments, orders)

	orders.On("GetOrder", mock.Anything, "ORD-100").Return(ord100(), nil)
	shipments.On("ListByOrder", mock.Anything, "ORD-100").Return([]domain.ShipmentRecord{{ID: "s1"}}, nil)
	shipments.On("ListEvents", mock.Anything, "s1").Return(nil, errors.New("timeout"))

	_, err := tracker.ListOrderShipments(context.Background(), "ORD-100")

	assert.EqualError(t, err, "timeout")
}

func TestTracker_ListOrderShipments_UnknownOrder(t *testing.T) {
	orders := &mockOrderStore{}
	tracker := shipping.NewTracker(&mockShipmentStore{}, orders)
	orders.On("GetOrder", mock.Anything, "ORD-404").Return(nil, shipping.NotFound("order", "ORD-404"))

	_, err := tracker.ListOrderShipments(context.Background(), "ORD-404")

	assert.True(t, errors.Is(err, shipping.ErrNotFound))
}
