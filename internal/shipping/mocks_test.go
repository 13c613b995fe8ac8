package shipping_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/pkg/shipper"
)

type mockShipmentStore struct {
	mock.Mock
}

func (m *mockShipmentStore) CreateShipment(ctx context.Context, record *domain.ShipmentRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockShipmentStore) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error) {
	args := m.Called(ctx, trackingNumber)
	record, _ := args.Get(0).(*domain.ShipmentRecord)
	return record, args.Error(1)
}

func (m *mockShipmentStore) ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error) {
	args := m.Called(ctx, orderID)
	records, _ := args.Get(0).([]domain.ShipmentRecord)
	return records, args.Error(1)
}

func (m *mockShipmentStore) LatestForOrder(ctx context.Context, orderID string) (*domain.ShipmentRecord, error) {
	args := m.Called(ctx, orderID)
	record, _ := args.Get(0).(*domain.ShipmentRecord)
	return record, args.Error(1)
}

func (m *mockShipmentStore) UpdateStatus(ctx context.Context, shipmentID string, status shipper.ShipmentStatus, estimated, actual *time.Time) error {
	return m.Called(ctx, shipmentID, status, estimated, actual).Error(0)
}

func (m *mockShipmentStore) AppendEvent(ctx context.Context, event *domain.TrackingEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockShipmentStore) ListEvents(ctx context.Context, shipmentID string) ([]domain.TrackingEvent, error) {
	args := m.Called(ctx, shipmentID)
	events, _ := args.Get(0).([]domain.TrackingEvent)
	return events, args.Error(1)
}

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrderStore) MarkShipmentPreparing(ctx context.Context, orderID, trackingNumber string, cost float64) error {
	return m.Called(ctx, orderID, trackingNumber, cost).Error(0)
}

func (m *mockOrderStore) UpdateStatus(ctx context.Context, orderID, status string) error {
	return m.Called(ctx, orderID, status).Error(0)
}

type mockConfigStore struct {
	mock.Mock
}

func (m *mockConfigStore) GetEnabledConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error) {
	args := m.Called(ctx, provider)
	cfg, _ := args.Get(0).(*shipper.ProviderConfig)
	return cfg, args.Error(1)
}

func (m *mockConfigStore) GetConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error) {
	args := m.Called(ctx, provider)
	cfg, _ := args.Get(0).(*shipper.ProviderConfig)
	return cfg, args.Error(1)
}

func (m *mockConfigStore) ListConfigs(ctx context.Context) ([]shipper.ProviderConfig, error) {
	args := m.Called(ctx)
	configs, _ := args.Get(0).([]shipper.ProviderConfig)
	return configs, args.Error(1)
}

func (m *mockConfigStore) UpsertConfig(ctx context.Context, cfg *shipper.ProviderConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *mockConfigStore) DeleteConfig(ctx context.Context, provider shipper.Carrier) error {
	return m.Called(ctx, provider).Error(0)
}
