package shipping

import (
	"context"
	"time"

	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/pkg/shipper"
)

// ShipmentStore persists shipment records and their tracking history.
// Lookups return an error matching ErrNotFound when nothing matches.
type ShipmentStore interface {
	CreateShipment(ctx context.Context, record *domain.ShipmentRecord) error
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error)
	// ListByOrder returns the shipments of an order, newest first.
	ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error)
	LatestForOrder(ctx context.Context, orderID string) (*domain.ShipmentRecord, error)
	UpdateStatus(ctx context.Context, shipmentID string, status shipper.ShipmentStatus, estimated, actual *time.Time) error
	AppendEvent(ctx context.Context, event *domain.TrackingEvent) error
	// ListEvents returns the history of a shipment, oldest first.
	ListEvents(ctx context.Context, shipmentID string) ([]domain.TrackingEvent, error)
}

// OrderStore is the slice of the order store the shipping layer uses.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	MarkShipmentPreparing(ctx context.Context, orderID, trackingNumber string, cost float64) error
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// ConfigStore persists provider configurations.
type ConfigStore interface {
	shipper.ConfigSource
	GetConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error)
	ListConfigs(ctx context.Context) ([]shipper.ProviderConfig, error)
	UpsertConfig(ctx context.Context, cfg *shipper.ProviderConfig) error
	DeleteConfig(ctx context.Context, provider shipper.Carrier) error
}

// Resolver hands out adapters for provider keys. *shipper.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, key string) (shipper.Adapter, *shipper.ProviderConfig, error)
	Build(cfg shipper.ProviderConfig) (shipper.Adapter, error)
}

var _ Resolver = (*shipper.Registry)(nil)
