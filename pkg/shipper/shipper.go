// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// Adapter defines the capabilities every carrier integration must implement.
// Adapters are built per call from a ProviderConfig and hold no state between
// requests.
type Adapter interface {
	// Carrier returns the carrier this adapter talks to.
	Carrier() Carrier

	// GetRates returns quotes for the order. It never mutates state and an empty
	// slice is a valid answer.
	GetRates(ctx context.Context, order *ShippingOrder) ([]ShippingRate, error)

	// CreateShipment books the shipment with the carrier.
	CreateShipment(ctx context.Context, order *ShippingOrder) (*ShipmentResult, error)

	// TrackShipment performs a read-only carrier-side lookup.
	TrackShipment(ctx context.Context, trackingNumber string) (*TrackingSnapshot, error)

	// Validate checks credentials and configuration. It returns an error only for
	// transport failures.
	Validate(ctx context.Context) (bool, error)
}
