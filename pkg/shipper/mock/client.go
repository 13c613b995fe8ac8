// Package mock provides a deterministic carrier adapter for sandbox configurations and tests.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/pkg/shipper"
)

// Client is a mock carrier adapter.
type Client struct {
	carrier shipper.Carrier

	// FailWith, when set, is returned by every carrier call.
	FailWith error
	// Rates overrides the default quotes; an empty non-nil slice means no service.
	Rates []shipper.ShippingRate
	// Valid is returned by Validate.
	Valid bool

	rateCalls     atomic.Int32
	createCalls   atomic.Int32
	trackingCalls atomic.Int32
}

// New creates a new mock adapter answering for carrier.
func New(carrier shipper.Carrier) *Client {
	return &Client{carrier: carrier, Valid: true}
}

// Carrier returns the carrier this adapter impersonates.
func (c *Client) Carrier() shipper.Carrier {
	return c.carrier
}

// GetRates returns two fixed quotes.
func (c *Client) GetRates(ctx context.Context, order *shipper.ShippingOrder) ([]shipper.ShippingRate, error) {
	c.rateCalls.Add(1)
	if c.FailWith != nil {
		return nil, c.FailWith
	}
	if c.Rates != nil {
		return c.Rates, nil
	}

	currency := order.Currency
	if currency == "" {
		currency = "EUR"
	}
	now := time.Now().UTC()
	standard := now.AddDate(0, 0, 5)
	express := now.AddDate(0, 0, 2)

	return []shipper.ShippingRate{
		{
			Carrier:           c.carrier,
			ServiceCode:       "STANDARD",
			ServiceName:       fmt.Sprintf("%s Standard", c.carrier),
			Price:             roundCents(4.90 + 1.10*order.TotalWeight()),
			Currency:          currency,
			TransitDays:       5,
			EstimatedDelivery: &standard,
		},
		{
			Carrier:           c.carrier,
			ServiceCode:       "EXPRESS",
			ServiceName:       fmt.Sprintf("%s Express", c.carrier),
			Price:             roundCents(12.50 + 2.20*order.TotalWeight()),
			Currency:          currency,
			TransitDays:       2,
			EstimatedDelivery: &express,
		},
	}, nil
}

// CreateShipment books a fake shipment.
func (c *Client) CreateShipment(ctx context.Context, order *shipper.ShippingOrder) (*shipper.ShipmentResult, error) {
	c.createCalls.Add(1)
	if c.FailWith != nil {
		return nil, c.FailWith
	}

	service := order.Service
	if service == "" {
		service = "STANDARD"
	}
	currency := order.Currency
	if currency == "" {
		currency = "EUR"
	}
	trackingNumber := "MK" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
	estimatedDelivery := time.Now().UTC().AddDate(0, 0, 5)

	return &shipper.ShipmentResult{
		TrackingNumber:    trackingNumber,
		Service:           service,
		Price:             roundCents(4.90 + 1.10*order.TotalWeight()),
		Currency:          currency,
		LabelURL:          fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.carrier, trackingNumber),
		TrackingURL:       fmt.Sprintf("https://track.%s.mock/%s", c.carrier, trackingNumber),
		EstimatedDelivery: &estimatedDelivery,
	}, nil
}

// TrackShipment returns an in-transit snapshot.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (*shipper.TrackingSnapshot, error) {
	c.trackingCalls.Add(1)
	if c.FailWith != nil {
		return nil, c.FailWith
	}

	now := time.Now().UTC()
	eta := now.AddDate(0, 0, 2)
	return &shipper.TrackingSnapshot{
		TrackingNumber:    trackingNumber,
		Status:            shipper.StatusInTransit,
		EstimatedDelivery: &eta,
		Events: []shipper.TrackingEvent{
			{Timestamp: now.Add(-24 * time.Hour), Type: "accepted", Description: "Shipment accepted", Status: shipper.StatusPreparing},
			{Timestamp: now.Add(-2 * time.Hour), Type: "transit", Description: "In transit", Status: shipper.StatusInTransit},
		},
	}, nil
}

// Validate reports the configured Valid flag.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	if c.FailWith != nil {
		return false, c.FailWith
	}
	return c.Valid, nil
}

// RateCalls returns how many times GetRates was called.
func (c *Client) RateCalls() int { return int(c.rateCalls.Load()) }

// CreateCalls returns how many times CreateShipment was called.
func (c *Client) CreateCalls() int { return int(c.createCalls.Load()) }

// TrackingCalls returns how many times TrackShipment was called.
func (c *Client) TrackingCalls() int { return int(c.trackingCalls.Load()) }

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

var _ shipper.Adapter = (*Client)(nil)
