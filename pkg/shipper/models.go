package shipper

import (
	"fmt"
	"strings"
	"time"
)

// ShipmentStatus represents the normalized status of a shipment.
type ShipmentStatus string

const (
	StatusPending        ShipmentStatus = "pending"
	StatusPreparing      ShipmentStatus = "preparing"
	StatusInTransit      ShipmentStatus = "in_transit"
	StatusOutForDelivery ShipmentStatus = "out_for_delivery"
	StatusDelivered      ShipmentStatus = "delivered"
	StatusException      ShipmentStatus = "exception"
	StatusFailed         ShipmentStatus = "failed"
)

var knownStatuses = map[ShipmentStatus]struct{}{
	StatusPending:        {},
	StatusPreparing:      {},
	StatusInTransit:      {},
	StatusOutForDelivery: {},
	StatusDelivered:      {},
	StatusException:      {},
	StatusFailed:         {},
}

// ParseShipmentStatus normalizes a status string. Case, spaces and dashes are
// tolerated ("Out-For-Delivery" parses as out_for_delivery).
func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	status := ShipmentStatus(normalized)
	if _, ok := knownStatuses[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// IsTerminal reports whether no further transition is expected.
func (s ShipmentStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// Notifiable reports whether customers are told about this status.
func (s ShipmentStatus) Notifiable() bool {
	switch s {
	case StatusDelivered, StatusOutForDelivery, StatusInTransit:
		return true
	default:
		return false
	}
}

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG WeightUnit = "kg"
	WeightLB WeightUnit = "lb"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// Address represents a shipping address.
type Address struct {
	Name         string `json:"name"`
	Company      string `json:"company,omitempty"`
	Line1        string `json:"line1"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	PostalCode   string `json:"postalCode"`
	CountryCode  string `json:"countryCode"` // ISO 3166-1 alpha-2
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Validate checks the fields a carrier needs to ship to this address.
func (a Address) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postalCode")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	if len(a.CountryCode) != 2 {
		return fmt.Errorf("%w: country code must have 2 letters, got %q", ErrInvalidAddress, a.CountryCode)
	}
	return nil
}

// IsShippable reports whether Validate passes.
func (a Address) IsShippable() bool {
	return a.Validate() == nil
}

// Package represents a package to be shipped.
type Package struct {
	Weight        float64       `json:"weight"`
	Length        float64       `json:"length"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	WeightUnit    WeightUnit    `json:"weightUnit"`
	DimensionUnit DimensionUnit `json:"dimensionUnit"`
}

const (
	kgPerLb = 0.45359237
	cmPerIn = 2.54
)

// Kilograms returns the package weight in kilograms.
func (p Package) Kilograms() float64 {
	if p.WeightUnit == WeightLB {
		return p.Weight * kgPerLb
	}
	return p.Weight
}

// Centimetres returns length, width and height in centimetres.
func (p Package) Centimetres() (length, width, height float64) {
	if p.DimensionUnit == DimensionIN {
		return p.Length * cmPerIn, p.Width * cmPerIn, p.Height * cmPerIn
	}
	return p.Length, p.Width, p.Height
}

// ShippingOrder is the normalized request handed to an adapter.
type ShippingOrder struct {
	OrderID           string    `json:"orderId"`
	Origin            Address   `json:"origin"`
	Destination       Address   `json:"destination"`
	Packages          []Package `json:"packages"`
	DeclaredValue     float64   `json:"declaredValue"`
	Currency          string    `json:"currency"`
	Service           string    `json:"service,omitempty"`
	Insurance         bool      `json:"insurance"`
	SignatureRequired bool      `json:"signatureRequired"`
	CashOnDelivery    bool      `json:"cashOnDelivery"`
}

// TotalWeight sums the weight of every package in kilograms.
func (o *ShippingOrder) TotalWeight() float64 {
	var total float64
	for _, p := range o.Packages {
		total += p.Kilograms()
	}
	return total
}

// ShippingRate is a carrier quote. Quotes are never persisted.
type ShippingRate struct {
	Carrier           Carrier    `json:"carrier"`
	ServiceCode       string     `json:"serviceCode"`
	ServiceName       string     `json:"serviceName"`
	Price             float64    `json:"price"`
	Currency          string     `json:"currency"`
	TransitDays       int        `json:"transitDays,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// ShipmentResult is returned by a successful carrier shipment creation.
type ShipmentResult struct {
	TrackingNumber    string     `json:"trackingNumber"`
	Service           string     `json:"service"`
	Price             float64    `json:"price"`
	Currency          string     `json:"currency"`
	LabelURL          string     `json:"labelUrl,omitempty"`
	TrackingURL       string     `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// TrackingEvent is a carrier-side tracking event.
type TrackingEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description"`
	Location    string         `json:"location,omitempty"`
	Status      ShipmentStatus `json:"status,omitempty"`
}

// TrackingSnapshot is the live carrier view of a shipment.
type TrackingSnapshot struct {
	TrackingNumber    string          `json:"trackingNumber"`
	Status            ShipmentStatus  `json:"status"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actualDelivery,omitempty"`
	Events            []TrackingEvent `json:"events"`
}
