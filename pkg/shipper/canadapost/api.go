package canadapost

import (
	"context"
	"fmt"
)

// APIClient defines the Canada Post API operations the adapter needs.
type APIClient interface {
	// GetRates fetches shipping rates (rate-v4)
	GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error)

	// CreateShipment creates a contract shipment (shipment-v8)
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetTracking retrieves the tracking detail of a PIN (track-v2)
	GetTracking(ctx context.Context, pin string) (*TrackingResponse, error)

	// DiscoverServices lists available services; used as a credential check
	DiscoverServices(ctx context.Context, countryCode string) ([]Service, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// RatesRequest represents a Canada Post rate quote request.
type RatesRequest struct {
	CustomerNumber string
	Weight         float64 // kg
	Dimensions     Dimensions
	OriginPostal   string
	Destination    Destination
	Options        []string
}

// Dimensions represents package dimensions in centimetres.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// Destination is exactly one of domestic, US or international.
type Destination struct {
	PostalCode  string
	CountryCode string
}

// RatesResponse represents the Canada Post rate quote response.
type RatesResponse struct {
	Rates []Rate
}

// Rate represents a single shipping rate option.
type Rate struct {
	ServiceCode      string
	ServiceName      string
	BaseRate         float64
	TotalPrice       float64
	ExpectedTransit  int
	ExpectedDelivery string
}

// ShipmentRequest represents a Canada Post shipment creation request.
type ShipmentRequest struct {
	CustomerNumber   string
	GroupID          string
	ServiceCode      string
	Sender           Address
	Destination      Address
	ParcelWeight     float64
	ParcelDimensions Dimensions
	Options          []Option
}

// Address represents a Canada Post address.
type Address struct {
	Name         string
	Company      string
	AddressLine1 string
	AddressLine2 string
	City         string
	Province     string
	PostalCode   string
	CountryCode  string
	Phone        string
	Email        string
}

// Option represents a shipping option such as COV (coverage) or SO (signature).
type Option struct {
	Code   string
	Amount float64
}

// ShipmentResponse represents the Canada Post shipment creation response.
type ShipmentResponse struct {
	ShipmentID       string
	TrackingPIN      string
	ShipmentStatus   string
	ServiceName      string
	TotalCharged     float64
	ExpectedDelivery string
	Links            []Link
}

// Link represents a hypermedia link in the response.
type Link struct {
	Rel       string
	Href      string
	MediaType string
}

// TrackingResponse represents tracking information for a PIN.
type TrackingResponse struct {
	TrackingPIN      string
	ExpectedDelivery string
	ActualDelivery   string
	Events           []TrackingEvent
}

// TrackingEvent represents a single tracking event, newest first.
type TrackingEvent struct {
	Date        string
	Time        string
	Description string
	Site        string
	Province    string
	Identifier  string
}

// Service is an entry of the service discovery response.
type Service struct {
	Code string
	Name string
}

// APIError represents an error from the Canada Post API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}
