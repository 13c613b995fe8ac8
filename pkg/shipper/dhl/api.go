package dhl

import (
	"context"
	"fmt"
)

// APIClient defines the DHL Express API operations the adapter needs.
type APIClient interface {
	// GetRates quotes the products available for a shipment
	GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error)

	// CreateShipment books a shipment
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// GetTracking returns the event history of a shipment
	GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error)

	// ValidateAddress checks a postal address; used as a credential check
	ValidateAddress(ctx context.Context, countryCode, postalCode, city string) error
}

// ============================================================================
// Wire types (JSON)
// ============================================================================

// Account is a DHL billing account reference.
type Account struct {
	TypeCode string `json:"typeCode"`
	Number   string `json:"number"`
}

// Dimensions in centimetres.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Package is a single piece of a shipment.
type Package struct {
	Weight     float64    `json:"weight"`
	Dimensions Dimensions `json:"dimensions"`
}

// RateAddress is the reduced address used for quotes.
type RateAddress struct {
	PostalCode  string `json:"postalCode"`
	CityName    string `json:"cityName"`
	CountryCode string `json:"countryCode"`
}

// RateCustomerDetails holds both ends of a quote.
type RateCustomerDetails struct {
	ShipperDetails  RateAddress `json:"shipperDetails"`
	ReceiverDetails RateAddress `json:"receiverDetails"`
}

// ValueAddedService is an optional service such as insurance (II).
type ValueAddedService struct {
	ServiceCode string  `json:"serviceCode"`
	Value       float64 `json:"value,omitempty"`
	Currency    string  `json:"currency,omitempty"`
}

// RateRequest is the body of POST /rates.
type RateRequest struct {
	CustomerDetails            RateCustomerDetails `json:"customerDetails"`
	Accounts                   []Account           `json:"accounts"`
	PlannedShippingDateAndTime string              `json:"plannedShippingDateAndTime"`
	UnitOfMeasurement          string              `json:"unitOfMeasurement"`
	IsCustomsDeclarable        bool                `json:"isCustomsDeclarable"`
	Packages                   []Package           `json:"packages"`
	ValueAddedServices         []ValueAddedService `json:"valueAddedServices,omitempty"`
}

// Price is one entry of a price breakdown.
type Price struct {
	CurrencyType  string  `json:"currencyType"`
	PriceCurrency string  `json:"priceCurrency"`
	Price         float64 `json:"price"`
}

// DeliveryCapabilities describes transit time of a product.
type DeliveryCapabilities struct {
	EstimatedDeliveryDateAndTime string `json:"estimatedDeliveryDateAndTime"`
	TotalTransitDays             string `json:"totalTransitDays"`
}

// Product is a quoted DHL product.
type Product struct {
	ProductName          string               `json:"productName"`
	ProductCode          string               `json:"productCode"`
	TotalPrice           []Price              `json:"totalPrice"`
	DeliveryCapabilities DeliveryCapabilities `json:"deliveryCapabilities"`
}

// RateResponse is the body returned by POST /rates.
type RateResponse struct {
	Products []Product `json:"products"`
}

// PostalAddress is a full DHL address.
type PostalAddress struct {
	PostalCode   string `json:"postalCode"`
	CityName     string `json:"cityName"`
	CountryCode  string `json:"countryCode"`
	ProvinceCode string `json:"provinceCode,omitempty"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
}

// ContactInformation of a party.
type ContactInformation struct {
	FullName    string `json:"fullName"`
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
}

// Party is a shipper or receiver.
type Party struct {
	PostalAddress      PostalAddress      `json:"postalAddress"`
	ContactInformation ContactInformation `json:"contactInformation"`
}

// ShipmentCustomerDetails holds both parties of a shipment.
type ShipmentCustomerDetails struct {
	ShipperDetails  Party `json:"shipperDetails"`
	ReceiverDetails Party `json:"receiverDetails"`
}

// Content describes what is shipped.
type Content struct {
	Packages              []Package `json:"packages"`
	IsCustomsDeclarable   bool      `json:"isCustomsDeclarable"`
	DeclaredValue         float64   `json:"declaredValue,omitempty"`
	DeclaredValueCurrency string    `json:"declaredValueCurrency,omitempty"`
	Description           string    `json:"description"`
	UnitOfMeasurement     string    `json:"unitOfMeasurement"`
}

// Pickup controls courier pickup booking.
type Pickup struct {
	IsRequested bool `json:"isRequested"`
}

// ShipmentRequest is the body of POST /shipments.
type ShipmentRequest struct {
	PlannedShippingDateAndTime string                  `json:"plannedShippingDateAndTime"`
	Pickup                     Pickup                  `json:"pickup"`
	ProductCode                string                  `json:"productCode"`
	Accounts                   []Account               `json:"accounts"`
	ValueAddedServices         []ValueAddedService     `json:"valueAddedServices,omitempty"`
	CustomerDetails            ShipmentCustomerDetails `json:"customerDetails"`
	Content                    Content                 `json:"content"`
	CustomerReferences         []CustomerReference     `json:"customerReferences,omitempty"`
}

// CustomerReference carries the merchant order reference.
type CustomerReference struct {
	Value    string `json:"value"`
	TypeCode string `json:"typeCode"`
}

// EstimatedDeliveryDate of a booked shipment.
type EstimatedDeliveryDate struct {
	EstimatedDeliveryDate string `json:"estimatedDeliveryDate"`
	EstimatedDeliveryType string `json:"estimatedDeliveryType"`
}

// ShipmentResponse is the body returned by POST /shipments.
type ShipmentResponse struct {
	ShipmentTrackingNumber string                `json:"shipmentTrackingNumber"`
	TrackingURL            string                `json:"trackingUrl"`
	ShipmentCharges        []Price               `json:"shipmentCharges"`
	EstimatedDeliveryDate  EstimatedDeliveryDate `json:"estimatedDeliveryDate"`
}

// ServiceArea is where an event happened.
type ServiceArea struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Event is a tracking checkpoint.
type Event struct {
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	TypeCode    string        `json:"typeCode"`
	Description string        `json:"description"`
	ServiceArea []ServiceArea `json:"serviceArea"`
}

// TrackedShipment is one shipment of a tracking response.
type TrackedShipment struct {
	ShipmentTrackingNumber string  `json:"shipmentTrackingNumber"`
	Status                 string  `json:"status"`
	EstimatedDeliveryDate  string  `json:"estimatedDeliveryDate,omitempty"`
	Events                 []Event `json:"events"`
}

// TrackingResponse is the body returned by GET /shipments/{tn}/tracking.
type TrackingResponse struct {
	Shipments []TrackedShipment `json:"shipments"`
}

// APIError is the problem document DHL returns on failure.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Title, e.Detail)
}
