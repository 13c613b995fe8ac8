package dhl

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors bool

	OnGetRates        func(ctx context.Context, req *RateRequest) (*RateResponse, error)
	OnCreateShipment  func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnGetTracking     func(ctx context.Context, trackingNumber string) (*TrackingResponse, error)
	OnValidateAddress func(ctx context.Context, countryCode, postalCode, city string) error
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulated() error {
	if m.SimulateErrors {
		return &APIError{StatusCode: 503, Title: "Service Unavailable", Detail: "Simulated API error"}
	}
	return nil
}

// GetRates returns two products.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	eta := func(days int) string {
		return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02") + "T23:59:00"
	}
	return &RateResponse{
		Products: []Product{
			{
				ProductName:          "EXPRESS WORLDWIDE",
				ProductCode:          "P",
				TotalPrice:           []Price{{CurrencyType: "BILLC", PriceCurrency: "EUR", Price: 42.10}},
				DeliveryCapabilities: DeliveryCapabilities{EstimatedDeliveryDateAndTime: eta(2), TotalTransitDays: "2"},
			},
			{
				ProductName:          "EXPRESS DOMESTIC",
				ProductCode:          "N",
				TotalPrice:           []Price{{CurrencyType: "BILLC", PriceCurrency: "EUR", Price: 18.75}},
				DeliveryCapabilities: DeliveryCapabilities{EstimatedDeliveryDateAndTime: eta(1), TotalTransitDays: "1"},
			},
		},
	}, nil
}

// CreateShipment books a fake shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	tn := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
	return &ShipmentResponse{
		ShipmentTrackingNumber: tn,
		TrackingURL:            "https://www.dhl.com/track?tracking-id=" + tn,
		ShipmentCharges:        []Price{{CurrencyType: "BILLC", PriceCurrency: "EUR", Price: 42.10}},
		EstimatedDeliveryDate: EstimatedDeliveryDate{
			EstimatedDeliveryDate: time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
			EstimatedDeliveryType: "QDDC",
		},
	}, nil
}

// GetTracking returns a picked-up shipment.
func (m *MockAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	if err := m.simulated(); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, trackingNumber)
	}

	now := time.Now().UTC()
	return &TrackingResponse{
		Shipments: []TrackedShipment{{
			ShipmentTrackingNumber: trackingNumber,
			Status:                 "Success",
			Events: []Event{
				{Date: now.Format("2006-01-02"), Time: "07:45:00", TypeCode: "PU", Description: "Shipment picked up",
					ServiceArea: []ServiceArea{{Code: "CGN", Description: "Cologne-DE"}}},
			},
		}},
	}, nil
}

// ValidateAddress accepts every address.
func (m *MockAPIClient) ValidateAddress(ctx context.Context, countryCode, postalCode, city string) error {
	if err := m.simulated(); err != nil {
		return err
	}
	if m.OnValidateAddress != nil {
		return m.OnValidateAddress(ctx, countryCode, postalCode, city)
	}
	return nil
}

var _ APIClient = (*MockAPIClient)(nil)
