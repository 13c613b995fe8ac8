package canadapost

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnGetRates         func(ctx context.Context, req *RatesRequest) (*RatesResponse, error)
	OnCreateShipment   func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnGetTracking      func(ctx context.Context, pin string) (*TrackingResponse, error)
	OnDiscoverServices func(ctx context.Context, countryCode string) ([]Service, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate(ctx context.Context) error {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.SimulateErrors {
		return &APIError{StatusCode: 500, Code: "MOCK_ERROR", Description: "Simulated API error"}
	}
	return nil
}

// GetRates returns mock shipping rates.
func (m *MockAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetRates != nil {
		return m.OnGetRates(ctx, req)
	}

	day := func(n int) string { return time.Now().AddDate(0, 0, n).Format("2006-01-02") }
	return &RatesResponse{
		Rates: []Rate{
			{ServiceCode: "DOM.RP", ServiceName: "Regular Parcel", BaseRate: 9.99, TotalPrice: 12.65, ExpectedTransit: 5, ExpectedDelivery: day(5)},
			{ServiceCode: "DOM.XP", ServiceName: "Xpresspost", BaseRate: 19.99, TotalPrice: 25.30, ExpectedTransit: 2, ExpectedDelivery: day(2)},
			{ServiceCode: "DOM.PC", ServiceName: "Priority", BaseRate: 34.99, TotalPrice: 44.29, ExpectedTransit: 1, ExpectedDelivery: day(1)},
		},
	}, nil
}

// CreateShipment creates a mock shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}

	shipmentID := "cp-ship-" + uuid.New().String()[:8]
	pin := fmt.Sprintf("%016d", time.Now().UnixNano()%10000000000000000)

	return &ShipmentResponse{
		ShipmentID:       shipmentID,
		TrackingPIN:      pin,
		ShipmentStatus:   "created",
		ServiceName:      "Regular Parcel",
		TotalCharged:     12.65,
		ExpectedDelivery: time.Now().AddDate(0, 0, 5).Format("2006-01-02"),
		Links: []Link{
			{Rel: "label", Href: fmt.Sprintf("https://ct.soa-gw.canadapost.ca/rs/artifact/%s/label", shipmentID), MediaType: "application/pdf"},
		},
	}, nil
}

// GetTracking retrieves mock tracking information.
func (m *MockAPIClient) GetTracking(ctx context.Context, pin string) (*TrackingResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGetTracking != nil {
		return m.OnGetTracking(ctx, pin)
	}

	now := time.Now()
	return &TrackingResponse{
		TrackingPIN:      pin,
		ExpectedDelivery: now.AddDate(0, 0, 2).Format("2006-01-02"),
		Events: []TrackingEvent{
			{Date: now.Format("2006-01-02"), Time: "09:12:00", Description: "Item in transit", Site: "MISSISSAUGA", Province: "ON", Identifier: "0170"},
			{Date: now.AddDate(0, 0, -1).Format("2006-01-02"), Time: "16:40:00", Description: "Item accepted at the Post Office", Site: "TORONTO", Province: "ON", Identifier: "3000"},
		},
	}, nil
}

// DiscoverServices returns the domestic service list.
func (m *MockAPIClient) DiscoverServices(ctx context.Context, countryCode string) ([]Service, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnDiscoverServices != nil {
		return m.OnDiscoverServices(ctx, countryCode)
	}
	return []Service{{Code: "DOM.RP", Name: "Regular Parcel"}, {Code: "DOM.XP", Name: "Xpresspost"}}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
