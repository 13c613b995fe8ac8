// Package domain holds the records the shipping layer reads and writes in the
// order and shipment stores.
package domain

import (
	"time"

	"github.com/tournevent/shipping/pkg/shipper"
)

// Order statuses written by the shipping layer.
const (
	OrderStatusDelivered = "delivered"

	ShippingStatusPreparing = "preparing"
)

// OrderItem is one line of an order. Weight is nil when the product has no
// known weight.
type OrderItem struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unitPrice"`
	Total     float64  `json:"total"`
	Weight    *float64 `json:"weight,omitempty"`
}

// Order is the shipping layer's view of a customer order.
type Order struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	Status         string `json:"status"`
	ShippingStatus string `json:"shippingStatus"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
	// ShippingAddress is either a JSON address document or free text.
	ShippingAddress string      `json:"shippingAddress"`
	Currency        string      `json:"currency"`
	Total           float64     `json:"total"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	ShippingCost    float64     `json:"shippingCost,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Summary returns the minimal order view embedded in tracking responses.
func (o *Order) Summary() *OrderSummary {
	return &OrderSummary{
		ID:             o.ID,
		Number:         o.Number,
		Status:         o.Status,
		ShippingStatus: o.ShippingStatus,
		CustomerName:   o.CustomerName,
	}
}

// OrderSummary is a minimal order view.
type OrderSummary struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	Status         string `json:"status"`
	ShippingStatus string `json:"shippingStatus"`
	CustomerName   string `json:"customerName"`
}

// ShipmentRecord is the durable record of a created shipment. After creation
// only status and delivery dates change.
type ShipmentRecord struct {
	ID                string                 `json:"id"`
	OrderID           string                 `json:"orderId,omitempty"`
	TrackingNumber    string                 `json:"trackingNumber"`
	Provider          shipper.Carrier        `json:"provider"`
	Service           string                 `json:"service"`
	Price             float64                `json:"price"`
	Currency          string                 `json:"currency"`
	LabelURL          string                 `json:"labelUrl,omitempty"`
	TrackingURL       string                 `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time             `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *time.Time             `json:"actualDelivery,omitempty"`
	Weight            float64                `json:"weight"`
	Insurance         bool                   `json:"insurance"`
	SignatureRequired bool                   `json:"signatureRequired"`
	CashOnDelivery    bool                   `json:"cashOnDelivery"`
	Status            shipper.ShipmentStatus `json:"status"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// TrackingEvent is one append-only history entry of a shipment.
type TrackingEvent struct {
	ID          string                 `json:"id"`
	ShipmentID  string                 `json:"shipmentId"`
	EventType   string                 `json:"eventType"`
	Description string                 `json:"description,omitempty"`
	Location    string                 `json:"location,omitempty"`
	Status      shipper.ShipmentStatus `json:"status"`
	OccurredAt  time.Time              `json:"occurredAt"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// ShipmentWithEvents is a shipment joined with its history.
type ShipmentWithEvents struct {
	ShipmentRecord
	Events []TrackingEvent `json:"events"`
}
