// Package notify delivers customer-facing shipment status notifications.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Source identifies this service in published events.
const Source = "shipping"

// Notification is a status change a customer should hear about.
type Notification struct {
	OrderID           string                 `json:"orderId,omitempty"`
	OrderNumber       string                 `json:"orderNumber,omitempty"`
	ShipmentID        string                 `json:"shipmentId"`
	TrackingNumber    string                 `json:"trackingNumber"`
	TrackingURL       string                 `json:"trackingUrl,omitempty"`
	Carrier           shipper.Carrier        `json:"carrier"`
	Status            shipper.ShipmentStatus `json:"status"`
	CustomerName      string                 `json:"customerName,omitempty"`
	CustomerEmail     string                 `json:"customerEmail,omitempty"`
	Description       string                 `json:"description,omitempty"`
	Location          string                 `json:"location,omitempty"`
	EstimatedDelivery *time.Time             `json:"estimatedDelivery,omitempty"`
	OccurredAt        time.Time              `json:"occurredAt"`
}

// Dispatcher sends notifications. Implementations must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Event is the envelope published on message buses.
type Event struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Version     int             `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

// NewEvent wraps n in an envelope with a fresh event id. The aggregate is the
// order when known, the tracking number otherwise.
func NewEvent(n Notification) (*Event, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	aggregate := n.OrderID
	if aggregate == "" {
		aggregate = n.TrackingNumber
	}
	return &Event{
		EventID:     uuid.NewString(),
		EventType:   "shipment." + string(n.Status),
		AggregateID: aggregate,
		Version:     1,
		Timestamp:   time.Now().UTC(),
		Source:      Source,
		Data:        data,
	}, nil
}

// LogDispatcher writes notifications to the log. It is the default driver
// when no message bus is configured.
type LogDispatcher struct {
	logger *otelzap.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *otelzap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs n.
func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.Ctx(ctx).Info("Shipment notification",
		zap.String("order_id", n.OrderID),
		zap.String("tracking_number", n.TrackingNumber),
		zap.String("status", string(n.Status)),
		zap.String("customer_email", n.CustomerEmail),
	)
	return nil
}

var _ Dispatcher = (*LogDispatcher)(nil)
