package shipping

import (
	"context"
	"errors"
	"strings"

	"github.com/tournevent/shipping/internal/domain"
	"golang.org/x/sync/errgroup"
)

// TrackingQuery selects a shipment by tracking number or, failing that, the
// newest shipment of an order.
type TrackingQuery struct {
	OrderID        string
	TrackingNumber string
}

// TrackingDetails is a stored shipment with its history and order.
type TrackingDetails struct {
	Shipment *domain.ShipmentRecord `json:"shipment"`
	Events   []domain.TrackingEvent `json:"events"`
	Order    *domain.OrderSummary   `json:"order,omitempty"`
}

// Tracker answers tracking reads from the stores. It never writes.
type Tracker struct {
	shipments ShipmentStore
	orders    OrderStore
}

// NewTracker creates a Tracker.
func NewTracker(shipments ShipmentStore, orders OrderStore) *Tracker {
	return &Tracker{shipments: shipments, orders: orders}
}

// TrackingDetails returns the shipment selected by q with its events in
// chronological order.
func (t *Tracker) TrackingDetails(ctx context.Context, q TrackingQuery) (*TrackingDetails, error) {
	var (
		record *domain.ShipmentRecord
		err    error
	)
	switch {
	case strings.TrimSpace(q.TrackingNumber) != "":
		record, err = t.shipments.GetByTrackingNumber(ctx, strings.TrimSpace(q.TrackingNumber))
	case strings.TrimSpace(q.OrderID) != "":
		record, err = t.shipments.LatestForOrder(ctx, strings.TrimSpace(q.OrderID))
	default:
		return nil, NewValidationError("orderId or trackingNumber is required")
	}
	if err != nil {
		return nil, err
	}

	events, err := t.shipments.ListEvents(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.TrackingEvent{}
	}

	details := &TrackingDetails{Shipment: record, Events: events}
	if record.OrderID != "" {
		order, err := t.orders.GetOrder(ctx, record.OrderID)
		switch {
		case err == nil:
			details.Order = order.Summary()
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	return details, nil
}

// ListOrderShipments returns the shipments of an order, newest first, each
// with its events.
func (t *Tracker) ListOrderShipments(ctx context.Context, orderID string) ([]domain.ShipmentWithEvents, error) {
	if _, err := t.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	records, err := t.shipments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ShipmentWithEvents, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range records {
		out[i].ShipmentRecord = records[i]
		g.Go(func() error {
			events, err := t.shipments.ListEvents(gctx, records[i].ID)
			if err != nil {
				return err
			}
			if events == nil {
				events = []domain.TrackingEvent{}
			}
			out[i].Events = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
