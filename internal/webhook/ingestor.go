package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/notify"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/internal/telemetry"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Webhook outcomes recorded in metrics.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeUnknown  = "unknown_shipment"
	OutcomeFailed   = "failed"
)

// ShipmentStore is the part of the shipment store the ingestor writes.
type ShipmentStore interface {
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*domain.ShipmentRecord, error)
	UpdateStatus(ctx context.Context, shipmentID string, status shipper.ShipmentStatus, estimated, actual *time.Time) error
	AppendEvent(ctx context.Context, event *domain.TrackingEvent) error
}

// OrderStore is the part of the order store the ingestor reads and writes.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// Dependencies are the collaborators of an Ingestor.
type Dependencies struct {
	Verifier   *Verifier
	Shipments  ShipmentStore
	Orders     OrderStore
	Dispatcher notify.Dispatcher
	Metrics    *telemetry.Metrics
	Logger     *otelzap.Logger
	Tracer     trace.Tracer
}

// Ingestor applies verified carrier status updates.
//
// Updates are applied last-write-wins: the stored status is overwritten
// whatever its position in the shipment lifecycle, and every delivery appends
// its events, so a redelivered payload produces duplicate history.
type Ingestor struct {
	verifier   *Verifier
	shipments  ShipmentStore
	orders     OrderStore
	dispatcher notify.Dispatcher
	metrics    *telemetry.Metrics
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

// NewIngestor creates an ingestor.
func NewIngestor(deps Dependencies) *Ingestor {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(deps.Logger)
	}
	return &Ingestor{
		verifier:   deps.Verifier,
		shipments:  deps.Shipments,
		orders:     deps.Orders,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		tracer:     tracer,
	}
}

// Result describes an applied update. Warnings lists follow-up steps that
// failed after the status was stored.
type Result struct {
	ShipmentID     string                 `json:"shipmentId"`
	TrackingNumber string                 `json:"trackingNumber"`
	PreviousStatus shipper.ShipmentStatus `json:"previousStatus"`
	Status         shipper.ShipmentStatus `json:"status"`
	EventsRecorded int                    `json:"eventsRecorded"`
	OrderDelivered bool                   `json:"orderDelivered"`
	Notified       bool                   `json:"notified"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// Ingest verifies and applies one webhook delivery. An error means the update
// was not stored and the carrier should retry.
func (in *Ingestor) Ingest(ctx context.Context, carrierKey string, body []byte, signature string) (*Result, error) {
	ctx, span := in.tracer.Start(ctx, "webhook.Ingest", trace.WithAttributes(attribute.String("carrier", carrierKey)))
	defer span.End()

	carrier, err := shipper.ParseCarrier(carrierKey)
	if err != nil {
		in.metrics.RecordWebhook(strings.ToLower(carrierKey), OutcomeInvalid)
		return nil, fail(span, shipping.NotFound("carrier", carrierKey))
	}
	log := in.logger.Ctx(ctx)
	fields := []zap.Field{zap.String("carrier", string(carrier))}

	if err := in.verifier.Verify(ctx, body, signature); err != nil {
		in.metrics.RecordWebhook(string(carrier), OutcomeRejected)
		log.Warn("Webhook signature rejected", fields...)
		return nil, fail(span, err)
	}

	u, err := decodePayload(body)
	if err != nil {
		in.metrics.RecordWebhook(string(carrier), OutcomeInvalid)
		return nil, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("tracking_number", u.trackingNumber),
		attribute.String("status", string(u.status)),
	)
	fields = append(fields, zap.String("tracking_number", u.trackingNumber))

	record, err := in.shipments.GetByTrackingNumber(ctx, u.trackingNumber)
	if err != nil {
		if errors.Is(err, shipping.ErrNotFound) {
			in.metrics.RecordWebhook(string(carrier), OutcomeUnknown)
		} else {
			in.metrics.RecordWebhook(string(carrier), OutcomeFailed)
		}
		return nil, fail(span, err)
	}
	if record.Provider != "" && record.Provider != carrier {
		log.Warn("Webhook carrier differs from the carrier that created the shipment",
			append(fields, zap.String("shipment_carrier", string(record.Provider)))...)
	}

	if err := in.shipments.UpdateStatus(ctx, record.ID, u.status, u.estimated, u.actual); err != nil {
		in.metrics.RecordWebhook(string(carrier), OutcomeFailed)
		return nil, fail(span, fmt.Errorf("updating shipment %s: %w", record.ID, err))
	}

	result := &Result{
		ShipmentID:     record.ID,
		TrackingNumber: record.TrackingNumber,
		PreviousStatus: record.Status,
		Status:         u.status,
	}
	warn := func(msg string, err error) {
		log.Error(msg, append(fields, zap.Error(err))...)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", msg, err))
	}

	for _, ev := range in.events(record, u) {
		if err := in.shipments.AppendEvent(ctx, ev); err != nil {
			warn("recording tracking event", err)
			continue
		}
		result.EventsRecorded++
	}

	var order *domain.Order
	if record.OrderID != "" {
		if u.status == shipper.StatusDelivered {
			if err := in.orders.UpdateStatus(ctx, record.OrderID, domain.OrderStatusDelivered); err != nil {
				warn("marking order delivered", err)
			} else {
				result.OrderDelivered = true
			}
		}
		if u.status.Notifiable() {
			order, err = in.orders.GetOrder(ctx, record.OrderID)
			if err != nil {
				log.Warn("Notifying without order details",
					append(fields, zap.String("order_id", record.OrderID), zap.Error(err))...)
				order = nil
			}
		}
	}

	if u.status.Notifiable() {
		n := notification(record, order, u)
		if err := in.dispatcher.Dispatch(ctx, n); err != nil {
			in.metrics.RecordNotification(string(u.status), "error")
			warn("dispatching notification", err)
		} else {
			in.metrics.RecordNotification(string(u.status), "sent")
			result.Notified = true
		}
	}

	in.metrics.RecordWebhook(string(carrier), OutcomeAccepted)
	log.Info("Webhook applied", append(fields,
		zap.String("previous_status", string(result.PreviousStatus)),
		zap.String("status", string(result.Status)),
		zap.Int("events", result.EventsRecorded),
		zap.Int("warnings", len(result.Warnings)),
	)...)
	return result, nil
}

// events returns one event per payload entry, or one synthesized from the
// top-level fields when the payload has none.
func (in *Ingestor) events(record *domain.ShipmentRecord, u *update) []*domain.TrackingEvent {
	now := time.Now().UTC()
	build := func(ev event) *domain.TrackingEvent {
		occurred := now
		if ev.occurredAt != nil {
			occurred = *ev.occurredAt
		}
		return &domain.TrackingEvent{
			ID:          uuid.NewString(),
			ShipmentID:  record.ID,
			EventType:   ev.eventType,
			Description: ev.description,
			Location:    ev.location,
			Status:      ev.status,
			OccurredAt:  occurred,
			CreatedAt:   now,
		}
	}

	if len(u.events) == 0 {
		return []*domain.TrackingEvent{build(event{
			eventType:   string(u.status),
			status:      u.status,
			description: coalesce(u.description, "Status changed to "+string(u.status)),
			location:    u.location,
			occurredAt:  u.actual,
		})}
	}
	out := make([]*domain.TrackingEvent, 0, len(u.events))
	for _, ev := range u.events {
		out = append(out, build(ev))
	}
	return out
}

func notification(record *domain.ShipmentRecord, order *domain.Order, u *update) notify.Notification {
	estimated := u.estimated
	if estimated == nil {
		estimated = record.EstimatedDelivery
	}
	n := notify.Notification{
		OrderID:           record.OrderID,
		ShipmentID:        record.ID,
		TrackingNumber:    record.TrackingNumber,
		TrackingURL:       record.TrackingURL,
		Carrier:           record.Provider,
		Status:            u.status,
		Description:       u.description,
		Location:          u.location,
		EstimatedDelivery: estimated,
		OccurredAt:        time.Now().UTC(),
	}
	if order != nil {
		n.OrderNumber = order.Number
		n.CustomerName = order.CustomerName
		n.CustomerEmail = order.CustomerEmail
	}
	return n
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
