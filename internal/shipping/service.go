// Package shipping is the entry point of the shipping layer: it resolves
// provider configuration, normalizes orders, calls carrier adapters and
// records the shipments they create.
package shipping

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/telemetry"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// DefaultCarrierTimeout bounds a single carrier call when none is configured.
const DefaultCarrierTimeout = 15 * time.Second

// ConfigReader loads a provider configuration whether or not it is enabled.
type ConfigReader interface {
	GetConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error)
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Registry   Resolver
	Configs    ConfigReader
	Shipments  ShipmentStore
	Orders     OrderStore
	Normalizer *Normalizer
	Metrics    *telemetry.Metrics
	Logger     *otelzap.Logger
	Tracer     trace.Tracer
}

// Service is the shipping facade. It holds no per-request state.
type Service struct {
	registry   Resolver
	configs    ConfigReader
	shipments  ShipmentStore
	orders     OrderStore
	normalizer *Normalizer
	timeout    time.Duration
	metrics    *telemetry.Metrics
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

// NewService creates the facade. carrierTimeout bounds every carrier call.
func NewService(deps Dependencies, carrierTimeout time.Duration) *Service {
	if carrierTimeout <= 0 {
		carrierTimeout = DefaultCarrierTimeout
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer("", deps.Logger)
	}
	return &Service{
		registry:   deps.Registry,
		configs:    deps.Configs,
		shipments:  deps.Shipments,
		orders:     deps.Orders,
		normalizer: normalizer,
		timeout:    carrierTimeout,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		tracer:     tracer,
	}
}

// RatesResult is the answer to a rate quote.
type RatesResult struct {
	Provider shipper.Carrier        `json:"provider"`
	Rates    []shipper.ShippingRate `json:"rates"`
	Currency string                 `json:"currency"`
}

// ShipmentOutcome is a shipment accepted by the carrier. Warnings lists store
// writes that failed afterwards.
type ShipmentOutcome struct {
	Shipment *domain.ShipmentRecord
	Result   *shipper.ShipmentResult
	Warnings []*PersistenceWarning
}

// Warning returns the warnings as one message, or "".
func (o *ShipmentOutcome) Warning() string {
	return joinWarnings(o.Warnings)
}

// TrackResult is a live carrier lookup.
type TrackResult struct {
	Provider shipper.Carrier           `json:"provider"`
	Tracking *shipper.TrackingSnapshot `json:"tracking"`
}

// ValidateResult is the outcome of a configuration check.
type ValidateResult struct {
	Provider shipper.Carrier `json:"provider"`
	Valid    bool            `json:"valid"`
	Message  string          `json:"message"`
}

// Rates quotes the caller-supplied order with provider. It never writes to a store.
func (s *Service) Rates(ctx context.Context, provider string, in ShipmentInput) (*RatesResult, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Rates", trace.WithAttributes(attribute.String("provider", provider)))
	defer span.End()

	adapter, cfg, err := s.registry.Resolve(ctx, provider)
	if err != nil {
		return nil, recordErr(span, err)
	}
	order, err := s.normalizer.FromInput(in, *cfg)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var rates []shipper.ShippingRate
	err = s.call(ctx, "rates", adapter.Carrier(), func(ctx context.Context) error {
		var err error
		rates, err = adapter.GetRates(ctx, order)
		return err
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	if rates == nil {
		rates = []shipper.ShippingRate{}
	}
	currency := order.Currency
	if len(rates) > 0 && rates[0].Currency != "" {
		currency = rates[0].Currency
	}
	return &RatesResult{Provider: adapter.Carrier(), Rates: rates, Currency: currency}, nil
}

// CreateShipment books a caller-supplied order. The shipment record is written
// best effort: a store failure becomes a warning on the outcome.
func (s *Service) CreateShipment(ctx context.Context, provider string, in ShipmentInput) (*ShipmentOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.CreateShipment", trace.WithAttributes(attribute.String("provider", provider)))
	defer span.End()

	adapter, cfg, err := s.registry.Resolve(ctx, provider)
	if err != nil {
		return nil, recordErr(span, err)
	}
	order, err := s.normalizer.FromInput(in, *cfg)
	if err != nil {
		return nil, recordErr(span, err)
	}

	result, err := s.create(ctx, adapter, order)
	if err != nil {
		return nil, recordErr(span, err)
	}

	record := newShipmentRecord(adapter.Carrier(), order, result)
	outcome := &ShipmentOutcome{Shipment: record, Result: result}
	if err := s.shipments.CreateShipment(ctx, record); err != nil {
		outcome.Warnings = append(outcome.Warnings, s.warn(ctx, "saving shipment", record, err))
	}
	return outcome, nil
}

// CreateOrderShipment books a shipment for a stored order, records it and
// marks the order as preparing. Both writes run even if the other fails; a
// failed write never undoes the carrier shipment.
func (s *Service) CreateOrderShipment(ctx context.Context, orderID, provider string, opts Options) (*ShipmentOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.CreateOrderShipment", trace.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("order_id", orderID),
	))
	defer span.End()

	adapter, cfg, err := s.registry.Resolve(ctx, provider)
	if err != nil {
		return nil, recordErr(span, err)
	}
	stored, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, recordErr(span, err)
	}
	order, err := s.normalizer.FromOrder(ctx, stored, *cfg, opts)
	if err != nil {
		return nil, recordErr(span, err)
	}

	result, err := s.create(ctx, adapter, order)
	if err != nil {
		return nil, recordErr(span, err)
	}

	record := newShipmentRecord(adapter.Carrier(), order, result)
	record.OrderID = stored.ID
	outcome := &ShipmentOutcome{Shipment: record, Result: result}

	if err := s.shipments.CreateShipment(ctx, record); err != nil {
		outcome.Warnings = append(outcome.Warnings, s.warn(ctx, "saving shipment", record, err))
	}
	if err := s.orders.MarkShipmentPreparing(ctx, stored.ID, result.TrackingNumber, result.Price); err != nil {
		outcome.Warnings = append(outcome.Warnings, s.warn(ctx, "updating order", record, err))
	}
	return outcome, nil
}

// Track performs a live carrier lookup for a shipment this service created.
// An empty provider means the provider recorded on the shipment.
func (s *Service) Track(ctx context.Context, provider, trackingNumber string) (*TrackResult, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Track", trace.WithAttributes(attribute.String("tracking_number", trackingNumber)))
	defer span.End()

	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, recordErr(span, NewValidationError("trackingNumber is required"))
	}
	record, err := s.shipments.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, recordErr(span, err)
	}
	if provider == "" {
		provider = string(record.Provider)
	}

	adapter, _, err := s.registry.Resolve(ctx, provider)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var snapshot *shipper.TrackingSnapshot
	err = s.call(ctx, "tracking", adapter.Carrier(), func(ctx context.Context) error {
		var err error
		snapshot, err = adapter.TrackShipment(ctx, trackingNumber)
		return err
	})
	if err != nil {
		return nil, recordErr(span, err)
	}
	return &TrackResult{Provider: adapter.Carrier(), Tracking: snapshot}, nil
}

// Validate checks the stored configuration of provider against the carrier,
// whether or not the provider is enabled.
func (s *Service) Validate(ctx context.Context, provider string) (*ValidateResult, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Validate", trace.WithAttributes(attribute.String("provider", provider)))
	defer span.End()

	carrier, err := shipper.ParseCarrier(provider)
	if err != nil {
		return nil, recordErr(span, &shipper.ConfigurationMissingError{Provider: provider})
	}
	cfg, err := s.configs.GetConfig(ctx, carrier)
	if errors.Is(err, ErrNotFound) {
		return nil, recordErr(span, &shipper.ConfigurationMissingError{Provider: provider})
	}
	if err != nil {
		return nil, recordErr(span, err)
	}

	adapter, err := s.registry.Build(*cfg)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var valid bool
	err = s.call(ctx, "validate", carrier, func(ctx context.Context) error {
		var err error
		valid, err = adapter.Validate(ctx)
		return err
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	result := &ValidateResult{Provider: carrier, Valid: valid}
	switch {
	case !valid:
		result.Message = "Configuration is invalid: the carrier rejected the credentials or they are incomplete"
	case !cfg.Enabled:
		result.Message = "Configuration is valid but the provider is disabled"
	default:
		result.Message = "Configuration is valid"
	}
	return result, nil
}

func (s *Service) create(ctx context.Context, adapter shipper.Adapter, order *shipper.ShippingOrder) (*shipper.ShipmentResult, error) {
	var result *shipper.ShipmentResult
	err := s.call(ctx, "create_shipment", adapter.Carrier(), func(ctx context.Context) error {
		var err error
		result, err = adapter.CreateShipment(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.TrackingNumber == "" {
		return nil, shipper.NewProviderError(adapter.Carrier(), shipper.CodeDecode, "carrier returned no tracking number")
	}

	s.logger.Ctx(ctx).Info("Shipment created",
		zap.String("carrier", string(adapter.Carrier())),
		zap.String("order_id", order.OrderID),
		zap.String("tracking_number", result.TrackingNumber),
		zap.Float64("price", result.Price),
	)
	return result, nil
}

// call runs fn under the carrier timeout and converts its failure to a
// *shipper.ProviderError.
func (s *Service) call(ctx context.Context, op string, carrier shipper.Carrier, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	elapsed := time.Since(start).Seconds()
	if err == nil {
		s.metrics.RecordRequest(op, string(carrier), "success", elapsed)
		return nil
	}

	pe := shipper.AsProviderError(carrier, err)
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && pe.Code == shipper.CodeCarrierError {
		pe.Code = shipper.CodeTimeout
		pe.Retryable = true
	}
	s.metrics.RecordRequest(op, string(carrier), "error", elapsed)
	s.metrics.RecordError(string(carrier), pe.Code)
	return pe
}

func (s *Service) warn(ctx context.Context, op string, record *domain.ShipmentRecord, err error) *PersistenceWarning {
	s.logger.Ctx(ctx).Error("Shipment created at carrier but not fully recorded",
		zap.String("operation", op),
		zap.String("order_id", record.OrderID),
		zap.String("tracking_number", record.TrackingNumber),
		zap.Error(err),
	)
	return &PersistenceWarning{Op: op, Err: err}
}

func newShipmentRecord(carrier shipper.Carrier, order *shipper.ShippingOrder, result *shipper.ShipmentResult) *domain.ShipmentRecord {
	now := time.Now().UTC()
	return &domain.ShipmentRecord{
		ID:                uuid.NewString(),
		OrderID:           order.OrderID,
		TrackingNumber:    result.TrackingNumber,
		Provider:          carrier,
		Service:           coalesce(result.Service, order.Service),
		Price:             result.Price,
		Currency:          coalesce(result.Currency, order.Currency),
		LabelURL:          result.LabelURL,
		TrackingURL:       result.TrackingURL,
		EstimatedDelivery: result.EstimatedDelivery,
		Weight:            order.TotalWeight(),
		Insurance:         order.Insurance,
		SignatureRequired: order.SignatureRequired,
		CashOnDelivery:    order.CashOnDelivery,
		Status:            shipper.StatusPreparing,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	if !isValidation(err) {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
