// Package canadapost provides integration with the Canada Post shipping API.
package canadapost

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const (
	carrier = shipper.CarrierCanadaPost

	productionURL = "https://soa-gw.canadapost.ca"
	sandboxURL    = "https://ct.soa-gw.canadapost.ca"

	defaultService = "DOM.RP"
	currency       = "CAD"
)

// Client is the Canada Post adapter.
type Client struct {
	config    shipper.ProviderConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a Canada Post adapter talking to the production or sandbox gateway.
func New(cfg shipper.ProviderConfig, timeout time.Duration, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	baseURL := cfg.Credential(shipper.CredBaseURL)
	if baseURL == "" {
		baseURL = productionURL
		if cfg.Sandbox {
			baseURL = sandboxURL
		}
	}

	apiClient := NewHTTPAPIClient(HTTPAPIClientConfig{
		BaseURL:   baseURL,
		APIKey:    cfg.Credential(shipper.CredAPIKey),
		APISecret: cfg.Credential(shipper.CredAPISecret),
		AccountID: cfg.Credential(shipper.CredAccountNumber),
		Timeout:   timeout,
	})
	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a Canada Post adapter with a custom API client.
func NewWithAPIClient(cfg shipper.ProviderConfig, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Carrier returns the carrier identifier.
func (c *Client) Carrier() shipper.Carrier {
	return carrier
}

// GetRates returns shipping quotes from Canada Post.
func (c *Client) GetRates(ctx context.Context, order *shipper.ShippingOrder) ([]shipper.ShippingRate, error) {
	ctx, span := c.tracer.Start(ctx, "canadapost.GetRates")
	defer span.End()

	c.logger.Ctx(ctx).Info("Getting Canada Post rates",
		zap.String("order_id", order.OrderID),
		zap.String("origin_postal", order.Origin.PostalCode),
		zap.String("destination_postal", order.Destination.PostalCode),
		zap.Int("package_count", len(order.Packages)),
	)

	req := &RatesRequest{
		CustomerNumber: c.config.Credential(shipper.CredAccountNumber),
		Weight:         order.TotalWeight(),
		Dimensions:     firstDimensions(order),
		OriginPostal:   order.Origin.PostalCode,
		Destination: Destination{
			PostalCode:  order.Destination.PostalCode,
			CountryCode: order.Destination.CountryCode,
		},
	}
	if order.SignatureRequired {
		req.Options = append(req.Options, "SO")
	}
	if order.Insurance {
		req.Options = append(req.Options, "COV")
	}

	resp, err := c.apiClient.GetRates(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, span, "rates", err)
	}

	rates := make([]shipper.ShippingRate, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		rates = append(rates, shipper.ShippingRate{
			Carrier:           carrier,
			ServiceCode:       r.ServiceCode,
			ServiceName:       r.ServiceName,
			Price:             r.TotalPrice,
			Currency:          currency,
			TransitDays:       r.ExpectedTransit,
			EstimatedDelivery: parseDate(r.ExpectedDelivery),
		})
	}
	span.SetAttributes(attribute.Int("rates.count", len(rates)))
	return rates, nil
}

// CreateShipment creates a shipment with Canada Post.
func (c *Client) CreateShipment(ctx context.Context, order *shipper.ShippingOrder) (*shipper.ShipmentResult, error) {
	ctx, span := c.tracer.Start(ctx, "canadapost.CreateShipment")
	defer span.End()

	service := order.Service
	if service == "" {
		service = c.config.DefaultService
	}
	if service == "" {
		service = defaultService
	}

	c.logger.Ctx(ctx).Info("Creating Canada Post shipment",
		zap.String("order_id", order.OrderID),
		zap.String("service", service),
		zap.String("recipient", order.Destination.Name),
	)

	req := &ShipmentRequest{
		CustomerNumber:   c.config.Credential(shipper.CredAccountNumber),
		GroupID:          order.OrderID,
		ServiceCode:      service,
		Sender:           addressToAPI(order.Origin),
		Destination:      addressToAPI(order.Destination),
		ParcelWeight:     order.TotalWeight(),
		ParcelDimensions: firstDimensions(order),
	}
	if order.SignatureRequired {
		req.Options = append(req.Options, Option{Code: "SO"})
	}
	if order.Insurance {
		req.Options = append(req.Options, Option{Code: "COV", Amount: order.DeclaredValue})
	}
	if order.CashOnDelivery {
		req.Options = append(req.Options, Option{Code: "COD", Amount: order.DeclaredValue})
	}

	resp, err := c.apiClient.CreateShipment(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, span, "create_shipment", err)
	}

	result := &shipper.ShipmentResult{
		TrackingNumber:    resp.TrackingPIN,
		Service:           service,
		Price:             resp.TotalCharged,
		Currency:          currency,
		TrackingURL:       trackingURL(resp.TrackingPIN),
		EstimatedDelivery: parseDate(resp.ExpectedDelivery),
	}
	for _, link := range resp.Links {
		if link.Rel == "label" {
			result.LabelURL = link.Href
		}
	}
	return result, nil
}

// TrackShipment looks up a PIN at Canada Post.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (*shipper.TrackingSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "canadapost.TrackShipment")
	defer span.End()

	resp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		return nil, c.fail(ctx, span, "tracking", err)
	}

	snapshot := &shipper.TrackingSnapshot{
		TrackingNumber:    trackingNumber,
		Status:            shipper.StatusPending,
		EstimatedDelivery: parseDate(resp.ExpectedDelivery),
		ActualDelivery:    parseDate(resp.ActualDelivery),
		Events:            make([]shipper.TrackingEvent, 0, len(resp.Events)),
	}
	for _, e := range resp.Events {
		snapshot.Events = append(snapshot.Events, shipper.TrackingEvent{
			Timestamp:   parseEventTime(e.Date, e.Time),
			Type:        e.Identifier,
			Description: e.Description,
			Location:    joinLocation(e.Site, e.Province),
			Status:      mapEventStatus(e.Identifier, e.Description),
		})
	}
	// Canada Post lists the most recent event first.
	if len(snapshot.Events) > 0 {
		snapshot.Status = snapshot.Events[0].Status
	}
	if snapshot.ActualDelivery != nil {
		snapshot.Status = shipper.StatusDelivered
	}
	return snapshot, nil
}

// Validate checks the credentials with a service discovery call.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	if c.config.Credential(shipper.CredAPIKey) == "" || c.config.Credential(shipper.CredAccountNumber) == "" {
		return false, nil
	}

	_, err := c.apiClient.DiscoverServices(ctx, "CA")
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		// The gateway answered; the configuration is what is wrong.
		c.logger.Ctx(ctx).Warn("Canada Post rejected credentials", zap.String("code", apiErr.Code))
		return false, nil
	}
	return false, toProviderError(err)
}

// ============================================================================
// Conversion helpers
// ============================================================================

func (c *Client) fail(ctx context.Context, span trace.Span, op string, err error) error {
	pe := toProviderError(err)
	span.RecordError(pe)
	span.SetStatus(codes.Error, pe.Code)
	c.logger.Ctx(ctx).Error("Canada Post API error",
		zap.String("operation", op),
		zap.String("code", pe.Code),
		zap.Error(err),
	)
	return pe
}

func toProviderError(err error) *shipper.ProviderError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shipper.AsProviderError(carrier, err)
	}

	pe := shipper.NewProviderError(carrier, apiErr.Code, apiErr.Description).
		WithStatusCode(apiErr.StatusCode).
		WithCause(err)
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		pe.Code = shipper.CodeAuthentication
	case apiErr.StatusCode == http.StatusTooManyRequests:
		pe.Code = shipper.CodeRateLimited
		pe.Retryable = true
	case apiErr.StatusCode >= 500:
		pe.Retryable = true
	}
	return pe
}

func addressToAPI(addr shipper.Address) Address {
	return Address{
		Name:         addr.Name,
		Company:      addr.Company,
		AddressLine1: addr.Line1,
		AddressLine2: addr.Line2,
		City:         addr.City,
		Province:     addr.ProvinceCode,
		PostalCode:   addr.PostalCode,
		CountryCode:  addr.CountryCode,
		Phone:        addr.Phone,
		Email:        addr.Email,
	}
}

func firstDimensions(order *shipper.ShippingOrder) Dimensions {
	if len(order.Packages) == 0 {
		return Dimensions{}
	}
	l, w, h := order.Packages[0].Centimetres()
	return Dimensions{Length: l, Width: w, Height: h}
}

func trackingURL(pin string) string {
	if pin == "" {
		return ""
	}
	return "https://www.canadapost-postescanada.ca/track-reperage/en#/details/" + pin
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func parseEventTime(date, clock string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock); err == nil {
		return t
	}
	if t := parseDate(date); t != nil {
		return *t
	}
	return time.Time{}
}

func joinLocation(site, province string) string {
	switch {
	case site == "":
		return province
	case province == "":
		return site
	default:
		return site + ", " + province
	}
}

var deliveredEvents = map[string]struct{}{
	"1421": {}, "1422": {}, "1423": {}, "1496": {}, "1497": {}, "1498": {},
}

func mapEventStatus(identifier, description string) shipper.ShipmentStatus {
	if _, ok := deliveredEvents[identifier]; ok {
		return shipper.StatusDelivered
	}
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "out for delivery"):
		return shipper.StatusOutForDelivery
	case strings.Contains(d, "delivered"):
		return shipper.StatusDelivered
	case strings.Contains(d, "attempt"), strings.Contains(d, "notice card"), strings.Contains(d, "return to sender"):
		return shipper.StatusException
	case strings.Contains(d, "electronic information"), strings.Contains(d, "accepted"):
		return shipper.StatusPreparing
	default:
		return shipper.StatusInTransit
	}
}

var _ shipper.Adapter = (*Client)(nil)
