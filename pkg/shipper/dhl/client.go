// Package dhl provides integration with the DHL Express (MyDHL) API.
package dhl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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
	carrier = shipper.CarrierDHL

	productionURL = "https://express.api.dhl.com/mydhlapi"
	sandboxURL    = "https://express.api.dhl.com/mydhlapi/test"

	defaultProduct = "P"
	unitMetric     = "metric"
)

// Client is the DHL Express adapter.
type Client struct {
	config    shipper.ProviderConfig
	apiClient APIClient
	baseURL   string
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a DHL adapter talking to the production or test gateway.
func New(cfg shipper.ProviderConfig, timeout time.Duration, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	apiClient := NewHTTPAPIClient(HTTPAPIClientConfig{
		BaseURL:   baseURLFor(cfg),
		APIKey:    cfg.Credential(shipper.CredAPIKey),
		APISecret: cfg.Credential(shipper.CredAPISecret),
		Timeout:   timeout,
	})
	return NewWithAPIClient(cfg, apiClient, logger, tracer)
}

// NewWithAPIClient creates a DHL adapter with a custom API client.
func NewWithAPIClient(cfg shipper.ProviderConfig, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		baseURL:   strings.TrimRight(baseURLFor(cfg), "/"),
		logger:    logger,
		tracer:    tracer,
	}
}

func baseURLFor(cfg shipper.ProviderConfig) string {
	if u := cfg.Credential(shipper.CredBaseURL); u != "" {
		return u
	}
	if cfg.Sandbox {
		return sandboxURL
	}
	return productionURL
}

// Carrier returns the carrier identifier.
func (c *Client) Carrier() shipper.Carrier {
	return carrier
}

// GetRates returns the DHL products available for the order.
func (c *Client) GetRates(ctx context.Context, order *shipper.ShippingOrder) ([]shipper.ShippingRate, error) {
	ctx, span := c.tracer.Start(ctx, "dhl.GetRates")
	defer span.End()

	c.logger.Ctx(ctx).Info("Getting DHL rates",
		zap.String("order_id", order.OrderID),
		zap.String("origin_country", order.Origin.CountryCode),
		zap.String("destination_country", order.Destination.CountryCode),
		zap.Int("package_count", len(order.Packages)),
	)

	req := &RateRequest{
		CustomerDetails: RateCustomerDetails{
			ShipperDetails:  rateAddress(order.Origin),
			ReceiverDetails: rateAddress(order.Destination),
		},
		Accounts:                   c.accounts(),
		PlannedShippingDateAndTime: plannedShipping(time.Now()),
		UnitOfMeasurement:          unitMetric,
		IsCustomsDeclarable:        isCustomsDeclarable(order),
		Packages:                   packagesToAPI(order.Packages),
		ValueAddedServices:         valueAddedServices(order),
	}

	resp, err := c.apiClient.GetRates(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, span, "rates", err)
	}

	rates := make([]shipper.ShippingRate, 0, len(resp.Products))
	for _, p := range resp.Products {
		price, cur := billingPrice(p.TotalPrice)
		transit, _ := strconv.Atoi(p.DeliveryCapabilities.TotalTransitDays)
		rates = append(rates, shipper.ShippingRate{
			Carrier:           carrier,
			ServiceCode:       p.ProductCode,
			ServiceName:       p.ProductName,
			Price:             price,
			Currency:          cur,
			TransitDays:       transit,
			EstimatedDelivery: parseTimestamp(p.DeliveryCapabilities.EstimatedDeliveryDateAndTime),
		})
	}
	span.SetAttributes(attribute.Int("rates.count", len(rates)))
	return rates, nil
}

// CreateShipment books a DHL shipment.
func (c *Client) CreateShipment(ctx context.Context, order *shipper.ShippingOrder) (*shipper.ShipmentResult, error) {
	ctx, span := c.tracer.Start(ctx, "dhl.CreateShipment")
	defer span.End()

	product := order.Service
	if product == "" {
		product = c.config.DefaultService
	}
	if product == "" {
		product = defaultProduct
	}

	c.logger.Ctx(ctx).Info("Creating DHL shipment",
		zap.String("order_id", order.OrderID),
		zap.String("product", product),
		zap.String("recipient", order.Destination.Name),
	)

	req := &ShipmentRequest{
		PlannedShippingDateAndTime: plannedShipping(time.Now()),
		ProductCode:                product,
		Accounts:                   c.accounts(),
		ValueAddedServices:         valueAddedServices(order),
		CustomerDetails: ShipmentCustomerDetails{
			ShipperDetails:  partyToAPI(order.Origin),
			ReceiverDetails: partyToAPI(order.Destination),
		},
		Content: Content{
			Packages:            packagesToAPI(order.Packages),
			IsCustomsDeclarable: isCustomsDeclarable(order),
			Description:         "Order " + order.OrderID,
			UnitOfMeasurement:   unitMetric,
		},
	}
	if req.Content.IsCustomsDeclarable {
		req.Content.DeclaredValue = order.DeclaredValue
		req.Content.DeclaredValueCurrency = order.Currency
	}
	if order.OrderID != "" {
		req.CustomerReferences = []CustomerReference{{Value: order.OrderID, TypeCode: "CU"}}
	}

	resp, err := c.apiClient.CreateShipment(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, span, "create_shipment", err)
	}

	price, cur := billingPrice(resp.ShipmentCharges)
	result := &shipper.ShipmentResult{
		TrackingNumber:    resp.ShipmentTrackingNumber,
		Service:           product,
		Price:             price,
		Currency:          cur,
		LabelURL:          c.labelURL(resp.ShipmentTrackingNumber),
		TrackingURL:       resp.TrackingURL,
		EstimatedDelivery: parseTimestamp(resp.EstimatedDeliveryDate.EstimatedDeliveryDate),
	}
	if result.TrackingURL == "" {
		result.TrackingURL = trackingURL(resp.ShipmentTrackingNumber)
	}
	return result, nil
}

// TrackShipment returns the DHL checkpoint history of a shipment.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (*shipper.TrackingSnapshot, error) {
	ctx, span := c.tracer.Start(ctx, "dhl.TrackShipment")
	defer span.End()

	resp, err := c.apiClient.GetTracking(ctx, trackingNumber)
	if err != nil {
		return nil, c.fail(ctx, span, "tracking", err)
	}

	snapshot := &shipper.TrackingSnapshot{
		TrackingNumber: trackingNumber,
		Status:         shipper.StatusPending,
	}
	if len(resp.Shipments) == 0 {
		return snapshot, nil
	}

	tracked := resp.Shipments[0]
	snapshot.EstimatedDelivery = parseTimestamp(tracked.EstimatedDeliveryDate)
	snapshot.Events = make([]shipper.TrackingEvent, 0, len(tracked.Events))
	var latest time.Time
	for _, e := range tracked.Events {
		ev := shipper.TrackingEvent{
			Timestamp:   parseEventTime(e.Date, e.Time),
			Type:        e.TypeCode,
			Description: e.Description,
			Location:    eventLocation(e.ServiceArea),
			Status:      mapEventStatus(e.TypeCode),
		}
		snapshot.Events = append(snapshot.Events, ev)
		// DHL orders checkpoints oldest first, but not reliably.
		if !ev.Timestamp.Before(latest) {
			latest = ev.Timestamp
			snapshot.Status = ev.Status
		}
		if ev.Status == shipper.StatusDelivered {
			ts := ev.Timestamp
			snapshot.ActualDelivery = &ts
		}
	}
	if snapshot.ActualDelivery != nil {
		snapshot.Status = shipper.StatusDelivered
	}
	return snapshot, nil
}

// Validate checks the credentials with an address validation call against
// the configured shipper address.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	if c.config.Credential(shipper.CredAPIKey) == "" || c.config.Credential(shipper.CredAPISecret) == "" {
		return false, nil
	}

	addr := c.config.ShipperAddress
	country, postal, city := addr.CountryCode, addr.PostalCode, addr.City
	if country == "" {
		country, postal, city = "DE", "53113", "Bonn"
	}

	err := c.apiClient.ValidateAddress(ctx, country, postal, city)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		c.logger.Ctx(ctx).Warn("DHL rejected credentials", zap.Int("status", apiErr.StatusCode))
		return false, nil
	}
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		// Authenticated, the sample address was simply not accepted.
		return true, nil
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
	c.logger.Ctx(ctx).Error("DHL API error",
		zap.String("operation", op),
		zap.String("code", pe.Code),
		zap.Error(err),
	)
	return pe
}

func (c *Client) accounts() []Account {
	number := c.config.Credential(shipper.CredAccountNumber)
	if number == "" {
		return nil
	}
	return []Account{{TypeCode: "shipper", Number: number}}
}

func (c *Client) labelURL(trackingNumber string) string {
	if trackingNumber == "" {
		return ""
	}
	return fmt.Sprintf("%s/shipments/%s/get-image?typeCode=label", c.baseURL, url.PathEscape(trackingNumber))
}

func toProviderError(err error) *shipper.ProviderError {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return shipper.AsProviderError(carrier, err)
	}

	message := apiErr.Detail
	if message == "" {
		message = apiErr.Title
	}
	pe := shipper.NewProviderError(carrier, shipper.CodeCarrierError, message).
		WithStatusCode(apiErr.StatusCode).
		WithCause(err)
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		pe.Code = shipper.CodeAuthentication
	case apiErr.StatusCode == http.StatusTooManyRequests:
		pe.Code = shipper.CodeRateLimited
		pe.Retryable = true
	case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
		pe.Code = shipper.CodeBadRequest
	case apiErr.StatusCode >= 500:
		pe.Retryable = true
	}
	return pe
}

func rateAddress(addr shipper.Address) RateAddress {
	return RateAddress{
		PostalCode:  addr.PostalCode,
		CityName:    addr.City,
		CountryCode: addr.CountryCode,
	}
}

func partyToAPI(addr shipper.Address) Party {
	company := addr.Company
	if company == "" {
		company = addr.Name
	}
	return Party{
		PostalAddress: PostalAddress{
			PostalCode:   addr.PostalCode,
			CityName:     addr.City,
			CountryCode:  addr.CountryCode,
			ProvinceCode: addr.ProvinceCode,
			AddressLine1: addr.Line1,
			AddressLine2: addr.Line2,
		},
		ContactInformation: ContactInformation{
			FullName:    addr.Name,
			CompanyName: company,
			Phone:       addr.Phone,
			Email:       addr.Email,
		},
	}
}

func packagesToAPI(pkgs []shipper.Package) []Package {
	out := make([]Package, 0, len(pkgs))
	for _, p := range pkgs {
		l, w, h := p.Centimetres()
		out = append(out, Package{
			Weight:     round3(p.Kilograms()),
			Dimensions: Dimensions{Length: l, Width: w, Height: h},
		})
	}
	return out
}

func valueAddedServices(order *shipper.ShippingOrder) []ValueAddedService {
	var services []ValueAddedService
	if order.Insurance {
		services = append(services, ValueAddedService{ServiceCode: "II", Value: order.DeclaredValue, Currency: order.Currency})
	}
	if order.SignatureRequired {
		services = append(services, ValueAddedService{ServiceCode: "SF"})
	}
	if order.CashOnDelivery {
		services = append(services, ValueAddedService{ServiceCode: "KB", Value: order.DeclaredValue, Currency: order.Currency})
	}
	return services
}

func isCustomsDeclarable(order *shipper.ShippingOrder) bool {
	return order.Origin.CountryCode != "" && order.Destination.CountryCode != "" &&
		order.Origin.CountryCode != order.Destination.CountryCode
}

// billingPrice picks the price in billing currency, falling back to the first entry.
func billingPrice(prices []Price) (float64, string) {
	for _, p := range prices {
		if p.CurrencyType == "BILLC" {
			return p.Price, p.PriceCurrency
		}
	}
	if len(prices) > 0 {
		return prices[0].Price, prices[0].PriceCurrency
	}
	return 0, ""
}

func plannedShipping(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05") + " GMT+00:00"
}

func trackingURL(trackingNumber string) string {
	if trackingNumber == "" {
		return ""
	}
	return "https://www.dhl.com/global-en/home/tracking.html?tracking-id=" + trackingNumber
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseEventTime(date, clock string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock); err == nil {
		return t
	}
	if t := parseTimestamp(date); t != nil {
		return *t
	}
	return time.Time{}
}

func eventLocation(areas []ServiceArea) string {
	if len(areas) == 0 {
		return ""
	}
	if areas[0].Description != "" {
		return areas[0].Description
	}
	return areas[0].Code
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

func mapEventStatus(typeCode string) shipper.ShipmentStatus {
	switch strings.ToUpper(typeCode) {
	case "OK", "DD":
		return shipper.StatusDelivered
	case "WC":
		return shipper.StatusOutForDelivery
	case "SA", "SD":
		return shipper.StatusPreparing
	case "OH", "CA", "NH", "BA", "RT", "MS", "CM", "RD":
		return shipper.StatusException
	default:
		return shipper.StatusInTransit
	}
}

var _ shipper.Adapter = (*Client)(nil)
