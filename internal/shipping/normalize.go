package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// UnknownItemWeight is the weight assumed for one unit of an item whose
// product has no known weight.
const UnknownItemWeight = 1.0

// DefaultCurrency is used when neither the request nor the order has one.
const DefaultCurrency = "EUR"

// AggregateItems returns the total weight (Σ weight×quantity, with
// UnknownItemWeight for items without a positive weight) and the total value
// (Σ line totals) of items.
func AggregateItems(items []domain.OrderItem) (weight, value float64) {
	for _, item := range items {
		w := UnknownItemWeight
		if item.Weight != nil && *item.Weight > 0 {
			w = *item.Weight
		}
		weight += w * float64(item.Quantity)

		total := item.Total
		if total == 0 {
			total = item.UnitPrice * float64(item.Quantity)
		}
		value += total
	}
	return weight, value
}

// Destination is the parsed shipping address of an order: either a
// StructuredAddress or a RawAddressFallback.
type Destination interface {
	ShipTo() shipper.Address
	isDestination()
}

// StructuredAddress is a destination decoded from a stored address document.
type StructuredAddress struct {
	Address shipper.Address
}

// ShipTo returns the address.
func (d StructuredAddress) ShipTo() shipper.Address { return d.Address }
func (StructuredAddress) isDestination()            {}

// RawAddressFallback is a destination built from free text and order fields.
// It is degraded but usable.
type RawAddressFallback struct {
	Raw     string
	Address shipper.Address
}

// ShipTo returns the best-effort address.
func (d RawAddressFallback) ShipTo() shipper.Address { return d.Address }
func (RawAddressFallback) isDestination()            {}

// storedAddress accepts the field spellings found in stored order addresses.
type storedAddress struct {
	Name         string `json:"name"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Company      string `json:"company"`
	Line1        string `json:"line1"`
	Address1     string `json:"address1"`
	Street       string `json:"street"`
	Address      string `json:"address"`
	Line2        string `json:"line2"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ProvinceCode string `json:"provinceCode"`
	Province     string `json:"province"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Zip          string `json:"zip"`
	ZipCode      string `json:"zipCode"`
	CountryCode  string `json:"countryCode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

// ParseDestination decodes the stored shipping address of order. A JSON
// document yields a StructuredAddress; anything else yields a
// RawAddressFallback completed from the order's customer fields.
func ParseDestination(raw string, order *domain.Order, defaultCountry string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, NewValidationError("destination address required")
	}
	if order == nil {
		order = &domain.Order{}
	}

	if strings.HasPrefix(raw, "{") {
		var s storedAddress
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			country, err := countryCode(coalesce(s.CountryCode, s.Country), defaultCountry)
			if err != nil {
				return nil, err
			}
			addr := shipper.Address{
				Name:         coalesce(s.Name, strings.TrimSpace(s.FirstName+" "+s.LastName), order.CustomerName),
				Company:      s.Company,
				Line1:        coalesce(s.Line1, s.Address1, s.Street, s.Address),
				Line2:        coalesce(s.Line2, s.Address2),
				City:         s.City,
				ProvinceCode: coalesce(s.ProvinceCode, s.Province, s.State),
				PostalCode:   coalesce(s.PostalCode, s.Zip, s.ZipCode),
				CountryCode:  country,
				Phone:        coalesce(s.Phone, order.CustomerPhone),
				Email:        coalesce(s.Email, order.CustomerEmail),
			}
			if addr.Line1 == "" && addr.City == "" && addr.PostalCode == "" {
				return nil, NewValidationError("destination address required")
			}
			return StructuredAddress{Address: addr}, nil
		}
	}

	parts := splitAddress(raw)
	addr := shipper.Address{
		Name:        order.CustomerName,
		Line1:       parts[0],
		CountryCode: strings.ToUpper(strings.TrimSpace(defaultCountry)),
		Phone:       order.CustomerPhone,
		Email:       order.CustomerEmail,
	}
	if len(parts) > 1 {
		addr.City = parts[len(parts)-1]
	}
	if len(parts) > 2 {
		addr.Line2 = strings.Join(parts[1:len(parts)-1], ", ")
	}
	return RawAddressFallback{Raw: raw, Address: addr}, nil
}

func splitAddress(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == ',' })
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return []string{raw}
	}
	return parts
}

// countryCode returns code upper-cased, or fallback when code is empty. A
// non-empty code must be two ASCII letters.
func countryCode(code, fallback string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return strings.ToUpper(strings.TrimSpace(fallback)), nil
	}
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return "", &ValidationError{
			Message: fmt.Sprintf("destination country code %q must be a 2-letter ISO code", code),
			Fields:  map[string]string{"destination.countryCode": "must be a 2-letter ISO code"},
		}
	}
	return code, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Options are the caller-selected shipment options. Nil flags fall back to the
// provider's feature defaults.
type Options struct {
	Service           string
	Insurance         *bool
	SignatureRequired *bool
	CashOnDelivery    *bool
	// Dimensions overrides the configured package dimensions when set.
	Dimensions *Dimensions
}

// Dimensions of a package in the provider's configured dimension unit.
type Dimensions struct {
	Length float64
	Width  float64
	Height float64
}

// ShipmentInput is a caller-supplied order for quoting or direct creation.
type ShipmentInput struct {
	OrderID       string
	Destination   *shipper.Address
	Packages      []shipper.Package
	Items         []domain.OrderItem
	Weight        float64
	DeclaredValue float64
	Currency      string
	Options
}

// Normalizer turns partial shipment inputs into complete ShippingOrders.
type Normalizer struct {
	defaultCountry string
	logger         *otelzap.Logger
}

// NewNormalizer creates a normalizer. defaultCountry is used for addresses
// without a country when the provider has no shipper address country either.
func NewNormalizer(defaultCountry string, logger *otelzap.Logger) *Normalizer {
	return &Normalizer{defaultCountry: defaultCountry, logger: logger}
}

func (n *Normalizer) countryFor(cfg shipper.ProviderConfig) string {
	if cc := cfg.ShipperAddress.CountryCode; len(cc) == 2 {
		return cc
	}
	return n.defaultCountry
}

// FromOrder builds a ShippingOrder for a stored order.
func (n *Normalizer) FromOrder(ctx context.Context, order *domain.Order, cfg shipper.ProviderConfig, opts Options) (*shipper.ShippingOrder, error) {
	dest, err := ParseDestination(order.ShippingAddress, order, n.countryFor(cfg))
	if err != nil {
		return nil, err
	}
	if fb, ok := dest.(RawAddressFallback); ok {
		n.logger.Ctx(ctx).Warn("Order has an unstructured shipping address",
			zap.String("order_id", order.ID),
			zap.String("raw", fb.Raw),
		)
	}

	weight, value := AggregateItems(order.Items)
	if value == 0 {
		value = order.Total
	}

	out := &shipper.ShippingOrder{
		OrderID:       order.ID,
		Origin:        cfg.ShipperAddress,
		Destination:   dest.ShipTo(),
		Packages:      []shipper.Package{defaultPackage(cfg, weight, opts.Dimensions)},
		DeclaredValue: value,
		Currency:      coalesce(order.Currency, DefaultCurrency),
	}
	applyOptions(out, cfg, opts)
	return out, nil
}

// FromInput builds a ShippingOrder from a caller-supplied order.
func (n *Normalizer) FromInput(in ShipmentInput, cfg shipper.ProviderConfig) (*shipper.ShippingOrder, error) {
	if in.Destination == nil {
		return nil, NewValidationError("destination address required")
	}
	dest := *in.Destination
	country, err := countryCode(dest.CountryCode, n.countryFor(cfg))
	if err != nil {
		return nil, err
	}
	dest.CountryCode = country
	if err := dest.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error(), Fields: map[string]string{"destination": err.Error()}}
	}

	itemWeight, itemValue := AggregateItems(in.Items)

	var packages []shipper.Package
	if len(in.Packages) > 0 {
		defaults := cfg.PackageDefaults()
		for i, p := range in.Packages {
			if p.Weight < 0 || p.Length < 0 || p.Width < 0 || p.Height < 0 {
				return nil, NewValidationError("package %d has negative measurements", i+1)
			}
			if p.Weight == 0 {
				p.Weight, p.WeightUnit = defaults.Weight, defaults.WeightUnit
			}
			if p.WeightUnit == "" {
				p.WeightUnit = defaults.WeightUnit
			}
			if p.Length == 0 || p.Width == 0 || p.Height == 0 {
				p.Length, p.Width, p.Height = defaults.Length, defaults.Width, defaults.Height
				p.DimensionUnit = defaults.DimensionUnit
			}
			if p.DimensionUnit == "" {
				p.DimensionUnit = defaults.DimensionUnit
			}
			packages = append(packages, p)
		}
	} else {
		weight := in.Weight
		if weight < 0 {
			return nil, NewValidationError("weight must be positive")
		}
		if weight == 0 {
			weight = itemWeight
		}
		packages = []shipper.Package{defaultPackage(cfg, weight, in.Dimensions)}
	}

	value := in.DeclaredValue
	if value == 0 {
		value = itemValue
	}

	out := &shipper.ShippingOrder{
		OrderID:       in.OrderID,
		Origin:        cfg.ShipperAddress,
		Destination:   dest,
		Packages:      packages,
		DeclaredValue: value,
		Currency:      coalesce(in.Currency, DefaultCurrency),
	}
	applyOptions(out, cfg, in.Options)
	return out, nil
}

// defaultPackage builds the single package of an order. A zero weight falls
// back to the provider default.
func defaultPackage(cfg shipper.ProviderConfig, weight float64, dims *Dimensions) shipper.Package {
	d := cfg.PackageDefaults()
	if weight <= 0 {
		weight = d.Weight
	}
	p := shipper.Package{
		Weight:        weight,
		Length:        d.Length,
		Width:         d.Width,
		Height:        d.Height,
		WeightUnit:    d.WeightUnit,
		DimensionUnit: d.DimensionUnit,
	}
	if dims != nil && dims.Length > 0 && dims.Width > 0 && dims.Height > 0 {
		p.Length, p.Width, p.Height = dims.Length, dims.Width, dims.Height
	}
	return p
}

func applyOptions(order *shipper.ShippingOrder, cfg shipper.ProviderConfig, opts Options) {
	order.Service = coalesce(opts.Service, cfg.DefaultService)
	order.Insurance = flag(opts.Insurance, cfg.Features.Insurance)
	order.SignatureRequired = flag(opts.SignatureRequired, cfg.Features.Signature)
	order.CashOnDelivery = flag(opts.CashOnDelivery, cfg.Features.CashOnDelivery)
}

func flag(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

// isValidation reports whether err is a ValidationError.
func isValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
