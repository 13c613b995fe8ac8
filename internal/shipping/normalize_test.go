package shipping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func ord100() *domain.Order {
	return &domain.Order{
		ID:              "ORD-100",
		Number:          "100",
		Status:          "paid",
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		ShippingAddress: `{"name":"Jane Doe","line1":"Invalidenstr. 116","city":"Berlin","postalCode":"10115","countryCode":"DE"}`,
		Currency:        "EUR",
		Total:           35,
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Socks", Quantity: 2, UnitPrice: 10, Total: 20, Weight: ptr(0.5)},
			{ProductID: "p2", Name: "Poster", Quantity: 1, UnitPrice: 15, Total: 15},
		},
	}
}

func shipperConfig() shipper.ProviderConfig {
	return shipper.ProviderConfig{
		Provider: shipper.CarrierDHL,
		Enabled:  true,
		ShipperAddress: shipper.Address{
			Name:        "Warehouse",
			Line1:       "Lagerweg 1",
			City:        "Leipzig",
			PostalCode:  "04109",
			CountryCode: "DE",
		},
		Features: shipper.Features{Insurance: true},
	}
}

func newNormalizer() *shipping.Normalizer {
	return shipping.NewNormalizer("AT", otelzap.New(zap.NewNop()))
}

func TestAggregateItems_ORD100(t *testing.T) {
	weight, value := shipping.AggregateItems(ord100().Items)

	assert.InDelta(t, 2.0, weight, 1e-9)
	assert.InDelta(t, 35.0, value, 1e-9)
}

func TestAggregateItems(t *testing.T) {
	tests := []struct {
		name       string
		items      []domain.OrderItem
		wantWeight float64
		wantValue  float64
	}{
		{name: "no items", items: nil, wantWeight: 0, wantValue: 0},
		{
			name:       "known weights",
			items:      []domain.OrderItem{{Quantity: 3, Weight: ptr(0.25), Total: 9}, {Quantity: 1, Weight: ptr(2.0), Total: 40}},
			wantWeight: 2.75,
			wantValue:  49,
		},
		{
			name:       "zero and negative weights count as unknown",
			items:      []domain.OrderItem{{Quantity: 2, Weight: ptr(0.0)}, {Quantity: 1, Weight: ptr(-1.0)}},
			wantWeight: 3,
		},
		{
			name:       "missing line total uses unit price",
			items:      []domain.OrderItem{{Quantity: 2, UnitPrice: 3}},
			wantWeight: 2,
			wantValue:  6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weight, value := shipping.AggregateItems(tt.items)
			assert.InDelta(t, tt.wantWeight, weight, 1e-9)
			assert.InDelta(t, tt.wantValue, value, 1e-9)
		})
	}
}

func TestParseDestination(t *testing.T) {
	order := &domain.Order{CustomerName: "Jane Doe", CustomerPhone: "+49 30 1234", CustomerEmail: "jane@example.com"}

	t.Run("structured document", func(t *testing.T) {
		dest, err := shipping.ParseDestination(
			`{"firstName":"Max","lastName":"Muster","address1":"Ring 3","city":"Wien","zip":"1010"}`, order, "AT")
		require.NoError(t, err)

		structured, ok := dest.(shipping.StructuredAddress)
		require.True(t, ok, "expected StructuredAddress, got %T", dest)
		assert.Equal(t, "Max Muster", structured.Address.Name)
		assert.Equal(t, "Ring 3", structured.Address.Line1)
		assert.Equal(t, "1010", structured.Address.PostalCode)
		assert.Equal(t, "AT", structured.Address.CountryCode)
		assert.Equal(t, "jane@example.com", structured.Address.Email)
	})

	t.Run("free text falls back", func(t *testing.T) {
		dest, err := shipping.ParseDestination("Hauptstr. 5, Hinterhaus, 10115 Berlin", order, "DE")
		require.NoError(t, err)

		fallback, ok := dest.(shipping.RawAddressFallback)
		require.True(t, ok, "expected RawAddressFallback, got %T", dest)
		addr := fallback.ShipTo()
		assert.Equal(t, "Jane Doe", addr.Name)
		assert.Equal(t, "Hauptstr. 5", addr.Line1)
		assert.Equal(t, "Hinterhaus", addr.Line2)
		assert.Equal(t, "10115 Berlin", addr.City)
		assert.Equal(t, "DE", addr.CountryCode)
		assert.Equal(t, "+49 30 1234", addr.Phone)
	})

	t.Run("broken json is free text", func(t *testing.T) {
		dest, err := shipping.ParseDestination(`{"line1": "Ring 3"`, order, "DE")
		require.NoError(t, err)
		assert.IsType(t, shipping.RawAddressFallback{}, dest)
	})

	t.Run("stored country must be a code", func(t *testing.T) {
		_, err := shipping.ParseDestination(`{"line1":"Ring 3","city":"Berlin","zip":"10115","country":"Germany"}`, order, "AT")
		var ve *shipping.ValidationError
		require.True(t, errors.As(err, &ve), "got %v", err)
		assert.Contains(t, ve.Fields, "destination.countryCode")
	})

	t.Run("stored country is upper-cased", func(t *testing.T) {
		dest, err := shipping.ParseDestination(`{"line1":"Ring 3","city":"Berlin","zip":"10115","country":"de"}`, order, "AT")
		require.NoError(t, err)
		assert.Equal(t, "DE", dest.ShipTo().CountryCode)
	})

	for _, raw := range []string{"", "   ", "{}"} {
		t.Run("missing "+raw, func(t *testing.T) {
			_, err := shipping.ParseDestination(raw, order, "DE")
			var ve *shipping.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "destination address required", ve.Message)
		})
	}
}

func TestNormalizer_FromOrder(t *testing.T) {
	n := newNormalizer()

	t.Run("ORD-100", func(t *testing.T) {
		order, err := n.FromOrder(context.Background(), ord100(), shipperConfig(), shipping.Options{})
		require.NoError(t, err)

		require.Len(t, order.Packages, 1)
		assert.InDelta(t, 2.0, order.Packages[0].Weight, 1e-9)
		assert.Equal(t, shipper.WeightKG, order.Packages[0].WeightUnit)
		assert.Equal(t, 30.0, order.Packages[0].Length)
		assert.Equal(t, 35.0, order.DeclaredValue)
		assert.Equal(t, "Warehouse", order.Origin.Name)
		assert.Equal(t, "Berlin", order.Destination.City)
		assert.True(t, order.Insurance, "feature default applies")
		assert.False(t, order.SignatureRequired)
	})

	t.Run("zero weight uses provider default", func(t *testing.T) {
		cfg := shipperConfig()
		cfg.Defaults = shipper.PackageDefaults{Weight: 2.5, Length: 40, Width: 30, Height: 20}
		cfg.DefaultService = "N"
		stored := ord100()
		stored.Items = nil
		stored.Currency = ""

		order, err := n.FromOrder(context.Background(), stored, cfg, shipping.Options{
			Insurance:         ptr(false),
			SignatureRequired: ptr(true),
			Dimensions:        &shipping.Dimensions{Length: 10, Width: 10, Height: 10},
		})
		require.NoError(t, err)

		assert.Equal(t, 2.5, order.Packages[0].Weight)
		assert.Equal(t, 10.0, order.Packages[0].Length)
		assert.Equal(t, 35.0, order.DeclaredValue, "falls back to the order total")
		assert.Equal(t, "EUR", order.Currency)
		assert.Equal(t, "N", order.Service)
		assert.False(t, order.Insurance)
		assert.True(t, order.SignatureRequired)
	})

	t.Run("free text address is not an error", func(t *testing.T) {
		stored := ord100()
		stored.ShippingAddress = "Invalidenstr. 116\nBerlin"

		order, err := n.FromOrder(context.Background(), stored, shipperConfig(), shipping.Options{})
		require.NoError(t, err)
		assert.Equal(t, "Invalidenstr. 116", order.Destination.Line1)
		assert.Equal(t, "DE", order.Destination.CountryCode, "shipper country wins over the global default")
	})

	t.Run("no address", func(t *testing.T) {
		stored := ord100()
		stored.ShippingAddress = ""

		_, err := n.FromOrder(context.Background(), stored, shipperConfig(), shipping.Options{})
		var ve *shipping.ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestNormalizer_FromInput(t *testing.T) {
	n := newNormalizer()
	dest := shipper.Address{Name: "Jane", Line1: "Ring 3", City: "Wien", PostalCode: "1010"}

	t.Run("missing destination", func(t *testing.T) {
		_, err := n.FromInput(shipping.ShipmentInput{}, shipperConfig())
		var ve *shipping.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "destination address required", ve.Message)
	})

	t.Run("incomplete destination", func(t *testing.T) {
		_, err := n.FromInput(shipping.ShipmentInput{Destination: &shipper.Address{Name: "Jane"}}, shipperConfig())
		var ve *shipping.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Message, "line1")
	})

	t.Run("packages are completed", func(t *testing.T) {
		order, err := n.FromInput(shipping.ShipmentInput{
			Destination: &dest,
			Packages:    []shipper.Package{{Weight: 0}, {Weight: 3, WeightUnit: shipper.WeightLB, Length: 5, Width: 5, Height: 5}},
		}, shipperConfig())
		require.NoError(t, err)

		require.Len(t, order.Packages, 2)
		assert.Equal(t, shipper.DefaultPackageWeight, order.Packages[0].Weight)
		assert.Equal(t, shipper.DefaultPackageLength, order.Packages[0].Length)
		assert.Equal(t, shipper.WeightLB, order.Packages[1].WeightUnit)
		assert.Equal(t, 5.0, order.Packages[1].Length)
		assert.Equal(t, shipper.DimensionCM, order.Packages[1].DimensionUnit)
		assert.Equal(t, "DE", order.Destination.CountryCode)
	})

	t.Run("items drive the weight", func(t *testing.T) {
		order, err := n.FromInput(shipping.ShipmentInput{Destination: &dest, Items: ord100().Items}, shipperConfig())
		require.NoError(t, err)
		assert.InDelta(t, 2.0, order.TotalWeight(), 1e-9)
		assert.Equal(t, 35.0, order.DeclaredValue)
	})

	t.Run("malformed country is rejected", func(t *testing.T) {
		for _, cc := range []string{"DEU", "Germany", "D", "1A"} {
			bad := dest
			bad.CountryCode = cc
			_, err := n.FromInput(shipping.ShipmentInput{Destination: &bad}, shipperConfig())
			var ve *shipping.ValidationError
			require.True(t, errors.As(err, &ve), "%s: got %v", cc, err)
			assert.Contains(t, ve.Fields, "destination.countryCode")
		}
	})

	t.Run("explicit country is kept", func(t *testing.T) {
		at := dest
		at.CountryCode = "at"
		order, err := n.FromInput(shipping.ShipmentInput{Destination: &at}, shipperConfig())
		require.NoError(t, err)
		assert.Equal(t, "AT", order.Destination.CountryCode)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := n.FromInput(shipping.ShipmentInput{Destination: &dest, Weight: -1}, shipperConfig())
		var ve *shipping.ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}
