package shipper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/shipper"
)

func TestParseShipmentStatus(t *testing.T) {
	tests := []struct {
		in   string
		want shipper.ShipmentStatus
	}{
		{"delivered", shipper.StatusDelivered},
		{"DELIVERED", shipper.StatusDelivered},
		{"Out-For-Delivery", shipper.StatusOutForDelivery},
		{"in transit", shipper.StatusInTransit},
		{" exception ", shipper.StatusException},
		{"failed", shipper.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := shipper.ParseShipmentStatus(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := shipper.ParseShipmentStatus("teleported")
	assert.ErrorIs(t, err, shipper.ErrUnknownStatus)
}

func TestShipmentStatus_Notifiable(t *testing.T) {
	assert.True(t, shipper.StatusDelivered.Notifiable())
	assert.True(t, shipper.StatusOutForDelivery.Notifiable())
	assert.True(t, shipper.StatusInTransit.Notifiable())
	assert.False(t, shipper.StatusPending.Notifiable())
	assert.False(t, shipper.StatusPreparing.Notifiable())
	assert.False(t, shipper.StatusException.Notifiable())
	assert.False(t, shipper.StatusFailed.Notifiable())
}

func TestShipmentStatus_IsTerminal(t *testing.T) {
	assert.True(t, shipper.StatusDelivered.IsTerminal())
	assert.False(t, shipper.StatusException.IsTerminal())
}

func TestAddress_Validate(t *testing.T) {
	addr := shipper.Address{
		Name:        "Erika Mustermann",
		Line1:       "Heidestrasse 17",
		City:        "Koeln",
		PostalCode:  "51147",
		CountryCode: "DE",
	}
	assert.NoError(t, addr.Validate())
	assert.True(t, addr.IsShippable())

	addr.CountryCode = "DEU"
	assert.ErrorIs(t, addr.Validate(), shipper.ErrInvalidAddress)

	err := shipper.Address{CountryCode: "DE"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name, line1, city, postalCode")
}

func TestProviderConfig_Redacted(t *testing.T) {
	cfg := shipper.ProviderConfig{
		Provider: shipper.CarrierDHL,
		Credentials: map[string]string{
			shipper.CredAPIKey:        "key",
			shipper.CredAPISecret:     "secret",
			shipper.CredAccountNumber: "123456789",
			"webhook_token":           "tok",
		},
	}

	redacted := cfg.Redacted()
	assert.Equal(t, map[string]string{shipper.CredAccountNumber: "123456789"}, redacted.Credentials)
	assert.Len(t, cfg.Credentials, 4, "original must be untouched")
}

func TestProviderConfig_PackageDefaults(t *testing.T) {
	d := shipper.ProviderConfig{Defaults: shipper.PackageDefaults{Weight: 2.5}}.PackageDefaults()
	assert.Equal(t, 2.5, d.Weight)
	assert.Equal(t, shipper.DefaultPackageLength, d.Length)
	assert.Equal(t, shipper.WeightKG, d.WeightUnit)
	assert.Equal(t, shipper.DimensionCM, d.DimensionUnit)
}
