package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/tournevent/shipping/pkg/shipper/mock"
)

type stubConfigs struct {
	configs map[shipper.Carrier]*shipper.ProviderConfig
	err     error
	lookups int
}

func (s *stubConfigs) GetEnabledConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error) {
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[provider]
	if !ok || !cfg.Enabled {
		return nil, &shipper.ConfigurationMissingError{Provider: string(provider)}
	}
	return cfg, nil
}

func newTestRegistry(configs *stubConfigs) (*shipper.Registry, *int) {
	built := 0
	factory := func(cfg shipper.ProviderConfig) (shipper.Adapter, error) {
		built++
		return mock.New(cfg.Provider), nil
	}
	return shipper.NewRegistry(configs, factory), &built
}

func TestRegistry_Resolve(t *testing.T) {
	configs := &stubConfigs{configs: map[shipper.Carrier]*shipper.ProviderConfig{
		shipper.CarrierDHL: {Provider: shipper.CarrierDHL, Enabled: true, DefaultService: "P"},
	}}
	registry, _ := newTestRegistry(configs)

	adapter, cfg, err := registry.Resolve(context.Background(), "dhl")
	require.NoError(t, err)
	assert.Equal(t, shipper.CarrierDHL, adapter.Carrier())
	assert.Equal(t, "P", cfg.DefaultService)
}

func TestRegistry_Resolve_Disabled(t *testing.T) {
	configs := &stubConfigs{configs: map[shipper.Carrier]*shipper.ProviderConfig{
		shipper.CarrierDHL: {Provider: shipper.CarrierDHL, Enabled: false},
	}}
	registry, built := newTestRegistry(configs)

	_, _, err := registry.Resolve(context.Background(), "dhl")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrConfigurationMissing))
	assert.Equal(t, "No active shipping configuration found for dhl", err.Error())
	assert.Zero(t, *built, "no adapter may be built for a disabled provider")
}

func TestRegistry_Resolve_UnknownCarrier(t *testing.T) {
	configs := &stubConfigs{}
	registry, _ := newTestRegistry(configs)

	_, _, err := registry.Resolve(context.Background(), "pigeon-post")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrConfigurationMissing))
	assert.Zero(t, configs.lookups)
}

func TestRegistry_Resolve_StoreFailure(t *testing.T) {
	configs := &stubConfigs{err: errors.New("connection refused")}
	registry, _ := newTestRegistry(configs)

	_, _, err := registry.Resolve(context.Background(), "dhl")
	require.Error(t, err)
	assert.False(t, errors.Is(err, shipper.ErrConfigurationMissing))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRegistry_Resolve_NoCaching(t *testing.T) {
	cfg := &shipper.ProviderConfig{Provider: shipper.CarrierDHL, Enabled: true}
	configs := &stubConfigs{configs: map[shipper.Carrier]*shipper.ProviderConfig{shipper.CarrierDHL: cfg}}
	registry, built := newTestRegistry(configs)
	ctx := context.Background()

	_, _, err := registry.Resolve(ctx, "dhl")
	require.NoError(t, err)

	// Disabling the provider takes effect on the very next call.
	cfg.Enabled = false
	_, _, err = registry.Resolve(ctx, "dhl")
	assert.True(t, errors.Is(err, shipper.ErrConfigurationMissing))

	assert.Equal(t, 2, configs.lookups)
	assert.Equal(t, 1, *built)
}

func TestRegistry_Build_FactoryError(t *testing.T) {
	registry := shipper.NewRegistry(&stubConfigs{}, func(cfg shipper.ProviderConfig) (shipper.Adapter, error) {
		return nil, errors.New("missing account number")
	})

	_, err := registry.Build(shipper.ProviderConfig{Provider: shipper.CarrierCanadaPost})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building canadapost adapter")
}

func TestParseCarrier(t *testing.T) {
	tests := []struct {
		in      string
		want    shipper.Carrier
		wantErr bool
	}{
		{"dhl", shipper.CarrierDHL, false},
		{" DHL ", shipper.CarrierDHL, false},
		{"canadapost", shipper.CarrierCanadaPost, false},
		{"mock", shipper.CarrierMock, false},
		{"stripe", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := shipper.ParseCarrier(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, shipper.ErrUnknownCarrier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
