package shipping

import (
	"context"
	"errors"
	"time"

	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Settings manages stored provider configurations. Reads never expose secret
// credentials.
type Settings struct {
	configs ConfigStore
	logger  *otelzap.Logger
}

// NewSettings creates a Settings service.
func NewSettings(configs ConfigStore, logger *otelzap.Logger) *Settings {
	return &Settings{configs: configs, logger: logger}
}

func parseProvider(provider string) (shipper.Carrier, error) {
	carrier, err := shipper.ParseCarrier(provider)
	if err != nil {
		return "", &ValidationError{
			Message: "unknown provider " + provider,
			Fields:  map[string]string{"provider": "must be one of the supported carriers"},
		}
	}
	return carrier, nil
}

// Get returns the redacted configuration of provider.
func (s *Settings) Get(ctx context.Context, provider string) (*shipper.ProviderConfig, error) {
	carrier, err := parseProvider(provider)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.GetConfig(ctx, carrier)
	if err != nil {
		return nil, err
	}
	redacted := cfg.Redacted()
	return &redacted, nil
}

// List returns every stored configuration, redacted.
func (s *Settings) List(ctx context.Context) ([]shipper.ProviderConfig, error) {
	configs, err := s.configs.ListConfigs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]shipper.ProviderConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, cfg.Redacted())
	}
	return out, nil
}

// Save creates or replaces the configuration of cfg.Provider. Secret
// credentials left empty keep their stored value, so a client can round-trip
// a redacted configuration.
func (s *Settings) Save(ctx context.Context, cfg shipper.ProviderConfig) (*shipper.ProviderConfig, error) {
	carrier, err := parseProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	cfg.Provider = carrier

	if cc := cfg.ShipperAddress.CountryCode; cc != "" && len(cc) != 2 {
		return nil, &ValidationError{
			Message: "shipper address country code must have 2 letters",
			Fields:  map[string]string{"shipperAddress.countryCode": "must have 2 letters"},
		}
	}
	if cfg.Defaults.Weight < 0 || cfg.Defaults.Length < 0 || cfg.Defaults.Width < 0 || cfg.Defaults.Height < 0 {
		return nil, NewValidationError("package defaults must not be negative")
	}

	existing, err := s.configs.GetConfig(ctx, carrier)
	switch {
	case err == nil:
		if cfg.Credentials == nil {
			cfg.Credentials = map[string]string{}
		}
		for k, v := range existing.Credentials {
			if shipper.IsSecretCredential(k) && cfg.Credentials[k] == "" {
				cfg.Credentials[k] = v
			}
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	cfg.UpdatedAt = time.Now().UTC()
	if err := s.configs.UpsertConfig(ctx, &cfg); err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Shipping configuration saved",
		zap.String("provider", string(carrier)),
		zap.Bool("enabled", cfg.Enabled),
		zap.Bool("sandbox", cfg.Sandbox),
	)
	redacted := cfg.Redacted()
	return &redacted, nil
}

// Delete removes the configuration of provider.
func (s *Settings) Delete(ctx context.Context, provider string) error {
	carrier, err := parseProvider(provider)
	if err != nil {
		return err
	}
	if err := s.configs.DeleteConfig(ctx, carrier); err != nil {
		return err
	}
	s.logger.Ctx(ctx).Info("Shipping configuration deleted", zap.String("provider", string(carrier)))
	return nil
}
