package shipper

import (
	"context"
	"errors"
	"fmt"
)

// ConfigSource loads provider configuration. GetEnabledConfig must return an
// error matching ErrConfigurationMissing when no enabled row exists.
type ConfigSource interface {
	GetEnabledConfig(ctx context.Context, provider Carrier) (*ProviderConfig, error)
}

// Factory builds an adapter from a provider configuration.
type Factory func(cfg ProviderConfig) (Adapter, error)

// Registry resolves provider keys to adapters. It keeps no adapters between
// calls: every Resolve reloads configuration, so edits apply on the next call.
type Registry struct {
	configs ConfigSource
	factory Factory
}

// NewRegistry creates a new registry.
func NewRegistry(configs ConfigSource, factory Factory) *Registry {
	return &Registry{
		configs: configs,
		factory: factory,
	}
}

// Resolve returns an adapter for the enabled configuration of key together with
// that configuration.
func (r *Registry) Resolve(ctx context.Context, key string) (Adapter, *ProviderConfig, error) {
	carrier, err := ParseCarrier(key)
	if err != nil {
		return nil, nil, &ConfigurationMissingError{Provider: key}
	}

	cfg, err := r.configs.GetEnabledConfig(ctx, carrier)
	if err != nil {
		if errors.Is(err, ErrConfigurationMissing) {
			return nil, nil, &ConfigurationMissingError{Provider: key}
		}
		return nil, nil, fmt.Errorf("loading %s configuration: %w", carrier, err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil, nil, &ConfigurationMissingError{Provider: key}
	}

	adapter, err := r.Build(*cfg)
	if err != nil {
		return nil, nil, err
	}
	return adapter, cfg, nil
}

// Build creates an adapter for an explicit configuration, enabled or not.
func (r *Registry) Build(cfg ProviderConfig) (Adapter, error) {
	if _, err := ParseCarrier(string(cfg.Provider)); err != nil {
		return nil, err
	}
	adapter, err := r.factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("building %s adapter: %w", cfg.Provider, err)
	}
	return adapter, nil
}
