package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

// ProviderConfigRepository implements shipping.ConfigStore. Configurations
// are read on every call.
type ProviderConfigRepository struct {
	db DBTX
}

// NewProviderConfigRepository creates a ProviderConfigRepository.
func NewProviderConfigRepository(db DBTX) *ProviderConfigRepository {
	return &ProviderConfigRepository{db: db}
}

const configColumns = `
	provider, enabled, sandbox, credentials, defaults, default_service,
	shipper_address, features, updated_at`

func scanConfig(row pgx.Row) (*shipper.ProviderConfig, error) {
	var (
		cfg      shipper.ProviderConfig
		provider string

		credentials, defaults, addr, features []byte
	)
	err := row.Scan(
		&provider,
		&cfg.Enabled,
		&cfg.Sandbox,
		&credentials,
		&defaults,
		&cfg.DefaultService,
		&addr,
		&features,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.Provider = shipper.Carrier(provider)

	for _, field := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"credentials", credentials, &cfg.Credentials},
		{"defaults", defaults, &cfg.Defaults},
		{"shipper_address", addr, &cfg.ShipperAddress},
		{"features", features, &cfg.Features},
	} {
		if len(field.raw) == 0 || string(field.raw) == "null" {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", field.name, err)
		}
	}
	return &cfg, nil
}

// GetEnabledConfig returns the configuration of provider if it is enabled,
// and a *shipper.ConfigurationMissingError otherwise.
func (r *ProviderConfigRepository) GetEnabledConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error) {
	query := `SELECT` + configColumns + `
		FROM shipping_provider_configs
		WHERE provider = $1 AND enabled`

	cfg, err := scanConfig(r.db.QueryRow(ctx, query, string(provider)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shipper.ConfigurationMissingError{Provider: string(provider)}
		}
		return nil, fmt.Errorf("get enabled provider config: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the configuration of provider whether or not it is enabled.
func (r *ProviderConfigRepository) GetConfig(ctx context.Context, provider shipper.Carrier) (*shipper.ProviderConfig, error) {
	query := `SELECT` + configColumns + `
		FROM shipping_provider_configs
		WHERE provider = $1`

	cfg, err := scanConfig(r.db.QueryRow(ctx, query, string(provider)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.NotFound("provider configuration", string(provider))
		}
		return nil, fmt.Errorf("get provider config: %w", err)
	}
	return cfg, nil
}

// ListConfigs returns every stored configuration ordered by provider.
func (r *ProviderConfigRepository) ListConfigs(ctx context.Context) ([]shipper.ProviderConfig, error) {
	query := `SELECT` + configColumns + `
		FROM shipping_provider_configs
		ORDER BY provider`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query provider configs: %w", err)
	}
	defer rows.Close()

	configs := []shipper.ProviderConfig{}
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate provider config rows: %w", err)
	}
	return configs, nil
}

// UpsertConfig creates or replaces the configuration of cfg.Provider.
func (r *ProviderConfigRepository) UpsertConfig(ctx context.Context, cfg *shipper.ProviderConfig) error {
	credentials := cfg.Credentials
	if credentials == nil {
		credentials = map[string]string{}
	}
	encoded := make([][]byte, 0, 4)
	for _, v := range []any{credentials, cfg.Defaults, cfg.ShipperAddress, cfg.Features} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal provider config: %w", err)
		}
		encoded = append(encoded, b)
	}

	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO shipping_provider_configs (provider, enabled, sandbox, credentials, defaults,
			default_service, shipper_address, features, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			sandbox = EXCLUDED.sandbox,
			credentials = EXCLUDED.credentials,
			defaults = EXCLUDED.defaults,
			default_service = EXCLUDED.default_service,
			shipper_address = EXCLUDED.shipper_address,
			features = EXCLUDED.features,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		string(cfg.Provider),
		cfg.Enabled,
		cfg.Sandbox,
		encoded[0],
		encoded[1],
		cfg.DefaultService,
		encoded[2],
		encoded[3],
		cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert provider config: %w", err)
	}
	return nil
}

// DeleteConfig removes the configuration of provider.
func (r *ProviderConfigRepository) DeleteConfig(ctx context.Context, provider shipper.Carrier) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM shipping_provider_configs WHERE provider = $1`, string(provider))
	if err != nil {
		return fmt.Errorf("delete provider config: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return shipping.NotFound("provider configuration", string(provider))
	}
	return nil
}

var _ shipping.ConfigStore = (*ProviderConfigRepository)(nil)
