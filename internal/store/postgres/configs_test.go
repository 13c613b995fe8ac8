package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

var configCols = []string{
	"provider", "enabled", "sandbox", "credentials", "defaults", "default_service",
	"shipper_address", "features", "updated_at",
}

func dhlConfigRow(enabled bool) *pgxmock.Rows {
	return pgxmock.NewRows(configCols).AddRow(
		"dhl", enabled, true,
		[]byte(`{"api_key":"k","api_secret":"s","account_number":"123"}`),
		[]byte(`{"weight":2.5,"length":40,"width":30,"height":20}`),
		"P",
		[]byte(`{"name":"Warehouse","line1":"Lagerweg 1","city":"Leipzig","postalCode":"04109","countryCode":"DE"}`),
		[]byte(`{"insurance":true}`),
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestProviderConfigRepository_GetEnabledConfig(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	mock.ExpectQuery("FROM shipping_provider_configs").WithArgs("dhl").WillReturnRows(dhlConfigRow(true))

	cfg, err := repo.GetEnabledConfig(context.Background(), shipper.CarrierDHL)
	require.NoError(t, err)

	assert.Equal(t, shipper.CarrierDHL, cfg.Provider)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "123", cfg.Credential(shipper.CredAccountNumber))
	assert.Equal(t, 2.5, cfg.Defaults.Weight)
	assert.Equal(t, "Leipzig", cfg.ShipperAddress.City)
	assert.True(t, cfg.Features.Insurance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderConfigRepository_GetEnabledConfig_Missing(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	mock.ExpectQuery("FROM shipping_provider_configs").WithArgs("dhl").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetEnabledConfig(context.Background(), shipper.CarrierDHL)
	assert.ErrorIs(t, err, shipper.ErrConfigurationMissing)
	assert.EqualError(t, err, "No active shipping configuration found for dhl")
}

func TestProviderConfigRepository_GetConfig_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	mock.ExpectQuery("FROM shipping_provider_configs").WithArgs("canadapost").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetConfig(context.Background(), shipper.CarrierCanadaPost)
	assert.ErrorIs(t, err, shipping.ErrNotFound)
}

func TestProviderConfigRepository_GetConfig_Disabled(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	mock.ExpectQuery("FROM shipping_provider_configs").WithArgs("dhl").WillReturnRows(dhlConfigRow(false))

	cfg, err := repo.GetConfig(context.Background(), shipper.CarrierDHL)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
}

func TestProviderConfigRepository_ListConfigs(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	rows := dhlConfigRow(true).AddRow(
		"mock", true, true, []byte(`{}`), []byte(`{}`), "", []byte(`{}`), []byte(`{}`), time.Now().UTC(),
	)
	mock.ExpectQuery("FROM shipping_provider_configs").WillReturnRows(rows)

	configs, err := repo.ListConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, shipper.CarrierMock, configs[1].Provider)
	assert.Empty(t, configs[1].Credentials)
}

func TestProviderConfigRepository_UpsertConfig(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)
	cfg := &shipper.ProviderConfig{
		Provider:    shipper.CarrierDHL,
		Enabled:     true,
		Credentials: map[string]string{"api_key": "k"},
	}

	mock.ExpectExec("ON CONFLICT").
		WithArgs("dhl", true, false,
			[]byte(`{"api_key":"k"}`), pgxmock.AnyArg(), "", pgxmock.AnyArg(), []byte(`{"insurance":false,"signature":false,"cashOnDelivery":false}`),
			pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpsertConfig(context.Background(), cfg))
	assert.False(t, cfg.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProviderConfigRepository_DeleteConfig(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProviderConfigRepository(mock)

	mock.ExpectExec("DELETE FROM shipping_provider_configs").
		WithArgs("dhl").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteConfig(context.Background(), shipper.CarrierDHL)
	assert.ErrorIs(t, err, shipping.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
