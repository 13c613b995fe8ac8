package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTIFY_DRIVER", " Kafka ")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DEFAULT_COUNTRY_CODE", "de")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.CarrierTimeout)
	assert.Equal(t, NotifyKafka, cfg.NotifyDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "DE", cfg.DefaultCountryCode)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.InDelta(t, 1.0, cfg.OTELSampleRate, 1e-9)
}

func TestLoad_VersionNotFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVICE_VERSION", "9.9.9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Version)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CARRIER_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		DatabaseURL:        "postgres://localhost/shipping",
		JWTSecret:          "secret",
		WebhookSecret:      "whsec",
		DefaultCountryCode: "AT",
		NotifyDriver:       NotifyLog,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing database", mutate: func(c *Config) { c.DatabaseURL = "" }, wantErr: "DATABASE_URL"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "AUTH_JWT_SECRET"},
		{name: "unsigned webhooks", mutate: func(c *Config) { c.WebhookSecret = "" }, wantErr: "WEBHOOK_SECRET"},
		{name: "insecure webhooks", mutate: func(c *Config) { c.WebhookSecret = ""; c.WebhookInsecure = true }},
		{name: "bad country", mutate: func(c *Config) { c.DefaultCountryCode = "AUT" }, wantErr: "DEFAULT_COUNTRY_CODE"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.NotifyDriver = NotifyKafka }, wantErr: "KAFKA_BROKERS"},
		{name: "sns without topic", mutate: func(c *Config) { c.NotifyDriver = NotifySNS }, wantErr: "SNS_TOPIC_ARN"},
		{name: "unknown driver", mutate: func(c *Config) { c.NotifyDriver = "pigeon" }, wantErr: "NOTIFY_DRIVER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
