package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Notification drivers.
const (
	NotifyLog   = "log"
	NotifyKafka = "kafka"
	NotifySNS   = "sns"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	// Auth
	JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	JWTIssuer string `envconfig:"AUTH_JWT_ISSUER"`

	// Webhooks. WebhookInsecure accepts unsigned deliveries and is meant for
	// local development only.
	WebhookSecret   string `envconfig:"WEBHOOK_SECRET"`
	WebhookInsecure bool   `envconfig:"WEBHOOK_INSECURE" default:"false"`

	// Shipping
	DefaultCountryCode string        `envconfig:"DEFAULT_COUNTRY_CODE" default:"AT"`
	CarrierTimeout     time.Duration `envconfig:"CARRIER_TIMEOUT" default:"15s"`

	// Notifications
	NotifyDriver string   `envconfig:"NOTIFY_DRIVER" default:"log"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"shipping.notifications"`
	SNSTopicARN  string   `envconfig:"SNS_TOPIC_ARN"`
	AWSRegion    string   `envconfig:"AWS_REGION" default:"eu-central-1"`

	// Telemetry
	OTELEnabled    bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint   string  `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	OTELSampleRate float64 `envconfig:"OTEL_SAMPLE_RATE" default:"1.0"`
	ServiceName    string  `envconfig:"SERVICE_NAME" default:"shipping"`
	Version        string  `ignored:"true"`
	Environment    string  `envconfig:"ENVIRONMENT" default:"development"`
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.NotifyDriver = strings.ToLower(strings.TrimSpace(cfg.NotifyDriver))
	cfg.DefaultCountryCode = strings.ToUpper(strings.TrimSpace(cfg.DefaultCountryCode))
	return &cfg, nil
}

// Validate reports every setting the serve command cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.WebhookSecret == "" && !c.WebhookInsecure {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required unless WEBHOOK_INSECURE=true"))
	}
	if c.DefaultCountryCode != "" && len(c.DefaultCountryCode) != 2 {
		errs = append(errs, fmt.Errorf("DEFAULT_COUNTRY_CODE %q must have 2 letters", c.DefaultCountryCode))
	}

	switch c.NotifyDriver {
	case NotifyLog:
	case NotifyKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka notify driver"))
		}
	case NotifySNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN is required for the sns notify driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_DRIVER %q", c.NotifyDriver))
	}
	return errors.Join(errs...)
}
