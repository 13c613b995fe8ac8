package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tournevent/shipping/internal/config"
	"github.com/tournevent/shipping/internal/notify"
	"github.com/tournevent/shipping/internal/server"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/internal/store/postgres"
	"github.com/tournevent/shipping/internal/telemetry"
	"github.com/tournevent/shipping/internal/webhook"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/tournevent/shipping/pkg/shipper/carriers"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// loadConfig reads the environment and stamps the binary version, so the
// startup log, the tracer and --version report the same value.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Version = version
	return cfg, nil
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel,
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)
}

// initTracer always returns a usable tracer, a no-op one when tracing is off
// or the exporter cannot be built.
func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	tracer, shutdown, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		Enabled:        cfg.OTELEnabled,
		Endpoint:       cfg.OTELEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return noop.NewTracerProvider().Tracer(cfg.ServiceName), nil, err
	}
	return tracer, shutdown, nil
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

func initDispatcher(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (notify.Dispatcher, func(), error) {
	switch cfg.NotifyDriver {
	case config.NotifyKafka:
		d := notify.NewKafkaDispatcher(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		return d, func() {
			if err := d.Close(); err != nil {
				logger.Warn("Failed to close kafka writer", zap.Error(err))
			}
		}, nil
	case config.NotifySNS:
		d, err := notify.NewSNSDispatcher(ctx, cfg.AWSRegion, cfg.SNSTopicARN, logger)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	default:
		return notify.NewLogDispatcher(logger), func() {}, nil
	}
}

func initServices(
	cfg *config.Config,
	pool *pgxpool.Pool,
	dispatcher notify.Dispatcher,
	metrics *telemetry.Metrics,
	tracer trace.Tracer,
	logger *otelzap.Logger,
) server.Dependencies {
	shipments := postgres.NewShipmentRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	configs := postgres.NewProviderConfigRepository(pool)

	registry := shipper.NewRegistry(configs, carriers.New(logger, cfg.CarrierTimeout, tracer))

	return server.Dependencies{
		Shipping: shipping.NewService(shipping.Dependencies{
			Registry:   registry,
			Configs:    configs,
			Shipments:  shipments,
			Orders:     orders,
			Normalizer: shipping.NewNormalizer(cfg.DefaultCountryCode, logger),
			Metrics:    metrics,
			Logger:     logger,
			Tracer:     tracer,
		}, cfg.CarrierTimeout),
		Tracker:  shipping.NewTracker(shipments, orders),
		Settings: shipping.NewSettings(configs, logger),
		Webhooks: webhook.NewIngestor(webhook.Dependencies{
			Verifier:   webhook.NewVerifier(cfg.WebhookSecret, cfg.WebhookInsecure, logger),
			Shipments:  shipments,
			Orders:     orders,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
			Tracer:     tracer,
		}),
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	}
}
