// Package server exposes the shipping layer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/internal/webhook"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Config holds server configuration.
type Config struct {
	Port      int
	JWTSecret string
	JWTIssuer string
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Shipping *shipping.Service
	Tracker  *shipping.Tracker
	Settings *shipping.Settings
	Webhooks *webhook.Ingestor
	Gatherer prometheus.Gatherer
	Logger   *otelzap.Logger
}

// Server is the HTTP server for the shipping service.
type Server struct {
	cfg      Config
	shipping *shipping.Service
	tracker  *shipping.Tracker
	settings *shipping.Settings
	webhooks *webhook.Ingestor
	gatherer prometheus.Gatherer
	logger   *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config, deps Dependencies) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		shipping: deps.Shipping,
		tracker:  deps.Tracker,
		settings: deps.Settings,
		webhooks: deps.Webhooks,
		gatherer: gatherer,
		logger:   deps.Logger,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/webhooks/{carrier}", func(r chi.Router) {
		r.Post("/", s.handleWebhook)
		r.Get("/", s.handleWebhookChallenge)
	})

	r.Route("/shipping", func(r chi.Router) {
		r.Use(jwtAuth(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.logger))

		r.Post("/rates", s.handleRates)
		r.Post("/shipments", s.handleCreateShipment)
		r.Get("/shipments/{trackingNumber}", s.handleShipmentDetails)
		r.Get("/tracking", s.handleTracking)
		r.Post("/validate", s.handleValidate)

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/shipments", s.handleCreateOrderShipment)
			r.Get("/shipments", s.handleListOrderShipments)
			r.Get("/tracking", s.handleOrderTracking)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
		r.Delete("/settings", s.handleDeleteSettings)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Ctx(r.Context()).Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
