package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/internal/webhook"
	"github.com/tournevent/shipping/pkg/shipper"
	"go.uber.org/zap"
)

type shipmentResponse struct {
	Shipment *domain.ShipmentRecord `json:"shipment"`
	Message  string                 `json:"message"`
	Warning  string                 `json:"warning,omitempty"`
}

func newShipmentResponse(outcome *shipping.ShipmentOutcome) shipmentResponse {
	return shipmentResponse{
		Shipment: outcome.Shipment,
		Message:  fmt.Sprintf("Shipment created with tracking number %s", outcome.Shipment.TrackingNumber),
		Warning:  outcome.Warning(),
	}
}

// POST /shipping/rates
func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	if req.Order == nil {
		writeErrorMessage(w, http.StatusBadRequest, "Order data is required")
		return
	}

	result, err := s.shipping.Rates(r.Context(), req.Provider, req.Order.input())
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /shipping/shipments
func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	if req.Order == nil {
		writeErrorMessage(w, http.StatusBadRequest, "Order data is required")
		return
	}

	outcome, err := s.shipping.CreateShipment(r.Context(), req.Provider, req.Order.input())
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, newShipmentResponse(outcome))
}

// POST /shipping/orders/{orderId}/shipments
func (s *Server) handleCreateOrderShipment(w http.ResponseWriter, r *http.Request) {
	var req orderShipmentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, s.logger)
		return
	}

	outcome, err := s.shipping.CreateOrderShipment(r.Context(), chi.URLParam(r, "orderId"), req.Provider, req.options())
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusCreated, newShipmentResponse(outcome))
}

// GET /shipping/orders/{orderId}/shipments
func (s *Server) handleListOrderShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := s.tracker.ListOrderShipments(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": shipments})
}

// GET /shipping/orders/{orderId}/tracking
func (s *Server) handleOrderTracking(w http.ResponseWriter, r *http.Request) {
	s.writeTrackingDetails(w, r, shipping.TrackingQuery{OrderID: chi.URLParam(r, "orderId")})
}

// GET /shipping/shipments/{trackingNumber}
func (s *Server) handleShipmentDetails(w http.ResponseWriter, r *http.Request) {
	s.writeTrackingDetails(w, r, shipping.TrackingQuery{TrackingNumber: chi.URLParam(r, "trackingNumber")})
}

func (s *Server) writeTrackingDetails(w http.ResponseWriter, r *http.Request, q shipping.TrackingQuery) {
	details, err := s.tracker.TrackingDetails(r.Context(), q)
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// GET /shipping/tracking?trackingNumber=&provider=
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := s.shipping.Track(r.Context(), q.Get("provider"), q.Get("trackingNumber"))
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /shipping/validate
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	result, err := s.shipping.Validate(r.Context(), req.Provider)
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /shipping/settings[?provider=]
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		configs, err := s.settings.List(r.Context())
		if err != nil {
			writeError(w, r, err, s.logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"settings": configs})
		return
	}

	cfg, err := s.settings.Get(r.Context(), provider)
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": cfg})
}

// POST /shipping/settings[?provider=]
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var cfg shipper.ProviderConfig
	if err := decode(w, r, &cfg); err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	if cfg.Provider == "" {
		cfg.Provider = shipper.Carrier(r.URL.Query().Get("provider"))
	}

	saved, err := s.settings.Save(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	s.logger.Ctx(r.Context()).Info("Settings saved by API",
		zap.String("provider", string(saved.Provider)),
		zap.String("subject", Subject(r.Context())),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"settings": saved,
		"message":  fmt.Sprintf("Settings for %s saved", saved.Provider),
	})
}

// DELETE /shipping/settings?provider=
func (s *Server) handleDeleteSettings(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeErrorMessage(w, http.StatusBadRequest, "provider is required")
		return
	}
	if err := s.settings.Delete(r.Context(), provider); err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	s.logger.Ctx(r.Context()).Info("Settings deleted by API",
		zap.String("provider", provider),
		zap.String("subject", Subject(r.Context())),
	)
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Settings for %s deleted", provider)})
}

// POST /webhooks/{carrier}
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	result, err := s.webhooks.Ingest(r.Context(), chi.URLParam(r, "carrier"), body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		writeError(w, r, err, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "result": result})
}

// GET /webhooks/{carrier}?challenge=
func (s *Server) handleWebhookChallenge(w http.ResponseWriter, r *http.Request) {
	if _, err := shipper.ParseCarrier(chi.URLParam(r, "carrier")); err != nil {
		writeError(w, r, shipping.NotFound("carrier", chi.URLParam(r, "carrier")), s.logger)
		return
	}
	challenge := strings.TrimSpace(r.URL.Query().Get("challenge"))
	if challenge == "" {
		writeErrorMessage(w, http.StatusBadRequest, "challenge is required")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
