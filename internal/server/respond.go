package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type providerErrorDetails struct {
	Carrier string `json:"carrier"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var providerMessages = map[string]string{
	shipper.CodeTimeout:        "carrier request timed out",
	shipper.CodeAuthentication: "carrier rejected the configured credentials",
	shipper.CodeRateLimited:    "carrier rate limit reached",
	shipper.CodeBadRequest:     "carrier rejected the shipment data",
	shipper.CodeDecode:         "carrier returned an unreadable response",
}

// providerMessage is the client-facing text for a carrier error code. Carrier
// wording stays in the logs.
func providerMessage(code string) string {
	if msg, ok := providerMessages[code]; ok {
		return msg
	}
	return "carrier request failed"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps err onto a status code. Carrier failures are reported with
// their normalized code only; the underlying cause is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *otelzap.Logger) {
	var (
		ve  *shipping.ValidationError
		cme *shipper.ConfigurationMissingError
		pe  *shipper.ProviderError
	)
	switch {
	case errors.As(err, &ve):
		resp := errorResponse{Error: ve.Message}
		if len(ve.Fields) > 0 {
			resp.Details = ve.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case errors.As(err, &cme):
		writeErrorMessage(w, http.StatusNotFound, cme.Error())

	case errors.Is(err, shipping.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())

	case errors.Is(err, shipping.ErrSignatureInvalid):
		writeErrorMessage(w, http.StatusUnauthorized, shipping.ErrSignatureInvalid.Error())

	case errors.Is(err, shipping.ErrUnauthenticated):
		writeErrorMessage(w, http.StatusUnauthorized, shipping.ErrUnauthenticated.Error())

	case errors.As(err, &pe):
		logger.Ctx(r.Context()).Error("Carrier request failed",
			zap.String("path", r.URL.Path),
			zap.String("carrier", string(pe.Carrier)),
			zap.String("code", pe.Code),
			zap.String("carrier_message", pe.Message),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "shipping provider request failed",
			Details: providerErrorDetails{
				Carrier: string(pe.Carrier),
				Code:    pe.Code,
				Message: providerMessage(pe.Code),
			},
		})

	default:
		logger.Ctx(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
