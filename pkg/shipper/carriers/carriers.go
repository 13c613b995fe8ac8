// Package carriers wires the closed set of carrier adapters into a shipper.Factory.
package carriers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/tournevent/shipping/pkg/shipper/canadapost"
	"github.com/tournevent/shipping/pkg/shipper/dhl"
	"github.com/tournevent/shipping/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

// CredMockAPI, when "true" in a configuration's credentials, swaps the carrier's
// HTTP client for its in-memory API mock. The adapter logic still runs.
const CredMockAPI = "mock_api"

// New returns a factory building adapters that share logger, tracer and
// per-request HTTP timeout.
func New(logger *otelzap.Logger, timeout time.Duration, tracer trace.Tracer) shipper.Factory {
	return func(cfg shipper.ProviderConfig) (shipper.Adapter, error) {
		useMockAPI, _ := strconv.ParseBool(cfg.Credential(CredMockAPI))

		switch cfg.Provider {
		case shipper.CarrierDHL:
			if useMockAPI {
				return dhl.NewWithAPIClient(cfg, dhl.NewMockAPIClient(), logger, tracer), nil
			}
			return dhl.New(cfg, timeout, logger, tracer), nil
		case shipper.CarrierCanadaPost:
			if useMockAPI {
				return canadapost.NewWithAPIClient(cfg, canadapost.NewMockAPIClient(), logger, tracer), nil
			}
			return canadapost.New(cfg, timeout, logger, tracer), nil
		case shipper.CarrierMock:
			return mock.New(shipper.CarrierMock), nil
		default:
			return nil, fmt.Errorf("%w: %q", shipper.ErrUnknownCarrier, cfg.Provider)
		}
	}
}
