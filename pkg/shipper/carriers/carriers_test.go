package carriers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/shipper"
	"github.com/tournevent/shipping/pkg/shipper/canadapost"
	"github.com/tournevent/shipping/pkg/shipper/carriers"
	"github.com/tournevent/shipping/pkg/shipper/dhl"
	"github.com/tournevent/shipping/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newFactory() shipper.Factory {
	return carriers.New(otelzap.New(zap.NewNop()), 5*time.Second, nil)
}

func TestFactory_BuildsEveryCarrier(t *testing.T) {
	factory := newFactory()

	tests := []struct {
		carrier shipper.Carrier
		check   func(t *testing.T, a shipper.Adapter)
	}{
		{shipper.CarrierDHL, func(t *testing.T, a shipper.Adapter) { assert.IsType(t, &dhl.Client{}, a) }},
		{shipper.CarrierCanadaPost, func(t *testing.T, a shipper.Adapter) { assert.IsType(t, &canadapost.Client{}, a) }},
		{shipper.CarrierMock, func(t *testing.T, a shipper.Adapter) { assert.IsType(t, &mock.Client{}, a) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.carrier), func(t *testing.T) {
			adapter, err := factory(shipper.ProviderConfig{Provider: tt.carrier})
			require.NoError(t, err)
			assert.Equal(t, tt.carrier, adapter.Carrier())
			tt.check(t, adapter)
		})
	}
}

func TestFactory_UnknownCarrier(t *testing.T) {
	_, err := newFactory()(shipper.ProviderConfig{Provider: "fedex"})

	assert.True(t, errors.Is(err, shipper.ErrUnknownCarrier))
}

func TestFactory_MockAPI(t *testing.T) {
	adapter, err := newFactory()(shipper.ProviderConfig{
		Provider: shipper.CarrierDHL,
		Credentials: map[string]string{
			shipper.CredAPIKey:    "k",
			shipper.CredAPISecret: "s",
			carriers.CredMockAPI:  "true",
		},
	})
	require.NoError(t, err)

	ok, err := adapter.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
