package dhl_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipping/pkg/shipper/dhl"
)

func TestHTTPAPIClient_GetRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rates", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "apikey", user)
		assert.Equal(t, "apisecret", pass)

		var req dhl.RateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "75001", req.CustomerDetails.ReceiverDetails.PostalCode)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"products":[{"productName":"EXPRESS WORLDWIDE","productCode":"P",
			"totalPrice":[{"currencyType":"BILLC","priceCurrency":"EUR","price":45.5}],
			"deliveryCapabilities":{"estimatedDeliveryDateAndTime":"2026-10-20T23:59:00","totalTransitDays":"2"}}]}`)
	}))
	defer srv.Close()

	client := dhl.NewHTTPAPIClient(dhl.HTTPAPIClientConfig{BaseURL: srv.URL + "/", APIKey: "apikey", APISecret: "apisecret"})

	resp, err := client.GetRates(context.Background(), &dhl.RateRequest{
		CustomerDetails: dhl.RateCustomerDetails{ReceiverDetails: dhl.RateAddress{PostalCode: "75001", CountryCode: "FR"}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "P", resp.Products[0].ProductCode)
	assert.Equal(t, 45.5, resp.Products[0].TotalPrice[0].Price)
}

func TestHTTPAPIClient_GetTracking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/shipments/1234567890/tracking", r.URL.Path)
		assert.Equal(t, "all-checkpoints", r.URL.Query().Get("trackingView"))
		_, _ = io.WriteString(w, `{"shipments":[{"shipmentTrackingNumber":"1234567890","status":"Success",
			"events":[{"date":"2026-10-18","time":"12:10:00","typeCode":"OK","description":"Delivered",
			"serviceArea":[{"code":"PAR","description":"Paris-FR"}]}]}]}`)
	}))
	defer srv.Close()

	client := dhl.NewHTTPAPIClient(dhl.HTTPAPIClientConfig{BaseURL: srv.URL})

	resp, err := client.GetTracking(context.Background(), "1234567890")

	require.NoError(t, err)
	require.Len(t, resp.Shipments, 1)
	require.Len(t, resp.Shipments[0].Events, 1)
	assert.Equal(t, "OK", resp.Shipments[0].Events[0].TypeCode)
	assert.Equal(t, "Paris-FR", resp.Shipments[0].Events[0].ServiceArea[0].Description)
}

func TestHTTPAPIClient_ProblemDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"instance":"/rates","detail":"Invalid Credentials","title":"Unauthorized","status":"401"}`)
	}))
	defer srv.Close()

	client := dhl.NewHTTPAPIClient(dhl.HTTPAPIClientConfig{BaseURL: srv.URL})

	_, err := client.GetRates(context.Background(), &dhl.RateRequest{})

	var apiErr *dhl.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Title)
}

func TestHTTPAPIClient_ValidateAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/address-validate", r.URL.Path)
		assert.Equal(t, "delivery", r.URL.Query().Get("type"))
		assert.Equal(t, "DE", r.URL.Query().Get("countryCode"))
		assert.Equal(t, "53113", r.URL.Query().Get("postalCode"))
		_, _ = io.WriteString(w, `{"address":[]}`)
	}))
	defer srv.Close()

	client := dhl.NewHTTPAPIClient(dhl.HTTPAPIClientConfig{BaseURL: srv.URL})

	assert.NoError(t, client.ValidateAddress(context.Background(), "DE", "53113", "Bonn"))
}
