package dhl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/JSON.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetRates quotes products via POST /rates.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	var resp RateResponse
	if err := c.do(ctx, http.MethodPost, "/rates", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateShipment books a shipment via POST /shipments.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var resp ShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetTracking fetches all checkpoints of a shipment.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, trackingNumber string) (*TrackingResponse, error) {
	path := fmt.Sprintf("/shipments/%s/tracking?trackingView=all-checkpoints", url.PathEscape(trackingNumber))
	var resp TrackingResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateAddress calls GET /address-validate.
func (c *HTTPAPIClient) ValidateAddress(ctx context.Context, countryCode, postalCode, city string) error {
	q := url.Values{}
	q.Set("type", "delivery")
	q.Set("countryCode", countryCode)
	q.Set("postalCode", postalCode)
	q.Set("cityName", city)
	return c.do(ctx, http.MethodGet, "/address-validate?"+q.Encode(), nil, nil)
}

// LabelURL returns the document endpoint of a booked shipment.
func (c *HTTPAPIClient) LabelURL(trackingNumber string) string {
	return fmt.Sprintf("%s/shipments/%s/get-image?typeCode=label", c.baseURL, url.PathEscape(trackingNumber))
}

func (c *HTTPAPIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Title == "" {
		apiErr.Title = http.StatusText(resp.StatusCode)
	}
	// The status in the body is advisory; the HTTP status wins.
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

var _ APIClient = (*HTTPAPIClient)(nil)
