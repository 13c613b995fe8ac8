package canadapost

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	mediaRate     = "application/vnd.cpc.ship.rate-v4+xml"
	mediaShipment = "application/vnd.cpc.shipment-v8+xml"
	mediaTrack    = "application/vnd.cpc.track-v2+xml"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP/XML.
type HTTPAPIClient struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	accountID  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	AccountID string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		accountID: cfg.AccountID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// XML structures
// ============================================================================

type mailingScenario struct {
	XMLName          xml.Name              `xml:"mailing-scenario"`
	Xmlns            string                `xml:"xmlns,attr"`
	CustomerNumber   string                `xml:"customer-number,omitempty"`
	Options          *xmlRateOptions       `xml:"options,omitempty"`
	ParcelCharacter  parcelCharacteristics `xml:"parcel-characteristics"`
	OriginPostalCode string                `xml:"origin-postal-code"`
	Destination      xmlDestination        `xml:"destination"`
}

type xmlRateOptions struct {
	Option []xmlRateOption `xml:"option"`
}

type xmlRateOption struct {
	Code string `xml:"option-code"`
}

type parcelCharacteristics struct {
	Weight     float64        `xml:"weight"`
	Dimensions *xmlDimensions `xml:"dimensions,omitempty"`
}

type xmlDimensions struct {
	Length float64 `xml:"length"`
	Width  float64 `xml:"width"`
	Height float64 `xml:"height"`
}

type xmlDestination struct {
	Domestic      *xmlDomestic      `xml:"domestic,omitempty"`
	UnitedStates  *xmlUnitedStates  `xml:"united-states,omitempty"`
	International *xmlInternational `xml:"international,omitempty"`
}

type xmlDomestic struct {
	PostalCode string `xml:"postal-code"`
}

type xmlUnitedStates struct {
	ZipCode string `xml:"zip-code"`
}

type xmlInternational struct {
	CountryCode string `xml:"country-code"`
}

type priceQuotes struct {
	XMLName    xml.Name     `xml:"price-quotes"`
	PriceQuote []priceQuote `xml:"price-quote"`
}

type priceQuote struct {
	ServiceCode     string          `xml:"service-code"`
	ServiceName     string          `xml:"service-name"`
	PriceDetails    priceDetails    `xml:"price-details"`
	ServiceStandard serviceStandard `xml:"service-standard"`
}

type priceDetails struct {
	Base float64 `xml:"base"`
	Due  float64 `xml:"due"`
}

type serviceStandard struct {
	ExpectedTransitTime  int    `xml:"expected-transit-time"`
	ExpectedDeliveryDate string `xml:"expected-delivery-date"`
}

type shipmentInfo struct {
	XMLName            xml.Name     `xml:"shipment"`
	Xmlns              string       `xml:"xmlns,attr"`
	GroupID            string       `xml:"group-id,omitempty"`
	CpcPickupIndicator bool         `xml:"cpc-pickup-indicator"`
	DeliverySpec       deliverySpec `xml:"delivery-spec"`
}

type deliverySpec struct {
	ServiceCode     string                `xml:"service-code"`
	Sender          xmlSenderInfo         `xml:"sender"`
	Destination     xmlDestinationInfo    `xml:"destination"`
	Options         *xmlShipmentOptions   `xml:"options,omitempty"`
	ParcelCharacter parcelCharacteristics `xml:"parcel-characteristics"`
	Preferences     preferences           `xml:"preferences"`
}

type xmlShipmentOptions struct {
	Option []xmlShipmentOption `xml:"option"`
}

type xmlShipmentOption struct {
	Code   string  `xml:"option-code"`
	Amount float64 `xml:"option-amount,omitempty"`
}

type preferences struct {
	ShowPackingInstructions bool `xml:"show-packing-instructions"`
}

type xmlSenderInfo struct {
	Name           string            `xml:"name"`
	Company        string            `xml:"company,omitempty"`
	ContactPhone   string            `xml:"contact-phone"`
	AddressDetails xmlAddressDetails `xml:"address-details"`
}

type xmlDestinationInfo struct {
	Name           string            `xml:"name"`
	Company        string            `xml:"company,omitempty"`
	ClientVoice    string            `xml:"client-voice-number,omitempty"`
	AddressDetails xmlAddressDetails `xml:"address-details"`
}

type xmlAddressDetails struct {
	AddressLine1  string `xml:"address-line-1"`
	AddressLine2  string `xml:"address-line-2,omitempty"`
	City          string `xml:"city"`
	ProvState     string `xml:"prov-state"`
	PostalZipCode string `xml:"postal-zip-code"`
	CountryCode   string `xml:"country-code"`
}

type shipmentInfoResponse struct {
	XMLName        xml.Name `xml:"shipment-info"`
	ShipmentID     string   `xml:"shipment-id"`
	ShipmentStatus string   `xml:"shipment-status"`
	TrackingPIN    string   `xml:"tracking-pin"`
	Links          xmlLinks `xml:"links"`
}

type xmlLinks struct {
	Link []xmlLink `xml:"link"`
}

type xmlLink struct {
	Rel       string `xml:"rel,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type trackingDetail struct {
	XMLName              xml.Name          `xml:"tracking-detail"`
	PIN                  string            `xml:"pin"`
	ExpectedDeliveryDate string            `xml:"expected-delivery-date"`
	ActualDeliveryDate   string            `xml:"actual-delivery-date"`
	SignificantEvents    significantEvents `xml:"significant-events"`
}

type significantEvents struct {
	Occurrence []occurrence `xml:"occurrence"`
}

type occurrence struct {
	Identifier  string `xml:"event-identifier"`
	Date        string `xml:"event-date"`
	Time        string `xml:"event-time"`
	Description string `xml:"event-description"`
	Site        string `xml:"event-site"`
	Province    string `xml:"event-province"`
}

type services struct {
	XMLName xml.Name     `xml:"services"`
	Service []xmlService `xml:"service"`
}

type xmlService struct {
	Code string `xml:"service-code"`
	Name string `xml:"service-name"`
}

type messages struct {
	XMLName xml.Name  `xml:"messages"`
	Message []message `xml:"message"`
}

type message struct {
	Code        string `xml:"code"`
	Description string `xml:"description"`
}

// ============================================================================
// API Implementation
// ============================================================================

// GetRates fetches shipping rates from the Canada Post API.
func (c *HTTPAPIClient) GetRates(ctx context.Context, req *RatesRequest) (*RatesResponse, error) {
	scenario := mailingScenario{
		Xmlns:            "http://www.canadapost.ca/ws/ship/rate-v4",
		CustomerNumber:   req.CustomerNumber,
		OriginPostalCode: normalizePostalCode(req.OriginPostal),
		ParcelCharacter:  parcelCharacteristics{Weight: roundTo(req.Weight, 3)},
		Destination:      toXMLDestination(req.Destination),
	}
	if req.Dimensions.Length > 0 {
		scenario.ParcelCharacter.Dimensions = &xmlDimensions{
			Length: roundTo(req.Dimensions.Length, 1),
			Width:  roundTo(req.Dimensions.Width, 1),
			Height: roundTo(req.Dimensions.Height, 1),
		}
	}
	if len(req.Options) > 0 {
		scenario.Options = &xmlRateOptions{}
		for _, code := range req.Options {
			scenario.Options.Option = append(scenario.Options.Option, xmlRateOption{Code: code})
		}
	}

	var quotes priceQuotes
	if err := c.doXML(ctx, http.MethodPost, "/rs/ship/price", mediaRate, scenario, &quotes); err != nil {
		return nil, err
	}

	rates := make([]Rate, len(quotes.PriceQuote))
	for i, q := range quotes.PriceQuote {
		rates[i] = Rate{
			ServiceCode:      q.ServiceCode,
			ServiceName:      q.ServiceName,
			BaseRate:         q.PriceDetails.Base,
			TotalPrice:       q.PriceDetails.Due,
			ExpectedTransit:  q.ServiceStandard.ExpectedTransitTime,
			ExpectedDelivery: q.ServiceStandard.ExpectedDeliveryDate,
		}
	}
	return &RatesResponse{Rates: rates}, nil
}

// CreateShipment creates a new shipment via the Canada Post API.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	shipment := shipmentInfo{
		Xmlns:              "http://www.canadapost.ca/ws/shipment-v8",
		GroupID:            req.GroupID,
		CpcPickupIndicator: true,
		DeliverySpec: deliverySpec{
			ServiceCode: req.ServiceCode,
			Sender: xmlSenderInfo{
				Name:           req.Sender.Name,
				Company:        req.Sender.Company,
				ContactPhone:   req.Sender.Phone,
				AddressDetails: toXMLAddress(req.Sender),
			},
			Destination: xmlDestinationInfo{
				Name:           req.Destination.Name,
				Company:        req.Destination.Company,
				ClientVoice:    req.Destination.Phone,
				AddressDetails: toXMLAddress(req.Destination),
			},
			ParcelCharacter: parcelCharacteristics{Weight: roundTo(req.ParcelWeight, 3)},
		},
	}
	if req.ParcelDimensions.Length > 0 {
		shipment.DeliverySpec.ParcelCharacter.Dimensions = &xmlDimensions{
			Length: roundTo(req.ParcelDimensions.Length, 1),
			Width:  roundTo(req.ParcelDimensions.Width, 1),
			Height: roundTo(req.ParcelDimensions.Height, 1),
		}
	}
	if len(req.Options) > 0 {
		shipment.DeliverySpec.Options = &xmlShipmentOptions{}
		for _, o := range req.Options {
			shipment.DeliverySpec.Options.Option = append(shipment.DeliverySpec.Options.Option,
				xmlShipmentOption{Code: o.Code, Amount: o.Amount})
		}
	}

	path := fmt.Sprintf("/rs/%s/%s/shipment", url.PathEscape(c.accountID), url.PathEscape(c.accountID))
	var info shipmentInfoResponse
	if err := c.doXML(ctx, http.MethodPost, path, mediaShipment, shipment, &info); err != nil {
		return nil, err
	}

	links := make([]Link, len(info.Links.Link))
	for i, l := range info.Links.Link {
		links[i] = Link(l)
	}
	return &ShipmentResponse{
		ShipmentID:     info.ShipmentID,
		TrackingPIN:    info.TrackingPIN,
		ShipmentStatus: info.ShipmentStatus,
		Links:          links,
	}, nil
}

// GetTracking retrieves tracking detail from the Canada Post API.
func (c *HTTPAPIClient) GetTracking(ctx context.Context, pin string) (*TrackingResponse, error) {
	path := fmt.Sprintf("/vis/track/pin/%s/detail", url.PathEscape(pin))
	var detail trackingDetail
	if err := c.doXML(ctx, http.MethodGet, path, mediaTrack, nil, &detail); err != nil {
		return nil, err
	}

	events := make([]TrackingEvent, len(detail.SignificantEvents.Occurrence))
	for i, o := range detail.SignificantEvents.Occurrence {
		events[i] = TrackingEvent{
			Date:        o.Date,
			Time:        o.Time,
			Description: o.Description,
			Site:        o.Site,
			Province:    o.Province,
			Identifier:  o.Identifier,
		}
	}
	return &TrackingResponse{
		TrackingPIN:      detail.PIN,
		ExpectedDelivery: detail.ExpectedDeliveryDate,
		ActualDelivery:   detail.ActualDeliveryDate,
		Events:           events,
	}, nil
}

// DiscoverServices lists the services available to a destination country.
func (c *HTTPAPIClient) DiscoverServices(ctx context.Context, countryCode string) ([]Service, error) {
	path := "/rs/ship/service?country=" + url.QueryEscape(countryCode)
	var list services
	if err := c.doXML(ctx, http.MethodGet, path, mediaRate, nil, &list); err != nil {
		return nil, err
	}

	out := make([]Service, len(list.Service))
	for i, s := range list.Service {
		out[i] = Service{Code: s.Code, Name: s.Name}
	}
	return out, nil
}

// ============================================================================
// HTTP Helpers
// ============================================================================

func (c *HTTPAPIClient) doXML(ctx context.Context, method, path, media string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := xml.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Canada Post uses Basic Auth with API key:secret
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept-Language", "en-CA")
	req.Header.Set("Accept", media)
	if in != nil {
		req.Header.Set("Content-Type", media)
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
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var msgs messages
	if err := xml.Unmarshal(body, &msgs); err == nil && len(msgs.Message) > 0 {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        msgs.Message[0].Code,
			Description: msgs.Message[0].Description,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Description: http.StatusText(resp.StatusCode),
	}
}

func toXMLDestination(d Destination) xmlDestination {
	switch strings.ToUpper(d.CountryCode) {
	case "", "CA":
		return xmlDestination{Domestic: &xmlDomestic{PostalCode: normalizePostalCode(d.PostalCode)}}
	case "US":
		return xmlDestination{UnitedStates: &xmlUnitedStates{ZipCode: strings.TrimSpace(d.PostalCode)}}
	default:
		return xmlDestination{International: &xmlInternational{CountryCode: strings.ToUpper(d.CountryCode)}}
	}
}

func toXMLAddress(a Address) xmlAddressDetails {
	return xmlAddressDetails{
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		City:          a.City,
		ProvState:     a.Province,
		PostalZipCode: normalizePostalCode(a.PostalCode),
		CountryCode:   a.CountryCode,
	}
}

// normalizePostalCode removes spaces from postal codes
func normalizePostalCode(pc string) string {
	return strings.ReplaceAll(strings.ToUpper(pc), " ", "")
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

var _ APIClient = (*HTTPAPIClient)(nil)
