package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

// Payload is the body carriers push to /webhooks/{carrier}.
type Payload struct {
	TrackingNumber    string         `json:"trackingNumber"`
	Status            string         `json:"status"`
	Events            []PayloadEvent `json:"events,omitempty"`
	EstimatedDelivery *Timestamp     `json:"estimatedDelivery,omitempty"`
	ActualDelivery    *Timestamp     `json:"actualDelivery,omitempty"`
	Location          string         `json:"location,omitempty"`
	Description       string         `json:"description,omitempty"`
}

// PayloadEvent is one carrier checkpoint. A missing status inherits the
// payload status.
type PayloadEvent struct {
	Type        string     `json:"type,omitempty"`
	Status      string     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Timestamp   *Timestamp `json:"timestamp,omitempty"`
}

// Timestamp accepts RFC 3339 times and bare dates.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// update is a decoded and validated payload.
type update struct {
	trackingNumber string
	status         shipper.ShipmentStatus
	estimated      *time.Time
	actual         *time.Time
	location       string
	description    string
	events         []event
}

type event struct {
	eventType   string
	status      shipper.ShipmentStatus
	description string
	location    string
	occurredAt  *time.Time
}

func decodePayload(body []byte) (*update, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, shipping.NewValidationError("invalid webhook payload: %v", err)
	}

	tn := strings.TrimSpace(p.TrackingNumber)
	if tn == "" {
		return nil, &shipping.ValidationError{
			Message: "trackingNumber is required",
			Fields:  map[string]string{"trackingNumber": "required"},
		}
	}
	status, err := shipper.ParseShipmentStatus(p.Status)
	if err != nil {
		return nil, &shipping.ValidationError{
			Message: fmt.Sprintf("unknown status %q", p.Status),
			Fields:  map[string]string{"status": "unknown"},
		}
	}

	u := &update{
		trackingNumber: tn,
		status:         status,
		estimated:      p.EstimatedDelivery.ptr(),
		actual:         p.ActualDelivery.ptr(),
		location:       p.Location,
		description:    p.Description,
	}
	for i, pe := range p.Events {
		evStatus := status
		if pe.Status != "" {
			evStatus, err = shipper.ParseShipmentStatus(pe.Status)
			if err != nil {
				return nil, shipping.NewValidationError("event %d: unknown status %q", i+1, pe.Status)
			}
		}
		u.events = append(u.events, event{
			eventType:   coalesce(pe.Type, string(evStatus)),
			status:      evStatus,
			description: pe.Description,
			location:    pe.Location,
			occurredAt:  pe.Timestamp.ptr(),
		})
	}
	return u, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
