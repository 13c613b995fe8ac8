package shipper

import (
	"fmt"
	"strings"
)

// Carrier identifies a supported carrier integration. The set is closed: adding
// a carrier means adding a constant here and a case in the carrier factory.
type Carrier string

const (
	CarrierDHL        Carrier = "dhl"
	CarrierCanadaPost Carrier = "canadapost"
	CarrierMock       Carrier = "mock"
)

// Carriers lists every supported carrier.
func Carriers() []Carrier {
	return []Carrier{CarrierDHL, CarrierCanadaPost, CarrierMock}
}

// ParseCarrier converts a provider key into a Carrier.
func ParseCarrier(key string) (Carrier, error) {
	c := Carrier(strings.ToLower(strings.TrimSpace(key)))
	switch c {
	case CarrierDHL, CarrierCanadaPost, CarrierMock:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCarrier, key)
	}
}

func (c Carrier) String() string {
	return string(c)
}
