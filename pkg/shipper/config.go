package shipper

import (
	"fmt"
	"strings"
	"time"
)

// Credential keys understood by the bundled adapters.
const (
	CredAPIKey        = "api_key"
	CredAPISecret     = "api_secret"
	CredAccountNumber = "account_number"
	CredBaseURL       = "base_url"
)

// Fallback package defaults used when a ProviderConfig leaves them at zero.
const (
	DefaultPackageWeight = 1.0
	DefaultPackageLength = 30.0
	DefaultPackageWidth  = 20.0
	DefaultPackageHeight = 10.0
)

// PackageDefaults are the dimensions and weight applied to every shipment of a provider.
type PackageDefaults struct {
	Weight        float64       `json:"weight"`
	Length        float64       `json:"length"`
	Width         float64       `json:"width"`
	Height        float64       `json:"height"`
	WeightUnit    WeightUnit    `json:"weightUnit"`
	DimensionUnit DimensionUnit `json:"dimensionUnit"`
}

// Features are the provider-level shipment options.
type Features struct {
	Insurance      bool `json:"insurance"`
	Signature      bool `json:"signature"`
	CashOnDelivery bool `json:"cashOnDelivery"`
}

// ProviderConfig is the stored configuration of one carrier. It is loaded on
// every call and never cached.
type ProviderConfig struct {
	Provider       Carrier           `json:"provider"`
	Enabled        bool              `json:"enabled"`
	Sandbox        bool              `json:"sandbox"`
	Credentials    map[string]string `json:"credentials,omitempty"`
	Defaults       PackageDefaults   `json:"defaults"`
	DefaultService string            `json:"defaultService,omitempty"`
	ShipperAddress Address           `json:"shipperAddress"`
	Features       Features          `json:"features"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Credential returns a credential value or "".
func (c ProviderConfig) Credential(key string) string {
	if c.Credentials == nil {
		return ""
	}
	return c.Credentials[key]
}

// PackageDefaults returns the configured defaults with zero values filled in.
func (c ProviderConfig) PackageDefaults() PackageDefaults {
	d := c.Defaults
	if d.Weight <= 0 {
		d.Weight = DefaultPackageWeight
	}
	if d.Length <= 0 {
		d.Length = DefaultPackageLength
	}
	if d.Width <= 0 {
		d.Width = DefaultPackageWidth
	}
	if d.Height <= 0 {
		d.Height = DefaultPackageHeight
	}
	if d.WeightUnit == "" {
		d.WeightUnit = WeightKG
	}
	if d.DimensionUnit == "" {
		d.DimensionUnit = DimensionCM
	}
	return d
}

// IsSecretCredential reports whether a credential key must never leave the service.
func IsSecretCredential(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"secret", "password", "key", "token"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// Redacted returns a copy without secret credentials.
func (c ProviderConfig) Redacted() ProviderConfig {
	out := c
	out.Credentials = make(map[string]string, len(c.Credentials))
	for k, v := range c.Credentials {
		if IsSecretCredential(k) {
			continue
		}
		out.Credentials[k] = v
	}
	return out
}

// ConfigurationMissingError reports that no enabled configuration exists for a provider.
type ConfigurationMissingError struct {
	Provider string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("No active shipping configuration found for %s", e.Provider)
}

// Is matches ErrConfigurationMissing.
func (e *ConfigurationMissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}
