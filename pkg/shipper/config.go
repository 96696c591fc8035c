package shipper

import (
	"fmt"
	"time"
)

// Feature is an optional capability a carrier exposes.
type Feature string

const (
	FeatureRates          Feature = "rates"
	FeatureShipments      Feature = "shipments"
	FeatureTracking       Feature = "tracking"
	FeatureCancellation   Feature = "cancellation"
	FeatureServiceability Feature = "serviceability"
	FeaturePickup         Feature = "pickup"
	FeatureLabels         Feature = "labels"
	FeatureWebhooks       Feature = "webhooks"
)

// CredentialField describes one credential a carrier needs.
type CredentialField struct {
	Name     string `json:"name" mapstructure:"name"`
	Label    string `json:"label" mapstructure:"label"`
	Secret   bool   `json:"secret" mapstructure:"secret"`
	Required bool   `json:"required" mapstructure:"required"`
}

// Restrictions are hard limits the carrier will not accept.
// Zero means unrestricted.
type Restrictions struct {
	MaxWeightKg      float64 `json:"max_weight_kg" mapstructure:"max_weight_kg"`
	MaxDeclaredValue float64 `json:"max_declared_value" mapstructure:"max_declared_value"`
}

// Check rejects requests outside the restrictions.
func (r Restrictions) Check(req *ShipmentRequest) error {
	if r.MaxWeightKg > 0 && req.Weight > r.MaxWeightKg {
		return fmt.Errorf("%w: weight %.2fkg exceeds carrier limit %.2fkg", ErrInvalidPackage, req.Weight, r.MaxWeightKg)
	}
	if r.MaxDeclaredValue > 0 && req.DeclaredValue > r.MaxDeclaredValue {
		return fmt.Errorf("%w: declared value %.2f exceeds carrier limit %.2f", ErrInvalidPackage, req.DeclaredValue, r.MaxDeclaredValue)
	}
	return nil
}

// CarrierConfig is the resolved, immutable configuration for one carrier.
// It is safe to share between goroutines once resolved.
type CarrierConfig struct {
	Code             Code
	DisplayName      string
	BaseURL          string
	Mode             Mode
	Credentials      map[string]string
	CredentialSchema []CredentialField
	Features         []Feature
	WeightUnit       WeightUnit
	DimensionUnit    DimensionUnit
	Enabled          bool
	Primary          bool
	Restrictions     Restrictions
	// TokenTTL caps how long a login token is cached; zero uses the carrier default.
	TokenTTL time.Duration
}

// Credential returns the named credential, or "" when not configured.
func (c CarrierConfig) Credential(name string) string {
	return c.Credentials[name]
}

// MissingCredentials lists required schema fields that have no value.
func (c CarrierConfig) MissingCredentials() []string {
	var missing []string
	for _, f := range c.CredentialSchema {
		if f.Required && c.Credentials[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Supports reports whether the carrier advertises the feature.
func (c CarrierConfig) Supports(f Feature) bool {
	for _, have := range c.Features {
		if have == f {
			return true
		}
	}
	return false
}
