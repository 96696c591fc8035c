// Package catalog resolves carrier configuration from a static catalog of
// per-carrier defaults and operator-entered overrides.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tournevent/courierhub/pkg/shipper"
)

// Entry is the static description of a carrier.
type Entry struct {
	Code             shipper.Code
	DisplayName      string
	CredentialSchema []shipper.CredentialField
	Endpoints        map[shipper.Mode]string
	DefaultMode      shipper.Mode
	Features         []shipper.Feature
	WeightUnit       shipper.WeightUnit
	DimensionUnit    shipper.DimensionUnit
	Restrictions     shipper.Restrictions
	Enabled          bool
	TokenTTL         time.Duration
}

// Catalog is an ordered, read-only set of entries.
type Catalog struct {
	entries map[shipper.Code]Entry
	order   []shipper.Code
}

// New builds a catalog from entries; later entries replace earlier ones with the same code.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[shipper.Code]Entry, len(entries))}
	for _, e := range entries {
		c.put(e)
	}
	return c
}

func (c *Catalog) put(e Entry) {
	if _, ok := c.entries[e.Code]; !ok {
		c.order = append(c.order, e.Code)
	}
	c.entries[e.Code] = e
}

// Entry returns the entry for code.
func (c *Catalog) Entry(code shipper.Code) (Entry, bool) {
	e, ok := c.entries[code]
	return e, ok
}

// Codes returns every catalogued code in catalog order.
func (c *Catalog) Codes() []shipper.Code {
	out := make([]shipper.Code, len(c.order))
	copy(out, c.order)
	return out
}

func secret(name, label string) shipper.CredentialField {
	return shipper.CredentialField{Name: name, Label: label, Secret: true, Required: true}
}

func plain(name, label string) shipper.CredentialField {
	return shipper.CredentialField{Name: name, Label: label, Required: true}
}

// DefaultCatalog describes every carrier with an adapter.
func DefaultCatalog() *Catalog {
	all := []shipper.Feature{
		shipper.FeatureRates, shipper.FeatureShipments, shipper.FeatureTracking,
		shipper.FeatureCancellation, shipper.FeatureServiceability,
	}
	with := func(extra ...shipper.Feature) []shipper.Feature {
		return append(append([]shipper.Feature(nil), all...), extra...)
	}

	return New(
		Entry{
			Code:             shipper.CodeDelhivery,
			DisplayName:      "Delhivery",
			CredentialSchema: []shipper.CredentialField{secret("api_token", "API Token"), {Name: "client_name", Label: "Registered Client Name"}},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://staging-express.delhivery.com",
				shipper.ModeProduction: "https://track.delhivery.com",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      with(shipper.FeaturePickup, shipper.FeatureLabels, shipper.FeatureWebhooks),
			WeightUnit:    shipper.WeightGram,
			DimensionUnit: shipper.DimensionCM,
			Restrictions:  shipper.Restrictions{MaxWeightKg: 50},
			Enabled:       true,
		},
		Entry{
			Code:             shipper.CodeShiprocket,
			DisplayName:      "Shiprocket",
			CredentialSchema: []shipper.CredentialField{plain("email", "API User Email"), secret("password", "API User Password")},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://apiv2.shiprocket.in",
				shipper.ModeProduction: "https://apiv2.shiprocket.in",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      with(shipper.FeaturePickup, shipper.FeatureLabels, shipper.FeatureWebhooks),
			WeightUnit:    shipper.WeightKG,
			DimensionUnit: shipper.DimensionCM,
			Restrictions:  shipper.Restrictions{MaxWeightKg: 100},
			Enabled:       true,
		},
		Entry{
			Code:        shipper.CodeBigShip,
			DisplayName: "BigShip",
			CredentialSchema: []shipper.CredentialField{
				plain("username", "User Name"), secret("password", "Password"), secret("access_key", "Access Key"),
			},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://api.bigship.in",
				shipper.ModeProduction: "https://api.bigship.in",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      with(shipper.FeatureLabels),
			WeightUnit:    shipper.WeightKG,
			DimensionUnit: shipper.DimensionCM,
			Enabled:       true,
			// Vendor states 12h; kept short until expiry behaviour is confirmed.
			TokenTTL: 2 * time.Hour,
		},
		Entry{
			Code:             shipper.CodeXpressbees,
			DisplayName:      "Xpressbees",
			CredentialSchema: []shipper.CredentialField{plain("email", "Email"), secret("password", "Password")},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://shipment.xpressbees.com",
				shipper.ModeProduction: "https://shipment.xpressbees.com",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      with(shipper.FeatureLabels, shipper.FeatureWebhooks),
			WeightUnit:    shipper.WeightGram,
			DimensionUnit: shipper.DimensionCM,
			Enabled:       true,
		},
		Entry{
			Code:        shipper.CodeEkart,
			DisplayName: "Ekart Logistics",
			CredentialSchema: []shipper.CredentialField{
				plain("key_id", "Key ID"), secret("key_secret", "Key Secret"), plain("merchant_code", "Merchant Code"),
			},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://staging.ekartlogistics.com",
				shipper.ModeProduction: "https://api.ekartlogistics.com",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      with(shipper.FeatureLabels),
			WeightUnit:    shipper.WeightKG,
			DimensionUnit: shipper.DimensionCM,
			Restrictions:  shipper.Restrictions{MaxWeightKg: 30, MaxDeclaredValue: 100000},
			Enabled:       true,
		},
		Entry{
			Code:             shipper.CodeEcomExpress,
			DisplayName:      "Ecom Express",
			CredentialSchema: []shipper.CredentialField{plain("username", "Username"), secret("password", "Password")},
			Endpoints: map[shipper.Mode]string{
				shipper.ModeTest:       "https://clbeta.ecomexpress.in",
				shipper.ModeProduction: "https://api.ecomexpress.in",
			},
			DefaultMode:   shipper.ModeProduction,
			Features:      all,
			WeightUnit:    shipper.WeightKG,
			DimensionUnit: shipper.DimensionCM,
			Restrictions:  shipper.Restrictions{MaxDeclaredValue: 50000},
			Enabled:       true,
		},
	)
}

// fileEntry is the on-disk shape of a catalog entry. Unset fields keep the default.
type fileEntry struct {
	Code             string                    `mapstructure:"code"`
	DisplayName      string                    `mapstructure:"display_name"`
	CredentialSchema []shipper.CredentialField `mapstructure:"credential_schema"`
	Endpoints        map[string]string         `mapstructure:"endpoints"`
	DefaultMode      string                    `mapstructure:"default_mode"`
	Features         []string                  `mapstructure:"features"`
	WeightUnit       string                    `mapstructure:"weight_unit"`
	DimensionUnit    string                    `mapstructure:"dimension_unit"`
	Restrictions     *shipper.Restrictions     `mapstructure:"restrictions"`
	Enabled          *bool                     `mapstructure:"enabled"`
	TokenTTL         time.Duration             `mapstructure:"token_ttl"`
}

// LoadCatalog reads YAML or JSON catalog entries from path and layers them
// over DefaultCatalog. Entries for codes without an adapter are kept so the
// factory can report them as unsupported.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var files []fileEntry
	if err := v.UnmarshalKey("carriers", &files); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}

	c := DefaultCatalog()
	for _, f := range files {
		code := shipper.Code(strings.ToLower(strings.TrimSpace(f.Code)))
		if code == "" {
			return nil, fmt.Errorf("catalog %s: entry without code", path)
		}
		base, ok := c.Entry(code)
		if !ok {
			base = Entry{Code: code, Enabled: true, DefaultMode: shipper.ModeProduction}
		}
		c.put(f.over(base))
	}
	return c, nil
}

func (f fileEntry) over(e Entry) Entry {
	if f.DisplayName != "" {
		e.DisplayName = f.DisplayName
	}
	if len(f.CredentialSchema) > 0 {
		e.CredentialSchema = f.CredentialSchema
	}
	if len(f.Endpoints) > 0 {
		endpoints := make(map[shipper.Mode]string, len(e.Endpoints)+len(f.Endpoints))
		for m, u := range e.Endpoints {
			endpoints[m] = u
		}
		for m, u := range f.Endpoints {
			if u != "" {
				endpoints[shipper.Mode(strings.ToLower(m))] = u
			}
		}
		e.Endpoints = endpoints
	}
	if f.DefaultMode != "" {
		e.DefaultMode = shipper.Mode(strings.ToLower(f.DefaultMode))
	}
	if len(f.Features) > 0 {
		e.Features = make([]shipper.Feature, 0, len(f.Features))
		for _, name := range f.Features {
			e.Features = append(e.Features, shipper.Feature(strings.ToLower(name)))
		}
	}
	if f.WeightUnit != "" {
		e.WeightUnit = shipper.WeightUnit(f.WeightUnit)
	}
	if f.DimensionUnit != "" {
		e.DimensionUnit = shipper.DimensionUnit(f.DimensionUnit)
	}
	if f.Restrictions != nil {
		e.Restrictions = *f.Restrictions
	}
	if f.Enabled != nil {
		e.Enabled = *f.Enabled
	}
	if f.TokenTTL > 0 {
		e.TokenTTL = f.TokenTTL
	}
	return e
}
