package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/secrets"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver merges catalog defaults with operator overrides.
type Resolver struct {
	catalog   *Catalog
	overrides OverrideSource
	decrypter secrets.Decrypter
	logger    *otelzap.Logger
}

// NewResolver creates a resolver. A nil overrides source or decrypter means none.
func NewResolver(catalog *Catalog, overrides OverrideSource, decrypter secrets.Decrypter, logger *otelzap.Logger) *Resolver {
	if overrides == nil {
		overrides = NewStaticOverrides()
	}
	if decrypter == nil {
		decrypter = secrets.Nop{}
	}
	return &Resolver{
		catalog:   catalog,
		overrides: overrides,
		decrypter: decrypter,
		logger:    logger,
	}
}

// Catalog returns the underlying catalog.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Resolve returns the effective configuration for an enabled carrier.
func (r *Resolver) Resolve(ctx context.Context, code shipper.Code) (shipper.CarrierConfig, error) {
	cfg, err := r.Inspect(ctx, code)
	if err != nil {
		return shipper.CarrierConfig{}, err
	}
	if !cfg.Enabled {
		return shipper.CarrierConfig{}, shipper.NewConfigError(code, shipper.ErrCarrierDisabled, "")
	}
	return cfg, nil
}

// Inspect merges configuration without rejecting disabled carriers.
// Used by listings that show disabled carriers alongside enabled ones.
func (r *Resolver) Inspect(ctx context.Context, code shipper.Code) (shipper.CarrierConfig, error) {
	entry, ok := r.catalog.Entry(code)
	if !ok {
		return shipper.CarrierConfig{}, shipper.NewConfigError(code, shipper.ErrCarrierNotFound, "")
	}

	override, _, err := r.overrides.Override(ctx, code)
	if err != nil {
		return shipper.CarrierConfig{}, fmt.Errorf("loading override for %s: %w", code, err)
	}

	return r.merge(ctx, entry, override), nil
}

func (r *Resolver) merge(ctx context.Context, e Entry, o Override) shipper.CarrierConfig {
	cfg := shipper.CarrierConfig{
		Code:             e.Code,
		DisplayName:      e.DisplayName,
		Mode:             firstNonEmpty(o.Mode, e.DefaultMode, shipper.ModeProduction),
		CredentialSchema: e.CredentialSchema,
		Features:         e.Features,
		WeightUnit:       e.WeightUnit,
		DimensionUnit:    e.DimensionUnit,
		Enabled:          e.Enabled,
		Primary:          o.Primary,
		Restrictions:     e.Restrictions,
		TokenTTL:         e.TokenTTL,
	}
	if o.Enabled != nil {
		cfg.Enabled = *o.Enabled
	}
	if o.TokenTTL > 0 {
		cfg.TokenTTL = o.TokenTTL
	}

	cfg.BaseURL = o.Endpoint
	if cfg.BaseURL == "" {
		cfg.BaseURL = e.Endpoints[cfg.Mode]
	}

	cfg.Credentials = make(map[string]string, len(e.CredentialSchema))
	for _, field := range e.CredentialSchema {
		raw := o.Credentials[field.Name]
		if raw == "" {
			continue
		}
		cfg.Credentials[field.Name] = r.reveal(ctx, e.Code, field.Name, raw)
	}
	return cfg
}

// reveal decrypts a stored credential, using the raw value when it is not decryptable.
func (r *Resolver) reveal(ctx context.Context, code shipper.Code, field, raw string) string {
	plain, err := r.decrypter.Decrypt(raw)
	if err == nil {
		return plain
	}
	if !errors.Is(err, secrets.ErrNotEncrypted) {
		r.logger.Ctx(ctx).Debug("Credential decryption failed, using stored value",
			zap.String("carrier", string(code)),
			zap.String("field", field),
			zap.Error(err))
	} else {
		r.logger.Ctx(ctx).Debug("Credential not encrypted, using stored value",
			zap.String("carrier", string(code)),
			zap.String("field", field))
	}
	return raw
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
