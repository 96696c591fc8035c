// Package factory turns a carrier code into a configured adapter.
package factory

import (
	"context"
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/bigship"
	"github.com/tournevent/courierhub/pkg/shipper/catalog"
	"github.com/tournevent/courierhub/pkg/shipper/delhivery"
	"github.com/tournevent/courierhub/pkg/shipper/ecomexpress"
	"github.com/tournevent/courierhub/pkg/shipper/ekart"
	"github.com/tournevent/courierhub/pkg/shipper/shiprocket"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/tournevent/courierhub/pkg/shipper/xpressbees"
)

// Factory builds adapters from resolved configuration. It performs no
// network I/O; credentials are only exercised by the first adapter call.
type Factory struct {
	resolver *catalog.Resolver
	env      wire.Env
}

// New creates a factory over resolver. Unset collaborators in env get defaults.
func New(resolver *catalog.Resolver, env wire.Env) *Factory {
	return &Factory{resolver: resolver, env: env.WithDefaults()}
}

// Make resolves the carrier's configuration and returns a guarded adapter.
func (f *Factory) Make(ctx context.Context, code shipper.Code) (shipper.Shipper, error) {
	cfg, err := f.resolver.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		return nil, shipper.NewConfigError(code, shipper.ErrMissingCredentials, strings.Join(missing, ", "))
	}

	s, err := f.build(cfg)
	if err != nil {
		return nil, err
	}
	return Guard(s, cfg.Restrictions), nil
}

func (f *Factory) build(cfg shipper.CarrierConfig) (shipper.Shipper, error) {
	switch cfg.Code {
	case shipper.CodeDelhivery:
		return delhivery.New(cfg, f.env), nil
	case shipper.CodeShiprocket:
		return shiprocket.New(cfg, f.env), nil
	case shipper.CodeBigShip:
		return bigship.New(cfg, f.env), nil
	case shipper.CodeXpressbees:
		return xpressbees.New(cfg, f.env), nil
	case shipper.CodeEkart:
		return ekart.New(cfg, f.env), nil
	case shipper.CodeEcomExpress:
		return ecomexpress.New(cfg, f.env), nil
	default:
		return nil, shipper.NewConfigError(cfg.Code, shipper.ErrUnsupportedCarrier, "no adapter for carrier")
	}
}

// Webhook returns the push-notification parser for code, if the carrier has one.
func Webhook(code shipper.Code) (shipper.WebhookParser, bool) {
	switch code {
	case shipper.CodeDelhivery:
		return delhivery.ParseWebhook, true
	case shipper.CodeShiprocket:
		return shiprocket.ParseWebhook, true
	case shipper.CodeXpressbees:
		return xpressbees.ParseWebhook, true
	default:
		return nil, false
	}
}

// Ensure Factory implements shipper.Maker
var _ shipper.Maker = (*Factory)(nil)
