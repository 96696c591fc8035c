package wire

import (
	"net/http"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Env carries the process-wide collaborators every adapter is built with.
type Env struct {
	HTTP   *http.Client
	Tokens *authcache.Cache
	Logger *otelzap.Logger
	Tracer trace.Tracer
	Now    func() time.Time
}

// WithDefaults fills unset collaborators.
func (e Env) WithDefaults() Env {
	if e.Logger == nil {
		e.Logger = otelzap.New(zap.NewNop())
	}
	if e.HTTP == nil {
		e.HTTP = NewHTTPClient(30*time.Second, e.Logger)
	}
	if e.Tokens == nil {
		e.Tokens = authcache.New(authcache.NewMemoryStore(), e.Logger)
	}
	e.Tracer = Tracer(e.Tracer)
	if e.Now == nil {
		e.Now = time.Now
	}
	return e
}

// NewClient builds a wire client for the resolved carrier configuration.
func (e Env) NewClient(cfg shipper.CarrierConfig, auth Auth) *Client {
	return &Client{
		Carrier: cfg.Code,
		BaseURL: cfg.BaseURL,
		HTTP:    e.HTTP,
		Auth:    auth,
	}
}

// TokenPolicy builds the cache policy for a login-based carrier. The
// carrier's configured TokenTTL, when set, caps the cached lifetime.
func TokenPolicy(cfg shipper.CarrierConfig, vendorExpiry, margin time.Duration) authcache.Policy {
	return authcache.Policy{
		DefaultExpiry: vendorExpiry,
		Margin:        margin,
		MaxTTL:        cfg.TokenTTL,
	}
}
