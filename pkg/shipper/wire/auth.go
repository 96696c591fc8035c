package wire

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/authcache"
)

// Auth decorates an outgoing vendor request with credentials.
type Auth interface {
	Apply(ctx context.Context, req *http.Request) error
}

// AuthFunc adapts a function to Auth.
type AuthFunc func(ctx context.Context, req *http.Request) error

// Apply calls f.
func (f AuthFunc) Apply(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// StaticHeader sends a fixed header, e.g. "Authorization: Token <key>".
type StaticHeader struct {
	Name  string
	Value string
}

// Apply implements Auth.
func (h StaticHeader) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set(h.Name, h.Value)
	return nil
}

// Basic is HTTP Basic authentication.
type Basic struct {
	Username string
	Password string
}

// Apply implements Auth.
func (b Basic) Apply(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// BearerToken sends a fixed bearer token.
type BearerToken string

// Apply implements Auth.
func (t BearerToken) Apply(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// Chain applies each Auth in order.
type Chain []Auth

// Apply implements Auth.
func (c Chain) Apply(ctx context.Context, req *http.Request) error {
	for _, a := range c {
		if a == nil {
			continue
		}
		if err := a.Apply(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Session runs calls with a login token from the shared token cache.
// A call rejected as unauthorized is retried once with a fresh token.
type Session struct {
	Tokens *authcache.Cache
	Scope  string
	Policy authcache.Policy
	Login  authcache.AcquireFunc
	// Scheme turns a token into request auth; nil means BearerToken.
	Scheme func(token string) Auth
}

// Do runs call against a copy of c authenticated with the session token.
func (s *Session) Do(ctx context.Context, c *Client, call func(ctx context.Context, c *Client) error) error {
	scheme := s.Scheme
	if scheme == nil {
		scheme = func(token string) Auth { return BearerToken(token) }
	}
	return s.Tokens.Do(ctx, s.Scope, s.Policy, s.Login, func(ctx context.Context, token string) error {
		return call(ctx, c.WithAuth(Chain{c.Auth, scheme(token)}))
	})
}

// LoginError reclassifies a vendor-rejected login as an authentication
// failure. Transport and server errors keep their class.
func LoginError(carrier shipper.Code, err error) error {
	if err == nil || shipper.IsUnauthorized(err) || shipper.Classify(err) != shipper.ClassBusiness {
		return err
	}
	return shipper.NewShipperError(carrier, "LOGIN_FAILED", "login rejected").
		WithCause(fmt.Errorf("%w: %v", shipper.ErrAuthenticationFailed, err))
}

var (
	_ Auth = StaticHeader{}
	_ Auth = Basic{}
	_ Auth = BearerToken("")
	_ Auth = Chain(nil)
	_ Auth = AuthFunc(nil)
)
