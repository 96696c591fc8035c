package xpressbees

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

const (
	tokenExpiry = 24 * time.Hour
	tokenMargin = 5 * time.Minute
)

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	wire    *wire.Client
	session *wire.Session
}

// NewHTTPAPIClient creates an API client that logs in with email and password.
func NewHTTPAPIClient(c *wire.Client, session wire.Session, email, password string) *HTTPAPIClient {
	api := &HTTPAPIClient{wire: c}
	session.Login = api.login(email, password)
	api.session = &session
	return api
}

func (c *HTTPAPIClient) login(email, password string) authcache.AcquireFunc {
	return func(ctx context.Context) (authcache.Grant, error) {
		var out LoginResponse
		err := c.wire.JSON(ctx, http.MethodPost, "/api/users/login", nil, &LoginRequest{Email: email, Password: password}, &out)
		if err == nil {
			err = c.check(out.Envelope)
		}
		if err != nil {
			return authcache.Grant{}, wire.LoginError(c.wire.Carrier, err)
		}
		return authcache.Grant{Value: out.Data}, nil
	}
}

func (c *HTTPAPIClient) check(env Envelope) error {
	if env.Status {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = "request not successful"
	}
	return wire.Rejected(c.wire.Carrier, msg)
}

// call runs one authenticated JSON request. env, when set, reads the
// response envelope so status=false surfaces as a rejection.
func (c *HTTPAPIClient) call(ctx context.Context, method, path string, in, out any, env func() Envelope) error {
	return c.session.Do(ctx, c.wire, func(ctx context.Context, w *wire.Client) error {
		if err := w.JSON(ctx, method, path, nil, in, out); err != nil {
			return err
		}
		if env == nil {
			return nil
		}
		return c.check(env())
	})
}

// Serviceability calls POST /api/courier/serviceability.
func (c *HTTPAPIClient) Serviceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	var out ServiceabilityResponse
	if err := c.call(ctx, http.MethodPost, "/api/courier/serviceability", req, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateShipment calls POST /api/shipments2.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var out ShipmentResponse
	if err := c.call(ctx, http.MethodPost, "/api/shipments2", req, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls GET /api/shipments2/track/{awb}. An unknown AWB is status=false.
func (c *HTTPAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	var out TrackResponse
	if err := c.call(ctx, http.MethodGet, "/api/shipments2/track/"+url.PathEscape(awb), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel calls POST /api/shipments2/cancel. A refusal is status=false.
func (c *HTTPAPIClient) Cancel(ctx context.Context, awb string) (*Envelope, error) {
	var out Envelope
	if err := c.call(ctx, http.MethodPost, "/api/shipments2/cancel", &CancelRequest{AWB: awb}, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Label calls GET /api/shipments2/label/{awb}.
func (c *HTTPAPIClient) Label(ctx context.Context, awb string) (*LabelResponse, error) {
	var out LabelResponse
	if err := c.call(ctx, http.MethodGet, "/api/shipments2/label/"+url.PathEscape(awb), nil, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Couriers calls GET /api/courier.
func (c *HTTPAPIClient) Couriers(ctx context.Context) (*CouriersResponse, error) {
	var out CouriersResponse
	if err := c.call(ctx, http.MethodGet, "/api/courier", nil, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
