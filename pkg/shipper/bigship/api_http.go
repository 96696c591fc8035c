package bigship

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// BigShip declares a 12 hour token lifetime.
const (
	tokenExpiry = 12 * time.Hour
	tokenMargin = 10 * time.Minute
)

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	wire    *wire.Client
	session *wire.Session
}

// Credentials are the seller login fields.
type Credentials struct {
	Username  string
	Password  string
	AccessKey string
}

// NewHTTPAPIClient creates an API client that logs in with creds.
func NewHTTPAPIClient(c *wire.Client, session wire.Session, creds Credentials) *HTTPAPIClient {
	api := &HTTPAPIClient{wire: c}
	session.Login = api.login(creds)
	api.session = &session
	return api
}

func (c *HTTPAPIClient) login(creds Credentials) authcache.AcquireFunc {
	return func(ctx context.Context) (authcache.Grant, error) {
		var out LoginResponse
		req := &LoginRequest{UserName: creds.Username, Password: creds.Password, AccessKey: creds.AccessKey}
		err := c.wire.JSON(ctx, http.MethodPost, "/api/login/seller", nil, req, &out)
		if err == nil {
			err = c.check(out.Envelope)
		}
		if err != nil {
			return authcache.Grant{}, wire.LoginError(c.wire.Carrier, err)
		}
		return authcache.Grant{Value: out.Data.Token}, nil
	}
}

// check turns a success=false envelope into a vendor rejection.
func (c *HTTPAPIClient) check(env Envelope) error {
	if env.Success {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = "request not successful"
	}
	return wire.Rejected(c.wire.Carrier, msg)
}

func (c *HTTPAPIClient) call(ctx context.Context, method, path string, query url.Values, in any, out any, env func() Envelope) error {
	return c.session.Do(ctx, c.wire, func(ctx context.Context, w *wire.Client) error {
		if err := w.JSON(ctx, method, path, query, in, out); err != nil {
			return err
		}
		if env == nil {
			return nil
		}
		return c.check(env())
	})
}

// Calculate calls POST /api/calculator.
func (c *HTTPAPIClient) Calculate(ctx context.Context, req *CalculatorRequest) (*CalculatorResponse, error) {
	var out CalculatorResponse
	if err := c.call(ctx, http.MethodPost, "/api/calculator", nil, req, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddOrder calls POST /api/order/add/single.
func (c *HTTPAPIClient) AddOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.call(ctx, http.MethodPost, "/api/order/add/single", nil, req, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Manifest calls POST /api/order/manifest/single.
func (c *HTTPAPIClient) Manifest(ctx context.Context, req *ManifestRequest) (*Envelope, error) {
	var out Envelope
	if err := c.call(ctx, http.MethodPost, "/api/order/manifest/single", nil, req, &out, func() Envelope { return out }); err != nil {
		return nil, err
	}
	return &out, nil
}

// ShipmentData calls POST /api/shipment/data.
func (c *HTTPAPIClient) ShipmentData(ctx context.Context, kind int, systemOrderID string) (*ShipmentDataResponse, error) {
	query := url.Values{
		"shipment_data_id": {strconv.Itoa(kind)},
		"system_order_id":  {systemOrderID},
	}
	var out ShipmentDataResponse
	if err := c.call(ctx, http.MethodPost, "/api/shipment/data", query, nil, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls GET /api/tracking. An unknown AWB comes back as
// success=false, which is left for the caller to interpret.
func (c *HTTPAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	query := url.Values{
		"tracking_type": {"awb"},
		"tracking_id":   {awb},
	}
	var out TrackResponse
	if err := c.call(ctx, http.MethodGet, "/api/tracking", query, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel calls PUT /api/order/cancel. A refusal is returned as success=false.
func (c *HTTPAPIClient) Cancel(ctx context.Context, awbs []string) (*Envelope, error) {
	var out Envelope
	if err := c.call(ctx, http.MethodPut, "/api/order/cancel", nil, awbs, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Warehouses calls GET /api/warehouse/get/list.
func (c *HTTPAPIClient) Warehouses(ctx context.Context) (*WarehouseResponse, error) {
	query := url.Values{
		"page_index": {"1"},
		"page_size":  {"1"},
	}
	var out WarehouseResponse
	if err := c.call(ctx, http.MethodGet, "/api/warehouse/get/list", query, nil, &out, func() Envelope { return out.Envelope }); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
