package shiprocket

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// Shiprocket tokens are valid for 240 hours.
const (
	tokenExpiry = 240 * time.Hour
	tokenMargin = time.Hour
)

// HTTPAPIClient is the production implementation of APIClient.
// Every call runs inside a login session backed by the shared token cache.
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
		if err := c.wire.JSON(ctx, http.MethodPost, "/v1/external/auth/login", nil, &LoginRequest{Email: email, Password: password}, &out); err != nil {
			return authcache.Grant{}, wire.LoginError(c.wire.Carrier, err)
		}
		// The JWT exp claim bounds the cache TTL when present.
		return authcache.Grant{Value: out.Token}, nil
	}
}

func (c *HTTPAPIClient) do(ctx context.Context, call func(ctx context.Context, w *wire.Client) error) error {
	return c.session.Do(ctx, c.wire, call)
}

// Serviceability calls GET /v1/external/courier/serviceability/.
func (c *HTTPAPIClient) Serviceability(ctx context.Context, q *ServiceabilityQuery) (*ServiceabilityResponse, error) {
	query := url.Values{
		"pickup_postcode":   {q.PickupPostcode},
		"delivery_postcode": {q.DeliveryPostcode},
		"weight":            {strconv.FormatFloat(q.WeightKg, 'f', -1, 64)},
		"length":            {strconv.FormatFloat(q.Length, 'f', -1, 64)},
		"breadth":           {strconv.FormatFloat(q.Breadth, 'f', -1, 64)},
		"height":            {strconv.FormatFloat(q.Height, 'f', -1, 64)},
		"declared_value":    {strconv.FormatFloat(q.DeclaredValue, 'f', -1, 64)},
		"cod":               {"0"},
	}
	if q.COD {
		query.Set("cod", "1")
	}

	var out ServiceabilityResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodGet, "/v1/external/courier/serviceability/", query, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder calls POST /v1/external/orders/create/adhoc.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	var out OrderResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", nil, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignAWB calls POST /v1/external/courier/assign/awb.
func (c *HTTPAPIClient) AssignAWB(ctx context.Context, req *AssignAWBRequest) (*AssignAWBResponse, error) {
	var out AssignAWBResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodPost, "/v1/external/courier/assign/awb", nil, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls GET /v1/external/courier/track/awb/{awb}.
func (c *HTTPAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	var out TrackResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodGet, "/v1/external/courier/track/awb/"+url.PathEscape(awb), nil, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel calls POST /v1/external/orders/cancel/shipment/awbs.
func (c *HTTPAPIClient) Cancel(ctx context.Context, awbs []string) (*CancelResponse, error) {
	var out CancelResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodPost, "/v1/external/orders/cancel/shipment/awbs", nil, &CancelRequest{AWBs: awbs}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePickup calls POST /v1/external/courier/generate/pickup.
func (c *HTTPAPIClient) GeneratePickup(ctx context.Context, shipmentIDs []int64) (*PickupResponse, error) {
	var out PickupResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodPost, "/v1/external/courier/generate/pickup", nil, &ShipmentIDsRequest{ShipmentID: shipmentIDs}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateLabel calls POST /v1/external/courier/generate/label.
func (c *HTTPAPIClient) GenerateLabel(ctx context.Context, shipmentIDs []int64) (*LabelResponse, error) {
	var out LabelResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodPost, "/v1/external/courier/generate/label", nil, &ShipmentIDsRequest{ShipmentID: shipmentIDs}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PickupLocations calls GET /v1/external/settings/company/pickup.
func (c *HTTPAPIClient) PickupLocations(ctx context.Context) (*PickupLocationsResponse, error) {
	var out PickupLocationsResponse
	err := c.do(ctx, func(ctx context.Context, w *wire.Client) error {
		return w.JSON(ctx, http.MethodGet, "/v1/external/settings/company/pickup", nil, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
