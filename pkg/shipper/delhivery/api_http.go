package delhivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// HTTPAPIClient is the production implementation of APIClient.
// Delhivery authenticates every call with a static "Token <api_token>" header.
type HTTPAPIClient struct {
	wire *wire.Client
}

// NewHTTPAPIClient creates an API client over the shared wire client.
func NewHTTPAPIClient(c *wire.Client, apiToken string) *HTTPAPIClient {
	c = c.WithAuth(wire.StaticHeader{Name: "Authorization", Value: "Token " + apiToken})
	return &HTTPAPIClient{wire: c}
}

// Charges calls GET /api/kinko/v1/invoice/charges/.json.
func (c *HTTPAPIClient) Charges(ctx context.Context, q *ChargesQuery) ([]ChargeResponse, error) {
	query := url.Values{
		"md":    {q.Mode},
		"ss":    {"Delivered"},
		"o_pin": {q.OriginPin},
		"d_pin": {q.DestinationPin},
		"cgm":   {strconv.Itoa(q.ChargeableWeightGm)},
		"pt":    {q.PaymentType},
	}
	if q.PaymentType == PaymentCOD {
		query.Set("cod", strconv.FormatFloat(q.CODAmount, 'f', 2, 64))
	}

	var out []ChargeResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/api/kinko/v1/invoice/charges/.json", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpectedTAT calls GET /api/dc/expected_tat.
func (c *HTTPAPIClient) ExpectedTAT(ctx context.Context, origin, destination, mode string) (*TATResponse, error) {
	query := url.Values{
		"origin_pin":      {origin},
		"destination_pin": {destination},
		"mot":             {mode},
	}
	var out TATResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/api/dc/expected_tat", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pincode calls GET /c/api/pin-codes/json/.
func (c *HTTPAPIClient) Pincode(ctx context.Context, pincode string) (*PincodeResponse, error) {
	var out PincodeResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/c/api/pin-codes/json/", url.Values{"filter_codes": {pincode}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder calls POST /api/cmu/create.json. The manifest travels as a
// JSON document inside the "data" form field.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *ManifestRequest) (*ManifestResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	form := url.Values{
		"format": {"json"},
		"data":   {string(data)},
	}
	var out ManifestResponse
	if err := c.wire.Form(ctx, http.MethodPost, "/api/cmu/create.json", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls GET /api/v1/packages/json/.
func (c *HTTPAPIClient) Track(ctx context.Context, waybill string) (*TrackResponse, error) {
	var out TrackResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/api/v1/packages/json/", url.Values{"waybill": {waybill}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel calls POST /api/p/edit with cancellation=true.
func (c *HTTPAPIClient) Cancel(ctx context.Context, waybill string) (*EditResponse, error) {
	body := map[string]string{
		"waybill":      waybill,
		"cancellation": "true",
	}
	var out EditResponse
	if err := c.wire.JSON(ctx, http.MethodPost, "/api/p/edit", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePickup calls POST /fm/request/new/.
func (c *HTTPAPIClient) CreatePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	var out PickupResponse
	if err := c.wire.JSON(ctx, http.MethodPost, "/fm/request/new/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PackingSlip calls GET /api/p/packing_slip.
func (c *HTTPAPIClient) PackingSlip(ctx context.Context, waybill string) (*PackingSlipResponse, error) {
	query := url.Values{
		"wbns": {waybill},
		"pdf":  {"true"},
	}
	var out PackingSlipResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/api/p/packing_slip", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
