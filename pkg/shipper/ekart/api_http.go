package ekart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// merchantHeader carries the merchant code on every request.
const merchantHeader = "HTTP_X_MERCHANT_CODE"

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	wire *wire.Client
}

// NewHTTPAPIClient creates an API client. c must already carry Basic auth;
// the merchant header is added here.
func NewHTTPAPIClient(c *wire.Client, merchantCode string) *HTTPAPIClient {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(merchantHeader, merchantCode)
	cp := *c
	cp.Header = header
	return &HTTPAPIClient{wire: &cp}
}

// Rate calls POST /v2/shipments/rate.
func (c *HTTPAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	var out RateResponse
	if err := c.wire.JSON(ctx, http.MethodPost, "/v2/shipments/rate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Serviceability calls GET /v2/serviceability/{pincode}.
func (c *HTTPAPIClient) Serviceability(ctx context.Context, pincode string) (*ServiceabilityResponse, error) {
	var out ServiceabilityResponse
	if err := c.wire.JSON(ctx, http.MethodGet, "/v2/serviceability/"+url.PathEscape(pincode), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateShipment calls PUT /v2/shipments/create.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	var out CreateResponse
	if err := c.wire.JSON(ctx, http.MethodPut, "/v2/shipments/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls POST /v2/shipments/track.
func (c *HTTPAPIClient) Track(ctx context.Context, trackingIDs []string) (TrackResponse, error) {
	out := TrackResponse{}
	if err := c.wire.JSON(ctx, http.MethodPost, "/v2/shipments/track", nil, &TrackRequest{TrackingIDs: trackingIDs}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRTO calls PUT /v2/shipments/rto/create.
func (c *HTTPAPIClient) CreateRTO(ctx context.Context, req *RTORequest) (*CreateResponse, error) {
	var out CreateResponse
	if err := c.wire.JSON(ctx, http.MethodPut, "/v2/shipments/rto/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Labels calls POST /v2/shipments/labels and returns the PDF body.
func (c *HTTPAPIClient) Labels(ctx context.Context, trackingIDs []string) ([]byte, error) {
	body, err := json.Marshal(&LabelRequest{IDs: trackingIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	pdf := *c.wire
	pdf.Header = c.wire.Header.Clone()
	pdf.Header.Set("Accept", "application/pdf")
	data, _, err := pdf.Raw(ctx, http.MethodPost, "/v2/shipments/labels", nil, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
