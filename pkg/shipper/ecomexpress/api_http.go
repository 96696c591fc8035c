package ecomexpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// HTTPAPIClient is the production implementation of APIClient.
type HTTPAPIClient struct {
	wire     *wire.Client
	username string
	password string
}

// NewHTTPAPIClient creates an API client that sends credentials in each form.
func NewHTTPAPIClient(c *wire.Client, username, password string) *HTTPAPIClient {
	return &HTTPAPIClient{wire: c, username: username, password: password}
}

func (c *HTTPAPIClient) form(values url.Values) url.Values {
	if values == nil {
		values = url.Values{}
	}
	values.Set("username", c.username)
	values.Set("password", c.password)
	return values
}

func jsonInput(v any) (url.Values, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json_input: %w", err)
	}
	return url.Values{"json_input": {string(raw)}}, nil
}

// Rate calls POST /services/rateCalculatorAPI/.
func (c *HTTPAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResult, error) {
	values, err := jsonInput([]*RateRequest{req})
	if err != nil {
		return nil, err
	}
	var out []RateResult
	if err := c.wire.Form(ctx, http.MethodPost, "/services/rateCalculatorAPI/", c.form(values), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return &RateResult{}, nil
	}
	return &out[0], nil
}

// Pincode calls POST /apiv2/pincodes/.
func (c *HTTPAPIClient) Pincode(ctx context.Context, pincode string) (*PincodeInfo, error) {
	var out []PincodeInfo
	if err := c.wire.Form(ctx, http.MethodPost, "/apiv2/pincodes/", c.form(url.Values{"pincode": {pincode}}), &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Pincode.String() == pincode {
			return &out[i], nil
		}
	}
	return nil, nil
}

// FetchAWB calls POST /apiv2/fetch_awb/. A refusal comes back as success=no.
func (c *HTTPAPIClient) FetchAWB(ctx context.Context, product string, count int) (*FetchAWBResponse, error) {
	values := url.Values{"count": {strconv.Itoa(count)}, "type": {product}}
	var out FetchAWBResponse
	if err := c.wire.Form(ctx, http.MethodPost, "/apiv2/fetch_awb/", c.form(values), &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Success, "yes") {
		msg := strings.Join(out.Error, "; ")
		if msg == "" {
			msg = "no awb issued"
		}
		return nil, wire.Rejected(c.wire.Carrier, msg)
	}
	return &out, nil
}

// Manifest calls POST /apiv2/manifest_awb/.
func (c *HTTPAPIClient) Manifest(ctx context.Context, shipments []ManifestShipment) (*ManifestResponse, error) {
	values, err := jsonInput(shipments)
	if err != nil {
		return nil, err
	}
	var out ManifestResponse
	if err := c.wire.Form(ctx, http.MethodPost, "/apiv2/manifest_awb/", c.form(values), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Track calls POST /track_me/api/mawbd/, which answers in XML.
func (c *HTTPAPIClient) Track(ctx context.Context, awbs []string) (*TrackDocument, error) {
	var out TrackDocument
	values := c.form(url.Values{"awb": {strings.Join(awbs, ",")}})
	if err := c.wire.XML(ctx, http.MethodPost, "/track_me/api/mawbd/", nil, values, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel calls POST /apiv2/cancel_awb/.
func (c *HTTPAPIClient) Cancel(ctx context.Context, awbs []string) ([]CancelResult, error) {
	var out []CancelResult
	if err := c.wire.Form(ctx, http.MethodPost, "/apiv2/cancel_awb/", c.form(url.Values{"awbs": {strings.Join(awbs, ",")}}), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
