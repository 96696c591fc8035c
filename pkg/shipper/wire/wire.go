// Package wire holds the HTTP plumbing shared by vendor adapters: request
// building, authentication schemes and mapping vendor failures onto the
// shipper error taxonomy.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper"
)

const userAgent = "courierhub/1.0"

// maxErrorBody bounds how much of a failed response ends up in an error message.
const maxErrorBody = 512

// Client performs calls against one vendor API.
type Client struct {
	Carrier shipper.Code
	BaseURL string
	HTTP    *http.Client
	Auth    Auth
	// Header is sent with every request.
	Header http.Header
}

// WithAuth returns a copy of c using auth.
func (c *Client) WithAuth(auth Auth) *Client {
	cp := *c
	cp.Auth = auth
	return &cp
}

// JSON sends in as a JSON body (nil for none) and decodes a 2xx response into out (nil to discard).
func (c *Client) JSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	contentType := ""
	if in != nil {
		contentType = "application/json"
	}
	data, _, err := c.Raw(ctx, method, path, query, contentType, body)
	if err != nil {
		return err
	}
	return c.decodeJSON(data, out)
}

// Form sends form as application/x-www-form-urlencoded and decodes a 2xx JSON response into out.
func (c *Client) Form(ctx context.Context, method, path string, form url.Values, out any) error {
	data, _, err := c.Raw(ctx, method, path, nil, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	return c.decodeJSON(data, out)
}

// XML decodes a 2xx XML response into out.
func (c *Client) XML(ctx context.Context, method, path string, query url.Values, form url.Values, out any) error {
	var body io.Reader
	contentType := ""
	if form != nil {
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}
	data, _, err := c.Raw(ctx, method, path, query, contentType, body)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, out); err != nil {
		return invalidResponse(c.Carrier, err)
	}
	return nil
}

// Raw performs the request and returns the body of a 2xx response.
// Non-2xx responses become *shipper.ShipperError via MapStatus.
func (c *Client) Raw(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) ([]byte, http.Header, error) {
	target := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for name, values := range c.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	if c.Auth != nil {
		if err := c.Auth.Apply(ctx, req); err != nil {
			return nil, nil, err
		}
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, Unreachable(c.Carrier, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, Unreachable(c.Carrier, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, MapStatus(c.Carrier, resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

func (c *Client) decodeJSON(data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return invalidResponse(c.Carrier, err)
	}
	return nil
}

// MapStatus turns a failed vendor response into a ShipperError carrying the
// vendor's own message when the body has one.
func MapStatus(carrier shipper.Code, status int, body []byte) error {
	return shipper.FromHTTPStatus(carrier, status, vendorMessage(body))
}

func vendorMessage(body []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"message", "error", "detail", "msg", "errors", "rmk", "remarks"} {
			if msg := flatten(fields[key]); msg != "" {
				return msg
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(t))
		for _, k := range keys {
			if s := flatten(t[k]); s != "" {
				parts = append(parts, k+": "+s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// Unreachable wraps a transport failure.
func Unreachable(carrier shipper.Code, err error) *shipper.ShipperError {
	return shipper.NewShipperError(carrier, "UNREACHABLE", "carrier endpoint unreachable").
		WithCause(err).
		WithRetryable(true)
}

// Rejected reports a business refusal carried in a 2xx response body.
func Rejected(carrier shipper.Code, message string) *shipper.ShipperError {
	return shipper.NewShipperError(carrier, "REJECTED", message).WithCause(shipper.ErrVendorRejected)
}

// Unsupported reports an operation the carrier does not offer.
func Unsupported(carrier shipper.Code, operation string) *shipper.ShipperError {
	return shipper.NewShipperError(carrier, "UNSUPPORTED", operation+" is not offered by "+string(carrier)).
		WithCause(shipper.ErrUnsupported)
}

func invalidResponse(carrier shipper.Code, err error) *shipper.ShipperError {
	return shipper.NewShipperError(carrier, "INVALID_RESPONSE", "carrier response could not be decoded").
		WithCause(fmt.Errorf("%w: %v", shipper.ErrVendorRejected, err))
}
