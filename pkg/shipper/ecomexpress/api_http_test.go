package ecomexpress_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/ecomexpress"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const trackXML = `<?xml version="1.0" encoding="utf-8"?>
<ecomexpress-objects version="1.0">
  <object pk="1" model="awb">
    <field type="BigIntegerField" name="awb_number">100200300</field>
    <field type="CharField" name="status">Delivered</field>
    <field type="CharField" name="scans">
      <object pk="1" model="scan_stages">
        <field type="DateTimeField" name="updated_on">04 Mar, 2024, 15:00</field>
        <field type="CharField" name="status">Delivered</field>
        <field type="CharField" name="location_city">JAIPUR</field>
        <field type="CharField" name="reason_code_description">Delivered to consignee</field>
      </object>
      <object pk="2" model="scan_stages">
        <field type="DateTimeField" name="updated_on">04 Mar, 2024, 09:30</field>
        <field type="CharField" name="status">Out for delivery</field>
        <field type="CharField" name="location_city">JAIPUR</field>
      </object>
    </field>
  </object>
</ecomexpress-objects>`

func fakeEcom(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "ecom-user" || r.PostForm.Get("password") != "ecom-pass" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error": "Invalid username or password"}`))
			return
		}
		switch r.URL.Path {
		case "/apiv2/pincodes/":
			_, _ = w.Write([]byte(`[{"pincode": ` + r.PostForm.Get("pincode") + `, "city": "DELHI", "active": true, "cod": true}]`))
		case "/services/rateCalculatorAPI/":
			assert.Contains(t, r.PostForm.Get("json_input"), `"productType":"PPD"`)
			_, _ = w.Write([]byte(`[{"success": true, "errors": [], "chargesBreakup":
				{"FRT": 70, "FUEL": "10.50", "COD": 0, "GST": 14.49, "total": "94.99"}}]`))
		case "/apiv2/fetch_awb/":
			if r.PostForm.Get("type") == "COD" {
				_, _ = w.Write([]byte(`{"success": "no", "error": ["COD not enabled"]}`))
				return
			}
			_, _ = w.Write([]byte(`{"reference_id": 88, "success": "yes", "awb": [100200300]}`))
		case "/apiv2/manifest_awb/":
			assert.Contains(t, r.PostForm.Get("json_input"), `"AWB_NUMBER":"100200300"`)
			_, _ = w.Write([]byte(`{"shipments": [{"awb": 100200300, "order_number": "ORD-6001", "success": true}]}`))
		case "/track_me/api/mawbd/":
			assert.Equal(t, "100200300", r.PostForm.Get("awb"))
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(trackXML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testConfig(baseURL, password string) shipper.CarrierConfig {
	return shipper.CarrierConfig{
		Code:        shipper.CodeEcomExpress,
		BaseURL:     baseURL,
		Mode:        shipper.ModeProduction,
		Credentials: map[string]string{"username": "ecom-user", "password": password},
	}
}

func newHTTPClient(url, password string) *ecomexpress.Client {
	return ecomexpress.New(testConfig(url, password), wire.Env{Logger: otelzap.New(zap.NewNop())})
}

func TestNew_GetRates(t *testing.T) {
	srv := fakeEcom(t)
	defer srv.Close()

	quotes, err := newHTTPClient(srv.URL, "ecom-pass").GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.InDelta(t, 94.99, quotes[0].TotalCharge, 0.001)
}

func TestNew_CreateShipment(t *testing.T) {
	srv := fakeEcom(t)
	defer srv.Close()

	client := newHTTPClient(srv.URL, "ecom-pass")
	result, err := client.CreateShipment(context.Background(), testShipment())
	require.NoError(t, err)
	assert.Equal(t, "100200300", result.TrackingNumber)
	assert.Equal(t, "88", result.CarrierReference)

	cod := 899.0
	data := testShipment()
	data.Package.PaymentMode = shipper.PaymentCOD
	data.Package.CODAmount = &cod
	_, err = client.CreateShipment(context.Background(), data)
	assert.ErrorIs(t, err, shipper.ErrCreationFailed)
	assert.Contains(t, err.Error(), "COD not enabled")
}

func TestNew_TrackShipmentFromXML(t *testing.T) {
	srv := fakeEcom(t)
	defer srv.Close()

	result, err := newHTTPClient(srv.URL, "ecom-pass").TrackShipment(context.Background(), "100200300")

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusDelivered, result.Status)
	require.Len(t, result.Events, 2)
	assert.Equal(t, shipper.StatusOutForDelivery, result.Events[0].Status)
	assert.Equal(t, "Delivered to consignee", result.Events[1].Description)
	assert.Equal(t, "JAIPUR", result.Events[1].Location)
}

func TestNew_ValidateCredentials(t *testing.T) {
	srv := fakeEcom(t)
	defer srv.Close()

	ok := newHTTPClient(srv.URL, "ecom-pass").ValidateCredentials(context.Background())
	assert.True(t, ok.Success, ok.Detail)

	bad := newHTTPClient(srv.URL, "nope").ValidateCredentials(context.Background())
	assert.False(t, bad.Success)
	assert.Equal(t, shipper.CheckBadCredentials, bad.Failure)
}
