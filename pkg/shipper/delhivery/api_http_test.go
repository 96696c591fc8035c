package delhivery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/delhivery"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newHTTPAPI(srv *httptest.Server) *delhivery.HTTPAPIClient {
	c := &wire.Client{
		Carrier: shipper.CodeDelhivery,
		BaseURL: srv.URL,
		HTTP:    wire.NewHTTPClient(5*time.Second, otelzap.New(zap.NewNop())),
	}
	return delhivery.NewHTTPAPIClient(c, "secret-token")
}

func TestHTTPAPIClient_Charges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/kinko/v1/invoice/charges/.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "S", q.Get("md"))
		assert.Equal(t, "1200", q.Get("cgm"))
		assert.Equal(t, "COD", q.Get("pt"))
		assert.Equal(t, "950.00", q.Get("cod"))
		_, _ = w.Write([]byte(`[{"charge_DL": 80, "charge_FSC": 8, "tax_data": {"IGST": 14.4}, "total_amount": 102.4}]`))
	}))
	defer srv.Close()

	out, err := newHTTPAPI(srv).Charges(context.Background(), &delhivery.ChargesQuery{
		Mode: delhivery.ModeSurface, OriginPin: "110001", DestinationPin: "560001",
		ChargeableWeightGm: 1200, PaymentType: delhivery.PaymentCOD, CODAmount: 950,
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 14.4, out[0].TaxData.Total())
	assert.Equal(t, 102.4, out[0].TotalAmount)
}

func TestHTTPAPIClient_CreateOrder_FormEncoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "json", r.PostForm.Get("format"))

		var manifest delhivery.ManifestRequest
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &manifest))
		assert.Equal(t, "Okhla Warehouse", manifest.PickupLocation.Name)

		_, _ = w.Write([]byte(`{"success": true, "rmk": ["ok"], "packages": [{"waybill": "1490811234567", "refnum": "ORD-1", "status": "Success"}]}`))
	}))
	defer srv.Close()

	out, err := newHTTPAPI(srv).CreateOrder(context.Background(), &delhivery.ManifestRequest{
		Shipments:      []delhivery.ManifestShipment{{Order: "ORD-1"}},
		PickupLocation: delhivery.PickupLocation{Name: "Okhla Warehouse"},
	})

	require.NoError(t, err)
	require.Len(t, out.Packages, 1)
	assert.Equal(t, "1490811234567", out.Packages[0].Waybill)
}

func TestHTTPAPIClient_PickupIDAsNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/fm/request/new/", r.URL.Path)
		_, _ = w.Write([]byte(`{"pickup_id": 41873, "pickup_date": "2024-03-05", "pickup_time": "11:00:00"}`))
	}))
	defer srv.Close()

	out, err := newHTTPAPI(srv).CreatePickup(context.Background(), &delhivery.PickupRequest{PickupLocation: "Okhla Warehouse"})

	require.NoError(t, err)
	assert.EqualValues(t, "41873", out.PickupID)
}

func TestHTTPAPIClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Invalid token"}`))
	}))
	defer srv.Close()

	_, err := newHTTPAPI(srv).Pincode(context.Background(), "110001")

	require.Error(t, err)
	assert.True(t, shipper.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Invalid token")
}
