package shipper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
)

func float(v float64) *float64 { return &v }

func validRequest() *shipper.ShipmentRequest {
	return &shipper.ShipmentRequest{
		OriginPincode:      "110001",
		DestinationPincode: "400001",
		Weight:             2.0,
		Length:             20,
		Width:              15,
		Height:             10,
		PaymentMode:        shipper.PaymentPrepaid,
		DeclaredValue:      1500,
	}
}

func TestShipmentRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *shipper.ShipmentRequest)
		wantErr bool
	}{
		{"valid prepaid", func(r *shipper.ShipmentRequest) {}, false},
		{"cod with amount", func(r *shipper.ShipmentRequest) {
			r.PaymentMode = shipper.PaymentCOD
			r.CODAmount = float(1500)
		}, false},
		{"cod with zero amount", func(r *shipper.ShipmentRequest) {
			r.PaymentMode = shipper.PaymentCOD
			r.CODAmount = float(0)
		}, false},
		{"cod without amount", func(r *shipper.ShipmentRequest) {
			r.PaymentMode = shipper.PaymentCOD
		}, true},
		{"negative cod amount", func(r *shipper.ShipmentRequest) {
			r.PaymentMode = shipper.PaymentCOD
			r.CODAmount = float(-1)
		}, true},
		{"zero weight", func(r *shipper.ShipmentRequest) { r.Weight = 0 }, true},
		{"negative height", func(r *shipper.ShipmentRequest) { r.Height = -1 }, true},
		{"short pincode", func(r *shipper.ShipmentRequest) { r.OriginPincode = "1100" }, true},
		{"alpha pincode", func(r *shipper.ShipmentRequest) { r.DestinationPincode = "40000A" }, true},
		{"unknown payment mode", func(r *shipper.ShipmentRequest) { r.PaymentMode = "card" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShipmentData_Validate(t *testing.T) {
	addr := shipper.Address{
		Name: "Asha", Phone: "9999999999", Line1: "12 MG Road",
		City: "Mumbai", State: "MH", Pincode: "400001",
	}
	data := &shipper.ShipmentData{
		OrderID:   "ORD-1",
		Pickup:    addr,
		Consignee: addr,
		Package:   *validRequest(),
		Items:     []shipper.Item{{Name: "Mug", Quantity: 2, UnitPrice: 250}},
	}
	require.NoError(t, data.Validate())
	assert.Equal(t, 2, data.PieceCount())
	assert.Equal(t, "Mug", data.Description())

	data.Consignee.Pincode = ""
	assert.ErrorIs(t, data.Validate(), shipper.ErrInvalidRequest)

	data.Consignee.Pincode = "400001"
	data.Package.Weight = 0
	assert.ErrorIs(t, data.Validate(), shipper.ErrInvalidRequest)
}

func TestCharges_TotalEqualsSum(t *testing.T) {
	c := shipper.Charges{Base: 100, FuelSurcharge: 15, Tax: 20, COD: 30}
	q := shipper.NewRateQuote(shipper.CodeDelhivery, "S", "Surface", c, 4)

	assert.Equal(t, 165.0, q.TotalCharge)
	assert.Equal(t, "INR", q.Currency)
}

func TestCharges_Reconcile(t *testing.T) {
	c := shipper.Charges{Base: 100, FuelSurcharge: 10.5}

	got := c.Reconcile(130)
	assert.Equal(t, 19.5, got.Other)
	assert.Equal(t, 130.0, got.Total())

	// Rounding noise is not booked.
	same := c.Reconcile(110.504)
	assert.Equal(t, 0.0, same.Other)
}

func TestCharges_ReconcileDiscount(t *testing.T) {
	c := shipper.Charges{Base: 100, FuelSurcharge: 10, Tax: 19.8, Other: 2}

	got := c.Reconcile(120)
	assert.Equal(t, shipper.Charges{Base: 90.2, FuelSurcharge: 10, Tax: 19.8}, got)
	assert.Equal(t, 120.0, got.Total())

	// A discount larger than the base spills into the surcharges.
	got = c.Reconcile(15)
	assert.Equal(t, 15.0, got.Total())
	assert.Zero(t, got.Base)
	assert.Zero(t, got.FuelSurcharge)
	assert.Zero(t, got.Other)
	assert.Equal(t, 15.0, got.Tax)

	got = c.Reconcile(-5)
	assert.Equal(t, shipper.Charges{}, got)
}

func TestNewRateQuote_ClampsNegativeDays(t *testing.T) {
	q := shipper.NewRateQuote(shipper.CodeEkart, "REGULAR", "Regular", shipper.Charges{Base: 1}, -2)
	assert.Equal(t, 0, q.DeliveryDays)
}

func TestRateQuote_WithEstimatedDelivery(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	q := shipper.NewRateQuote(shipper.CodeEkart, "REGULAR", "Regular", shipper.Charges{Base: 1}, 3).WithEstimatedDelivery(nil, now)
	require.NotNil(t, q.EstimatedDelivery)
	assert.Equal(t, now.AddDate(0, 0, 3), *q.EstimatedDelivery)

	none := shipper.NewRateQuote(shipper.CodeEkart, "REGULAR", "Regular", shipper.Charges{Base: 1}, 0).WithEstimatedDelivery(nil, now)
	assert.Nil(t, none.EstimatedDelivery)
}

func TestParseCode(t *testing.T) {
	code, ok := shipper.ParseCode(" Delhivery ")
	assert.True(t, ok)
	assert.Equal(t, shipper.CodeDelhivery, code)

	_, ok = shipper.ParseCode("bluedart")
	assert.False(t, ok)

	assert.Len(t, shipper.KnownCodes(), 6)
}

func TestCarrierConfig_MissingCredentials(t *testing.T) {
	cfg := shipper.CarrierConfig{
		CredentialSchema: []shipper.CredentialField{
			{Name: "username", Required: true},
			{Name: "password", Required: true, Secret: true},
			{Name: "access_key", Required: false},
		},
		Credentials: map[string]string{"username": "ops"},
	}
	assert.Equal(t, []string{"password"}, cfg.MissingCredentials())
	assert.Equal(t, "ops", cfg.Credential("username"))
	assert.Equal(t, "", cfg.Credential("access_key"))
}

func TestRestrictions_Check(t *testing.T) {
	r := shipper.Restrictions{MaxWeightKg: 1.5, MaxDeclaredValue: 50000}

	assert.ErrorIs(t, r.Check(validRequest()), shipper.ErrInvalidPackage)

	req := validRequest()
	req.Weight = 1
	assert.NoError(t, r.Check(req))

	assert.NoError(t, shipper.Restrictions{}.Check(validRequest()))
}

func TestCanonicalStatus(t *testing.T) {
	assert.Len(t, shipper.CanonicalStatuses(), 12)
	assert.True(t, shipper.StatusRTODelivered.Valid())
	assert.False(t, shipper.CanonicalStatus("shipped").Valid())
	assert.True(t, shipper.StatusDelivered.Terminal())
	assert.False(t, shipper.StatusInTransit.Terminal())
}

func TestKilogramsToGrams(t *testing.T) {
	assert.Equal(t, 2000, shipper.KilogramsToGrams(2.0))
	assert.Equal(t, 501, shipper.KilogramsToGrams(0.5006))
}
