package graphql

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/tournevent/courierhub/pkg/shipper"
)

func ptr[T any](v T) *T { return &v }

func TestRateRequestInputToModel(t *testing.T) {
	req := rateRequestInputToModel(RateRequestInput{
		OriginPincode:      " 110001 ",
		DestinationPincode: "400001",
		Weight:             2,
		Length:             10,
		Width:              10,
		Height:             10,
		PaymentMode:        "COD",
		CODAmount:          ptr(0.0),
	})

	assert.Equal(t, "110001", req.OriginPincode)
	assert.Equal(t, shipper.PaymentCOD, req.PaymentMode)
	require.NotNil(t, req.CODAmount)
	assert.Zero(t, req.DeclaredValue)
	assert.NoError(t, req.Validate())
}

func TestShipmentInputToModel(t *testing.T) {
	addr := AddressInput{Name: "Asha", Phone: "9999999999", Line1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001"}
	data := shipmentInputToModel(ShipmentInput{
		OrderID:   "ORD-9",
		Pickup:    addr,
		Consignee: addr,
		Package:   RateRequestInput{OriginPincode: "411001", DestinationPincode: "411001", Weight: 1, Length: 1, Width: 1, Height: 1, PaymentMode: "PREPAID"},
		Items:     []ItemInput{{Name: "Mug", SKU: ptr("MUG-1"), Quantity: 2, UnitPrice: 250}},
	})

	assert.Equal(t, "ORD-9", data.OrderID)
	assert.Equal(t, "IN", data.Consignee.Country)
	assert.Equal(t, "MUG-1", data.Items[0].SKU)
	assert.Empty(t, data.ServiceCode)
	assert.NoError(t, data.Validate())
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2026-03-04")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Day())

	d, err = parseDate("2026-03-04T10:00:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, 10, d.Hour())

	_, err = parseDate("04/03/2026")
	assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
}

func TestCarrierCode(t *testing.T) {
	code, err := carrierCode("Delhivery")
	require.NoError(t, err)
	assert.Equal(t, shipper.CodeDelhivery, code)

	code, err = carrierCode("DTDC")
	require.NoError(t, err)
	assert.Equal(t, shipper.Code("dtdc"), code)

	_, err = carrierCode(" ")
	assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
}

func TestRateShopToModel(t *testing.T) {
	eta := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	q := shipper.NewRateQuote(shipper.CodeEkart, "SURFACE", "Ekart Surface", shipper.Charges{Base: 60, Tax: 10.8}, 3).
		WithEstimatedDelivery(&eta, time.Now())

	out := rateShopToModel(&shipper.RateShopResult{
		Quotes:   []shipper.RateQuote{q},
		Failures: []shipper.CarrierFailure{{Carrier: shipper.CodeBigShip, Err: shipper.ErrServiceUnavailable}},
	})

	require.Len(t, out.Quotes, 1)
	assert.Equal(t, 70.8, out.Quotes[0].TotalCharge)
	assert.Equal(t, "2026-03-07T00:00:00Z", *out.Quotes[0].EstimatedDelivery)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "transient", out.Failures[0].Class)
}

func TestLabelToModel(t *testing.T) {
	l := labelToModel(&shipper.Label{TrackingNumber: "A1", Format: shipper.LabelPDF, Data: []byte("%PDF")})
	assert.Nil(t, l.URL)
	require.NotNil(t, l.Data)
	assert.Equal(t, "JVBERg==", *l.Data)
}

func TestCarrierInfoToModel(t *testing.T) {
	c := carrierInfoToModel(dispatch.CarrierInfo{
		Code:     shipper.CodeShiprocket,
		Features: []shipper.Feature{shipper.FeatureRates},
	})
	assert.True(t, c.Configured)
	assert.Equal(t, []string{"rates"}, c.Features)
	assert.NotNil(t, c.MissingCredentials)
}

func TestErrorExtensions(t *testing.T) {
	ext := errorExtensions(shipper.NewConfigError(shipper.CodeEkart, shipper.ErrCarrierDisabled, ""))
	assert.Equal(t, "config", ext["class"])
	assert.Equal(t, "ekart", ext["carrier"])

	ext = errorExtensions(errors.Join(shipper.ErrInvalidRequest))
	assert.Equal(t, "BAD_USER_INPUT", ext["code"])
}

func TestPickupInputToModel(t *testing.T) {
	req, err := pickupInputToModel(PickupInput{
		PickupLocation:  "Main",
		Date:            "2026-03-04",
		PackageCount:    3,
		TrackingNumbers: &[]string{"AWB1", "AWB2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, req.PackageCount)
	assert.Equal(t, []string{"AWB1", "AWB2"}, req.TrackingNumbers)
	assert.Nil(t, req.References)
}

func TestCarrierCodes(t *testing.T) {
	codes, err := carrierCodes(nil)
	require.NoError(t, err)
	assert.Nil(t, codes)

	codes, err = carrierCodes(&[]string{"EKART", "bigship"})
	require.NoError(t, err)
	assert.Equal(t, []shipper.Code{shipper.CodeEkart, shipper.CodeBigShip}, codes)
}

func TestFieldError(t *testing.T) {
	ferr := &fieldError{err: shipper.NewConfigError(shipper.CodeEkart, shipper.ErrCarrierDisabled, "")}
	assert.ErrorIs(t, ferr, shipper.ErrCarrierDisabled)
	assert.Equal(t, "ekart", ferr.Extensions()["carrier"])
}
