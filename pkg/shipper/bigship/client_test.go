package bigship_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/bigship"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *bigship.MockAPIClient) *bigship.Client {
	logger := otelzap.New(zap.NewNop())
	return bigship.NewWithAPIClient(
		shipper.CarrierConfig{Code: shipper.CodeBigShip},
		mockClient,
		logger,
		nil,
	)
}

func testRequest() *shipper.ShipmentRequest {
	return &shipper.ShipmentRequest{
		OriginPincode:      "122001",
		DestinationPincode: "700001",
		Weight:             0.8,
		Length:             25,
		Width:              20,
		Height:             5,
		PaymentMode:        shipper.PaymentPrepaid,
		DeclaredValue:      1299,
	}
}

func testShipment() *shipper.ShipmentData {
	return &shipper.ShipmentData{
		OrderID:        "ORD-3001",
		ServiceCode:    "7",
		PickupLocation: "19112",
		Consignee: shipper.Address{
			Name: "Sourav", Phone: "9830000000", Line1: "22 Park Street",
			City: "Kolkata", State: "WB", Pincode: "700001",
		},
		Package: *testRequest(),
		Items:   []shipper.Item{{Name: "Headphones", Quantity: 1, UnitPrice: 1299}},
	}
}

func TestClient_GetRates(t *testing.T) {
	client := newTestClient(bigship.NewMockAPIClient())

	quotes, err := client.GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, shipper.CodeBigShip, q.Carrier)
	assert.Equal(t, "7", q.ServiceCode)
	assert.Equal(t, 4, q.DeliveryDays)
	assert.InDelta(t, 97.35, q.TotalCharge, 0.001)
	assert.Equal(t, 7.5, q.Charges.FuelSurcharge)
}

func TestClient_GetRates_COD(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	var got *bigship.CalculatorRequest
	base := mockAPI.Calculate
	mockAPI.OnCalculate = func(ctx context.Context, req *bigship.CalculatorRequest) (*bigship.CalculatorResponse, error) {
		got = req
		mockAPI.OnCalculate = nil
		return base(ctx, req)
	}
	client := newTestClient(mockAPI)

	req := testRequest()
	cod := 1299.0
	req.PaymentMode = shipper.PaymentCOD
	req.CODAmount = &cod

	quotes, err := client.GetRates(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "COD", got.PaymentType)
	assert.Equal(t, 1299.0, got.CollectableAmount)
	require.Len(t, got.BoxDetails, 1)
	assert.Equal(t, 0.8, got.BoxDetails[0].DeadWeight)
	assert.Equal(t, 30.0, quotes[0].Charges.COD)
	assert.InDelta(t, 132.75, quotes[0].TotalCharge, 0.001)
}

func TestClient_GetRates_ReconcilesTotal(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnCalculate = func(ctx context.Context, req *bigship.CalculatorRequest) (*bigship.CalculatorResponse, error) {
		return &bigship.CalculatorResponse{Envelope: bigship.Envelope{Success: true}, Data: []bigship.CourierRate{
			{CourierID: 3, CourierName: "Bluedart", CourierCharge: 100, GSTCharge: 18, TotalCharges: 125},
		}}, nil
	}
	client := newTestClient(mockAPI)

	quotes, err := client.GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	assert.Equal(t, 125.0, quotes[0].TotalCharge)
	assert.InDelta(t, 7.0, quotes[0].Charges.Other, 0.001)
}

func TestClient_CreateShipment(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	var order *bigship.OrderRequest
	var manifest *bigship.ManifestRequest
	mockAPI.OnAddOrder = func(ctx context.Context, req *bigship.OrderRequest) (*bigship.OrderResponse, error) {
		order = req
		return &bigship.OrderResponse{Envelope: bigship.Envelope{Success: true}, Data: "system_order_id is 1000555"}, nil
	}
	mockAPI.OnManifest = func(ctx context.Context, req *bigship.ManifestRequest) (*bigship.Envelope, error) {
		manifest = req
		return &bigship.Envelope{Success: true}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.CreateShipment(context.Background(), testShipment())

	require.NoError(t, err)
	assert.Equal(t, "BS900000001", result.TrackingNumber)
	assert.Equal(t, "1000555", result.CarrierReference)

	assert.Equal(t, int64(19112), order.WarehouseDetail.PickupLocationID)
	assert.Equal(t, "Sourav", order.ConsigneeDetail.FirstName)
	assert.Equal(t, "Sourav", order.ConsigneeDetail.LastName)
	assert.Equal(t, "Prepaid", order.OrderDetail.PaymentType)
	assert.Equal(t, "ORD-3001", order.OrderDetail.InvoiceID)
	require.Len(t, order.OrderDetail.BoxDetails[0].ProductDetails, 1)

	assert.Equal(t, "1000555", manifest.SystemOrderID)
	assert.Equal(t, int64(7), manifest.CourierID)
}

func TestClient_CreateShipment_WarehouseIDRequired(t *testing.T) {
	client := newTestClient(bigship.NewMockAPIClient())
	data := testShipment()
	data.PickupLocation = "Main warehouse"

	_, err := client.CreateShipment(context.Background(), data)

	assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
}

func TestClient_CreateShipment_ManifestRejected(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnManifest = func(ctx context.Context, req *bigship.ManifestRequest) (*bigship.Envelope, error) {
		return nil, shipper.NewShipperError(shipper.CodeBigShip, "REJECTED", "Insufficient balance").WithCause(shipper.ErrVendorRejected)
	}
	client := newTestClient(mockAPI)

	_, err := client.CreateShipment(context.Background(), testShipment())

	assert.ErrorIs(t, err, shipper.ErrCreationFailed)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestClient_TrackShipment(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnTrack = func(ctx context.Context, awb string) (*bigship.TrackResponse, error) {
		return &bigship.TrackResponse{Envelope: bigship.Envelope{Success: true}, Data: bigship.TrackData{
			OrderDetail: bigship.TrackedOrder{CurrentTrackingStatus: "In Transit"},
			ScanHistories: []bigship.ScanHistory{
				{ScanDatetime: "2024-03-03 14:00:00", ScanStatus: "In Transit", ScanLocation: "Gurgaon Hub"},
				{ScanDatetime: "2024-03-02 18:30:00", ScanStatus: "Picked Up", ScanLocation: "Gurgaon"},
				{ScanDatetime: "2024-03-02 10:00:00", ScanStatus: "Manifested"},
			},
		}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.TrackShipment(context.Background(), "BS900000001")

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusInTransit, result.Status)
	require.Len(t, result.Events, 3)
	assert.Equal(t, shipper.StatusCreated, result.Events[0].Status)
	assert.Equal(t, shipper.StatusPickedUp, result.Events[1].Status)
}

func TestClient_TrackShipment_Unknown(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnTrack = func(ctx context.Context, awb string) (*bigship.TrackResponse, error) {
		return &bigship.TrackResponse{Envelope: bigship.Envelope{Success: false, Message: "No record found"}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.TrackShipment(context.Background(), "nope")

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusUnknown, result.Status)
}

func TestClient_CancelShipment(t *testing.T) {
	client := newTestClient(bigship.NewMockAPIClient())
	ok, err := client.CancelShipment(context.Background(), "BS900000001")
	require.NoError(t, err)
	assert.True(t, ok)

	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnCancel = func(ctx context.Context, awbs []string) (*bigship.Envelope, error) {
		return &bigship.Envelope{Success: false, Message: "Order already picked"}, nil
	}
	ok, err = newTestClient(mockAPI).CancelShipment(context.Background(), "BS900000001")
	assert.False(t, ok)
	assert.ErrorIs(t, err, shipper.ErrCancellationNotAllowed)
}

func TestClient_CheckServiceability(t *testing.T) {
	client := newTestClient(bigship.NewMockAPIClient())
	ok, err := client.CheckServiceability(context.Background(), "122001", "700001", shipper.PaymentCOD)
	require.NoError(t, err)
	assert.True(t, ok)

	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnCalculate = func(ctx context.Context, req *bigship.CalculatorRequest) (*bigship.CalculatorResponse, error) {
		return nil, shipper.NewShipperError(shipper.CodeBigShip, "REJECTED", "Pincode not serviceable").WithCause(shipper.ErrVendorRejected)
	}
	ok, err = newTestClient(mockAPI).CheckServiceability(context.Background(), "122001", "000000", shipper.PaymentPrepaid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SchedulePickup_Unsupported(t *testing.T) {
	client := newTestClient(bigship.NewMockAPIClient())

	_, err := client.SchedulePickup(context.Background(), &shipper.PickupRequest{})

	assert.ErrorIs(t, err, shipper.ErrUnsupported)
}

func TestClient_GetLabel(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	var gotKind int
	var gotOrder string
	base := mockAPI.ShipmentData
	mockAPI.OnShipmentData = func(ctx context.Context, kind int, systemOrderID string) (*bigship.ShipmentDataResponse, error) {
		gotKind, gotOrder = kind, systemOrderID
		mockAPI.OnShipmentData = nil
		return base(ctx, kind, systemOrderID)
	}
	client := newTestClient(mockAPI)

	label, err := client.GetLabel(context.Background(), "BS900000001")

	require.NoError(t, err)
	assert.Equal(t, bigship.ShipmentDataLabel, gotKind)
	assert.Equal(t, "1000123", gotOrder)
	assert.Equal(t, shipper.LabelPDF, label.Format)
	assert.Equal(t, []byte("%PDF-1.4 mock"), label.Data)
}

func TestClient_GetLabel_BadContent(t *testing.T) {
	mockAPI := bigship.NewMockAPIClient()
	mockAPI.OnShipmentData = func(ctx context.Context, kind int, systemOrderID string) (*bigship.ShipmentDataResponse, error) {
		return &bigship.ShipmentDataResponse{Envelope: bigship.Envelope{Success: true}, Data: bigship.ShipmentDataResult{FileContent: "%%%"}}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetLabel(context.Background(), "BS900000001")

	assert.ErrorIs(t, err, shipper.ErrVendorRejected)
}
