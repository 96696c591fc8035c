package shiprocket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/shiprocket"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *shiprocket.MockAPIClient) *shiprocket.Client {
	logger := otelzap.New(zap.NewNop())
	return shiprocket.NewWithAPIClient(
		shipper.CarrierConfig{Code: shipper.CodeShiprocket},
		mockClient,
		logger,
		nil,
	)
}

func testRequest() *shipper.ShipmentRequest {
	return &shipper.ShipmentRequest{
		OriginPincode:      "110020",
		DestinationPincode: "400001",
		Weight:             1,
		Length:             20,
		Width:              15,
		Height:             10,
		PaymentMode:        shipper.PaymentPrepaid,
		DeclaredValue:      999,
	}
}

func testShipment() *shipper.ShipmentData {
	return &shipper.ShipmentData{
		OrderID:     "ORD-2001",
		ServiceCode: "24",
		Pickup:      shipper.Address{Name: "Acme", Phone: "9810000000", Line1: "Plot 12", City: "New Delhi", State: "Delhi", Pincode: "110020"},
		Consignee: shipper.Address{
			Name: "Anita Rao Sharma", Phone: "9820000000", Email: "anita@example.com",
			Line1: "5 Marine Drive", City: "Mumbai", State: "Maharashtra", Pincode: "400001",
		},
		Package: *testRequest(),
		Items:   []shipper.Item{{Name: "Mug", Quantity: 2, UnitPrice: 499.5}},
	}
}

func TestClient_GetRates_Success(t *testing.T) {
	client := newTestClient(shiprocket.NewMockAPIClient())

	quotes, err := client.GetRates(context.Background(), testRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "10", quotes[0].ServiceCode)
	assert.Equal(t, "Delhivery Surface", quotes[0].ServiceName)
	assert.Equal(t, 5, quotes[0].DeliveryDays)
	assert.InDelta(t, 106.2, quotes[0].TotalCharge, 0.001)
	assert.InDelta(t, 16.2, quotes[0].Charges.Tax, 0.001)
	assert.Equal(t, quotes[0].TotalCharge, quotes[0].Charges.Total())
}

func TestClient_GetRates_FiltersBlockedAndNonCOD(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnServiceability = func(ctx context.Context, q *shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error) {
		assert.True(t, q.COD)
		return &shiprocket.ServiceabilityResponse{Data: shiprocket.ServiceabilityData{
			AvailableCourierCompanies: []shiprocket.CourierCompany{
				{CourierCompanyID: 1, CourierName: "Blocked", Rate: 50, Blocked: 1, COD: 1},
				{CourierCompanyID: 2, CourierName: "Prepaid only", Rate: 60},
				{CourierCompanyID: 3, CourierName: "Usable", FreightCharge: 70, CODCharges: 30, Rate: 118, COD: 1, ETD: "Mar 08, 2024"},
			},
		}}, nil
	}
	client := newTestClient(mockAPI)

	req := testRequest()
	cod := 999.0
	req.PaymentMode = shipper.PaymentCOD
	req.CODAmount = &cod

	quotes, err := client.GetRates(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "3", quotes[0].ServiceCode)
	assert.Equal(t, 30.0, quotes[0].Charges.COD)
	require.NotNil(t, quotes[0].EstimatedDelivery)
	assert.Equal(t, time.March, quotes[0].EstimatedDelivery.Month())
	assert.Equal(t, 8, quotes[0].EstimatedDelivery.Day())
}

func TestClient_GetRates_NotServiceable(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnServiceability = func(ctx context.Context, q *shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error) {
		return nil, shipper.FromHTTPStatus(shipper.CodeShiprocket, 404, "No courier serviceable")
	}
	client := newTestClient(mockAPI)

	_, err := client.GetRates(context.Background(), testRequest())

	assert.ErrorIs(t, err, shipper.ErrNotServiceable)
}

func TestClient_GetRates_NoCouriers(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnServiceability = func(ctx context.Context, q *shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error) {
		return &shiprocket.ServiceabilityResponse{Status: 200}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetRates(context.Background(), testRequest())

	assert.ErrorIs(t, err, shipper.ErrRatesUnavailable)
}

func TestClient_CreateShipment_Success(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	var order *shiprocket.OrderRequest
	var assign *shiprocket.AssignAWBRequest
	mockAPI.OnCreateOrder = func(ctx context.Context, req *shiprocket.OrderRequest) (*shiprocket.OrderResponse, error) {
		order = req
		return &shiprocket.OrderResponse{OrderID: 1, ShipmentID: 42}, nil
	}
	mockAPI.OnAssignAWB = func(ctx context.Context, req *shiprocket.AssignAWBRequest) (*shiprocket.AssignAWBResponse, error) {
		assign = req
		return &shiprocket.AssignAWBResponse{AWBAssignStatus: 1, Response: shiprocket.AssignAWBEnvelope{
			Data: shiprocket.AssignedAWB{AWBCode: "141123221084922"},
		}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.CreateShipment(context.Background(), testShipment())

	require.NoError(t, err)
	assert.Equal(t, "141123221084922", result.TrackingNumber)
	assert.Equal(t, "42", result.CarrierReference)

	assert.Equal(t, "Anita Rao", order.BillingCustomerName)
	assert.Equal(t, "Sharma", order.BillingLastName)
	assert.Equal(t, "Primary", order.PickupLocation)
	assert.Equal(t, "Prepaid", order.PaymentMethod)
	require.Len(t, order.OrderItems, 1)
	assert.Equal(t, "ORD-2001-1", order.OrderItems[0].SKU)

	assert.Equal(t, int64(42), assign.ShipmentID)
	assert.Equal(t, int64(24), assign.CourierID)
}

func TestClient_CreateShipment_AWBNotAssigned(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnAssignAWB = func(ctx context.Context, req *shiprocket.AssignAWBRequest) (*shiprocket.AssignAWBResponse, error) {
		return &shiprocket.AssignAWBResponse{AWBAssignStatus: 0, Message: "Insufficient wallet balance"}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.CreateShipment(context.Background(), testShipment())

	require.Error(t, err)
	assert.ErrorIs(t, err, shipper.ErrCreationFailed)
	assert.Contains(t, err.Error(), "Insufficient wallet balance")
}

func TestClient_TrackShipment(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnTrack = func(ctx context.Context, awb string) (*shiprocket.TrackResponse, error) {
		return &shiprocket.TrackResponse{TrackingData: shiprocket.TrackingData{
			TrackStatus:    1,
			ShipmentStatus: "7",
			ShipmentTrack:  []shiprocket.ShipmentTrack{{ShipmentID: 42, AWBCode: awb, CurrentStatus: "Delivered"}},
			ShipmentTrackActivities: []shiprocket.TrackingActivity{
				{Date: "2024-03-07 18:20:00", Status: "DLVD", Activity: "Delivered to consignee", Location: "Mumbai", SRStatus: "7", SRStatusLabel: "DELIVERED"},
				{Date: "2024-03-07 09:00:00", Status: "OFD", Activity: "Out for delivery", Location: "Mumbai", SRStatus: "17", SRStatusLabel: "OUT FOR DELIVERY"},
				{Date: "2024-03-05 12:00:00", Status: "PKD", Activity: "Picked up", SRStatus: "42"},
			},
		}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.TrackShipment(context.Background(), "141123221084922")

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusDelivered, result.Status)
	require.Len(t, result.Events, 3)
	assert.Equal(t, shipper.StatusPickedUp, result.Events[0].Status)
	assert.Equal(t, shipper.StatusOutForDelivery, result.Events[1].Status)
	assert.Equal(t, shipper.StatusDelivered, result.Events[2].Status)
}

func TestClient_TrackShipment_Unknown(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnTrack = func(ctx context.Context, awb string) (*shiprocket.TrackResponse, error) {
		return &shiprocket.TrackResponse{TrackingData: shiprocket.TrackingData{Error: "Awb not found"}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.TrackShipment(context.Background(), "nope")

	require.NoError(t, err)
	assert.Equal(t, shipper.StatusUnknown, result.Status)
	assert.Empty(t, result.Events)
}

func TestClient_CancelShipment_Refused(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnCancel = func(ctx context.Context, awbs []string) (*shiprocket.CancelResponse, error) {
		return &shiprocket.CancelResponse{Message: "Cannot cancel shipment in transit", StatusCode: 400}, nil
	}
	client := newTestClient(mockAPI)

	ok, err := client.CancelShipment(context.Background(), "141123221084922")

	assert.False(t, ok)
	assert.ErrorIs(t, err, shipper.ErrCancellationNotAllowed)
}

func TestClient_CheckServiceability(t *testing.T) {
	client := newTestClient(shiprocket.NewMockAPIClient())
	ok, err := client.CheckServiceability(context.Background(), "110020", "400001", shipper.PaymentCOD)
	require.NoError(t, err)
	assert.True(t, ok)

	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnServiceability = func(ctx context.Context, q *shiprocket.ServiceabilityQuery) (*shiprocket.ServiceabilityResponse, error) {
		return nil, shipper.FromHTTPStatus(shipper.CodeShiprocket, 404, "not serviceable")
	}
	ok, err = newTestClient(mockAPI).CheckServiceability(context.Background(), "110020", "999999", shipper.PaymentPrepaid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_SchedulePickup_ResolvesShipmentID(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	var got []int64
	mockAPI.OnGeneratePickup = func(ctx context.Context, shipmentIDs []int64) (*shiprocket.PickupResponse, error) {
		got = shipmentIDs
		return &shiprocket.PickupResponse{PickupStatus: 1, Response: shiprocket.PickupSchedule{
			PickupScheduledDate: "2024-03-05 11:00:00", PickupTokenNumber: "PT-77",
		}}, nil
	}
	client := newTestClient(mockAPI)

	result, err := client.SchedulePickup(context.Background(), &shipper.PickupRequest{TrackingNumbers: []string{"141123221084922"}})

	require.NoError(t, err)
	assert.Equal(t, []int64{7001}, got)
	assert.Equal(t, "PT-77", result.Reference)
	assert.Equal(t, 11, result.ScheduledFor.Hour())
}

func TestClient_SchedulePickup_ByReference(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnTrack = func(ctx context.Context, awb string) (*shiprocket.TrackResponse, error) {
		t.Fatal("references must not be resolved through tracking")
		return nil, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.SchedulePickup(context.Background(), &shipper.PickupRequest{References: []string{"42", "43"}})
	require.NoError(t, err)

	_, err = client.SchedulePickup(context.Background(), &shipper.PickupRequest{References: []string{"abc"}})
	assert.ErrorIs(t, err, shipper.ErrInvalidRequest)
}

func TestClient_GetLabel(t *testing.T) {
	client := newTestClient(shiprocket.NewMockAPIClient())

	label, err := client.GetLabel(context.Background(), "141123221084922")

	require.NoError(t, err)
	assert.Equal(t, "https://labels.example.test/shiprocket.pdf", label.URL)
	assert.Equal(t, shipper.LabelPDF, label.Format)
}

func TestClient_GetLabel_NotCreated(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.OnGenerateLabel = func(ctx context.Context, shipmentIDs []int64) (*shiprocket.LabelResponse, error) {
		return &shiprocket.LabelResponse{LabelCreated: 0, NotCreated: shipmentIDs}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.GetLabel(context.Background(), "141123221084922")

	assert.ErrorIs(t, err, shipper.ErrLabelNotAvailable)
}

func TestClient_ValidateCredentials(t *testing.T) {
	mockAPI := shiprocket.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	check := newTestClient(mockAPI).ValidateCredentials(context.Background())

	assert.False(t, check.Success)
	assert.Equal(t, shipper.CheckUnreachable, check.Failure)
}
