package shiprocket

import (
	"context"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnServiceability  func(ctx context.Context, q *ServiceabilityQuery) (*ServiceabilityResponse, error)
	OnCreateOrder     func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnAssignAWB       func(ctx context.Context, req *AssignAWBRequest) (*AssignAWBResponse, error)
	OnTrack           func(ctx context.Context, awb string) (*TrackResponse, error)
	OnCancel          func(ctx context.Context, awbs []string) (*CancelResponse, error)
	OnGeneratePickup  func(ctx context.Context, shipmentIDs []int64) (*PickupResponse, error)
	OnGenerateLabel   func(ctx context.Context, shipmentIDs []int64) (*LabelResponse, error)
	OnPickupLocations func(ctx context.Context) (*PickupLocationsResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) simulate(ctx context.Context) error {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.SimulateErrors {
		return shipper.FromHTTPStatus(carrierCode, 503, "simulated API error")
	}
	return nil
}

// Serviceability offers two courier partners, both accepting COD.
func (m *MockAPIClient) Serviceability(ctx context.Context, q *ServiceabilityQuery) (*ServiceabilityResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnServiceability != nil {
		return m.OnServiceability(ctx, q)
	}
	var cod float64
	if q.COD {
		cod = 40
	}
	return &ServiceabilityResponse{Status: 200, Data: ServiceabilityData{
		AvailableCourierCompanies: []CourierCompany{
			{CourierCompanyID: 10, CourierName: "Delhivery Surface", FreightCharge: 90, CODCharges: wire.FlexFloat(cod), Rate: wire.FlexFloat((90 + cod) * 1.18), EstimatedDeliveryDays: 5, COD: 1},
			{CourierCompanyID: 24, CourierName: "Xpressbees Air", FreightCharge: 150, CODCharges: wire.FlexFloat(cod), Rate: wire.FlexFloat((150 + cod) * 1.18), EstimatedDeliveryDays: 2, COD: 1},
		},
		RecommendedCourierID: 10,
	}}, nil
}

// CreateOrder creates a fixed order and shipment.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}
	return &OrderResponse{OrderID: 5001, ShipmentID: 7001, Status: "NEW", StatusCode: 1}, nil
}

// AssignAWB assigns a fixed AWB.
func (m *MockAPIClient) AssignAWB(ctx context.Context, req *AssignAWBRequest) (*AssignAWBResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnAssignAWB != nil {
		return m.OnAssignAWB(ctx, req)
	}
	return &AssignAWBResponse{AWBAssignStatus: 1, Response: AssignAWBEnvelope{Data: AssignedAWB{
		AWBCode: "SR123456789", CourierCompanyID: req.CourierID, ShipmentID: req.ShipmentID,
	}}}, nil
}

// Track reports a booked shipment with no scans.
func (m *MockAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, awb)
	}
	return &TrackResponse{TrackingData: TrackingData{
		TrackStatus:   1,
		ShipmentTrack: []ShipmentTrack{{ShipmentID: 7001, AWBCode: awb, CurrentStatus: "AWB Assigned"}},
	}}, nil
}

// Cancel accepts every cancellation.
func (m *MockAPIClient) Cancel(ctx context.Context, awbs []string) (*CancelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancel != nil {
		return m.OnCancel(ctx, awbs)
	}
	return &CancelResponse{Message: "Bulk Shipment cancellation is in progress. Please wait for 24 hours.", StatusCode: 200}, nil
}

// GeneratePickup schedules pickup for the next day.
func (m *MockAPIClient) GeneratePickup(ctx context.Context, shipmentIDs []int64) (*PickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGeneratePickup != nil {
		return m.OnGeneratePickup(ctx, shipmentIDs)
	}
	return &PickupResponse{PickupStatus: 1, Response: PickupSchedule{
		PickupScheduledDate: "2024-03-05 11:00:00", PickupTokenNumber: "Reference No: 194_BIGFOOT 1", Status: 3,
	}}, nil
}

// GenerateLabel returns a fixed label URL.
func (m *MockAPIClient) GenerateLabel(ctx context.Context, shipmentIDs []int64) (*LabelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnGenerateLabel != nil {
		return m.OnGenerateLabel(ctx, shipmentIDs)
	}
	return &LabelResponse{LabelCreated: 1, LabelURL: "https://labels.example.test/shiprocket.pdf"}, nil
}

// PickupLocations returns one registered location.
func (m *MockAPIClient) PickupLocations(ctx context.Context) (*PickupLocationsResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnPickupLocations != nil {
		return m.OnPickupLocations(ctx)
	}
	return &PickupLocationsResponse{Data: PickupLocations{ShippingAddress: []PickupAddress{
		{ID: 1, PickupLocation: "Primary", PinCode: "110020"},
	}}}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
