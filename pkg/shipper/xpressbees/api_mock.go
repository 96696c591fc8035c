package xpressbees

import (
	"context"
	"math"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnServiceability func(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error)
	OnCreateShipment func(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)
	OnTrack          func(ctx context.Context, awb string) (*TrackResponse, error)
	OnCancel         func(ctx context.Context, awb string) (*Envelope, error)
	OnLabel          func(ctx context.Context, awb string) (*LabelResponse, error)
	OnCouriers       func(ctx context.Context) (*CouriersResponse, error)
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

// Serviceability quotes a surface and an air service, GST included.
func (m *MockAPIClient) Serviceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnServiceability != nil {
		return m.OnServiceability(ctx, req)
	}
	var cod float64
	if req.PaymentType == "cod" {
		cod = 35
	}
	quote := func(id, name string, freight float64) CourierCharge {
		total := math.Round((freight+cod)*1.18*100) / 100
		return CourierCharge{
			ID:               wire.FlexString(id),
			Name:             name,
			FreightCharges:   wire.FlexFloat(freight),
			CODCharges:       wire.FlexFloat(cod),
			TotalCharges:     wire.FlexFloat(total),
			ChargeableWeight: wire.FlexInt(req.Weight),
		}
	}
	return &ServiceabilityResponse{
		Envelope: Envelope{Status: true},
		Data: []CourierCharge{
			quote("1", "Xpressbees Surface", 80),
			quote("6", "Xpressbees Air", 140),
		},
	}, nil
}

// CreateShipment books every shipment under a fixed AWB.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	return &ShipmentResponse{
		Envelope: Envelope{Status: true},
		Data: BookedShipment{
			OrderID:     "55001",
			ShipmentID:  "88001",
			AWBNumber:   "XB1400000001",
			CourierID:   wire.FlexString(req.CourierID),
			CourierName: "Xpressbees Surface",
			Status:      "booked",
			Label:       "https://labels.example.test/xpressbees.pdf",
		},
	}, nil
}

// Track reports a freshly booked AWB.
func (m *MockAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, awb)
	}
	return &TrackResponse{
		Envelope: Envelope{Status: true},
		Data: TrackData{
			AWBNumber: awb,
			Status:    "pending pickup",
			History:   []HistoryEntry{{StatusCode: "DRC", EventTime: "2024-03-01 10:00", Message: "Data received"}},
		},
	}, nil
}

// Cancel accepts every cancellation.
func (m *MockAPIClient) Cancel(ctx context.Context, awb string) (*Envelope, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancel != nil {
		return m.OnCancel(ctx, awb)
	}
	return &Envelope{Status: true, Message: "Shipment cancelled"}, nil
}

// Label returns a fixed link.
func (m *MockAPIClient) Label(ctx context.Context, awb string) (*LabelResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnLabel != nil {
		return m.OnLabel(ctx, awb)
	}
	return &LabelResponse{Envelope: Envelope{Status: true}, Data: LabelData{Label: "https://labels.example.test/xpressbees.pdf"}}, nil
}

// Couriers lists one courier.
func (m *MockAPIClient) Couriers(ctx context.Context) (*CouriersResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCouriers != nil {
		return m.OnCouriers(ctx)
	}
	return &CouriersResponse{Envelope: Envelope{Status: true}, Data: []Courier{{ID: "1", Name: "Xpressbees Surface"}}}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
