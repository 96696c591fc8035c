package ekart

import (
	"context"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnRate           func(ctx context.Context, req *RateRequest) (*RateResponse, error)
	OnServiceability func(ctx context.Context, pincode string) (*ServiceabilityResponse, error)
	OnCreateShipment func(ctx context.Context, req *CreateRequest) (*CreateResponse, error)
	OnTrack          func(ctx context.Context, trackingIDs []string) (TrackResponse, error)
	OnCreateRTO      func(ctx context.Context, req *RTORequest) (*CreateResponse, error)
	OnLabels         func(ctx context.Context, trackingIDs []string) ([]byte, error)
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

// Rate returns a surface tariff: 60 forward, 12% fuel, 2% COD with a 35
// floor, 18% GST, three days.
func (m *MockAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnRate != nil {
		return m.OnRate(ctx, req)
	}
	return &RateResponse{
		ServiceType:      "SURFACE",
		ForwardCharge:    60,
		FuelSurchargePct: 12,
		CODFeePct:        2,
		CODFeeMin:        35,
		GSTPct:           18,
		TATDays:          3,
	}, nil
}

// Serviceability serves every pincode.
func (m *MockAPIClient) Serviceability(ctx context.Context, pincode string) (*ServiceabilityResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnServiceability != nil {
		return m.OnServiceability(ctx, pincode)
	}
	return &ServiceabilityResponse{Pincode: pincode, Serviceable: true, COD: true, Prepaid: true, Pickup: true}, nil
}

// CreateShipment accepts every shipment.
func (m *MockAPIClient) CreateShipment(ctx context.Context, req *CreateRequest) (*CreateResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateShipment != nil {
		return m.OnCreateShipment(ctx, req)
	}
	return received(req.Shipments...), nil
}

// Track reports every id as created.
func (m *MockAPIClient) Track(ctx context.Context, trackingIDs []string) (TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, trackingIDs)
	}
	out := TrackResponse{}
	for _, id := range trackingIDs {
		out[id] = TrackedShipment{History: []TrackEvent{
			{Status: "shipment_created", City: "Bengaluru", EventDate: "2024-03-01T10:00:00+05:30"},
		}}
	}
	return out, nil
}

// CreateRTO accepts every request.
func (m *MockAPIClient) CreateRTO(ctx context.Context, req *RTORequest) (*CreateResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateRTO != nil {
		return m.OnCreateRTO(ctx, req)
	}
	resp := &CreateResponse{}
	for _, d := range req.RequestDetails {
		resp.Response = append(resp.Response, RequestOutcome{TrackingID: d.TrackingID, Status: RequestReceived})
	}
	return resp, nil
}

// Labels returns a tiny PDF.
func (m *MockAPIClient) Labels(ctx context.Context, trackingIDs []string) ([]byte, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnLabels != nil {
		return m.OnLabels(ctx, trackingIDs)
	}
	return []byte("%PDF-1.4 ekart"), nil
}

func received(shipments ...Shipment) *CreateResponse {
	resp := &CreateResponse{}
	for _, s := range shipments {
		resp.Response = append(resp.Response, RequestOutcome{TrackingID: s.TrackingID, Status: RequestReceived})
	}
	return resp
}

var _ APIClient = (*MockAPIClient)(nil)
