package bigship

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculate    func(ctx context.Context, req *CalculatorRequest) (*CalculatorResponse, error)
	OnAddOrder     func(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	OnManifest     func(ctx context.Context, req *ManifestRequest) (*Envelope, error)
	OnShipmentData func(ctx context.Context, kind int, systemOrderID string) (*ShipmentDataResponse, error)
	OnTrack        func(ctx context.Context, awb string) (*TrackResponse, error)
	OnCancel       func(ctx context.Context, awbs []string) (*Envelope, error)
	OnWarehouses   func(ctx context.Context) (*WarehouseResponse, error)
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

// Calculate quotes a single courier.
func (m *MockAPIClient) Calculate(ctx context.Context, req *CalculatorRequest) (*CalculatorResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCalculate != nil {
		return m.OnCalculate(ctx, req)
	}
	resp := &CalculatorResponse{Envelope: Envelope{Success: true}}
	rate := CourierRate{CourierID: 7, CourierName: "Ekart Surface", TAT: 4, CourierCharge: 75, FuelCharge: 7.5}
	if req.PaymentType == "COD" {
		rate.CODCharge = 30
	}
	rate.GSTCharge = (rate.CourierCharge + rate.FuelCharge + rate.CODCharge) * 0.18
	resp.Data = []CourierRate{rate}
	return resp, nil
}

// AddOrder creates a fixed order.
func (m *MockAPIClient) AddOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnAddOrder != nil {
		return m.OnAddOrder(ctx, req)
	}
	return &OrderResponse{Envelope: Envelope{Success: true, Message: "Order created"}, Data: "system_order_id is 1000123"}, nil
}

// Manifest accepts every order.
func (m *MockAPIClient) Manifest(ctx context.Context, req *ManifestRequest) (*Envelope, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnManifest != nil {
		return m.OnManifest(ctx, req)
	}
	return &Envelope{Success: true}, nil
}

// ShipmentData returns a fixed AWB or a tiny PDF.
func (m *MockAPIClient) ShipmentData(ctx context.Context, kind int, systemOrderID string) (*ShipmentDataResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnShipmentData != nil {
		return m.OnShipmentData(ctx, kind, systemOrderID)
	}
	resp := &ShipmentDataResponse{Envelope: Envelope{Success: true}}
	if kind == ShipmentDataLabel {
		resp.Data.FileName = systemOrderID + ".pdf"
		resp.Data.FileContent = base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 mock"))
	} else {
		resp.Data.MasterAWB = "BS900000001"
	}
	return resp, nil
}

// Track reports a manifested order.
func (m *MockAPIClient) Track(ctx context.Context, awb string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, awb)
	}
	return &TrackResponse{Envelope: Envelope{Success: true}, Data: TrackData{
		OrderDetail: TrackedOrder{SystemOrderID: "1000123", MasterAWB: awb, CurrentTrackingStatus: "Manifested"},
	}}, nil
}

// Cancel accepts every cancellation.
func (m *MockAPIClient) Cancel(ctx context.Context, awbs []string) (*Envelope, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancel != nil {
		return m.OnCancel(ctx, awbs)
	}
	return &Envelope{Success: true, Message: "Cancelled"}, nil
}

// Warehouses reports one warehouse.
func (m *MockAPIClient) Warehouses(ctx context.Context) (*WarehouseResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnWarehouses != nil {
		return m.OnWarehouses(ctx)
	}
	resp := &WarehouseResponse{Envelope: Envelope{Success: true}}
	resp.Data.ResultCount = 1
	return resp, nil
}

var _ APIClient = (*MockAPIClient)(nil)
