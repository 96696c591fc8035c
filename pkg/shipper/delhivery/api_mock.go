package delhivery

import (
	"context"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// MockAPIClient is a mock implementation of APIClient for testing.
// Unset hooks return a plausible default response.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCharges      func(ctx context.Context, q *ChargesQuery) ([]ChargeResponse, error)
	OnExpectedTAT  func(ctx context.Context, origin, destination, mode string) (*TATResponse, error)
	OnPincode      func(ctx context.Context, pincode string) (*PincodeResponse, error)
	OnCreateOrder  func(ctx context.Context, req *ManifestRequest) (*ManifestResponse, error)
	OnTrack        func(ctx context.Context, waybill string) (*TrackResponse, error)
	OnCancel       func(ctx context.Context, waybill string) (*EditResponse, error)
	OnCreatePickup func(ctx context.Context, req *PickupRequest) (*PickupResponse, error)
	OnPackingSlip  func(ctx context.Context, waybill string) (*PackingSlipResponse, error)
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

// Charges returns a flat surface/express charge.
func (m *MockAPIClient) Charges(ctx context.Context, q *ChargesQuery) ([]ChargeResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCharges != nil {
		return m.OnCharges(ctx, q)
	}
	base := 80.0
	if q.Mode == ModeExpress {
		base = 140
	}
	resp := ChargeResponse{ChargeDL: base, ChargeFSC: base * 0.1, TaxData: TaxData{IGST: base * 0.18}}
	if q.PaymentType == PaymentCOD {
		resp.ChargeCOD = 35
	}
	return []ChargeResponse{resp}, nil
}

// ExpectedTAT returns 4 days surface, 2 days express.
func (m *MockAPIClient) ExpectedTAT(ctx context.Context, origin, destination, mode string) (*TATResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnExpectedTAT != nil {
		return m.OnExpectedTAT(ctx, origin, destination, mode)
	}
	resp := &TATResponse{Success: true}
	resp.Data.TAT = 4
	if mode == ModeExpress {
		resp.Data.TAT = 2
	}
	return resp, nil
}

// Pincode reports every pincode as fully serviceable.
func (m *MockAPIClient) Pincode(ctx context.Context, pincode string) (*PincodeResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnPincode != nil {
		return m.OnPincode(ctx, pincode)
	}
	return &PincodeResponse{DeliveryCodes: []DeliveryCode{
		{PostalCode: PostalCode{Pin: wire.FlexString(pincode), PrePaid: "Y", COD: "Y", Pickup: "Y"}},
	}}, nil
}

// CreateOrder allocates a fixed waybill.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *ManifestRequest) (*ManifestResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}
	return &ManifestResponse{
		Success:  true,
		Packages: []ManifestPackage{{Waybill: "1234567890123", RefNum: req.Shipments[0].Order, Status: "Success"}},
	}, nil
}

// Track reports every waybill as unknown.
func (m *MockAPIClient) Track(ctx context.Context, waybill string) (*TrackResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, waybill)
	}
	return &TrackResponse{Error: "No such waybill or Order Id found"}, nil
}

// Cancel accepts every cancellation.
func (m *MockAPIClient) Cancel(ctx context.Context, waybill string) (*EditResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancel != nil {
		return m.OnCancel(ctx, waybill)
	}
	return &EditResponse{Status: true, Waybill: waybill, Remark: "Shipment has been cancelled"}, nil
}

// CreatePickup accepts every pickup.
func (m *MockAPIClient) CreatePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCreatePickup != nil {
		return m.OnCreatePickup(ctx, req)
	}
	return &PickupResponse{PickupID: "9001", PickupDate: req.PickupDate, PickupTime: req.PickupTime}, nil
}

// PackingSlip returns a fixed download link.
func (m *MockAPIClient) PackingSlip(ctx context.Context, waybill string) (*PackingSlipResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnPackingSlip != nil {
		return m.OnPackingSlip(ctx, waybill)
	}
	return &PackingSlipResponse{
		PackagesFound: 1,
		Packages:      []PackingSlipPackage{{Waybill: waybill, PDFDownloadLink: "https://labels.example.test/" + waybill + ".pdf"}},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
