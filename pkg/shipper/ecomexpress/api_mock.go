package ecomexpress

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

	OnRate     func(ctx context.Context, req *RateRequest) (*RateResult, error)
	OnPincode  func(ctx context.Context, pincode string) (*PincodeInfo, error)
	OnFetchAWB func(ctx context.Context, product string, count int) (*FetchAWBResponse, error)
	OnManifest func(ctx context.Context, shipments []ManifestShipment) (*ManifestResponse, error)
	OnTrack    func(ctx context.Context, awbs []string) (*TrackDocument, error)
	OnCancel   func(ctx context.Context, awbs []string) ([]CancelResult, error)
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

// Rate charges 70 freight, 10.5 fuel, 40 COD when collecting, and 18% GST.
func (m *MockAPIClient) Rate(ctx context.Context, req *RateRequest) (*RateResult, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnRate != nil {
		return m.OnRate(ctx, req)
	}
	b := ChargesBreakup{Freight: 70, Fuel: 10.5}
	if req.ProductType == ProductCOD {
		b.COD = 40
	}
	b.GST = wire.FlexFloat(math.Round(float64(b.Freight+b.Fuel+b.COD)*18) / 100)
	b.Total = b.Freight + b.Fuel + b.COD + b.GST
	return &RateResult{Success: true, ChargesBreakup: b}, nil
}

// Pincode serves every pincode with COD.
func (m *MockAPIClient) Pincode(ctx context.Context, pincode string) (*PincodeInfo, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnPincode != nil {
		return m.OnPincode(ctx, pincode)
	}
	return &PincodeInfo{Pincode: wire.FlexString(pincode), Active: true, COD: true}, nil
}

// FetchAWB issues a fixed AWB.
func (m *MockAPIClient) FetchAWB(ctx context.Context, product string, count int) (*FetchAWBResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnFetchAWB != nil {
		return m.OnFetchAWB(ctx, product, count)
	}
	return &FetchAWBResponse{ReferenceID: "REF-771", Success: "yes", AWB: []wire.FlexString{"100200300"}}, nil
}

// Manifest accepts every shipment.
func (m *MockAPIClient) Manifest(ctx context.Context, shipments []ManifestShipment) (*ManifestResponse, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnManifest != nil {
		return m.OnManifest(ctx, shipments)
	}
	resp := &ManifestResponse{}
	for _, s := range shipments {
		resp.Shipments = append(resp.Shipments, ManifestResult{AWB: wire.FlexString(s.AWBNumber), OrderNumber: s.OrderNumber, Success: true})
	}
	return resp, nil
}

// Track reports soft data uploaded for each AWB.
func (m *MockAPIClient) Track(ctx context.Context, awbs []string) (*TrackDocument, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnTrack != nil {
		return m.OnTrack(ctx, awbs)
	}
	doc := &TrackDocument{}
	for _, awb := range awbs {
		doc.Objects = append(doc.Objects, XMLObject{Model: "awb", Fields: []XMLField{
			{Name: "awb_number", Value: awb},
			{Name: "status", Value: "Soft data uploaded"},
		}})
	}
	return doc, nil
}

// Cancel accepts every cancellation.
func (m *MockAPIClient) Cancel(ctx context.Context, awbs []string) ([]CancelResult, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	if m.OnCancel != nil {
		return m.OnCancel(ctx, awbs)
	}
	out := make([]CancelResult, 0, len(awbs))
	for _, awb := range awbs {
		out = append(out, CancelResult{AWB: wire.FlexString(awb), Success: true})
	}
	return out, nil
}

var _ APIClient = (*MockAPIClient)(nil)
