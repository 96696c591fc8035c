// Package mock provides an in-process carrier for tests and local runs.
package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
)

// Client is a configurable fake carrier. The zero configuration quotes one
// standard service, serves every lane and knows no tracking numbers.
type Client struct {
	code shipper.Code

	// Charges is the breakdown quoted for the standard service.
	Charges      shipper.Charges
	DeliveryDays int

	// Delay is waited before answering, honouring ctx.
	Delay time.Duration
	// Block, when non-nil, stalls GetRates until closed, ignoring ctx.
	Block chan struct{}
	// Err is returned by every operation when set.
	Err               error
	NotServiceable    bool
	PickupUnsupported bool

	// OnGetRates overrides GetRates entirely.
	OnGetRates func(ctx context.Context, req *shipper.ShipmentRequest) ([]shipper.RateQuote, error)

	mu        sync.Mutex
	shipments map[string]*shipper.TrackingResult
	rateCalls atomic.Int32
}

// New creates a mock carrier answering as code.
func New(code shipper.Code) *Client {
	return &Client{
		code:         code,
		Charges:      shipper.Charges{Base: 100, FuelSurcharge: 15, Tax: 20},
		DeliveryDays: 3,
		shipments:    make(map[string]*shipper.TrackingResult),
	}
}

// Code returns the carrier code.
func (c *Client) Code() shipper.Code {
	return c.code
}

// RateCalls reports how many times GetRates was invoked.
func (c *Client) RateCalls() int {
	return int(c.rateCalls.Load())
}

// GetRates returns a single quote built from Charges.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) ([]shipper.RateQuote, error) {
	c.rateCalls.Add(1)
	if c.Block != nil {
		<-c.Block
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.OnGetRates != nil {
		return c.OnGetRates(ctx, req)
	}
	if c.Err != nil {
		return nil, c.Err
	}

	charges := c.Charges
	if req.COD() && charges.COD == 0 {
		charges.COD = 30
	}
	q := shipper.NewRateQuote(c.code, "STANDARD", fmt.Sprintf("%s Standard", c.code), charges, c.DeliveryDays)
	return []shipper.RateQuote{q.WithEstimatedDelivery(nil, time.Now())}, nil
}

// CreateShipment records the shipment so it can be tracked.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (*shipper.ShipmentResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}

	now := time.Now()
	awb := fmt.Sprintf("%s-%d", c.code, now.UnixNano())

	c.mu.Lock()
	c.shipments[awb] = &shipper.TrackingResult{
		TrackingNumber: awb,
		Status:         shipper.StatusCreated,
		Events: []shipper.TrackingEvent{{
			Timestamp:    now,
			Status:       shipper.StatusCreated,
			VendorStatus: "MANIFESTED",
			Description:  "Shipment manifested",
		}},
	}
	c.mu.Unlock()

	expected := now.AddDate(0, 0, c.DeliveryDays)
	return &shipper.ShipmentResult{
		TrackingNumber:   awb,
		CarrierReference: data.OrderID,
		LabelURL:         fmt.Sprintf("https://labels.example.test/%s.pdf", awb),
		ExpectedDelivery: &expected,
	}, nil
}

// TrackShipment returns recorded shipments and StatusUnknown otherwise.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (*shipper.TrackingResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.shipments[trackingNumber]; ok {
		cp := *t
		cp.Events = append([]shipper.TrackingEvent(nil), t.Events...)
		return &cp, nil
	}
	return shipper.UnknownTracking(trackingNumber), nil
}

// CancelShipment marks a recorded shipment cancelled.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.shipments[trackingNumber]
	if !ok {
		return false, nil
	}
	t.Status = shipper.StatusCancelled
	t.Events = append(t.Events, shipper.TrackingEvent{
		Timestamp:    time.Now(),
		Status:       shipper.StatusCancelled,
		VendorStatus: "CANCELLED",
	})
	return true, nil
}

// CheckServiceability answers from NotServiceable.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	if c.Err != nil {
		return false, c.Err
	}
	return !c.NotServiceable, nil
}

// SchedulePickup books a pickup unless PickupUnsupported is set.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	if c.PickupUnsupported {
		return nil, shipper.ErrUnsupported
	}
	return &shipper.PickupResult{
		Reference:    fmt.Sprintf("PU-%s-%d", c.code, req.Date.Unix()),
		ScheduledFor: req.Date,
	}, nil
}

// GetLabel returns a URL label.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (*shipper.Label, error) {
	return &shipper.Label{
		TrackingNumber: trackingNumber,
		Format:         shipper.LabelPDF,
		URL:            fmt.Sprintf("https://labels.example.test/%s.pdf", trackingNumber),
	}, nil
}

// ValidateCredentials succeeds unless Err is set.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	if c.Err != nil {
		return shipper.CredentialCheck{Carrier: c.code, Failure: shipper.CheckUnexpected, Detail: c.Err.Error()}
	}
	return shipper.CredentialCheck{Carrier: c.code, Success: true, Detail: "mock credentials accepted"}
}

func (c *Client) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Maker hands out the given mock carriers by code. Codes without a mock
// fail with ErrCarrierNotFound.
func Maker(clients ...*Client) shipper.Maker {
	byCode := make(map[shipper.Code]*Client, len(clients))
	for _, c := range clients {
		byCode[c.code] = c
	}
	return shipper.MakerFunc(func(ctx context.Context, code shipper.Code) (shipper.Shipper, error) {
		c, ok := byCode[code]
		if !ok {
			return nil, shipper.NewConfigError(code, shipper.ErrCarrierNotFound, "")
		}
		return c, nil
	})
}

var _ shipper.Shipper = (*Client)(nil)
