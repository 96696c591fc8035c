package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper"
)

// guarded validates inputs before they reach an adapter and turns adapter
// panics into errors.
type guarded struct {
	next         shipper.Shipper
	restrictions shipper.Restrictions
}

// Guard wraps s so malformed requests and requests outside the carrier's
// restrictions are rejected without a vendor call.
func Guard(s shipper.Shipper, restrictions shipper.Restrictions) shipper.Shipper {
	if g, ok := s.(*guarded); ok {
		s = g.next
	}
	return &guarded{next: s, restrictions: restrictions}
}

func (g *guarded) Code() shipper.Code {
	return g.next.Code()
}

func (g *guarded) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := g.restrictions.Check(req); err != nil {
		return nil, err
	}
	defer g.recover(&err)
	return g.next.GetRates(ctx, req)
}

func (g *guarded) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (res *shipper.ShipmentResult, err error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if err := g.restrictions.Check(&data.Package); err != nil {
		return nil, err
	}
	defer g.recover(&err)
	return g.next.CreateShipment(ctx, data)
}

// TrackShipment answers a blank tracking number with an unknown status, the
// same result a carrier gives for a number it has never seen.
func (g *guarded) TrackShipment(ctx context.Context, trackingNumber string) (res *shipper.TrackingResult, err error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return shipper.UnknownTracking(""), nil
	}
	defer g.recover(&err)
	return g.next.TrackShipment(ctx, trackingNumber)
}

func (g *guarded) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	if err := requireTrackingNumber(trackingNumber); err != nil {
		return false, err
	}
	defer g.recover(&err)
	return g.next.CancelShipment(ctx, strings.TrimSpace(trackingNumber))
}

func (g *guarded) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	if err := shipper.ValidateLane(origin, destination, mode); err != nil {
		return false, err
	}
	defer g.recover(&err)
	return g.next.CheckServiceability(ctx, origin, destination, mode)
}

func (g *guarded) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (res *shipper.PickupResult, err error) {
	if req == nil {
		return nil, fmt.Errorf("%w: pickup request is nil", shipper.ErrInvalidRequest)
	}
	defer g.recover(&err)
	return g.next.SchedulePickup(ctx, req)
}

func (g *guarded) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	if err := requireTrackingNumber(trackingNumber); err != nil {
		return nil, err
	}
	defer g.recover(&err)
	return g.next.GetLabel(ctx, strings.TrimSpace(trackingNumber))
}

func (g *guarded) ValidateCredentials(ctx context.Context) (check shipper.CredentialCheck) {
	defer func() {
		if r := recover(); r != nil {
			check = shipper.CredentialCheck{
				Carrier: g.next.Code(),
				Failure: shipper.CheckUnexpected,
				Detail:  fmt.Sprintf("adapter panic: %v", r),
			}
		}
	}()
	return g.next.ValidateCredentials(ctx)
}

func (g *guarded) recover(err *error) {
	if r := recover(); r != nil {
		*err = shipper.NewShipperError(g.next.Code(), "ADAPTER_PANIC", fmt.Sprint(r))
	}
}

func requireTrackingNumber(trackingNumber string) error {
	if strings.TrimSpace(trackingNumber) == "" {
		return fmt.Errorf("%w: tracking number is empty", shipper.ErrInvalidRequest)
	}
	return nil
}

// Ensure guarded implements shipper.Shipper
var _ shipper.Shipper = (*guarded)(nil)
