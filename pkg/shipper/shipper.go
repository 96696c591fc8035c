// Package shipper defines the uniform carrier contract, the canonical shipment
// data model, and the rate orchestration that fans a request out to carriers.
package shipper

import (
	"context"
)

// Shipper is the contract every carrier adapter implements.
// Errors are returned as values; an adapter never panics across this boundary.
type Shipper interface {
	// Code returns the carrier this adapter talks to.
	Code() Code

	// GetRates returns the services the carrier quotes for the request.
	GetRates(ctx context.Context, req *ShipmentRequest) ([]RateQuote, error)

	// CreateShipment books a shipment and returns its tracking number.
	CreateShipment(ctx context.Context, data *ShipmentData) (*ShipmentResult, error)

	// TrackShipment returns the canonical status and event history.
	// Unknown tracking numbers yield StatusUnknown with no events and a nil error.
	TrackShipment(ctx context.Context, trackingNumber string) (*TrackingResult, error)

	// CancelShipment requests cancellation and reports whether the carrier accepted it.
	CancelShipment(ctx context.Context, trackingNumber string) (bool, error)

	// CheckServiceability reports whether the carrier serves the lane for the payment mode.
	CheckServiceability(ctx context.Context, origin, destination string, mode PaymentMode) (bool, error)

	// SchedulePickup books a pickup. Carriers without the capability return ErrUnsupported.
	SchedulePickup(ctx context.Context, req *PickupRequest) (*PickupResult, error)

	// GetLabel fetches the shipping label for a booked shipment.
	GetLabel(ctx context.Context, trackingNumber string) (*Label, error)

	// ValidateCredentials performs a cheap authenticated call against the carrier.
	ValidateCredentials(ctx context.Context) CredentialCheck
}

// Maker builds a ready-to-use adapter for a carrier code.
type Maker interface {
	Make(ctx context.Context, code Code) (Shipper, error)
}

// MakerFunc adapts a function to the Maker interface.
type MakerFunc func(ctx context.Context, code Code) (Shipper, error)

// Make calls f(ctx, code).
func (f MakerFunc) Make(ctx context.Context, code Code) (Shipper, error) {
	return f(ctx, code)
}

// WebhookParser decodes a carrier's push notification into status updates.
type WebhookParser func(body []byte) ([]StatusUpdate, error)
