package graphql

import (
	"context"

	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Resolver is the root resolver for the GraphQL schema. It serves the
// fields of both Query and Mutation.
type Resolver struct {
	Service *dispatch.Service
	Logger  *otelzap.Logger
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(service *dispatch.Service, logger *otelzap.Logger) *Resolver {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Resolver{
		Service: service,
		Logger:  logger,
	}
}

// fail logs err and wraps it so the response carries its classification.
func (r *Resolver) fail(ctx context.Context, field string, err error) error {
	r.Logger.Ctx(ctx).Debug("GraphQL field failed", zap.String("field", field), zap.Error(err))
	return &fieldError{err: err}
}

// ============================================================================
// Query
// ============================================================================

// Health reports that the service is up.
func (r *Resolver) Health(ctx context.Context) (string, error) {
	return "ok", nil
}

// Carriers lists every catalogued carrier.
func (r *Resolver) Carriers(ctx context.Context) ([]*Carrier, error) {
	infos, err := r.Service.Carriers(ctx)
	if err != nil {
		return nil, r.fail(ctx, "carriers", err)
	}
	out := make([]*Carrier, len(infos))
	for i, info := range infos {
		out[i] = carrierInfoToModel(info)
	}
	return out, nil
}

// TrackShipment returns a shipment's status and history.
func (r *Resolver) TrackShipment(ctx context.Context, args struct {
	Carrier        string
	TrackingNumber string
}) (*Tracking, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return nil, r.fail(ctx, "trackShipment", err)
	}
	res, err := r.Service.TrackShipment(ctx, code, args.TrackingNumber)
	if err != nil {
		return nil, r.fail(ctx, "trackShipment", err)
	}
	return trackingToModel(res), nil
}

// CheckServiceability reports whether a carrier serves a lane.
func (r *Resolver) CheckServiceability(ctx context.Context, args struct {
	Carrier     string
	Origin      string
	Destination string
	PaymentMode string
}) (bool, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return false, r.fail(ctx, "checkServiceability", err)
	}
	ok, err := r.Service.CheckServiceability(ctx, code, args.Origin, args.Destination, paymentModeToModel(args.PaymentMode))
	if err != nil {
		return false, r.fail(ctx, "checkServiceability", err)
	}
	return ok, nil
}

// Label fetches a shipment's label.
func (r *Resolver) Label(ctx context.Context, args struct {
	Carrier        string
	TrackingNumber string
}) (*Label, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return nil, r.fail(ctx, "label", err)
	}
	l, err := r.Service.GetLabel(ctx, code, args.TrackingNumber)
	if err != nil {
		return nil, r.fail(ctx, "label", err)
	}
	return labelToModel(l), nil
}

// ValidateCredentials checks one carrier, or every enabled carrier when
// carrier is omitted.
func (r *Resolver) ValidateCredentials(ctx context.Context, args struct{ Carrier *string }) ([]*CredentialCheck, error) {
	if args.Carrier != nil {
		code, err := carrierCode(*args.Carrier)
		if err != nil {
			return nil, r.fail(ctx, "validateCredentials", err)
		}
		return []*CredentialCheck{credentialCheckToModel(r.Service.ValidateCredentials(ctx, code))}, nil
	}

	checks := r.Service.ValidateAll(ctx)
	out := make([]*CredentialCheck, len(checks))
	for i, c := range checks {
		out[i] = credentialCheckToModel(c)
	}
	return out, nil
}

// ============================================================================
// Mutation
// ============================================================================

// ShopRates quotes a parcel across carriers.
func (r *Resolver) ShopRates(ctx context.Context, args struct {
	Input    RateRequestInput
	Carriers *[]string
}) (*RateShop, error) {
	codes, err := carrierCodes(args.Carriers)
	if err != nil {
		return nil, r.fail(ctx, "shopRates", err)
	}
	res, err := r.Service.ShopRates(ctx, rateRequestInputToModel(args.Input), codes)
	if err != nil {
		return nil, r.fail(ctx, "shopRates", err)
	}
	return rateShopToModel(res), nil
}

// CreateShipment books a shipment with one carrier.
func (r *Resolver) CreateShipment(ctx context.Context, args struct {
	Carrier string
	Input   ShipmentInput
}) (*Shipment, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return nil, r.fail(ctx, "createShipment", err)
	}
	res, err := r.Service.CreateShipment(ctx, code, shipmentInputToModel(args.Input))
	if err != nil {
		return nil, r.fail(ctx, "createShipment", err)
	}
	return shipmentResultToModel(res), nil
}

// CancelShipment cancels a shipment.
func (r *Resolver) CancelShipment(ctx context.Context, args struct {
	Carrier        string
	TrackingNumber string
}) (bool, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return false, r.fail(ctx, "cancelShipment", err)
	}
	ok, err := r.Service.CancelShipment(ctx, code, args.TrackingNumber)
	if err != nil {
		return false, r.fail(ctx, "cancelShipment", err)
	}
	return ok, nil
}

// SchedulePickup books a pickup.
func (r *Resolver) SchedulePickup(ctx context.Context, args struct {
	Carrier string
	Input   PickupInput
}) (*Pickup, error) {
	code, err := carrierCode(args.Carrier)
	if err != nil {
		return nil, r.fail(ctx, "schedulePickup", err)
	}
	req, err := pickupInputToModel(args.Input)
	if err != nil {
		return nil, r.fail(ctx, "schedulePickup", err)
	}
	res, err := r.Service.SchedulePickup(ctx, code, req)
	if err != nil {
		return nil, r.fail(ctx, "schedulePickup", err)
	}
	return pickupResultToModel(res), nil
}
