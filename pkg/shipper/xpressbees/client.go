// Package xpressbees provides integration with the Xpressbees shipping API.
package xpressbees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/tournevent/courierhub/pkg/shipper/status"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierCode = shipper.CodeXpressbees

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04",
	time.RFC3339,
}

const sampleWeightKg = 0.5

// Client is the Xpressbees shipper client.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates an Xpressbees client.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	email := cfg.Credential("email")
	session := wire.Session{
		Tokens: env.Tokens,
		Scope:  authcache.ScopeKey(carrierCode, cfg.Mode, email),
		Policy: wire.TokenPolicy(cfg, tokenExpiry, tokenMargin),
	}
	return &Client{
		config:    cfg,
		apiClient: NewHTTPAPIClient(env.NewClient(cfg, nil), session, email, cfg.Credential("password")),
		logger:    env.Logger,
		tracer:    env.Tracer,
		now:       env.Now,
	}
}

// NewWithAPIClient creates an Xpressbees client with a custom API client.
func NewWithAPIClient(cfg shipper.CarrierConfig, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    wire.Tracer(tracer),
		now:       time.Now,
	}
}

// Code returns the carrier code.
func (c *Client) Code() shipper.Code {
	return carrierCode
}

// GetRates returns one quote per Xpressbees service. Xpressbees gives no
// transit time, so quotes carry zero delivery days.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting Xpressbees rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	resp, err := c.apiClient.Serviceability(ctx, serviceabilityRequest(req))
	if err != nil {
		c.logger.Ctx(ctx).Error("Xpressbees API error", zap.Error(err))
		return nil, err
	}
	for _, cc := range resp.Data {
		quotes = append(quotes, chargeToQuote(cc))
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: xpressbees returned no services", shipper.ErrRatesUnavailable)
	}
	return quotes, nil
}

// CreateShipment books the shipment with auto pickup requested. A
// ServiceCode selects the courier id returned by GetRates.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating Xpressbees shipment",
		zap.String("order_id", data.OrderID),
		zap.String("service_code", data.ServiceCode),
	)

	resp, err := c.apiClient.CreateShipment(ctx, shipmentRequest(data))
	if errors.Is(err, shipper.ErrVendorRejected) {
		return nil, shipper.NewShipperError(carrierCode, "BOOKING_FAILED", err.Error()).WithCause(shipper.ErrCreationFailed)
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Xpressbees API error", zap.Error(err))
		return nil, err
	}
	if resp.Data.AWBNumber == "" {
		return nil, shipper.NewShipperError(carrierCode, "AWB_NOT_ASSIGNED", "booking returned no awb").
			WithCause(shipper.ErrCreationFailed)
	}
	return &shipper.ShipmentResult{
		TrackingNumber:   resp.Data.AWBNumber,
		CarrierReference: resp.Data.ShipmentID.String(),
		LabelURL:         resp.Data.Label,
	}, nil
}

// TrackShipment returns the history of an AWB.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Track(ctx, trackingNumber)
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Xpressbees API error", zap.Error(err))
		return nil, err
	}
	if !resp.Status {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	return trackToResult(trackingNumber, &resp.Data), nil
}

// CancelShipment cancels an AWB.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling Xpressbees shipment", zap.String("awb", trackingNumber))

	resp, err := c.apiClient.Cancel(ctx, trackingNumber)
	if err != nil {
		return false, err
	}
	if !resp.Status {
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", resp.Message).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return true, nil
}

// CheckServiceability asks for charges on a sample parcel.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CheckServiceability")
	defer func() { wire.EndSpan(span, err) }()

	sample := &shipper.ShipmentRequest{
		OriginPincode:      origin,
		DestinationPincode: destination,
		Weight:             sampleWeightKg,
		Length:             10,
		Width:              10,
		Height:             10,
		PaymentMode:        mode,
		DeclaredValue:      100,
	}
	resp, err := c.apiClient.Serviceability(ctx, serviceabilityRequest(sample))
	if errors.Is(err, shipper.ErrVendorRejected) || errors.Is(err, shipper.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(resp.Data) > 0, nil
}

// SchedulePickup is not offered; pickups are requested at booking.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	return nil, wire.Unsupported(carrierCode, "SchedulePickup")
}

// GetLabel returns the label link of an AWB.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetLabel")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Label(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if resp.Data.Label == "" {
		return nil, fmt.Errorf("%w: %s", shipper.ErrLabelNotAvailable, trackingNumber)
	}
	return &shipper.Label{TrackingNumber: trackingNumber, Format: shipper.LabelPDF, URL: resp.Data.Label}, nil
}

// ValidateCredentials logs in and lists the enabled couriers.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.Couriers(ctx)
	return wire.CheckResult(carrierCode, err)
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func paymentType(cod bool) string {
	if cod {
		return "cod"
	}
	return "prepaid"
}

func serviceabilityRequest(req *shipper.ShipmentRequest) *ServiceabilityRequest {
	return &ServiceabilityRequest{
		Origin:      req.OriginPincode,
		Destination: req.DestinationPincode,
		PaymentType: paymentType(req.COD()),
		OrderAmount: req.DeclaredValue,
		Weight:      shipper.KilogramsToGrams(req.Weight),
		Length:      req.Length,
		Breadth:     req.Width,
		Height:      req.Height,
	}
}

func shipmentRequest(data *shipper.ShipmentData) *ShipmentRequest {
	pkg := data.Package
	req := &ShipmentRequest{
		OrderNumber:       data.OrderID,
		PaymentType:       paymentType(pkg.COD()),
		OrderAmount:       pkg.DeclaredValue,
		CollectableAmount: pkg.CollectableAmount(),
		PackageWeight:     shipper.KilogramsToGrams(pkg.Weight),
		PackageLength:     pkg.Length,
		PackageBreadth:    pkg.Width,
		PackageHeight:     pkg.Height,
		RequestAutoPickup: "yes",
		CourierID:         data.ServiceCode,
		Consignee:         party(data.Consignee),
		Pickup:            party(data.Pickup),
	}
	req.Pickup.WarehouseName = firstNonEmpty(data.PickupLocation, data.Pickup.Name)
	for _, it := range data.Items {
		req.OrderItems = append(req.OrderItems, OrderItem{Name: it.Name, Qty: it.Quantity, Price: it.UnitPrice, SKU: it.SKU})
	}
	return req
}

func party(a shipper.Address) Party {
	return Party{
		Name:     a.Name,
		Address:  a.Line1,
		Address2: a.Line2,
		City:     a.City,
		State:    a.State,
		Pincode:  a.Pincode,
		Phone:    a.Phone,
	}
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

// chargeToQuote books the GST included in total_charges as tax.
func chargeToQuote(cc CourierCharge) shipper.RateQuote {
	charges := shipper.Charges{
		Base: float64(cc.FreightCharges),
		COD:  float64(cc.CODCharges),
	}
	total := float64(cc.TotalCharges)
	if total > charges.Total() {
		charges.Tax = total - charges.Total()
	}
	if total > 0 {
		charges = charges.Reconcile(total)
	}
	return shipper.NewRateQuote(carrierCode, cc.ID.String(), cc.Name, charges, 0)
}

func trackToResult(trackingNumber string, d *TrackData) *shipper.TrackingResult {
	events := make([]shipper.TrackingEvent, 0, len(d.History))
	for _, h := range d.History {
		ts, _ := wire.ParseTime(h.EventTime, timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       normalize(h.StatusCode, h.Message),
			VendorStatus: h.StatusCode,
			Location:     h.Location,
			Description:  h.Message,
		})
	}
	return wire.Tracking(trackingNumber, normalize(d.Status), events)
}

// normalize returns the first candidate the status table recognises.
func normalize(candidates ...string) shipper.CanonicalStatus {
	for _, s := range candidates {
		if st := status.Normalize(carrierCode, s); st != shipper.StatusUnknown {
			return st
		}
	}
	return shipper.StatusUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Ensure Client implements shipper.Shipper interface
var _ shipper.Shipper = (*Client)(nil)
