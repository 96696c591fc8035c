// Package ekart provides integration with the Ekart Elite API.
//
// Ekart publishes a tariff rather than a price: the forward charge comes with
// fuel, COD and GST percentages that are applied here. Tracking ids are
// generated by the merchant before booking.
package ekart

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/status"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierCode = shipper.CodeEkart

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

const (
	defaultServiceType = "SURFACE"
	cancelReason       = "Cancelled by merchant"
	// checkPincode is queried by ValidateCredentials.
	checkPincode = "110001"
)

// Client is the Ekart shipper client.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	merchant  string
	newID     func() uuid.UUID
	now       func() time.Time
}

// New creates an Ekart client authenticated with HTTP Basic and the merchant code.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	auth := wire.Basic{Username: cfg.Credential("key_id"), Password: cfg.Credential("key_secret")}
	merchant := cfg.Credential("merchant_code")
	return &Client{
		config:    cfg,
		apiClient: NewHTTPAPIClient(env.NewClient(cfg, auth), merchant),
		logger:    env.Logger,
		tracer:    env.Tracer,
		merchant:  merchant,
		newID:     uuid.New,
		now:       env.Now,
	}
}

// NewWithAPIClient creates an Ekart client with a custom API client.
func NewWithAPIClient(cfg shipper.CarrierConfig, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    wire.Tracer(tracer),
		merchant:  cfg.Credential("merchant_code"),
		newID:     uuid.New,
		now:       time.Now,
	}
}

// Code returns the carrier code.
func (c *Client) Code() shipper.Code {
	return carrierCode
}

// GetRates prices the lane from Ekart's tariff.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting Ekart rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	tariff, err := c.apiClient.Rate(ctx, rateRequest(req))
	if errors.Is(err, shipper.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s to %s", shipper.ErrNotServiceable, req.OriginPincode, req.DestinationPincode)
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Ekart API error", zap.Error(err))
		return nil, err
	}
	if tariff.ForwardCharge <= 0 {
		return nil, fmt.Errorf("%w: ekart returned no forward charge", shipper.ErrRatesUnavailable)
	}

	service := serviceType(tariff.ServiceType)
	q := shipper.NewRateQuote(carrierCode, service, serviceName(service), applyTariff(tariff, req), int(tariff.TATDays))
	return []shipper.RateQuote{q.WithEstimatedDelivery(nil, c.now())}, nil
}

// CreateShipment books the shipment under a freshly generated tracking id.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	id := trackingID(c.merchant, c.newID())
	c.logger.Ctx(ctx).Info("Creating Ekart shipment",
		zap.String("order_id", data.OrderID),
		zap.String("tracking_id", id),
	)

	resp, err := c.apiClient.CreateShipment(ctx, &CreateRequest{
		ClientName: c.merchant,
		Shipments:  []Shipment{shipment(id, data)},
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("Ekart API error", zap.Error(err))
		return nil, err
	}
	outcome, ok := findOutcome(resp, id)
	if !ok || outcome.Status != RequestReceived {
		return nil, shipper.NewShipperError(carrierCode, "BOOKING_REJECTED", outcomeMessage(outcome, "shipment not accepted")).
			WithCause(shipper.ErrCreationFailed)
	}
	return &shipper.ShipmentResult{TrackingNumber: id, CarrierReference: data.OrderID}, nil
}

// TrackShipment returns the history of a tracking id.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Track(ctx, []string{trackingNumber})
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Ekart API error", zap.Error(err))
		return nil, err
	}
	tracked, ok := resp[trackingNumber]
	if !ok {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	return trackToResult(trackingNumber, tracked), nil
}

// CancelShipment raises an RTO request; Ekart has no separate cancel.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling Ekart shipment", zap.String("tracking_id", trackingNumber))

	resp, err := c.apiClient.CreateRTO(ctx, &RTORequest{
		RequestDetails: []RTODetail{{TrackingID: trackingNumber, Reason: cancelReason}},
	})
	if err != nil {
		return false, err
	}
	outcome, found := findOutcome(resp, trackingNumber)
	if !found || outcome.Status != RequestReceived {
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", outcomeMessage(outcome, "rto not accepted")).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return true, nil
}

// CheckServiceability requires pickup at the origin and delivery in the
// requested payment mode at the destination.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CheckServiceability")
	defer func() { wire.EndSpan(span, err) }()

	src, err := c.pincode(ctx, origin)
	if err != nil || src == nil || !src.Pickup {
		return false, err
	}
	dst, err := c.pincode(ctx, destination)
	if err != nil || dst == nil || !dst.Serviceable {
		return false, err
	}
	if mode == shipper.PaymentCOD {
		return dst.COD, nil
	}
	return dst.Prepaid, nil
}

// pincode returns nil for a pincode Ekart does not know.
func (c *Client) pincode(ctx context.Context, pin string) (*ServiceabilityResponse, error) {
	resp, err := c.apiClient.Serviceability(ctx, pin)
	if errors.Is(err, shipper.ErrNotFound) {
		return nil, nil
	}
	return resp, err
}

// SchedulePickup is not offered; Ekart collects booked shipments automatically.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	return nil, wire.Unsupported(carrierCode, "SchedulePickup")
}

// GetLabel downloads the label PDF.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetLabel")
	defer func() { wire.EndSpan(span, err) }()

	pdf, err := c.apiClient.Labels(ctx, []string{trackingNumber})
	if errors.Is(err, shipper.ErrNotFound) || (err == nil && len(pdf) == 0) {
		return nil, fmt.Errorf("%w: %s", shipper.ErrLabelNotAvailable, trackingNumber)
	}
	if err != nil {
		return nil, err
	}
	return &shipper.Label{TrackingNumber: trackingNumber, Format: shipper.LabelPDF, Data: pdf}, nil
}

// ValidateCredentials performs an authenticated pincode lookup.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.Serviceability(ctx, checkPincode)
	return wire.CheckResult(carrierCode, err)
}

// trackingID derives a merchant-prefixed id with ten digits taken from id.
func trackingID(merchant string, id uuid.UUID) string {
	n := binary.BigEndian.Uint64(id[:8]) % 10_000_000_000
	return fmt.Sprintf("%s%010d", strings.ToUpper(merchant), n)
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func paymentMode(cod bool) string {
	if cod {
		return PaymentCOD
	}
	return PaymentPrepaid
}

func rateRequest(req *shipper.ShipmentRequest) *RateRequest {
	return &RateRequest{
		SourcePincode:      req.OriginPincode,
		DestinationPincode: req.DestinationPincode,
		Weight:             req.Weight,
		Length:             req.Length,
		Breadth:            req.Width,
		Height:             req.Height,
		PaymentMode:        paymentMode(req.COD()),
		InvoiceValue:       req.DeclaredValue,
	}
}

func shipment(id string, data *shipper.ShipmentData) Shipment {
	pkg := data.Package
	s := Shipment{
		TrackingID:        id,
		ClientReferenceID: data.OrderID,
		ServiceType:       data.ServiceCode,
		PaymentMode:       paymentMode(pkg.COD()),
		CODAmount:         pkg.CollectableAmount(),
		InvoiceValue:      pkg.DeclaredValue,
		Weight:            pkg.Weight,
		Length:            pkg.Length,
		Breadth:           pkg.Width,
		Height:            pkg.Height,
		Source:            location(data.Pickup),
		Destination:       location(data.Consignee),
		ReturnLocation:    location(data.Pickup),
	}
	for _, it := range data.Items {
		s.Items = append(s.Items, Item{ProductTitle: it.Name, SKU: it.SKU, Quantity: it.Quantity, ItemValue: it.UnitPrice})
	}
	return s
}

func location(a shipper.Address) Location {
	return Location{
		Name:    a.Name,
		Phone:   a.Phone,
		Address: a.Line1,
		Line2:   a.Line2,
		City:    a.City,
		State:   a.State,
		Pincode: a.Pincode,
	}
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

// applyTariff turns the tariff into charges. Fuel is a share of the forward
// charge, the COD fee a share of the collectable amount with a floor, and
// GST applies to everything before it.
func applyTariff(t *RateResponse, req *shipper.ShipmentRequest) shipper.Charges {
	base := float64(t.ForwardCharge)
	fuel := percent(base, float64(t.FuelSurchargePct))
	var cod float64
	if req.COD() {
		cod = math.Max(percent(req.CollectableAmount(), float64(t.CODFeePct)), float64(t.CODFeeMin))
	}
	return shipper.Charges{
		Base:          base,
		FuelSurcharge: fuel,
		COD:           cod,
		Tax:           percent(base+fuel+cod, float64(t.GSTPct)),
	}
}

func percent(amount, pct float64) float64 {
	return math.Round(amount*pct) / 100
}

func serviceType(s string) string {
	if s == "" {
		return defaultServiceType
	}
	return strings.ToUpper(s)
}

// serviceName turns SURFACE into "Ekart Surface".
func serviceName(service string) string {
	return "Ekart " + service[:1] + strings.ToLower(service[1:])
}

func findOutcome(resp *CreateResponse, trackingID string) (RequestOutcome, bool) {
	for _, o := range resp.Response {
		if o.TrackingID == trackingID {
			return o, true
		}
	}
	if len(resp.Response) == 1 && resp.Response[0].TrackingID == "" {
		return resp.Response[0], true
	}
	return RequestOutcome{}, false
}

func outcomeMessage(o RequestOutcome, fallback string) string {
	if len(o.StatusInformation) == 0 {
		return fallback
	}
	return strings.Join(o.StatusInformation, "; ")
}

func trackToResult(trackingNumber string, s TrackedShipment) *shipper.TrackingResult {
	events := make([]shipper.TrackingEvent, 0, len(s.History))
	for _, h := range s.History {
		ts, _ := wire.ParseTime(h.EventDate, timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       status.Normalize(carrierCode, h.Status),
			VendorStatus: h.Status,
			Location:     h.City,
			Description:  h.PublicDescription,
		})
	}
	return wire.Tracking(trackingNumber, shipper.StatusUnknown, events)
}

// Ensure Client implements shipper.Shipper interface
var _ shipper.Shipper = (*Client)(nil)
