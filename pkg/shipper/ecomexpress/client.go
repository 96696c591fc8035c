// Package ecomexpress provides integration with the Ecom Express API.
package ecomexpress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/status"
	"github.com/tournevent/courierhub/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierCode = shipper.CodeEcomExpress

// Tracking timestamps look like "04 Mar, 2024, 15:00".
var timeLayouts = []string{
	"02 Jan, 2006, 15:04",
	"02 Jan, 2006, 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

const (
	serviceCode = "STANDARD"
	serviceName = "Ecom Express Standard"
	// checkPincode is looked up by ValidateCredentials.
	checkPincode = "110001"
)

// Client is the Ecom Express shipper client.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates an Ecom Express client.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	api := NewHTTPAPIClient(env.NewClient(cfg, nil), cfg.Credential("username"), cfg.Credential("password"))
	return &Client{
		config:    cfg,
		apiClient: api,
		logger:    env.Logger,
		tracer:    env.Tracer,
	}
}

// NewWithAPIClient creates an Ecom Express client with a custom API client.
func NewWithAPIClient(cfg shipper.CarrierConfig, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    wire.Tracer(tracer),
	}
}

// Code returns the carrier code.
func (c *Client) Code() shipper.Code {
	return carrierCode
}

// GetRates returns the single Ecom Express service. No transit time is quoted.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting Ecom Express rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	res, err := c.apiClient.Rate(ctx, rateRequest(req))
	if err != nil {
		c.logger.Ctx(ctx).Error("Ecom Express API error", zap.Error(err))
		return nil, err
	}
	if !res.Success {
		msg := strings.Join(res.Errors, "; ")
		if strings.Contains(strings.ToLower(msg), "serviceable") {
			return nil, fmt.Errorf("%w: %s", shipper.ErrNotServiceable, msg)
		}
		return nil, fmt.Errorf("%w: %s", shipper.ErrRatesUnavailable, firstNonEmpty(msg, "rate not returned"))
	}
	return []shipper.RateQuote{shipper.NewRateQuote(carrierCode, serviceCode, serviceName, breakupToCharges(res.ChargesBreakup), 0)}, nil
}

// CreateShipment reserves an AWB, then manifests the shipment against it.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	product := productType(data.Package.COD())
	fetched, err := c.apiClient.FetchAWB(ctx, product, 1)
	if errors.Is(err, shipper.ErrVendorRejected) {
		return nil, shipper.NewShipperError(carrierCode, "AWB_NOT_ISSUED", err.Error()).WithCause(shipper.ErrCreationFailed)
	}
	if err != nil {
		return nil, err
	}
	if len(fetched.AWB) == 0 || fetched.AWB[0] == "" {
		return nil, shipper.NewShipperError(carrierCode, "AWB_NOT_ISSUED", "no awb in response").WithCause(shipper.ErrCreationFailed)
	}
	awb := fetched.AWB[0].String()

	c.logger.Ctx(ctx).Info("Manifesting Ecom Express shipment",
		zap.String("order_id", data.OrderID),
		zap.String("awb", awb),
	)

	resp, err := c.apiClient.Manifest(ctx, []ManifestShipment{manifestShipment(awb, product, data)})
	if err != nil {
		c.logger.Ctx(ctx).Error("Ecom Express API error", zap.Error(err))
		return nil, err
	}
	if len(resp.Shipments) == 0 || !resp.Shipments[0].Success {
		reason := "manifest not accepted"
		if len(resp.Shipments) > 0 {
			reason = firstNonEmpty(resp.Shipments[0].Reason, reason)
		}
		return nil, shipper.NewShipperError(carrierCode, "MANIFEST_FAILED", reason).WithCause(shipper.ErrCreationFailed)
	}
	return &shipper.ShipmentResult{TrackingNumber: awb, CarrierReference: fetched.ReferenceID.String()}, nil
}

// TrackShipment reads the XML tracking document.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	doc, err := c.apiClient.Track(ctx, []string{trackingNumber})
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Ecom Express API error", zap.Error(err))
		return nil, err
	}
	for _, obj := range doc.Objects {
		if obj.Field("awb_number") == trackingNumber {
			return trackToResult(trackingNumber, obj), nil
		}
	}
	return shipper.UnknownTracking(trackingNumber), nil
}

// CancelShipment cancels an AWB.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling Ecom Express shipment", zap.String("awb", trackingNumber))

	results, err := c.apiClient.Cancel(ctx, []string{trackingNumber})
	if err != nil {
		return false, err
	}
	for _, r := range results {
		if r.AWB.String() != trackingNumber && len(results) > 1 {
			continue
		}
		if r.Success {
			return true, nil
		}
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", firstNonEmpty(r.Reason, "cancellation refused")).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", "no result for awb").
		WithCause(shipper.ErrCancellationNotAllowed)
}

// CheckServiceability requires both pincodes to be active, and COD at the
// destination for COD shipments.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CheckServiceability")
	defer func() { wire.EndSpan(span, err) }()

	src, err := c.apiClient.Pincode(ctx, origin)
	if err != nil || src == nil || !src.Active {
		return false, err
	}
	dst, err := c.apiClient.Pincode(ctx, destination)
	if err != nil || dst == nil || !dst.Active {
		return false, err
	}
	return mode != shipper.PaymentCOD || dst.COD, nil
}

// SchedulePickup is not offered by Ecom Express.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	return nil, wire.Unsupported(carrierCode, "SchedulePickup")
}

// GetLabel is not offered by Ecom Express.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (*shipper.Label, error) {
	return nil, wire.Unsupported(carrierCode, "GetLabel")
}

// ValidateCredentials performs a pincode lookup with the configured credentials.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.Pincode(ctx, checkPincode)
	return wire.CheckResult(carrierCode, err)
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func productType(cod bool) string {
	if cod {
		return ProductCOD
	}
	return ProductPrepaid
}

// rateRequest sends the greater of dead and volumetric weight.
func rateRequest(req *shipper.ShipmentRequest) *RateRequest {
	weight := req.Weight
	if v := req.VolumetricWeight(5000); v > weight {
		weight = v
	}
	return &RateRequest{
		OriginPincode:      req.OriginPincode,
		DestinationPincode: req.DestinationPincode,
		ProductType:        productType(req.COD()),
		ChargeableWeight:   weight,
		CODAmount:          req.CollectableAmount(),
	}
}

func manifestShipment(awb, product string, data *shipper.ShipmentData) ManifestShipment {
	pkg := data.Package
	return ManifestShipment{
		AWBNumber:          awb,
		OrderNumber:        data.OrderID,
		Product:            product,
		Consignee:          data.Consignee.Name,
		ConsigneeAddress1:  data.Consignee.Line1,
		ConsigneeAddress2:  data.Consignee.Line2,
		DestinationCity:    data.Consignee.City,
		Pincode:            data.Consignee.Pincode,
		State:              data.Consignee.State,
		Mobile:             data.Consignee.Phone,
		ItemDescription:    data.Description(),
		Pieces:             data.PieceCount(),
		CollectableValue:   pkg.CollectableAmount(),
		DeclaredValue:      pkg.DeclaredValue,
		ActualWeight:       pkg.Weight,
		Length:             pkg.Length,
		Breadth:            pkg.Width,
		Height:             pkg.Height,
		PickupName:         firstNonEmpty(data.PickupLocation, data.Pickup.Name),
		PickupAddressLine1: data.Pickup.Line1,
		PickupPincode:      data.Pickup.Pincode,
		PickupMobile:       data.Pickup.Phone,
		ReturnName:         data.Pickup.Name,
		ReturnAddressLine1: data.Pickup.Line1,
		ReturnPincode:      data.Pickup.Pincode,
		ReturnMobile:       data.Pickup.Phone,
	}
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

func breakupToCharges(b ChargesBreakup) shipper.Charges {
	charges := shipper.Charges{
		Base:          float64(b.Freight),
		FuelSurcharge: float64(b.Fuel),
		COD:           float64(b.COD),
		Tax:           float64(b.GST),
	}
	if b.Total > 0 {
		charges = charges.Reconcile(float64(b.Total))
	}
	return charges
}

func trackToResult(trackingNumber string, obj XMLObject) *shipper.TrackingResult {
	scans := obj.Nested("scans")
	events := make([]shipper.TrackingEvent, 0, len(scans))
	for _, s := range scans {
		ts, _ := wire.ParseTime(s.Field("updated_on"), timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       status.Normalize(carrierCode, s.Field("status")),
			VendorStatus: s.Field("status"),
			Location:     s.Field("location_city"),
			Description:  s.Field("reason_code_description"),
		})
	}
	return wire.Tracking(trackingNumber, status.Normalize(carrierCode, obj.Field("status")), events)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure Client implements shipper.Shipper interface
var _ shipper.Shipper = (*Client)(nil)
