// Package delhivery provides integration with the Delhivery B2C API.
package delhivery

import (
	"context"
	"encoding/json"
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

const carrierCode = shipper.CodeDelhivery

// Delhivery timestamps come without a zone and with optional milliseconds.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// checkPincode is looked up by ValidateCredentials.
const checkPincode = "110001"

type service struct {
	mode string
	code string
	name string
}

var services = []service{
	{mode: ModeSurface, code: "surface", name: "Delhivery Surface"},
	{mode: ModeExpress, code: "express", name: "Delhivery Express"},
}

// Client is the Delhivery shipper client.
// It implements the shipper.Shipper interface and delegates
// API calls to the underlying APIClient.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a Delhivery client talking to cfg.BaseURL.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	api := NewHTTPAPIClient(env.NewClient(cfg, nil), cfg.Credential("api_token"))
	return &Client{
		config:    cfg,
		apiClient: api,
		logger:    env.Logger,
		tracer:    env.Tracer,
		now:       env.Now,
	}
}

// NewWithAPIClient creates a Delhivery client with a custom API client.
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

// GetRates quotes surface and express. One mode failing does not hide the other.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting Delhivery rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	var firstErr error
	for _, svc := range services {
		resp, err := c.apiClient.Charges(ctx, chargesQuery(req, svc.mode))
		if err != nil {
			c.logger.Ctx(ctx).Warn("Delhivery charges failed", zap.String("mode", svc.mode), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(resp) == 0 {
			continue
		}
		days := c.transitDays(ctx, req, svc.mode)
		quotes = append(quotes, chargeToQuote(resp[0], svc, days).WithEstimatedDelivery(nil, c.now()))
	}

	if len(quotes) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: delhivery returned no charges", shipper.ErrRatesUnavailable)
	}
	return quotes, nil
}

// transitDays returns 0 when the estimate is unavailable; a quote without
// a day count is still a valid quote.
func (c *Client) transitDays(ctx context.Context, req *shipper.ShipmentRequest, mode string) int {
	resp, err := c.apiClient.ExpectedTAT(ctx, req.OriginPincode, req.DestinationPincode, mode)
	if err != nil {
		c.logger.Ctx(ctx).Debug("Delhivery TAT unavailable", zap.String("mode", mode), zap.Error(err))
		return 0
	}
	if !resp.Success {
		return 0
	}
	return resp.Data.TAT
}

// CreateShipment manifests a single consignment.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating Delhivery shipment",
		zap.String("order_id", data.OrderID),
		zap.String("pickup_location", data.PickupLocation),
	)

	resp, err := c.apiClient.CreateOrder(ctx, manifestRequest(data))
	if err != nil {
		c.logger.Ctx(ctx).Error("Delhivery API error", zap.Error(err))
		return nil, err
	}
	return manifestToResult(resp)
}

// TrackShipment returns the scan history of a waybill.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Track(ctx, trackingNumber)
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Delhivery API error", zap.Error(err))
		return nil, err
	}
	return trackToResult(trackingNumber, resp), nil
}

// CancelShipment cancels a waybill that has not been picked up.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling Delhivery shipment", zap.String("waybill", trackingNumber))

	resp, err := c.apiClient.Cancel(ctx, trackingNumber)
	if err != nil {
		return false, err
	}
	if !resp.Status {
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", resp.Remark).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return true, nil
}

// CheckServiceability requires pickup at the origin and the payment mode at the destination.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CheckServiceability")
	defer func() { wire.EndSpan(span, err) }()

	from, err := c.apiClient.Pincode(ctx, origin)
	if err != nil {
		return false, err
	}
	to, err := c.apiClient.Pincode(ctx, destination)
	if err != nil {
		return false, err
	}
	return serviceable(from, to, mode), nil
}

// SchedulePickup raises a pickup request for the registered warehouse.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (result *shipper.PickupResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "SchedulePickup")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Scheduling Delhivery pickup",
		zap.String("pickup_location", req.PickupLocation),
		zap.Int("package_count", req.PackageCount),
	)

	resp, err := c.apiClient.CreatePickup(ctx, pickupRequest(req))
	if err != nil {
		return nil, err
	}
	if resp.PickupID == "" {
		return nil, wire.Rejected(carrierCode, firstNonEmpty(resp.Error, "pickup request not accepted"))
	}
	scheduled := req.Date
	if t, ok := wire.ParseTime(resp.PickupDate+" "+resp.PickupTime, "2006-01-02 15:04:05"); ok {
		scheduled = t
	}
	return &shipper.PickupResult{Reference: string(resp.PickupID), ScheduledFor: scheduled}, nil
}

// GetLabel returns the packing slip download link.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetLabel")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.PackingSlip(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	for _, p := range resp.Packages {
		if p.PDFDownloadLink != "" {
			return &shipper.Label{TrackingNumber: trackingNumber, Format: shipper.LabelPDF, URL: p.PDFDownloadLink}, nil
		}
	}
	return nil, fmt.Errorf("%w: no packing slip for %s", shipper.ErrLabelNotAvailable, trackingNumber)
}

// ValidateCredentials looks up a pincode, which requires a valid token.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.Pincode(ctx, checkPincode)
	return wire.CheckResult(carrierCode, err)
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func chargesQuery(req *shipper.ShipmentRequest, mode string) *ChargesQuery {
	q := &ChargesQuery{
		Mode:               mode,
		OriginPin:          req.OriginPincode,
		DestinationPin:     req.DestinationPincode,
		ChargeableWeightGm: shipper.KilogramsToGrams(chargeableWeight(req)),
		PaymentType:        PaymentPrepaid,
	}
	if req.COD() {
		q.PaymentType = PaymentCOD
		q.CODAmount = req.CollectableAmount()
	}
	return q
}

// chargeableWeight is the greater of actual and volumetric weight (divisor 5000).
func chargeableWeight(req *shipper.ShipmentRequest) float64 {
	if v := req.VolumetricWeight(5000); v > req.Weight {
		return v
	}
	return req.Weight
}

func manifestRequest(data *shipper.ShipmentData) *ManifestRequest {
	pkg := data.Package
	s := ManifestShipment{
		Name:          data.Consignee.Name,
		Address:       joinAddress(data.Consignee),
		Pin:           data.Consignee.Pincode,
		City:          data.Consignee.City,
		State:         data.Consignee.State,
		Country:       firstNonEmpty(data.Consignee.Country, "India"),
		Phone:         data.Consignee.Phone,
		Order:         data.OrderID,
		PaymentMode:   "Prepaid",
		TotalAmount:   pkg.DeclaredValue,
		ProductsDesc:  data.Description(),
		Quantity:      fmt.Sprint(data.PieceCount()),
		Weight:        shipper.KilogramsToGrams(pkg.Weight),
		Length:        pkg.Length,
		Width:         pkg.Width,
		Height:        pkg.Height,
		ShippingMode:  shippingMode(data.ServiceCode),
		SellerInvoice: data.InvoiceNumber,
		ReturnName:    data.Pickup.Name,
		ReturnAddress: joinAddress(data.Pickup),
		ReturnPin:     data.Pickup.Pincode,
		ReturnCity:    data.Pickup.City,
		ReturnState:   data.Pickup.State,
		ReturnPhone:   data.Pickup.Phone,
		ReturnCountry: firstNonEmpty(data.Pickup.Country, "India"),
	}
	if pkg.COD() {
		s.PaymentMode = "COD"
		s.CODAmount = pkg.CollectableAmount()
	}
	return &ManifestRequest{
		Shipments:      []ManifestShipment{s},
		PickupLocation: PickupLocation{Name: firstNonEmpty(data.PickupLocation, data.Pickup.Name)},
	}
}

func shippingMode(serviceCode string) string {
	if strings.EqualFold(serviceCode, "express") {
		return "Express"
	}
	return "Surface"
}

func pickupRequest(req *shipper.PickupRequest) *PickupRequest {
	count := req.PackageCount
	if count <= 0 {
		count = len(req.TrackingNumbers)
	}
	return &PickupRequest{
		PickupLocation:       req.PickupLocation,
		PickupDate:           req.Date.In(wire.IST).Format("2006-01-02"),
		PickupTime:           req.Date.In(wire.IST).Format("15:04:05"),
		ExpectedPackageCount: count,
	}
}

func joinAddress(a shipper.Address) string {
	return strings.TrimSpace(strings.Join([]string{a.Line1, a.Line2}, ", "))
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

// chargeToQuote maps a charge breakdown. The vendor's total_amount is
// authoritative; surcharges not itemised separately land in Other.
func chargeToQuote(ch ChargeResponse, svc service, days int) shipper.RateQuote {
	charges := shipper.Charges{
		Base:          ch.ChargeDL,
		FuelSurcharge: ch.ChargeFSC,
		Tax:           ch.TaxData.Total(),
		COD:           ch.ChargeCOD,
		Other:         ch.ChargeDPH + ch.ChargeAWB + ch.ChargeRTO,
	}
	if ch.TotalAmount > 0 {
		charges = charges.Reconcile(ch.TotalAmount)
	}
	return shipper.NewRateQuote(carrierCode, svc.code, svc.name, charges, days)
}

func manifestToResult(resp *ManifestResponse) (*shipper.ShipmentResult, error) {
	for _, p := range resp.Packages {
		if p.Waybill != "" && !strings.EqualFold(p.Status, "Fail") {
			return &shipper.ShipmentResult{TrackingNumber: p.Waybill, CarrierReference: p.RefNum}, nil
		}
	}
	msg := remarks(resp)
	return nil, shipper.NewShipperError(carrierCode, "MANIFEST_FAILED", msg).WithCause(shipper.ErrCreationFailed)
}

// remarks collects vendor messages from rmk (string or list) and package remarks.
func remarks(resp *ManifestResponse) string {
	var parts []string
	var s string
	var list []string
	if json.Unmarshal(resp.Remarks, &s) == nil && s != "" {
		parts = append(parts, s)
	} else if json.Unmarshal(resp.Remarks, &list) == nil {
		parts = append(parts, list...)
	}
	for _, p := range resp.Packages {
		parts = append(parts, p.Remarks...)
	}
	if len(parts) == 0 {
		return "manifest rejected"
	}
	return strings.Join(parts, "; ")
}

func trackToResult(trackingNumber string, resp *TrackResponse) *shipper.TrackingResult {
	if len(resp.ShipmentData) == 0 {
		return shipper.UnknownTracking(trackingNumber)
	}
	s := resp.ShipmentData[0].Shipment

	events := make([]shipper.TrackingEvent, 0, len(s.Scans))
	for _, scan := range s.Scans {
		d := scan.ScanDetail
		ts, _ := wire.ParseTime(d.ScanDateTime, timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       status.Normalize(carrierCode, status.Qualify(d.ScanType, d.Scan)),
			VendorStatus: d.Scan,
			Location:     d.ScannedLocation,
			Description:  d.Instructions,
		})
	}
	current := status.Normalize(carrierCode, status.Qualify(s.Status.StatusType, s.Status.Status))
	return wire.Tracking(trackingNumber, current, events)
}

func serviceable(from, to *PincodeResponse, mode shipper.PaymentMode) bool {
	origin, ok := firstPostalCode(from)
	if !ok || !yes(origin.Pickup) || embargoed(origin) {
		return false
	}
	dest, ok := firstPostalCode(to)
	if !ok || embargoed(dest) {
		return false
	}
	if mode == shipper.PaymentCOD {
		return yes(dest.COD)
	}
	return yes(dest.PrePaid)
}

func firstPostalCode(r *PincodeResponse) (PostalCode, bool) {
	if r == nil || len(r.DeliveryCodes) == 0 {
		return PostalCode{}, false
	}
	return r.DeliveryCodes[0].PostalCode, true
}

func embargoed(p PostalCode) bool {
	return strings.EqualFold(strings.TrimSpace(p.Remarks), "embargo")
}

func yes(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "Y")
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
