// Package shiprocket provides integration with the Shiprocket aggregator API.
//
// Shiprocket quotes one service per courier partner it resells, so a single
// rate call can return many quotes. Labels and pickups are keyed by the
// Shiprocket shipment id, which is resolved from the AWB when not supplied.
package shiprocket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

const carrierCode = shipper.CodeShiprocket

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"Jan 02, 2006",
	"2006-01-02",
	time.RFC3339,
}

// sampleWeightKg is the parcel weight used for serviceability-only lookups.
const sampleWeightKg = 0.5

// Client is the Shiprocket shipper client.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a Shiprocket client. The login token is shared through env.Tokens
// by every client built for the same account.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	email := cfg.Credential("email")
	session := wire.Session{
		Tokens: env.Tokens,
		Scope:  authcache.ScopeKey(carrierCode, cfg.Mode, email),
		Policy: wire.TokenPolicy(cfg, tokenExpiry, tokenMargin),
	}
	api := NewHTTPAPIClient(env.NewClient(cfg, nil), session, email, cfg.Credential("password"))
	return &Client{
		config:    cfg,
		apiClient: api,
		logger:    env.Logger,
		tracer:    env.Tracer,
		now:       env.Now,
	}
}

// NewWithAPIClient creates a Shiprocket client with a custom API client.
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

// GetRates returns one quote per courier partner offered on the lane.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting Shiprocket rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	resp, err := c.apiClient.Serviceability(ctx, serviceabilityQuery(req))
	if errors.Is(err, shipper.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s to %s", shipper.ErrNotServiceable, req.OriginPincode, req.DestinationPincode)
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}

	for _, cc := range usableCouriers(resp, req.COD()) {
		quotes = append(quotes, c.courierToQuote(cc))
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: %s", shipper.ErrRatesUnavailable, firstNonEmpty(resp.Message, "no courier partner available"))
	}
	return quotes, nil
}

// CreateShipment creates the order, then assigns an AWB. A numeric
// ServiceCode selects the courier partner; otherwise Shiprocket's
// recommended partner is used.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Creating Shiprocket order",
		zap.String("order_id", data.OrderID),
		zap.String("service_code", data.ServiceCode),
	)

	order, err := c.apiClient.CreateOrder(ctx, orderRequest(data, c.now()))
	if err != nil {
		c.logger.Ctx(ctx).Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	if order.ShipmentID == 0 {
		return nil, shipper.NewShipperError(carrierCode, "ORDER_FAILED", firstNonEmpty(order.Status, "order not created")).
			WithCause(shipper.ErrCreationFailed)
	}

	courierID, _ := strconv.ParseInt(data.ServiceCode, 10, 64)
	assigned, err := c.apiClient.AssignAWB(ctx, &AssignAWBRequest{ShipmentID: order.ShipmentID, CourierID: courierID})
	if err != nil {
		c.logger.Ctx(ctx).Error("Shiprocket AWB assignment failed",
			zap.Int64("shipment_id", order.ShipmentID), zap.Error(err))
		return nil, err
	}
	awb := assigned.Response.Data.AWBCode
	if assigned.AWBAssignStatus != 1 || awb == "" {
		return nil, shipper.NewShipperError(carrierCode, "AWB_NOT_ASSIGNED", firstNonEmpty(assigned.Message, "awb not assigned")).
			WithCause(shipper.ErrCreationFailed)
	}

	return &shipper.ShipmentResult{
		TrackingNumber:   awb,
		CarrierReference: strconv.FormatInt(order.ShipmentID, 10),
	}, nil
}

// TrackShipment returns the activity history of an AWB.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Track(ctx, trackingNumber)
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Shiprocket API error", zap.Error(err))
		return nil, err
	}
	return trackToResult(trackingNumber, &resp.TrackingData), nil
}

// CancelShipment cancels an AWB.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling Shiprocket shipment", zap.String("awb", trackingNumber))

	resp, err := c.apiClient.Cancel(ctx, []string{trackingNumber})
	if err != nil {
		return false, err
	}
	if resp.StatusCode >= 400 {
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", resp.Message).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return true, nil
}

// CheckServiceability reports whether any courier partner serves the lane.
func (c *Client) CheckServiceability(ctx context.Context, origin, destination string, mode shipper.PaymentMode) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CheckServiceability")
	defer func() { wire.EndSpan(span, err) }()

	cod := mode == shipper.PaymentCOD
	resp, err := c.apiClient.Serviceability(ctx, &ServiceabilityQuery{
		PickupPostcode:   origin,
		DeliveryPostcode: destination,
		WeightKg:         sampleWeightKg,
		COD:              cod,
	})
	if errors.Is(err, shipper.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(usableCouriers(resp, cod)) > 0, nil
}

// SchedulePickup schedules pickup for shipments given by shipment id in
// References, or by AWB in TrackingNumbers.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (result *shipper.PickupResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "SchedulePickup")
	defer func() { wire.EndSpan(span, err) }()

	ids, err := c.shipmentIDs(ctx, req.References, req.TrackingNumbers)
	if err != nil {
		return nil, err
	}

	c.logger.Ctx(ctx).Info("Scheduling Shiprocket pickup", zap.Int("shipments", len(ids)))

	resp, err := c.apiClient.GeneratePickup(ctx, ids)
	if err != nil {
		return nil, err
	}
	if resp.PickupStatus != 1 {
		return nil, wire.Rejected(carrierCode, firstNonEmpty(resp.Message, "pickup not generated"))
	}
	scheduled := req.Date
	if t, ok := wire.ParseTime(resp.Response.PickupScheduledDate, timeLayouts...); ok {
		scheduled = t
	}
	return &shipper.PickupResult{
		Reference:    firstNonEmpty(resp.Response.PickupTokenNumber.String(), joinIDs(ids)),
		ScheduledFor: scheduled,
	}, nil
}

// GetLabel generates the label for the shipment behind an AWB.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetLabel")
	defer func() { wire.EndSpan(span, err) }()

	ids, err := c.shipmentIDs(ctx, nil, []string{trackingNumber})
	if err != nil {
		return nil, err
	}
	resp, err := c.apiClient.GenerateLabel(ctx, ids)
	if err != nil {
		return nil, err
	}
	if resp.LabelCreated != 1 || resp.LabelURL == "" {
		return nil, fmt.Errorf("%w: %s", shipper.ErrLabelNotAvailable, firstNonEmpty(resp.Response, trackingNumber))
	}
	return &shipper.Label{TrackingNumber: trackingNumber, Format: shipper.LabelPDF, URL: resp.LabelURL}, nil
}

// ValidateCredentials logs in and lists pickup locations.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.PickupLocations(ctx)
	return wire.CheckResult(carrierCode, err)
}

// shipmentIDs parses references, falling back to resolving AWBs through tracking.
func (c *Client) shipmentIDs(ctx context.Context, references, awbs []string) ([]int64, error) {
	ids := make([]int64, 0, len(references)+len(awbs))
	for _, ref := range references {
		id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: shipment id %q is not numeric", shipper.ErrInvalidRequest, ref)
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		return ids, nil
	}
	for _, awb := range awbs {
		resp, err := c.apiClient.Track(ctx, awb)
		if errors.Is(err, shipper.ErrNotFound) {
			return nil, fmt.Errorf("%w: awb %s", shipper.ErrNotFound, awb)
		}
		if err != nil {
			return nil, err
		}
		id := shipmentID(&resp.TrackingData)
		if id == 0 {
			return nil, fmt.Errorf("%w: no shipment for awb %s", shipper.ErrNotFound, awb)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no shipments given", shipper.ErrInvalidRequest)
	}
	return ids, nil
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func serviceabilityQuery(req *shipper.ShipmentRequest) *ServiceabilityQuery {
	return &ServiceabilityQuery{
		PickupPostcode:   req.OriginPincode,
		DeliveryPostcode: req.DestinationPincode,
		WeightKg:         req.Weight,
		Length:           req.Length,
		Breadth:          req.Width,
		Height:           req.Height,
		COD:              req.COD(),
		DeclaredValue:    req.DeclaredValue,
	}
}

func orderRequest(data *shipper.ShipmentData, now time.Time) *OrderRequest {
	first, last := splitName(data.Consignee.Name)
	pkg := data.Package
	req := &OrderRequest{
		OrderID:             data.OrderID,
		OrderDate:           now.In(wire.IST).Format("2006-01-02 15:04"),
		PickupLocation:      firstNonEmpty(data.PickupLocation, "Primary"),
		BillingCustomerName: first,
		BillingLastName:     last,
		BillingAddress:      data.Consignee.Line1,
		BillingAddress2:     data.Consignee.Line2,
		BillingCity:         data.Consignee.City,
		BillingPincode:      data.Consignee.Pincode,
		BillingState:        data.Consignee.State,
		BillingCountry:      firstNonEmpty(data.Consignee.Country, "India"),
		BillingEmail:        data.Consignee.Email,
		BillingPhone:        data.Consignee.Phone,
		ShippingIsBilling:   true,
		PaymentMethod:       "Prepaid",
		SubTotal:            pkg.DeclaredValue,
		Length:              pkg.Length,
		Breadth:             pkg.Width,
		Height:              pkg.Height,
		Weight:              pkg.Weight,
		InvoiceNumber:       data.InvoiceNumber,
	}
	if pkg.COD() {
		req.PaymentMethod = "COD"
		req.SubTotal = pkg.CollectableAmount()
	}
	for i, it := range data.Items {
		req.OrderItems = append(req.OrderItems, OrderItem{
			Name:         it.Name,
			SKU:          firstNonEmpty(it.SKU, fmt.Sprintf("%s-%d", data.OrderID, i+1)),
			Units:        it.Quantity,
			SellingPrice: it.UnitPrice,
		})
	}
	return req
}

// splitName splits a full name at the last space; Shiprocket requires a first name.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, ""
	}
	return full[:i], full[i+1:]
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

func usableCouriers(resp *ServiceabilityResponse, cod bool) []CourierCompany {
	var out []CourierCompany
	for _, cc := range resp.Data.AvailableCourierCompanies {
		if cc.Blocked != 0 {
			continue
		}
		if cod && cc.COD != 1 {
			continue
		}
		out = append(out, cc)
	}
	return out
}

// courierToQuote itemises a courier option. Rate is GST inclusive, so the
// difference between it and the itemised charges is booked as tax.
func (c *Client) courierToQuote(cc CourierCompany) shipper.RateQuote {
	charges := shipper.Charges{
		Base:  float64(cc.FreightCharge),
		COD:   float64(cc.CODCharges),
		Other: float64(cc.CoverageCharges + cc.OtherCharges),
	}
	rate := float64(cc.Rate)
	if rate > charges.Total() {
		charges.Tax = rate - charges.Total()
	}
	if rate > 0 {
		charges = charges.Reconcile(rate)
	}

	q := shipper.NewRateQuote(carrierCode, strconv.FormatInt(cc.CourierCompanyID, 10), cc.CourierName, charges, int(cc.EstimatedDeliveryDays))
	var etd *time.Time
	if t, ok := wire.ParseTime(cc.ETD, timeLayouts...); ok {
		etd = &t
	}
	return q.WithEstimatedDelivery(etd, c.now())
}

func trackToResult(trackingNumber string, td *TrackingData) *shipper.TrackingResult {
	if td.TrackStatus == 0 && len(td.ShipmentTrack) == 0 && len(td.ShipmentTrackActivities) == 0 {
		return shipper.UnknownTracking(trackingNumber)
	}

	events := make([]shipper.TrackingEvent, 0, len(td.ShipmentTrackActivities))
	for _, a := range td.ShipmentTrackActivities {
		ts, _ := wire.ParseTime(a.Date, timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       normalize(a.SRStatusLabel, a.SRStatus.String(), a.Activity),
			VendorStatus: firstNonEmpty(a.SRStatusLabel, a.Status, a.Activity),
			Location:     a.Location,
			Description:  a.Activity,
		})
	}

	var summary string
	if len(td.ShipmentTrack) > 0 {
		summary = td.ShipmentTrack[0].CurrentStatus
	}
	return wire.Tracking(trackingNumber, normalize(summary, td.ShipmentStatus.String()), events)
}

func shipmentID(td *TrackingData) int64 {
	for _, st := range td.ShipmentTrack {
		if st.ShipmentID != 0 {
			return st.ShipmentID
		}
	}
	return 0
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

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
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
