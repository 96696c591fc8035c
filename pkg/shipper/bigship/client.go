// Package bigship provides integration with the BigShip seller API.
package bigship

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
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

const carrierCode = shipper.CodeBigShip

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	time.RFC3339,
}

const (
	categoryB2C    = "b2c"
	sampleWeightKg = 0.5
)

var orderIDPattern = regexp.MustCompile(`\d+`)

// Client is the BigShip shipper client.
type Client struct {
	config    shipper.CarrierConfig
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// New creates a BigShip client. The cached token lifetime is capped by
// cfg.TokenTTL, which the catalog keeps well below the declared 12 hours.
func New(cfg shipper.CarrierConfig, env wire.Env) *Client {
	env = env.WithDefaults()
	creds := Credentials{
		Username:  cfg.Credential("username"),
		Password:  cfg.Credential("password"),
		AccessKey: cfg.Credential("access_key"),
	}
	session := wire.Session{
		Tokens: env.Tokens,
		Scope:  authcache.ScopeKey(carrierCode, cfg.Mode, creds.Username),
		Policy: wire.TokenPolicy(cfg, tokenExpiry, tokenMargin),
	}
	return &Client{
		config:    cfg,
		apiClient: NewHTTPAPIClient(env.NewClient(cfg, nil), session, creds),
		logger:    env.Logger,
		tracer:    env.Tracer,
		now:       env.Now,
	}
}

// NewWithAPIClient creates a BigShip client with a custom API client.
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

// GetRates returns one quote per courier BigShip offers.
func (c *Client) GetRates(ctx context.Context, req *shipper.ShipmentRequest) (quotes []shipper.RateQuote, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetRates")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Getting BigShip rates",
		zap.String("origin", req.OriginPincode),
		zap.String("destination", req.DestinationPincode),
		zap.Float64("weight_kg", req.Weight),
	)

	resp, err := c.apiClient.Calculate(ctx, calculatorRequest(req))
	if err != nil {
		c.logger.Ctx(ctx).Error("BigShip API error", zap.Error(err))
		return nil, err
	}
	for _, r := range resp.Data {
		quotes = append(quotes, rateToQuote(r).WithEstimatedDelivery(nil, c.now()))
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: bigship returned no couriers", shipper.ErrRatesUnavailable)
	}
	return quotes, nil
}

// CreateShipment adds the order, manifests it with the chosen courier and
// reads back the AWB. PickupLocation must hold the BigShip warehouse id.
func (c *Client) CreateShipment(ctx context.Context, data *shipper.ShipmentData) (result *shipper.ShipmentResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CreateShipment")
	defer func() { wire.EndSpan(span, err) }()

	order, err := orderRequest(data, c.now())
	if err != nil {
		return nil, err
	}

	c.logger.Ctx(ctx).Info("Creating BigShip order",
		zap.String("order_id", data.OrderID),
		zap.Int64("warehouse_id", order.WarehouseDetail.PickupLocationID),
	)

	added, err := c.apiClient.AddOrder(ctx, order)
	if err != nil {
		return nil, creationFailed(err)
	}
	systemOrderID := orderIDPattern.FindString(added.Data)
	if systemOrderID == "" {
		return nil, shipper.NewShipperError(carrierCode, "ORDER_FAILED", "no system order id in response").
			WithCause(shipper.ErrCreationFailed)
	}

	courierID, _ := strconv.ParseInt(data.ServiceCode, 10, 64)
	if _, err := c.apiClient.Manifest(ctx, &ManifestRequest{SystemOrderID: systemOrderID, CourierID: courierID}); err != nil {
		c.logger.Ctx(ctx).Error("BigShip manifest failed", zap.String("system_order_id", systemOrderID), zap.Error(err))
		return nil, creationFailed(err)
	}

	awb, err := c.apiClient.ShipmentData(ctx, ShipmentDataAWB, systemOrderID)
	if err != nil {
		return nil, err
	}
	if awb.Data.MasterAWB == "" {
		return nil, shipper.NewShipperError(carrierCode, "AWB_NOT_ASSIGNED", "manifested order has no awb").
			WithCause(shipper.ErrCreationFailed)
	}
	return &shipper.ShipmentResult{TrackingNumber: awb.Data.MasterAWB, CarrierReference: systemOrderID}, nil
}

// TrackShipment returns the scan history of an AWB.
func (c *Client) TrackShipment(ctx context.Context, trackingNumber string) (result *shipper.TrackingResult, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "TrackShipment")
	defer func() { wire.EndSpan(span, err) }()

	resp, err := c.apiClient.Track(ctx, trackingNumber)
	if errors.Is(err, shipper.ErrNotFound) {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("BigShip API error", zap.Error(err))
		return nil, err
	}
	if !resp.Success {
		return shipper.UnknownTracking(trackingNumber), nil
	}
	return trackToResult(trackingNumber, &resp.Data), nil
}

// CancelShipment cancels an AWB.
func (c *Client) CancelShipment(ctx context.Context, trackingNumber string) (ok bool, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "CancelShipment")
	defer func() { wire.EndSpan(span, err) }()

	c.logger.Ctx(ctx).Info("Cancelling BigShip shipment", zap.String("awb", trackingNumber))

	resp, err := c.apiClient.Cancel(ctx, []string{trackingNumber})
	if err != nil {
		return false, err
	}
	if !resp.Success {
		return false, shipper.NewShipperError(carrierCode, "CANCEL_REFUSED", resp.Message).
			WithCause(shipper.ErrCancellationNotAllowed)
	}
	return true, nil
}

// CheckServiceability quotes a sample parcel; BigShip has no pincode lookup.
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
	if mode == shipper.PaymentCOD {
		amount := sample.DeclaredValue
		sample.CODAmount = &amount
	}
	resp, err := c.apiClient.Calculate(ctx, calculatorRequest(sample))
	if errors.Is(err, shipper.ErrVendorRejected) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(resp.Data) > 0, nil
}

// SchedulePickup is not offered by BigShip; pickups follow manifesting.
func (c *Client) SchedulePickup(ctx context.Context, req *shipper.PickupRequest) (*shipper.PickupResult, error) {
	return nil, wire.Unsupported(carrierCode, "SchedulePickup")
}

// GetLabel downloads the label PDF of the order behind an AWB.
func (c *Client) GetLabel(ctx context.Context, trackingNumber string) (label *shipper.Label, err error) {
	ctx, span := wire.StartSpan(ctx, c.tracer, carrierCode, "GetLabel")
	defer func() { wire.EndSpan(span, err) }()

	tracked, err := c.apiClient.Track(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	systemOrderID := tracked.Data.OrderDetail.SystemOrderID.String()
	if !tracked.Success || systemOrderID == "" {
		return nil, fmt.Errorf("%w: awb %s", shipper.ErrNotFound, trackingNumber)
	}

	resp, err := c.apiClient.ShipmentData(ctx, ShipmentDataLabel, systemOrderID)
	if err != nil {
		return nil, err
	}
	if resp.Data.FileContent == "" {
		return nil, fmt.Errorf("%w: %s", shipper.ErrLabelNotAvailable, trackingNumber)
	}
	pdf, err := base64.StdEncoding.DecodeString(resp.Data.FileContent)
	if err != nil {
		return nil, shipper.NewShipperError(carrierCode, "INVALID_LABEL", "label is not valid base64").
			WithCause(shipper.ErrVendorRejected)
	}
	return &shipper.Label{TrackingNumber: trackingNumber, Format: shipper.LabelPDF, Data: pdf}, nil
}

// ValidateCredentials logs in and lists one warehouse.
func (c *Client) ValidateCredentials(ctx context.Context) shipper.CredentialCheck {
	_, err := c.apiClient.Warehouses(ctx)
	return wire.CheckResult(carrierCode, err)
}

func creationFailed(err error) error {
	if errors.Is(err, shipper.ErrVendorRejected) {
		return shipper.NewShipperError(carrierCode, "ORDER_FAILED", err.Error()).WithCause(shipper.ErrCreationFailed)
	}
	return err
}

// ============================================================================
// Conversion Helpers: Shipper -> API
// ============================================================================

func paymentType(cod bool) string {
	if cod {
		return "COD"
	}
	return "Prepaid"
}

func box(req *shipper.ShipmentRequest) BoxDetail {
	return BoxDetail{
		DeadWeight: req.Weight,
		Length:     req.Length,
		Width:      req.Width,
		Height:     req.Height,
		BoxCount:   1,
	}
}

func calculatorRequest(req *shipper.ShipmentRequest) *CalculatorRequest {
	return &CalculatorRequest{
		ShipmentCategory:   categoryB2C,
		PaymentType:        paymentType(req.COD()),
		PickupPincode:      req.OriginPincode,
		DestinationPincode: req.DestinationPincode,
		InvoiceAmount:      req.DeclaredValue,
		CollectableAmount:  req.CollectableAmount(),
		BoxDetails:         []BoxDetail{box(req)},
	}
}

func orderRequest(data *shipper.ShipmentData, now time.Time) (*OrderRequest, error) {
	warehouseID, err := strconv.ParseInt(strings.TrimSpace(data.PickupLocation), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bigship pickup_location must be a warehouse id, got %q", shipper.ErrInvalidRequest, data.PickupLocation)
	}

	pkg := data.Package
	b := box(&pkg)
	b.InvoiceAmount = pkg.DeclaredValue
	b.CollectableAmount = pkg.CollectableAmount()
	for _, it := range data.Items {
		b.ProductDetails = append(b.ProductDetails, ProductDetail{
			Category:      "Others",
			Name:          it.Name,
			Quantity:      it.Quantity,
			InvoiceAmount: it.UnitPrice,
		})
	}

	first, last := splitName(data.Consignee.Name)
	return &OrderRequest{
		ShipmentCategory: categoryB2C,
		WarehouseDetail:  WarehouseDetail{PickupLocationID: warehouseID, ReturnLocationID: warehouseID},
		ConsigneeDetail: ConsigneeDetail{
			FirstName:     first,
			LastName:      last,
			ContactNumber: data.Consignee.Phone,
			Email:         data.Consignee.Email,
			Address: ConsigneeAddress{
				Line1:   data.Consignee.Line1,
				Line2:   data.Consignee.Line2,
				Pincode: data.Consignee.Pincode,
			},
		},
		OrderDetail: OrderDetail{
			InvoiceDate:       now.In(wire.IST).Format("2006-01-02T15:04:05"),
			InvoiceID:         firstNonEmpty(data.InvoiceNumber, data.OrderID),
			PaymentType:       paymentType(pkg.COD()),
			CollectableAmount: pkg.CollectableAmount(),
			BoxDetails:        []BoxDetail{b},
		},
	}, nil
}

// splitName splits at the last space. BigShip rejects an empty last name,
// so a single-word name is repeated.
func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	i := strings.LastIndex(full, " ")
	if i < 0 {
		return full, full
	}
	return full[:i], full[i+1:]
}

// ============================================================================
// Conversion Helpers: API -> Shipper
// ============================================================================

func rateToQuote(r CourierRate) shipper.RateQuote {
	charges := shipper.Charges{
		Base:          float64(r.CourierCharge),
		FuelSurcharge: float64(r.FuelCharge),
		Tax:           float64(r.GSTCharge),
		COD:           float64(r.CODCharge),
		Other:         float64(r.OtherCharges),
	}
	if r.TotalCharges > 0 {
		charges = charges.Reconcile(float64(r.TotalCharges))
	}
	return shipper.NewRateQuote(carrierCode, strconv.FormatInt(r.CourierID, 10), r.CourierName, charges, int(r.TAT))
}

func trackToResult(trackingNumber string, d *TrackData) *shipper.TrackingResult {
	events := make([]shipper.TrackingEvent, 0, len(d.ScanHistories))
	for _, s := range d.ScanHistories {
		ts, _ := wire.ParseTime(s.ScanDatetime, timeLayouts...)
		events = append(events, shipper.TrackingEvent{
			Timestamp:    ts,
			Status:       status.Normalize(carrierCode, s.ScanStatus),
			VendorStatus: s.ScanStatus,
			Location:     s.ScanLocation,
			Description:  s.ScanRemarks,
		})
	}
	current := status.Normalize(carrierCode, d.OrderDetail.CurrentTrackingStatus)
	return wire.Tracking(trackingNumber, current, events)
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
