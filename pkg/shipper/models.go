package shipper

import (
	"math"
	"strings"
	"time"
)

// Code identifies a carrier. The set is closed and known at compile time.
type Code string

const (
	CodeDelhivery   Code = "delhivery"
	CodeShiprocket  Code = "shiprocket"
	CodeBigShip     Code = "bigship"
	CodeXpressbees  Code = "xpressbees"
	CodeEkart       Code = "ekart"
	CodeEcomExpress Code = "ecomexpress"
)

var knownCodes = []Code{
	CodeDelhivery,
	CodeShiprocket,
	CodeBigShip,
	CodeXpressbees,
	CodeEkart,
	CodeEcomExpress,
}

// KnownCodes returns every carrier code in catalog order.
func KnownCodes() []Code {
	out := make([]Code, len(knownCodes))
	copy(out, knownCodes)
	return out
}

// ParseCode matches s against the known carrier codes, ignoring case and surrounding space.
func ParseCode(s string) (Code, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range knownCodes {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Mode selects the vendor environment.
type Mode string

const (
	ModeTest       Mode = "test"
	ModeProduction Mode = "production"
)

// PaymentMode is how the consignee pays for the shipment.
type PaymentMode string

const (
	PaymentPrepaid PaymentMode = "prepaid"
	PaymentCOD     PaymentMode = "cod"
)

// CanonicalStatus is the carrier-independent shipment status.
type CanonicalStatus string

const (
	StatusCreated         CanonicalStatus = "created"
	StatusPickupScheduled CanonicalStatus = "pickup_scheduled"
	StatusPickedUp        CanonicalStatus = "picked_up"
	StatusInTransit       CanonicalStatus = "in_transit"
	StatusOutForDelivery  CanonicalStatus = "out_for_delivery"
	StatusDelivered       CanonicalStatus = "delivered"
	StatusRTOInTransit    CanonicalStatus = "rto_in_transit"
	StatusRTODelivered    CanonicalStatus = "rto_delivered"
	StatusCancelled       CanonicalStatus = "cancelled"
	StatusDeliveryFailed  CanonicalStatus = "delivery_failed"
	StatusLost            CanonicalStatus = "lost"
	StatusUnknown         CanonicalStatus = "unknown"
)

// CanonicalStatuses lists every member of the canonical status enum.
func CanonicalStatuses() []CanonicalStatus {
	return []CanonicalStatus{
		StatusCreated, StatusPickupScheduled, StatusPickedUp, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusRTOInTransit, StatusRTODelivered,
		StatusCancelled, StatusDeliveryFailed, StatusLost, StatusUnknown,
	}
}

// Valid reports whether s is a member of the enum.
func (s CanonicalStatus) Valid() bool {
	for _, c := range CanonicalStatuses() {
		if s == c {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are expected.
func (s CanonicalStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusRTODelivered, StatusCancelled, StatusLost:
		return true
	}
	return false
}

// WeightUnit represents weight measurement unit.
type WeightUnit string

const (
	WeightKG   WeightUnit = "kg"
	WeightGram WeightUnit = "g"
)

// DimensionUnit represents dimension measurement unit.
type DimensionUnit string

const (
	DimensionCM DimensionUnit = "cm"
	DimensionIN DimensionUnit = "in"
)

// KilogramsToGrams converts a weight for vendors that bill in grams.
func KilogramsToGrams(kg float64) int {
	return int(math.Round(kg * 1000))
}

// ============================================================================
// Requests
// ============================================================================

// ShipmentRequest describes a parcel to be quoted.
// Weight is in kilograms and dimensions in centimetres.
type ShipmentRequest struct {
	OriginPincode      string      `json:"origin_pincode" validate:"required,len=6,numeric"`
	DestinationPincode string      `json:"destination_pincode" validate:"required,len=6,numeric"`
	Weight             float64     `json:"weight" validate:"gt=0"`
	Length             float64     `json:"length" validate:"gt=0"`
	Width              float64     `json:"width" validate:"gt=0"`
	Height             float64     `json:"height" validate:"gt=0"`
	PaymentMode        PaymentMode `json:"payment_mode" validate:"required,oneof=prepaid cod"`
	DeclaredValue      float64     `json:"declared_value" validate:"gte=0"`
	CODAmount          *float64    `json:"cod_amount,omitempty" validate:"required_if=PaymentMode cod"`
}

// COD reports whether the consignee pays on delivery.
func (r *ShipmentRequest) COD() bool {
	return r.PaymentMode == PaymentCOD
}

// CollectableAmount is the amount the carrier collects at the door.
func (r *ShipmentRequest) CollectableAmount() float64 {
	if !r.COD() || r.CODAmount == nil {
		return 0
	}
	return *r.CODAmount
}

// VolumetricWeight returns the dimensional weight in kilograms for the given divisor.
func (r *ShipmentRequest) VolumetricWeight(divisor float64) float64 {
	if divisor <= 0 {
		divisor = 5000
	}
	return r.Length * r.Width * r.Height / divisor
}

// Address is a pickup or delivery address.
type Address struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,len=6,numeric"`
	Country string `json:"country,omitempty"`
}

// Item is a line on the shipment's invoice.
type Item struct {
	Name      string  `json:"name" validate:"required"`
	SKU       string  `json:"sku,omitempty"`
	Quantity  int     `json:"quantity" validate:"gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// ShipmentData is everything a carrier needs to book a shipment.
type ShipmentData struct {
	OrderID        string          `json:"order_id" validate:"required"`
	ServiceCode    string          `json:"service_code,omitempty"`
	PickupLocation string          `json:"pickup_location,omitempty"`
	Pickup         Address         `json:"pickup"`
	Consignee      Address         `json:"consignee"`
	Package        ShipmentRequest `json:"package"`
	Items          []Item          `json:"items" validate:"dive"`
	InvoiceNumber  string          `json:"invoice_number,omitempty"`
}

// Description joins item names for vendors that take a single free-text field.
func (d *ShipmentData) Description() string {
	names := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		names = append(names, it.Name)
	}
	return strings.Join(names, ", ")
}

// PieceCount returns the total quantity across items, at least one.
func (d *ShipmentData) PieceCount() int {
	n := 0
	for _, it := range d.Items {
		n += it.Quantity
	}
	if n == 0 {
		return 1
	}
	return n
}

// PickupRequest asks a carrier to collect shipments from a registered location.
type PickupRequest struct {
	PickupLocation  string    `json:"pickup_location"`
	Date            time.Time `json:"date"`
	PackageCount    int       `json:"package_count"`
	TrackingNumbers []string  `json:"tracking_numbers,omitempty"`
	// References are carrier-side shipment ids, for vendors that schedule by those.
	References []string `json:"references,omitempty"`
}

// ============================================================================
// Results
// ============================================================================

// Charges is the itemised cost of a rate quote.
type Charges struct {
	Base          float64 `json:"base"`
	FuelSurcharge float64 `json:"fuel_surcharge"`
	Tax           float64 `json:"tax"`
	COD           float64 `json:"cod"`
	Other         float64 `json:"other"`
}

// Total sums the components, rounded to paise.
func (c Charges) Total() float64 {
	return roundMoney(c.Base + c.FuelSurcharge + c.Tax + c.COD + c.Other)
}

// Reconcile adjusts the breakdown so it sums to a vendor-reported total.
// A surplus is booked into Other. A shortfall is a vendor discount: it is
// taken off Other, then Base, then FuelSurcharge, COD and Tax, never
// driving a component below zero. Negative totals are treated as zero.
func (c Charges) Reconcile(total float64) Charges {
	diff := roundMoney(math.Max(total, 0) - c.Total())
	if math.Abs(diff) < 0.01 {
		return c
	}
	if diff > 0 {
		c.Other = roundMoney(c.Other + diff)
		return c
	}
	shortfall := -diff
	for _, part := range []*float64{&c.Other, &c.Base, &c.FuelSurcharge, &c.COD, &c.Tax} {
		take := math.Min(*part, shortfall)
		if take <= 0 {
			continue
		}
		*part = roundMoney(*part - take)
		shortfall = roundMoney(shortfall - take)
		if shortfall <= 0 {
			break
		}
	}
	return c
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RateQuote is one carrier service offer.
type RateQuote struct {
	Carrier           Code       `json:"carrier"`
	ServiceCode       string     `json:"service_code"`
	ServiceName       string     `json:"service_name"`
	Charges           Charges    `json:"charges"`
	TotalCharge       float64    `json:"total_charge"`
	Currency          string     `json:"currency"`
	DeliveryDays      int        `json:"delivery_days"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// NewRateQuote builds a quote whose total is derived from its charges.
// A zero deliveryDays means the vendor gave no estimate.
func NewRateQuote(carrier Code, serviceCode, serviceName string, charges Charges, deliveryDays int) RateQuote {
	if deliveryDays < 0 {
		deliveryDays = 0
	}
	return RateQuote{
		Carrier:      carrier,
		ServiceCode:  serviceCode,
		ServiceName:  serviceName,
		Charges:      charges,
		TotalCharge:  charges.Total(),
		Currency:     "INR",
		DeliveryDays: deliveryDays,
	}
}

// WithEstimatedDelivery sets the delivery date, deriving it from the day count when t is nil.
func (q RateQuote) WithEstimatedDelivery(t *time.Time, now time.Time) RateQuote {
	if t == nil && q.DeliveryDays > 0 {
		d := now.AddDate(0, 0, q.DeliveryDays)
		t = &d
	}
	q.EstimatedDelivery = t
	return q
}

// ShipmentResult is returned by a successful booking.
type ShipmentResult struct {
	TrackingNumber   string     `json:"tracking_number"`
	CarrierReference string     `json:"carrier_reference,omitempty"`
	LabelURL         string     `json:"label_url,omitempty"`
	PickupDate       *time.Time `json:"pickup_date,omitempty"`
	ExpectedDelivery *time.Time `json:"expected_delivery,omitempty"`
}

// TrackingEvent is one scan in a shipment's history.
type TrackingEvent struct {
	Timestamp    time.Time       `json:"timestamp"`
	Status       CanonicalStatus `json:"status"`
	VendorStatus string          `json:"vendor_status"`
	Location     string          `json:"location,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// TrackingResult is the current status plus chronologically ordered events.
type TrackingResult struct {
	TrackingNumber string          `json:"tracking_number"`
	Status         CanonicalStatus `json:"status"`
	Events         []TrackingEvent `json:"events"`
}

// UnknownTracking is the result for a tracking number the carrier does not know.
func UnknownTracking(trackingNumber string) *TrackingResult {
	return &TrackingResult{
		TrackingNumber: trackingNumber,
		Status:         StatusUnknown,
		Events:         []TrackingEvent{},
	}
}

// PickupResult confirms a scheduled pickup.
type PickupResult struct {
	Reference    string    `json:"reference"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// LabelFormat represents the label document format.
type LabelFormat string

const (
	LabelPDF LabelFormat = "pdf"
	LabelPNG LabelFormat = "png"
	LabelZPL LabelFormat = "zpl"
)

// Label references a printable shipping label, by URL or inline content.
type Label struct {
	TrackingNumber string      `json:"tracking_number"`
	Format         LabelFormat `json:"format"`
	URL            string      `json:"url,omitempty"`
	Data           []byte      `json:"data,omitempty"`
}

// CheckFailure classifies why a credential check did not pass.
type CheckFailure string

const (
	CheckOK                   CheckFailure = ""
	CheckMissingConfiguration CheckFailure = "missing_configuration"
	CheckBadCredentials       CheckFailure = "bad_credentials"
	CheckUnreachable          CheckFailure = "unreachable"
	CheckUnexpected           CheckFailure = "unexpected"
)

// CredentialCheck is the outcome of ValidateCredentials.
type CredentialCheck struct {
	Carrier Code         `json:"carrier"`
	Success bool         `json:"success"`
	Failure CheckFailure `json:"failure,omitempty"`
	Detail  string       `json:"detail"`
}

// StatusUpdate is a normalized status change pushed by a carrier webhook.
type StatusUpdate struct {
	Carrier        Code            `json:"carrier"`
	TrackingNumber string          `json:"tracking_number"`
	Status         CanonicalStatus `json:"status"`
	VendorStatus   string          `json:"vendor_status"`
	Location       string          `json:"location,omitempty"`
	Description    string          `json:"description,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
