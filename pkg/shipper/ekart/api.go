package ekart

import (
	"context"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the Ekart Elite API operations used by the adapter.
type APIClient interface {
	// Rate returns the tariff components for a lane. Percentages are applied
	// by the caller.
	Rate(ctx context.Context, req *RateRequest) (*RateResponse, error)

	// Serviceability reports what Ekart offers at a pincode.
	Serviceability(ctx context.Context, pincode string) (*ServiceabilityResponse, error)

	// CreateShipment books shipments under client-generated tracking ids.
	CreateShipment(ctx context.Context, req *CreateRequest) (*CreateResponse, error)

	// Track returns histories keyed by tracking id. Unknown ids are absent.
	Track(ctx context.Context, trackingIDs []string) (TrackResponse, error)

	// CreateRTO requests return-to-origin, which is how Ekart cancels.
	CreateRTO(ctx context.Context, req *RTORequest) (*CreateResponse, error)

	// Labels returns the label PDF for tracking ids.
	Labels(ctx context.Context, trackingIDs []string) ([]byte, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// Payment modes.
const (
	PaymentCOD     = "COD"
	PaymentPrepaid = "PREPAID"
)

// Request outcomes.
const (
	RequestReceived = "REQUEST_RECEIVED"
	RequestRejected = "REQUEST_REJECTED"
)

// RateRequest is the body of POST /v2/shipments/rate. Weight is in kg.
type RateRequest struct {
	SourcePincode      string  `json:"source_pincode"`
	DestinationPincode string  `json:"destination_pincode"`
	Weight             float64 `json:"weight"`
	Length             float64 `json:"length"`
	Breadth            float64 `json:"breadth"`
	Height             float64 `json:"height"`
	PaymentMode        string  `json:"payment_mode"`
	InvoiceValue       float64 `json:"invoice_value"`
}

// RateResponse is Ekart's tariff for a lane.
type RateResponse struct {
	ServiceType      string         `json:"service_type"`
	ForwardCharge    wire.FlexFloat `json:"forward_charge"`
	FuelSurchargePct wire.FlexFloat `json:"fuel_surcharge_pct"`
	CODFeePct        wire.FlexFloat `json:"cod_fee_pct"`
	CODFeeMin        wire.FlexFloat `json:"cod_fee_min"`
	GSTPct           wire.FlexFloat `json:"gst_pct"`
	TATDays          wire.FlexInt   `json:"tat_days"`
}

// ServiceabilityResponse is returned by GET /v2/serviceability/{pincode}.
type ServiceabilityResponse struct {
	Pincode     string `json:"pincode"`
	Serviceable bool   `json:"serviceable"`
	COD         bool   `json:"cod"`
	Prepaid     bool   `json:"prepaid"`
	Pickup      bool   `json:"pickup"`
}

// Location is a pickup, return or delivery address.
type Location struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address_line1"`
	Line2   string `json:"address_line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// Item is one product in a shipment.
type Item struct {
	ProductTitle string  `json:"product_title"`
	SKU          string  `json:"sku,omitempty"`
	Quantity     int     `json:"quantity"`
	ItemValue    float64 `json:"item_value"`
}

// Shipment is one shipment of a create request.
type Shipment struct {
	TrackingID        string   `json:"tracking_id"`
	ClientReferenceID string   `json:"client_reference_id"`
	ServiceType       string   `json:"service_type,omitempty"`
	PaymentMode       string   `json:"payment_mode"`
	CODAmount         float64  `json:"amount_to_collect"`
	InvoiceValue      float64  `json:"invoice_value"`
	Weight            float64  `json:"weight"`
	Length            float64  `json:"length"`
	Breadth           float64  `json:"breadth"`
	Height            float64  `json:"height"`
	Source            Location `json:"source"`
	Destination       Location `json:"destination"`
	ReturnLocation    Location `json:"return_location"`
	Items             []Item   `json:"shipment_items"`
}

// CreateRequest is the body of PUT /v2/shipments/create.
type CreateRequest struct {
	ClientName string     `json:"client_name"`
	Shipments  []Shipment `json:"shipments"`
}

// CreateResponse reports the outcome per tracking id.
type CreateResponse struct {
	Response []RequestOutcome `json:"response"`
}

// RequestOutcome is the vendor verdict on one tracking id.
type RequestOutcome struct {
	TrackingID        string   `json:"tracking_id"`
	Status            string   `json:"status"`
	StatusInformation []string `json:"status_information"`
}

// RTORequest is the body of PUT /v2/shipments/rto/create.
type RTORequest struct {
	RequestDetails []RTODetail `json:"request_details"`
}

// RTODetail names one shipment to return.
type RTODetail struct {
	TrackingID string `json:"tracking_id"`
	Reason     string `json:"reason"`
}

// TrackRequest is the body of POST /v2/shipments/track.
type TrackRequest struct {
	TrackingIDs []string `json:"tracking_ids"`
}

// TrackResponse maps tracking ids to their histories.
type TrackResponse map[string]TrackedShipment

// TrackedShipment is the history of one tracking id.
type TrackedShipment struct {
	ExternalTrackingID string       `json:"external_tracking_id"`
	History            []TrackEvent `json:"history"`
}

// TrackEvent is one scan. Status is a snake_case event name.
type TrackEvent struct {
	Status            string `json:"status"`
	City              string `json:"city"`
	EventDate         string `json:"event_date"`
	PublicDescription string `json:"public_description"`
}

// LabelRequest is the body of POST /v2/shipments/labels.
type LabelRequest struct {
	IDs []string `json:"ids"`
}
