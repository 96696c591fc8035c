package shiprocket

import (
	"context"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the Shiprocket external API operations used by the adapter.
// Authentication is handled inside the implementation.
type APIClient interface {
	// Serviceability lists courier partners and their rates for a lane.
	Serviceability(ctx context.Context, q *ServiceabilityQuery) (*ServiceabilityResponse, error)

	// CreateOrder creates an ad-hoc order and its shipment.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// AssignAWB allocates an AWB on the shipment with the given courier.
	AssignAWB(ctx context.Context, req *AssignAWBRequest) (*AssignAWBResponse, error)

	// Track returns tracking data for an AWB.
	Track(ctx context.Context, awb string) (*TrackResponse, error)

	// Cancel cancels shipments by AWB.
	Cancel(ctx context.Context, awbs []string) (*CancelResponse, error)

	// GeneratePickup schedules pickup for shipments.
	GeneratePickup(ctx context.Context, shipmentIDs []int64) (*PickupResponse, error)

	// GenerateLabel renders labels for shipments.
	GenerateLabel(ctx context.Context, shipmentIDs []int64) (*LabelResponse, error)

	// PickupLocations lists the seller's registered pickup addresses.
	PickupLocations(ctx context.Context) (*PickupLocationsResponse, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// LoginRequest is the body of POST /v1/external/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /v1/external/auth/login.
type LoginResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Token   string `json:"token"`
	Message string `json:"message"`
}

// ServiceabilityQuery is the query of GET /v1/external/courier/serviceability/.
type ServiceabilityQuery struct {
	PickupPostcode   string
	DeliveryPostcode string
	WeightKg         float64
	Length           float64
	Breadth          float64
	Height           float64
	COD              bool
	DeclaredValue    float64
}

// ServiceabilityResponse is returned by GET /v1/external/courier/serviceability/.
type ServiceabilityResponse struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Data    ServiceabilityData `json:"data"`
}

// ServiceabilityData holds the courier options for a lane.
type ServiceabilityData struct {
	AvailableCourierCompanies []CourierCompany `json:"available_courier_companies"`
	RecommendedCourierID      int64            `json:"recommended_courier_company_id"`
}

// CourierCompany is one courier option. Rate is the GST-inclusive total.
type CourierCompany struct {
	CourierCompanyID      int64          `json:"courier_company_id"`
	CourierName           string         `json:"courier_name"`
	Rate                  wire.FlexFloat `json:"rate"`
	FreightCharge         wire.FlexFloat `json:"freight_charge"`
	CODCharges            wire.FlexFloat `json:"cod_charges"`
	CoverageCharges       wire.FlexFloat `json:"coverage_charges"`
	OtherCharges          wire.FlexFloat `json:"other_charges"`
	EstimatedDeliveryDays wire.FlexInt   `json:"estimated_delivery_days"`
	ETD                   string         `json:"etd"`
	COD                   int            `json:"cod"`
	Blocked               int            `json:"blocked"`
}

// OrderRequest is the body of POST /v1/external/orders/create/adhoc.
type OrderRequest struct {
	OrderID             string      `json:"order_id"`
	OrderDate           string      `json:"order_date"`
	PickupLocation      string      `json:"pickup_location"`
	BillingCustomerName string      `json:"billing_customer_name"`
	BillingLastName     string      `json:"billing_last_name"`
	BillingAddress      string      `json:"billing_address"`
	BillingAddress2     string      `json:"billing_address_2,omitempty"`
	BillingCity         string      `json:"billing_city"`
	BillingPincode      string      `json:"billing_pincode"`
	BillingState        string      `json:"billing_state"`
	BillingCountry      string      `json:"billing_country"`
	BillingEmail        string      `json:"billing_email"`
	BillingPhone        string      `json:"billing_phone"`
	ShippingIsBilling   bool        `json:"shipping_is_billing"`
	OrderItems          []OrderItem `json:"order_items"`
	PaymentMethod       string      `json:"payment_method"`
	SubTotal            float64     `json:"sub_total"`
	Length              float64     `json:"length"`
	Breadth             float64     `json:"breadth"`
	Height              float64     `json:"height"`
	Weight              float64     `json:"weight"`
	InvoiceNumber       string      `json:"invoice_number,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

// OrderResponse is returned by POST /v1/external/orders/create/adhoc.
type OrderResponse struct {
	OrderID    int64  `json:"order_id"`
	ShipmentID int64  `json:"shipment_id"`
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	AWBCode    string `json:"awb_code"`
}

// AssignAWBRequest is the body of POST /v1/external/courier/assign/awb.
type AssignAWBRequest struct {
	ShipmentID int64 `json:"shipment_id"`
	CourierID  int64 `json:"courier_id,omitempty"`
}

// AssignAWBResponse is returned by POST /v1/external/courier/assign/awb.
type AssignAWBResponse struct {
	AWBAssignStatus int               `json:"awb_assign_status"`
	Message         string            `json:"message"`
	Response        AssignAWBEnvelope `json:"response"`
}

// AssignAWBEnvelope wraps the allocation result.
type AssignAWBEnvelope struct {
	Data AssignedAWB `json:"data"`
}

// AssignedAWB is the allocation result.
type AssignedAWB struct {
	AWBCode          string `json:"awb_code"`
	CourierName      string `json:"courier_name"`
	CourierCompanyID int64  `json:"courier_company_id"`
	ShipmentID       int64  `json:"shipment_id"`
	AWBCodeStatus    int    `json:"awb_code_status"`
}

// TrackResponse is returned by GET /v1/external/courier/track/awb/{awb}.
type TrackResponse struct {
	TrackingData TrackingData `json:"tracking_data"`
}

// TrackingData holds the summary and activity history of a shipment.
type TrackingData struct {
	TrackStatus             int                `json:"track_status"`
	ShipmentStatus          wire.FlexString    `json:"shipment_status"`
	ShipmentTrack           []ShipmentTrack    `json:"shipment_track"`
	ShipmentTrackActivities []TrackingActivity `json:"shipment_track_activities"`
	Error                   string             `json:"error"`
}

// ShipmentTrack is the summary row of a tracked shipment.
type ShipmentTrack struct {
	ShipmentID    int64  `json:"shipment_id"`
	AWBCode       string `json:"awb_code"`
	CurrentStatus string `json:"current_status"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	EDD           string `json:"edd"`
}

// TrackingActivity is one scan.
type TrackingActivity struct {
	Date          string          `json:"date"`
	Status        string          `json:"status"`
	Activity      string          `json:"activity"`
	Location      string          `json:"location"`
	SRStatus      wire.FlexString `json:"sr-status"`
	SRStatusLabel string          `json:"sr-status-label"`
}

// CancelRequest is the body of POST /v1/external/orders/cancel/shipment/awbs.
type CancelRequest struct {
	AWBs []string `json:"awbs"`
}

// CancelResponse is returned by POST /v1/external/orders/cancel/shipment/awbs.
type CancelResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// ShipmentIDsRequest is the body of the pickup and label endpoints.
type ShipmentIDsRequest struct {
	ShipmentID []int64 `json:"shipment_id"`
}

// PickupResponse is returned by POST /v1/external/courier/generate/pickup.
type PickupResponse struct {
	PickupStatus int            `json:"pickup_status"`
	Response     PickupSchedule `json:"response"`
	Message      string         `json:"message"`
}

// PickupSchedule is the scheduled slot of a pickup.
type PickupSchedule struct {
	PickupScheduledDate string          `json:"pickup_scheduled_date"`
	PickupTokenNumber   wire.FlexString `json:"pickup_token_number"`
	Status              int             `json:"status"`
	Data                string          `json:"data"`
}

// LabelResponse is returned by POST /v1/external/courier/generate/label.
type LabelResponse struct {
	LabelCreated int     `json:"label_created"`
	LabelURL     string  `json:"label_url"`
	Response     string  `json:"response"`
	NotCreated   []int64 `json:"not_created"`
}

// PickupLocationsResponse is returned by GET /v1/external/settings/company/pickup.
type PickupLocationsResponse struct {
	Data PickupLocations `json:"data"`
}

// PickupLocations lists registered pickup addresses.
type PickupLocations struct {
	ShippingAddress []PickupAddress `json:"shipping_address"`
}

// PickupAddress is one registered pickup address.
type PickupAddress struct {
	ID             int64  `json:"id"`
	PickupLocation string `json:"pickup_location"`
	PinCode        string `json:"pin_code"`
}

// WebhookPayload is the body of a Shiprocket tracking push.
type WebhookPayload struct {
	AWB              wire.FlexString    `json:"awb"`
	CurrentStatus    string             `json:"current_status"`
	CurrentStatusID  wire.FlexString    `json:"current_status_id"`
	ShipmentStatus   string             `json:"shipment_status"`
	ShipmentStatusID wire.FlexString    `json:"shipment_status_id"`
	CurrentTimestamp string             `json:"current_timestamp"`
	OrderID          string             `json:"order_id"`
	Scans            []TrackingActivity `json:"scans"`
}
