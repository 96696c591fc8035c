package xpressbees

import (
	"context"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the Xpressbees shipping API operations used by the adapter.
type APIClient interface {
	// Serviceability lists couriers and charges for a lane. Weight is in grams.
	Serviceability(ctx context.Context, req *ServiceabilityRequest) (*ServiceabilityResponse, error)

	// CreateShipment books a forward shipment and allocates an AWB.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error)

	// Track returns the history of an AWB.
	Track(ctx context.Context, awb string) (*TrackResponse, error)

	// Cancel cancels an AWB.
	Cancel(ctx context.Context, awb string) (*Envelope, error)

	// Label returns the label link of an AWB.
	Label(ctx context.Context, awb string) (*LabelResponse, error)

	// Couriers lists the couriers enabled on the account.
	Couriers(ctx context.Context) (*CouriersResponse, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// Envelope is the common response wrapper; failures come back as status=false.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token in data.
type LoginResponse struct {
	Envelope
	Data string `json:"data"`
}

// ServiceabilityRequest is the body of POST /api/courier/serviceability.
type ServiceabilityRequest struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	PaymentType string  `json:"payment_type"`
	OrderAmount float64 `json:"order_amount"`
	Weight      int     `json:"weight"`
	Length      float64 `json:"length"`
	Breadth     float64 `json:"breadth"`
	Height      float64 `json:"height"`
}

// ServiceabilityResponse is returned by POST /api/courier/serviceability.
type ServiceabilityResponse struct {
	Envelope
	Data []CourierCharge `json:"data"`
}

// CourierCharge is one courier's quote. TotalCharges includes GST.
type CourierCharge struct {
	ID               wire.FlexString `json:"id"`
	Name             string          `json:"name"`
	FreightCharges   wire.FlexFloat  `json:"freight_charges"`
	CODCharges       wire.FlexFloat  `json:"cod_charges"`
	TotalCharges     wire.FlexFloat  `json:"total_charges"`
	ChargeableWeight wire.FlexInt    `json:"chargeable_weight"`
}

// Party is a pickup or consignee contact.
type Party struct {
	WarehouseName string `json:"warehouse_name,omitempty"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	Address2      string `json:"address_2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	Phone         string `json:"phone"`
}

// OrderItem is one invoice line.
type OrderItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
	SKU   string  `json:"sku,omitempty"`
}

// ShipmentRequest is the body of POST /api/shipments2.
type ShipmentRequest struct {
	OrderNumber       string      `json:"order_number"`
	PaymentType       string      `json:"payment_type"`
	OrderAmount       float64     `json:"order_amount"`
	CollectableAmount float64     `json:"collectable_amount"`
	PackageWeight     int         `json:"package_weight"`
	PackageLength     float64     `json:"package_length"`
	PackageBreadth    float64     `json:"package_breadth"`
	PackageHeight     float64     `json:"package_height"`
	RequestAutoPickup string      `json:"request_auto_pickup"`
	CourierID         string      `json:"courier_id,omitempty"`
	Consignee         Party       `json:"consignee"`
	Pickup            Party       `json:"pickup"`
	OrderItems        []OrderItem `json:"order_items"`
}

// ShipmentResponse is returned by POST /api/shipments2.
type ShipmentResponse struct {
	Envelope
	Data BookedShipment `json:"data"`
}

// BookedShipment is a booked shipment.
type BookedShipment struct {
	OrderID     wire.FlexString `json:"order_id"`
	ShipmentID  wire.FlexString `json:"shipment_id"`
	AWBNumber   string          `json:"awb_number"`
	CourierID   wire.FlexString `json:"courier_id"`
	CourierName string          `json:"courier_name"`
	Status      string          `json:"status"`
	Label       string          `json:"label"`
}

// TrackResponse is returned by GET /api/shipments2/track/{awb}.
type TrackResponse struct {
	Envelope
	Data TrackData `json:"data"`
}

// TrackData is the current status and history of an AWB.
type TrackData struct {
	AWBNumber string         `json:"awb_number"`
	Status    string         `json:"status"`
	History   []HistoryEntry `json:"history"`
}

// HistoryEntry is one scan. StatusCode is the short form (PP, IT, OFD, DL, RT-IT).
type HistoryEntry struct {
	StatusCode string `json:"status_code"`
	Location   string `json:"location"`
	EventTime  string `json:"event_time"`
	Message    string `json:"message"`
}

// CancelRequest is the body of POST /api/shipments2/cancel.
type CancelRequest struct {
	AWB string `json:"awb"`
}

// LabelResponse is returned by GET /api/shipments2/label/{awb}.
type LabelResponse struct {
	Envelope
	Data LabelData `json:"data"`
}

// LabelData holds the label link.
type LabelData struct {
	Label string `json:"label"`
}

// CouriersResponse is returned by GET /api/courier.
type CouriersResponse struct {
	Envelope
	Data []Courier `json:"data"`
}

// Courier is an enabled courier.
type Courier struct {
	ID   wire.FlexString `json:"id"`
	Name string          `json:"name"`
}

// WebhookPayload is a status push.
type WebhookPayload struct {
	AWBNumber  wire.FlexString `json:"awb_number"`
	Status     string          `json:"status"`
	StatusCode string          `json:"status_code"`
	EventTime  string          `json:"event_time"`
	Location   string          `json:"location"`
	Message    string          `json:"message"`
}
