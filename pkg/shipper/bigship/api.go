package bigship

import (
	"context"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the BigShip seller API operations used by the adapter.
type APIClient interface {
	// Calculate quotes every courier available for a shipment.
	Calculate(ctx context.Context, req *CalculatorRequest) (*CalculatorResponse, error)

	// AddOrder creates a single B2C order.
	AddOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)

	// Manifest allocates a courier to an order.
	Manifest(ctx context.Context, req *ManifestRequest) (*Envelope, error)

	// ShipmentData fetches the AWB (kind 1) or label (kind 2) of an order.
	ShipmentData(ctx context.Context, kind int, systemOrderID string) (*ShipmentDataResponse, error)

	// Track returns the scan history of an AWB.
	Track(ctx context.Context, awb string) (*TrackResponse, error)

	// Cancel cancels AWBs.
	Cancel(ctx context.Context, awbs []string) (*Envelope, error)

	// Warehouses lists registered pickup warehouses.
	Warehouses(ctx context.Context) (*WarehouseResponse, error)
}

// ShipmentData kinds.
const (
	ShipmentDataAWB   = 1
	ShipmentDataLabel = 2
)

// ============================================================================
// API Request/Response Types
// ============================================================================

// Envelope is the common response wrapper. Failures arrive with HTTP 200
// and success=false.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginRequest is the body of POST /api/login/seller.
type LoginRequest struct {
	UserName  string `json:"user_name"`
	Password  string `json:"password"`
	AccessKey string `json:"access_key"`
}

// LoginResponse is returned by POST /api/login/seller.
type LoginResponse struct {
	Envelope
	Data LoginData `json:"data"`
}

// LoginData carries the bearer token.
type LoginData struct {
	Token string `json:"token"`
}

// BoxDetail is one box of a shipment, in kg and cm.
type BoxDetail struct {
	DeadWeight        float64         `json:"each_box_dead_weight"`
	Length            float64         `json:"each_box_length"`
	Width             float64         `json:"each_box_width"`
	Height            float64         `json:"each_box_height"`
	InvoiceAmount     float64         `json:"each_box_invoice_amount,omitempty"`
	CollectableAmount float64         `json:"each_box_collectable_amount,omitempty"`
	BoxCount          int             `json:"box_count"`
	ProductDetails    []ProductDetail `json:"product_details,omitempty"`
}

// ProductDetail is one product inside a box.
type ProductDetail struct {
	Category          string  `json:"product_category"`
	Name              string  `json:"product_name"`
	Quantity          int     `json:"product_quantity"`
	InvoiceAmount     float64 `json:"each_product_invoice_amount"`
	CollectableAmount float64 `json:"each_product_collectable_amount"`
}

// CalculatorRequest is the body of POST /api/calculator.
type CalculatorRequest struct {
	ShipmentCategory   string      `json:"shipment_category"`
	PaymentType        string      `json:"payment_type"`
	PickupPincode      string      `json:"pickup_pincode"`
	DestinationPincode string      `json:"destination_pincode"`
	InvoiceAmount      float64     `json:"shipment_invoice_amount"`
	CollectableAmount  float64     `json:"total_collectable_amount,omitempty"`
	BoxDetails         []BoxDetail `json:"box_details"`
}

// CalculatorResponse is returned by POST /api/calculator.
type CalculatorResponse struct {
	Envelope
	Data []CourierRate `json:"data"`
}

// CourierRate is one courier's quote.
type CourierRate struct {
	CourierID      int64          `json:"courier_id"`
	CourierName    string         `json:"courier_name"`
	CourierType    string         `json:"courier_type"`
	Zone           string         `json:"zone"`
	TAT            wire.FlexInt   `json:"tat"`
	BillableWeight wire.FlexFloat `json:"billable_weight"`
	CourierCharge  wire.FlexFloat `json:"courier_charge"`
	FuelCharge     wire.FlexFloat `json:"fuel_charge"`
	CODCharge      wire.FlexFloat `json:"cod_charge"`
	OtherCharges   wire.FlexFloat `json:"other_charges"`
	GSTCharge      wire.FlexFloat `json:"gst_charge"`
	TotalCharges   wire.FlexFloat `json:"total_shipping_charges"`
}

// OrderRequest is the body of POST /api/order/add/single.
type OrderRequest struct {
	ShipmentCategory string          `json:"shipment_category"`
	WarehouseDetail  WarehouseDetail `json:"warehouse_detail"`
	ConsigneeDetail  ConsigneeDetail `json:"consignee_detail"`
	OrderDetail      OrderDetail     `json:"order_detail"`
}

// WarehouseDetail names the pickup and return warehouses by id.
type WarehouseDetail struct {
	PickupLocationID int64 `json:"pickup_location_id"`
	ReturnLocationID int64 `json:"return_location_id"`
}

// ConsigneeDetail is the delivery contact.
type ConsigneeDetail struct {
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	ContactNumber string           `json:"contact_number_primary"`
	Email         string           `json:"email_id,omitempty"`
	Address       ConsigneeAddress `json:"consignee_address"`
}

// ConsigneeAddress is the delivery address.
type ConsigneeAddress struct {
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2,omitempty"`
	Pincode string `json:"pincode"`
}

// OrderDetail carries invoice and package data.
type OrderDetail struct {
	InvoiceDate       string      `json:"invoice_date"`
	InvoiceID         string      `json:"invoice_id"`
	PaymentType       string      `json:"payment_type"`
	CollectableAmount float64     `json:"total_collectable_amount"`
	BoxDetails        []BoxDetail `json:"box_details"`
}

// OrderResponse is returned by POST /api/order/add/single. Data reads
// "system_order_id is <id>".
type OrderResponse struct {
	Envelope
	Data string `json:"data"`
}

// ManifestRequest is the body of POST /api/order/manifest/single.
type ManifestRequest struct {
	SystemOrderID string `json:"system_order_id"`
	CourierID     int64  `json:"courier_id,omitempty"`
}

// ShipmentDataResponse is returned by POST /api/shipment/data.
type ShipmentDataResponse struct {
	Envelope
	Data ShipmentDataResult `json:"data"`
}

// ShipmentDataResult holds the AWB or the base64 label, depending on kind.
type ShipmentDataResult struct {
	MasterAWB   string `json:"master_awb"`
	CourierID   int64  `json:"courier_id"`
	CourierName string `json:"courier_name"`
	FileName    string `json:"res_FileName"`
	FileContent string `json:"res_FileContent"`
}

// TrackResponse is returned by GET /api/tracking.
type TrackResponse struct {
	Envelope
	Data TrackData `json:"data"`
}

// TrackData is the tracked order and its scans.
type TrackData struct {
	OrderDetail   TrackedOrder  `json:"order_detail"`
	ScanHistories []ScanHistory `json:"scan_histories"`
}

// TrackedOrder is the summary of a tracked order.
type TrackedOrder struct {
	SystemOrderID         wire.FlexString `json:"system_order_id"`
	MasterAWB             string          `json:"master_awb"`
	CurrentTrackingStatus string          `json:"current_tracking_status"`
	CourierName           string          `json:"courier_name"`
}

// ScanHistory is one scan.
type ScanHistory struct {
	ScanDatetime string `json:"scan_datetime"`
	ScanStatus   string `json:"scan_status"`
	ScanLocation string `json:"scan_location"`
	ScanRemarks  string `json:"scan_remarks"`
}

// WarehouseResponse is returned by GET /api/warehouse/get/list.
type WarehouseResponse struct {
	Envelope
	Data WarehouseList `json:"data"`
}

// WarehouseList is the page summary of registered warehouses.
type WarehouseList struct {
	ResultCount int `json:"result_count"`
}
