package delhivery

import (
	"context"
	"encoding/json"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the Delhivery B2C API operations used by the adapter.
type APIClient interface {
	// Charges calculates shipping cost for one service mode.
	Charges(ctx context.Context, q *ChargesQuery) ([]ChargeResponse, error)

	// ExpectedTAT returns the transit time estimate between two pincodes.
	ExpectedTAT(ctx context.Context, origin, destination, mode string) (*TATResponse, error)

	// Pincode looks up serviceability of a single pincode.
	Pincode(ctx context.Context, pincode string) (*PincodeResponse, error)

	// CreateOrder manifests shipments and allocates waybills.
	CreateOrder(ctx context.Context, req *ManifestRequest) (*ManifestResponse, error)

	// Track returns the scan history of a waybill.
	Track(ctx context.Context, waybill string) (*TrackResponse, error)

	// Cancel requests cancellation of a waybill.
	Cancel(ctx context.Context, waybill string) (*EditResponse, error)

	// CreatePickup raises a pickup request for a registered warehouse.
	CreatePickup(ctx context.Context, req *PickupRequest) (*PickupResponse, error)

	// PackingSlip returns the label for a waybill.
	PackingSlip(ctx context.Context, waybill string) (*PackingSlipResponse, error)
}

// ============================================================================
// API Request/Response Types
// ============================================================================

// Service modes accepted by the charges and TAT endpoints.
const (
	ModeExpress = "E"
	ModeSurface = "S"
)

// Payment types accepted by the charges endpoint.
const (
	PaymentPrepaid = "Pre-paid"
	PaymentCOD     = "COD"
)

// ChargesQuery is the query of GET /api/kinko/v1/invoice/charges/.json.
type ChargesQuery struct {
	Mode               string // md
	OriginPin          string // o_pin
	DestinationPin     string // d_pin
	ChargeableWeightGm int    // cgm
	PaymentType        string // pt
	CODAmount          float64
}

// ChargeResponse is one element of the charges response array.
type ChargeResponse struct {
	ChargeDL      float64 `json:"charge_DL"`
	ChargeFSC     float64 `json:"charge_FSC"`
	ChargeCOD     float64 `json:"charge_COD"`
	ChargeDPH     float64 `json:"charge_DPH"`
	ChargeAWB     float64 `json:"charge_AWB"`
	ChargeRTO     float64 `json:"charge_RTO"`
	TaxData       TaxData `json:"tax_data"`
	GrossAmount   float64 `json:"gross_amount"`
	TotalAmount   float64 `json:"total_amount"`
	Zone          string  `json:"zone"`
	ChargedWeight float64 `json:"charged_weight"`
}

// TaxData is the GST split of a charge.
type TaxData struct {
	IGST float64 `json:"IGST"`
	CGST float64 `json:"CGST"`
	SGST float64 `json:"SGST"`
}

// Total is the sum of all GST components.
func (t TaxData) Total() float64 {
	return t.IGST + t.CGST + t.SGST
}

// TATResponse is returned by GET /api/dc/expected_tat.
type TATResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TAT int `json:"tat"`
	} `json:"data"`
	Message string `json:"msg"`
}

// PincodeResponse is returned by GET /c/api/pin-codes/json/.
type PincodeResponse struct {
	DeliveryCodes []DeliveryCode `json:"delivery_codes"`
}

// DeliveryCode wraps one pincode record.
type DeliveryCode struct {
	PostalCode PostalCode `json:"postal_code"`
}

// PostalCode describes what Delhivery offers at a pincode.
type PostalCode struct {
	Pin      wire.FlexString `json:"pin"`
	City     string          `json:"city"`
	State    string          `json:"state_code"`
	PrePaid  string          `json:"pre_paid"`
	COD      string          `json:"cod"`
	Pickup   string          `json:"pickup"`
	Reverse  string          `json:"repl"`
	Remarks  string          `json:"remarks"`
	District string          `json:"district"`
}

// ManifestRequest is serialized into the data form field of POST /api/cmu/create.json.
type ManifestRequest struct {
	Shipments      []ManifestShipment `json:"shipments"`
	PickupLocation PickupLocation     `json:"pickup_location"`
}

// ManifestShipment is one consignment in a manifest.
type ManifestShipment struct {
	Name          string  `json:"name"`
	Address       string  `json:"add"`
	Pin           string  `json:"pin"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Country       string  `json:"country"`
	Phone         string  `json:"phone"`
	Order         string  `json:"order"`
	PaymentMode   string  `json:"payment_mode"`
	CODAmount     float64 `json:"cod_amount"`
	TotalAmount   float64 `json:"total_amount"`
	ProductsDesc  string  `json:"products_desc"`
	Quantity      string  `json:"quantity"`
	Weight        int     `json:"weight"`
	Length        float64 `json:"shipment_length"`
	Width         float64 `json:"shipment_width"`
	Height        float64 `json:"shipment_height"`
	ShippingMode  string  `json:"shipping_mode"`
	SellerInvoice string  `json:"seller_inv,omitempty"`
	ReturnPin     string  `json:"return_pin,omitempty"`
	ReturnAddress string  `json:"return_add,omitempty"`
	ReturnCity    string  `json:"return_city,omitempty"`
	ReturnState   string  `json:"return_state,omitempty"`
	ReturnPhone   string  `json:"return_phone,omitempty"`
	ReturnName    string  `json:"return_name,omitempty"`
	ReturnCountry string  `json:"return_country,omitempty"`
	Waybill       string  `json:"waybill"`
}

// PickupLocation names a warehouse registered with Delhivery.
type PickupLocation struct {
	Name string `json:"name"`
}

// ManifestResponse is returned by POST /api/cmu/create.json.
type ManifestResponse struct {
	Success  bool              `json:"success"`
	Remarks  json.RawMessage   `json:"rmk"`
	Packages []ManifestPackage `json:"packages"`
	Error    bool              `json:"error"`
}

// ManifestPackage is the per-consignment outcome of a manifest call.
type ManifestPackage struct {
	Waybill string   `json:"waybill"`
	RefNum  string   `json:"refnum"`
	Status  string   `json:"status"`
	Remarks []string `json:"remarks"`
}

// TrackResponse is returned by GET /api/v1/packages/json/.
type TrackResponse struct {
	ShipmentData []ShipmentData `json:"ShipmentData"`
	Error        string         `json:"Error"`
}

// ShipmentData wraps one tracked shipment.
type ShipmentData struct {
	Shipment Shipment `json:"Shipment"`
}

// Shipment is the tracked state of a waybill.
type Shipment struct {
	AWB                  string       `json:"AWB"`
	ReferenceNo          string       `json:"ReferenceNo"`
	Status               ShipmentScan `json:"Status"`
	Scans                []Scan       `json:"Scans"`
	ExpectedDeliveryDate string       `json:"ExpectedDeliveryDate"`
	PickUpDate           string       `json:"PickUpDate"`
}

// Scan wraps one historical scan.
type Scan struct {
	ScanDetail ScanDetail `json:"ScanDetail"`
}

// ShipmentScan is the current status block of a shipment and of webhook pushes.
type ShipmentScan struct {
	Status         string `json:"Status"`
	StatusType     string `json:"StatusType"`
	StatusDateTime string `json:"StatusDateTime"`
	StatusLocation string `json:"StatusLocation"`
	Instructions   string `json:"Instructions"`
}

// ScanDetail is one historical scan.
type ScanDetail struct {
	Scan            string `json:"Scan"`
	ScanType        string `json:"ScanType"`
	ScanDateTime    string `json:"ScanDateTime"`
	ScannedLocation string `json:"ScannedLocation"`
	Instructions    string `json:"Instructions"`
}

// EditResponse is returned by POST /api/p/edit.
type EditResponse struct {
	Status  bool   `json:"status"`
	Remark  string `json:"remark"`
	Waybill string `json:"waybill"`
}

// PickupRequest is the body of POST /fm/request/new/.
type PickupRequest struct {
	PickupLocation       string `json:"pickup_location"`
	PickupDate           string `json:"pickup_date"`
	PickupTime           string `json:"pickup_time"`
	ExpectedPackageCount int    `json:"expected_package_count"`
}

// PickupResponse is returned by POST /fm/request/new/.
type PickupResponse struct {
	PickupID   wire.FlexString `json:"pickup_id"`
	PickupDate string          `json:"pickup_date"`
	PickupTime string          `json:"pickup_time"`
	Error      string          `json:"error"`
}

// PackingSlipResponse is returned by GET /api/p/packing_slip.
type PackingSlipResponse struct {
	PackagesFound int                  `json:"packages_found"`
	Packages      []PackingSlipPackage `json:"packages"`
}

// PackingSlipPackage is the label of one waybill.
type PackingSlipPackage struct {
	Waybill         string `json:"wbn"`
	PDFDownloadLink string `json:"pdf_download_link"`
}

// WebhookPayload is the body of a Delhivery scan push.
type WebhookPayload struct {
	Shipment struct {
		AWB         string       `json:"AWB"`
		ReferenceNo string       `json:"ReferenceNo"`
		Status      ShipmentScan `json:"Status"`
	} `json:"Shipment"`
}
