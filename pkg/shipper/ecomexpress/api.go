package ecomexpress

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/tournevent/courierhub/pkg/shipper/wire"
)

// APIClient defines the Ecom Express API operations used by the adapter.
// Credentials travel in every form body.
type APIClient interface {
	// Rate prices a shipment.
	Rate(ctx context.Context, req *RateRequest) (*RateResult, error)

	// Pincode looks up one pincode; nil means Ecom Express does not serve it.
	Pincode(ctx context.Context, pincode string) (*PincodeInfo, error)

	// FetchAWB reserves AWB numbers for a product type.
	FetchAWB(ctx context.Context, product string, count int) (*FetchAWBResponse, error)

	// Manifest books shipments against reserved AWBs.
	Manifest(ctx context.Context, shipments []ManifestShipment) (*ManifestResponse, error)

	// Track returns the XML tracking document for AWBs.
	Track(ctx context.Context, awbs []string) (*TrackDocument, error)

	// Cancel cancels AWBs.
	Cancel(ctx context.Context, awbs []string) ([]CancelResult, error)
}

// Product types.
const (
	ProductPrepaid = "PPD"
	ProductCOD     = "COD"
)

// ============================================================================
// API Request/Response Types
// ============================================================================

// RateRequest is one element of the rate calculator's json_input.
type RateRequest struct {
	OriginPincode      string  `json:"orginPincode"`
	DestinationPincode string  `json:"destinationPincode"`
	ProductType        string  `json:"productType"`
	ChargeableWeight   float64 `json:"chargeableWeight"`
	CODAmount          float64 `json:"codAmount"`
}

// RateResult is one element of the rate calculator response.
type RateResult struct {
	Success        bool           `json:"success"`
	Errors         []string       `json:"errors"`
	ChargesBreakup ChargesBreakup `json:"chargesBreakup"`
}

// ChargesBreakup itemises a rate. Total includes GST.
type ChargesBreakup struct {
	Freight wire.FlexFloat `json:"FRT"`
	Fuel    wire.FlexFloat `json:"FUEL"`
	COD     wire.FlexFloat `json:"COD"`
	GST     wire.FlexFloat `json:"GST"`
	Total   wire.FlexFloat `json:"total"`
}

// PincodeInfo is one entry of the pincode list.
type PincodeInfo struct {
	Pincode wire.FlexString `json:"pincode"`
	City    string          `json:"city"`
	State   string          `json:"state"`
	Active  bool            `json:"active"`
	COD     bool            `json:"cod"`
}

// FetchAWBResponse is returned by /apiv2/fetch_awb/.
type FetchAWBResponse struct {
	ReferenceID wire.FlexString   `json:"reference_id"`
	Success     string            `json:"success"`
	Error       []string          `json:"error"`
	AWB         []wire.FlexString `json:"awb"`
}

// ManifestShipment is one element of the manifest json_input.
type ManifestShipment struct {
	AWBNumber          string  `json:"AWB_NUMBER"`
	OrderNumber        string  `json:"ORDER_NUMBER"`
	Product            string  `json:"PRODUCT"`
	Consignee          string  `json:"CONSIGNEE"`
	ConsigneeAddress1  string  `json:"CONSIGNEE_ADDRESS1"`
	ConsigneeAddress2  string  `json:"CONSIGNEE_ADDRESS2"`
	DestinationCity    string  `json:"DESTINATION_CITY"`
	Pincode            string  `json:"PINCODE"`
	State              string  `json:"STATE"`
	Mobile             string  `json:"MOBILE"`
	ItemDescription    string  `json:"ITEM_DESCRIPTION"`
	Pieces             int     `json:"PIECES"`
	CollectableValue   float64 `json:"COLLECTABLE_VALUE"`
	DeclaredValue      float64 `json:"DECLARED_VALUE"`
	ActualWeight       float64 `json:"ACTUAL_WEIGHT"`
	Length             float64 `json:"LENGTH"`
	Breadth            float64 `json:"BREADTH"`
	Height             float64 `json:"HEIGHT"`
	PickupName         string  `json:"PICKUP_NAME"`
	PickupAddressLine1 string  `json:"PICKUP_ADDRESS_LINE1"`
	PickupPincode      string  `json:"PICKUP_PINCODE"`
	PickupMobile       string  `json:"PICKUP_MOBILE"`
	ReturnName         string  `json:"RETURN_NAME"`
	ReturnAddressLine1 string  `json:"RETURN_ADDRESS_LINE1"`
	ReturnPincode      string  `json:"RETURN_PINCODE"`
	ReturnMobile       string  `json:"RETURN_MOBILE"`
}

// ManifestResponse is returned by /apiv2/manifest_awb/.
type ManifestResponse struct {
	Shipments []ManifestResult `json:"shipments"`
}

// ManifestResult is the outcome for one AWB.
type ManifestResult struct {
	AWB         wire.FlexString `json:"awb"`
	OrderNumber string          `json:"order_number"`
	Success     bool            `json:"success"`
	Reason      string          `json:"reason"`
}

// CancelResult is the outcome of cancelling one AWB.
type CancelResult struct {
	AWB     wire.FlexString `json:"awb"`
	Success bool            `json:"success"`
	Reason  string          `json:"reason"`
}

// TrackDocument is the XML returned by /track_me/api/mawbd/. Every value is
// a named field, and scans nest as objects inside the "scans" field.
type TrackDocument struct {
	XMLName xml.Name    `xml:"ecomexpress-objects"`
	Objects []XMLObject `xml:"object"`
}

// XMLObject is a generic record.
type XMLObject struct {
	Model  string     `xml:"model,attr"`
	Fields []XMLField `xml:"field"`
}

// XMLField is a named value or a list of nested objects.
type XMLField struct {
	Name    string      `xml:"name,attr"`
	Value   string      `xml:",chardata"`
	Objects []XMLObject `xml:"object"`
}

// Field returns the trimmed value of the named field.
func (o XMLObject) Field(name string) string {
	for _, f := range o.Fields {
		if f.Name == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// Nested returns the objects inside the named field.
func (o XMLObject) Nested(name string) []XMLObject {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Objects
		}
	}
	return nil
}
