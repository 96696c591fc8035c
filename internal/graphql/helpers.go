package graphql

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/courierhub/pkg/dispatch"
	"github.com/tournevent/courierhub/pkg/shipper"
)

// ============================================================================
// Conversion Helpers: GraphQL -> Shipper
// ============================================================================

func paymentModeToModel(s string) shipper.PaymentMode {
	return shipper.PaymentMode(strings.ToLower(s))
}

func rateRequestInputToModel(input RateRequestInput) *shipper.ShipmentRequest {
	req := &shipper.ShipmentRequest{
		OriginPincode:      strings.TrimSpace(input.OriginPincode),
		DestinationPincode: strings.TrimSpace(input.DestinationPincode),
		Weight:             input.Weight,
		Length:             input.Length,
		Width:              input.Width,
		Height:             input.Height,
		PaymentMode:        paymentModeToModel(input.PaymentMode),
		CODAmount:          input.CODAmount,
	}
	if input.DeclaredValue != nil {
		req.DeclaredValue = *input.DeclaredValue
	}
	return req
}

func addressInputToModel(input AddressInput) shipper.Address {
	return shipper.Address{
		Name:    input.Name,
		Phone:   input.Phone,
		Email:   deref(input.Email),
		Line1:   input.Line1,
		Line2:   deref(input.Line2),
		City:    input.City,
		State:   input.State,
		Pincode: strings.TrimSpace(input.Pincode),
		Country: "IN",
	}
}

func shipmentInputToModel(input ShipmentInput) *shipper.ShipmentData {
	items := make([]shipper.Item, len(input.Items))
	for i, it := range input.Items {
		items[i] = shipper.Item{
			Name:      it.Name,
			SKU:       deref(it.SKU),
			Quantity:  int(it.Quantity),
			UnitPrice: it.UnitPrice,
		}
	}
	return &shipper.ShipmentData{
		OrderID:        input.OrderID,
		ServiceCode:    deref(input.ServiceCode),
		PickupLocation: deref(input.PickupLocation),
		Pickup:         addressInputToModel(input.Pickup),
		Consignee:      addressInputToModel(input.Consignee),
		Package:        *rateRequestInputToModel(input.Package),
		Items:          items,
		InvoiceNumber:  deref(input.InvoiceNumber),
	}
}

func pickupInputToModel(input PickupInput) (*shipper.PickupRequest, error) {
	date, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	return &shipper.PickupRequest{
		PickupLocation:  input.PickupLocation,
		Date:            date,
		PackageCount:    int(input.PackageCount),
		TrackingNumbers: derefSlice(input.TrackingNumbers),
		References:      derefSlice(input.References),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q is neither YYYY-MM-DD nor RFC 3339", shipper.ErrInvalidRequest, s)
}

func carrierCodes(names *[]string) ([]shipper.Code, error) {
	if names == nil {
		return nil, nil
	}
	codes := make([]shipper.Code, 0, len(*names))
	for _, name := range *names {
		code, err := carrierCode(name)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// carrierCode accepts any case. Codes outside the known set are passed
// through so the catalog can report them.
func carrierCode(name string) (shipper.Code, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: carrier is required", shipper.ErrInvalidRequest)
	}
	if code, ok := shipper.ParseCode(name); ok {
		return code, nil
	}
	return shipper.Code(strings.ToLower(name)), nil
}

// ============================================================================
// Conversion Helpers: Shipper -> GraphQL
// ============================================================================

func carrierInfoToModel(info dispatch.CarrierInfo) *Carrier {
	features := make([]string, len(info.Features))
	for i, f := range info.Features {
		features[i] = string(f)
	}
	missing := info.Missing
	if missing == nil {
		missing = []string{}
	}
	return &Carrier{
		Code:               string(info.Code),
		DisplayName:        info.DisplayName,
		Enabled:            info.Enabled,
		Primary:            info.Primary,
		Mode:               string(info.Mode),
		Features:           features,
		Configured:         info.Configured(),
		MissingCredentials: missing,
	}
}

func rateShopToModel(res *shipper.RateShopResult) *RateShop {
	out := &RateShop{
		Quotes:   make([]*Quote, len(res.Quotes)),
		Failures: make([]*CarrierFailure, len(res.Failures)),
	}
	for i, q := range res.Quotes {
		out.Quotes[i] = quoteToModel(q)
	}
	for i, f := range res.Failures {
		out.Failures[i] = &CarrierFailure{
			Carrier: string(f.Carrier),
			Class:   string(shipper.Classify(f.Err)),
			Message: f.Err.Error(),
		}
	}
	return out
}

func quoteToModel(q shipper.RateQuote) *Quote {
	return &Quote{
		Carrier:           string(q.Carrier),
		ServiceCode:       q.ServiceCode,
		ServiceName:       q.ServiceName,
		Base:              q.Charges.Base,
		FuelSurcharge:     q.Charges.FuelSurcharge,
		Tax:               q.Charges.Tax,
		COD:               q.Charges.COD,
		Other:             q.Charges.Other,
		TotalCharge:       q.TotalCharge,
		DeliveryDays:      int32(q.DeliveryDays),
		EstimatedDelivery: formatDate(q.EstimatedDelivery),
		Currency:          q.Currency,
	}
}

func shipmentResultToModel(res *shipper.ShipmentResult) *Shipment {
	return &Shipment{
		TrackingNumber:   res.TrackingNumber,
		CarrierReference: optional(res.CarrierReference),
		LabelURL:         optional(res.LabelURL),
		PickupDate:       formatDate(res.PickupDate),
		ExpectedDelivery: formatDate(res.ExpectedDelivery),
	}
}

func trackingToModel(res *shipper.TrackingResult) *Tracking {
	events := make([]*TrackingEvent, len(res.Events))
	for i, e := range res.Events {
		events[i] = &TrackingEvent{
			Timestamp:    e.Timestamp.Format(time.RFC3339),
			Status:       string(e.Status),
			VendorStatus: e.VendorStatus,
			Location:     optional(e.Location),
			Description:  optional(e.Description),
		}
	}
	return &Tracking{
		TrackingNumber: res.TrackingNumber,
		Status:         string(res.Status),
		Events:         events,
	}
}

func labelToModel(l *shipper.Label) *Label {
	out := &Label{
		TrackingNumber: l.TrackingNumber,
		URL:            optional(l.URL),
		Format:         string(l.Format),
	}
	if len(l.Data) > 0 {
		data := base64.StdEncoding.EncodeToString(l.Data)
		out.Data = &data
	}
	return out
}

func pickupResultToModel(res *shipper.PickupResult) *Pickup {
	return &Pickup{
		Reference:    res.Reference,
		ScheduledFor: res.ScheduledFor.Format(time.RFC3339),
	}
}

func credentialCheckToModel(c shipper.CredentialCheck) *CredentialCheck {
	return &CredentialCheck{
		Carrier: string(c.Carrier),
		Success: c.Success,
		Failure: optional(string(c.Failure)),
		Detail:  c.Detail,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefSlice(s *[]string) []string {
	if s == nil {
		return nil
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
