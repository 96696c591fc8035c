package graphql

// Transport models for schema.graphqls. Output types are served through
// field resolvers, so exported field names match the GraphQL field names
// case-insensitively. Int fields are int32 and nullable values are pointers.

// RateRequestInput describes a parcel to quote.
type RateRequestInput struct {
	OriginPincode      string
	DestinationPincode string
	Weight             float64
	Length             float64
	Width              float64
	Height             float64
	PaymentMode        string
	DeclaredValue      *float64
	CODAmount          *float64
}

// AddressInput is a pickup or delivery address.
type AddressInput struct {
	Name    string
	Phone   string
	Email   *string
	Line1   string
	Line2   *string
	City    string
	State   string
	Pincode string
}

// ItemInput is an invoice line.
type ItemInput struct {
	Name      string
	SKU       *string
	Quantity  int32
	UnitPrice float64
}

// ShipmentInput is a booking request.
type ShipmentInput struct {
	OrderID        string
	ServiceCode    *string
	PickupLocation *string
	Pickup         AddressInput
	Consignee      AddressInput
	Package        RateRequestInput
	Items          []ItemInput
	InvoiceNumber  *string
}

// PickupInput asks for a pickup on a date (YYYY-MM-DD or RFC 3339).
type PickupInput struct {
	PickupLocation  string
	Date            string
	PackageCount    int32
	TrackingNumbers *[]string
	References      *[]string
}

// Carrier is a catalogued carrier.
type Carrier struct {
	Code               string
	DisplayName        string
	Enabled            bool
	Primary            bool
	Mode               string
	Features           []string
	Configured         bool
	MissingCredentials []string
}

// RateShop is the ranked outcome of a rate shop.
type RateShop struct {
	Quotes   []*Quote
	Failures []*CarrierFailure
}

// Quote is one service offer.
type Quote struct {
	Carrier           string
	ServiceCode       string
	ServiceName       string
	Base              float64
	FuelSurcharge     float64
	Tax               float64
	COD               float64
	Other             float64
	TotalCharge       float64
	DeliveryDays      int32
	EstimatedDelivery *string
	Currency          string
}

// CarrierFailure explains why a carrier returned no quotes.
type CarrierFailure struct {
	Carrier string
	Class   string
	Message string
}

// Shipment is a booked shipment.
type Shipment struct {
	TrackingNumber   string
	CarrierReference *string
	LabelURL         *string
	PickupDate       *string
	ExpectedDelivery *string
}

// Tracking is a shipment's status and history.
type Tracking struct {
	TrackingNumber string
	Status         string
	Events         []*TrackingEvent
}

// TrackingEvent is one scan.
type TrackingEvent struct {
	Timestamp    string
	Status       string
	VendorStatus string
	Location     *string
	Description  *string
}

// Label is a printable label, by URL or base64 data.
type Label struct {
	TrackingNumber string
	URL            *string
	Format         string
	Data           *string
}

// Pickup confirms a scheduled pickup.
type Pickup struct {
	Reference    string
	ScheduledFor string
}

// CredentialCheck is the outcome of a credential sample.
type CredentialCheck struct {
	Carrier string
	Success bool
	Failure *string
	Detail  string
}
