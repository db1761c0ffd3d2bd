package spapi

import "time"

// OperationStatus is the state of an asynchronous upstream job.
type OperationStatus string

const (
	OperationPending    OperationStatus = "PENDING"
	OperationInProgress OperationStatus = "IN_PROGRESS"
	OperationSuccess    OperationStatus = "SUCCESS"
	OperationFailed     OperationStatus = "FAILED"
	OperationCanceled   OperationStatus = "CANCELED"
	OperationErrored    OperationStatus = "ERRORED"
)

func (s OperationStatus) IsTerminal() bool {
	return s == OperationSuccess || s == OperationFailed || s == OperationCanceled || s == OperationErrored
}

// Problem is one structured upstream error. The code set is open: callers
// must not assume they know every value.
type Problem struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Severity string `json:"severity,omitempty"`
}

type Operation struct {
	OperationID string          `json:"operationId"`
	Operation   string          `json:"operation"`
	Status      OperationStatus `json:"operationStatus"`
	Problems    []Problem       `json:"operationProblems"`
}

// OperationResponse is returned by every generate and confirm call.
type OperationResponse struct {
	OperationID string `json:"operationId"`
}

type Pagination struct {
	NextToken string `json:"nextToken,omitempty"`
}

// --- Boxes ---

type Box struct {
	BoxID      string      `json:"boxId"`
	PackageID  string      `json:"packageId,omitempty"`
	Quantity   int         `json:"quantity"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Weight     *Weight     `json:"weight,omitempty"`
	Items      []BoxItem   `json:"items,omitempty"`
}

type BoxItem struct {
	MSKU     string `json:"msku"`
	Quantity int    `json:"quantity"`
}

type ListBoxesResponse struct {
	Boxes      []Box      `json:"boxes"`
	Pagination Pagination `json:"pagination"`
}

// --- Placement ---

type PlacementStatus string

const (
	PlacementOffered   PlacementStatus = "OFFERED"
	PlacementAccepted  PlacementStatus = "ACCEPTED"
	PlacementConfirmed PlacementStatus = "CONFIRMED"
	PlacementExpired   PlacementStatus = "EXPIRED"
)

// IsConfirmed reports whether the option is already booked.
func (s PlacementStatus) IsConfirmed() bool {
	return s == PlacementAccepted || s == PlacementConfirmed
}

type PlacementOption struct {
	PlacementOptionID string          `json:"placementOptionId"`
	Status            PlacementStatus `json:"status"`
	ShipmentIDs       []string        `json:"shipmentIds"`
	Fees              []Incentive     `json:"fees,omitempty"`
	Discounts         []Incentive     `json:"discounts,omitempty"`
	Expiration        *time.Time      `json:"expiration,omitempty"`
}

type Incentive struct {
	Description string   `json:"description"`
	Target      string   `json:"target"`
	Type        string   `json:"type"`
	Value       Currency `json:"value"`
}

type ListPlacementOptionsResponse struct {
	PlacementOptions []PlacementOption `json:"placementOptions"`
	Pagination       Pagination        `json:"pagination"`
}

// --- Transportation ---

// ShippingSolution values. Partnered options are booked through the
// fulfillment network itself.
const (
	SolutionPartnered = "AMAZON_PARTNERED_CARRIER"
	SolutionOwn       = "USE_YOUR_OWN_CARRIER"
)

// PreconditionDeliveryWindow marks options that need a confirmed delivery
// window before they can be booked.
const PreconditionDeliveryWindow = "CONFIRMED_DELIVERY_WINDOW"

type Carrier struct {
	Name      string `json:"name,omitempty"`
	AlphaCode string `json:"alphaCode,omitempty"`
}

type Currency struct {
	Amount float64 `json:"amount"`
	Code   string  `json:"code"`
}

type Quote struct {
	Cost       Currency   `json:"cost"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

type TransportationOption struct {
	TransportationOptionID string   `json:"transportationOptionId"`
	ShipmentID             string   `json:"shipmentId"`
	Carrier                Carrier  `json:"carrier"`
	ShippingMode           string   `json:"shippingMode"`
	ShippingSolution       string   `json:"shippingSolution"`
	Quote                  *Quote   `json:"quote,omitempty"`
	Preconditions          []string `json:"preconditions,omitempty"`
	Status                 string   `json:"status,omitempty"`
}

type ListTransportationOptionsResponse struct {
	TransportationOptions []TransportationOption `json:"transportationOptions"`
	Pagination            Pagination             `json:"pagination"`
}

// ListTransportationOptionsQuery scopes a listing. ShipmentID is optional.
type ListTransportationOptionsQuery struct {
	PlacementOptionID string
	ShipmentID        string
	PageSize          int
	PaginationToken   string
}

type Dimensions struct {
	Length            float64 `json:"length"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	UnitOfMeasurement string  `json:"unitOfMeasurement"`
}

type Weight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type Package struct {
	Dimensions Dimensions `json:"dimensions"`
	Weight     Weight     `json:"weight"`
	Quantity   int        `json:"quantity"`
}

type Pallet struct {
	Dimensions   Dimensions `json:"dimensions"`
	Weight       Weight     `json:"weight"`
	Quantity     int        `json:"quantity"`
	Stackability string     `json:"stackability,omitempty"`
}

type ContactInformation struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

type FreightInformation struct {
	DeclaredValue *Currency `json:"declaredValue,omitempty"`
	FreightClass  string    `json:"freightClass,omitempty"`
}

type WindowInput struct {
	Start time.Time `json:"start"`
}

type ShipmentTransportationConfiguration struct {
	ShipmentID         string              `json:"shipmentId"`
	ReadyToShipWindow  WindowInput         `json:"readyToShipWindow"`
	ContactInformation *ContactInformation `json:"contactInformation,omitempty"`
	Packages           []Package           `json:"packages,omitempty"`
	Pallets            []Pallet            `json:"pallets,omitempty"`
	FreightInformation *FreightInformation `json:"freightInformation,omitempty"`
}

type GenerateTransportationOptionsRequest struct {
	PlacementOptionID                    string                                `json:"placementOptionId"`
	ShipmentTransportationConfigurations []ShipmentTransportationConfiguration `json:"shipmentTransportationConfigurations"`
}

type TransportationSelection struct {
	ShipmentID             string              `json:"shipmentId"`
	TransportationOptionID string              `json:"transportationOptionId"`
	ContactInformation     *ContactInformation `json:"contactInformation,omitempty"`
}

type ConfirmTransportationOptionsRequest struct {
	TransportationSelections []TransportationSelection `json:"transportationSelections"`
}

// --- Delivery windows ---

type DeliveryWindowOption struct {
	DeliveryWindowOptionID string     `json:"deliveryWindowOptionId"`
	StartDate              time.Time  `json:"startDate"`
	EndDate                time.Time  `json:"endDate"`
	AvailabilityType       string     `json:"availabilityType"`
	ValidUntil             *time.Time `json:"validUntil,omitempty"`
}

type ListDeliveryWindowOptionsResponse struct {
	DeliveryWindowOptions []DeliveryWindowOption `json:"deliveryWindowOptions"`
	Pagination            Pagination             `json:"pagination"`
}

// --- Shipments ---

type Address struct {
	Name                string `json:"name,omitempty"`
	CompanyName         string `json:"companyName,omitempty"`
	AddressLine1        string `json:"addressLine1,omitempty"`
	AddressLine2        string `json:"addressLine2,omitempty"`
	City                string `json:"city,omitempty"`
	StateOrProvinceCode string `json:"stateOrProvinceCode,omitempty"`
	PostalCode          string `json:"postalCode,omitempty"`
	CountryCode         string `json:"countryCode,omitempty"`
}

type ShipmentEndpoint struct {
	Address     *Address `json:"address,omitempty"`
	WarehouseID string   `json:"warehouseId,omitempty"`
}

type Shipment struct {
	ShipmentID                     string           `json:"shipmentId"`
	Name                           string           `json:"name,omitempty"`
	PlacementOptionID              string           `json:"placementOptionId,omitempty"`
	Status                         string           `json:"status,omitempty"`
	Source                         ShipmentEndpoint `json:"source"`
	Destination                    ShipmentEndpoint `json:"destination"`
	SelectedTransportationOptionID string           `json:"selectedTransportationOptionId,omitempty"`
}

type updateShipmentNameRequest struct {
	Name string `json:"name"`
}

type errorsBody struct {
	Errors []Problem `json:"errors"`
}
