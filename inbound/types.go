package inbound

import (
	"strings"
	"time"

	"inboundcore/spapi"
	"inboundcore/units"
)

// Shipping mode hints accepted on requests.
const (
	ModeSmallParcel = "SPD"
	ModeLTL         = "LTL"
	ModeFTL         = "FTL"
)

// upstreamMode maps a request mode hint to the upstream shippingMode value.
func upstreamMode(hint string) string {
	switch strings.ToUpper(hint) {
	case ModeSmallParcel:
		return "GROUND_SMALL_PARCEL"
	case ModeLTL:
		return "FREIGHT_LTL"
	case ModeFTL:
		return "FREIGHT_FTL"
	}
	return ""
}

func isFreight(hint string) bool {
	h := strings.ToUpper(hint)
	return h == ModeLTL || h == ModeFTL
}

type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Freight struct {
	DeclaredValue *Money `json:"declaredValue,omitempty"`
	FreightClass  string `json:"freightClass,omitempty"`
}

// ShipmentInput is the caller's packaging for one shipment. An empty
// ShipmentID is the default applied to shipments without their own entry.
type ShipmentInput struct {
	ShipmentID             string          `json:"shipmentId,omitempty"`
	TransportationOptionID string          `json:"transportationOptionId,omitempty"`
	Packages               []units.Package `json:"packages,omitempty"`
	Pallets                []units.Pallet  `json:"pallets,omitempty"`
	Freight                *Freight        `json:"freight,omitempty"`
	UnitCount              int             `json:"unitCount,omitempty"`
}

// ConfirmRequest is one "confirm shipping" call.
type ConfirmRequest struct {
	RequestID              string          `json:"requestId"`
	InboundPlanID          string          `json:"inboundPlanId"`
	PlacementOptionID      string          `json:"placementOptionId,omitempty"`
	PackingOptionID        string          `json:"packingOptionId,omitempty"`
	TransportationOptionID string          `json:"transportationOptionId,omitempty"`
	ShippingMode           string          `json:"shippingMode,omitempty"`
	CarrierHint            string          `json:"carrierHint,omitempty"`
	ShippingSolutionHint   string          `json:"shippingSolutionHint,omitempty"`
	Contact                *Contact        `json:"contact,omitempty"`
	ShipDate               *time.Time      `json:"shipDate,omitempty"`
	DeliveryWindow         *Window         `json:"deliveryWindow,omitempty"`
	DestinationCountry     string          `json:"destinationCountry,omitempty"`
	Shipments              []ShipmentInput `json:"shipments,omitempty"`
	ShipmentName           string          `json:"shipmentName,omitempty"`
	Confirm                bool            `json:"confirm"`
	ForcePartnered         bool            `json:"forcePartnered"`
	AutoSelect             bool            `json:"autoSelect"`
}

// Plan is the staged shipment plan held by the plan store.
type Plan struct {
	ID                 string          `json:"id"`
	InboundPlanID      string          `json:"inboundPlanId"`
	DestinationCountry string          `json:"destinationCountry"`
	ShippingMode       string          `json:"shippingMode"`
	PackingGroups      []string        `json:"packingGroups,omitempty"`
	PlacementOptionID  string          `json:"placementOptionId,omitempty"`
	Contact            *Contact        `json:"contact,omitempty"`
	ShipDate           *time.Time      `json:"shipDate,omitempty"`
	DeliveryWindow     *Window         `json:"deliveryWindow,omitempty"`
	Shipments          []ShipmentInput `json:"shipments,omitempty"`
	LastSummary        *Summary        `json:"lastSummary,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Option is a transportation option normalized from the upstream schema.
type Option struct {
	ID            string   `json:"id"`
	ShipmentID    string   `json:"shipmentId,omitempty"`
	Partnered     bool     `json:"partnered"`
	Mode          string   `json:"mode"`
	CarrierName   string   `json:"carrier,omitempty"`
	CarrierCode   string   `json:"carrierCode,omitempty"`
	Solution      string   `json:"shippingSolution"`
	Charge        *Money   `json:"charge,omitempty"`
	Status        string   `json:"status,omitempty"`
	Preconditions []string `json:"preconditions,omitempty"`
}

func optionFrom(o spapi.TransportationOption) Option {
	opt := Option{
		ID:            o.TransportationOptionID,
		ShipmentID:    o.ShipmentID,
		Partnered:     o.ShippingSolution == spapi.SolutionPartnered,
		Mode:          o.ShippingMode,
		CarrierName:   o.Carrier.Name,
		CarrierCode:   o.Carrier.AlphaCode,
		Solution:      o.ShippingSolution,
		Status:        o.Status,
		Preconditions: o.Preconditions,
	}
	if o.Quote != nil {
		opt.Charge = &Money{Amount: o.Quote.Cost.Amount, Currency: o.Quote.Cost.Code}
	}
	return opt
}

// Available reports whether the option can be booked.
func (o Option) Available() bool {
	return o.Status == "" || strings.EqualFold(o.Status, "AVAILABLE")
}

// NeedsDeliveryWindow reports whether a window must be confirmed first.
func (o Option) NeedsDeliveryWindow() bool {
	for _, p := range o.Preconditions {
		if p == spapi.PreconditionDeliveryWindow {
			return true
		}
	}
	return false
}

// dedupeKey is the id, or a composite for options listed without one.
func (o Option) dedupeKey() string {
	if o.ID != "" {
		return o.ID
	}
	return strings.Join([]string{o.ShipmentID, o.CarrierCode, o.CarrierName, o.Mode, o.Solution}, "|")
}

// Selection records the option booked, or chosen for preview, per shipment.
type Selection struct {
	ShipmentID             string `json:"shipmentId"`
	TransportationOptionID string `json:"transportationOptionId"`
	Partnered              bool   `json:"partnered"`
	Mode                   string `json:"mode"`
	CarrierName            string `json:"carrier,omitempty"`
	CarrierCode            string `json:"carrierCode,omitempty"`
	Solution               string `json:"shippingSolution"`
	Charge                 *Money `json:"charge,omitempty"`
	Strategy               string `json:"strategy,omitempty"`
	DeliveryWindowID       string `json:"deliveryWindowId,omitempty"`
}

func selectionFrom(o Option, strategy string) Selection {
	return Selection{
		ShipmentID:             o.ShipmentID,
		TransportationOptionID: o.ID,
		Partnered:              o.Partnered,
		Mode:                   o.Mode,
		CarrierName:            o.CarrierName,
		CarrierCode:            o.CarrierCode,
		Solution:               o.Solution,
		Charge:                 o.Charge,
		Strategy:               strategy,
	}
}

func (s Selection) option() Option {
	return Option{
		ID:          s.TransportationOptionID,
		ShipmentID:  s.ShipmentID,
		Partnered:   s.Partnered,
		Mode:        s.Mode,
		CarrierName: s.CarrierName,
		CarrierCode: s.CarrierCode,
		Solution:    s.Solution,
		Charge:      s.Charge,
	}
}

// Summary is what the orchestrator writes back to the plan store.
type Summary struct {
	PlanID            string      `json:"planId"`
	InboundPlanID     string      `json:"inboundPlanId"`
	PlacementOptionID string      `json:"placementOptionId,omitempty"`
	ShipmentIDs       []string    `json:"shipmentIds,omitempty"`
	Selections        []Selection `json:"selections,omitempty"`
	Confirmed         bool        `json:"confirmed"`
	ConfirmedAt       *time.Time  `json:"confirmedAt,omitempty"`
	Status            int         `json:"status"`
	Code              string      `json:"code,omitempty"`
	TraceID           string      `json:"traceId"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// lastKnown returns the most recent selection for a shipment, if any.
func (s *Summary) lastKnown(shipmentID string) *Option {
	if s == nil {
		return nil
	}
	for _, sel := range s.Selections {
		if sel.ShipmentID == shipmentID {
			o := sel.option()
			return &o
		}
	}
	return nil
}

// ShipmentSummary describes one shipment in a result.
type ShipmentSummary struct {
	ShipmentID  string         `json:"shipmentId"`
	Name        string         `json:"name,omitempty"`
	From        *spapi.Address `json:"from,omitempty"`
	To          *spapi.Address `json:"to,omitempty"`
	WarehouseID string         `json:"warehouseId,omitempty"`
	BoxCount    int            `json:"boxCount"`
	PalletCount int            `json:"palletCount,omitempty"`
	UnitCount   int            `json:"unitCount,omitempty"`
	WeightKg    float64        `json:"weightKg"`
	WeightLb    float64        `json:"weightLb"`
	OptionID    string         `json:"transportationOptionId,omitempty"`
}

// Coverage reports whether every shipment can go partnered.
type Coverage struct {
	PartneredAvailable        bool     `json:"partneredAvailable"`
	PartneredMissingShipments []string `json:"partneredMissingShipments,omitempty"`
	PartneredTotal            *Money   `json:"partneredTotal,omitempty"`
	NonPartneredTotal         *Money   `json:"nonPartneredTotal,omitempty"`
}

// SelectionSummary is the caller-facing view of what was chosen.
type SelectionSummary struct {
	Selections []Selection `json:"selections,omitempty"`
	Carrier    string      `json:"carrier,omitempty"`
	Mode       string      `json:"mode,omitempty"`
	Charge     *Money      `json:"charge,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
	Coverage   *Coverage   `json:"coverage,omitempty"`
}

// Step records the outcome of one upstream step.
type Step struct {
	Name     string `json:"name"`
	Status   int    `json:"status"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Result is the orchestrator's response body.
type Result struct {
	TraceID           string            `json:"traceId"`
	RequestID         string            `json:"requestId"`
	InboundPlanID     string            `json:"inboundPlanId"`
	PlacementOptionID string            `json:"placementOptionId,omitempty"`
	Options           []Option          `json:"transportationOptions,omitempty"`
	Shipments         []ShipmentSummary `json:"shipments,omitempty"`
	Selection         *SelectionSummary `json:"selection,omitempty"`
	Steps             []Step            `json:"steps"`
	Confirmed         bool              `json:"confirmed"`
	AlreadyConfirmed  bool              `json:"alreadyConfirmed"`
	Status            int               `json:"status"`
	Error             *Error            `json:"error,omitempty"`
}
