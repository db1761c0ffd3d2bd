package inbound

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"inboundcore/spapi"
	"inboundcore/units"
)

// shipmentPlan is one shipment's validated, wire-ready configuration.
type shipmentPlan struct {
	ShipmentID  string
	Input       ShipmentInput
	Config      spapi.ShipmentTransportationConfiguration
	BoxCount    int
	PalletCount int
	WeightKg    float64
}

// validateContact names every missing contact field.
func validateContact(c *Contact) *Error {
	var missing []string
	if c == nil {
		c = &Contact{}
	}
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "contact.name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "contact.phone")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "contact.email")
	}
	if len(missing) > 0 {
		return missingFields(CodeMissingContact, missing)
	}
	return nil
}

// inputFor finds the caller's configuration for a shipment: its own entry,
// else the default entry, else the only entry when the plan has a single
// shipment.
func inputFor(inputs []ShipmentInput, shipmentID string, shipmentCount int) (ShipmentInput, bool) {
	var fallback *ShipmentInput
	for i := range inputs {
		if inputs[i].ShipmentID == shipmentID {
			return inputs[i], true
		}
		if inputs[i].ShipmentID == "" && fallback == nil {
			fallback = &inputs[i]
		}
	}
	if fallback != nil {
		in := *fallback
		in.ShipmentID = shipmentID
		return in, true
	}
	if shipmentCount == 1 && len(inputs) == 1 {
		in := inputs[0]
		in.ShipmentID = shipmentID
		return in, true
	}
	return ShipmentInput{}, false
}

// readyToShip clamps the requested ship date to the minimum lead time.
func readyToShip(requested *time.Time, now time.Time, lead time.Duration) time.Time {
	earliest := now.Add(lead).UTC().Truncate(time.Second)
	if requested == nil || requested.Before(earliest) {
		return earliest
	}
	return requested.UTC()
}

// buildShipment validates one shipment's packaging for the shipping mode
// and produces its transportation configuration. Eligibility warnings are
// returned alongside.
func buildShipment(in ShipmentInput, mode string, contact *Contact, ready time.Time, rules units.Rules) (shipmentPlan, []string, *Error) {
	sp := shipmentPlan{ShipmentID: in.ShipmentID, Input: in}
	cfg := spapi.ShipmentTransportationConfiguration{
		ShipmentID:        in.ShipmentID,
		ReadyToShipWindow: spapi.WindowInput{Start: ready},
		ContactInformation: &spapi.ContactInformation{
			Name:        contact.Name,
			PhoneNumber: contact.Phone,
			Email:       contact.Email,
		},
	}
	field := func(name string) string { return fmt.Sprintf("shipments[%s].%s", in.ShipmentID, name) }
	var warnings []string

	if isFreight(mode) {
		var missing []string
		pallets, dropped, err := units.NormalizePallets(in.Pallets)
		if errors.Is(err, units.ErrNoCompleteEntries) {
			missing = append(missing, field("pallets"))
		}
		if in.Freight == nil || in.Freight.DeclaredValue == nil || in.Freight.DeclaredValue.Amount <= 0 || in.Freight.DeclaredValue.Currency == "" {
			missing = append(missing, field("freight.declaredValue"))
		}
		if len(missing) > 0 {
			return sp, nil, missingFields(CodeMissingFreightData, missing)
		}
		if dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("shipment %s: %d incomplete pallet(s) dropped", in.ShipmentID, dropped))
		}
		for _, p := range pallets {
			wp := spapi.Pallet{
				Dimensions:   wireDimensions(p.Dimensions),
				Weight:       spapi.Weight{Value: p.Weight.Value, Unit: p.Weight.Unit},
				Quantity:     p.Quantity,
				Stackability: "NON_STACKABLE",
			}
			if p.Stackable {
				wp.Stackability = "STACKABLE"
			}
			cfg.Pallets = append(cfg.Pallets, wp)
			sp.PalletCount += p.Quantity
		}
		for _, p := range in.Pallets {
			if p.Complete() {
				sp.WeightKg += p.Weight.Kilograms() * float64(max(p.Quantity, 1))
			}
		}
		cfg.FreightInformation = &spapi.FreightInformation{
			DeclaredValue: &spapi.Currency{Amount: units.Round2(in.Freight.DeclaredValue.Amount), Code: in.Freight.DeclaredValue.Currency},
			FreightClass:  in.Freight.FreightClass,
		}
		sp.Config = cfg
		return sp, warnings, nil
	}

	pkgs, dropped, err := units.NormalizePackages(in.Packages)
	if errors.Is(err, units.ErrNoCompleteEntries) {
		e := validationErr(CodeMissingPackagingData, []string{field("packages")},
			"shipment %s has no package with complete dimensions and weight (%d incomplete)", in.ShipmentID, dropped)
		return sp, nil, e
	}
	violations, eligibility := rules.Check(in.Packages)
	if len(violations) > 0 {
		fields := make([]string, len(violations))
		msgs := make([]string, len(violations))
		for i, v := range violations {
			fields[i] = field(fmt.Sprintf("packages[%d].%s", v.Index, v.Field))
			msgs[i] = v.Error()
		}
		e := validationErr(CodeIneligiblePackage, fields, "shipment %s is not eligible for small parcel: %s", in.ShipmentID, strings.Join(msgs, "; "))
		e.Warnings = eligibility
		return sp, nil, e
	}
	for _, w := range eligibility {
		warnings = append(warnings, fmt.Sprintf("shipment %s: %s", in.ShipmentID, w))
	}
	if dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("shipment %s: %d incomplete package(s) dropped", in.ShipmentID, dropped))
	}
	for _, p := range pkgs {
		cfg.Packages = append(cfg.Packages, spapi.Package{
			Dimensions: wireDimensions(p.Dimensions),
			Weight:     spapi.Weight{Value: p.Weight.Value, Unit: p.Weight.Unit},
			Quantity:   p.Quantity,
		})
		sp.BoxCount += p.Quantity
	}
	for _, p := range in.Packages {
		if p.Complete() {
			sp.WeightKg += p.Weight.Kilograms() * float64(max(p.Quantity, 1))
		}
	}
	sp.Config = cfg
	return sp, warnings, nil
}

func wireDimensions(d units.Dimensions) spapi.Dimensions {
	return spapi.Dimensions{Length: d.Length, Width: d.Width, Height: d.Height, UnitOfMeasurement: d.Unit}
}
