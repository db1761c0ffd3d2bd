package inbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inboundcore/retry"
	"inboundcore/spapi"
	"inboundcore/units"
)

// loadShipments fetches every shipment of the placement. It reports true
// when all of them already have a transportation option booked.
func (r *run) loadShipments(ctx context.Context, ids []string) (bool, error) {
	booked := len(ids) > 0
	for _, id := range ids {
		sh, err := retry.DoValue(ctx, r.o.callPolicy(), func(ctx context.Context) (*spapi.Shipment, error) {
			return r.o.upstream.GetShipment(ctx, r.req.InboundPlanID, id)
		})
		if err != nil {
			r.record("get_shipment", id, err)
			return false, err
		}
		r.shipments[id] = sh
		if sh.SelectedTransportationOptionID == "" {
			booked = false
		}
	}
	r.record("get_shipments", strings.Join(ids, ","), nil)
	if booked {
		sels := make([]Selection, 0, len(ids))
		for _, id := range ids {
			sels = append(sels, Selection{ShipmentID: id, TransportationOptionID: r.shipments[id].SelectedTransportationOptionID})
		}
		r.setSelections(sels)
	}
	return booked, nil
}

// normalize validates and converts each shipment's packaging.
func (r *run) normalize() error {
	ids := r.placement.ShipmentIDs
	ready := readyToShip(r.req.ShipDate, r.o.clock.Now(), r.o.settings.MinReadyLeadTime)
	rules := r.rules()
	for _, id := range ids {
		in, ok := inputFor(r.req.Shipments, id, len(ids))
		if !ok {
			return validationErr(CodeMissingPackagingData, []string{fmt.Sprintf("shipments[%s]", id)},
				"no packaging configuration for shipment %s", id)
		}
		sp, warnings, err := buildShipment(in, r.req.ShippingMode, r.req.Contact, ready, rules)
		if err != nil {
			return err
		}
		r.warnings = append(r.warnings, warnings...)
		r.configs = append(r.configs, sp)
	}
	return nil
}

// generateTransportation asks the upstream for fresh options for every
// shipment of the placement and drops any cached listings.
func (r *run) generateTransportation(ctx context.Context) error {
	if err := r.requireBoxes(ctx); err != nil {
		return err
	}
	req := &spapi.GenerateTransportationOptionsRequest{PlacementOptionID: r.placement.PlacementOptionID}
	for _, sp := range r.configs {
		req.ShipmentTransportationConfigurations = append(req.ShipmentTransportationConfigurations, sp.Config)
	}
	err := retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		id, err := r.o.upstream.GenerateTransportationOptions(ctx, r.req.InboundPlanID, req)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, id)
		return err
	})
	r.record("generate_transportation_options", "", err)
	if err != nil {
		return r.packingAware(err)
	}
	r.listings = map[string][]Option{}
	return nil
}

func (r *run) listingKey(shipmentID string) string {
	return r.placement.PlacementOptionID + "|" + shipmentID
}

// listOptions pages through the options for one shipment, stopping early
// once targetID is seen. Results are cached per placement and shipment
// until the next generation.
func (r *run) listOptions(ctx context.Context, shipmentID, targetID string) ([]Option, error) {
	key := r.listingKey(shipmentID)
	if cached, ok := r.listings[key]; ok {
		return cached, nil
	}
	opts, err := retry.DoValue(ctx, r.o.listPolicy(), func(ctx context.Context) ([]Option, error) {
		opts, err := r.pageOptions(ctx, shipmentID, targetID)
		if err != nil {
			return nil, err
		}
		if len(opts) == 0 {
			return nil, errEmptyListing
		}
		return opts, nil
	})
	if errors.Is(err, errEmptyListing) {
		err = pendingErr(CodeTransportOptionsPending, r.o.settings.PendingRetryHint,
			"no transportation options listed yet for shipment %s", shipmentID)
	}
	r.record("list_transportation_options", shipmentID, err)
	if err != nil {
		return nil, err
	}
	r.listings[key] = opts
	return opts, nil
}

func (r *run) pageOptions(ctx context.Context, shipmentID, targetID string) ([]Option, error) {
	var all []Option
	token := ""
	for page := 0; page < r.o.settings.MaxListPages; page++ {
		resp, err := r.o.upstream.ListTransportationOptions(ctx, r.req.InboundPlanID, spapi.ListTransportationOptionsQuery{
			PlacementOptionID: r.placement.PlacementOptionID,
			ShipmentID:        shipmentID,
			PageSize:          r.o.settings.PageSize,
			PaginationToken:   token,
		})
		if err != nil {
			return nil, err
		}
		found := false
		for _, to := range resp.TransportationOptions {
			o := optionFrom(to)
			if o.ShipmentID == "" {
				o.ShipmentID = shipmentID
			}
			if shipmentID != "" && o.ShipmentID != shipmentID {
				continue
			}
			if targetID != "" && o.ID == targetID {
				found = true
			}
			all = append(all, o)
		}
		token = resp.Pagination.NextToken
		if found || token == "" {
			break
		}
	}
	return dedupe(all), nil
}

// candidates are the options a strategy may pick for one shipment.
func (r *run) candidates(opts []Option, dropPartnered bool) []Option {
	c := availableOnly(opts)
	if dropPartnered {
		c = withoutPartnered(c)
	}
	return c
}

func (r *run) targetFor(shipmentID string) string {
	for _, in := range r.req.Shipments {
		if in.ShipmentID == shipmentID && in.TransportationOptionID != "" {
			return in.TransportationOptionID
		}
	}
	return r.req.TransportationOptionID
}

// signatureTemplate is the option a rotated target is recovered from: the
// previous selection when it was the target, else the listed option
// carrying the target id. Without a target the previous selection serves.
func (r *run) signatureTemplate(shipmentID, target string) *Option {
	last := r.plan.LastSummary.lastKnown(shipmentID)
	if target == "" || (last != nil && last.ID == target) {
		return last
	}
	for _, o := range r.result.Options {
		if o.ID == target {
			t := o
			return &t
		}
	}
	return nil
}

// selectAll lists options for every shipment, applies the cross-shipment
// partnered rule and picks one option per shipment.
func (r *run) selectAll(ctx context.Context) ([]Selection, error) {
	ids := r.placement.ShipmentIDs
	lists := make(map[string][]Option, len(ids))
	r.result.Options = nil
	for _, id := range ids {
		opts, err := r.listOptions(ctx, id, r.targetFor(id))
		if err != nil {
			return nil, err
		}
		lists[id] = availableOnly(opts)
		r.result.Options = append(r.result.Options, opts...)
	}

	cov := computeCoverage(ids, lists)
	r.result.Selection = &SelectionSummary{Coverage: &cov}
	dropPartnered := len(ids) > 1 && !cov.PartneredAvailable
	if dropPartnered && r.req.ForcePartnered {
		e := conflictErr(CodePartneredUnavailable, withoutPartnered(r.result.Options),
			"partnered carrier is not offered for shipment(s) %s", strings.Join(cov.PartneredMissingShipments, ", "))
		e.Missing = cov.PartneredMissingShipments
		return nil, e
	}

	mode := upstreamMode(r.req.ShippingMode)
	hints := Hints{Carrier: r.req.CarrierHint, Solution: r.req.ShippingSolutionHint}
	var selections []Selection
	for _, id := range ids {
		pool := r.candidates(lists[id], dropPartnered)
		target := r.targetFor(id)
		in := SelectionInput{
			Candidates:     filterMode(pool, mode),
			TargetID:       target,
			LastKnown:      r.signatureTemplate(id, target),
			ForcePartnered: r.req.ForcePartnered,
			AutoSelect:     r.req.AutoSelect,
			Hints:          hints,
		}
		if in.TargetID != "" {
			if o, ok := pickExactID(SelectionInput{Candidates: pool, TargetID: in.TargetID}); ok && !modeMatches(o.Mode, mode) {
				return nil, conflictErr(CodeShippingModeMismatch, in.Candidates,
					"option %s is %s but %s was requested", o.ID, o.Mode, r.req.ShippingMode)
			}
		}
		o, strategy, ok := Select(in)
		if !ok {
			switch {
			case in.TargetID != "":
				return nil, conflictErr(CodeOptionNotFound, pool,
					"transportation option %s is no longer offered for shipment %s", in.TargetID, id)
			case r.req.ForcePartnered:
				return nil, conflictErr(CodePartneredUnavailable, pool, "no partnered option for shipment %s", id)
			case r.req.Confirm:
				return nil, conflictErr(CodeSelectionRequired, pool,
					"%d options available for shipment %s; choose one or enable autoSelect", len(pool), id)
			}
			continue
		}
		selections = append(selections, selectionFrom(o, strategy))
	}
	if len(selections) < len(ids) {
		// Preview with an incomplete choice reports options only.
		selections = nil
	}
	r.setSelections(selections)
	return selections, nil
}

// buildShipmentSummaries fills the per-shipment view of the result.
func (r *run) buildShipmentSummaries() {
	if r.placement == nil {
		return
	}
	byID := map[string]shipmentPlan{}
	for _, sp := range r.configs {
		byID[sp.ShipmentID] = sp
	}
	selected := map[string]string{}
	if r.result.Selection != nil {
		for _, s := range r.result.Selection.Selections {
			selected[s.ShipmentID] = s.TransportationOptionID
		}
	}
	r.result.Shipments = nil
	for _, id := range r.placement.ShipmentIDs {
		sum := ShipmentSummary{ShipmentID: id, OptionID: selected[id]}
		if sh := r.shipments[id]; sh != nil {
			sum.Name = sh.Name
			sum.From = sh.Source.Address
			sum.To = sh.Destination.Address
			sum.WarehouseID = sh.Destination.WarehouseID
			if sum.OptionID == "" {
				sum.OptionID = sh.SelectedTransportationOptionID
			}
		}
		if sp, ok := byID[id]; ok {
			sum.BoxCount = sp.BoxCount
			sum.PalletCount = sp.PalletCount
			sum.UnitCount = sp.Input.UnitCount
			sum.WeightKg = units.Round2(sp.WeightKg)
			sum.WeightLb = units.Round2(units.KilogramsToPounds(sp.WeightKg))
		}
		r.result.Shipments = append(r.result.Shipments, sum)
	}
}
