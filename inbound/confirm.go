package inbound

import (
	"context"
	"fmt"
	"log"
	"strings"

	"inboundcore/retry"
	"inboundcore/spapi"
)

// confirmTransportation re-lists every shipment to catch last-moment id
// rotation, resolves a concrete id per shipment and books them in one call.
// An already-confirmed answer is success with already set.
func (r *run) confirmTransportation(ctx context.Context, sels []Selection) (already bool, resolved []Selection, err error) {
	r.listings = map[string][]Option{}

	var unresolved []string
	var alternatives []Option
	for _, sel := range sels {
		fresh, err := r.listOptions(ctx, sel.ShipmentID, sel.TransportationOptionID)
		if err != nil {
			return false, sels, err
		}
		o, strategy, ok := resolveConcrete(availableOnly(fresh), sel)
		if !ok {
			unresolved = append(unresolved, sel.ShipmentID)
			alternatives = append(alternatives, availableOnly(fresh)...)
			continue
		}
		if strategy != "exact_id" {
			log.Printf("inbound: plan %s shipment %s option %s rotated to %s", r.result.RequestID, sel.ShipmentID, sel.TransportationOptionID, o.ID)
		}
		next := selectionFrom(o, strategy)
		next.DeliveryWindowID = sel.DeliveryWindowID
		resolved = append(resolved, next)
	}
	if len(unresolved) > 0 {
		e := conflictErr(CodeOptionNotFound, alternatives,
			"selected transportation option no longer offered for shipment(s) %s", strings.Join(unresolved, ", "))
		e.Fields = unresolved
		return false, sels, e
	}

	contact := &spapi.ContactInformation{Name: r.req.Contact.Name, PhoneNumber: r.req.Contact.Phone, Email: r.req.Contact.Email}
	body := &spapi.ConfirmTransportationOptionsRequest{}
	for _, sel := range resolved {
		body.TransportationSelections = append(body.TransportationSelections, spapi.TransportationSelection{
			ShipmentID:             sel.ShipmentID,
			TransportationOptionID: sel.TransportationOptionID,
			ContactInformation:     contact,
		})
	}
	err = retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		id, err := r.o.upstream.ConfirmTransportationOptions(ctx, r.req.InboundPlanID, body)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, id)
		return err
	})
	if err != nil && ClassifyError(err) == ClassAlreadyConfirmed {
		r.record("confirm_transportation", "already confirmed", nil)
		return true, resolved, nil
	}
	if err != nil {
		err = fmt.Errorf("confirm transportation options: %w", err)
		r.record("confirm_transportation", "", err)
		return false, resolved, err
	}
	r.record("confirm_transportation", fmt.Sprintf("%d shipment(s)", len(resolved)), nil)
	return false, resolved, nil
}

// renameShipments applies the requested shipment name. Failures only warn;
// the booking already stands.
func (r *run) renameShipments(ctx context.Context) {
	name := strings.TrimSpace(r.req.ShipmentName)
	if name == "" || r.placement == nil {
		return
	}
	ids := r.placement.ShipmentIDs
	for i, id := range ids {
		n := name
		if len(ids) > 1 {
			n = fmt.Sprintf("%s (%d/%d)", name, i+1, len(ids))
		}
		err := r.o.upstream.UpdateShipmentName(ctx, r.req.InboundPlanID, id, n)
		r.record("update_shipment_name", id, err)
		if err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("shipment %s: rename failed: %v", id, err))
			continue
		}
		if sh := r.shipments[id]; sh != nil {
			sh.Name = n
		}
	}
}
