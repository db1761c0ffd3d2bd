package inbound

import (
	"context"
	"errors"
	"fmt"

	"inboundcore/retry"
	"inboundcore/spapi"
)

// ensurePlacement returns the confirmed placement option, confirming one if
// needed. A confirmed option is never confirmed again.
func (r *run) ensurePlacement(ctx context.Context) (*spapi.PlacementOption, error) {
	opts, err := r.listPlacements(ctx)
	if err != nil {
		r.record("list_placement_options", "", err)
		return nil, err
	}
	if confirmed := confirmedPlacement(opts); confirmed != nil {
		r.record("placement", "already confirmed "+confirmed.PlacementOptionID, nil)
		return r.placementWithShipments(ctx, confirmed)
	}

	if err := r.requireBoxes(ctx); err != nil {
		return nil, err
	}

	offered := r.pickOffered(opts)
	if offered == nil {
		if offered, err = r.regeneratePlacement(ctx); err != nil {
			return nil, err
		}
		if offered.Status.IsConfirmed() {
			return r.placementWithShipments(ctx, offered)
		}
	}

	err = r.confirmPlacement(ctx, offered.PlacementOptionID)
	if err != nil && ClassifyError(err) == ClassNeedsRegeneration {
		r.record("confirm_placement", "option needs regeneration", err)
		if offered, err = r.regeneratePlacement(ctx); err != nil {
			return nil, err
		}
		if !offered.Status.IsConfirmed() {
			err = r.confirmPlacement(ctx, offered.PlacementOptionID)
		}
	}
	if err != nil {
		r.record("confirm_placement", "", err)
		return nil, err
	}
	r.record("confirm_placement", offered.PlacementOptionID, nil)
	return r.placementWithShipments(ctx, offered)
}

// placementWithShipments makes sure the placement names its shipments,
// re-listing once if the confirmed option came back without them.
func (r *run) placementWithShipments(ctx context.Context, p *spapi.PlacementOption) (*spapi.PlacementOption, error) {
	if len(p.ShipmentIDs) == 0 {
		opts, err := r.listPlacements(ctx)
		if err != nil {
			return nil, err
		}
		for i := range opts {
			if opts[i].PlacementOptionID == p.PlacementOptionID {
				p = &opts[i]
				break
			}
		}
	}
	if len(p.ShipmentIDs) == 0 {
		return nil, pendingErr(CodeShipmentsPending, r.o.settings.PendingRetryHint,
			"placement option %s has no shipments yet", p.PlacementOptionID)
	}
	r.placement = p
	return p, nil
}

func (r *run) listPlacements(ctx context.Context) ([]spapi.PlacementOption, error) {
	var all []spapi.PlacementOption
	token := ""
	for page := 0; page < r.o.settings.MaxListPages; page++ {
		resp, err := retry.DoValue(ctx, r.o.callPolicy(), func(ctx context.Context) (*spapi.ListPlacementOptionsResponse, error) {
			return r.o.upstream.ListPlacementOptions(ctx, r.req.InboundPlanID, r.o.settings.PageSize, token)
		})
		if err != nil {
			return nil, err
		}
		all = append(all, resp.PlacementOptions...)
		token = resp.Pagination.NextToken
		if token == "" {
			break
		}
	}
	return all, nil
}

func confirmedPlacement(opts []spapi.PlacementOption) *spapi.PlacementOption {
	for i := range opts {
		if opts[i].Status.IsConfirmed() {
			return &opts[i]
		}
	}
	return nil
}

// pickOffered prefers the option the plan names, else the first offered.
func (r *run) pickOffered(opts []spapi.PlacementOption) *spapi.PlacementOption {
	var first *spapi.PlacementOption
	for i := range opts {
		if opts[i].Status != spapi.PlacementOffered {
			continue
		}
		if opts[i].PlacementOptionID == r.req.PlacementOptionID {
			return &opts[i]
		}
		if first == nil {
			first = &opts[i]
		}
	}
	return first
}

// requireBoxes fails with PACKING_REQUIRED when the plan has no boxes. The
// answer is cached for the run.
func (r *run) requireBoxes(ctx context.Context) error {
	if r.boxCount == nil {
		resp, err := retry.DoValue(ctx, r.o.callPolicy(), func(ctx context.Context) (*spapi.ListBoxesResponse, error) {
			return r.o.upstream.ListBoxes(ctx, r.req.InboundPlanID, 1, "")
		})
		r.record("list_boxes", "", err)
		if err != nil {
			return err
		}
		n := len(resp.Boxes)
		r.boxCount = &n
	}
	if *r.boxCount == 0 {
		return pendingErr(CodePackingRequired, r.o.settings.PendingRetryHint,
			"inbound plan %s has no boxes; complete packing first", r.req.InboundPlanID)
	}
	return nil
}

// regeneratePlacement generates options and waits for one to be offered.
func (r *run) regeneratePlacement(ctx context.Context) (*spapi.PlacementOption, error) {
	err := retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		id, err := r.o.upstream.GeneratePlacementOptions(ctx, r.req.InboundPlanID)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, id)
		return err
	})
	r.record("generate_placement_options", "", err)
	if err != nil {
		return nil, r.packingAware(err)
	}

	offered, err := retry.DoValue(ctx, r.o.listPolicy(), func(ctx context.Context) (*spapi.PlacementOption, error) {
		opts, err := r.listPlacements(ctx)
		if err != nil {
			return nil, err
		}
		if c := confirmedPlacement(opts); c != nil {
			return c, nil
		}
		if o := r.pickOffered(opts); o != nil {
			return o, nil
		}
		return nil, errEmptyListing
	})
	if errors.Is(err, errEmptyListing) {
		err = pendingErr(CodePlacementOptionsPending, r.o.settings.PendingRetryHint,
			"no placement option offered yet for inbound plan %s", r.req.InboundPlanID)
	}
	r.record("list_placement_options", "", err)
	return offered, err
}

// confirmPlacement books one option. An already-confirmed answer is success.
func (r *run) confirmPlacement(ctx context.Context, id string) error {
	err := retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		opID, err := r.o.upstream.ConfirmPlacementOption(ctx, r.req.InboundPlanID, id)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, opID)
		return err
	})
	if err != nil && ClassifyError(err) == ClassAlreadyConfirmed {
		return nil
	}
	if err != nil {
		return fmt.Errorf("confirm placement option %s: %w", id, err)
	}
	return nil
}

// packingAware re-signals packing problems as PACKING_REQUIRED.
func (r *run) packingAware(err error) error {
	if ClassifyError(err) == ClassPackingMissing {
		e := pendingErr(CodePackingRequired, r.o.settings.PendingRetryHint, "upstream reports packing information missing")
		e.Err = err
		return e
	}
	return err
}
