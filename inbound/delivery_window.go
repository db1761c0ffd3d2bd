package inbound

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"inboundcore/retry"
	"inboundcore/spapi"
)

// resolveDeliveryWindows confirms a window for every non-partnered
// selection that requires one. When any window is confirmed the option set
// is regenerated and each selection re-resolved against it.
func (r *run) resolveDeliveryWindows(ctx context.Context, sels []Selection) ([]Selection, error) {
	byID := map[string]Option{}
	for _, o := range r.result.Options {
		byID[o.ID] = o
	}
	changed := false
	for i, sel := range sels {
		o, ok := byID[sel.TransportationOptionID]
		if !ok || o.Partnered || !o.NeedsDeliveryWindow() {
			continue
		}
		windowID, confirmed, err := r.ensureDeliveryWindow(ctx, sel.ShipmentID)
		if err != nil {
			return nil, err
		}
		sels[i].DeliveryWindowID = windowID
		changed = changed || confirmed
	}
	if !changed {
		return sels, nil
	}

	if err := r.generateTransportation(ctx); err != nil {
		return nil, err
	}
	out := make([]Selection, 0, len(sels))
	for _, sel := range sels {
		fresh, err := r.listOptions(ctx, sel.ShipmentID, sel.TransportationOptionID)
		if err != nil {
			return nil, err
		}
		o, strategy, ok := resolveConcrete(availableOnly(fresh), sel)
		if !ok {
			return nil, conflictErr(CodeOptionNotFound, fresh,
				"transportation option for shipment %s changed after delivery window confirmation", sel.ShipmentID)
		}
		next := selectionFrom(o, strategy)
		next.DeliveryWindowID = sel.DeliveryWindowID
		out = append(out, next)
	}
	r.setSelections(out)
	return out, nil
}

// ensureDeliveryWindow generates, lists and confirms a window for one
// shipment. confirmed is false when the upstream reports the window as
// already settled.
func (r *run) ensureDeliveryWindow(ctx context.Context, shipmentID string) (string, bool, error) {
	planID := r.req.InboundPlanID
	err := retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		id, err := r.o.upstream.GenerateDeliveryWindowOptions(ctx, planID, shipmentID)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, id)
		return err
	})
	r.record("generate_delivery_windows", shipmentID, err)
	if err != nil {
		return "", false, err
	}

	windows, err := retry.DoValue(ctx, r.o.listPolicy(), func(ctx context.Context) ([]spapi.DeliveryWindowOption, error) {
		resp, err := r.o.upstream.ListDeliveryWindowOptions(ctx, planID, shipmentID, r.o.settings.PageSize, "")
		if err != nil {
			return nil, err
		}
		if len(resp.DeliveryWindowOptions) == 0 {
			return nil, errEmptyListing
		}
		return resp.DeliveryWindowOptions, nil
	})
	if errors.Is(err, errEmptyListing) {
		err = pendingErr(CodeDeliveryWindowsPending, r.o.settings.PendingRetryHint,
			"no delivery windows listed yet for shipment %s", shipmentID)
	}
	r.record("list_delivery_windows", shipmentID, err)
	if err != nil {
		return "", false, err
	}

	w, ok := pickWindow(windows, r.req.DeliveryWindow, r.o.clock.Now())
	if !ok {
		return "", false, pendingErr(CodeDeliveryWindowsPending, r.o.settings.PendingRetryHint,
			"all delivery windows for shipment %s have expired", shipmentID)
	}

	err = retry.Do(ctx, r.o.callPolicy(), func(ctx context.Context) error {
		id, err := r.o.upstream.ConfirmDeliveryWindowOption(ctx, planID, shipmentID, w.DeliveryWindowOptionID)
		if err != nil {
			return err
		}
		_, err = r.o.poller.Poll(ctx, id)
		return err
	})
	switch c := ClassifyError(err); {
	case err == nil:
		r.record("confirm_delivery_window", w.DeliveryWindowOptionID, nil)
		return w.DeliveryWindowOptionID, true, nil
	case c == ClassOutsideGracePeriod || c == ClassAlreadyConfirmed:
		r.record("confirm_delivery_window", "already satisfied: "+c.String(), nil)
		return w.DeliveryWindowOptionID, false, nil
	default:
		err = fmt.Errorf("confirm delivery window %s: %w", w.DeliveryWindowOptionID, err)
		r.record("confirm_delivery_window", shipmentID, err)
		return "", false, err
	}
}

// pickWindow returns the earliest unexpired window inside the preferred
// range, else the earliest unexpired window.
func pickWindow(windows []spapi.DeliveryWindowOption, preferred *Window, now time.Time) (spapi.DeliveryWindowOption, bool) {
	live := make([]spapi.DeliveryWindowOption, 0, len(windows))
	for _, w := range windows {
		if w.ValidUntil != nil && w.ValidUntil.Before(now) {
			continue
		}
		live = append(live, w)
	}
	if len(live) == 0 {
		return spapi.DeliveryWindowOption{}, false
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].StartDate.Before(live[j].StartDate) })
	if preferred != nil {
		for _, w := range live {
			if inside(w, *preferred) {
				return w, true
			}
		}
	}
	return live[0], true
}

// inside reports whether w lies within pref. A zero bound is open.
func inside(w spapi.DeliveryWindowOption, pref Window) bool {
	if !pref.Start.IsZero() && w.StartDate.Before(pref.Start) {
		return false
	}
	if !pref.End.IsZero() && w.EndDate.After(pref.End) {
		return false
	}
	return true
}
