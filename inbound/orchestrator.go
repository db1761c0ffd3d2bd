// Package inbound turns a staged shipment plan into a confirmed
// transportation booking. It drives placement, transportation and
// delivery-window sub-resources through their generate, list, select and
// confirm steps.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"

	"inboundcore/config"
	"inboundcore/retry"
	"inboundcore/spapi"
	"inboundcore/units"
)

// Settings bound every loop a run performs.
type Settings struct {
	MinReadyLeadTime time.Duration
	PageSize         int
	MaxListPages     int
	ListRetries      int
	ListRetryStep    time.Duration
	RetryAttempts    int
	RetryStep        time.Duration
	PendingRetryHint time.Duration
}

func SettingsFrom(c config.OrchestratorConfig) Settings {
	return Settings{
		MinReadyLeadTime: c.MinReadyLeadTime,
		PageSize:         20,
		MaxListPages:     c.MaxListPages,
		ListRetries:      c.ListRetries,
		ListRetryStep:    c.ListRetryStep,
		RetryAttempts:    c.RetryAttempts,
		RetryStep:        c.RetryStep,
		PendingRetryHint: c.PendingRetryHint,
	}
}

type Orchestrator struct {
	upstream Upstream
	poller   OperationPoller
	plans    PlanStore
	creds    spapi.CredentialSource
	emitter  Emitter
	settings Settings
	clock    clockz.Clock
}

func New(upstream Upstream, poller OperationPoller, plans PlanStore, settings Settings) *Orchestrator {
	if settings.MaxListPages < 1 {
		settings.MaxListPages = 1
	}
	return &Orchestrator{
		upstream: upstream,
		poller:   poller,
		plans:    plans,
		emitter:  nopEmitter{},
		settings: settings,
		clock:    clockz.RealClock,
	}
}

// WithCredentials makes each run resolve credentials before any upstream
// call, so exchange failures surface as a distinct step.
func (o *Orchestrator) WithCredentials(c spapi.CredentialSource) *Orchestrator {
	o.creds = c
	return o
}

func (o *Orchestrator) WithEmitter(e Emitter) *Orchestrator {
	o.emitter = e
	return o
}

func (o *Orchestrator) WithClock(c clockz.Clock) *Orchestrator {
	o.clock = c
	return o
}

func (o *Orchestrator) callPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: o.settings.RetryAttempts,
		Backoff:     retry.Linear(o.settings.RetryStep, 4*o.settings.RetryStep),
		Retryable:   retryableUpstream,
		Clock:       o.clock,
	}
}

var errEmptyListing = errors.New("listing returned no options")

func (o *Orchestrator) listPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: o.settings.ListRetries,
		Backoff:     retry.Linear(o.settings.ListRetryStep, 4*o.settings.ListRetryStep),
		Retryable: func(err error) bool {
			return errors.Is(err, errEmptyListing) || retryableUpstream(err)
		},
		Clock: o.clock,
	}
}

// run is the state of one confirmation attempt. Nothing in it is shared
// between runs.
type run struct {
	o       *Orchestrator
	req     ConfirmRequest
	plan    *Plan
	traceID string
	result  *Result

	placement *spapi.PlacementOption
	boxCount  *int
	shipments map[string]*spapi.Shipment
	configs   []shipmentPlan
	listings  map[string][]Option
	warnings  []string
}

// Confirm runs one confirmation request. The returned Result is never nil;
// its Status and Error mirror err.
func (o *Orchestrator) Confirm(ctx context.Context, req ConfirmRequest) (*Result, error) {
	r := &run{
		o:         o,
		traceID:   uuid.NewString(),
		shipments: map[string]*spapi.Shipment{},
		listings:  map[string][]Option{},
	}
	r.result = &Result{TraceID: r.traceID, RequestID: req.RequestID, InboundPlanID: req.InboundPlanID, Steps: []Step{}}

	if req.RequestID == "" {
		return r.finish(ctx, missingFields(CodeValidation, []string{"requestId"}), false)
	}
	plan, err := o.plans.GetPlan(ctx, req.RequestID)
	switch {
	case errors.Is(err, ErrPlanNotFound):
		plan = &Plan{ID: req.RequestID}
	case err != nil:
		return r.finish(ctx, fmt.Errorf("load plan %s: %w", req.RequestID, err), false)
	}
	r.plan = plan
	r.req = mergePlan(plan, req)
	r.result.InboundPlanID = r.req.InboundPlanID

	if r.req.InboundPlanID == "" {
		return r.finish(ctx, missingFields(CodeValidation, []string{"inboundPlanId"}), true)
	}
	if last := plan.LastSummary; last != nil && last.Confirmed {
		return r.alreadyBooked(ctx, last)
	}

	err = r.execute(ctx)
	return r.finish(ctx, err, true)
}

// mergePlan fills request gaps from the staged plan.
func mergePlan(p *Plan, req ConfirmRequest) ConfirmRequest {
	if req.InboundPlanID == "" {
		req.InboundPlanID = p.InboundPlanID
	}
	if req.PlacementOptionID == "" {
		req.PlacementOptionID = p.PlacementOptionID
	}
	if req.ShippingMode == "" {
		req.ShippingMode = p.ShippingMode
	}
	if req.DestinationCountry == "" {
		req.DestinationCountry = p.DestinationCountry
	}
	if req.Contact == nil {
		req.Contact = p.Contact
	}
	if req.ShipDate == nil {
		req.ShipDate = p.ShipDate
	}
	if req.DeliveryWindow == nil {
		req.DeliveryWindow = p.DeliveryWindow
	}
	if len(req.Shipments) == 0 {
		req.Shipments = p.Shipments
	}
	if req.ShippingMode == "" {
		req.ShippingMode = ModeSmallParcel
	}
	return req
}

func (r *run) execute(ctx context.Context) error {
	if err := validateContact(r.req.Contact); err != nil {
		return err
	}
	if upstreamMode(r.req.ShippingMode) == "" {
		return validationErr(CodeValidation, []string{"shippingMode"}, "unsupported shipping mode %q", r.req.ShippingMode)
	}

	if r.o.creds != nil {
		_, _, err := r.o.creds.SigningCredentials(ctx)
		r.record("credentials", "", err)
		if err != nil {
			return &Error{Kind: KindUpstream, Code: CodeCredentialExchangeFailure, Message: "credential exchange failed", Err: err}
		}
	}

	placement, err := r.ensurePlacement(ctx)
	if err != nil {
		return err
	}
	r.result.PlacementOptionID = placement.PlacementOptionID

	booked, err := r.loadShipments(ctx, placement.ShipmentIDs)
	if err != nil {
		return err
	}
	if booked {
		r.result.Confirmed = true
		r.result.AlreadyConfirmed = true
		r.buildShipmentSummaries()
		return nil
	}

	if err := r.normalize(); err != nil {
		return err
	}
	if err := r.generateTransportation(ctx); err != nil {
		return err
	}
	selections, err := r.selectAll(ctx)
	if err != nil {
		return err
	}
	if !r.req.Confirm || len(selections) == 0 {
		r.buildShipmentSummaries()
		return nil
	}

	selections, err = r.resolveDeliveryWindows(ctx, selections)
	if err != nil {
		return err
	}
	already, selections, err := r.confirmTransportation(ctx, selections)
	r.setSelections(selections)
	if err != nil {
		return err
	}
	r.result.Confirmed = true
	r.result.AlreadyConfirmed = already
	r.renameShipments(ctx)
	r.buildShipmentSummaries()
	return nil
}

// alreadyBooked answers from the persisted summary without touching the
// upstream.
func (r *run) alreadyBooked(ctx context.Context, last *Summary) (*Result, error) {
	r.result.PlacementOptionID = last.PlacementOptionID
	r.result.Confirmed = true
	r.result.AlreadyConfirmed = true
	r.setSelections(last.Selections)
	for _, sel := range last.Selections {
		r.result.Shipments = append(r.result.Shipments, ShipmentSummary{ShipmentID: sel.ShipmentID, OptionID: sel.TransportationOptionID})
	}
	r.record("confirm_transportation", "already confirmed", nil)
	return r.finish(ctx, nil, true)
}

// finish sets the status, persists the summary once and emits the outcome.
func (r *run) finish(ctx context.Context, err error, persist bool) (*Result, error) {
	res := r.result
	var e *Error
	if err != nil {
		e = AsError(err, r.o.settings.PendingRetryHint)
		if len(e.Warnings) == 0 {
			e.Warnings = r.warnings
		}
		res.Error = e
		res.Status = e.HTTPStatus()
		log.Printf("inbound: plan %s trace %s: %v", res.RequestID, r.traceID, e)
	} else {
		res.Status = http.StatusOK
		if res.Selection != nil {
			res.Selection.Warnings = r.warnings
		}
	}

	if persist {
		if serr := r.o.plans.SaveSummary(ctx, res.RequestID, r.summary(e)); serr != nil {
			log.Printf("inbound: save summary for plan %s: %v", res.RequestID, serr)
		}
	}
	if e != nil {
		r.o.emitter.EmitFailed(res.RequestID, r.traceID, e)
		return res, e
	}
	if res.Confirmed {
		r.o.emitter.EmitConfirmed(res)
	}
	return res, nil
}

func (r *run) summary(e *Error) *Summary {
	now := r.o.clock.Now().UTC()
	s := &Summary{
		PlanID:            r.result.RequestID,
		InboundPlanID:     r.result.InboundPlanID,
		PlacementOptionID: r.result.PlacementOptionID,
		Confirmed:         r.result.Confirmed,
		Status:            r.result.Status,
		TraceID:           r.traceID,
		UpdatedAt:         now,
	}
	if r.placement != nil {
		s.ShipmentIDs = r.placement.ShipmentIDs
	}
	if r.result.Selection != nil {
		s.Selections = r.result.Selection.Selections
	}
	// Keep the previous selections so a later run can recover them by
	// signature.
	if len(s.Selections) == 0 && r.plan != nil && r.plan.LastSummary != nil {
		s.Selections = r.plan.LastSummary.Selections
	}
	if s.Confirmed {
		if r.plan != nil && r.plan.LastSummary != nil && r.plan.LastSummary.ConfirmedAt != nil {
			s.ConfirmedAt = r.plan.LastSummary.ConfirmedAt
		} else {
			s.ConfirmedAt = &now
		}
	}
	if e != nil {
		s.Code = e.Code
	}
	return s
}

// record appends a step with the upstream status of its outcome.
func (r *run) record(name, detail string, err error) {
	s := Step{Name: name, Status: http.StatusOK, Outcome: "ok", Detail: detail}
	if err != nil {
		s.Outcome = "failed"
		s.Detail = err.Error()
		if status := spapi.StatusOf(err); status != 0 {
			s.Status = status
		} else {
			s.Status = StatusOf(err)
		}
		if s.Status == http.StatusAccepted {
			s.Outcome = "pending"
		}
	}
	r.result.Steps = append(r.result.Steps, s)
	r.o.emitter.EmitStep(r.result.RequestID, r.traceID, s)
}

func (r *run) setSelections(sels []Selection) {
	if r.result.Selection == nil {
		r.result.Selection = &SelectionSummary{}
	}
	r.result.Selection.Selections = sels
	r.result.Selection.Carrier, r.result.Selection.Mode, r.result.Selection.Charge = "", "", nil
	if len(sels) == 0 {
		return
	}
	r.result.Selection.Carrier = sels[0].CarrierName
	r.result.Selection.Mode = sels[0].Mode
	var sum moneySum
	for _, s := range sels {
		if s.CarrierName != r.result.Selection.Carrier {
			r.result.Selection.Carrier = "multiple"
		}
		if s.Charge == nil {
			sum.broken = true
			continue
		}
		sum.add(Option{Charge: s.Charge}, true)
	}
	r.result.Selection.Charge = sum.total()
}

func (r *run) rules() units.Rules {
	return units.RulesFor(r.req.DestinationCountry)
}
