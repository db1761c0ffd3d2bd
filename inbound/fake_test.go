package inbound

import (
	"context"
	"fmt"
	"sync"
	"time"

	"inboundcore/spapi"
)

// fakeUpstream is an in-memory fulfillment API that records every call.
type fakeUpstream struct {
	mu sync.Mutex

	boxes                   int
	placements              []spapi.PlacementOption
	placementsAfterGenerate []spapi.PlacementOption
	generatedPlacement      bool
	confirmPlacementErrs    []error

	// transport holds successive listings per shipment; the last repeats.
	// With transportPageSize set each listing is served in pages linked by
	// "page-<offset>" tokens.
	transport           map[string][][]spapi.TransportationOption
	transportListCalls  map[string]int
	transportPageSize   int
	transportTokens     []string
	generateRequests    []*spapi.GenerateTransportationOptionsRequest
	confirmTransportErr error
	confirmed           []spapi.TransportationSelection

	windows          map[string][]spapi.DeliveryWindowOption
	confirmWindowErr error
	confirmedWindows []string

	shipments   map[string]*spapi.Shipment
	renamed     map[string]string
	listErrs    []error
	placementLC int

	calls map[string]int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		boxes:              1,
		transport:          map[string][][]spapi.TransportationOption{},
		transportListCalls: map[string]int{},
		windows:            map[string][]spapi.DeliveryWindowOption{},
		shipments:          map[string]*spapi.Shipment{},
		renamed:            map[string]string{},
		calls:              map[string]int{},
	}
}

func (f *fakeUpstream) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeUpstream) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeUpstream) ListBoxes(_ context.Context, planID string, _ int, _ string) (*spapi.ListBoxesResponse, error) {
	f.hit("ListBoxes")
	resp := &spapi.ListBoxesResponse{}
	for i := 0; i < f.boxes; i++ {
		resp.Boxes = append(resp.Boxes, spapi.Box{BoxID: fmt.Sprintf("box-%d", i+1), Quantity: 1})
	}
	return resp, nil
}

func (f *fakeUpstream) GeneratePlacementOptions(context.Context, string) (string, error) {
	f.hit("GeneratePlacementOptions")
	f.mu.Lock()
	f.generatedPlacement = true
	f.mu.Unlock()
	return "op-generate-placement", nil
}

func (f *fakeUpstream) ListPlacementOptions(context.Context, string, int, string) (*spapi.ListPlacementOptionsResponse, error) {
	f.hit("ListPlacementOptions")
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.placementLC
	f.placementLC++
	if i < len(f.listErrs) && f.listErrs[i] != nil {
		return nil, f.listErrs[i]
	}
	opts := f.placements
	if f.generatedPlacement && f.placementsAfterGenerate != nil {
		opts = f.placementsAfterGenerate
	}
	return &spapi.ListPlacementOptionsResponse{PlacementOptions: append([]spapi.PlacementOption(nil), opts...)}, nil
}

func (f *fakeUpstream) ConfirmPlacementOption(_ context.Context, _ string, id string) (string, error) {
	n := f.count("ConfirmPlacementOption")
	f.hit("ConfirmPlacementOption")
	if n < len(f.confirmPlacementErrs) && f.confirmPlacementErrs[n] != nil {
		return "", f.confirmPlacementErrs[n]
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, list := range [][]spapi.PlacementOption{f.placements, f.placementsAfterGenerate} {
		for i := range list {
			if list[i].PlacementOptionID == id {
				list[i].Status = spapi.PlacementAccepted
			}
		}
	}
	return "op-confirm-placement", nil
}

func (f *fakeUpstream) GenerateTransportationOptions(_ context.Context, _ string, req *spapi.GenerateTransportationOptionsRequest) (string, error) {
	f.hit("GenerateTransportationOptions")
	f.mu.Lock()
	f.generateRequests = append(f.generateRequests, req)
	f.mu.Unlock()
	return "op-generate-transport", nil
}

func (f *fakeUpstream) ListTransportationOptions(_ context.Context, _ string, q spapi.ListTransportationOptionsQuery) (*spapi.ListTransportationOptionsResponse, error) {
	f.hit("ListTransportationOptions")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transportTokens = append(f.transportTokens, q.PaginationToken)
	listings := f.transport[q.ShipmentID]
	if q.PaginationToken == "" {
		f.transportListCalls[q.ShipmentID]++
	}
	if len(listings) == 0 {
		return &spapi.ListTransportationOptionsResponse{}, nil
	}
	i := f.transportListCalls[q.ShipmentID] - 1
	if i < 0 {
		i = 0
	}
	if i >= len(listings) {
		i = len(listings) - 1
	}
	opts := listings[i]
	if f.transportPageSize <= 0 {
		return &spapi.ListTransportationOptionsResponse{TransportationOptions: opts}, nil
	}
	start := 0
	if q.PaginationToken != "" {
		if _, err := fmt.Sscanf(q.PaginationToken, "page-%d", &start); err != nil {
			return nil, fmt.Errorf("bad pagination token %q", q.PaginationToken)
		}
	}
	if start > len(opts) {
		start = len(opts)
	}
	end := min(start+f.transportPageSize, len(opts))
	resp := &spapi.ListTransportationOptionsResponse{TransportationOptions: opts[start:end]}
	if end < len(opts) {
		resp.Pagination.NextToken = fmt.Sprintf("page-%d", end)
	}
	return resp, nil
}

func (f *fakeUpstream) ConfirmTransportationOptions(_ context.Context, _ string, req *spapi.ConfirmTransportationOptionsRequest) (string, error) {
	f.hit("ConfirmTransportationOptions")
	if f.confirmTransportErr != nil {
		return "", f.confirmTransportErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, req.TransportationSelections...)
	for _, sel := range req.TransportationSelections {
		if sh := f.shipments[sel.ShipmentID]; sh != nil {
			sh.SelectedTransportationOptionID = sel.TransportationOptionID
		}
	}
	return "op-confirm-transport", nil
}

func (f *fakeUpstream) GenerateDeliveryWindowOptions(_ context.Context, _ string, shipmentID string) (string, error) {
	f.hit("GenerateDeliveryWindowOptions")
	return "op-generate-window-" + shipmentID, nil
}

func (f *fakeUpstream) ListDeliveryWindowOptions(_ context.Context, _ string, shipmentID string, _ int, _ string) (*spapi.ListDeliveryWindowOptionsResponse, error) {
	f.hit("ListDeliveryWindowOptions")
	f.mu.Lock()
	defer f.mu.Unlock()
	return &spapi.ListDeliveryWindowOptionsResponse{DeliveryWindowOptions: f.windows[shipmentID]}, nil
}

func (f *fakeUpstream) ConfirmDeliveryWindowOption(_ context.Context, _ string, _ string, windowID string) (string, error) {
	f.hit("ConfirmDeliveryWindowOption")
	if f.confirmWindowErr != nil {
		return "", f.confirmWindowErr
	}
	f.mu.Lock()
	f.confirmedWindows = append(f.confirmedWindows, windowID)
	f.mu.Unlock()
	return "op-confirm-window", nil
}

func (f *fakeUpstream) GetShipment(_ context.Context, _ string, shipmentID string) (*spapi.Shipment, error) {
	f.hit("GetShipment")
	f.mu.Lock()
	defer f.mu.Unlock()
	sh, ok := f.shipments[shipmentID]
	if !ok {
		return &spapi.Shipment{ShipmentID: shipmentID}, nil
	}
	cp := *sh
	return &cp, nil
}

func (f *fakeUpstream) UpdateShipmentName(_ context.Context, _ string, shipmentID, name string) error {
	f.hit("UpdateShipmentName")
	f.mu.Lock()
	f.renamed[shipmentID] = name
	f.mu.Unlock()
	return nil
}

// fakePoller succeeds every operation unless a result is scripted for it.
type fakePoller struct {
	mu      sync.Mutex
	results map[string]error
	polled  []string
}

func (p *fakePoller) Poll(_ context.Context, id string) (*spapi.Operation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polled = append(p.polled, id)
	if err, ok := p.results[id]; ok && err != nil {
		return nil, err
	}
	return &spapi.Operation{OperationID: id, Status: spapi.OperationSuccess}, nil
}

// memPlans is an in-memory PlanStore.
type memPlans struct {
	mu    sync.Mutex
	plans map[string]*Plan
	saves int
}

func newMemPlans(plans ...*Plan) *memPlans {
	m := &memPlans{plans: map[string]*Plan{}}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *memPlans) GetPlan(_ context.Context, id string) (*Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlans) SaveSummary(_ context.Context, id string, s *Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	p, ok := m.plans[id]
	if !ok {
		p = &Plan{ID: id}
		m.plans[id] = p
	}
	p.LastSummary = s
	return nil
}

func (m *memPlans) summary(id string) *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plans[id]; ok {
		return p.LastSummary
	}
	return nil
}

func testSettings() Settings {
	return Settings{
		MinReadyLeadTime: time.Hour,
		PageSize:         20,
		MaxListPages:     3,
		ListRetries:      2,
		ListRetryStep:    time.Millisecond,
		RetryAttempts:    2,
		RetryStep:        time.Millisecond,
		PendingRetryHint: 15 * time.Second,
	}
}

func ownOption(id, shipmentID, carrierCode string, amount float64) spapi.TransportationOption {
	return spapi.TransportationOption{
		TransportationOptionID: id,
		ShipmentID:             shipmentID,
		Carrier:                spapi.Carrier{Name: carrierCode + " carrier", AlphaCode: carrierCode},
		ShippingMode:           "GROUND_SMALL_PARCEL",
		ShippingSolution:       spapi.SolutionOwn,
		Quote:                  &spapi.Quote{Cost: spapi.Currency{Amount: amount, Code: "EUR"}},
		Status:                 "AVAILABLE",
	}
}

func partneredOption(id, shipmentID string, amount float64) spapi.TransportationOption {
	o := ownOption(id, shipmentID, "UPSN", amount)
	o.ShippingSolution = spapi.SolutionPartnered
	o.Carrier.Name = "UPS"
	return o
}
