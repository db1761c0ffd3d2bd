package engine

import (
	"context"
	"path/filepath"
	"testing"

	"inboundcore/config"
	"inboundcore/inbound"
	"inboundcore/messaging"
	"inboundcore/planstate"
	"inboundcore/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Defaults()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := New(Config{
		AppConfig: cfg,
		DB:        db,
		Plans:     planstate.NewManager(db, nil),
		LogFunc:   t.Logf,
	})
	e.Start()
	t.Cleanup(e.Stop)
	return e
}

func pendingTopics(t *testing.T, e *Engine) map[string]string {
	t.Helper()
	msgs, err := e.db.ListPendingOutbox(context.Background(), 50, 10)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	out := map[string]string{}
	for _, m := range msgs {
		out[m.Topic] = m.MsgType
	}
	return out
}

func TestEventBusFilters(t *testing.T) {
	bus := NewEventBus()
	var all, steps int
	bus.Subscribe(func(Event) { all++ })
	id := bus.Subscribe(func(Event) { steps++ }, EventStepRecorded)

	bus.Emit(Event{Type: EventStepRecorded})
	bus.Emit(Event{Type: EventPlanStaged})
	if all != 2 || steps != 1 {
		t.Errorf("all = %d, steps = %d, want 2 and 1", all, steps)
	}

	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventStepRecorded})
	if steps != 1 {
		t.Errorf("steps after unsubscribe = %d, want 1", steps)
	}
}

func TestEventBusStampsTime(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe(func(evt Event) { got = evt })
	bus.Emit(Event{Type: EventPlanDeleted})
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be set on emit")
	}
}

func TestStepsAppendHistory(t *testing.T) {
	e := testEngine(t)
	em := &runEmitter{bus: e.Events}
	em.EmitStep("plan-1", "trace-1", inbound.Step{Name: "list_boxes", Status: 200, Outcome: "ok"})
	em.EmitStep("plan-1", "trace-1", inbound.Step{Name: "generate_placement", Status: 202, Outcome: "pending"})

	hist, err := e.db.ListHistory(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("history len = %d, want 2", len(hist))
	}
	if hist[0].Step != "list_boxes" || hist[1].Outcome != "pending" {
		t.Errorf("history = %+v %+v", hist[0], hist[1])
	}
}

func TestConfirmedEnqueuesEvent(t *testing.T) {
	e := testEngine(t)
	em := &runEmitter{bus: e.Events}
	em.EmitConfirmed(&inbound.Result{RequestID: "plan-1", TraceID: "trace-1", Confirmed: true})

	topics := pendingTopics(t, e)
	if got := topics[e.cfg.Messaging.EventsTopic]; got != messaging.MsgTransportConfirmed {
		t.Errorf("events topic msg = %q, want %q", got, messaging.MsgTransportConfirmed)
	}
}

func TestPendingFailureNotAnnounced(t *testing.T) {
	e := testEngine(t)
	em := &runEmitter{bus: e.Events}
	em.EmitFailed("plan-1", "trace-1", &inbound.Error{Kind: inbound.KindPending, Code: inbound.CodePackingRequired})
	if topics := pendingTopics(t, e); len(topics) != 0 {
		t.Errorf("outbox = %v, want empty", topics)
	}

	em.EmitFailed("plan-1", "trace-2", &inbound.Error{Kind: inbound.KindUpstream, Code: inbound.CodeUpstreamFailure})
	if got := pendingTopics(t, e)[e.cfg.Messaging.EventsTopic]; got != messaging.MsgConfirmationFailed {
		t.Errorf("events topic msg = %q, want %q", got, messaging.MsgConfirmationFailed)
	}
}

func TestHandleConfirmRequestReplies(t *testing.T) {
	e := testEngine(t)
	env := messaging.NewEnvelope(messaging.MsgConfirmRequest, "erp-1", nil)
	req := messaging.ConfirmRequest{
		ConfirmRequest: inbound.ConfirmRequest{RequestID: "plan-7"},
		ReplyTopic:     "erp.replies",
	}

	e.HandleConfirmRequest(env, req)

	topics := pendingTopics(t, e)
	if got := topics["erp.replies"]; got != messaging.MsgConfirmationFailed {
		t.Errorf("reply msg = %q, want %q", got, messaging.MsgConfirmationFailed)
	}
	if got := topics[e.cfg.Messaging.EventsTopic]; got != messaging.MsgConfirmationFailed {
		t.Errorf("events topic msg = %q, want %q", got, messaging.MsgConfirmationFailed)
	}

	s, err := e.plans.GetSummary(context.Background(), "plan-7")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Status != 400 || s.Code != inbound.CodeValidation {
		t.Errorf("summary = %d %s, want 400 %s", s.Status, s.Code, inbound.CodeValidation)
	}
}

func TestStageAndDeletePlanEmit(t *testing.T) {
	e := testEngine(t)
	var names []string
	e.Events.Subscribe(func(evt Event) { names = append(names, evt.Type.Name()) }, EventPlanStaged, EventPlanDeleted)

	ctx := context.Background()
	if err := e.StagePlan(ctx, &inbound.Plan{ID: "plan-1", InboundPlanID: "wf1"}, "api"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := e.DeletePlan(ctx, "plan-1", "api"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(names) != 2 || names[0] != "plan-staged" || names[1] != "plan-deleted" {
		t.Errorf("events = %v", names)
	}
}

func TestHealthWithoutOptionalParts(t *testing.T) {
	e := testEngine(t)
	h := e.Health(context.Background())
	if h.Status != "ok" || h.Database != "ok" {
		t.Errorf("health = %+v", h)
	}
	if h.Cache != "disabled" || h.Messaging != "disabled" {
		t.Errorf("cache = %q, messaging = %q, want disabled", h.Cache, h.Messaging)
	}
}
