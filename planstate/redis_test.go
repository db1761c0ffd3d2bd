package planstate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"inboundcore/inbound"
	"inboundcore/internal/testutil"
)

func TestRedisStoreTracksConfirmedPlans(t *testing.T) {
	srv, client := testutil.NewRedis(t)
	r := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	s, err := r.GetSummary(ctx, "p1")
	if err != nil || s != nil {
		t.Fatalf("miss = %+v, %v; want nil, nil", s, err)
	}

	if err := r.SetSummary(ctx, "p1", &inbound.Summary{PlanID: "p1", Confirmed: true, Status: 200, TraceID: "tr-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := srv.TTL(summaryKey("p1")); got != time.Hour {
		t.Errorf("ttl = %v, want 1h", got)
	}
	ids, err := r.ConfirmedPlanIDs(ctx)
	if err != nil || !reflect.DeepEqual(ids, []string{"p1"}) {
		t.Errorf("confirmed = %v, %v; want [p1]", ids, err)
	}
	s, err = r.GetSummary(ctx, "p1")
	if err != nil || s == nil || !s.Confirmed || s.TraceID != "tr-1" {
		t.Fatalf("hit = %+v, %v", s, err)
	}

	// A later failed run keeps the summary but leaves the confirmed set.
	if err := r.SetSummary(ctx, "p1", &inbound.Summary{PlanID: "p1", Status: 409}); err != nil {
		t.Fatalf("set unconfirmed: %v", err)
	}
	if got := srv.Members(confirmedPlansKey); len(got) != 0 {
		t.Errorf("confirmed after failed run = %v, want none", got)
	}

	if err := r.RemovePlan(ctx, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if srv.Has(summaryKey("p1")) {
		t.Error("summary key should be gone")
	}
	if err := r.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestManagerWritesThroughToRedis(t *testing.T) {
	srv, client := testutil.NewRedis(t)
	m := testManager(t)
	m.redis = NewRedisStore(client, 0)
	ctx := context.Background()

	if err := m.SaveSummary(ctx, "p1", &inbound.Summary{PlanID: "p1", Confirmed: true, Status: 200, TraceID: "sql"}); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	if !srv.Has(summaryKey("p1")) {
		t.Fatal("summary was not cached")
	}
	if got := srv.TTL(summaryKey("p1")); got != 0 {
		t.Errorf("ttl = %v, want none", got)
	}

	// Reads prefer the cache.
	if err := m.redis.SetSummary(ctx, "p1", &inbound.Summary{PlanID: "p1", Confirmed: true, TraceID: "cache"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	s, err := m.GetSummary(ctx, "p1")
	if err != nil || s.TraceID != "cache" {
		t.Errorf("summary = %+v, %v; want the cached one", s, err)
	}

	// Sync drops entries SQL does not know and restores the SQL copy.
	if err := m.redis.SetSummary(ctx, "ghost", &inbound.Summary{PlanID: "ghost", Confirmed: true}); err != nil {
		t.Fatalf("set ghost: %v", err)
	}
	if err := m.SyncRedisFromSQL(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := srv.Members(confirmedPlansKey); !reflect.DeepEqual(got, []string{"p1"}) {
		t.Errorf("confirmed = %v, want [p1]", got)
	}
	if srv.Has(summaryKey("ghost")) {
		t.Error("ghost summary survived the sync")
	}
	s, err = m.GetSummary(ctx, "p1")
	if err != nil || s.TraceID != "sql" {
		t.Errorf("summary after sync = %+v, %v; want the SQL copy", s, err)
	}

	if !m.CacheEnabled() {
		t.Error("cache should be enabled")
	}
	if err := m.PingCache(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}
