// Package planstate is the plan persistence adapter the orchestrator talks
// to: SQL is the source of truth and Redis a write-through summary cache.
package planstate

import (
	"context"
	"errors"
	"log"

	"inboundcore/inbound"
	"inboundcore/store"
)

// Manager provides write-through summary management: SQL first, then Redis.
// A nil RedisStore runs on SQL alone.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// GetPlan loads the staged plan from SQL. A cached summary replaces the SQL
// one when present.
func (m *Manager) GetPlan(ctx context.Context, id string) (*inbound.Plan, error) {
	p, err := m.db.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.redis != nil {
		if s, err := m.redis.GetSummary(ctx, id); err == nil && s != nil {
			p.LastSummary = s
		}
	}
	return p, nil
}

// SavePlan stages a plan on behalf of actor. The run summary is left
// untouched.
func (m *Manager) SavePlan(ctx context.Context, p *inbound.Plan, actor string) error {
	if err := m.db.SavePlan(ctx, p); err != nil {
		return err
	}
	return m.db.AppendAudit(ctx, "plan", p.ID, "staged", "", p.InboundPlanID, actor)
}

// SaveSummary writes SQL and then refreshes Redis. A Redis failure is
// logged, never returned.
func (m *Manager) SaveSummary(ctx context.Context, id string, s *inbound.Summary) error {
	if err := m.db.SaveSummary(ctx, id, s); err != nil {
		return err
	}
	if m.redis != nil {
		if err := m.redis.SetSummary(ctx, id, s); err != nil {
			log.Printf("planstate: cache summary for plan %s: %v", id, err)
		}
	}
	return nil
}

// GetSummary reads the summary from Redis, falls back to SQL.
func (m *Manager) GetSummary(ctx context.Context, id string) (*inbound.Summary, error) {
	if m.redis != nil {
		if s, err := m.redis.GetSummary(ctx, id); err == nil && s != nil {
			return s, nil
		}
	}
	return m.db.GetSummary(ctx, id)
}

// DeletePlan removes the staged plan and its cached summary.
func (m *Manager) DeletePlan(ctx context.Context, id string) error {
	if err := m.db.DeletePlan(ctx, id); err != nil {
		return err
	}
	if m.redis != nil {
		m.redis.RemovePlan(ctx, id)
	}
	return nil
}

func (m *Manager) ListPlans(ctx context.Context, limit int) ([]*inbound.Plan, error) {
	return m.db.ListPlans(ctx, limit)
}

// SyncRedisFromSQL rebuilds the confirmed summaries in Redis. Called on startup.
func (m *Manager) SyncRedisFromSQL(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.FlushAll(ctx); err != nil {
		return err
	}
	ids, err := m.db.ConfirmedPlanIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s, err := m.db.GetSummary(ctx, id)
		if errors.Is(err, inbound.ErrPlanNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := m.redis.SetSummary(ctx, id, s); err != nil {
			log.Printf("planstate: sync summary for plan %s: %v", id, err)
		}
	}
	log.Printf("planstate: synced %d confirmed plans to redis", len(ids))
	return nil
}

// CacheEnabled reports whether a Redis store is attached.
func (m *Manager) CacheEnabled() bool { return m.redis != nil }

// PingCache checks the Redis connection. Without a cache it is a no-op.
func (m *Manager) PingCache(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	return m.redis.Ping(ctx)
}
