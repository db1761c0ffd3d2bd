package planstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"inboundcore/inbound"
)

// RedisStore caches the last run summary per plan.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore caches summaries for ttl; zero keeps them until replaced.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func summaryKey(planID string) string {
	return fmt.Sprintf("inboundcore:plan:%s:summary", planID)
}

const confirmedPlansKey = "inboundcore:plans:confirmed"

func (r *RedisStore) SetSummary(ctx context.Context, planID string, s *inbound.Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, summaryKey(planID), data, r.ttl)
	if s.Confirmed {
		pipe.SAdd(ctx, confirmedPlansKey, planID)
	} else {
		pipe.SRem(ctx, confirmedPlansKey, planID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetSummary returns nil, nil on a cache miss.
func (r *RedisStore) GetSummary(ctx context.Context, planID string) (*inbound.Summary, error) {
	data, err := r.client.Get(ctx, summaryKey(planID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s inbound.Summary
	return &s, json.Unmarshal(data, &s)
}

func (r *RedisStore) ConfirmedPlanIDs(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, confirmedPlansKey).Result()
}

func (r *RedisStore) RemovePlan(ctx context.Context, planID string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, summaryKey(planID))
	pipe.SRem(ctx, confirmedPlansKey, planID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.ConfirmedPlanIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemovePlan(ctx, id)
	}
	return r.client.Del(ctx, confirmedPlansKey).Err()
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
