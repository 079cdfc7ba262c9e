package billing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyTTL keeps dormant period keys from accumulating forever. Two full
// periods is enough for any late reconciliation.
const redisKeyTTL = 62 * 24 * time.Hour

// RedisLedger stores usage counters in Redis hashes, one hash per
// (tenant, period) key, using HIncrBy for atomic increments. This is the
// shared-store backing for multi-instance deployments.
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger creates a ledger on an existing client.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func redisUsageKey(tenantID, period string) string {
	return fmt.Sprintf("usage:%s:%s", tenantID, period)
}

func (l *RedisLedger) Get(ctx context.Context, tenantID, period string) (Usage, error) {
	fields, err := l.client.HGetAll(ctx, redisUsageKey(tenantID, period)).Result()
	if err != nil {
		return Usage{}, fmt.Errorf("redis ledger get: %w", err)
	}

	u := Usage{TenantID: tenantID, Period: period, Counts: make(map[Metric]int64, len(fields))}
	for field, raw := range fields {
		if field == "updated_at" {
			if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
				u.UpdatedAt = time.Unix(ts, 0).UTC()
			}
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Usage{}, fmt.Errorf("redis ledger get: corrupt counter %s=%q", field, raw)
		}
		u.Counts[Metric(field)] = n
	}
	return u, nil
}

func (l *RedisLedger) Increment(ctx context.Context, tenantID, period string, metric Metric, n int64) (int64, error) {
	key := redisUsageKey(tenantID, period)

	pipe := l.client.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, string(metric), n)
	pipe.HSet(ctx, key, "updated_at", time.Now().Unix())
	pipe.Expire(ctx, key, redisKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis ledger increment: %w", err)
	}
	return incr.Val(), nil
}

func (l *RedisLedger) Reset(ctx context.Context, tenantID, period string) error {
	if err := l.client.Del(ctx, redisUsageKey(tenantID, period)).Err(); err != nil {
		return fmt.Errorf("redis ledger reset: %w", err)
	}
	return nil
}
