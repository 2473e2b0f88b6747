package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/researchaccelerator-hub/telegram-job/model"
)

// redisRecordTTL keeps records long enough to notice a failed upload, then lets them expire.
const redisRecordTTL = 30 * 24 * time.Hour

// RedisLedger stores job records as JSON strings under "jobs:<key>".
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger creates a ledger for the Redis server at addr. No connection is made until
// the first command.
func NewRedisLedger(addr string, db int) *RedisLedger {
	return &RedisLedger{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ttl: redisRecordTTL,
	}
}

func redisKey(key string) string {
	return "jobs:" + key
}

func (l *RedisLedger) Get(ctx context.Context, key string) (*model.JobRecord, error) {
	raw, err := l.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record from redis: %w", err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse job record %s: %w", key, err)
	}
	return &rec, nil
}

func (l *RedisLedger) Put(ctx context.Context, rec model.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode job record: %w", err)
	}
	if err := l.client.Set(ctx, redisKey(rec.Key), data, l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job record to redis: %w", err)
	}
	return nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}
