package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRetryKey is the sorted set holding pending deliveries, scored by
// the unix time of their next attempt
const DefaultRetryKey = "ticketing:delivery:retry"

const maxRetryDelay = time.Hour

// RetryQueue parks failed deliveries in Redis until they are due again
type RetryQueue struct {
	redis     *redis.Client
	key       string
	baseDelay time.Duration
	now       func() time.Time
}

// NewRetryQueue creates a retry queue. The delay before attempt n+1 is
// baseDelay * 2^(n-1), capped at an hour.
func NewRetryQueue(client *redis.Client, key string, baseDelay time.Duration) *RetryQueue {
	if key == "" {
		key = DefaultRetryKey
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &RetryQueue{
		redis:     client,
		key:       key,
		baseDelay: baseDelay,
		now:       time.Now,
	}
}

// Key returns the Redis key backing the queue
func (q *RetryQueue) Key() string {
	return q.key
}

// Enqueue schedules d for its next attempt
func (q *RetryQueue) Enqueue(ctx context.Context, d *Delivery) error {
	d.NextAttemptAt = q.now().Add(q.backoff(d.Attempts)).UTC().Truncate(time.Second)

	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery: %w", err)
	}

	err = q.redis.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(d.NextAttemptAt.Unix()),
		Member: string(body),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue delivery for order %s: %w", d.OrderNumber, err)
	}
	return nil
}

// Due claims up to limit deliveries whose next attempt time has passed. A
// member removed by another worker first is skipped, so each delivery is
// handed to exactly one caller.
func (q *RetryQueue) Due(ctx context.Context, limit int) ([]*Delivery, error) {
	members, err := q.redis.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().Unix(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read retry queue: %w", err)
	}

	due := make([]*Delivery, 0, len(members))
	for _, member := range members {
		removed, err := q.redis.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return due, fmt.Errorf("failed to claim delivery: %w", err)
		}
		if removed == 0 {
			continue
		}

		var d Delivery
		if err := json.Unmarshal([]byte(member), &d); err != nil {
			slog.Error("dropping unreadable delivery", "error", err)
			continue
		}
		due = append(due, &d)
	}

	return due, nil
}

// Len returns the number of parked deliveries
func (q *RetryQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.ZCard(ctx, q.key).Result()
}

func (q *RetryQueue) backoff(attempts int) time.Duration {
	delay := q.baseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
