package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/docgate/internal/errors"
	ratelimitDomain "github.com/allisson/docgate/internal/ratelimit/domain"
)

const redisCounterKeyPrefix = "docgate:ratelimit:"

// Conditional increment: only counts inside the window the caller observed.
// Returns -1 when the key is gone or the window rotated.
var incrementScript = redis.NewScript(`
local window_start = redis.call('HGET', KEYS[1], 'window_start')
if not window_start or window_start ~= ARGV[1] then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// Conditional block transition: never extends an active block.
// Returns 1 when this caller won the transition, 0 otherwise.
var blockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
local blocked_until = redis.call('HGET', KEYS[1], 'blocked_until')
if blocked_until and tonumber(blocked_until) > tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], 'blocked_until', ARGV[1])
return 1
`)

// RedisCounterRepository implements attempt counter persistence on Redis.
// Counters are hashes with attempts, window_start, and blocked_until fields
// (timestamps as unix nanoseconds); conditional transitions run as Lua scripts
// so they are atomic on the server. Keys expire on their own after the
// retention period, making DeleteStale mostly a safety net.
type RedisCounterRepository struct {
	client    *redis.Client
	retention time.Duration
}

func (r *RedisCounterRepository) key(identifier string) string {
	return redisCounterKeyPrefix + identifier
}

// Get retrieves the counter for an identifier.
// Returns ErrCounterNotFound if no attempts have been recorded.
func (r *RedisCounterRepository) Get(
	ctx context.Context,
	identifier string,
) (*ratelimitDomain.AttemptCounter, error) {
	fields, err := r.client.HGetAll(ctx, r.key(identifier)).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get attempt counter")
	}
	if len(fields) == 0 {
		return nil, ratelimitDomain.ErrCounterNotFound
	}

	counter := &ratelimitDomain.AttemptCounter{Identifier: identifier}

	if raw, ok := fields["attempts"]; ok {
		attempts, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse attempt count")
		}
		counter.Attempts = attempts
	}

	if raw, ok := fields["window_start"]; ok {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse window start")
		}
		counter.WindowStart = time.Unix(0, nanos).UTC()
	}

	if raw, ok := fields["blocked_until"]; ok {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse blocked until")
		}
		if nanos > 0 {
			counter.BlockedUntil = time.Unix(0, nanos).UTC()
		}
	}

	return counter, nil
}

// StartWindow creates the counter or resets a stale one to a fresh window.
func (r *RedisCounterRepository) StartWindow(
	ctx context.Context,
	counter *ratelimitDomain.AttemptCounter,
) error {
	key := r.key(counter.Identifier)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		"attempts", counter.Attempts,
		"window_start", counter.WindowStart.UnixNano(),
		"blocked_until", 0,
	)
	pipe.Expire(ctx, key, r.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Wrap(err, "failed to start attempt window")
	}
	return nil
}

// Increment adds one attempt inside the given window and returns the new
// count. Returns ErrCounterNotFound if the window rotated concurrently.
func (r *RedisCounterRepository) Increment(
	ctx context.Context,
	identifier string,
	windowStart time.Time,
) (int, error) {
	result, err := incrementScript.Run(
		ctx,
		r.client,
		[]string{r.key(identifier)},
		strconv.FormatInt(windowStart.UnixNano(), 10),
	).Int64()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment attempt counter")
	}
	if result < 0 {
		return 0, ratelimitDomain.ErrCounterNotFound
	}

	return int(result), nil
}

// Block transitions the counter into the blocked state. Returns false when
// another caller already holds an active block.
func (r *RedisCounterRepository) Block(
	ctx context.Context,
	identifier string,
	blockedUntil time.Time,
	now time.Time,
) (bool, error) {
	result, err := blockScript.Run(
		ctx,
		r.client,
		[]string{r.key(identifier)},
		strconv.FormatInt(blockedUntil.UnixNano(), 10),
		strconv.FormatInt(now.UnixNano(), 10),
	).Int64()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to block attempt counter")
	}

	return result == 1, nil
}

// Delete removes the counter for an identifier.
func (r *RedisCounterRepository) Delete(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, r.key(identifier)).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete attempt counter")
	}
	return nil
}

// DeleteStale scans for counters whose window and block both elapsed before
// the cutoff and removes them. Redis key TTLs already bound growth; this keeps
// the cleanup command meaningful on every backend.
func (r *RedisCounterRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	var cursor uint64

	cutoffNanos := cutoff.UnixNano()

	for {
		keys, nextCursor, err := r.client.Scan(ctx, cursor, redisCounterKeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, apperrors.Wrap(err, "failed to scan attempt counters")
		}

		for _, key := range keys {
			fields, err := r.client.HMGet(ctx, key, "window_start", "blocked_until").Result()
			if err != nil {
				return removed, apperrors.Wrap(err, "failed to inspect attempt counter")
			}

			if !redisCounterStale(fields, cutoffNanos) {
				continue
			}

			deleted, err := r.client.Del(ctx, key).Result()
			if err != nil {
				return removed, apperrors.Wrap(err, "failed to delete stale attempt counter")
			}
			removed += deleted
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return removed, nil
}

// redisCounterStale reports whether both the window start and blocked-until
// fields fall before the cutoff.
func redisCounterStale(fields []interface{}, cutoffNanos int64) bool {
	for _, field := range fields {
		raw, ok := field.(string)
		if !ok {
			continue
		}
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if nanos >= cutoffNanos {
			return false
		}
	}
	return true
}

// NewRedisCounterRepository creates a Redis attempt counter repository.
// Counters expire on their own after the retention period.
func NewRedisCounterRepository(client *redis.Client, retention time.Duration) *RedisCounterRepository {
	return &RedisCounterRepository{client: client, retention: retention}
}
