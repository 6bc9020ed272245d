package cache

import (
	"context"
	"fmt"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const defaultSequenceKeyPrefix = "portal:sequence:"

// nextIDScript raises the counter to floor-1 if it lags, then increments it.
// Runs atomically on the server, so concurrent callers never share a value.
var nextIDScript = redis.NewScript(`
local key = KEYS[1]
local floor = tonumber(ARGV[1])

local current = tonumber(redis.call('GET', key) or '0')
if current < floor - 1 then
	redis.call('SET', key, floor - 1)
end

return redis.call('INCR', key)
`)

// RedisSequence allocates document ids from Redis counters, one per collection
type RedisSequence struct {
	client    redis.Scripter
	keyPrefix string
}

// NewRedisSequence creates a sequence over an existing client.
// An empty prefix uses "portal:sequence:".
func NewRedisSequence(client redis.Scripter, keyPrefix string) *RedisSequence {
	if keyPrefix == "" {
		keyPrefix = defaultSequenceKeyPrefix
	}
	return &RedisSequence{client: client, keyPrefix: keyPrefix}
}

// Next returns the next id for the collection, never lower than floor
func (s *RedisSequence) Next(ctx context.Context, c shared.Collection, floor int64) (int64, error) {
	id, err := nextIDScript.Run(ctx, s.client, []string{s.keyPrefix + c.String()}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", c, err)
	}
	return id, nil
}

// Ensure RedisSequence implements Sequence
var _ shared.Sequence = (*RedisSequence)(nil)
