package cacheredis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBacking implements cachex.Backing for byte-valued resources, letting
// fetched artifacts survive process restarts and be shared across instances.
type RedisBacking struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisBacking creates a backing store over rdb. A zero ttl means entries
// never expire.
func NewRedisBacking(rdb *redis.Client, ttl time.Duration) *RedisBacking {
	return &RedisBacking{rdb: rdb, ttl: ttl}
}

func resourceKey(key string) string { return fmt.Sprintf("tidal:resource:%s", key) }

// Load returns the cached bytes for key, or a miss when Redis has no entry.
func (b *RedisBacking) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.rdb.Get(ctx, resourceKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, redisErrors.NewWithCause(ErrLoad, err).WithDetail("key", key)
	}
	return data, true, nil
}

// Save writes the bytes for key with the configured TTL.
func (b *RedisBacking) Save(ctx context.Context, key string, value []byte) error {
	if err := b.rdb.Set(ctx, resourceKey(key), value, b.ttl).Err(); err != nil {
		return redisErrors.NewWithCause(ErrSave, err).WithDetail("key", key)
	}
	return nil
}
